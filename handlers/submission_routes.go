package handlers

import (
	"errors"
	"fmt"
	"log"
	"path/filepath"

	"quest-campaign-system/middleware"
	"quest-campaign-system/models"
	"quest-campaign-system/services"
	"quest-campaign-system/utils"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

// submissionErrorStatus maps pipeline errors to HTTP status plus a stable
// machine-readable code.
func submissionErrorStatus(err error) (int, string) {
	switch {
	case errors.Is(err, services.ErrInvalidEvidence):
		return fiber.StatusBadRequest, "VALIDATION_ERROR"
	case errors.Is(err, services.ErrMissingHandle):
		return fiber.StatusPreconditionFailed, "ELIGIBILITY_MISSING_HANDLE"
	case errors.Is(err, services.ErrBanned):
		return fiber.StatusForbidden, "ELIGIBILITY_BANNED"
	case errors.Is(err, services.ErrNotJoined):
		return fiber.StatusForbidden, "ELIGIBILITY_NOT_JOINED"
	case errors.Is(err, services.ErrUserNotFound), errors.Is(err, services.ErrUserInactive):
		return fiber.StatusForbidden, "ELIGIBILITY_FORBIDDEN"
	case errors.Is(err, services.ErrTaskNotFound), errors.Is(err, services.ErrSubTaskNotFound):
		return fiber.StatusNotFound, "TASK_NOT_FOUND"
	case errors.Is(err, services.ErrDuplicateSubmission):
		return fiber.StatusConflict, "CONFLICT"
	case errors.Is(err, services.ErrSubmissionNotFound):
		return fiber.StatusNotFound, "SUBMISSION_NOT_FOUND"
	case errors.Is(err, services.ErrInvalidVerdict):
		return fiber.StatusBadRequest, "VALIDATION_ERROR"
	default:
		return fiber.StatusInternalServerError, "INTERNAL"
	}
}

func SetupSubmissionRoutes(app *fiber.App, submissionService *services.SubmissionService,
	userService *services.UserService, submissionLimit fiber.Handler) {

	secured := app.Group("/", middleware.UserContextMiddleware())

	// Create submission. Always answers immediately: 201 PENDING on
	// success, a typed failure otherwise. Automated verification happens
	// in the background.
	secured.Post("/tasks/:id/submissions", submissionLimit, func(c *fiber.Ctx) error {
		userID := c.Locals("user_id").(string)
		taskID := c.Params("id")

		var req struct {
			SubTaskID string          `json:"sub_task_id"`
			Evidence  models.Evidence `json:"evidence"`
		}
		if err := c.BodyParser(&req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "invalid JSON", "code": "VALIDATION_ERROR", "cause": err.Error(),
			})
		}

		// users exist from first authenticated contact
		if _, err := userService.EnsureUser(userID); err != nil {
			log.Printf("failed to ensure user %s: %v", userID, err)
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "failed to load user", "code": "INTERNAL",
			})
		}

		sub, err := submissionService.Submit(userID, taskID, req.SubTaskID, req.Evidence)
		if err != nil {
			status, code := submissionErrorStatus(err)
			if status == fiber.StatusInternalServerError {
				log.Printf("submission create failed for user %s task %s: %v", userID, taskID, err)
				return c.Status(status).JSON(fiber.Map{"error": "internal error", "code": code})
			}
			return c.Status(status).JSON(fiber.Map{"error": err.Error(), "code": code})
		}

		return c.Status(fiber.StatusCreated).JSON(fiber.Map{
			"submission_id": sub.ID,
			"status":        sub.Status,
		})
	})

	// Query the caller's submission status for a task (or one subtask).
	// Returns null if nothing was ever submitted.
	secured.Get("/tasks/:id/submissions/me", func(c *fiber.Ctx) error {
		userID := c.Locals("user_id").(string)

		sub, err := submissionService.Status(userID, c.Params("id"), c.Query("sub_task_id"))
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "failed to fetch submission", "code": "INTERNAL",
			})
		}
		if sub == nil {
			return c.JSON(nil)
		}

		resp := fiber.Map{
			"submission_id": sub.ID,
			"status":        sub.Status,
			"submitted_at":  sub.SubmittedAt,
		}
		if sub.ResolvedAt != nil {
			resp["resolved_at"] = sub.ResolvedAt
		}
		if sub.RejectionReason != "" {
			resp["rejection_reason"] = sub.RejectionReason
		}
		return c.JSON(resp)
	})

	// Proof-image upload: returns the stored URL for the evidence payload.
	secured.Post("/submissions/proof-image", func(c *fiber.Ctx) error {
		fileHeader, err := c.FormFile("image")
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "image file is required", "code": "VALIDATION_ERROR",
			})
		}
		key := fmt.Sprintf("proofs/%s%s", uuid.NewString(), filepath.Ext(fileHeader.Filename))
		url, err := utils.UploadProofImage(fileHeader, key)
		if err != nil {
			log.Printf("proof image upload failed: %v", err)
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "upload failed", "code": "INTERNAL",
			})
		}
		return c.Status(fiber.StatusCreated).JSON(fiber.Map{"image_url": url})
	})

	// Manual review: the human-reviewer half of the state machine. The
	// resolve is idempotent, so double-clicking a review button can not
	// double-credit.
	review := secured.Group("/review", middleware.RequireRole(models.RoleOrganization))
	review.Post("/submissions/:id/resolve", func(c *fiber.Ctx) error {
		reviewerID := c.Locals("user_id").(string)

		var req struct {
			Verdict string `json:"verdict"`
			Reason  string `json:"reason"`
		}
		if err := c.BodyParser(&req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "invalid JSON", "code": "VALIDATION_ERROR",
			})
		}

		sub, result, err := submissionService.Resolve(c.Params("id"), req.Verdict, req.Reason, reviewerID)
		if err != nil {
			status, code := submissionErrorStatus(err)
			return c.Status(status).JSON(fiber.Map{"error": err.Error(), "code": code})
		}

		resp := fiber.Map{"submission": sub}
		if result != nil {
			resp["progression"] = result
		}
		return c.JSON(resp)
	})
}
