package handlers

import (
	"errors"

	"quest-campaign-system/middleware"
	"quest-campaign-system/models"
	"quest-campaign-system/services"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

func SetupProgressionRoutes(app *fiber.App, progressionService *services.ProgressionService,
	achievementService *services.AchievementService, userService *services.UserService,
	authClient *services.AuthServiceClient) {

	secured := app.Group("/", middleware.UserContextMiddleware())

	secured.Get("/user/progress", func(c *fiber.Ctx) error {
		userID := c.Locals("user_id").(string)

		user, err := userService.EnsureUser(userID)
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "failed to load progress", "cause": err.Error(),
			})
		}

		// count approved submissions directly; the counter on the user row
		// is the fast path, this endpoint reports the authoritative number
		var approvedCount int64
		if err := progressionService.DB.
			Model(&models.TaskSubmission{}).
			Where("external_user_id = ? AND status = ?", userID, models.SubmissionApproved).
			Count(&approvedCount).Error; err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "failed to count approvals", "cause": err.Error(),
			})
		}

		unlocked, err := achievementService.ListUnlocked(userID)
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "failed to fetch achievements", "cause": err.Error(),
			})
		}

		return c.JSON(fiber.Map{
			"id":                 user.ID,
			"xp":                 user.XP,
			"tier":               models.TierForXP(user.XP),
			"token_balance":      user.TokenBalance,
			"tasks_completed":    approvedCount,
			"campaigns_joined":   user.CampaignsJoined,
			"streak_days":        user.StreakDays,
			"last_completion_at": user.LastCompletionAt,
			"last_tier_up_at":    user.LastTierUpAt,
			"achievements":       unlocked,
		})
	})

	secured.Get("/user/achievements", func(c *fiber.Ctx) error {
		userID := c.Locals("user_id").(string)
		unlocked, err := achievementService.ListUnlocked(userID)
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "failed to fetch achievements", "cause": err.Error(),
			})
		}
		return c.JSON(unlocked)
	})

	secured.Patch("/user/social-handle", userService.UpdateSocialHandle)

	// SSE progression effects stream (EventSource auth via query params)
	app.Get("/user/progress/stream",
		middleware.SSEAuthMiddleware(authClient),
		progressionService.StreamUserProgressSSE)

	// Admin endpoints
	adminGroup := secured.Group("/admin", middleware.RequireRole(models.RoleAdmin))

	adminGroup.Post("/xp/grant", func(c *fiber.Ctx) error {
		var req struct {
			UserID string `json:"user_id"`
			XP     int64  `json:"xp"`
			Reason string `json:"reason"`
		}
		if err := c.BodyParser(&req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "invalid JSON", "cause": err.Error(),
			})
		}
		if req.UserID == "" || req.XP == 0 {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "user_id and a non-zero xp are required",
			})
		}

		result, err := progressionService.GrantXP(req.UserID, req.XP, req.Reason)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "user not found"})
			}
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "XP grant failed", "cause": err.Error(),
			})
		}
		return c.JSON(result)
	})
}
