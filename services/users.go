package services

import (
	"errors"
	"strings"

	"quest-campaign-system/models"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type UserService struct {
	DB *gorm.DB
}

func NewUserService(db *gorm.DB) *UserService {
	return &UserService{DB: db}
}

// EnsureUser creates the local user row on first contact (idempotent). The
// sync worker later fills in profile fields.
func (s *UserService) EnsureUser(externalUserID string) (*models.User, error) {
	var user models.User
	err := s.DB.Where("external_user_id = ?", externalUserID).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		user = models.User{
			ID:             uuid.NewString(),
			ExternalUserID: externalUserID,
			Username:       externalUserID,
			Role:           models.RoleParticipant,
			Tier:           models.TierBronze,
			IsActive:       true,
		}
		if err := s.DB.Create(&user).Error; err != nil {
			return nil, err
		}
		return &user, nil
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// UpdateSocialHandle sets the handle automated verification matches
// against. Profile edits are the only path that mutates it.
func (s *UserService) UpdateSocialHandle(c *fiber.Ctx) error {
	userID := c.Locals("user_id").(string)

	var req struct {
		SocialHandle string `json:"social_handle"`
	}
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid JSON"})
	}
	handle := strings.TrimPrefix(strings.TrimSpace(req.SocialHandle), "@")
	if handle == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "social_handle is required"})
	}

	if _, err := s.EnsureUser(userID); err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to load user"})
	}
	if err := s.DB.Model(&models.User{}).
		Where("external_user_id = ?", userID).
		Update("social_handle", handle).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to update handle"})
	}
	return c.JSON(fiber.Map{"message": "handle updated", "social_handle": handle})
}
