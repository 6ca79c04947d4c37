package services

import (
	"path/filepath"
	"testing"

	"quest-campaign-system/models"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// openTestDB gives each test a file-backed sqlite database so concurrent
// connections see the same data.
func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := filepath.Join(t.TempDir(), "test.db") + "?_busy_timeout=5000"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("failed to open test db: %v", err)
	}

	if err := db.AutoMigrate(
		&models.User{},
		&models.Campaign{},
		&models.CampaignParticipation{},
		&models.Task{},
		&models.SubTask{},
		&models.TaskSubmission{},
		&models.Achievement{},
		&models.UserAchievement{},
	); err != nil {
		t.Fatalf("failed to migrate test db: %v", err)
	}
	return db
}

func createTestUser(t *testing.T, db *gorm.DB, xp int64) *models.User {
	t.Helper()
	handle := "alice"
	user := &models.User{
		ID:             uuid.NewString(),
		ExternalUserID: uuid.NewString(),
		Username:       "alice",
		SocialHandle:   &handle,
		XP:             xp,
		Tier:           models.TierForXP(xp),
		IsActive:       true,
	}
	if err := db.Create(user).Error; err != nil {
		t.Fatalf("failed to create test user: %v", err)
	}
	return user
}

// createTestTask sets up a published campaign with one task and an APPROVED
// participation for the user.
func createTestTask(t *testing.T, db *gorm.DB, user *models.User, method, proofType string, rewardXP int64) *models.Task {
	t.Helper()
	campaign := &models.Campaign{
		ID:          uuid.NewString(),
		Name:        "Launch Week",
		Slug:        "launch-week-" + uuid.NewString()[:8],
		OrganizerID: uuid.NewString(),
		Status:      models.CampaignStatusPublished,
	}
	if err := db.Create(campaign).Error; err != nil {
		t.Fatalf("failed to create campaign: %v", err)
	}

	task := &models.Task{
		ID:                 uuid.NewString(),
		CampaignID:         campaign.ID,
		Title:              "Spread the word",
		Slug:               "spread-the-word",
		Category:           "social",
		VerificationMethod: method,
		ProofType:          proofType,
		TargetURL:          "https://x.example/status/1",
		RewardXP:           rewardXP,
	}
	if err := db.Create(task).Error; err != nil {
		t.Fatalf("failed to create task: %v", err)
	}

	participation := &models.CampaignParticipation{
		ID:             uuid.NewString(),
		ExternalUserID: user.ExternalUserID,
		CampaignID:     campaign.ID,
		Status:         models.ParticipationApproved,
	}
	if err := db.Create(participation).Error; err != nil {
		t.Fatalf("failed to create participation: %v", err)
	}
	return task
}
