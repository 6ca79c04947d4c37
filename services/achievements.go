package services

import (
	"log"

	"quest-campaign-system/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type AchievementService struct {
	DB *gorm.DB
}

func NewAchievementService(db *gorm.DB) *AchievementService {
	return &AchievementService{DB: db}
}

// Seed upserts the built-in achievement triggers, keyed by code.
func (s *AchievementService) Seed() error {
	for _, a := range models.AchievementTriggers {
		a.ID = uuid.NewString()
		if err := s.DB.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "code"}},
			DoNothing: true,
		}).Create(&a).Error; err != nil {
			return err
		}
	}
	return nil
}

// Satisfied is the stateless criterion predicate: does the user's current
// aggregate stat meet the achievement's target? categoryCount is the
// user's approved-submission count for the achievement's category (only
// consulted for category-scoped tasks_completed).
func Satisfied(a *models.Achievement, user *models.User, categoryCount int64) bool {
	switch a.Type {
	case models.AchievementTasksCompleted:
		if a.Category != "" {
			return categoryCount >= a.Target
		}
		return user.TotalTasksCompleted >= a.Target
	case models.AchievementXPEarned:
		return user.XP >= a.Target
	case models.AchievementCampaignsJoined:
		return user.CampaignsJoined >= a.Target
	case models.AchievementStreakDays:
		return user.StreakDays >= a.Target
	}
	return false
}

// EvaluateAndUnlock tests every achievement the user has not unlocked yet
// and records the newly satisfied ones. Recording is idempotent per
// (user, achievement): the insert is ON CONFLICT DO NOTHING against the
// unique pair, so a concurrent or repeated evaluation can never re-award.
// Achievement rewards are credited with atomic increments and do not
// re-trigger evaluation within the same pass.
func (s *AchievementService) EvaluateAndUnlock(tx *gorm.DB, externalUserID string) ([]models.Achievement, error) {
	var user models.User
	if err := tx.Where("external_user_id = ?", externalUserID).First(&user).Error; err != nil {
		return nil, err
	}

	var achievements []models.Achievement
	if err := tx.Find(&achievements).Error; err != nil {
		return nil, err
	}

	var unlockedCodes []string
	if err := tx.Model(&models.UserAchievement{}).
		Where("external_user_id = ?", externalUserID).
		Pluck("achievement_code", &unlockedCodes).Error; err != nil {
		return nil, err
	}
	already := make(map[string]bool, len(unlockedCodes))
	for _, code := range unlockedCodes {
		already[code] = true
	}

	categoryCounts := map[string]int64{}
	var newlyUnlocked []models.Achievement
	for i := range achievements {
		a := achievements[i]
		if already[a.Code] {
			continue
		}

		categoryCount := int64(0)
		if a.Type == models.AchievementTasksCompleted && a.Category != "" {
			count, ok := categoryCounts[a.Category]
			if !ok {
				if err := tx.Model(&models.TaskSubmission{}).
					Joins("INNER JOIN tasks ON tasks.id = task_submissions.task_id").
					Where("task_submissions.external_user_id = ? AND task_submissions.status = ?", externalUserID, models.SubmissionApproved).
					Where("tasks.category = ?", a.Category).
					Count(&count).Error; err != nil {
					return nil, err
				}
				categoryCounts[a.Category] = count
			}
			categoryCount = count
		}

		if !Satisfied(&a, &user, categoryCount) {
			continue
		}

		unlock := models.UserAchievement{
			ID:              uuid.NewString(),
			ExternalUserID:  externalUserID,
			AchievementCode: a.Code,
		}
		res := tx.Clauses(clause.OnConflict{
			Columns: []clause.Column{
				{Name: "external_user_id"},
				{Name: "achievement_code"},
			},
			DoNothing: true,
		}).Create(&unlock)
		if res.Error != nil {
			return nil, res.Error
		}
		if res.RowsAffected == 0 {
			// lost the race to another evaluation, which awarded it
			continue
		}

		if a.RewardXP != 0 || a.RewardTokens != 0 {
			if err := tx.Model(&models.User{}).
				Where("external_user_id = ?", externalUserID).
				Updates(map[string]interface{}{
					"xp":            gorm.Expr("xp + ?", a.RewardXP),
					"token_balance": gorm.Expr("token_balance + ?", a.RewardTokens),
				}).Error; err != nil {
				return nil, err
			}
		}

		newlyUnlocked = append(newlyUnlocked, a)
		log.Printf("[ACHIEVEMENT] unlocked: %s → %s", a.Code, externalUserID)
	}

	// Rewards may have moved the tier cache; refresh it once.
	if len(newlyUnlocked) > 0 {
		var after models.User
		if err := tx.Where("external_user_id = ?", externalUserID).First(&after).Error; err != nil {
			return nil, err
		}
		if err := tx.Model(&models.User{}).
			Where("external_user_id = ?", externalUserID).
			Update("tier", models.TierForXP(after.XP)).Error; err != nil {
			return nil, err
		}
	}

	return newlyUnlocked, nil
}

// ListUnlocked returns the user's unlock records joined with their
// achievement config.
func (s *AchievementService) ListUnlocked(externalUserID string) ([]models.Achievement, error) {
	var achievements []models.Achievement
	err := s.DB.Model(&models.Achievement{}).
		Joins("INNER JOIN user_achievements ON user_achievements.achievement_code = achievements.code").
		Where("user_achievements.external_user_id = ?", externalUserID).
		Order("user_achievements.unlocked_at ASC").
		Find(&achievements).Error
	return achievements, err
}
