package services

import (
	"fmt"
	"log"
	"time"

	"quest-campaign-system/models"

	"gorm.io/gorm"
)

// ProgressionResult is the effect record produced by an approval, consumed
// by the SSE stream and any notification collaborator.
type ProgressionResult struct {
	UserID          string   `json:"user_id"`
	XPDelta         int64    `json:"xp_delta"`
	NewXP           int64    `json:"new_xp"`
	TokenDelta      float64  `json:"token_delta,omitempty"`
	NewTokenBalance float64  `json:"new_token_balance"`
	OldTier         string   `json:"old_tier"`
	NewTier         string   `json:"new_tier"`
	TierChanged     bool     `json:"tier_changed"`
	UnlockedCodes   []string `json:"unlocked_achievement_ids,omitempty"`
}

// ProgressionService is the single entry point for XP and balance mutation.
// All increments are atomic column expressions, never read-modify-write, so
// concurrent approvals for the same user cannot lose updates.
type ProgressionService struct {
	DB           *gorm.DB
	Achievements *AchievementService
}

func NewProgressionService(db *gorm.DB, achievements *AchievementService) *ProgressionService {
	return &ProgressionService{DB: db, Achievements: achievements}
}

// ApplyApproval credits XP and tokens for an approved submission, recomputes
// the tier cache, updates activity counters and the daily streak, and runs
// achievement evaluation on the updated stats. Callers run it inside the
// same transaction as the submission's terminal-state write; the
// PENDING-guarded resolve guarantees it executes at most once per
// submission.
func (s *ProgressionService) ApplyApproval(tx *gorm.DB, externalUserID string, xpDelta int64, tokenDelta float64) (*ProgressionResult, error) {
	var before models.User
	if err := tx.Where("external_user_id = ?", externalUserID).First(&before).Error; err != nil {
		return nil, fmt.Errorf("progress record not found for %s: %w", externalUserID, err)
	}

	now := time.Now()
	updates := map[string]interface{}{
		"xp":                    gorm.Expr("xp + ?", xpDelta),
		"token_balance":         gorm.Expr("token_balance + ?", tokenDelta),
		"total_tasks_completed": gorm.Expr("total_tasks_completed + ?", 1),
		"streak_days":           nextStreak(before.LastCompletionAt, before.StreakDays, now),
		"last_completion_at":    now,
	}
	if err := tx.Model(&models.User{}).
		Where("external_user_id = ?", externalUserID).
		Updates(updates).Error; err != nil {
		return nil, err
	}

	var after models.User
	if err := tx.Where("external_user_id = ?", externalUserID).First(&after).Error; err != nil {
		return nil, err
	}

	oldTier := models.TierForXP(before.XP)
	newTier := models.TierForXP(after.XP)
	result := &ProgressionResult{
		UserID:          externalUserID,
		XPDelta:         xpDelta,
		NewXP:           after.XP,
		TokenDelta:      tokenDelta,
		NewTokenBalance: after.TokenBalance,
		OldTier:         oldTier,
		NewTier:         newTier,
		TierChanged:     models.TierRank(newTier) > models.TierRank(oldTier),
	}

	tierUpdates := map[string]interface{}{"tier": newTier}
	if result.TierChanged {
		tierUpdates["last_tier_up_at"] = now
		log.Printf("[PROGRESSION] tier change: %s %s → %s (xp=%d)", externalUserID, oldTier, newTier, after.XP)
	}
	if err := tx.Model(&models.User{}).
		Where("external_user_id = ?", externalUserID).
		Updates(tierUpdates).Error; err != nil {
		return nil, err
	}

	unlocked, err := s.Achievements.EvaluateAndUnlock(tx, externalUserID)
	if err != nil {
		return nil, err
	}
	for _, a := range unlocked {
		result.UnlockedCodes = append(result.UnlockedCodes, a.Code)
	}

	log.Printf("[PROGRESSION] XP awarded: %s +%d → xp=%d tier=%s unlocked=%v",
		externalUserID, xpDelta, after.XP, newTier, result.UnlockedCodes)
	return result, nil
}

// GrantXP is the administrative correction path: credits XP outside the
// submission pipeline (no counters, no streak), still recomputing the tier
// cache and re-evaluating achievements.
func (s *ProgressionService) GrantXP(externalUserID string, xpDelta int64, reason string) (*ProgressionResult, error) {
	var result *ProgressionResult
	err := s.DB.Transaction(func(tx *gorm.DB) error {
		var before models.User
		if err := tx.Where("external_user_id = ?", externalUserID).First(&before).Error; err != nil {
			return fmt.Errorf("progress record not found for %s: %w", externalUserID, err)
		}
		if err := tx.Model(&models.User{}).
			Where("external_user_id = ?", externalUserID).
			Update("xp", gorm.Expr("xp + ?", xpDelta)).Error; err != nil {
			return err
		}
		var after models.User
		if err := tx.Where("external_user_id = ?", externalUserID).First(&after).Error; err != nil {
			return err
		}
		oldTier := models.TierForXP(before.XP)
		newTier := models.TierForXP(after.XP)
		if err := tx.Model(&models.User{}).
			Where("external_user_id = ?", externalUserID).
			Update("tier", newTier).Error; err != nil {
			return err
		}
		unlocked, err := s.Achievements.EvaluateAndUnlock(tx, externalUserID)
		if err != nil {
			return err
		}
		result = &ProgressionResult{
			UserID:          externalUserID,
			XPDelta:         xpDelta,
			NewXP:           after.XP,
			NewTokenBalance: after.TokenBalance,
			OldTier:         oldTier,
			NewTier:         newTier,
			TierChanged:     models.TierRank(newTier) > models.TierRank(oldTier),
		}
		for _, a := range unlocked {
			result.UnlockedCodes = append(result.UnlockedCodes, a.Code)
		}
		log.Printf("[PROGRESSION] admin XP grant: %s +%d (reason: %s)", externalUserID, xpDelta, reason)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// nextStreak: consecutive-day completion counter. Same day keeps the
// streak, the day after extends it, anything else resets to 1.
func nextStreak(last *time.Time, current int64, now time.Time) int64 {
	if last == nil {
		return 1
	}
	lastDay := last.Truncate(24 * time.Hour)
	today := now.Truncate(24 * time.Hour)
	switch today.Sub(lastDay) {
	case 0:
		if current < 1 {
			return 1
		}
		return current
	case 24 * time.Hour:
		return current + 1
	default:
		return 1
	}
}
