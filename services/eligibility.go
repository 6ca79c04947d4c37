package services

import (
	"errors"

	"quest-campaign-system/models"

	"gorm.io/gorm"
)

type EligibilityService struct {
	DB *gorm.DB
}

func NewEligibilityService(db *gorm.DB) *EligibilityService {
	return &EligibilityService{DB: db}
}

// handleRequired reports whether the proof type can only be auto-verified
// against the submitter's declared handle.
func handleRequired(proofType string) bool {
	switch proofType {
	case models.ProofTypeLike, models.ProofTypeRepost, models.ProofTypeQuote, models.ProofTypeComment:
		return true
	}
	return false
}

// Check runs the eligibility predicates in order, short-circuiting on the
// first failure. Read-only: no rows are written here; the uniqueness
// invariant is enforced atomically by the store, this is just the early
// caller-facing check.
func (s *EligibilityService) Check(externalUserID string, task *models.Task, subTask *models.SubTask) (*models.User, error) {
	var user models.User
	if err := s.DB.Where("external_user_id = ?", externalUserID).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	if !user.IsActive {
		return nil, ErrUserInactive
	}
	if user.IsBanned {
		return nil, ErrBanned
	}

	proofType := task.ProofType
	if subTask != nil {
		proofType = subTask.ProofType
	}
	if task.VerificationMethod == models.VerificationAIAuto && handleRequired(proofType) {
		if user.SocialHandle == nil || *user.SocialHandle == "" {
			return nil, ErrMissingHandle
		}
	}

	var participation models.CampaignParticipation
	err := s.DB.Where("external_user_id = ? AND campaign_id = ?", externalUserID, task.CampaignID).
		First(&participation).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotJoined
		}
		return nil, err
	}
	if participation.Status != models.ParticipationApproved {
		return nil, ErrNotJoined
	}

	subTaskID := ""
	if subTask != nil {
		subTaskID = subTask.ID
	}
	var count int64
	if err := s.DB.Model(&models.TaskSubmission{}).
		Where("external_user_id = ? AND task_id = ? AND sub_task_id = ?", externalUserID, task.ID, subTaskID).
		Count(&count).Error; err != nil {
		return nil, err
	}
	if count > 0 {
		return nil, ErrDuplicateSubmission
	}

	return &user, nil
}
