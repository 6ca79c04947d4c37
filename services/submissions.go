package services

import (
	"errors"
	"time"

	"quest-campaign-system/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// SubmissionStore is the durable record of submissions. It owns the two
// invariants the pipeline depends on: at most one row per
// (user, task, subtask), enforced by the composite unique index at insert
// time, and at most one PENDING→terminal transition per row.
type SubmissionStore struct {
	DB *gorm.DB
}

func NewSubmissionStore(db *gorm.DB) *SubmissionStore {
	return &SubmissionStore{DB: db}
}

// CreateIfAbsent inserts the submission unless one already exists for the
// same (user, task, subtask). The insert races safely: ON CONFLICT DO
// NOTHING against the unique index, never a read-then-write check. When the
// row already exists the stored one is returned with created=false.
func (s *SubmissionStore) CreateIfAbsent(sub *models.TaskSubmission) (*models.TaskSubmission, bool, error) {
	if sub.ID == "" {
		sub.ID = uuid.NewString()
	}
	sub.Status = models.SubmissionPending

	res := s.DB.Clauses(clause.OnConflict{
		Columns: []clause.Column{
			{Name: "external_user_id"},
			{Name: "task_id"},
			{Name: "sub_task_id"},
		},
		DoNothing: true,
	}).Create(sub)
	if res.Error != nil {
		return nil, false, res.Error
	}
	if res.RowsAffected == 1 {
		return sub, true, nil
	}

	var existing models.TaskSubmission
	if err := s.DB.Where(
		"external_user_id = ? AND task_id = ? AND sub_task_id = ?",
		sub.ExternalUserID, sub.TaskID, sub.SubTaskID,
	).First(&existing).Error; err != nil {
		return nil, false, err
	}
	return &existing, false, nil
}

// Resolve transitions PENDING→verdict. Resolving an already-terminal
// submission is a no-op that returns the stored record, so retries and
// re-delivered completions cannot produce a second transition.
func (s *SubmissionStore) Resolve(submissionID, verdict, reason, resolvedBy string) (*models.TaskSubmission, bool, error) {
	var sub *models.TaskSubmission
	var changed bool
	err := s.DB.Transaction(func(tx *gorm.DB) error {
		var err error
		sub, changed, err = s.resolveTx(tx, submissionID, verdict, reason, resolvedBy)
		return err
	})
	return sub, changed, err
}

// resolveTx is the transaction body of Resolve, shared with the
// orchestrator so progression effects can join the same transaction.
func (s *SubmissionStore) resolveTx(tx *gorm.DB, submissionID, verdict, reason, resolvedBy string) (*models.TaskSubmission, bool, error) {
	if verdict != models.SubmissionApproved && verdict != models.SubmissionRejected {
		return nil, false, ErrInvalidVerdict
	}

	now := time.Now()
	updates := map[string]interface{}{
		"status":      verdict,
		"resolved_at": now,
		"resolved_by": resolvedBy,
	}
	if verdict == models.SubmissionRejected {
		updates["rejection_reason"] = reason
	}

	// The status guard is what makes this idempotent: a terminal row
	// matches no rows and nothing happens.
	res := tx.Model(&models.TaskSubmission{}).
		Where("id = ? AND status = ?", submissionID, models.SubmissionPending).
		Updates(updates)
	if res.Error != nil {
		return nil, false, res.Error
	}

	var sub models.TaskSubmission
	if err := tx.Where("id = ?", submissionID).First(&sub).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, false, ErrSubmissionNotFound
		}
		return nil, false, err
	}
	return &sub, res.RowsAffected == 1, nil
}

// GetByID fetches a submission.
func (s *SubmissionStore) GetByID(submissionID string) (*models.TaskSubmission, error) {
	var sub models.TaskSubmission
	if err := s.DB.Where("id = ?", submissionID).First(&sub).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrSubmissionNotFound
		}
		return nil, err
	}
	return &sub, nil
}

// FindForUserTask returns the user's submission for a task/subtask, nil if
// none exists.
func (s *SubmissionStore) FindForUserTask(externalUserID, taskID, subTaskID string) (*models.TaskSubmission, error) {
	var sub models.TaskSubmission
	err := s.DB.Where(
		"external_user_id = ? AND task_id = ? AND sub_task_id = ?",
		externalUserID, taskID, subTaskID,
	).First(&sub).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &sub, nil
}

// StalePending lists automated submissions that have sat PENDING longer
// than the window. The sweep only reports them for manual follow-up, it
// never resolves.
func (s *SubmissionStore) StalePending(olderThan time.Duration) ([]models.TaskSubmission, error) {
	cutoff := time.Now().Add(-olderThan)
	var subs []models.TaskSubmission
	err := s.DB.
		Joins("INNER JOIN tasks ON tasks.id = task_submissions.task_id").
		Where("task_submissions.status = ? AND task_submissions.submitted_at < ?", models.SubmissionPending, cutoff).
		Where("tasks.verification_method = ?", models.VerificationAIAuto).
		Find(&subs).Error
	return subs, err
}
