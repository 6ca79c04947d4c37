package services

import (
	"context"
	"errors"
	"log"
	"strings"
	"time"

	"quest-campaign-system/models"
	"quest-campaign-system/workers"

	"gorm.io/gorm"
)

// SubmissionService is the coordinating state machine: eligibility → store
// write → (optionally async) proof verification → progression. The caller
// always gets an immediate answer; verification never runs on the request
// path.
type SubmissionService struct {
	DB          *gorm.DB
	Store       *SubmissionStore
	Eligibility *EligibilityService
	Progression *ProgressionService
	Verifier    *ProofVerifier
	Queue       *workers.VerificationQueue

	// VerifyTimeout bounds a single provider round-trip.
	VerifyTimeout time.Duration
}

func NewSubmissionService(db *gorm.DB, store *SubmissionStore, eligibility *EligibilityService,
	progression *ProgressionService, verifier *ProofVerifier, queue *workers.VerificationQueue) *SubmissionService {
	return &SubmissionService{
		DB:            db,
		Store:         store,
		Eligibility:   eligibility,
		Progression:   progression,
		Verifier:      verifier,
		Queue:         queue,
		VerifyTimeout: 30 * time.Second,
	}
}

// Submit takes a raw submission through the synchronous half of the
// pipeline. On success the submission is PENDING; if its route is
// automated, a background job has been enqueued. Eligibility failures and
// duplicates are reported synchronously and write nothing.
func (s *SubmissionService) Submit(externalUserID, taskID, subTaskID string, evidence models.Evidence) (*models.TaskSubmission, error) {
	task, subTask, err := s.loadTask(taskID, subTaskID)
	if err != nil {
		return nil, err
	}

	user, err := s.Eligibility.Check(externalUserID, task, subTask)
	if err != nil {
		return nil, err
	}

	proofType := effectiveProofType(task, subTask)
	if err := validateEvidence(proofType, &evidence); err != nil {
		return nil, err
	}
	if evidence.Handle == "" && user.SocialHandle != nil {
		evidence.Handle = *user.SocialHandle
	}

	sub := &models.TaskSubmission{
		ExternalUserID: externalUserID,
		TaskID:         task.ID,
		SubTaskID:      subTaskID,
		Evidence:       evidence,
	}
	sub, created, err := s.Store.CreateIfAbsent(sub)
	if err != nil {
		return nil, err
	}
	if !created {
		// lost the race to a concurrent request for the same tuple
		return sub, ErrDuplicateSubmission
	}

	route := RouteFor(task.VerificationMethod, proofType)
	if route.Automated {
		s.enqueueVerification(sub, task, subTask, route, proofType)
	}
	return sub, nil
}

// Status returns the user's submission for a task/subtask, nil when none
// exists.
func (s *SubmissionService) Status(externalUserID, taskID, subTaskID string) (*models.TaskSubmission, error) {
	return s.Store.FindForUserTask(externalUserID, taskID, subTaskID)
}

// Resolve applies a terminal verdict and, for approvals, the progression
// effects — all in one transaction. Resolving an already-terminal
// submission returns the stored record and applies nothing, so re-delivery
// and reviewer retries are harmless. Used by both the background completion
// callback and the manual review endpoint.
func (s *SubmissionService) Resolve(submissionID, verdict, reason, resolvedBy string) (*models.TaskSubmission, *ProgressionResult, error) {
	var sub *models.TaskSubmission
	var result *ProgressionResult
	err := s.DB.Transaction(func(tx *gorm.DB) error {
		var changed bool
		var err error
		sub, changed, err = s.Store.resolveTx(tx, submissionID, verdict, reason, resolvedBy)
		if err != nil {
			return err
		}
		if !changed || verdict != models.SubmissionApproved {
			return nil
		}

		rewardXP, rewardTokens, err := rewardFor(tx, sub)
		if err != nil {
			return err
		}
		if err := tx.Model(&models.TaskSubmission{}).
			Where("id = ?", sub.ID).
			Updates(map[string]interface{}{
				"xp_awarded":     rewardXP,
				"tokens_awarded": rewardTokens,
			}).Error; err != nil {
			return err
		}

		result, err = s.Progression.ApplyApproval(tx, sub.ExternalUserID, rewardXP, rewardTokens)
		return err
	})
	if err != nil {
		return nil, nil, err
	}
	return sub, result, nil
}

// enqueueVerification hands the proof check to the background pool. The
// job's single completion callback is the idempotent Resolve; provider
// failures are absorbed and logged, leaving the submission PENDING.
func (s *SubmissionService) enqueueVerification(sub *models.TaskSubmission, task *models.Task, subTask *models.SubTask, route Route, proofType string) {
	submissionID := sub.ID
	proofURL := sub.Evidence.ProofURL
	handle := sub.Evidence.Handle
	if proofType == models.ProofTypeOriginalPost {
		// the user's own post is the proof, no handle match involved
		handle = ""
	}

	s.Queue.Enqueue(workers.VerificationJob{
		SubmissionID: submissionID,
		Run: func(ctx context.Context) {
			vctx, cancel := context.WithTimeout(ctx, s.VerifyTimeout)
			defer cancel()

			verdict, err := s.Verifier.Verify(vctx, route, proofType, proofURL, handle)
			if err != nil {
				// Never resolve on a failed check; the stale-PENDING
				// sweep or a reviewer picks these up.
				log.Printf("[ORCHESTRATOR] verification unavailable for submission %s: %v", submissionID, err)
				return
			}

			status := models.SubmissionRejected
			if verdict.Approved {
				status = models.SubmissionApproved
			}
			if _, _, err := s.Resolve(submissionID, status, verdict.Reason, "auto"); err != nil {
				log.Printf("[ORCHESTRATOR] failed to resolve submission %s: %v", submissionID, err)
			}
		},
	})
}

func (s *SubmissionService) loadTask(taskID, subTaskID string) (*models.Task, *models.SubTask, error) {
	var task models.Task
	if err := s.DB.Where("id = ?", taskID).First(&task).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, ErrTaskNotFound
		}
		return nil, nil, err
	}
	if subTaskID == "" {
		return &task, nil, nil
	}
	var subTask models.SubTask
	if err := s.DB.Where("id = ? AND task_id = ?", subTaskID, taskID).First(&subTask).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, ErrSubTaskNotFound
		}
		return nil, nil, err
	}
	return &task, &subTask, nil
}

func effectiveProofType(task *models.Task, subTask *models.SubTask) string {
	if subTask != nil {
		return subTask.ProofType
	}
	return task.ProofType
}

// validateEvidence enforces the closed evidence schema per proof kind at
// the boundary.
func validateEvidence(proofType string, ev *models.Evidence) error {
	ev.ProofURL = strings.TrimSpace(ev.ProofURL)
	ev.Handle = strings.TrimSpace(ev.Handle)
	ev.Text = strings.TrimSpace(ev.Text)
	ev.ImageURL = strings.TrimSpace(ev.ImageURL)

	switch proofType {
	case models.ProofTypeLike, models.ProofTypeRepost, models.ProofTypeQuote, models.ProofTypeComment, models.ProofTypeOriginalPost:
		if ev.ProofURL == "" {
			return ErrInvalidEvidence
		}
	case models.ProofTypeGeneric:
		if ev.Text == "" && ev.ImageURL == "" && ev.ProofURL == "" {
			return ErrInvalidEvidence
		}
	default:
		return ErrInvalidEvidence
	}
	return nil
}

// rewardFor looks up the XP/token reward for the submission's target.
func rewardFor(tx *gorm.DB, sub *models.TaskSubmission) (int64, float64, error) {
	if sub.SubTaskID != "" {
		var subTask models.SubTask
		if err := tx.Where("id = ?", sub.SubTaskID).First(&subTask).Error; err != nil {
			return 0, 0, err
		}
		return subTask.RewardXP, subTask.RewardTokens, nil
	}
	var task models.Task
	if err := tx.Where("id = ?", sub.TaskID).First(&task).Error; err != nil {
		return 0, 0, err
	}
	return task.RewardXP, task.RewardTokens, nil
}
