package models

import "time"

// Submission status values. PENDING is the only non-terminal state; a
// submission is resolved exactly once and never reopened.
const (
	SubmissionPending  = "PENDING"
	SubmissionApproved = "APPROVED"
	SubmissionRejected = "REJECTED"
)

// Evidence is the closed proof payload schema, validated at the boundary.
// Which fields are required depends on the proof type:
//
//	like/repost/quote:   ProofURL (the target post) + the user's handle
//	comment:             ProofURL + handle, comment text matched server-side
//	original_post:       ProofURL of the user's own post
//	generic:             free Text and/or ImageURL
type Evidence struct {
	ProofURL string `gorm:"type:text" json:"proof_url,omitempty"`
	Handle   string `gorm:"type:varchar(64)" json:"handle,omitempty"`
	Text     string `gorm:"type:text" json:"text,omitempty"`
	ImageURL string `gorm:"type:text" json:"image_url,omitempty"`
}

// TaskSubmission records one user's claim of completing a task or subtask.
// At most one row may exist per (user, task, subtask); SubTaskID is the
// empty string when the submission targets the whole task so the composite
// unique index holds without NULL semantics.
type TaskSubmission struct {
	ID             string `gorm:"primaryKey;type:uuid" json:"id"`
	ExternalUserID string `gorm:"not null;uniqueIndex:idx_submission_user_task_subtask" json:"external_user_id"`
	TaskID         string `gorm:"not null;uniqueIndex:idx_submission_user_task_subtask" json:"task_id"`
	SubTaskID      string `gorm:"not null;default:'';uniqueIndex:idx_submission_user_task_subtask" json:"sub_task_id,omitempty"`

	Evidence Evidence `gorm:"embedded;embeddedPrefix:evidence_" json:"evidence"`

	Status          string     `json:"status" gorm:"type:varchar(16);not null;default:'PENDING';index"`
	SubmittedAt     time.Time  `json:"submitted_at" gorm:"autoCreateTime"`
	ResolvedAt      *time.Time `json:"resolved_at,omitempty"`
	ResolvedBy      string     `json:"resolved_by,omitempty"` // reviewer id, or "auto"
	RejectionReason string     `json:"rejection_reason,omitempty"`

	// XPAwarded records the XP credited on approval, pre-calculated to
	// avoid recomputation.
	XPAwarded     int64   `json:"xp_awarded" gorm:"default:0"`
	TokensAwarded float64 `json:"tokens_awarded" gorm:"default:0"`

	Timestamps
}

// Terminal reports whether the submission has reached a final verdict.
func (s *TaskSubmission) Terminal() bool {
	return s.Status == SubmissionApproved || s.Status == SubmissionRejected
}
