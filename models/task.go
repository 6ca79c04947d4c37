package models

// VerificationMethod decides how a submission gets resolved. Anything other
// than AI_AUTO goes to a human reviewer, regardless of proof type.
const (
	VerificationManual = "MANUAL"
	VerificationAIAuto = "AI_AUTO"
	VerificationHybrid = "HYBRID"
)

// ProofType is the category of social action a submission claims to
// evidence.
const (
	ProofTypeLike         = "like"
	ProofTypeRepost       = "repost"
	ProofTypeQuote        = "quote"
	ProofTypeComment      = "comment"
	ProofTypeOriginalPost = "original_post"
	ProofTypeGeneric      = "generic"
)

// Task is the single tagged task entity: the verification method field
// drives behavior, not the presence of side tables.
type Task struct {
	ID          string `gorm:"primaryKey;type:uuid" json:"id"`
	CampaignID  string `gorm:"index;not null" json:"campaign_id"`
	Title       string `gorm:"not null" json:"title"`
	Slug        string `gorm:"index;not null" json:"slug"`
	Description string `gorm:"type:text" json:"description"`
	Category    string `gorm:"type:varchar(32);index" json:"category,omitempty"` // e.g. "social", "content"

	VerificationMethod string `gorm:"type:varchar(16);not null;default:'MANUAL'" json:"verification_method"`
	ProofType          string `gorm:"type:varchar(16);not null;default:'generic'" json:"proof_type"`

	// TargetURL is the post the social action must target (empty for
	// original_post and generic proof).
	TargetURL string `gorm:"type:text" json:"target_url,omitempty"`

	RewardXP     int64   `json:"reward_xp" gorm:"not null;default:0"`
	RewardTokens float64 `json:"reward_tokens" gorm:"default:0"`

	SubTasks []SubTask `json:"sub_tasks,omitempty" gorm:"foreignKey:TaskID"`

	Timestamps
}

// SubTask is an optional child step of a Task with its own proof type and
// reward. A submission targets either the whole task or exactly one subtask.
type SubTask struct {
	ID          string `gorm:"primaryKey;type:uuid" json:"id"`
	TaskID      string `gorm:"index;not null" json:"task_id"`
	Title       string `gorm:"not null" json:"title"`
	Description string `gorm:"type:text" json:"description"`

	ProofType string `gorm:"type:varchar(16);not null;default:'generic'" json:"proof_type"`
	TargetURL string `gorm:"type:text" json:"target_url,omitempty"`

	RewardXP     int64   `json:"reward_xp" gorm:"not null;default:0"`
	RewardTokens float64 `json:"reward_tokens" gorm:"default:0"`

	Timestamps
}
