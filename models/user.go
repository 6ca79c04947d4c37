package models

import (
	"time"

	"gorm.io/gorm"
)

const (
	RoleParticipant  = "participant"
	RoleOrganization = "organization"
	RoleAdmin        = "admin"
)

// User is a local mirror of the profile service's user, extended with the
// progression state this service owns. Identity fields are populated via the
// user sync worker; XP, balances and counters are mutated only by the
// ProgressionService.
type User struct {
	ID             string `gorm:"primaryKey;type:uuid" json:"id"`
	ExternalUserID string `gorm:"uniqueIndex;not null" json:"external_user_id"` // profile service UUID
	Username       string `gorm:"index;not null" json:"username"`
	Email          string `json:"email,omitempty"`
	Role           string `gorm:"type:varchar(16);default:'participant'" json:"role"`

	// SocialHandle is required before submitting to tasks with automated
	// verification (the provider matches actors against it).
	SocialHandle *string `json:"social_handle,omitempty"`

	// Core progression
	XP           int64   `json:"xp" gorm:"default:0"`
	TokenBalance float64 `json:"token_balance" gorm:"default:0"`
	// Tier caches TierForXP(XP); recomputed on every XP change, advisory only.
	Tier string `json:"tier" gorm:"type:varchar(16);default:'BRONZE'"`

	// Activity counters
	TotalTasksCompleted int64 `json:"total_tasks_completed" gorm:"default:0"`
	CampaignsJoined     int64 `json:"campaigns_joined" gorm:"default:0"`
	StreakDays          int64 `json:"streak_days" gorm:"default:0"`

	LastCompletionAt *time.Time `json:"last_completion_at,omitempty"`
	LastTierUpAt     *time.Time `json:"last_tier_up_at,omitempty"`

	IsBanned bool `json:"is_banned" gorm:"default:false"`
	IsActive bool `json:"is_active" gorm:"default:true"` // deactivated, never deleted

	Timestamps
}

// Timestamps adds GORM auto-times
type Timestamps struct {
	CreatedAt time.Time      `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt time.Time      `json:"updated_at" gorm:"autoUpdateTime"`
	DeletedAt gorm.DeletedAt `json:"deleted_at,omitempty" gorm:"index"`
}

// RemoteUser mirrors the schema of the profile service's `users` table
// (read-only). Used by the sync worker to refresh the local mirror.
type RemoteUser struct {
	ID           uint       `gorm:"column:id"`
	Username     string     `gorm:"column:username"`
	Email        string     `gorm:"column:email"`
	SocialHandle *string    `gorm:"column:social_handle"`
	ExternalID   string     `gorm:"column:external_id"`
	IsBanned     bool       `gorm:"column:is_banned"`
	CreatedAt    time.Time  `gorm:"column:created_at"`
	UpdatedAt    time.Time  `gorm:"column:updated_at"`
	DeletedAt    *time.Time `gorm:"column:deleted_at"`
}
