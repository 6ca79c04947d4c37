package models

import "time"

const (
	CampaignStatusDraft     = "draft"
	CampaignStatusScheduled = "scheduled"
	CampaignStatusPublished = "published"
)

type Campaign struct {
	ID          string `gorm:"primaryKey;type:uuid" json:"id"`
	Name        string `gorm:"not null" json:"name"`
	Slug        string `gorm:"uniqueIndex;not null" json:"slug"`
	Description string `gorm:"type:text" json:"description"`
	BannerURL   string `gorm:"type:text" json:"banner_url,omitempty"`

	// OrganizerID is the ExternalUserID of the organization that owns it.
	OrganizerID string `gorm:"index;not null" json:"organizer_id"`

	Status    string     `json:"status" gorm:"type:varchar(16);default:'draft'"`
	PublishAt *time.Time `json:"publish_at,omitempty"` // only used if scheduled

	StartsAt *time.Time `json:"starts_at,omitempty"`
	EndsAt   *time.Time `json:"ends_at,omitempty"`

	Tasks []Task `json:"tasks,omitempty" gorm:"foreignKey:CampaignID"`

	Timestamps
}

// Participation status values. The transition is one-way per campaign:
// PENDING → APPROVED or PENDING → REJECTED, no re-application after
// REJECTED.
const (
	ParticipationPending  = "PENDING"
	ParticipationApproved = "APPROVED"
	ParticipationRejected = "REJECTED"
)

// CampaignParticipation links a user to a campaign. Task proof may be
// submitted only while APPROVED.
type CampaignParticipation struct {
	ID             string `gorm:"primaryKey;type:uuid" json:"id"`
	ExternalUserID string `gorm:"not null;uniqueIndex:idx_participation_user_campaign" json:"external_user_id"`
	CampaignID     string `gorm:"not null;uniqueIndex:idx_participation_user_campaign" json:"campaign_id"`

	Status     string     `json:"status" gorm:"type:varchar(16);default:'PENDING'"`
	ReviewedAt *time.Time `json:"reviewed_at,omitempty"`
	ReviewedBy string     `json:"reviewed_by,omitempty"`

	Timestamps
}
