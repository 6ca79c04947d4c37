package models

import "time"

// Achievement criterion types.
const (
	AchievementTasksCompleted  = "tasks_completed"
	AchievementXPEarned        = "xp_earned"
	AchievementCampaignsJoined = "campaigns_joined"
	AchievementStreakDays      = "streak_days"
)

// Achievement: static criterion config. Target is compared against the
// matching aggregate user stat; Category scopes tasks_completed to a task
// category when set.
type Achievement struct {
	ID          string `gorm:"primaryKey;type:uuid" json:"id"`
	Code        string `gorm:"uniqueIndex;not null" json:"code"` // e.g., "FIRST_TASK", "XP_1000"
	Name        string `gorm:"not null" json:"name"`
	Description string `json:"description"`
	IconURL     string `gorm:"type:text" json:"icon_url,omitempty"`

	Type     string `gorm:"type:varchar(32);not null" json:"type"`
	Category string `gorm:"type:varchar(32)" json:"category,omitempty"`
	Target   int64  `gorm:"not null" json:"target"`

	RewardXP     int64   `json:"reward_xp" gorm:"default:0"`
	RewardTokens float64 `json:"reward_tokens" gorm:"default:0"`

	CreatedAt time.Time `json:"created_at" gorm:"autoCreateTime"`
}

// UserAchievement: one unlock per (user, achievement), enforced by the
// composite unique index so re-evaluation can never re-award.
type UserAchievement struct {
	ID              string    `gorm:"primaryKey;type:uuid" json:"id"`
	ExternalUserID  string    `gorm:"not null;uniqueIndex:idx_user_achievement" json:"external_user_id"`
	AchievementCode string    `gorm:"not null;uniqueIndex:idx_user_achievement" json:"achievement_code"`
	UnlockedAt      time.Time `json:"unlocked_at" gorm:"autoCreateTime"`
}

// AchievementTriggers are the built-in criteria seeded at startup.
var AchievementTriggers = []Achievement{
	{
		Code:        "FIRST_TASK",
		Name:        "First Steps",
		Description: "Completed your first task",
		Type:        AchievementTasksCompleted,
		Target:      1,
		RewardXP:    25,
	},
	{
		Code:        "TASKS_10",
		Name:        "Getting Busy",
		Description: "Completed 10 tasks",
		Type:        AchievementTasksCompleted,
		Target:      10,
		RewardXP:    100,
	},
	{
		Code:        "SOCIAL_5",
		Name:        "Social Butterfly",
		Description: "Completed 5 social tasks",
		Type:        AchievementTasksCompleted,
		Category:    "social",
		Target:      5,
		RewardXP:    75,
	},
	{
		Code:        "XP_1000",
		Name:        "Rising Star",
		Description: "Earned 1000 XP",
		Type:        AchievementXPEarned,
		Target:      1000,
		RewardXP:    150,
	},
	{
		Code:         "CAMPAIGNS_3",
		Name:         "Campaigner",
		Description:  "Joined 3 campaigns",
		Type:         AchievementCampaignsJoined,
		Target:       3,
		RewardXP:     50,
		RewardTokens: 5,
	},
	{
		Code:        "STREAK_7",
		Name:        "Week Warrior",
		Description: "Completed tasks 7 days in a row",
		Type:        AchievementStreakDays,
		Target:      7,
		RewardXP:    200,
	},
}
