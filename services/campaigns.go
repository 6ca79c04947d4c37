package services

import (
	"errors"
	"log"
	"time"

	"quest-campaign-system/models"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/gosimple/slug"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// CampaignService owns the campaign/task data entry the pipeline needs to
// be exercised end to end: publishing, joining, participation review. The
// heavy authoring UI lives elsewhere.
type CampaignService struct {
	DB *gorm.DB
}

func NewCampaignService(db *gorm.DB) *CampaignService {
	return &CampaignService{DB: db}
}

// CreateCampaign creates a draft campaign (organization/admin only).
func (s *CampaignService) CreateCampaign(c *fiber.Ctx) error {
	userID := c.Locals("user_id").(string)

	var req struct {
		Name        string     `json:"name"`
		Description string     `json:"description"`
		BannerURL   string     `json:"banner_url"`
		StartsAt    *time.Time `json:"starts_at"`
		EndsAt      *time.Time `json:"ends_at"`
	}
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid JSON", "cause": err.Error()})
	}
	if req.Name == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "name is required"})
	}

	campaign := &models.Campaign{
		ID:          uuid.NewString(),
		Name:        req.Name,
		Slug:        slug.Make(req.Name),
		Description: req.Description,
		BannerURL:   req.BannerURL,
		OrganizerID: userID,
		Status:      models.CampaignStatusDraft,
		StartsAt:    req.StartsAt,
		EndsAt:      req.EndsAt,
	}
	if err := s.DB.Create(campaign).Error; err != nil {
		log.Printf("DB error creating campaign: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to create campaign"})
	}
	return c.Status(fiber.StatusCreated).JSON(campaign)
}

// PublishNow publishes a campaign immediately.
func (s *CampaignService) PublishNow(c *fiber.Ctx) error {
	id := c.Params("id")
	res := s.DB.Model(&models.Campaign{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{"status": models.CampaignStatusPublished, "publish_at": nil})
	if res.Error != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to publish campaign"})
	}
	if res.RowsAffected == 0 {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "campaign not found"})
	}
	return c.JSON(fiber.Map{"message": "campaign published"})
}

// SchedulePublish schedules a campaign for later publication; the gocron
// job flips it when publish_at passes.
func (s *CampaignService) SchedulePublish(c *fiber.Ctx) error {
	id := c.Params("id")
	var req struct {
		PublishAt time.Time `json:"publish_at"`
	}
	if err := c.BodyParser(&req); err != nil || req.PublishAt.IsZero() {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "publish_at is required"})
	}
	if req.PublishAt.Before(time.Now()) {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "publish_at must be in the future"})
	}
	res := s.DB.Model(&models.Campaign{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{"status": models.CampaignStatusScheduled, "publish_at": req.PublishAt})
	if res.Error != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to schedule campaign"})
	}
	if res.RowsAffected == 0 {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "campaign not found"})
	}
	return c.JSON(fiber.Map{"message": "campaign scheduled", "publish_at": req.PublishAt})
}

// GetPublishedCampaigns lists published campaigns with their tasks.
func (s *CampaignService) GetPublishedCampaigns(c *fiber.Ctx) error {
	var campaigns []models.Campaign
	if err := s.DB.Where("status = ?", models.CampaignStatusPublished).
		Preload("Tasks").Preload("Tasks.SubTasks").
		Order("created_at DESC").
		Find(&campaigns).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to fetch campaigns"})
	}
	return c.JSON(campaigns)
}

// GetPublishedCampaignBySlug fetches one published campaign by slug.
func (s *CampaignService) GetPublishedCampaignBySlug(c *fiber.Ctx) error {
	var campaign models.Campaign
	err := s.DB.Where("slug = ? AND status = ?", c.Params("slug"), models.CampaignStatusPublished).
		Preload("Tasks").Preload("Tasks.SubTasks").
		First(&campaign).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "campaign not found"})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "DB error"})
	}
	return c.JSON(campaign)
}

// CreateTask adds a task (and optional subtasks) to a campaign.
func (s *CampaignService) CreateTask(c *fiber.Ctx) error {
	campaignID := c.Params("id")

	var req struct {
		Title              string  `json:"title"`
		Description        string  `json:"description"`
		Category           string  `json:"category"`
		VerificationMethod string  `json:"verification_method"`
		ProofType          string  `json:"proof_type"`
		TargetURL          string  `json:"target_url"`
		RewardXP           int64   `json:"reward_xp"`
		RewardTokens       float64 `json:"reward_tokens"`
		SubTasks           []struct {
			Title        string  `json:"title"`
			Description  string  `json:"description"`
			ProofType    string  `json:"proof_type"`
			TargetURL    string  `json:"target_url"`
			RewardXP     int64   `json:"reward_xp"`
			RewardTokens float64 `json:"reward_tokens"`
		} `json:"sub_tasks"`
	}
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid JSON", "cause": err.Error()})
	}
	if req.Title == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "title is required"})
	}
	switch req.VerificationMethod {
	case models.VerificationManual, models.VerificationAIAuto, models.VerificationHybrid:
	default:
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "verification_method must be MANUAL, AI_AUTO or HYBRID"})
	}

	var campaign models.Campaign
	if err := s.DB.Where("id = ?", campaignID).First(&campaign).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "campaign not found"})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "DB error"})
	}

	task := &models.Task{
		ID:                 uuid.NewString(),
		CampaignID:         campaign.ID,
		Title:              req.Title,
		Slug:               slug.Make(req.Title),
		Description:        req.Description,
		Category:           req.Category,
		VerificationMethod: req.VerificationMethod,
		ProofType:          req.ProofType,
		TargetURL:          req.TargetURL,
		RewardXP:           req.RewardXP,
		RewardTokens:       req.RewardTokens,
	}
	for _, st := range req.SubTasks {
		task.SubTasks = append(task.SubTasks, models.SubTask{
			ID:           uuid.NewString(),
			TaskID:       task.ID,
			Title:        st.Title,
			Description:  st.Description,
			ProofType:    st.ProofType,
			TargetURL:    st.TargetURL,
			RewardXP:     st.RewardXP,
			RewardTokens: st.RewardTokens,
		})
	}
	if err := s.DB.Create(task).Error; err != nil {
		log.Printf("DB error creating task: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to create task"})
	}
	return c.Status(fiber.StatusCreated).JSON(task)
}

// JoinCampaign files a participation request. One per (user, campaign);
// re-applying after a verdict is not allowed.
func (s *CampaignService) JoinCampaign(c *fiber.Ctx) error {
	userID := c.Locals("user_id").(string)
	campaignID := c.Params("id")

	var campaign models.Campaign
	if err := s.DB.Where("id = ? AND status = ?", campaignID, models.CampaignStatusPublished).First(&campaign).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "campaign not found"})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "DB error"})
	}

	participation := &models.CampaignParticipation{
		ID:             uuid.NewString(),
		ExternalUserID: userID,
		CampaignID:     campaignID,
		Status:         models.ParticipationPending,
	}
	res := s.DB.Clauses(clause.OnConflict{
		Columns: []clause.Column{
			{Name: "external_user_id"},
			{Name: "campaign_id"},
		},
		DoNothing: true,
	}).Create(participation)
	if res.Error != nil {
		log.Printf("DB error joining campaign: %v", res.Error)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to join campaign"})
	}
	if res.RowsAffected == 0 {
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": "already applied to this campaign"})
	}
	return c.Status(fiber.StatusCreated).JSON(participation)
}

// ReviewParticipation lets the organizer approve or reject a join request.
// The transition is one-way: only PENDING rows can be reviewed.
func (s *CampaignService) ReviewParticipation(c *fiber.Ctx) error {
	reviewerID := c.Locals("user_id").(string)
	participationID := c.Params("participation_id")

	var req struct {
		Status string `json:"status"`
	}
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid JSON"})
	}
	if req.Status != models.ParticipationApproved && req.Status != models.ParticipationRejected {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "status must be APPROVED or REJECTED"})
	}

	now := time.Now()
	res := s.DB.Model(&models.CampaignParticipation{}).
		Where("id = ? AND status = ?", participationID, models.ParticipationPending).
		Updates(map[string]interface{}{
			"status":      req.Status,
			"reviewed_at": now,
			"reviewed_by": reviewerID,
		})
	if res.Error != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to review participation"})
	}
	if res.RowsAffected == 0 {
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": "participation not found or already reviewed"})
	}

	// campaigns_joined counts approvals, used by the achievement criteria
	if req.Status == models.ParticipationApproved {
		var participation models.CampaignParticipation
		if err := s.DB.Where("id = ?", participationID).First(&participation).Error; err == nil {
			if err := s.DB.Model(&models.User{}).
				Where("external_user_id = ?", participation.ExternalUserID).
				Update("campaigns_joined", gorm.Expr("campaigns_joined + ?", 1)).Error; err != nil {
				log.Printf("failed to bump campaigns_joined for %s: %v", participation.ExternalUserID, err)
			}
		}
	}
	return c.JSON(fiber.Map{"message": "participation reviewed", "status": req.Status})
}

// MyParticipation returns the caller's participation for a campaign.
func (s *CampaignService) MyParticipation(c *fiber.Ctx) error {
	userID := c.Locals("user_id").(string)
	var participation models.CampaignParticipation
	err := s.DB.Where("external_user_id = ? AND campaign_id = ?", userID, c.Params("id")).
		First(&participation).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return c.JSON(nil)
	}
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "DB error"})
	}
	return c.JSON(participation)
}
