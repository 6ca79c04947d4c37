package handlers

import (
	"quest-campaign-system/middleware"
	"quest-campaign-system/models"
	"quest-campaign-system/services"

	"github.com/gofiber/fiber/v2"
)

func SetupCampaignRoutes(app *fiber.App, campaignService *services.CampaignService) {
	// Public routes — gateway-authenticated but no user context needed
	app.Get("/campaigns", campaignService.GetPublishedCampaigns)
	app.Get("/campaigns/:slug", campaignService.GetPublishedCampaignBySlug)

	secured := app.Group("/", middleware.UserContextMiddleware())

	// Participation
	secured.Post("/campaigns/:id/join", campaignService.JoinCampaign)
	secured.Get("/campaigns/:id/participation", campaignService.MyParticipation)

	// Organization back-office: campaign and task authoring plus
	// participation review
	org := secured.Group("/org", middleware.RequireRole(models.RoleOrganization))
	org.Post("/campaigns", campaignService.CreateCampaign)
	org.Post("/campaigns/:id/tasks", campaignService.CreateTask)
	org.Post("/campaigns/:id/publish/now", campaignService.PublishNow)
	org.Post("/campaigns/:id/publish/schedule", campaignService.SchedulePublish)
	org.Post("/participations/:participation_id/review", campaignService.ReviewParticipation)
}
