package services

import (
	"log"
	"time"

	"quest-campaign-system/models"

	"github.com/go-co-op/gocron/v2"
)

// StartPublishScheduler flips scheduled campaigns to published once their
// publish_at passes. Checked every minute.
func (s *CampaignService) StartPublishScheduler() {
	sched, _ := gocron.NewScheduler()
	sched.Start()

	_, _ = sched.NewJob(
		gocron.DurationJob(1*time.Minute),
		gocron.NewTask(func() {
			var campaigns []models.Campaign
			now := time.Now()
			err := s.DB.Where("status = ? AND publish_at <= ?", models.CampaignStatusScheduled, now).
				Find(&campaigns).Error
			if err != nil {
				log.Printf("[Scheduler] DB error: %v", err)
				return
			}

			for _, campaign := range campaigns {
				campaign.Status = models.CampaignStatusPublished
				campaign.PublishAt = nil
				if err := s.DB.Save(&campaign).Error; err != nil {
					log.Printf("[Scheduler] failed to publish campaign %s: %v", campaign.ID, err)
				} else {
					log.Printf("[Scheduler] auto-published campaign: %s", campaign.Name)
				}
			}
		}),
	)
}

// StartStalePendingSweep periodically reports automated submissions stuck
// PENDING beyond the window — typically because the provider was
// unavailable. The sweep only surfaces them for manual follow-up; resolving
// is left to a reviewer.
func (s *SubmissionService) StartStalePendingSweep(window time.Duration) {
	sched, _ := gocron.NewScheduler()
	sched.Start()

	_, _ = sched.NewJob(
		gocron.DurationJob(10*time.Minute),
		gocron.NewTask(func() {
			stale, err := s.Store.StalePending(window)
			if err != nil {
				log.Printf("[Sweep] DB error: %v", err)
				return
			}
			for _, sub := range stale {
				log.Printf("[Sweep] submission %s stuck PENDING since %s (user=%s task=%s) — needs manual review",
					sub.ID, sub.SubmittedAt.Format(time.RFC3339), sub.ExternalUserID, sub.TaskID)
			}
			if len(stale) > 0 {
				log.Printf("[Sweep] %d stale pending submission(s) flagged", len(stale))
			}
		}),
	)
}
