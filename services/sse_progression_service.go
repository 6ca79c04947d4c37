package services

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"quest-campaign-system/models"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

// StreamUserProgressSSE streams progression effects for the authenticated
// user in real time: resolved submissions as they reach a verdict, and
// achievement unlocks. Notification delivery proper lives in a collaborator;
// this is the in-service event feed the UI polls over one connection.
func (s *ProgressionService) StreamUserProgressSSE(c *fiber.Ctx) error {
	userID := c.Locals("user_id").(string)

	c.Set("Content-Type", "text/event-stream")
	c.Set("Cache-Control", "no-cache")
	c.Set("Connection", "keep-alive")
	c.Set("X-Accel-Buffering", "no") // nginx

	c.Context().SetBodyStreamWriter(func(w *bufio.Writer) {
		ticker := time.NewTicker(2 * time.Second)
		defer ticker.Stop()

		lastResolvedAt := time.Now()
		lastUnlockedAt := time.Now()

		var latest models.TaskSubmission
		if err := s.DB.
			Where("external_user_id = ? AND resolved_at IS NOT NULL", userID).
			Order("resolved_at DESC").
			First(&latest).Error; err == nil {
			lastResolvedAt = *latest.ResolvedAt
		} else if !errors.Is(err, gorm.ErrRecordNotFound) {
			log.Printf("SSE init error for user %s: %v", userID, err)
		}

		// Initial keepalive (comment event)
		w.WriteString(":\n\n")
		w.Flush()

		for {
			select {
			case <-ticker.C:
				var resolved []models.TaskSubmission
				err := s.DB.
					Where("external_user_id = ? AND resolved_at > ?", userID, lastResolvedAt).
					Order("resolved_at ASC").
					Find(&resolved).Error
				if err != nil {
					log.Printf("SSE query error for user %s: %v", userID, err)
					continue
				}

				for _, sub := range resolved {
					lastResolvedAt = *sub.ResolvedAt
					payload, _ := json.Marshal(sub)
					fmt.Fprintf(w, "event: submission\ndata: %s\n\n", payload)
				}

				var unlocks []models.UserAchievement
				err = s.DB.
					Where("external_user_id = ? AND unlocked_at > ?", userID, lastUnlockedAt).
					Order("unlocked_at ASC").
					Find(&unlocks).Error
				if err != nil {
					log.Printf("SSE achievement query error for user %s: %v", userID, err)
					continue
				}

				for _, ua := range unlocks {
					lastUnlockedAt = ua.UnlockedAt
					payload, _ := json.Marshal(ua)
					fmt.Fprintf(w, "event: achievement\ndata: %s\n\n", payload)
				}

				if len(resolved) == 0 && len(unlocks) == 0 {
					continue
				}

				if err := w.Flush(); err != nil {
					// Client disconnected
					return
				}

			case <-c.Context().Done():
				return
			}
		}
	})

	return nil
}
