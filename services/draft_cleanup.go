package services

import (
	"time"

	"event-arena-system/models"

	"github.com/go-co-op/gocron/v2"
	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// staleDraftAge is how long after its own end time an unpublished draft is
// kept before cleanup removes it.
const staleDraftAge = 30 * 24 * time.Hour

// CleanupStaleDrafts deletes draft events whose window closed more than
// staleDraftAge ago, along with their reward tiers and reminder rules.
// Published and archived events are never touched.
func (s *EventService) CleanupStaleDrafts(now time.Time) {
	cutoff := now.Add(-staleDraftAge)
	var drafts []models.Event
	if err := s.DB.Where("is_draft = true AND end_time < ?", cutoff).Find(&drafts).Error; err != nil {
		log.Errorf("[Cleanup] DB error: %v", err)
		return
	}

	for _, event := range drafts {
		unlock := eventLocks.Acquire(event.ID)
		err := s.DB.Transaction(func(tx *gorm.DB) error {
			if err := tx.Where("event_id = ?", event.ID).Delete(&models.RewardTier{}).Error; err != nil {
				return err
			}
			if err := tx.Where("event_id = ?", event.ID).Delete(&models.ReminderRule{}).Error; err != nil {
				return err
			}
			return tx.Delete(&event).Error
		})
		unlock()
		if err != nil {
			log.Errorf("[Cleanup] Failed to delete stale draft %s: %v", event.ID, err)
			continue
		}
		log.Infof("🧹 Deleted stale draft %s (%s)", event.ID, event.Title)
	}
}

// StartDraftCleanup runs CleanupStaleDrafts once a day.
func (s *EventService) StartDraftCleanup() {
	sched, _ := gocron.NewScheduler()
	sched.Start()

	_, _ = sched.NewJob(
		gocron.DurationJob(24*time.Hour),
		gocron.NewTask(func() {
			s.CleanupStaleDrafts(time.Now())
		}),
	)
}
