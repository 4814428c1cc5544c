package services

import (
	"errors"
	"strings"
	"time"

	"event-arena-system/models"

	"github.com/go-co-op/gocron/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// reminderGraceWindow suppresses rules whose fire time predates their own
// creation by more than this much, so a backfill or clock skew never causes
// a storm of stale reminders.
const reminderGraceWindow = time.Hour

// Notifier is the notification-dispatch collaborator. Delivery guarantees
// are its responsibility, not the scheduler's.
type Notifier interface {
	Notify(userID, eventID, ruleType, methods string) error
}

type ReminderService struct {
	DB       *gorm.DB
	Notifier Notifier
}

func NewReminderService(db *gorm.DB, notifier Notifier) *ReminderService {
	return &ReminderService{DB: db, Notifier: notifier}
}

// ruleDue reports whether a rule should fire at the given instant: enabled,
// never fired, and its fire time has passed.
func ruleDue(rule *models.ReminderRule, now time.Time) bool {
	return rule.Enabled && rule.FiredAt == nil && !rule.FireAt.After(now)
}

// ruleStale reports whether a rule's fire time predates its own creation by
// more than the grace window; such rules are suppressed, not fired.
func ruleStale(rule *models.ReminderRule) bool {
	return rule.CreatedAt.Sub(rule.FireAt) > reminderGraceWindow
}

// computeFireTime resolves a rule type against the event's own timestamps.
func computeFireTime(event *models.Event, ruleType string) (time.Time, error) {
	switch ruleType {
	case models.RuleOneDayBefore:
		return event.StartTime.Add(-24 * time.Hour), nil
	case models.RuleOneHourBefore:
		return event.StartTime.Add(-time.Hour), nil
	case models.RuleAtStart:
		return event.StartTime, nil
	case models.RuleAtEnd:
		return event.EndTime, nil
	default:
		return time.Time{}, validationErrorf("unknown rule type %q", ruleType)
	}
}

// ReminderRuleRequest is one rule in a ScheduleRules call.
type ReminderRuleRequest struct {
	RuleType string   `json:"rule_type" validate:"required,oneof=one_day_before one_hour_before at_start at_end"`
	Methods  []string `json:"methods"`
	Enabled  bool     `json:"enabled"`
}

// buildReminderRules turns the request set into rule rows with computed fire
// times. (eventID, ruleType) is unique, so a duplicate type in one request is
// rejected here instead of surfacing as a constraint violation on insert.
func buildReminderRules(event *models.Event, reqs []ReminderRuleRequest) ([]models.ReminderRule, error) {
	seen := make(map[string]bool, len(reqs))
	rules := make([]models.ReminderRule, 0, len(reqs))
	for _, r := range reqs {
		if seen[r.RuleType] {
			return nil, validationErrorf("duplicate rule type %q", r.RuleType)
		}
		seen[r.RuleType] = true

		fireAt, err := computeFireTime(event, r.RuleType)
		if err != nil {
			return nil, err
		}
		rules = append(rules, models.ReminderRule{
			ID:       uuid.NewString(),
			EventID:  event.ID,
			RuleType: r.RuleType,
			Methods:  strings.Join(r.Methods, ","),
			Enabled:  r.Enabled,
			FireAt:   fireAt,
		})
	}
	return rules, nil
}

// ScheduleRules replaces the reminder rules of an event with the given set,
// computing fireAt for each.
func (s *ReminderService) ScheduleRules(c *fiber.Ctx) error {
	eventID := c.Params("id")
	var req struct {
		Rules []ReminderRuleRequest `json:"rules" validate:"required,dive"`
	}
	if err := c.BodyParser(&req); err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "invalid JSON"})
	}
	if err := validate.Struct(&req); err != nil {
		return errorResponse(c, validationErrorf("invalid request: %v", err))
	}

	var event models.Event
	if err := s.DB.First(&event, "id = ?", eventID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.Status(404).JSON(fiber.Map{"error": "event not found"})
		}
		return c.Status(500).JSON(fiber.Map{"error": "DB error"})
	}

	rules, err := buildReminderRules(&event, req.Rules)
	if err != nil {
		return errorResponse(c, err)
	}

	err = s.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("event_id = ?", eventID).Delete(&models.ReminderRule{}).Error; err != nil {
			return err
		}
		for i := range rules {
			if err := tx.Create(&rules[i]).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		log.Errorf("failed to schedule reminder rules for event %s: %v", eventID, err)
		return c.Status(500).JSON(fiber.Map{"error": "failed to schedule rules"})
	}

	return c.Status(201).JSON(rules)
}

// GetEventReminders lists the reminder rules of an event.
func (s *ReminderService) GetEventReminders(c *fiber.Ctx) error {
	eventID := c.Params("id")
	var rules []models.ReminderRule
	if err := s.DB.Where("event_id = ?", eventID).
		Order("fire_at ASC").
		Find(&rules).Error; err != nil {
		return c.Status(500).JSON(fiber.Map{"error": "failed to fetch rules"})
	}
	return c.JSON(rules)
}

// Tick fires every enabled, not-yet-fired rule whose fire time has passed.
// The guarded update on fired_at makes each (eventID, ruleType) fire at most
// once, no matter how often or concurrently Tick runs. Event timestamps are
// read without the event's write lock: a reminder firing seconds after a
// concurrent start-time edit is acceptable.
func (s *ReminderService) Tick(now time.Time) {
	var due []models.ReminderRule
	err := s.DB.Where("enabled = true AND fired_at IS NULL AND fire_at <= ?", now).
		Find(&due).Error
	if err != nil {
		log.Errorf("[Reminders] DB error: %v", err)
		return
	}

	for _, rule := range due {
		if !ruleDue(&rule, now) {
			continue
		}
		if ruleStale(&rule) {
			// Stale rule from a backfill or clock skew; disable instead of
			// firing so it never storms.
			log.Warnf("[Reminders] Suppressing stale rule %s/%s (fireAt %s)", rule.EventID, rule.RuleType, rule.FireAt)
			s.DB.Model(&rule).Update("enabled", false)
			continue
		}

		// Claim the rule; losing the race means someone else fired it.
		claim := s.DB.Model(&models.ReminderRule{}).
			Where("id = ? AND fired_at IS NULL", rule.ID).
			Update("fired_at", now)
		if claim.Error != nil {
			log.Errorf("[Reminders] Failed to claim rule %s: %v", rule.ID, claim.Error)
			continue
		}
		if claim.RowsAffected == 0 {
			continue
		}

		s.dispatch(rule)
	}
}

func (s *ReminderService) dispatch(rule models.ReminderRule) {
	var participants []models.Participant
	err := s.DB.Where("event_id = ? AND left_at IS NULL", rule.EventID).
		Find(&participants).Error
	if err != nil {
		log.Errorf("[Reminders] Failed to load participants for event %s: %v", rule.EventID, err)
		return
	}

	for _, p := range participants {
		if err := s.Notifier.Notify(p.UserID, rule.EventID, rule.RuleType, rule.Methods); err != nil {
			log.Warnf("[Reminders] Dispatch to %s failed: %v", p.UserID, err)
		}
	}
	log.Infof("🔔 Fired %s reminder for event %s (%d participants)", rule.RuleType, rule.EventID, len(participants))
}

// StartReminderScheduler drives Tick once a minute. The core owns no other
// timers; everything time-derived is computed from `now` inside Tick.
func (s *ReminderService) StartReminderScheduler() {
	sched, _ := gocron.NewScheduler()
	sched.Start()

	_, _ = sched.NewJob(
		gocron.DurationJob(1*time.Minute),
		gocron.NewTask(func() {
			s.Tick(time.Now())
		}),
	)
}
