package services

import (
	"errors"
	"fmt"
	"time"

	"event-arena-system/models"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/gosimple/slug"
	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// validate is shared by every boundary request struct in the package.
var validate = validator.New()

type EventService struct {
	DB *gorm.DB
}

func NewEventService(db *gorm.DB) *EventService {
	return &EventService{DB: db}
}

// CreateEventRequest is the validated input for CreateEvent.
type CreateEventRequest struct {
	Title           string               `json:"title" validate:"required"`
	Description     string               `json:"description"`
	Category        string               `json:"category"`
	Platform        string               `json:"platform"`
	ScoringType     string               `json:"scoring_type" validate:"omitempty,oneof='most points' 'fastest time'"`
	StartTime       time.Time            `json:"start_time" validate:"required"`
	EndTime         time.Time            `json:"end_time" validate:"required"`
	MaxParticipants int                  `json:"max_participants" validate:"gte=0"`
	Settings        models.EventSettings `json:"settings"`
	RewardTiers     []RewardTierRequest  `json:"reward_tiers" validate:"dive"`
}

type RewardTierRequest struct {
	Position int    `json:"position" validate:"gte=1"`
	XP       int    `json:"xp" validate:"gte=0"`
	Medals   int    `json:"medals" validate:"gte=0"`
	Title    string `json:"title"`
}

// validateEventWindow is the single place the start < end invariant lives.
func validateEventWindow(start, end time.Time) error {
	if !start.Before(end) {
		return validationErrorf("start_time must be before end_time")
	}
	return nil
}

// canJoin applies the join rules against a loaded event. Capacity is checked
// at the exact boundary: max-1 succeeds, max fails.
func canJoin(event *models.Event, now time.Time) error {
	if !event.Joinable(now) {
		return ErrEventNotJoinable
	}
	if event.MaxParticipants > 0 && event.CurrentParticipants >= event.MaxParticipants {
		return ErrEventFull
	}
	return nil
}

func (s *EventService) CreateEvent(c *fiber.Ctx) error {
	var req CreateEventRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "invalid JSON", "details": err.Error()})
	}
	if err := validate.Struct(&req); err != nil {
		return errorResponse(c, validationErrorf("invalid request: %v", err))
	}
	if err := validateEventWindow(req.StartTime, req.EndTime); err != nil {
		return errorResponse(c, err)
	}
	if req.ScoringType == "" {
		req.ScoringType = "most points"
	}

	organizerID, _ := c.Locals("user_id").(string)

	event := &models.Event{
		ID:              uuid.NewString(),
		Slug:            slug.Make(req.Title),
		Title:           req.Title,
		Description:     req.Description,
		Category:        req.Category,
		Platform:        req.Platform,
		ScoringType:     req.ScoringType,
		StartTime:       req.StartTime,
		EndTime:         req.EndTime,
		IsDraft:         true, // events always start as drafts
		MaxParticipants: req.MaxParticipants,
		Settings:        req.Settings,
		OrganizerID:     organizerID,
	}
	for _, t := range req.RewardTiers {
		event.RewardTiers = append(event.RewardTiers, models.RewardTier{
			ID:       uuid.NewString(),
			EventID:  event.ID,
			Position: t.Position,
			XP:       t.XP,
			Medals:   t.Medals,
			Title:    t.Title,
		})
	}

	if err := s.DB.Create(event).Error; err != nil {
		log.Errorf("failed to create event: %v", err)
		return c.Status(500).JSON(fiber.Map{"error": "DB insert failed"})
	}

	event.Status = event.StatusAt(time.Now())
	return c.Status(201).JSON(event)
}

func (s *EventService) GetEvent(c *fiber.Ctx) error {
	id := c.Params("id")
	var event models.Event
	err := s.DB.
		Preload("RewardTiers", func(db *gorm.DB) *gorm.DB {
			return db.Order("position ASC")
		}).
		First(&event, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.Status(404).JSON(fiber.Map{"error": "event not found"})
		}
		log.Errorf("failed to fetch event %s: %v", id, err)
		return c.Status(500).JSON(fiber.Map{"error": "DB error"})
	}

	event.Status = event.StatusAt(time.Now())
	if event.MaxParticipants > 0 {
		event.AvailableSlots = int64(event.MaxParticipants - event.CurrentParticipants)
	} else {
		event.AvailableSlots = -1 // unlimited
	}
	return c.JSON(event)
}

// GetPublishedEvents lists every visible (non-draft, non-archived) event with
// its derived status stamped in.
func (s *EventService) GetPublishedEvents(c *fiber.Ctx) error {
	var events []models.Event
	err := s.DB.
		Preload("RewardTiers", func(db *gorm.DB) *gorm.DB {
			return db.Order("position ASC")
		}).
		Where("is_draft = false AND is_archived = false").
		Order("start_time ASC").
		Find(&events).Error
	if err != nil {
		log.Errorf("failed to list published events: %v", err)
		return c.Status(500).JSON(fiber.Map{"error": "failed to fetch events"})
	}

	now := time.Now()
	for i := range events {
		events[i].Status = events[i].StatusAt(now)
	}
	return c.JSON(events)
}

// EventStatus returns the status derived at request time. The derived value
// is never persisted as a source of truth.
func (s *EventService) EventStatus(c *fiber.Ctx) error {
	id := c.Params("id")
	var event models.Event
	if err := s.DB.First(&event, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.Status(404).JSON(fiber.Map{"error": "event not found"})
		}
		return c.Status(500).JSON(fiber.Map{"error": "DB error"})
	}
	now := time.Now()
	return c.JSON(fiber.Map{
		"event_id": event.ID,
		"status":   event.StatusAt(now),
		"as_of":    now,
	})
}

// PublishEvent moves a draft to published. Publishing twice, or publishing an
// archived event, is an invalid transition.
func (s *EventService) PublishEvent(c *fiber.Ctx) error {
	id := c.Params("id")
	unlock := eventLocks.Acquire(id)
	defer unlock()

	var event models.Event
	if err := s.DB.First(&event, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.Status(404).JSON(fiber.Map{"error": "event not found"})
		}
		return c.Status(500).JSON(fiber.Map{"error": "DB error"})
	}
	if event.IsArchived || !event.IsDraft {
		return errorResponse(c, fmt.Errorf("%w: event is not a draft", ErrInvalidTransition))
	}

	now := time.Now()
	updates := map[string]interface{}{
		"is_draft":     false,
		"published_at": now,
	}
	if err := s.DB.Model(&event).Updates(updates).Error; err != nil {
		return c.Status(500).JSON(fiber.Map{"error": "publish failed"})
	}

	log.Infof("✅ Published event %s (%s)", event.ID, event.Title)
	event.IsDraft = false
	event.PublishedAt = &now
	event.Status = event.StatusAt(now)
	return c.JSON(event)
}

// ArchiveEvent is terminal and allowed from any non-draft state.
func (s *EventService) ArchiveEvent(c *fiber.Ctx) error {
	id := c.Params("id")
	unlock := eventLocks.Acquire(id)
	defer unlock()

	var event models.Event
	if err := s.DB.First(&event, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.Status(404).JSON(fiber.Map{"error": "event not found"})
		}
		return c.Status(500).JSON(fiber.Map{"error": "DB error"})
	}
	if event.IsDraft {
		return errorResponse(c, fmt.Errorf("%w: drafts cannot be archived", ErrInvalidTransition))
	}
	if event.IsArchived {
		// terminal state, archiving again is a no-op
		event.Status = models.StatusArchived
		return c.JSON(event)
	}

	now := time.Now()
	updates := map[string]interface{}{
		"is_archived": true,
		"archived_at": now,
	}
	if err := s.DB.Model(&event).Updates(updates).Error; err != nil {
		return c.Status(500).JSON(fiber.Map{"error": "archive failed"})
	}

	log.Infof("📦 Archived event %s (%s)", event.ID, event.Title)
	event.IsArchived = true
	event.ArchivedAt = &now
	event.Status = models.StatusArchived
	return c.JSON(event)
}

// DuplicateEvent deep-copies the configuration (settings, reward tiers) into
// a fresh draft with a new id and zeroed participants.
func (s *EventService) DuplicateEvent(c *fiber.Ctx) error {
	id := c.Params("id")

	var source models.Event
	err := s.DB.
		Preload("RewardTiers", func(db *gorm.DB) *gorm.DB {
			return db.Order("position ASC")
		}).
		First(&source, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.Status(404).JSON(fiber.Map{"error": "event not found"})
		}
		return c.Status(500).JSON(fiber.Map{"error": "DB error"})
	}

	organizerID, _ := c.Locals("user_id").(string)

	dup := models.Event{
		ID:              uuid.NewString(),
		Slug:            slug.Make(source.Title + " copy"),
		Title:           source.Title,
		Description:     source.Description,
		Category:        source.Category,
		Platform:        source.Platform,
		ScoringType:     source.ScoringType,
		StartTime:       source.StartTime,
		EndTime:         source.EndTime,
		IsDraft:         true,
		IsArchived:      false,
		MaxParticipants: source.MaxParticipants,
		Settings:        source.Settings,
		OrganizerID:     organizerID,
	}
	for _, t := range source.RewardTiers {
		dup.RewardTiers = append(dup.RewardTiers, models.RewardTier{
			ID:       uuid.NewString(),
			EventID:  dup.ID,
			Position: t.Position,
			XP:       t.XP,
			Medals:   t.Medals,
			Title:    t.Title,
		})
	}

	if err := s.DB.Create(&dup).Error; err != nil {
		log.Errorf("failed to duplicate event %s: %v", id, err)
		return c.Status(500).JSON(fiber.Map{"error": "duplicate failed"})
	}

	dup.Status = models.StatusDraft
	return c.Status(201).JSON(dup)
}

// classifyMembershipLookup interprets the active-membership query: a row
// means the user already joined, NotFound means they may join, anything else
// is a real failure and must not fall through to a second join.
func classifyMembershipLookup(err error) (joined bool, failure error) {
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return false, nil
	default:
		return false, err
	}
}

// JoinEvent registers the calling user as a participant. EventFull fires
// exactly when the participant count has reached the configured maximum.
func (s *EventService) JoinEvent(c *fiber.Ctx) error {
	eventID := c.Params("id")
	userID, _ := c.Locals("user_id").(string)
	if userID == "" {
		return c.Status(400).JSON(fiber.Map{"error": "user context required"})
	}

	unlock := eventLocks.Acquire(eventID)
	defer unlock()

	var event models.Event
	if err := s.DB.First(&event, "id = ?", eventID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.Status(404).JSON(fiber.Map{"error": "event not found"})
		}
		return c.Status(500).JSON(fiber.Map{"error": "DB error"})
	}

	if err := canJoin(&event, time.Now()); err != nil {
		return errorResponse(c, err)
	}

	var existing models.Participant
	lookupErr := s.DB.Where("event_id = ? AND user_id = ? AND left_at IS NULL", eventID, userID).
		First(&existing).Error
	joined, failure := classifyMembershipLookup(lookupErr)
	if failure != nil {
		log.Errorf("membership lookup failed for user %s on event %s: %v", userID, eventID, failure)
		return c.Status(500).JSON(fiber.Map{"error": "DB error"})
	}
	if joined {
		return c.Status(409).JSON(fiber.Map{
			"error":       "user already joined",
			"participant": existing,
		})
	}

	participant := models.Participant{
		ID:       uuid.NewString(),
		UserID:   userID,
		EventID:  eventID,
		JoinedAt: time.Now(),
	}
	err := s.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&participant).Error; err != nil {
			return err
		}
		return tx.Model(&models.Event{}).Where("id = ?", eventID).
			UpdateColumn("current_participants", gorm.Expr("current_participants + 1")).Error
	})
	if err != nil {
		log.Errorf("join failed for user %s on event %s: %v", userID, eventID, err)
		return c.Status(500).JSON(fiber.Map{"error": "join failed"})
	}

	return c.Status(201).JSON(participant)
}

// LeaveEvent is idempotent: leaving twice (or without ever joining) succeeds
// without touching the participant count again.
func (s *EventService) LeaveEvent(c *fiber.Ctx) error {
	eventID := c.Params("id")
	participantID := c.Params("participant_id")

	unlock := eventLocks.Acquire(eventID)
	defer unlock()

	var participant models.Participant
	err := s.DB.Where("id = ? AND event_id = ?", participantID, eventID).
		First(&participant).Error
	if errors.Is(err, gorm.ErrRecordNotFound) || (err == nil && participant.LeftAt != nil) {
		return c.JSON(fiber.Map{"message": "participant already left"})
	}
	if err != nil {
		return c.Status(500).JSON(fiber.Map{"error": "DB error"})
	}

	now := time.Now()
	err = s.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&participant).Update("left_at", now).Error; err != nil {
			return err
		}
		return tx.Model(&models.Event{}).
			Where("id = ? AND current_participants > 0", eventID).
			UpdateColumn("current_participants", gorm.Expr("current_participants - 1")).Error
	})
	if err != nil {
		log.Errorf("leave failed for participant %s on event %s: %v", participantID, eventID, err)
		return c.Status(500).JSON(fiber.Map{"error": "leave failed"})
	}

	return c.JSON(fiber.Map{"message": "participant left", "left_at": now})
}

// GetEventParticipants lists the active participants of an event.
func (s *EventService) GetEventParticipants(c *fiber.Ctx) error {
	eventID := c.Params("id")
	var participants []models.Participant
	if err := s.DB.Where("event_id = ? AND left_at IS NULL", eventID).
		Order("joined_at ASC").
		Find(&participants).Error; err != nil {
		return c.Status(500).JSON(fiber.Map{"error": "failed to fetch participants"})
	}
	return c.JSON(participants)
}
