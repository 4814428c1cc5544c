package models

import (
	"time"
)

// EventStatus is the derived lifecycle state of an event. Only Draft,
// Published and Archived are ever written; Active and Completed are
// computed from the clock so they can never drift or be missed.
type EventStatus string

const (
	StatusDraft     EventStatus = "draft"
	StatusPublished EventStatus = "published"
	StatusActive    EventStatus = "active"
	StatusCompleted EventStatus = "completed"
	StatusArchived  EventStatus = "archived"
)

// Event represents a time-bounded competitive event players join and
// submit proof of performance to.
type Event struct {
	ID          string    `json:"id" gorm:"primaryKey"`
	Slug        string    `json:"slug" gorm:"index"`
	Title       string    `json:"title" gorm:"not null"`
	Description string    `json:"description"`
	Category    string    `json:"category"`
	Platform    string    `json:"platform"`
	ScoringType string    `json:"scoring_type" gorm:"default:'most points'"` // "most points" or "fastest time"
	StartTime   time.Time `json:"start_time" gorm:"not null"`
	EndTime     time.Time `json:"end_time" gorm:"not null"`

	IsDraft    bool `json:"is_draft" gorm:"default:true"`
	IsArchived bool `json:"is_archived" gorm:"default:false"`

	MaxParticipants     int `json:"max_participants" gorm:"default:0"` // 0 = unlimited
	CurrentParticipants int `json:"current_participants" gorm:"default:0"`

	Settings EventSettings `json:"settings" gorm:"embedded;embeddedPrefix:setting_"`

	OrganizerID string     `json:"organizer_id" gorm:"index"`
	PublishedAt *time.Time `json:"published_at,omitempty"`
	ArchivedAt  *time.Time `json:"archived_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt   time.Time  `json:"updated_at" gorm:"autoUpdateTime"`

	// Relationships
	RewardTiers []RewardTier `json:"reward_tiers,omitempty" gorm:"foreignKey:EventID"`

	// Calculated fields (not stored in DB)
	Status         EventStatus `json:"status,omitempty" gorm:"-"`
	AvailableSlots int64       `json:"available_slots,omitempty" gorm:"-"`
}

// EventSettings are per-event participation rules.
type EventSettings struct {
	ScreenshotRequired bool `json:"screenshot_required" gorm:"default:false"`
	LivestreamAllowed  bool `json:"livestream_allowed" gorm:"default:true"`
	MinimumLevel       int  `json:"minimum_level" gorm:"default:0"`
	TeamScoring        bool `json:"team_scoring" gorm:"default:false"`
}

// RewardTier is one ordered prize position of an event.
type RewardTier struct {
	ID       string `json:"id" gorm:"primaryKey"`
	EventID  string `json:"event_id" gorm:"not null;index"`
	Position int    `json:"position" gorm:"not null"`
	XP       int    `json:"xp"`
	Medals   int    `json:"medals"`
	Title    string `json:"title"`
}

// Participant tracks one user's membership in one event.
type Participant struct {
	ID           string     `json:"id" gorm:"primaryKey"`
	UserID       string     `json:"user_id" gorm:"not null;index"`
	EventID      string     `json:"event_id" gorm:"not null;index"`
	JoinedAt     time.Time  `json:"joined_at" gorm:"autoCreateTime"`
	LeftAt       *time.Time `json:"left_at,omitempty"`
	SubmissionID *string    `json:"submission_id,omitempty"`
}

// StatusAt derives the lifecycle status at the given instant. The Active
// window is inclusive on both ends. Archived wins over everything, Draft
// over the time-derived states.
func (e *Event) StatusAt(now time.Time) EventStatus {
	switch {
	case e.IsArchived:
		return StatusArchived
	case e.IsDraft:
		return StatusDraft
	case !now.Before(e.StartTime) && !now.After(e.EndTime):
		return StatusActive
	case now.After(e.EndTime):
		return StatusCompleted
	default:
		return StatusPublished
	}
}

// Joinable reports whether new participants are accepted at the given instant.
func (e *Event) Joinable(now time.Time) bool {
	s := e.StatusAt(now)
	return s == StatusPublished || s == StatusActive
}
