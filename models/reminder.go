package models

import (
	"time"
)

// Reminder rule types, all relative to the event's own timestamps.
const (
	RuleOneDayBefore  = "one_day_before"
	RuleOneHourBefore = "one_hour_before"
	RuleAtStart       = "at_start"
	RuleAtEnd         = "at_end"
)

// ReminderRule is a time-relative notification policy attached to an event.
// FiredAt is set exactly once; (EventID, RuleType) is the idempotency key.
type ReminderRule struct {
	ID       string `json:"id" gorm:"primaryKey"`
	EventID  string `json:"event_id" gorm:"not null;uniqueIndex:idx_event_rule"`
	RuleType string `json:"rule_type" gorm:"not null;uniqueIndex:idx_event_rule"`
	Methods  string `json:"methods"` // comma-separated delivery channels, e.g. "push,email"
	Enabled  bool   `json:"enabled" gorm:"default:true"`

	FireAt    time.Time  `json:"fire_at" gorm:"index"`
	FiredAt   *time.Time `json:"fired_at,omitempty"`
	CreatedAt time.Time  `json:"created_at" gorm:"autoCreateTime"`
}
