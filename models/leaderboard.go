package models

import (
	"time"
)

// LeaderboardEntry is one ranked position within an event, derived from the
// approved submission set. The whole set is recomputed on every moderation
// decision, never patched incrementally.
type LeaderboardEntry struct {
	ID            string    `json:"id" gorm:"primaryKey" csv:"-"`
	EventID       string    `json:"event_id" gorm:"not null;index" csv:"event_id"`
	ParticipantID string    `json:"participant_id" gorm:"not null;index" csv:"participant_id"`
	UserID        string    `json:"user_id" gorm:"index" csv:"user_id"`
	Rank          int       `json:"rank" gorm:"not null" csv:"rank"`
	Score         int64     `json:"score" csv:"score"`
	TimeTaken     string    `json:"time_taken,omitempty" csv:"time_taken"`
	TieBreakKey   time.Time `json:"tie_break_key" csv:"-"` // approvedAt of the winning submission
	UpdatedAt     time.Time `json:"updated_at" gorm:"autoUpdateTime" csv:"-"`
}
