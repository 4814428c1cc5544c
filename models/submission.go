package models

import (
	"time"
)

const (
	ArtifactScreenshot = "screenshot"
	ArtifactVideo      = "video"
)

const (
	SubmissionPending  = "pending"
	SubmissionApproved = "approved"
	SubmissionRejected = "rejected"
)

// Submission is a hashed, watermarked, metadata-tagged proof artifact tied
// to one participant's attempt. ContentHash always covers the raw
// pre-watermark bytes, so the displayed (watermarked) copy can still be
// traced back to an unaltered original.
type Submission struct {
	ID            string `json:"id" gorm:"primaryKey"`
	ParticipantID string `json:"participant_id" gorm:"not null;index"`
	EventID       string `json:"event_id" gorm:"not null;index"`
	UserID        string `json:"user_id" gorm:"index"`

	ArtifactType string `json:"artifact_type" gorm:"not null"` // screenshot | video
	ContentHash  string `json:"content_hash" gorm:"type:char(64);not null"`
	ArtifactURL  string `json:"artifact_url"` // watermarked copy served from R2
	RawPath      string `json:"-"`            // local copy of the original bytes, kept for re-verification

	DeviceFingerprint string    `json:"device_fingerprint"`
	CapturedAt        time.Time `json:"captured_at" gorm:"not null"`
	Latitude          *float64  `json:"latitude,omitempty"`
	Longitude         *float64  `json:"longitude,omitempty"`
	WatermarkText     string    `json:"watermark_text"`

	Status      string     `json:"status" gorm:"default:'pending';index"`
	SubmittedAt *time.Time `json:"submitted_at,omitempty"` // set once on hand-off to moderation
	ApprovedAt  *time.Time `json:"approved_at,omitempty"`
	Score       *int64     `json:"score,omitempty"`
	TimeTaken   string     `json:"time_taken,omitempty"` // "MM:SS" or "HH:MM:SS"
	Notes       string     `json:"notes,omitempty"`

	CreatedAt time.Time `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt time.Time `json:"updated_at" gorm:"autoUpdateTime"`
}
