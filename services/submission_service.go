package services

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"event-arena-system/models"
	"event-arena-system/utils"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

type SubmissionService struct {
	DB *gorm.DB
}

func NewSubmissionService(db *gorm.DB) *SubmissionService {
	return &SubmissionService{DB: db}
}

// GenerateHash computes the content digest over raw artifact bytes. It is
// deterministic: identical bytes always yield the identical digest.
func GenerateHash(raw []byte) string {
	sum := sha256.Sum256(raw)
	return hex.EncodeToString(sum[:])
}

// ArtifactMetadata is the immutable bundle attached to a captured artifact
// before it becomes a submission. Device and location capture happen in the
// client; here they are plain inputs.
type ArtifactMetadata struct {
	DeviceFingerprint string
	Latitude          *float64
	Longitude         *float64
	CapturedAt        time.Time
}

// AttachMetadata builds the metadata bundle, defaulting capturedAt to now.
func AttachMetadata(deviceFingerprint string, lat, lng *float64, capturedAt time.Time) ArtifactMetadata {
	if capturedAt.IsZero() {
		capturedAt = time.Now()
	}
	return ArtifactMetadata{
		DeviceFingerprint: deviceFingerprint,
		Latitude:          lat,
		Longitude:         lng,
		CapturedAt:        capturedAt,
	}
}

// ApplyWatermark returns new artifact bytes carrying a visible watermark.
// The input is never mutated; the persisted digest always covers the
// pre-watermark bytes, so a verifier can confirm the displayed copy traces
// back to an unaltered original.
func ApplyWatermark(raw []byte, artifactType, text string) ([]byte, error) {
	switch artifactType {
	case models.ArtifactScreenshot:
		return utils.WatermarkImage(raw, text)
	case models.ArtifactVideo:
		return utils.WatermarkVideo(raw, text), nil
	default:
		return nil, validationErrorf("unsupported artifact type %q", artifactType)
	}
}

// VerifyArtifact recomputes the digest of raw bytes against the stored hash.
func VerifyArtifact(raw []byte, expectedHash string) error {
	if GenerateHash(raw) != expectedHash {
		return ErrIntegrityFailure
	}
	return nil
}

// canSubmit applies the submission gates against a loaded event: the event
// must be active at capture time, the artifact must satisfy the event's proof
// settings, and a pending or approved submission blocks a new one. A rejected
// submission does not block; the new attempt gets a fresh id and the rejected
// row is retained for audit.
func canSubmit(event *models.Event, capturedAt time.Time, artifactType string, blocking int64) error {
	if event.StatusAt(capturedAt) != models.StatusActive {
		return ErrEventNotActive
	}
	if event.Settings.ScreenshotRequired && artifactType != models.ArtifactScreenshot {
		return validationErrorf("this event requires screenshot proof")
	}
	if blocking > 0 {
		return ErrAlreadySubmitted
	}
	return nil
}

func parseOptionalCoord(v string) (*float64, error) {
	if v == "" {
		return nil, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return nil, validationErrorf("invalid coordinate %q", v)
	}
	return &f, nil
}

func readArtifactFile(c *fiber.Ctx) ([]byte, error) {
	fileHeader, err := c.FormFile("artifact")
	if err != nil {
		return nil, validationErrorf("artifact file is required")
	}
	f, err := fileHeader.Open()
	if err != nil {
		return nil, fmt.Errorf("failed to open artifact: %w", err)
	}
	defer f.Close()
	return io.ReadAll(f)
}

// CreateSubmission runs the whole integrity pipeline: capture, hash,
// metadata, watermark, persist. The submission is created pending; only the
// moderation collaborator ever moves it to approved or rejected.
func (s *SubmissionService) CreateSubmission(c *fiber.Ctx) error {
	eventID := c.Params("id")
	participantID := c.FormValue("participant_id")
	artifactType := c.FormValue("artifact_type")
	if participantID == "" {
		return errorResponse(c, validationErrorf("participant_id is required"))
	}
	if artifactType != models.ArtifactScreenshot && artifactType != models.ArtifactVideo {
		return errorResponse(c, validationErrorf("artifact_type must be screenshot or video"))
	}

	raw, err := readArtifactFile(c)
	if err != nil {
		return errorResponse(c, err)
	}

	lat, err := parseOptionalCoord(c.FormValue("latitude"))
	if err != nil {
		return errorResponse(c, err)
	}
	lng, err := parseOptionalCoord(c.FormValue("longitude"))
	if err != nil {
		return errorResponse(c, err)
	}

	var capturedAt time.Time
	if v := c.FormValue("captured_at"); v != "" {
		capturedAt, err = time.Parse(time.RFC3339, v)
		if err != nil {
			return errorResponse(c, validationErrorf("invalid captured_at (use RFC3339)"))
		}
	}
	meta := AttachMetadata(c.FormValue("device_fingerprint"), lat, lng, capturedAt)

	var score *int64
	if v := c.FormValue("score"); v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return errorResponse(c, validationErrorf("score must be an integer"))
		}
		score = &n
	}
	timeTaken := c.FormValue("time_taken")

	// Hashing and watermarking are pure; only the persisted state below
	// needs the event's exclusive scope.
	contentHash := GenerateHash(raw)

	unlock := eventLocks.Acquire(eventID)
	defer unlock()

	var event models.Event
	if err := s.DB.First(&event, "id = ?", eventID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.Status(404).JSON(fiber.Map{"error": "event not found"})
		}
		return c.Status(500).JSON(fiber.Map{"error": "DB error"})
	}
	var participant models.Participant
	err = s.DB.Where("id = ? AND event_id = ? AND left_at IS NULL", participantID, eventID).
		First(&participant).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.Status(404).JSON(fiber.Map{"error": "participant not found"})
		}
		return c.Status(500).JSON(fiber.Map{"error": "DB error"})
	}

	var blocking int64
	s.DB.Model(&models.Submission{}).
		Where("participant_id = ? AND event_id = ? AND status IN ?",
			participantID, eventID, []string{models.SubmissionPending, models.SubmissionApproved}).
		Count(&blocking)

	if err := canSubmit(&event, meta.CapturedAt, artifactType, blocking); err != nil {
		return errorResponse(c, err)
	}

	submissionID := uuid.NewString()
	watermarkText := fmt.Sprintf("%s · %s · %s",
		event.Title, participant.UserID, meta.CapturedAt.UTC().Format("2006-01-02 15:04 MST"))

	watermarked, err := ApplyWatermark(raw, artifactType, watermarkText)
	if err != nil {
		// Watermarking failures happen before any persisted state change, so
		// the caller can safely retry.
		log.Warnf("watermark failed for event %s participant %s: %v", eventID, participantID, err)
		return errorResponse(c, err)
	}

	rawPath := utils.GetUploadPath(filepath.Join("raw", eventID, submissionID))
	if err := utils.SaveBytes(rawPath, raw); err != nil {
		log.Errorf("failed to retain raw artifact: %v", err)
		return c.Status(500).JSON(fiber.Map{"error": "failed to store artifact"})
	}

	ext := ".jpg"
	contentType := "image/jpeg"
	if artifactType == models.ArtifactVideo {
		ext = ".mp4"
		contentType = "video/mp4"
	}
	artifactURL, err := utils.UploadBytesToR2(watermarked,
		fmt.Sprintf("artifacts/%s/%s%s", eventID, submissionID, ext), contentType)
	if err != nil {
		log.Errorf("failed to upload watermarked artifact: %v", err)
		return c.Status(500).JSON(fiber.Map{"error": "failed to upload artifact"})
	}

	submission := models.Submission{
		ID:                submissionID,
		ParticipantID:     participant.ID,
		EventID:           eventID,
		UserID:            participant.UserID,
		ArtifactType:      artifactType,
		ContentHash:       contentHash,
		ArtifactURL:       artifactURL,
		RawPath:           rawPath,
		DeviceFingerprint: meta.DeviceFingerprint,
		CapturedAt:        meta.CapturedAt,
		Latitude:          meta.Latitude,
		Longitude:         meta.Longitude,
		WatermarkText:     watermarkText,
		Status:            models.SubmissionPending,
		Score:             score,
		TimeTaken:         timeTaken,
	}
	err = s.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&submission).Error; err != nil {
			return err
		}
		return tx.Model(&participant).Update("submission_id", submission.ID).Error
	})
	if err != nil {
		log.Errorf("failed to create submission: %v", err)
		return c.Status(500).JSON(fiber.Map{"error": "DB insert failed"})
	}

	return c.Status(201).JSON(submission)
}

// SubmitSubmission hands the submission off to the moderation queue.
// Re-submitting the same id is a no-op.
func (s *SubmissionService) SubmitSubmission(c *fiber.Ctx) error {
	id := c.Params("id")
	var submission models.Submission
	if err := s.DB.First(&submission, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.Status(404).JSON(fiber.Map{"error": "submission not found"})
		}
		return c.Status(500).JSON(fiber.Map{"error": "DB error"})
	}
	if submission.SubmittedAt != nil {
		return c.JSON(fiber.Map{"message": "already submitted", "submission": submission})
	}

	now := time.Now()
	if err := s.DB.Model(&submission).Update("submitted_at", now).Error; err != nil {
		return c.Status(500).JSON(fiber.Map{"error": "submit failed"})
	}
	submission.SubmittedAt = &now
	return c.JSON(fiber.Map{"message": "submission queued for moderation", "submission": submission})
}

// VerifySubmission recomputes the digest over the retained raw bytes. A
// mismatch is never silently discarded: the submission is flagged for
// moderator review.
func (s *SubmissionService) VerifySubmission(c *fiber.Ctx) error {
	id := c.Params("id")
	var submission models.Submission
	if err := s.DB.First(&submission, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.Status(404).JSON(fiber.Map{"error": "submission not found"})
		}
		return c.Status(500).JSON(fiber.Map{"error": "DB error"})
	}

	raw, err := os.ReadFile(submission.RawPath)
	if err != nil {
		log.Errorf("raw artifact missing for submission %s: %v", id, err)
		return c.Status(500).JSON(fiber.Map{"error": "raw artifact unavailable"})
	}

	if err := VerifyArtifact(raw, submission.ContentHash); err != nil {
		log.Warnf("🚩 integrity failure on submission %s (event %s)", submission.ID, submission.EventID)
		note := "integrity check failed at " + time.Now().UTC().Format(time.RFC3339)
		if submission.Notes != "" {
			note = submission.Notes + "; " + note
		}
		s.DB.Model(&submission).Update("notes", note)
		return errorResponse(c, err)
	}

	return c.JSON(fiber.Map{"message": "artifact verified", "content_hash": submission.ContentHash})
}

// ModerationRequest carries the moderator's decision details.
type ModerationRequest struct {
	Notes     string `json:"notes"`
	Score     *int64 `json:"score,omitempty"`
	TimeTaken string `json:"time_taken,omitempty"`
}

// ApproveSubmission records the moderation decision and synchronously
// recomputes the event leaderboard inside the same per-event scope, so no
// reader ever observes a leaderboard inconsistent with the approved set.
func (s *SubmissionService) ApproveSubmission(c *fiber.Ctx) error {
	return s.moderate(c, models.SubmissionApproved)
}

// RejectSubmission records a rejection and recomputes the leaderboard.
func (s *SubmissionService) RejectSubmission(c *fiber.Ctx) error {
	return s.moderate(c, models.SubmissionRejected)
}

// moderationUpdates builds the column set for a moderation decision. Notes
// are only written when the moderator provided them, so a note appended by an
// earlier integrity check is never clobbered by an empty field.
func moderationUpdates(decision string, req ModerationRequest, now time.Time) map[string]interface{} {
	updates := map[string]interface{}{"status": decision}
	if decision == models.SubmissionApproved {
		updates["approved_at"] = now
	}
	if req.Notes != "" {
		updates["notes"] = req.Notes
	}
	if req.Score != nil {
		updates["score"] = *req.Score
	}
	if req.TimeTaken != "" {
		updates["time_taken"] = req.TimeTaken
	}
	return updates
}

func (s *SubmissionService) moderate(c *fiber.Ctx, decision string) error {
	id := c.Params("id")
	var req ModerationRequest
	if err := c.BodyParser(&req); err != nil && len(c.Body()) > 0 {
		return c.Status(400).JSON(fiber.Map{"error": "invalid JSON"})
	}

	var submission models.Submission
	if err := s.DB.First(&submission, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.Status(404).JSON(fiber.Map{"error": "submission not found"})
		}
		return c.Status(500).JSON(fiber.Map{"error": "DB error"})
	}

	unlock := eventLocks.Acquire(submission.EventID)
	defer unlock()

	// Re-read under the lock; a concurrent decision may have landed first.
	if err := s.DB.First(&submission, "id = ?", id).Error; err != nil {
		return c.Status(500).JSON(fiber.Map{"error": "DB error"})
	}
	if submission.Status != models.SubmissionPending {
		return errorResponse(c, fmt.Errorf("%w: submission is already %s", ErrInvalidTransition, submission.Status))
	}

	var event models.Event
	if err := s.DB.First(&event, "id = ?", submission.EventID).Error; err != nil {
		return c.Status(500).JSON(fiber.Map{"error": "DB error"})
	}

	updates := moderationUpdates(decision, req, time.Now())

	err := s.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&submission).Updates(updates).Error; err != nil {
			return err
		}
		// Full recomputation on every decision, never an incremental patch.
		return recomputeLeaderboard(tx, &event)
	})
	if err != nil {
		log.Errorf("moderation of submission %s failed: %v", id, err)
		return c.Status(500).JSON(fiber.Map{"error": "moderation failed"})
	}

	log.Infof("⚖️  Submission %s %s (event %s)", submission.ID, decision, submission.EventID)
	s.DB.First(&submission, "id = ?", id)
	return c.JSON(submission)
}

// GetEventSubmissions lists submissions for an event, optionally filtered by
// status (the moderation queue reads ?status=pending).
func (s *SubmissionService) GetEventSubmissions(c *fiber.Ctx) error {
	eventID := c.Params("id")
	query := s.DB.Where("event_id = ?", eventID)
	if status := c.Query("status"); status != "" {
		query = query.Where("status = ?", status)
	}
	var submissions []models.Submission
	if err := query.Order("created_at ASC").Find(&submissions).Error; err != nil {
		return c.Status(500).JSON(fiber.Map{"error": "failed to fetch submissions"})
	}
	return c.JSON(submissions)
}
