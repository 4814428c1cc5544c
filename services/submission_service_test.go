package services

import (
	"bytes"
	"image"
	"image/color"
	"testing"
	"time"

	"event-arena-system/models"

	"github.com/disintegration/imaging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateHash_FixedVectors(t *testing.T) {
	// sha256 test vectors
	assert.Equal(t,
		"e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855",
		GenerateHash(nil))
	assert.Equal(t,
		"b94d27b9934d3e08a52e52d7da7dabfac484efe37a5380ee9088f7ace2efcde9",
		GenerateHash([]byte("hello world")))
}

func TestGenerateHash_DeterministicAndDistinct(t *testing.T) {
	a := []byte("proof artifact bytes")
	b := []byte("proof artifact bytez")

	assert.Equal(t, GenerateHash(a), GenerateHash(a), "identical bytes must yield identical digests")
	assert.NotEqual(t, GenerateHash(a), GenerateHash(b), "distinct bytes must yield distinct digests")
	assert.Len(t, GenerateHash(a), 64, "digest is fixed-length hex")
}

func TestVerifyArtifact(t *testing.T) {
	raw := []byte("original capture")
	hash := GenerateHash(raw)

	assert.NoError(t, VerifyArtifact(raw, hash))
	assert.ErrorIs(t, VerifyArtifact([]byte("tampered capture"), hash), ErrIntegrityFailure)
}

func TestAttachMetadata_DefaultsCapturedAt(t *testing.T) {
	before := time.Now()
	meta := AttachMetadata("device-abc", nil, nil, time.Time{})
	after := time.Now()

	assert.Equal(t, "device-abc", meta.DeviceFingerprint)
	assert.False(t, meta.CapturedAt.Before(before))
	assert.False(t, meta.CapturedAt.After(after))

	explicit := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	lat, lng := 25.3, 51.5
	meta = AttachMetadata("device-abc", &lat, &lng, explicit)
	assert.Equal(t, explicit, meta.CapturedAt)
	assert.Equal(t, 25.3, *meta.Latitude)
	assert.Equal(t, 51.5, *meta.Longitude)
}

func testScreenshotBytes(t *testing.T) []byte {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, 200, 120))
	for y := 0; y < 120; y++ {
		for x := 0; x < 200; x++ {
			img.Set(x, y, color.NRGBA{uint8(x), uint8(y), 128, 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, imaging.Encode(&buf, img, imaging.PNG))
	return buf.Bytes()
}

func TestApplyWatermark_Screenshot(t *testing.T) {
	raw := testScreenshotBytes(t)
	hashBefore := GenerateHash(raw)

	watermarked, err := ApplyWatermark(raw, models.ArtifactScreenshot, "Weekend Speedrun · user-1 · 2026-03-01")
	require.NoError(t, err)

	assert.NotEqual(t, raw, watermarked, "watermarked copy must differ byte-for-byte")
	assert.Equal(t, hashBefore, GenerateHash(raw), "digest over pre-watermark bytes is unchanged")

	// The watermarked copy is still a decodable image.
	_, err = imaging.Decode(bytes.NewReader(watermarked))
	assert.NoError(t, err)
}

func TestApplyWatermark_Video(t *testing.T) {
	raw := []byte("fake video container bytes")
	hashBefore := GenerateHash(raw)

	watermarked, err := ApplyWatermark(raw, models.ArtifactVideo, "Weekend Speedrun")
	require.NoError(t, err)

	assert.True(t, bytes.HasPrefix(watermarked, raw), "video watermark appends, never rewrites")
	assert.Greater(t, len(watermarked), len(raw))
	assert.Equal(t, hashBefore, GenerateHash(raw))
}

func TestApplyWatermark_UnsupportedType(t *testing.T) {
	_, err := ApplyWatermark([]byte("bytes"), "hologram", "text")
	var ve *ValidationError
	assert.ErrorAs(t, err, &ve)
}

func TestApplyWatermark_BadImageIsRetryable(t *testing.T) {
	// Garbage bytes fail before any persisted state change.
	_, err := ApplyWatermark([]byte("not an image"), models.ArtifactScreenshot, "text")
	assert.Error(t, err)
}

func activeWindowEvent() models.Event {
	start := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	return models.Event{
		ID:        "evt-1",
		StartTime: start,
		EndTime:   start.Add(4 * time.Hour),
	}
}

func TestCanSubmit_EventMustBeActiveAtCapture(t *testing.T) {
	event := activeWindowEvent()

	err := canSubmit(&event, event.StartTime.Add(-time.Minute), models.ArtifactScreenshot, 0)
	assert.ErrorIs(t, err, ErrEventNotActive, "capture before start")

	err = canSubmit(&event, event.EndTime.Add(time.Minute), models.ArtifactScreenshot, 0)
	assert.ErrorIs(t, err, ErrEventNotActive, "capture after end")

	assert.NoError(t, canSubmit(&event, event.StartTime.Add(time.Hour), models.ArtifactScreenshot, 0))
}

func TestCanSubmit_ScreenshotRequiredRejectsVideo(t *testing.T) {
	event := activeWindowEvent()
	event.Settings.ScreenshotRequired = true
	during := event.StartTime.Add(time.Hour)

	var ve *ValidationError
	assert.ErrorAs(t, canSubmit(&event, during, models.ArtifactVideo, 0), &ve)
	assert.NoError(t, canSubmit(&event, during, models.ArtifactScreenshot, 0))
}

func TestCanSubmit_PendingOrApprovedBlocks(t *testing.T) {
	event := activeWindowEvent()
	during := event.StartTime.Add(time.Hour)

	assert.ErrorIs(t, canSubmit(&event, during, models.ArtifactScreenshot, 1), ErrAlreadySubmitted)

	// A rejected-only history counts as zero blocking submissions.
	assert.NoError(t, canSubmit(&event, during, models.ArtifactScreenshot, 0))
}

func TestModerationUpdates_EmptyNotesNeverClobber(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	updates := moderationUpdates(models.SubmissionApproved, ModerationRequest{}, now)
	assert.NotContains(t, updates, "notes", "an empty decision must not overwrite existing notes")
	assert.Equal(t, models.SubmissionApproved, updates["status"])
	assert.Equal(t, now, updates["approved_at"])

	updates = moderationUpdates(models.SubmissionRejected, ModerationRequest{Notes: "blurry screenshot"}, now)
	assert.Equal(t, "blurry screenshot", updates["notes"])
	assert.NotContains(t, updates, "approved_at")
}

func TestModerationUpdates_OptionalFields(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	score := int64(120)

	updates := moderationUpdates(models.SubmissionApproved,
		ModerationRequest{Score: &score, TimeTaken: "02:05"}, now)
	assert.Equal(t, int64(120), updates["score"])
	assert.Equal(t, "02:05", updates["time_taken"])

	updates = moderationUpdates(models.SubmissionApproved, ModerationRequest{}, now)
	assert.NotContains(t, updates, "score")
	assert.NotContains(t, updates, "time_taken")
}
