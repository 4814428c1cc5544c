package services

import (
	"testing"
	"time"

	"event-arena-system/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseTimeTaken(t *testing.T) {
	tests := []struct {
		in      string
		want    int64
		wantErr bool
	}{
		{"00:45", 45, false},
		{"01:30", 90, false},
		{"1:02:03", 3723, false},
		{"00:00:59", 59, false},
		{" 02:15 ", 135, false},
		{"45", 0, true},
		{"", 0, true},
		{"aa:bb", 0, true},
		{"1:2:3:4", 0, true},
		{"-1:30", 0, true},
	}
	for _, tt := range tests {
		got, err := parseTimeTaken(tt.in)
		if tt.wantErr {
			assert.ErrorIs(t, err, ErrUnparseableScore, "input %q", tt.in)
		} else {
			require.NoError(t, err, "input %q", tt.in)
			assert.Equal(t, tt.want, got, "input %q", tt.in)
		}
	}
}

func approvedSubmission(id, participantID string, score int64, timeTaken string, approvedAt time.Time) models.Submission {
	return models.Submission{
		ID:            id,
		ParticipantID: participantID,
		EventID:       "evt-1",
		UserID:        "user-" + participantID,
		Status:        models.SubmissionApproved,
		Score:         &score,
		TimeTaken:     timeTaken,
		ApprovedAt:    &approvedAt,
	}
}

func TestRankSubmissions_MostPoints(t *testing.T) {
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	subs := []models.Submission{
		approvedSubmission("s1", "p1", 100, "", base),
		approvedSubmission("s2", "p2", 120, "", base.Add(time.Minute)),
		approvedSubmission("s3", "p3", 80, "", base.Add(2*time.Minute)),
	}

	entries := rankSubmissions(ScoringMostPoints, subs)
	require.Len(t, entries, 3)

	assert.Equal(t, "p2", entries[0].ParticipantID)
	assert.Equal(t, int64(120), entries[0].Score)
	assert.Equal(t, 1, entries[0].Rank)
	assert.Equal(t, "p1", entries[1].ParticipantID)
	assert.Equal(t, 2, entries[1].Rank)
	assert.Equal(t, "p3", entries[2].ParticipantID)
	assert.Equal(t, 3, entries[2].Rank)
}

func TestRankSubmissions_FastestTime(t *testing.T) {
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	subs := []models.Submission{
		approvedSubmission("s1", "p1", 0, "02:30", base),
		approvedSubmission("s2", "p2", 0, "1:01:00", base.Add(time.Minute)),
		approvedSubmission("s3", "p3", 0, "02:05", base.Add(2*time.Minute)),
		approvedSubmission("s4", "p4", 0, "garbled", base.Add(3*time.Minute)),
	}

	entries := rankSubmissions(ScoringFastestTime, subs)
	require.Len(t, entries, 3, "unparseable time is excluded from ranking")

	assert.Equal(t, "p3", entries[0].ParticipantID)
	assert.Equal(t, "p1", entries[1].ParticipantID)
	assert.Equal(t, "p2", entries[2].ParticipantID)

	// For all output pairs where a.rank < b.rank, parsedTime(a) <= parsedTime(b).
	for i := 1; i < len(entries); i++ {
		prev, err := parseTimeTaken(entries[i-1].TimeTaken)
		require.NoError(t, err)
		cur, err := parseTimeTaken(entries[i].TimeTaken)
		require.NoError(t, err)
		assert.LessOrEqual(t, prev, cur)
	}
}

func TestRankSubmissions_TiesFirstApprovedWins(t *testing.T) {
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	subs := []models.Submission{
		approvedSubmission("s1", "p1", 100, "", base.Add(2*time.Minute)),
		approvedSubmission("s2", "p2", 100, "", base), // approved first, wins the tie
		approvedSubmission("s3", "p3", 100, "", base.Add(time.Minute)),
	}

	entries := rankSubmissions(ScoringMostPoints, subs)
	require.Len(t, entries, 3)
	assert.Equal(t, "p2", entries[0].ParticipantID)
	assert.Equal(t, "p3", entries[1].ParticipantID)
	assert.Equal(t, "p1", entries[2].ParticipantID)

	for i := 1; i < len(entries); i++ {
		if entries[i-1].Score == entries[i].Score {
			assert.True(t, !entries[i-1].TieBreakKey.After(entries[i].TieBreakKey),
				"ties resolved by ascending approvedAt")
		}
	}
}

func TestRankSubmissions_StableUnderRerun(t *testing.T) {
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	subs := []models.Submission{
		approvedSubmission("s1", "p1", 50, "", base),
		approvedSubmission("s2", "p2", 50, "", base.Add(time.Second)),
		approvedSubmission("s3", "p3", 70, "", base.Add(2*time.Second)),
		approvedSubmission("s4", "p4", 50, "", base.Add(3*time.Second)),
	}

	first := rankSubmissions(ScoringMostPoints, subs)
	second := rankSubmissions(ScoringMostPoints, subs)

	require.Equal(t, len(first), len(second))
	for i := range first {
		assert.Equal(t, first[i].ParticipantID, second[i].ParticipantID)
		assert.Equal(t, first[i].Rank, second[i].Rank)
	}
}

func TestRankSubmissions_EmptyInput(t *testing.T) {
	entries := rankSubmissions(ScoringMostPoints, nil)
	assert.Empty(t, entries)
}

// Two approved submissions with scores 100 and 120 under "most points"
// produce ranks 1 (120) and 2 (100).
func TestRankSubmissions_TwoPlayerScenario(t *testing.T) {
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	subs := []models.Submission{
		approvedSubmission("s1", "p1", 100, "", base),
		approvedSubmission("s2", "p2", 120, "", base.Add(time.Minute)),
	}

	entries := rankSubmissions(ScoringMostPoints, subs)
	require.Len(t, entries, 2)
	assert.Equal(t, int64(120), entries[0].Score)
	assert.Equal(t, 1, entries[0].Rank)
	assert.Equal(t, int64(100), entries[1].Score)
	assert.Equal(t, 2, entries[1].Rank)
}
