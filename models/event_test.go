package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func sampleEvent(start, end time.Time) Event {
	return Event{
		ID:        "evt-1",
		Title:     "Weekend Speedrun",
		StartTime: start,
		EndTime:   end,
	}
}

func TestStatusAt_Derivation(t *testing.T) {
	start := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	end := start.Add(48 * time.Hour)

	tests := []struct {
		name       string
		isDraft    bool
		isArchived bool
		now        time.Time
		want       EventStatus
	}{
		{"draft before start", true, false, start.Add(-time.Hour), StatusDraft},
		{"draft during window", true, false, start.Add(time.Hour), StatusDraft},
		{"published before start", false, false, start.Add(-time.Hour), StatusPublished},
		{"active at start boundary", false, false, start, StatusActive},
		{"active mid-window", false, false, start.Add(24 * time.Hour), StatusActive},
		{"active at end boundary", false, false, end, StatusActive},
		{"completed after end", false, false, end.Add(time.Second), StatusCompleted},
		{"archived wins over active", false, true, start.Add(time.Hour), StatusArchived},
		{"archived wins over completed", false, true, end.Add(time.Hour), StatusArchived},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := sampleEvent(start, end)
			e.IsDraft = tt.isDraft
			e.IsArchived = tt.isArchived
			assert.Equal(t, tt.want, e.StatusAt(tt.now))
		})
	}
}

func TestStatusAt_Idempotent(t *testing.T) {
	start := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	e := sampleEvent(start, start.Add(time.Hour))
	now := start.Add(30 * time.Minute)

	first := e.StatusAt(now)
	for i := 0; i < 10; i++ {
		assert.Equal(t, first, e.StatusAt(now))
	}
}

// Derived status only moves forward in time: Published → Active → Completed,
// never skipping Active or reversing.
func TestStatusAt_MonotonicProgression(t *testing.T) {
	start := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	e := sampleEvent(start, start.Add(2*time.Hour))
	e.IsDraft = false

	order := map[EventStatus]int{
		StatusPublished: 0,
		StatusActive:    1,
		StatusCompleted: 2,
	}

	prev := -1
	sawActive := false
	for now := start.Add(-time.Hour); now.Before(start.Add(4 * time.Hour)); now = now.Add(time.Minute) {
		s := e.StatusAt(now)
		rank, ok := order[s]
		assert.True(t, ok, "unexpected status %s", s)
		assert.GreaterOrEqual(t, rank, prev, "status reversed at %s", now)
		if s == StatusCompleted {
			assert.True(t, sawActive, "skipped Active on the way to Completed")
		}
		if s == StatusActive {
			sawActive = true
		}
		prev = rank
	}
}

func TestJoinable(t *testing.T) {
	start := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	e := sampleEvent(start, start.Add(time.Hour))

	e.IsDraft = true
	assert.False(t, e.Joinable(start.Add(-time.Hour)))

	e.IsDraft = false
	assert.True(t, e.Joinable(start.Add(-time.Hour)), "published events are joinable")
	assert.True(t, e.Joinable(start.Add(30*time.Minute)), "active events are joinable")
	assert.False(t, e.Joinable(start.Add(2*time.Hour)), "completed events are not joinable")

	e.IsArchived = true
	assert.False(t, e.Joinable(start.Add(30*time.Minute)))
}
