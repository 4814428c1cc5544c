package services

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"event-arena-system/models"

	"github.com/gocarina/gocsv"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

const (
	ScoringMostPoints  = "most points"
	ScoringFastestTime = "fastest time"
)

type LeaderboardService struct {
	DB *gorm.DB
}

func NewLeaderboardService(db *gorm.DB) *LeaderboardService {
	return &LeaderboardService{DB: db}
}

// parseTimeTaken converts "MM:SS" or "HH:MM:SS" into canonical seconds.
// Missing leading units are implied zero.
func parseTimeTaken(s string) (int64, error) {
	parts := strings.Split(strings.TrimSpace(s), ":")
	if len(parts) < 2 || len(parts) > 3 {
		return 0, fmt.Errorf("%w: %q", ErrUnparseableScore, s)
	}
	// pad to HH:MM:SS
	for len(parts) < 3 {
		parts = append([]string{"0"}, parts...)
	}
	var total int64
	for _, p := range parts {
		n, err := strconv.ParseInt(p, 10, 64)
		if err != nil || n < 0 {
			return 0, fmt.Errorf("%w: %q", ErrUnparseableScore, s)
		}
		total = total*60 + n
	}
	return total, nil
}

// rankSubmissions orders the approved submission set for one event and
// assigns 1-based ranks. Ties are broken by earliest approvedAt
// (first-approved-wins); the sort is stable so equal keys preserve that
// order. Submissions with an unparseable time are excluded from a
// fastest-time ranking but are not otherwise discarded.
func rankSubmissions(scoringType string, subs []models.Submission) []models.LeaderboardEntry {
	ranked := make([]models.Submission, 0, len(subs))
	seconds := make(map[string]int64, len(subs))
	for _, sub := range subs {
		if scoringType == ScoringFastestTime {
			secs, err := parseTimeTaken(sub.TimeTaken)
			if err != nil {
				log.Warnf("submission %s excluded from ranking: %v", sub.ID, err)
				continue
			}
			seconds[sub.ID] = secs
		}
		ranked = append(ranked, sub)
	}

	// Establish the tie-break order first, then a stable sort on the
	// primary key preserves it between equals.
	sort.SliceStable(ranked, func(i, j int) bool {
		return tieBreakKey(ranked[i]).Before(tieBreakKey(ranked[j]))
	})
	sort.SliceStable(ranked, func(i, j int) bool {
		if scoringType == ScoringFastestTime {
			return seconds[ranked[i].ID] < seconds[ranked[j].ID]
		}
		return scoreOf(ranked[i]) > scoreOf(ranked[j])
	})

	entries := make([]models.LeaderboardEntry, 0, len(ranked))
	for i, sub := range ranked {
		score := scoreOf(sub)
		entries = append(entries, models.LeaderboardEntry{
			ID:            uuid.NewString(),
			EventID:       sub.EventID,
			ParticipantID: sub.ParticipantID,
			UserID:        sub.UserID,
			Rank:          i + 1,
			Score:         score,
			TimeTaken:     sub.TimeTaken,
			TieBreakKey:   tieBreakKey(sub),
		})
	}
	return entries
}

func scoreOf(sub models.Submission) int64 {
	if sub.Score == nil {
		return 0
	}
	return *sub.Score
}

func tieBreakKey(sub models.Submission) time.Time {
	if sub.ApprovedAt != nil {
		return *sub.ApprovedAt
	}
	return sub.CreatedAt
}

// recomputeLeaderboard rebuilds the whole entry set for one event from its
// approved submissions. Callers hold the event's exclusive scope; the delete
// and insert run in the supplied transaction.
func recomputeLeaderboard(tx *gorm.DB, event *models.Event) error {
	var approved []models.Submission
	if err := tx.Where("event_id = ? AND status = ?", event.ID, models.SubmissionApproved).
		Order("approved_at ASC").
		Find(&approved).Error; err != nil {
		return fmt.Errorf("failed to load approved submissions: %w", err)
	}

	entries := rankSubmissions(event.ScoringType, approved)

	if err := tx.Where("event_id = ?", event.ID).Delete(&models.LeaderboardEntry{}).Error; err != nil {
		return fmt.Errorf("failed to clear leaderboard: %w", err)
	}
	for i := range entries {
		if err := tx.Create(&entries[i]).Error; err != nil {
			return fmt.Errorf("failed to insert leaderboard entry: %w", err)
		}
	}
	return nil
}

// GetLeaderboard returns the current ranking for an event.
func (s *LeaderboardService) GetLeaderboard(c *fiber.Ctx) error {
	eventID := c.Params("id")
	var entries []models.LeaderboardEntry
	if err := s.DB.Where("event_id = ?", eventID).
		Order("rank ASC").
		Find(&entries).Error; err != nil {
		return c.Status(500).JSON(fiber.Map{"error": "failed to fetch leaderboard"})
	}
	return c.JSON(entries)
}

// RecomputeLeaderboard forces a full rebuild, e.g. after a scoring-type fix.
func (s *LeaderboardService) RecomputeLeaderboard(c *fiber.Ctx) error {
	eventID := c.Params("id")

	unlock := eventLocks.Acquire(eventID)
	defer unlock()

	var event models.Event
	if err := s.DB.First(&event, "id = ?", eventID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.Status(404).JSON(fiber.Map{"error": "event not found"})
		}
		return c.Status(500).JSON(fiber.Map{"error": "DB error"})
	}

	err := s.DB.Transaction(func(tx *gorm.DB) error {
		return recomputeLeaderboard(tx, &event)
	})
	if err != nil {
		log.Errorf("leaderboard recompute failed for event %s: %v", eventID, err)
		return c.Status(500).JSON(fiber.Map{"error": "recompute failed"})
	}

	var entries []models.LeaderboardEntry
	s.DB.Where("event_id = ?", eventID).Order("rank ASC").Find(&entries)
	return c.JSON(entries)
}

// ExportLeaderboardCSV streams the current ranking as a CSV snapshot.
func (s *LeaderboardService) ExportLeaderboardCSV(c *fiber.Ctx) error {
	eventID := c.Params("id")
	var entries []models.LeaderboardEntry
	if err := s.DB.Where("event_id = ?", eventID).
		Order("rank ASC").
		Find(&entries).Error; err != nil {
		return c.Status(500).JSON(fiber.Map{"error": "failed to fetch leaderboard"})
	}

	out, err := gocsv.MarshalString(&entries)
	if err != nil {
		log.Errorf("CSV export failed for event %s: %v", eventID, err)
		return c.Status(500).JSON(fiber.Map{"error": "CSV export failed"})
	}

	c.Set("Content-Type", "text/csv")
	c.Set("Content-Disposition", fmt.Sprintf("attachment; filename=leaderboard-%s.csv", eventID))
	return c.SendString(out)
}
