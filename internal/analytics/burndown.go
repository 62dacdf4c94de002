package analytics

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/rpattn/sprintmetrics/internal/domain"
)

// BurndownPoint is one day of the remaining-points series.
type BurndownPoint struct {
	Date            time.Time `json:"date"`
	RemainingPoints int       `json:"remaining_points"`
}

// BurndownReport pairs a sprint snapshot with its per-day series.
type BurndownReport struct {
	Snapshot Snapshot        `json:"snapshot"`
	Series   []BurndownPoint `json:"series"`
}

// Burndown replays every issue's status log across each calendar day of
// the sprint window, inclusive on both ends. An issue counts as done on
// day D when any Done entry in its status log falls on or before the end
// of that day; an issue with no Done entry contributes its full points
// to every day. An empty issue set yields a flat series at TotalPoints.
func (s *Service) Burndown(ctx context.Context, boardID uuid.UUID) (BurndownReport, error) {
	board, issues, err := s.sprintData(ctx, boardID)
	if err != nil {
		return BurndownReport{}, err
	}

	snapshot := buildSnapshot(board, issues)

	var scoped []domain.Issue
	for _, issue := range issues {
		if onBoard(issue, board.ID) && issue.Status() != domain.StatusCancelled {
			scoped = append(scoped, issue)
		}
	}

	days := board.Days()
	series := make([]BurndownPoint, 0, len(days))
	for _, day := range days {
		dayEnd := day.AddDate(0, 0, 1)
		remaining := snapshot.TotalPoints
		for _, issue := range scoped {
			if doneBy(issue, dayEnd) {
				remaining -= issue.StoryPoints()
			}
		}
		series = append(series, BurndownPoint{Date: day, RemainingPoints: remaining})
	}

	return BurndownReport{Snapshot: snapshot, Series: series}, nil
}

// doneBy reports whether any Done entry in the status log falls strictly
// before the given instant.
func doneBy(issue domain.Issue, before time.Time) bool {
	for _, entry := range issue.StatusHistory {
		if entry.Status == domain.StatusDone && entry.Timestamp.Before(before) {
			return true
		}
	}
	return false
}
