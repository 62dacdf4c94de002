package domain

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Board is a time-boxed sprint container. Issues belong to it through
// their board membership logs, not through a foreign key held here.
type Board struct {
	ID          uuid.UUID `json:"id"`
	WorkspaceID uuid.UUID `json:"workspace_id"`
	Title       string    `json:"title"`
	StartDate   time.Time `json:"start_date"`
	EndDate     time.Time `json:"end_date"`
	CreatedAt   time.Time `json:"created_at"`
}

// NewBoard builds a sprint board. The window is inclusive on both ends and
// StartDate must not fall after EndDate.
func NewBoard(workspaceID uuid.UUID, title string, startDate, endDate time.Time) (Board, error) {
	if strings.TrimSpace(title) == "" {
		return Board{}, fmt.Errorf("board title is required")
	}
	if startDate.IsZero() || endDate.IsZero() {
		return Board{}, fmt.Errorf("sprint boards require a start and end date")
	}
	if startDate.After(endDate) {
		return Board{}, fmt.Errorf("sprint start date %s is after end date %s",
			startDate.Format("2006-01-02"), endDate.Format("2006-01-02"))
	}
	return Board{
		ID:          uuid.New(),
		WorkspaceID: workspaceID,
		Title:       title,
		StartDate:   startDate,
		EndDate:     endDate,
		CreatedAt:   time.Now().UTC(),
	}, nil
}

// Days returns every calendar day of the sprint window, inclusive.
func (b Board) Days() []time.Time {
	start := truncateToDay(b.StartDate)
	end := truncateToDay(b.EndDate)

	var days []time.Time
	for day := start; !day.After(end); day = day.AddDate(0, 0, 1) {
		days = append(days, day)
	}
	return days
}

func truncateToDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}
