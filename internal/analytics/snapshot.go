package analytics

import (
	"context"

	"github.com/google/uuid"

	"github.com/rpattn/sprintmetrics/internal/domain"
)

// Snapshot is the point-in-time accounting for one sprint board.
//
// TotalPoints and CompletedPoints cover issues whose current board
// membership is this board, excluding Cancelled issues. NetScopeChange
// is the sum of points added to the board minus points removed from it
// by transitions on or after the sprint's start date; points already on
// the board at sprint start contribute to neither side.
type Snapshot struct {
	BoardID         uuid.UUID `json:"board_id"`
	TotalPoints     int       `json:"total_points"`
	CompletedPoints int       `json:"completed_points"`
	RemainingPoints int       `json:"remaining_points"`
	NetScopeChange  int       `json:"net_scope_change"`
}

// SprintSnapshot aggregates the current accounting for one board.
// Returns ErrSprintNotFound when the board id does not resolve.
func (s *Service) SprintSnapshot(ctx context.Context, boardID uuid.UUID) (Snapshot, error) {
	board, issues, err := s.sprintData(ctx, boardID)
	if err != nil {
		return Snapshot{}, err
	}
	return buildSnapshot(board, issues), nil
}

func buildSnapshot(board domain.Board, issues []domain.Issue) Snapshot {
	snapshot := Snapshot{BoardID: board.ID}
	for _, issue := range issues {
		points := issue.StoryPoints()

		if onBoard(issue, board.ID) && issue.Status() != domain.StatusCancelled {
			snapshot.TotalPoints += points
			if issue.Status() == domain.StatusDone {
				snapshot.CompletedPoints += points
			}
		}

		for _, tr := range issue.BoardHistory {
			if tr.BoardID != board.ID || tr.Timestamp.Before(board.StartDate) {
				continue
			}
			switch tr.Action {
			case domain.BoardActionAdded:
				snapshot.NetScopeChange += points
			case domain.BoardActionRemoved:
				snapshot.NetScopeChange -= points
			}
		}
	}
	snapshot.RemainingPoints = snapshot.TotalPoints - snapshot.CompletedPoints
	return snapshot
}

// onBoard reports whether the issue's live membership, replayed from the
// board log, is the given board.
func onBoard(issue domain.Issue, boardID uuid.UUID) bool {
	current, ok := domain.CurrentBoard(issue.BoardHistory)
	return ok && current == boardID
}
