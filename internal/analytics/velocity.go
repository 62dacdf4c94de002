package analytics

import (
	"context"

	"github.com/google/uuid"
)

// VelocityEntry reports one sprint's completed throughput.
type VelocityEntry struct {
	BoardID         uuid.UUID `json:"board_id"`
	Title           string    `json:"title"`
	CompletedPoints int       `json:"completed_points"`
}

// Velocity packages completed points per board, in the order the board
// ids were given. It reuses the snapshot accounting per board and adds
// no aggregation of its own.
func (s *Service) Velocity(ctx context.Context, boardIDs []uuid.UUID) ([]VelocityEntry, error) {
	entries := make([]VelocityEntry, 0, len(boardIDs))
	for _, boardID := range boardIDs {
		board, issues, err := s.sprintData(ctx, boardID)
		if err != nil {
			return nil, err
		}
		snapshot := buildSnapshot(board, issues)
		entries = append(entries, VelocityEntry{
			BoardID:         boardID,
			Title:           board.Title,
			CompletedPoints: snapshot.CompletedPoints,
		})
	}
	return entries, nil
}
