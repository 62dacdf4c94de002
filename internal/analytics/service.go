// Package analytics derives sprint reports from the issue history logs.
// All computation is read-only: each report fetches the board and its
// issue documents once, then works on the in-memory copies.
package analytics

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/rpattn/sprintmetrics/internal/domain"
	"github.com/rpattn/sprintmetrics/internal/repository"
)

// Service aggregates sprint metrics over the issue store.
type Service struct {
	issues repository.IssueRepository
	boards repository.BoardRepository
}

// NewService builds an analytics service over the given repositories.
func NewService(issues repository.IssueRepository, boards repository.BoardRepository) *Service {
	return &Service{issues: issues, boards: boards}
}

// sprintData loads a board and every issue whose board history mentions
// it. Issues that were pulled out of the sprint still matter: their
// removal entries feed the scope change accounting.
func (s *Service) sprintData(ctx context.Context, boardID uuid.UUID) (domain.Board, []domain.Issue, error) {
	board, err := s.boards.GetByID(ctx, boardID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.Board{}, nil, fmt.Errorf("board %s: %w", boardID, domain.ErrSprintNotFound)
		}
		return domain.Board{}, nil, err
	}
	issues, err := s.issues.ListByBoardHistory(ctx, boardID)
	if err != nil {
		return domain.Board{}, nil, err
	}
	return board, issues, nil
}
