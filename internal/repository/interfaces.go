package repository

import (
	"context"

	"github.com/google/uuid"

	"github.com/rpattn/sprintmetrics/internal/domain"
)

// IssueRepository defines the document store boundary for issues. All
// operations are atomic at the single-document level. Reads of absent ids
// fail with domain.ErrNotFound; Update enforces the optimistic version
// carried by the issue and fails with domain.ErrConcurrentModification
// when the persisted version has moved on.
type IssueRepository interface {
	Create(ctx context.Context, issue domain.Issue) (domain.Issue, error)
	GetByID(ctx context.Context, id uuid.UUID) (domain.Issue, error)
	List(ctx context.Context, filter domain.IssueFilter) ([]domain.Issue, error)
	// ListByBoard returns issues whose live board binding is the given board.
	ListByBoard(ctx context.Context, boardID uuid.UUID) ([]domain.Issue, error)
	// ListByBoardHistory returns issues whose membership log mentions the
	// board at any point, including issues since moved away. Sprint scope
	// accounting needs these.
	ListByBoardHistory(ctx context.Context, boardID uuid.UUID) ([]domain.Issue, error)
	Update(ctx context.Context, issue domain.Issue) (domain.Issue, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

// ProjectRepository defines the document store boundary for projects.
type ProjectRepository interface {
	Create(ctx context.Context, project domain.Project) (domain.Project, error)
	GetByID(ctx context.Context, id uuid.UUID) (domain.Project, error)
	List(ctx context.Context, workspaceID uuid.UUID) ([]domain.Project, error)
	Update(ctx context.Context, project domain.Project) (domain.Project, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

// BoardRepository defines the store boundary for sprint boards.
type BoardRepository interface {
	Create(ctx context.Context, board domain.Board) (domain.Board, error)
	GetByID(ctx context.Context, id uuid.UUID) (domain.Board, error)
	List(ctx context.Context, workspaceID uuid.UUID) ([]domain.Board, error)
}
