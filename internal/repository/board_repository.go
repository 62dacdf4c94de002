package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/rpattn/sprintmetrics/internal/domain"
)

// boardRepository stores sprint boards in typed columns; boards carry no
// mutable document state.
type boardRepository struct {
	pool *pgxpool.Pool
}

// NewBoardRepository creates a Postgres-backed board repository.
func NewBoardRepository(pool *pgxpool.Pool) BoardRepository {
	return &boardRepository{pool: pool}
}

func (r *boardRepository) Create(ctx context.Context, board domain.Board) (domain.Board, error) {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO boards (id, workspace_id, title, start_date, end_date, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		board.ID, board.WorkspaceID, board.Title, board.StartDate, board.EndDate, board.CreatedAt,
	)
	if err != nil {
		return domain.Board{}, fmt.Errorf("%w: failed to create board: %v", domain.ErrPersistenceFailure, err)
	}
	return board, nil
}

func (r *boardRepository) GetByID(ctx context.Context, id uuid.UUID) (domain.Board, error) {
	var board domain.Board
	err := r.pool.QueryRow(ctx, `
		SELECT id, workspace_id, title, start_date, end_date, created_at
		FROM boards WHERE id = $1`, id,
	).Scan(&board.ID, &board.WorkspaceID, &board.Title, &board.StartDate, &board.EndDate, &board.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Board{}, fmt.Errorf("board %s: %w", id, domain.ErrNotFound)
		}
		return domain.Board{}, fmt.Errorf("%w: failed to get board: %v", domain.ErrPersistenceFailure, err)
	}
	return board, nil
}

func (r *boardRepository) List(ctx context.Context, workspaceID uuid.UUID) ([]domain.Board, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, workspace_id, title, start_date, end_date, created_at
		FROM boards WHERE workspace_id = $1
		ORDER BY start_date`, workspaceID,
	)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to list boards: %v", domain.ErrPersistenceFailure, err)
	}
	defer rows.Close()

	var boards []domain.Board
	for rows.Next() {
		var board domain.Board
		if err := rows.Scan(&board.ID, &board.WorkspaceID, &board.Title,
			&board.StartDate, &board.EndDate, &board.CreatedAt); err != nil {
			return nil, fmt.Errorf("%w: failed to scan board: %v", domain.ErrPersistenceFailure, err)
		}
		boards = append(boards, board)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: failed to read boards: %v", domain.ErrPersistenceFailure, err)
	}
	return boards, nil
}
