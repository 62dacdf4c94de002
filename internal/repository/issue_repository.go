package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/rpattn/sprintmetrics/internal/domain"
)

// issueRepository persists each issue as one JSONB document with an
// optimistic version column alongside it.
type issueRepository struct {
	pool *pgxpool.Pool
}

// NewIssueRepository creates a Postgres-backed issue repository.
func NewIssueRepository(pool *pgxpool.Pool) IssueRepository {
	return &issueRepository{pool: pool}
}

const issueColumns = "doc, version"

func (r *issueRepository) Create(ctx context.Context, issue domain.Issue) (domain.Issue, error) {
	doc, err := json.Marshal(issue)
	if err != nil {
		return domain.Issue{}, fmt.Errorf("failed to marshal issue document: %w", err)
	}

	_, err = r.pool.Exec(ctx, `
		INSERT INTO issues (id, workspace_id, issue_key, doc, version, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		issue.ID, issue.WorkspaceID, issue.Key, doc, issue.Version, issue.CreatedAt, issue.UpdatedAt,
	)
	if err != nil {
		return domain.Issue{}, fmt.Errorf("%w: failed to create issue: %v", domain.ErrPersistenceFailure, err)
	}
	return issue, nil
}

func (r *issueRepository) GetByID(ctx context.Context, id uuid.UUID) (domain.Issue, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+issueColumns+` FROM issues WHERE id = $1`, id)
	issue, err := scanIssue(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Issue{}, fmt.Errorf("issue %s: %w", id, domain.ErrNotFound)
		}
		return domain.Issue{}, fmt.Errorf("%w: failed to get issue: %v", domain.ErrPersistenceFailure, err)
	}
	return issue, nil
}

func (r *issueRepository) List(ctx context.Context, filter domain.IssueFilter) ([]domain.Issue, error) {
	query := `SELECT ` + issueColumns + ` FROM issues`
	var conditions []string
	var args []any

	addCondition := func(condition string, value any) {
		args = append(args, value)
		conditions = append(conditions, fmt.Sprintf(condition, len(args)))
	}

	if filter.WorkspaceID != nil {
		addCondition("workspace_id = $%d", *filter.WorkspaceID)
	}
	if filter.BoardID != nil {
		addCondition("doc->'fields'->>'board_id' = $%d", filter.BoardID.String())
	}
	if filter.Status != nil {
		addCondition("doc->'fields'->>'status' = $%d", string(*filter.Status))
	}
	if filter.IssueType != nil {
		addCondition("doc->'fields'->>'issue_type' = $%d", string(*filter.IssueType))
	}
	if filter.TitleSearch != "" {
		addCondition("doc->'fields'->>'title' ILIKE $%d", "%"+filter.TitleSearch+"%")
	}
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY created_at"

	return r.queryIssues(ctx, query, args...)
}

func (r *issueRepository) ListByBoard(ctx context.Context, boardID uuid.UUID) ([]domain.Issue, error) {
	return r.queryIssues(ctx, `
		SELECT `+issueColumns+` FROM issues
		WHERE doc->'fields'->>'board_id' = $1
		ORDER BY created_at`,
		boardID.String(),
	)
}

func (r *issueRepository) ListByBoardHistory(ctx context.Context, boardID uuid.UUID) ([]domain.Issue, error) {
	membership, err := json.Marshal([]map[string]string{{"board_id": boardID.String()}})
	if err != nil {
		return nil, fmt.Errorf("failed to build membership probe: %w", err)
	}
	return r.queryIssues(ctx, `
		SELECT `+issueColumns+` FROM issues
		WHERE doc->'board_history' @> $1::jsonb
		ORDER BY created_at`,
		string(membership),
	)
}

// Update persists the merged document in a single write, guarded by the
// optimistic version the caller read. The returned issue carries the
// bumped version.
func (r *issueRepository) Update(ctx context.Context, issue domain.Issue) (domain.Issue, error) {
	doc, err := json.Marshal(issue)
	if err != nil {
		return domain.Issue{}, fmt.Errorf("failed to marshal issue document: %w", err)
	}

	var newVersion int64
	err = r.pool.QueryRow(ctx, `
		UPDATE issues
		SET doc = $2, version = version + 1, updated_at = $3
		WHERE id = $1 AND version = $4
		RETURNING version`,
		issue.ID, doc, issue.UpdatedAt, issue.Version,
	).Scan(&newVersion)
	if err == nil {
		issue.Version = newVersion
		return issue, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return domain.Issue{}, fmt.Errorf("%w: failed to update issue: %v", domain.ErrPersistenceFailure, err)
	}

	// No row matched: either the issue is gone or the version is stale.
	var exists bool
	if probeErr := r.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM issues WHERE id = $1)`, issue.ID,
	).Scan(&exists); probeErr != nil {
		return domain.Issue{}, fmt.Errorf("%w: failed to probe issue: %v", domain.ErrPersistenceFailure, probeErr)
	}
	if !exists {
		return domain.Issue{}, fmt.Errorf("issue %s: %w", issue.ID, domain.ErrNotFound)
	}
	return domain.Issue{}, fmt.Errorf("issue %s at version %d: %w",
		issue.ID, issue.Version, domain.ErrConcurrentModification)
}

func (r *issueRepository) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM issues WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("%w: failed to delete issue: %v", domain.ErrPersistenceFailure, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("issue %s: %w", id, domain.ErrNotFound)
	}
	return nil
}

func (r *issueRepository) queryIssues(ctx context.Context, query string, args ...any) ([]domain.Issue, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to list issues: %v", domain.ErrPersistenceFailure, err)
	}
	defer rows.Close()

	var issues []domain.Issue
	for rows.Next() {
		issue, err := scanIssue(rows)
		if err != nil {
			return nil, fmt.Errorf("%w: failed to scan issue: %v", domain.ErrPersistenceFailure, err)
		}
		issues = append(issues, issue)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: failed to read issues: %v", domain.ErrPersistenceFailure, err)
	}
	return issues, nil
}

func scanIssue(row pgx.Row) (domain.Issue, error) {
	var doc []byte
	var version int64
	if err := row.Scan(&doc, &version); err != nil {
		return domain.Issue{}, err
	}
	var issue domain.Issue
	if err := json.Unmarshal(doc, &issue); err != nil {
		return domain.Issue{}, fmt.Errorf("failed to unmarshal issue document: %w", err)
	}
	issue.Version = version
	return issue, nil
}
