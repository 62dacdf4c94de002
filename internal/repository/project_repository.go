package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/rpattn/sprintmetrics/internal/domain"
)

// projectRepository mirrors the issue repository's document layout for
// project entities.
type projectRepository struct {
	pool *pgxpool.Pool
}

// NewProjectRepository creates a Postgres-backed project repository.
func NewProjectRepository(pool *pgxpool.Pool) ProjectRepository {
	return &projectRepository{pool: pool}
}

func (r *projectRepository) Create(ctx context.Context, project domain.Project) (domain.Project, error) {
	doc, err := json.Marshal(project)
	if err != nil {
		return domain.Project{}, fmt.Errorf("failed to marshal project document: %w", err)
	}

	_, err = r.pool.Exec(ctx, `
		INSERT INTO projects (id, workspace_id, project_key, doc, version, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		project.ID, project.WorkspaceID, project.Key, doc, project.Version, project.CreatedAt, project.UpdatedAt,
	)
	if err != nil {
		return domain.Project{}, fmt.Errorf("%w: failed to create project: %v", domain.ErrPersistenceFailure, err)
	}
	return project, nil
}

func (r *projectRepository) GetByID(ctx context.Context, id uuid.UUID) (domain.Project, error) {
	row := r.pool.QueryRow(ctx, `SELECT doc, version FROM projects WHERE id = $1`, id)
	project, err := scanProject(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Project{}, fmt.Errorf("project %s: %w", id, domain.ErrNotFound)
		}
		return domain.Project{}, fmt.Errorf("%w: failed to get project: %v", domain.ErrPersistenceFailure, err)
	}
	return project, nil
}

func (r *projectRepository) List(ctx context.Context, workspaceID uuid.UUID) ([]domain.Project, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT doc, version FROM projects
		WHERE workspace_id = $1
		ORDER BY created_at`,
		workspaceID,
	)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to list projects: %v", domain.ErrPersistenceFailure, err)
	}
	defer rows.Close()

	var projects []domain.Project
	for rows.Next() {
		project, err := scanProject(rows)
		if err != nil {
			return nil, fmt.Errorf("%w: failed to scan project: %v", domain.ErrPersistenceFailure, err)
		}
		projects = append(projects, project)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: failed to read projects: %v", domain.ErrPersistenceFailure, err)
	}
	return projects, nil
}

func (r *projectRepository) Update(ctx context.Context, project domain.Project) (domain.Project, error) {
	doc, err := json.Marshal(project)
	if err != nil {
		return domain.Project{}, fmt.Errorf("failed to marshal project document: %w", err)
	}

	var newVersion int64
	err = r.pool.QueryRow(ctx, `
		UPDATE projects
		SET doc = $2, version = version + 1, updated_at = $3
		WHERE id = $1 AND version = $4
		RETURNING version`,
		project.ID, doc, project.UpdatedAt, project.Version,
	).Scan(&newVersion)
	if err == nil {
		project.Version = newVersion
		return project, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return domain.Project{}, fmt.Errorf("%w: failed to update project: %v", domain.ErrPersistenceFailure, err)
	}

	var exists bool
	if probeErr := r.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM projects WHERE id = $1)`, project.ID,
	).Scan(&exists); probeErr != nil {
		return domain.Project{}, fmt.Errorf("%w: failed to probe project: %v", domain.ErrPersistenceFailure, probeErr)
	}
	if !exists {
		return domain.Project{}, fmt.Errorf("project %s: %w", project.ID, domain.ErrNotFound)
	}
	return domain.Project{}, fmt.Errorf("project %s at version %d: %w",
		project.ID, project.Version, domain.ErrConcurrentModification)
}

func (r *projectRepository) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM projects WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("%w: failed to delete project: %v", domain.ErrPersistenceFailure, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("project %s: %w", id, domain.ErrNotFound)
	}
	return nil
}

func scanProject(row pgx.Row) (domain.Project, error) {
	var doc []byte
	var version int64
	if err := row.Scan(&doc, &version); err != nil {
		return domain.Project{}, err
	}
	var project domain.Project
	if err := json.Unmarshal(doc, &project); err != nil {
		return domain.Project{}, fmt.Errorf("failed to unmarshal project document: %w", err)
	}
	project.Version = version
	return project, nil
}
