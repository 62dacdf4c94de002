// Package mutation turns raw update requests into audited, bounded-history
// field diffs on long-lived entities. The orchestrator is the single entry
// point for mutating issues and projects; every change flows through the
// diff engine, the temporal event logs and the bounded update ledger
// before one atomic document write.
package mutation

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/rpattn/sprintmetrics/internal/domain"
	"github.com/rpattn/sprintmetrics/internal/events"
	"github.com/rpattn/sprintmetrics/internal/repository"
)

// Sink receives the engine's post-commit events. *events.Dispatcher
// satisfies it; a nil sink disables emission.
type Sink interface {
	Enqueue(event events.Event)
}

// Orchestrator composes the diff engine, the bounded history ledger and
// the temporal event logs to apply validated updates atomically, one
// entity at a time.
type Orchestrator struct {
	issues   repository.IssueRepository
	projects repository.ProjectRepository
	boards   repository.BoardRepository
	sink     Sink
	locks    *entityLocks
	now      func() time.Time
}

// NewOrchestrator wires the orchestrator against its collaborators. sink
// may be nil when no event fan-out is configured.
func NewOrchestrator(
	issues repository.IssueRepository,
	projects repository.ProjectRepository,
	boards repository.BoardRepository,
	sink Sink,
) *Orchestrator {
	return &Orchestrator{
		issues:   issues,
		projects: projects,
		boards:   boards,
		sink:     sink,
		locks:    newEntityLocks(),
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// ApplyIssueUpdate applies one validated update to one issue. Updates to
// the same issue are serialized; a stale read surfaces as
// ErrConcurrentModification from the store and is never retried here.
// No history log or stored state is touched unless every step succeeds,
// and the sink is notified at most once, only after the write is durable.
func (o *Orchestrator) ApplyIssueUpdate(ctx context.Context, id uuid.UUID, fields map[string]any, updater uuid.UUID) (domain.Issue, error) {
	unlock := o.locks.lock(id)
	defer unlock()

	issue, err := o.issues.GetByID(ctx, id)
	if err != nil {
		return domain.Issue{}, err
	}

	batch, err := domain.ComputeDiff(issue.FieldSnapshot(), fields, domain.IssueMutableFields)
	if err != nil {
		if errors.Is(err, domain.ErrEmptyUpdate) {
			return domain.Issue{}, fmt.Errorf("issue %s: %w", id, domain.ErrNoChangesDetected)
		}
		return domain.Issue{}, err
	}

	if err := domain.ValidateIssueChanges(batch); err != nil {
		return domain.Issue{}, fmt.Errorf("issue %s: %w", id, err)
	}
	if err := o.checkIssueReferences(ctx, batch); err != nil {
		return domain.Issue{}, fmt.Errorf("issue %s: %w", id, err)
	}

	updated, err := issue.ApplyChanges(batch, updater, o.now())
	if err != nil {
		return domain.Issue{}, fmt.Errorf("issue %s: %w", id, err)
	}

	persisted, err := o.issues.Update(ctx, updated)
	if err != nil {
		return domain.Issue{}, err
	}

	o.emit(events.TypeIssueUpdated, persisted.ID, persisted)
	return persisted, nil
}

// ApplyProjectUpdate is the project counterpart of ApplyIssueUpdate.
func (o *Orchestrator) ApplyProjectUpdate(ctx context.Context, id uuid.UUID, fields map[string]any, updater uuid.UUID) (domain.Project, error) {
	unlock := o.locks.lock(id)
	defer unlock()

	project, err := o.projects.GetByID(ctx, id)
	if err != nil {
		return domain.Project{}, err
	}

	batch, err := domain.ComputeDiff(project.FieldSnapshot(), fields, domain.ProjectMutableFields)
	if err != nil {
		if errors.Is(err, domain.ErrEmptyUpdate) {
			return domain.Project{}, fmt.Errorf("project %s: %w", id, domain.ErrNoChangesDetected)
		}
		return domain.Project{}, err
	}

	if err := domain.ValidateProjectChanges(batch); err != nil {
		return domain.Project{}, fmt.Errorf("project %s: %w", id, err)
	}
	for _, change := range batch {
		if change.Field == domain.FieldBoardID && change.NewValue != nil {
			if err := o.boardExists(ctx, change.NewValue); err != nil {
				return domain.Project{}, fmt.Errorf("project %s: %w", id, err)
			}
		}
	}

	updated, err := project.ApplyChanges(batch, updater, o.now())
	if err != nil {
		return domain.Project{}, fmt.Errorf("project %s: %w", id, err)
	}

	persisted, err := o.projects.Update(ctx, updated)
	if err != nil {
		return domain.Project{}, err
	}

	o.emit(events.TypeProjectUpdated, persisted.ID, persisted)
	return persisted, nil
}

// CreateIssue builds and persists a new issue, seeding its initial status
// and board history entries.
func (o *Orchestrator) CreateIssue(ctx context.Context, params domain.NewIssueParams) (domain.Issue, error) {
	if params.BoardID != nil {
		if _, err := o.boards.GetByID(ctx, *params.BoardID); err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				return domain.Issue{}, fmt.Errorf("%w: board %s does not exist", domain.ErrInvalidReference, params.BoardID)
			}
			return domain.Issue{}, err
		}
	}

	issue, err := domain.NewIssue(params)
	if err != nil {
		return domain.Issue{}, err
	}
	persisted, err := o.issues.Create(ctx, issue)
	if err != nil {
		return domain.Issue{}, err
	}
	o.emit(events.TypeIssueCreated, persisted.ID, persisted)
	return persisted, nil
}

// CreateProject builds and persists a new project.
func (o *Orchestrator) CreateProject(ctx context.Context, params domain.NewProjectParams) (domain.Project, error) {
	project, err := domain.NewProject(params)
	if err != nil {
		return domain.Project{}, err
	}
	persisted, err := o.projects.Create(ctx, project)
	if err != nil {
		return domain.Project{}, err
	}
	o.emit(events.TypeProjectCreated, persisted.ID, persisted)
	return persisted, nil
}

// CreateBoard builds and persists a new sprint board.
func (o *Orchestrator) CreateBoard(ctx context.Context, workspaceID uuid.UUID, title string, startDate, endDate time.Time) (domain.Board, error) {
	board, err := domain.NewBoard(workspaceID, title, startDate, endDate)
	if err != nil {
		return domain.Board{}, err
	}
	persisted, err := o.boards.Create(ctx, board)
	if err != nil {
		return domain.Board{}, err
	}
	o.emit(events.TypeBoardCreated, persisted.ID, persisted)
	return persisted, nil
}

// checkIssueReferences verifies that every reference the batch introduces
// resolves to an existing entity of the right kind.
func (o *Orchestrator) checkIssueReferences(ctx context.Context, batch []domain.FieldChange) error {
	for _, change := range batch {
		if change.NewValue == nil {
			continue
		}
		switch change.Field {
		case domain.FieldBoardID:
			if err := o.boardExists(ctx, change.NewValue); err != nil {
				return err
			}
		case domain.FieldParent, domain.FieldEpic:
			ref, err := domain.UUIDValue(change.NewValue)
			if err != nil {
				return fmt.Errorf("%w: %v", domain.ErrInvalidReference, err)
			}
			target, err := o.issues.GetByID(ctx, ref)
			if err != nil {
				if errors.Is(err, domain.ErrNotFound) {
					return fmt.Errorf("%w: issue %s does not exist", domain.ErrInvalidReference, ref)
				}
				return err
			}
			if change.Field == domain.FieldEpic && target.IssueType() != domain.TypeEpic {
				return fmt.Errorf("%w: issue %s is a %s, not an epic", domain.ErrInvalidReference, ref, target.IssueType())
			}
		case domain.FieldDependencies:
			issueRefs, projectRefs, err := domain.DependencyRefs(change.NewValue)
			if err != nil {
				return err
			}
			for _, ref := range issueRefs {
				if _, err := o.issues.GetByID(ctx, ref); err != nil {
					if errors.Is(err, domain.ErrNotFound) {
						return fmt.Errorf("%w: dependency issue %s does not exist", domain.ErrInvalidReference, ref)
					}
					return err
				}
			}
			for _, ref := range projectRefs {
				if _, err := o.projects.GetByID(ctx, ref); err != nil {
					if errors.Is(err, domain.ErrNotFound) {
						return fmt.Errorf("%w: dependency project %s does not exist", domain.ErrInvalidReference, ref)
					}
					return err
				}
			}
		}
	}
	return nil
}

func (o *Orchestrator) boardExists(ctx context.Context, value any) error {
	ref, err := domain.UUIDValue(value)
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrInvalidReference, err)
	}
	if _, err := o.boards.GetByID(ctx, ref); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return fmt.Errorf("%w: board %s does not exist", domain.ErrInvalidReference, ref)
		}
		return err
	}
	return nil
}

func (o *Orchestrator) emit(eventType events.Type, entityID uuid.UUID, payload any) {
	if o.sink == nil {
		return
	}
	o.sink.Enqueue(events.Event{
		Type:       eventType,
		EntityID:   entityID,
		OccurredAt: o.now(),
		Payload:    payload,
	})
}
