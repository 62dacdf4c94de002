package mutation

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/rpattn/sprintmetrics/internal/domain"
	"github.com/rpattn/sprintmetrics/internal/events"
)

type fixture struct {
	store        *memStore
	sink         *recordingSink
	orchestrator *Orchestrator
	board        domain.Board
	workspace    uuid.UUID
	updater      uuid.UUID
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := newMemStore()
	sink := &recordingSink{}
	orchestrator := NewOrchestrator(memIssues{store}, memProjects{store}, memBoards{store}, sink)

	workspace := uuid.New()
	board, err := orchestrator.CreateBoard(context.Background(), workspace, "Sprint 1",
		time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2024, 1, 14, 0, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("failed to create board: %v", err)
	}
	return &fixture{
		store:        store,
		sink:         sink,
		orchestrator: orchestrator,
		board:        board,
		workspace:    workspace,
		updater:      uuid.New(),
	}
}

func (f *fixture) createIssue(t *testing.T, title string, points int) domain.Issue {
	t.Helper()
	issue, err := f.orchestrator.CreateIssue(context.Background(), domain.NewIssueParams{
		WorkspaceID: f.workspace,
		Title:       title,
		Type:        domain.TypeTask,
		StoryPoints: points,
		BoardID:     &f.board.ID,
		Creator:     f.updater,
	})
	if err != nil {
		t.Fatalf("failed to create issue: %v", err)
	}
	return issue
}

func TestApplyIssueUpdateNotFound(t *testing.T) {
	f := newFixture(t)
	_, err := f.orchestrator.ApplyIssueUpdate(context.Background(), uuid.New(),
		map[string]any{domain.FieldStatus: "Done"}, f.updater)
	if !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestApplyIssueUpdateHappyPath(t *testing.T) {
	f := newFixture(t)
	issue := f.createIssue(t, "Ship search", 5)

	updated, err := f.orchestrator.ApplyIssueUpdate(context.Background(), issue.ID,
		map[string]any{domain.FieldStatus: "In Progress", domain.FieldStoryPoints: 8}, f.updater)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if updated.Status() != domain.StatusInProgress {
		t.Errorf("status not applied: %s", updated.Status())
	}
	if updated.StoryPoints() != 8 {
		t.Errorf("story points not applied: %d", updated.StoryPoints())
	}
	if updated.Version != issue.Version+1 {
		t.Errorf("version not bumped: %d -> %d", issue.Version, updated.Version)
	}
	if len(updated.StatusHistory) != 2 {
		t.Errorf("expected status transition appended, got %d entries", len(updated.StatusHistory))
	}
	if len(updated.UpdateHistory) != 2 {
		t.Errorf("expected 2 ledger entries, got %d", len(updated.UpdateHistory))
	}

	recorded := f.sink.recorded()
	// CreateBoard + CreateIssue + this update.
	if len(recorded) != 3 || recorded[2].Type != events.TypeIssueUpdated {
		t.Errorf("expected exactly one IssueUpdated event, got %#v", recorded)
	}
}

func TestApplyIssueUpdateRejectsNoOp(t *testing.T) {
	f := newFixture(t)
	issue := f.createIssue(t, "Ship search", 5)

	update := map[string]any{domain.FieldStatus: "Done"}
	if _, err := f.orchestrator.ApplyIssueUpdate(context.Background(), issue.ID, update, f.updater); err != nil {
		t.Fatalf("first update should apply: %v", err)
	}
	before, _ := memIssues{f.store}.GetByID(context.Background(), issue.ID)
	eventsBefore := len(f.sink.recorded())

	_, err := f.orchestrator.ApplyIssueUpdate(context.Background(), issue.ID, update, f.updater)
	if !errors.Is(err, domain.ErrNoChangesDetected) {
		t.Fatalf("expected ErrNoChangesDetected, got %v", err)
	}

	// The rejection must short-circuit before any mutation.
	after, _ := memIssues{f.store}.GetByID(context.Background(), issue.ID)
	if len(after.StatusHistory) != len(before.StatusHistory) ||
		len(after.BoardHistory) != len(before.BoardHistory) ||
		len(after.UpdateHistory) != len(before.UpdateHistory) {
		t.Errorf("no-op rejection mutated history")
	}
	if after.Version != before.Version {
		t.Errorf("no-op rejection bumped version")
	}
	if len(f.sink.recorded()) != eventsBefore {
		t.Errorf("no-op rejection emitted an event")
	}
}

func TestApplyIssueUpdateUnknownFieldsOnlyIsNoOp(t *testing.T) {
	f := newFixture(t)
	issue := f.createIssue(t, "Ship search", 5)

	_, err := f.orchestrator.ApplyIssueUpdate(context.Background(), issue.ID,
		map[string]any{"issue_type": "Bug", "votes": 3}, f.updater)
	if !errors.Is(err, domain.ErrNoChangesDetected) {
		t.Fatalf("expected ErrNoChangesDetected for allow-list misses, got %v", err)
	}
}

func TestApplyIssueUpdateInvalidReferences(t *testing.T) {
	f := newFixture(t)
	issue := f.createIssue(t, "Ship search", 5)
	other := f.createIssue(t, "Not an epic", 2)

	cases := map[string]map[string]any{
		"missing board":    {domain.FieldBoardID: uuid.New().String()},
		"missing parent":   {domain.FieldParent: uuid.New().String()},
		"epic is not epic": {domain.FieldEpic: other.ID.String()},
		"missing dependency": {domain.FieldDependencies: map[string]any{
			"issues": []any{uuid.New().String()},
		}},
	}
	for name, update := range cases {
		if _, err := f.orchestrator.ApplyIssueUpdate(context.Background(), issue.ID, update, f.updater); !errors.Is(err, domain.ErrInvalidReference) {
			t.Errorf("%s: expected ErrInvalidReference, got %v", name, err)
		}
	}
}

func TestApplyIssueUpdateBoardMoveWritesTransitions(t *testing.T) {
	f := newFixture(t)
	issue := f.createIssue(t, "Ship search", 5)

	next, err := f.orchestrator.CreateBoard(context.Background(), f.workspace, "Sprint 2",
		time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC),
		time.Date(2024, 1, 28, 0, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("failed to create board: %v", err)
	}

	updated, err := f.orchestrator.ApplyIssueUpdate(context.Background(), issue.ID,
		map[string]any{domain.FieldBoardID: next.ID.String()}, f.updater)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(updated.BoardHistory) != 3 {
		t.Fatalf("expected removed+added appended, got %d entries", len(updated.BoardHistory))
	}
	if current, ok := domain.CurrentBoard(updated.BoardHistory); !ok || current != next.ID {
		t.Errorf("current board should be sprint 2")
	}
}

func TestApplyIssueUpdatePersistenceFailureEmitsNothing(t *testing.T) {
	f := newFixture(t)
	issue := f.createIssue(t, "Ship search", 5)
	eventsBefore := len(f.sink.recorded())

	f.store.failWrites = true
	_, err := f.orchestrator.ApplyIssueUpdate(context.Background(), issue.ID,
		map[string]any{domain.FieldStatus: "Done"}, f.updater)
	if !errors.Is(err, domain.ErrPersistenceFailure) {
		t.Fatalf("expected ErrPersistenceFailure, got %v", err)
	}
	if len(f.sink.recorded()) != eventsBefore {
		t.Errorf("failed write must not publish an event")
	}

	// The stored document is untouched.
	f.store.failWrites = false
	stored, _ := memIssues{f.store}.GetByID(context.Background(), issue.ID)
	if stored.Status() != domain.StatusBacklog || len(stored.StatusHistory) != 1 {
		t.Errorf("failed write left partial state: %#v", stored.StatusHistory)
	}
}

func TestStaleWriterFailsWithConcurrentModification(t *testing.T) {
	f := newFixture(t)
	issue := f.createIssue(t, "Ship search", 5)

	// Two writers read the same base version; the slower one loses.
	base, err := memIssues{f.store}.GetByID(context.Background(), issue.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	first, err := base.ApplyChanges([]domain.FieldChange{
		{Field: domain.FieldStatus, OldValue: "Backlog", NewValue: "In Progress"},
	}, f.updater, time.Now())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	second, err := base.ApplyChanges([]domain.FieldChange{
		{Field: domain.FieldStatus, OldValue: "Backlog", NewValue: "Done"},
	}, f.updater, time.Now())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if _, err := (memIssues{f.store}).Update(context.Background(), first); err != nil {
		t.Fatalf("first writer should win: %v", err)
	}
	if _, err := (memIssues{f.store}).Update(context.Background(), second); !errors.Is(err, domain.ErrConcurrentModification) {
		t.Fatalf("second writer must fail with ErrConcurrentModification, got %v", err)
	}
}

func TestConcurrentUpdatesToSameIssueSerialize(t *testing.T) {
	f := newFixture(t)
	issue := f.createIssue(t, "Ship search", 0)

	const writers = 8
	var wg sync.WaitGroup
	errs := make([]error, writers)
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			_, errs[n] = f.orchestrator.ApplyIssueUpdate(context.Background(), issue.ID,
				map[string]any{domain.FieldStoryPoints: n + 1}, f.updater)
		}(i)
	}
	wg.Wait()

	// Serialized through the per-entity lock, every writer sees a fresh
	// read; some may lose the diff race (same value) but none may see a
	// version conflict.
	for i, err := range errs {
		if err != nil && !errors.Is(err, domain.ErrNoChangesDetected) {
			t.Errorf("writer %d: unexpected error: %v", i, err)
		}
	}

	final, _ := memIssues{f.store}.GetByID(context.Background(), issue.ID)
	if final.StoryPoints() == 0 {
		t.Errorf("no update landed")
	}
	if len(final.UpdateHistory) > domain.UpdateHistoryLimit {
		t.Errorf("ledger exceeded capacity: %d", len(final.UpdateHistory))
	}
}

func TestApplyProjectUpdateStatusFlow(t *testing.T) {
	f := newFixture(t)
	project, err := f.orchestrator.CreateProject(context.Background(), domain.NewProjectParams{
		WorkspaceID: f.workspace,
		Name:        "Billing Revamp",
		Creator:     f.updater,
	})
	if err != nil {
		t.Fatalf("failed to create project: %v", err)
	}

	updated, err := f.orchestrator.ApplyProjectUpdate(context.Background(), project.ID,
		map[string]any{domain.FieldStatus: "Active", domain.FieldDescription: "Q1 initiative"}, f.updater)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if updated.Status() != domain.ProjectActive {
		t.Errorf("status not applied: %s", updated.Status())
	}
	if len(updated.StatusHistory) != 2 {
		t.Errorf("expected status transition appended, got %d", len(updated.StatusHistory))
	}

	if _, err := f.orchestrator.ApplyProjectUpdate(context.Background(), project.ID,
		map[string]any{domain.FieldStatus: "Active"}, f.updater); !errors.Is(err, domain.ErrNoChangesDetected) {
		t.Errorf("expected ErrNoChangesDetected on repeat, got %v", err)
	}
}

func TestLedgerKeepsFiveMostRecentAcrossUpdates(t *testing.T) {
	f := newFixture(t)
	issue := f.createIssue(t, "Ship search", 0)

	for points := 1; points <= 7; points++ {
		if _, err := f.orchestrator.ApplyIssueUpdate(context.Background(), issue.ID,
			map[string]any{domain.FieldStoryPoints: points}, f.updater); err != nil {
			t.Fatalf("update %d failed: %v", points, err)
		}
	}

	final, _ := memIssues{f.store}.GetByID(context.Background(), issue.ID)
	if len(final.UpdateHistory) != domain.UpdateHistoryLimit {
		t.Fatalf("expected full ledger, got %d entries", len(final.UpdateHistory))
	}
	// Entries 3..7, in application order.
	for i, entry := range final.UpdateHistory {
		want := float64(i + 3)
		if got, ok := entry.NewValue.(float64); !ok || got != want {
			t.Errorf("slot %d: expected new value %v, got %v", i, want, entry.NewValue)
		}
	}
}
