package mutation

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/rpattn/sprintmetrics/internal/domain"
	"github.com/rpattn/sprintmetrics/internal/events"
	"github.com/rpattn/sprintmetrics/internal/repository"
)

// memStore backs the fake repositories. Documents round-trip through JSON
// on every read and write so field values degrade exactly as they do
// coming back from the real store (numbers to float64, ids to strings).
type memStore struct {
	mu       sync.Mutex
	issues   map[uuid.UUID]domain.Issue
	projects map[uuid.UUID]domain.Project
	boards   map[uuid.UUID]domain.Board

	failWrites bool
}

func newMemStore() *memStore {
	return &memStore{
		issues:   make(map[uuid.UUID]domain.Issue),
		projects: make(map[uuid.UUID]domain.Project),
		boards:   make(map[uuid.UUID]domain.Board),
	}
}

func roundTripIssue(issue domain.Issue) domain.Issue {
	doc, _ := json.Marshal(issue)
	var out domain.Issue
	_ = json.Unmarshal(doc, &out)
	out.Version = issue.Version
	return out
}

func roundTripProject(project domain.Project) domain.Project {
	doc, _ := json.Marshal(project)
	var out domain.Project
	_ = json.Unmarshal(doc, &out)
	out.Version = project.Version
	return out
}

type memIssues struct{ s *memStore }

func (r memIssues) Create(_ context.Context, issue domain.Issue) (domain.Issue, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.failWrites {
		return domain.Issue{}, fmt.Errorf("%w: store offline", domain.ErrPersistenceFailure)
	}
	r.s.issues[issue.ID] = roundTripIssue(issue)
	return r.s.issues[issue.ID], nil
}

func (r memIssues) GetByID(_ context.Context, id uuid.UUID) (domain.Issue, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	issue, ok := r.s.issues[id]
	if !ok {
		return domain.Issue{}, fmt.Errorf("issue %s: %w", id, domain.ErrNotFound)
	}
	return roundTripIssue(issue), nil
}

func (r memIssues) List(_ context.Context, filter domain.IssueFilter) ([]domain.Issue, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []domain.Issue
	for _, issue := range r.s.issues {
		if filter.Matches(issue) {
			out = append(out, roundTripIssue(issue))
		}
	}
	return out, nil
}

func (r memIssues) ListByBoard(_ context.Context, boardID uuid.UUID) ([]domain.Issue, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []domain.Issue
	for _, issue := range r.s.issues {
		if id, ok := issue.BoardID(); ok && id == boardID {
			out = append(out, roundTripIssue(issue))
		}
	}
	return out, nil
}

func (r memIssues) ListByBoardHistory(_ context.Context, boardID uuid.UUID) ([]domain.Issue, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []domain.Issue
	for _, issue := range r.s.issues {
		for _, tr := range issue.BoardHistory {
			if tr.BoardID == boardID {
				out = append(out, roundTripIssue(issue))
				break
			}
		}
	}
	return out, nil
}

func (r memIssues) Update(_ context.Context, issue domain.Issue) (domain.Issue, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.failWrites {
		return domain.Issue{}, fmt.Errorf("%w: store offline", domain.ErrPersistenceFailure)
	}
	current, ok := r.s.issues[issue.ID]
	if !ok {
		return domain.Issue{}, fmt.Errorf("issue %s: %w", issue.ID, domain.ErrNotFound)
	}
	if current.Version != issue.Version {
		return domain.Issue{}, fmt.Errorf("issue %s at version %d: %w",
			issue.ID, issue.Version, domain.ErrConcurrentModification)
	}
	issue.Version++
	r.s.issues[issue.ID] = roundTripIssue(issue)
	return r.s.issues[issue.ID], nil
}

func (r memIssues) Delete(_ context.Context, id uuid.UUID) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.issues[id]; !ok {
		return fmt.Errorf("issue %s: %w", id, domain.ErrNotFound)
	}
	delete(r.s.issues, id)
	return nil
}

type memProjects struct{ s *memStore }

func (r memProjects) Create(_ context.Context, project domain.Project) (domain.Project, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.failWrites {
		return domain.Project{}, fmt.Errorf("%w: store offline", domain.ErrPersistenceFailure)
	}
	r.s.projects[project.ID] = roundTripProject(project)
	return r.s.projects[project.ID], nil
}

func (r memProjects) GetByID(_ context.Context, id uuid.UUID) (domain.Project, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	project, ok := r.s.projects[id]
	if !ok {
		return domain.Project{}, fmt.Errorf("project %s: %w", id, domain.ErrNotFound)
	}
	return roundTripProject(project), nil
}

func (r memProjects) List(_ context.Context, workspaceID uuid.UUID) ([]domain.Project, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []domain.Project
	for _, project := range r.s.projects {
		if project.WorkspaceID == workspaceID {
			out = append(out, roundTripProject(project))
		}
	}
	return out, nil
}

func (r memProjects) Update(_ context.Context, project domain.Project) (domain.Project, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.failWrites {
		return domain.Project{}, fmt.Errorf("%w: store offline", domain.ErrPersistenceFailure)
	}
	current, ok := r.s.projects[project.ID]
	if !ok {
		return domain.Project{}, fmt.Errorf("project %s: %w", project.ID, domain.ErrNotFound)
	}
	if current.Version != project.Version {
		return domain.Project{}, fmt.Errorf("project %s at version %d: %w",
			project.ID, project.Version, domain.ErrConcurrentModification)
	}
	project.Version++
	r.s.projects[project.ID] = roundTripProject(project)
	return r.s.projects[project.ID], nil
}

func (r memProjects) Delete(_ context.Context, id uuid.UUID) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.projects[id]; !ok {
		return fmt.Errorf("project %s: %w", id, domain.ErrNotFound)
	}
	delete(r.s.projects, id)
	return nil
}

type memBoards struct{ s *memStore }

func (r memBoards) Create(_ context.Context, board domain.Board) (domain.Board, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.boards[board.ID] = board
	return board, nil
}

func (r memBoards) GetByID(_ context.Context, id uuid.UUID) (domain.Board, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	board, ok := r.s.boards[id]
	if !ok {
		return domain.Board{}, fmt.Errorf("board %s: %w", id, domain.ErrNotFound)
	}
	return board, nil
}

func (r memBoards) List(_ context.Context, workspaceID uuid.UUID) ([]domain.Board, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []domain.Board
	for _, board := range r.s.boards {
		if board.WorkspaceID == workspaceID {
			out = append(out, board)
		}
	}
	return out, nil
}

type recordingSink struct {
	mu     sync.Mutex
	events []events.Event
}

func (s *recordingSink) Enqueue(event events.Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, event)
}

func (s *recordingSink) recorded() []events.Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]events.Event(nil), s.events...)
}

var (
	_ repository.IssueRepository   = memIssues{}
	_ repository.ProjectRepository = memProjects{}
	_ repository.BoardRepository   = memBoards{}
)
