package domain

import (
	"fmt"
	"math/rand"
	"strings"
	"time"
	"unicode"

	"github.com/google/uuid"
)

// ProjectStatus enumerates project lifecycle states.
type ProjectStatus string

const (
	ProjectPlanning  ProjectStatus = "Planning"
	ProjectActive    ProjectStatus = "Active"
	ProjectOnHold    ProjectStatus = "On Hold"
	ProjectCompleted ProjectStatus = "Completed"
)

// Valid reports whether s is a known project state.
func (s ProjectStatus) Valid() bool {
	switch s {
	case ProjectPlanning, ProjectActive, ProjectOnHold, ProjectCompleted:
		return true
	}
	return false
}

// ProjectMutableFields is the allow-list of project fields that may change
// post-creation.
var ProjectMutableFields = []string{
	FieldName,
	FieldDescription,
	FieldCategory,
	FieldEstimate,
	FieldTeam,
	FieldBoardID,
	FieldPriority,
	FieldStatus,
	FieldColor,
}

// projectColors is the palette a project is assigned from when created
// without an explicit color.
var projectColors = []string{
	"#FFC107", "#FF5722", "#4CAF50", "#9C27B0", "#03A9F4", "#F44336", "#CDDC39",
}

// Project is a long-lived container entity. It shares the issue's audited
// mutation shape: a mutable field map, an append-only status log and a
// bounded field change ledger. Projects carry no board membership log.
type Project struct {
	ID            uuid.UUID      `json:"id"`
	Key           string         `json:"key"`
	WorkspaceID   uuid.UUID      `json:"workspace_id"`
	Fields        map[string]any `json:"fields"`
	StatusHistory []StatusChange `json:"status_history"`
	UpdateHistory []FieldChange  `json:"update_history"`
	CreatedAt     time.Time      `json:"created_at"`
	UpdatedAt     time.Time      `json:"updated_at"`
	Version       int64          `json:"-"`
}

// NewProjectParams carries the creation input for a project.
type NewProjectParams struct {
	WorkspaceID uuid.UUID
	Name        string
	Status      ProjectStatus // defaults to Planning
	Priority    Priority      // defaults to Medium
	Color       string        // defaults to a palette pick
	Creator     uuid.UUID
	CreatedAt   time.Time // zero value means now
}

// NewProject builds a project and seeds its status log.
func NewProject(p NewProjectParams) (Project, error) {
	if strings.TrimSpace(p.Name) == "" {
		return Project{}, fmt.Errorf("project name is required")
	}
	if p.Status == "" {
		p.Status = ProjectPlanning
	}
	if !p.Status.Valid() {
		return Project{}, fmt.Errorf("invalid project status %q", p.Status)
	}
	if p.Priority == "" {
		p.Priority = PriorityMedium
	}
	if !p.Priority.Valid() {
		return Project{}, fmt.Errorf("invalid priority %q", p.Priority)
	}
	if p.Color == "" {
		p.Color = projectColors[rand.Intn(len(projectColors))]
	}

	createdAt := p.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	project := Project{
		ID:          uuid.New(),
		Key:         GenerateProjectKey(p.Name),
		WorkspaceID: p.WorkspaceID,
		Fields: map[string]any{
			FieldName:     p.Name,
			FieldCategory: "project",
			FieldStatus:   string(p.Status),
			FieldPriority: string(p.Priority),
			FieldColor:    p.Color,
		},
		StatusHistory: []StatusChange{{
			Status:    Status(p.Status),
			Timestamp: createdAt,
			ChangedBy: p.Creator,
		}},
		CreatedAt: createdAt,
		UpdatedAt: createdAt,
		Version:   1,
	}
	return project, nil
}

// GenerateProjectKey builds a project key from the name's initials,
// e.g. PRJ-AB-412.
func GenerateProjectKey(name string) string {
	initials := strings.Builder{}
	for _, word := range strings.Fields(name) {
		for _, r := range word {
			if unicode.IsLetter(r) {
				initials.WriteRune(unicode.ToUpper(r))
				break
			}
		}
	}
	prefix := initials.String()
	if prefix == "" {
		prefix = "P"
	}
	return fmt.Sprintf("PRJ-%s-%d", prefix, rand.Intn(1000))
}

// ApplyChanges returns a copy of the project with a validated diff batch
// applied. Status changes append to the status log; every batch merges
// into the bounded update ledger. The receiver is never modified.
func (p Project) ApplyChanges(batch []FieldChange, updater uuid.UUID, at time.Time) (Project, error) {
	out := p.clone()
	out.UpdatedAt = at

	stamped := make([]FieldChange, len(batch))
	for idx, change := range batch {
		change.UpdatedBy = updater
		change.UpdatedAt = at
		stamped[idx] = change

		if change.Field == FieldStatus {
			s, ok := change.NewValue.(string)
			if !ok || !ProjectStatus(s).Valid() {
				return Project{}, fmt.Errorf("invalid project status %v", change.NewValue)
			}
			out.StatusHistory = append(out.StatusHistory, StatusChange{
				Status:    Status(s),
				Timestamp: at,
				ChangedBy: updater,
			})
		}
		out.Fields[change.Field] = change.NewValue
	}

	out.UpdateHistory = MergeUpdateHistory(out.UpdateHistory, stamped)
	return out, nil
}

// Status returns the current project state.
func (p Project) Status() ProjectStatus {
	if s, ok := p.Fields[FieldStatus].(string); ok {
		return ProjectStatus(s)
	}
	return ""
}

// FieldSnapshot returns a copy of the mutable field map for diffing.
func (p Project) FieldSnapshot() map[string]any {
	return cloneFields(p.Fields)
}

func (p Project) clone() Project {
	out := p
	out.Fields = cloneFields(p.Fields)
	out.StatusHistory = append([]StatusChange(nil), p.StatusHistory...)
	out.UpdateHistory = append([]FieldChange(nil), p.UpdateHistory...)
	return out
}
