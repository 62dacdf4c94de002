package domain

import (
	"fmt"
	"math/rand"
	"strings"
	"time"
	"unicode"

	"github.com/google/uuid"
)

// Status enumerates the issue workflow states.
type Status string

const (
	StatusBacklog    Status = "Backlog"
	StatusToDo       Status = "To Do"
	StatusInProgress Status = "In Progress"
	StatusReview     Status = "Review"
	StatusOnHold     Status = "On Hold"
	StatusDone       Status = "Done"
	StatusCancelled  Status = "Cancelled"
)

// Valid reports whether s is a known workflow state.
func (s Status) Valid() bool {
	switch s {
	case StatusBacklog, StatusToDo, StatusInProgress, StatusReview,
		StatusOnHold, StatusDone, StatusCancelled:
		return true
	}
	return false
}

// Priority enumerates issue priorities.
type Priority string

const (
	PriorityHigh   Priority = "High"
	PriorityMedium Priority = "Medium"
	PriorityLow    Priority = "Low"
)

// Valid reports whether p is a known priority.
func (p Priority) Valid() bool {
	switch p {
	case PriorityHigh, PriorityMedium, PriorityLow:
		return true
	}
	return false
}

// IssueType enumerates issue categories.
type IssueType string

const (
	TypeEpic           IssueType = "Epic"
	TypeStory          IssueType = "Story"
	TypeTask           IssueType = "Task"
	TypeBug            IssueType = "Bug"
	TypeSubTask        IssueType = "Sub-task"
	TypeIncident       IssueType = "Incident"
	TypeServiceRequest IssueType = "Service Request"
	TypeImprovement    IssueType = "Improvement"
	TypeSpike          IssueType = "Spike"
)

// Valid reports whether t is a known issue type.
func (t IssueType) Valid() bool {
	switch t {
	case TypeEpic, TypeStory, TypeTask, TypeBug, TypeSubTask,
		TypeIncident, TypeServiceRequest, TypeImprovement, TypeSpike:
		return true
	}
	return false
}

// Field names recognized in entity field maps. Values cross the store
// boundary as JSON, so references are held as uuid strings and dates as
// RFC 3339 strings.
const (
	FieldTitle        = "title"
	FieldDescription  = "description"
	FieldIssueType    = "issue_type"
	FieldStatus       = "status"
	FieldPriority     = "priority"
	FieldStoryPoints  = "story_points"
	FieldBoardID      = "board_id"
	FieldParent       = "parent"
	FieldEpic         = "epic"
	FieldAssignees    = "assignees"
	FieldDependencies = "dependencies"
	FieldEndDate      = "end_date"
	FieldColor        = "color"

	FieldName     = "name"
	FieldCategory = "category"
	FieldEstimate = "estimate"
	FieldTeam     = "team"
)

// IssueMutableFields is the allow-list of issue fields that may change
// post-creation. The issue type is fixed at creation.
var IssueMutableFields = []string{
	FieldTitle,
	FieldDescription,
	FieldPriority,
	FieldStatus,
	FieldStoryPoints,
	FieldBoardID,
	FieldParent,
	FieldEpic,
	FieldAssignees,
	FieldDependencies,
	FieldEndDate,
	FieldColor,
}

// Issue is a long-lived tracked work item. The mutable state lives in
// Fields; the three history logs record every audited transition. Version
// is the optimistic concurrency token checked at the store boundary.
type Issue struct {
	ID            uuid.UUID         `json:"id"`
	Key           string            `json:"key"`
	WorkspaceID   uuid.UUID         `json:"workspace_id"`
	Fields        map[string]any    `json:"fields"`
	StatusHistory []StatusChange    `json:"status_history"`
	BoardHistory  []BoardTransition `json:"board_history"`
	UpdateHistory []FieldChange     `json:"update_history"`
	CreatedAt     time.Time         `json:"created_at"`
	UpdatedAt     time.Time         `json:"updated_at"`
	Version       int64             `json:"-"`
}

// NewIssueParams carries the creation input for an issue.
type NewIssueParams struct {
	WorkspaceID uuid.UUID
	Title       string
	Type        IssueType
	Status      Status   // defaults to Backlog
	Priority    Priority // defaults to Medium
	StoryPoints int
	BoardID     *uuid.UUID
	Creator     uuid.UUID
	CreatedAt   time.Time // zero value means now
}

// NewIssue builds an issue with its initial field map and seeds the status
// log with the creation status. When the issue is born onto a board the
// board log receives its implicit initial "added" entry.
func NewIssue(p NewIssueParams) (Issue, error) {
	if strings.TrimSpace(p.Title) == "" {
		return Issue{}, fmt.Errorf("issue title is required")
	}
	if !p.Type.Valid() {
		return Issue{}, fmt.Errorf("invalid issue type %q", p.Type)
	}
	if p.Status == "" {
		p.Status = StatusBacklog
	}
	if !p.Status.Valid() {
		return Issue{}, fmt.Errorf("invalid status %q", p.Status)
	}
	if p.Priority == "" {
		p.Priority = PriorityMedium
	}
	if !p.Priority.Valid() {
		return Issue{}, fmt.Errorf("invalid priority %q", p.Priority)
	}
	if p.StoryPoints < 0 {
		return Issue{}, fmt.Errorf("story points must be non-negative, got %d", p.StoryPoints)
	}
	if p.Type == TypeEpic && p.BoardID != nil {
		return Issue{}, fmt.Errorf("epics cannot be bound to a board")
	}
	if p.Type != TypeEpic && p.BoardID == nil {
		return Issue{}, fmt.Errorf("%s issues must be bound to a board", p.Type)
	}

	createdAt := p.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	fields := map[string]any{
		FieldTitle:       p.Title,
		FieldIssueType:   string(p.Type),
		FieldStatus:      string(p.Status),
		FieldPriority:    string(p.Priority),
		FieldStoryPoints: p.StoryPoints,
	}
	if p.BoardID != nil {
		fields[FieldBoardID] = p.BoardID.String()
	}

	issue := Issue{
		ID:          uuid.New(),
		Key:         GenerateIssueKey(p.Type, p.Title),
		WorkspaceID: p.WorkspaceID,
		Fields:      fields,
		StatusHistory: []StatusChange{{
			Status:    p.Status,
			Timestamp: createdAt,
			ChangedBy: p.Creator,
		}},
		CreatedAt: createdAt,
		UpdatedAt: createdAt,
		Version:   1,
	}
	if p.BoardID != nil {
		issue.BoardHistory = []BoardTransition{{
			BoardID:   *p.BoardID,
			Action:    BoardActionAdded,
			Timestamp: createdAt,
			MovedBy:   p.Creator,
		}}
	}
	return issue, nil
}

// GenerateIssueKey builds a human-readable issue key from the issue type
// and title, e.g. TASK-C-58201-07.
func GenerateIssueKey(issueType IssueType, title string) string {
	letters := strings.Builder{}
	for _, r := range string(issueType) {
		if unicode.IsLetter(r) {
			letters.WriteRune(unicode.ToUpper(r))
		}
		if letters.Len() == 4 {
			break
		}
	}
	prefix := letters.String()
	if prefix == "" {
		prefix = "WORK"
	}

	titleChar := byte('X')
	for i := 0; i < len(title); i++ {
		c := title[i]
		if c >= 'a' && c <= 'z' {
			titleChar = c - 'a' + 'A'
			break
		}
		if c >= 'A' && c <= 'Z' {
			titleChar = c
			break
		}
	}

	millis := time.Now().UnixMilli() % 100000
	return fmt.Sprintf("%s-%c-%05d-%02d", prefix, titleChar, millis, rand.Intn(100))
}

// ApplyChanges returns a copy of the issue with a validated diff batch
// applied: field values updated, status and board transitions appended to
// their logs, and the batch merged into the bounded update ledger. The
// receiver is never modified; on error the original issue is unchanged.
func (i Issue) ApplyChanges(batch []FieldChange, updater uuid.UUID, at time.Time) (Issue, error) {
	out := i.clone()
	out.UpdatedAt = at

	stamped := make([]FieldChange, len(batch))
	for idx, change := range batch {
		change.UpdatedBy = updater
		change.UpdatedAt = at
		stamped[idx] = change

		switch change.Field {
		case FieldStatus:
			status, err := statusValue(change.NewValue)
			if err != nil {
				return Issue{}, err
			}
			out.StatusHistory = append(out.StatusHistory, StatusChange{
				Status:    status,
				Timestamp: at,
				ChangedBy: updater,
			})
		case FieldBoardID:
			if err := out.appendBoardTransition(change.NewValue, updater, at); err != nil {
				return Issue{}, err
			}
		}
		out.Fields[change.Field] = change.NewValue
	}

	out.UpdateHistory = MergeUpdateHistory(out.UpdateHistory, stamped)
	return out, nil
}

// appendBoardTransition records a move off the prior board (if any) and
// onto the new one. A nil new value vacates the current board only.
func (i *Issue) appendBoardTransition(newValue any, updater uuid.UUID, at time.Time) error {
	if prior, ok := CurrentBoard(i.BoardHistory); ok {
		i.BoardHistory = append(i.BoardHistory, BoardTransition{
			BoardID:   prior,
			Action:    BoardActionRemoved,
			Timestamp: at,
			MovedBy:   updater,
		})
	}
	if newValue == nil {
		return nil
	}
	boardID, err := UUIDValue(newValue)
	if err != nil {
		return fmt.Errorf("board id: %w", err)
	}
	i.BoardHistory = append(i.BoardHistory, BoardTransition{
		BoardID:   boardID,
		Action:    BoardActionAdded,
		Timestamp: at,
		MovedBy:   updater,
	})
	return nil
}

// Status returns the current workflow state.
func (i Issue) Status() Status {
	s, err := statusValue(i.Fields[FieldStatus])
	if err != nil {
		return ""
	}
	return s
}

// IssueType returns the immutable issue category.
func (i Issue) IssueType() IssueType {
	if s, ok := i.Fields[FieldIssueType].(string); ok {
		return IssueType(s)
	}
	return ""
}

// StoryPoints returns the issue's sprint accounting weight. Values read
// back from the store arrive as float64.
func (i Issue) StoryPoints() int {
	switch v := i.Fields[FieldStoryPoints].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	}
	return 0
}

// BoardID returns the live board binding held in the field map.
func (i Issue) BoardID() (uuid.UUID, bool) {
	v, ok := i.Fields[FieldBoardID]
	if !ok || v == nil {
		return uuid.Nil, false
	}
	id, err := UUIDValue(v)
	if err != nil {
		return uuid.Nil, false
	}
	return id, true
}

// FieldSnapshot returns a copy of the mutable field map for diffing.
func (i Issue) FieldSnapshot() map[string]any {
	return cloneFields(i.Fields)
}

func (i Issue) clone() Issue {
	out := i
	out.Fields = cloneFields(i.Fields)
	out.StatusHistory = append([]StatusChange(nil), i.StatusHistory...)
	out.BoardHistory = append([]BoardTransition(nil), i.BoardHistory...)
	out.UpdateHistory = append([]FieldChange(nil), i.UpdateHistory...)
	return out
}

func cloneFields(fields map[string]any) map[string]any {
	out := make(map[string]any, len(fields))
	for k, v := range fields {
		out[k] = v
	}
	return out
}

func statusValue(v any) (Status, error) {
	s, ok := v.(string)
	if !ok {
		if st, ok := v.(Status); ok {
			s = string(st)
		} else {
			return "", fmt.Errorf("status must be a string, got %T", v)
		}
	}
	status := Status(s)
	if !status.Valid() {
		return "", fmt.Errorf("invalid status %q", s)
	}
	return status, nil
}

// UUIDValue coerces a field value into a uuid. References travel as
// strings once a document round-trips through the store.
func UUIDValue(v any) (uuid.UUID, error) {
	switch typed := v.(type) {
	case uuid.UUID:
		return typed, nil
	case string:
		id, err := uuid.Parse(typed)
		if err != nil {
			return uuid.Nil, fmt.Errorf("malformed id %q", typed)
		}
		return id, nil
	default:
		return uuid.Nil, fmt.Errorf("id must be a uuid string, got %T", v)
	}
}
