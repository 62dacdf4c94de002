package domain

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// ValidateIssueChanges checks domain rules on a diff batch before any
// history is touched. Malformed reference values fail with
// ErrInvalidReference; existence of the referenced entities is checked by
// the orchestrator against the store.
func ValidateIssueChanges(batch []FieldChange) error {
	for _, change := range batch {
		if err := validateIssueField(change.Field, change.NewValue); err != nil {
			return fmt.Errorf("field %q: %w", change.Field, err)
		}
	}
	return nil
}

func validateIssueField(field string, value any) error {
	switch field {
	case FieldTitle:
		s, ok := value.(string)
		if !ok || s == "" {
			return fmt.Errorf("title must be a non-empty string")
		}
	case FieldDescription, FieldColor:
		if value == nil {
			return nil
		}
		if _, ok := value.(string); !ok {
			return fmt.Errorf("must be a string, got %T", value)
		}
	case FieldStatus:
		if _, err := statusValue(value); err != nil {
			return err
		}
	case FieldPriority:
		s, ok := value.(string)
		if !ok || !Priority(s).Valid() {
			return fmt.Errorf("invalid priority %v", value)
		}
	case FieldStoryPoints:
		points, err := numericValue(value)
		if err != nil {
			return err
		}
		if points < 0 {
			return fmt.Errorf("story points must be non-negative, got %v", value)
		}
	case FieldBoardID, FieldParent, FieldEpic:
		if value == nil {
			return nil
		}
		if _, err := UUIDValue(value); err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidReference, err)
		}
	case FieldAssignees:
		if value == nil {
			return nil
		}
		if _, err := uuidListValue(value); err != nil {
			return fmt.Errorf("%w: assignees: %v", ErrInvalidReference, err)
		}
	case FieldDependencies:
		if value == nil {
			return nil
		}
		if _, _, err := DependencyRefs(value); err != nil {
			return err
		}
	case FieldEndDate:
		if value == nil {
			return nil
		}
		switch typed := value.(type) {
		case time.Time:
		case string:
			if _, err := time.Parse(time.RFC3339, typed); err != nil {
				return fmt.Errorf("end date must be RFC 3339, got %q", typed)
			}
		default:
			return fmt.Errorf("end date must be a timestamp, got %T", value)
		}
	}
	return nil
}

// ValidateProjectChanges checks domain rules on a project diff batch.
func ValidateProjectChanges(batch []FieldChange) error {
	for _, change := range batch {
		if err := validateProjectField(change.Field, change.NewValue); err != nil {
			return fmt.Errorf("field %q: %w", change.Field, err)
		}
	}
	return nil
}

func validateProjectField(field string, value any) error {
	switch field {
	case FieldName:
		s, ok := value.(string)
		if !ok || s == "" {
			return fmt.Errorf("name must be a non-empty string")
		}
	case FieldStatus:
		s, ok := value.(string)
		if !ok || !ProjectStatus(s).Valid() {
			return fmt.Errorf("invalid project status %v", value)
		}
	case FieldPriority:
		s, ok := value.(string)
		if !ok || !Priority(s).Valid() {
			return fmt.Errorf("invalid priority %v", value)
		}
	case FieldEstimate:
		if value == nil {
			return nil
		}
		estimate, err := numericValue(value)
		if err != nil {
			return err
		}
		if estimate < 0 {
			return fmt.Errorf("estimate must be non-negative, got %v", value)
		}
	case FieldBoardID:
		if value == nil {
			return nil
		}
		if _, err := UUIDValue(value); err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidReference, err)
		}
	case FieldTeam:
		if value == nil {
			return nil
		}
		if _, err := uuidListValue(value); err != nil {
			return fmt.Errorf("%w: team: %v", ErrInvalidReference, err)
		}
	}
	return nil
}

// DependencyRefs decomposes a dependencies field value into issue and
// project id lists, failing with ErrInvalidReference on malformed entries.
// The value shape is {"issues": [...], "projects": [...]}.
func DependencyRefs(value any) (issues, projects []uuid.UUID, err error) {
	deps, ok := value.(map[string]any)
	if !ok {
		return nil, nil, fmt.Errorf("%w: dependencies must be an object, got %T", ErrInvalidReference, value)
	}
	for key := range deps {
		if key != "issues" && key != "projects" {
			return nil, nil, fmt.Errorf("%w: unknown dependency kind %q", ErrInvalidReference, key)
		}
	}
	issues, err = uuidListValue(deps["issues"])
	if err != nil {
		return nil, nil, fmt.Errorf("%w: dependency issues: %v", ErrInvalidReference, err)
	}
	projects, err = uuidListValue(deps["projects"])
	if err != nil {
		return nil, nil, fmt.Errorf("%w: dependency projects: %v", ErrInvalidReference, err)
	}
	return issues, projects, nil
}

func uuidListValue(value any) ([]uuid.UUID, error) {
	if value == nil {
		return nil, nil
	}
	var raw []any
	switch typed := value.(type) {
	case []any:
		raw = typed
	case []string:
		raw = make([]any, len(typed))
		for i, s := range typed {
			raw[i] = s
		}
	default:
		return nil, fmt.Errorf("must be a list of ids, got %T", value)
	}
	ids := make([]uuid.UUID, 0, len(raw))
	for _, entry := range raw {
		id, err := UUIDValue(entry)
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func numericValue(value any) (float64, error) {
	switch typed := value.(type) {
	case int:
		return float64(typed), nil
	case int64:
		return float64(typed), nil
	case float64:
		return typed, nil
	default:
		return 0, fmt.Errorf("must be a number, got %T", value)
	}
}
