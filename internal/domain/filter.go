package domain

import (
	"strings"

	"github.com/google/uuid"
)

// IssueFilter represents filtering options for listing issues.
type IssueFilter struct {
	WorkspaceID *uuid.UUID
	BoardID     *uuid.UUID
	Status      *Status
	IssueType   *IssueType
	TitleSearch string
}

// Matches reports whether an issue satisfies every set filter. Title
// search is a case-insensitive substring match.
func (f IssueFilter) Matches(issue Issue) bool {
	if f.WorkspaceID != nil && issue.WorkspaceID != *f.WorkspaceID {
		return false
	}
	if f.BoardID != nil {
		boardID, ok := issue.BoardID()
		if !ok || boardID != *f.BoardID {
			return false
		}
	}
	if f.Status != nil && issue.Status() != *f.Status {
		return false
	}
	if f.IssueType != nil && issue.IssueType() != *f.IssueType {
		return false
	}
	if f.TitleSearch != "" {
		title, _ := issue.Fields[FieldTitle].(string)
		if !strings.Contains(strings.ToLower(title), strings.ToLower(f.TitleSearch)) {
			return false
		}
	}
	return true
}
