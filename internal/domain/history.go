package domain

import (
	"time"

	"github.com/google/uuid"
)

// UpdateHistoryLimit caps the per-entity field change ledger. When a merge
// would exceed it, the oldest entries are evicted first; the newest are
// always retained.
const UpdateHistoryLimit = 5

// FieldChange records one audited field-level change.
type FieldChange struct {
	Field     string    `json:"field"`
	OldValue  any       `json:"old_value"`
	NewValue  any       `json:"new_value"`
	UpdatedBy uuid.UUID `json:"updated_by"`
	UpdatedAt time.Time `json:"updated_at"`
}

// StatusChange is one entry in an entity's append-only status log.
type StatusChange struct {
	Status    Status    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
	ChangedBy uuid.UUID `json:"changed_by"`
}

// BoardAction describes the direction of a board membership transition.
type BoardAction string

const (
	BoardActionAdded   BoardAction = "added"
	BoardActionRemoved BoardAction = "removed"
)

// BoardTransition is one entry in an issue's append-only board membership
// log. Every membership change is recorded, including the implicit initial
// "added" when an issue is first bound to a board.
type BoardTransition struct {
	BoardID   uuid.UUID   `json:"board_id"`
	Action    BoardAction `json:"action"`
	Timestamp time.Time   `json:"timestamp"`
	Reason    *string     `json:"reason,omitempty"`
	MovedBy   uuid.UUID   `json:"moved_by"`
}

// MergeUpdateHistory appends a stamped diff batch to an existing ledger and
// retains only the trailing UpdateHistoryLimit entries in arrival order.
// Neither input slice is modified.
func MergeUpdateHistory(history, batch []FieldChange) []FieldChange {
	merged := make([]FieldChange, 0, len(history)+len(batch))
	merged = append(merged, history...)
	merged = append(merged, batch...)
	if len(merged) > UpdateHistoryLimit {
		merged = merged[len(merged)-UpdateHistoryLimit:]
	}
	return merged
}

// CurrentBoard derives an issue's live board membership by replaying the
// transition log. The engine maintains at most one active board per issue,
// so the latest transition decides: a trailing "added" entry binds the
// issue, a trailing "removed" entry leaves it unbound.
func CurrentBoard(history []BoardTransition) (uuid.UUID, bool) {
	if len(history) == 0 {
		return uuid.Nil, false
	}
	last := history[len(history)-1]
	if last.Action == BoardActionAdded {
		return last.BoardID, true
	}
	return uuid.Nil, false
}

// MemberOnBoardAt reports whether the history places the issue on the given
// board at the given instant.
func MemberOnBoardAt(history []BoardTransition, boardID uuid.UUID, at time.Time) bool {
	member := false
	for _, tr := range history {
		if tr.BoardID != boardID || tr.Timestamp.After(at) {
			continue
		}
		member = tr.Action == BoardActionAdded
	}
	return member
}
