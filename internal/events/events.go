package events

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Type names one kind of domain event emitted after a durable mutation.
type Type string

const (
	TypeIssueCreated   Type = "IssueCreated"
	TypeIssueUpdated   Type = "IssueUpdated"
	TypeProjectCreated Type = "ProjectCreated"
	TypeProjectUpdated Type = "ProjectUpdated"
	TypeBoardCreated   Type = "BoardCreated"
)

// Event is the envelope handed to the outbound sink. Payload carries the
// post-mutation entity document.
type Event struct {
	Type       Type      `json:"type"`
	EntityID   uuid.UUID `json:"entity_id"`
	OccurredAt time.Time `json:"occurred_at"`
	Payload    any       `json:"payload,omitempty"`
}

// Publisher delivers events to an external sink. Implementations must be
// safe for concurrent use; delivery failures are the publisher's problem
// and never propagate back into the mutation path.
type Publisher interface {
	Publish(ctx context.Context, event Event) error
}
