package lifecycle

import (
	"context"
	"time"

	"github.com/zaqqye/intervention_engine/internal/models"
)

const (
	// EventInterventionAssigned is the only event pushed to student clients.
	EventInterventionAssigned = "intervention_assigned"
	// EventStatusChanged feeds mentor dashboards on every status move.
	EventStatusChanged = "status_changed"
)

// Event is an outbound notification produced by a committed transition.
type Event struct {
	Type           string               `json:"type"`
	StudentID      string               `json:"student_id"`
	Status         models.Status        `json:"status,omitempty"`
	PreviousStatus models.Status        `json:"previous_status,omitempty"`
	Intervention   *models.Intervention `json:"intervention,omitempty"`
	OccurredAt     time.Time            `json:"occurred_at"`
}

func statusChanged(studentID string, from, to models.Status, at time.Time) Event {
	return Event{
		Type:           EventStatusChanged,
		StudentID:      studentID,
		Status:         to,
		PreviousStatus: from,
		OccurredAt:     at,
	}
}

// Publisher delivers events to live subscribers. Implementations must not
// block and must not report delivery failures back to the caller.
type Publisher interface {
	Publish(ctx context.Context, studentID string, ev Event)
}

type nopPublisher struct{}

func (nopPublisher) Publish(context.Context, string, Event) {}
