package ws

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/zaqqye/intervention_engine/internal/lifecycle"
)

// Hubs routes lifecycle events: intervention pushes go to the student's
// endpoints, status changes go to mentor dashboards.
type Hubs struct {
	Mentor  *MentorHub
	Student *StudentHub
}

func NewHubs(log *zap.Logger) *Hubs {
	return &Hubs{
		Mentor:  NewMentorHub(log),
		Student: NewStudentHub(log),
	}
}

// Run blocks until ctx is done.
func (h *Hubs) Run(ctx context.Context) {
	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		h.Mentor.Run(ctx)
	}()
	go func() {
		defer wg.Done()
		h.Student.Run(ctx)
	}()
	wg.Wait()
}

func (h *Hubs) Publish(ctx context.Context, studentID string, ev lifecycle.Event) {
	switch ev.Type {
	case lifecycle.EventInterventionAssigned:
		h.Student.Publish(ctx, studentID, ev)
	case lifecycle.EventStatusChanged:
		h.Mentor.Publish(ctx, studentID, ev)
	}
}
