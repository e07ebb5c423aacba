// Package lifecycle owns the student status state machine: check-ins move a
// student from On Track to Needs Intervention, a mentor assignment moves them
// to Remedial Task, and completing the task brings them back On Track.
package lifecycle

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/zaqqye/intervention_engine/internal/apperr"
	"github.com/zaqqye/intervention_engine/internal/compliance"
	"github.com/zaqqye/intervention_engine/internal/models"
	"github.com/zaqqye/intervention_engine/internal/store"
)

// Assignment is the mentor-approved intervention for a flagged student.
type Assignment struct {
	StudentID       string
	TaskDescription string
	MentorNotes     string
	AssignedBy      string
}

type Completion struct {
	StudentID      string
	InterventionID string
}

// Outcome describes the result of one applied event.
type Outcome struct {
	Student      models.Student
	Intervention *models.Intervention
	Verdict      compliance.Verdict
	// Changed reports whether the student's status moved.
	Changed bool
	// Logged reports whether a check-in log entry was written.
	Logged bool
	Events []Event
}

type Machine struct {
	store     store.Store
	publisher Publisher
	log       *zap.Logger
	locks     *keyedMutex

	now func() time.Time
}

func NewMachine(s store.Store, p Publisher, log *zap.Logger) *Machine {
	if p == nil {
		p = nopPublisher{}
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Machine{
		store:     s,
		publisher: p,
		log:       log,
		locks:     newKeyedMutex(),
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// SubmitCheckIn evaluates a check-in and applies it. A student id seen for the
// first time is registered On Track before the check-in is applied.
func (m *Machine) SubmitCheckIn(ctx context.Context, sub compliance.Submission) (Outcome, error) {
	const op = "lifecycle.SubmitCheckIn"
	sub.StudentID = strings.TrimSpace(sub.StudentID)
	verdict, err := sub.Verdict()
	if err != nil {
		return Outcome{}, err
	}

	unlock := m.locks.Lock(sub.StudentID)
	defer unlock()

	apply := func() (Outcome, error) {
		out := Outcome{Verdict: verdict}
		err := m.store.Update(ctx, sub.StudentID, func(tx store.Tx, current *models.Student) error {
			now := m.now()
			st := current
			if st == nil {
				st = &models.Student{ID: sub.StudentID, Name: sub.StudentID, Status: models.StatusOnTrack, CreatedAt: now, UpdatedAt: now}
				if err := tx.CreateStudent(st); err != nil {
					return err
				}
			}

			switch st.Status {
			case models.StatusRemedialTask:
				// check-ins are disabled until the task is completed
				out.Student = *st
				return nil
			case models.StatusOnTrack:
				if verdict == compliance.Fail {
					st.Status = models.StatusNeedsIntervention
					st.UpdatedAt = now
					if err := tx.SaveStudent(st); err != nil {
						return err
					}
					out.Changed = true
					out.Events = []Event{statusChanged(st.ID, models.StatusOnTrack, st.Status, now)}
				}
			case models.StatusNeedsIntervention:
				// flagged students wait for a mentor; the entry is telemetry only
			default:
				return apperr.InvalidTransition(op, "unknown student status "+string(st.Status))
			}

			if err := tx.AppendCheckIn(&models.CheckInLog{
				StudentID:    sub.StudentID,
				QuizScore:    *sub.QuizScore,
				FocusMinutes: *sub.FocusMinutes,
				Verdict:      string(verdict),
				TabSwitches:  sub.TabSwitches,
				TimerFailed:  sub.TimerFailed,
				LoggedAt:     now,
			}); err != nil {
				return err
			}
			out.Logged = true
			out.Student = *st
			return nil
		})
		return out, err
	}

	out, err := apply()
	if errors.Is(err, apperr.ErrConflict) {
		// another instance registered the student first
		out, err = apply()
	}
	if err != nil {
		return Outcome{}, err
	}
	m.log.Info("check-in applied",
		zap.String("student_id", sub.StudentID),
		zap.String("verdict", string(verdict)),
		zap.String("status", string(out.Student.Status)),
		zap.Bool("changed", out.Changed),
	)
	m.publish(ctx, out.Events)
	return out, nil
}

// AssignIntervention moves a Needs Intervention student to Remedial Task and
// pushes the new intervention to the student's live connections once stored.
func (m *Machine) AssignIntervention(ctx context.Context, a Assignment) (Outcome, error) {
	const op = "lifecycle.AssignIntervention"
	a.StudentID = strings.TrimSpace(a.StudentID)
	a.TaskDescription = strings.TrimSpace(a.TaskDescription)
	if a.StudentID == "" || a.TaskDescription == "" {
		return Outcome{}, apperr.Validation(op, "student_id and task_description are required")
	}

	unlock := m.locks.Lock(a.StudentID)
	defer unlock()

	var out Outcome
	err := m.store.Update(ctx, a.StudentID, func(tx store.Tx, current *models.Student) error {
		if current == nil {
			return apperr.NotFound(op, "student not found")
		}
		switch current.Status {
		case models.StatusNeedsIntervention:
		case models.StatusRemedialTask:
			return apperr.InvalidTransition(op, "student already has a pending intervention")
		default:
			return apperr.InvalidTransition(op, "student is not awaiting mentor review")
		}

		now := m.now()
		iv := &models.Intervention{
			StudentID:       a.StudentID,
			TaskDescription: a.TaskDescription,
			MentorNotes:     a.MentorNotes,
			AssignedBy:      a.AssignedBy,
			Status:          models.InterventionPending,
			CreatedAt:       now,
		}
		if err := tx.CreateIntervention(iv); err != nil {
			return err
		}
		current.Status = models.StatusRemedialTask
		current.UpdatedAt = now
		if err := tx.SaveStudent(current); err != nil {
			return err
		}
		out = Outcome{
			Student:      *current,
			Intervention: iv,
			Changed:      true,
			Events: []Event{
				{
					Type:         EventInterventionAssigned,
					StudentID:    a.StudentID,
					Status:       current.Status,
					Intervention: iv,
					OccurredAt:   now,
				},
				statusChanged(a.StudentID, models.StatusNeedsIntervention, current.Status, now),
			},
		}
		return nil
	})
	if err != nil {
		return Outcome{}, err
	}

	m.log.Info("intervention assigned",
		zap.String("student_id", a.StudentID),
		zap.String("intervention_id", out.Intervention.ID),
	)
	m.publish(ctx, out.Events)
	return out, nil
}

// CompleteIntervention closes the pending intervention and returns the student
// On Track. A mismatched id leaves everything unchanged.
func (m *Machine) CompleteIntervention(ctx context.Context, c Completion) (Outcome, error) {
	const op = "lifecycle.CompleteIntervention"
	c.StudentID = strings.TrimSpace(c.StudentID)
	c.InterventionID = strings.TrimSpace(c.InterventionID)
	if c.StudentID == "" || c.InterventionID == "" {
		return Outcome{}, apperr.Validation(op, "student_id and intervention_id are required")
	}

	unlock := m.locks.Lock(c.StudentID)
	defer unlock()

	var out Outcome
	err := m.store.Update(ctx, c.StudentID, func(tx store.Tx, current *models.Student) error {
		if current == nil {
			return apperr.NotFound(op, "student not found")
		}
		if current.Status != models.StatusRemedialTask {
			return apperr.InvalidTransition(op, "student has no remedial task to complete")
		}
		pending, err := tx.PendingIntervention()
		if err != nil {
			return err
		}
		if pending == nil || pending.ID != c.InterventionID {
			return apperr.NotFound(op, "intervention not found")
		}

		now := m.now()
		pending.Status = models.InterventionCompleted
		pending.CompletedAt = &now
		if err := tx.SaveIntervention(pending); err != nil {
			return err
		}
		current.Status = models.StatusOnTrack
		current.UpdatedAt = now
		if err := tx.SaveStudent(current); err != nil {
			return err
		}
		out = Outcome{
			Student:      *current,
			Intervention: pending,
			Changed:      true,
			Events:       []Event{statusChanged(c.StudentID, models.StatusRemedialTask, current.Status, now)},
		}
		return nil
	})
	if err != nil {
		return Outcome{}, err
	}
	m.log.Info("intervention completed",
		zap.String("student_id", c.StudentID),
		zap.String("intervention_id", c.InterventionID),
	)
	m.publish(ctx, out.Events)
	return out, nil
}

func (m *Machine) publish(ctx context.Context, events []Event) {
	// the request context may end as soon as the response is written
	ctx = context.WithoutCancel(ctx)
	for _, ev := range events {
		m.publisher.Publish(ctx, ev.StudentID, ev)
	}
}
