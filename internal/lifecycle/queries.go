package lifecycle

import (
	"context"
	"strings"

	"github.com/zaqqye/intervention_engine/internal/apperr"
	"github.com/zaqqye/intervention_engine/internal/models"
)

// RecentLogLimit is how many check-ins the log endpoint returns.
const RecentLogLimit = 10

type State struct {
	Student             models.Student
	PendingIntervention *models.Intervention
}

// State returns the synchronous snapshot clients fetch after (re)connecting.
func (m *Machine) State(ctx context.Context, studentID string) (State, error) {
	studentID = strings.TrimSpace(studentID)
	if studentID == "" {
		return State{}, apperr.Validation("lifecycle.State", "student_id is required")
	}
	st, err := m.store.GetStudent(ctx, studentID)
	if err != nil {
		return State{}, err
	}
	pending, err := m.store.PendingIntervention(ctx, studentID)
	if err != nil {
		return State{}, err
	}
	return State{Student: *st, PendingIntervention: pending}, nil
}

func (m *Machine) RecentCheckIns(ctx context.Context, studentID string) ([]models.CheckInLog, error) {
	studentID = strings.TrimSpace(studentID)
	if studentID == "" {
		return nil, apperr.Validation("lifecycle.RecentCheckIns", "student_id is required")
	}
	return m.store.RecentCheckIns(ctx, studentID, RecentLogLimit)
}

func (m *Machine) ListStudents(ctx context.Context, status models.Status) ([]models.Student, error) {
	if status != "" && !status.Valid() {
		return nil, apperr.Validation("lifecycle.ListStudents", "unknown status "+string(status))
	}
	return m.store.ListStudents(ctx, status)
}

// RegisterStudent adds a student in the initial On Track state.
func (m *Machine) RegisterStudent(ctx context.Context, id, name string) (models.Student, error) {
	id = strings.TrimSpace(id)
	name = strings.TrimSpace(name)
	if id == "" {
		return models.Student{}, apperr.Validation("lifecycle.RegisterStudent", "student_id is required")
	}
	if name == "" {
		name = id
	}
	now := m.now()
	st := models.Student{ID: id, Name: name, Status: models.StatusOnTrack, CreatedAt: now, UpdatedAt: now}
	if err := m.store.CreateStudent(ctx, &st); err != nil {
		return models.Student{}, err
	}
	return st, nil
}
