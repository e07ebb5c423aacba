// Package store persists students, interventions and check-in logs. It holds
// no business rules; the lifecycle package decides what gets written.
package store

import (
	"context"

	"github.com/zaqqye/intervention_engine/internal/models"
)

// DefaultRetention is how many check-in logs are kept per student.
const DefaultRetention = 10

// Store is the single source of truth for student state.
type Store interface {
	// GetStudent returns apperr.ErrNotFound for an unknown id.
	GetStudent(ctx context.Context, id string) (*models.Student, error)
	// ListStudents returns every student, or only those in status when it is set.
	ListStudents(ctx context.Context, status models.Status) ([]models.Student, error)
	// CreateStudent returns apperr.ErrConflict if the id is taken.
	CreateStudent(ctx context.Context, s *models.Student) error
	// PendingIntervention returns nil without error when nothing is pending.
	PendingIntervention(ctx context.Context, studentID string) (*models.Intervention, error)
	// RecentCheckIns returns up to limit logs, most recent first.
	RecentCheckIns(ctx context.Context, studentID string, limit int) ([]models.CheckInLog, error)
	// Update runs fn with exclusive access to one student. current is nil if
	// the student does not exist yet. Writes staged through tx are committed
	// together only when fn returns nil.
	Update(ctx context.Context, studentID string, fn func(tx Tx, current *models.Student) error) error
	Ping(ctx context.Context) error
}

// Tx stages writes for a single Store.Update call.
type Tx interface {
	PendingIntervention() (*models.Intervention, error)
	CreateStudent(s *models.Student) error
	SaveStudent(s *models.Student) error
	CreateIntervention(i *models.Intervention) error
	SaveIntervention(i *models.Intervention) error
	AppendCheckIn(l *models.CheckInLog) error
}
