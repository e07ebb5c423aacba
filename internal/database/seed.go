package database

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/zaqqye/intervention_engine/internal/apperr"
	"github.com/zaqqye/intervention_engine/internal/models"
	"github.com/zaqqye/intervention_engine/internal/store"
)

const (
	DemoStudentID   = "123"
	DemoStudentName = "Demo Student"
)

// SeedDemoStudent registers the student the bundled web client uses.
func SeedDemoStudent(ctx context.Context, s store.Store, log *zap.Logger) error {
	now := time.Now().UTC()
	err := s.CreateStudent(ctx, &models.Student{
		ID:        DemoStudentID,
		Name:      DemoStudentName,
		Status:    models.StatusOnTrack,
		CreatedAt: now,
		UpdatedAt: now,
	})
	if errors.Is(err, apperr.ErrConflict) {
		return nil
	}
	if err != nil {
		return err
	}
	log.Info("seeded demo student", zap.String("student_id", DemoStudentID))
	return nil
}
