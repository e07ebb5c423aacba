package store_test

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/zaqqye/intervention_engine/internal/apperr"
	"github.com/zaqqye/intervention_engine/internal/database"
	"github.com/zaqqye/intervention_engine/internal/models"
	"github.com/zaqqye/intervention_engine/internal/store"
)

func newSQLite(t *testing.T, retention int) *store.Gorm {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(t.TempDir()+"/store.db"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	require.NoError(t, database.Migrate(db))
	return store.NewGorm(db, time.Second, retention)
}

func eachStore(t *testing.T, retention int, fn func(t *testing.T, s store.Store)) {
	t.Run("memory", func(t *testing.T) { fn(t, store.NewMemory(retention)) })
	t.Run("gorm", func(t *testing.T) { fn(t, newSQLite(t, retention)) })
}

func TestCreateAndGetStudent(t *testing.T) {
	eachStore(t, 10, func(t *testing.T, s store.Store) {
		ctx := context.Background()
		_, err := s.GetStudent(ctx, "s1")
		assert.True(t, errors.Is(err, apperr.ErrNotFound))

		require.NoError(t, s.CreateStudent(ctx, &models.Student{ID: "s1", Name: "Ada", Status: models.StatusOnTrack}))
		err = s.CreateStudent(ctx, &models.Student{ID: "s1", Name: "Ada", Status: models.StatusOnTrack})
		assert.True(t, errors.Is(err, apperr.ErrConflict))

		got, err := s.GetStudent(ctx, "s1")
		require.NoError(t, err)
		assert.Equal(t, "Ada", got.Name)
		assert.Equal(t, models.StatusOnTrack, got.Status)
	})
}

func TestListStudentsByStatus(t *testing.T) {
	eachStore(t, 10, func(t *testing.T, s store.Store) {
		ctx := context.Background()
		require.NoError(t, s.CreateStudent(ctx, &models.Student{ID: "a", Status: models.StatusOnTrack}))
		require.NoError(t, s.CreateStudent(ctx, &models.Student{ID: "b", Status: models.StatusNeedsIntervention}))
		require.NoError(t, s.CreateStudent(ctx, &models.Student{ID: "c", Status: models.StatusNeedsIntervention}))

		all, err := s.ListStudents(ctx, "")
		require.NoError(t, err)
		assert.Len(t, all, 3)

		flagged, err := s.ListStudents(ctx, models.StatusNeedsIntervention)
		require.NoError(t, err)
		require.Len(t, flagged, 2)
		for _, st := range flagged {
			assert.Equal(t, models.StatusNeedsIntervention, st.Status)
		}
	})
}

func TestUpdateCommitsAllWrites(t *testing.T) {
	eachStore(t, 10, func(t *testing.T, s store.Store) {
		ctx := context.Background()
		now := time.Now().UTC()
		err := s.Update(ctx, "s1", func(tx store.Tx, current *models.Student) error {
			assert.Nil(t, current)
			if err := tx.CreateStudent(&models.Student{ID: "s1", Status: models.StatusRemedialTask, CreatedAt: now, UpdatedAt: now}); err != nil {
				return err
			}
			if err := tx.CreateIntervention(&models.Intervention{StudentID: "s1", TaskDescription: "Review ch.3", Status: models.InterventionPending, CreatedAt: now}); err != nil {
				return err
			}
			pending, err := tx.PendingIntervention()
			require.NoError(t, err)
			require.NotNil(t, pending)
			assert.Equal(t, "Review ch.3", pending.TaskDescription)
			return nil
		})
		require.NoError(t, err)

		st, err := s.GetStudent(ctx, "s1")
		require.NoError(t, err)
		assert.Equal(t, models.StatusRemedialTask, st.Status)

		pending, err := s.PendingIntervention(ctx, "s1")
		require.NoError(t, err)
		require.NotNil(t, pending)
		assert.NotEmpty(t, pending.ID)
		assert.Equal(t, models.InterventionPending, pending.Status)
	})
}

func TestUpdateRollsBackOnError(t *testing.T) {
	eachStore(t, 10, func(t *testing.T, s store.Store) {
		ctx := context.Background()
		require.NoError(t, s.CreateStudent(ctx, &models.Student{ID: "s1", Status: models.StatusOnTrack}))

		boom := apperr.StoreUnavailable("test", errors.New("disk full"))
		err := s.Update(ctx, "s1", func(tx store.Tx, current *models.Student) error {
			require.NotNil(t, current)
			current.Status = models.StatusNeedsIntervention
			if err := tx.SaveStudent(current); err != nil {
				return err
			}
			if err := tx.AppendCheckIn(&models.CheckInLog{StudentID: "s1", Verdict: "Fail", LoggedAt: time.Now()}); err != nil {
				return err
			}
			return boom
		})
		assert.True(t, errors.Is(err, apperr.ErrStoreUnavailable))

		st, err := s.GetStudent(ctx, "s1")
		require.NoError(t, err)
		assert.Equal(t, models.StatusOnTrack, st.Status)
		logs, err := s.RecentCheckIns(ctx, "s1", 10)
		require.NoError(t, err)
		assert.Empty(t, logs)
	})
}

func TestRecentCheckInsNewestFirstAndRetained(t *testing.T) {
	eachStore(t, 10, func(t *testing.T, s store.Store) {
		ctx := context.Background()
		require.NoError(t, s.CreateStudent(ctx, &models.Student{ID: "s1", Status: models.StatusOnTrack}))
		base := time.Date(2026, 10, 1, 8, 0, 0, 0, time.UTC)
		for i := 0; i < 15; i++ {
			i := i
			err := s.Update(ctx, "s1", func(tx store.Tx, current *models.Student) error {
				return tx.AppendCheckIn(&models.CheckInLog{
					StudentID:    "s1",
					QuizScore:    float64(i),
					FocusMinutes: float64(i * 10),
					Verdict:      fmt.Sprintf("v%d", i),
					LoggedAt:     base.Add(time.Duration(i) * time.Hour),
				})
			})
			require.NoError(t, err)
		}

		logs, err := s.RecentCheckIns(ctx, "s1", 10)
		require.NoError(t, err)
		require.Len(t, logs, 10)
		assert.Equal(t, "v14", logs[0].Verdict)
		assert.Equal(t, "v5", logs[9].Verdict)
		for i := 1; i < len(logs); i++ {
			assert.True(t, logs[i-1].LoggedAt.After(logs[i].LoggedAt))
		}

		// older rows are pruned, not just hidden
		all, err := s.RecentCheckIns(ctx, "s1", 0)
		require.NoError(t, err)
		assert.Len(t, all, 10)

		other, err := s.RecentCheckIns(ctx, "nobody", 10)
		require.NoError(t, err)
		assert.Empty(t, other)
	})
}

func TestCanceledContextIsStoreUnavailable(t *testing.T) {
	eachStore(t, 10, func(t *testing.T, s store.Store) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		err := s.Update(ctx, "s1", func(tx store.Tx, current *models.Student) error { return nil })
		assert.True(t, errors.Is(err, apperr.ErrStoreUnavailable))
	})
}
