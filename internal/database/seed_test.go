package database

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/zaqqye/intervention_engine/internal/config"
	"github.com/zaqqye/intervention_engine/internal/models"
	"github.com/zaqqye/intervention_engine/internal/store"
)

func TestConnectSQLiteAndSeed(t *testing.T) {
	cfg := &config.Config{DBDriver: "sqlite", SQLitePath: t.TempDir() + "/test.db"}
	db, err := Connect(cfg, zap.NewNop())
	require.NoError(t, err)
	require.NoError(t, Migrate(db))

	s := store.NewGorm(db, 0, 0)
	ctx := context.Background()
	require.NoError(t, SeedDemoStudent(ctx, s, zap.NewNop()))
	// second run is a no-op
	require.NoError(t, SeedDemoStudent(ctx, s, zap.NewNop()))

	st, err := s.GetStudent(ctx, DemoStudentID)
	require.NoError(t, err)
	assert.Equal(t, DemoStudentName, st.Name)
	assert.Equal(t, models.StatusOnTrack, st.Status)
}

func TestSeedSetsTimestamps(t *testing.T) {
	s := store.NewMemory(10)
	ctx := context.Background()
	before := time.Now().UTC().Add(-time.Second)
	require.NoError(t, SeedDemoStudent(ctx, s, zap.NewNop()))

	st, err := s.GetStudent(ctx, DemoStudentID)
	require.NoError(t, err)
	assert.True(t, st.CreatedAt.After(before))
	assert.Equal(t, st.CreatedAt, st.UpdatedAt)
}

func TestConnectRejectsUnknownDriver(t *testing.T) {
	_, err := Connect(&config.Config{DBDriver: "oracle"}, zap.NewNop())
	assert.Error(t, err)
}
