package database

import (
	"context"
	"database/sql"
	"os"
	"strings"
	"testing"

	"design-lab-backend/internal/logger"

	_ "github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMigrationNames(t *testing.T) {
	names, err := MigrationNames()
	require.NoError(t, err)
	require.NotEmpty(t, names)
	assert.Equal(t, "001_design_lab.sql", names[0])
	for _, name := range names {
		assert.True(t, strings.HasSuffix(name, ".sql"), name)
	}
}

func TestMigrationCreatesDesignLabTables(t *testing.T) {
	raw, err := migrationsFS.ReadFile("migrations/001_design_lab.sql")
	require.NoError(t, err)
	schema := string(raw)
	for _, table := range []string{"design_projects", "design_versions", "design_layers", "generation_requests"} {
		assert.Contains(t, schema, "CREATE TABLE IF NOT EXISTS "+table)
	}
	assert.Contains(t, schema, "UNIQUE (project_id, version_number)")
}

func TestMigrator_RunIsIdempotent(t *testing.T) {
	dsn := os.Getenv("TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("TEST_POSTGRES_DSN not set")
	}
	db, err := sql.Open("postgres", dsn)
	require.NoError(t, err)
	defer db.Close()

	ctx := context.Background()
	m := NewMigrator(db, logger.NewNop())
	require.NoError(t, m.Run(ctx))
	require.NoError(t, m.Run(ctx))

	pending, err := m.Pending(ctx)
	require.NoError(t, err)
	assert.Empty(t, pending)
}
