package statedb

import (
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfigValidationAndDefaults(t *testing.T) {
	t.Setenv("DB_ENGINE", "")

	var cfg Config
	require.NoError(t, cfg.Validate())
	assert.Equal(t, Postgres, cfg.Engine)
	assert.Equal(t, "squid_processor", cfg.StateSchema)
	assert.Equal(t, "status", cfg.StateTable)
	assert.Equal(t, Serializable, cfg.Isolation)

	// The engine falls back to the environment when unset.
	t.Setenv("DB_ENGINE", "sqlite3")
	cfg = Config{}
	require.NoError(t, cfg.Validate())
	assert.Equal(t, SQLite, cfg.Engine)

	// An explicit engine wins over the environment.
	cfg = Config{Engine: Cockroach}
	require.NoError(t, cfg.Validate())
	assert.Equal(t, Cockroach, cfg.Engine)

	cfg = Config{Engine: "oracle"}
	assert.EqualError(t, cfg.Validate(), `unknown engine "oracle"`)

	cfg = Config{Engine: Postgres, Isolation: "SNAPSHOT"}
	assert.EqualError(t, cfg.Validate(), `unknown isolation level "SNAPSHOT"`)
}

func TestConfigIsolationMapping(t *testing.T) {
	assert.Equal(t, sql.LevelSerializable, Config{Isolation: Serializable}.isolation())
	assert.Equal(t, sql.LevelReadCommitted, Config{Isolation: ReadCommitted}.isolation())
	assert.Equal(t, sql.LevelRepeatableRead, Config{Isolation: RepeatableRead}.isolation())
}

func TestStatusTableNaming(t *testing.T) {
	var cfg = Config{StateSchema: "squid_processor", StateTable: "status"}

	assert.Equal(t, "squid_processor.status", dialects[Postgres].statusTable(cfg))
	assert.Equal(t, "squid_processor.status", dialects[PGX].statusTable(cfg))
	assert.Equal(t, "__squid_processor_state_status", dialects[SQLite].statusTable(cfg))

	cfg = Config{StateSchema: "myapp", StateTable: "cursor"}
	assert.Equal(t, "myapp.cursor", dialects[Cockroach].statusTable(cfg))
	assert.Equal(t, "__myapp_state_cursor", dialects[SQLite].statusTable(cfg))
}

func TestConfigDriver(t *testing.T) {
	for _, tc := range []struct {
		engine Engine
		driver string
	}{
		{Postgres, "postgres"},
		{PGX, "pgx"},
		{Cockroach, "postgres"},
		{SQLite, "sqlite3"},
	} {
		var driver, err = Config{Engine: tc.engine}.Driver()
		require.NoError(t, err)
		assert.Equal(t, tc.driver, driver)
	}

	var _, err = Config{Engine: "oracle"}.Driver()
	assert.Error(t, err)
}
