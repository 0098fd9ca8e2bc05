package statedb

// dialect captures per-engine capabilities which vary the coordination
// protocol. Engine differences are expressed as capability flags rather than
// as distinct code paths per engine.
type dialect struct {
	// driver is the registered "database/sql" driver name. The driver must
	// be linked into the final binary (typically via a blank import).
	driver string
	// schemaNamespace indicates the engine supports schema namespaces
	// (CREATE SCHEMA). Engines without them use a flat, prefixed status
	// table name instead.
	schemaNamespace bool
	// reliableRowCount indicates affected-row counts of conditional updates
	// can be trusted for foreign-writer detection. Embedded engines with
	// shared-connection semantics under-report, so detection is skipped.
	reliableRowCount bool
	// isolationLevels indicates BeginTx honors non-default isolation.
	isolationLevels bool
	// singleConn pins the connection pool to one physical connection.
	singleConn bool
}

var dialects = map[Engine]dialect{
	Postgres:  {driver: "postgres", schemaNamespace: true, reliableRowCount: true, isolationLevels: true},
	PGX:       {driver: "pgx", schemaNamespace: true, reliableRowCount: true, isolationLevels: true},
	Cockroach: {driver: "postgres", schemaNamespace: true, reliableRowCount: true, isolationLevels: true},
	SQLite:    {driver: "sqlite3", singleConn: true},
}

// statusTable returns the fully-qualified name of the processor status
// table: schema-qualified for engines with schema namespaces, and a flat
// prefixed name (eg "__squid_processor_state_status") otherwise.
func (d dialect) statusTable(cfg Config) string {
	if d.schemaNamespace {
		return cfg.StateSchema + "." + cfg.StateTable
	}
	return "__" + cfg.StateSchema + "_state_" + cfg.StateTable
}
