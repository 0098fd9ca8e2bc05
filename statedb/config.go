package statedb

import (
	"database/sql"
	"os"

	"github.com/pkg/errors"
)

// Engine identifies a supported relational engine. It selects the
// "database/sql" driver as well as the engine capability profile
// (see dialects).
type Engine string

const (
	// Postgres served through the lib/pq driver.
	Postgres Engine = "postgres"
	// PGX is Postgres served through the pgx stdlib adapter.
	PGX Engine = "pgx"
	// Cockroach speaks the Postgres wire protocol via lib/pq.
	Cockroach Engine = "cockroach"
	// SQLite is the embedded engine, served through mattn/go-sqlite3.
	SQLite Engine = "sqlite3"
)

// Isolation levels accepted by Config.
const (
	Serializable   = "SERIALIZABLE"
	ReadCommitted  = "READ COMMITTED"
	RepeatableRead = "REPEATABLE READ"
)

// Config configures a Database or RawDatabase. Its tags allow binding from
// flags and environment via go-flags; a zero-valued Config is also usable
// directly, in which case Validate fills defaults (Engine falls back to the
// DB_ENGINE environment variable, and then to "postgres").
type Config struct {
	DSN         string `long:"dsn" env:"DSN" description:"Connection string of the database"`
	Engine      Engine `long:"engine" env:"ENGINE" description:"Database engine (postgres, pgx, cockroach, or sqlite3)"`
	StateSchema string `long:"state-schema" env:"STATE_SCHEMA" default:"squid_processor" description:"Schema holding the processor status table"`
	StateTable  string `long:"state-table" env:"STATE_TABLE" default:"status" description:"Name of the processor status table"`
	Isolation   string `long:"isolation" env:"ISOLATION" default:"SERIALIZABLE" choice:"SERIALIZABLE" choice:"READ COMMITTED" choice:"REPEATABLE READ" description:"Isolation level of coordinated transactions"`
}

// Validate returns an error if the Config is malformed, and otherwise fills
// unset fields with their defaults.
func (cfg *Config) Validate() error {
	if cfg.Engine == "" {
		if e := os.Getenv("DB_ENGINE"); e != "" {
			cfg.Engine = Engine(e)
		} else {
			cfg.Engine = Postgres
		}
	}
	if _, ok := dialects[cfg.Engine]; !ok {
		return errors.Errorf("unknown engine %q", cfg.Engine)
	}
	if cfg.StateSchema == "" {
		cfg.StateSchema = "squid_processor"
	}
	if cfg.StateTable == "" {
		cfg.StateTable = "status"
	}
	switch cfg.Isolation {
	case "":
		cfg.Isolation = Serializable
	case Serializable, ReadCommitted, RepeatableRead:
		// Pass.
	default:
		return errors.Errorf("unknown isolation level %q", cfg.Isolation)
	}
	return nil
}

// Driver returns the registered "database/sql" driver name of the
// configured Engine, suitable for opening out-of-band connections (eg, for
// applying entity schema migrations, which are not a coordinator concern).
func (cfg Config) Driver() (string, error) {
	var d, ok = dialects[cfg.Engine]
	if !ok {
		return "", errors.Errorf("unknown engine %q", cfg.Engine)
	}
	return d.driver, nil
}

func (cfg Config) isolation() sql.IsolationLevel {
	switch cfg.Isolation {
	case ReadCommitted:
		return sql.LevelReadCommitted
	case RepeatableRead:
		return sql.LevelRepeatableRead
	default:
		return sql.LevelSerializable
	}
}
