// blockline is a command-line tool for operating checkpointed block-indexing
// pipelines: inspecting and advancing the processor checkpoint, and running
// a demonstration ingester.
package main

import (
	"context"
	"fmt"

	_ "github.com/jackc/pgx/v5/stdlib" // Registers the "pgx" driver.
	"github.com/jessevdk/go-flags"
	_ "github.com/lib/pq"           // Registers the "postgres" driver.
	_ "github.com/mattn/go-sqlite3" // Registers the "sqlite3" driver.
	log "github.com/sirupsen/logrus"

	mbp "go.blockline.dev/core/mainboilerplate"
	"go.blockline.dev/core/statedb"
)

const iniFilename = "blockline.ini"

// Config is the top-level configuration object of the blockline binary.
var Config = new(struct {
	Log mbp.LogConfig  `group:"Logging" namespace:"log" env-namespace:"LOG"`
	DB  statedb.Config `group:"Database" namespace:"db" env-namespace:"DB"`
})

type cmdStatus struct{}

func (c *cmdStatus) Execute([]string) error {
	mbp.InitLog(Config.Log)

	var db, err = statedb.NewDatabase(Config.DB)
	mbp.Must(err, "invalid database configuration")

	height, err := db.Connect(context.Background())
	mbp.Must(err, "failed to connect to database")
	defer db.Close()

	fmt.Println(height)
	return nil
}

type cmdAdvance struct {
	Height int64 `long:"height" required:"true" description:"Height to advance the checkpoint to"`
}

func (c *cmdAdvance) Execute([]string) error {
	mbp.InitLog(Config.Log)

	var db, err = statedb.NewDatabase(Config.DB)
	mbp.Must(err, "invalid database configuration")

	var ctx = context.Background()
	_, err = db.Connect(ctx)
	mbp.Must(err, "failed to connect to database")

	mbp.Must(db.Advance(ctx, c.Height), "failed to advance checkpoint", "height", c.Height)
	log.WithField("height", c.Height).Info("advanced checkpoint")
	return db.Close()
}

func main() {
	var parser = flags.NewParser(Config, flags.Default)
	parser.LongDescription = `blockline operates the checkpointed transaction coordinator of a
block-indexing pipeline. Database connection settings may be drawn from flags,
environment variables, or a '` + iniFilename + `' file in the current working
directory or under ~/.config/blockline.`

	var _, err = parser.AddCommand("status",
		"Print the last committed checkpoint height", `
status connects to the database and prints the height of the last committed
checkpoint, or -1 if the store has never been processed.`, &cmdStatus{})
	mbp.Must(err, "failed to add command")

	_, err = parser.AddCommand("advance",
		"Advance the checkpoint with no payload", `
advance bumps the checkpoint to --height within an otherwise empty
transaction. It is used to record ranges of source blocks which produced no
derived entities.`, &cmdAdvance{})
	mbp.Must(err, "failed to add command")

	_, err = parser.AddCommand("ingest",
		"Run a demonstration block ingester", `
ingest fabricates batches of source-chain blocks and applies each batch,
together with its checkpoint advancement, as one atomic transaction. It
serves Prometheus metrics and a health check over HTTP, and shuts down
gracefully on SIGTERM.`, &cmdIngest{})
	mbp.Must(err, "failed to add command")

	mbp.MustParseConfig(parser, iniFilename)
}
