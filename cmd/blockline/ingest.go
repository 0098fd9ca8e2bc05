package main

import (
	"context"
	"database/sql"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"

	mbp "go.blockline.dev/core/mainboilerplate"
	"go.blockline.dev/core/metrics"
	"go.blockline.dev/core/model"
	"go.blockline.dev/core/statedb"
)

var (
	ingestedBlocksTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "blockline_ingested_blocks_total",
		Help: "Cumulative number of ingested blocks.",
	})
	batchDurationSeconds = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "blockline_batch_duration_seconds",
		Help:    "Latency of applying one block batch.",
		Buckets: prometheus.DefBuckets,
	})
)

type cmdIngest struct {
	Port      string        `long:"port" env:"PORT" default:"8080" description:"Port of the metrics and health HTTP endpoint"`
	Interval  time.Duration `long:"interval" env:"INTERVAL" default:"1s" description:"Interval between block batches"`
	BatchSize int64         `long:"batch-size" env:"BATCH_SIZE" default:"50" description:"Number of blocks per batch"`
	ChainID   string        `long:"chain-id" env:"CHAIN_ID" default:"1" description:"Identifier of the synthetic source chain"`
}

func (c *cmdIngest) Execute([]string) error {
	mbp.InitLog(Config.Log)
	prometheus.MustRegister(metrics.StateDBCollectors()...)
	prometheus.MustRegister(ingestedBlocksTotal, batchDurationSeconds)

	// Entity schema is applied out-of-band of the coordinator, over a
	// short-lived connection of its own.
	mbp.Must(Config.DB.Validate(), "invalid database configuration")
	driver, err := Config.DB.Driver()
	mbp.Must(err, "invalid database configuration")

	conn, err := sql.Open(driver, Config.DB.DSN)
	mbp.Must(err, "failed to open database")
	for _, stmt := range model.Schema {
		_, err = conn.Exec(stmt)
		mbp.Must(err, "failed to apply entity schema")
	}
	mbp.Must(conn.Close(), "failed to close migration connection")

	db, err := statedb.NewDatabase(Config.DB)
	mbp.Must(err, "invalid database configuration")

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	height, err := db.Connect(ctx)
	mbp.Must(err, "failed to connect to database")
	defer db.Close()

	var mux = http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	var srv = &http.Server{Addr: ":" + c.Port, Handler: mux}
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.WithField("err", err).Error("http server stopped")
			cancel()
		}
	}()
	log.WithFields(log.Fields{"addr": srv.Addr, "height": height}).Info("ingesting")

	var chain = newSyntheticChain(c.ChainID)
	var next = height + 1
	var ticker = time.NewTicker(c.Interval)
	defer ticker.Stop()

loop:
	for {
		select {
		case <-ctx.Done():
			break loop
		case <-ticker.C:
			var from, to = next, next + c.BatchSize - 1
			var batch = chain.NextBatch(from, to)
			var started = time.Now()

			if err := db.Transact(ctx, from, to, func(s *statedb.Store) error {
				return batch.Insert(ctx, s)
			}); err != nil {
				// The range rolled back whole. It is re-attempted next tick.
				log.WithFields(log.Fields{"from": from, "to": to, "err": err}).
					Error("failed to apply block batch")
				continue
			}
			batchDurationSeconds.Observe(time.Since(started).Seconds())
			ingestedBlocksTotal.Add(float64(to - from + 1))
			next = to + 1
		}
	}

	log.Info("shutting down")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	return srv.Shutdown(shutdownCtx)
}
