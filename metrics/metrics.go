package metrics

import "github.com/prometheus/client_golang/prometheus"

// Key constants are exported primarily for documentation reasons. Typically,
// they will not be used programmatically outside of defining the collectors.

// Keys for statedb metrics.
const (
	CheckpointHeightKey   = "statedb_checkpoint_height"
	ForeignWriterTotalKey = "statedb_foreign_writer_total"
	TxCommittedTotalKey   = "statedb_transactions_committed_total"
	TxRetriesTotalKey     = "statedb_transaction_retries_total"
	TxRollbackTotalKey    = "statedb_transactions_rolled_back_total"
)

// Collectors for statedb metrics.
var (
	CheckpointHeight = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: CheckpointHeightKey,
		Help: "Last committed checkpoint height.",
	})
	ForeignWriterTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: ForeignWriterTotalKey,
		Help: "Cumulative number of detected foreign writers of the status table.",
	})
	TxCommittedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: TxCommittedTotalKey,
		Help: "Cumulative number of committed checkpointed transactions.",
	})
	TxRetriesTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: TxRetriesTotalKey,
		Help: "Cumulative number of transaction attempts retried due to serialization failures.",
	})
	TxRollbackTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: TxRollbackTotalKey,
		Help: "Cumulative number of rolled-back checkpointed transactions.",
	})
)

// StateDBCollectors returns the metrics collectors of the statedb package.
func StateDBCollectors() []prometheus.Collector {
	return []prometheus.Collector{
		CheckpointHeight,
		ForeignWriterTotal,
		TxCommittedTotal,
		TxRetriesTotal,
		TxRollbackTotal,
	}
}
