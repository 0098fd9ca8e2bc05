package statedb

import (
	"context"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"go.blockline.dev/core/metrics"
)

// maxTxAttempts bounds the attempts of one Transact call: an initial attempt
// plus three retries of serialization failures. Each retry begins from a
// brand-new transaction envelope.
const maxTxAttempts = 4

// serializationFailure is the SQLSTATE with which engines abort transactions
// that cannot be serialized under the active isolation level.
const serializationFailure = "40001"

// IsSerializationFailure returns whether err is an engine-signaled
// serialization conflict, and is therefore safe to retry from a fresh
// transaction. It understands errors of the lib/pq and pgx drivers, as well
// as any driver error exposing a SQLState method.
func IsSerializationFailure(err error) bool {
	err = errors.Cause(err)

	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return string(pqErr.Code) == serializationFailure
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == serializationFailure
	}
	var coded interface{ SQLState() string }
	if errors.As(err, &coded) {
		return coded.SQLState() == serializationFailure
	}
	return false
}

// retrySerializationFailure invokes fn until it succeeds, fails with an
// error other than a serialization conflict, or exhausts maxTxAttempts.
func retrySerializationFailure(ctx context.Context, fn func(context.Context) error) error {
	for attempt := 1; ; attempt++ {
		var err = fn(ctx)
		if err == nil || attempt == maxTxAttempts || !IsSerializationFailure(err) {
			return err
		}
		metrics.TxRetriesTotal.Inc()
		log.WithFields(log.Fields{"attempt": attempt, "err": err}).
			Warn("retrying transaction serialization failure")
	}
}
