package repository

//go:generate go run go.uber.org/mock/mockgen -source=./transaction.go -destination=./mocks/transaction_mock.go -package=mocks

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"parking/config"
	"parking/infras/otel"
	"parking/infras/postgres"
	"parking/shared/constant"
	"parking/shared/logger"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/rs/zerolog/log"
)

const defaultTxMaxRetry = 3

// TxFunc is executed inside one serializable transaction. It may be invoked more than once
// when the database aborts the transaction with a serialization failure, so it must not
// produce side effects outside of sqltx.
type TxFunc func(ctx context.Context, sqltx *sqlx.Tx) error

type Transactor interface {
	WithinTransaction(ctx context.Context, fn TxFunc) error
}

type transactorImpl struct {
	db       *postgres.Connection
	otel     otel.Otel
	maxRetry int
}

func NewTransactor(db *postgres.Connection, otel otel.Otel, cfg *config.Config) Transactor {
	maxRetry := cfg.DB.Postgres.TxMaxRetry
	if maxRetry <= 0 {
		maxRetry = defaultTxMaxRetry
	}

	return &transactorImpl{
		db:       db,
		otel:     otel,
		maxRetry: maxRetry,
	}
}

func (t *transactorImpl) WithinTransaction(ctx context.Context, fn TxFunc) (err error) {
	ctx, scope := t.otel.NewScope(ctx, constant.OtelRepositoryScopeName, constant.OtelRepositoryScopeName+".WithinTransaction")
	defer scope.End()

	for attempt := 1; ; attempt++ {
		err = t.run(ctx, fn)
		if err == nil || !IsRetryable(err) || attempt >= t.maxRetry {
			break
		}

		log.Warn().Err(err).Int("attempt", attempt).Msg("transaction aborted by concurrent update, retrying")
		scope.AddEvent(fmt.Sprintf("retry %d", attempt))
	}

	scope.TraceIfError(err)

	return err
}

func (t *transactorImpl) run(ctx context.Context, fn TxFunc) error {
	sqltx, err := t.db.Write.BeginTxx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		logger.ErrorWithStack(err)

		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	if err = fn(ctx, sqltx); err != nil {
		if rbErr := sqltx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
			log.Error().Err(rbErr).Msg("failed to rollback transaction")
		}

		return err
	}

	if err = sqltx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

// IsRetryable reports whether err is a serialization failure or a deadlock.
func IsRetryable(err error) bool {
	var pqErr *pq.Error
	if !errors.As(err, &pqErr) {
		return false
	}

	switch string(pqErr.Code) {
	case constant.PqErrorCodeSerializationFailure, constant.PqErrorCodeDeadlockDetected:
		return true
	default:
		return false
	}
}

// IsUniqueViolation reports whether err comes from a unique constraint.
func IsUniqueViolation(err error) bool {
	var pqErr *pq.Error
	if !errors.As(err, &pqErr) {
		return false
	}

	return string(pqErr.Code) == constant.PqErrorCodeUniqueViolation
}
