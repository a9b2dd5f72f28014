package store

import (
	"context"
	"database/sql"
	"errors"
	"log"
	"time"

	"github.com/lib/pq"

	"github.com/minibank/backend/internal/bankerr"
)

// ErrOptimisticLock is returned when a versioned balance update hits a row
// whose version moved underneath it. RunTx retries the whole operation.
var ErrOptimisticLock = errors.New("optimistic lock conflict")

const maxTxAttempts = 3

// RunTx executes fn inside a single database transaction. The whole unit
// either commits or leaves no trace. Serialization failures, deadlocks, lock
// timeouts and optimistic-lock conflicts retry the entire operation up to
// maxTxAttempts; anything else that is not a domain error surfaces as a
// retryable PersistenceError.
func (s *Store) RunTx(ctx context.Context, op string, fn func(tx *sql.Tx) error) error {
	var lastErr error

	for attempt := 1; attempt <= maxTxAttempts; attempt++ {
		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return &bankerr.PersistenceError{Op: op, Err: err}
		}

		err = fn(tx)
		if err == nil {
			if err = tx.Commit(); err == nil {
				return nil
			}
		} else {
			tx.Rollback()
		}

		if bankerr.IsDomain(err) {
			return err
		}

		if !retryable(err) {
			return &bankerr.PersistenceError{Op: op, Err: err}
		}

		lastErr = err
		log.Printf("[STORE] %s conflicted (attempt %d/%d), retrying: %v", op, attempt, maxTxAttempts, err)
		time.Sleep(time.Duration(attempt) * 10 * time.Millisecond)
	}

	return &bankerr.PersistenceError{Op: op, Err: lastErr}
}

func retryable(err error) bool {
	if errors.Is(err, ErrOptimisticLock) {
		return true
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch pqErr.Code {
		case "40001", "40P01", "55P03": // serialization, deadlock, lock_not_available
			return true
		}
	}
	return false
}
