package database

import (
	"database/sql"
	"fmt"
)

// WithTransaction runs fn inside a database transaction, committing on
// success and rolling back on error or panic. A panic inside fn is
// recovered, rolled back, and re-surfaced as an error rather than
// propagated, so a single misbehaving rule or caller can't take down a
// batch evaluation.
func WithTransaction(db *sql.DB, fn func(*sql.Tx) error) (err error) {
	if db == nil {
		return fmt.Errorf("transaction: nil database connection")
	}

	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("transaction: begin failed: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			err = fmt.Errorf("transaction: panic recovered: %v", p)
		}
	}()

	if fnErr := fn(tx); fnErr != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return fmt.Errorf("transaction: rollback failed after error %v: %w", fnErr, rbErr)
		}
		return fmt.Errorf("transaction: rolled back: %w", fnErr)
	}

	if commitErr := tx.Commit(); commitErr != nil {
		return fmt.Errorf("transaction: commit failed: %w", commitErr)
	}

	return nil
}
