package repos

import (
	"strings"

	"github.com/jmoiron/sqlx"

	"github.com/parvezdia/textile-waste-management/internal/domain"
)

// WithTx runs fn inside one transaction, rolling back on error.
func WithTx(db *sqlx.DB, fn func(tx *sqlx.Tx) error) error {
	tx, err := db.Beginx()
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()
	if err := fn(tx); err != nil {
		return err
	}
	return tx.Commit()
}

// WithTxRetry runs fn inside one transaction and retries the whole unit
// once when it lost a lock race; a second conflict surfaces as
// domain.ErrConflict. fn must be safe to re-run from scratch.
func WithTxRetry(db *sqlx.DB, fn func(tx *sqlx.Tx) error) error {
	err := WithTx(db, fn)
	if err == nil || !isBusy(err) {
		return err
	}
	if err = WithTx(db, fn); err != nil && isBusy(err) {
		return domain.ErrConflict
	}
	return err
}

func isBusy(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "SQLITE_BUSY") ||
		strings.Contains(msg, "database is locked") ||
		strings.Contains(msg, "database table is locked")
}
