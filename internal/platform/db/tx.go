package db

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/go-sql-driver/mysql"
)

type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// RunInTx starts a transaction and runs fn. COMMIT when fn returns nil,
// ROLLBACK otherwise.
func RunInTx(ctx context.Context, db *sql.DB, opts *sql.TxOptions, fn func(ctx context.Context, tx DBTX) error) error {
	tx, err := db.BeginTx(ctx, opts)
	if err != nil {
		return err
	}

	if err := fn(ctx, tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}

// ReadOnly runs fn in a read-only transaction.
func ReadOnly(ctx context.Context, db *sql.DB, fn func(ctx context.Context, tx DBTX) error) error {
	return RunInTx(ctx, db, &sql.TxOptions{ReadOnly: true}, fn)
}

const (
	mysqlErrDuplicateEntry = 1062
	mysqlErrNoSuchTable    = 1146
	mysqlErrLockWait       = 1205
	mysqlErrDeadlock       = 1213
)

// IsDuplicateEntry reports whether err is a unique-key violation.
func IsDuplicateEntry(err error) bool {
	var my *mysql.MySQLError
	return errors.As(err, &my) && my.Number == mysqlErrDuplicateEntry
}

// IsDuplicateEntryOn narrows IsDuplicateEntry to a specific key name, so
// callers can tell which constraint fired when a statement touches several.
func IsDuplicateEntryOn(err error, keyName string) bool {
	var my *mysql.MySQLError
	if !errors.As(err, &my) || my.Number != mysqlErrDuplicateEntry {
		return false
	}
	return strings.Contains(my.Message, keyName)
}

// IsLockContention reports a deadlock or lock-wait-timeout rollback (1213,
// 1205). InnoDB has already rolled the transaction back; restarting it is
// safe.
func IsLockContention(err error) bool {
	var my *mysql.MySQLError
	if !errors.As(err, &my) {
		return false
	}
	return my.Number == mysqlErrDeadlock || my.Number == mysqlErrLockWait
}

// IsMissingTable reports whether err means the schema is not provisioned yet.
// Read paths treat this as an empty result.
func IsMissingTable(err error) bool {
	var my *mysql.MySQLError
	return errors.As(err, &my) && my.Number == mysqlErrNoSuchTable
}
