package db

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	_ "github.com/ncruces/go-sqlite3/driver"
	_ "github.com/ncruces/go-sqlite3/embed"

	"github.com/charmbracelet/log"
	"github.com/lox/qif-agent/internal/apperr"
	"github.com/lox/qif-agent/internal/qif"
)

// DB is the SQLite transaction store. A single handle is shared by all
// readers; the transactions table is only written during Rebuild, which is
// expected to run at startup before serving begins.
type DB struct {
	db     *sql.DB
	path   string
	qifDir string
	parser *qif.Parser
	logger *log.Logger
}

// Transaction is one row of the transactions table. Date is NULL when the
// source record's date could not be parsed.
type Transaction struct {
	Date     sql.NullString
	Payee    string
	Category string
	Memo     string
	Amount   float64
}

// New opens the store at storePath, creating the parent directory if needed.
// qifDir is the directory Rebuild ingests from.
func New(storePath, qifDir string, logger *log.Logger) (*DB, error) {
	if dir := filepath.Dir(storePath); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("%w: failed to create store directory: %v", apperr.ErrStore, err)
		}
	}

	conn, err := sql.Open("sqlite3", storePath)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to open store: %v", apperr.ErrStore, err)
	}

	return &DB{
		db:     conn,
		path:   storePath,
		qifDir: qifDir,
		parser: qif.New(logger),
		logger: logger,
	}, nil
}

// Ensure rebuilds the store only when the store file is absent or empty. An
// existing store is trusted as-is; stale data is accepted until the next
// explicit rebuild.
func (d *DB) Ensure(ctx context.Context) error {
	info, err := os.Stat(d.path)
	if err == nil && info.Size() > 0 {
		d.logger.Debug("Store already present", "path", d.path, "size", info.Size())
		return nil
	}
	return d.Rebuild(ctx, NewNoopProgress)
}

// Rebuild wipes and repopulates the transactions table from the QIF source
// directory in one pass. Field-level parse failures have already degraded to
// NULL or zero inside the parser; any store write failure here is fatal for
// the rebuild.
func (d *DB) Rebuild(ctx context.Context, newProgress ProgressFunc) error {
	transactions, err := d.parser.ParseDir(d.qifDir)
	if err != nil {
		return fmt.Errorf("%w: %v", apperr.ErrStore, err)
	}
	d.logger.Info("Rebuilding transaction store", "path", d.path, "transactions", len(transactions))

	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%w: failed to begin rebuild transaction: %v", apperr.ErrStore, err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		DROP TABLE IF EXISTS transactions;
		CREATE TABLE transactions (
			date DATE,
			payee TEXT,
			category TEXT,
			memo TEXT,
			amount REAL
		);
	`)
	if err != nil {
		return fmt.Errorf("%w: failed to recreate transactions table: %v", apperr.ErrStore, err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO transactions (date, payee, category, memo, amount)
		VALUES (?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("%w: failed to prepare insert: %v", apperr.ErrStore, err)
	}
	defer stmt.Close()

	progress := newProgress(len(transactions))
	defer progress.Close()

	for _, t := range transactions {
		var date sql.NullString
		if t.Date != nil {
			date = sql.NullString{String: t.Date.Format("2006-01-02"), Valid: true}
		}
		if _, err := stmt.ExecContext(ctx, date, t.Payee, t.Category, t.Memo, t.Amount); err != nil {
			return fmt.Errorf("%w: failed to insert transaction: %v", apperr.ErrStore, err)
		}
		if err := progress.Add(1); err != nil {
			d.logger.Warn("Failed to update progress", "error", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%w: failed to commit rebuild: %v", apperr.ErrStore, err)
	}

	d.logger.Info("Transaction store rebuilt", "transactions", len(transactions))
	return nil
}

// Query executes model-generated SQL verbatim and returns the column names
// with the raw rows. The text was only gated by a select-prefix check, so
// SQLite errors here are expected input, not bugs; they surface with the
// underlying database message attached.
func (d *DB) Query(ctx context.Context, query string) ([]string, [][]any, error) {
	rows, err := d.db.QueryContext(ctx, query)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", apperr.ErrExecution, err)
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", apperr.ErrExecution, err)
	}

	var results [][]any
	for rows.Next() {
		values := make([]any, len(columns))
		scanTargets := make([]any, len(columns))
		for i := range values {
			scanTargets[i] = &values[i]
		}
		if err := rows.Scan(scanTargets...); err != nil {
			return nil, nil, fmt.Errorf("%w: %v", apperr.ErrExecution, err)
		}
		results = append(results, values)
	}
	if err := rows.Err(); err != nil {
		return nil, nil, fmt.Errorf("%w: %v", apperr.ErrExecution, err)
	}

	return columns, results, nil
}

// TransactionsForYear returns all transactions whose date falls in the given
// year, in store order. An empty result is not an error.
func (d *DB) TransactionsForYear(ctx context.Context, year int) ([]Transaction, error) {
	// Selecting through strftime keeps the date a plain TEXT value; the
	// driver would decode a bare DATE column into time.Time.
	rows, err := d.db.QueryContext(ctx, `
		SELECT strftime('%Y-%m-%d', date) AS date, payee, category, memo, amount
		FROM transactions
		WHERE strftime('%Y', date) = ?
	`, strconv.Itoa(year))
	if err != nil {
		return nil, fmt.Errorf("%w: failed to list transactions: %v", apperr.ErrStore, err)
	}
	defer rows.Close()

	var transactions []Transaction
	for rows.Next() {
		var t Transaction
		if err := rows.Scan(&t.Date, &t.Payee, &t.Category, &t.Memo, &t.Amount); err != nil {
			return nil, fmt.Errorf("%w: failed to scan transaction: %v", apperr.ErrStore, err)
		}
		transactions = append(transactions, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: failed to list transactions: %v", apperr.ErrStore, err)
	}

	return transactions, nil
}

// Count returns the number of transactions in the store
func (d *DB) Count(ctx context.Context) (int, error) {
	var count int
	err := d.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM transactions`).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("%w: failed to count transactions: %v", apperr.ErrStore, err)
	}
	return count, nil
}

// CountForYear returns the number of transactions for the given year
func (d *DB) CountForYear(ctx context.Context, year int) (int, error) {
	var count int
	err := d.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM transactions WHERE strftime('%Y', date) = ?
	`, strconv.Itoa(year)).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("%w: failed to count transactions: %v", apperr.ErrStore, err)
	}
	return count, nil
}

// Close closes the store connection
func (d *DB) Close() error {
	return d.db.Close()
}
