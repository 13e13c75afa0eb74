package db

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/charmbracelet/log"
	"github.com/lox/qif-agent/internal/apperr"
)

func setupTestDB(t *testing.T, fixtures map[string]string) (*DB, string) {
	t.Helper()

	qifDir := t.TempDir()
	for name, content := range fixtures {
		if err := os.WriteFile(filepath.Join(qifDir, name), []byte(content), 0644); err != nil {
			t.Fatalf("failed to write fixture: %v", err)
		}
	}

	logger := log.New(io.Discard)
	storePath := filepath.Join(t.TempDir(), "transactions.db")

	database, err := New(storePath, qifDir, logger)
	if err != nil {
		t.Fatalf("failed to create database: %v", err)
	}
	t.Cleanup(func() { database.Close() })

	return database, qifDir
}

const twoTransactionFixture = `D4/11'2004
T100.00
PAcme Club
LDues
^
D1/2/2005
T50
PPower Co
LUtil
^
`

func TestRebuildAndCount(t *testing.T) {
	database, _ := setupTestDB(t, map[string]string{"bank.qif": twoTransactionFixture})
	ctx := context.Background()

	if err := database.Rebuild(ctx, NewNoopProgress); err != nil {
		t.Fatalf("failed to rebuild store: %v", err)
	}

	count, err := database.Count(ctx)
	if err != nil {
		t.Fatalf("failed to count transactions: %v", err)
	}
	if count != 2 {
		t.Fatalf("expected 2 transactions, got %d", count)
	}
}

func TestRebuildWipesPreviousContents(t *testing.T) {
	database, qifDir := setupTestDB(t, map[string]string{"bank.qif": twoTransactionFixture})
	ctx := context.Background()

	if err := database.Rebuild(ctx, NewNoopProgress); err != nil {
		t.Fatalf("failed to rebuild store: %v", err)
	}
	// A second rebuild over the same source must not duplicate rows.
	if err := database.Rebuild(ctx, NewNoopProgress); err != nil {
		t.Fatalf("failed to rebuild store: %v", err)
	}

	count, err := database.Count(ctx)
	if err != nil {
		t.Fatalf("failed to count transactions: %v", err)
	}
	if count != 2 {
		t.Fatalf("expected 2 transactions after second rebuild, got %d", count)
	}

	// A rebuild after the source grows picks up the new records.
	extra := "D7/4/2005\nT10.00\nPStand\n^\n"
	if err := os.WriteFile(filepath.Join(qifDir, "extra.qif"), []byte(extra), 0644); err != nil {
		t.Fatalf("failed to write fixture: %v", err)
	}
	if err := database.Rebuild(ctx, NewNoopProgress); err != nil {
		t.Fatalf("failed to rebuild store: %v", err)
	}
	count, err = database.Count(ctx)
	if err != nil {
		t.Fatalf("failed to count transactions: %v", err)
	}
	if count != 3 {
		t.Fatalf("expected 3 transactions after source grew, got %d", count)
	}
}

func TestEnsureSkipsExistingStore(t *testing.T) {
	database, qifDir := setupTestDB(t, map[string]string{"bank.qif": twoTransactionFixture})
	ctx := context.Background()

	if err := database.Ensure(ctx); err != nil {
		t.Fatalf("failed to ensure store: %v", err)
	}

	// New source data must not appear until the next explicit rebuild.
	extra := "D7/4/2005\nT10.00\nPStand\n^\n"
	if err := os.WriteFile(filepath.Join(qifDir, "extra.qif"), []byte(extra), 0644); err != nil {
		t.Fatalf("failed to write fixture: %v", err)
	}
	if err := database.Ensure(ctx); err != nil {
		t.Fatalf("failed to ensure store: %v", err)
	}

	count, err := database.Count(ctx)
	if err != nil {
		t.Fatalf("failed to count transactions: %v", err)
	}
	if count != 2 {
		t.Fatalf("expected ensure to be a no-op on an existing store, got %d transactions", count)
	}
}

func TestTransactionsForYear(t *testing.T) {
	database, _ := setupTestDB(t, map[string]string{"bank.qif": twoTransactionFixture})
	ctx := context.Background()

	if err := database.Rebuild(ctx, NewNoopProgress); err != nil {
		t.Fatalf("failed to rebuild store: %v", err)
	}

	transactions, err := database.TransactionsForYear(ctx, 2004)
	if err != nil {
		t.Fatalf("failed to list transactions: %v", err)
	}
	if len(transactions) != 1 {
		t.Fatalf("expected 1 transaction for 2004, got %d", len(transactions))
	}

	tx := transactions[0]
	if !tx.Date.Valid || tx.Date.String != "2004-04-11" {
		t.Errorf("expected date 2004-04-11, got %+v", tx.Date)
	}
	if tx.Amount != 100.00 {
		t.Errorf("expected amount 100.00, got %v", tx.Amount)
	}
	if tx.Category != "Dues" {
		t.Errorf("expected category %q, got %q", "Dues", tx.Category)
	}

	empty, err := database.TransactionsForYear(ctx, 1990)
	if err != nil {
		t.Fatalf("failed to list transactions: %v", err)
	}
	if len(empty) != 0 {
		t.Fatalf("expected no transactions for 1990, got %d", len(empty))
	}
}

func TestCountForYear(t *testing.T) {
	database, _ := setupTestDB(t, map[string]string{"bank.qif": twoTransactionFixture})
	ctx := context.Background()

	if err := database.Rebuild(ctx, NewNoopProgress); err != nil {
		t.Fatalf("failed to rebuild store: %v", err)
	}

	count, err := database.CountForYear(ctx, 2005)
	if err != nil {
		t.Fatalf("failed to count transactions: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected 1 transaction for 2005, got %d", count)
	}
}

func TestRebuildKeepsMalformedRecords(t *testing.T) {
	fixture := `Dnot-a-date
Tnot-a-number
PMystery
^
D4/11'2004
T1,234.56
PBig Spender
^
`
	database, _ := setupTestDB(t, map[string]string{"odd.qif": fixture})
	ctx := context.Background()

	if err := database.Rebuild(ctx, NewNoopProgress); err != nil {
		t.Fatalf("failed to rebuild store: %v", err)
	}

	count, err := database.Count(ctx)
	if err != nil {
		t.Fatalf("failed to count transactions: %v", err)
	}
	if count != 2 {
		t.Fatalf("expected malformed record to still produce a row, got %d rows", count)
	}

	// The malformed row has a NULL date and so falls out of year filters.
	columns, rows, err := database.Query(ctx, "SELECT payee, amount FROM transactions WHERE date IS NULL")
	if err != nil {
		t.Fatalf("failed to query store: %v", err)
	}
	if len(columns) != 2 || len(rows) != 1 {
		t.Fatalf("expected 1 row with NULL date, got %d", len(rows))
	}
	if rows[0][0] != "Mystery" {
		t.Errorf("expected payee %q, got %v", "Mystery", rows[0][0])
	}
	if rows[0][1] != float64(0) {
		t.Errorf("expected zero amount, got %v", rows[0][1])
	}
}

func TestQueryAggregate(t *testing.T) {
	database, _ := setupTestDB(t, map[string]string{"bank.qif": twoTransactionFixture})
	ctx := context.Background()

	if err := database.Rebuild(ctx, NewNoopProgress); err != nil {
		t.Fatalf("failed to rebuild store: %v", err)
	}

	columns, rows, err := database.Query(ctx, "SELECT SUM(amount) as total FROM transactions WHERE category='Dues'")
	if err != nil {
		t.Fatalf("failed to query store: %v", err)
	}
	if len(columns) != 1 || columns[0] != "total" {
		t.Fatalf("expected single column %q, got %v", "total", columns)
	}
	if len(rows) != 1 {
		t.Fatalf("expected 1 row, got %d", len(rows))
	}
	if rows[0][0] != float64(100) {
		t.Errorf("expected sum 100, got %v", rows[0][0])
	}
}

func TestQueryErrorsAreExecutionErrors(t *testing.T) {
	database, _ := setupTestDB(t, map[string]string{"bank.qif": twoTransactionFixture})
	ctx := context.Background()

	if err := database.Rebuild(ctx, NewNoopProgress); err != nil {
		t.Fatalf("failed to rebuild store: %v", err)
	}

	_, _, err := database.Query(ctx, "SELECT no_such_column FROM transactions")
	if err == nil {
		t.Fatal("expected error for unknown column")
	}
	if !errors.Is(err, apperr.ErrExecution) {
		t.Errorf("expected execution error, got %v", err)
	}
}
