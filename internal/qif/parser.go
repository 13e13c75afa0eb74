package qif

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/shopspring/decimal"
)

// Transaction represents a single QIF transaction. Date is nil when the
// source field was missing or unparseable.
type Transaction struct {
	Date     *time.Time
	Payee    string
	Category string
	Memo     string
	Amount   float64
}

// QIF dates come in two encodings, with or without the apostrophe year
// separator, and single-digit months and days are common.
var dateLayouts = []string{"1/2'2006", "1/2/2006"}

// Parser reads QIF files. Field-level failures degrade to zero values with a
// logged warning; they never abort the file or the batch.
type Parser struct {
	logger *log.Logger
}

// New creates a QIF parser
func New(logger *log.Logger) *Parser {
	return &Parser{logger: logger}
}

// ParseDir parses every file in dir with a .qif extension (case-insensitive)
// and returns the combined transactions. Files are visited in filesystem
// enumeration order, which is not guaranteed stable across systems.
func (p *Parser) ParseDir(dir string) ([]Transaction, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read QIF directory: %w", err)
	}

	var transactions []Transaction
	for _, entry := range entries {
		if entry.IsDir() || !strings.EqualFold(filepath.Ext(entry.Name()), ".qif") {
			continue
		}
		fileTransactions, err := p.ParseFile(filepath.Join(dir, entry.Name()))
		if err != nil {
			return nil, err
		}
		p.logger.Debug("Parsed QIF file", "file", entry.Name(), "transactions", len(fileTransactions))
		transactions = append(transactions, fileTransactions...)
	}

	return transactions, nil
}

// ParseFile reads a QIF file and returns a slice of transactions. Every `^`
// delimiter flushes the current record, and a trailing record without a
// closing `^` is still captured.
func (p *Parser) ParseFile(filename string) ([]Transaction, error) {
	infile, err := os.Open(filename)
	if err != nil {
		return nil, err
	}
	defer infile.Close()

	scanner := bufio.NewScanner(infile)
	scanner.Split(bufio.ScanLines)

	var transactions []Transaction
	current := record{}

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if len(line) == 0 {
			continue
		}

		if line == "^" {
			transactions = append(transactions, p.finish(current))
			current = record{}
			continue
		}

		value := line[1:]
		switch line[:1] {
		case "D":
			current.date = value
			current.seen = true
		case "T":
			current.amount = value
			current.seen = true
		case "P":
			current.payee = value
			current.seen = true
		case "L":
			current.category = value
			current.seen = true
		case "M":
			current.memo = value
			current.seen = true
		default:
			// Unknown tags are skipped for forward compatibility.
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}

	if current.seen {
		transactions = append(transactions, p.finish(current))
	}

	return transactions, nil
}

// record accumulates raw field values between `^` delimiters.
type record struct {
	date     string
	amount   string
	payee    string
	category string
	memo     string
	seen     bool
}

func (p *Parser) finish(r record) Transaction {
	t := Transaction{
		Payee:    r.payee,
		Category: r.category,
		Memo:     r.memo,
	}
	if r.date != "" {
		t.Date = p.ParseDate(r.date)
	}
	if r.amount != "" {
		t.Amount = p.ParseAmount(r.amount)
	}
	return t
}

// ParseDate parses a QIF date. Unrecognized encodings return nil with a
// logged warning rather than an error.
func (p *Parser) ParseDate(value string) *time.Time {
	for _, layout := range dateLayouts {
		if d, err := time.Parse(layout, value); err == nil {
			return &d
		}
	}
	p.logger.Warn("Failed to parse QIF date", "value", value)
	return nil
}

// ParseAmount parses a QIF amount after stripping thousands separators.
// Non-numeric values return 0 with a logged warning.
func (p *Parser) ParseAmount(value string) float64 {
	cleaned := strings.ReplaceAll(value, ",", "")
	d, err := decimal.NewFromString(cleaned)
	if err != nil {
		p.logger.Warn("Failed to parse QIF amount", "value", value)
		return 0
	}
	f, _ := d.Float64()
	return f
}
