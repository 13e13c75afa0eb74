package format

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRowsEmpty(t *testing.T) {
	assert.Equal(t, "No results found.", Rows([]string{"payee"}, nil))
	assert.Equal(t, "No results found.", Rows(nil, [][]any{}))
}

func TestRowsAggregateSentence(t *testing.T) {
	got := Rows([]string{"total"}, [][]any{{float64(100)}})
	assert.Equal(t, "The total is 100.0.", got)

	got = Rows([]string{"transaction_count"}, [][]any{{int64(7)}})
	assert.Equal(t, "The transaction count is 7.", got)

	got = Rows([]string{"avg_amount"}, [][]any{{12.345}})
	assert.Equal(t, "The avg amount is 12.345.", got)
}

func TestRowsMarkdownTable(t *testing.T) {
	columns := []string{"date", "payee", "amount"}
	rows := [][]any{
		{"2004-04-11", "Acme Club", float64(100)},
		{"2005-01-02", "Power Co", 1234.5},
	}

	got := Rows(columns, rows)
	want := "| date | payee | amount |\n" +
		"| --- | --- | --- |\n" +
		"| 2004-04-11 | Acme Club | $100.00 |\n" +
		"| 2005-01-02 | Power Co | $1,234.50 |"
	assert.Equal(t, want, got)
}

func TestRowsSingleColumnMultipleRows(t *testing.T) {
	// Multiple rows never take the sentence path, even with one column.
	got := Rows([]string{"payee"}, [][]any{{"Acme Club"}, {"Power Co"}})
	want := "| payee |\n" +
		"| --- |\n" +
		"| Acme Club |\n" +
		"| Power Co |"
	assert.Equal(t, want, got)
}

func TestValue(t *testing.T) {
	assert.Equal(t, "", Value("memo", nil))
	assert.Equal(t, "2004-04-11", Value("date", time.Date(2004, 4, 11, 0, 0, 0, 0, time.UTC)))
	assert.Equal(t, "$100.00", Value("amount", float64(100)))
	assert.Equal(t, "$42.00", Value("amount", int64(42)))
	assert.Equal(t, "100.0", Value("total", float64(100)))
	assert.Equal(t, "free text", Value("memo", "free text"))
	assert.Equal(t, "bytes", Value("memo", []byte("bytes")))
}

func TestCurrency(t *testing.T) {
	tests := []struct {
		amount float64
		want   string
	}{
		{0, "$0.00"},
		{100, "$100.00"},
		{1234.56, "$1,234.56"},
		{1234567.891, "$1,234,567.89"},
		{-45.1, "-$45.10"},
		{999, "$999.00"},
		{1000, "$1,000.00"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Currency(tt.amount), "Currency(%v)", tt.amount)
	}
}

func TestFloat(t *testing.T) {
	assert.Equal(t, "100.0", Float(100))
	assert.Equal(t, "0.5", Float(0.5))
	assert.Equal(t, "-3.0", Float(-3))
	assert.Equal(t, "12.345", Float(12.345))
}
