// Package format renders query results for display: currency strings for
// amounts, ISO-8601 for dates, a sentence for single aggregates, and a
// markdown table for everything else.
package format

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// EmptyMessage is returned for any query with no rows, regardless of the SQL.
const EmptyMessage = "No results found."

// Rows renders a result set. Exactly one row with one column is treated as an
// aggregate and rendered as a sentence; anything else becomes a markdown
// table with a header and separator row.
func Rows(columns []string, rows [][]any) string {
	if len(rows) == 0 {
		return EmptyMessage
	}

	if len(rows) == 1 && len(columns) == 1 {
		name := strings.ReplaceAll(columns[0], "_", " ")
		return fmt.Sprintf("The %s is %s.", name, Value(columns[0], rows[0][0]))
	}

	var sb strings.Builder
	sb.WriteString("| " + strings.Join(columns, " | ") + " |\n")

	separators := make([]string, len(columns))
	for i := range separators {
		separators[i] = "---"
	}
	sb.WriteString("| " + strings.Join(separators, " | ") + " |\n")

	for _, row := range rows {
		cells := make([]string, len(columns))
		for i := range columns {
			cells[i] = Value(columns[i], row[i])
		}
		sb.WriteString("| " + strings.Join(cells, " | ") + " |\n")
	}

	return strings.TrimRight(sb.String(), "\n")
}

// Value renders a single cell. The column name decides currency treatment:
// only a column literally named amount is money.
func Value(column string, v any) string {
	if v == nil {
		return ""
	}
	switch value := v.(type) {
	case time.Time:
		return value.Format("2006-01-02")
	case float64:
		if strings.EqualFold(column, "amount") {
			return Currency(value)
		}
		return Float(value)
	case int64:
		if strings.EqualFold(column, "amount") {
			return Currency(float64(value))
		}
		return strconv.FormatInt(value, 10)
	case []byte:
		return string(value)
	case string:
		return value
	default:
		return fmt.Sprintf("%v", value)
	}
}

// Currency renders an amount as a dollar string with thousands separators and
// two decimal places.
func Currency(amount float64) string {
	s := decimal.NewFromFloat(amount).StringFixed(2)
	negative := strings.HasPrefix(s, "-")
	s = strings.TrimPrefix(s, "-")

	parts := strings.SplitN(s, ".", 2)
	integer := parts[0]

	var groups []string
	for len(integer) > 3 {
		groups = append([]string{integer[len(integer)-3:]}, groups...)
		integer = integer[:len(integer)-3]
	}
	groups = append([]string{integer}, groups...)

	out := "$" + strings.Join(groups, ",") + "." + parts[1]
	if negative {
		out = "-" + out
	}
	return out
}

// Float renders a number keeping at least one decimal place, so an aggregate
// of whole dollars still reads as 100.0 rather than 100.
func Float(v float64) string {
	s := strconv.FormatFloat(v, 'f', -1, 64)
	if !strings.Contains(s, ".") {
		s += ".0"
	}
	return s
}
