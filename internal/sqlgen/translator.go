// Package sqlgen turns natural-language questions into candidate SQL by
// prompting the model backend and sanitizing what comes back.
package sqlgen

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/charmbracelet/log"
	"golang.org/x/exp/slices"

	"github.com/lox/qif-agent/internal/apperr"
)

// Generator produces a raw completion for a prompt.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// Schema is the one table the model is allowed to know about. It is embedded
// verbatim in every prompt.
const Schema = `CREATE TABLE transactions (
    date DATE,       -- ISO-8601, e.g. 2004-04-11, NULL when unknown
    payee TEXT,
    category TEXT,
    memo TEXT,
    amount REAL
)`

// promptRules are the standing instructions sent with every question.
var promptRules = []string{
	"Return exactly one SQLite SELECT statement and nothing else.",
	"Use strftime('%Y', date) to filter or group by year; do not use vendor-specific date functions such as YEAR() or DATE_PART().",
	"Do not wrap the statement in markdown code fences.",
	"Do not explain the statement or add any commentary.",
}

var fencePattern = regexp.MustCompile("(?i)```(?:sql)?")

// Translator asks the backend for SQL and gates the result. The gate is a
// case-insensitive SELECT prefix check only: it does not parse the statement,
// block chained statements, or catch writes hidden in subqueries. That is a
// known limitation, not a security boundary.
type Translator struct {
	generator Generator
	logger    *log.Logger
}

func New(generator Generator, logger *log.Logger) *Translator {
	return &Translator{
		generator: generator,
		logger:    logger,
	}
}

// Translate produces a single candidate SELECT statement for the question.
func (t *Translator) Translate(ctx context.Context, question string) (string, error) {
	raw, err := t.generator.Generate(ctx, BuildPrompt(question))
	if err != nil {
		return "", err
	}

	cleaned := Sanitize(raw)
	if cleaned == "" || !strings.HasPrefix(strings.ToLower(cleaned), "select") {
		return "", fmt.Errorf("%w: %q", apperr.ErrTranslation, cleaned)
	}

	t.logger.Debug("Translated question", "question", question, "sql", cleaned)
	return cleaned, nil
}

// BuildPrompt assembles the deterministic instruction prompt for a question.
func BuildPrompt(question string) string {
	rules := slices.Clone(promptRules)
	rules = append(rules, fmt.Sprintf("Question: %s", question))

	var sb strings.Builder
	sb.WriteString("You translate questions about personal finance transactions into SQLite SQL.\n\n")
	sb.WriteString("Schema:\n")
	sb.WriteString(Schema)
	sb.WriteString("\n\n")
	for _, rule := range rules {
		sb.WriteString(rule)
		sb.WriteString("\n")
	}
	return sb.String()
}

// Sanitize strips markdown fence markers, trims whitespace, and removes one
// trailing statement terminator.
func Sanitize(raw string) string {
	cleaned := fencePattern.ReplaceAllString(raw, "")
	cleaned = strings.TrimSpace(cleaned)
	cleaned = strings.TrimSuffix(cleaned, ";")
	return strings.TrimSpace(cleaned)
}
