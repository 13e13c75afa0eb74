// Package agent wires translation, execution, and formatting into the
// question-answering pipeline.
package agent

import (
	"context"
	"time"

	"github.com/charmbracelet/log"

	"github.com/lox/qif-agent/internal/format"
)

// Translator turns a question into a candidate SELECT statement.
type Translator interface {
	Translate(ctx context.Context, question string) (string, error)
}

// Store executes a query and returns columns with raw rows.
type Store interface {
	Query(ctx context.Context, query string) ([]string, [][]any, error)
}

// Agent answers one question per call. Each request owns its whole pipeline;
// the only shared state is the read-only store behind the Store interface.
type Agent struct {
	store      Store
	translator Translator
	logger     *log.Logger
}

func New(store Store, translator Translator, logger *log.Logger) *Agent {
	return &Agent{
		store:      store,
		translator: translator,
		logger:     logger,
	}
}

// Answer translates the question into SQL, executes it, and formats the
// result. Errors keep their apperr category from the failing stage.
func (a *Agent) Answer(ctx context.Context, question string) (string, error) {
	start := time.Now()

	query, err := a.translator.Translate(ctx, question)
	if err != nil {
		return "", err
	}

	columns, rows, err := a.store.Query(ctx, query)
	if err != nil {
		return "", err
	}

	answer := format.Rows(columns, rows)
	a.logger.Info("Answered question",
		"question", question,
		"sql", query,
		"rows", len(rows),
		"duration", time.Since(start))
	return answer, nil
}
