package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"

	"github.com/lox/qif-agent/internal/agent"
	"github.com/lox/qif-agent/internal/db"
	"github.com/lox/qif-agent/internal/format"
)

// HealthChecker reports liveness of the model backend.
type HealthChecker interface {
	Health(ctx context.Context) error
}

// Handler holds the request handlers for the HTTP API. It is a thin adapter:
// all real work happens in the agent and the store.
type Handler struct {
	db     *db.DB
	agent  *agent.Agent
	health HealthChecker
	logger *log.Logger
}

func NewHandler(database *db.DB, queryAgent *agent.Agent, health HealthChecker, logger *log.Logger) *Handler {
	return &Handler{
		db:     database,
		agent:  queryAgent,
		health: health,
		logger: logger,
	}
}

type questionRequest struct {
	Question string `json:"question"`
}

type answerResponse struct {
	Answer string `json:"answer"`
}

// Chat answers a natural-language question about the transaction store.
func (h *Handler) Chat(w http.ResponseWriter, r *http.Request) {
	var req questionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, fmt.Errorf("invalid request body: %w", err))
		return
	}
	if strings.TrimSpace(req.Question) == "" {
		h.writeError(w, http.StatusBadRequest, fmt.Errorf("question is required"))
		return
	}

	answer, err := h.agent.Answer(r.Context(), req.Question)
	if err != nil {
		h.writeError(w, statusFor(err), err)
		return
	}

	h.writeJSON(w, http.StatusOK, answerResponse{Answer: answer})
}

// ChatUsage tells GET callers how to use the chat endpoint.
func (h *Handler) ChatUsage(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, map[string]string{
		"message": `Please POST JSON {"question":"..."} to this endpoint.`,
	})
}

type transactionJSON struct {
	Date     *string `json:"date"`
	Payee    string  `json:"payee"`
	Category string  `json:"category"`
	Memo     string  `json:"memo"`
	Amount   string  `json:"amount"`
}

type transactionsResponse struct {
	Transactions []transactionJSON `json:"transactions"`
}

// Transactions lists transactions for a year, with dates as ISO-8601 strings
// and amounts as formatted currency. No matches is an empty list, not an
// error.
func (h *Handler) Transactions(w http.ResponseWriter, r *http.Request) {
	year, err := strconv.Atoi(chi.URLParam(r, "year"))
	if err != nil {
		h.writeError(w, http.StatusBadRequest, fmt.Errorf("invalid year: %w", err))
		return
	}

	transactions, err := h.db.TransactionsForYear(r.Context(), year)
	if err != nil {
		h.writeError(w, statusFor(err), err)
		return
	}

	rows := make([]transactionJSON, 0, len(transactions))
	for _, t := range transactions {
		row := transactionJSON{
			Payee:    t.Payee,
			Category: t.Category,
			Memo:     t.Memo,
			Amount:   format.Currency(t.Amount),
		}
		if t.Date.Valid {
			date := t.Date.String
			row.Date = &date
		}
		rows = append(rows, row)
	}

	h.logger.Info("Listed transactions", "year", year, "count", len(rows))
	h.writeJSON(w, http.StatusOK, transactionsResponse{Transactions: rows})
}

// Count returns the total number of transactions in the store.
func (h *Handler) Count(w http.ResponseWriter, r *http.Request) {
	count, err := h.db.Count(r.Context())
	if err != nil {
		h.writeError(w, statusFor(err), err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]int{"count": count})
}

// CountYear returns the number of transactions for a single year.
func (h *Handler) CountYear(w http.ResponseWriter, r *http.Request) {
	year, err := strconv.Atoi(chi.URLParam(r, "year"))
	if err != nil {
		h.writeError(w, http.StatusBadRequest, fmt.Errorf("invalid year: %w", err))
		return
	}

	count, err := h.db.CountForYear(r.Context(), year)
	if err != nil {
		h.writeError(w, statusFor(err), err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]int{"year": year, "count": count})
}

// Health proxies liveness of the model backend.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	if err := h.health.Health(r.Context()); err != nil {
		h.writeError(w, http.StatusServiceUnavailable, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
