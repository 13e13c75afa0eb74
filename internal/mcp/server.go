// Package mcp exposes the question-answering pipeline and the direct read
// paths as MCP tools over stdio.
package mcp

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/charmbracelet/log"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/lox/qif-agent/internal/agent"
	"github.com/lox/qif-agent/internal/db"
	"github.com/lox/qif-agent/internal/format"
)

type Server struct {
	db     *db.DB
	agent  *agent.Agent
	logger *log.Logger
}

func New(database *db.DB, queryAgent *agent.Agent, logger *log.Logger) *Server {
	return &Server{
		db:     database,
		agent:  queryAgent,
		logger: logger,
	}
}

func (s *Server) Run() error {
	mcpServer := server.NewMCPServer(
		"QIF Query Agent",
		"1.0.0",
	)

	mcpServer.AddTool(mcp.NewTool("ask_question",
		mcp.WithDescription("Ask a natural-language question about the transaction history"),
		mcp.WithString("question",
			mcp.Required(),
			mcp.Description("The question to answer"),
		),
	), s.askQuestionHandler)

	mcpServer.AddTool(mcp.NewTool("list_transactions",
		mcp.WithDescription("List all transactions for a calendar year"),
		mcp.WithString("year",
			mcp.Required(),
			mcp.Description("Calendar year, e.g. 2004"),
		),
	), s.listTransactionsHandler)

	mcpServer.AddTool(mcp.NewTool("count_transactions",
		mcp.WithDescription("Count transactions, optionally for a single year"),
		mcp.WithString("year",
			mcp.Description("Optional calendar year to count within"),
		),
	), s.countTransactionsHandler)

	// Start the stdio server
	if err := server.ServeStdio(mcpServer); err != nil {
		return err
	}

	return nil
}

func (s *Server) askQuestionHandler(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	question, ok := request.Params.Arguments["question"].(string)
	if !ok || question == "" {
		return nil, errors.New("question must be a non-empty string")
	}

	answer, err := s.agent.Answer(ctx, question)
	if err != nil {
		return nil, fmt.Errorf("failed to answer question: %w", err)
	}

	return mcp.NewToolResultText(answer), nil
}

func (s *Server) listTransactionsHandler(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	year, err := yearArgument(request, true)
	if err != nil {
		return nil, err
	}

	transactions, err := s.db.TransactionsForYear(ctx, year)
	if err != nil {
		return nil, fmt.Errorf("failed to list transactions: %w", err)
	}

	var result string
	for _, t := range transactions {
		date := ""
		if t.Date.Valid {
			date = t.Date.String
		}
		result += fmt.Sprintf("%s: %s - %s\n", date, format.Currency(t.Amount), t.Payee)
		if t.Category != "" {
			result += fmt.Sprintf("  Category: %s\n", t.Category)
		}
		if t.Memo != "" {
			result += fmt.Sprintf("  Memo: %s\n", t.Memo)
		}
		result += "\n"
	}
	if result == "" {
		result = fmt.Sprintf("No transactions found for %d\n", year)
	}

	return mcp.NewToolResultText(result), nil
}

func (s *Server) countTransactionsHandler(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if _, ok := request.Params.Arguments["year"]; !ok {
		count, err := s.db.Count(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to count transactions: %w", err)
		}
		return mcp.NewToolResultText(fmt.Sprintf("%d transactions", count)), nil
	}

	year, err := yearArgument(request, true)
	if err != nil {
		return nil, err
	}
	count, err := s.db.CountForYear(ctx, year)
	if err != nil {
		return nil, fmt.Errorf("failed to count transactions: %w", err)
	}
	return mcp.NewToolResultText(fmt.Sprintf("%d transactions in %d", count, year)), nil
}

func yearArgument(request mcp.CallToolRequest, required bool) (int, error) {
	value, ok := request.Params.Arguments["year"]
	if !ok {
		if required {
			return 0, errors.New("year is required")
		}
		return 0, nil
	}

	switch v := value.(type) {
	case int:
		return v, nil
	case float64:
		return int(v), nil
	case string:
		year, err := strconv.Atoi(v)
		if err != nil {
			return 0, fmt.Errorf("year must be a valid integer: %w", err)
		}
		return year, nil
	default:
		return 0, errors.New("year must be a number or string")
	}
}
