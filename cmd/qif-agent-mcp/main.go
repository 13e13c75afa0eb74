package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/alecthomas/kong"
	"github.com/charmbracelet/log"
	_ "github.com/joho/godotenv/autoload"

	"github.com/lox/qif-agent/internal/agent"
	"github.com/lox/qif-agent/internal/commands"
	"github.com/lox/qif-agent/internal/db"
	"github.com/lox/qif-agent/internal/mcp"
	"github.com/lox/qif-agent/internal/ollama"
	"github.com/lox/qif-agent/internal/sqlgen"
)

type CLI struct {
	commands.CommonConfig
	commands.BackendConfig
}

func (c *CLI) Run() error {
	// Logs go to stderr; stdout carries the MCP stdio transport.
	logger := log.New(os.Stderr)

	level, err := log.ParseLevel(c.LogLevel)
	if err != nil {
		logger.Fatal("Invalid log level", "error", err)
	}
	logger.SetLevel(level)

	database, err := db.New(c.DBPath, c.QIFDir, logger)
	if err != nil {
		logger.Fatal("Failed to open transaction store", "error", err)
	}
	defer database.Close()

	startupCtx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()
	if err := database.Ensure(startupCtx); err != nil {
		logger.Fatal("Failed to ensure transaction store", "error", err)
	}

	client, err := ollama.NewClient(ollama.NewConfig().
		WithURL(c.OllamaURL).
		WithModel(c.Model).
		WithTimeout(c.Timeout).
		WithLogger(logger))
	if err != nil {
		logger.Fatal("Failed to create backend client", "error", err)
	}

	translator := sqlgen.New(client, logger)
	queryAgent := agent.New(database, translator, logger)

	return mcp.New(database, queryAgent, logger).Run()
}

func main() {
	var cli CLI
	ctx := kong.Parse(&cli,
		kong.Name("qif-agent-mcp"),
		kong.Description("Serves the QIF question-answering tools over MCP stdio"),
		kong.UsageOnError(),
	)

	err := ctx.Run()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
