package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/alecthomas/kong"
	"github.com/charmbracelet/log"
	_ "github.com/joho/godotenv/autoload"

	"github.com/lox/qif-agent/internal/commands"
	"github.com/lox/qif-agent/internal/db"
	"github.com/lox/qif-agent/internal/qif"
)

type CLI struct {
	commands.CommonConfig

	DryRun     bool `help:"Print parsed transactions and exit (no store rebuild)" default:"false"`
	NoProgress bool `help:"Disable progress bar" default:"false"`
}

func (c *CLI) Run() error {
	logger := log.New(os.Stderr)

	// Set log level
	level, err := log.ParseLevel(c.LogLevel)
	if err != nil {
		logger.Fatal("Invalid log level", "error", err)
	}
	logger.SetLevel(level)

	if c.DryRun {
		parser := qif.New(logger)
		transactions, err := parser.ParseDir(c.QIFDir)
		if err != nil {
			logger.Fatal("Failed to parse QIF directory", "error", err)
		}
		logger.Info("Dry run: displaying parsed transactions", "count", len(transactions))
		for _, t := range transactions {
			b, err := json.MarshalIndent(t, "", "  ")
			if err != nil {
				fmt.Printf("Error marshaling transaction: %v\n", err)
				continue
			}
			fmt.Println(string(b))
		}
		return nil
	}

	database, err := db.New(c.DBPath, c.QIFDir, logger)
	if err != nil {
		logger.Fatal("Failed to open transaction store", "error", err)
	}
	defer database.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	newProgress := db.NewBarProgress
	if c.NoProgress {
		newProgress = db.NewNoopProgress
	}

	if err := database.Rebuild(ctx, newProgress); err != nil {
		logger.Fatal("Failed to rebuild transaction store", "error", err)
	}

	count, err := database.Count(ctx)
	if err != nil {
		logger.Fatal("Failed to count transactions", "error", err)
	}
	logger.Info("Transaction store rebuilt", "path", c.DBPath, "transactions", count)

	return nil
}

func main() {
	var cli CLI
	ctx := kong.Parse(&cli,
		kong.Name("qif-ingest"),
		kong.Description("Rebuilds the transaction store from a directory of QIF files"),
		kong.UsageOnError(),
	)

	err := ctx.Run()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
