package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/alecthomas/kong"
	"github.com/charmbracelet/log"
	_ "github.com/joho/godotenv/autoload"
	"golang.org/x/sync/errgroup"

	"github.com/lox/qif-agent/internal/agent"
	"github.com/lox/qif-agent/internal/api"
	"github.com/lox/qif-agent/internal/commands"
	"github.com/lox/qif-agent/internal/db"
	"github.com/lox/qif-agent/internal/ollama"
	"github.com/lox/qif-agent/internal/sqlgen"
)

type CLI struct {
	commands.CommonConfig
	commands.BackendConfig

	Listen              string `help:"Address to serve the HTTP API on" default:":8000" env:"LISTEN_ADDR"`
	BackendWaitAttempts uint   `help:"Attempts when waiting for the model backend at startup" default:"5"`
}

func (c *CLI) Run() error {
	logger := log.New(os.Stderr)

	// Set log level
	level, err := log.ParseLevel(c.LogLevel)
	if err != nil {
		logger.Fatal("Invalid log level", "error", err)
	}
	logger.SetLevel(level)

	// Open the transaction store
	database, err := db.New(c.DBPath, c.QIFDir, logger)
	if err != nil {
		logger.Fatal("Failed to open transaction store", "error", err)
	}
	defer database.Close()

	// Initialize the model backend client
	client, err := ollama.NewClient(ollama.NewConfig().
		WithURL(c.OllamaURL).
		WithModel(c.Model).
		WithTimeout(c.Timeout).
		WithLogger(logger))
	if err != nil {
		logger.Fatal("Failed to create backend client", "error", err)
	}

	// Build the store and wait for the backend in parallel. The store is
	// only rebuilt here, before serving starts; steady-state requests read
	// it concurrently.
	startupCtx, cancelStartup := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancelStartup()

	g, gCtx := errgroup.WithContext(startupCtx)
	g.Go(func() error {
		return database.Ensure(gCtx)
	})
	g.Go(func() error {
		return client.WaitReady(gCtx, c.BackendWaitAttempts)
	})
	if err := g.Wait(); err != nil {
		logger.Fatal("Startup failed", "error", err)
	}
	logger.Info("Store ready", "path", c.DBPath)

	// Compose the question pipeline
	translator := sqlgen.New(client, logger)
	queryAgent := agent.New(database, translator, logger)
	handler := api.NewHandler(database, queryAgent, client, logger)

	server := &http.Server{
		Addr:    c.Listen,
		Handler: api.NewRouter(handler),
	}

	serverErr := make(chan error, 1)
	go func() {
		serverErr <- server.ListenAndServe()
	}()
	logger.Info("Serving HTTP API", "addr", c.Listen)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serverErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
	case sig := <-sigCh:
		logger.Info("Shutting down", "signal", sig)
		shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancelShutdown()
		if err := server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown error: %w", err)
		}
	}

	return nil
}

func main() {
	var cli CLI
	ctx := kong.Parse(&cli,
		kong.Name("qif-agent"),
		kong.Description("Answers natural-language questions about QIF transaction exports"),
		kong.UsageOnError(),
	)

	err := ctx.Run()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
