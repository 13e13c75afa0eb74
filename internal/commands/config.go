package commands

import "time"

// BackendConfig contains common flag definitions for the model backend
type BackendConfig struct {
	// OllamaURL is the base URL of the Ollama backend
	OllamaURL string `help:"Base URL of the Ollama backend" env:"OLLAMA_URL" required:""`
	// Model is the model used for SQL generation
	Model string `help:"Model to use for SQL generation" default:"phi4-mini:3.8b" env:"OLLAMA_MODEL"`
	// Timeout bounds each backend request
	Timeout time.Duration `help:"Timeout for model backend requests" default:"60s" env:"OLLAMA_TIMEOUT"`
}

// CommonConfig contains configuration common to all commands
type CommonConfig struct {
	// QIFDir is the directory holding the QIF export files
	QIFDir string `help:"Directory containing QIF files" default:"/qifs" env:"QIF_DIR"`
	// DBPath is the path to the SQLite transaction store
	DBPath string `help:"Path to the SQLite transaction store" default:"/db/transactions.db" env:"DB_PATH"`
	// LogLevel is the logging level to use
	LogLevel string `help:"Log level (debug, info, warn, error)" default:"info" enum:"debug,info,warn,error" env:"LOG_LEVEL"`
}
