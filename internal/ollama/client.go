// Package ollama is a client for the Ollama generate API, the text-completion
// backend used to turn questions into SQL.
package ollama

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/avast/retry-go/v4"
	"github.com/charmbracelet/log"
	openai "github.com/sashabaranov/go-openai"

	"github.com/lox/qif-agent/internal/apperr"
)

// Config holds configuration for the Ollama backend
type Config struct {
	URL     string
	Model   string
	Timeout time.Duration
	Logger  *log.Logger
}

func NewConfig() Config {
	return Config{
		URL:     "http://localhost:11434",
		Model:   "phi4-mini:3.8b",
		Timeout: 60 * time.Second,
	}
}

func (c Config) WithURL(url string) Config {
	c.URL = url
	return c
}
func (c Config) WithModel(model string) Config {
	c.Model = model
	return c
}
func (c Config) WithTimeout(timeout time.Duration) Config {
	c.Timeout = timeout
	return c
}
func (c Config) WithLogger(logger *log.Logger) Config {
	c.Logger = logger
	return c
}

func (c Config) Validate() error {
	if c.URL == "" {
		return fmt.Errorf("backend URL is required")
	}
	if c.Model == "" {
		return fmt.Errorf("model name is required")
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("timeout must be greater than 0")
	}
	if c.Logger == nil {
		return fmt.Errorf("logger is required")
	}
	return nil
}

// Client talks to a single Ollama instance. The HTTP client carries a bounded
// timeout so a wedged backend fails the request instead of hanging it.
type Client struct {
	config     Config
	httpClient *http.Client
	models     *openai.Client
	logger     *log.Logger
}

func NewClient(config Config) (*Client, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	httpClient := &http.Client{
		Timeout: config.Timeout,
	}

	// Ollama exposes an OpenAI-compatible surface under /v1, which is what
	// the liveness probe lists models against.
	openaiConfig := openai.DefaultConfig("")
	openaiConfig.BaseURL = strings.TrimRight(config.URL, "/") + "/v1"
	openaiConfig.HTTPClient = httpClient

	return &Client{
		config:     config,
		httpClient: httpClient,
		models:     openai.NewClientWithConfig(openaiConfig),
		logger:     config.Logger,
	}, nil
}

type generateRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
	Stream bool   `json:"stream"`
}

type generateChunk struct {
	Response string `json:"response"`
	Done     bool   `json:"done"`
}

// Generate streams a completion for the prompt and returns the accumulated
// text. Chunks arrive one JSON object per line; a line that fails to decode
// is logged and skipped so a single garbled chunk cannot lose the rest of
// the stream.
func (c *Client) Generate(ctx context.Context, prompt string) (string, error) {
	body, err := json.Marshal(generateRequest{
		Model:  c.config.Model,
		Prompt: prompt,
		Stream: true,
	})
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	baseURL, err := url.Parse(c.config.URL)
	if err != nil {
		return "", fmt.Errorf("invalid base URL: %w", err)
	}
	generateURL := baseURL.JoinPath("api", "generate")

	req, err := http.NewRequestWithContext(ctx, "POST", generateURL.String(), bytes.NewBuffer(body))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %v", apperr.ErrBackend, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("%w: generate returned status %d: %s", apperr.ErrBackend, resp.StatusCode, respBody)
	}

	var sb strings.Builder
	chunks := 0
	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		var chunk generateChunk
		if err := json.Unmarshal(line, &chunk); err != nil {
			c.logger.Warn("Skipping undecodable stream chunk", "chunk", string(line), "error", err)
			continue
		}
		sb.WriteString(chunk.Response)
		chunks++
		if chunk.Done {
			break
		}
	}
	if err := scanner.Err(); err != nil {
		return "", fmt.Errorf("%w: reading stream: %v", apperr.ErrBackend, err)
	}

	c.logger.Debug("Generated completion",
		"model", c.config.Model,
		"chunks", chunks,
		"length", sb.Len(),
		"duration", time.Since(start))
	return sb.String(), nil
}

// Health reports whether the backend is reachable and serving models.
func (c *Client) Health(ctx context.Context) error {
	if _, err := c.models.ListModels(ctx); err != nil {
		return fmt.Errorf("%w: %v", apperr.ErrBackend, err)
	}
	return nil
}

// WaitReady polls Health with backoff until the backend responds or the
// attempts are exhausted. Only used at startup; per-request calls stay
// fail-fast.
func (c *Client) WaitReady(ctx context.Context, attempts uint) error {
	return retry.Do(
		func() error {
			return c.Health(ctx)
		},
		retry.Context(ctx),
		retry.Attempts(attempts),
		retry.DelayType(retry.BackOffDelay),
		retry.OnRetry(func(n uint, err error) {
			c.logger.Warn("Waiting for model backend", "attempt", n+1, "max_attempts", attempts, "error", err)
		}),
	)
}
