package ollama

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lox/qif-agent/internal/apperr"
)

func newTestClient(t *testing.T, url string) *Client {
	t.Helper()
	client, err := NewClient(NewConfig().
		WithURL(url).
		WithModel("test-model").
		WithTimeout(5 * time.Second).
		WithLogger(log.New(io.Discard)))
	require.NoError(t, err)
	return client
}

func TestGenerateAccumulatesChunks(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/generate", r.URL.Path)

		var req generateRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "test-model", req.Model)
		assert.True(t, req.Stream)

		w.Header().Set("Content-Type", "application/x-ndjson")
		io.WriteString(w, `{"response":"SELECT ","done":false}`+"\n")
		io.WriteString(w, `{"response":"COUNT(*) ","done":false}`+"\n")
		io.WriteString(w, `{"response":"FROM transactions","done":true}`+"\n")
	}))
	defer server.Close()

	client := newTestClient(t, server.URL)
	text, err := client.Generate(context.Background(), "how many transactions?")
	require.NoError(t, err)
	assert.Equal(t, "SELECT COUNT(*) FROM transactions", text)
}

func TestGenerateSkipsUndecodableChunks(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `{"response":"SELECT 1","done":false}`+"\n")
		io.WriteString(w, `this is not json`+"\n")
		io.WriteString(w, `{"response":";","done":true}`+"\n")
	}))
	defer server.Close()

	client := newTestClient(t, server.URL)
	text, err := client.Generate(context.Background(), "q")
	require.NoError(t, err)
	assert.Equal(t, "SELECT 1;", text)
}

func TestGenerateBackendError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model not found", http.StatusNotFound)
	}))
	defer server.Close()

	client := newTestClient(t, server.URL)
	_, err := client.Generate(context.Background(), "q")
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperr.ErrBackend))
	assert.Contains(t, err.Error(), "model not found")
}

func TestGenerateUnreachableBackend(t *testing.T) {
	client := newTestClient(t, "http://127.0.0.1:1")
	_, err := client.Generate(context.Background(), "q")
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperr.ErrBackend))
}

func TestHealth(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/v1/models", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{"object":"list","data":[{"id":"test-model","object":"model"}]}`)
	}))
	defer server.Close()

	client := newTestClient(t, server.URL)
	require.NoError(t, client.Health(context.Background()))
}

func TestHealthFailure(t *testing.T) {
	client := newTestClient(t, "http://127.0.0.1:1")
	err := client.Health(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperr.ErrBackend))
}

func TestConfigValidate(t *testing.T) {
	logger := log.New(io.Discard)

	_, err := NewClient(NewConfig().WithLogger(logger).WithURL(""))
	assert.Error(t, err)

	_, err = NewClient(NewConfig().WithLogger(logger).WithModel(""))
	assert.Error(t, err)

	_, err = NewClient(NewConfig().WithLogger(logger).WithTimeout(0))
	assert.Error(t, err)

	_, err = NewClient(NewConfig())
	assert.Error(t, err)
}
