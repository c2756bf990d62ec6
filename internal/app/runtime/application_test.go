package runtime

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/R3E-Network/layout_service/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestApplicationServesAndShutsDown(t *testing.T) {
	cfg := config.Default()
	cfg.Server.Port = 0
	cfg.Audit.File = filepath.Join(t.TempDir(), "audit.jsonl")

	application, err := NewApplicationWithConfig(cfg, nil)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- application.Run(ctx) }()

	require.Eventually(t, func() bool { return application.Addr() != "" }, 5*time.Second, 10*time.Millisecond)
	base := "http://" + application.Addr()

	resp, err := http.Get(base + "/healthz")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.NotEmpty(t, resp.Header.Get("X-Trace-ID"))

	body, _ := json.Marshal(map[string]any{"id": 1, "name": "Main", "num_columns": 1, "modules_per_column": 3})
	resp, err = http.Post(base+"/store/", "application/json", bytes.NewReader(body))
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusCreated, resp.StatusCode)

	cancel()
	require.NoError(t, <-done)
	require.NoError(t, application.Shutdown(context.Background()))

	data, err := os.ReadFile(cfg.Audit.File)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"action":"store.create"`)
	assert.Equal(t, 1, strings.Count(strings.TrimSpace(string(data)), "\n")+1)
}

func TestApplicationStartFailsOnBusyPort(t *testing.T) {
	first, err := NewApplicationWithConfig(withPort(0), nil)
	require.NoError(t, err)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = first.Run(ctx) }()
	require.Eventually(t, func() bool { return first.Addr() != "" }, 5*time.Second, 10*time.Millisecond)
	defer first.Shutdown(context.Background())

	_, port, _ := strings.Cut(first.Addr(), "127.0.0.1:")
	cfg := config.Default()
	cfg.Server.Port, err = strconv.Atoi(port)
	require.NoError(t, err)
	second, err := NewApplicationWithConfig(cfg, nil)
	require.NoError(t, err)
	assert.Error(t, second.Run(context.Background()))
}

func withPort(port int) *config.Config {
	cfg := config.Default()
	cfg.Server.Port = port
	return cfg
}
