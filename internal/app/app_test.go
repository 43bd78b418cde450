package app

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/RubachokBoss/relief-fund/portal-service/internal/config"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func memoryConfig() *config.Config {
	return &config.Config{
		Server:  config.ServerConfig{Address: "127.0.0.1:0"},
		Storage: config.StorageConfig{Driver: config.DriverMemory},
		Blob:    config.BlobConfig{Driver: config.DriverMemory},
		Validation: config.ValidationConfig{
			MaxFileSize:  1024,
			AllowedTypes: []string{"application/pdf"},
		},
		Assistant: config.AssistantConfig{Timeout: time.Second},
		Workers:   config.WorkersConfig{PoolSize: 2},
		CORS: config.CORSConfig{
			AllowedOrigins: []string{"https://portal.example"},
			AllowedMethods: []string{"GET", "POST"},
			AllowedHeaders: []string{"Content-Type", "X-User-ID", "X-User-Role"},
		},
	}
}

func TestNew_InMemoryWiring(t *testing.T) {
	a, err := New(memoryConfig(), zerolog.Nop())
	require.NoError(t, err)
	require.NotNil(t, a.server)
	assert.Nil(t, a.db)
	assert.Nil(t, a.reviewWorker)

	rec := httptest.NewRecorder()
	a.server.Handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	body, _ := json.Marshal(map[string]string{"text": "hello"})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/assistant/messages", bytes.NewReader(body))
	req.Header.Set("X-User-ID", "stu-1")
	req.Header.Set("X-User-Role", "student")
	rec = httptest.NewRecorder()
	a.server.Handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
}

func TestNew_CORSPreflight(t *testing.T) {
	a, err := New(memoryConfig(), zerolog.Nop())
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodOptions, "/api/v1/catalog", nil)
	req.Header.Set("Origin", "https://portal.example")
	req.Header.Set("Access-Control-Request-Method", "GET")
	rec := httptest.NewRecorder()
	a.server.Handler.ServeHTTP(rec, req)

	assert.Equal(t, "https://portal.example", rec.Header().Get("Access-Control-Allow-Origin"))
}
