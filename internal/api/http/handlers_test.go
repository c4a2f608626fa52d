package http

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/agentfs/agentfs/internal/evict"
	"github.com/agentfs/agentfs/internal/monitoring"
	"github.com/agentfs/agentfs/internal/types"
	"github.com/agentfs/agentfs/internal/vfs"
)

// One registry-backed collector set for the whole test binary; prometheus
// panics on duplicate registration.
var testMetrics = monitoring.NewMetrics()

func newTestRouter(backend vfs.Backend, tokenLimit int) *gin.Engine {
	gin.SetMode(gin.TestMode)
	handlers := NewHandlers("store", backend,
		evict.NewInterceptor(evict.WithTokenLimit(tokenLimit)),
		testMetrics, zap.NewNop())

	router := gin.New()
	router.GET("/health", handlers.Health)
	router.GET("/tools", handlers.ListTools)
	router.POST("/tools/execute", handlers.ExecuteTool)
	router.POST("/tools/preview", handlers.PreviewTool)
	return router
}

func postJSON(t *testing.T, router *gin.Engine, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	raw, err := json.Marshal(body)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestExecuteToolSuccess(t *testing.T) {
	backend := vfs.NewStoreBackend(vfs.NewMemoryKV())
	router := newTestRouter(backend, evict.DefaultTokenLimit)

	rec := postJSON(t, router, "/tools/execute", map[string]any{
		"tool_id": "write_file",
		"params":  map[string]any{"file_path": "/new.txt", "content": "hello"},
	})
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Success    bool   `json:"success"`
		ToolCallID string `json:"tool_call_id"`
		Output     string `json:"output"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
	assert.NotEmpty(t, resp.ToolCallID)
	assert.Equal(t, "Updated file /new.txt", resp.Output)

	content, err := backend.Read(context.Background(), "/new.txt", 0, 0)
	require.NoError(t, err)
	assert.Equal(t, "hello", content)
}

func TestExecuteToolUnknownToolEnvelope(t *testing.T) {
	router := newTestRouter(vfs.NewStoreBackend(vfs.NewMemoryKV()), evict.DefaultTokenLimit)

	rec := postJSON(t, router, "/tools/execute", map[string]any{
		"tool_id": "rm_rf",
		"params":  map[string]any{},
	})
	require.Equal(t, http.StatusBadRequest, rec.Code)

	var result types.Result
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	assert.False(t, result.Success)
	require.NotNil(t, result.Error)
	assert.Contains(t, *result.Error, "unknown tool")
}

func TestExecuteToolEvictsLargeOutput(t *testing.T) {
	ctx := context.Background()
	backend := vfs.NewStoreBackend(vfs.NewMemoryKV())
	res, err := backend.Write(ctx, "/big.txt", strings.Repeat("x", 5000))
	require.NoError(t, err)
	require.Empty(t, res.Error)

	router := newTestRouter(backend, 100)
	rec := postJSON(t, router, "/tools/execute", map[string]any{
		"tool_id": "read_file",
		"params":  map[string]any{"file_path": "/big.txt"},
	})
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Output   string `json:"output"`
		Eviction *struct {
			ToolCallID string `json:"tool_call_id"`
			Path       string `json:"path"`
			Pointer    string `json:"pointer"`
		} `json:"eviction"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Contains(t, resp.Output, "Tool result too large")
	require.NotNil(t, resp.Eviction)
	assert.True(t, strings.HasPrefix(resp.Eviction.Path, vfs.LargeResultPrefix))
	assert.Equal(t, resp.Output, resp.Eviction.Pointer)

	stored, err := backend.Read(ctx, resp.Eviction.Path, 0, 0)
	require.NoError(t, err)
	assert.Contains(t, stored, "xxxx")
}

func TestPreviewToolEdit(t *testing.T) {
	ctx := context.Background()
	backend := vfs.NewStoreBackend(vfs.NewMemoryKV())
	res, err := backend.Write(ctx, "/notes.txt", "alpha\nbeta")
	require.NoError(t, err)
	require.Empty(t, res.Error)

	router := newTestRouter(backend, evict.DefaultTokenLimit)
	rec := postJSON(t, router, "/tools/preview", map[string]any{
		"tool_id": "edit_file",
		"params": map[string]any{
			"file_path":  "/notes.txt",
			"old_string": "beta",
			"new_string": "gamma",
		},
	})
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Preview *struct {
			Diff string `json:"diff"`
		} `json:"preview"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.NotNil(t, resp.Preview)
	assert.Contains(t, resp.Preview.Diff, "+gamma")

	// Preview never mutates.
	content, err := backend.Read(ctx, "/notes.txt", 0, 0)
	require.NoError(t, err)
	assert.Equal(t, "alpha\nbeta", content)
}

func TestListTools(t *testing.T) {
	router := newTestRouter(vfs.NewStoreBackend(vfs.NewMemoryKV()), evict.DefaultTokenLimit)

	req := httptest.NewRequest(http.MethodGet, "/tools", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Tools []types.Tool `json:"tools"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Len(t, resp.Tools, 6)
}
