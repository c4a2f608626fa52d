// Package http exposes the agent file tools over a thin HTTP surface.
// It consumes the core's result objects and contains no file semantics of
// its own.
package http

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/agentfs/agentfs/internal/evict"
	"github.com/agentfs/agentfs/internal/fileops"
	"github.com/agentfs/agentfs/internal/monitoring"
	"github.com/agentfs/agentfs/internal/tools"
	"github.com/agentfs/agentfs/internal/types"
	"github.com/agentfs/agentfs/internal/vfs"
)

// Handlers carries the collaborators each endpoint needs.
type Handlers struct {
	backendName string
	backend     vfs.Backend
	runner      *tools.Runner
	tracker     *fileops.Tracker
	interceptor *evict.Interceptor
	metrics     *monitoring.Metrics
	logger      *zap.Logger
}

// NewHandlers creates the endpoint set.
func NewHandlers(backendName string, backend vfs.Backend, interceptor *evict.Interceptor, metrics *monitoring.Metrics, logger *zap.Logger) *Handlers {
	return &Handlers{
		backendName: backendName,
		backend:     backend,
		runner:      tools.NewRunner(backend),
		tracker:     fileops.NewTracker(backend, logger),
		interceptor: interceptor,
		metrics:     metrics,
		logger:      logger,
	}
}

// Root serves service identification.
func (h *Handlers) Root(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"service": "agentfs",
		"backend": h.backendName,
		"status":  "running",
	})
}

// Health serves liveness.
func (h *Handlers) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "healthy"})
}

// ListTools serves the tool catalog.
func (h *Handlers) ListTools(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"tools": h.runner.Definitions()})
}

// executeRequest is one tool invocation.
type executeRequest struct {
	ToolID string         `json:"tool_id" binding:"required"`
	Params map[string]any `json:"params"`
}

// ExecuteTool runs one tool call end to end: track, execute, intercept
// oversized output, and finalize the operation record.
func (h *Handlers) ExecuteTool(c *gin.Context) {
	var req executeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.Params == nil {
		req.Params = map[string]any{}
	}

	ctx := c.Request.Context()
	toolCallID := uuid.NewString()
	start := time.Now()

	h.tracker.Start(ctx, req.ToolID, req.Params, toolCallID)

	output, patch, err := h.runner.Execute(ctx, req.ToolID, req.Params)
	if err != nil {
		h.tracker.Discard(toolCallID)
		h.metrics.ObserveOp(h.backendName, req.ToolID, start, true)
		c.JSON(http.StatusBadRequest, types.Result{Success: false, Error: strPtr(err.Error())})
		return
	}

	msg, evictPatch, eviction, err := h.interceptor.Intercept(ctx, evict.ToolMessage{
		ToolCallID: toolCallID,
		ToolName:   req.ToolID,
		Content:    output,
	}, h.backend)
	if err != nil {
		h.logger.Error("eviction failed", zap.String("tool_call_id", toolCallID), zap.Error(err))
	} else if eviction != nil {
		h.metrics.ObserveEviction(len(output))
		output = msg.Content
		patch = mergePatches(patch, evictPatch)
	}

	record := h.tracker.Complete(ctx, toolCallID, output)
	h.metrics.ObserveOp(h.backendName, req.ToolID, start, false)

	c.JSON(http.StatusOK, gin.H{
		"success":      true,
		"tool_call_id": toolCallID,
		"output":       output,
		"patch":        patch,
		"record":       record,
		"eviction":     eviction,
	})
}

// previewRequest asks what a prospective mutation would do.
type previewRequest struct {
	ToolID string         `json:"tool_id" binding:"required"`
	Params map[string]any `json:"params"`
}

// PreviewTool builds an approval preview without executing anything.
func (h *Handlers) PreviewTool(c *gin.Context) {
	var req previewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	record, err := fileops.BuildApprovalPreview(c.Request.Context(), req.ToolID, req.Params, h.backend)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if record == nil {
		c.JSON(http.StatusOK, gin.H{"preview": nil})
		return
	}
	c.JSON(http.StatusOK, gin.H{"preview": record})
}

func mergePatches(a, b vfs.Patch) vfs.Patch {
	if a == nil {
		return b
	}
	for path, fd := range b {
		a[path] = fd
	}
	return a
}

func strPtr(s string) *string { return &s }
