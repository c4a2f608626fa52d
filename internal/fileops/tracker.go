// Package fileops records what a file-affecting tool call did so a human
// reviewer can approve or reject it.
//
// A Tracker follows each call through a small state machine: started when
// the call is issued, completed when its result message arrives, discarded
// if the result never shows up. On write and edit completions it diffs the
// backend content captured before the call against the content after; on
// read completions it parses the rendered numbered-line output instead.
package fileops

import (
	"context"
	"regexp"
	"strconv"
	"sync"

	"go.uber.org/zap"

	"github.com/agentfs/agentfs/internal/vfs"
)

// Metrics summarizes the line-level effect of one operation.
type Metrics struct {
	LinesRead    int `json:"lines_read"`
	LinesWritten int `json:"lines_written"`
	LinesAdded   int `json:"lines_added"`
	LinesRemoved int `json:"lines_removed"`
	StartLine    int `json:"start_line"`
	EndLine      int `json:"end_line"`
}

// Record is the finalized account of one tracked tool call.
type Record struct {
	ToolCallID string         `json:"tool_call_id"`
	ToolName   string         `json:"tool_name"`
	Args       map[string]any `json:"args"`
	Diff       string         `json:"diff,omitempty"`
	Error      string         `json:"error,omitempty"`
	Metrics    Metrics        `json:"metrics"`
}

// trackedTools are the only tool names that ever produce a record.
var trackedTools = map[string]bool{
	"read_file":  true,
	"write_file": true,
	"edit_file":  true,
}

type pendingOp struct {
	toolName     string
	args         map[string]any
	path         string
	before       string
	beforeExists bool
}

// Tracker follows file-affecting tool calls from start to completion.
// Safe for concurrent use; calls within one turn may overlap.
type Tracker struct {
	backend vfs.Backend
	logger  *zap.Logger

	mu      sync.Mutex
	pending map[string]*pendingOp
}

// NewTracker creates a tracker reading before/after content from backend.
func NewTracker(backend vfs.Backend, logger *zap.Logger) *Tracker {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Tracker{
		backend: backend,
		logger:  logger,
		pending: make(map[string]*pendingOp),
	}
}

// Start registers a tool call. Untracked tool names are ignored. For write
// and edit calls the current file content is captured eagerly so the diff
// baseline reflects the instant the call was issued.
func (t *Tracker) Start(ctx context.Context, toolName string, args map[string]any, toolCallID string) {
	if !trackedTools[toolName] {
		return
	}
	op := &pendingOp{
		toolName: toolName,
		args:     args,
		path:     stringArg(args, "file_path"),
	}
	if toolName == "write_file" || toolName == "edit_file" {
		if content, err := t.backend.Read(ctx, op.path, 0, 0); err == nil {
			op.before = content
			op.beforeExists = true
		}
	}
	t.mu.Lock()
	t.pending[toolCallID] = op
	t.mu.Unlock()
}

// Complete finalizes the call identified by toolCallID using its rendered
// result output. It returns nil for untracked or unknown calls.
func (t *Tracker) Complete(ctx context.Context, toolCallID, output string) *Record {
	t.mu.Lock()
	op, ok := t.pending[toolCallID]
	delete(t.pending, toolCallID)
	t.mu.Unlock()
	if !ok {
		return nil
	}

	record := &Record{
		ToolCallID: toolCallID,
		ToolName:   op.toolName,
		Args:       op.args,
	}

	switch op.toolName {
	case "read_file":
		record.Metrics = readMetrics(output)
	case "write_file", "edit_file":
		after, err := t.backend.Read(ctx, op.path, 0, 0)
		if err != nil {
			// The call never produced a file; nothing to diff.
			return record
		}
		diff, diffErr := unifiedDiff(t.beforeText(op), after, op.path)
		if diffErr != nil {
			t.logger.Warn("diff generation failed",
				zap.String("tool_call_id", toolCallID),
				zap.Error(diffErr),
			)
			return record
		}
		record.Diff = diff
		record.Metrics.LinesAdded, record.Metrics.LinesRemoved = countChanges(diff)
		record.Metrics.LinesWritten = countLines(after)
	}
	return record
}

// Discard drops a started call whose result will never arrive.
func (t *Tracker) Discard(toolCallID string) {
	t.mu.Lock()
	delete(t.pending, toolCallID)
	t.mu.Unlock()
}

func (t *Tracker) beforeText(op *pendingOp) string {
	if op.beforeExists {
		return op.before
	}
	return ""
}

// lineNumber matches the "%6d\t" prefix of rendered read output.
// Continuation rows for split long lines ("   2.1\t") are excluded so the
// count reflects logical file lines.
var lineNumber = regexp.MustCompile(`(?m)^\s*(\d+)\t`)

func readMetrics(output string) Metrics {
	nums := lineNumber.FindAllStringSubmatch(output, -1)
	if len(nums) == 0 {
		return Metrics{}
	}
	first, _ := strconv.Atoi(nums[0][1])
	last, _ := strconv.Atoi(nums[len(nums)-1][1])
	return Metrics{
		LinesRead: len(nums),
		StartLine: first,
		EndLine:   last,
	}
}

func stringArg(args map[string]any, key string) string {
	s, _ := args[key].(string)
	return s
}
