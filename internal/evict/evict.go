// Package evict keeps oversized tool output out of the conversation.
//
// The interceptor sits between tool execution and the agent loop: results
// whose estimated token count exceeds a threshold are relocated into the
// active backend under the reserved /large_tool_results/ prefix and the
// visible result is replaced with a short pointer message the agent can
// follow with an ordinary read.
package evict

import (
	"context"
	"fmt"
	"regexp"

	"go.uber.org/zap"

	"github.com/agentfs/agentfs/internal/vfs"
)

// DefaultTokenLimit is the eviction threshold in estimated tokens.
const DefaultTokenLimit = 20000

// ToolMessage is a tool-call result as it would enter the conversation.
type ToolMessage struct {
	ToolCallID string `json:"tool_call_id"`
	ToolName   string `json:"tool_name,omitempty"`
	Content    string `json:"content"`
}

// Record describes one completed eviction: which tool call was relocated,
// where its content now lives, and the pointer text that replaced it.
// Consumers get the virtual path from here, never by parsing the message.
type Record struct {
	ToolCallID string `json:"tool_call_id"`
	Path       string `json:"path"`
	Pointer    string `json:"pointer"`
}

// Interceptor relocates oversized tool results into a backend. It is
// backend-agnostic: it only calls the file store contract, so with a
// patch-returning backend the relocation surfaces as a patch and with a
// direct-mutation backend it has already been applied.
type Interceptor struct {
	tokenLimit int
	logger     *zap.Logger
}

// Option configures an Interceptor.
type Option func(*Interceptor)

// WithTokenLimit overrides the eviction threshold.
func WithTokenLimit(limit int) Option {
	return func(i *Interceptor) { i.tokenLimit = limit }
}

// WithLogger attaches a logger.
func WithLogger(logger *zap.Logger) Option {
	return func(i *Interceptor) { i.logger = logger }
}

// NewInterceptor creates an interceptor with the default threshold.
func NewInterceptor(opts ...Option) *Interceptor {
	i := &Interceptor{
		tokenLimit: DefaultTokenLimit,
		logger:     zap.NewNop(),
	}
	for _, opt := range opts {
		opt(i)
	}
	return i
}

// Intercept inspects one tool result. Below the threshold the message
// passes through unchanged with a nil patch and record. Above it, the full
// content is stored at /large_tool_results/{sanitized id} via backend and
// the returned message carries the pointer notice; patch is non-nil exactly
// when the backend proposed one instead of mutating directly.
func (i *Interceptor) Intercept(ctx context.Context, msg ToolMessage, backend vfs.Backend) (ToolMessage, vfs.Patch, *Record, error) {
	if EstimateTokens(msg.Content) <= i.tokenLimit {
		return msg, nil, nil, nil
	}

	id := SanitizeToolCallID(msg.ToolCallID)
	path := vfs.LargeResultPrefix + id
	result, err := backend.Write(ctx, path, msg.Content)
	if err != nil {
		return msg, nil, nil, fmt.Errorf("evict %s: %w", path, err)
	}
	if result.Error != "" {
		return msg, nil, nil, fmt.Errorf("evict %s: %s", path, result.Error)
	}

	i.logger.Info("evicted large tool result",
		zap.String("tool_call_id", msg.ToolCallID),
		zap.String("path", path),
		zap.Int("bytes", len(msg.Content)),
	)

	record := &Record{
		ToolCallID: msg.ToolCallID,
		Path:       path,
		Pointer:    PointerMessage(id),
	}
	msg.Content = record.Pointer
	return msg, result.Patch, record, nil
}

// PointerMessage is the exact replacement text; the rendering layer matches
// against it, so the wording must not drift. The id must already be
// sanitized.
func PointerMessage(toolCallID string) string {
	return fmt.Sprintf("Tool result too large — stored at %s%s", vfs.LargeResultPrefix, toolCallID)
}

var unsafeIDRunes = regexp.MustCompile(`[^a-zA-Z0-9_-]`)

// SanitizeToolCallID maps a tool-call id onto the storage-safe alphabet.
// Providers mint ids containing "/" or "."; unsanitized those would change
// the eviction path or fail validation outright, leaving the oversized
// content in the conversation.
func SanitizeToolCallID(id string) string {
	return unsafeIDRunes.ReplaceAllString(id, "_")
}

// EstimateTokens approximates the token count of content. Four bytes per
// token tracks common tokenizers closely enough for a size guard.
func EstimateTokens(content string) int {
	return len(content) / 4
}
