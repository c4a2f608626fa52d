package evict

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentfs/agentfs/internal/vfs"
)

func TestInterceptSmallResultPassesThrough(t *testing.T) {
	ctx := context.Background()
	interceptor := NewInterceptor(WithTokenLimit(1000))
	backend := vfs.NewStoreBackend(vfs.NewMemoryKV())

	msg := ToolMessage{ToolCallID: "t1", Content: "short output"}
	out, patch, record, err := interceptor.Intercept(ctx, msg, backend)
	require.NoError(t, err)
	assert.Equal(t, msg, out)
	assert.Nil(t, patch)
	assert.Nil(t, record)
}

func TestInterceptLargeResultStoreBackend(t *testing.T) {
	ctx := context.Background()
	interceptor := NewInterceptor(WithTokenLimit(1000))
	backend := vfs.NewStoreBackend(vfs.NewMemoryKV())

	large := strings.Repeat("y", 5000)
	out, patch, record, err := interceptor.Intercept(ctx, ToolMessage{ToolCallID: "test_456", Content: large}, backend)
	require.NoError(t, err)
	assert.Nil(t, patch)
	assert.Contains(t, out.Content, "Tool result too large")
	assert.Contains(t, out.Content, "/large_tool_results/test_456")

	require.NotNil(t, record)
	assert.Equal(t, "test_456", record.ToolCallID)
	assert.Equal(t, "/large_tool_results/test_456", record.Path)
	assert.Equal(t, out.Content, record.Pointer)

	// Round trip: the relocated content reads back unmodified.
	stored, err := backend.Read(ctx, record.Path, 0, 0)
	require.NoError(t, err)
	assert.Equal(t, large, stored)
}

func TestInterceptLargeResultStateBackend(t *testing.T) {
	ctx := context.Background()
	interceptor := NewInterceptor(WithTokenLimit(1000))
	files := vfs.Files{}
	backend := vfs.NewStateBackend(files)

	large := strings.Repeat("x", 5000)
	out, patch, record, err := interceptor.Intercept(ctx, ToolMessage{ToolCallID: "test_123", Content: large}, backend)
	require.NoError(t, err)
	assert.Contains(t, out.Content, "Tool result too large")
	require.NotNil(t, record)

	// The relocation surfaces as a patch for the state owner to apply.
	require.NotNil(t, patch)
	fd, ok := patch["/large_tool_results/test_123"]
	require.True(t, ok)
	assert.Equal(t, []string{large}, fd.Content)

	files.Apply(patch)
	stored, err := backend.Read(ctx, "/large_tool_results/test_123", 0, 0)
	require.NoError(t, err)
	assert.Equal(t, large, stored)
}

func TestInterceptMultilineRoundTrip(t *testing.T) {
	ctx := context.Background()
	interceptor := NewInterceptor(WithTokenLimit(2))
	backend := vfs.NewStoreBackend(vfs.NewMemoryKV())

	content := "line one\nline two\n\nline four"
	out, _, _, err := interceptor.Intercept(ctx, ToolMessage{ToolCallID: "t9", Content: content}, backend)
	require.NoError(t, err)
	assert.Equal(t, PointerMessage("t9"), out.Content)

	stored, err := backend.Read(ctx, "/large_tool_results/t9", 0, 0)
	require.NoError(t, err)
	assert.Equal(t, content, stored)
}

func TestInterceptSanitizesToolCallID(t *testing.T) {
	ctx := context.Background()
	interceptor := NewInterceptor(WithTokenLimit(1000))
	backend := vfs.NewStoreBackend(vfs.NewMemoryKV())

	large := strings.Repeat("x", 5000)
	out, _, record, err := interceptor.Intercept(ctx, ToolMessage{ToolCallID: "test/call.id", Content: large}, backend)
	require.NoError(t, err)
	require.NotNil(t, record)
	assert.Equal(t, "test/call.id", record.ToolCallID)
	assert.Equal(t, "/large_tool_results/test_call_id", record.Path)
	assert.Contains(t, out.Content, "/large_tool_results/test_call_id")

	stored, err := backend.Read(ctx, "/large_tool_results/test_call_id", 0, 0)
	require.NoError(t, err)
	assert.Equal(t, large, stored)
}

func TestInterceptTraversalIDStillEvicts(t *testing.T) {
	ctx := context.Background()
	interceptor := NewInterceptor(WithTokenLimit(1000))
	backend := vfs.NewStoreBackend(vfs.NewMemoryKV())

	large := strings.Repeat("z", 5000)
	out, _, record, err := interceptor.Intercept(ctx, ToolMessage{ToolCallID: "../escape", Content: large}, backend)
	require.NoError(t, err)
	require.NotNil(t, record)
	assert.NotEqual(t, large, out.Content)
	assert.Equal(t, "/large_tool_results/___escape", record.Path)

	stored, err := backend.Read(ctx, record.Path, 0, 0)
	require.NoError(t, err)
	assert.Equal(t, large, stored)
}

func TestSanitizeToolCallID(t *testing.T) {
	assert.Equal(t, "call_123", SanitizeToolCallID("call_123"))
	assert.Equal(t, "call_123", SanitizeToolCallID("call/123"))
	assert.Equal(t, "test_id", SanitizeToolCallID("test.id"))
	assert.Equal(t, "a-b_c", SanitizeToolCallID("a-b c"))
}

func TestPointerMessageWording(t *testing.T) {
	// The literal is a contract the rendering layer matches against.
	assert.Equal(t,
		"Tool result too large — stored at /large_tool_results/abc",
		PointerMessage("abc"),
	)
}

func TestEstimateTokens(t *testing.T) {
	assert.Equal(t, 0, EstimateTokens(""))
	assert.Equal(t, 1250, EstimateTokens(strings.Repeat("x", 5000)))
}
