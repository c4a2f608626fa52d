// Package tools implements the agent-facing file tools over a vfs backend:
// read_file, write_file, edit_file, ls, grep, and glob. Each tool renders
// its result the way the agent expects to see it; recoverable failures are
// part of that rendering, prefixed "Error:", so the agent can react on its
// next turn.
package tools

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/agentfs/agentfs/internal/types"
	"github.com/agentfs/agentfs/internal/vfs"
)

// Default read window when the agent does not pass offset/limit.
const (
	defaultReadLimit = 2000
	maxGlobResults   = 100
)

// Runner executes the file tools against one backend.
type Runner struct {
	backend vfs.Backend
}

// NewRunner creates a runner over backend.
func NewRunner(backend vfs.Backend) *Runner {
	return &Runner{backend: backend}
}

// Definitions returns the tool catalog advertised to agents.
func (r *Runner) Definitions() []types.Tool {
	return []types.Tool{
		{
			ID:          "read_file",
			Name:        "Read File",
			Description: "Read file contents with line numbers",
			Parameters: []types.Parameter{
				{Name: "file_path", Type: "string", Description: "Virtual file path", Required: true},
				{Name: "offset", Type: "number", Description: "Zero-based line offset", Required: false},
				{Name: "limit", Type: "number", Description: "Maximum lines to read (default 2000)", Required: false},
			},
			Returns: "string",
		},
		{
			ID:          "write_file",
			Name:        "Write File",
			Description: "Create a new file (never overwrites)",
			Parameters: []types.Parameter{
				{Name: "file_path", Type: "string", Description: "Virtual file path", Required: true},
				{Name: "content", Type: "string", Description: "File content", Required: true},
			},
			Returns: "string",
		},
		{
			ID:          "edit_file",
			Name:        "Edit File",
			Description: "Replace a string in a file (must be unique unless replace_all)",
			Parameters: []types.Parameter{
				{Name: "file_path", Type: "string", Description: "Virtual file path", Required: true},
				{Name: "old_string", Type: "string", Description: "Exact string to replace", Required: true},
				{Name: "new_string", Type: "string", Description: "Replacement string", Required: true},
				{Name: "replace_all", Type: "boolean", Description: "Replace every occurrence", Required: false},
			},
			Returns: "string",
		},
		{
			ID:          "ls",
			Name:        "List Directory",
			Description: "List immediate children of a directory",
			Parameters: []types.Parameter{
				{Name: "path", Type: "string", Description: "Directory path (default /)", Required: false},
			},
			Returns: "string",
		},
		{
			ID:          "grep",
			Name:        "Search Content",
			Description: "Search file contents with a regular expression",
			Parameters: []types.Parameter{
				{Name: "pattern", Type: "string", Description: "Regular expression", Required: true},
				{Name: "path", Type: "string", Description: "Directory to search (default /)", Required: false},
				{Name: "glob", Type: "string", Description: "Filename filter (e.g. '*.go')", Required: false},
				{Name: "output_mode", Type: "string", Description: "files_with_matches | content | count", Required: false},
			},
			Returns: "string",
		},
		{
			ID:          "glob",
			Name:        "Find Files",
			Description: "Find files by glob pattern ('**' matches any depth)",
			Parameters: []types.Parameter{
				{Name: "pattern", Type: "string", Description: "Glob pattern", Required: true},
				{Name: "path", Type: "string", Description: "Directory to search (default /)", Required: false},
			},
			Returns: "string",
		},
	}
}

// Execute dispatches one tool call. The returned patch is non-nil only for
// mutating tools on a patch-returning backend; err only for contract
// violations (unknown tool, invalid path).
func (r *Runner) Execute(ctx context.Context, toolID string, params map[string]any) (string, vfs.Patch, error) {
	switch toolID {
	case "read_file":
		out, err := r.ReadFile(ctx, stringParam(params, "file_path"), intParam(params, "offset", 0), intParam(params, "limit", defaultReadLimit))
		return out, nil, err
	case "write_file":
		return r.WriteFile(ctx, stringParam(params, "file_path"), stringParam(params, "content"))
	case "edit_file":
		return r.EditFile(ctx,
			stringParam(params, "file_path"),
			stringParam(params, "old_string"),
			stringParam(params, "new_string"),
			boolParam(params, "replace_all"),
		)
	case "ls":
		out, err := r.Ls(ctx, stringParamDefault(params, "path", "/"))
		return out, nil, err
	case "grep":
		out, err := r.Grep(ctx,
			stringParam(params, "pattern"),
			stringParamDefault(params, "path", "/"),
			stringParam(params, "glob"),
			stringParamDefault(params, "output_mode", "files_with_matches"),
		)
		return out, nil, err
	case "glob":
		out, err := r.Glob(ctx, stringParam(params, "pattern"), stringParamDefault(params, "path", "/"))
		return out, nil, err
	default:
		return "", nil, fmt.Errorf("unknown tool: %s", toolID)
	}
}

// ReadFile renders file content with line numbers.
func (r *Runner) ReadFile(ctx context.Context, path string, offset, limit int) (string, error) {
	content, err := r.backend.Read(ctx, path, offset, limit)
	if err != nil {
		if errors.Is(err, vfs.ErrNotFound) {
			return fmt.Sprintf("Error: File '%s' not found", path), nil
		}
		return "", err
	}
	if content == "" {
		return "System reminder: File exists but has empty contents", nil
	}
	return formatWithLineNumbers(strings.Split(content, "\n"), offset+1), nil
}

// WriteFile creates a new file.
func (r *Runner) WriteFile(ctx context.Context, path, content string) (string, vfs.Patch, error) {
	result, err := r.backend.Write(ctx, path, content)
	if err != nil {
		return "", nil, err
	}
	if result.Error != "" {
		return "Error: " + result.Error, nil, nil
	}
	return fmt.Sprintf("Updated file %s", result.Path), result.Patch, nil
}

// EditFile replaces a string in a file.
func (r *Runner) EditFile(ctx context.Context, path, oldString, newString string, replaceAll bool) (string, vfs.Patch, error) {
	result, err := r.backend.Edit(ctx, path, oldString, newString, replaceAll)
	if err != nil {
		return "", nil, err
	}
	if result.Error != "" {
		return "Error: " + result.Error, nil, nil
	}
	return fmt.Sprintf("Successfully replaced %d instance(s) of the string in '%s'", result.Occurrences, result.Path), result.Patch, nil
}

// Ls renders the immediate children of a directory, one path per line.
func (r *Runner) Ls(ctx context.Context, path string) (string, error) {
	infos, err := r.backend.Ls(ctx, path)
	if err != nil {
		return "", err
	}
	if len(infos) == 0 {
		return fmt.Sprintf("No files found in directory '%s'", path), nil
	}
	paths := make([]string, len(infos))
	for i, info := range infos {
		paths[i] = info.Path
	}
	return strings.Join(paths, "\n"), nil
}

// Grep renders a content search in the requested output mode.
func (r *Runner) Grep(ctx context.Context, pattern, path, glob, outputMode string) (string, error) {
	matches, softErr, err := r.backend.Grep(ctx, pattern, path, glob)
	if err != nil {
		return "", err
	}
	if softErr != "" {
		return softErr, nil
	}
	if len(matches) == 0 {
		return "No matches found", nil
	}

	switch outputMode {
	case "content":
		lines := make([]string, len(matches))
		for i, m := range matches {
			lines[i] = fmt.Sprintf("%s:%d: %s", m.Path, m.Line, m.Text)
		}
		return strings.Join(lines, "\n"), nil
	case "count":
		counts := make(map[string]int)
		var order []string
		for _, m := range matches {
			if counts[m.Path] == 0 {
				order = append(order, m.Path)
			}
			counts[m.Path]++
		}
		sort.Strings(order)
		lines := make([]string, len(order))
		for i, p := range order {
			lines[i] = fmt.Sprintf("%s: %d", p, counts[p])
		}
		return strings.Join(lines, "\n"), nil
	default: // files_with_matches
		seen := make(map[string]bool)
		var paths []string
		for _, m := range matches {
			if !seen[m.Path] {
				seen[m.Path] = true
				paths = append(paths, m.Path)
			}
		}
		return strings.Join(paths, "\n"), nil
	}
}

// Glob renders matching paths, truncated past maxGlobResults.
func (r *Runner) Glob(ctx context.Context, pattern, path string) (string, error) {
	infos, err := r.backend.Glob(ctx, pattern, path)
	if err != nil {
		return "", err
	}
	if len(infos) == 0 {
		return "No files found", nil
	}
	paths := make([]string, len(infos))
	for i, info := range infos {
		paths[i] = info.Path
	}
	if len(paths) > maxGlobResults {
		shown := paths[:maxGlobResults]
		return strings.Join(shown, "\n") +
			fmt.Sprintf("\n... (results truncated: showing first %d of %d files)", maxGlobResults, len(paths)), nil
	}
	return strings.Join(paths, "\n"), nil
}

func stringParam(params map[string]any, key string) string {
	s, _ := params[key].(string)
	return s
}

func stringParamDefault(params map[string]any, key, fallback string) string {
	if s, ok := params[key].(string); ok && s != "" {
		return s
	}
	return fallback
}

func boolParam(params map[string]any, key string) bool {
	b, _ := params[key].(bool)
	return b
}

// intParam tolerates float64 because JSON numbers decode that way.
func intParam(params map[string]any, key string, fallback int) int {
	switch v := params[key].(type) {
	case int:
		return v
	case float64:
		return int(v)
	default:
		return fallback
	}
}
