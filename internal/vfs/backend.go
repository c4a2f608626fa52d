package vfs

import (
	"context"
	"fmt"
	"strings"
)

// LargeResultPrefix is the reserved namespace for evicted tool results.
// Agent-chosen paths must never collide with it.
const LargeResultPrefix = "/large_tool_results/"

// FileInfo describes one listing or glob entry. Directories carry a
// trailing slash on Path and IsDir set.
type FileInfo struct {
	Path       string `json:"path"`
	IsDir      bool   `json:"is_dir"`
	Size       int64  `json:"size,omitempty"`
	ModifiedAt string `json:"modified_at,omitempty"`
}

// GrepMatch is one content-search hit.
type GrepMatch struct {
	Path string `json:"path"`
	Line int    `json:"line"`
	Text string `json:"text"`
}

// Patch maps virtual paths to proposed file contents. Backends that do not
// own their authoritative state return mutations as a Patch; the state
// owner merges it with Files.Apply.
type Patch map[string]*FileData

// WriteResult reports a write operation. Exactly one of Error or the
// success payload is populated; Patch is non-nil only for patch-returning
// backends.
type WriteResult struct {
	Path  string `json:"path"`
	Error string `json:"error,omitempty"`
	Patch Patch  `json:"patch,omitempty"`
}

// EditResult reports an edit operation, including how many occurrences of
// the search string were replaced.
type EditResult struct {
	Path        string `json:"path"`
	Error       string `json:"error,omitempty"`
	Occurrences int    `json:"occurrences,omitempty"`
	Patch       Patch  `json:"patch,omitempty"`
}

// Bulk transfer error codes. Unlike the tool-facing error strings these are
// machine-readable: bulk transfer callers are programs moving file sets,
// not agents reading prose.
const (
	BulkInvalidPath  = "invalid_path"
	BulkFileNotFound = "file_not_found"
	BulkIsDirectory  = "is_directory"
)

// FileUpload is one file in a bulk upload: a virtual path and raw bytes.
type FileUpload struct {
	Path    string `json:"path"`
	Content []byte `json:"content"`
}

// UploadResult reports one file of a bulk upload. Error is a bulk transfer
// code, empty on success.
type UploadResult struct {
	Path  string `json:"path"`
	Error string `json:"error,omitempty"`
}

// DownloadResult reports one file of a bulk download. Exactly one of
// Content or Error is set.
type DownloadResult struct {
	Path    string `json:"path"`
	Content []byte `json:"content,omitempty"`
	Error   string `json:"error,omitempty"`
}

// Backend is the file store contract. All backends expose identical
// observable semantics:
//
//   - Read returns content sliced by line offset/limit, or ErrNotFound.
//   - Write refuses to overwrite an existing file; the duplicate-file
//     condition is reported in WriteResult.Error, not as a Go error.
//   - Edit requires the search string to occur exactly once unless
//     replaceAll is set; zero or ambiguous occurrences are reported in
//     EditResult.Error.
//   - Ls returns immediate children only, with one trailing-slash entry per
//     subdirectory; a trailing slash on the prefix makes no difference and
//     an unknown prefix yields an empty listing.
//   - Grep applies a regular expression to file contents under path,
//     optionally filtered by a glob on filenames. An invalid pattern comes
//     back in softErr as a plain string, never as a Go error, because the
//     result flows to the agent as tool output.
//   - Glob supports doublestar patterns: "**" matches any depth,
//     a bare "*" only the immediate level.
//   - Upload and Download move file sets in bulk with partial success: each
//     file reports its own outcome and one bad path never aborts the batch.
//     Upload overwrites existing files, unlike Write. The upload patch is
//     non-nil only for patch-returning backends and covers the files that
//     succeeded.
//
// The returned error is non-nil only for path validation failures (bulk
// transfers excepted, where a bad path is a per-file code) or storage I/O
// failures, which abort the call with zero effect.
type Backend interface {
	Read(ctx context.Context, path string, offset, limit int) (string, error)
	Write(ctx context.Context, path, content string) (WriteResult, error)
	Edit(ctx context.Context, path, oldString, newString string, replaceAll bool) (EditResult, error)
	Ls(ctx context.Context, prefix string) ([]FileInfo, error)
	Grep(ctx context.Context, pattern, path, glob string) (matches []GrepMatch, softErr string, err error)
	Glob(ctx context.Context, pattern, path string) ([]FileInfo, error)
	Upload(ctx context.Context, files []FileUpload) ([]UploadResult, Patch, error)
	Download(ctx context.Context, paths []string) ([]DownloadResult, error)
}

// SimulateEdit performs the occurrence-counted string replacement shared
// by every backend and by the approval preview. It returns the new
// content, the number of occurrences replaced, and a non-empty errText
// when the edit cannot proceed. It touches no state.
func SimulateEdit(content, oldString, newString string, replaceAll bool) (updated string, occurrences int, errText string) {
	count := strings.Count(content, oldString)
	if count == 0 {
		return "", 0, fmt.Sprintf("String not found in file: '%s'", oldString)
	}
	if count > 1 && !replaceAll {
		return "", 0, fmt.Sprintf(
			"String '%s' appears %d times in file. Use replace_all=true to replace all instances, or provide a more specific string with surrounding context.",
			oldString, count,
		)
	}
	if replaceAll {
		return strings.ReplaceAll(content, oldString, newString), count, ""
	}
	return strings.Replace(content, oldString, newString, 1), 1, ""
}

// AlreadyExistsMessage is the result error for a write over an existing
// path. The literal is stable; agents and tests match on "already exists".
func AlreadyExistsMessage(path string) string {
	return fmt.Sprintf("File '%s' already exists. Read the file first or choose a different path.", path)
}

// NotFoundMessage is the result error for an edit of a missing file.
func NotFoundMessage(path string) string {
	return fmt.Sprintf("File '%s' not found", path)
}
