package vfs

import (
	"errors"
	"fmt"
)

// Validation errors abort an operation entirely. They indicate a caller bug
// or misconfiguration, never an agent-recoverable condition.
var (
	// ErrPathTraversal is returned for any path that could escape the
	// virtual root: a ".." segment or a leading "~".
	ErrPathTraversal = errors.New("path traversal not allowed")

	// ErrWindowsPath is returned for drive-letter absolute paths
	// such as "C:\Users\x" or "D:/data".
	ErrWindowsPath = errors.New("windows absolute paths are not supported")

	// ErrPrefixNotAllowed is returned when allowed prefixes were given
	// and the path matches none of them.
	ErrPrefixNotAllowed = errors.New("path prefix not allowed")
)

// ErrNotFound is returned by Read when the path has no file. It is the one
// read-side condition the agent is expected to recover from; the tool layer
// renders it as ordinary tool output.
var ErrNotFound = errors.New("file not found")

func notFound(path string) error {
	return fmt.Errorf("%w: %s", ErrNotFound, path)
}
