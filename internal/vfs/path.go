package vfs

import (
	"fmt"
	"strings"
)

// Validate normalizes a raw path into a canonical virtual path.
//
// Backslashes in relative input are rewritten to forward slashes, a missing
// leading slash is prepended, and "." segments and repeated separators are
// collapsed. The result always begins with "/" and validation is idempotent:
// re-validating a normalized path returns it unchanged.
//
// Validate fails with ErrPathTraversal for any ".." segment or a leading
// "~", with ErrWindowsPath for drive-letter absolute forms, and with
// ErrPrefixNotAllowed when allowedPrefixes is non-empty and none match.
func Validate(raw string, allowedPrefixes ...string) (string, error) {
	if isDriveLetterPath(raw) {
		return "", fmt.Errorf("%w: %q", ErrWindowsPath, raw)
	}
	if strings.HasPrefix(raw, "~") {
		return "", fmt.Errorf("%w: %q", ErrPathTraversal, raw)
	}

	p := raw
	if !strings.HasPrefix(p, "/") {
		p = "/" + strings.ReplaceAll(p, "\\", "/")
	}

	segments := strings.Split(p, "/")
	normalized := make([]string, 0, len(segments))
	for _, seg := range segments {
		switch seg {
		case "", ".":
			// collapsed
		case "..":
			return "", fmt.Errorf("%w: %q", ErrPathTraversal, raw)
		default:
			normalized = append(normalized, seg)
		}
	}
	result := "/" + strings.Join(normalized, "/")

	if len(allowedPrefixes) > 0 {
		ok := false
		for _, prefix := range allowedPrefixes {
			if strings.HasPrefix(result, prefix) {
				ok = true
				break
			}
		}
		if !ok {
			return "", fmt.Errorf("%w: path must start with one of %v", ErrPrefixNotAllowed, allowedPrefixes)
		}
	}
	return result, nil
}

// isDriveLetterPath reports whether raw matches "X:\..." or "X:/...".
func isDriveLetterPath(raw string) bool {
	if len(raw) < 3 {
		return false
	}
	c := raw[0]
	letter := (c >= 'A' && c <= 'Z') || (c >= 'a' && c <= 'z')
	return letter && raw[1] == ':' && (raw[2] == '\\' || raw[2] == '/')
}
