package vfs

import (
	"strings"
	"time"
)

// FileData is the stored representation of one virtual file: an ordered
// slice of lines plus creation and modification timestamps. Lines never
// carry their trailing newline; Text joins them back losslessly.
type FileData struct {
	Content    []string `json:"content"`
	CreatedAt  string   `json:"created_at"`
	ModifiedAt string   `json:"modified_at"`
}

// NewFileData creates file data for freshly written content.
func NewFileData(content string) *FileData {
	now := timestamp()
	return &FileData{
		Content:    strings.Split(content, "\n"),
		CreatedAt:  now,
		ModifiedAt: now,
	}
}

// Update returns new file data with replaced content, preserving CreatedAt.
func (f *FileData) Update(content string) *FileData {
	return &FileData{
		Content:    strings.Split(content, "\n"),
		CreatedAt:  f.CreatedAt,
		ModifiedAt: timestamp(),
	}
}

// Text joins the stored lines back into the file's full content.
func (f *FileData) Text() string {
	return strings.Join(f.Content, "\n")
}

// Size returns the content length in bytes.
func (f *FileData) Size() int64 {
	n := 0
	for _, line := range f.Content {
		n += len(line)
	}
	if len(f.Content) > 1 {
		n += len(f.Content) - 1
	}
	return int64(n)
}

// Slice returns the file's lines joined after applying a line offset and
// limit. Offset is zero-based; limit <= 0 means no limit.
func (f *FileData) Slice(offset, limit int) string {
	lines := f.Content
	if offset >= len(lines) {
		return ""
	}
	if offset > 0 {
		lines = lines[offset:]
	}
	if limit > 0 && limit < len(lines) {
		lines = lines[:limit]
	}
	return strings.Join(lines, "\n")
}

func timestamp() string {
	return time.Now().UTC().Format(time.RFC3339)
}
