package vfs

import (
	"context"
	"fmt"
	"os"
	gopath "path"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/charlievieth/fastwalk"
)

// DiskBackend maps the virtual namespace onto a real directory tree rooted
// at Root. Path containment is logical: every virtual path is validated and
// then joined under the root, so traversal out of the tree is impossible by
// construction. This backend is a deployment convenience, not an OS-level
// sandbox.
type DiskBackend struct {
	root string
}

// NewDiskBackend creates a backend rooted at dir.
func NewDiskBackend(dir string) *DiskBackend {
	return &DiskBackend{root: filepath.Clean(dir)}
}

// resolve validates the virtual path and maps it under the root.
func (b *DiskBackend) resolve(path string) (virtual, real string, err error) {
	p, err := Validate(path)
	if err != nil {
		return "", "", err
	}
	return p, filepath.Join(b.root, filepath.FromSlash(p)), nil
}

// virtualize maps a real path back into the virtual namespace.
func (b *DiskBackend) virtualize(real string) string {
	rel, err := filepath.Rel(b.root, real)
	if err != nil || rel == "." {
		return "/"
	}
	return "/" + filepath.ToSlash(rel)
}

// Read returns file content sliced by line offset and limit.
func (b *DiskBackend) Read(ctx context.Context, path string, offset, limit int) (string, error) {
	p, real, err := b.resolve(path)
	if err != nil {
		return "", err
	}
	raw, err := os.ReadFile(real)
	if err != nil {
		if os.IsNotExist(err) {
			return "", notFound(p)
		}
		return "", fmt.Errorf("read %s: %w", p, err)
	}
	fd := FileData{Content: strings.Split(string(raw), "\n")}
	return fd.Slice(offset, limit), nil
}

// Write creates a new file on disk. The content lands via a temp file and
// rename so a crash never leaves a partially written file.
func (b *DiskBackend) Write(ctx context.Context, path, content string) (WriteResult, error) {
	p, real, err := b.resolve(path)
	if err != nil {
		return WriteResult{}, err
	}
	if _, err := os.Stat(real); err == nil {
		return WriteResult{Path: p, Error: AlreadyExistsMessage(p)}, nil
	}
	if err := writeAtomic(real, content); err != nil {
		return WriteResult{}, fmt.Errorf("write %s: %w", p, err)
	}
	return WriteResult{Path: p}, nil
}

// Edit replaces occurrences of oldString in the file on disk.
func (b *DiskBackend) Edit(ctx context.Context, path, oldString, newString string, replaceAll bool) (EditResult, error) {
	p, real, err := b.resolve(path)
	if err != nil {
		return EditResult{}, err
	}
	raw, err := os.ReadFile(real)
	if err != nil {
		if os.IsNotExist(err) {
			return EditResult{Path: p, Error: NotFoundMessage(p)}, nil
		}
		return EditResult{}, fmt.Errorf("edit %s: %w", p, err)
	}
	updated, occurrences, errText := SimulateEdit(string(raw), oldString, newString, replaceAll)
	if errText != "" {
		return EditResult{Path: p, Error: errText}, nil
	}
	if err := writeAtomic(real, updated); err != nil {
		return EditResult{}, fmt.Errorf("edit %s: %w", p, err)
	}
	return EditResult{Path: p, Occurrences: occurrences}, nil
}

// Ls lists immediate children of the directory mapped by prefix.
func (b *DiskBackend) Ls(ctx context.Context, prefix string) ([]FileInfo, error) {
	p, real, err := b.resolve(prefix)
	if err != nil {
		return nil, err
	}
	entries, err := os.ReadDir(real)
	if err != nil {
		// Missing or unreadable prefix yields an empty listing, never an error.
		return nil, nil
	}
	base := dirPrefix(p)
	infos := make([]FileInfo, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() {
			infos = append(infos, FileInfo{Path: base + entry.Name() + "/", IsDir: true})
			continue
		}
		info := FileInfo{Path: base + entry.Name()}
		if fi, err := entry.Info(); err == nil {
			info.Size = fi.Size()
			info.ModifiedAt = fi.ModTime().UTC().Format(time.RFC3339)
		}
		infos = append(infos, info)
	}
	sort.Slice(infos, func(i, j int) bool { return infos[i].Path < infos[j].Path })
	return infos, nil
}

// Grep searches file contents under path with a regular expression.
func (b *DiskBackend) Grep(ctx context.Context, pattern, path, glob string) ([]GrepMatch, string, error) {
	_, real, err := b.resolve(path)
	if err != nil {
		return nil, "", err
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, fmt.Sprintf("Invalid regex pattern: %v", err), nil
	}

	var (
		mu      sync.Mutex
		matches []GrepMatch
	)
	conf := fastwalk.Config{Follow: false}
	walkErr := fastwalk.Walk(&conf, real, func(p string, d os.DirEntry, err error) error {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		if err != nil || d.IsDir() {
			return nil
		}
		if glob != "" {
			if ok, _ := doublestar.Match(glob, filepath.Base(p)); !ok {
				return nil
			}
		}
		raw, err := os.ReadFile(p)
		if err != nil {
			return nil
		}
		virtual := b.virtualize(p)
		for i, line := range strings.Split(string(raw), "\n") {
			if re.MatchString(line) {
				mu.Lock()
				matches = append(matches, GrepMatch{Path: virtual, Line: i + 1, Text: line})
				mu.Unlock()
			}
		}
		return nil
	})
	if walkErr != nil && !os.IsNotExist(walkErr) {
		return nil, "", fmt.Errorf("grep walk: %w", walkErr)
	}
	sort.Slice(matches, func(i, j int) bool {
		if matches[i].Path != matches[j].Path {
			return matches[i].Path < matches[j].Path
		}
		return matches[i].Line < matches[j].Line
	})
	return matches, "", nil
}

// Glob matches files under path against a doublestar pattern.
func (b *DiskBackend) Glob(ctx context.Context, pattern, path string) ([]FileInfo, error) {
	p, real, err := b.resolve(path)
	if err != nil {
		return nil, err
	}
	if !doublestar.ValidatePattern(pattern) {
		return nil, nil
	}
	base := dirPrefix(p)

	var (
		mu    sync.Mutex
		infos []FileInfo
	)
	conf := fastwalk.Config{Follow: false}
	walkErr := fastwalk.Walk(&conf, real, func(fp string, d os.DirEntry, err error) error {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		if err != nil || d.IsDir() {
			return nil
		}
		rel := strings.TrimPrefix(b.virtualize(fp), base)
		if ok, _ := doublestar.Match(pattern, rel); !ok {
			return nil
		}
		info := FileInfo{Path: gopath.Join(base, rel)}
		if fi, err := d.Info(); err == nil {
			info.Size = fi.Size()
			info.ModifiedAt = fi.ModTime().UTC().Format(time.RFC3339)
		}
		mu.Lock()
		infos = append(infos, info)
		mu.Unlock()
		return nil
	})
	if walkErr != nil && !os.IsNotExist(walkErr) {
		return nil, fmt.Errorf("glob walk: %w", walkErr)
	}
	sort.Slice(infos, func(i, j int) bool { return infos[i].Path < infos[j].Path })
	return infos, nil
}

// Upload writes a bulk binary transfer under the root. Each file lands
// atomically; a bad path fails that file alone and uploads overwrite.
func (b *DiskBackend) Upload(ctx context.Context, files []FileUpload) ([]UploadResult, Patch, error) {
	results := make([]UploadResult, len(files))
	for i, up := range files {
		results[i].Path = up.Path
		_, real, err := b.resolve(up.Path)
		if err != nil {
			results[i].Error = BulkInvalidPath
			continue
		}
		if err := writeAtomic(real, string(up.Content)); err != nil {
			return nil, nil, fmt.Errorf("upload %s: %w", up.Path, err)
		}
	}
	return results, nil, nil
}

// Download reads a set of files as raw bytes with per-file outcomes.
func (b *DiskBackend) Download(ctx context.Context, paths []string) ([]DownloadResult, error) {
	results := make([]DownloadResult, len(paths))
	for i, raw := range paths {
		results[i].Path = raw
		_, real, err := b.resolve(raw)
		if err != nil {
			results[i].Error = BulkInvalidPath
			continue
		}
		fi, err := os.Stat(real)
		if err != nil {
			results[i].Error = BulkFileNotFound
			continue
		}
		if fi.IsDir() {
			results[i].Error = BulkIsDirectory
			continue
		}
		content, err := os.ReadFile(real)
		if err != nil {
			results[i].Error = BulkFileNotFound
			continue
		}
		results[i].Content = content
	}
	return results, nil
}

// writeAtomic writes content via a temp file and rename.
func writeAtomic(real, content string) error {
	if err := os.MkdirAll(filepath.Dir(real), 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(filepath.Dir(real), ".agentfs-*")
	if err != nil {
		return err
	}
	name := tmp.Name()
	if _, err := tmp.WriteString(content); err != nil {
		tmp.Close()
		os.Remove(name)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(name)
		return err
	}
	return os.Rename(name, real)
}
