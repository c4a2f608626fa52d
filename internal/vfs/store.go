package vfs

import (
	"context"
	"fmt"

	"github.com/bytedance/sonic"
)

// StoreNamespace is the fixed namespace virtual files live under inside
// the injected key-value store.
const StoreNamespace = "filesystem"

// StoreBackend persists files in a key-value namespace that survives
// across turns and sessions. Mutations are applied directly against the
// store; there is no patch because there is no external apply step.
type StoreBackend struct {
	kv KV
}

// NewStoreBackend creates a backend over the injected store.
func NewStoreBackend(kv KV) *StoreBackend {
	return &StoreBackend{kv: kv}
}

func (b *StoreBackend) get(ctx context.Context, path string) (*FileData, error) {
	raw, ok, err := b.kv.Get(ctx, StoreNamespace, path)
	if err != nil {
		return nil, fmt.Errorf("store get %s: %w", path, err)
	}
	if !ok {
		return nil, nil
	}
	var fd FileData
	if err := sonic.Unmarshal(raw, &fd); err != nil {
		return nil, fmt.Errorf("store decode %s: %w", path, err)
	}
	return &fd, nil
}

func (b *StoreBackend) put(ctx context.Context, path string, fd *FileData) error {
	raw, err := sonic.Marshal(fd)
	if err != nil {
		return fmt.Errorf("store encode %s: %w", path, err)
	}
	if err := b.kv.Put(ctx, StoreNamespace, path, raw); err != nil {
		return fmt.Errorf("store put %s: %w", path, err)
	}
	return nil
}

// dump materializes the namespace as a path -> FileData mapping so listing,
// grep, and glob share the exact map semantics of the state backend.
func (b *StoreBackend) dump(ctx context.Context) (map[string]*FileData, error) {
	items, err := searchAll(ctx, b.kv, StoreNamespace, "")
	if err != nil {
		return nil, err
	}
	files := make(map[string]*FileData, len(items))
	for _, item := range items {
		var fd FileData
		if err := sonic.Unmarshal(item.Value, &fd); err != nil {
			return nil, fmt.Errorf("store decode %s: %w", item.Key, err)
		}
		files[item.Key] = &fd
	}
	return files, nil
}

// Read returns file content sliced by line offset and limit.
func (b *StoreBackend) Read(ctx context.Context, path string, offset, limit int) (string, error) {
	p, err := Validate(path)
	if err != nil {
		return "", err
	}
	fd, err := b.get(ctx, p)
	if err != nil {
		return "", err
	}
	if fd == nil {
		return "", notFound(p)
	}
	return fd.Slice(offset, limit), nil
}

// Write creates a new file directly in the store.
func (b *StoreBackend) Write(ctx context.Context, path, content string) (WriteResult, error) {
	p, err := Validate(path)
	if err != nil {
		return WriteResult{}, err
	}
	existing, err := b.get(ctx, p)
	if err != nil {
		return WriteResult{}, err
	}
	if existing != nil {
		return WriteResult{Path: p, Error: AlreadyExistsMessage(p)}, nil
	}
	if err := b.put(ctx, p, NewFileData(content)); err != nil {
		return WriteResult{}, err
	}
	return WriteResult{Path: p}, nil
}

// Edit replaces occurrences of oldString directly in the store.
func (b *StoreBackend) Edit(ctx context.Context, path, oldString, newString string, replaceAll bool) (EditResult, error) {
	p, err := Validate(path)
	if err != nil {
		return EditResult{}, err
	}
	fd, err := b.get(ctx, p)
	if err != nil {
		return EditResult{}, err
	}
	if fd == nil {
		return EditResult{Path: p, Error: NotFoundMessage(p)}, nil
	}
	updated, occurrences, errText := SimulateEdit(fd.Text(), oldString, newString, replaceAll)
	if errText != "" {
		return EditResult{Path: p, Error: errText}, nil
	}
	if err := b.put(ctx, p, fd.Update(updated)); err != nil {
		return EditResult{}, err
	}
	return EditResult{Path: p, Occurrences: occurrences}, nil
}

// Ls lists immediate children under the prefix.
func (b *StoreBackend) Ls(ctx context.Context, prefix string) ([]FileInfo, error) {
	p, err := Validate(prefix)
	if err != nil {
		return nil, err
	}
	files, err := b.dump(ctx)
	if err != nil {
		return nil, err
	}
	return lsFiles(files, p), nil
}

// Grep searches file contents under path with a regular expression.
func (b *StoreBackend) Grep(ctx context.Context, pattern, path, glob string) ([]GrepMatch, string, error) {
	p, err := Validate(path)
	if err != nil {
		return nil, "", err
	}
	files, err := b.dump(ctx)
	if err != nil {
		return nil, "", err
	}
	matches, softErr := grepFiles(files, pattern, p, glob)
	return matches, softErr, nil
}

// Glob matches file paths under path against a doublestar pattern.
func (b *StoreBackend) Glob(ctx context.Context, pattern, path string) ([]FileInfo, error) {
	p, err := Validate(path)
	if err != nil {
		return nil, err
	}
	files, err := b.dump(ctx)
	if err != nil {
		return nil, err
	}
	return globFiles(files, pattern, p), nil
}

// Upload writes a bulk file transfer directly into the store. Content is
// persisted as text: bytes that are not valid UTF-8 survive the round trip
// only as far as the line codec preserves them.
func (b *StoreBackend) Upload(ctx context.Context, files []FileUpload) ([]UploadResult, Patch, error) {
	existing, err := b.dump(ctx)
	if err != nil {
		return nil, nil, err
	}
	results, staged := stageUploads(existing, files)
	for _, s := range staged {
		if err := b.put(ctx, s.path, s.fd); err != nil {
			return nil, nil, err
		}
	}
	return results, nil, nil
}

// Download reads a set of files from the store with per-file outcomes.
func (b *StoreBackend) Download(ctx context.Context, paths []string) ([]DownloadResult, error) {
	files, err := b.dump(ctx)
	if err != nil {
		return nil, err
	}
	return downloadFiles(files, paths), nil
}
