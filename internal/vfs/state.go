package vfs

import "context"

// Files is the authoritative path -> FileData mapping for one conversation
// turn. It is owned by the caller (the agent loop's working state), never
// by the backend.
type Files map[string]*FileData

// Apply merges a patch into the mapping. This is the single place where
// proposed mutations from a StateBackend become authoritative. Concurrent
// patches for the same path are last-write-wins; callers that need
// conflict-free results must serialize writes to a path within a turn.
func (f Files) Apply(patch Patch) {
	for path, fd := range patch {
		f[path] = fd
	}
}

// StateBackend operates on a snapshot of turn-scoped files. Every mutating
// operation computes the new file data and returns it as a Patch; the
// snapshot itself is treated as read-only input for the duration of one
// call, so a backend is safe to construct fresh per tool call.
type StateBackend struct {
	files Files
}

// NewStateBackend creates a backend over the given files snapshot.
func NewStateBackend(files Files) *StateBackend {
	if files == nil {
		files = Files{}
	}
	return &StateBackend{files: files}
}

// Read returns file content sliced by line offset and limit.
func (b *StateBackend) Read(ctx context.Context, path string, offset, limit int) (string, error) {
	p, err := Validate(path)
	if err != nil {
		return "", err
	}
	fd, ok := b.files[p]
	if !ok {
		return "", notFound(p)
	}
	return fd.Slice(offset, limit), nil
}

// Write proposes the creation of a new file. The patch is returned, not
// applied; writing over an existing path is reported as a result error.
func (b *StateBackend) Write(ctx context.Context, path, content string) (WriteResult, error) {
	p, err := Validate(path)
	if err != nil {
		return WriteResult{}, err
	}
	if _, ok := b.files[p]; ok {
		return WriteResult{Path: p, Error: AlreadyExistsMessage(p)}, nil
	}
	return WriteResult{Path: p, Patch: Patch{p: NewFileData(content)}}, nil
}

// Edit proposes an occurrence-counted string replacement.
func (b *StateBackend) Edit(ctx context.Context, path, oldString, newString string, replaceAll bool) (EditResult, error) {
	p, err := Validate(path)
	if err != nil {
		return EditResult{}, err
	}
	fd, ok := b.files[p]
	if !ok {
		return EditResult{Path: p, Error: NotFoundMessage(p)}, nil
	}
	updated, occurrences, errText := SimulateEdit(fd.Text(), oldString, newString, replaceAll)
	if errText != "" {
		return EditResult{Path: p, Error: errText}, nil
	}
	return EditResult{
		Path:        p,
		Occurrences: occurrences,
		Patch:       Patch{p: fd.Update(updated)},
	}, nil
}

// Ls lists immediate children under the prefix.
func (b *StateBackend) Ls(ctx context.Context, prefix string) ([]FileInfo, error) {
	p, err := Validate(prefix)
	if err != nil {
		return nil, err
	}
	return lsFiles(b.files, p), nil
}

// Grep searches file contents under path with a regular expression.
func (b *StateBackend) Grep(ctx context.Context, pattern, path, glob string) ([]GrepMatch, string, error) {
	p, err := Validate(path)
	if err != nil {
		return nil, "", err
	}
	matches, softErr := grepFiles(b.files, pattern, p, glob)
	return matches, softErr, nil
}

// Glob matches file paths under path against a doublestar pattern.
func (b *StateBackend) Glob(ctx context.Context, pattern, path string) ([]FileInfo, error) {
	p, err := Validate(path)
	if err != nil {
		return nil, err
	}
	return globFiles(b.files, pattern, p), nil
}

// Upload proposes a bulk file transfer. Files with bad paths fail
// individually; the patch covers every file that staged successfully.
func (b *StateBackend) Upload(ctx context.Context, files []FileUpload) ([]UploadResult, Patch, error) {
	results, staged := stageUploads(b.files, files)
	if len(staged) == 0 {
		return results, nil, nil
	}
	patch := make(Patch, len(staged))
	for _, s := range staged {
		patch[s.path] = s.fd
	}
	return results, patch, nil
}

// Download reads a set of files from the snapshot with per-file outcomes.
func (b *StateBackend) Download(ctx context.Context, paths []string) ([]DownloadResult, error) {
	return downloadFiles(b.files, paths), nil
}
