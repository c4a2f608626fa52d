package vfs

import (
	"fmt"
	gopath "path"
	"regexp"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// The map-backed listing, grep, and glob logic is shared between the two
// backends whose authoritative state is a path -> FileData mapping
// (StateBackend snapshot, StoreBackend namespace dump).

// dirPrefix normalizes a validated virtual path into a prefix ending in "/".
func dirPrefix(p string) string {
	if !strings.HasSuffix(p, "/") {
		return p + "/"
	}
	return p
}

func lsFiles(files map[string]*FileData, prefix string) []FileInfo {
	prefix = dirPrefix(prefix)

	var infos []FileInfo
	seenDirs := make(map[string]bool)
	for key, fd := range files {
		if !strings.HasPrefix(key, prefix) {
			continue
		}
		rest := key[len(prefix):]
		if idx := strings.Index(rest, "/"); idx >= 0 {
			dir := prefix + rest[:idx+1]
			if !seenDirs[dir] {
				seenDirs[dir] = true
				infos = append(infos, FileInfo{Path: dir, IsDir: true})
			}
			continue
		}
		infos = append(infos, FileInfo{
			Path:       key,
			Size:       fd.Size(),
			ModifiedAt: fd.ModifiedAt,
		})
	}
	sort.Slice(infos, func(i, j int) bool { return infos[i].Path < infos[j].Path })
	return infos
}

func grepFiles(files map[string]*FileData, pattern, prefix, glob string) ([]GrepMatch, string) {
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, fmt.Sprintf("Invalid regex pattern: %v", err)
	}
	prefix = dirPrefix(prefix)

	keys := sortedKeys(files)
	var matches []GrepMatch
	for _, key := range keys {
		if !strings.HasPrefix(key, prefix) {
			continue
		}
		if glob != "" {
			if ok, _ := doublestar.Match(glob, gopath.Base(key)); !ok {
				continue
			}
		}
		for i, line := range files[key].Content {
			if re.MatchString(line) {
				matches = append(matches, GrepMatch{Path: key, Line: i + 1, Text: line})
			}
		}
	}
	return matches, ""
}

func globFiles(files map[string]*FileData, pattern, prefix string) []FileInfo {
	prefix = dirPrefix(prefix)

	var infos []FileInfo
	for _, key := range sortedKeys(files) {
		if !strings.HasPrefix(key, prefix) {
			continue
		}
		rel := key[len(prefix):]
		if ok, err := doublestar.Match(pattern, rel); err != nil || !ok {
			continue
		}
		fd := files[key]
		infos = append(infos, FileInfo{
			Path:       key,
			Size:       fd.Size(),
			ModifiedAt: fd.ModifiedAt,
		})
	}
	return infos
}

// downloadFiles resolves a bulk download against a path map. A path whose
// children exist but which is no file itself reports is_directory, matching
// the disk backend's view of the same tree.
func downloadFiles(files map[string]*FileData, paths []string) []DownloadResult {
	results := make([]DownloadResult, len(paths))
	for i, raw := range paths {
		results[i].Path = raw
		p, err := Validate(raw)
		if err != nil {
			results[i].Error = BulkInvalidPath
			continue
		}
		if fd, ok := files[p]; ok {
			results[i].Content = []byte(fd.Text())
			continue
		}
		if hasChildren(files, p) {
			results[i].Error = BulkIsDirectory
			continue
		}
		results[i].Error = BulkFileNotFound
	}
	return results
}

func hasChildren(files map[string]*FileData, p string) bool {
	prefix := dirPrefix(p)
	for key := range files {
		if strings.HasPrefix(key, prefix) {
			return true
		}
	}
	return false
}

// stagedUpload pairs a validated path with its new file data.
type stagedUpload struct {
	path string
	fd   *FileData
}

// stageUploads validates a bulk upload against a path map. Uploads
// overwrite: an existing file keeps its CreatedAt, a new one gets fresh
// timestamps. Bad paths fail individually; the rest of the batch proceeds.
func stageUploads(files map[string]*FileData, uploads []FileUpload) ([]UploadResult, []stagedUpload) {
	results := make([]UploadResult, len(uploads))
	staged := make([]stagedUpload, 0, len(uploads))
	for i, up := range uploads {
		results[i].Path = up.Path
		p, err := Validate(up.Path)
		if err != nil {
			results[i].Error = BulkInvalidPath
			continue
		}
		content := string(up.Content)
		var fd *FileData
		if existing, ok := files[p]; ok {
			fd = existing.Update(content)
		} else {
			fd = NewFileData(content)
		}
		staged = append(staged, stagedUpload{path: p, fd: fd})
	}
	return results, staged
}

func sortedKeys(files map[string]*FileData) []string {
	keys := make([]string, 0, len(files))
	for key := range files {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}
