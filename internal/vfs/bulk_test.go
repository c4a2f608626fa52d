package vfs

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStateUploadReturnsPatch(t *testing.T) {
	backend := NewStateBackend(Files{})

	results, patch, err := backend.Upload(context.Background(), []FileUpload{
		{Path: "/file1.bin", Content: []byte("Content 1")},
		{Path: "/subdir/file3.bin", Content: []byte("Content 3")},
	})
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Empty(t, results[0].Error)
	assert.Empty(t, results[1].Error)

	files := Files{}
	files.Apply(patch)
	content, err := NewStateBackend(files).Read(context.Background(), "/subdir/file3.bin", 0, 0)
	require.NoError(t, err)
	assert.Equal(t, "Content 3", content)
}

func TestStateUploadOverwrites(t *testing.T) {
	files := Files{"/keep.txt": NewFileData("old")}
	created := files["/keep.txt"].CreatedAt

	results, patch, err := NewStateBackend(files).Upload(context.Background(), []FileUpload{
		{Path: "/keep.txt", Content: []byte("new")},
	})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Empty(t, results[0].Error)
	require.Contains(t, patch, "/keep.txt")
	assert.Equal(t, []string{"new"}, patch["/keep.txt"].Content)
	assert.Equal(t, created, patch["/keep.txt"].CreatedAt)
}

func TestStateUploadPartialSuccess(t *testing.T) {
	backend := NewStateBackend(Files{})

	results, patch, err := backend.Upload(context.Background(), []FileUpload{
		{Path: "/valid1.txt", Content: []byte("Valid content 1")},
		{Path: "/../invalid.txt", Content: []byte("Invalid path")},
		{Path: "/valid2.txt", Content: []byte("Valid content 2")},
	})
	require.NoError(t, err)
	require.Len(t, results, 3)
	assert.Empty(t, results[0].Error)
	assert.Equal(t, BulkInvalidPath, results[1].Error)
	assert.Empty(t, results[2].Error)

	require.Len(t, patch, 2)
	assert.Contains(t, patch, "/valid1.txt")
	assert.Contains(t, patch, "/valid2.txt")
}

func TestStateDownloadOutcomes(t *testing.T) {
	files := Files{
		"/exists.txt":    NewFileData("I exist!"),
		"/dir/child.txt": NewFileData("nested"),
	}

	results, err := NewStateBackend(files).Download(context.Background(), []string{
		"/exists.txt", "/doesnotexist.txt", "/../invalid", "/dir",
	})
	require.NoError(t, err)
	require.Len(t, results, 4)

	assert.Empty(t, results[0].Error)
	assert.Equal(t, []byte("I exist!"), results[0].Content)

	assert.Equal(t, BulkFileNotFound, results[1].Error)
	assert.Nil(t, results[1].Content)

	assert.Equal(t, BulkInvalidPath, results[2].Error)
	assert.Nil(t, results[2].Content)

	assert.Equal(t, BulkIsDirectory, results[3].Error)
	assert.Nil(t, results[3].Content)
}

func TestStoreUploadDownloadRoundTrip(t *testing.T) {
	ctx := context.Background()
	backend := NewStoreBackend(NewMemoryKV())

	results, patch, err := backend.Upload(ctx, []FileUpload{
		{Path: "/file1.bin", Content: []byte("Binary content 1")},
		{Path: "/file2.bin", Content: []byte("Binary content 2")},
	})
	require.NoError(t, err)
	assert.Nil(t, patch)
	require.Len(t, results, 2)
	assert.Empty(t, results[0].Error)
	assert.Empty(t, results[1].Error)

	downloads, err := backend.Download(ctx, []string{"/file1.bin", "/file2.bin"})
	require.NoError(t, err)
	require.Len(t, downloads, 2)
	assert.Equal(t, []byte("Binary content 1"), downloads[0].Content)
	assert.Equal(t, []byte("Binary content 2"), downloads[1].Content)
}

func TestStoreUploadOverwritesAndDownloadErrors(t *testing.T) {
	ctx := context.Background()
	backend := NewStoreBackend(NewMemoryKV())

	res, err := backend.Write(ctx, "/taken.txt", "original")
	require.NoError(t, err)
	require.Empty(t, res.Error)

	results, _, err := backend.Upload(ctx, []FileUpload{
		{Path: "/taken.txt", Content: []byte("replaced")},
		{Path: "/nested/new.txt", Content: []byte("fresh")},
	})
	require.NoError(t, err)
	assert.Empty(t, results[0].Error)
	assert.Empty(t, results[1].Error)

	content, err := backend.Read(ctx, "/taken.txt", 0, 0)
	require.NoError(t, err)
	assert.Equal(t, "replaced", content)

	downloads, err := backend.Download(ctx, []string{"/missing.txt", "/nested"})
	require.NoError(t, err)
	assert.Equal(t, BulkFileNotFound, downloads[0].Error)
	assert.Equal(t, BulkIsDirectory, downloads[1].Error)
}

func TestDiskUploadDownloadRoundTrip(t *testing.T) {
	ctx := context.Background()
	root := t.TempDir()
	backend := NewDiskBackend(root)

	binary := make([]byte, 256)
	for i := range binary {
		binary[i] = byte(i)
	}

	results, patch, err := backend.Upload(ctx, []FileUpload{
		{Path: "/roundtrip.bin", Content: binary},
		{Path: "/subdir/file3.bin", Content: []byte("Content 3")},
	})
	require.NoError(t, err)
	assert.Nil(t, patch)
	require.Len(t, results, 2)
	assert.Empty(t, results[0].Error)
	assert.Empty(t, results[1].Error)

	raw, err := os.ReadFile(filepath.Join(root, "roundtrip.bin"))
	require.NoError(t, err)
	assert.True(t, bytes.Equal(binary, raw))

	downloads, err := backend.Download(ctx, []string{"/roundtrip.bin", "/subdir/file3.bin"})
	require.NoError(t, err)
	assert.True(t, bytes.Equal(binary, downloads[0].Content))
	assert.Equal(t, []byte("Content 3"), downloads[1].Content)
}

func TestDiskDownloadErrors(t *testing.T) {
	ctx := context.Background()
	root := t.TempDir()
	backend := NewDiskBackend(root)

	require.NoError(t, os.Mkdir(filepath.Join(root, "testdir"), 0o755))

	results, err := backend.Download(ctx, []string{
		"/nonexistent.txt", "/testdir", "/../etc/passwd",
	})
	require.NoError(t, err)
	require.Len(t, results, 3)
	assert.Equal(t, BulkFileNotFound, results[0].Error)
	assert.Equal(t, BulkIsDirectory, results[1].Error)
	assert.Equal(t, BulkInvalidPath, results[2].Error)
}

func TestDiskUploadPartialSuccess(t *testing.T) {
	ctx := context.Background()
	root := t.TempDir()
	backend := NewDiskBackend(root)

	results, _, err := backend.Upload(ctx, []FileUpload{
		{Path: "/valid1.txt", Content: []byte("Valid content 1")},
		{Path: "/../invalid.txt", Content: []byte("Invalid path")},
		{Path: "/valid2.txt", Content: []byte("Valid content 2")},
	})
	require.NoError(t, err)
	require.Len(t, results, 3)
	assert.Empty(t, results[0].Error)
	assert.Equal(t, BulkInvalidPath, results[1].Error)
	assert.Empty(t, results[2].Error)

	_, err = os.Stat(filepath.Join(root, "valid1.txt"))
	assert.NoError(t, err)
	_, err = os.Stat(filepath.Join(root, "valid2.txt"))
	assert.NoError(t, err)
}
