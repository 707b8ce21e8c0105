// Package local_test tests the local filesystem artifact store.
package local_test

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scrapeworks/jobscraper/internal/storage/local"
)

func TestNew(t *testing.T) {
	t.Run("ValidConfig", func(t *testing.T) {
		tempDir := t.TempDir()
		store, err := local.New(local.Config{BaseDir: tempDir})
		require.NoError(t, err)
		assert.NotNil(t, store)
	})

	t.Run("MissingBaseDir", func(t *testing.T) {
		_, err := local.New(local.Config{})
		assert.Error(t, err)
	})

	t.Run("BaseDirIsNotADirectory", func(t *testing.T) {
		tempFile, err := os.CreateTemp("", "testfile")
		require.NoError(t, err)
		t.Cleanup(func() {
			removeErr := os.Remove(tempFile.Name())
			if removeErr != nil && !os.IsNotExist(removeErr) {
				t.Fatalf("failed to remove temp file: %v", removeErr)
			}
		})

		_, err = local.New(local.Config{BaseDir: tempFile.Name()})
		assert.Error(t, err)
	})

	t.Run("BaseDirNotWritable", func(t *testing.T) {
		tempDir := t.TempDir()
		// #nosec G302 -- directory permissions adjusted intentionally for test coverage.
		err := os.Chmod(tempDir, 0o500)
		require.NoError(t, err)

		_, err = local.New(local.Config{BaseDir: tempDir})
		assert.Error(t, err)

		// #nosec G302 -- reverting permissions to allow cleanup in the test environment.
		err = os.Chmod(tempDir, 0o700)
		require.NoError(t, err)
	})
}

func TestSaveAndOpen(t *testing.T) {
	tempDir := t.TempDir()
	store, err := local.New(local.Config{BaseDir: tempDir})
	require.NoError(t, err)

	t.Run("ValidSave", func(t *testing.T) {
		data := []byte("title,Company name,Time of posting,url\n")
		uri, err := store.Save(context.Background(), "jobs.csv", data)
		require.NoError(t, err)
		assert.Equal(t, "file://"+filepath.Join(tempDir, "jobs.csv"), uri)

		// #nosec G304 -- test reads from the controlled temp directory.
		readData, err := os.ReadFile(filepath.Join(tempDir, "jobs.csv"))
		require.NoError(t, err)
		assert.Equal(t, data, readData)
	})

	t.Run("OpenRoundTrip", func(t *testing.T) {
		data := []byte("round-trip")
		_, err := store.Save(context.Background(), "rt.csv", data)
		require.NoError(t, err)

		rc, err := store.Open(context.Background(), "rt.csv")
		require.NoError(t, err)
		defer rc.Close()
		got, err := io.ReadAll(rc)
		require.NoError(t, err)
		assert.Equal(t, data, got)
	})

	t.Run("EmptyName", func(t *testing.T) {
		_, err := store.Save(context.Background(), "", []byte("data"))
		assert.Error(t, err)
	})

	t.Run("PathTraversal", func(t *testing.T) {
		_, err := store.Save(context.Background(), "../escape.csv", []byte("data"))
		assert.Error(t, err)
	})

	t.Run("OpenMissing", func(t *testing.T) {
		_, err := store.Open(context.Background(), "missing.csv")
		assert.Error(t, err)
	})
}
