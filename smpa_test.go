package smpa

import (
	"context"
	"crypto/rand"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func fill(t *testing.T, name string, data []byte) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(name), 0o755))
	require.NoError(t, os.WriteFile(name, data, 0o644))
}

func randomData(t *testing.T, n int) []byte {
	t.Helper()
	data := make([]byte, n)
	_, err := rand.Read(data)
	require.NoError(t, err)
	return data
}

func mustPack(t *testing.T, archive, subPath, srcRoot string, relPaths []string, optFns ...func(*PackOptions)) {
	t.Helper()
	err := Pack(context.Background(), archive, subPath, srcRoot, relPaths, optFns...)
	require.NoErrorf(t, err, "Pack(...) error = %v", err)
}

// listEntries returns the live entries in archive order.
func listEntries(t *testing.T, archive string) []*Entry {
	t.Helper()

	r, err := OpenReader(archive, ModeList)
	require.NoErrorf(t, err, "OpenReader(...) error = %v", err)
	defer r.Close()

	var out []*Entry
	for {
		e, err := r.Next()
		if err == io.EOF {
			return out
		}
		require.NoErrorf(t, err, "Next() error = %v", err)
		require.NoErrorf(t, r.Skip(), "Skip() error")
		out = append(out, e)
	}
}

func livePaths(t *testing.T, archive string) []string {
	t.Helper()

	entries := listEntries(t, archive)
	paths := make([]string, len(entries))
	for i, e := range entries {
		paths[i] = e.Path
	}
	return paths
}

func extractAll(t *testing.T, archive, dest string) {
	t.Helper()

	r, err := OpenReader(archive, ModeExtract)
	require.NoErrorf(t, err, "OpenReader(...) error = %v", err)
	defer r.Close()

	for {
		e, err := r.Next()
		if err == io.EOF {
			return
		}
		require.NoErrorf(t, err, "Next() error = %v", err)

		err = r.Extract(dest, e.Path)
		require.NoErrorf(t, err, "Extract(_, %q) error = %v", e.Path, err)
	}
}

func fileSize(t *testing.T, name string) int64 {
	t.Helper()
	fi, err := os.Stat(name)
	require.NoError(t, err)
	return fi.Size()
}
