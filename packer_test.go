package smpa

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/nguyengg/smpa/format"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPackExtractRoundTrip(t *testing.T) {
	// Sizes straddling the compression threshold and the streaming buffer.
	for _, size := range []int{0, 15, 16, 65536, 65537} {
		t.Run(fmt.Sprintf("%d bytes", size), func(t *testing.T) {
			dir := t.TempDir()
			src := filepath.Join(dir, "src")
			data := randomData(t, size)
			fill(t, filepath.Join(src, "data.bin"), data)

			archive := filepath.Join(dir, "a.smpa")
			mustPack(t, archive, "", src, []string{"data.bin"})

			entries := listEntries(t, archive)
			require.Len(t, entries, 1)

			e := entries[0]
			assert.Equal(t, "data.bin", e.Path)
			assert.False(t, e.IsDir())
			assert.Equal(t, uint64(size), e.OriginalSize)
			assert.Equal(t, size >= format.MinCompressSize, e.Compressed)
			if !e.Compressed {
				assert.Equal(t, e.OriginalSize, e.PackedSize)
			}

			dest := filepath.Join(dir, "out")
			extractAll(t, archive, dest)

			got, err := os.ReadFile(filepath.Join(dest, "data.bin"))
			require.NoError(t, err)
			assert.Equal(t, data, got)
		})
	}
}

func TestPackDirectoryStructure(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "src")
	fill(t, filepath.Join(src, "d", "f.txt"), []byte("file f"))
	fill(t, filepath.Join(src, "d", "sub", "g.txt"), []byte("file g"))

	archive := filepath.Join(dir, "a.smpa")
	mustPack(t, archive, "", src, []string{"d/", "d/f.txt", "d/sub/", "d/sub/g.txt"})

	assert.Equal(t, []string{"d", `d\f.txt`, `d\sub`, `d\sub\g.txt`}, livePaths(t, archive))

	for _, e := range listEntries(t, archive) {
		if e.IsDir() {
			assert.Zero(t, e.OriginalSize)
			assert.Zero(t, e.PackedSize)
		}
	}

	dest := filepath.Join(dir, "out")
	extractAll(t, archive, dest)

	fi, err := os.Stat(filepath.Join(dest, "d", "sub"))
	require.NoError(t, err)
	assert.True(t, fi.IsDir())

	got, err := os.ReadFile(filepath.Join(dest, "d", "sub", "g.txt"))
	require.NoError(t, err)
	assert.Equal(t, []byte("file g"), got)
}

func TestPackSubPath(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "src")
	fill(t, filepath.Join(src, "data.bin"), []byte("payload"))

	archive := filepath.Join(dir, "a.smpa")
	mustPack(t, archive, "some/sub", src, []string{"data.bin"})

	// Forward slashes in the sub path are accepted and normalized.
	assert.Equal(t, []string{`some\sub\data.bin`}, livePaths(t, archive))
}

func TestPackSupersedesCaseInsensitively(t *testing.T) {
	dir := t.TempDir()
	src1 := filepath.Join(dir, "src1")
	src2 := filepath.Join(dir, "src2")
	fill(t, filepath.Join(src1, "file.txt"), []byte("first version"))
	fill(t, filepath.Join(src2, "File.TXT"), []byte("second version"))

	archive := filepath.Join(dir, "a.smpa")
	mustPack(t, archive, "", src1, []string{"file.txt"})
	sizeAfterFirst := fileSize(t, archive)

	mustPack(t, archive, "", src2, []string{"File.TXT"})

	// The first version is tombstoned in place, so the archive only grows.
	assert.Greater(t, fileSize(t, archive), sizeAfterFirst)
	assert.Equal(t, []string{"File.TXT"}, livePaths(t, archive))

	dest := filepath.Join(dir, "out")
	extractAll(t, archive, dest)

	got, err := os.ReadFile(filepath.Join(dest, "File.TXT"))
	require.NoError(t, err)
	assert.Equal(t, []byte("second version"), got)
}

func TestPackFlatten(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "src")
	fill(t, filepath.Join(src, "A", "x.txt"), []byte("from A"))
	fill(t, filepath.Join(src, "B", "x.txt"), []byte("from B"))
	fill(t, filepath.Join(src, "C", "y.txt"), []byte("from C"))

	archive := filepath.Join(dir, "a.smpa")
	mustPack(t, archive, "", src, []string{"A/", "A/x.txt", "B/", "B/x.txt", "C/", "C/y.txt"}, func(opts *PackOptions) {
		opts.Flatten = true
	})

	// Directories are dropped; of the two x.txt candidates the one listed
	// last wins.
	assert.Equal(t, []string{"x.txt", "y.txt"}, livePaths(t, archive))

	dest := filepath.Join(dir, "out")
	extractAll(t, archive, dest)

	got, err := os.ReadFile(filepath.Join(dest, "x.txt"))
	require.NoError(t, err)
	assert.Equal(t, []byte("from B"), got)
}

func TestPackRemoveSource(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "src")
	fill(t, filepath.Join(src, "d", "f.txt"), []byte("file f"))

	archive := filepath.Join(dir, "a.smpa")
	mustPack(t, archive, "", src, []string{"d/", "d/f.txt"}, func(opts *PackOptions) {
		opts.RemoveSource = true
	})

	_, err := os.Stat(filepath.Join(src, "d"))
	assert.True(t, os.IsNotExist(err))

	dest := filepath.Join(dir, "out")
	extractAll(t, archive, dest)

	got, err := os.ReadFile(filepath.Join(dest, "d", "f.txt"))
	require.NoError(t, err)
	assert.Equal(t, []byte("file f"), got)
}

func TestPackNothingCreatesEmptyArchive(t *testing.T) {
	dir := t.TempDir()
	archive := filepath.Join(dir, "a.smpa")

	mustPack(t, archive, "", dir, nil)

	assert.Equal(t, int64(len(format.Magic)), fileSize(t, archive))
	assert.True(t, Probe(archive))
	assert.Empty(t, listEntries(t, archive))
}

func TestPackReportsProgress(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "src")
	fill(t, filepath.Join(src, "a.bin"), randomData(t, 1000))
	fill(t, filepath.Join(src, "b.bin"), randomData(t, 1000))

	archive := filepath.Join(dir, "a.smpa")

	type call struct {
		name string
		n    int
	}
	var calls []call
	mustPack(t, archive, "", src, []string{"a.bin", "b.bin"}, func(opts *PackOptions) {
		opts.ProgressInterval = -1
		opts.Progress = func(name string, n int) bool {
			calls = append(calls, call{name, n})
			return true
		}
	})

	require.NotEmpty(t, calls)
	assert.Equal(t, call{archive, 0}, calls[0])

	// The second of two candidates reports as a negated percentage.
	var sawPercent bool
	for _, c := range calls {
		if c.n < 0 {
			sawPercent = true
			assert.GreaterOrEqual(t, c.n, -100)
			assert.Contains(t, c.name, "b.bin")
		}
	}
	assert.True(t, sawPercent)
}

func TestPackCancelledBeforeAnyWrite(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "src")
	fill(t, filepath.Join(src, "data.bin"), []byte("payload"))

	archive := filepath.Join(dir, "a.smpa")
	err := Pack(context.Background(), archive, "", src, []string{"data.bin"}, func(opts *PackOptions) {
		opts.Progress = func(string, int) bool { return false }
	})
	assert.ErrorIs(t, err, ErrCancelled)

	// The initial report precedes archive creation.
	_, err = os.Stat(archive)
	assert.True(t, os.IsNotExist(err))
}

func TestPackContextCancelled(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "src")
	fill(t, filepath.Join(src, "data.bin"), []byte("payload"))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	archive := filepath.Join(dir, "a.smpa")
	err := Pack(ctx, archive, "", src, []string{"data.bin"})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestPackIntoCorruptArchive(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "src")
	fill(t, filepath.Join(src, "data.bin"), []byte("payload"))

	archive := filepath.Join(dir, "a.smpa")
	require.NoError(t, os.WriteFile(archive, []byte("NOTSMPA!"), 0o644))

	err := Pack(context.Background(), archive, "", src, []string{"data.bin"})
	assert.ErrorIs(t, err, ErrBadArchive)
}

func TestPackPreservesModTime(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "src")
	name := filepath.Join(src, "data.bin")
	fill(t, name, []byte("payload of some size"))

	// An even second so the 2-second timestamp resolution is exact.
	want := time.Date(2023, time.July, 8, 9, 10, 12, 0, time.Local)
	require.NoError(t, os.Chtimes(name, want, want))

	archive := filepath.Join(dir, "a.smpa")
	mustPack(t, archive, "", src, []string{"data.bin"})

	entries := listEntries(t, archive)
	require.Len(t, entries, 1)
	assert.Equal(t, want, entries[0].ModTime())

	dest := filepath.Join(dir, "out")
	extractAll(t, archive, dest)

	fi, err := os.Stat(filepath.Join(dest, "data.bin"))
	require.NoError(t, err)
	assert.True(t, fi.ModTime().Equal(want), "extracted mod time = %v, want %v", fi.ModTime(), want)
}
