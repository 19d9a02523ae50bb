package smpa

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCombinePath(t *testing.T) {
	tests := []struct {
		dir, name, want string
	}{
		{"", "", ""},
		{"", "a.txt", "a.txt"},
		{"sub", "", "sub"},
		{"sub", "a.txt", `sub\a.txt`},
		{`sub\`, "a.txt", `sub\a.txt`},
		{`a\b`, `c\d.txt`, `a\b\c\d.txt`},
	}

	for _, tt := range tests {
		assert.Equalf(t, tt.want, combinePath(tt.dir, tt.name), "combinePath(%q, %q)", tt.dir, tt.name)
	}
}

func TestBaseNameAndUpDir(t *testing.T) {
	tests := []struct {
		path, base, up string
	}{
		{"a.txt", "a.txt", ""},
		{`d\a.txt`, "a.txt", "d"},
		{`d\sub\a.txt`, "a.txt", `d\sub`},
		{"d/sub/a.txt", "a.txt", "d/sub"},
	}

	for _, tt := range tests {
		assert.Equalf(t, tt.base, baseName(tt.path), "baseName(%q)", tt.path)
		assert.Equalf(t, tt.up, upDir(tt.path), "upDir(%q)", tt.path)
	}
}

func TestDedupeByName(t *testing.T) {
	got := dedupeByName([]string{
		`A\x.txt`,
		`keep\y.txt`,
		`B\X.TXT`,
		`C\z.txt`,
	})

	// The later X.TXT displaces the earlier x.txt; everything else keeps its
	// relative order.
	assert.Equal(t, []string{`keep\y.txt`, `B\X.TXT`, `C\z.txt`}, got)
}

func TestPathSetContains(t *testing.T) {
	s := newPathSet([]string{`Dir\File.txt`, "other.bin"})

	assert.True(t, s.contains(`dir\file.TXT`))
	assert.True(t, s.contains("dir/file.txt"))
	assert.True(t, s.contains("OTHER.BIN"))
	assert.False(t, s.contains("Dir"))
	assert.False(t, s.contains(`Dir\File.txt.bak`))
}

func TestPathSetMatchesAncestor(t *testing.T) {
	s := newPathSet([]string{"DIR"})

	assert.True(t, s.matchesAncestor("dir"))
	assert.True(t, s.matchesAncestor(`Dir\Sub\File.txt`))
	assert.True(t, s.matchesAncestor("dir/sub/file.txt"))
	assert.False(t, s.matchesAncestor("dirt"))
	assert.False(t, s.matchesAncestor(`other\dir\file.txt`))
}

func TestNewDeleteSet(t *testing.T) {
	s := newDeleteSet([]string{
		`Dir\*.*`,
		"other/",
		"file.txt",
		"*.*",
		`\`,
	})

	// The wildcard and separator suffixes normalize away; paths that
	// normalize to nothing are dropped.
	assert.Equal(t, pathSet{"DIR", "FILE.TXT", "OTHER"}, s)
}

func TestToArchivePath(t *testing.T) {
	assert.Equal(t, `a\b\c.txt`, toArchivePath("a/b/c.txt"))
	assert.Equal(t, `a\b\c.txt`, toArchivePath(`a\b/c.txt`))
}
