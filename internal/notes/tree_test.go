package notes

import (
	"io"
	"log"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var quiet = log.New(io.Discard, "", 0)

// writeTree creates files (slash-separated relative paths) under a temp
// directory. A path ending in "/" creates an empty directory.
func writeTree(t *testing.T, files map[string]string) string {
	t.Helper()
	root := t.TempDir()
	for rel, content := range files {
		full := filepath.Join(root, filepath.FromSlash(rel))
		if rel[len(rel)-1] == '/' {
			require.NoError(t, os.MkdirAll(full, 0o755))
			continue
		}
		require.NoError(t, os.MkdirAll(filepath.Dir(full), 0o755))
		require.NoError(t, os.WriteFile(full, []byte(content), 0o644))
	}
	return root
}

func names(nodes []*CategoryNode) []string {
	out := make([]string, 0, len(nodes))
	for _, n := range nodes {
		out = append(out, n.Name)
	}
	return out
}

func TestBuild_Ordering(t *testing.T) {
	root := writeTree(t, map[string]string{
		"b.md":       "",
		"A/":         "",
		"1. C.md":    "",
		"z-dir/x.md": "",
		"a.md":       "",
	})

	tree, err := NewBuilder("", quiet).Build(root)
	require.NoError(t, err)

	assert.Equal(t, []string{"A", "z-dir", "C", "a", "b"}, names(tree.Children))
}

func TestBuild_DirectoriesFirstThenRawName(t *testing.T) {
	root := writeTree(t, map[string]string{
		"b.md":    "",
		"A/":      "",
		"1. C.md": "",
	})

	tree, err := NewBuilder("", quiet).Build(root)
	require.NoError(t, err)

	assert.Equal(t, []string{"A", "C", "b"}, names(tree.Children))
	assert.Equal(t, filepath.Join(root, "1. C.md"), tree.Children[1].Path)
}

func TestBuild_RootNode(t *testing.T) {
	root := writeTree(t, map[string]string{"note.md": ""})

	tree, err := NewBuilder("Notes", quiet).Build(root)
	require.NoError(t, err)

	assert.Equal(t, "Notes", tree.Name)
	assert.Equal(t, root, tree.Path)
	assert.True(t, tree.IsDirectory)
	assert.Nil(t, tree.LastModified)

	tree, err = NewBuilder("", quiet).Build(root)
	require.NoError(t, err)
	assert.Equal(t, DefaultRootName, tree.Name)
}

func TestBuild_SkipsHiddenAndNonMarkdown(t *testing.T) {
	root := writeTree(t, map[string]string{
		".obsidian/workspace.md": "[[Secret]]",
		".hidden.md":             "",
		"go/.drafts/wip.md":      "",
		"go/channels.md":         "",
		"go/diagram.png":         "png",
		"config.yaml":            "a: b",
	})

	tree, err := NewBuilder("", quiet).Build(root)
	require.NoError(t, err)

	tree.Walk(func(n *CategoryNode) bool {
		assert.NotContains(t, n.Path, ".obsidian")
		assert.NotContains(t, n.Path, ".drafts")
		assert.NotEqual(t, ".hidden", n.Name)
		return true
	})

	require.Len(t, tree.Children, 1)
	goDir := tree.Children[0]
	assert.Equal(t, "go", goDir.Name)
	assert.Equal(t, []string{"channels"}, names(goDir.Children))
}

func TestBuild_KeepsEmptyDirectories(t *testing.T) {
	root := writeTree(t, map[string]string{
		"empty/":         "",
		"nested/deeper/": "",
		"nested/note.md": "",
	})

	tree, err := NewBuilder("", quiet).Build(root)
	require.NoError(t, err)

	assert.Equal(t, []string{"empty", "nested"}, names(tree.Children))
	assert.Empty(t, tree.Children[0].Children)
	assert.Equal(t, []string{"deeper", "note"}, names(tree.Children[1].Children))
}

func TestBuild_LeafAndDirectoryInvariants(t *testing.T) {
	root := writeTree(t, map[string]string{
		"1. Basics/1. Intro.md":   "[[Setup]] and [more](Advanced.md)",
		"1. Basics/2. Setup.md":   "[[Intro|back]]",
		"2. Advanced/Advanced.md": "",
		"2. Advanced/sub/Deep.md": "[[Intro]]",
		"README.md":               "",
	})

	tree, err := NewBuilder("", quiet).Build(root)
	require.NoError(t, err)

	dirs, files := tree.Count()
	assert.Equal(t, 4, dirs)
	assert.Equal(t, 5, files)

	tree.Walk(func(n *CategoryNode) bool {
		if n.IsDirectory {
			assert.Empty(t, n.Links, n.Path)
			assert.Nil(t, n.LastModified, n.Path)
		} else {
			assert.Empty(t, n.Children, n.Path)
			assert.NotNil(t, n.LastModified, n.Path)
		}
		return true
	})

	intro := tree.Find(filepath.Join(root, "1. Basics", "1. Intro.md"))
	require.NotNil(t, intro)
	assert.Equal(t, "Intro", intro.Name)
	assert.Equal(t, []string{"Setup", "Advanced"}, intro.Links)
}

func TestBuild_Errors(t *testing.T) {
	t.Run("missing root", func(t *testing.T) {
		_, err := NewBuilder("", quiet).Build(filepath.Join(t.TempDir(), "missing"))
		assert.ErrorIs(t, err, ErrIO)
		assert.ErrorIs(t, err, os.ErrNotExist)
	})

	t.Run("root is a file", func(t *testing.T) {
		root := writeTree(t, map[string]string{"note.md": ""})
		_, err := NewBuilder("", quiet).Build(filepath.Join(root, "note.md"))
		assert.ErrorIs(t, err, ErrIO)
	})
}

func TestBuild_OmitsUnreadableNotes(t *testing.T) {
	if runtime.GOOS == "windows" || os.Geteuid() == 0 {
		t.Skip("file permissions are not enforced")
	}

	root := writeTree(t, map[string]string{
		"ok.md":     "[[Locked]]",
		"locked.md": "secret",
	})
	require.NoError(t, os.Chmod(filepath.Join(root, "locked.md"), 0o000))
	t.Cleanup(func() { _ = os.Chmod(filepath.Join(root, "locked.md"), 0o644) })

	tree, stats, err := NewBuilder("", quiet).BuildWithStats(root)
	require.NoError(t, err)

	assert.Equal(t, []string{"ok"}, names(tree.Children))
	assert.Equal(t, 1, stats.Skipped)
	assert.Equal(t, 1, stats.Notes)
}

func TestBuild_Idempotent(t *testing.T) {
	root := writeTree(t, map[string]string{
		"a.md":     "[[b]]",
		"dir/b.md": "[[a]] [[c]]",
		"dir/c.md": "",
	})
	b := NewBuilder("", quiet)

	first, err := b.Build(root)
	require.NoError(t, err)
	second, err := b.Build(root)
	require.NoError(t, err)

	assert.Equal(t, shape(first), shape(second))
}

// shape projects a tree onto the fields that must be stable across builds.
func shape(n *CategoryNode) map[string]any {
	children := make([]map[string]any, 0, len(n.Children))
	for _, c := range n.Children {
		children = append(children, shape(c))
	}
	return map[string]any{
		"name":     n.Name,
		"path":     n.Path,
		"dir":      n.IsDirectory,
		"links":    n.Links,
		"children": children,
	}
}

func TestLeaf(t *testing.T) {
	root := writeTree(t, map[string]string{"3. Maps.md": "[[Slices]] [[Structs]]"})
	b := NewBuilder("", quiet)

	leaf, err := b.Leaf(filepath.Join(root, "3. Maps.md"))
	require.NoError(t, err)
	assert.Equal(t, "Maps", leaf.Name)
	assert.False(t, leaf.IsDirectory)
	assert.Equal(t, []string{"Slices", "Structs"}, leaf.Links)
	assert.NotNil(t, leaf.LastModified)

	_, err = b.Leaf(filepath.Join(root, "gone.md"))
	assert.ErrorIs(t, err, ErrIO)

	_, err = b.Leaf(root)
	assert.ErrorIs(t, err, ErrIO)
}

func TestMarkdownFiles(t *testing.T) {
	root := writeTree(t, map[string]string{
		"a.md":     "",
		"dir/b.md": "",
		"empty/":   "",
	})

	tree, err := NewBuilder("", quiet).Build(root)
	require.NoError(t, err)

	assert.Equal(t, []string{
		filepath.Join(root, "dir", "b.md"),
		filepath.Join(root, "a.md"),
	}, tree.MarkdownFiles())
}
