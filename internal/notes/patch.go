package notes

import (
	"path/filepath"
	"slices"
	"strings"
)

// ReplaceLeaf returns a new root in which the note at leaf.Path is replaced
// by leaf, or inserted at its sorted position if the parent directory has no
// such note yet. Only the directories between root and the note's parent are
// copied; every other node is shared with the old tree.
//
// ok is false, and root is returned unchanged, when the parent directory is
// not part of the tree.
func ReplaceLeaf(root, leaf *CategoryNode) (*CategoryNode, bool) {
	spine := spineTo(root, filepath.Dir(leaf.Path))
	if spine == nil {
		return root, false
	}

	parent := spine[len(spine)-1]
	children := slices.Clone(parent.Children)

	idx := slices.IndexFunc(children, func(c *CategoryNode) bool {
		return c.Path == leaf.Path
	})
	switch {
	case idx >= 0 && children[idx].IsDirectory:
		// A directory replaced by a file of the same name is a structural change.
		return root, false
	case idx >= 0:
		children[idx] = leaf
	default:
		pos, _ := slices.BinarySearchFunc(children, leaf, func(c, target *CategoryNode) int {
			if nodeLess(c, target) {
				return -1
			}
			return 1
		})
		children = slices.Insert(children, pos, leaf)
	}

	return rebuildSpine(spine, children), true
}

// RemoveLeaf returns a new root without the note at path. ok is false, and
// root is returned unchanged, when no such note exists.
func RemoveLeaf(root *CategoryNode, path string) (*CategoryNode, bool) {
	spine := spineTo(root, filepath.Dir(path))
	if spine == nil {
		return root, false
	}

	parent := spine[len(spine)-1]
	idx := slices.IndexFunc(parent.Children, func(c *CategoryNode) bool {
		return c.Path == path && !c.IsDirectory
	})
	if idx < 0 {
		return root, false
	}

	children := slices.Delete(slices.Clone(parent.Children), idx, idx+1)
	return rebuildSpine(spine, children), true
}

// spineTo returns the directory nodes from root down to the directory at
// dir, or nil if dir is not in the tree.
func spineTo(root *CategoryNode, dir string) []*CategoryNode {
	if root == nil {
		return nil
	}

	spine := []*CategoryNode{root}
	cur := root
	for cur.Path != dir {
		if !strings.HasPrefix(dir, cur.Path+string(filepath.Separator)) {
			return nil
		}
		next := slices.IndexFunc(cur.Children, func(c *CategoryNode) bool {
			return c.IsDirectory &&
				(c.Path == dir || strings.HasPrefix(dir, c.Path+string(filepath.Separator)))
		})
		if next < 0 {
			return nil
		}
		cur = cur.Children[next]
		spine = append(spine, cur)
	}
	return spine
}

// rebuildSpine copies each directory on the spine bottom-up, giving the
// deepest one the new children and every ancestor its copied child.
func rebuildSpine(spine []*CategoryNode, children []*CategoryNode) *CategoryNode {
	var replacement *CategoryNode
	for i := len(spine) - 1; i >= 0; i-- {
		copied := *spine[i]
		if replacement == nil {
			copied.Children = children
		} else {
			old := spine[i+1]
			copied.Children = slices.Clone(spine[i].Children)
			for j, c := range copied.Children {
				if c == old {
					copied.Children[j] = replacement
					break
				}
			}
		}
		replacement = &copied
	}
	return replacement
}
