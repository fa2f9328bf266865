// Package notes builds the category tree of a synced note repository.
//
// # Overview
//
// A note repository is a directory of markdown files, optionally nested in
// folders, that reference each other with wiki links. This package turns the
// content folder of such a repository into an immutable tree of
// CategoryNode values: directories become branch nodes, markdown files become
// leaves enriched with their modification time and the link targets found in
// their text.
//
// # Naming and ordering
//
// Display names drop a leading ordinal prefix ("1. ", "02.") and, for
// files, the .md extension:
//
//	01. Basics/           -> "Basics"
//	01. Basics/2. Go.md   -> "Go"
//
// Children are ordered directories first, then files, each group compared
// case-insensitively on the raw filesystem name (before prefix stripping).
// Entries whose name starts with "." are skipped and never descended into.
// Files without the .md extension are ignored.
//
// # Links
//
// ExtractLinks recognizes two syntaxes:
//
//	[[Target]]            wiki link
//	[[Target|alias]]      wiki link with display alias (alias dropped)
//	[label](Target.md)    markdown link to another note
//
// BareName reduces a target to the plain note name used for graph matching.
//
// # Immutability and patching
//
// A published tree is never mutated. ReplaceLeaf and RemoveLeaf return a new
// root that shares every untouched subtree with the old one; only the nodes
// on the path from the root to the changed leaf are copied.
//
//	root, err := notes.NewBuilder("Study", logger).Build("/data/notes/study")
//	leaf, err := builder.Leaf("/data/notes/study/go/channels.md")
//	patched, ok := notes.ReplaceLeaf(root, leaf)
package notes
