// Package graph derives the note link graph from a category tree.
//
// Every note in the tree becomes a Node; every resolvable link between two
// distinct notes becomes a single undirected Link, no matter how many times
// or in which direction the notes reference each other.
package graph

import (
	"fmt"

	"github.com/notegraph/notegraph/internal/notes"
)

// DefaultWeight is the weight of every link.
const DefaultWeight = 1.0

// Node is a note in the graph.
type Node struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	EncodedPath string `json:"encodedPath"`
}

// Link is an undirected edge between two nodes.
type Link struct {
	Source string  `json:"source"`
	Target string  `json:"target"`
	Value  float64 `json:"value"`
}

// Graph is the node/link view of a category tree.
type Graph struct {
	Nodes []Node `json:"nodes"`
	Links []Link `json:"links"`
}

// Empty reports whether the graph has no nodes.
func (g *Graph) Empty() bool {
	return g == nil || len(g.Nodes) == 0
}

// Stats returns a one-line summary for logging.
func (g *Graph) Stats() string {
	if g == nil {
		return "0 nodes, 0 links"
	}
	return fmt.Sprintf("%d nodes, %d links", len(g.Nodes), len(g.Links))
}

// EncodeFunc turns a note path into an opaque identifier.
type EncodeFunc func(path string) string

// Build assembles the graph for root in two pre-order passes: the first
// assigns node ids and indexes them by path and display name, the second
// resolves each note's links against the name index.
//
// Names are matched on notes.BareName of the link target. When two notes
// share a display name, the one visited later wins the name. Targets that
// match no note and links from a note to itself are dropped.
func Build(root *notes.CategoryNode, encode EncodeFunc) *Graph {
	g := &Graph{Nodes: []Node{}, Links: []Link{}}
	if root == nil {
		return g
	}

	leaves := root.Notes()
	pathToID := make(map[string]string, len(leaves))
	nameToID := make(map[string]string, len(leaves))

	for _, leaf := range leaves {
		id := fmt.Sprintf("node-%d", len(g.Nodes))
		encoded := leaf.Path
		if encode != nil {
			encoded = encode(leaf.Path)
		}
		g.Nodes = append(g.Nodes, Node{ID: id, Name: leaf.Name, EncodedPath: encoded})
		pathToID[leaf.Path] = id
		nameToID[leaf.Name] = id
	}

	seen := make(map[edgeKey]struct{})
	for _, leaf := range leaves {
		source := pathToID[leaf.Path]
		for _, target := range leaf.Links {
			targetID, ok := nameToID[notes.BareName(target)]
			if !ok || targetID == source {
				continue
			}
			key := newEdgeKey(source, targetID)
			if _, dup := seen[key]; dup {
				continue
			}
			seen[key] = struct{}{}
			g.Links = append(g.Links, Link{Source: source, Target: targetID, Value: DefaultWeight})
		}
	}

	return g
}

// edgeKey identifies an unordered node pair.
type edgeKey struct{ a, b string }

func newEdgeKey(x, y string) edgeKey {
	if x > y {
		x, y = y, x
	}
	return edgeKey{a: x, b: y}
}
