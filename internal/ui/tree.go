package ui

import (
	"fmt"
	"strings"
	"time"

	"github.com/notegraph/notegraph/internal/cache"
	"github.com/notegraph/notegraph/internal/history"
	"github.com/notegraph/notegraph/internal/notes"
)

// TreeOptions controls RenderTree.
type TreeOptions struct {
	// Links appends each note's link targets.
	Links bool
	// Dates appends each note's modification date.
	Dates bool
}

// RenderTree draws root and its descendants with box-drawing branches.
func RenderTree(root *notes.CategoryNode, opts TreeOptions) string {
	var b strings.Builder
	b.WriteString(directoryStyle.Render(root.Name))
	b.WriteByte('\n')
	renderChildren(&b, root.Children, "", opts)
	return b.String()
}

func renderChildren(b *strings.Builder, children []*notes.CategoryNode, prefix string, opts TreeOptions) {
	for i, child := range children {
		branch, indent := "├── ", "│   "
		if i == len(children)-1 {
			branch, indent = "└── ", "    "
		}

		b.WriteString(mutedStyle.Render(prefix + branch))
		if child.IsDirectory {
			b.WriteString(directoryStyle.Render(child.Name + "/"))
		} else {
			b.WriteString(noteStyle.Render(child.Name))
			if opts.Dates && child.LastModified != nil {
				b.WriteString(" " + mutedStyle.Render(child.LastModified.Format("2006.01.02")))
			}
			if opts.Links && len(child.Links) > 0 {
				b.WriteString(" " + accentStyle.Render("→ "+strings.Join(child.Links, ", ")))
			}
		}
		b.WriteByte('\n')

		if child.IsDirectory {
			renderChildren(b, child.Children, prefix+indent, opts)
		}
	}
}

// RenderCacheStats formats cache namespace statistics as an aligned table.
func RenderCacheStats(stats []cache.Stats) string {
	var b strings.Builder
	b.WriteString(headerStyle.Render(fmt.Sprintf("%-14s %8s %8s %8s %8s %9s", "namespace", "entries", "hits", "misses", "evicted", "hit rate")))
	b.WriteByte('\n')
	for _, s := range stats {
		fmt.Fprintf(&b, "%-14s %8s %8d %8d %8d %8.1f%%\n",
			s.Name, fmt.Sprintf("%d/%d", s.Len, s.Capacity), s.Hits, s.Misses, s.Evictions, s.HitRate()*100)
	}
	return b.String()
}

// RenderHistory formats sync runs, newest first, one per line.
func RenderHistory(runs []history.Run) string {
	var b strings.Builder
	b.WriteString(headerStyle.Render(fmt.Sprintf("%-19s %-7s %-7s %-12s %9s  %s", "at", "kind", "status", "head", "duration", "detail")))
	b.WriteByte('\n')
	for _, r := range runs {
		head := r.Head
		if len(head) > 12 {
			head = head[:12]
		}

		var detail string
		switch {
		case r.Status == history.StatusFailure:
			detail = errorStyle.Render(r.Error)
		case r.Kind == history.KindPatch:
			detail = fmt.Sprintf("%d updated, %d removed", r.Updated, r.Removed)
		default:
			detail = fmt.Sprintf("%d directories, %d notes", r.Directories, r.Notes)
		}

		status := okStyle.Render(fmt.Sprintf("%-7s", r.Status))
		if r.Status == history.StatusFailure {
			status = errorStyle.Render(fmt.Sprintf("%-7s", r.Status))
		}

		fmt.Fprintf(&b, "%-19s %-7s %s %-12s %9s  %s\n",
			r.At.Local().Format("2006-01-02 15:04:05"), r.Kind, status, head,
			r.Duration.Round(time.Millisecond), detail)
	}
	return b.String()
}
