package notes

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExtractLinks(t *testing.T) {
	tests := []struct {
		name string
		text string
		want []string
	}{
		{
			name: "alias dropped and extension stripped",
			text: "[[Foo|bar]] and [baz](Foo.md)",
			want: []string{"Foo", "Foo"},
		},
		{
			name: "order of appearance with duplicates",
			text: "see [[B]], then [[A]], then [[B]] again",
			want: []string{"B", "A", "B"},
		},
		{
			name: "header and block suffixes kept",
			text: "[[Go#Channels]] [[Go^x1y2]] [intro](Go.md#setup)",
			want: []string{"Go#Channels", "Go^x1y2", "Go#setup"},
		},
		{
			name: "nested path in markdown link",
			text: "[chan](lang/Go%20Channels.md)",
			want: []string{"lang/Go%20Channels"},
		},
		{
			name: "non-note markdown links ignored",
			text: "[site](https://example.com) ![img](a.png) [pdf](doc.pdf)",
			want: []string{},
		},
		{
			name: "malformed syntax yields fewer links",
			text: "[[unterminated and [label](missing-paren.md and [[ ]] [[Ok]]",
			want: []string{"Ok"},
		},
		{
			name: "whitespace trimmed",
			text: "[[  Spaced Note  | alias ]]",
			want: []string{"Spaced Note"},
		},
		{
			name: "empty text",
			text: "",
			want: []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ExtractLinks(tt.text))
		})
	}
}

func TestBareName(t *testing.T) {
	tests := []struct {
		target string
		want   string
	}{
		{"Foo", "Foo"},
		{"Foo.md", "Foo"},
		{"Foo#Header", "Foo"},
		{"Foo^block", "Foo"},
		{"lang/Go%20Channels", "Go Channels"},
		{`lang\Deep`, "Deep"},
		{"#OnlyHeader", ""},
		{"  ", ""},
	}

	for _, tt := range tests {
		t.Run(tt.target, func(t *testing.T) {
			assert.Equal(t, tt.want, BareName(tt.target))
		})
	}
}

func TestDisplayName(t *testing.T) {
	tests := []struct {
		raw   string
		isDir bool
		want  string
	}{
		{"1. Basics", true, "Basics"},
		{"02.Advanced", true, "Advanced"},
		{"3. Goroutines.md", false, "Goroutines"},
		{"notes.md", false, "notes"},
		{"v1.2 release.md", false, "v1.2 release"},
		{"folder.md", true, "folder.md"},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			assert.Equal(t, tt.want, DisplayName(tt.raw, tt.isDir))
		})
	}
}

func TestHasHiddenElement(t *testing.T) {
	assert.True(t, HasHiddenElement(".obsidian/workspace.md"))
	assert.True(t, HasHiddenElement("go/.drafts/a.md"))
	assert.False(t, HasHiddenElement("go/channels.md"))
	assert.False(t, HasHiddenElement("../study/a.md"))
}
