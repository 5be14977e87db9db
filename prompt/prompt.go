// Package prompt builds the user-turn prompts handed to reasoning providers.
package prompt

import (
	"fmt"
	"strings"
)

// Builder assembles a prompt from labeled parts. The zero value is usable.
type Builder struct {
	parts []string
}

// NewBuilder creates an empty prompt builder.
func NewBuilder() *Builder {
	return &Builder{}
}

// Add appends raw text.
func (b *Builder) Add(part string) *Builder {
	b.parts = append(b.parts, part)
	return b
}

// AddFormat appends formatted text.
func (b *Builder) AddFormat(format string, args ...any) *Builder {
	b.parts = append(b.parts, fmt.Sprintf(format, args...))
	return b
}

// AddLine appends text followed by a newline.
func (b *Builder) AddLine(part string) *Builder {
	b.parts = append(b.parts, part+"\n")
	return b
}

// AddLabeled appends a "Label: value" line. Empty values are skipped so
// optional fields never leave dangling labels in the prompt.
func (b *Builder) AddLabeled(label, value string) *Builder {
	if strings.TrimSpace(value) == "" {
		return b
	}
	b.parts = append(b.parts, fmt.Sprintf("%s: %s\n", label, value))
	return b
}

// AddNumbered appends a header line followed by a numbered list, or the
// fallback line when the list is empty.
func (b *Builder) AddNumbered(header string, items []string, emptyNote string) *Builder {
	if len(items) == 0 {
		b.parts = append(b.parts, header+": "+emptyNote+"\n")
		return b
	}
	b.parts = append(b.parts, header+":\n")
	for i, item := range items {
		b.parts = append(b.parts, fmt.Sprintf("[%d] %s\n", i+1, item))
	}
	return b
}

// Build returns the assembled prompt.
func (b *Builder) Build() string {
	return strings.Join(b.parts, "")
}

// Reset clears all parts.
func (b *Builder) Reset() *Builder {
	b.parts = b.parts[:0]
	return b
}
