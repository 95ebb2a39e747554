// Package parser converts document files into plain text suitable for
// structure extraction. Each parser keeps the line structure of the
// original: headings on their own lines, tables as pipe-delimited rows,
// paragraphs separated by blank lines.
package parser

import (
	"context"
	"fmt"
)

// Parser can parse a specific document format into plain text.
type Parser interface {
	Parse(ctx context.Context, path string) (string, error)
	SupportedFormats() []string
}

// Registry maps file formats to parsers.
type Registry struct {
	parsers map[string]Parser
}

// NewRegistry returns a registry with all built-in parsers registered.
func NewRegistry() *Registry {
	r := &Registry{parsers: make(map[string]Parser)}
	for _, p := range []Parser{
		&TextParser{},
		&MarkdownParser{},
		&HTMLParser{},
		&PDFParser{},
		&DOCXParser{},
		&XLSXParser{},
	} {
		for _, f := range p.SupportedFormats() {
			r.parsers[f] = p
		}
	}
	return r
}

// Get returns the parser registered for a format.
func (r *Registry) Get(format string) (Parser, error) {
	p, ok := r.parsers[format]
	if !ok {
		return nil, fmt.Errorf("no parser for format: %s", format)
	}
	return p, nil
}

// Register adds or replaces the parser for a format.
func (r *Registry) Register(format string, p Parser) {
	r.parsers[format] = p
}
