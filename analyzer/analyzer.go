// Package analyzer is the intelligent structure analyzer: the preferred
// processing path for documents with a detectable section hierarchy.
// Compared to the deterministic chunker fallback it keeps tables atomic
// inside chunks, splits oversized sections at sentence boundaries, and
// carries overlap between consecutive parts so retrieval context
// survives the cut.
//
// The analyzer refuses documents without structure: Analyze returns an
// error and the caller falls back to the plain pipeline. It never
// handles that fallback itself.
package analyzer

import (
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/avolkhin/normdoc/chunker"
	"github.com/avolkhin/normdoc/extract"
)

// ErrNoStructure is returned when a document yields no section
// hierarchy and intelligent chunking has nothing to work with.
var ErrNoStructure = errors.New("analyzer: no section structure detected")

// Config controls intelligent chunk sizing. Zero-value fields get
// defaults.
type Config struct {
	MaxSectionChars int // sections longer than this are split into parts
	TargetChars     int // target size for split parts
	OverlapChars    int // trailing overlap carried into the next part
	MinChunkChars   int // parts shorter than this are merged forward
}

// Result is the full structural analysis of one document.
type Result struct {
	Sections []extract.Section
	Chunks   []chunker.Chunk
	Tables   []extract.Table
	Lists    []extract.List
}

// Analyzer performs hierarchy-aware document analysis.
type Analyzer struct {
	cfg Config
}

// New validates the configuration and returns an Analyzer. Overlap must
// stay below the part target or splitting cannot make progress.
func New(cfg Config) (*Analyzer, error) {
	if cfg.MaxSectionChars == 0 {
		cfg.MaxSectionChars = 1200
	}
	if cfg.TargetChars == 0 {
		cfg.TargetChars = 800
	}
	if cfg.OverlapChars == 0 {
		cfg.OverlapChars = 100
	}
	if cfg.MinChunkChars == 0 {
		cfg.MinChunkChars = 100
	}
	if cfg.OverlapChars >= cfg.TargetChars {
		return nil, fmt.Errorf("analyzer: overlap %d must be smaller than target %d", cfg.OverlapChars, cfg.TargetChars)
	}
	if cfg.TargetChars > cfg.MaxSectionChars {
		return nil, fmt.Errorf("analyzer: target %d must not exceed max section size %d", cfg.TargetChars, cfg.MaxSectionChars)
	}
	return &Analyzer{cfg: cfg}, nil
}

// Analyze extracts the full structure of a document and produces
// hierarchy-aligned chunks. Documents without sections are rejected
// with ErrNoStructure.
func (a *Analyzer) Analyze(content string) (*Result, error) {
	sections := extract.Sections(content)
	if len(sections) == 0 {
		return nil, ErrNoStructure
	}

	var chunks []chunker.Chunk
	for _, sec := range sections {
		start, end := sec.StartPos, sec.EndPos
		if start < 0 {
			start = 0
		}
		if end > len(content) {
			end = len(content)
		}
		if start >= end {
			continue
		}
		chunks = a.chunkSection(chunks, content[start:end], sec)
	}
	if len(chunks) == 0 {
		return nil, ErrNoStructure
	}

	return &Result{
		Sections: sections,
		Chunks:   chunks,
		Tables:   extract.Tables(content),
		Lists:    extract.Lists(content),
	}, nil
}

// chunkSection emits one section_content chunk for a small section, or
// a series of overlapping section_part chunks for a large one. Table
// blocks inside the span are never split across parts.
func (a *Analyzer) chunkSection(chunks []chunker.Chunk, span string, sec extract.Section) []chunker.Chunk {
	if strings.TrimSpace(span) == "" {
		return chunks
	}
	if utf8.RuneCountInString(span) <= a.cfg.MaxSectionChars {
		return appendSectionChunk(chunks, strings.TrimSpace(span), "section_content", sec, 0)
	}

	part := 0
	for _, text := range a.splitSpan(span) {
		part++
		chunks = appendSectionChunk(chunks, text, "section_part", sec, part)
	}
	return chunks
}

func appendSectionChunk(chunks []chunker.Chunk, text, chunkType string, sec extract.Section, part int) []chunker.Chunk {
	ch := chunker.Chunk{
		ID:             fmt.Sprintf("chunk_%d", len(chunks)+1),
		Content:        text,
		Type:           chunkType,
		SourceElements: []string{sec.ID},
		SectionNumber:  sec.Number,
		SectionTitle:   sec.Title,
		SectionLevel:   sec.Level,
		PartNumber:     part,
	}
	chunker.Enrich(&ch)
	return append(chunks, ch)
}

// splitSpan breaks a long section span into part texts. Table blocks
// become atomic parts; prose between them accumulates at paragraph
// granularity, splitting at sentence boundaries when a single paragraph
// is itself oversized, with OverlapChars of trailing text carried into
// the following part.
func (a *Analyzer) splitSpan(span string) []string {
	var parts []string
	for _, fragment := range preserveTableBlocks(span) {
		if isTableBlock(fragment) {
			parts = append(parts, fragment)
			continue
		}
		parts = append(parts, a.splitProse(fragment)...)
	}
	return mergeShortParts(parts, a.cfg.MinChunkChars)
}

// splitProse accumulates paragraphs greedily up to TargetChars,
// carrying overlap between flushes. A paragraph bigger than the target
// is split at sentence boundaries.
func (a *Analyzer) splitProse(text string) []string {
	if utf8.RuneCountInString(text) <= a.cfg.TargetChars {
		trimmed := strings.TrimSpace(text)
		if trimmed == "" {
			return nil
		}
		return []string{trimmed}
	}

	var parts []string
	var buf strings.Builder
	bufLen := 0
	overlap := ""

	flush := func() {
		text := strings.TrimSpace(buf.String())
		buf.Reset()
		bufLen = 0
		if text == "" {
			return
		}
		parts = append(parts, text)
		overlap = trailingChars(text, a.cfg.OverlapChars)
	}

	write := func(s string) {
		if buf.Len() > 0 {
			buf.WriteString("\n\n")
		}
		buf.WriteString(s)
		bufLen += utf8.RuneCountInString(s)
	}

	for _, para := range splitParagraphs(text) {
		paraLen := utf8.RuneCountInString(para)

		if paraLen > a.cfg.TargetChars {
			flush()
			parts = append(parts, a.splitSentences(para, overlap)...)
			if len(parts) > 0 {
				overlap = trailingChars(parts[len(parts)-1], a.cfg.OverlapChars)
			}
			continue
		}

		if bufLen > 0 && bufLen+paraLen > a.cfg.TargetChars {
			flush()
			if overlap != "" {
				write(overlap)
			}
		}
		write(para)
	}
	flush()
	return parts
}

// splitSentences cuts an oversized paragraph at sentence boundaries,
// prepending the overlap inherited from the previous part.
func (a *Analyzer) splitSentences(text, initialOverlap string) []string {
	var parts []string
	var buf strings.Builder
	bufLen := 0

	if initialOverlap != "" {
		buf.WriteString(initialOverlap)
		bufLen = utf8.RuneCountInString(initialOverlap)
	}

	for _, sent := range sentences(text) {
		sentLen := utf8.RuneCountInString(sent)
		if bufLen > 0 && bufLen+sentLen > a.cfg.TargetChars {
			part := strings.TrimSpace(buf.String())
			if part != "" {
				parts = append(parts, part)
			}
			buf.Reset()
			bufLen = 0
			if ov := trailingChars(part, a.cfg.OverlapChars); ov != "" {
				buf.WriteString(ov)
				bufLen = utf8.RuneCountInString(ov)
			}
		}
		if buf.Len() > 0 {
			buf.WriteString(" ")
			bufLen++
		}
		buf.WriteString(sent)
		bufLen += sentLen
	}

	if part := strings.TrimSpace(buf.String()); part != "" {
		parts = append(parts, part)
	}
	return parts
}

// mergeShortParts folds undersized parts into their successor so no
// part ends up below the minimum, except possibly the last one.
func mergeShortParts(parts []string, minChars int) []string {
	if len(parts) <= 1 {
		return parts
	}
	var merged []string
	carry := ""
	for _, p := range parts {
		if carry != "" {
			p = carry + "\n\n" + p
			carry = ""
		}
		if utf8.RuneCountInString(p) < minChars {
			carry = p
			continue
		}
		merged = append(merged, p)
	}
	if carry != "" {
		if len(merged) > 0 {
			merged[len(merged)-1] += "\n\n" + carry
		} else {
			merged = append(merged, carry)
		}
	}
	return merged
}
