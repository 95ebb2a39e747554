// Package chunker converts construction-norm document text into
// bounded-size, quality-scored chunks suitable for embedding and
// retrieval. Section-guided chunking keeps chunk boundaries aligned
// with the document hierarchy; when no sections were detected it falls
// back to a fixed sliding window.
package chunker

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/avolkhin/normdoc/extract"
)

// Chunk is the atomic unit indexed for retrieval: a span of document
// text plus structural and quality metadata. Positions are byte offsets
// into the original text; CharCount and all size thresholds are
// measured in characters.
type Chunk struct {
	ID             string   `json:"id"`
	Content        string   `json:"content"`
	Type           string   `json:"type"` // "section_content", "section_part", "size_based", "basic"
	SourceElements []string `json:"source_elements"`
	SectionNumber  string   `json:"section_number,omitempty"`
	SectionTitle   string   `json:"section_title,omitempty"`
	SectionLevel   int      `json:"section_level,omitempty"`
	PartNumber     int      `json:"part_number,omitempty"`
	StartPos       int      `json:"start_position,omitempty"`
	EndPos         int      `json:"end_position,omitempty"`
	QualityScore   float64  `json:"quality_score"`
	WordCount      int      `json:"word_count"`
	CharCount      int      `json:"char_count"`
	HasTables      bool     `json:"has_tables"`
	HasLists       bool     `json:"has_lists"`
	TechnicalTerms int      `json:"technical_terms"`
}

// Config controls chunk sizing. Zero-value fields get defaults.
type Config struct {
	SectionSplitThreshold int // sections longer than this are split into parts
	PartTarget            int // target size for section parts
	WindowSize            int // sliding window size when no sections exist
	WindowOverlap         int // overlap between adjacent windows
	MinChunkChars         int // windows shorter than this after trimming are dropped
}

// Chunker produces chunks from document text.
type Chunker struct {
	cfg Config
}

// New returns a Chunker with defaults applied to zero-value fields.
func New(cfg Config) *Chunker {
	if cfg.SectionSplitThreshold == 0 {
		cfg.SectionSplitThreshold = 1200
	}
	if cfg.PartTarget == 0 {
		cfg.PartTarget = 800
	}
	if cfg.WindowSize == 0 {
		cfg.WindowSize = 800
	}
	if cfg.WindowOverlap == 0 {
		cfg.WindowOverlap = 100
	}
	if cfg.MinChunkChars == 0 {
		cfg.MinChunkChars = 100
	}
	return &Chunker{cfg: cfg}
}

// ChunkDocument converts a document into ordered chunks. With sections
// present, each section span becomes one section_content chunk, or a
// series of section_part chunks when the span exceeds the split
// threshold. Without sections the text is cut into overlapping
// size_based windows. Chunk order always follows document order and no
// chunk is empty after trimming.
func (c *Chunker) ChunkDocument(content string, sections []extract.Section) []Chunk {
	if len(sections) == 0 {
		return c.SizeChunks(content)
	}

	var chunks []Chunk
	for _, sec := range sections {
		span := sliceSpan(content, sec.StartPos, sec.EndPos)
		if strings.TrimSpace(span) == "" {
			continue
		}
		if utf8.RuneCountInString(span) <= c.cfg.SectionSplitThreshold {
			chunks = appendChunk(chunks, Chunk{
				Content:        strings.TrimSpace(span),
				Type:           "section_content",
				SourceElements: []string{sec.ID},
				SectionNumber:  sec.Number,
				SectionTitle:   sec.Title,
				SectionLevel:   sec.Level,
			})
			continue
		}
		chunks = c.splitSection(chunks, span, sec)
	}
	return chunks
}

// splitSection breaks an oversized section span into section_part
// chunks at paragraph boundaries: paragraphs accumulate greedily and
// the buffer is flushed whenever the next paragraph would push it past
// the part target.
func (c *Chunker) splitSection(chunks []Chunk, span string, sec extract.Section) []Chunk {
	part := 0
	var buf []string
	bufLen := 0

	flush := func() {
		text := strings.TrimSpace(strings.Join(buf, "\n\n"))
		buf = buf[:0]
		bufLen = 0
		if text == "" {
			return
		}
		part++
		chunks = appendChunk(chunks, Chunk{
			Content:        text,
			Type:           "section_part",
			SourceElements: []string{sec.ID},
			SectionNumber:  sec.Number,
			SectionTitle:   sec.Title,
			SectionLevel:   sec.Level,
			PartNumber:     part,
		})
	}

	for _, para := range strings.Split(span, "\n\n") {
		para = strings.TrimSpace(para)
		if para == "" {
			continue
		}
		paraLen := utf8.RuneCountInString(para)
		if bufLen > 0 && bufLen+paraLen > c.cfg.PartTarget {
			flush()
		}
		buf = append(buf, para)
		bufLen += paraLen
	}
	flush()
	return chunks
}

// SizeChunks cuts content into fixed sliding windows of WindowSize
// characters with WindowOverlap characters shared between neighbours.
// Windows shorter than MinChunkChars after trimming are dropped.
func (c *Chunker) SizeChunks(content string) []Chunk {
	runes := []rune(content)
	step := c.cfg.WindowSize - c.cfg.WindowOverlap
	if step <= 0 {
		step = c.cfg.WindowSize
	}

	// Byte offset of every rune, so window positions stay byte offsets
	// like section positions.
	offsets := make([]int, len(runes)+1)
	pos := 0
	for i, r := range runes {
		offsets[i] = pos
		pos += utf8.RuneLen(r)
	}
	offsets[len(runes)] = pos

	var chunks []Chunk
	for start := 0; start < len(runes); start += step {
		end := start + c.cfg.WindowSize
		if end > len(runes) {
			end = len(runes)
		}
		window := strings.TrimSpace(string(runes[start:end]))
		if utf8.RuneCountInString(window) >= c.cfg.MinChunkChars {
			chunks = appendChunk(chunks, Chunk{
				Content:        window,
				Type:           "size_based",
				SourceElements: []string{"document"},
				StartPos:       offsets[start],
				EndPos:         offsets[end],
			})
		}
		if end == len(runes) {
			break
		}
	}
	return chunks
}

// BasicChunk wraps an entire short document in a single chunk. Used as
// the last resort when the window pass produced nothing but the text is
// not blank.
func (c *Chunker) BasicChunk(content string) []Chunk {
	text := strings.TrimSpace(content)
	if text == "" {
		return nil
	}
	return appendChunk(nil, Chunk{
		Content:        text,
		Type:           "basic",
		SourceElements: []string{"document"},
		StartPos:       0,
		EndPos:         len(content),
	})
}

// appendChunk assigns the sequential ID, fills the derived per-chunk
// fields, and appends.
func appendChunk(chunks []Chunk, ch Chunk) []Chunk {
	ch.ID = fmt.Sprintf("chunk_%d", len(chunks)+1)
	Enrich(&ch)
	return append(chunks, ch)
}

// ---------------------------------------------------------------------------
// Derived chunk fields
// ---------------------------------------------------------------------------

// technicalTermPattern counts standard and unit tokens that mark
// technically dense regulatory text.
var technicalTermPattern = regexp.MustCompile(`ГОСТ|СП|СНиП|МПа|кг|м²|°C`)

// bulletLinePattern marks a chunk as list-bearing.
var bulletLinePattern = regexp.MustCompile(`(?m)^\s*[-•*]\s+`)

// Enrich fills the fields derived from a chunk's content: word and
// character counts, structural flags, technical-term count, and the
// quality score.
func Enrich(ch *Chunk) {
	ch.WordCount = len(strings.Fields(ch.Content))
	ch.CharCount = utf8.RuneCountInString(ch.Content)
	ch.HasTables = strings.Contains(ch.Content, "|") || strings.Contains(ch.Content, "Таблица")
	ch.HasLists = bulletLinePattern.MatchString(ch.Content)
	ch.TechnicalTerms = len(technicalTermPattern.FindAllString(ch.Content, -1))
	ch.QualityScore = ChunkQuality(ch.Content)
}

// sliceSpan clamps a [start, end) byte span to the content bounds.
func sliceSpan(content string, start, end int) string {
	if start < 0 {
		start = 0
	}
	if end > len(content) {
		end = len(content)
	}
	if start >= end {
		return ""
	}
	return content[start:end]
}
