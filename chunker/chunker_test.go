package chunker

import (
	"fmt"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/avolkhin/normdoc/extract"
)

// ---------------------------------------------------------------------------
// Section-guided chunking tests
// ---------------------------------------------------------------------------

func TestChunkDocumentSectionContent(t *testing.T) {
	content := `1. ОБЩИЕ ПОЛОЖЕНИЯ
Текст первого раздела о требованиях к конструкциям.
2. НОРМАТИВНЫЕ ССЫЛКИ
Перечень нормативных документов и стандартов.
`
	sections := extract.Sections(content)
	if len(sections) != 2 {
		t.Fatalf("setup: got %d sections, want 2", len(sections))
	}

	c := New(Config{})
	chunks := c.ChunkDocument(content, sections)

	if len(chunks) != 2 {
		t.Fatalf("got %d chunks, want 2", len(chunks))
	}
	for i, ch := range chunks {
		if ch.Type != "section_content" {
			t.Errorf("chunks[%d].Type = %q, want %q", i, ch.Type, "section_content")
		}
		if ch.ID != fmt.Sprintf("chunk_%d", i+1) {
			t.Errorf("chunks[%d].ID = %q, want %q", i, ch.ID, fmt.Sprintf("chunk_%d", i+1))
		}
		if strings.TrimSpace(ch.Content) == "" {
			t.Errorf("chunks[%d] is empty", i)
		}
		if ch.PartNumber != 0 {
			t.Errorf("chunks[%d].PartNumber = %d, want 0", i, ch.PartNumber)
		}
	}
	if chunks[0].SectionNumber != "1" || chunks[1].SectionNumber != "2" {
		t.Errorf("section numbers = %q, %q, want 1, 2",
			chunks[0].SectionNumber, chunks[1].SectionNumber)
	}
	if chunks[0].SectionTitle != "ОБЩИЕ ПОЛОЖЕНИЯ" {
		t.Errorf("SectionTitle = %q, want %q", chunks[0].SectionTitle, "ОБЩИЕ ПОЛОЖЕНИЯ")
	}
}

func TestChunkDocumentSplitsLongSection(t *testing.T) {
	var sb strings.Builder
	sb.WriteString("1. ОБЩИЕ ПОЛОЖЕНИЯ\n")
	for i := 0; i < 8; i++ {
		sb.WriteString(strings.Repeat("слово текста раздела ", 12)) // ~250 runes
		sb.WriteString("\n\n")
	}
	content := sb.String()

	sections := extract.Sections(content)
	if len(sections) != 1 {
		t.Fatalf("setup: got %d sections, want 1", len(sections))
	}

	c := New(Config{SectionSplitThreshold: 1200, PartTarget: 800})
	chunks := c.ChunkDocument(content, sections)

	if len(chunks) < 2 {
		t.Fatalf("got %d chunks, want multiple parts for a long section", len(chunks))
	}
	for i, ch := range chunks {
		if ch.Type != "section_part" {
			t.Errorf("chunks[%d].Type = %q, want %q", i, ch.Type, "section_part")
		}
		if ch.PartNumber != i+1 {
			t.Errorf("chunks[%d].PartNumber = %d, want %d", i, ch.PartNumber, i+1)
		}
		if ch.SectionNumber != "1" {
			t.Errorf("chunks[%d].SectionNumber = %q, want %q", i, ch.SectionNumber, "1")
		}
		if strings.TrimSpace(ch.Content) == "" {
			t.Errorf("chunks[%d] is empty", i)
		}
	}
}

func TestChunkDocumentNoSectionsFallsBack(t *testing.T) {
	content := strings.Repeat("слово ", 400) // ~2400 runes
	c := New(Config{})

	chunks := c.ChunkDocument(content, nil)
	if len(chunks) == 0 {
		t.Fatal("expected size-based chunks")
	}
	for i, ch := range chunks {
		if ch.Type != "size_based" {
			t.Errorf("chunks[%d].Type = %q, want %q", i, ch.Type, "size_based")
		}
	}
}

// ---------------------------------------------------------------------------
// Size-window tests
// ---------------------------------------------------------------------------

func TestSizeChunksWindowCount(t *testing.T) {
	// 2004 runes, window 800, overlap 100: windows start at 0, 700,
	// 1400 — three chunks.
	content := strings.Repeat("слово ", 334)
	c := New(Config{})

	chunks := c.SizeChunks(content)
	if len(chunks) != 3 {
		t.Fatalf("got %d chunks, want 3", len(chunks))
	}

	// Byte positions increase and neighbouring windows overlap.
	for i := 1; i < len(chunks); i++ {
		if chunks[i].StartPos <= chunks[i-1].StartPos {
			t.Errorf("chunks[%d].StartPos = %d, want > %d",
				i, chunks[i].StartPos, chunks[i-1].StartPos)
		}
		if chunks[i].StartPos >= chunks[i-1].EndPos {
			t.Errorf("chunks[%d] does not overlap its predecessor", i)
		}
	}

	for i, ch := range chunks {
		if n := utf8.RuneCountInString(ch.Content); n > 800 {
			t.Errorf("chunks[%d] has %d runes, want <= 800", i, n)
		}
	}
}

func TestSizeChunksDropsShortTail(t *testing.T) {
	// Window 100, overlap 20, min 50: a 110-rune text leaves a 30-rune
	// tail window that is dropped.
	content := strings.Repeat("ао", 55)
	c := New(Config{WindowSize: 100, WindowOverlap: 20, MinChunkChars: 50})

	chunks := c.SizeChunks(content)
	if len(chunks) != 1 {
		t.Fatalf("got %d chunks, want 1", len(chunks))
	}
}

func TestSizeChunksShortInput(t *testing.T) {
	c := New(Config{})
	if chunks := c.SizeChunks("короткий текст"); len(chunks) != 0 {
		t.Errorf("got %d chunks, want 0 below MinChunkChars", len(chunks))
	}
}

func TestSizeChunksBytePositions(t *testing.T) {
	// Cyrillic text: rune windows, byte positions.
	content := strings.Repeat("текст и слова ", 80) // 1120 runes, 2 bytes per letter
	c := New(Config{})

	chunks := c.SizeChunks(content)
	if len(chunks) == 0 {
		t.Fatal("expected chunks")
	}
	for i, ch := range chunks {
		if ch.StartPos < 0 || ch.EndPos > len(content) {
			t.Errorf("chunks[%d] span [%d, %d) out of bounds", i, ch.StartPos, ch.EndPos)
		}
		if !utf8.ValidString(content[ch.StartPos:ch.EndPos]) {
			t.Errorf("chunks[%d] span splits a rune", i)
		}
	}
}

// ---------------------------------------------------------------------------
// Basic chunk tests
// ---------------------------------------------------------------------------

func TestBasicChunk(t *testing.T) {
	c := New(Config{})
	chunks := c.BasicChunk("  короткий документ целиком  ")

	if len(chunks) != 1 {
		t.Fatalf("got %d chunks, want 1", len(chunks))
	}
	if chunks[0].Type != "basic" {
		t.Errorf("Type = %q, want %q", chunks[0].Type, "basic")
	}
	if chunks[0].Content != "короткий документ целиком" {
		t.Errorf("Content = %q, want trimmed text", chunks[0].Content)
	}
	if chunks[0].ID != "chunk_1" {
		t.Errorf("ID = %q, want %q", chunks[0].ID, "chunk_1")
	}
}

func TestBasicChunkBlank(t *testing.T) {
	c := New(Config{})
	if chunks := c.BasicChunk("   \n\t  "); chunks != nil {
		t.Errorf("got %v, want nil for blank input", chunks)
	}
}

// ---------------------------------------------------------------------------
// Enrichment tests
// ---------------------------------------------------------------------------

func TestEnrich(t *testing.T) {
	ch := Chunk{Content: "Бетон по ГОСТ 26633 прочностью 25 МПа.\n- первый пункт\n- второй пункт"}
	Enrich(&ch)

	if ch.WordCount != 13 {
		t.Errorf("WordCount = %d, want 13", ch.WordCount)
	}
	if ch.CharCount != utf8.RuneCountInString(ch.Content) {
		t.Errorf("CharCount = %d, want %d", ch.CharCount, utf8.RuneCountInString(ch.Content))
	}
	if !ch.HasLists {
		t.Error("HasLists should be true for bulleted lines")
	}
	if ch.TechnicalTerms < 2 {
		t.Errorf("TechnicalTerms = %d, want >= 2 (ГОСТ, МПа)", ch.TechnicalTerms)
	}
	if ch.QualityScore <= 0 || ch.QualityScore > 1 {
		t.Errorf("QualityScore = %f, want in (0, 1]", ch.QualityScore)
	}
}

func TestEnrichTableDetection(t *testing.T) {
	ch := Chunk{Content: "Таблица 1\n| а | б |"}
	Enrich(&ch)
	if !ch.HasTables {
		t.Error("HasTables should be true")
	}

	plain := Chunk{Content: "обычный текст абзаца"}
	Enrich(&plain)
	if plain.HasTables {
		t.Error("HasTables should be false for plain text")
	}
	if plain.HasLists {
		t.Error("HasLists should be false for plain text")
	}
}

// ---------------------------------------------------------------------------
// Config defaults tests
// ---------------------------------------------------------------------------

func TestNewDefaults(t *testing.T) {
	c := New(Config{})
	if c.cfg.SectionSplitThreshold != 1200 {
		t.Errorf("SectionSplitThreshold = %d, want 1200", c.cfg.SectionSplitThreshold)
	}
	if c.cfg.PartTarget != 800 {
		t.Errorf("PartTarget = %d, want 800", c.cfg.PartTarget)
	}
	if c.cfg.WindowSize != 800 {
		t.Errorf("WindowSize = %d, want 800", c.cfg.WindowSize)
	}
	if c.cfg.WindowOverlap != 100 {
		t.Errorf("WindowOverlap = %d, want 100", c.cfg.WindowOverlap)
	}
	if c.cfg.MinChunkChars != 100 {
		t.Errorf("MinChunkChars = %d, want 100", c.cfg.MinChunkChars)
	}
}

func TestNewCustomConfig(t *testing.T) {
	c := New(Config{SectionSplitThreshold: 2000, PartTarget: 500})
	if c.cfg.SectionSplitThreshold != 2000 {
		t.Errorf("SectionSplitThreshold = %d, want 2000", c.cfg.SectionSplitThreshold)
	}
	if c.cfg.PartTarget != 500 {
		t.Errorf("PartTarget = %d, want 500", c.cfg.PartTarget)
	}
}

// ---------------------------------------------------------------------------
// Span slicing tests
// ---------------------------------------------------------------------------

func TestSliceSpan(t *testing.T) {
	content := "0123456789"
	tests := []struct {
		start, end int
		want       string
	}{
		{0, 4, "0123"},
		{-5, 3, "012"},
		{8, 100, "89"},
		{5, 5, ""},
		{7, 3, ""},
	}

	for _, tt := range tests {
		if got := sliceSpan(content, tt.start, tt.end); got != tt.want {
			t.Errorf("sliceSpan(%d, %d) = %q, want %q", tt.start, tt.end, got, tt.want)
		}
	}
}
