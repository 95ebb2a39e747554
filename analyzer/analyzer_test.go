package analyzer

import (
	"errors"
	"fmt"
	"strings"
	"testing"
	"unicode/utf8"
)

// ---------------------------------------------------------------------------
// Configuration tests
// ---------------------------------------------------------------------------

func TestNewDefaults(t *testing.T) {
	a, err := New(Config{})
	if err != nil {
		t.Fatalf("New(Config{}) error: %v", err)
	}
	if a.cfg.MaxSectionChars != 1200 {
		t.Errorf("MaxSectionChars = %d, want 1200", a.cfg.MaxSectionChars)
	}
	if a.cfg.TargetChars != 800 {
		t.Errorf("TargetChars = %d, want 800", a.cfg.TargetChars)
	}
	if a.cfg.OverlapChars != 100 {
		t.Errorf("OverlapChars = %d, want 100", a.cfg.OverlapChars)
	}
	if a.cfg.MinChunkChars != 100 {
		t.Errorf("MinChunkChars = %d, want 100", a.cfg.MinChunkChars)
	}
}

func TestNewRejectsInvalidConfig(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config
	}{
		{"overlap_equals_target", Config{TargetChars: 200, OverlapChars: 200}},
		{"overlap_above_target", Config{TargetChars: 200, OverlapChars: 300}},
		{"target_above_max", Config{MaxSectionChars: 500, TargetChars: 800, OverlapChars: 100}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := New(tt.cfg); err == nil {
				t.Error("expected a config error")
			}
		})
	}
}

// ---------------------------------------------------------------------------
// Analyze tests
// ---------------------------------------------------------------------------

func TestAnalyzeRejectsUnstructured(t *testing.T) {
	a, _ := New(Config{})

	inputs := []string{
		"",
		"Обычный текст без какой-либо структуры разделов.",
		strings.Repeat("слово ", 500),
	}
	for _, in := range inputs {
		_, err := a.Analyze(in)
		if !errors.Is(err, ErrNoStructure) {
			t.Errorf("Analyze(%.30q) error = %v, want ErrNoStructure", in, err)
		}
	}
}

func TestAnalyzeStructuredDocument(t *testing.T) {
	content := `1. ОБЩИЕ ПОЛОЖЕНИЯ
Текст первого раздела о требованиях.
2. НОРМАТИВНЫЕ ССЫЛКИ
Перечень нормативных документов.
`
	a, _ := New(Config{})
	result, err := a.Analyze(content)
	if err != nil {
		t.Fatalf("Analyze error: %v", err)
	}

	if len(result.Sections) != 2 {
		t.Errorf("got %d sections, want 2", len(result.Sections))
	}
	if len(result.Chunks) != 2 {
		t.Fatalf("got %d chunks, want 2", len(result.Chunks))
	}
	for i, ch := range result.Chunks {
		if ch.Type != "section_content" {
			t.Errorf("chunks[%d].Type = %q, want %q", i, ch.Type, "section_content")
		}
		if ch.ID != fmt.Sprintf("chunk_%d", i+1) {
			t.Errorf("chunks[%d].ID = %q, want %q", i, ch.ID, fmt.Sprintf("chunk_%d", i+1))
		}
		if ch.QualityScore <= 0 {
			t.Errorf("chunks[%d].QualityScore = %f, want > 0", i, ch.QualityScore)
		}
	}
}

func TestAnalyzeSplitsLongSectionWithOverlap(t *testing.T) {
	var sb strings.Builder
	sb.WriteString("1. ОБЩИЕ ПОЛОЖЕНИЯ\n")
	for i := 0; i < 10; i++ {
		fmt.Fprintf(&sb, "Абзац номер %d содержит требования к бетонным конструкциям и правила контроля качества при производстве строительных работ на объекте. ", i)
		sb.WriteString(strings.Repeat("Дополнительное предложение о правилах монтажа. ", 4))
		sb.WriteString("\n\n")
	}
	content := sb.String()

	a, _ := New(Config{})
	result, err := a.Analyze(content)
	if err != nil {
		t.Fatalf("Analyze error: %v", err)
	}

	if len(result.Chunks) < 2 {
		t.Fatalf("got %d chunks, want multiple parts", len(result.Chunks))
	}
	for i, ch := range result.Chunks {
		if ch.Type != "section_part" {
			t.Errorf("chunks[%d].Type = %q, want %q", i, ch.Type, "section_part")
		}
		if ch.PartNumber != i+1 {
			t.Errorf("chunks[%d].PartNumber = %d, want %d", i, ch.PartNumber, i+1)
		}
	}

	// Consecutive parts share overlap text: the head of each part after
	// the first repeats the tail of its predecessor.
	for i := 1; i < len(result.Chunks); i++ {
		prev := result.Chunks[i-1].Content
		tail := trailingChars(prev, 40)
		if tail == "" {
			continue
		}
		if !strings.Contains(result.Chunks[i].Content, firstWords(tail, 2)) {
			t.Errorf("chunks[%d] does not carry overlap from its predecessor", i)
		}
	}
}

func TestAnalyzeKeepsTablesAtomic(t *testing.T) {
	var sb strings.Builder
	sb.WriteString("1. ОБЩИЕ ПОЛОЖЕНИЯ\n")
	sb.WriteString(strings.Repeat("Текст до таблицы с требованиями к материалам. ", 20))
	sb.WriteString("\nТаблица 1 - Прочности\n| Класс | Прочность |\n| В15 | 11 |\n| В25 | 18,5 |\n")
	sb.WriteString(strings.Repeat("Текст после таблицы о правилах приёмки работ. ", 20))
	content := sb.String()

	a, _ := New(Config{})
	result, err := a.Analyze(content)
	if err != nil {
		t.Fatalf("Analyze error: %v", err)
	}

	// The table rows stay together in exactly one chunk.
	withTable := 0
	for _, ch := range result.Chunks {
		if strings.Contains(ch.Content, "| В15 | 11 |") {
			withTable++
			if !strings.Contains(ch.Content, "| В25 | 18,5 |") {
				t.Error("table rows were split across chunks")
			}
		}
	}
	if withTable != 1 {
		t.Errorf("table body appears in %d chunks, want 1", withTable)
	}

	if len(result.Tables) == 0 {
		t.Error("expected the table in the extraction result")
	}
}

func TestAnalyzeChunkSizesBounded(t *testing.T) {
	var sb strings.Builder
	sb.WriteString("1. ОБЩИЕ ПОЛОЖЕНИЯ\n")
	for i := 0; i < 30; i++ {
		sb.WriteString("Предложение о требованиях к конструкции номер раз. ")
	}
	content := sb.String()

	a, _ := New(Config{})
	result, err := a.Analyze(content)
	if err != nil {
		t.Fatalf("Analyze error: %v", err)
	}

	// Parts from sentence splitting stay near the target: never more
	// than target plus one sentence plus overlap.
	for i, ch := range result.Chunks {
		if n := utf8.RuneCountInString(ch.Content); n > 1200 {
			t.Errorf("chunks[%d] has %d runes, want bounded by max section size", i, n)
		}
	}
}

// ---------------------------------------------------------------------------
// Helper tests
// ---------------------------------------------------------------------------

func TestPreserveTableBlocks(t *testing.T) {
	span := "Прозаический текст до.\n| а | б |\n| 1 | 2 |\nПроза после таблицы."
	fragments := preserveTableBlocks(span)

	if len(fragments) != 3 {
		t.Fatalf("got %d fragments, want 3: %q", len(fragments), fragments)
	}
	if isTableBlock(fragments[0]) {
		t.Error("fragments[0] should be prose")
	}
	if !isTableBlock(fragments[1]) {
		t.Error("fragments[1] should be a table block")
	}
	if isTableBlock(fragments[2]) {
		t.Error("fragments[2] should be prose")
	}
}

func TestPreserveTableBlocksNoTable(t *testing.T) {
	span := "Только проза.\nБез таблиц вовсе."
	fragments := preserveTableBlocks(span)
	if len(fragments) != 1 {
		t.Fatalf("got %d fragments, want 1", len(fragments))
	}
	if fragments[0] != span {
		t.Errorf("fragment = %q, want the original span", fragments[0])
	}
}

func TestSentences(t *testing.T) {
	text := "Первое предложение. Второе предложение! Третье предложение? Четвёртое"
	got := sentences(text)
	want := []string{
		"Первое предложение.",
		"Второе предложение!",
		"Третье предложение?",
		"Четвёртое",
	}
	if len(got) != len(want) {
		t.Fatalf("got %d sentences %q, want %d", len(got), got, len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("sentences[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestTrailingChars(t *testing.T) {
	text := "первое слово второе слово третье слово"

	got := trailingChars(text, 12)
	if got != "третье слово" {
		t.Errorf("trailingChars = %q, want %q", got, "третье слово")
	}

	// Shorter text comes back whole.
	if got := trailingChars("короткий", 100); got != "короткий" {
		t.Errorf("trailingChars = %q, want the whole text", got)
	}
}

func TestMergeShortParts(t *testing.T) {
	long := strings.Repeat("а", 150)
	parts := mergeShortParts([]string{"коротко", long, "хвост"}, 100)

	// The leading short part folds forward, the trailing one folds back:
	// everything ends up in a single part above the minimum.
	if len(parts) != 1 {
		t.Fatalf("got %d parts, want 1: %q", len(parts), parts)
	}
	if !strings.HasPrefix(parts[0], "коротко") || !strings.Contains(parts[0], long) {
		t.Error("leading short part should be folded into its successor")
	}
	if !strings.HasSuffix(parts[0], "хвост") {
		t.Error("trailing short part should be folded into the last part")
	}
}

func TestMergeShortPartsKeepsLongParts(t *testing.T) {
	a := strings.Repeat("а", 150)
	b := strings.Repeat("б", 150)
	parts := mergeShortParts([]string{a, b}, 100)
	if len(parts) != 2 {
		t.Fatalf("got %d parts, want 2", len(parts))
	}
	if parts[0] != a || parts[1] != b {
		t.Error("long parts should pass through unchanged")
	}
}

func TestMergeShortPartsAllShort(t *testing.T) {
	parts := mergeShortParts([]string{"раз", "два"}, 100)
	if len(parts) != 1 {
		t.Fatalf("got %d parts, want 1", len(parts))
	}
	if !strings.Contains(parts[0], "раз") || !strings.Contains(parts[0], "два") {
		t.Errorf("merged part = %q, want both fragments", parts[0])
	}
}

// firstWords returns the first n whitespace-separated words of s.
func firstWords(s string, n int) string {
	fields := strings.Fields(s)
	if len(fields) > n {
		fields = fields[:n]
	}
	return strings.Join(fields, " ")
}
