package normdoc

import (
	"errors"
	"reflect"
	"strings"
	"testing"

	"github.com/avolkhin/normdoc/analyzer"
	"github.com/avolkhin/normdoc/chunker"
	"github.com/avolkhin/normdoc/extract"
)

const sampleDoc = `СП 50.13330.2012
ТЕПЛОВАЯ ЗАЩИТА ЗДАНИЙ
Утвержден Минстроем России 30.06.2012

1. ОБЩИЕ ПОЛОЖЕНИЯ
Настоящий свод правил устанавливает требования к тепловой защите зданий.
Прочность бетона не ниже 25 МПа по ГОСТ 26633.

2. НОРМАТИВНЫЕ ССЫЛКИ
Перечень документов:
- ГОСТ 30494-2011 параметры микроклимата
- СНиП 23-02-2003 тепловая защита

Таблица 1 - Сопротивление теплопередаче
| Конструкция | Сопротивление |
| Стена | 3,2 |
| Покрытие | 4,8 |
`

// ---------------------------------------------------------------------------
// Full pipeline tests
// ---------------------------------------------------------------------------

func TestProcessStructuredDocument(t *testing.T) {
	p := NewProcessor()
	result := p.Process(sampleDoc, "sp50.txt", nil)

	info := result.DocumentInfo
	if info.Status != "completed" {
		t.Fatalf("Status = %q, want %q (error: %s)", info.Status, "completed", info.ErrorMessage)
	}
	if info.Number != "СП 50.13330.2012" {
		t.Errorf("Number = %q, want %q", info.Number, "СП 50.13330.2012")
	}
	if info.Type != "СП" {
		t.Errorf("Type = %q, want %q", info.Type, "СП")
	}
	if info.Title != "ТЕПЛОВАЯ ЗАЩИТА ЗДАНИЙ" {
		t.Errorf("Title = %q, want %q", info.Title, "ТЕПЛОВАЯ ЗАЩИТА ЗДАНИЙ")
	}
	if info.FileName != "sp50.txt" {
		t.Errorf("FileName = %q, want %q", info.FileName, "sp50.txt")
	}
	if !strings.HasPrefix(info.ID, "doc_") {
		t.Errorf("ID = %q, want doc_ prefix", info.ID)
	}
	if len(info.Keywords) == 0 {
		t.Error("expected extracted keywords")
	}

	if len(result.Sections) != 2 {
		t.Errorf("got %d sections, want 2", len(result.Sections))
	}
	if len(result.Chunks) == 0 {
		t.Fatal("expected chunks")
	}
	if len(result.Tables) == 0 {
		t.Error("expected a table")
	}
	if len(result.Lists) == 0 {
		t.Error("expected a list")
	}

	pi := result.ProcessingInfo
	if pi.ProcessorVersion != "2.0.0" {
		t.Errorf("ProcessorVersion = %q, want %q", pi.ProcessorVersion, "2.0.0")
	}
	if pi.ProcessingMethod != "intelligent" {
		t.Errorf("ProcessingMethod = %q, want %q", pi.ProcessingMethod, "intelligent")
	}
	if !pi.FeaturesUsed.IntelligentChunking || !pi.FeaturesUsed.StructureExtraction {
		t.Errorf("FeaturesUsed = %+v, want intelligent and structure flags", pi.FeaturesUsed)
	}
	if !pi.FeaturesUsed.TableExtraction || !pi.FeaturesUsed.ListExtraction {
		t.Errorf("FeaturesUsed = %+v, want table and list flags", pi.FeaturesUsed)
	}

	stats := result.Statistics
	if stats.ContentStats.TotalSections != 2 {
		t.Errorf("TotalSections = %d, want 2", stats.ContentStats.TotalSections)
	}
	if stats.ContentStats.TotalChunks != len(result.Chunks) {
		t.Errorf("TotalChunks = %d, want %d", stats.ContentStats.TotalChunks, len(result.Chunks))
	}
	if stats.ProcessingStats.StructureQuality <= 0.5 {
		t.Errorf("StructureQuality = %f, want > 0.5 for a structured document",
			stats.ProcessingStats.StructureQuality)
	}
}

func TestProcessDeterministic(t *testing.T) {
	p := NewProcessor()

	a := p.Process(sampleDoc, "sp50.txt", nil)
	b := p.Process(sampleDoc, "sp50.txt", nil)

	if a.DocumentInfo.ID != b.DocumentInfo.ID {
		t.Errorf("IDs differ: %q vs %q", a.DocumentInfo.ID, b.DocumentInfo.ID)
	}
	if len(a.Chunks) != len(b.Chunks) {
		t.Fatalf("chunk counts differ: %d vs %d", len(a.Chunks), len(b.Chunks))
	}
	for i := range a.Chunks {
		if a.Chunks[i].Content != b.Chunks[i].Content {
			t.Errorf("chunks[%d] differ between runs", i)
		}
	}
	if !reflect.DeepEqual(a.Sections, b.Sections) {
		t.Error("sections differ between runs")
	}
}

func TestProcessUnstructuredFallsBack(t *testing.T) {
	content := strings.Repeat("обычное слово текста ", 100)
	p := NewProcessor()
	result := p.Process(content, "plain.txt", nil)

	if result.DocumentInfo.Status != "completed" {
		t.Fatalf("Status = %q, want %q", result.DocumentInfo.Status, "completed")
	}
	if result.ProcessingInfo.ProcessingMethod != "fallback" {
		t.Errorf("ProcessingMethod = %q, want %q",
			result.ProcessingInfo.ProcessingMethod, "fallback")
	}
	if result.ProcessingInfo.FeaturesUsed.IntelligentChunking {
		t.Error("IntelligentChunking should be false on the fallback path")
	}
	if len(result.Chunks) == 0 {
		t.Error("expected size-based chunks")
	}
	if len(result.Sections) != 0 {
		t.Errorf("got %d sections, want 0", len(result.Sections))
	}
}

func TestProcessTinyDocumentBasicChunk(t *testing.T) {
	p := NewProcessor()
	result := p.Process("Очень короткий документ.", "tiny.txt", nil)

	if result.DocumentInfo.Status != "completed" {
		t.Fatalf("Status = %q, want %q", result.DocumentInfo.Status, "completed")
	}
	if len(result.Chunks) != 1 {
		t.Fatalf("got %d chunks, want 1", len(result.Chunks))
	}
	if result.Chunks[0].Type != "basic" {
		t.Errorf("chunk Type = %q, want %q", result.Chunks[0].Type, "basic")
	}
}

// ---------------------------------------------------------------------------
// No-throw contract tests
// ---------------------------------------------------------------------------

func TestProcessNeverPanics(t *testing.T) {
	p := NewProcessor()

	inputs := []string{
		"",
		"   \n\t\n   ",
		strings.Repeat("\x00\xff", 100),
		strings.Repeat("ГОСТ ", 10000),
		"1.\n2.\n3.\n| | |\n- \n",
	}
	for _, in := range inputs {
		result := p.Process(in, "odd.txt", nil)
		if result == nil {
			t.Fatal("Process returned nil")
		}
		if result.Chunks == nil || result.Sections == nil || result.Tables == nil || result.Lists == nil {
			t.Errorf("Process(%.20q) returned nil collections", in)
		}
	}
}

func TestProcessMultiMegabyteInput(t *testing.T) {
	// Well over a megabyte of structured text: the pipeline must complete
	// and return a full result, not truncate or fail.
	var sb strings.Builder
	sb.WriteString(sampleDoc)
	for sb.Len() < 2<<20 {
		sb.WriteString("Требования к бетонным конструкциям и правила контроля качества работ. ")
	}

	p := NewProcessor()
	result := p.Process(sb.String(), "huge.txt", nil)

	if result == nil {
		t.Fatal("Process returned nil")
	}
	if result.DocumentInfo.Status != "completed" {
		t.Fatalf("Status = %q, want %q", result.DocumentInfo.Status, "completed")
	}
	if len(result.Chunks) == 0 {
		t.Error("expected chunks for a multi-megabyte document")
	}
	if result.Statistics.ContentStats.TotalCharacters == 0 {
		t.Error("TotalCharacters = 0, want the full document counted")
	}
}

func TestProcessEmptyInput(t *testing.T) {
	p := NewProcessor()
	result := p.Process("", "empty.txt", nil)

	if result.DocumentInfo.Status != "completed" {
		t.Errorf("Status = %q, want %q", result.DocumentInfo.Status, "completed")
	}
	if len(result.Chunks) != 0 {
		t.Errorf("got %d chunks, want 0 for empty input", len(result.Chunks))
	}
	if result.Chunks == nil {
		t.Error("Chunks must be empty, not nil")
	}
}

func TestProcessPanickingAnalyzerFallsBack(t *testing.T) {
	p := NewProcessor(WithAnalyzerFunc(func(string) (*analyzer.Result, error) {
		panic("analysis exploded")
	}))

	result := p.Process(sampleDoc, "sp50.txt", nil)
	if result.DocumentInfo.Status != "completed" {
		t.Fatalf("Status = %q, want %q", result.DocumentInfo.Status, "completed")
	}
	if result.ProcessingInfo.ProcessingMethod != "fallback" {
		t.Errorf("ProcessingMethod = %q, want %q",
			result.ProcessingInfo.ProcessingMethod, "fallback")
	}
	if len(result.Chunks) == 0 {
		t.Error("fallback should still produce chunks")
	}
}

func TestProcessFailingAnalyzerFallsBack(t *testing.T) {
	p := NewProcessor(WithAnalyzerFunc(func(string) (*analyzer.Result, error) {
		return nil, errors.New("model unavailable")
	}))

	result := p.Process(sampleDoc, "sp50.txt", nil)
	if result.ProcessingInfo.ProcessingMethod != "fallback" {
		t.Errorf("ProcessingMethod = %q, want %q",
			result.ProcessingInfo.ProcessingMethod, "fallback")
	}
	if len(result.Chunks) == 0 {
		t.Error("fallback should still produce chunks")
	}
}

func TestProcessDisabledAnalyzer(t *testing.T) {
	p := NewProcessor(WithAnalyzer(nil))
	result := p.Process(sampleDoc, "sp50.txt", nil)

	if result.ProcessingInfo.ProcessingMethod != "fallback" {
		t.Errorf("ProcessingMethod = %q, want %q",
			result.ProcessingInfo.ProcessingMethod, "fallback")
	}
}

func TestProcessInjectedAnalyzerResult(t *testing.T) {
	canned := &analyzer.Result{
		Sections: []extract.Section{{ID: "section_1", Number: "1", Title: "РАЗДЕЛ", Level: 1, ContentLength: 10}},
		Chunks:   []chunker.Chunk{{ID: "chunk_1", Content: "содержимое раздела", Type: "section_content"}},
	}
	p := NewProcessor(WithAnalyzerFunc(func(string) (*analyzer.Result, error) {
		return canned, nil
	}))

	result := p.Process("любой текст", "x.txt", nil)
	if result.ProcessingInfo.ProcessingMethod != "intelligent" {
		t.Errorf("ProcessingMethod = %q, want %q",
			result.ProcessingInfo.ProcessingMethod, "intelligent")
	}
	if len(result.Chunks) != 1 || result.Chunks[0].Content != "содержимое раздела" {
		t.Errorf("Chunks = %+v, want the injected chunk", result.Chunks)
	}
}

// ---------------------------------------------------------------------------
// Metadata override tests
// ---------------------------------------------------------------------------

func TestProcessExtraMetadata(t *testing.T) {
	p := NewProcessor()
	result := p.Process(sampleDoc, "sp50.txt", map[string]string{
		"title":     "Пользовательский заголовок",
		"custom_id": "abc-123",
	})

	info := result.DocumentInfo
	if info.Title != "Пользовательский заголовок" {
		t.Errorf("Title = %q, want the override", info.Title)
	}
	// Extracted values survive where no override was given.
	if info.Number != "СП 50.13330.2012" {
		t.Errorf("Number = %q, want the extracted value", info.Number)
	}
	if info.Metadata["custom_id"] != "abc-123" {
		t.Errorf("Metadata = %v, want custom_id carried through", info.Metadata)
	}
}

// ---------------------------------------------------------------------------
// Projection tests
// ---------------------------------------------------------------------------

func TestStructureProjection(t *testing.T) {
	p := NewProcessor()
	sr := p.Structure(sampleDoc, "sp50.txt", nil)

	if len(sr.Sections) != 2 {
		t.Errorf("got %d sections, want 2", len(sr.Sections))
	}
	if len(sr.Tables) == 0 {
		t.Error("expected tables in the structure projection")
	}
	if sr.DocumentInfo.Number != "СП 50.13330.2012" {
		t.Errorf("Number = %q, want %q", sr.DocumentInfo.Number, "СП 50.13330.2012")
	}
	if sr.ContentStats.TotalSections != 2 {
		t.Errorf("ContentStats.TotalSections = %d, want 2", sr.ContentStats.TotalSections)
	}
	if sr.ContentStats.TotalCharacters == 0 {
		t.Error("ContentStats.TotalCharacters = 0, want the document counted")
	}
}

func TestChunksProjection(t *testing.T) {
	p := NewProcessor()
	chunks := p.Chunks(sampleDoc, "sp50.txt")
	if len(chunks) == 0 {
		t.Fatal("expected chunks")
	}
	for i, ch := range chunks {
		if ch.Content == "" {
			t.Errorf("chunks[%d].Content is empty", i)
		}
		if ch.Metadata.CharCount == 0 {
			t.Errorf("chunks[%d].Metadata.CharCount = 0", i)
		}
	}
}

// ---------------------------------------------------------------------------
// Strategy tests
// ---------------------------------------------------------------------------

func TestStrategyString(t *testing.T) {
	if StrategyFallback.String() != "fallback" {
		t.Errorf("StrategyFallback = %q, want %q", StrategyFallback.String(), "fallback")
	}
	if StrategyIntelligent.String() != "intelligent" {
		t.Errorf("StrategyIntelligent = %q, want %q", StrategyIntelligent.String(), "intelligent")
	}
}

func TestBaseName(t *testing.T) {
	tests := []struct {
		path string
		want string
	}{
		{"", ""},
		{"file.txt", "file.txt"},
		{"/docs/sp/file.pdf", "file.pdf"},
		{`C:\docs\file.docx`, "file.docx"},
	}
	for _, tt := range tests {
		if got := baseName(tt.path); got != tt.want {
			t.Errorf("baseName(%q) = %q, want %q", tt.path, got, tt.want)
		}
	}
}
