package normdoc

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/avolkhin/normdoc/analyzer"
	"github.com/avolkhin/normdoc/chunker"
	"github.com/avolkhin/normdoc/extract"
)

// processorVersion is reported in ProcessingInfo.
const processorVersion = "2.0.0"

// Strategy names the processing path that produced a result.
type Strategy int

const (
	// StrategyFallback is the deterministic regex pipeline. Always
	// available, never fails.
	StrategyFallback Strategy = iota

	// StrategyIntelligent is the hierarchy-aware analyzer path. Tried
	// first when an analyzer is configured; any error or panic drops
	// the processor back to StrategyFallback.
	StrategyIntelligent
)

func (s Strategy) String() string {
	switch s {
	case StrategyIntelligent:
		return "intelligent"
	default:
		return "fallback"
	}
}

// Analyzer is the advanced analysis path a Processor tries before the
// deterministic pipeline. Implementations may fail; the processor
// treats any error or panic as a signal to fall back.
type Analyzer interface {
	Analyze(content string) (*analyzer.Result, error)
}

// AnalyzerFunc adapts a function to the Analyzer interface.
type AnalyzerFunc func(content string) (*analyzer.Result, error)

func (f AnalyzerFunc) Analyze(content string) (*analyzer.Result, error) {
	return f(content)
}

// Processor turns raw document text into a frontend-ready Result. It is
// safe for concurrent use and Process never panics: any internal
// failure surfaces as a Result with status "error".
type Processor struct {
	analyzer Analyzer
	chunker  *chunker.Chunker
	log      *slog.Logger
}

// ProcessorOption configures a Processor.
type ProcessorOption func(*Processor)

// WithAnalyzer injects the intelligent analysis path. Pass nil to run
// fallback-only.
func WithAnalyzer(a Analyzer) ProcessorOption {
	return func(p *Processor) { p.analyzer = a }
}

// WithAnalyzerFunc injects a function as the intelligent analysis path.
func WithAnalyzerFunc(f AnalyzerFunc) ProcessorOption {
	return func(p *Processor) { p.analyzer = f }
}

// WithChunkerConfig overrides the fallback chunker configuration.
func WithChunkerConfig(cfg chunker.Config) ProcessorOption {
	return func(p *Processor) { p.chunker = chunker.New(cfg) }
}

// WithLogger sets the processor's logger.
func WithLogger(log *slog.Logger) ProcessorOption {
	return func(p *Processor) { p.log = log }
}

// NewProcessor builds a Processor. Unless overridden, it carries the
// default intelligent analyzer and the default fallback chunker. If the
// default analyzer cannot be constructed the processor still works,
// fallback-only.
func NewProcessor(opts ...ProcessorOption) *Processor {
	p := &Processor{
		chunker: chunker.New(chunker.Config{}),
		log:     slog.Default(),
	}

	a, err := analyzer.New(analyzer.Config{})
	if err == nil {
		p.analyzer = a
	}

	for _, o := range opts {
		o(p)
	}
	if err != nil && p.analyzer == nil {
		p.log.Warn("default analyzer unavailable, running fallback-only", "error", err)
	}
	return p
}

// Process runs the full pipeline on document text. The intelligent path
// is tried first when configured; on any failure the deterministic
// pipeline takes over. Process never panics and never returns nil: the
// worst outcome is a Result with status "error" and empty collections.
func (p *Processor) Process(content, filePath string, extra map[string]string) (result *Result) {
	start := time.Now()

	defer func() {
		if r := recover(); r != nil {
			p.log.Error("processing panicked", "file", filePath, "panic", r)
			result = p.errorResult(content, filePath, extra, fmt.Sprintf("processing failed: %v", r), start)
		}
	}()

	meta := extract.Metadata(content, filePath)
	info := adaptDocumentInfo(content, meta, extra)

	strategy := StrategyFallback
	var sections []extract.Section
	var chunks []chunker.Chunk
	var tables []extract.Table
	var lists []extract.List

	if ar := p.tryIntelligent(content, filePath); ar != nil {
		strategy = StrategyIntelligent
		sections, chunks, tables, lists = ar.Sections, ar.Chunks, ar.Tables, ar.Lists
	} else {
		sections = extract.Sections(content)
		chunks = p.chunker.ChunkDocument(content, sections)
		if len(chunks) == 0 && strings.TrimSpace(content) != "" {
			chunks = p.chunker.BasicChunk(content)
		}
		tables = extract.Tables(content)
		lists = extract.Lists(content)
	}

	elapsed := time.Since(start).Seconds()
	info.ProcessingTime = elapsed

	stats := buildStatistics(content, sections, chunks, tables, lists)

	p.log.Info("document processed",
		"file", filePath,
		"method", strategy.String(),
		"sections", len(sections),
		"chunks", len(chunks),
		"tables", len(tables),
		"lists", len(lists),
		"elapsed", time.Since(start).Round(time.Millisecond))

	return &Result{
		DocumentInfo: info,
		Sections:     adaptSections(content, sections),
		Chunks:       adaptChunks(chunks),
		Tables:       adaptTables(tables),
		Lists:        nonNilLists(lists),
		Statistics:   stats,
		ProcessingInfo: ProcessingInfo{
			ProcessorVersion:  processorVersion,
			ProcessingMethod:  strategy.String(),
			ExtractionQuality: stats.ProcessingStats.StructureQuality,
			ProcessingTime:    elapsed,
			FeaturesUsed: FeaturesUsed{
				IntelligentChunking: strategy == StrategyIntelligent,
				StructureExtraction: len(sections) > 0,
				TableExtraction:     len(tables) > 0,
				ListExtraction:      len(lists) > 0,
			},
		},
	}
}

// tryIntelligent runs the configured analyzer, converting errors and
// panics into a nil result so the caller falls back.
func (p *Processor) tryIntelligent(content, filePath string) (result *analyzer.Result) {
	if p.analyzer == nil {
		return nil
	}
	defer func() {
		if r := recover(); r != nil {
			p.log.Warn("intelligent analysis panicked, falling back", "file", filePath, "panic", r)
			result = nil
		}
	}()

	ar, err := p.analyzer.Analyze(content)
	if err != nil {
		p.log.Warn("intelligent analysis failed, falling back", "file", filePath, "error", err)
		return nil
	}
	if ar == nil || len(ar.Chunks) == 0 {
		return nil
	}
	return ar
}

// Structure runs extraction only and returns the structural projection
// of the document, without chunks.
func (p *Processor) Structure(content, filePath string, extra map[string]string) *StructureResult {
	res := p.Process(content, filePath, extra)
	return &StructureResult{
		DocumentInfo: res.DocumentInfo,
		Sections:     res.Sections,
		Tables:       res.Tables,
		Lists:        res.Lists,
		ContentStats: res.Statistics.ContentStats,
	}
}

// Chunks runs the pipeline and returns only the chunk projections.
func (p *Processor) Chunks(content, filePath string) []ChunkView {
	return p.Process(content, filePath, nil).Chunks
}

// errorResult is the shape returned when processing fails entirely:
// status "error", the message, and empty but non-nil collections.
func (p *Processor) errorResult(content, filePath string, extra map[string]string, msg string, start time.Time) *Result {
	info := DocumentInfo{
		ID:           documentID(content),
		Type:         "unknown",
		FileName:     baseName(filePath),
		FileSize:     len(content),
		Keywords:     []string{},
		Status:       "error",
		ErrorMessage: msg,
	}
	applyExtraMetadata(&info, extra)
	elapsed := time.Since(start).Seconds()
	info.ProcessingTime = elapsed

	return &Result{
		DocumentInfo: info,
		Sections:     []SectionView{},
		Chunks:       []ChunkView{},
		Tables:       []TableView{},
		Lists:        []extract.List{},
		Statistics:   Statistics{},
		ProcessingInfo: ProcessingInfo{
			ProcessorVersion: processorVersion,
			ProcessingMethod: "error",
			ProcessingTime:   elapsed,
		},
	}
}

func nonNilLists(lists []extract.List) []extract.List {
	if lists == nil {
		return []extract.List{}
	}
	return lists
}

func baseName(path string) string {
	if path == "" {
		return ""
	}
	if i := strings.LastIndexAny(path, `/\`); i >= 0 {
		return path[i+1:]
	}
	return path
}
