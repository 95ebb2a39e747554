// Package normdoc processes construction regulatory documents (СП,
// ГОСТ, СНиП): it extracts their structure, chunks them for retrieval,
// and optionally persists and indexes the chunks for full-text and
// vector search.
package normdoc

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log/slog"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/avolkhin/normdoc/chunker"
	"github.com/avolkhin/normdoc/llm"
	"github.com/avolkhin/normdoc/parser"
	"github.com/avolkhin/normdoc/store"
)

// Engine is the main entry point: processing plus persistence and
// search over ingested documents.
type Engine interface {
	// Ingest parses, processes, indexes, and embeds a document file.
	// Returns the stable document key. Skips if content hash unchanged.
	Ingest(ctx context.Context, path string, opts ...IngestOption) (string, error)

	// ProcessFile parses a file and runs the processing pipeline
	// without persisting anything.
	ProcessFile(ctx context.Context, path string) (*Result, error)

	// Search runs full-text and (when embeddings are configured)
	// vector search over ingested chunks.
	Search(ctx context.Context, query string, opts ...SearchOption) ([]SearchResult, error)

	// ListDocuments returns all ingested documents.
	ListDocuments(ctx context.Context) ([]store.Document, error)

	// Delete removes a document and all associated data by key.
	Delete(ctx context.Context, docKey string) error

	// Processor returns the underlying processor for direct text
	// processing.
	Processor() *Processor

	// Store returns the underlying store for diagnostic access.
	Store() *store.Store

	// Close cleanly shuts down the engine.
	Close() error
}

// SearchResult is one search hit.
type SearchResult struct {
	ChunkID       int64   `json:"chunk_id"`
	DocumentKey   string  `json:"document_key"`
	Filename      string  `json:"filename"`
	Content       string  `json:"content"`
	SectionNumber string  `json:"section_number"`
	SectionTitle  string  `json:"section_title"`
	Snippet       string  `json:"snippet,omitempty"`
	Score         float64 `json:"score"`
	Method        string  `json:"method"` // "fts", "vector" or "hybrid"
}

// IngestOption configures ingestion behavior.
type IngestOption func(*ingestOptions)

type ingestOptions struct {
	forceReprocess bool
	metadata       map[string]string
}

// WithForceReprocess forces re-processing even if the hash is unchanged.
func WithForceReprocess() IngestOption {
	return func(o *ingestOptions) { o.forceReprocess = true }
}

// WithMetadata attaches custom metadata to the ingested document.
// Known keys (title, number, type, organization, approval_date)
// override extracted values.
func WithMetadata(metadata map[string]string) IngestOption {
	return func(o *ingestOptions) { o.metadata = metadata }
}

// SearchOption configures search behavior.
type SearchOption func(*searchOptions)

type searchOptions struct {
	maxResults int
	ftsOnly    bool
}

// WithMaxResults sets the maximum number of chunks to return.
func WithMaxResults(n int) SearchOption {
	return func(o *searchOptions) { o.maxResults = n }
}

// WithFTSOnly disables vector search for this query.
func WithFTSOnly() SearchOption {
	return func(o *searchOptions) { o.ftsOnly = true }
}

// engine is the concrete implementation of Engine.
type engine struct {
	cfg      Config
	store    *store.Store
	embedder llm.Embedder
	parsers  *parser.Registry
	proc     *Processor
}

// New creates a normdoc engine with the given configuration. An empty
// embedding provider disables vector search; everything else still
// works.
func New(cfg Config) (Engine, error) {
	if cfg.EmbeddingDim == 0 {
		cfg.EmbeddingDim = 768
	}

	s, err := store.New(cfg.resolveDBPath(), cfg.EmbeddingDim)
	if err != nil {
		return nil, fmt.Errorf("opening store: %w", err)
	}

	var embedder llm.Embedder
	if cfg.Embedding.Provider != "" {
		embedder, err = llm.NewEmbedder(llm.Config{
			Provider: cfg.Embedding.Provider,
			Model:    cfg.Embedding.Model,
			BaseURL:  cfg.Embedding.BaseURL,
			APIKey:   cfg.Embedding.APIKey,
		})
		if err != nil {
			s.Close()
			return nil, fmt.Errorf("creating embedder: %w", err)
		}
	}

	procOpts := []ProcessorOption{
		WithChunkerConfig(chunker.Config{
			SectionSplitThreshold: cfg.SectionSplitThreshold,
			PartTarget:            cfg.ChunkTarget,
			WindowSize:            cfg.ChunkTarget,
			WindowOverlap:         cfg.ChunkOverlap,
			MinChunkChars:         cfg.MinChunkChars,
		}),
	}
	if cfg.DisableIntelligent {
		procOpts = append(procOpts, WithAnalyzer(nil))
	}

	return &engine{
		cfg:      cfg,
		store:    s,
		embedder: embedder,
		parsers:  parser.NewRegistry(),
		proc:     NewProcessor(procOpts...),
	}, nil
}

// Ingest processes a document file through the full pipeline.
func (e *engine) Ingest(ctx context.Context, path string, opts ...IngestOption) (string, error) {
	options := &ingestOptions{}
	for _, o := range opts {
		o(options)
	}

	absPath, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("resolving path: %w", err)
	}
	filename := filepath.Base(absPath)
	format := strings.ToLower(strings.TrimPrefix(filepath.Ext(absPath), "."))

	p, err := e.parsers.Get(format)
	if err != nil {
		return "", fmt.Errorf("%w: %s", ErrUnsupportedFormat, format)
	}

	parseStart := time.Now()
	content, err := p.Parse(ctx, absPath)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrParsingFailed, err)
	}
	slog.Info("ingest: parsing complete",
		"file", filename, "format", format,
		"chars", len(content), "elapsed", time.Since(parseStart).Round(time.Millisecond))

	sum := sha256.Sum256([]byte(content))
	hash := hex.EncodeToString(sum[:])

	// Skip unchanged documents unless forced.
	if !options.forceReprocess {
		existing, err := e.store.GetDocumentByPath(ctx, absPath)
		if err == nil && existing.ContentHash == hash && existing.Status == "ready" {
			slog.Info("ingest: content unchanged, skipping", "file", filename, "doc", existing.Key)
			return existing.Key, nil
		}
	}

	result := e.proc.Process(content, filename, options.metadata)
	if result.DocumentInfo.Status == "error" {
		return "", fmt.Errorf("%w: %s", ErrParsingFailed, result.DocumentInfo.ErrorMessage)
	}

	var metadataJSON string
	if options.metadata != nil {
		data, _ := json.Marshal(options.metadata)
		metadataJSON = string(data)
	}

	docID, err := e.store.UpsertDocument(ctx, store.Document{
		Key:          result.DocumentInfo.ID,
		Path:         absPath,
		Filename:     filename,
		Format:       format,
		Title:        result.DocumentInfo.Title,
		Number:       result.DocumentInfo.Number,
		DocType:      result.DocumentInfo.Type,
		Organization: result.DocumentInfo.Organization,
		ApprovalDate: result.DocumentInfo.ApprovalDate,
		ContentHash:  hash,
		Status:       "processing",
		Metadata:     metadataJSON,
	})
	if err != nil {
		return "", fmt.Errorf("upserting document: %w", err)
	}

	// Re-ingest: drop old chunks and embeddings first.
	if err := e.store.DeleteDocumentData(ctx, docID); err != nil {
		return "", fmt.Errorf("cleaning old data: %w", err)
	}

	chunks := make([]store.Chunk, len(result.Chunks))
	for i, cv := range result.Chunks {
		meta, _ := json.Marshal(cv.SearchMetadata)
		chunks[i] = store.Chunk{
			DocumentID:    docID,
			Key:           cv.ID,
			Content:       cv.Content,
			ChunkType:     cv.Type,
			SectionNumber: cv.Metadata.SectionNumber,
			SectionTitle:  cv.Metadata.SectionTitle,
			SectionLevel:  cv.Metadata.SectionLevel,
			PartNumber:    cv.Metadata.PartNumber,
			WordCount:     cv.Metadata.WordCount,
			CharCount:     cv.Metadata.CharCount,
			QualityScore:  cv.Metadata.QualityScore,
			Metadata:      string(meta),
		}
	}

	chunkIDs, err := e.store.InsertChunks(ctx, chunks)
	if err != nil {
		e.store.UpdateDocumentStatus(ctx, docID, "error")
		return "", fmt.Errorf("inserting chunks: %w", err)
	}

	if e.embedder != nil {
		embedStart := time.Now()
		if err := e.embedChunks(ctx, chunks, chunkIDs); err != nil {
			e.store.UpdateDocumentStatus(ctx, docID, "error")
			return "", fmt.Errorf("%w: %v", ErrEmbeddingFailed, err)
		}
		slog.Info("ingest: embeddings complete",
			"file", filename, "chunks", len(chunks),
			"elapsed", time.Since(embedStart).Round(time.Millisecond))
	}

	e.store.UpdateDocumentStatus(ctx, docID, "ready")
	slog.Info("ingest: document ready",
		"file", filename, "doc", result.DocumentInfo.ID,
		"chunks", len(chunks),
		"total_elapsed", time.Since(parseStart).Round(time.Millisecond))
	return result.DocumentInfo.ID, nil
}

// ProcessFile parses a file and runs the pipeline without persistence.
func (e *engine) ProcessFile(ctx context.Context, path string) (*Result, error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolving path: %w", err)
	}
	format := strings.ToLower(strings.TrimPrefix(filepath.Ext(absPath), "."))

	p, err := e.parsers.Get(format)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, format)
	}

	content, err := p.Parse(ctx, absPath)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrParsingFailed, err)
	}

	return e.proc.Process(content, filepath.Base(absPath), nil), nil
}

// Search runs FTS and, when configured, vector search, merging results
// by best score per chunk.
func (e *engine) Search(ctx context.Context, query string, opts ...SearchOption) ([]SearchResult, error) {
	options := &searchOptions{maxResults: 20}
	for _, o := range opts {
		o(options)
	}

	byChunk := make(map[int64]*SearchResult)

	ftsResults, err := e.store.FTSSearch(ctx, ftsQuery(query), options.maxResults)
	if err != nil {
		slog.Warn("search: fts failed", "error", err)
	}
	for _, r := range ftsResults {
		byChunk[r.ChunkID] = &SearchResult{
			ChunkID:       r.ChunkID,
			DocumentKey:   r.DocumentKey,
			Filename:      r.Filename,
			Content:       r.Content,
			SectionNumber: r.SectionNumber,
			SectionTitle:  r.SectionTitle,
			Score:         r.Score,
			Method:        "fts",
		}
	}

	if e.embedder != nil && !options.ftsOnly {
		embeddings, err := e.embedder.Embed(ctx, []string{query})
		if err != nil || len(embeddings) == 0 {
			slog.Warn("search: query embedding failed", "error", err)
		} else {
			vecResults, err := e.store.VectorSearch(ctx, embeddings[0], options.maxResults)
			if err != nil {
				slog.Warn("search: vector search failed", "error", err)
			}
			for _, r := range vecResults {
				if existing, ok := byChunk[r.ChunkID]; ok {
					existing.Method = "hybrid"
					if r.Score > existing.Score {
						existing.Score = r.Score
					}
					continue
				}
				byChunk[r.ChunkID] = &SearchResult{
					ChunkID:       r.ChunkID,
					DocumentKey:   r.DocumentKey,
					Filename:      r.Filename,
					Content:       r.Content,
					SectionNumber: r.SectionNumber,
					SectionTitle:  r.SectionTitle,
					Score:         r.Score,
					Method:        "vector",
				}
			}
		}
	}

	if len(byChunk) == 0 {
		return nil, ErrNoResults
	}

	queryWords := significantWords(query)
	results := make([]SearchResult, 0, len(byChunk))
	for _, r := range byChunk {
		r.Snippet = extractSnippet(r.Content, queryWords)
		results = append(results, *r)
	}
	sort.Slice(results, func(i, j int) bool { return results[i].Score > results[j].Score })
	if len(results) > options.maxResults {
		results = results[:options.maxResults]
	}
	return results, nil
}

// ListDocuments returns all ingested documents.
func (e *engine) ListDocuments(ctx context.Context) ([]store.Document, error) {
	return e.store.ListDocuments(ctx)
}

// Delete removes a document and all its data by key.
func (e *engine) Delete(ctx context.Context, docKey string) error {
	doc, err := e.store.GetDocumentByKey(ctx, docKey)
	if err != nil {
		return fmt.Errorf("%w: %s", ErrDocumentNotFound, docKey)
	}
	return e.store.DeleteDocument(ctx, doc.ID)
}

// Processor returns the underlying processor.
func (e *engine) Processor() *Processor {
	return e.proc
}

// Store returns the underlying store.
func (e *engine) Store() *store.Store {
	return e.store
}

// Close shuts down the engine.
func (e *engine) Close() error {
	return e.store.Close()
}

// maxEmbedChars bounds a single text sent to the embedding model. Most
// embedding models have an 8192-token context window; ~24000 chars
// leaves headroom for varied tokenisers.
const maxEmbedChars = 24000

// truncateForEmbed truncates text to maxEmbedChars on a word boundary.
func truncateForEmbed(text string) string {
	if len(text) <= maxEmbedChars {
		return text
	}
	cut := strings.LastIndex(text[:maxEmbedChars], " ")
	if cut <= 0 {
		cut = maxEmbedChars
	}
	return text[:cut]
}

// embedChunks generates embeddings for chunks in batches. Individual
// batch failures trigger per-text fallback so a single oversized text
// does not cause the entire batch to be lost.
func (e *engine) embedChunks(ctx context.Context, chunks []store.Chunk, chunkIDs []int64) error {
	const batchSize = 32
	var failed int

	for i := 0; i < len(chunks); i += batchSize {
		end := i + batchSize
		if end > len(chunks) {
			end = len(chunks)
		}

		texts := make([]string, end-i)
		for j := i; j < end; j++ {
			prefix := ""
			if chunks[j].SectionTitle != "" {
				prefix = chunks[j].SectionTitle + ": "
			}
			texts[j-i] = truncateForEmbed(prefix + chunks[j].Content)
		}

		embeddings, err := e.embedder.Embed(ctx, texts)
		if err != nil {
			slog.Warn("embedding batch failed, falling back to individual",
				"batch_start", i, "batch_end", end, "error", err)
			for j, text := range texts {
				single, serr := e.embedder.Embed(ctx, []string{text})
				if serr != nil || len(single) == 0 || len(single[0]) == 0 {
					slog.Warn("embedding single text failed",
						"chunk_id", chunkIDs[i+j], "error", serr)
					failed++
					continue
				}
				if serr := e.store.InsertEmbedding(ctx, chunkIDs[i+j], single[0]); serr != nil {
					slog.Warn("storing embedding failed",
						"chunk_id", chunkIDs[i+j], "error", serr)
					failed++
				}
			}
			continue
		}

		for j, emb := range embeddings {
			if err := e.store.InsertEmbedding(ctx, chunkIDs[i+j], emb); err != nil {
				slog.Warn("storing embedding failed",
					"chunk_id", chunkIDs[i+j], "error", err)
				failed++
			}
		}
	}

	if failed == len(chunks) && len(chunks) > 0 {
		return fmt.Errorf("all %d chunks failed embedding", len(chunks))
	}
	if failed > 0 {
		slog.Warn("some embeddings failed", "failed", failed, "total", len(chunks))
	}
	return nil
}

// ftsQuery quotes the user query terms so FTS5 operators in raw input
// cannot break the MATCH expression. Hyphens are replaced with spaces
// because FTS5 treats them as separators.
func ftsQuery(query string) string {
	fields := strings.Fields(strings.ReplaceAll(query, "-", " "))
	quoted := make([]string, 0, len(fields))
	for _, f := range fields {
		quoted = append(quoted, `"`+strings.ReplaceAll(f, `"`, ``)+`"`)
	}
	return strings.Join(quoted, " ")
}
