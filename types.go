package normdoc

import "github.com/avolkhin/normdoc/extract"

// Result is the complete frontend-facing processing result for one
// document. Every slice field is non-nil even when empty so JSON
// consumers always see arrays, never null.
type Result struct {
	DocumentInfo   DocumentInfo   `json:"document_info"`
	Sections       []SectionView  `json:"sections"`
	Chunks         []ChunkView    `json:"chunks"`
	Tables         []TableView    `json:"tables"`
	Lists          []extract.List `json:"lists"`
	Statistics     Statistics     `json:"statistics"`
	ProcessingInfo ProcessingInfo `json:"processing_info"`
}

// StructureResult is the structure-only projection of a Result: the
// extraction output without chunks, plus the document-level content
// counts.
type StructureResult struct {
	DocumentInfo DocumentInfo   `json:"document_info"`
	Sections     []SectionView  `json:"sections"`
	Tables       []TableView    `json:"tables"`
	Lists        []extract.List `json:"lists"`
	ContentStats ContentStats   `json:"content_stats"`
}

// DocumentInfo identifies and describes a processed document.
type DocumentInfo struct {
	ID             string            `json:"id"`
	Title          string            `json:"title"`
	Number         string            `json:"number"`
	Type           string            `json:"type"`
	Organization   string            `json:"organization"`
	ApprovalDate   string            `json:"approval_date"`
	FileName       string            `json:"file_name"`
	FileSize       int               `json:"file_size"`
	Keywords       []string          `json:"keywords"`
	Status         string            `json:"status"` // "completed" or "error"
	ProcessingTime float64           `json:"processing_time"`
	ErrorMessage   string            `json:"error_message,omitempty"`
	Metadata       map[string]string `json:"metadata,omitempty"`
}

// SectionView is the frontend projection of an extracted section.
type SectionView struct {
	ID         string      `json:"id"`
	Number     string      `json:"number"`
	Title      string      `json:"title"`
	Level      int         `json:"level"`
	Type       string      `json:"type"`
	ParentPath string      `json:"parent_path"`
	HasContent bool        `json:"has_content"`
	Metadata   SectionMeta `json:"metadata"`
}

// SectionMeta carries derived per-section fields.
type SectionMeta struct {
	WordCount      int    `json:"word_count"`
	SectionType    string `json:"section_type"`
	HasSubsections bool   `json:"has_subsections"`
}

// ChunkView is the frontend projection of a chunk, ready for indexing.
type ChunkView struct {
	ID             string         `json:"id"`
	Content        string         `json:"content"`
	Type           string         `json:"type"`
	SourceElements []string       `json:"source_elements"`
	Metadata       ChunkMeta      `json:"metadata"`
	SearchMetadata SearchMetadata `json:"search_metadata"`
}

// ChunkMeta carries the structural and quality fields of a chunk.
type ChunkMeta struct {
	SectionNumber       string  `json:"section_number,omitempty"`
	SectionTitle        string  `json:"section_title,omitempty"`
	SectionLevel        int     `json:"section_level,omitempty"`
	PartNumber          int     `json:"part_number,omitempty"`
	WordCount           int     `json:"word_count"`
	CharCount           int     `json:"char_count"`
	QualityScore        float64 `json:"quality_score"`
	HasTables           bool    `json:"has_tables"`
	HasLists            bool    `json:"has_lists"`
	TechnicalTermsCount int     `json:"technical_terms_count"`
}

// SearchMetadata is the retrieval-oriented enrichment of a chunk.
type SearchMetadata struct {
	SearchableContent string   `json:"searchable_content"`
	Keywords          []string `json:"keywords"`
	SectionContext    string   `json:"section_context"`
	ImportanceScore   float64  `json:"importance_score"`
}

// TableView is the frontend projection of an extracted table.
type TableView struct {
	ID             string         `json:"id"`
	Number         string         `json:"number"`
	Title          string         `json:"title"`
	Headers        []string       `json:"headers"`
	Rows           [][]string     `json:"rows"`
	PageNumber     int            `json:"page_number"`
	Metadata       TableViewMeta  `json:"metadata"`
	DisplayOptions DisplayOptions `json:"display_options"`
}

// TableViewMeta carries derived per-table fields.
type TableViewMeta struct {
	RowCount     int  `json:"row_count"`
	ColumnCount  int  `json:"column_count"`
	SourceLine   int  `json:"source_line"`
	IsStructured bool `json:"is_structured"`
}

// DisplayOptions are rendering hints for table consumers.
type DisplayOptions struct {
	ShowHeaders    bool `json:"show_headers"`
	Searchable     bool `json:"searchable"`
	Exportable     bool `json:"exportable"`
	MaxDisplayRows int  `json:"max_display_rows"`
}

// Statistics aggregates content and quality measurements.
type Statistics struct {
	ContentStats    ContentStats    `json:"content_stats"`
	ProcessingStats ProcessingStats `json:"processing_stats"`
}

// ContentStats counts the extracted structure.
type ContentStats struct {
	TotalSections    int     `json:"total_sections"`
	TotalChunks      int     `json:"total_chunks"`
	TotalTables      int     `json:"total_tables"`
	TotalLists       int     `json:"total_lists"`
	TotalCharacters  int     `json:"total_characters"`
	TotalWords       int     `json:"total_words"`
	AverageChunkSize float64 `json:"average_chunk_size"`
}

// ProcessingStats carries the quality scores of a processing run.
type ProcessingStats struct {
	StructureQuality    float64 `json:"structure_quality"`
	ChunkingQuality     float64 `json:"chunking_quality"`
	AverageChunkQuality float64 `json:"average_chunk_quality"`
}

// ProcessingInfo describes how a result was produced.
type ProcessingInfo struct {
	ProcessorVersion  string       `json:"processor_version"`
	ProcessingMethod  string       `json:"processing_method"` // "intelligent", "fallback" or "error"
	ExtractionQuality float64      `json:"extraction_quality"`
	ProcessingTime    float64      `json:"processing_time"`
	FeaturesUsed      FeaturesUsed `json:"features_used"`
}

// FeaturesUsed flags which pipeline capabilities contributed to the
// result.
type FeaturesUsed struct {
	IntelligentChunking bool `json:"intelligent_chunking"`
	StructureExtraction bool `json:"structure_extraction"`
	TableExtraction     bool `json:"table_extraction"`
	ListExtraction      bool `json:"list_extraction"`
}
