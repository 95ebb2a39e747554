// Package extract pulls bibliographic metadata and structural elements
// (sections, tables, lists) out of raw construction-norm text (SP, GOST,
// SNiP standards and similar regulatory documents).
//
// All extractors are pure functions over the document text: a miss is an
// empty value, never an error. Positions are byte offsets into the
// original text; sizes and counts are measured in characters (runes).
package extract

// DocumentMeta holds bibliographic fields pulled from a document's text.
type DocumentMeta struct {
	Title        string   `json:"title"`
	Number       string   `json:"number"`
	Type         string   `json:"type"` // "СП", "ГОСТ", "СНиП" or "unknown"
	Organization string   `json:"organization"`
	ApprovalDate string   `json:"approval_date"`
	FileName     string   `json:"file_name"`
	FileSize     int      `json:"file_size"` // UTF-8 byte length of the text content
	Keywords     []string `json:"keywords"`
}

// Section is a detected heading with the text span it governs.
type Section struct {
	ID             string `json:"id"`
	Number         string `json:"number"` // e.g. "3.2.1"
	Title          string `json:"title"`
	Level          int    `json:"level"` // 1..3, dot count in Number plus one
	Type           string `json:"type"`  // always "section"
	ContentLength  int    `json:"content_length"`
	HasSubsections bool   `json:"has_subsections"`
	ParentPath     string `json:"parent_path"` // Number minus its last segment
	StartPos       int    `json:"start_position"`
	EndPos         int    `json:"end_position"`
}

// Table is a parsed tabular block.
type Table struct {
	ID         string     `json:"id"`
	Number     string     `json:"number"`
	Title      string     `json:"title"`
	Headers    []string   `json:"headers"`
	Rows       [][]string `json:"rows"`
	PageNumber int        `json:"page_number"` // not computed from plain text, always 0
	Meta       TableMeta  `json:"metadata"`
}

// TableMeta carries parse diagnostics for a table.
type TableMeta struct {
	SourceLine  int    `json:"source_line"`
	TableType   string `json:"table_type"` // "structured" when headers were identified, else "simple"
	ColumnCount int    `json:"column_count"`
	RowCount    int    `json:"row_count"`
}

// List is a detected bulleted, numbered or lettered list block.
type List struct {
	ID    string   `json:"id"`
	Type  string   `json:"type"` // "bulleted", "numbered", "lettered"
	Items []string `json:"items"`
	Level int      `json:"level"` // nested lists are not detected, always 1
	Meta  ListMeta `json:"metadata"`
}

// ListMeta carries parse diagnostics for a list block.
type ListMeta struct {
	SourceLine int `json:"source_line"`
	ItemCount  int `json:"item_count"`
}
