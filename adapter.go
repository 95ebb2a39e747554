package normdoc

import (
	"crypto/sha256"
	"encoding/hex"
	"math"
	"strings"
	"unicode/utf8"

	"github.com/avolkhin/normdoc/chunker"
	"github.com/avolkhin/normdoc/extract"
)

// documentID derives a stable identifier from document content, so the
// same text always maps to the same ID.
func documentID(content string) string {
	sum := sha256.Sum256([]byte(content))
	return "doc_" + hex.EncodeToString(sum[:])[:12]
}

// knownMetadataKeys maps additional-metadata keys onto DocumentInfo
// fields. Values supplied by the caller override extracted ones.
func applyExtraMetadata(info *DocumentInfo, extra map[string]string) {
	for k, v := range extra {
		switch k {
		case "title":
			info.Title = v
		case "number":
			info.Number = v
		case "type":
			info.Type = v
		case "organization":
			info.Organization = v
		case "approval_date":
			info.ApprovalDate = v
		case "file_name":
			info.FileName = v
		default:
			if info.Metadata == nil {
				info.Metadata = make(map[string]string)
			}
			info.Metadata[k] = v
		}
	}
}

func adaptDocumentInfo(content string, meta extract.DocumentMeta, extra map[string]string) DocumentInfo {
	info := DocumentInfo{
		ID:           documentID(content),
		Title:        meta.Title,
		Number:       meta.Number,
		Type:         meta.Type,
		Organization: meta.Organization,
		ApprovalDate: meta.ApprovalDate,
		FileName:     meta.FileName,
		FileSize:     meta.FileSize,
		Keywords:     meta.Keywords,
		Status:       "completed",
	}
	if info.Keywords == nil {
		info.Keywords = []string{}
	}
	applyExtraMetadata(&info, extra)
	return info
}

func adaptSections(content string, sections []extract.Section) []SectionView {
	views := make([]SectionView, 0, len(sections))
	for _, s := range sections {
		span := ""
		if s.StartPos >= 0 && s.EndPos <= len(content) && s.StartPos < s.EndPos {
			span = content[s.StartPos:s.EndPos]
		}
		views = append(views, SectionView{
			ID:         s.ID,
			Number:     s.Number,
			Title:      s.Title,
			Level:      s.Level,
			Type:       s.Type,
			ParentPath: s.ParentPath,
			HasContent: s.ContentLength > 0,
			Metadata: SectionMeta{
				WordCount:      len(strings.Fields(span)),
				SectionType:    sectionType(s.Level),
				HasSubsections: s.HasSubsections,
			},
		})
	}
	return views
}

func sectionType(level int) string {
	switch level {
	case 1:
		return "chapter"
	case 2:
		return "section"
	default:
		return "subsection"
	}
}

// adaptChunks builds the retrieval-ready chunk projection: a bounded
// searchable preview, per-chunk keywords, the owning section context,
// and an importance score derived from quality and density signals.
func adaptChunks(chunks []chunker.Chunk) []ChunkView {
	views := make([]ChunkView, 0, len(chunks))
	for _, ch := range chunks {
		views = append(views, ChunkView{
			ID:             ch.ID,
			Content:        ch.Content,
			Type:           ch.Type,
			SourceElements: sourceElements(ch),
			Metadata: ChunkMeta{
				SectionNumber:       ch.SectionNumber,
				SectionTitle:        ch.SectionTitle,
				SectionLevel:        ch.SectionLevel,
				PartNumber:          ch.PartNumber,
				WordCount:           ch.WordCount,
				CharCount:           ch.CharCount,
				QualityScore:        ch.QualityScore,
				HasTables:           ch.HasTables,
				HasLists:            ch.HasLists,
				TechnicalTermsCount: ch.TechnicalTerms,
			},
			SearchMetadata: SearchMetadata{
				SearchableContent: headChars(ch.Content, 500),
				Keywords:          chunkKeywords(ch.Content),
				SectionContext:    sectionContext(ch),
				ImportanceScore:   importanceScore(ch),
			},
		})
	}
	return views
}

func sourceElements(ch chunker.Chunk) []string {
	if len(ch.SourceElements) == 0 {
		return []string{}
	}
	return ch.SourceElements
}

func chunkKeywords(content string) []string {
	kw := extract.Keywords(content, 8)
	if kw == nil {
		kw = []string{}
	}
	return kw
}

func sectionContext(ch chunker.Chunk) string {
	if ch.SectionNumber == "" {
		return ""
	}
	return strings.TrimSpace(ch.SectionNumber + " " + ch.SectionTitle)
}

// importanceScore ranks a chunk for retrieval ordering: half the weight
// is constant, quality contributes up to 0.3, tables and technical-term
// density add the rest.
func importanceScore(ch chunker.Chunk) float64 {
	score := 0.5 + ch.QualityScore*0.3
	if ch.HasTables {
		score += 0.2
	}
	score += math.Min(float64(ch.TechnicalTerms)*0.05, 0.2)
	if score > 1 {
		score = 1
	}
	return score
}

// headChars returns the first n characters of text.
func headChars(text string, n int) string {
	if utf8.RuneCountInString(text) <= n {
		return text
	}
	return string([]rune(text)[:n])
}

func adaptTables(tables []extract.Table) []TableView {
	views := make([]TableView, 0, len(tables))
	for _, t := range tables {
		headers := t.Headers
		if headers == nil {
			headers = []string{}
		}
		rows := t.Rows
		if rows == nil {
			rows = [][]string{}
		}
		views = append(views, TableView{
			ID:         t.ID,
			Number:     t.Number,
			Title:      t.Title,
			Headers:    headers,
			Rows:       rows,
			PageNumber: t.PageNumber,
			Metadata: TableViewMeta{
				RowCount:     t.Meta.RowCount,
				ColumnCount:  t.Meta.ColumnCount,
				SourceLine:   t.Meta.SourceLine,
				IsStructured: t.Meta.TableType == "structured",
			},
			DisplayOptions: DisplayOptions{
				ShowHeaders:    len(headers) > 0,
				Searchable:     true,
				Exportable:     true,
				MaxDisplayRows: 50,
			},
		})
	}
	return views
}

func buildStatistics(content string, sections []extract.Section, chunks []chunker.Chunk, tables []extract.Table, lists []extract.List) Statistics {
	var avgSize float64
	if len(chunks) > 0 {
		total := 0
		for _, ch := range chunks {
			total += ch.CharCount
		}
		avgSize = float64(total) / float64(len(chunks))
	}
	return Statistics{
		ContentStats: ContentStats{
			TotalSections:    len(sections),
			TotalChunks:      len(chunks),
			TotalTables:      len(tables),
			TotalLists:       len(lists),
			TotalCharacters:  utf8.RuneCountInString(content),
			TotalWords:       len(strings.Fields(content)),
			AverageChunkSize: avgSize,
		},
		ProcessingStats: ProcessingStats{
			StructureQuality:    chunker.StructureQuality(sections, tables),
			ChunkingQuality:     chunker.ChunkingQuality(chunks),
			AverageChunkQuality: chunker.AverageQuality(chunks),
		},
	}
}
