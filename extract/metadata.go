package extract

import (
	"path/filepath"
	"regexp"
	"strings"
)

// ---------------------------------------------------------------------------
// Title detection
// ---------------------------------------------------------------------------

// titleHeadBytes bounds how far into the document title patterns look.
// Regulatory documents carry their title on the cover block.
const titleHeadBytes = 1000

// titleRules are tried in priority order; the first match wins.
// Each rule extracts the title from its first capture group.
var titleRules = []*regexp.Regexp{
	// All-caps line, 15-100 characters: "ТЕПЛОВАЯ ЗАЩИТА ЗДАНИЙ"
	regexp.MustCompile(`(?m)^\s*([А-ЯЁ][А-ЯЁ\s]{14,99})\s*$`),
	// Caps text after a leading numbered heading: "1. ОБЩИЕ ПОЛОЖЕНИЯ"
	regexp.MustCompile(`(?m)^\d+\.\s+([А-ЯЁ][А-ЯЁ\s]{9,79})\s*$`),
	// Line following a standard-number token: "СП 50.13330.2012\nТитул документа"
	regexp.MustCompile(`(?i)(?:СП|ГОСТ|СНиП)\s+[\d.\-]+\s*\n\s*([^\n]{10,120})`),
}

func extractTitle(content string) string {
	head := content
	if len(head) > titleHeadBytes {
		head = head[:titleHeadBytes]
	}
	for _, re := range titleRules {
		if m := re.FindStringSubmatch(head); len(m) >= 2 {
			// Collapse runs of whitespace: the caps pattern can span a
			// line break on two-line cover titles.
			title := strings.Join(strings.Fields(m[1]), " ")
			if title != "" {
				return title
			}
		}
	}
	return ""
}

// ---------------------------------------------------------------------------
// Regulatory number and document type
// ---------------------------------------------------------------------------

// numberRules map a document type to its number pattern. Order is the
// priority order: the first matching rule sets both fields.
var numberRules = []struct {
	docType string
	re      *regexp.Regexp
}{
	{"СП", regexp.MustCompile(`(?i)(СП\s+[\d.\-]+)`)},
	{"ГОСТ", regexp.MustCompile(`(?i)(ГОСТ\s+[\d.\-]+)`)},
	{"СНиП", regexp.MustCompile(`(?i)(СНиП\s+[\d.\-]+)`)},
}

func extractNumber(content string) (number, docType string) {
	for _, rule := range numberRules {
		if m := rule.re.FindStringSubmatch(content); len(m) >= 2 {
			// A sentence-final period or dash is not part of the number.
			return strings.TrimRight(m[1], ".-"), rule.docType
		}
	}
	return "", "unknown"
}

// ---------------------------------------------------------------------------
// Issuing organization
// ---------------------------------------------------------------------------

// orgPatterns cover the regulatory bodies that appear on SP/GOST/SNiP
// cover pages. Declined forms ("Минстроем России") are matched too.
var orgPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)Минстро[а-яё]*\s+России`),
	regexp.MustCompile(`(?i)Госстро[а-яё]*\s+России`),
	regexp.MustCompile(`(?i)Росстандарт[а-яё]*`),
	regexp.MustCompile(`(?i)Госстандарт[а-яё]*\s+России`),
	regexp.MustCompile(`ФГБУ\s*[«"][^»"\n]{1,80}[»"]`),
	regexp.MustCompile(`(?i)НИИСФ\s+РААСН`),
}

func extractOrganization(content string) string {
	for _, re := range orgPatterns {
		if m := re.FindString(content); m != "" {
			return strings.TrimSpace(m)
		}
	}
	return ""
}

// ---------------------------------------------------------------------------
// Approval date
// ---------------------------------------------------------------------------

var datePatterns = []*regexp.Regexp{
	// 30.06.2012
	regexp.MustCompile(`\d{2}\.\d{2}\.\d{4}`),
	// 2012-06-30
	regexp.MustCompile(`\d{4}-\d{2}-\d{2}`),
	// 30 июня 2012
	regexp.MustCompile(`(?i)\d{1,2}\s+(?:января|февраля|марта|апреля|мая|июня|июля|августа|сентября|октября|ноября|декабря)\s+\d{4}`),
}

func extractDate(content string) string {
	for _, re := range datePatterns {
		if m := re.FindString(content); m != "" {
			return m
		}
	}
	return ""
}

// ---------------------------------------------------------------------------
// Metadata entry point
// ---------------------------------------------------------------------------

// maxKeywords caps the keyword list on a DocumentMeta.
const maxKeywords = 15

// Metadata extracts bibliographic fields from document text. Missing
// fields come back empty, never as an error: regulatory documents vary
// wildly in cover-page layout and a partial result is still useful.
//
// FileSize is the UTF-8 byte length of content, not the on-disk size of
// the source file. Callers that pass decoded or re-encoded text get the
// size of what was actually analyzed.
func Metadata(content, filePath string) DocumentMeta {
	number, docType := extractNumber(content)
	return DocumentMeta{
		Title:        extractTitle(content),
		Number:       number,
		Type:         docType,
		Organization: extractOrganization(content),
		ApprovalDate: extractDate(content),
		FileName:     filepath.Base(filePath),
		FileSize:     len(content),
		Keywords:     Keywords(content, maxKeywords),
	}
}
