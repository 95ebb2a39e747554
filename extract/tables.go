package extract

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// captionedTablePattern matches an explicit "Таблица N" caption with an
// optional dash-separated title, followed by a pipe-delimited block.
var captionedTablePattern = regexp.MustCompile(
	`(?m)^Таблица\s+(\d+)(?:\s*[-–—]\s*([^\n]+))?\s*\n((?:[^\n]*\|[^\n]*\n?)+)`,
)

// minPipeRun is the minimum number of consecutive pipe-containing lines
// for an uncaptioned block to be treated as a table.
const minPipeRun = 3

// cellLetterPattern decides whether a parsed row can be a header row:
// at least one cell must carry a Cyrillic or Latin letter.
var cellLetterPattern = regexp.MustCompile(`[A-Za-zА-Яа-яЁё]`)

// Tables finds tabular blocks in document text. Two sweeps run in order:
// captioned "Таблица N" blocks first, then any remaining run of at least
// minPipeRun consecutive pipe-delimited lines (auto-numbered). A pipe run
// that begins inside a captioned match is not reported twice, but a run
// that only partially overlaps one can still produce a second entry —
// the sweeps are deliberately independent and no dedup pass follows.
func Tables(content string) []Table {
	var tables []Table

	// Sweep 1: captioned tables.
	captionedSpans := captionedTablePattern.FindAllStringSubmatchIndex(content, -1)
	for _, m := range captionedSpans {
		number := content[m[2]:m[3]]
		title := ""
		if m[4] >= 0 {
			title = strings.TrimSpace(content[m[4]:m[5]])
		}
		block := content[m[6]:m[7]]

		headers, rows := parseTableBlock(block)
		if len(headers) == 0 && len(rows) == 0 {
			continue
		}
		tables = append(tables, newTable(len(tables), number, title, headers, rows, lineNumber(content, m[0])))
	}

	// Sweep 2: uncaptioned pipe runs.
	for _, run := range pipeRuns(content) {
		if insideAnySpan(run.start, captionedSpans) {
			continue
		}
		headers, rows := parseTableBlock(run.text)
		if len(headers) == 0 && len(rows) == 0 {
			continue
		}
		tables = append(tables, newTable(len(tables), strconv.Itoa(len(tables)+1), "", headers, rows, run.line))
	}

	return tables
}

func newTable(index int, number, title string, headers []string, rows [][]string, sourceLine int) Table {
	tableType := "simple"
	if len(headers) > 0 {
		tableType = "structured"
	}
	columns := len(headers)
	if columns == 0 && len(rows) > 0 {
		columns = len(rows[0])
	}
	return Table{
		ID:      fmt.Sprintf("table_%d", index+1),
		Number:  number,
		Title:   title,
		Headers: headers,
		Rows:    rows,
		Meta: TableMeta{
			SourceLine:  sourceLine,
			TableType:   tableType,
			ColumnCount: columns,
			RowCount:    len(rows),
		},
	}
}

// parseTableBlock splits a pipe-delimited block into a header row and
// data rows. The first parsed line becomes the header only when it
// carries alphabetic content; numeric-only first lines mean the table
// has no header and every line is data.
func parseTableBlock(block string) (headers []string, rows [][]string) {
	for _, line := range strings.Split(block, "\n") {
		cells := parseTableRow(line)
		if len(cells) == 0 {
			continue
		}
		if headers == nil && rows == nil && rowHasLetters(cells) {
			headers = cells
			continue
		}
		rows = append(rows, cells)
	}
	return headers, rows
}

// parseTableRow strips the outer pipes, splits on the inner ones, and
// drops empty cells.
func parseTableRow(line string) []string {
	line = strings.TrimSpace(line)
	if !strings.Contains(line, "|") {
		return nil
	}
	line = strings.Trim(line, "|")
	var cells []string
	for _, cell := range strings.Split(line, "|") {
		cell = strings.TrimSpace(cell)
		if cell != "" {
			cells = append(cells, cell)
		}
	}
	return cells
}

func rowHasLetters(cells []string) bool {
	for _, c := range cells {
		if cellLetterPattern.MatchString(c) {
			return true
		}
	}
	return false
}

// pipeRun is a contiguous block of pipe-containing lines.
type pipeRun struct {
	text  string
	start int // byte offset of the first line
	line  int // zero-based line index of the first line
}

func pipeRuns(content string) []pipeRun {
	lines := strings.Split(content, "\n")
	var runs []pipeRun

	offset := 0
	i := 0
	for i < len(lines) {
		if !strings.Contains(lines[i], "|") {
			offset += len(lines[i]) + 1
			i++
			continue
		}
		startLine := i
		startOffset := offset
		for i < len(lines) && strings.Contains(lines[i], "|") {
			offset += len(lines[i]) + 1
			i++
		}
		if i-startLine >= minPipeRun {
			runs = append(runs, pipeRun{
				text:  strings.Join(lines[startLine:i], "\n"),
				start: startOffset,
				line:  startLine,
			})
		}
	}
	return runs
}

func insideAnySpan(pos int, spans [][]int) bool {
	for _, s := range spans {
		if pos >= s[0] && pos < s[1] {
			return true
		}
	}
	return false
}

// lineNumber converts a byte offset into a zero-based line index.
func lineNumber(content string, offset int) int {
	return strings.Count(content[:offset], "\n")
}
