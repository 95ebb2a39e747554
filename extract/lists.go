package extract

import (
	"fmt"
	"regexp"
	"strings"
)

// listSweeps detect contiguous runs of marker lines. A run needs at
// least two consecutive lines: a lone "1. ..." line is a heading, not a
// one-item list. Each sweep runs independently over the whole text.
var listSweeps = []struct {
	listType string
	block    *regexp.Regexp
	marker   *regexp.Regexp
}{
	{
		listType: "bulleted",
		block:    regexp.MustCompile(`(?m)^[-•*]\s+.+(?:\n[-•*]\s+.+)+`),
		marker:   regexp.MustCompile(`^[-•*]\s+`),
	},
	{
		listType: "numbered",
		block:    regexp.MustCompile(`(?m)^\d+\.\s+.+(?:\n\d+\.\s+.+)+`),
		marker:   regexp.MustCompile(`^\d+\.\s+`),
	},
	{
		listType: "lettered",
		block:    regexp.MustCompile(`(?m)^[а-яё]\)\s+.+(?:\n[а-яё]\)\s+.+)+`),
		marker:   regexp.MustCompile(`^[а-яё]\)\s+`),
	},
}

// Lists finds bulleted, numbered and lettered list blocks. Nested lists
// are not detected; every block comes back with Level 1.
func Lists(content string) []List {
	var lists []List
	for _, sweep := range listSweeps {
		for _, loc := range sweep.block.FindAllStringIndex(content, -1) {
			items := listItems(content[loc[0]:loc[1]], sweep.marker)
			if len(items) == 0 {
				continue
			}
			lists = append(lists, List{
				ID:    fmt.Sprintf("list_%d", len(lists)+1),
				Type:  sweep.listType,
				Items: items,
				Level: 1,
				Meta: ListMeta{
					SourceLine: lineNumber(content, loc[0]),
					ItemCount:  len(items),
				},
			})
		}
	}
	return lists
}

// listItems strips the marker from each line of a block and drops
// blanks.
func listItems(block string, marker *regexp.Regexp) []string {
	var items []string
	for _, line := range strings.Split(block, "\n") {
		line = strings.TrimSpace(marker.ReplaceAllString(strings.TrimSpace(line), ""))
		if line != "" {
			items = append(items, line)
		}
	}
	return items
}
