package extract

import (
	"regexp"
	"strings"
)

// standardRefPattern matches references to Russian construction
// standards: "ГОСТ 30494-2011", "СП 50.13330", "СНиП 23-02-2003".
var standardRefPattern = regexp.MustCompile(`(?i)(?:ГОСТ|СП|СНиП)\s+[\d.\-]+`)

// measurementPattern matches unit-bearing numeric values. Longer unit
// names come first so "мм" is not consumed as "м".
var measurementPattern = regexp.MustCompile(`\d+(?:[.,]\d+)?\s*(?:МПа|°C|мм|см|км|кг|м²|т|м)`)

// Keywords collects standard references and measurements from text,
// de-duplicated in first-seen order and capped at limit.
func Keywords(text string, limit int) []string {
	seen := make(map[string]bool)
	keywords := make([]string, 0, limit)

	add := func(kw string) {
		kw = strings.TrimSpace(kw)
		key := strings.ToLower(kw)
		if kw == "" || seen[key] || len(keywords) >= limit {
			return
		}
		seen[key] = true
		keywords = append(keywords, kw)
	}

	for _, m := range standardRefPattern.FindAllString(text, -1) {
		add(strings.TrimRight(m, ".-"))
	}
	for _, m := range measurementPattern.FindAllString(text, -1) {
		add(m)
	}
	return keywords
}
