package chunker

import (
	"math"
	"strings"
	"unicode/utf8"

	"github.com/avolkhin/normdoc/extract"
)

// structuralMarkers are cheap cues that a chunk carries enumerated or
// itemized content.
var structuralMarkers = []string{"1.", "2.", "а)", "б)", "-", "•"}

// ChunkQuality scores a chunk's retrieval usefulness on [0,1]. The
// score starts at 0.5 and moves with length, technical-term density,
// structural markers and table presence. Very short fragments are
// penalized.
func ChunkQuality(text string) float64 {
	score := 0.5
	n := utf8.RuneCountInString(text)

	switch {
	case n >= 300 && n <= 800:
		score += 0.2
	case (n >= 200 && n < 300) || (n > 800 && n <= 1000):
		score += 0.1
	}

	terms := len(technicalTermPattern.FindAllString(text, -1))
	score += math.Min(float64(terms)*0.05, 0.2)

	for _, marker := range structuralMarkers {
		if strings.Contains(text, marker) {
			score += 0.1
			break
		}
	}

	if strings.Contains(text, "|") || strings.Contains(text, "Таблица") {
		score += 0.1
	}

	if n < 50 {
		score -= 0.3
	}

	return clamp01(score)
}

// AverageQuality is the arithmetic mean of the chunks' quality scores,
// 0 when there are no chunks.
func AverageQuality(chunks []Chunk) float64 {
	if len(chunks) == 0 {
		return 0
	}
	var sum float64
	for _, ch := range chunks {
		sum += ch.QualityScore
	}
	return sum / float64(len(chunks))
}

// StructureQuality summarizes how much hierarchy was recovered from a
// document: section count, level diversity and table count each
// contribute on top of the 0.5 base.
func StructureQuality(sections []extract.Section, tables []extract.Table) float64 {
	score := 0.5

	score += math.Min(float64(len(sections))*0.02, 0.3)

	levels := make(map[int]bool)
	for _, s := range sections {
		levels[s.Level] = true
	}
	if len(levels) >= 2 {
		score += 0.1
	}

	score += math.Min(float64(len(tables))*0.05, 0.2)

	return clamp01(score)
}

// ChunkingQuality is the average chunk quality plus a small bonus for
// chunk-type diversity.
func ChunkingQuality(chunks []Chunk) float64 {
	types := make(map[string]bool)
	for _, ch := range chunks {
		types[ch.Type] = true
	}
	score := AverageQuality(chunks) + math.Min(float64(len(types))*0.05, 0.15)
	return clamp01(score)
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
