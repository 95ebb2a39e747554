package normdoc

import (
	"strings"
	"testing"
)

// ---------------------------------------------------------------------------
// Snippet extraction tests
// ---------------------------------------------------------------------------

func TestExtractSnippetPicksBestSentence(t *testing.T) {
	content := "Первое предложение о монтаже конструкций. " +
		"Класс бетона по прочности принимают не ниже В15. " +
		"Завершающее предложение о приёмке работ."
	query := significantWords("класс бетона прочность")

	got := extractSnippet(content, query)
	if !strings.Contains(got, "Класс бетона по прочности") {
		t.Errorf("snippet = %q, want the sentence about concrete class", got)
	}
}

func TestExtractSnippetAddsAdjacentSentence(t *testing.T) {
	content := "Требования к бетону приведены ниже. " +
		"Класс бетона принимают не ниже В15."
	query := significantWords("требования к бетону класс")

	got := extractSnippet(content, query)
	if !strings.Contains(got, "Требования к бетону") ||
		!strings.Contains(got, "Класс бетона") {
		t.Errorf("snippet = %q, want both adjacent sentences", got)
	}
	if len(got) > snippetMaxLen {
		t.Errorf("snippet length = %d, want <= %d", len(got), snippetMaxLen)
	}
}

func TestExtractSnippetNoOverlap(t *testing.T) {
	content := "Предложение о монтаже конструкций на объекте."
	query := significantWords("гидроизоляция фундаментов")

	if got := extractSnippet(content, query); got != "" {
		t.Errorf("snippet = %q, want empty when nothing matches", got)
	}
}

func TestExtractSnippetEmptyInputs(t *testing.T) {
	if got := extractSnippet("", significantWords("бетон")); got != "" {
		t.Errorf("snippet = %q, want empty for empty content", got)
	}
	if got := extractSnippet("Текст о бетоне.", nil); got != "" {
		t.Errorf("snippet = %q, want empty for empty query", got)
	}
}

// ---------------------------------------------------------------------------
// Word significance tests
// ---------------------------------------------------------------------------

func TestSignificantWords(t *testing.T) {
	words := significantWords("Класс бетона, если он не ниже В15!")

	if !words["класс"] || !words["бетона"] {
		t.Errorf("words = %v, want lowercased content words", words)
	}
	if words["не"] || words["он"] {
		t.Error("words shorter than 4 runes should be excluded")
	}
	if words["если"] {
		t.Error("stop words should be excluded")
	}
	if words["ниже"] != true {
		t.Errorf("words = %v, want %q included", words, "ниже")
	}
}

func TestSignificantWordsSplitsOnPunctuation(t *testing.T) {
	words := significantWords("бетон,арматура;опалубка")
	for _, w := range []string{"бетон", "арматура", "опалубка"} {
		if !words[w] {
			t.Errorf("words = %v, want %q", words, w)
		}
	}
}

// ---------------------------------------------------------------------------
// Sentence splitting tests
// ---------------------------------------------------------------------------

func TestSnippetSplitSentences(t *testing.T) {
	got := snippetSplitSentences("Первое. Второе! Третье? Хвост без точки")
	want := []string{"Первое.", "Второе!", "Третье?", "Хвост без точки"}

	if len(got) != len(want) {
		t.Fatalf("got %d sentences %q, want %d", len(got), got, len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("sentences[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestSnippetSplitSentencesKeepsDecimalNumbers(t *testing.T) {
	// A period inside a number is not followed by whitespace, so it does
	// not end the sentence.
	got := snippetSplitSentences("Толщина слоя 1.5 мм по нормам.")
	if len(got) != 1 {
		t.Fatalf("got %d sentences %q, want 1", len(got), got)
	}
}

func TestSnippetSplitSentencesEmpty(t *testing.T) {
	if got := snippetSplitSentences(""); got != nil {
		t.Errorf("got %q, want nil", got)
	}
	if got := snippetSplitSentences("   "); len(got) != 0 {
		t.Errorf("got %q, want no sentences for whitespace", got)
	}
}
