package services

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/semdex/semdex/internal/core/domain"
)

// maxSnippetLen caps how much chunk content the text formatter prints.
const maxSnippetLen = 500

// FormatText renders results for terminal output, one block per result.
// withScores adds the similarity next to the rank.
func FormatText(results []domain.SearchResult, withScores bool) string {
	if len(results) == 0 {
		return "No results found.\n"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Found %d result(s):\n\n", len(results))
	for i, r := range results {
		if withScores {
			fmt.Fprintf(&b, "%d. [%.4f] %s (chunk %d)\n", i+1, r.Similarity, r.Document.Source, r.Chunk.Index+1)
		} else {
			fmt.Fprintf(&b, "%d. %s (chunk %d)\n", i+1, r.Document.Source, r.Chunk.Index+1)
		}

		snippet := r.Chunk.Content
		if runes := []rune(snippet); len(runes) > maxSnippetLen {
			snippet = string(runes[:maxSnippetLen]) + "..."
		}
		b.WriteString("   " + strings.ReplaceAll(snippet, "\n", "\n   "))
		b.WriteString("\n\n")
	}
	return b.String()
}

// FormatJSON renders results as an indented JSON array.
func FormatJSON(results []domain.SearchResult) (string, error) {
	if results == nil {
		results = []domain.SearchResult{}
	}
	out, err := json.MarshalIndent(results, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encoding results: %w", err)
	}
	return string(out) + "\n", nil
}

// FormatCSV renders results as CSV with a header row.
func FormatCSV(results []domain.SearchResult) (string, error) {
	var b strings.Builder
	w := csv.NewWriter(&b)

	if err := w.Write([]string{"rank", "similarity", "source", "chunk_index", "content"}); err != nil {
		return "", fmt.Errorf("writing header: %w", err)
	}

	for i, r := range results {
		record := []string{
			strconv.Itoa(i + 1),
			fmt.Sprintf("%.6f", r.Similarity),
			r.Document.Source,
			strconv.Itoa(r.Chunk.Index + 1),
			r.Chunk.Content,
		}
		if err := w.Write(record); err != nil {
			return "", fmt.Errorf("writing record %d: %w", i+1, err)
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return "", fmt.Errorf("flushing output: %w", err)
	}
	return b.String(), nil
}
