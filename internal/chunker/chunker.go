// Package chunker splits document text into chunks for embedding generation.
// Both strategies operate over user-perceived characters (grapheme clusters),
// never raw bytes, so multi-byte characters are never split.
package chunker

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/rivo/uniseg"
)

// DefaultSize is the default number of characters per chunk.
const DefaultSize = 512

// DefaultOverlap is the default number of overlapping characters.
const DefaultOverlap = 50

// Kind selects a chunking strategy.
type Kind int

const (
	// KindFixed produces fixed-size windows with overlap.
	KindFixed Kind = iota

	// KindSemantic packs sentences up to a maximum size, splitting on
	// paragraph and sentence boundaries.
	KindSemantic
)

// Strategy describes how text is split. Strategies are pure and
// deterministic; any input string is accepted.
type Strategy struct {
	Kind Kind

	// Size and Overlap apply to KindFixed.
	Size    int
	Overlap int

	// MaxSize applies to KindSemantic.
	MaxSize int
}

// FixedSize returns a fixed-window strategy.
func FixedSize(size, overlap int) Strategy {
	return Strategy{Kind: KindFixed, Size: size, Overlap: overlap}
}

// Semantic returns a sentence-packing strategy.
func Semantic(maxSize int) Strategy {
	return Strategy{Kind: KindSemantic, MaxSize: maxSize}
}

// Split chunks text according to the strategy.
func Split(text string, strategy Strategy) []string {
	if strategy.Kind == KindSemantic {
		return splitSemantic(text, strategy.MaxSize)
	}
	return splitFixed(text, strategy.Size, strategy.Overlap)
}

// splitFixed produces successive windows of size graphemes, advancing by
// size-overlap each step. All-whitespace windows are dropped.
func splitFixed(text string, size, overlap int) []string {
	if text == "" {
		return nil
	}

	if size <= overlap {
		// Degenerate configuration: stepping would be zero or negative,
		// so the whole text becomes a single chunk.
		return []string{text}
	}

	clusters := graphemes(text)
	step := size - overlap

	var chunks []string
	for start := 0; start < len(clusters); start += step {
		end := start + size
		if end > len(clusters) {
			end = len(clusters)
		}

		chunk := strings.Join(clusters[start:end], "")
		if strings.TrimSpace(chunk) != "" {
			chunks = append(chunks, chunk)
		}

		if end == len(clusters) {
			break
		}
	}

	return chunks
}

// splitSemantic splits text on blank-line paragraph boundaries, then on
// sentence boundaries, and greedily packs sentences into chunks of at most
// maxSize characters. A single sentence longer than maxSize is re-split with
// the fixed strategy using an overlap of maxSize/10.
func splitSemantic(text string, maxSize int) []string {
	if text == "" {
		return nil
	}

	var chunks []string
	var current string

	for _, paragraph := range strings.Split(text, "\n\n") {
		paragraph = strings.TrimSpace(paragraph)
		if paragraph == "" {
			continue
		}

		for _, sentence := range splitSentences(paragraph) {
			sentenceLen := uniseg.GraphemeClusterCount(sentence)
			currentLen := uniseg.GraphemeClusterCount(current)

			if currentLen > 0 && currentLen+sentenceLen > maxSize {
				if strings.TrimSpace(current) != "" {
					chunks = append(chunks, strings.TrimSpace(current))
				}
				current = sentence
			} else {
				if current != "" {
					current += " "
				}
				current += sentence
			}

			if uniseg.GraphemeClusterCount(current) > maxSize {
				for _, chunk := range splitFixed(current, maxSize, maxSize/10) {
					if strings.TrimSpace(chunk) != "" {
						chunks = append(chunks, chunk)
					}
				}
				current = ""
			}
		}

		// Keep the paragraph break visible inside a packed chunk.
		if current != "" && !strings.HasSuffix(current, "\n") {
			current += "\n"
		}
	}

	if strings.TrimSpace(current) != "" {
		chunks = append(chunks, strings.TrimSpace(current))
	}

	return chunks
}

// splitSentences splits text at '.', '!', or '?' immediately followed by
// whitespace or end-of-text. Returned sentences are trimmed; blank segments
// are dropped.
func splitSentences(text string) []string {
	var sentences []string
	start := 0

	gr := uniseg.NewGraphemes(text)
	for gr.Next() {
		g := gr.Str()
		if g != "." && g != "!" && g != "?" {
			continue
		}

		_, end := gr.Positions()
		if end < len(text) {
			r, _ := utf8.DecodeRuneInString(text[end:])
			if !unicode.IsSpace(r) {
				continue
			}
		}

		if sentence := strings.TrimSpace(text[start:end]); sentence != "" {
			sentences = append(sentences, sentence)
		}
		start = end
	}

	if start < len(text) {
		if rest := strings.TrimSpace(text[start:]); rest != "" {
			sentences = append(sentences, rest)
		}
	}

	return sentences
}

// graphemes returns the text's grapheme clusters in order.
func graphemes(text string) []string {
	clusters := make([]string, 0, len(text))
	gr := uniseg.NewGraphemes(text)
	for gr.Next() {
		clusters = append(clusters, gr.Str())
	}
	return clusters
}
