package chunker

import (
	"strings"
	"unicode/utf8"

	"semkb/internal/adapter/analyzer"
	"semkb/internal/domain"
)

// SemanticChunker splits document text into token-bounded segments
// whose boundaries fall on paragraph breaks first, sentence breaks
// second, and word breaks only when a single sentence exceeds the
// bound. Segments are exact substrings of the source tiling it end to
// end, so offsets are literal and concatenating segment texts
// reconstructs the document.
type SemanticChunker struct {
	maxTokens int
}

// NewSemanticChunker creates a chunker with the given token bound per
// segment.
func NewSemanticChunker(maxTokens int) *SemanticChunker {
	if maxTokens <= 0 {
		maxTokens = 512
	}
	return &SemanticChunker{maxTokens: maxTokens}
}

// span is a half-open [start, end) byte range of the source text.
type span struct {
	start, end int
	words      int
}

// Chunk splits text into segments. All-whitespace input returns
// domain.ErrEmptyDocument so callers can tell an empty document from
// an I/O failure.
func (c *SemanticChunker) Chunk(text string) ([]domain.Segment, error) {
	if strings.TrimSpace(text) == "" {
		return nil, domain.ErrEmptyDocument
	}

	var units []span
	for _, p := range paragraphSpans(text) {
		units = append(units, c.refine(text, p)...)
	}

	var segments []domain.Segment
	cur := span{start: units[0].start, end: units[0].start}
	for _, u := range units {
		if cur.words > 0 && analyzer.EstimateTokens(cur.words+u.words) > c.maxTokens {
			segments = append(segments, segmentFrom(text, cur))
			cur = span{start: u.start, end: u.start}
		}
		cur.end = u.end
		cur.words += u.words
	}
	if cur.end > cur.start {
		segments = append(segments, segmentFrom(text, cur))
	}

	return segments, nil
}

func segmentFrom(text string, s span) domain.Segment {
	return domain.Segment{
		Text:       text[s.start:s.end],
		Offset:     s.start,
		TokenCount: analyzer.EstimateTokens(s.words),
	}
}

// refine breaks a paragraph down until every unit fits the bound.
func (c *SemanticChunker) refine(text string, p span) []span {
	p.words = analyzer.CountWords(text[p.start:p.end])
	if analyzer.EstimateTokens(p.words) <= c.maxTokens {
		return []span{p}
	}

	maxWords := int(float64(c.maxTokens) / 1.3)
	if maxWords < 1 {
		maxWords = 1
	}

	var units []span
	for _, s := range sentenceSpans(text, p) {
		s.words = analyzer.CountWords(text[s.start:s.end])
		if analyzer.EstimateTokens(s.words) <= c.maxTokens {
			units = append(units, s)
			continue
		}
		for _, w := range wordSpans(text, s, maxWords) {
			w.words = analyzer.CountWords(text[w.start:w.end])
			units = append(units, w)
		}
	}
	return units
}

// paragraphSpans tiles text into paragraphs, cutting after each blank
// line run. Separators stay attached to the preceding paragraph.
func paragraphSpans(text string) []span {
	var spans []span
	start := 0
	i := 0
	for i < len(text) {
		if text[i] != '\n' {
			i++
			continue
		}
		j := i
		newlines := 0
		for j < len(text) && (text[j] == '\n' || text[j] == '\r') {
			if text[j] == '\n' {
				newlines++
			}
			j++
		}
		if newlines >= 2 && j < len(text) {
			spans = append(spans, span{start: start, end: j})
			start = j
		}
		i = j
	}
	if start < len(text) {
		spans = append(spans, span{start: start, end: len(text)})
	}
	return spans
}

// sentenceSpans tiles a paragraph into sentences. A boundary is a run
// of sentence punctuation followed by whitespace; the whitespace stays
// attached to the preceding sentence.
func sentenceSpans(text string, p span) []span {
	var spans []span
	start := p.start
	i := p.start
	for i < p.end {
		ch := text[i]
		if ch != '.' && ch != '!' && ch != '?' {
			i++
			continue
		}
		j := i + 1
		for j < p.end && (text[j] == '.' || text[j] == '!' || text[j] == '?') {
			j++
		}
		k := j
		for k < p.end && isSpaceByte(text[k]) {
			k++
		}
		if k > j && k < p.end {
			spans = append(spans, span{start: start, end: k})
			start = k
		}
		i = k
	}
	if start < p.end {
		spans = append(spans, span{start: start, end: p.end})
	}
	return spans
}

// wordSpans hard-splits an oversized sentence at whitespace boundaries
// every maxWords words.
func wordSpans(text string, s span, maxWords int) []span {
	var spans []span
	start := s.start
	words := 0
	inWord := false
	for i := s.start; i < s.end; {
		r, size := utf8.DecodeRuneInString(text[i:s.end])
		if analyzer.IsWordRune(r) {
			if !inWord {
				if words == maxWords && i > start {
					spans = append(spans, span{start: start, end: i})
					start = i
					words = 0
				}
				words++
				inWord = true
			}
		} else {
			inWord = false
		}
		i += size
	}
	if start < s.end {
		spans = append(spans, span{start: start, end: s.end})
	}
	return spans
}

func isSpaceByte(b byte) bool {
	return b == ' ' || b == '\t' || b == '\n' || b == '\r'
}
