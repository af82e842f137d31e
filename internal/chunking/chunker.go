package chunking

import (
	"unicode"
	"unicode/utf8"

	"github.com/timmy/lexpdf/internal/apperror"
	"github.com/timmy/lexpdf/internal/domain"
)

// Absolute bounds for every size argument, in runes.
const (
	MinSize = 10
	MaxSize = 1_000_000
)

// Limits bound the size of produced chunks.
type Limits struct {
	Target int
	Min    int
	Max    int
}

// Validate checks the limits and returns them with Target clamped to [Min, Max].
func (l Limits) Validate() (Limits, error) {
	inRange := func(v int) bool { return v >= MinSize && v <= MaxSize }
	if !inRange(l.Min) || !inRange(l.Max) {
		return l, apperror.Configuration("chunk bounds must lie in [%d, %d], got min=%d max=%d", MinSize, MaxSize, l.Min, l.Max)
	}
	if l.Min > l.Max {
		return l, apperror.Configuration("chunk min %d exceeds max %d", l.Min, l.Max)
	}
	if !inRange(l.Target) {
		return l, apperror.Configuration("chunk size must lie in [%d, %d], got %d", MinSize, MaxSize, l.Target)
	}
	if l.Target < l.Min {
		l.Target = l.Min
	}
	if l.Target > l.Max {
		l.Target = l.Max
	}
	return l, nil
}

type span struct{ start, end int }

// Chunk splits clean into paragraph-aligned chunks of about target runes.
// Chunk text is always clean[Start:End] and only whitespace is left between chunks.
func Chunk(clean string, meta domain.DocumentMetadata, target, min, max int) ([]domain.Chunk, error) {
	limits, err := Limits{Target: target, Min: min, Max: max}.Validate()
	if err != nil {
		return nil, err
	}

	var pieces []span
	for _, p := range paragraphs(clean) {
		if utf8.RuneCountInString(clean[p.start:p.end]) > limits.Max {
			pieces = append(pieces, hardSplit(clean, p, limits.Max)...)
			continue
		}
		pieces = append(pieces, p)
	}

	chunks := make([]domain.Chunk, 0, len(pieces))
	emit := func(s span) {
		chunks = append(chunks, domain.Chunk{
			Index:    len(chunks),
			Text:     clean[s.start:s.end],
			Start:    s.start,
			End:      s.end,
			Metadata: meta.Clone(),
		})
	}

	var current *span
	for _, p := range pieces {
		if current == nil {
			c := p
			current = &c
			continue
		}
		if utf8.RuneCountInString(clean[current.start:p.end]) <= limits.Target {
			current.end = p.end
			continue
		}
		emit(*current)
		c := p
		current = &c
	}
	if current != nil {
		emit(*current)
	}
	return chunks, nil
}

// paragraphs returns maximal blocks of non-blank lines, trimmed of surrounding whitespace.
func paragraphs(text string) []span {
	var out []span
	open := false
	var cur span

	lineStart := 0
	for lineStart <= len(text) {
		lineEnd := lineStart
		for lineEnd < len(text) && text[lineEnd] != '\n' {
			lineEnd++
		}
		s, e := trim(text, lineStart, lineEnd)
		if s < e {
			if !open {
				cur = span{start: s}
				open = true
			}
			cur.end = e
		} else if open {
			out = append(out, cur)
			open = false
		}
		lineStart = lineEnd + 1
	}
	if open {
		out = append(out, cur)
	}
	return out
}

// hardSplit cuts an oversized paragraph into pieces of at most max runes,
// preferring sentence ends, then whitespace, then a plain rune boundary.
func hardSplit(text string, p span, max int) []span {
	var out []span
	pos := p.start
	for pos < p.end {
		limit := advance(text, pos, p.end, max)
		if limit >= p.end {
			out = append(out, span{pos, p.end})
			break
		}

		cut := sentenceCut(text, pos, limit)
		if cut <= pos {
			cut = spaceCut(text, pos, limit)
		}
		if cut <= pos {
			cut = limit
		}

		s, e := trim(text, pos, cut)
		if s < e {
			out = append(out, span{s, e})
		}
		pos = cut
		for pos < p.end {
			r, size := utf8.DecodeRuneInString(text[pos:])
			if !unicode.IsSpace(r) {
				break
			}
			pos += size
		}
	}
	return out
}

// sentenceCut returns the byte index just past the last sentence terminator in
// text[from:limit] that is followed by whitespace, or -1.
func sentenceCut(text string, from, limit int) int {
	for i := limit - 1; i >= from; i-- {
		switch text[i] {
		case '.', '!', '?':
			if i+1 < len(text) && i+1 <= limit && isSpaceByte(text[i+1]) {
				return i + 1
			}
		}
	}
	return -1
}

// spaceCut returns the index of the last whitespace in text[from:limit], or -1.
func spaceCut(text string, from, limit int) int {
	for i := limit - 1; i > from; i-- {
		if isSpaceByte(text[i]) {
			return i
		}
	}
	return -1
}

// advance returns the byte index n runes after from, capped at end.
func advance(text string, from, end, n int) int {
	i := from
	for count := 0; count < n && i < end; count++ {
		_, size := utf8.DecodeRuneInString(text[i:])
		i += size
	}
	return i
}

func trim(text string, start, end int) (int, int) {
	for start < end {
		r, size := utf8.DecodeRuneInString(text[start:end])
		if !unicode.IsSpace(r) {
			break
		}
		start += size
	}
	for end > start {
		r, size := utf8.DecodeLastRuneInString(text[start:end])
		if !unicode.IsSpace(r) {
			break
		}
		end -= size
	}
	return start, end
}

func isSpaceByte(b byte) bool {
	return b == ' ' || b == '\t' || b == '\n' || b == '\r'
}
