package normalize

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

const (
	DefaultShoutingRatio   = 0.7
	DefaultRepeatThreshold = 3
)

// Config controls normalization thresholds.
type Config struct {
	// ShoutingRatio is the uppercase/letters ratio a line must exceed to be rewritten.
	ShoutingRatio float64
	// RepeatThreshold drops lines occurring at least this many times. Zero disables it.
	RepeatThreshold int
	// ExtraAcronyms are preserved in addition to the built-in list.
	ExtraAcronyms []string
}

// DefaultConfig returns the thresholds tuned for PJe exports.
func DefaultConfig() Config {
	return Config{
		ShoutingRatio:   DefaultShoutingRatio,
		RepeatThreshold: DefaultRepeatThreshold,
	}
}

// Normalizer cleans raw extracted text. It is safe for concurrent use.
type Normalizer struct {
	ratio     float64
	threshold int
	acronyms  map[string]struct{}
}

// New creates a Normalizer from cfg.
func New(cfg Config) *Normalizer {
	if cfg.ShoutingRatio <= 0 || cfg.ShoutingRatio >= 1 {
		cfg.ShoutingRatio = DefaultShoutingRatio
	}
	if cfg.RepeatThreshold < 0 {
		cfg.RepeatThreshold = 0
	}
	acronyms := make(map[string]struct{}, len(legalAcronyms)+len(cfg.ExtraAcronyms))
	for _, a := range legalAcronyms {
		acronyms[a] = struct{}{}
	}
	for _, a := range cfg.ExtraAcronyms {
		acronyms[strings.ToUpper(strings.TrimSpace(a))] = struct{}{}
	}
	return &Normalizer{
		ratio:     cfg.ShoutingRatio,
		threshold: cfg.RepeatThreshold,
		acronyms:  acronyms,
	}
}

// Normalize returns the cleaned text. Paragraphs (blank-line separated blocks)
// keep their boundaries; empty input yields empty output.
func (n *Normalizer) Normalize(raw string) string {
	if strings.TrimSpace(raw) == "" {
		return ""
	}

	raw = strings.NewReplacer("\r\n", "\n", "\r", "\n", "\f", "\n\n").Replace(raw)

	var paragraphs [][]string
	var current []string
	counts := make(map[string]int)

	flush := func() {
		if len(current) > 0 {
			paragraphs = append(paragraphs, current)
			current = nil
		}
	}

	for _, line := range strings.Split(raw, "\n") {
		if strings.TrimSpace(line) == "" {
			flush()
			continue
		}
		cleaned, ok := n.cleanLine(line)
		if !ok {
			continue
		}
		counts[cleaned]++
		current = append(current, cleaned)
	}
	flush()

	out := make([]string, 0, len(paragraphs))
	for _, para := range paragraphs {
		kept := para[:0]
		for _, line := range para {
			if n.threshold > 0 && counts[line] >= n.threshold {
				continue
			}
			kept = append(kept, line)
		}
		if len(kept) > 0 {
			out = append(out, strings.Join(kept, "\n"))
		}
	}
	return strings.Join(out, "\n\n")
}

// cleanLine strips noise, collapses whitespace and fixes shouting.
// ok is false when the line must be dropped.
func (n *Normalizer) cleanLine(line string) (string, bool) {
	for _, re := range inlineNoise {
		line = re.ReplaceAllString(line, " ")
	}
	line = strings.TrimSpace(spaceRunPattern.ReplaceAllString(line, " "))
	if line == "" {
		return "", false
	}
	for _, re := range lineNoise {
		if re.MatchString(line) {
			return "", false
		}
	}
	if n.IsShouting(line) {
		line = n.sentenceCase(line)
	}
	return line, true
}

// IsShouting reports whether the share of uppercase letters exceeds the ratio.
// Lines without letters are never shouting.
func (n *Normalizer) IsShouting(line string) bool {
	letters, upper := 0, 0
	for _, r := range line {
		if !unicode.IsLetter(r) {
			continue
		}
		letters++
		if unicode.IsUpper(r) {
			upper++
		}
	}
	if letters == 0 {
		return false
	}
	return float64(upper)/float64(letters) > n.ratio
}

type span struct{ start, end int }

// protectedSpans returns byte ranges that keep their original case.
func (n *Normalizer) protectedSpans(line string) []span {
	var spans []span
	for _, loc := range wordPattern.FindAllStringIndex(line, -1) {
		if _, ok := n.acronyms[line[loc[0]:loc[1]]]; ok {
			spans = append(spans, span{loc[0], loc[1]})
		}
	}
	for _, loc := range oabStatePattern.FindAllStringIndex(line, -1) {
		spans = append(spans, span{loc[0], loc[1]})
	}
	if m := romanMarkerPattern.FindStringSubmatchIndex(line); m != nil && m[3] > m[2] {
		spans = append(spans, span{m[2], m[3]})
	}
	return spans
}

func (n *Normalizer) sentenceCase(line string) string {
	spans := n.protectedSpans(line)
	inSpan := func(i int) bool {
		for _, s := range spans {
			if i >= s.start && i < s.end {
				return true
			}
		}
		return false
	}

	var b strings.Builder
	b.Grow(len(line))
	capNext := true
	for i := 0; i < len(line); {
		r, size := utf8.DecodeRuneInString(line[i:])
		switch {
		case unicode.IsLetter(r):
			switch {
			case inSpan(i):
			case capNext:
				r = unicode.ToUpper(r)
			default:
				r = unicode.ToLower(r)
			}
			capNext = false
		case r == '.' || r == '!' || r == '?':
			next, _ := utf8.DecodeRuneInString(line[i+size:])
			if i+size >= len(line) || unicode.IsSpace(next) {
				capNext = true
			}
		case unicode.IsDigit(r):
			capNext = false
		}
		b.WriteRune(r)
		i += size
	}
	return b.String()
}

// RemovePageMarkers drops page counter lines ("Página 3 de 10", "--- PÁGINA 3 ---")
// and leaves everything else untouched.
func RemovePageMarkers(text string) string {
	lines := strings.Split(text, "\n")
	kept := lines[:0]
	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		marker := false
		for _, re := range pageMarkers {
			if trimmed != "" && re.MatchString(trimmed) {
				marker = true
				break
			}
		}
		if !marker {
			kept = append(kept, line)
		}
	}
	return strings.Join(kept, "\n")
}

// JoinHyphenation rejoins words split across lines ("contes-\ntação").
func JoinHyphenation(text string) string {
	return hyphenBreakPattern.ReplaceAllString(text, "$1$2")
}
