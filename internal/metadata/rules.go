package metadata

import (
	"regexp"
	"strings"
	"time"

	"github.com/timmy/lexpdf/internal/domain"
)

// cnj is the unified judicial numbering grammar NNNNNNN-DD.AAAA.J.TR.OOOO.
const cnj = `\d{7}-\d{2}\.\d{4}\.\d\.\d{2}\.\d{4}`

// ProcessNumberPattern matches a canonical process number anywhere in text.
var ProcessNumberPattern = regexp.MustCompile(`\b` + cnj + `\b`)

// rule pairs a pattern with the function that turns one match into a value.
type rule[T any] struct {
	pattern *regexp.Regexp
	extract func(m []string) (T, bool)
}

// first returns the value of the first rule that produces one.
func first[T any](text string, rules []rule[T]) (T, bool) {
	for _, r := range rules {
		for _, m := range r.pattern.FindAllStringSubmatch(text, -1) {
			if v, ok := r.extract(m); ok {
				return v, true
			}
		}
	}
	var zero T
	return zero, false
}

// all returns every value of the first rule that matches at least once,
// de-duplicated by key in first-seen order.
func all[T any](text string, rules []rule[T], key func(T) string) []T {
	for _, r := range rules {
		var out []T
		seen := make(map[string]struct{})
		for _, m := range r.pattern.FindAllStringSubmatch(text, -1) {
			v, ok := r.extract(m)
			if !ok {
				continue
			}
			k := key(v)
			if _, dup := seen[k]; dup {
				continue
			}
			seen[k] = struct{}{}
			out = append(out, v)
		}
		if len(out) > 0 {
			return out
		}
	}
	return nil
}

func group(i int) func(m []string) (string, bool) {
	return func(m []string) (string, bool) {
		v := cleanValue(m[i])
		return v, v != ""
	}
}

func cleanValue(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimRight(s, " ,;")
	return strings.Join(strings.Fields(s), " ")
}

var processNumberRules = []rule[string]{
	{regexp.MustCompile(`(?i)(?:processo|autos|proc\.)\s*(?:n[º°o.]*\s*)?:?\s*(` + cnj + `)`), group(1)},
	{regexp.MustCompile(`(?i)n[úu]mero(?:\s+do\s+processo)?\s*:?\s*(` + cnj + `)`), group(1)},
	{regexp.MustCompile(`\b(` + cnj + `)\b`), group(1)},
}

var documentIDPattern = regexp.MustCompile(`Num\.\s*(\d{6,})`)

var documentIDRules = []rule[string]{
	{documentIDPattern, group(1)},
}

var authorRules = []rule[string]{
	{regexp.MustCompile(`(?im)^[ \t]*(?:autora?|requerente|exequente|reclamante|impetrante|embargante|apelante)[ \t]*:[ \t]*(.+)$`), group(1)},
	{regexp.MustCompile(`(?im)^[ \t]*polo[ \t]+ativo[ \t]*:?[ \t]*\n?[ \t]*(.+)$`), group(1)},
}

var defendantRules = []rule[string]{
	{regexp.MustCompile(`(?im)^[ \t]*(?:réu|ré|requerid[oa]|executad[oa]|reclamad[oa]|impetrad[oa]|embargad[oa]|apelad[oa])[ \t]*:[ \t]*(.+)$`), group(1)},
	{regexp.MustCompile(`(?im)^[ \t]*polo[ \t]+passivo[ \t]*:?[ \t]*\n?[ \t]*(.+)$`), group(1)},
}

// lawyerName is lazy when it precedes the registration and greedy when it follows it,
// so the capture never spills past the name on either side.
const (
	lawyerName         = `(\p{Lu}[\p{L}'’]+(?:[ \t]+[\p{L}'’]+){0,7}?)`
	trailingLawyerName = `(\p{Lu}[\p{L}'’]+(?:[ \t]+[\p{L}'’]+){0,7})`
)

var lawyerRules = []rule[domain.Lawyer]{
	{
		regexp.MustCompile(lawyerName + `[ \t]*[,–—-][ \t]*OAB[ \t]*/?[ \t]*([A-Z]{2})[ \t]*(?:n[º°o.]*[ \t]*)?(\d[\d.]*\d|\d)`),
		func(m []string) (domain.Lawyer, bool) { return newLawyer(m[1], m[2], m[3]) },
	},
	{
		regexp.MustCompile(`OAB[ \t]*/?[ \t]*([A-Z]{2})[ \t]*(?:n[º°o.]*[ \t]*)?(\d[\d.]*\d|\d)[ \t]*[,–—-][ \t]*` + trailingLawyerName),
		func(m []string) (domain.Lawyer, bool) { return newLawyer(m[3], m[1], m[2]) },
	},
}

var honorifics = []string{"Dr.", "Dra.", "Dr", "Dra", "Advogado:", "Advogada:", "Advogado", "Advogada"}

func newLawyer(name, state, number string) (domain.Lawyer, bool) {
	name = cleanValue(name)
	for _, h := range honorifics {
		if strings.HasPrefix(name, h+" ") {
			name = strings.TrimSpace(strings.TrimPrefix(name, h))
			break
		}
	}
	if name == "" || number == "" {
		return domain.Lawyer{}, false
	}
	return domain.Lawyer{Name: name, State: strings.ToUpper(state), Number: number}, true
}

func validDate(m []string) (string, bool) {
	if _, err := time.Parse("02/01/2006", m[1]); err != nil {
		return "", false
	}
	return m[1], true
}

var signatureRules = []rule[string]{
	{regexp.MustCompile(`(?i)assinado\s+eletronicamente\b[^\n]*?\bem:?\s*(\d{2}/\d{2}/\d{4})`), validDate},
	{regexp.MustCompile(`(?i)assinado\s+(?:digitalmente\s+)?em:?\s*(\d{2}/\d{2}/\d{4})`), validDate},
	{regexp.MustCompile(`(?i)data\s+da\s+assinatura:?\s*(\d{2}/\d{2}/\d{4})`), validDate},
}

var courtRules = []rule[string]{
	{regexp.MustCompile(`(?i)\b((?:supremo\s+)?tribunal\s+(?:de\s+justiça|regional|superior|federal)[^\n]*)`), group(1)},
	{regexp.MustCompile(`(?i)\b(\d+[ªº°]?\s+vara\b[^\n]*)`), group(1)},
	{regexp.MustCompile(`(?i)\b(juízo\s+d[aeo]\b[^\n]*)`), group(1)},
	{regexp.MustCompile(`(?i)\b(juizado\s+especial\b[^\n]*)`), group(1)},
}

var caseValueRules = []rule[domain.Money]{
	{
		regexp.MustCompile(`(?i)valor\s+da\s+causa\s*:?\s*R\$\s*([\d.]+(?:,\d{1,2})?)`),
		func(m []string) (domain.Money, bool) {
			v, err := domain.ParseBRL(m[1])
			return v, err == nil
		},
	},
}

var sectionRules = []rule[string]{
	{regexp.MustCompile(`(?im)^[ \t]*(?:[IVXLC]+|\d+)[ \t]*[-–.)][ \t]*(d[aeoi]s?[ \t]+\p{L}[^\n]{0,80})$`), group(1)},
	{regexp.MustCompile(`(?im)^[ \t]*((?:dos|das|do|da)[ \t]+(?:fatos|direito|pedidos?|provas|preliminares?|mérito|tutela[^\n]{0,40}))[ \t]*$`), group(1)},
}

// documentTypes are evaluated top-down; the first keyword hit decides.
var documentTypes = []struct {
	docType domain.DocumentType
	pattern *regexp.Regexp
}{
	{domain.DocumentPetition, keywords("petição inicial", "excelentíssimo", "excelentissimo")},
	{domain.DocumentDecision, keywords("decisão", "sentença", "vistos")},
	{domain.DocumentCertificate, keywords("certidão", "certifico")},
}

// keywords matches any of words as a whole word, ignoring case.
func keywords(words ...string) *regexp.Regexp {
	quoted := make([]string, len(words))
	for i, w := range words {
		quoted[i] = regexp.QuoteMeta(w)
	}
	return regexp.MustCompile(`(?i)(?:^|\P{L})(?:` + strings.Join(quoted, "|") + `)(?:\P{L}|$)`)
}
