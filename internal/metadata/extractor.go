package metadata

import (
	"strings"

	"github.com/timmy/lexpdf/internal/domain"
)

// Extractor pulls case metadata out of normalized text.
// It holds no state and is safe for concurrent use.
type Extractor struct{}

// New creates an Extractor.
func New() *Extractor {
	return &Extractor{}
}

// Parse extracts every metadata field from clean. Missing fields stay empty.
func (e *Extractor) Parse(clean string) domain.DocumentMetadata {
	meta := domain.DocumentMetadata{
		DocumentIDs:    []string{},
		Lawyers:        []domain.Lawyer{},
		SignatureDates: []string{},
		DocumentType:   DocumentType(clean),
	}
	if clean == "" {
		return meta
	}

	meta.ProcessNumber, _ = ProcessNumber(clean)
	if ids := all(clean, documentIDRules, identity); ids != nil {
		meta.DocumentIDs = ids
	}
	meta.DocumentRefs = DocumentRefs(clean)
	meta.Parties.Author, _ = first(clean, authorRules)
	meta.Parties.Defendant, _ = first(clean, defendantRules)
	if lawyers := all(clean, lawyerRules, func(l domain.Lawyer) string { return l.State + "/" + l.Number }); lawyers != nil {
		meta.Lawyers = lawyers
	}
	if dates := all(clean, signatureRules, identity); dates != nil {
		meta.SignatureDates = dates
	}
	meta.Court, _ = first(clean, courtRules)
	if v, ok := first(clean, caseValueRules); ok {
		meta.CaseValue = &v
	}
	meta.Sections = all(clean, sectionRules, strings.ToLower)
	return meta
}

// Parse runs a default Extractor.
func Parse(clean string) domain.DocumentMetadata {
	return New().Parse(clean)
}

// ProcessNumber returns the first process number found in text, preferring labelled ones.
func ProcessNumber(text string) (string, bool) {
	return first(text, processNumberRules)
}

// DocumentRefs locates every "Num." occurrence with its 1-based line and byte offset.
func DocumentRefs(text string) []domain.DocumentRef {
	var refs []domain.DocumentRef
	line, scanned := 1, 0
	for _, m := range documentIDPattern.FindAllStringSubmatchIndex(text, -1) {
		line += strings.Count(text[scanned:m[0]], "\n")
		scanned = m[0]
		refs = append(refs, domain.DocumentRef{
			ID:     text[m[2]:m[3]],
			Line:   line,
			Offset: m[0],
		})
	}
	return refs
}

// DocumentType classifies text by keyword priority.
func DocumentType(text string) domain.DocumentType {
	for _, dt := range documentTypes {
		if dt.pattern.MatchString(text) {
			return dt.docType
		}
	}
	return domain.DocumentUnknown
}

func identity(s string) string { return s }
