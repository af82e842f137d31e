package domain

import (
	"fmt"
	"strconv"
	"strings"
)

// DocumentType is the coarse classification of a legal filing.
type DocumentType string

const (
	DocumentPetition    DocumentType = "petition"
	DocumentDecision    DocumentType = "decision"
	DocumentCertificate DocumentType = "certificate"
	DocumentUnknown     DocumentType = "unknown"
)

// Title returns the Portuguese section title used by the formatters.
func (t DocumentType) Title() string {
	switch t {
	case DocumentPetition:
		return "Petição Inicial"
	case DocumentDecision:
		return "Decisão"
	case DocumentCertificate:
		return "Certidão"
	default:
		return "Documento"
	}
}

// Parties holds the litigants named in a filing.
type Parties struct {
	Author    string `json:"author,omitempty"`
	Defendant string `json:"defendant,omitempty"`
}

// Lawyer is a counsel identified by their bar registration.
type Lawyer struct {
	Name   string `json:"name"`
	State  string `json:"state"`
	Number string `json:"oab"`
}

// BarID renders the registration as "OAB/UF number".
func (l Lawyer) BarID() string {
	return fmt.Sprintf("OAB/%s %s", l.State, l.Number)
}

// String renders "name (OAB/UF number)".
func (l Lawyer) String() string {
	return fmt.Sprintf("%s (%s)", l.Name, l.BarID())
}

// DocumentRef locates one occurrence of a document id in the text.
type DocumentRef struct {
	ID     string `json:"id"`
	Line   int    `json:"line"`
	Offset int    `json:"position"`
}

// Money is a fixed-point amount in cents.
type Money int64

// ParseBRL parses amounts written as "1.234.567,89".
func ParseBRL(s string) (Money, error) {
	s = strings.TrimSpace(s)
	s = strings.ReplaceAll(s, ".", "")
	whole, frac, found := strings.Cut(s, ",")
	if !found {
		frac = "00"
	}
	if len(frac) == 1 {
		frac += "0"
	}
	if whole == "" || len(frac) != 2 {
		return 0, fmt.Errorf("invalid amount %q", s)
	}
	units, err := strconv.ParseInt(whole, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid amount %q: %w", s, err)
	}
	cents, err := strconv.ParseInt(frac, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid amount %q: %w", s, err)
	}
	return Money(units*100 + cents), nil
}

// String renders the amount as a decimal with two places.
func (m Money) String() string {
	sign := ""
	v := int64(m)
	if v < 0 {
		sign = "-"
		v = -v
	}
	return fmt.Sprintf("%s%d.%02d", sign, v/100, v%100)
}

// BRL renders the amount as "R$ 1.234,56".
func (m Money) BRL() string {
	whole, frac, _ := strings.Cut(m.String(), ".")
	neg := strings.HasPrefix(whole, "-")
	whole = strings.TrimPrefix(whole, "-")
	var b strings.Builder
	for i, r := range whole {
		if i > 0 && (len(whole)-i)%3 == 0 {
			b.WriteByte('.')
		}
		b.WriteRune(r)
	}
	out := "R$ " + b.String() + "," + frac
	if neg {
		out = "-" + out
	}
	return out
}

// MarshalJSON encodes the amount as a JSON number with two decimals.
func (m Money) MarshalJSON() ([]byte, error) {
	return []byte(m.String()), nil
}

// UnmarshalJSON accepts a JSON number or string written with a dot separator.
func (m *Money) UnmarshalJSON(b []byte) error {
	s := strings.Trim(string(b), `"`)
	whole, frac, _ := strings.Cut(s, ".")
	v, err := ParseBRL(whole + "," + frac)
	if err != nil {
		return err
	}
	*m = v
	return nil
}

// DocumentMetadata is the structured result of metadata extraction.
// Every field is optional; absence is not an error.
type DocumentMetadata struct {
	ProcessNumber  string        `json:"process_number,omitempty"`
	DocumentIDs    []string      `json:"document_ids"`
	DocumentRefs   []DocumentRef `json:"document_refs,omitempty"`
	Parties        Parties       `json:"parties"`
	Lawyers        []Lawyer      `json:"lawyers"`
	SignatureDates []string      `json:"signature_dates"`
	Court          string        `json:"court,omitempty"`
	CaseValue      *Money        `json:"case_value,omitempty"`
	DocumentType   DocumentType  `json:"document_type"`
	Sections       []string      `json:"sections,omitempty"`
}

// Clone returns a deep copy so chunks never share slices with their parent.
func (m DocumentMetadata) Clone() DocumentMetadata {
	out := m
	out.DocumentIDs = append([]string(nil), m.DocumentIDs...)
	out.DocumentRefs = append([]DocumentRef(nil), m.DocumentRefs...)
	out.Lawyers = append([]Lawyer(nil), m.Lawyers...)
	out.SignatureDates = append([]string(nil), m.SignatureDates...)
	out.Sections = append([]string(nil), m.Sections...)
	if m.CaseValue != nil {
		v := *m.CaseValue
		out.CaseValue = &v
	}
	return out
}
