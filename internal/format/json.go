package format

import (
	"encoding/json"

	"github.com/timmy/lexpdf/internal/domain"
)

// FormatVersion is the schema version of JSON output.
const FormatVersion = "1.0"

// JSON renders a machine-readable document.
type JSON struct{}

func (JSON) ContentType() string { return ContentTypeJSON }
func (JSON) Extension() string   { return ".json" }

type jsonDocument struct {
	FormatVersion string                   `json:"format_version"`
	DocumentType  string                   `json:"document_type"`
	Metadata      *domain.DocumentMetadata `json:"metadata,omitempty"`
	Content       jsonContent              `json:"content"`
	Images        []domain.ImageNote       `json:"images,omitempty"`
}

type jsonContent struct {
	Text             string   `json:"text"`
	ParagraphCount   int      `json:"paragraph_count"`
	Paragraphs       []string `json:"paragraphs,omitempty"`
	DetectedSections []string `json:"detected_sections,omitempty"`
}

func (JSON) Format(doc Document, opts Options) ([]byte, error) {
	paragraphs := Paragraphs(doc.Text)
	out := jsonDocument{
		FormatVersion: FormatVersion,
		DocumentType:  jsonDocumentType(doc.Metadata.DocumentType),
		Content: jsonContent{
			Text:           doc.Text,
			ParagraphCount: len(paragraphs),
		},
		Images: doc.Images,
	}
	if opts.IncludeMetadata {
		meta := doc.Metadata
		out.Metadata = &meta
	}
	if opts.Structured {
		out.Content.Paragraphs = paragraphs
		out.Content.DetectedSections = doc.Metadata.Sections
	}
	return json.MarshalIndent(out, "", "  ")
}

func jsonDocumentType(t domain.DocumentType) string {
	switch t {
	case domain.DocumentPetition:
		return "initial_petition"
	case domain.DocumentDecision:
		return "decision"
	case domain.DocumentCertificate:
		return "certificate"
	default:
		return "legal_document"
	}
}
