// Package format renders processed documents as Markdown, JSON or plain text.
package format

import (
	"fmt"
	"strings"

	"github.com/timmy/lexpdf/internal/domain"
)

// Content types of the rendered outputs.
const (
	ContentTypeMarkdown = "text/markdown; charset=utf-8"
	ContentTypeJSON     = "application/json"
	ContentTypeText     = "text/plain; charset=utf-8"
)

// Document is the input of every formatter.
type Document struct {
	Text     string
	Metadata domain.DocumentMetadata
	Images   []domain.ImageNote
}

// Options toggles optional output parts.
type Options struct {
	IncludeMetadata bool
	Structured      bool
}

// Formatter renders one document.
type Formatter interface {
	Format(doc Document, opts Options) ([]byte, error)
	ContentType() string
	Extension() string
}

// For returns the formatter for f.
func For(f domain.OutputFormat) (Formatter, error) {
	switch f {
	case domain.FormatMarkdown, "":
		return Markdown{}, nil
	case domain.FormatJSON:
		return JSON{}, nil
	case domain.FormatText:
		return Text{}, nil
	default:
		return nil, fmt.Errorf("unsupported output format %q", f)
	}
}

// Paragraphs splits text on blank lines.
func Paragraphs(text string) []string {
	var out []string
	for _, p := range strings.Split(text, "\n\n") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// title is the top heading shared by Markdown and text output.
func title(meta domain.DocumentMetadata) string {
	if meta.ProcessNumber != "" {
		return "Processo " + meta.ProcessNumber
	}
	return "Documento Processual"
}

type field struct{ label, value string }

// metadataFields lists the non-empty metadata values in display order.
func metadataFields(meta domain.DocumentMetadata) []field {
	var out []field
	add := func(label, value string) {
		if value != "" {
			out = append(out, field{label, value})
		}
	}

	add("Processo", meta.ProcessNumber)
	if meta.DocumentType != "" && meta.DocumentType != domain.DocumentUnknown {
		add("Tipo de documento", meta.DocumentType.Title())
	}
	add("Autor", meta.Parties.Author)
	add("Réu", meta.Parties.Defendant)
	if len(meta.Lawyers) > 0 {
		names := make([]string, len(meta.Lawyers))
		for i, l := range meta.Lawyers {
			names[i] = l.String()
		}
		add("Advogados", strings.Join(names, "; "))
	}
	add("Tribunal", meta.Court)
	if meta.CaseValue != nil {
		add("Valor da causa", meta.CaseValue.BRL())
	}
	add("Datas de assinatura", strings.Join(meta.SignatureDates, ", "))
	add("IDs de documentos", strings.Join(meta.DocumentIDs, ", "))
	return out
}

// MetadataMarkdown renders the metadata as a bullet list, or "" when empty.
func MetadataMarkdown(meta domain.DocumentMetadata) string {
	var b strings.Builder
	for _, f := range metadataFields(meta) {
		fmt.Fprintf(&b, "- **%s:** %s\n", f.label, f.value)
	}
	return b.String()
}
