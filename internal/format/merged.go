package format

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/timmy/lexpdf/internal/domain"
)

// Member is one source file of a merged process.
type Member struct {
	File     string
	Document Document
}

// RenderMerged consolidates the members of one process into a single artifact.
// Members are rendered in the given order.
func RenderMerged(processNumber string, members []Member, f domain.OutputFormat, opts Options) ([]byte, error) {
	switch f {
	case domain.FormatMarkdown, "":
		return mergedMarkdown(processNumber, members, opts), nil
	case domain.FormatText:
		return mergedText(processNumber, members, opts), nil
	case domain.FormatJSON:
		return mergedJSON(processNumber, members, opts)
	default:
		return nil, fmt.Errorf("unsupported output format %q", f)
	}
}

func mergedMarkdown(processNumber string, members []Member, opts Options) []byte {
	var b strings.Builder
	fmt.Fprintf(&b, "# Processo %s - Consolidado\n\n", processNumber)
	fmt.Fprintf(&b, "*Mesclado a partir de %d arquivo(s) PDF*\n\n", len(members))

	b.WriteString("## Índice\n\n")
	b.WriteString("| # | Documento | Tipo | IDs |\n")
	b.WriteString("|---|---|---|---|\n")
	for i, m := range members {
		meta := m.Document.Metadata
		fmt.Fprintf(&b, "| %d | %s | %s | %s |\n",
			i+1, escapeCell(m.File), meta.DocumentType.Title(), escapeCell(strings.Join(meta.DocumentIDs, ", ")))
	}
	b.WriteString("\n---\n\n")

	parts := make([]string, len(members))
	for i, m := range members {
		var p strings.Builder
		fmt.Fprintf(&p, "## Documento %d: %s\n\n", i+1, m.File)
		if opts.IncludeMetadata {
			if md := MetadataMarkdown(m.Document.Metadata); md != "" {
				p.WriteString(md)
				p.WriteString("\n")
			}
		}
		p.WriteString("### Conteúdo\n\n")
		p.WriteString(m.Document.Text)
		parts[i] = p.String()
	}
	b.WriteString(strings.Join(parts, "\n\n---\n\n"))
	b.WriteString("\n")
	return []byte(b.String())
}

func mergedText(processNumber string, members []Member, opts Options) []byte {
	var b strings.Builder
	b.WriteString(ruler + "\n")
	fmt.Fprintf(&b, "PROCESSO %s - CONSOLIDADO\n", processNumber)
	b.WriteString(ruler + "\n")
	for i, m := range members {
		fmt.Fprintf(&b, "\nDOCUMENTO %d: %s\n", i+1, m.File)
		b.WriteString(ruler + "\n\n")
		if opts.IncludeMetadata {
			for _, f := range metadataFields(m.Document.Metadata) {
				fmt.Fprintf(&b, "%s: %s\n", f.label, f.value)
			}
			b.WriteString("\n")
		}
		b.WriteString(m.Document.Text)
		b.WriteString("\n")
	}
	return []byte(b.String())
}

type mergedDocument struct {
	File     string                   `json:"file"`
	Metadata *domain.DocumentMetadata `json:"metadata,omitempty"`
	Text     string                   `json:"text"`
}

func mergedJSON(processNumber string, members []Member, opts Options) ([]byte, error) {
	docs := make([]mergedDocument, len(members))
	for i, m := range members {
		docs[i] = mergedDocument{File: m.File, Text: m.Document.Text}
		if opts.IncludeMetadata {
			meta := m.Document.Metadata
			docs[i].Metadata = &meta
		}
	}
	return json.MarshalIndent(struct {
		FormatVersion string           `json:"format_version"`
		ProcessNumber string           `json:"process_number"`
		Documents     []mergedDocument `json:"documents"`
	}{FormatVersion, processNumber, docs}, "", "  ")
}

func escapeCell(s string) string {
	return strings.ReplaceAll(s, "|", `\|`)
}
