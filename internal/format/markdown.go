package format

import (
	"fmt"
	"strings"

	"github.com/timmy/lexpdf/internal/domain"
)

// Markdown renders hierarchical Markdown.
type Markdown struct{}

func (Markdown) ContentType() string { return ContentTypeMarkdown }
func (Markdown) Extension() string   { return ".md" }

func (Markdown) Format(doc Document, opts Options) ([]byte, error) {
	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n\n", title(doc.Metadata))

	if opts.IncludeMetadata {
		if md := MetadataMarkdown(doc.Metadata); md != "" {
			b.WriteString("## Metadados\n\n")
			b.WriteString(md)
			b.WriteString("\n---\n\n")
		}
	}

	if opts.Structured && doc.Metadata.DocumentType != domain.DocumentUnknown && doc.Metadata.DocumentType != "" {
		fmt.Fprintf(&b, "## %s\n\n", doc.Metadata.DocumentType.Title())
		b.WriteString(structure(doc.Text, doc.Metadata.Sections))
	} else {
		b.WriteString("## Texto Integral\n\n")
		b.WriteString(doc.Text)
	}
	b.WriteString("\n")

	if len(doc.Images) > 0 {
		b.WriteString("\n## Análise de Imagens\n")
		for i, img := range doc.Images {
			fmt.Fprintf(&b, "\n### Imagem %d (Página %d)\n\n%s\n", i+1, img.Page, img.Description)
			if img.Error != "" {
				fmt.Fprintf(&b, "\n> Erro: %s\n", img.Error)
			}
		}
	}
	return []byte(b.String()), nil
}

// structure turns lines that carry a detected section heading into ### headings.
func structure(text string, sections []string) string {
	if len(sections) == 0 {
		return text
	}
	lines := strings.Split(text, "\n")
	for i, line := range lines {
		trimmed := strings.TrimSpace(line)
		lower := strings.ToLower(trimmed)
		for _, s := range sections {
			s = strings.ToLower(s)
			if strings.HasSuffix(lower, s) && len(trimmed) <= len(s)+8 {
				lines[i] = "### " + trimmed
				break
			}
		}
	}
	return strings.Join(lines, "\n")
}
