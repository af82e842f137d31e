package format

import (
	"fmt"
	"strings"

	"github.com/timmy/lexpdf/internal/normalize"
)

var ruler = strings.Repeat("=", 80)

// Text renders plain text under a ruler header.
type Text struct{}

func (Text) ContentType() string { return ContentTypeText }
func (Text) Extension() string   { return ".txt" }

func (Text) Format(doc Document, opts Options) ([]byte, error) {
	var b strings.Builder
	b.WriteString(ruler + "\n")
	b.WriteString(strings.ToUpper(title(doc.Metadata)) + "\n")
	b.WriteString(ruler + "\n\n")

	if opts.IncludeMetadata {
		fields := metadataFields(doc.Metadata)
		for _, f := range fields {
			fmt.Fprintf(&b, "%s: %s\n", f.label, f.value)
		}
		if len(fields) > 0 {
			b.WriteString("\n" + strings.Repeat("-", 80) + "\n\n")
		}
	}

	b.WriteString(normalize.JoinHyphenation(normalize.RemovePageMarkers(doc.Text)))
	b.WriteString("\n")

	for i, img := range doc.Images {
		fmt.Fprintf(&b, "\n[Imagem %d, página %d] %s\n", i+1, img.Page, img.Description)
	}
	return []byte(b.String()), nil
}
