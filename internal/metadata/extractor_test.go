package metadata

import (
	"reflect"
	"testing"

	"github.com/timmy/lexpdf/internal/domain"
)

func TestParseIDsAndAuthor(t *testing.T) {
	meta := Parse("Num. 12345678\nAutor: Maria Silva")

	if !reflect.DeepEqual(meta.DocumentIDs, []string{"12345678"}) {
		t.Errorf("DocumentIDs = %v", meta.DocumentIDs)
	}
	if meta.Parties.Author != "Maria Silva" {
		t.Errorf("Author = %q, want %q", meta.Parties.Author, "Maria Silva")
	}
}

func TestParseEmpty(t *testing.T) {
	meta := Parse("")
	if meta.DocumentType != domain.DocumentUnknown {
		t.Errorf("DocumentType = %q", meta.DocumentType)
	}
	if meta.DocumentIDs == nil || meta.Lawyers == nil || meta.SignatureDates == nil {
		t.Error("repeatable fields must be empty, not nil")
	}
	if meta.ProcessNumber != "" || meta.CaseValue != nil {
		t.Errorf("unexpected values in %+v", meta)
	}
}

func TestProcessNumber(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
		ok   bool
	}{
		{"labelled", "Processo: 5022930-18.2025.8.08.0012", "5022930-18.2025.8.08.0012", true},
		{"labelled with nº", "Processo nº 5022930-18.2025.8.08.0012", "5022930-18.2025.8.08.0012", true},
		{"label wins over earlier bare", "Ref. 1111111-11.1111.1.11.1111\nAutos 5022930-18.2025.8.08.0012", "5022930-18.2025.8.08.0012", true},
		{"bare", "conforme 1234567-89.2024.8.08.0012 juntado", "1234567-89.2024.8.08.0012", true},
		{"missing", "sem número", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ProcessNumber(tt.in)
			if got != tt.want || ok != tt.ok {
				t.Errorf("ProcessNumber() = %q, %v; want %q, %v", got, ok, tt.want, tt.ok)
			}
		})
	}
}

func TestParseLawyers(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want []domain.Lawyer
	}{
		{
			name: "name before registration",
			in:   "Edvaldo Souza de Oliveira – OAB/ES 43.156",
			want: []domain.Lawyer{{Name: "Edvaldo Souza de Oliveira", State: "ES", Number: "43.156"}},
		},
		{
			name: "several lawyers deduplicated",
			in:   "Maria Souza – OAB/SP 1234\nJoão Pereira - OAB/RJ 5678\nMaria Souza – OAB/SP 1234",
			want: []domain.Lawyer{
				{Name: "Maria Souza", State: "SP", Number: "1234"},
				{Name: "João Pereira", State: "RJ", Number: "5678"},
			},
		},
		{
			name: "registration before name",
			in:   "OAB/MG 98.765 - Carla Mendes Rocha",
			want: []domain.Lawyer{{Name: "Carla Mendes Rocha", State: "MG", Number: "98.765"}},
		},
		{
			name: "none",
			in:   "Sem advogado constituído",
			want: []domain.Lawyer{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Parse(tt.in).Lawyers
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Lawyers = %+v, want %+v", got, tt.want)
			}
		})
	}

	l := Parse("Edvaldo Souza de Oliveira – OAB/ES 43.156").Lawyers[0]
	if l.BarID() != "OAB/ES 43.156" {
		t.Errorf("BarID() = %q", l.BarID())
	}
}

func TestDocumentType(t *testing.T) {
	tests := []struct {
		in   string
		want domain.DocumentType
	}{
		{"EXCELENTÍSSIMO SENHOR DOUTOR JUIZ", domain.DocumentPetition},
		{"Petição inicial com pedido de sentença", domain.DocumentPetition},
		{"Vistos. Trata-se de ação", domain.DocumentDecision},
		{"SENTENÇA\nJulgo procedente", domain.DocumentDecision},
		{"Certidão\nCertifico que", domain.DocumentCertificate},
		{"Previstos em lei", domain.DocumentUnknown},
		{"", domain.DocumentUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			if got := DocumentType(tt.in); got != tt.want {
				t.Errorf("DocumentType() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestDocumentIDsKeepFirstSeenOrder(t *testing.T) {
	meta := Parse("Num. 222222 texto Num. 111111 mais Num. 222222")
	want := []string{"222222", "111111"}
	if !reflect.DeepEqual(meta.DocumentIDs, want) {
		t.Errorf("DocumentIDs = %v, want %v", meta.DocumentIDs, want)
	}
	if len(meta.DocumentRefs) != 3 {
		t.Errorf("expected a ref per occurrence, got %d", len(meta.DocumentRefs))
	}
}

func TestDocumentRefsPositions(t *testing.T) {
	text := "Num. 1000001\nx\nx\nx\nNum. 1000002\nx\nNum. 1000001"
	want := []domain.DocumentRef{
		{ID: "1000001", Line: 1, Offset: 0},
		{ID: "1000002", Line: 5, Offset: 19},
		{ID: "1000001", Line: 7, Offset: 34},
	}
	if got := DocumentRefs(text); !reflect.DeepEqual(got, want) {
		t.Errorf("DocumentRefs() = %+v, want %+v", got, want)
	}
}

func TestParseScalarFields(t *testing.T) {
	text := "Tribunal de Justiça do Estado do Espírito Santo\n" +
		"2ª Vara Cível de Vitória\n" +
		"Requerente: Maria Silva\n" +
		"Requerido: Banco XYZ S.A.\n" +
		"Valor da causa: R$ 1.234,56\n" +
		"Documento assinado eletronicamente por Maria, em 12/03/2024 às 10:00\n" +
		"Documento assinado eletronicamente por João, em 31/02/2024 às 11:00"

	meta := Parse(text)

	if meta.Court != "Tribunal de Justiça do Estado do Espírito Santo" {
		t.Errorf("Court = %q", meta.Court)
	}
	if meta.Parties.Author != "Maria Silva" {
		t.Errorf("Author = %q", meta.Parties.Author)
	}
	if meta.Parties.Defendant != "Banco XYZ S.A." {
		t.Errorf("Defendant = %q", meta.Parties.Defendant)
	}
	if meta.CaseValue == nil || *meta.CaseValue != domain.Money(123456) {
		t.Errorf("CaseValue = %v", meta.CaseValue)
	}
	if !reflect.DeepEqual(meta.SignatureDates, []string{"12/03/2024"}) {
		t.Errorf("SignatureDates = %v", meta.SignatureDates)
	}
}

func TestParseSections(t *testing.T) {
	text := "I - dos fatos\nO autor alega.\n\nII - do direito\nConforme lei.\n\nI - DOS FATOS"
	want := []string{"dos fatos", "do direito"}
	if got := Parse(text).Sections; !reflect.DeepEqual(got, want) {
		t.Errorf("Sections = %v, want %v", got, want)
	}
}
