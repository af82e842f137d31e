package normalize

import "regexp"

// legalAcronyms are kept uppercase when a shouting line is rewritten.
var legalAcronyms = []string{
	// courts and councils
	"STF", "STJ", "TST", "TSE", "STM", "CNJ", "CJF", "TJ", "TRF", "TRT", "TRE",
	"TJES", "TJSP", "TJRJ", "TJMG", "TJRS", "TJPR", "TJSC", "TJBA", "TJDFT", "PJE",
	"JEC", "JECC", "JEF",
	// codes and statutes
	"CF", "CPC", "CPP", "CC", "CP", "CLT", "CTN", "CDC", "ECA", "LINDB", "LEF", "LOMAN",
	// public bodies
	"OAB", "MP", "MPF", "MPE", "MPT", "DPE", "DPU", "AGU", "PGE", "PGFN", "PGM",
	"INSS", "INCRA", "IBAMA", "ANATEL", "ANEEL", "ANS", "ANVISA", "BACEN", "CVM",
	"DETRAN", "SUS", "RFB", "CEF", "BB",
	// taxes and registries
	"ICMS", "IPI", "IPTU", "IPVA", "ISS", "ISSQN", "IRPF", "IRPJ", "FGTS", "PIS",
	"COFINS", "CSLL", "CPF", "CNPJ", "RG", "CEP", "CTPS", "CNH", "NIS", "NIT",
	// company forms
	"LTDA", "EIRELI", "EPP", "MEI",
	// misc
	"UF", "RPV", "EXA",
}

var (
	// inline noise is cut out of a line, the rest of the line survives
	inlineNoise = []*regexp.Regexp{
		regexp.MustCompile(`(?i)num\.\s*\d+\s*-\s*pág\.\s*\d+`),
		regexp.MustCompile(`(?i)\b(?:https?://|www\.)\S+`),
	}

	// page counters left behind by the PDF export
	pageMarkers = []*regexp.Regexp{
		regexp.MustCompile(`(?i)^página\s+\d+\s*(?:de|/)\s*\d+$`),
		regexp.MustCompile(`(?i)^-{2,}\s*página\s+\d+\s*-{2,}$`),
		regexp.MustCompile(`(?i)^pág\.?\s*\d+$`),
		regexp.MustCompile(`^-?\s*\d{1,4}\s*-?$`),
	}

	// noise templates drop the whole line
	lineNoise = append(append([]*regexp.Regexp{}, pageMarkers...),
		regexp.MustCompile(`(?i)^(?:código|cód\.)\s+de\s+verificação\b.*$`),
		regexp.MustCompile(`(?i)^este\s+documento\s+foi\s+gerado\s+pelo\s+usuário\b.*$`),
		regexp.MustCompile(`(?i)^para\s+conferência\s+acesse\b.*$`),
		regexp.MustCompile(`(?i)^número\s+do\s+documento:\s*\d+$`),
		regexp.MustCompile(`(?i)^documento\s+id\s*:?\s*[\da-f-]{8,}$`),
		regexp.MustCompile(`(?i)^(?:validação|autenticação)\s*:?\s*[\w.-]{10,}$`),
	)

	// OAB/UF keeps its state code even though two letters are not an acronym on their own
	oabStatePattern = regexp.MustCompile(`OAB\s*/\s*[A-Z]{2}\b`)

	// section markers such as "IV - DO DIREITO" or "II) DOS PEDIDOS"
	romanMarkerPattern = regexp.MustCompile(`^\s*(M{0,3}(?:CM|CD|D?C{0,3})(?:XC|XL|L?X{0,3})(?:IX|IV|V?I{0,3}))\s*[-–.)]`)

	wordPattern        = regexp.MustCompile(`\p{L}+`)
	spaceRunPattern    = regexp.MustCompile(`[ \t\x{00A0}]+`)
	hyphenBreakPattern = regexp.MustCompile(`(\p{L})-\n(\p{Ll})`)
)
