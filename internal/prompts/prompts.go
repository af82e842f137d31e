package prompts

import "fmt"

// ============================================================================
// Vision prompts for images embedded in legal filings
// ============================================================================

// VisionSystemPrompt defines the role of the vision model.
const VisionSystemPrompt = `Você é um assistente de análise documental jurídica. Descreva imagens extraídas de autos processuais brasileiros de forma objetiva, em português, sem inventar informações que não estejam visíveis.`

// visionUserTemplate asks for a fixed-shape answer so descriptions read the same
// across documents. %s is the page hint.
const visionUserTemplate = `Analise esta imagem encontrada em um documento jurídico%s e forneça uma descrição em português.

Identifique:
1. Tipo de conteúdo: documento digitalizado, foto, diagrama, assinatura, carimbo etc.
2. Elementos visuais principais.
3. Texto visível: transcreva os trechos legíveis, se houver.
4. Relevância jurídica: se for prova ou anexo, explique a possível importância.
5. Qualidade: indique se está legível, borrada ou com problemas.

Formato da resposta:
**Tipo:** [tipo do conteúdo]
**Descrição:** [descrição]
**Texto visível:** [transcrição, se aplicável]
**Observações:** [qualidade e relevância]`

// VisionUserPrompt builds the user prompt for an image on page (0 when unknown).
func VisionUserPrompt(page int) string {
	hint := ""
	if page > 0 {
		hint = fmt.Sprintf(" (página %d)", page)
	}
	return fmt.Sprintf(visionUserTemplate, hint)
}
