package nurturing

import (
	"strings"

	"leadflow/models"
)

// renderTemplate substitutes the lead placeholders into a step payload.
// {{nome}} resolves to the buyer name or the given fallback, {{localizacao}}
// to the lead's location or empty.
func renderTemplate(text string, lead *models.Lead, nameFallback string) string {
	name := lead.BuyerName
	if name == "" {
		name = nameFallback
	}
	out := strings.ReplaceAll(text, "{{nome}}", name)
	out = strings.ReplaceAll(out, "{{localizacao}}", lead.Location)
	return out
}
