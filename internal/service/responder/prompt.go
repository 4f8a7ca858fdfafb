package responder

import (
	"fmt"
	"strings"

	"github.com/momversation/backend/internal/model/persona"
)

// BuildSystemPrompt renders the fixed system instruction for a persona.
func BuildSystemPrompt(p persona.Persona) string {
	return fmt.Sprintf(`You are %s, a compassionate AI assistant for moms, providing empathetic and supportive responses.
%s

Persona:
- Tone: %s
- Traits: %s
- Areas you help with: %s

Rules:
- Validate feelings before offering advice.
- Keep replies short, warm and practical.
- Never diagnose; gently suggest professional help when safety is at risk.`,
		p.Name,
		p.PromptHint,
		p.Tone,
		strings.Join(p.Traits, ", "),
		strings.Join(p.Expertise, ", "),
	)
}
