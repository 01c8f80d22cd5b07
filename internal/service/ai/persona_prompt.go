package ai

import (
	"fmt"

	"github.com/zhouzirui/z-salon/backend/internal/model/persona"
)

// SystemPrompt returns the system turn that seeds a chat session with the
// persona. Personas without a dedicated prompt get an in-character fallback.
func SystemPrompt(p persona.Persona) string {
	if p.SystemPrompt != "" {
		return p.SystemPrompt
	}
	return buildBasicSystemPrompt(p)
}

func buildBasicSystemPrompt(p persona.Persona) string {
	if p.Title == "" {
		return fmt.Sprintf("You are %s. Stay in character and answer in %s's voice.", p.Name, p.Name)
	}
	return fmt.Sprintf("You are %s, %s. Stay in character and answer in %s's voice.", p.Name, p.Title, p.Name)
}
