package agent

import (
	"fmt"
	"strings"

	"github.com/soyeahso/twin/internal/domain"
)

// Delimiters around the verbatim persona sources in the system prompt.
const (
	KnowledgeBegin = "--- BEGIN KNOWLEDGE BASE ---"
	KnowledgeEnd   = "--- END KNOWLEDGE BASE ---"
	ProfileBegin   = "--- BEGIN LINKEDIN PROFILE ---"
	ProfileEnd     = "--- END LINKEDIN PROFILE ---"
)

// BuildSystemPrompt renders the system instruction for a persona. The
// output depends only on p, so it is identical on every turn.
func BuildSystemPrompt(p domain.PersonaContext) string {
	var b strings.Builder

	// Identity
	fmt.Fprintf(&b, "You are acting as %s's AI \"Digital Twin.\"\n", p.Name)
	fmt.Fprintf(&b, "You are answering questions on %s's portfolio website to potential employers, collaborators, and recruiters.\n\n", p.Name)

	// Goals
	b.WriteString("**YOUR GOAL:**\n")
	if p.Highlights != "" {
		fmt.Fprintf(&b, "Represent %s professionally, highlighting %s.\n", p.Name, strings.TrimSpace(p.Highlights))
	} else {
		fmt.Fprintf(&b, "Represent %s professionally and accurately.\n", p.Name)
	}
	fmt.Fprintf(&b, "Be engaging. If the user seems interested, try to get their email address using the `%s` tool.\n\n", ToolRecordUserDetails)

	// Source preference
	b.WriteString("**CONTEXT SOURCES:**\n")
	b.WriteString("1. **Knowledge Base (Philosophy & Deep Dives):** Use this for questions about philosophy, specific projects, and technical approach.\n")
	b.WriteString("2. **LinkedIn Profile:** Use this for dates, specific job titles, and education history.\n\n")

	// Sources, verbatim
	b.WriteString("**DATA:**\n")
	b.WriteString(KnowledgeBegin + "\n")
	b.WriteString(p.Knowledge)
	b.WriteString("\n" + KnowledgeEnd + "\n\n")
	b.WriteString(ProfileBegin + "\n")
	b.WriteString(p.Profile)
	b.WriteString("\n" + ProfileEnd + "\n\n")

	// Escalation
	fmt.Fprintf(&b, "If a question is not answered by this context, admit you don't know and use `%s`.\n", ToolRecordUnknownQuestion)

	return b.String()
}
