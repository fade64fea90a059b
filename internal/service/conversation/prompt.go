package conversation

import (
	"fmt"
	"strings"

	"github.com/sandevgo/docportal/internal/core"
)

// BuildSystemPrompt appends retrieved passages to the base instruction.
// Passages are numbered in the order given, so the output is deterministic.
func BuildSystemPrompt(base, document string, passages []core.Passage) string {
	var sb strings.Builder
	sb.WriteString(strings.TrimSpace(base))

	if len(passages) == 0 {
		return sb.String()
	}

	sb.WriteString("\n\n")
	if document != "" {
		fmt.Fprintf(&sb, "Excerpts from %q:\n", document)
	} else {
		sb.WriteString("Document excerpts:\n")
	}
	for i, p := range passages {
		fmt.Fprintf(&sb, "\n[%d] %s\n", i+1, strings.TrimSpace(p.Text))
	}
	return strings.TrimRight(sb.String(), "\n")
}
