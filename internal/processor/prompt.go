package processor

import (
	"fmt"
	"strings"

	"github.com/toolbelt-cli/toolbelt/internal/tools"
)

// BuildSelectionPrompt embeds the registry's (name, description) pairs in
// registration order plus the literal user query, and asks the model to
// answer with one tool name per line.
func BuildSelectionPrompt(registry *tools.Registry, query string) string {
	var b strings.Builder
	b.WriteString("You route user queries to tools. Available tools:\n\n")
	for _, t := range registry.List() {
		fmt.Fprintf(&b, "- %s: %s\n", t.Name(), t.Description())
	}
	b.WriteString("\nUser query: ")
	b.WriteString(query)
	b.WriteString("\n\nRespond with the names of the tools that apply, one per line. Respond with nothing else.")
	return b.String()
}

// ParseSelection splits the model's raw response into an ordered list of
// tool names: one per line, trimmed, empties dropped. Names are neither
// deduplicated nor validated against the registry here.
func ParseSelection(raw string) []string {
	var names []string
	for _, line := range strings.Split(raw, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		names = append(names, line)
	}
	return names
}
