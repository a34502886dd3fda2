// Package prompt renders model prompts from conversation state.
package prompt

import (
	"fmt"
	"strings"
	"text/template"

	"github.com/baYsed-BuidlAI/luna/internal/domain"
)

// Names maps entity ids to display names.
type Names map[string]string

// NewNames builds the name map of a room roster. The agent is always known
// under agentName.
func NewNames(roster []domain.Entity, agentID, agentName string) Names {
	names := make(Names, len(roster)+1)
	for _, e := range roster {
		if len(e.Names) > 0 {
			names[e.EntityID] = e.Names[0]
		}
	}
	if agentID != "" && agentName != "" {
		names[agentID] = agentName
	}
	return names
}

// Of returns the display name of entityID, falling back to the id.
func (n Names) Of(entityID string) string {
	if name, ok := n[entityID]; ok && name != "" {
		return name
	}
	return entityID
}

// Messages formats memories given most-recent-first as a chronological
// transcript, one line per message.
func Messages(memories []domain.Memory, names Names) string {
	var b strings.Builder
	for i := len(memories) - 1; i >= 0; i-- {
		m := memories[i]
		text := strings.TrimSpace(m.Content.Text)
		if text == "" && len(m.Content.Actions) == 0 {
			continue
		}
		fmt.Fprintf(&b, "%s: %s", names.Of(m.EntityID), text)
		if len(m.Content.Actions) > 0 {
			fmt.Fprintf(&b, " (actions: %s)", strings.Join(m.Content.Actions, ", "))
		}
		b.WriteByte('\n')
	}
	return strings.TrimRight(b.String(), "\n")
}

// Roster lists entities with their id and known names.
func Roster(roster []domain.Entity) string {
	var b strings.Builder
	for _, e := range roster {
		fmt.Fprintf(&b, "- %s", e.EntityID)
		if len(e.Names) > 0 {
			fmt.Fprintf(&b, " (names: %s)", strings.Join(e.Names, ", "))
		}
		b.WriteByte('\n')
	}
	return strings.TrimRight(b.String(), "\n")
}

// Render executes tmpl against data.
func Render(tmpl *template.Template, data any) (string, error) {
	var b strings.Builder
	if err := tmpl.Execute(&b, data); err != nil {
		return "", fmt.Errorf("failed to render %s prompt: %w", tmpl.Name(), err)
	}
	return b.String(), nil
}
