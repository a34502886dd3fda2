package prompt

import (
	"testing"
	"text/template"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/baYsed-BuidlAI/luna/internal/domain"
)

func TestMessagesIsChronological(t *testing.T) {
	names := NewNames([]domain.Entity{{EntityID: "u1", Names: []string{"Alice", "ally"}}}, "agent", "Luna")
	mostRecentFirst := []domain.Memory{
		{EntityID: "agent", Content: domain.Content{Text: "hi Alice", Actions: []string{"REPLY"}}},
		{EntityID: "u2", Content: domain.Content{Text: "  "}},
		{EntityID: "u1", Content: domain.Content{Text: "hello"}},
	}

	assert.Equal(t, "Alice: hello\nLuna: hi Alice (actions: REPLY)", Messages(mostRecentFirst, names))
	assert.Equal(t, "u2", names.Of("u2"))
}

func TestRoster(t *testing.T) {
	out := Roster([]domain.Entity{
		{EntityID: "u1", Names: []string{"Alice", "alice"}},
		{EntityID: "u2"},
	})
	assert.Equal(t, "- u1 (names: Alice, alice)\n- u2", out)
}

func TestRender(t *testing.T) {
	tmpl := template.Must(template.New("greet").Parse("hello {{.Name}}"))
	out, err := Render(tmpl, map[string]string{"Name": "Luna"})
	require.NoError(t, err)
	assert.Equal(t, "hello Luna", out)

	bad := template.Must(template.New("bad").Option("missingkey=error").Parse("{{.Missing}}"))
	_, err = Render(bad, map[string]string{})
	assert.Error(t, err)
}
