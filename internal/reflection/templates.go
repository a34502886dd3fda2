package reflection

import "text/template"

var reflectionTemplate = template.Must(template.New("reflection").Parse(`# Task: Reflect on the conversation as {{.AgentName}}, extract new facts and describe relationships between the participants.

# Entities in the room
{{.Roster}}

# Known facts
{{if .KnownFacts}}{{range .KnownFacts}}- {{.}}
{{end}}{{else}}None yet.
{{end}}
# Existing relationships of {{.Sender}}
{{if .Relationships}}{{range .Relationships}}- {{.}}
{{end}}{{else}}None yet.
{{end}}
# Recent messages
{{.Conversation}}

# Instructions
1. Write a short self-reflective thought about how {{.AgentName}} handled the conversation.
2. List new facts learned from the recent messages. Tag each as "fact", "opinion" or "status". Set "already_known" when the fact is listed above and "in_bio" when it is part of {{.AgentName}}'s own description.
3. List relationships between entities as directed edges using the entity ids above, with descriptive tags.

Respond using JSON format like this:
{
  "thought": "a self-reflective thought",
  "facts": [
    {"claim": "factual statement", "type": "fact", "in_bio": false, "already_known": false}
  ],
  "relationships": [
    {"sourceEntityId": "entity id", "targetEntityId": "entity id", "tags": ["friend"], "metadata": {}}
  ]
}

Your response must only include the JSON object.
`))

type promptData struct {
	AgentName     string
	Sender        string
	Roster        string
	KnownFacts    []string
	Relationships []string
	Conversation  string
}
