package service

import "text/template"

// DecisionOptions is the literal the should-respond prompt asks the model to
// choose from.
const DecisionOptions = "RESPOND, IGNORE or STOP"

var shouldRespondTemplate = template.Must(template.New("should_respond").Parse(`# Task: Decide on behalf of {{.AgentName}} whether they should respond to the last message.

About {{.AgentName}}:
{{.AgentName}} takes part in conversations when addressed or when they have something useful to add. They do not interrupt conversations between other people.

Response options are ` + DecisionOptions + `.
- RESPOND when the message is directed at {{.AgentName}} or the conversation invites their input.
- IGNORE when the message is not relevant to {{.AgentName}} or they have nothing to add.
- STOP when someone asked {{.AgentName}} to stop talking or the conversation has ended.

# Conversation
{{.Conversation}}

# Instructions
Choose the option that best describes {{.AgentName}}'s reaction to the last message.
Answer with exactly one word: ` + DecisionOptions + `.
`))

var responseTemplate = template.Must(template.New("response").Parse(`# Task: Write the next message of {{.AgentName}} in the conversation.
{{if .Facts}}
# Things {{.AgentName}} knows
{{range .Facts}}- {{.}}
{{end}}{{end}}
# Conversation
{{.Conversation}}

# Available actions
{{range .Actions}}- {{.}}
{{end}}
# Instructions
Reply as {{.AgentName}} to the last message from {{.Sender}}. Keep it short and natural.
Respond using JSON format like this:
{"thought": "<what {{.AgentName}} is thinking>", "text": "<the message to send>", "actions": ["REPLY"]}

Your response must only include the JSON object.
`))

type shouldRespondData struct {
	AgentName    string
	Conversation string
}

type responseData struct {
	AgentName    string
	Sender       string
	Conversation string
	Facts        []string
	Actions      []string
}
