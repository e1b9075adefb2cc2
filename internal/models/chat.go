package models

// ChatMessage represents a single message in a conversation.
type ChatMessage struct {
	Role    string `json:"role"` // "user" or "assistant"
	Content string `json:"content"`
}

type AskRequest struct {
	Question string        `json:"question"`
	History  []ChatMessage `json:"history"`
}

// AskResponse is either an answer or, when the portal wants a one-time
// code, an ActionRequired of "2fa_input" with an empty Answer.
type AskResponse struct {
	Answer         string `json:"answer,omitempty"`
	ActionRequired string `json:"action_required,omitempty"`
	Message        string `json:"message,omitempty"`
}
