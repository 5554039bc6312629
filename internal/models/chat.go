package models

import "time"

// Role tags a turn as coming from the user or the model.
type Role string

const (
	RoleUser  Role = "user"
	RoleModel Role = "model"
)

func (r Role) Valid() bool {
	return r == RoleUser || r == RoleModel
}

// ConversationTurn represents a single message in a conversation.
type ConversationTurn struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// ChatRequest is the payload sent to the chat endpoint.
// UserInput is accepted for clients of the stateless variant, which never
// touches history.
type ChatRequest struct {
	Prompt         string `json:"prompt"`
	ConversationID string `json:"conversation_id,omitempty"`
	UserInput      string `json:"userInput,omitempty"`
}

// ChatResponse is the reply for a history-threaded prompt.
type ChatResponse struct {
	Bot            string `json:"bot"`
	ConversationID string `json:"conversation_id"`
}

// StatelessChatResponse is the reply for a userInput prompt.
type StatelessChatResponse struct {
	Response string `json:"response"`
}

type HistoryResponse struct {
	ConversationID string             `json:"conversation_id"`
	Turns          []ConversationTurn `json:"turns"`
}

type WelcomeResponse struct {
	Message string `json:"message"`
}

// ErrorResponse is the JSON body returned for upstream and internal failures.
type ErrorResponse struct {
	Error     string `json:"error"`
	RequestID string `json:"request_id,omitempty"`
}

// Reply is the normalized result of a model call.
type Reply struct {
	Text         string
	FinishReason string
	InputTokens  int
	OutputTokens int
	Latency      time.Duration
}
