package domain

import "time"

const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// ConversationTurn is one message in a session's history. Turns are
// append-only; the session store trims reads to the most recent N.
type ConversationTurn struct {
	Role      string    `json:"role"`
	Text      string    `json:"text"`
	Timestamp time.Time `json:"timestamp"`
}

func ValidRole(role string) bool {
	return role == RoleUser || role == RoleAssistant
}

type ChatRequest struct {
	Message   string             `json:"message"`
	SessionID string             `json:"session_id,omitempty"`
	History   []ConversationTurn `json:"conversation_history,omitempty"`
	Context   map[string]string  `json:"context,omitempty"`
}

type RetrievalStats struct {
	GraphResults  int `json:"graph_results"`
	VectorResults int `json:"vector_results"`
	FusedResults  int `json:"fused_results"`
}

type ChatResult struct {
	Answer    Answer         `json:"answer"`
	SessionID string         `json:"session_id"`
	Stats     RetrievalStats `json:"retrieval_stats"`
}

// ChatTurnEvent is published after each answered request for downstream
// analytics consumers.
type ChatTurnEvent struct {
	SessionID  string         `json:"session_id"`
	Question   string         `json:"question"`
	ModelUsed  string         `json:"model_used"`
	Confidence float64        `json:"confidence"`
	Valid      bool           `json:"valid"`
	Stats      RetrievalStats `json:"retrieval_stats"`
	CreatedAt  time.Time      `json:"created_at"`
}
