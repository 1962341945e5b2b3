package domain

// Role identifies the author of a ChatTurn.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// ChatTurn is one entry of the assistant transcript.
type ChatTurn struct {
	Role Role   `json:"role"`
	Text string `json:"text"`
}
