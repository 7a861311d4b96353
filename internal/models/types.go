package models

// Inbound message from the transport layer (webhook or NATS)
type InboundMessage struct {
	UserID      string `json:"user_id"`
	DisplayName string `json:"display_name"`
	Text        string `json:"text"`
}

// Reply sent back to the transport layer
type OutboundReply struct {
	UserID string `json:"user_id"`
	Reply  string `json:"reply"`
}

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

func (r Role) Valid() bool {
	return r == RoleUser || r == RoleAssistant
}

// Turn is one message of a conversation. Turns are never modified after
// they are appended to a session.
type Turn struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// Fixed user-facing replies. Internal errors never reach the transport layer;
// the pipeline maps them onto one of these.
const (
	ReplyOverloaded = "Sorry, the service is overloaded right now. Please try again in a few minutes."
	ReplyUnexpected = "Sorry, something went wrong while processing your request. Please try again a little later."
	ReplyMalformed  = "Sorry, an error occurred while processing the response."
	ReplyReset      = "Your conversation has been reset. What would you like to order?"
)

// Chat commands handled without calling the model
const (
	CommandStart = "/start"
	CommandReset = "/reset"
)
