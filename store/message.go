package store

type MessageRole string

const (
	MessageRoleUser      MessageRole = "user"
	MessageRoleAssistant MessageRole = "assistant"
)

type MessageType string

const (
	// MessageTypeConversation is a free-chat turn.
	MessageTypeConversation MessageType = "conversation"
	// MessageTypeInitialStatement is the participant's scripted pre-chat statement.
	MessageTypeInitialStatement MessageType = "initial_statement"
	// MessageTypeInitialStatementSummary is the model's summary of the statement.
	MessageTypeInitialStatementSummary MessageType = "initial_statement_summary"
)

// Message is one turn in a conversation. Messages are append-only and are
// never updated or deleted; insertion order is the ordering key.
type Message struct {
	ID             int32
	UID            string
	ConversationID int32
	Role           MessageRole
	Content        string
	Type           MessageType
	CreatedTs      int64
}

type FindMessage struct {
	ID             *int32
	ConversationID *int32
	Type           *MessageType
}
