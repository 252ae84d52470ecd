package events

// KindConversationStarted identifies a user request to open a conversation.
const KindConversationStarted Kind = "conversation.started"

// ConversationStarted carries the greeting text the client opens with.
type ConversationStarted struct {
	Base
	Greeting string
}

// NewConversationStarted creates a conversation started event.
func NewConversationStarted(greeting string) ConversationStarted {
	return ConversationStarted{Base: NewBase(KindConversationStarted), Greeting: greeting}
}
