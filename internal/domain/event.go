package domain

// Webhook event kinds delivered by the chat platform.
const (
	EventTypeFollow  = "follow"
	EventTypeMessage = "message"
)

// MessageTypeText is the only message kind the relay acts on; stickers,
// images and the rest are ignored.
const MessageTypeText = "text"

// WebhookRequest is the body of one inbound webhook call: an ordered batch
// of events.
type WebhookRequest struct {
	Destination string  `json:"destination,omitempty"`
	Events      []Event `json:"events"`
}

// Event is one unit of chat-platform input.
type Event struct {
	Type       string       `json:"type"`
	ReplyToken string       `json:"replyToken,omitempty"`
	Source     EventSource  `json:"source"`
	Message    EventMessage `json:"message"`
}

// EventSource identifies who sent the event.
type EventSource struct {
	Type   string `json:"type,omitempty"`
	UserID string `json:"userId"`
}

// EventMessage is the message payload of a message event.
type EventMessage struct {
	ID   string `json:"id,omitempty"`
	Type string `json:"type,omitempty"`
	Text string `json:"text,omitempty"`
}

// IsText reports whether the event is a text message.
func (e Event) IsText() bool {
	return e.Type == EventTypeMessage && e.Message.Type == MessageTypeText
}
