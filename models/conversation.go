package models

// Message senders.
const (
	SenderAdmin = "admin"
	SenderUser  = "user"
)

// Message is one chat line in a buyer conversation.
type Message struct {
	ID        string `json:"id"`
	Sender    string `json:"sender"`
	Content   string `json:"content"`
	Timestamp string `json:"timestamp"`
}

// Conversation is the single thread between one buyer and the admins.
type Conversation struct {
	UserID      string    `json:"user_id"`
	Messages    []Message `json:"messages"`
	LastUpdated string    `json:"last_updated"`
}

// PostMessageRequest appends a message to a conversation.
type PostMessageRequest struct {
	Sender  string `json:"sender"`
	Content string `json:"content"`
}

// Contact is a buyer listed in the admin inbox.
type Contact struct {
	User
	LastUpdated string `json:"last_updated,omitempty"`
}
