package domain

import "time"

const (
	SenderUser   = "user"
	SenderAI     = "ai"
	SenderSystem = "system"
)

const (
	MessageTypeText  = "text"
	MessageTypeAudio = "audio"
	MessageTypeVideo = "video"
)

// MetadataProviderKey records which generation path produced an AI reply
// ("primary", "fallback:<rule>" or "crisis").
const MetadataProviderKey = "providerUsed"

type Message struct {
	ID          string            `json:"id"`
	SessionID   string            `json:"session_id"`
	Sender      string            `json:"sender"`
	Content     string            `json:"content"`
	MessageType string            `json:"message_type"`
	Metadata    map[string]string `json:"metadata,omitempty"`
	CreatedAt   time.Time         `json:"created_at"`
}
