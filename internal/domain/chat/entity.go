package chat

import "time"

type MessageType string

const (
	MessageText  MessageType = "text"
	MessageVoice MessageType = "voice"
	MessageImage MessageType = "image"
	MessageFile  MessageType = "file"
)

// IsMedia reports whether t needs an attached media reference.
func (t MessageType) IsMedia() bool {
	return t == MessageVoice || t == MessageImage || t == MessageFile
}

// Message belongs to one booking. Sender name and role are copied at write
// time so history survives later profile changes.
type Message struct {
	ID            string      `gorm:"column:id;primaryKey;size:36" json:"id"`
	BookingID     string      `gorm:"column:booking_id;size:36;index:idx_chat_booking_created" json:"bookingId"`
	SenderID      string      `gorm:"column:sender_id;size:36" json:"senderId"`
	SenderName    string      `gorm:"column:sender_name" json:"senderName"`
	SenderRole    string      `gorm:"column:sender_role;size:16" json:"senderRole"`
	Body          string      `gorm:"column:body;type:text" json:"body"`
	MessageType   MessageType `gorm:"column:message_type;size:16" json:"messageType"`
	MediaURI      string      `gorm:"column:media_uri" json:"mediaUri,omitempty"`
	MediaFileName string      `gorm:"column:media_file_name" json:"mediaFileName,omitempty"`
	MediaSize     *int64      `gorm:"column:media_size" json:"mediaSize,omitempty"`
	IsRead        bool        `gorm:"column:is_read" json:"read"`
	ReadAt        *time.Time  `gorm:"column:read_at" json:"readAt,omitempty"`
	CreatedAt     time.Time   `gorm:"column:created_at;index:idx_chat_booking_created" json:"createdAt"`
}

func (Message) TableName() string { return "chat_messages" }

// MediaRef points at a file stored by the upload endpoint.
type MediaRef struct {
	URI      string `json:"uri"`
	FileName string `json:"fileName"`
	Size     int64  `json:"size"`
}

type SendInput struct {
	BookingID   string
	SenderID    string
	SenderName  string
	SenderRole  string
	Body        string
	MessageType MessageType
	Media       *MediaRef
}

// SendMessageRequest is the HTTP body of a new message.
type SendMessageRequest struct {
	Body        string      `json:"body"`
	MessageType MessageType `json:"messageType"`
	Media       *MediaRef   `json:"media"`
}

// ReadReceipt is pushed to the other participants after a read.
type ReadReceipt struct {
	BookingID string `json:"bookingId"`
	ReaderID  string `json:"readerId"`
	Count     int64  `json:"count"`
}
