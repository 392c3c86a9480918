package upload

import "time"

// Upload is a file stored on local disk and referenced by chat messages.
type Upload struct {
	ID           string    `gorm:"column:id;primaryKey;size:36" json:"id"`
	UserID       string    `gorm:"column:user_id;size:36;index" json:"userId"`
	OriginalName string    `gorm:"column:original_name" json:"fileName"`
	FilePath     string    `gorm:"column:file_path" json:"-"`
	FileURL      string    `gorm:"column:file_url" json:"uri"`
	MimeType     string    `gorm:"column:mime_type" json:"mimeType"`
	Size         int64     `gorm:"column:size" json:"size"`
	CreatedAt    time.Time `gorm:"column:created_at" json:"createdAt"`
}

func (Upload) TableName() string { return "uploads" }

// MessageType is the chat message type a client should use for the file.
func (u *Upload) MessageType() string {
	return messageTypeFor(u.MimeType)
}

type Response struct {
	ID          string `json:"id"`
	URI         string `json:"uri"`
	FileName    string `json:"fileName"`
	Size        int64  `json:"size"`
	MimeType    string `json:"mimeType"`
	MessageType string `json:"messageType"`
}

func toResponse(u *Upload) Response {
	return Response{
		ID:          u.ID,
		URI:         u.FileURL,
		FileName:    u.OriginalName,
		Size:        u.Size,
		MimeType:    u.MimeType,
		MessageType: u.MessageType(),
	}
}
