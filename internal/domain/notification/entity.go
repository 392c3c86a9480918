package notification

import (
	"time"

	"github.com/google/uuid"
)

type Type string

const (
	TypeAssignment Type = "assignment"
	TypeBroadcast  Type = "broadcast"
	TypeAlert      Type = "alert"
)

func (t Type) Valid() bool {
	return t == TypeAssignment || t == TypeBroadcast || t == TypeAlert
}

// Notification is addressed to exactly one user. Only IsRead and ReadAt
// change after creation.
type Notification struct {
	ID        string     `gorm:"column:id;primaryKey;size:36" json:"id"`
	UserID    string     `gorm:"column:user_id;size:36;index:idx_notifications_user_read" json:"userId"`
	Type      Type       `gorm:"column:type;size:32" json:"type"`
	Title     string     `gorm:"column:title" json:"title"`
	Message   string     `gorm:"column:message;type:text" json:"message"`
	BookingID *string    `gorm:"column:booking_id;size:36;index" json:"bookingId,omitempty"`
	IsRead    bool       `gorm:"column:is_read;index:idx_notifications_user_read" json:"read"`
	ReadAt    *time.Time `gorm:"column:read_at" json:"readAt,omitempty"`
	CreatedAt time.Time  `gorm:"column:created_at" json:"createdAt"`
}

func (Notification) TableName() string { return "notifications" }

// New builds an unsaved notification with a time-ordered id.
func New(userID string, t Type, title, message string, bookingID *string) Notification {
	return Notification{
		ID:        uuid.Must(uuid.NewV7()).String(),
		UserID:    userID,
		Type:      t,
		Title:     title,
		Message:   message,
		BookingID: bookingID,
		CreatedAt: time.Now().UTC(),
	}
}

// BookingSummary is the booking as shown next to a notification.
type BookingSummary struct {
	ID      string `json:"id"`
	Service string `json:"service"`
	Date    string `json:"date,omitempty"`
	Time    string `json:"time,omitempty"`
	Status  string `json:"status"`
	Address string `json:"address"`
}

// Item is a listed notification. Booking is null when the notification has
// no booking or the booking no longer exists.
type Item struct {
	Notification
	Booking *BookingSummary `json:"booking"`
}

type Target string

const (
	TargetAll  Target = "all"
	TargetOne  Target = "one"
	TargetSome Target = "some"
)

type SendRequest struct {
	Target     Target   `json:"target" binding:"required"`
	Recipients []string `json:"recipients"`
	Type       Type     `json:"type"`
	Title      string   `json:"title"`
	Message    string   `json:"message" binding:"required"`
	BookingID  *string  `json:"bookingId"`
}

type ListResponse struct {
	Notifications []Item `json:"notifications"`
	UnreadCount   int64  `json:"unreadCount"`
	Total         int64  `json:"total"`
}
