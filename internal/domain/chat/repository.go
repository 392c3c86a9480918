package chat

import (
	"context"
	"time"

	"gorm.io/gorm"
)

type Repository interface {
	Create(ctx context.Context, m *Message) error
	ListRecent(ctx context.Context, bookingID string, limit int) ([]Message, error)
	MarkRead(ctx context.Context, bookingID, readerID string) (int64, error)
	CountUnread(ctx context.Context, bookingID, readerID string) (int64, error)
}

type messageRepository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) Repository {
	return &messageRepository{db: db}
}

func (r *messageRepository) Create(ctx context.Context, m *Message) error {
	return r.db.WithContext(ctx).Create(m).Error
}

// ListRecent returns the newest limit messages in ascending order.
func (r *messageRepository) ListRecent(ctx context.Context, bookingID string, limit int) ([]Message, error) {
	var rows []Message
	err := r.db.WithContext(ctx).
		Where("booking_id = ?", bookingID).
		Order("created_at DESC").
		Order("id DESC").
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}

	for i, j := 0, len(rows)-1; i < j; i, j = i+1, j-1 {
		rows[i], rows[j] = rows[j], rows[i]
	}
	return rows, nil
}

func (r *messageRepository) MarkRead(ctx context.Context, bookingID, readerID string) (int64, error) {
	res := r.db.WithContext(ctx).
		Model(&Message{}).
		Where("booking_id = ? AND sender_id <> ? AND is_read = ?", bookingID, readerID, false).
		Updates(map[string]any{
			"is_read": true,
			"read_at": time.Now().UTC(),
		})
	return res.RowsAffected, res.Error
}

func (r *messageRepository) CountUnread(ctx context.Context, bookingID, readerID string) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&Message{}).
		Where("booking_id = ? AND sender_id <> ? AND is_read = ?", bookingID, readerID, false).
		Count(&count).Error
	return count, err
}
