package chat

import (
	"context"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"homecare/internal/domain/booking"
	"homecare/internal/domain/user"
)

const (
	EventNewMessage   = "new-message"
	EventMessagesRead = "messages-read"

	DefaultHistoryLimit = 100
)

// BookingAccess resolves a booking the caller is allowed to see.
type BookingAccess interface {
	Authorize(ctx context.Context, id, userID string, role user.Role) (*booking.Booking, error)
}

type Pusher interface {
	Emit(identity, event string, payload any) int
}

type Service struct {
	repo         Repository
	bookings     BookingAccess
	push         Pusher
	historyLimit int
	log          *zap.Logger
}

func NewService(repo Repository, bookings BookingAccess, push Pusher, historyLimit int, log *zap.Logger) *Service {
	if historyLimit <= 0 {
		historyLimit = DefaultHistoryLimit
	}
	return &Service{
		repo:         repo,
		bookings:     bookings,
		push:         push,
		historyLimit: historyLimit,
		log:          log,
	}
}

// List returns up to limit of the booking's most recent messages, oldest
// first.
func (s *Service) List(ctx context.Context, bookingID, userID string, role user.Role, limit int) ([]Message, error) {
	if _, err := s.bookings.Authorize(ctx, bookingID, userID, role); err != nil {
		return nil, err
	}
	if limit <= 0 || limit > s.historyLimit {
		limit = s.historyLimit
	}
	return s.repo.ListRecent(ctx, bookingID, limit)
}

// Send stores a message and pushes it to the other participants.
func (s *Service) Send(ctx context.Context, in SendInput) (*Message, error) {
	in.BookingID = strings.TrimSpace(in.BookingID)
	in.SenderName = strings.TrimSpace(in.SenderName)
	in.SenderRole = strings.TrimSpace(in.SenderRole)
	if in.BookingID == "" || in.SenderName == "" || in.SenderRole == "" {
		return nil, ErrMissingSender
	}

	msgType, err := messageType(in)
	if err != nil {
		return nil, err
	}

	b, err := s.bookings.Authorize(ctx, in.BookingID, in.SenderID, user.Role(in.SenderRole))
	if err != nil {
		return nil, err
	}

	m := &Message{
		ID:          uuid.Must(uuid.NewV7()).String(),
		BookingID:   b.ID,
		SenderID:    in.SenderID,
		SenderName:  in.SenderName,
		SenderRole:  in.SenderRole,
		Body:        in.Body,
		MessageType: msgType,
		CreatedAt:   time.Now().UTC(),
	}
	if in.Media != nil {
		m.MediaURI = in.Media.URI
		m.MediaFileName = in.Media.FileName
		if in.Media.Size > 0 {
			size := in.Media.Size
			m.MediaSize = &size
		}
	}

	if err := s.repo.Create(ctx, m); err != nil {
		return nil, err
	}

	s.notify(b, in.SenderID, EventNewMessage, m)
	return m, nil
}

func messageType(in SendInput) (MessageType, error) {
	hasBody := strings.TrimSpace(in.Body) != ""
	if in.Media == nil {
		if !hasBody {
			return "", ErrEmptyMessage
		}
		if in.MessageType != "" && in.MessageType != MessageText {
			return "", ErrInvalidType
		}
		return MessageText, nil
	}

	if strings.TrimSpace(in.Media.URI) == "" {
		return "", ErrInvalidMedia
	}
	if in.MessageType == "" {
		return mediaTypeOf(in.Media), nil
	}
	if !in.MessageType.IsMedia() {
		return "", ErrInvalidType
	}
	return in.MessageType, nil
}

// MarkRead marks every message the reader did not write as read and returns
// how many changed.
func (s *Service) MarkRead(ctx context.Context, bookingID, readerID string, role user.Role) (int64, error) {
	b, err := s.bookings.Authorize(ctx, bookingID, readerID, role)
	if err != nil {
		return 0, err
	}

	n, err := s.repo.MarkRead(ctx, bookingID, readerID)
	if err != nil {
		return 0, err
	}
	if n > 0 {
		s.notify(b, readerID, EventMessagesRead, ReadReceipt{BookingID: bookingID, ReaderID: readerID, Count: n})
	}
	return n, nil
}

func (s *Service) UnreadCount(ctx context.Context, bookingID, readerID string, role user.Role) (int64, error) {
	if _, err := s.bookings.Authorize(ctx, bookingID, readerID, role); err != nil {
		return 0, err
	}
	return s.repo.CountUnread(ctx, bookingID, readerID)
}

func (s *Service) notify(b *booking.Booking, actorID, event string, payload any) {
	if s.push == nil {
		return
	}
	for _, id := range b.Participants() {
		if id == actorID {
			continue
		}
		if s.push.Emit(id, event, payload) == 0 {
			s.log.Debug("chat event not delivered live",
				zap.String("booking_id", b.ID),
				zap.String("user_id", id),
				zap.String("event", event))
		}
	}
}

var mediaExtensions = map[string]MessageType{
	".jpg":  MessageImage,
	".jpeg": MessageImage,
	".png":  MessageImage,
	".gif":  MessageImage,
	".webp": MessageImage,
	".webm": MessageVoice,
	".ogg":  MessageVoice,
	".mp3":  MessageVoice,
	".m4a":  MessageVoice,
	".wav":  MessageVoice,
	".aac":  MessageVoice,
}

// mediaTypeOf guesses the message type from the file name, then the URI.
// Unknown extensions are sent as plain files.
func mediaTypeOf(m *MediaRef) MessageType {
	for _, name := range []string{m.FileName, m.URI} {
		if t, ok := mediaExtensions[strings.ToLower(path.Ext(name))]; ok {
			return t
		}
	}
	return MessageFile
}
