package notification

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// EventNotification is the Presence event carrying a new notification.
const EventNotification = "notification"

type Service struct {
	db       *gorm.DB
	repo     Repository
	users    UserDirectory
	bookings BookingLookup
	push     Pusher
	log      *zap.Logger
}

func NewService(db *gorm.DB, users UserDirectory, bookings BookingLookup, push Pusher, log *zap.Logger) *Service {
	return &Service{
		db:       db,
		repo:     NewRepository(db),
		users:    users,
		bookings: bookings,
		push:     push,
		log:      log,
	}
}

// Send fans one message out to the target set. All notifications are
// written in a single transaction and pushed to live connections after it
// commits.
func (s *Service) Send(ctx context.Context, req SendRequest) ([]Notification, error) {
	recipients, err := s.recipients(ctx, req.Target, req.Recipients)
	if err != nil {
		return nil, err
	}

	message := strings.TrimSpace(req.Message)
	if message == "" {
		return nil, ErrEmptyMessage
	}
	t := req.Type
	if t == "" {
		t = TypeBroadcast
	}
	if !t.Valid() {
		return nil, ErrInvalidType
	}
	title := strings.TrimSpace(req.Title)
	if title == "" {
		title = "Notification"
	}
	if req.BookingID != nil {
		if _, err := s.bookings.GetByID(ctx, *req.BookingID); err != nil {
			return nil, err
		}
	}

	list := make([]Notification, 0, len(recipients))
	for _, id := range recipients {
		list = append(list, New(id, t, title, message, req.BookingID))
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return NewRepository(tx).CreateMany(ctx, list)
	})
	if err != nil {
		return nil, fmt.Errorf("store notifications: %w", err)
	}

	s.Deliver(list...)
	return list, nil
}

func (s *Service) recipients(ctx context.Context, target Target, ids []string) ([]string, error) {
	switch target {
	case TargetAll:
		all, err := s.users.ListIDs(ctx)
		if err != nil {
			return nil, err
		}
		if len(all) == 0 {
			return nil, ErrNoRecipients
		}
		return all, nil
	case TargetOne, TargetSome:
	default:
		return nil, ErrInvalidTarget
	}

	unique := dedupe(ids)
	if (target == TargetOne && len(unique) != 1) || (target == TargetSome && len(unique) == 0) {
		return nil, ErrRecipientCount
	}

	found, err := s.users.GetByIDs(ctx, unique)
	if err != nil {
		return nil, err
	}
	if len(found) != len(unique) {
		return nil, ErrUnknownRecipient
	}
	return unique, nil
}

func dedupe(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

// Deliver pushes already stored notifications to their recipients' live
// connections. Offline recipients read them on their next list call.
func (s *Service) Deliver(list ...Notification) {
	if s.push == nil {
		return
	}
	for _, n := range list {
		if s.push.Emit(n.UserID, EventNotification, n) == 0 {
			s.log.Debug("notification not delivered live",
				zap.String("notification_id", n.ID),
				zap.String("user_id", n.UserID))
		}
	}
}

// MarkRead flips the notification to read. Repeating it is harmless.
func (s *Service) MarkRead(ctx context.Context, id, requesterID string) (*Notification, error) {
	n, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if n.UserID != requesterID {
		return nil, ErrNotRecipient
	}
	if n.IsRead {
		return n, nil
	}
	if err := s.repo.MarkRead(ctx, id); err != nil {
		return nil, err
	}
	return s.repo.GetByID(ctx, id)
}

func (s *Service) MarkAllRead(ctx context.Context, userID string) (int64, error) {
	return s.repo.MarkAllRead(ctx, userID)
}

func (s *Service) UnreadCount(ctx context.Context, userID string) (int64, error) {
	return s.repo.CountUnread(ctx, userID)
}

// List returns the user's notifications newest first, each with its booking
// resolved.
func (s *Service) List(ctx context.Context, userID string, limit, offset int) (*ListResponse, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}

	list, total, err := s.repo.ListByUser(ctx, userID, limit, offset)
	if err != nil {
		return nil, err
	}
	unread, err := s.repo.CountUnread(ctx, userID)
	if err != nil {
		return nil, err
	}

	summaries, err := s.summaries(ctx, list)
	if err != nil {
		return nil, err
	}

	items := make([]Item, len(list))
	for i, n := range list {
		items[i] = Item{Notification: n}
		if n.BookingID != nil {
			items[i].Booking = summaries[*n.BookingID]
		}
	}
	return &ListResponse{Notifications: items, UnreadCount: unread, Total: total}, nil
}

func (s *Service) summaries(ctx context.Context, list []Notification) (map[string]*BookingSummary, error) {
	ids := make([]string, 0, len(list))
	for _, n := range list {
		if n.BookingID != nil {
			ids = append(ids, *n.BookingID)
		}
	}
	out := make(map[string]*BookingSummary, len(ids))
	if len(ids) == 0 {
		return out, nil
	}

	rows, err := s.bookings.GetByIDs(ctx, dedupe(ids))
	if err != nil {
		return nil, err
	}
	for _, b := range rows {
		out[b.ID] = &BookingSummary{
			ID:      b.ID,
			Service: b.Service,
			Date:    b.Date,
			Time:    b.Time,
			Status:  string(b.Status),
			Address: b.Address,
		}
	}
	return out, nil
}
