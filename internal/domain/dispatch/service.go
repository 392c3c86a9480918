// Package dispatch assigns staff to bookings and tells them about it.
package dispatch

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"homecare/internal/domain/booking"
	"homecare/internal/domain/notification"
	"homecare/internal/domain/user"
)

// EventBookingUpdated tells the requester their booking changed.
const EventBookingUpdated = "booking-updated"

type Pusher interface {
	Emit(identity, event string, payload any) int
}

type Service struct {
	db            *gorm.DB
	bookings      *booking.Service
	notifications *notification.Service
	push          Pusher
	log           *zap.Logger
}

func NewService(db *gorm.DB, bookings *booking.Service, notifications *notification.Service, push Pusher, log *zap.Logger) *Service {
	return &Service{
		db:            db,
		bookings:      bookings,
		notifications: notifications,
		push:          push,
		log:           log,
	}
}

// AssignStaff confirms the booking with staffID and records one assignment
// notification for that staff member. Both writes commit together or not at
// all; live delivery happens after commit.
func (s *Service) AssignStaff(ctx context.Context, bookingID, staffID string) (*booking.Booking, error) {
	var note notification.Notification

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		bookings := booking.NewRepository(tx)

		b, err := bookings.GetByID(ctx, bookingID)
		if err != nil {
			return err
		}
		staff, err := user.NewRepository(tx).GetByID(ctx, staffID)
		if errors.Is(err, user.ErrUserNotFound) {
			return ErrStaffNotFound
		}
		if err != nil {
			return err
		}
		if staff.Role != user.RoleStaff {
			return ErrNotStaff
		}
		if b.Status == booking.StatusCancelled {
			return fmt.Errorf("%w: cancelled bookings cannot be assigned", booking.ErrInvalidTransition)
		}

		if err := bookings.Assign(ctx, b.ID, staff.ID, b.Status); err != nil {
			return err
		}

		note = notification.New(staff.ID, notification.TypeAssignment,
			"New visit assigned",
			assignmentMessage(b),
			&b.ID)
		return notification.NewRepository(tx).CreateMany(ctx, []notification.Notification{note})
	})
	if err != nil {
		return nil, err
	}

	s.notifications.Deliver(note)

	b, err := s.bookings.Get(ctx, bookingID)
	if err != nil {
		// committed; only the echo failed
		s.log.Warn("reload assigned booking", zap.String("booking_id", bookingID), zap.Error(err))
		return nil, err
	}
	if b.RequesterID != nil {
		s.push.Emit(*b.RequesterID, EventBookingUpdated, b)
	}

	s.log.Info("staff assigned",
		zap.String("booking_id", bookingID),
		zap.String("staff_id", staffID))
	return b, nil
}

func assignmentMessage(b *booking.Booking) string {
	msg := fmt.Sprintf("%s for %s at %s", b.Service, b.Name, b.Address)
	if b.Date != "" {
		msg += " on " + b.Date
		if b.Time != "" {
			msg += " " + b.Time
		}
	}
	return msg
}
