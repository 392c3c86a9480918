// Package navigation tracks a staff member travelling to a booking and keeps
// the requester informed of distance and ETA.
package navigation

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"homecare/internal/domain/booking"
	"homecare/internal/pkg/geo"
)

// EventStaffLocation carries a LocationUpdate to the requester.
const EventStaffLocation = "staff-location-update"

const DefaultIdleTimeout = 10 * time.Minute

type BookingLookup interface {
	GetByID(ctx context.Context, id string) (*booking.Booking, error)
}

type Pusher interface {
	Emit(identity, event string, payload any) int
}

type Tracker struct {
	geocoder geo.Geocoder
	router   geo.Router
	bookings BookingLookup
	push     Pusher
	idle     time.Duration
	log      *zap.Logger
	now      func() time.Time

	mu       sync.RWMutex
	sessions map[string]*session
	byKey    map[string]string
}

func NewTracker(geocoder geo.Geocoder, router geo.Router, bookings BookingLookup, push Pusher, idle time.Duration, log *zap.Logger) *Tracker {
	if idle <= 0 {
		idle = DefaultIdleTimeout
	}
	return &Tracker{
		geocoder: geocoder,
		router:   router,
		bookings: bookings,
		push:     push,
		idle:     idle,
		log:      log,
		now:      time.Now,
		sessions: make(map[string]*session),
		byKey:    make(map[string]string),
	}
}

// Start geocodes the booking address once and computes the first route from
// origin. A running session for the same staff and booking is replaced.
// owner identifies the connection that drives the session, 0 for none.
func (t *Tracker) Start(ctx context.Context, owner uint64, staffID, bookingID string, origin geo.Point) (View, error) {
	if err := origin.Validate(); err != nil {
		return View{}, err
	}

	b, err := t.bookings.GetByID(ctx, bookingID)
	if err != nil {
		return View{}, err
	}
	if b.AssignedStaffID == nil || *b.AssignedStaffID != staffID {
		return View{}, ErrNotAssignedStaff
	}
	if b.Status == booking.StatusCancelled {
		return View{}, ErrBookingCancelled
	}
	address := strings.TrimSpace(b.Address)
	if address == "" {
		return View{}, ErrNoAddress
	}

	dest, err := t.geocoder.Geocode(ctx, address)
	if err != nil {
		if !errors.Is(err, geo.ErrNoMatch) {
			t.log.Warn("geocode failed", zap.String("booking_id", bookingID), zap.Error(err))
		}
		return View{}, &GeocodeMissError{Address: address, FallbackURL: FallbackURL(origin, address)}
	}

	now := t.now().UTC()
	s := &session{
		id:          uuid.NewString(),
		bookingID:   b.ID,
		staffID:     staffID,
		address:     address,
		destination: dest,
		startedAt:   now,
	}
	if b.RequesterID != nil {
		s.requesterID = *b.RequesterID
	}
	s.owner.Store(owner)

	s.mu.Lock()
	t.recompute(ctx, s, origin)
	view := s.snapshot()
	s.mu.Unlock()

	t.mu.Lock()
	k := key(staffID, bookingID)
	if oldID, ok := t.byKey[k]; ok {
		if old := t.sessions[oldID]; old != nil {
			old.ended.Store(true)
		}
		delete(t.sessions, oldID)
	}
	t.sessions[s.id] = s
	t.byKey[k] = s.id
	t.mu.Unlock()

	t.log.Info("navigation started",
		zap.String("session_id", s.id),
		zap.String("booking_id", bookingID),
		zap.String("staff_id", staffID),
		zap.String("source", string(view.Source)))
	t.publish(s.requesterID, view)
	return view, nil
}

// Update replaces the session origin and recomputes the route with the same
// policy as Start.
func (t *Tracker) Update(ctx context.Context, owner uint64, sessionID, staffID string, origin geo.Point) (View, error) {
	if err := origin.Validate(); err != nil {
		return View{}, err
	}
	s, err := t.lookup(sessionID, staffID)
	if err != nil {
		return View{}, err
	}
	return t.update(ctx, owner, s, origin)
}

// Track is the location-update entry point of a live connection: it updates
// the staff member's session for the booking or starts one.
func (t *Tracker) Track(ctx context.Context, owner uint64, staffID, bookingID string, origin geo.Point) (View, error) {
	if err := origin.Validate(); err != nil {
		return View{}, err
	}

	t.mu.RLock()
	s := t.sessions[t.byKey[key(staffID, bookingID)]]
	t.mu.RUnlock()
	if s == nil {
		return t.Start(ctx, owner, staffID, bookingID, origin)
	}
	return t.update(ctx, owner, s, origin)
}

func (t *Tracker) update(ctx context.Context, owner uint64, s *session, origin geo.Point) (View, error) {
	if err := t.stillAssigned(ctx, s); err != nil {
		return View{}, err
	}

	s.mu.Lock()
	if s.ended.Load() {
		s.mu.Unlock()
		return View{}, ErrSessionNotFound
	}
	if owner != 0 {
		s.owner.Store(owner)
	}
	t.recompute(ctx, s, origin)
	view := s.snapshot()
	s.mu.Unlock()

	t.publish(s.requesterID, view)
	return view, nil
}

// stillAssigned ends s once its booking no longer belongs to the session's
// staff member.
func (t *Tracker) stillAssigned(ctx context.Context, s *session) error {
	b, err := t.bookings.GetByID(ctx, s.bookingID)
	switch {
	case errors.Is(err, booking.ErrBookingNotFound):
		t.remove(s, "booking removed")
		return err
	case err != nil:
		return err
	case b.Status == booking.StatusCancelled:
		t.remove(s, "cancelled")
		return ErrBookingCancelled
	case b.AssignedStaffID == nil || *b.AssignedStaffID != s.staffID:
		t.remove(s, "reassigned")
		return ErrNotAssignedStaff
	}
	return nil
}

// recompute must be called with s.mu held.
func (t *Tracker) recompute(ctx context.Context, s *session, origin geo.Point) {
	s.origin = origin

	route, err := t.router.Route(ctx, origin, s.destination)
	if err != nil {
		t.log.Debug("routing unavailable, using straight line",
			zap.String("session_id", s.id), zap.Error(err))
		km := geo.HaversineKm(origin, s.destination)
		s.distanceKm = geo.RoundTo(km, 2)
		s.etaMinutes = int(math.Round(km * fallbackMinutesPerKm))
		s.path = []geo.Point{origin, s.destination}
		s.source = SourceStraightLine
	} else {
		s.distanceKm = geo.RoundTo(route.DistanceKm, 2)
		s.etaMinutes = int(math.Round(route.DurationMin))
		s.path = route.Path
		s.source = SourceRouted
	}

	now := t.now().UTC()
	s.updatedAt = now
	s.lastSeen.Store(now.UnixNano())
}

func (t *Tracker) publish(requesterID string, v View) {
	if requesterID == "" || t.push == nil {
		return
	}
	t.push.Emit(requesterID, EventStaffLocation, LocationUpdate{
		BookingID:  v.BookingID,
		StaffID:    v.StaffID,
		Location:   v.Origin,
		EtaMinutes: v.EtaMinutes,
		DistanceKm: v.DistanceKm,
		Source:     v.Source,
	})
}

func (t *Tracker) lookup(sessionID, staffID string) (*session, error) {
	t.mu.RLock()
	s := t.sessions[sessionID]
	t.mu.RUnlock()
	if s == nil {
		return nil, ErrSessionNotFound
	}
	if s.staffID != staffID {
		return nil, ErrNotAssignedStaff
	}
	return s, nil
}

// Get returns a snapshot of the session.
func (t *Tracker) Get(sessionID string) (View, error) {
	t.mu.RLock()
	s := t.sessions[sessionID]
	t.mu.RUnlock()
	if s == nil {
		return View{}, ErrSessionNotFound
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshot(), nil
}

// End releases the session.
func (t *Tracker) End(sessionID, staffID string) error {
	s, err := t.lookup(sessionID, staffID)
	if err != nil {
		return err
	}
	t.remove(s, "ended")
	return nil
}

// EndOwnedBy releases every session driven by the given connection.
func (t *Tracker) EndOwnedBy(owner uint64) int {
	if owner == 0 {
		return 0
	}
	var owned []*session
	t.mu.RLock()
	for _, s := range t.sessions {
		if s.owner.Load() == owner {
			owned = append(owned, s)
		}
	}
	t.mu.RUnlock()

	for _, s := range owned {
		t.remove(s, "disconnected")
	}
	return len(owned)
}

// Reap releases sessions without an update for longer than the idle timeout.
func (t *Tracker) Reap(now time.Time) int {
	cutoff := now.Add(-t.idle).UnixNano()
	var stale []*session
	t.mu.RLock()
	for _, s := range t.sessions {
		if s.lastSeen.Load() < cutoff {
			stale = append(stale, s)
		}
	}
	t.mu.RUnlock()

	for _, s := range stale {
		t.remove(s, "idle")
	}
	return len(stale)
}

func (t *Tracker) remove(s *session, reason string) {
	t.mu.Lock()
	if t.sessions[s.id] == s {
		delete(t.sessions, s.id)
	}
	k := key(s.staffID, s.bookingID)
	if t.byKey[k] == s.id {
		delete(t.byKey, k)
	}
	t.mu.Unlock()

	if !s.ended.Swap(true) {
		t.log.Info("navigation ended",
			zap.String("session_id", s.id),
			zap.String("booking_id", s.bookingID),
			zap.String("reason", reason))
	}
}

// Len returns the number of active sessions.
func (t *Tracker) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.sessions)
}

// Run reaps idle sessions until ctx is done, then releases the rest.
func (t *Tracker) Run(ctx context.Context) {
	interval := min(max(t.idle/4, time.Second), time.Minute)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			t.Close()
			return
		case <-ticker.C:
			t.Reap(t.now())
		}
	}
}

// Close releases every session.
func (t *Tracker) Close() {
	t.mu.RLock()
	all := make([]*session, 0, len(t.sessions))
	for _, s := range t.sessions {
		all = append(all, s)
	}
	t.mu.RUnlock()

	for _, s := range all {
		t.remove(s, "shutdown")
	}
}

// FallbackURL opens turn-by-turn directions to address in the user's map app.
func FallbackURL(origin geo.Point, address string) string {
	q := url.Values{}
	q.Set("api", "1")
	q.Set("origin", fmt.Sprintf("%.6f,%.6f", origin.Lat, origin.Lon))
	q.Set("destination", address)
	return "https://www.google.com/maps/dir/?" + q.Encode()
}
