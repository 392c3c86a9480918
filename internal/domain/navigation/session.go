package navigation

import (
	"sync"
	"sync/atomic"
	"time"

	"homecare/internal/pkg/geo"
)

type Source string

const (
	SourceRouted       Source = "routed"
	SourceStraightLine Source = "straight_line"
)

// Minutes per km assumed when no route is available.
const fallbackMinutesPerKm = 2.0

type session struct {
	mu sync.Mutex

	id          string
	bookingID   string
	staffID     string
	requesterID string
	address     string
	destination geo.Point
	startedAt   time.Time

	// read by the reaper without taking mu
	owner    atomic.Uint64
	lastSeen atomic.Int64
	ended    atomic.Bool

	origin     geo.Point
	path       []geo.Point
	distanceKm float64
	etaMinutes int
	source     Source
	updatedAt  time.Time
}

// View is a point-in-time copy of a session.
type View struct {
	ID          string      `json:"id"`
	BookingID   string      `json:"bookingId"`
	StaffID     string      `json:"staffId"`
	Origin      geo.Point   `json:"origin"`
	Destination geo.Point   `json:"destination"`
	Address     string      `json:"address"`
	Path        []geo.Point `json:"path"`
	DistanceKm  float64     `json:"distanceKm"`
	EtaMinutes  int         `json:"etaMinutes"`
	Source      Source      `json:"source"`
	StartedAt   time.Time   `json:"startedAt"`
	UpdatedAt   time.Time   `json:"updatedAt"`
}

// LocationUpdate is pushed to the requester on every origin change.
type LocationUpdate struct {
	BookingID  string    `json:"bookingId"`
	StaffID    string    `json:"staffId"`
	Location   geo.Point `json:"location"`
	EtaMinutes int       `json:"etaMinutes"`
	DistanceKm float64   `json:"distanceKm"`
	Source     Source    `json:"source"`
}

// snapshot must be called with s.mu held.
func (s *session) snapshot() View {
	path := make([]geo.Point, len(s.path))
	copy(path, s.path)
	return View{
		ID:          s.id,
		BookingID:   s.bookingID,
		StaffID:     s.staffID,
		Origin:      s.origin,
		Destination: s.destination,
		Address:     s.address,
		Path:        path,
		DistanceKm:  s.distanceKm,
		EtaMinutes:  s.etaMinutes,
		Source:      s.source,
		StartedAt:   s.startedAt,
		UpdatedAt:   s.updatedAt,
	}
}

func key(staffID, bookingID string) string {
	return staffID + "|" + bookingID
}
