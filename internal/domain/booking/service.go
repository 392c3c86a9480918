package booking

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/google/uuid"

	"homecare/internal/domain/user"
	"homecare/internal/pkg/apperr"
	"homecare/internal/pkg/validator"
)

type Service struct {
	repo  Repository
	staff StaffDirectory
}

func NewService(repo Repository, staff StaffDirectory) *Service {
	return &Service{repo: repo, staff: staff}
}

// Create stores a new pending booking. requesterID is empty for anonymous
// submissions.
func (s *Service) Create(ctx context.Context, requesterID string, d Details) (*Booking, error) {
	d.normalize()
	if errs := validator.Validate(d); errs != nil {
		return nil, detailsError(errs)
	}

	b := &Booking{
		ID:       uuid.NewString(),
		Name:     d.Name,
		Email:    d.Email,
		Phone:    d.Phone,
		Address:  d.Address,
		Service:  d.Service,
		Date:     d.Date,
		Time:     d.Time,
		Location: d.Location,
		Notes:    d.Notes,
		Status:   StatusPending,
	}
	if requesterID != "" {
		b.RequesterID = &requesterID
	}

	if err := s.repo.Create(ctx, b); err != nil {
		return nil, err
	}
	return b, nil
}

func detailsError(errs map[string]string) error {
	fields := make([]string, 0, len(errs))
	for f := range errs {
		fields = append(fields, f)
	}
	sort.Strings(fields)
	return apperr.Validation("invalid or missing fields: %s", strings.Join(fields, ", "))
}

// Get returns the booking with its staff reference resolved.
func (s *Service) Get(ctx context.Context, id string) (*Booking, error) {
	b, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.Resolve(ctx, b); err != nil {
		return nil, err
	}
	return b, nil
}

func (s *Service) List(ctx context.Context, f Filter, limit, offset int) ([]Booking, int64, error) {
	if f.Status != "" && !f.Status.Valid() {
		return nil, 0, ErrInvalidStatus
	}
	rows, total, err := s.repo.List(ctx, f, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	if err := s.Resolve(ctx, refs(rows)...); err != nil {
		return nil, 0, err
	}
	return rows, total, nil
}

func refs(rows []Booking) []*Booking {
	out := make([]*Booking, len(rows))
	for i := range rows {
		out[i] = &rows[i]
	}
	return out
}

// Mine lists the bookings the caller takes part in: assigned ones for staff,
// requested ones for everybody else.
func (s *Service) Mine(ctx context.Context, userID string, role user.Role, limit, offset int) ([]Booking, int64, error) {
	f := Filter{RequesterID: userID}
	if role == user.RoleStaff {
		f = Filter{StaffID: userID}
	}
	return s.List(ctx, f, limit, offset)
}

// Resolve fills AssignedStaff for every booking with a staff id. A staff id
// pointing at a deleted user resolves to nil.
func (s *Service) Resolve(ctx context.Context, bookings ...*Booking) error {
	ids := make([]string, 0, len(bookings))
	seen := make(map[string]bool)
	for _, b := range bookings {
		b.AssignedStaff = nil
		if b.AssignedStaffID != nil && !seen[*b.AssignedStaffID] {
			seen[*b.AssignedStaffID] = true
			ids = append(ids, *b.AssignedStaffID)
		}
	}
	if len(ids) == 0 {
		return nil
	}

	users, err := s.staff.GetByIDs(ctx, ids)
	if err != nil {
		return fmt.Errorf("resolve staff: %w", err)
	}
	byID := make(map[string]*StaffRef, len(users))
	for _, u := range users {
		byID[u.ID] = &StaffRef{ID: u.ID, Name: u.Name, Phone: u.Phone, Email: u.Email}
	}
	for _, b := range bookings {
		if b.AssignedStaffID != nil {
			b.AssignedStaff = byID[*b.AssignedStaffID]
		}
	}
	return nil
}

// SetStatus applies a status transition. Re-applying the current status is a
// no-op. The write only succeeds if nobody changed the status since it was
// read.
func (s *Service) SetStatus(ctx context.Context, id string, next Status) (*Booking, error) {
	if !next.Valid() {
		return nil, ErrInvalidStatus
	}

	b, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if b.Status == next {
		return b, s.Resolve(ctx, b)
	}
	if !b.Status.CanTransition(next) {
		return nil, fmt.Errorf("%w: %s to %s", ErrInvalidTransition, b.Status, next)
	}

	if err := s.repo.UpdateStatus(ctx, id, b.Status, next); err != nil {
		return nil, err
	}
	return s.Get(ctx, id)
}

// Delete removes the booking permanently.
func (s *Service) Delete(ctx context.Context, id string) error {
	return s.repo.Delete(ctx, id)
}

func (s *Service) MonthlyCounts(ctx context.Context, year int) ([]MonthCount, error) {
	if year < 1970 || year > 9999 {
		return nil, apperr.Validation("year out of range")
	}
	return s.repo.MonthlyCounts(ctx, year)
}

// Authorize loads a booking the caller may see: participants and managers.
func (s *Service) Authorize(ctx context.Context, id, userID string, role user.Role) (*Booking, error) {
	b, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !role.IsManager() && !b.IsParticipant(userID) {
		return nil, ErrForbidden
	}
	return b, nil
}
