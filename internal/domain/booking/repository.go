package booking

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
)

type Repository interface {
	Create(ctx context.Context, b *Booking) error
	GetByID(ctx context.Context, id string) (*Booking, error)
	GetByIDs(ctx context.Context, ids []string) ([]Booking, error)
	List(ctx context.Context, f Filter, limit, offset int) ([]Booking, int64, error)
	// UpdateStatus moves the booking from one status to another and fails
	// with ErrConcurrentUpdate when the stored status is no longer from.
	UpdateStatus(ctx context.Context, id string, from, to Status) error
	// Assign sets the staff member and confirms the booking under the same
	// compare-and-set rule as UpdateStatus.
	Assign(ctx context.Context, id, staffID string, from Status) error
	Delete(ctx context.Context, id string) error
	MonthlyCounts(ctx context.Context, year int) ([]MonthCount, error)
}

type bookingRepository struct {
	db *gorm.DB
}

// NewRepository works on a plain handle or on a transaction handle.
func NewRepository(db *gorm.DB) Repository {
	return &bookingRepository{db: db}
}

func (r *bookingRepository) Create(ctx context.Context, b *Booking) error {
	return r.db.WithContext(ctx).Create(b).Error
}

func (r *bookingRepository) GetByID(ctx context.Context, id string) (*Booking, error) {
	var b Booking
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&b).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrBookingNotFound
	}
	if err != nil {
		return nil, err
	}
	return &b, nil
}

func (r *bookingRepository) GetByIDs(ctx context.Context, ids []string) ([]Booking, error) {
	if len(ids) == 0 {
		return []Booking{}, nil
	}
	var rows []Booking
	err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&rows).Error
	return rows, err
}

func (r *bookingRepository) List(ctx context.Context, f Filter, limit, offset int) ([]Booking, int64, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}

	q := r.db.WithContext(ctx).Model(&Booking{})
	if f.Status != "" {
		q = q.Where("status = ?", f.Status)
	}
	if f.StaffID != "" {
		q = q.Where("assigned_staff_id = ?", f.StaffID)
	}
	if f.RequesterID != "" {
		q = q.Where("requester_id = ?", f.RequesterID)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var rows []Booking
	err := q.Order("created_at DESC").Order("id DESC").Limit(limit).Offset(offset).Find(&rows).Error
	if err != nil {
		return nil, 0, err
	}
	return rows, total, nil
}

func (r *bookingRepository) UpdateStatus(ctx context.Context, id string, from, to Status) error {
	res := r.db.WithContext(ctx).
		Model(&Booking{}).
		Where("id = ? AND status = ?", id, from).
		Updates(map[string]any{
			"status":     to,
			"updated_at": time.Now().UTC(),
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrConcurrentUpdate
	}
	return nil
}

func (r *bookingRepository) Assign(ctx context.Context, id, staffID string, from Status) error {
	res := r.db.WithContext(ctx).
		Model(&Booking{}).
		Where("id = ? AND status = ?", id, from).
		Updates(map[string]any{
			"status":            StatusConfirmed,
			"assigned_staff_id": staffID,
			"updated_at":        time.Now().UTC(),
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrConcurrentUpdate
	}
	return nil
}

func (r *bookingRepository) Delete(ctx context.Context, id string) error {
	res := r.db.WithContext(ctx).Where("id = ?", id).Delete(&Booking{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrBookingNotFound
	}
	return nil
}

// MonthlyCounts buckets the year's bookings by creation month. Bucketing is
// done here rather than in SQL so the query stays the same on both backends.
func (r *bookingRepository) MonthlyCounts(ctx context.Context, year int) ([]MonthCount, error) {
	start := time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC)
	end := start.AddDate(1, 0, 0)

	var rows []struct {
		Status    Status
		CreatedAt time.Time
	}
	err := r.db.WithContext(ctx).
		Model(&Booking{}).
		Select("status, created_at").
		Where("created_at >= ? AND created_at < ?", start, end).
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	out := make([]MonthCount, 12)
	for i := range out {
		out[i].Month = i + 1
	}
	for _, row := range rows {
		m := &out[row.CreatedAt.UTC().Month()-1]
		m.Total++
		switch row.Status {
		case StatusPending:
			m.Pending++
		case StatusConfirmed:
			m.Confirmed++
		case StatusCancelled:
			m.Cancelled++
		}
	}
	return out, nil
}
