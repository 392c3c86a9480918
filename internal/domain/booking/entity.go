package booking

import (
	"strings"
	"time"
)

type Status string

const (
	StatusPending   Status = "pending"
	StatusConfirmed Status = "confirmed"
	StatusCancelled Status = "cancelled"
)

func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusConfirmed, StatusCancelled:
		return true
	}
	return false
}

// CanTransition reports whether a booking in s may move to next.
// Cancelled is terminal and a confirmed booking never returns to pending.
func (s Status) CanTransition(next Status) bool {
	switch s {
	case StatusPending:
		return next == StatusConfirmed || next == StatusCancelled
	case StatusConfirmed:
		return next == StatusCancelled
	}
	return false
}

// StaffRef is the resolved view of a booking's assigned staff member.
type StaffRef struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Phone string `json:"phone,omitempty"`
	Email string `json:"email,omitempty"`
}

type Booking struct {
	ID              string    `gorm:"column:id;primaryKey;size:36" json:"id"`
	RequesterID     *string   `gorm:"column:requester_id;size:36;index" json:"requesterId,omitempty"`
	Name            string    `gorm:"column:name" json:"name"`
	Email           string    `gorm:"column:email" json:"email"`
	Phone           string    `gorm:"column:phone" json:"phone"`
	Address         string    `gorm:"column:address" json:"address"`
	Service         string    `gorm:"column:service" json:"service"`
	Date            string    `gorm:"column:date" json:"date,omitempty"`
	Time            string    `gorm:"column:time" json:"time,omitempty"`
	Location        string    `gorm:"column:location" json:"location,omitempty"`
	Notes           string    `gorm:"column:notes;type:text" json:"notes,omitempty"`
	Status          Status    `gorm:"column:status;size:16;index" json:"status"`
	AssignedStaffID *string   `gorm:"column:assigned_staff_id;size:36;index" json:"assignedStaffId,omitempty"`
	CreatedAt       time.Time `gorm:"column:created_at;index" json:"createdAt"`
	UpdatedAt       time.Time `gorm:"column:updated_at" json:"updatedAt"`

	// Populated by Service.Resolve; nil when unassigned or the staff record is gone.
	AssignedStaff *StaffRef `gorm:"-" json:"assignedStaff"`
}

func (Booking) TableName() string { return "bookings" }

// IsParticipant reports whether userID is the requester or the assigned staff.
func (b *Booking) IsParticipant(userID string) bool {
	if userID == "" {
		return false
	}
	if b.RequesterID != nil && *b.RequesterID == userID {
		return true
	}
	return b.AssignedStaffID != nil && *b.AssignedStaffID == userID
}

// Participants returns the distinct non-empty ids of requester and staff.
func (b *Booking) Participants() []string {
	out := make([]string, 0, 2)
	if b.RequesterID != nil && *b.RequesterID != "" {
		out = append(out, *b.RequesterID)
	}
	if b.AssignedStaffID != nil && *b.AssignedStaffID != "" && (len(out) == 0 || out[0] != *b.AssignedStaffID) {
		out = append(out, *b.AssignedStaffID)
	}
	return out
}

// Details is what a requester submits.
type Details struct {
	Name     string `json:"name" validate:"required"`
	Email    string `json:"email" validate:"required,email"`
	Phone    string `json:"phone" validate:"required"`
	Address  string `json:"address" validate:"required"`
	Service  string `json:"service" validate:"required"`
	Date     string `json:"date" validate:"omitempty,datetime=2006-01-02"`
	Time     string `json:"time" validate:"omitempty,datetime=15:04"`
	Location string `json:"location"`
	Notes    string `json:"notes"`
}

func (d *Details) normalize() {
	d.Name = strings.TrimSpace(d.Name)
	d.Email = strings.ToLower(strings.TrimSpace(d.Email))
	d.Phone = strings.TrimSpace(d.Phone)
	d.Address = strings.TrimSpace(d.Address)
	d.Service = strings.TrimSpace(d.Service)
	d.Date = strings.TrimSpace(d.Date)
	d.Time = strings.TrimSpace(d.Time)
	d.Location = strings.TrimSpace(d.Location)
	d.Notes = strings.TrimSpace(d.Notes)
}

type Filter struct {
	Status      Status
	StaffID     string
	RequesterID string
}

// MonthCount is one row of the yearly booking statistics.
type MonthCount struct {
	Month     int   `json:"month"`
	Total     int64 `json:"total"`
	Pending   int64 `json:"pending"`
	Confirmed int64 `json:"confirmed"`
	Cancelled int64 `json:"cancelled"`
}
