package booking

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"homecare/internal/database"
	"homecare/internal/domain/user"
	"homecare/internal/pkg/apperr"
)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := database.Connect(":memory:")
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&user.User{}, &Booking{}))
	return db
}

func newTestService(t *testing.T) (*Service, *gorm.DB) {
	db := setupTestDB(t)
	return NewService(NewRepository(db), user.NewRepository(db)), db
}

func validDetails() Details {
	return Details{
		Name:    "Jane Doe",
		Email:   "jane@example.com",
		Phone:   "+15550100",
		Address: "12 Elm Street",
		Service: "wound care",
		Date:    "2026-11-02",
		Time:    "09:30",
	}
}

func TestCreate_StartsPending(t *testing.T) {
	svc, _ := newTestService(t)

	b, err := svc.Create(context.Background(), "", validDetails())
	require.NoError(t, err)
	assert.NotEmpty(t, b.ID)
	assert.Equal(t, StatusPending, b.Status)
	assert.Nil(t, b.RequesterID)
	assert.Nil(t, b.AssignedStaffID)

	linked, err := svc.Create(context.Background(), "patient-1", validDetails())
	require.NoError(t, err)
	require.NotNil(t, linked.RequesterID)
	assert.Equal(t, "patient-1", *linked.RequesterID)
}

func TestCreate_MissingFields(t *testing.T) {
	svc, _ := newTestService(t)

	for name, mutate := range map[string]func(*Details){
		"name":    func(d *Details) { d.Name = "  " },
		"email":   func(d *Details) { d.Email = "not-an-email" },
		"phone":   func(d *Details) { d.Phone = "" },
		"address": func(d *Details) { d.Address = "" },
		"service": func(d *Details) { d.Service = "" },
		"date":    func(d *Details) { d.Date = "02/11/2026" },
	} {
		d := validDetails()
		mutate(&d)
		_, err := svc.Create(context.Background(), "", d)
		assert.ErrorIs(t, err, apperr.ErrValidation, name)
		assert.Contains(t, err.Error(), name)
	}
}

func TestSetStatus_Transitions(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	b, err := svc.Create(ctx, "", validDetails())
	require.NoError(t, err)

	same, err := svc.SetStatus(ctx, b.ID, StatusPending)
	require.NoError(t, err)
	assert.Equal(t, StatusPending, same.Status)

	confirmed, err := svc.SetStatus(ctx, b.ID, StatusConfirmed)
	require.NoError(t, err)
	assert.Equal(t, StatusConfirmed, confirmed.Status)
	assert.Nil(t, confirmed.AssignedStaff)

	_, err = svc.SetStatus(ctx, b.ID, StatusPending)
	assert.ErrorIs(t, err, ErrInvalidTransition)

	_, err = svc.SetStatus(ctx, b.ID, StatusCancelled)
	require.NoError(t, err)

	_, err = svc.SetStatus(ctx, b.ID, StatusConfirmed)
	assert.ErrorIs(t, err, ErrInvalidTransition)
	assert.ErrorIs(t, err, apperr.ErrValidation)

	_, err = svc.SetStatus(ctx, b.ID, "done")
	assert.ErrorIs(t, err, ErrInvalidStatus)

	_, err = svc.SetStatus(ctx, "missing", StatusCancelled)
	assert.ErrorIs(t, err, ErrBookingNotFound)
}

func TestCompareAndSet_LosesToConcurrentWriter(t *testing.T) {
	svc, db := newTestService(t)
	ctx := context.Background()
	repo := NewRepository(db)

	b, err := svc.Create(ctx, "", validDetails())
	require.NoError(t, err)

	// both writers observed "pending"; the cancel lands first
	require.NoError(t, repo.UpdateStatus(ctx, b.ID, StatusPending, StatusCancelled))
	err = repo.Assign(ctx, b.ID, "staff-1", StatusPending)
	assert.ErrorIs(t, err, ErrConcurrentUpdate)
	assert.ErrorIs(t, err, apperr.ErrConflict)

	stored, err := repo.GetByID(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusCancelled, stored.Status)
	assert.Nil(t, stored.AssignedStaffID)
}

func TestCompareAndSet_SingleWinner(t *testing.T) {
	svc, db := newTestService(t)
	ctx := context.Background()
	repo := NewRepository(db)

	b, err := svc.Create(ctx, "", validDetails())
	require.NoError(t, err)

	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		wins int
	)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			next := StatusConfirmed
			if i%2 == 0 {
				next = StatusCancelled
			}
			if repo.UpdateStatus(ctx, b.ID, StatusPending, next) == nil {
				mu.Lock()
				wins++
				mu.Unlock()
			}
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 1, wins)
}

func TestResolve(t *testing.T) {
	svc, db := newTestService(t)
	ctx := context.Background()

	staff := &user.User{ID: "staff-1", Name: "Sam Nurse", Email: "sam@example.com", Phone: "+1555", Role: user.RoleStaff}
	require.NoError(t, db.Create(staff).Error)

	b, err := svc.Create(ctx, "", validDetails())
	require.NoError(t, err)
	require.NoError(t, NewRepository(db).Assign(ctx, b.ID, staff.ID, StatusPending))

	got, err := svc.Get(ctx, b.ID)
	require.NoError(t, err)
	require.NotNil(t, got.AssignedStaff)
	assert.Equal(t, StaffRef{ID: "staff-1", Name: "Sam Nurse", Phone: "+1555", Email: "sam@example.com"}, *got.AssignedStaff)

	// dangling reference
	require.NoError(t, db.Delete(staff).Error)
	got, err = svc.Get(ctx, b.ID)
	require.NoError(t, err)
	assert.Nil(t, got.AssignedStaff)
	assert.Equal(t, "staff-1", *got.AssignedStaffID)
}

func TestAuthorize(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	b, err := svc.Create(ctx, "patient-1", validDetails())
	require.NoError(t, err)

	_, err = svc.Authorize(ctx, b.ID, "patient-1", user.RoleUser)
	assert.NoError(t, err)
	_, err = svc.Authorize(ctx, b.ID, "stranger", user.RoleUser)
	assert.ErrorIs(t, err, ErrForbidden)
	_, err = svc.Authorize(ctx, b.ID, "admin-1", user.RoleAdmin)
	assert.NoError(t, err)
}

func TestListAndMine(t *testing.T) {
	svc, db := newTestService(t)
	ctx := context.Background()
	repo := NewRepository(db)

	a, _ := svc.Create(ctx, "patient-1", validDetails())
	_, _ = svc.Create(ctx, "patient-2", validDetails())
	require.NoError(t, repo.Assign(ctx, a.ID, "staff-1", StatusPending))

	rows, total, err := svc.List(ctx, Filter{Status: StatusConfirmed}, 10, 0)
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)
	assert.Equal(t, a.ID, rows[0].ID)

	mine, _, err := svc.Mine(ctx, "staff-1", user.RoleStaff, 10, 0)
	require.NoError(t, err)
	require.Len(t, mine, 1)

	mine, _, err = svc.Mine(ctx, "patient-2", user.RoleUser, 10, 0)
	require.NoError(t, err)
	require.Len(t, mine, 1)
	assert.NotEqual(t, a.ID, mine[0].ID)

	_, _, err = svc.List(ctx, Filter{Status: "archived"}, 10, 0)
	assert.ErrorIs(t, err, ErrInvalidStatus)
}

func TestDelete(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	b, _ := svc.Create(ctx, "", validDetails())
	require.NoError(t, svc.Delete(ctx, b.ID))
	assert.ErrorIs(t, svc.Delete(ctx, b.ID), ErrBookingNotFound)
	_, err := svc.Get(ctx, b.ID)
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestMonthlyCounts(t *testing.T) {
	svc, db := newTestService(t)
	ctx := context.Background()

	seed := []struct {
		status Status
		at     time.Time
	}{
		{StatusPending, time.Date(2025, time.March, 3, 10, 0, 0, 0, time.UTC)},
		{StatusCancelled, time.Date(2025, time.March, 30, 10, 0, 0, 0, time.UTC)},
		{StatusConfirmed, time.Date(2025, time.December, 31, 23, 0, 0, 0, time.UTC)},
		{StatusConfirmed, time.Date(2024, time.December, 31, 23, 0, 0, 0, time.UTC)},
	}
	for i, s := range seed {
		require.NoError(t, db.Create(&Booking{
			ID: string(rune('a' + i)), Name: "n", Email: "e@x.com", Phone: "1", Address: "a", Service: "s",
			Status: s.status, CreatedAt: s.at,
		}).Error)
	}

	months, err := svc.MonthlyCounts(ctx, 2025)
	require.NoError(t, err)
	require.Len(t, months, 12)
	assert.Equal(t, MonthCount{Month: 3, Total: 2, Pending: 1, Cancelled: 1}, months[2])
	assert.Equal(t, MonthCount{Month: 12, Total: 1, Confirmed: 1}, months[11])
	assert.Equal(t, MonthCount{Month: 1}, months[0])
}
