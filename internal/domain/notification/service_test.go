package notification

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"homecare/internal/database"
	"homecare/internal/domain/booking"
	"homecare/internal/domain/user"
	"homecare/internal/pkg/apperr"
)

type recordingPusher struct {
	mu     sync.Mutex
	online map[string]bool
	events []string
}

func (p *recordingPusher) Emit(identity, event string, _ any) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, identity+":"+event)
	if p.online[identity] {
		return 1
	}
	return 0
}

type fixture struct {
	db   *gorm.DB
	svc  *Service
	push *recordingPusher
}

func setup(t *testing.T, userIDs ...string) *fixture {
	t.Helper()
	db, err := database.Connect(":memory:")
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&user.User{}, &booking.Booking{}, &Notification{}))

	for _, id := range userIDs {
		require.NoError(t, db.Create(&user.User{ID: id, Name: id, Email: id + "@example.com", Role: user.RoleUser}).Error)
	}

	push := &recordingPusher{online: map[string]bool{}}
	svc := NewService(db, user.NewRepository(db), booking.NewRepository(db), push, zap.NewNop())
	return &fixture{db: db, svc: svc, push: push}
}

func countRows(t *testing.T, db *gorm.DB) int64 {
	var n int64
	require.NoError(t, db.Model(&Notification{}).Count(&n).Error)
	return n
}

func TestSend_All(t *testing.T) {
	f := setup(t, "u1", "u2", "u3")

	list, err := f.svc.Send(context.Background(), SendRequest{Target: TargetAll, Message: "Clinic closed Friday"})
	require.NoError(t, err)
	assert.Len(t, list, 3)
	assert.EqualValues(t, 3, countRows(t, f.db))
	assert.Len(t, f.push.events, 3)
	for _, n := range list {
		assert.Equal(t, "Clinic closed Friday", n.Message)
		assert.Equal(t, TypeBroadcast, n.Type)
		assert.False(t, n.IsRead)
	}
}

func TestSend_One(t *testing.T) {
	f := setup(t, "u1", "u2")
	ctx := context.Background()

	list, err := f.svc.Send(ctx, SendRequest{Target: TargetOne, Recipients: []string{"u2"}, Message: "hi"})
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "u2", list[0].UserID)

	_, err = f.svc.Send(ctx, SendRequest{Target: TargetOne, Recipients: []string{"u1", "u2"}, Message: "hi"})
	assert.ErrorIs(t, err, ErrRecipientCount)

	_, err = f.svc.Send(ctx, SendRequest{Target: TargetOne, Message: "hi"})
	assert.ErrorIs(t, err, apperr.ErrValidation)
}

func TestSend_SomeCollapsesDuplicates(t *testing.T) {
	f := setup(t, "u1", "u2", "u3")
	ctx := context.Background()

	list, err := f.svc.Send(ctx, SendRequest{Target: TargetSome, Recipients: []string{"u1", "u3", "u1"}, Message: "hi"})
	require.NoError(t, err)
	assert.Len(t, list, 2)
	assert.EqualValues(t, 2, countRows(t, f.db))

	_, err = f.svc.Send(ctx, SendRequest{Target: TargetSome, Recipients: []string{}, Message: "hi"})
	assert.ErrorIs(t, err, ErrRecipientCount)
}

func TestSend_Validation(t *testing.T) {
	f := setup(t, "u1")
	ctx := context.Background()

	_, err := f.svc.Send(ctx, SendRequest{Target: "everyone", Message: "hi"})
	assert.ErrorIs(t, err, ErrInvalidTarget)

	_, err = f.svc.Send(ctx, SendRequest{Target: TargetAll, Message: "   "})
	assert.ErrorIs(t, err, ErrEmptyMessage)

	_, err = f.svc.Send(ctx, SendRequest{Target: TargetSome, Recipients: []string{"u1", "ghost"}, Message: "hi"})
	assert.ErrorIs(t, err, ErrUnknownRecipient)

	missing := "no-such-booking"
	_, err = f.svc.Send(ctx, SendRequest{Target: TargetAll, Message: "hi", BookingID: &missing})
	assert.ErrorIs(t, err, booking.ErrBookingNotFound)

	assert.Zero(t, countRows(t, f.db))
}

func TestSend_AllOrNothing(t *testing.T) {
	f := setup(t, "u1", "u2")
	require.NoError(t, f.db.Migrator().DropTable(&Notification{}))

	_, err := f.svc.Send(context.Background(), SendRequest{Target: TargetAll, Message: "hi"})
	require.Error(t, err)
	assert.Empty(t, f.push.events)
}

func TestMarkRead(t *testing.T) {
	f := setup(t, "u1", "u2")
	ctx := context.Background()

	list, err := f.svc.Send(ctx, SendRequest{Target: TargetOne, Recipients: []string{"u1"}, Message: "hi"})
	require.NoError(t, err)
	id := list[0].ID

	_, err = f.svc.MarkRead(ctx, id, "u2")
	assert.ErrorIs(t, err, ErrNotRecipient)

	_, err = f.svc.MarkRead(ctx, "missing", "u1")
	assert.ErrorIs(t, err, ErrNotificationNotFound)

	n, err := f.svc.MarkRead(ctx, id, "u1")
	require.NoError(t, err)
	assert.True(t, n.IsRead)
	require.NotNil(t, n.ReadAt)
	firstReadAt := *n.ReadAt

	n, err = f.svc.MarkRead(ctx, id, "u1")
	require.NoError(t, err)
	assert.True(t, n.IsRead)
	assert.True(t, firstReadAt.Equal(*n.ReadAt))
}

func TestListResolvesBookingOrNull(t *testing.T) {
	f := setup(t, "u1")
	ctx := context.Background()

	b := &booking.Booking{ID: "b1", Name: "n", Email: "e@x.com", Phone: "1", Address: "12 Elm", Service: "physio", Status: booking.StatusPending}
	require.NoError(t, f.db.Create(b).Error)

	bookingID := "b1"
	_, err := f.svc.Send(ctx, SendRequest{Target: TargetOne, Recipients: []string{"u1"}, Message: "first", BookingID: &bookingID})
	require.NoError(t, err)
	_, err = f.svc.Send(ctx, SendRequest{Target: TargetOne, Recipients: []string{"u1"}, Message: "second"})
	require.NoError(t, err)

	out, err := f.svc.List(ctx, "u1", 10, 0)
	require.NoError(t, err)
	require.Len(t, out.Notifications, 2)
	assert.EqualValues(t, 2, out.UnreadCount)
	assert.Equal(t, "second", out.Notifications[0].Message)
	assert.Nil(t, out.Notifications[0].Booking)
	require.NotNil(t, out.Notifications[1].Booking)
	assert.Equal(t, "physio", out.Notifications[1].Booking.Service)

	// orphaned link
	require.NoError(t, f.db.Delete(b).Error)
	out, err = f.svc.List(ctx, "u1", 10, 0)
	require.NoError(t, err)
	assert.Nil(t, out.Notifications[1].Booking)
	assert.Equal(t, "b1", *out.Notifications[1].BookingID)

	updated, err := f.svc.MarkAllRead(ctx, "u1")
	require.NoError(t, err)
	assert.EqualValues(t, 2, updated)
	unread, err := f.svc.UnreadCount(ctx, "u1")
	require.NoError(t, err)
	assert.Zero(t, unread)
}
