package notification

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"homecare/internal/database"
)

func TestPurgeRead_KeepsUnreadAndRecent(t *testing.T) {
	db, err := database.Connect(":memory:")
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&Notification{}))

	now := time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)
	old := now.AddDate(0, 0, -120)
	recent := now.AddDate(0, 0, -5)

	stale := New("u1", TypeBroadcast, "", "old and read", nil)
	stale.IsRead, stale.ReadAt = true, &old
	fresh := New("u1", TypeBroadcast, "", "recently read", nil)
	fresh.IsRead, fresh.ReadAt = true, &recent
	unread := New("u1", TypeBroadcast, "", "never read", nil)
	unread.CreatedAt = old

	repo := NewRepository(db)
	require.NoError(t, repo.CreateMany(context.Background(), []Notification{stale, fresh, unread}))

	purged, err := repo.PurgeRead(context.Background(), now.AddDate(0, 0, -90))
	require.NoError(t, err)
	assert.EqualValues(t, 1, purged)

	var left []Notification
	require.NoError(t, db.Order("id").Find(&left).Error)
	require.Len(t, left, 2)
	for _, n := range left {
		assert.NotEqual(t, stale.ID, n.ID)
	}
}
