package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"homecare/internal/config"
	"homecare/internal/database"
	"homecare/internal/domain/user"
	"homecare/internal/pkg/geo"
)

type fixedGeocoder struct{ p geo.Point }

func (g fixedGeocoder) Geocode(context.Context, string) (geo.Point, error) { return g.p, nil }

type noRoutes struct{}

func (noRoutes) Route(context.Context, geo.Point, geo.Point) (geo.Route, error) {
	return geo.Route{}, geo.ErrNoRoute
}

type suite struct {
	srv    *Server
	db     *gorm.DB
	tokens map[string]string
}

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data,omitempty"`
	Error   *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

func setupSuite(t *testing.T) *suite {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, err := database.Connect(":memory:")
	require.NoError(t, err)
	require.NoError(t, Migrate(db))

	cfg := &config.Config{
		JWTSecret:          "test_secret_key_32_characters_min",
		JWTTTL:             time.Hour,
		UploadDir:          t.TempDir(),
		UploadURLBase:      "/static/uploads",
		CORSAllowedOrigins: "http://localhost:3000",
		NavIdleTimeout:     time.Minute,
		WSEventsPerSecond:  20,
		ChatHistoryLimit:   100,
	}
	srv := New(Deps{
		Config:   cfg,
		DB:       db,
		Log:      zap.NewNop(),
		Geocoder: fixedGeocoder{p: geo.Point{Lat: 51.5007, Lon: -0.1246}},
		Router:   noRoutes{},
	})
	t.Cleanup(srv.Registry.Close)

	s := &suite{srv: srv, db: db, tokens: map[string]string{}}
	for _, u := range []user.User{
		{ID: "admin-1", Name: "Ada Admin", Email: "admin@test.com", Role: user.RoleAdmin},
		{ID: "staff-1", Name: "Sam Nurse", Email: "staff@test.com", Phone: "+44 20 7946 0000", Role: user.RoleStaff},
		{ID: "patient-1", Name: "Pat", Email: "pat@test.com", Role: user.RoleUser},
	} {
		require.NoError(t, db.Create(&u).Error)
		token, err := srv.JWT.GenerateToken(u.ID, string(u.Role))
		require.NoError(t, err)
		s.tokens[u.ID] = token
	}
	return s
}

func (s *suite) do(t *testing.T, method, path string, body any, as string) (int, envelope) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if as != "" {
		req.Header.Set("Authorization", "Bearer "+s.tokens[as])
	}

	w := httptest.NewRecorder()
	s.srv.Engine.ServeHTTP(w, req)

	var env envelope
	if w.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env), w.Body.String())
	}
	return w.Code, env
}

func decode[T any](t *testing.T, raw json.RawMessage) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(raw, &v))
	return v
}

type bookingView struct {
	ID              string  `json:"id"`
	RequesterID     *string `json:"requesterId"`
	Status          string  `json:"status"`
	AssignedStaffID *string `json:"assignedStaffId"`
	AssignedStaff   *struct {
		Name  string `json:"name"`
		Phone string `json:"phone"`
	} `json:"assignedStaff"`
}

var visit = map[string]string{
	"name":    "Pat",
	"email":   "pat@test.com",
	"phone":   "+44 20 7946 0001",
	"address": "Westminster, London SW1A 0AA",
	"service": "Physiotherapy",
	"date":    "2026-11-02",
	"time":    "09:30",
}

func TestHealth(t *testing.T) {
	s := setupSuite(t)
	w := httptest.NewRecorder()
	s.srv.Engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())
}

func TestAnonymousBookingIsAcceptedButUnlinked(t *testing.T) {
	s := setupSuite(t)

	code, env := s.do(t, http.MethodPost, "/api/v1/bookings", visit, "")
	require.Equal(t, http.StatusCreated, code)
	b := decode[bookingView](t, env.Data)
	assert.Equal(t, "pending", b.Status)
	assert.Nil(t, b.RequesterID)

	code, env = s.do(t, http.MethodPost, "/api/v1/bookings", map[string]string{"name": "x"}, "")
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "VALIDATION_ERROR", env.Error.Code)
}

func TestProtectedRoutesRequireToken(t *testing.T) {
	s := setupSuite(t)

	code, env := s.do(t, http.MethodGet, "/api/v1/bookings/mine", nil, "")
	assert.Equal(t, http.StatusUnauthorized, code)
	assert.Equal(t, "UNAUTHORIZED", env.Error.Code)

	code, _ = s.do(t, http.MethodGet, "/api/v1/bookings", nil, "staff-1")
	assert.Equal(t, http.StatusForbidden, code)
}

func TestBookingDispatchFlow(t *testing.T) {
	s := setupSuite(t)

	// patient books
	code, env := s.do(t, http.MethodPost, "/api/v1/bookings", visit, "patient-1")
	require.Equal(t, http.StatusCreated, code)
	created := decode[bookingView](t, env.Data)
	require.NotNil(t, created.RequesterID)
	assert.Equal(t, "patient-1", *created.RequesterID)

	// admin assigns staff
	code, env = s.do(t, http.MethodPost, "/api/v1/bookings/"+created.ID+"/assign", map[string]string{"staffId": "staff-1"}, "admin-1")
	require.Equal(t, http.StatusOK, code, env.Error)
	assigned := decode[bookingView](t, env.Data)
	assert.Equal(t, "confirmed", assigned.Status)
	require.NotNil(t, assigned.AssignedStaff)
	assert.Equal(t, "Sam Nurse", assigned.AssignedStaff.Name)

	// staff sees exactly one assignment notification with its booking
	code, env = s.do(t, http.MethodGet, "/api/v1/notifications", nil, "staff-1")
	require.Equal(t, http.StatusOK, code)
	list := decode[struct {
		Notifications []struct {
			Type    string `json:"type"`
			Booking *struct {
				ID string `json:"id"`
			} `json:"booking"`
		} `json:"notifications"`
		UnreadCount int64 `json:"unreadCount"`
	}](t, env.Data)
	require.Len(t, list.Notifications, 1)
	assert.Equal(t, "assignment", list.Notifications[0].Type)
	require.NotNil(t, list.Notifications[0].Booking)
	assert.Equal(t, created.ID, list.Notifications[0].Booking.ID)
	assert.EqualValues(t, 1, list.UnreadCount)

	// staff's own booking list
	code, env = s.do(t, http.MethodGet, "/api/v1/bookings/mine", nil, "staff-1")
	require.Equal(t, http.StatusOK, code)
	mine := decode[struct {
		Bookings []bookingView `json:"bookings"`
		Total    int64         `json:"total"`
	}](t, env.Data)
	assert.EqualValues(t, 1, mine.Total)

	// chat between the participants
	code, _ = s.do(t, http.MethodPost, "/api/v1/bookings/"+created.ID+"/messages", map[string]string{"body": "Running 5 minutes late"}, "staff-1")
	require.Equal(t, http.StatusCreated, code)
	code, env = s.do(t, http.MethodGet, "/api/v1/bookings/"+created.ID+"/messages/unread-count", nil, "patient-1")
	require.Equal(t, http.StatusOK, code)
	assert.JSONEq(t, `{"unreadCount":1}`, string(env.Data))

	// navigation falls back to a straight line
	code, env = s.do(t, http.MethodPost, "/api/v1/navigation/sessions", map[string]any{
		"bookingId": created.ID,
		"origin":    map[string]float64{"lat": 51.5074, "lon": -0.1278},
	}, "staff-1")
	require.Equal(t, http.StatusCreated, code)
	nav := decode[struct {
		Source     string  `json:"source"`
		DistanceKm float64 `json:"distanceKm"`
	}](t, env.Data)
	assert.Equal(t, "straight_line", nav.Source)
	assert.Greater(t, nav.DistanceKm, 0.0)

	// nobody else can navigate this visit
	code, _ = s.do(t, http.MethodPost, "/api/v1/navigation/sessions", map[string]any{
		"bookingId": created.ID,
		"origin":    map[string]float64{"lat": 51.5074, "lon": -0.1278},
	}, "patient-1")
	assert.Equal(t, http.StatusForbidden, code)

	// the patient is offline-reachable by phone only
	code, env = s.do(t, http.MethodGet, "/api/v1/bookings/"+created.ID+"/call-capability", nil, "patient-1")
	require.Equal(t, http.StatusOK, code)
	capability := decode[struct {
		Mode     string `json:"mode"`
		CalleeID string `json:"calleeId"`
		TelURI   string `json:"telUri"`
	}](t, env.Data)
	assert.Equal(t, "tel-link", capability.Mode)
	assert.Equal(t, "staff-1", capability.CalleeID)
	assert.Equal(t, "tel:+442079460000", capability.TelURI)

	// the requester cancels
	code, env = s.do(t, http.MethodPatch, "/api/v1/bookings/"+created.ID+"/status", map[string]string{"status": "cancelled"}, "patient-1")
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "cancelled", decode[bookingView](t, env.Data).Status)

	// a cancelled visit cannot be reassigned
	code, env = s.do(t, http.MethodPost, "/api/v1/bookings/"+created.ID+"/assign", map[string]string{"staffId": "staff-1"}, "admin-1")
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "VALIDATION_ERROR", env.Error.Code)
}

func TestMonthlyStatsAreManagerOnly(t *testing.T) {
	s := setupSuite(t)
	_, _ = s.do(t, http.MethodPost, "/api/v1/bookings", visit, "")

	year := time.Now().UTC().Year()
	code, _ := s.do(t, http.MethodGet, "/api/v1/admin/stats/bookings", nil, "patient-1")
	assert.Equal(t, http.StatusForbidden, code)

	code, env := s.do(t, http.MethodGet, "/api/v1/admin/stats/bookings", nil, "admin-1")
	require.Equal(t, http.StatusOK, code)
	stats := decode[struct {
		Year   int `json:"year"`
		Months []struct {
			Total   int `json:"total"`
			Pending int `json:"pending"`
		} `json:"months"`
	}](t, env.Data)
	assert.Equal(t, year, stats.Year)
	require.Len(t, stats.Months, 12)
	total := 0
	for _, m := range stats.Months {
		total += m.Total
	}
	assert.Equal(t, 1, total)
}
