// Package gateway serves the WebSocket endpoint. Each connection is joined to
// the presence room of its token identity; inbound frames are dispatched to
// signaling and navigation, outbound frames are drained from the connection's
// presence queue.
package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"homecare/internal/domain/navigation"
	"homecare/internal/domain/user"
	"homecare/internal/pkg/apperr"
	"homecare/internal/pkg/geo"
	"homecare/internal/pkg/jwt"
	"homecare/internal/pkg/response"
	"homecare/internal/realtime/presence"
	"homecare/internal/realtime/signaling"
)

type TokenValidator interface {
	ValidateToken(token string) (*jwt.Claims, error)
}

type Signaler interface {
	Relay(from, event string, raw json.RawMessage) error
}

type LocationTracker interface {
	Track(ctx context.Context, owner uint64, staffID, bookingID string, origin geo.Point) (navigation.View, error)
	EndOwnedBy(owner uint64) int
}

type Options struct {
	EventsPerSecond float64
	SendBuffer      int
	MaxMessageBytes int64
	WriteWait       time.Duration
	PongWait        time.Duration
	PingInterval    time.Duration
	TrackTimeout    time.Duration
	// CheckOrigin defaults to accepting every origin.
	CheckOrigin func(r *http.Request) bool
}

func (o Options) withDefaults() Options {
	if o.EventsPerSecond <= 0 {
		o.EventsPerSecond = 20
	}
	if o.SendBuffer <= 0 {
		o.SendBuffer = presence.DefaultSendBuffer
	}
	if o.MaxMessageBytes <= 0 {
		o.MaxMessageBytes = 64 << 10
	}
	if o.WriteWait <= 0 {
		o.WriteWait = 10 * time.Second
	}
	if o.PongWait <= 0 {
		o.PongWait = 60 * time.Second
	}
	if o.PingInterval <= 0 || o.PingInterval >= o.PongWait {
		o.PingInterval = o.PongWait * 9 / 10
	}
	if o.TrackTimeout <= 0 {
		o.TrackTimeout = 15 * time.Second
	}
	if o.CheckOrigin == nil {
		o.CheckOrigin = func(*http.Request) bool { return true }
	}
	return o
}

type Gateway struct {
	registry *presence.Registry
	tokens   TokenValidator
	relay    Signaler
	tracker  LocationTracker
	opts     Options
	upgrader websocket.Upgrader
	log      *zap.Logger
}

func New(registry *presence.Registry, tokens TokenValidator, relay Signaler, tracker LocationTracker, opts Options, log *zap.Logger) *Gateway {
	opts = opts.withDefaults()
	return &Gateway{
		registry: registry,
		tokens:   tokens,
		relay:    relay,
		tracker:  tracker,
		opts:     opts,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     opts.CheckOrigin,
		},
		log: log,
	}
}

// Handle upgrades GET /ws?token=JWT. Browsers cannot set headers on a
// WebSocket handshake so the token travels in the query; a bearer header is
// accepted too.
func (g *Gateway) Handle(c *gin.Context) {
	token := c.Query("token")
	if token == "" {
		token = strings.TrimPrefix(c.GetHeader("Authorization"), "Bearer ")
	}
	if token == "" {
		response.Error(c, http.StatusUnauthorized, "UNAUTHORIZED", "token is required, use ?token=")
		return
	}
	claims, err := g.tokens.ValidateToken(token)
	if err != nil {
		response.Error(c, http.StatusUnauthorized, "UNAUTHORIZED", "invalid or expired token")
		return
	}

	ws, err := g.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		// the upgrader already wrote the HTTP error
		g.log.Debug("websocket upgrade failed", zap.Error(err))
		return
	}

	conn := &connection{
		gw:       g,
		ws:       ws,
		client:   presence.NewClient(g.opts.SendBuffer),
		identity: claims.UserID,
		role:     claims.Role,
		limiter:  newLimiter(g.opts.EventsPerSecond),
	}
	if !g.registry.Join(conn.identity, conn.client) {
		_ = ws.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"),
			time.Now().Add(g.opts.WriteWait))
		_ = ws.Close()
		return
	}

	log := g.log.With(zap.String("identity", conn.identity), zap.Uint64("conn", conn.client.Seq()))
	conn.log = log
	log.Info("websocket connected", zap.String("role", conn.role))

	go conn.writeLoop()
	conn.readLoop(c.Request.Context())

	g.registry.Leave(conn.client)
	if n := g.tracker.EndOwnedBy(conn.client.Seq()); n > 0 {
		log.Info("navigation sessions released on disconnect", zap.Int("sessions", n))
	}
	log.Info("websocket disconnected")
}

type connection struct {
	gw       *Gateway
	ws       *websocket.Conn
	client   *presence.Client
	identity string
	role     string
	limiter  *rate.Limiter
	log      *zap.Logger
}

// writeLoop is the only writer on ws. It exits when the registry closes the
// client's queue or a write fails.
func (c *connection) writeLoop() {
	opts := c.gw.opts
	ticker := time.NewTicker(opts.PingInterval)
	defer func() {
		ticker.Stop()
		_ = c.ws.Close()
	}()

	for {
		select {
		case msg, ok := <-c.client.Send():
			_ = c.ws.SetWriteDeadline(time.Now().Add(opts.WriteWait))
			if !ok {
				_ = c.ws.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.ws.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.ws.SetWriteDeadline(time.Now().Add(opts.WriteWait))
			if err := c.ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (c *connection) readLoop(ctx context.Context) {
	opts := c.gw.opts
	c.ws.SetReadLimit(opts.MaxMessageBytes)
	_ = c.ws.SetReadDeadline(time.Now().Add(opts.PongWait))
	c.ws.SetPongHandler(func(string) error {
		return c.ws.SetReadDeadline(time.Now().Add(opts.PongWait))
	})

	for {
		_, raw, err := c.ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure) {
				c.log.Warn("websocket read failed", zap.Error(err))
			}
			return
		}
		_ = c.ws.SetReadDeadline(time.Now().Add(opts.PongWait))

		var msg inbound
		if err := json.Unmarshal(raw, &msg); err != nil || msg.Type == "" {
			c.fail("", "INVALID_FRAME", "frames must be JSON objects with a type", nil)
			continue
		}
		if !c.limiter.Allow() {
			c.fail(msg.Type, "RATE_LIMITED", "too many events, slow down", nil)
			continue
		}
		c.dispatch(ctx, msg)
	}
}

func (c *connection) dispatch(ctx context.Context, msg inbound) {
	switch {
	case msg.Type == EventPing:
		c.reply(EventPong, nil)
	case msg.Type == EventJoin:
		c.join(msg.Payload)
	case msg.Type == EventLocationUpdate:
		c.locationUpdate(ctx, msg.Payload)
	case signaling.Handles(msg.Type):
		if err := c.gw.relay.Relay(c.identity, msg.Type, msg.Payload); err != nil {
			c.failErr(msg.Type, err)
		}
	default:
		c.fail(msg.Type, "UNKNOWN_EVENT", "unknown event "+msg.Type, nil)
	}
}

// join is accepted for clients that announce themselves after connecting.
// The connection is already in its room, so only the identity is checked.
func (c *connection) join(raw json.RawMessage) {
	var p joinPayload
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &p); err != nil {
			c.fail(EventJoin, "VALIDATION_ERROR", "malformed join payload", nil)
			return
		}
	}
	if p.Identity != "" && p.Identity != c.identity {
		c.fail(EventJoin, "FORBIDDEN", "identity does not match the token", nil)
		return
	}
	c.gw.registry.Join(c.identity, c.client)
}

func (c *connection) locationUpdate(ctx context.Context, raw json.RawMessage) {
	if c.role != string(user.RoleStaff) {
		c.fail(EventLocationUpdate, "FORBIDDEN", "only staff can share location", nil)
		return
	}
	var p locationPayload
	if err := json.Unmarshal(raw, &p); err != nil || p.BookingID == "" || p.Lat == nil || p.Lon == nil {
		c.fail(EventLocationUpdate, "VALIDATION_ERROR", "bookingId, lat and lon are required", nil)
		return
	}

	ctx, cancel := context.WithTimeout(ctx, c.gw.opts.TrackTimeout)
	defer cancel()

	_, err := c.gw.tracker.Track(ctx, c.client.Seq(), c.identity, p.BookingID, geo.Point{Lat: *p.Lat, Lon: *p.Lon})
	if err != nil {
		var miss *navigation.GeocodeMissError
		if errors.As(err, &miss) {
			c.fail(EventLocationUpdate, "GEOCODE_FAILED", miss.Error(),
				map[string]string{"address": miss.Address, "fallbackUrl": miss.FallbackURL})
			return
		}
		c.failErr(EventLocationUpdate, err)
	}
}

func (c *connection) reply(event string, payload any) {
	if !c.gw.registry.SendTo(c.client, event, payload) {
		c.log.Warn("reply dropped", zap.String("event", event))
	}
}

func (c *connection) failErr(event string, err error) {
	_, code := response.Classify(err)
	msg := apperr.Message(err)
	if code == "INTERNAL_ERROR" {
		c.log.Error("websocket event failed", zap.String("event", event), zap.Error(err))
		msg = "internal error"
	}
	c.fail(event, code, msg, nil)
}

func (c *connection) fail(event, code, message string, details any) {
	c.reply(EventError, ErrorFrame{Code: code, Message: message, Event: event, Details: details})
}

// newLimiter allows bursts of two seconds worth of events, and at least one.
func newLimiter(eventsPerSecond float64) *rate.Limiter {
	burst := max(1, int(math.Ceil(eventsPerSecond*2)))
	return rate.NewLimiter(rate.Limit(eventsPerSecond), burst)
}
