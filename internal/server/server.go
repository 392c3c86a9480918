// Package server wires the domain services into one gin engine.
package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"homecare/internal/config"
	"homecare/internal/domain/booking"
	"homecare/internal/domain/chat"
	"homecare/internal/domain/dispatch"
	"homecare/internal/domain/navigation"
	"homecare/internal/domain/notification"
	"homecare/internal/domain/upload"
	"homecare/internal/domain/user"
	"homecare/internal/middleware"
	"homecare/internal/pkg/geo"
	jwtsvc "homecare/internal/pkg/jwt"
	"homecare/internal/realtime/gateway"
	"homecare/internal/realtime/presence"
	"homecare/internal/realtime/signaling"
)

type Deps struct {
	Config   *config.Config
	DB       *gorm.DB
	Log      *zap.Logger
	Geocoder geo.Geocoder
	Router   geo.Router
}

// Server holds the engine and the long-lived components main has to run and
// stop.
type Server struct {
	Engine   *gin.Engine
	Registry *presence.Registry
	Tracker  *navigation.Tracker
	JWT      *jwtsvc.Service
}

// Migrate creates or updates every table the server uses.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&user.User{},
		&booking.Booking{},
		&notification.Notification{},
		&chat.Message{},
		&upload.Upload{},
	)
}

func New(d Deps) *Server {
	cfg, db, log := d.Config, d.DB, d.Log

	j := jwtsvc.New(cfg.JWTSecret, cfg.JWTTTL)
	registry := presence.NewRegistry(log.Named("presence"))

	// Users
	userRepo := user.NewRepository(db)
	userHandler := user.NewHandler(user.NewService(userRepo))

	// Bookings
	bookingRepo := booking.NewRepository(db)
	bookingService := booking.NewService(bookingRepo, userRepo)
	bookingHandler := booking.NewHandler(bookingService)

	// Notifications
	notificationService := notification.NewService(db, userRepo, bookingRepo, registry, log.Named("notification"))
	notificationHandler := notification.NewHandler(notificationService)

	// Dispatch
	dispatchService := dispatch.NewService(db, bookingService, notificationService, registry, log.Named("dispatch"))
	dispatchHandler := dispatch.NewHandler(dispatchService)

	// Chat
	chatService := chat.NewService(chat.NewRepository(db), bookingService, registry, cfg.ChatHistoryLimit, log.Named("chat"))
	chatHandler := chat.NewHandler(chatService, userRepo)

	// Uploads
	uploadHandler := upload.NewHandler(upload.NewService(upload.NewRepository(db), cfg.UploadDir, cfg.UploadURLBase))

	// Navigation
	tracker := navigation.NewTracker(d.Geocoder, d.Router, bookingRepo, registry, cfg.NavIdleTimeout, log.Named("navigation"))
	navigationHandler := navigation.NewHandler(tracker)

	// Signaling and WebSocket gateway
	relay := signaling.NewRelay(registry, log.Named("signaling"))
	signalingHandler := signaling.NewHandler(relay, bookingService)
	gw := gateway.New(registry, j, relay, tracker, gateway.Options{
		EventsPerSecond: cfg.WSEventsPerSecond,
	}, log.Named("gateway"))

	r := gin.New()
	r.Use(middleware.RequestLogger(log.Named("http")))
	r.Use(middleware.CORS(cfg.AllowedOrigins()))
	r.Static(cfg.UploadURLBase, cfg.UploadDir)

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/ws", gw.Handle)

	v1 := r.Group("/api/v1")
	public := v1.Group("")
	public.Use(middleware.OptionalJWTAuth(j))
	protected := v1.Group("")
	protected.Use(middleware.JWTAuth(j))
	{
		booking.RegisterRoutes(public, protected, bookingHandler)
		dispatch.RegisterRoutes(protected, dispatchHandler)
		user.RegisterRoutes(protected, userHandler)
		notification.RegisterRoutes(protected, notificationHandler)
		chat.RegisterRoutes(protected, chatHandler)
		upload.RegisterRoutes(protected, uploadHandler)
		navigation.RegisterRoutes(protected, navigationHandler)
		signaling.RegisterRoutes(protected, signalingHandler)
	}

	return &Server{Engine: r, Registry: registry, Tracker: tracker, JWT: j}
}
