// Package server contains the HTTP and WebSocket handlers for the API.
package server

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"pulse/internal/config"
	"pulse/internal/device"
	"pulse/internal/kv"
	"pulse/internal/middleware"
	"pulse/internal/models"
	"pulse/internal/notify"
	"pulse/internal/store"

	"github.com/ansrivas/fiberprometheus/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/monitor"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/golang-jwt/jwt/v5"
)

const (
	tokenIssuer   = "pulse-api"
	tokenAudience = "pulse-client"
)

// Server holds all dependencies and provides handlers
type Server struct {
	config         *config.Config
	kv             kv.Store
	app            *fiber.App
	promMiddleware *fiberprometheus.FiberPrometheus
	session        *store.SessionStore
	friends        *store.FriendsStore
	chats          *store.ChatsStore
	permissions    *store.PermissionsStore
	events         *eventBroker
	closeKV        func() error
}

// NewServer creates a server instance, opening the persistence backend named
// by the configuration.
func NewServer(cfg *config.Config) (*Server, error) {
	kvStore, closeKV, err := openBackend(cfg)
	if err != nil {
		return nil, fmt.Errorf("storage backend init failed: %w", err)
	}

	s, err := NewServerWithDeps(cfg, kvStore, device.Granted(), notify.LogSender{})
	if err != nil {
		if closeKV != nil {
			_ = closeKV()
		}
		return nil, err
	}
	s.closeKV = closeKV
	return s, nil
}

func openBackend(cfg *config.Config) (kv.Store, func() error, error) {
	switch cfg.StorageBackend {
	case config.BackendMemory:
		return kv.NewMemory(), nil, nil
	case config.BackendSQLite:
		s, err := kv.OpenSQLite(cfg.SQLitePath)
		return s, nil, err
	case config.BackendPostgres:
		s, err := kv.OpenPostgres(cfg.DatabaseDSN())
		return s, nil, err
	case config.BackendRedis:
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		s, err := kv.ConnectRedis(ctx, cfg.RedisURL)
		if err != nil {
			return nil, nil, err
		}
		return s, s.Close, nil
	default:
		return nil, nil, fmt.Errorf("unknown storage backend %q", cfg.StorageBackend)
	}
}

// NewServerWithDeps creates a Server over already-initialized dependencies.
// Tests use this with an in-memory backend and stub capabilities.
func NewServerWithDeps(cfg *config.Config, kvStore kv.Store, caps device.Capabilities, sender notify.Sender) (*Server, error) {
	session := store.NewSessionStore(kvStore,
		store.WithSender(sender),
		store.WithFreeCalls(cfg.FreeCalls),
		store.WithResetTTL(time.Duration(cfg.ResetCodeTTLMins)*time.Minute),
	)
	friends := store.NewFriendsStore(kvStore, session)
	chats := store.NewChatsStore(kvStore, session)
	permissions := store.NewPermissionsStore(kvStore, caps)

	s := &Server{
		config:         cfg,
		kv:             kvStore,
		promMiddleware: middleware.InitMetrics("pulse-api"),
		session:        session,
		friends:        friends,
		chats:          chats,
		permissions:    permissions,
		events:         newEventBroker(),
	}

	// Identity changes re-scope the friend and chat snapshots, the way a
	// navigation guard re-evaluates routes on every auth change.
	session.Subscribe(func(*models.User) {
		ctx := context.Background()
		_ = friends.Load(ctx)
		_ = chats.Load(ctx)
	})

	s.events.wire(session, friends, chats)

	// Hydrate from whatever the backend already holds.
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := session.Load(ctx); err != nil {
		return nil, err
	}

	return s, nil
}

// Session exposes the session store for callers embedding the server.
func (s *Server) Session() *store.SessionStore { return s.session }

// Friends exposes the friends store.
func (s *Server) Friends() *store.FriendsStore { return s.friends }

// Chats exposes the chats store.
func (s *Server) Chats() *store.ChatsStore { return s.chats }

// Permissions exposes the permissions store.
func (s *Server) Permissions() *store.PermissionsStore { return s.permissions }

// SetupMiddleware configures middleware for the Fiber app
func (s *Server) SetupMiddleware(app *fiber.App) {
	// Panic recovery
	app.Use(recover.New())

	// Request ID for tracing
	app.Use(requestid.New())

	// Propagate request ID into the request context for store logs
	app.Use(middleware.ContextMiddleware())

	// Prometheus metrics
	if s.promMiddleware != nil {
		app.Use(middleware.MetricsMiddleware(s.promMiddleware))
	}

	if s.config.TracingEnabled {
		app.Use(middleware.TracingMiddleware())
	}

	// Structured logging (after requestid and context middleware)
	app.Use(middleware.StructuredLogger())

	// CORS runs before middlewares that can short-circuit (e.g. limiter)
	// so browser clients still receive CORS headers on error responses.
	origins := s.config.AllowedOrigins
	if origins == "" {
		origins = "http://localhost:5173,http://localhost:3000"
	}

	app.Use(cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization, Upgrade, Connection, Sec-WebSocket-Key, Sec-WebSocket-Version",
		AllowCredentials: true,
		MaxAge:           86400,
	}))

	// Global rate limiting (100 requests per minute per IP)
	app.Use(limiter.New(limiter.Config{
		Max:        100,
		Expiration: 1 * time.Minute,
		Next: func(c *fiber.Ctx) bool {
			return c.Method() == fiber.MethodOptions
		},
		KeyGenerator: func(c *fiber.Ctx) string {
			return c.IP()
		},
		LimitReached: func(c *fiber.Ctx) error {
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
				"error": "Too many requests, please try again later.",
			})
		},
	}))
}

// SetupRoutes configures all routes for the application
func (s *Server) SetupRoutes(app *fiber.App) {
	api := app.Group("/api")

	// Health checks
	app.Get("/health/live", s.LivenessCheck)
	app.Get("/health/ready", s.ReadinessCheck)
	app.Get("/health", s.ReadinessCheck)
	api.Get("/", s.HealthCheck)

	// Metrics endpoint for Prometheus
	if s.promMiddleware != nil {
		s.promMiddleware.RegisterAt(app, "/metrics")
	}
	api.Get("/metrics/dashboard", monitor.New(monitor.Config{
		Title: "Pulse Metrics Dashboard",
	}))

	// Auth routes
	auth := api.Group("/auth")
	auth.Post("/signup", s.Signup)
	auth.Post("/login", s.Login)
	auth.Post("/logout", s.Logout)
	auth.Post("/password/forgot", s.ForgotPassword)
	auth.Post("/password/reset", s.ResetPassword)

	// Permission routes are public: the prompt flow runs before signup.
	permissions := api.Group("/permissions")
	permissions.Get("/", s.GetPermissionStatus)
	permissions.Post("/request", s.RequestPermissions)
	permissions.Post("/requested", s.MarkPermissionsRequested)
	permissions.Get("/requested", s.GetPermissionsRequested)

	// Onboarding flag is public too: it is written before an account exists.
	api.Get("/onboarding", s.GetOnboarding)
	api.Post("/onboarding", s.MarkOnboardingSeen)

	// Video provider configuration
	api.Get("/video/config", s.GetVideoConfig)

	// Protected routes
	protected := api.Group("", s.AuthRequired())

	profile := protected.Group("/profile")
	profile.Get("/", s.GetProfile)
	profile.Put("/", s.CompleteProfile)
	profile.Patch("/settings", s.UpdateSettings)
	profile.Put("/gender-preference", s.UpdateGenderPreference)
	profile.Put("/premium", s.SetPremium)
	profile.Post("/calls/decrement", s.DecrementCall)

	friends := protected.Group("/friends")
	friends.Get("/", s.GetFriends)
	friends.Post("/", s.AddFriend)
	friends.Get("/:id/messages", s.GetFriendMessages)
	friends.Post("/:id/messages", s.SendFriendMessage)
	friends.Get("/:id", s.GetFriend)
	friends.Delete("/:id", s.RemoveFriend)

	chats := protected.Group("/chats")
	chats.Get("/", s.GetChats)
	chats.Post("/", s.AddChat)
	chats.Get("/active", s.GetActiveChats)
	chats.Get("/:id/messages", s.GetChatMessages)
	chats.Post("/:id/messages", s.SendChatMessage)
	chats.Post("/:id/deactivate", s.DeactivateChat)
	chats.Get("/:id", s.GetChat)

	// Store-change event stream
	ws := api.Group("/ws", s.AuthRequired())
	ws.Get("/events", s.EventsHandler())
}

// HealthCheck is a simple alias for ReadinessCheck
func (s *Server) HealthCheck(c *fiber.Ctx) error {
	return s.ReadinessCheck(c)
}

// LivenessCheck handles liveness probe requests
func (s *Server) LivenessCheck(c *fiber.Ctx) error {
	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"status": "up",
		"time":   time.Now(),
	})
}

// ReadinessCheck handles readiness probe requests
func (s *Server) ReadinessCheck(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.Context(), 5*time.Second)
	defer cancel()

	storageStatus := "healthy"
	if _, err := s.kv.Get(ctx, "health:probe"); err != nil && !errors.Is(err, kv.ErrNotFound) {
		storageStatus = "unhealthy"
	}

	status := fiber.StatusOK
	overallStatus := "healthy"
	if storageStatus != "healthy" {
		status = fiber.StatusServiceUnavailable
		overallStatus = "unhealthy"
	}

	return c.Status(status).JSON(fiber.Map{
		"status": overallStatus,
		"checks": fiber.Map{
			"storage": storageStatus,
		},
		"time": time.Now(),
	})
}

// AuthRequired returns the authentication middleware
func (s *Server) AuthRequired() fiber.Handler {
	return func(c *fiber.Ctx) error {
		authHeader := c.Get("Authorization")
		tokenString := ""
		if authHeader != "" {
			parts := strings.Split(authHeader, " ")
			if len(parts) == 2 && parts[0] == "Bearer" {
				tokenString = parts[1]
			}
		}
		if tokenString == "" {
			// WebSocket clients cannot set headers; allow a query token there.
			tokenString = c.Query("token")
		}
		if tokenString == "" {
			return models.RespondWithError(c, fiber.StatusUnauthorized,
				models.NewUnauthorizedError("Authorization required"))
		}

		token, err := jwt.Parse(tokenString, func(token *jwt.Token) (any, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fiber.NewError(fiber.StatusUnauthorized, "Invalid signing method")
			}
			return []byte(s.config.JWTSecret), nil
		})
		if err != nil || !token.Valid {
			return models.RespondWithError(c, fiber.StatusUnauthorized,
				models.NewUnauthorizedError("Invalid or expired token"))
		}

		claims, ok := token.Claims.(jwt.MapClaims)
		if !ok {
			return models.RespondWithError(c, fiber.StatusUnauthorized,
				models.NewUnauthorizedError("Invalid token claims"))
		}

		if issuer, issuerOk := claims["iss"].(string); !issuerOk || issuer != tokenIssuer {
			return models.RespondWithError(c, fiber.StatusUnauthorized,
				models.NewUnauthorizedError("Invalid token issuer"))
		}
		if audience, audienceOk := claims["aud"].(string); !audienceOk || audience != tokenAudience {
			return models.RespondWithError(c, fiber.StatusUnauthorized,
				models.NewUnauthorizedError("Invalid token audience"))
		}

		// Subject is the account email.
		email, ok := claims["sub"].(string)
		if !ok || email == "" {
			return models.RespondWithError(c, fiber.StatusUnauthorized,
				models.NewUnauthorizedError("Invalid subject claim"))
		}

		c.Locals("email", email)
		return c.Next()
	}
}

// Start starts the server
func (s *Server) Start() error {
	app := fiber.New(fiber.Config{
		AppName: "Pulse API",
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			log.Printf("Error: %v", err)
			return models.RespondWithError(c, fiber.StatusInternalServerError,
				models.NewInternalError(err))
		},
	})
	s.app = app

	s.SetupMiddleware(app)
	s.SetupRoutes(app)

	log.Printf("Server starting on port %s...", s.config.Port)
	return app.Listen(":" + s.config.Port)
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	if s.app != nil {
		if err := s.app.ShutdownWithContext(ctx); err != nil {
			log.Printf("error shutting down HTTP server: %v", err)
		}
	}

	s.events.shutdown()

	if s.closeKV != nil {
		if err := s.closeKV(); err != nil {
			log.Printf("error closing storage backend: %v", err)
		}
	}

	log.Println("Server shutdown complete")
	return nil
}
