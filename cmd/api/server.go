package main

import (
	"context"
	"errors"

	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/krpetrov/svyaz/internal/auth"
	"github.com/krpetrov/svyaz/internal/config"
	"github.com/krpetrov/svyaz/internal/data"
	"github.com/krpetrov/svyaz/internal/middleware"
)

// Store interfaces consumed by the HTTP layer. The concrete implementations
// live in internal/data; tests substitute in-memory fakes.
type usersRepo interface {
	CreateUser(ctx context.Context, name, email, hashedPassword string) (*data.User, error)
	GetUserByEmail(ctx context.Context, email string) (*data.User, error)
	GetUserByID(ctx context.Context, id string) (*data.User, error)
	UpdateUser(ctx context.Context, id, name, email string) (*data.User, error)
	DeleteUser(ctx context.Context, id string) error
	Search(ctx context.Context, query string, limit int64) ([]*data.User, error)
}

type chatsRepo interface {
	Get(ctx context.Context, id string) (*data.Chat, error)
	ListForUser(ctx context.Context, userID string) ([]*data.ChatView, error)
	FindPrivate(ctx context.Context, a, b string) (string, bool, error)
}

type messagesRepo interface {
	HistoryViews(ctx context.Context, chatID string, limit int64) ([]*data.MessageView, error)
	MarkRead(ctx context.Context, chatID, readerID string) error
}

// Server wires the REST surface and the websocket endpoint over the
// messaging core.
type Server struct {
	cfg      config.Config
	users    usersRepo
	chats    chatsRepo
	msgs     messagesRepo
	router   *MessageRouter
	presence *PresenceTracker
	registry *ConnectionRegistry
	jwt      *auth.JWTManager
	limiter  *middleware.LimiterStore
	logger   *zap.Logger
}

func NewServer(cfg config.Config, users usersRepo, chats chatsRepo, msgs messagesRepo,
	router *MessageRouter, presence *PresenceTracker, registry *ConnectionRegistry,
	jwt *auth.JWTManager, limiter *middleware.LimiterStore, logger *zap.Logger) *Server {
	return &Server{
		cfg:      cfg,
		users:    users,
		chats:    chats,
		msgs:     msgs,
		router:   router,
		presence: presence,
		registry: registry,
		jwt:      jwt,
		limiter:  limiter,
		logger:   logger,
	}
}

// App builds the fiber application with all routes mounted.
func (s *Server) App() *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:               "svyaz",
		DisableStartupMessage: true,
		ErrorHandler:          s.errorHandler,
	})

	app.Static("/uploads", s.cfg.UploadDir)

	authGroup := app.Group("/auth", middleware.RateLimit(s.limiter))
	authGroup.Post("/register", s.handleRegisterUser)
	authGroup.Post("/login", s.handleLogin)

	// The socket upgrade authenticates with a token query parameter, so it
	// must be mounted ahead of the bearer-token group below.
	app.Use("/ws", s.upgradeWS)
	app.Get("/ws", websocket.New(s.handleSocket))

	api := app.Group("/", middleware.RequireAuth(s.jwt))
	api.Get("/users/search/:query", s.handleSearchUsers)
	api.Get("/users/:id", s.handleGetUser)
	api.Put("/users/:id", s.handleUpdateUser)
	api.Delete("/users/:id", s.handleDeleteUser)
	api.Get("/chats/check/:firstID/:secondID", s.handleCheckChat)
	api.Get("/chats/:userID", s.handleListChats)
	api.Get("/messages/:chatID", s.handleMessageHistory)
	api.Post("/upload", s.handleUpload)

	return app
}

func (s *Server) errorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	var fe *fiber.Error
	if errors.As(err, &fe) {
		code = fe.Code
	}
	if code == fiber.StatusInternalServerError {
		s.logger.Error("request failed", zap.String("path", c.Path()), zap.Error(err))
		return c.Status(code).JSON(fiber.Map{"error": "internal server error"})
	}
	return c.Status(code).JSON(fiber.Map{"error": err.Error()})
}

// upgradeWS authenticates the websocket handshake with a token query
// parameter and rejects plain HTTP requests.
func (s *Server) upgradeWS(c *fiber.Ctx) error {
	if !websocket.IsWebSocketUpgrade(c) {
		return fiber.ErrUpgradeRequired
	}
	claims, err := s.jwt.VerifyToken(c.Query("token"))
	if err != nil {
		return fiber.NewError(fiber.StatusUnauthorized, "invalid or expired token")
	}
	c.Locals(middleware.ClaimsKey, claims)
	return c.Next()
}

func (s *Server) handleSocket(conn *websocket.Conn) {
	claims, ok := conn.Locals(middleware.ClaimsKey).(*auth.Claims)
	if !ok {
		_ = conn.Close()
		return
	}
	sess := newSession(newWSConn(conn), claims, s.registry, s.presence, s.router, s.logger)
	sess.Run(context.Background())
}
