package server

import (
	"context"
	"net/http"
	"time"

	"fitstudio/internal/account"
	"fitstudio/internal/auth"
	"fitstudio/internal/chat"
	"fitstudio/internal/config"
	"fitstudio/internal/email"
	"fitstudio/internal/notification"
	"fitstudio/internal/payment"
	"fitstudio/internal/session"
	"fitstudio/internal/subscription"

	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"
)

// Deps are the long-lived collaborators built by main.
type Deps struct {
	DB       *sqlx.DB
	Email    *email.Service
	Notifier notification.Notifier
	Hub      *chat.Hub
	Provider payment.Provider
}

type Server struct {
	router *gin.Engine
	http   *http.Server
	config *config.Config
}

// New builds the router. ctx bounds background work started by middleware.
func New(ctx context.Context, cfg *config.Config, deps Deps) *Server {
	router := gin.New()
	router.Use(
		gin.Recovery(),
		TraceMiddleware(),
		RequestLoggingMiddleware(),
		MetricsMiddleware(),
		CORSMiddleware(cfg.FrontendURL),
	)

	accountRepo := account.NewRepository(deps.DB)
	sessionRepo := session.NewRepository(deps.DB)
	paymentRepo := payment.NewRepository(deps.DB)
	subscriptionRepo := subscription.NewRepository(deps.DB)
	notificationRepo := notification.NewRepository(deps.DB)

	var mailer payment.Mailer
	if deps.Email != nil {
		mailer = deps.Email
	}

	chatWindow := time.Duration(cfg.ChatWindowDays) * 24 * time.Hour
	chatService := chat.NewService(chat.NewRepository(deps.DB), sessionRepo, deps.Hub, chatWindow)
	sessionService := session.NewService(sessionRepo, chatService, deps.Notifier, paymentRepo, accountRepo)
	paymentService := payment.NewService(deps.DB, paymentRepo, sessionRepo, accountRepo,
		deps.Provider, deps.Notifier, mailer, payment.Options{
			Currency:    cfg.PaymentCurrency,
			FrontendURL: cfg.FrontendURL,
			Split:       payment.SplitPolicy{TrainerBasisPoints: cfg.TrainerShareBPS},
			ChatWindow:  chatWindow,
		})

	accountHandler := account.NewHandler(account.NewService(accountRepo, cfg.JWTSecret))
	sessionHandler := session.NewHandler(sessionService)
	paymentHandler := payment.NewHandler(paymentService)
	chatHandler := chat.NewHandler(chatService, deps.Hub, cfg.FrontendURL)
	subscriptionHandler := subscription.NewHandler(subscriptionRepo)
	notificationHandler := notification.NewHandler(notificationRepo)

	router.GET("/health", Health)
	router.GET("/metrics", Metrics())
	SetupSwagger(router)

	// Stripe retries from a pool of addresses; it is authenticated by
	// signature and kept out of the per-IP limiter.
	router.POST("/payments/webhook", paymentHandler.Webhook)

	limited := router.Group("/", RateLimitMiddleware(ctx, cfg.RateLimitRPS, cfg.RateLimitBurst))

	public := limited.Group("/auth")
	{
		public.POST("/register", accountHandler.Register)
		public.POST("/login", accountHandler.Login)
		public.POST("/refresh", accountHandler.Refresh)
	}

	authMiddleware := auth.AuthMiddleware(cfg.JWTSecret, accountRepo)
	member := auth.RequireRole(auth.RoleMember)
	trainer := auth.RequireRole(auth.RoleTrainer)
	staff := auth.RequireRole(auth.RoleTrainer, auth.RoleAdmin)
	chatters := auth.RequireRole(auth.RoleMember, auth.RoleTrainer)

	limited.GET("/messages/ws", QueryTokenMiddleware(), authMiddleware, chatters, chatHandler.ServeWS)

	protected := limited.Group("/", authMiddleware)
	{
		protected.GET("/me", accountHandler.GetMe)

		protected.POST("/sessions", staff, sessionHandler.Create)
		protected.GET("/sessions/public", sessionHandler.ListPublic)
		protected.GET("/sessions/mine", sessionHandler.ListMine)
		protected.GET("/sessions/:id", sessionHandler.Get)
		protected.PUT("/sessions/:id", staff, sessionHandler.Update)
		protected.DELETE("/sessions/:id", staff, sessionHandler.Delete)
		protected.POST("/sessions/:id/join", member, sessionHandler.Join)
		protected.POST("/sessions/:id/start", staff, sessionHandler.Start)
		protected.POST("/sessions/:id/complete", staff, sessionHandler.Complete)
		protected.POST("/sessions/:id/cancel", staff, sessionHandler.Cancel)

		protected.POST("/payments/checkout", member, paymentHandler.Checkout)
		protected.POST("/payments/create-intent", member, paymentHandler.CreateIntent)
		protected.GET("/payments/mine", member, paymentHandler.Mine)

		protected.GET("/messages/threads", trainer, chatHandler.ListThreads)
		protected.GET("/messages/:peerID", chatters, chatHandler.ListMessages)
		protected.POST("/messages/:peerID", chatters, chatHandler.SendMessage)
		protected.GET("/messages/:peerID/access", chatters, chatHandler.GetAccess)

		protected.GET("/subscriptions", member, subscriptionHandler.ListMine)

		protected.GET("/notifications", notificationHandler.List)
		protected.PATCH("/notifications/:id/read", notificationHandler.MarkRead)
		protected.POST("/notifications/read-all", notificationHandler.MarkAllRead)
		protected.DELETE("/notifications/:id", notificationHandler.Delete)
	}

	admin := protected.Group("/admin", auth.RequireRole(auth.RoleAdmin))
	{
		admin.POST("/trainers", accountHandler.CreateTrainer)
		admin.GET("/trainers", accountHandler.ListTrainers)
		admin.GET("/payments", paymentHandler.AdminList)
		admin.GET("/revenue", paymentHandler.AdminRevenue)
		if deps.Email != nil {
			admin.GET("/test-email", TestEmail(deps.Email))
		}
	}

	return &Server{
		router: router,
		config: cfg,
		http: &http.Server{
			Addr:              ":" + cfg.Port,
			Handler:           router,
			ReadHeaderTimeout: 10 * time.Second,
			ReadTimeout:       30 * time.Second,
			WriteTimeout:      30 * time.Second,
			IdleTimeout:       120 * time.Second,
		},
	}
}

func (s *Server) Handler() http.Handler {
	return s.router
}

// Start blocks until the server stops. It returns http.ErrServerClosed after
// Shutdown.
func (s *Server) Start() error {
	return s.http.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.http.Shutdown(ctx)
}
