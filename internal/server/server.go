package server

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"

	"courtside/internal/auth"
	"courtside/internal/booking"
	"courtside/internal/checkout"
	"courtside/internal/config"
	"courtside/internal/email"
	"courtside/internal/invoice"
	"courtside/internal/membership"
	"courtside/internal/slot"
)

type Server struct {
	router *gin.Engine
	http   *http.Server
	config *config.Config

	// Sweeper is started by main alongside the HTTP listener.
	Sweeper *booking.Sweeper
}

func New(db *sqlx.DB, rdb *redis.Client, cfg *config.Config, emailService *email.Service, gateway checkout.Gateway) *Server {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(CORSMiddleware())
	router.Use(RequestLoggingMiddleware())
	router.Use(MetricsMiddleware())
	router.Use(RateLimitMiddleware(context.Background(), cfg.RateLimitRPS, cfg.RateLimitBurst))

	slotRepo := slot.NewRepository(db)
	invoiceRepo := invoice.NewRepository(db)
	membershipRepo := membership.NewRepository(db)
	bookingRepo := booking.NewRepository(db, slotRepo)

	bookingService := booking.NewService(bookingRepo, slotRepo, invoiceRepo, cfg.HoldTTL)

	pendingStore := checkout.NewPendingStore(rdb, cfg.HoldTTL)
	sessionStore := checkout.NewSessionStore(rdb, cfg.OmisePublicKey, cfg.HoldTTL)
	checkoutService := checkout.NewService(
		bookingRepo, invoiceRepo, membershipRepo,
		gateway, pendingStore, emailService,
		checkout.Options{
			Currency:             cfg.Currency,
			ReturnURL:            cfg.PaymentReturnURL,
			ProcessingFee:        cfg.ProcessingFee,
			PendingTTL:           cfg.HoldTTL,
			ReconcileInterval:    cfg.ReconcileInterval,
			ReconcileMaxAttempts: cfg.ReconcileMaxAttempts,
		},
	)

	slotHandler := slot.NewHandler(slotRepo)
	membershipHandler := membership.NewHandler(membershipRepo)
	invoiceHandler := invoice.NewHandler(invoiceRepo)
	bookingHandler := booking.NewHandler(bookingService)
	checkoutHandler := checkout.NewHandler(checkoutService, sessionStore)
	webhookHandler := checkout.NewWebhookHandler(checkoutService)

	router.GET("/health", Health)
	router.GET("/metrics", Metrics())
	router.GET("/test-email", TestEmail(emailService))
	router.POST("/webhooks/payment", webhookHandler.HandlePaymentEvent)

	authMiddleware := auth.Middleware(cfg.JWTSecret)
	protected := router.Group("/")
	protected.Use(authMiddleware)
	{
		protected.GET("/resources/:resourceID/slots", slotHandler.ListAvailableSlots)

		protected.POST("/bookings", bookingHandler.CreateBooking)
		protected.GET("/bookings", bookingHandler.ListMyBookings)
		protected.GET("/bookings/:bookingID", bookingHandler.GetBooking)

		protected.GET("/membership/plans", membershipHandler.ListPlans)
		protected.GET("/membership/balance", membershipHandler.GetBalance)
		protected.POST("/membership/discount-preview", membershipHandler.PreviewDiscount)

		protected.GET("/invoices/:invoiceID", invoiceHandler.GetInvoice)
		protected.POST("/invoices/:invoiceID/cancel-booking", bookingHandler.CancelBooking)

		protected.GET("/checkout/session", checkoutHandler.GetPaymentSession)
		protected.POST("/checkout", checkoutHandler.CheckoutBooking)
		protected.POST("/checkout/membership", checkoutHandler.CheckoutMembership)
		protected.POST("/payments/:attemptID/reconcile", checkoutHandler.Reconcile)
	}

	admin := router.Group("/admin")
	admin.Use(authMiddleware, auth.RequireRole("admin"))
	{
		admin.POST("/invoices/:invoiceID/expire", bookingHandler.ExpireInvoice)
	}

	return &Server{
		router:  router,
		config:  cfg,
		Sweeper: booking.NewSweeper(bookingRepo, bookingService, cfg.SweepInterval),
	}
}

func (s *Server) Start(port string) error {
	s.http = &http.Server{
		Addr:         ":" + port,
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
	}
	return s.http.ListenAndServe()
}

// Shutdown drains in-flight requests before returning.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.http == nil {
		return nil
	}
	return s.http.Shutdown(ctx)
}

// Router exposes the engine for tests.
func (s *Server) Router() *gin.Engine {
	return s.router
}
