package httpserver

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/rentloop/rentcore/pkg/rental"
)

// Config carries the HTTP facade settings.
type Config struct {
	ListenAddr     string
	AllowedOrigins []string
	JWTSecret      string
}

// Services bundles the domain services the facade exposes.
type Services struct {
	Bookings *rental.BookingService
	Payments *rental.PaymentService
	Ledger   *rental.LedgerService
	Payouts  *rental.PayoutService
}

// NewRouter builds the gin engine with every route mounted. Exposed so
// handler tests can drive it through httptest without a listener.
func NewRouter(cfg Config, logger *zap.Logger, services Services) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())
	if len(cfg.AllowedOrigins) > 0 {
		router.Use(cors.New(cors.Config{
			AllowOrigins:     cfg.AllowedOrigins,
			AllowMethods:     []string{"GET", "POST", "OPTIONS"},
			AllowHeaders:     []string{"Content-Type", "Origin", "Accept", "Authorization"},
			AllowCredentials: true,
			MaxAge:           12 * time.Hour,
		}))
	}

	router.GET("/healthz", func(ctx *gin.Context) {
		ctx.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	requestHandler := &handler{
		logger:   logger,
		bookings: services.Bookings,
		payments: services.Payments,
		ledger:   services.Ledger,
		payouts:  services.Payouts,
	}

	api := router.Group("/api")
	api.Use(actorMiddleware([]byte(cfg.JWTSecret)))

	api.POST("/bookings", requestHandler.handleCreateBooking)
	api.GET("/bookings/:id", requestHandler.handleGetBooking)
	api.POST("/bookings/:id/confirm", requestHandler.bookingAction(func(ctx *gin.Context, bookingID rental.BookingID, actorID rental.UserID) (rental.Booking, error) {
		return services.Bookings.Confirm(ctx.Request.Context(), bookingID, actorID)
	}))
	api.POST("/bookings/:id/pay", requestHandler.bookingAction(func(ctx *gin.Context, bookingID rental.BookingID, actorID rental.UserID) (rental.Booking, error) {
		return services.Bookings.Pay(ctx.Request.Context(), bookingID, actorID)
	}))
	api.POST("/bookings/:id/complete", requestHandler.bookingAction(func(ctx *gin.Context, bookingID rental.BookingID, actorID rental.UserID) (rental.Booking, error) {
		return services.Bookings.Complete(ctx.Request.Context(), bookingID, actorID)
	}))
	api.POST("/bookings/:id/cancel", requestHandler.handleCancelBooking)

	api.GET("/bookings/:id/payment", requestHandler.handleGetPayment)
	api.POST("/bookings/:id/payment/authorize", requestHandler.paymentAction(func(ctx *gin.Context, bookingID rental.BookingID, actorID rental.UserID) (rental.PaymentIntent, error) {
		return services.Payments.Authorize(ctx.Request.Context(), bookingID, actorID)
	}))
	api.POST("/bookings/:id/payment/capture", requestHandler.paymentAction(func(ctx *gin.Context, bookingID rental.BookingID, actorID rental.UserID) (rental.PaymentIntent, error) {
		return services.Payments.Capture(ctx.Request.Context(), bookingID, actorID)
	}))
	api.POST("/bookings/:id/payment/refund", requestHandler.paymentAction(func(ctx *gin.Context, bookingID rental.BookingID, actorID rental.UserID) (rental.PaymentIntent, error) {
		return services.Payments.Refund(ctx.Request.Context(), bookingID, actorID)
	}))
	api.POST("/bookings/:id/payment/cancel", requestHandler.paymentAction(func(ctx *gin.Context, bookingID rental.BookingID, actorID rental.UserID) (rental.PaymentIntent, error) {
		return services.Payments.Cancel(ctx.Request.Context(), bookingID, actorID)
	}))

	api.GET("/listings/:id/availability", requestHandler.handleAvailability)

	admin := api.Group("/admin")
	admin.Use(requireAdmin())
	admin.GET("/hosts/:id/balance", requestHandler.handleHostBalance)
	admin.POST("/payouts", requestHandler.handleCreatePayout)
	admin.GET("/payouts/:id", requestHandler.handleGetPayout)
	admin.POST("/payouts/:id/paid", requestHandler.handleMarkPayoutPaid)
	admin.POST("/bookings/:id/dispute/open", requestHandler.disputeAction(func(ctx *gin.Context, bookingID rental.BookingID) (rental.Booking, error) {
		return services.Bookings.OpenDispute(ctx.Request.Context(), bookingID)
	}))
	admin.POST("/bookings/:id/dispute/resolve", requestHandler.disputeAction(func(ctx *gin.Context, bookingID rental.BookingID) (rental.Booking, error) {
		return services.Bookings.ResolveDispute(ctx.Request.Context(), bookingID)
	}))

	return router
}

// Run serves the router until ctx is cancelled, then shuts down gracefully.
func Run(ctx context.Context, cfg Config, logger *zap.Logger, services Services) error {
	router := NewRouter(cfg, logger, services)
	server := &http.Server{
		Addr:    cfg.ListenAddr,
		Handler: router,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("rentald listening", zap.String("addr", cfg.ListenAddr))
		errCh <- server.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if shutdownErr := server.Shutdown(shutdownCtx); shutdownErr != nil {
			logger.Warn("server shutdown error", zap.Error(shutdownErr))
		}
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}
