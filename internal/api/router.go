package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/nekogravitycat/court-scheduler/internal/auth"
	"github.com/nekogravitycat/court-scheduler/internal/availability"
	availabilityHttp "github.com/nekogravitycat/court-scheduler/internal/availability/http"
	"github.com/nekogravitycat/court-scheduler/internal/block"
	blockHttp "github.com/nekogravitycat/court-scheduler/internal/block/http"
	"github.com/nekogravitycat/court-scheduler/internal/booking"
	bookingHttp "github.com/nekogravitycat/court-scheduler/internal/booking/http"
	"github.com/nekogravitycat/court-scheduler/internal/facility"
	facilityHttp "github.com/nekogravitycat/court-scheduler/internal/facility/http"
	"github.com/nekogravitycat/court-scheduler/internal/ledger"
	ledgerHttp "github.com/nekogravitycat/court-scheduler/internal/ledger/http"
	"github.com/nekogravitycat/court-scheduler/internal/logging"
	"github.com/nekogravitycat/court-scheduler/internal/payment"
	paymentHttp "github.com/nekogravitycat/court-scheduler/internal/payment/http"
	"github.com/nekogravitycat/court-scheduler/internal/recurring"
	recurringHttp "github.com/nekogravitycat/court-scheduler/internal/recurring/http"
)

// Config carries the services the router exposes.
type Config struct {
	IsProduction bool
	ProdOrigins  string

	FacilityService     facility.Service
	BookingService      booking.Service
	BlockService        block.Service
	RecurringService    recurring.Service
	LedgerService       ledger.Service
	AvailabilityService availability.Service
	PaymentService      payment.Service

	JWTManager *auth.JWTManager
}

// NewRouter initializes the HTTP router engine.
// It is responsible for assembling middleware (request logging, recovery, CORS) and registering routes for each module.
func NewRouter(cfg Config) *gin.Engine {
	if cfg.IsProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()

	// Global Middleware:
	// - RequestLogger: one structured log line per request, plus a request scoped logger in the context.
	// - Recovery: Captures panics to prevent server crashes and returns a 500 error.
	r.Use(logging.RequestLogger(), gin.Recovery())
	r.Use(corsMiddleware(cfg.IsProduction, cfg.ProdOrigins))

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	// authMiddleware: Validates if the request contains a valid JWT.
	authMiddleware := auth.AuthRequired(cfg.JWTManager)

	// Initialize HTTP Handlers for each module (injecting Service dependencies).
	facilityHandler := facilityHttp.NewHandler(cfg.FacilityService)
	bookingHandler := bookingHttp.NewHandler(cfg.BookingService)
	blockHandler := blockHttp.NewHandler(cfg.BlockService)
	recurringHandler := recurringHttp.NewHandler(cfg.RecurringService)
	ledgerHandler := ledgerHttp.NewHandler(cfg.LedgerService)
	availabilityHandler := availabilityHttp.NewHandler(cfg.AvailabilityService)
	paymentHandler := paymentHttp.NewHandler(cfg.PaymentService)

	// Register API routes under /v1
	v1 := r.Group("/v1")
	{
		availabilityHttp.RegisterRoutes(v1, availabilityHandler)
		facilityHttp.RegisterRoutes(v1, facilityHandler, authMiddleware)
		ledgerHttp.RegisterRoutes(v1, ledgerHandler, authMiddleware)
		bookingHttp.RegisterRoutes(v1, bookingHandler, authMiddleware)
		blockHttp.RegisterRoutes(v1, blockHandler, authMiddleware)
		recurringHttp.RegisterRoutes(v1, recurringHandler, authMiddleware)
		paymentHttp.RegisterRoutes(v1, paymentHandler)
	}

	return r
}
