package app

import (
	"fmt"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"

	"github.com/nekogravitycat/court-scheduler/internal/api"
	"github.com/nekogravitycat/court-scheduler/internal/auth"
	"github.com/nekogravitycat/court-scheduler/internal/availability"
	"github.com/nekogravitycat/court-scheduler/internal/block"
	"github.com/nekogravitycat/court-scheduler/internal/booking"
	"github.com/nekogravitycat/court-scheduler/internal/db"
	"github.com/nekogravitycat/court-scheduler/internal/facility"
	"github.com/nekogravitycat/court-scheduler/internal/ledger"
	"github.com/nekogravitycat/court-scheduler/internal/notify"
	"github.com/nekogravitycat/court-scheduler/internal/occupancy"
	"github.com/nekogravitycat/court-scheduler/internal/payment"
	"github.com/nekogravitycat/court-scheduler/internal/pkg/clock"
	"github.com/nekogravitycat/court-scheduler/internal/pkg/secret"
	"github.com/nekogravitycat/court-scheduler/internal/recurring"
)

// Config holds the dependencies and settings required to start the application.
type Config struct {
	IsProduction bool
	ProdOrigins  string
	DBPool       *pgxpool.Pool
	JWTSecret    string
	JWTTTL       time.Duration

	CredentialsKey string
	PendingGrace   time.Duration

	WebhookSecret   string
	ProviderBaseURL string
	ProviderTimeout time.Duration

	Notifier notify.Notifier
	// Clock defaults to the wall clock.
	Clock clock.Clock
}

// Container holds the initialized components that are needed externally.
type Container struct {
	Router         *gin.Engine
	JWTManager     *auth.JWTManager
	BookingService booking.Service
}

// NewContainer initializes all modules and returns the container.
func NewContainer(cfg Config) (*Container, error) {
	clk := cfg.Clock
	if clk == nil {
		clk = clock.System()
	}
	notifier := cfg.Notifier
	if notifier == nil {
		notifier = notify.NewLogNotifier(log.Logger)
	}

	// Init Components
	jwtManager := auth.NewJWTManager(cfg.JWTSecret, cfg.JWTTTL)
	cipher, err := secret.NewCipher(cfg.CredentialsKey)
	if err != nil {
		return nil, fmt.Errorf("init credentials cipher: %w", err)
	}
	tx := db.NewTransactor(cfg.DBPool)
	aggregator := occupancy.NewAggregator(occupancy.NewPgxRepository(cfg.DBPool), clk, cfg.PendingGrace)

	// Facility Module
	facilityRepo := facility.NewPgxRepository(cfg.DBPool)
	facilityService := facility.NewService(facilityRepo, cipher)

	// Ledger Module
	ledgerRepo := ledger.NewPgxRepository(cfg.DBPool)
	ledgerService := ledger.NewService(ledgerRepo, facilityService)

	// Booking Module
	bookingRepo := booking.NewPgxRepository(cfg.DBPool)
	bookingService := booking.NewService(bookingRepo, tx, aggregator, facilityService, ledgerService, notifier, clk, cfg.PendingGrace)

	// Block Module
	blockRepo := block.NewPgxRepository(cfg.DBPool)
	blockService := block.NewService(blockRepo, tx, aggregator, facilityService, clk)

	// Recurring Module
	recurringRepo := recurring.NewPgxRepository(cfg.DBPool)
	recurringService := recurring.NewService(recurringRepo, bookingRepo, tx, aggregator, facilityService, clk)

	// Availability Module
	availabilityService := availability.NewService(facilityService, aggregator, clk)

	// Payment Module
	verifier := payment.NewVerifier(cfg.WebhookSecret, log.Logger)
	provider := payment.NewClient(cfg.ProviderBaseURL, cfg.ProviderTimeout)
	paymentService := payment.NewService(verifier, facilityService, provider, bookingService)

	// Router
	router := api.NewRouter(api.Config{
		IsProduction:        cfg.IsProduction,
		ProdOrigins:         cfg.ProdOrigins,
		FacilityService:     facilityService,
		BookingService:      bookingService,
		BlockService:        blockService,
		RecurringService:    recurringService,
		LedgerService:       ledgerService,
		AvailabilityService: availabilityService,
		PaymentService:      paymentService,
		JWTManager:          jwtManager,
	})

	return &Container{
		Router:         router,
		JWTManager:     jwtManager,
		BookingService: bookingService,
	}, nil
}
