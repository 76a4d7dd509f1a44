package app

import (
	"context"
	"database/sql"
	"errors"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/tobjohnbx/demo-mobile-charging/internal/clients"
	"github.com/tobjohnbx/demo-mobile-charging/internal/config"
	"github.com/tobjohnbx/demo-mobile-charging/internal/display"
	"github.com/tobjohnbx/demo-mobile-charging/internal/events"
	"github.com/tobjohnbx/demo-mobile-charging/internal/hardware"
	httpserver "github.com/tobjohnbx/demo-mobile-charging/internal/http"
	"github.com/tobjohnbx/demo-mobile-charging/internal/metrics"
	"github.com/tobjohnbx/demo-mobile-charging/internal/models"
	"github.com/tobjohnbx/demo-mobile-charging/internal/redisstore"
	"github.com/tobjohnbx/demo-mobile-charging/internal/repository"
	"github.com/tobjohnbx/demo-mobile-charging/internal/service"
)

// App wires the station agent dependencies.
type App struct {
	server      *httpserver.Server
	controller  *service.SessionController
	reader      *hardware.RFIDReader
	relay       hardware.Relay
	activeStore *redisstore.Store
	db          *sql.DB
	redisClient *redis.Client
	logger      *zap.Logger
}

// New constructs the application graph.
func New(cfg *config.Config, logger *zap.Logger) (*App, error) {
	httpClient := clients.NewDefaultHTTPClient(cfg.BillingTimeout())

	tokens := clients.NewTokenSource(cfg.Billing.OAuthURL, cfg.Billing.CredentialsB64, httpClient, logger)
	billing := clients.NewBillingClient(cfg.Billing.BaseURL, tokens, httpClient, cfg.Billing.ProductIdent, cfg.Billing.TaxCountry, logger)

	relay, err := buildRelay(cfg, logger)
	if err != nil {
		return nil, err
	}

	emitter := events.NewEmitter(logger)

	if cfg.Partner.Enabled {
		partner := clients.NewPartnerClient(cfg.Partner.BaseURL, cfg.Partner.PartnerID, cfg.Partner.Article, httpClient, logger)
		partner.Register(emitter)
	}

	registry := prometheus.NewRegistry()
	stationMetrics := metrics.New(registry)

	var (
		sqlDB   *sql.DB
		journal service.Journal
	)
	var journalReader httpserver.JournalReader
	if cfg.Database.DSN != "" {
		sqlDB, err = repository.NewPostgresDB(cfg.Database.DSN)
		if err != nil {
			return nil, err
		}
		repo := repository.NewSessionRepository(sqlDB)
		journal = repo
		journalReader = repo
	}

	var (
		redisClient *redis.Client
		activeStore *redisstore.Store
	)
	if cfg.Redis.Addr != "" {
		redisClient, err = redisstore.NewClient(cfg.Redis.Addr, cfg.Redis.Password)
		if err != nil {
			if sqlDB != nil {
				sqlDB.Close()
			}
			return nil, err
		}
		activeStore = redisstore.NewStore(redisClient, cfg.StationID, cfg.ActiveSessionTTL())
	}

	deps := service.Deps{
		Logger:    logger,
		Relay:     relay,
		Display:   display.NewLogDisplay(logger),
		Plans:     billing,
		Reporter:  billing,
		Emitter:   emitter,
		Journal:   journal,
		Metrics:   stationMetrics,
		Customers: customerMap(cfg.Customers),
		StationID: cfg.StationID,
		Currency:  cfg.Currency,
		Coffee: service.CoffeeProduct{
			ProductIdent: cfg.Coffee.ProductIdent,
			Price:        cfg.Coffee.Price,
			Currency:     cfg.Coffee.Currency,
		},
	}
	if activeStore != nil {
		deps.Active = activeStore
	}
	controller := service.NewSessionController(deps)

	hub := httpserver.NewEventHub(logger)
	hub.Register(emitter)

	routes := httpserver.Routes{
		Health:        httpserver.NewHealthHandler(cfg.StationID),
		SessionStatus: httpserver.NewSessionStatusHandler(controller),
		Pricing:       httpserver.NewPricingHandler(controller),
		Purchase:      httpserver.NewPurchaseHandler(controller),
		Events:        hub,
		Metrics:       promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
	}
	if journalReader != nil {
		routes.RecentSessions = httpserver.NewRecentSessionsHandler(journalReader, cfg.StationID)
	}

	router := httpserver.NewRouter(routes)
	server := httpserver.NewServer(cfg.HTTPAddress(), router, logger)

	reader := hardware.NewRFIDReader(cfg.Hardware.RFIDDevice, cfg.TagDebounce(), logger)

	return &App{
		server:      server,
		controller:  controller,
		reader:      reader,
		relay:       relay,
		activeStore: activeStore,
		db:          sqlDB,
		redisClient: redisClient,
		logger:      logger,
	}, nil
}

func buildRelay(cfg *config.Config, logger *zap.Logger) (hardware.Relay, error) {
	if cfg.Hardware.RelayDisabled {
		return hardware.NewNopRelay(logger), nil
	}
	return hardware.NewSysfsRelay(cfg.Hardware.RelayGPIO, logger)
}

func customerMap(refs map[string]config.CustomerRef) map[string]models.CustomerInfo {
	customers := make(map[string]models.CustomerInfo, len(refs))
	for tag, ref := range refs {
		customers[tag] = models.CustomerInfo{
			ContractID:    ref.ContractID,
			ContractIdent: ref.ContractIdent,
			DebtorIdent:   ref.DebtorIdent,
		}
	}
	return customers
}

// Run starts the RFID scan loop and the HTTP server, blocking until ctx
// is cancelled.
func (a *App) Run(ctx context.Context) error {
	a.recoverInterruptedSession(ctx)

	go func() {
		err := a.reader.Run(ctx, func(ctx context.Context, tagID string) {
			if err := a.controller.HandleTag(ctx, tagID); err != nil {
				a.logger.Warn("tag rejected", zap.Error(err))
			}
		})
		if err != nil && !errors.Is(err, context.Canceled) {
			a.logger.Error("rfid reader stopped", zap.Error(err))
		}
	}()

	return a.server.Run(ctx)
}

// recoverInterruptedSession checks for a session left behind by a crash
// or power loss. The session cannot be resumed or billed; it is logged
// and cleared so the relay state and the store agree again.
func (a *App) recoverInterruptedSession(ctx context.Context) {
	if a.activeStore == nil {
		return
	}
	stale, err := a.activeStore.Get(ctx)
	if err != nil {
		a.logger.Warn("failed to read active session store", zap.Error(err))
		return
	}
	if stale == nil {
		return
	}
	a.logger.Warn("interrupted session found, clearing without billing",
		zap.String("tag", stale.TagID),
		zap.Time("start", stale.StartTime),
	)
	if err := a.activeStore.Clear(ctx); err != nil {
		a.logger.Warn("failed to clear interrupted session", zap.Error(err))
	}
}

// Close releases resources and forces the relay off.
func (a *App) Close() {
	if err := a.controller.Close(); err != nil {
		a.logger.Warn("failed to force relay off", zap.Error(err))
	}
	if closer, ok := a.relay.(interface{ Close() error }); ok {
		if err := closer.Close(); err != nil {
			a.logger.Warn("failed to release relay", zap.Error(err))
		}
	}
	if a.db != nil {
		if err := a.db.Close(); err != nil {
			a.logger.Warn("failed to close db", zap.Error(err))
		}
	}
	if a.redisClient != nil {
		if err := a.redisClient.Close(); err != nil {
			a.logger.Warn("failed to close redis", zap.Error(err))
		}
	}
}
