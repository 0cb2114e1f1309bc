package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"tripnest/internal/app/commands"
	bookingapp "tripnest/internal/app/handlers/booking"
	listingapp "tripnest/internal/app/handlers/listings"
	"tripnest/internal/app/middleware"
	appoutbox "tripnest/internal/app/outbox"
	"tripnest/internal/app/policies"
	"tripnest/internal/app/queries"
	authsvc "tripnest/internal/app/services/auth"
	"tripnest/internal/app/uow"
	domainauth "tripnest/internal/domain/auth"
	domainbooking "tripnest/internal/domain/booking"
	domainlisting "tripnest/internal/domain/listing"
	domainuser "tripnest/internal/domain/user"
	"tripnest/internal/infra/broker/kafka"
	"tripnest/internal/infra/config"
	mongodb "tripnest/internal/infra/db/mongo"
	ginserver "tripnest/internal/infra/http/gin"
	"tripnest/internal/infra/obs"
	infraoutbox "tripnest/internal/infra/outbox"
	"tripnest/internal/infra/security"
	"tripnest/internal/infra/storage/memory"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	env := getenv("APP_ENV", "dev")
	logger := obs.NewLogger(env)

	cfg, err := config.Load()
	if err != nil {
		logger.Error("configuration invalid", "error", err)
		os.Exit(1)
	}

	app, cleanup, err := buildApplication(cfg, logger)
	if err != nil {
		logger.Error("application bootstrap failed", "error", err)
		os.Exit(1)
	}
	defer cleanup()

	server := ginserver.NewServer(cfg, obs.Middleware{Logger: logger}, obs.HealthHandlers{
		Ready: app.ready,
	}, app.handlers)

	fixturesPath := cfg.ListingFixtures
	if fixturesPath == "" {
		fixturesPath = defaultListingFixturesPath()
	}
	if err := loadListingFixtures(ctx, app.listings, fixturesPath, logger); err != nil {
		logger.Warn("listing fixtures load failed", "error", err, "path", fixturesPath)
	}

	if app.worker != nil {
		go func() {
			if err := app.worker.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				logger.Error("outbox worker stopped", "error", err)
			}
		}()
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("http shutdown failed", "error", err)
		}
	}()

	logger.Info("HTTP server starting", "addr", cfg.HTTPAddr, "storage", cfg.StorageMode)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("http server failed", "error", err)
		os.Exit(1)
	}
	logger.Info("HTTP server stopped")
}

type application struct {
	handlers ginserver.Handlers
	listings domainlisting.Repository
	worker   *infraoutbox.Worker
	ready    func() error
}

type storageSet struct {
	uowFactory  uow.UoWFactory
	listings    domainlisting.Repository
	bookings    domainbooking.Repository
	users       domainuser.Repository
	sessions    domainauth.SessionStore
	guard       policies.AdmissionGuard
	outbox      appoutbox.Outbox
	queue       infraoutbox.Queue
	idempotency middleware.IdempotencyStore
	ready       func() error
	close       func()
}

func buildApplication(cfg config.Config, logger *slog.Logger) (application, func(), error) {
	storage, err := buildStorage(cfg, logger)
	if err != nil {
		return application{}, nil, err
	}
	cleanup := storage.close

	authService := &authsvc.Service{
		Users:      storage.users,
		Sessions:   storage.sessions,
		Passwords:  security.BcryptHasher{},
		Tokens:     security.RandomTokenGenerator{},
		SessionTTL: cfg.SessionTTL,
		Logger:     logger,
	}

	commandBus := commands.NewInMemoryBus()
	createHandler := &bookingapp.CreateBookingHandler{
		UoWFactory: storage.uowFactory,
		Guard:      storage.guard,
		Outbox:     storage.outbox,
		Encoder:    appoutbox.JSONEventEncoder{},
	}
	commands.RegisterHandler(commandBus, bookingapp.CreateBookingCommand{}.Key(), createHandler)
	cancelHandler := &bookingapp.CancelBookingHandler{
		UoWFactory: storage.uowFactory,
		Policy:     domainbooking.CancellationPolicy{OwnerWindow: cfg.OwnerCancelWindow},
		Outbox:     storage.outbox,
		Encoder:    appoutbox.JSONEventEncoder{},
	}
	commands.RegisterHandler(commandBus, bookingapp.CancelBookingCommand{}.Key(), cancelHandler)
	statusHandler := &bookingapp.UpdateStatusHandler{
		UoWFactory: storage.uowFactory,
		Outbox:     storage.outbox,
		Encoder:    appoutbox.JSONEventEncoder{},
	}
	commands.RegisterHandler(commandBus, bookingapp.UpdateStatusCommand{}.Key(), statusHandler)

	queryBus := queries.NewInMemoryBus()
	queries.RegisterHandler(queryBus, bookingapp.CheckAvailabilityQuery{}.Key(), &bookingapp.CheckAvailabilityHandler{UoWFactory: storage.uowFactory})
	queries.RegisterHandler(queryBus, bookingapp.ListBookingsQuery{}.Key(), &bookingapp.ListBookingsHandler{UoWFactory: storage.uowFactory})
	queries.RegisterHandler(queryBus, listingapp.GetListingQuery{}.Key(), &listingapp.GetListingHandler{UoWFactory: storage.uowFactory})
	queries.RegisterHandler(queryBus, listingapp.ListCatalogQuery{}.Key(), &listingapp.ListCatalogHandler{UoWFactory: storage.uowFactory})

	commandBusWithMiddleware := middleware.ChainCommands(
		commandBus,
		middleware.Idempotency(storage.idempotency, nil),
		middleware.Transaction(storage.uowFactory, nil),
	)
	queryBusWithMiddleware := middleware.ChainQueries(queryBus)

	var worker *infraoutbox.Worker
	if len(cfg.KafkaBrokers) > 0 {
		producer, err := kafka.NewProducer(cfg.KafkaBrokers, nil)
		if err != nil {
			cleanup()
			return application{}, nil, fmt.Errorf("kafka producer: %w", err)
		}
		prevCleanup := cleanup
		cleanup = func() {
			_ = producer.Close()
			prevCleanup()
		}
		worker = &infraoutbox.Worker{
			Queue:    storage.queue,
			Producer: producer,
			Interval: cfg.OutboxPollInterval,

			TopicPrefix: cfg.KafkaTopicPrefix,
			Source:      "tripnest",
			Backoff:     cfg.RetryBackoff,
		}
		logger.Info("outbox worker enabled", "brokers", cfg.KafkaBrokers)
	}

	authMW := ginserver.AuthMiddleware{Service: authService, Logger: logger}
	handlers := ginserver.Handlers{
		Booking: ginserver.BookingHandler{
			Commands: commandBusWithMiddleware,
			Queries:  queryBusWithMiddleware,
			Logger:   logger,
		},
		Listing: ginserver.ListingHandler{
			Queries: queryBusWithMiddleware,
			Logger:  logger,
		},
		Auth:           ginserver.AuthHandler{Service: authService, Logger: logger},
		AuthMiddleware: authMW.Handle,
	}

	return application{
		handlers: handlers,
		listings: storage.listings,
		worker:   worker,
		ready:    storage.ready,
	}, cleanup, nil
}

func buildStorage(cfg config.Config, logger *slog.Logger) (storageSet, error) {
	switch cfg.StorageMode {
	case "mongo":
		client, err := mongodb.New(cfg.MongoURI, cfg.MongoDB)
		if err != nil {
			return storageSet{}, fmt.Errorf("mongo connect: %w", err)
		}
		listings := mongodb.NewListingRepository(client.DB)
		bookings := mongodb.NewBookingRepository(client.DB)
		store := infraoutbox.NewStore(client.DB)
		logger.Info("mongo storage configured", "database", cfg.MongoDB)
		return storageSet{
			uowFactory:  mongodb.Factory{DB: client.DB, ListingsRepo: listings, BookingsRepo: bookings},
			listings:    listings,
			bookings:    bookings,
			users:       mongodb.NewUserRepository(client.DB),
			sessions:    mongodb.NewSessionStore(client.DB),
			guard:       mongodb.NewAdmissionLocks(client.DB),
			outbox:      store,
			queue:       store,
			idempotency: mongodb.NewIdempotencyStore(client.DB, cfg.IdempotencyTTL),
			ready: func() error {
				pingCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
				defer cancel()
				return client.Ping(pingCtx)
			},
			close: func() {
				closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				_ = client.Close(closeCtx)
			},
		}, nil
	default:
		listings := memory.NewListingRepository()
		bookings := memory.NewBookingRepository()
		buffer := memory.NewOutbox()
		return storageSet{
			uowFactory:  memory.Factory{ListingsRepo: listings, BookingsRepo: bookings},
			listings:    listings,
			bookings:    bookings,
			users:       memory.NewUserRepository(),
			sessions:    memory.NewSessionStore(),
			guard:       memory.NewAdmissionLocks(),
			outbox:      buffer,
			queue:       buffer,
			idempotency: memory.NewIdempotencyStore(),
			ready:       func() error { return nil },
			close:       func() {},
		}, nil
	}
}

type listingFixture struct {
	ID          string `json:"id"`
	Kind        string `json:"kind"`
	Title       string `json:"title"`
	Description string `json:"description"`
	City        string `json:"city"`
	Country     string `json:"country"`
	MaxGuests   int    `json:"max_guests"`
	Units       int    `json:"units"`
	PriceCents  int64  `json:"price_cents"`
	Currency    string `json:"currency"`
	Basis       string `json:"basis"`
}

func loadListingFixtures(ctx context.Context, repo domainlisting.Repository, path string, logger *slog.Logger) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			logger.Info("listing fixtures file not found, skipping", "path", path)
			return nil
		}
		return fmt.Errorf("read fixtures: %w", err)
	}
	if len(data) == 0 {
		logger.Warn("listing fixtures file empty", "path", path)
		return nil
	}

	var fixtures []listingFixture
	if err := json.Unmarshal(data, &fixtures); err != nil {
		return fmt.Errorf("decode fixtures: %w", err)
	}

	now := time.Now()
	for _, fx := range fixtures {
		kind, err := domainlisting.ParseKind(fx.Kind)
		if err != nil {
			logger.Error("fixture invalid", "listing_id", fx.ID, "error", err)
			continue
		}
		item, err := domainlisting.New(domainlisting.CreateParams{
			ID:          domainlisting.ID(fx.ID),
			Kind:        kind,
			Title:       fx.Title,
			Description: fx.Description,
			City:        fx.City,
			Country:     fx.Country,
			MaxGuests:   fx.MaxGuests,
			Units:       fx.Units,
			PriceCents:  fx.PriceCents,
			Currency:    fx.Currency,
			Basis:       domainlisting.PriceBasis(fx.Basis),
			Now:         now,
		})
		if err != nil {
			logger.Error("fixture invalid", "listing_id", fx.ID, "error", err)
			continue
		}
		if err := repo.Save(ctx, item); err != nil {
			logger.Error("cannot store fixture listing", "listing_id", fx.ID, "error", err)
			continue
		}
		logger.Info("listing fixture imported", "listing_id", item.ID, "kind", item.Kind)
	}
	return nil
}

func defaultListingFixturesPath() string {
	candidates := []string{
		filepath.Join("data", "listings.json"),
		filepath.Join("..", "data", "listings.json"),
	}
	for _, candidate := range candidates {
		if _, err := os.Stat(candidate); err == nil {
			return candidate
		}
	}
	return candidates[0]
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
