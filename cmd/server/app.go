package main

import (
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/openshelf/catalog-service/internal/config"
	"github.com/openshelf/catalog-service/internal/events"
	"github.com/openshelf/catalog-service/internal/platform/logger"
	"github.com/openshelf/catalog-service/internal/platform/natspub"
	"github.com/openshelf/catalog-service/internal/platform/postgres"
	"github.com/openshelf/catalog-service/internal/service"
	"github.com/openshelf/catalog-service/internal/store"
)

// application holds the wired dependencies of the catalog server.
type application struct {
	config      *config.Config
	logger      *slog.Logger
	db          *sql.DB
	bookService service.BookService

	// closers run in reverse order during cleanup.
	closers []func() error
}

// newApplication loads configuration and wires every component: logger,
// database, migrations, stores, event publisher and the book service.
func newApplication() (*application, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	appLogger := logger.Setup(cfg.Server.LogLevel)
	appLogger.Info("Configuration loaded",
		slog.Int("port", cfg.Server.Port),
		slog.String("log_level", cfg.Server.LogLevel),
		slog.Bool("nats_enabled", cfg.Events.NATSURL != ""))

	app := &application{
		config: cfg,
		logger: appLogger,
	}

	db, err := openDatabase(cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	app.db = db
	app.closers = append(app.closers, db.Close)

	if err := runMigrations(db, appLogger); err != nil {
		app.cleanup()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	publisher, err := app.setupPublisher()
	if err != nil {
		app.cleanup()
		return nil, fmt.Errorf("failed to set up event publisher: %w", err)
	}

	books := postgres.NewBookStore(db, appLogger)
	categories := postgres.NewCategoryStore(db, appLogger)

	bookService, err := service.NewBookService(
		books,
		categories,
		store.NewSQLTransactor(db),
		publisher,
		appLogger,
	)
	if err != nil {
		app.cleanup()
		return nil, fmt.Errorf("failed to create book service: %w", err)
	}
	app.bookService = bookService

	return app, nil
}

// setupPublisher connects to NATS when configured and falls back to the
// in-process publisher otherwise, so the service runs without a broker in
// development.
func (app *application) setupPublisher() (events.Publisher, error) {
	if app.config.Events.NATSURL == "" {
		app.logger.Info("NATS not configured, using in-process event delivery")
		inmem := events.NewInMemoryPublisher(app.logger)
		app.closers = append(app.closers, func() error {
			inmem.Wait()
			return nil
		})
		return inmem, nil
	}

	publisher, err := natspub.New(natspub.Config{
		URL:           app.config.Events.NATSURL,
		SubjectPrefix: app.config.Events.SubjectPrefix,
		Logger:        app.logger,
	})
	if err != nil {
		return nil, err
	}
	app.logger.Info("Connected to NATS", slog.String("url", app.config.Events.NATSURL))
	app.closers = append(app.closers, publisher.Close)
	return publisher, nil
}

// cleanup releases resources in reverse acquisition order.
func (app *application) cleanup() {
	for i := len(app.closers) - 1; i >= 0; i-- {
		if err := app.closers[i](); err != nil {
			app.logger.Error("Cleanup step failed", "error", err)
		}
	}
	app.closers = nil
}
