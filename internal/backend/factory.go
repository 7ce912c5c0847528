// Package backend wires the record and account stores selected by DATA_BACKEND.
package backend

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"teamreports/internal/amqp"
	"teamreports/internal/services"
	"teamreports/internal/storage"
	"teamreports/internal/store"
	"teamreports/internal/store/google"
	"teamreports/internal/store/memory"
	"teamreports/internal/store/mongo"
)

// CleanupFunc releases connections held by a backend.
type CleanupFunc func() error

// Result is everything the HTTP layer needs from a backend. Publisher is nil
// when no broker is configured.
type Result struct {
	Records   store.RecordStore
	Users     store.UserStore
	Publisher services.Publisher
	Pinger    store.Pinger
	Cleanup   CleanupFunc
}

// Close runs Cleanup when set.
func (r *Result) Close() error {
	if r == nil || r.Cleanup == nil {
		return nil
	}
	return r.Cleanup()
}

type Factory struct {
	logger *slog.Logger
}

func NewFactory(logger *slog.Logger) *Factory {
	if logger == nil {
		logger = slog.Default()
	}
	return &Factory{logger: logger}
}

func (f *Factory) Create(ctx context.Context, config Config) (*Result, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	switch config.Type {
	case MemoryBackend:
		return f.createMemoryBackend(config)
	case SQLiteBackend:
		return f.createSQLiteBackend(config)
	case SheetsBackend:
		return f.createSheetsBackend(ctx, config)
	case MongoBackend:
		return f.createMongoBackend(ctx, config)
	default:
		return nil, fmt.Errorf("unsupported backend type: %s", config.Type)
	}
}

func (f *Factory) createMemoryBackend(config Config) (*Result, error) {
	s := memory.NewFromFiles(config.DataDirectory)
	f.logger.Info("Initialized memory backend", "data_directory", config.DataDirectory)
	return &Result{Records: s, Users: s, Pinger: s}, nil
}

func (f *Factory) createSQLiteBackend(config Config) (*Result, error) {
	repo, err := storage.NewSQLiteRepository(config.SQLiteDBPath)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize SQLite repository: %w", err)
	}

	res := &Result{Records: repo, Users: repo, Pinger: repo, Cleanup: repo.Close}

	// The broker is optional; reports stay pending and the worker's sweep
	// mirrors them later.
	if config.AMQPURL != "" {
		client, err := amqp.NewClient(config.AMQPURL, config.AMQPExchange, config.AMQPQueue)
		if err != nil {
			f.logger.Warn("Failed to initialize AMQP client, continuing without publishing", "error", err)
		} else {
			res.Publisher = client
			res.Cleanup = func() error {
				return errors.Join(client.Close(), repo.Close())
			}
			f.logger.Info("Initialized AMQP client", "exchange", config.AMQPExchange, "queue", config.AMQPQueue)
		}
	}

	f.logger.Info("Initialized SQLite backend", "db_path", config.SQLiteDBPath, "amqp_enabled", res.Publisher != nil)
	return res, nil
}

func (f *Factory) createSheetsBackend(ctx context.Context, config Config) (*Result, error) {
	sheets, err := google.New(ctx, google.Config{
		SpreadsheetID:   config.GoogleSpreadsheetID,
		SheetName:       config.GoogleSheetName,
		CredentialsFile: config.GoogleCredentialsFile,
		CredentialsJSON: config.GoogleCredentialsJSON,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize Google Sheets client: %w", err)
	}
	if err := sheets.EnsureHeader(ctx); err != nil {
		f.logger.Warn("Could not verify sheet header", "error", err)
	}

	// A spreadsheet is a poor place for password hashes.
	accounts, err := storage.NewSQLiteRepository(config.SQLiteDBPath)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize account store: %w", err)
	}

	f.logger.Info("Initialized Google Sheets backend", "sheet", config.GoogleSheetName, "accounts_db", config.SQLiteDBPath)
	return &Result{
		Records: sheets,
		Users:   accounts,
		Pinger:  multiPinger{sheets, accounts},
		Cleanup: accounts.Close,
	}, nil
}

func (f *Factory) createMongoBackend(ctx context.Context, config Config) (*Result, error) {
	s, err := mongo.Connect(ctx, config.MongoURI, config.MongoDatabase)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}
	f.logger.Info("Initialized MongoDB backend", "database", config.MongoDatabase)
	return &Result{Records: s, Users: s, Pinger: s, Cleanup: s.Close}, nil
}

type multiPinger []store.Pinger

func (m multiPinger) Ping(ctx context.Context) error {
	for _, p := range m {
		if err := p.Ping(ctx); err != nil {
			return err
		}
	}
	return nil
}
