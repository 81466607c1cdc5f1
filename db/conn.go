// Package db opens the configured database and hands out the stores built on
// top of it
package db

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"plaksha/ocr-api/config"
	"plaksha/ocr-api/internal/store"
	"plaksha/ocr-api/pkg/util"

	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Handle connects on first use and hands the same stores to every caller
// afterwards. Open is safe to call from many goroutines
type Handle struct {
	cfg config.Store

	once        sync.Once
	err         error
	accounts    store.AccountStore
	extractions store.ExtractionStore
	closeFn     func(context.Context) error
}

func New(cfg config.Store) *Handle {
	return &Handle{cfg: cfg}
}

// Open connects the first time it's called and returns the cached result,
// including a connection error, on every later call
func (h *Handle) Open(ctx context.Context) (store.AccountStore, store.ExtractionStore, error) {
	h.once.Do(func() {
		h.err = h.connect(ctx)
		if h.err != nil {
			zap.L().Error("Failed to open store", zap.String("driver", h.cfg.Driver), zap.Error(h.err))
		}
	})

	return h.accounts, h.extractions, h.err
}

func (h *Handle) Close(ctx context.Context) error {
	if h.closeFn == nil {
		return nil
	}

	return h.closeFn(ctx)
}

func (h *Handle) connect(ctx context.Context) error {
	switch h.cfg.Driver {
	case "mongo":
		return h.connectMongo(ctx)
	case "postgres":
		return h.connectGorm(postgres.Open(h.cfg.DSN))
	case "sqlite":
		// If running in a docker container don't allow the sqlite file to be created.
		// The host should instead mount it using volumes
		if util.IsRunningInDocker() {
			if _, err := os.Stat(h.cfg.DSN); errors.Is(err, os.ErrNotExist) {
				return fmt.Errorf("SQLite database file not mounted, please use docker volumes to mount it to %s", h.cfg.DSN)
			}
		}

		return h.connectGorm(sqlite.Open(h.cfg.DSN))
	case "memory":
		zap.L().Warn("Using the in-memory store, all data is lost on restart")

		m := store.NewMemory()
		h.accounts, h.extractions = m.Accounts(), m.Extractions()
		return nil
	default:
		return fmt.Errorf("unsupported store driver %q", h.cfg.Driver)
	}
}

func (h *Handle) connectGorm(d gorm.Dialector) error {
	db, err := gorm.Open(d, &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Warn),
		NowFunc:        func() time.Time { return time.Now().UTC() },
	})
	if err != nil {
		return fmt.Errorf("failed to initialize %s database, %w", h.cfg.Driver, err)
	}

	if err := store.Migrate(db); err != nil {
		return err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return err
	}

	h.accounts = &store.GormAccounts{DB: db}
	h.extractions = &store.GormExtractions{DB: db}
	h.closeFn = func(context.Context) error { return sqlDB.Close() }

	return nil
}

func (h *Handle) connectMongo(ctx context.Context) error {
	// Nested documents in the extracted payload should decode as maps, not bson.D
	opts := options.Client().
		ApplyURI(h.cfg.DSN).
		SetBSONOptions(&options.BSONOptions{DefaultDocumentM: true})

	client, err := mongo.Connect(opts)
	if err != nil {
		return fmt.Errorf("failed to connect to mongo, %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	if err := client.Ping(pingCtx, nil); err != nil {
		client.Disconnect(context.Background())
		return fmt.Errorf("failed to ping mongo, %w", err)
	}

	accounts, extractions, err := store.NewMongoStores(ctx, client.Database(h.cfg.Database))
	if err != nil {
		client.Disconnect(context.Background())
		return err
	}

	h.accounts = accounts
	h.extractions = extractions
	h.closeFn = client.Disconnect

	return nil
}
