package factory

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/mikey/listserv-triage/internal/adapters/store"
	"github.com/mikey/listserv-triage/internal/config"
	"github.com/mikey/listserv-triage/internal/core"
	"go.uber.org/zap"
)

// StoreFactory creates email stores based on configuration
type StoreFactory struct {
	cfg    *config.Config
	logger *zap.Logger
}

// NewStoreFactory creates a new store factory
func NewStoreFactory(cfg *config.Config, logger *zap.Logger) *StoreFactory {
	return &StoreFactory{
		cfg:    cfg,
		logger: logger,
	}
}

// CreateEmailStore creates an email store based on the configuration
func (f *StoreFactory) CreateEmailStore() (core.EmailStore, error) {
	storeType := f.cfg.GetString("storage.type")

	switch storeType {
	case "memory":
		return store.NewMemoryStore(f.logger), nil
	case "sqlite":
		sqlitePath := f.cfg.GetString("storage.sqlite_path")
		if err := os.MkdirAll(filepath.Dir(sqlitePath), 0755); err != nil {
			return nil, fmt.Errorf("failed to create SQLite directory: %w", err)
		}
		return store.NewSqliteStore(sqlitePath, f.logger)
	case "mysql":
		mysqlDSN := f.cfg.GetString("storage.mysql_dsn")
		return store.NewMysqlStore(mysqlDSN, f.logger)
	default:
		return nil, fmt.Errorf("unsupported storage type: %s", storeType)
	}
}
