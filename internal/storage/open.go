package storage

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/casefolio/chronicle/internal/config"
	"github.com/casefolio/chronicle/internal/storage/jsonfile"
	"github.com/casefolio/chronicle/internal/storage/postgres"
	"github.com/casefolio/chronicle/internal/storage/sqlite"
)

// File names used by the file-based engines under the data path.
const (
	jsonFileName   = "case_chronology.json"
	sqliteFileName = "chronicle.db"
)

// Open constructs the store selected by the configuration.
func Open(cfg config.StorageConfig) (Store, error) {
	switch cfg.Engine {
	case config.EngineJSON:
		return jsonfile.New(filepath.Join(cfg.DataPath, jsonFileName))
	case config.EngineSQLite:
		if err := os.MkdirAll(cfg.DataPath, 0o755); err != nil {
			return nil, fmt.Errorf("create data directory %s: %w", cfg.DataPath, err)
		}
		return sqlite.New(filepath.Join(cfg.DataPath, sqliteFileName))
	case config.EnginePostgres:
		return postgres.New(cfg.PostgresDSN)
	default:
		return nil, fmt.Errorf("unknown storage engine %q", cfg.Engine)
	}
}
