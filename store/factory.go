package store

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/stevemurr/circular-table-server/config"
)

// New creates a Store based on cfg.Backend.
//
// Supported backends:
//
//	"json"     - JSON files in DataDir (default)
//	"sqlite"   - SQLite database at DataDir/restaurants.db
//	"bolt"     - bbolt database at DataDir/restaurants.bolt
//	"dynamodb" - DynamoDB table TableName in Region
//	"memory"   - In-memory (ephemeral, for testing)
func New(ctx context.Context, cfg config.Store) (Store, error) {
	switch cfg.Backend {
	case "json", "":
		return NewJsonFileStore(cfg.DataDir)
	case "sqlite":
		return NewSqliteStore(filepath.Join(cfg.DataDir, "restaurants.db"))
	case "bolt":
		return NewBoltStore(filepath.Join(cfg.DataDir, "restaurants.bolt"))
	case "dynamodb":
		if cfg.TableName == "" {
			return nil, fmt.Errorf("dynamodb backend requires a table name")
		}
		return NewDynamoStore(ctx, cfg.TableName, cfg.Region, cfg.Endpoint)
	case "memory":
		return NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("unknown store backend: %q (supported: json, sqlite, bolt, dynamodb, memory)", cfg.Backend)
	}
}
