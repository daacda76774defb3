// Package database opens the gorm connections used by the relational
// match store.
package database

import (
	"fmt"

	"github.com/glebarez/sqlite"
	"github.com/rs/zerolog"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/turretline/algo/internal/config"
)

// Dialect names as reported by gorm.
const (
	DialectSQLite   = "sqlite"
	DialectPostgres = "postgres"
)

var sqlitePragmas = []string{
	"PRAGMA user_version = 1;",
	"PRAGMA journal_mode = WAL;",
	"PRAGMA synchronous = NORMAL;",
	"PRAGMA cache_size = -32000;",
	"PRAGMA temp_store = MEMORY;",
}

// OpenPostgres returns a connection to the Postgres database.
func OpenPostgres(cfg config.DBConfig) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.New(postgres.Config{
		DSN:                  cfg.DSN(),
		PreferSimpleProtocol: true,
	}), &gorm.Config{
		SkipDefaultTransaction: true,
		CreateBatchSize:        1000,
		Logger:                 logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, err
	}
	return db, nil
}

// OpenSqlite returns a connection to a SQLite database file.
// If path is empty, uses a shared in-memory database.
func OpenSqlite(path string) (*gorm.DB, error) {
	dsn := path
	if dsn == "" {
		dsn = "file::memory:?cache=shared"
	}

	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		PrepareStmt:            true,
		SkipDefaultTransaction: true,
		CreateBatchSize:        500,
		Logger:                 logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, err
	}

	for _, pragma := range sqlitePragmas {
		if err := db.Exec(pragma).Error; err != nil {
			return nil, fmt.Errorf("error setting PRAGMA: %w", err)
		}
	}

	return db, nil
}

// Connect opens the database for the configured storage type. A postgres
// store that cannot be reached falls back to the SQLite file so the match
// is still recorded.
func Connect(cfg config.StorageConfig, log zerolog.Logger) (*gorm.DB, error) {
	if cfg.Type == DialectPostgres {
		db, err := OpenPostgres(cfg.DB)
		if err == nil {
			err = ping(db)
		}
		if err == nil {
			log.Info().Str("host", cfg.DB.Host).Str("database", cfg.DB.Database).Msg("Connected to database")
			return db, nil
		}
		log.Error().Err(err).Msg("Failed to connect to Postgres DB, trying SQLite")
	}

	db, err := OpenSqlite(cfg.SQLite.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to get local SQLite DB: %w", err)
	}
	if err := ping(db); err != nil {
		return nil, err
	}
	log.Info().Str("path", cfg.SQLite.Path).Msg("Using local SQLite DB")
	return db, nil
}

func ping(db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("failed to access sql interface: %w", err)
	}
	if err := sqlDB.Ping(); err != nil {
		return fmt.Errorf("failed to validate connection: %w", err)
	}
	if db.Name() == DialectPostgres {
		sqlDB.SetMaxOpenConns(10)
	}
	return nil
}
