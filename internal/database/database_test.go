package database

import (
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turretline/algo/internal/config"
)

func TestOpenSqlite_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "matches.db")

	db, err := OpenSqlite(path)
	require.NoError(t, err)
	assert.Equal(t, DialectSQLite, db.Name())

	var version int
	require.NoError(t, db.Raw("PRAGMA user_version;").Scan(&version).Error)
	assert.Equal(t, 1, version)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	require.NoError(t, sqlDB.Close())
	assert.FileExists(t, path)
}

func TestConnect_SQLite(t *testing.T) {
	cfg := config.StorageConfig{
		Type:   DialectSQLite,
		SQLite: config.SQLiteConfig{Path: filepath.Join(t.TempDir(), "algo.db")},
	}

	db, err := Connect(cfg, zerolog.Nop())
	require.NoError(t, err)
	assert.Equal(t, DialectSQLite, db.Name())
}

func TestConnect_PostgresFallsBackToSQLite(t *testing.T) {
	cfg := config.StorageConfig{
		Type: DialectPostgres,
		DB: config.DBConfig{
			Host:     "127.0.0.1",
			Port:     "1",
			Username: "nobody",
			Password: "nothing",
			Database: "none",
		},
		SQLite: config.SQLiteConfig{Path: filepath.Join(t.TempDir(), "fallback.db")},
	}

	db, err := Connect(cfg, zerolog.Nop())
	require.NoError(t, err)
	assert.Equal(t, DialectSQLite, db.Name())
}
