// Package sandbox reads the design sandbox's local index of exported crate
// engines. The index is a SQLite database the sandbox maintains; this side
// only ever queries it, so a donor can be named by UUID instead of a path.
package sandbox

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/rs/zerolog"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// ErrNotIndexed is returned when a UUID has no row in the index.
var ErrNotIndexed = errors.New("sandbox: engine not indexed")

// EngineRow is one exported crate engine as the sandbox records it.
type EngineRow struct {
	UUID       string    `gorm:"primaryKey;column:uuid"`
	Name       string    `gorm:"column:name"`
	Family     string    `gorm:"column:family"`
	Version    int       `gorm:"column:version"`
	ExportPath string    `gorm:"column:export_path"`
	ExportedAt time.Time `gorm:"column:exported_at"`
}

// TableName pins the sandbox's table name.
func (EngineRow) TableName() string { return "crate_engines" }

// Index is a read-only handle on the sandbox's engine database.
type Index struct {
	DB     *gorm.DB
	SqlDB  *sql.DB
	Logger zerolog.Logger
}

// Open connects to the index at path and validates the connection.
func Open(path string, log zerolog.Logger) (*Index, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("sandbox: index %q: %w", path, err)
	}

	log.Debug().Str("path", path).Msg("Opening sandbox engine index")

	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		PrepareStmt:            true,
		SkipDefaultTransaction: true,
		Logger:                 logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("sandbox: open index: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("sandbox: access sql interface: %w", err)
	}
	if err := sqlDB.Ping(); err != nil {
		return nil, fmt.Errorf("sandbox: validate connection: %w", err)
	}

	return &Index{DB: db, SqlDB: sqlDB, Logger: log}, nil
}

// Close releases the underlying connection.
func (ix *Index) Close() error {
	return ix.SqlDB.Close()
}

// Engine looks up one exported engine by UUID.
func (ix *Index) Engine(uuid string) (*EngineRow, error) {
	var row EngineRow
	err := ix.DB.Where("uuid = ?", uuid).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%q: %w", uuid, ErrNotIndexed)
	}
	if err != nil {
		return nil, fmt.Errorf("sandbox: query %q: %w", uuid, err)
	}
	return &row, nil
}

// List returns every indexed engine ordered by name.
func (ix *Index) List() ([]EngineRow, error) {
	var rows []EngineRow
	if err := ix.DB.Order("name").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("sandbox: list: %w", err)
	}
	return rows, nil
}

// Resolve maps a UUID to the donor export path the sandbox recorded,
// verifying the file still exists.
func (ix *Index) Resolve(uuid string) (string, error) {
	row, err := ix.Engine(uuid)
	if err != nil {
		return "", err
	}
	if _, err := os.Stat(row.ExportPath); err != nil {
		return "", fmt.Errorf("sandbox: export for %q moved or deleted: %w", uuid, err)
	}
	ix.Logger.Debug().Str("uuid", uuid).Str("path", row.ExportPath).Msg("Resolved donor from index")
	return row.ExportPath, nil
}
