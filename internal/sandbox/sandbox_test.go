package sandbox

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

// seedIndex builds a sandbox-shaped database the way the sandbox itself
// would, so the tests exercise the read side against a real file.
func seedIndex(t *testing.T, rows []EngineRow) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "engines.db")
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&EngineRow{}))
	if len(rows) > 0 {
		require.NoError(t, db.Create(&rows).Error)
	}
	sqlDB, err := db.DB()
	require.NoError(t, err)
	require.NoError(t, sqlDB.Close())
	return path
}

func testRows(t *testing.T) []EngineRow {
	exportDir := t.TempDir()
	exportPath := filepath.Join(exportDir, "sledge.ini")
	require.NoError(t, os.WriteFile(exportPath, []byte("[CRATE_ENGINE]\n"), 0644))
	return []EngineRow{
		{
			UUID:       "c9a1e7b0-0000-4000-8000-000000000001",
			Name:       "i6 Sledge",
			Family:     "Sledge",
			Version:    3,
			ExportPath: exportPath,
			ExportedAt: time.Date(2026, 5, 12, 9, 30, 0, 0, time.UTC),
		},
		{
			UUID:       "c9a1e7b0-0000-4000-8000-000000000002",
			Name:       "v8 Anvil",
			Family:     "Anvil",
			Version:    1,
			ExportPath: filepath.Join(exportDir, "gone.ini"),
			ExportedAt: time.Date(2026, 6, 1, 14, 0, 0, 0, time.UTC),
		},
	}
}

func TestOpenMissingFile(t *testing.T) {
	_, err := Open(filepath.Join(t.TempDir(), "absent.db"), zerolog.Nop())
	assert.Error(t, err)
}

func TestEngineLookup(t *testing.T) {
	ix, err := Open(seedIndex(t, testRows(t)), zerolog.Nop())
	require.NoError(t, err)
	defer ix.Close()

	row, err := ix.Engine("c9a1e7b0-0000-4000-8000-000000000001")
	require.NoError(t, err)
	assert.Equal(t, "i6 Sledge", row.Name)
	assert.Equal(t, 3, row.Version)

	_, err = ix.Engine("nope")
	assert.ErrorIs(t, err, ErrNotIndexed)
}

func TestListOrdersByName(t *testing.T) {
	ix, err := Open(seedIndex(t, testRows(t)), zerolog.Nop())
	require.NoError(t, err)
	defer ix.Close()

	rows, err := ix.List()
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "i6 Sledge", rows[0].Name)
	assert.Equal(t, "v8 Anvil", rows[1].Name)
}

func TestResolve(t *testing.T) {
	rows := testRows(t)
	ix, err := Open(seedIndex(t, rows), zerolog.Nop())
	require.NoError(t, err)
	defer ix.Close()

	path, err := ix.Resolve(rows[0].UUID)
	require.NoError(t, err)
	assert.Equal(t, rows[0].ExportPath, path)

	// indexed but the export file is gone
	_, err = ix.Resolve(rows[1].UUID)
	assert.ErrorContains(t, err, "moved or deleted")
}
