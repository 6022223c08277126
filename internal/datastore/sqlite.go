package datastore

import (
	"os"
	"path/filepath"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/tagwise/tagwise/internal/conf"
)

// sqliteDialector opens the SQLite file at settings.Path, creating its
// directory if needed.
func sqliteDialector(settings conf.SQLiteSettings) (gorm.Dialector, error) {
	if dir := filepath.Dir(settings.Path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, err
		}
	}
	dsn := settings.Path + "?_journal_mode=WAL&_busy_timeout=5000"
	return sqlite.Open(dsn), nil
}
