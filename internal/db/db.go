package db

import (
	"fmt" // Error formatting

	"gorm.io/driver/mysql"    // MySQL driver for GORM
	"gorm.io/driver/postgres" // Postgres (Supabase) driver for GORM
	"gorm.io/driver/sqlite"   // SQLite driver for GORM
	"gorm.io/gorm"            // GORM ORM library
	"gorm.io/gorm/logger"     // GORM logger levels
)

// Open connects to the database using the named driver
func Open(driver, dsn string, quiet bool) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch driver {
	case "postgres", "supabase", "":
		dialector = postgres.Open(dsn)
	case "mysql":
		dialector = mysql.Open(dsn)
	case "sqlite":
		dialector = sqlite.Open(dsn)
	default:
		return nil, fmt.Errorf("unsupported database driver %q", driver)
	}
	cfg := &gorm.Config{TranslateError: true} // Unique violations surface as gorm.ErrDuplicatedKey
	if quiet {
		cfg.Logger = logger.Default.LogMode(logger.Silent) // Keep SQL out of the logs
	}
	return gorm.Open(dialector, cfg)
}
