package db

import (
	"github.com/google/uuid" // Unique database names
	"gorm.io/gorm"           // GORM ORM library
)

// OpenMemory opens a private, migrated in-memory SQLite database.
// The pool is pinned to one connection so every statement sees the same database.
func OpenMemory() (*gorm.DB, error) {
	dsn := "file:" + uuid.NewString() + "?mode=memory&cache=shared&_foreign_keys=1"
	gdb, err := Open("sqlite", dsn, true)
	if err != nil {
		return nil, err
	}
	sqlDB, err := gdb.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(1)
	if err := Migrate(gdb); err != nil {
		return nil, err
	}
	return gdb, nil
}
