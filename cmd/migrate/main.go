package main

import (
	"flag" // Command line flags

	"qic_life/internal/config" // Custom import path (Config)
	"qic_life/internal/db"     // Custom import path (Database)

	"github.com/sirupsen/logrus" // Logging library
)

// Main entry point for migration
func main() {
	seed := flag.Bool("seed", true, "insert the default missions and rewards that are missing")
	flag.Parse()

	cfg := config.LoadConfig() // Load configuration
	logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	gdb, err := db.Open(cfg.DBDriver, cfg.DSN(), false)
	if err != nil {
		logrus.Fatalf("failed to connect to DB: %v", err)
	}
	if err := db.Migrate(gdb); err != nil {
		logrus.Fatalf("migration failed: %v", err)
	}
	if *seed {
		if err := db.Seed(gdb); err != nil {
			logrus.Fatalf("seeding failed: %v", err)
		}
	}
}
