package main

import (
	"errors"
	"flag"
	"log/slog"
	"os"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/joho/godotenv"
)

func main() {
	_ = godotenv.Load()
	log := slog.New(slog.NewTextHandler(os.Stdout, nil))

	flag.Parse()
	args := flag.Args()
	if len(args) < 1 {
		log.Error("usage: migrate <up|down|version>")
		os.Exit(1)
	}

	dsn := os.Getenv("POSTGRES_DSN")
	if dsn == "" {
		log.Error("POSTGRES_DSN is required")
		os.Exit(1)
	}
	src := os.Getenv("MIGRATIONS_PATH")
	if src == "" {
		src = "file://migrations"
	}

	m, err := migrate.New(src, dsn)
	if err != nil {
		log.Error("migrate init failed", "error", err)
		os.Exit(1)
	}
	defer func() { _, _ = m.Close() }()

	switch args[0] {
	case "up":
		err = m.Up()
		if errors.Is(err, migrate.ErrNoChange) {
			log.Info("no pending migrations")
			return
		}
		if err != nil {
			log.Error("migrate up failed", "error", err)
			os.Exit(1)
		}
		log.Info("migrations applied")
	case "down":
		err = m.Steps(-1)
		if errors.Is(err, migrate.ErrNoChange) {
			log.Info("nothing to roll back")
			return
		}
		if err != nil {
			log.Error("migrate down failed", "error", err)
			os.Exit(1)
		}
		log.Info("rolled back one migration")
	case "version":
		version, dirty, err := m.Version()
		if errors.Is(err, migrate.ErrNilVersion) {
			log.Info("no migrations applied yet")
			return
		}
		if err != nil {
			log.Error("version lookup failed", "error", err)
			os.Exit(1)
		}
		log.Info("current version", "version", version, "dirty", dirty)
	default:
		log.Error("unknown command", "command", args[0])
		os.Exit(1)
	}
}
