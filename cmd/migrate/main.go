package main

import (
	"flag"
	"os"

	"github.com/joefazee/settlement/app/database"
	"github.com/joefazee/settlement/internal/logger"
	"github.com/joefazee/settlement/internal/nexus"
)

func main() {
	steps := flag.Int("steps", 0, "migrations to apply; negative rolls back, zero applies all pending")
	path := flag.String("path", "", "directory holding the SQL migrations (overrides DB_MIGRATIONS_PATH)")
	flag.Parse()

	l := logger.NewZeroLogger(os.Stdout, logger.LevelInfo, logger.Fields{"cmd": "migrate"})

	var cfg database.Config
	if err := nexus.NewLoader().Load(&cfg); err != nil {
		l.Fatal(err, map[string]interface{}{"stage": "config"})
	}
	if *path != "" {
		cfg.MigrationsPath = *path
	}

	version, dirty, err := database.Migrate(&cfg, *steps)
	if err != nil {
		l.Fatal(err, map[string]interface{}{"steps": *steps, "path": cfg.MigrationsPath})
	}
	l.Info("migrations applied", map[string]interface{}{"version": version, "dirty": dirty})
}
