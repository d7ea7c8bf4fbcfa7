package main

import (
	"context"
	"io"
	"os"

	"adminSeeder/internal/config"
	"adminSeeder/internal/db"
	"adminSeeder/internal/seed"
	"adminSeeder/pkg/logger"
	"adminSeeder/repository"
)

func main() {
	os.Exit(run(context.Background(), os.Stdout, os.Stderr))
}

// run seeds the admin user and returns the process exit code. stdout only
// ever receives the confirmation line; diagnostics go to stderr.
func run(ctx context.Context, stdout, stderr io.Writer) int {
	cfg, err := config.Load(ctx)
	if err != nil {
		log := logger.New(logger.Options{Output: stderr})
		log.Error().Err(err).Msg("load config")
		return 1
	}
	log := logger.New(logger.Options{Level: cfg.Log.Level, Pretty: cfg.Log.Pretty, Output: stderr})
	log.Debug().Str("config", cfg.String()).Msg("configuration loaded")

	d, err := db.Open(cfg.Database.URL)
	if err != nil {
		log.Error().Err(err).Msg("open db")
		return 1
	}
	defer func() {
		if err := d.Close(); err != nil {
			log.Error().Err(err).Msg("close db")
		}
	}()

	users := repository.NewUserRepository(d)
	created, err := seed.Run(ctx, users, stdout)
	if err != nil {
		log.Error().Err(err).Str("email", seed.AdminEmail).Msg("seed failed")
		return 1
	}
	log.Info().Int64("id", created.ID).Str("dialect", string(d.Dialect)).Msg("seed complete")
	return 0
}
