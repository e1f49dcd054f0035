package main

import (
	"context"
	"database/sql"
	"flag"
	"os"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/joho/godotenv"
	"github.com/pressly/goose/v3"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/gokatarajesh/flag-practice/db/migrations"
	"github.com/gokatarajesh/flag-practice/internal/catalog"
	"github.com/gokatarajesh/flag-practice/internal/config"
	"github.com/gokatarajesh/flag-practice/internal/db/repository"
)

func main() {
	var (
		command  = flag.String("command", "up", "Command: up, down, status, or seed")
		flagFile = flag.String("flags", "", "YAML file to seed instead of the built-in flag set")
	)
	flag.Parse()

	log.Logger = zerolog.New(os.Stderr).With().Timestamp().Str("app", "migrator").Logger()

	if os.Getenv("APP_ENV") != "production" {
		_ = godotenv.Load("configs/.env")
	}

	pg, err := config.LoadPostgres()
	if err != nil {
		log.Fatal().Err(err).Msg("invalid database configuration")
	}

	if *command == "seed" {
		seed(pg, *flagFile)
		return
	}

	// pgx via stdlib (database/sql compatible) for goose
	db, err := sql.Open("pgx", pg.ConnString())
	if err != nil {
		log.Fatal().Err(err).Str("host", pg.Host).Int("port", pg.Port).Msg("failed to open database connection")
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		log.Fatal().Err(err).Msg("failed to ping database")
	}

	log.Info().
		Str("host", pg.Host).
		Int("port", pg.Port).
		Str("database", pg.Database).
		Msg("connected to database")

	goose.SetBaseFS(migrations.FS)
	goose.SetTableName("goose_db_version")
	if err := goose.SetDialect("postgres"); err != nil {
		log.Fatal().Err(err).Msg("failed to set goose dialect")
	}

	switch *command {
	case "up":
		if err := goose.Up(db, "."); err != nil {
			log.Fatal().Err(err).Msg("failed to run migrations up")
		}
		log.Info().Msg("migrations applied successfully")

	case "down":
		if err := goose.Down(db, "."); err != nil {
			log.Fatal().Err(err).Msg("failed to run migrations down")
		}
		log.Info().Msg("migrations rolled back successfully")

	case "status":
		if err := goose.Status(db, "."); err != nil {
			log.Fatal().Err(err).Msg("failed to get migration status")
		}

	default:
		log.Fatal().Str("command", *command).Msg("unknown command. Use: up, down, status, or seed")
	}
}

// seed upserts the flag catalog. The Redis cache is left alone; entries
// expire on their own TTL.
func seed(pg config.Postgres, file string) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	var (
		items []catalog.Item
		err   error
	)
	if file == "" {
		items, err = catalog.StandardItems()
	} else {
		var data []byte
		if data, err = os.ReadFile(file); err == nil {
			items, err = catalog.ParseItems(data)
		}
	}
	if err != nil {
		log.Fatal().Err(err).Str("file", file).Msg("failed to load flag definitions")
	}

	pool, err := pgxpool.New(ctx, pg.DSN())
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer pool.Close()

	svc := catalog.NewService(repository.NewFlagRepository(pool), nil, log.Logger)
	res, err := svc.Seed(ctx, items)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to seed flags")
	}
	log.Info().Int("created", res.Created).Int("updated", res.Updated).Msg("flags seeded")
}
