package database

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"time"

	"contacts-sync/internal/config"

	_ "github.com/lib/pq"
	"go.uber.org/fx"
)

// PostgresDB is only opened when the contact store is configured for postgres.
// DB stays nil otherwise.
type PostgresDB struct {
	DB *sql.DB
}

func NewPostgres(lc fx.Lifecycle, cfg *config.Config) (*PostgresDB, error) {
	if cfg.ContactStore != "postgres" {
		return &PostgresDB{}, nil
	}
	if cfg.PostgresDSN == "" {
		return nil, fmt.Errorf("POSTGRES_DSN is required when CONTACT_STORE=postgres")
	}

	db, err := sql.Open("postgres", cfg.PostgresDSN)
	if err != nil {
		return nil, fmt.Errorf("failed to open postgres: %w", err)
	}
	db.SetMaxOpenConns(20)
	db.SetConnMaxIdleTime(5 * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping postgres: %w", err)
	}

	log.Println("Connected to Postgres!")

	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			return db.Close()
		},
	})

	return &PostgresDB{DB: db}, nil
}
