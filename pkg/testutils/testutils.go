// Package testutils starts disposable infrastructure for integration tests.
package testutils

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/amirasaad/securebank/infra"
	"github.com/amirasaad/securebank/pkg/config"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
	"gorm.io/gorm"
)

// PostgresImage is the server version the migrations are tested against.
const PostgresImage = "postgres:15-alpine"

// startPostgresContainer starts a Postgres container using Testcontainers
func startPostgresContainer(ctx context.Context) (*tcpostgres.PostgresContainer, error) {
	return tcpostgres.Run(
		ctx,
		PostgresImage,
		tcpostgres.WithDatabase("securebank"),
		tcpostgres.WithUsername("test"),
		tcpostgres.WithPassword("test"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).WithStartupTimeout(60*time.Second),
		),
	)
}

// StartPostgres runs a PostgreSQL container, applies the versioned
// migrations and returns the connected database with its DSN. Everything is
// torn down when t finishes.
func StartPostgres(t testing.TB) (*gorm.DB, string) {
	t.Helper()
	ctx := context.Background()

	pg, err := startPostgresContainer(ctx)
	if err != nil {
		t.Fatalf("start postgres: %v", err)
	}
	t.Cleanup(func() { _ = pg.Terminate(context.Background()) })

	dsn, err := pg.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		t.Fatalf("postgres dsn: %v", err)
	}

	db, err := infra.NewDBConnection(&config.DB{
		Driver:          "postgres",
		Url:             dsn,
		MaxOpenConns:    25,
		MaxIdleConns:    25,
		ConnMaxLifetime: time.Hour,
	}, "test")
	if err != nil {
		t.Fatalf("connect postgres: %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})

	if err := infra.RunMigrations(db, "postgres", slog.Default()); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db, dsn
}
