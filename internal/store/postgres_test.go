package store

import (
	"context"
	"database/sql"
	"fmt"
	"sigeduc-scraper/internal/db"
	"testing"
	"time"

	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

func TestPostgres(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping postgres container in short mode")
	}
	testcontainers.SkipIfProviderIsNotHealthy(t)

	ctx := context.Background()
	postgres, err := testcontainers.GenericContainer(
		ctx,
		testcontainers.GenericContainerRequest{
			Started: true,
			ContainerRequest: testcontainers.ContainerRequest{
				Image:        "postgres:16-alpine",
				ExposedPorts: []string{"5432/tcp"},
				Env: map[string]string{
					"POSTGRES_USER":     "crawler",
					"POSTGRES_PASSWORD": "crawler",
					"POSTGRES_DB":       "sigeduc",
				},
				WaitingFor: wait.ForLog("database system is ready to accept connections").
					WithOccurrence(2).
					WithStartupTimeout(time.Minute),
			},
		},
	)
	if err != nil {
		t.Fatal(err)
	}
	defer func() {
		err := postgres.Terminate(context.Background())
		if err != nil {
			t.Fatal(err)
		}
	}()

	host, err := postgres.Host(ctx)
	if err != nil {
		t.Fatal(err)
	}
	port, err := postgres.MappedPort(ctx, "5432/tcp")
	if err != nil {
		t.Fatal(err)
	}

	schemas := 0
	open := func(t testing.TB) *sql.DB {
		// every subtest gets its own schema so natural keys do not collide
		schemas++
		schema := fmt.Sprintf("suite_%d", schemas)

		admin, _, err := db.Open(db.Options{
			Driver:   db.DRIVER_POSTGRES,
			Host:     host,
			Port:     port.Int(),
			Name:     "sigeduc",
			User:     "crawler",
			Password: "crawler",
			SslMode:  "disable",
		})
		if err != nil {
			t.Fatal(err)
		}
		defer admin.Close()
		_, err = admin.ExecContext(ctx, "create schema "+schema)
		if err != nil {
			t.Fatal(err)
		}

		database, dialect, err := db.Open(db.Options{
			Driver: db.DRIVER_POSTGRES,
			Url: fmt.Sprintf(
				"postgres://crawler:crawler@%s:%d/sigeduc?sslmode=disable&search_path=%s",
				host, port.Int(), schema,
			),
		})
		if err != nil {
			t.Fatal(err)
		}
		t.Cleanup(func() {
			database.Close()
		})
		err = db.Migrate(ctx, database, dialect)
		if err != nil {
			t.Fatal(err)
		}
		return database
	}

	runSuite(t, open)
}
