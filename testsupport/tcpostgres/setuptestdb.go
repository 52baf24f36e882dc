//nolint:errcheck // testsetup
package tcpostgres

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/docker/go-connections/nat"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/mpapenbr/laptime-logger/pkg/db/migrate"
	database "github.com/mpapenbr/laptime-logger/pkg/db/postgres"
)

// create a pg connection pool for the laptime testdatabase
func SetupTestDB() *pgxpool.Pool {
	ctx := context.Background()
	port, err := nat.NewPort("tcp", "5432")
	if err != nil {
		log.Fatal(err)
	}
	container, err := SetupPostgres(ctx,
		WithPort(port.Port()),
		WithInitialDatabase("postgres", "password", "postgres"),
		WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(5*time.Second)),
		WithName("laptime-logger-test"),
		WithImage(os.Getenv("TESTDB_IMAGE")),
	)
	if err != nil {
		log.Fatal(err)
	}
	containerPort, _ := container.MappedPort(ctx, port)
	host, _ := container.Host(ctx)
	dbURL := fmt.Sprintf("postgresql://postgres:password@%s:%s/postgres",
		host, containerPort.Port())

	return setupWithURL(dbURL)
}

// SetupExternalTestDB uses the database given by TESTDB_URL
func SetupExternalTestDB() *pgxpool.Pool {
	return setupWithURL(os.Getenv("TESTDB_URL"))
}

func setupWithURL(dbURL string) *pgxpool.Pool {
	if err := migrate.MigrateDb(dbURL); err != nil {
		log.Fatal(err)
	}
	return database.InitWithURL(dbURL)
}

func ClearLapTimeTable(pool *pgxpool.Pool) {
	pool.Exec(context.Background(), "delete from lap_times")
}

func ClearCarModelTable(pool *pgxpool.Pool) {
	pool.Exec(context.Background(), "delete from car_models")
}

func ClearTrackTable(pool *pgxpool.Pool) {
	pool.Exec(context.Background(), "delete from track_layouts")
	pool.Exec(context.Background(), "delete from tracks")
}

func ClearUserTable(pool *pgxpool.Pool) {
	pool.Exec(context.Background(), "delete from users")
}

func ClearLookupTables(pool *pgxpool.Pool) {
	pool.Exec(context.Background(), "delete from tire_compounds")
	pool.Exec(context.Background(), "delete from conditions")
}

func ClearAllTables(pool *pgxpool.Pool) {
	ClearLapTimeTable(pool)
	ClearCarModelTable(pool)
	ClearTrackTable(pool)
	ClearLookupTables(pool)
	ClearUserTable(pool)
}
