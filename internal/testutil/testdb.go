package testutil

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	_ "github.com/lib/pq"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

const templateDB = "capital_pool_template"

// One container per test binary; each test gets its own database cloned from
// a migrated template. The container is reaped by testcontainers when the
// binary exits.
var (
	serverOnce sync.Once
	serverURL  *url.URL
	serverErr  error
	dbSeq      atomic.Int64
)

// SetupTestDB returns a fresh, migrated Postgres database for t. Tests that
// need it are skipped under -short.
func SetupTestDB(t *testing.T) *sql.DB {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping postgres integration test in -short mode")
	}

	serverOnce.Do(func() { serverURL, serverErr = startServer(context.Background()) })
	if serverErr != nil {
		t.Fatalf("start postgres: %v", serverErr)
	}

	name := fmt.Sprintf("test_%d_%d", os.Getpid(), dbSeq.Add(1))
	admin := open(t, serverURL, "postgres")
	if _, err := admin.Exec(fmt.Sprintf(`CREATE DATABASE %s TEMPLATE %s`, name, templateDB)); err != nil {
		admin.Close()
		t.Fatalf("create database %s: %v", name, err)
	}
	admin.Close()

	db := open(t, serverURL, name)
	t.Cleanup(func() { db.Close() })
	return db
}

func startServer(ctx context.Context) (*url.URL, error) {
	container, err := postgres.Run(ctx, "postgres:16-alpine",
		postgres.WithDatabase(templateDB),
		postgres.WithUsername("test"),
		postgres.WithPassword("test"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("run container: %w", err)
	}

	connStr, err := container.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		return nil, fmt.Errorf("connection string: %w", err)
	}
	u, err := url.Parse(connStr)
	if err != nil {
		return nil, fmt.Errorf("parse connection string: %w", err)
	}

	db, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, fmt.Errorf("open template: %w", err)
	}
	defer db.Close()

	if err := runMigrations(ctx, db); err != nil {
		return nil, err
	}
	return u, nil
}

// open connects to database name on the shared server. Nothing may hold a
// session on the template while it is cloned.
func open(t *testing.T, server *url.URL, name string) *sql.DB {
	t.Helper()
	u := *server
	u.Path = "/" + name

	db, err := sql.Open("postgres", u.String())
	if err != nil {
		t.Fatalf("open %s: %v", name, err)
	}
	return db
}

func runMigrations(ctx context.Context, db *sql.DB) error {
	dir := findMigrationsDir()

	entries, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("read migrations dir: %w", err)
	}

	var ups []string
	for _, e := range entries {
		if strings.HasSuffix(e.Name(), ".up.sql") {
			ups = append(ups, e.Name())
		}
	}
	sort.Strings(ups)

	for _, f := range ups {
		content, err := os.ReadFile(filepath.Join(dir, f))
		if err != nil {
			return fmt.Errorf("read migration %s: %w", f, err)
		}
		if _, err := db.ExecContext(ctx, string(content)); err != nil {
			return fmt.Errorf("execute migration %s: %w", f, err)
		}
	}
	return nil
}

// findMigrationsDir walks up from the package under test to the module root.
func findMigrationsDir() string {
	dir, err := os.Getwd()
	if err != nil {
		return "migrations"
	}
	for range 10 {
		candidate := filepath.Join(dir, "migrations")
		if info, err := os.Stat(candidate); err == nil && info.IsDir() {
			return candidate
		}
		dir = filepath.Dir(dir)
	}
	return "migrations"
}
