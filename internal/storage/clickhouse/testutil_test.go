package clickhouse

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

// setupTestDB creates a ClickHouse container for testing and applies the
// mint_activity schema. Returns a cleanup function that must be called
// after tests complete.
func setupTestDB(t *testing.T) (*Conn, func()) {
	t.Helper()

	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	ctx := context.Background()

	req := testcontainers.ContainerRequest{
		Image:        "clickhouse/clickhouse-server:24.1-alpine",
		ExposedPorts: []string{"9000/tcp"},
		Env: map[string]string{
			"CLICKHOUSE_DB":       "test",
			"CLICKHOUSE_USER":     "default",
			"CLICKHOUSE_PASSWORD": "",
		},
		WaitingFor: wait.ForAll(
			wait.ForLog("Application: Ready for connections").
				WithStartupTimeout(60*time.Second),
			wait.ForListeningPort("9000/tcp"),
		),
	}

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	require.NoError(t, err, "failed to start clickhouse container")

	host, err := container.Host(ctx)
	require.NoError(t, err, "failed to get container host")

	port, err := container.MappedPort(ctx, "9000")
	require.NoError(t, err, "failed to get mapped port")

	dsn := fmt.Sprintf("clickhouse://%s:%s/test", host, port.Port())

	conn, err := NewConn(ctx, dsn)
	require.NoError(t, err, "failed to connect to clickhouse")

	runTestMigrations(t, ctx, conn)

	cleanup := func() {
		conn.Close()
		if err := container.Terminate(ctx); err != nil {
			t.Logf("failed to terminate container: %v", err)
		}
	}

	return conn, cleanup
}

// runTestMigrations applies the schema from the migrations directory, or an
// inline copy when the files are not reachable from the test working
// directory.
func runTestMigrations(t *testing.T, ctx context.Context, conn *Conn) {
	t.Helper()

	paths := []string{
		filepath.Join("..", "migrations", "clickhouse", "001_mint_activity.sql"),
		filepath.Join("internal", "storage", "migrations", "clickhouse", "001_mint_activity.sql"),
	}

	for _, path := range paths {
		sql, err := os.ReadFile(path)
		if err != nil {
			continue
		}
		require.NoError(t, conn.Exec(ctx, string(sql)), "failed to apply migration %s", path)
		return
	}

	runInlineMigrations(t, ctx, conn)
}

// runInlineMigrations creates the schema directly. Must stay in sync with
// internal/storage/migrations/clickhouse.
func runInlineMigrations(t *testing.T, ctx context.Context, conn *Conn) {
	t.Helper()

	schema := `
		CREATE TABLE IF NOT EXISTS mint_activity (
			campaign_address String,
			group_label      String,
			timestamp_ms     UInt64,
			slot             UInt64,
			lamports         Int64,
			mint_count       UInt32
		) ENGINE = MergeTree()
		ORDER BY (campaign_address, group_label, timestamp_ms)
	`
	require.NoError(t, conn.Exec(ctx, schema), "failed to create mint_activity table")
}
