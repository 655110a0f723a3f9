package storage

import (
	"os"
	"testing"
)

// TestSQLiteConnection tests connecting to a SQLite database
func TestSQLiteConnection(t *testing.T) {
	// Skip if not running integration tests
	if os.Getenv("RUN_INTEGRATION_TESTS") != "true" {
		t.Skip("Skipping integration test. Set RUN_INTEGRATION_TESTS=true to run")
	}

	tempDir, err := os.MkdirTemp("", "steward-test-*")
	if err != nil {
		t.Fatalf("Failed to create temp directory: %v", err)
	}
	defer os.RemoveAll(tempDir)

	config := Config{
		Driver:  DriverSQLite,
		DataDir: tempDir,
	}

	db, err := Connect(config)
	if err != nil {
		t.Fatalf("Failed to connect to SQLite database: %v", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("Failed to get SQL DB: %v", err)
	}

	if err := sqlDB.Ping(); err != nil {
		t.Fatalf("Failed to ping SQLite database: %v", err)
	}
}

// TestMySQLConnection tests connecting to a MySQL database
func TestMySQLConnection(t *testing.T) {
	if os.Getenv("RUN_INTEGRATION_TESTS") != "true" {
		t.Skip("Skipping integration test. Set RUN_INTEGRATION_TESTS=true to run")
	}

	dsn := os.Getenv("MYSQL_DSN")
	if dsn == "" {
		t.Skip("Skipping MySQL test. Set MYSQL_DSN environment variable")
	}

	config := Config{
		Driver: DriverMySQL,
		DSN:    dsn,
	}

	db, err := Connect(config)
	if err != nil {
		t.Fatalf("Failed to connect to MySQL database: %v", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("Failed to get SQL DB: %v", err)
	}

	if err := sqlDB.Ping(); err != nil {
		t.Fatalf("Failed to ping MySQL database: %v", err)
	}
}

// TestPostgresConnection tests connecting to a PostgreSQL database
func TestPostgresConnection(t *testing.T) {
	if os.Getenv("RUN_INTEGRATION_TESTS") != "true" {
		t.Skip("Skipping integration test. Set RUN_INTEGRATION_TESTS=true to run")
	}

	dsn := os.Getenv("POSTGRES_DSN")
	if dsn == "" {
		t.Skip("Skipping PostgreSQL test. Set POSTGRES_DSN environment variable")
	}

	config := Config{
		Driver: DriverPostgres,
		DSN:    dsn,
	}

	db, err := Connect(config)
	if err != nil {
		t.Fatalf("Failed to connect to PostgreSQL database: %v", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("Failed to get SQL DB: %v", err)
	}

	if err := sqlDB.Ping(); err != nil {
		t.Fatalf("Failed to ping PostgreSQL database: %v", err)
	}
}

// TestStorageMigration tests that all models migrate on a fresh database
func TestStorageMigration(t *testing.T) {
	if os.Getenv("RUN_INTEGRATION_TESTS") != "true" {
		t.Skip("Skipping integration test. Set RUN_INTEGRATION_TESTS=true to run")
	}

	tempDir, err := os.MkdirTemp("", "steward-test-*")
	if err != nil {
		t.Fatalf("Failed to create temp directory: %v", err)
	}
	defer os.RemoveAll(tempDir)

	if _, err := NewStorage(
		Config{
			Driver:  DriverSQLite,
			DataDir: tempDir,
		},
	); err != nil {
		t.Fatalf("Failed to migrate fresh database: %v", err)
	}
}
