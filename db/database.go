package db

import (
	"database/sql"
	_ "embed"
	"fmt"
	"log"

	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
)

//go:embed schema_sqlite.sql
var schemaSQLite string

//go:embed schema_postgres.sql
var schemaPostgres string

// InitDB opens the database and creates the tables. The driver is
// "sqlite3" for local development and tests, "postgres" in production.
func InitDB(driver, dsn string) *sql.DB {
	database, err := Open(driver, dsn)
	if err != nil {
		log.Fatalf("Failed to init database: %v", err)
	}
	log.Printf("Database ready (%s)", driver)
	return database
}

// Open is InitDB without the fatal exit, for tests.
func Open(driver, dsn string) (*sql.DB, error) {
	database, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err = database.Ping(); err != nil {
		return nil, fmt.Errorf("ping database: %w", err)
	}
	schema := schemaSQLite
	if driver == "postgres" {
		schema = schemaPostgres
	}
	if _, err = database.Exec(schema); err != nil {
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	return database, nil
}
