package repository

import (
	"database/sql"

	_ "github.com/lib/pq"
)

// DB wraps the sql database handle
type DB struct {
	*sql.DB
}

// NewDB opens a Postgres connection and verifies it
func NewDB(databaseURL string) (*DB, error) {
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, err
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, err
	}

	return &DB{DB: db}, nil
}
