package database

import (
	"database/sql"
)

type PgVerichatRepository struct {
	conn *sql.DB
}

func NewPgVerichatRepository(dsn string) (*PgVerichatRepository, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, err
	}

	if err := db.Ping(); err != nil {
		return nil, err
	}

	return &PgVerichatRepository{conn: db}, nil
}

func (db *PgVerichatRepository) Ping() error {
	return db.conn.Ping()
}

func (db *PgVerichatRepository) Close() error {
	if db.conn != nil {
		return db.conn.Close()
	}
	return nil
}
