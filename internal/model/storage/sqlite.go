package storage

import (
	"database/sql"
	"os"
	"path/filepath"

	sq "github.com/Masterminds/squirrel"
	"github.com/pkg/errors"

	// sqlite driver
	_ "modernc.org/sqlite"
)

// SQLiteStorage is the single-file backend, the default for local use.
type SQLiteStorage struct {
	sqlStorage
	path string
}

func NewSQLiteStorage(config sqliteConfig) (*SQLiteStorage, error) {
	path := config.Path()
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, errors.Wrap(err, "create database directory")
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, errors.Wrap(err, "cannot open database")
	}
	if err = db.Ping(); err != nil {
		return nil, errors.Wrap(err, "cannot open database")
	}

	if err = runSQLiteMigrations(path); err != nil {
		return nil, errors.Wrap(err, "migrate database")
	}

	return &SQLiteStorage{
		sqlStorage: sqlStorage{
			db: db,
			sb: sq.StatementBuilder.PlaceholderFormat(sq.Question),
		},
		path: path,
	}, nil
}
