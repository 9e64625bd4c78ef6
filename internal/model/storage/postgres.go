package storage

import (
	"database/sql"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/pkg/errors"

	// postgres driver
	_ "github.com/lib/pq"
)

const dsnTemplate = "user=%s password=%s host=%s dbname=%s sslmode=disable"

// PostgresStorage is the shared-server backend.
type PostgresStorage struct {
	sqlStorage
}

func NewPostgresStorage(config postgresConfig) (*PostgresStorage, error) {
	db, err := sql.Open("postgres", fmt.Sprintf(dsnTemplate,
		config.Username(),
		config.Password(),
		config.Host(),
		config.Database()))
	if err != nil {
		return nil, errors.Wrap(err, "cannot connect to database")
	}
	if err = db.Ping(); err != nil {
		return nil, errors.Wrap(err, "cannot connect to database")
	}

	if err = runPostgresMigrations(db); err != nil {
		return nil, errors.Wrap(err, "migrate database")
	}

	return &PostgresStorage{
		sqlStorage: sqlStorage{
			db: db,
			sb: sq.StatementBuilder.PlaceholderFormat(sq.Dollar),
		},
	}, nil
}
