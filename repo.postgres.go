package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

var _ BookStorage = (*postgresBookStorage)(nil)

// postgresBookStorage keeps each book as a jsonb document. The serial
// column only serves to list books in insertion order.
type postgresBookStorage struct {
	logger  *zap.Logger
	pool    *pgxpool.Pool
	queries postgresQueries
}

type postgresQueries struct {
	create     string
	insert     string
	selectOne  string
	addComment string
	upsert     string
	deleteOne  string
	selectAll  string
	deleteAll  string
}

func newPostgresQueries(table string) postgresQueries {
	t := pgx.Identifier{table}.Sanitize()
	return postgresQueries{
		create: fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
			seq BIGSERIAL NOT NULL,
			id TEXT PRIMARY KEY,
			doc JSONB NOT NULL
		)`, t),
		insert:    fmt.Sprintf(`INSERT INTO %s (id, doc) VALUES ($1, $2)`, t),
		selectOne: fmt.Sprintf(`SELECT doc FROM %s WHERE id = $1`, t),
		addComment: fmt.Sprintf(`UPDATE %s
			SET doc = jsonb_set(
				jsonb_set(doc, '{comments}', COALESCE(NULLIF(doc->'comments', 'null'::jsonb), '[]'::jsonb) || jsonb_build_array($2::text)),
				'{updatedAt}', to_jsonb($3::text))
			WHERE id = $1
			RETURNING doc`, t),
		upsert:    fmt.Sprintf(`INSERT INTO %s (id, doc) VALUES ($1, $2) ON CONFLICT (id) DO UPDATE SET doc = EXCLUDED.doc`, t),
		deleteOne: fmt.Sprintf(`DELETE FROM %s WHERE id = $1`, t),
		selectAll: fmt.Sprintf(`SELECT doc FROM %s ORDER BY seq`, t),
		deleteAll: fmt.Sprintf(`DELETE FROM %s`, t),
	}
}

// GetPostgresPool opens and checks a connection pool then makes sure the books table exists.
func GetPostgresPool(config *Config) (*pgxpool.Pool, error) {
	poolConfig, err := pgxpool.ParseConfig(config.Postgres.DSN)
	if err != nil {
		return nil, fmt.Errorf("invalid postgres dsn: %v", err)
	}
	if config.Postgres.MaxConns > 0 {
		poolConfig.MaxConns = config.Postgres.MaxConns
	}

	ctx := context.Background()
	if config.Postgres.ConnectTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, config.Postgres.ConnectTimeout)
		defer cancel()
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create the pool: %v", err)
	}
	if err = pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("test connection failed: %v", err)
	}
	if _, err = pool.Exec(ctx, newPostgresQueries(config.Postgres.TableName).create); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to set up %s table: %v", config.Postgres.TableName, err)
	}
	return pool, nil
}

// NewPostgresBookStorage provides an instance of postgres-based book storage.
func NewPostgresBookStorage(logger *zap.Logger, pool *pgxpool.Pool, table string) BookStorage {
	return &postgresBookStorage{
		logger:  logger,
		pool:    pool,
		queries: newPostgresQueries(table),
	}
}

// Add inserts a new book record.
func (ps *postgresBookStorage) Add(ctx context.Context, id string, book Book) error {
	bookBytes, err := json.Marshal(book)
	if err != nil {
		return err
	}
	_, err = ps.pool.Exec(ctx, ps.queries.insert, id, bookBytes)
	return err
}

func (ps *postgresBookStorage) scanOne(row pgx.Row) (Book, error) {
	var book Book
	var doc []byte
	err := row.Scan(&doc)
	if errors.Is(err, pgx.ErrNoRows) {
		return book, ErrBookNotFound
	}
	if err != nil {
		return book, err
	}
	err = json.Unmarshal(doc, &book)
	return book, err
}

// GetOne retrieves a book record based on its ID.
func (ps *postgresBookStorage) GetOne(ctx context.Context, id string) (Book, error) {
	return ps.scanOne(ps.pool.QueryRow(ctx, ps.queries.selectOne, id))
}

// AddComment appends a comment with a single atomic update statement.
func (ps *postgresBookStorage) AddComment(ctx context.Context, id, comment, updatedAt string) (Book, error) {
	book, err := ps.scanOne(ps.pool.QueryRow(ctx, ps.queries.addComment, id, comment, updatedAt))
	if err != nil {
		return Book{}, err
	}
	return book, nil
}

// Update replaces existing book record data or inserts a new book if does not exist.
func (ps *postgresBookStorage) Update(ctx context.Context, id string, book Book) (Book, error) {
	bookBytes, err := json.Marshal(book)
	if err != nil {
		return book, err
	}
	_, err = ps.pool.Exec(ctx, ps.queries.upsert, id, bookBytes)
	return book, err
}

// Delete removes a book record based on its ID.
func (ps *postgresBookStorage) Delete(ctx context.Context, id string) error {
	tag, err := ps.pool.Exec(ctx, ps.queries.deleteOne, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrBookNotFound
	}
	return nil
}

// GetAll retrieves all books in insertion order.
func (ps *postgresBookStorage) GetAll(ctx context.Context) ([]Book, error) {
	rows, err := ps.pool.Query(ctx, ps.queries.selectAll)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	books := []Book{}
	for rows.Next() {
		book, err := ps.scanOne(rows)
		if err != nil {
			return nil, err
		}
		books = append(books, book)
	}
	return books, rows.Err()
}

// DeleteAll removes every book record.
func (ps *postgresBookStorage) DeleteAll(ctx context.Context) error {
	_, err := ps.pool.Exec(ctx, ps.queries.deleteAll)
	return err
}

// Close releases all pool connections.
func (ps *postgresBookStorage) Close() error {
	ps.pool.Close()
	return nil
}
