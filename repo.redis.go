package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Redis layout: each book is a JSON string under its own key and
// the set at BooksIndexKey holds the ids of all stored books.
const (
	BooksIndexKey = "books"
	BookKeyPrefix = "book:"
)

// bookKey returns the redis key of a single book document.
func bookKey(id string) string {
	return BookKeyPrefix + id
}

// purgeBooksScript drops every indexed book and the index itself in one step.
var purgeBooksScript = redis.NewScript(`
local ids = redis.call('SMEMBERS', KEYS[1])
for _, id in ipairs(ids) do
	redis.call('DEL', ARGV[1] .. id)
end
redis.call('DEL', KEYS[1])
return #ids
`)

var _ BookStorage = (*redisBookStorage)(nil)

// stringGetter is satisfied by both the client and a watched transaction.
type stringGetter interface {
	Get(ctx context.Context, key string) *redis.StringCmd
}

type redisBookStorage struct {
	logger     *zap.Logger
	client     *redis.Client
	maxRetries int
}

// NewRedisBookStorage provides an instance of redis-based book storage.
func NewRedisBookStorage(logger *zap.Logger, client *redis.Client, maxRetries int) BookStorage {
	if maxRetries <= 0 {
		maxRetries = 1
	}
	return &redisBookStorage{
		logger:     logger,
		client:     client,
		maxRetries: maxRetries,
	}
}

// GetRedisClient provides a ready to use redis client. The connection
// url when provided takes precedence over the host and port settings.
func GetRedisClient(config *Config) (*redis.Client, error) {
	opts := &redis.Options{
		Addr:     fmt.Sprintf("%s:%s", config.Redis.Host, config.Redis.Port),
		Password: config.Redis.Password,
		Username: config.Redis.Username,
		DB:       config.Redis.DatabaseIndex,
	}
	if len(config.Redis.URL) != 0 {
		var err error
		if opts, err = redis.ParseURL(config.Redis.URL); err != nil {
			return nil, fmt.Errorf("invalid redis url: %v", err)
		}
	}
	opts.DialTimeout = config.Redis.DialTimeout
	opts.ReadTimeout = config.Redis.ReadTimeout
	opts.WriteTimeout = config.Redis.WriteTimeout
	opts.PoolSize = config.Redis.PoolSize
	opts.PoolTimeout = config.Redis.PoolTimeout

	client := redis.NewClient(opts)

	// test connection.
	if pong, err := client.Ping(context.Background()).Result(); pong != "PONG" || err != nil {
		return client, fmt.Errorf("test connection failed: %v", err)
	}
	return client, nil
}

// save writes the book document and indexes its id atomically.
func (rs *redisBookStorage) save(ctx context.Context, id string, book Book) error {
	bookBytes, err := json.Marshal(book)
	if err != nil {
		return err
	}
	_, err = rs.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, bookKey(id), bookBytes, 0)
		pipe.SAdd(ctx, BooksIndexKey, id)
		return nil
	})
	return err
}

// Add inserts a new book record.
func (rs *redisBookStorage) Add(ctx context.Context, id string, book Book) error {
	return rs.save(ctx, id, book)
}

// GetOne retrieves a book record based on its ID.
func (rs *redisBookStorage) GetOne(ctx context.Context, id string) (Book, error) {
	return rs.getOne(ctx, rs.client, id)
}

func (rs *redisBookStorage) getOne(ctx context.Context, c stringGetter, id string) (Book, error) {
	var book Book
	bookJSONString, err := c.Get(ctx, bookKey(id)).Result()
	if errors.Is(err, redis.Nil) {
		return book, ErrBookNotFound
	}
	if err != nil {
		return book, err
	}
	err = json.Unmarshal([]byte(bookJSONString), &book)
	return book, err
}

// AddComment appends a comment to an existing book. The read-modify-write runs
// into an optimistic transaction watching only that book key and is retried
// when another client modified the same book in between.
func (rs *redisBookStorage) AddComment(ctx context.Context, id, comment, updatedAt string) (Book, error) {
	key := bookKey(id)
	var book Book
	txf := func(tx *redis.Tx) error {
		var err error
		book, err = rs.getOne(ctx, tx, id)
		if err != nil {
			return err
		}
		book.Comments = append(book.Comments, comment)
		book.UpdatedAt = updatedAt
		bookBytes, err := json.Marshal(book)
		if err != nil {
			return err
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, bookBytes, 0)
			return nil
		})
		return err
	}

	for i := 0; i < rs.maxRetries; i++ {
		err := rs.client.Watch(ctx, txf, key)
		if errors.Is(err, redis.TxFailedErr) {
			rs.logger.Debug("redis: comment transaction conflicted", zap.String("book.id", id), zap.Int("attempt", i+1))
			continue
		}
		if err != nil {
			return Book{}, err
		}
		return book, nil
	}
	return Book{}, ErrTooManyRetries
}

// Delete removes a book record based on its ID.
func (rs *redisBookStorage) Delete(ctx context.Context, id string) error {
	var del *redis.IntCmd
	_, err := rs.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		del = pipe.Del(ctx, bookKey(id))
		pipe.SRem(ctx, BooksIndexKey, id)
		return nil
	})
	if err != nil {
		return err
	}
	if del.Val() == 0 {
		return ErrBookNotFound
	}
	return nil
}

// Update replaces existing book record data or inserts a new book if does not exist.
func (rs *redisBookStorage) Update(ctx context.Context, id string, book Book) (Book, error) {
	return book, rs.save(ctx, id, book)
}

// GetAll retrieves a list of all indexed books. Ids whose document
// vanished between both calls are skipped.
func (rs *redisBookStorage) GetAll(ctx context.Context) ([]Book, error) {
	ids, err := rs.client.SMembers(ctx, BooksIndexKey).Result()
	if err != nil {
		return nil, err
	}
	books := []Book{}
	if len(ids) == 0 {
		return books, nil
	}
	keys := make([]string, 0, len(ids))
	for _, id := range ids {
		keys = append(keys, bookKey(id))
	}
	values, err := rs.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, err
	}
	for _, value := range values {
		bookJSONString, ok := value.(string)
		if !ok {
			continue
		}
		var book Book
		if err = json.Unmarshal([]byte(bookJSONString), &book); err != nil {
			return nil, err
		}
		books = append(books, book)
	}
	return books, nil
}

// DeleteAll drops every book document along with the index.
func (rs *redisBookStorage) DeleteAll(ctx context.Context) error {
	n, err := purgeBooksScript.Run(ctx, rs.client, []string{BooksIndexKey}, BookKeyPrefix).Int()
	if err != nil {
		return err
	}
	rs.logger.Debug("redis: books purged", zap.Int("count", n))
	return nil
}

// Close shuts down the underlying redis client.
func (rs *redisBookStorage) Close() error {
	return rs.client.Close()
}
