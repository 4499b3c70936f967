package assetcache

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"
)

// Driver identifiers supported by NewStore.
const (
	DriverMemory = "memory"
	DriverSQLite = "sqlite"
	DriverRedis  = "redis"
)

// ErrNotFound is returned by Store.Match when the generation holds no entry
// for the URL.
var ErrNotFound = errors.New("cache entry not found")

// Entry is one cached response.
type Entry struct {
	URL      string      `json:"url"`
	Status   int         `json:"status"`
	Header   http.Header `json:"header"`
	Body     []byte      `json:"body"`
	StoredAt time.Time   `json:"stored_at"`
}

// Store holds cache entries partitioned into named generations.
type Store interface {
	// Match returns the entry for url in generation, or ErrNotFound.
	Match(ctx context.Context, generation, url string) (Entry, error)

	// Put stores or replaces one entry.
	Put(ctx context.Context, generation string, e Entry) error

	// PutAll stores every entry or none of them.
	PutAll(ctx context.Context, generation string, entries []Entry) error

	// Generations lists the generations that hold at least one entry.
	Generations(ctx context.Context) ([]string, error)

	// DeleteGeneration removes a generation and all its entries.
	DeleteGeneration(ctx context.Context, generation string) error

	Close() error
}

// Config selects and configures a Store.
type Config struct {
	Driver string
	SQLite *SQLiteConfig
	Redis  *RedisConfig
}

// SQLiteConfig locates the SQLite database file.
type SQLiteConfig struct {
	Path string
}

// RedisConfig captures connection options.
type RedisConfig struct {
	Addr     string
	Username string
	Password string
	DB       int
	Prefix   string
}

// NewStore creates a cache store based on the provided configuration. An
// empty driver selects the in-memory store.
func NewStore(cfg Config) (Store, error) {
	driver := cfg.Driver
	if driver == "" {
		driver = DriverMemory
	}

	switch driver {
	case DriverMemory:
		return NewMemory(), nil
	case DriverSQLite:
		if cfg.SQLite == nil || cfg.SQLite.Path == "" {
			return nil, fmt.Errorf("sqlite driver requires a database path")
		}
		return NewSQLite(cfg.SQLite.Path)
	case DriverRedis:
		return NewRedis(cfg.Redis)
	default:
		return nil, fmt.Errorf("unsupported cache store driver: %s", driver)
	}
}
