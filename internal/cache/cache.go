// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package cache keeps ArticleMeta payloads in a local SQLite database so
// repeated harvests of overlapping queries do not refetch known records.
// Only lookup payloads are stored; harvest position never is.
package cache

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/adrg/xdg"
	"github.com/klauspost/compress/zstd"
	_ "github.com/mattn/go-sqlite3"
	"github.com/sirupsen/logrus"

	"github.com/pdiddy/scielo-harvest/internal/articlemeta"
	"github.com/pdiddy/scielo-harvest/pkg/types"
)

const (
	appName = "scielo-harvest"
	dbFile  = "articlemeta.db"
)

// DefaultPath returns the database location under the XDG cache directory,
// creating parent directories as needed.
func DefaultPath() (string, error) {
	return xdg.CacheFile(filepath.Join(appName, dbFile))
}

// Store manages the payload cache database.
type Store struct {
	db  *sql.DB
	ttl time.Duration
	enc *zstd.Encoder
	dec *zstd.Decoder

	// now is replaced in tests.
	now func() time.Time
}

// Open opens or creates the cache database. An empty cfg.Path selects
// DefaultPath.
func Open(cfg types.CacheConfig) (*Store, error) {
	path := cfg.Path
	if path == "" {
		p, err := DefaultPath()
		if err != nil {
			return nil, fmt.Errorf("resolving cache path: %w", err)
		}
		path = p
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("creating cache directory: %w", err)
	}

	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("opening cache database: %w", err)
	}

	enc, err := zstd.NewWriter(nil)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("creating zstd encoder: %w", err)
	}
	dec, err := zstd.NewReader(nil)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("creating zstd decoder: %w", err)
	}

	s := &Store{db: db, ttl: cfg.TTL, enc: enc, dec: dec, now: time.Now}
	if err := s.createSchema(); err != nil {
		s.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}
	return s, nil
}

// Close releases the database connection and codecs.
func (s *Store) Close() error {
	s.dec.Close()
	if err := s.enc.Close(); err != nil {
		s.db.Close()
		return err
	}
	return s.db.Close()
}

func (s *Store) createSchema() error {
	_, err := s.db.Exec(`CREATE TABLE IF NOT EXISTS documents (
		collection TEXT NOT NULL,
		publisher_id TEXT NOT NULL,
		payload BLOB NOT NULL,
		fetched_at TEXT NOT NULL,
		PRIMARY KEY (collection, publisher_id)
	)`)
	return err
}

// Get returns the cached payload for (publisherID, collection). The boolean
// is false on a miss or when the entry is older than the TTL.
func (s *Store) Get(ctx context.Context, publisherID, collection string) ([]byte, bool, error) {
	var (
		blob      []byte
		fetchedAt string
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT payload, fetched_at FROM documents WHERE collection = ? AND publisher_id = ?`,
		collection, publisherID,
	).Scan(&blob, &fetchedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("reading cache entry: %w", err)
	}

	if s.ttl > 0 {
		t, err := time.Parse(time.RFC3339Nano, fetchedAt)
		if err != nil || s.now().Sub(t) > s.ttl {
			return nil, false, nil
		}
	}

	payload, err := s.dec.DecodeAll(blob, nil)
	if err != nil {
		return nil, false, fmt.Errorf("decompressing cache entry: %w", err)
	}
	return payload, true, nil
}

// Put stores payload for (publisherID, collection), replacing any older entry.
func (s *Store) Put(ctx context.Context, publisherID, collection string, payload []byte) error {
	blob := s.enc.EncodeAll(payload, nil)
	_, err := s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO documents (collection, publisher_id, payload, fetched_at) VALUES (?, ?, ?, ?)`,
		collection, publisherID, blob, s.now().UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("writing cache entry: %w", err)
	}
	return nil
}

// Len returns the number of cached payloads.
func (s *Store) Len(ctx context.Context) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT count(*) FROM documents`).Scan(&n)
	return n, err
}

// CachedFetcher serves payloads from a Store and falls back to Next on a
// miss, storing what Next returns. Not-found results are not cached.
type CachedFetcher struct {
	Store  *Store
	Next   articlemeta.Fetcher
	Logger logrus.FieldLogger
}

// Fetch implements articlemeta.Fetcher.
func (c *CachedFetcher) Fetch(ctx context.Context, publisherID, collection string) ([]byte, error) {
	log := c.logger().WithFields(logrus.Fields{"pid": publisherID, "collection": collection})

	payload, ok, err := c.Store.Get(ctx, publisherID, collection)
	if err != nil {
		log.WithError(err).Warn("cache read failed, fetching")
	}
	if ok {
		log.Debug("cache hit")
		return payload, nil
	}

	payload, err = c.Next.Fetch(ctx, publisherID, collection)
	if err != nil {
		return nil, err
	}
	if err := c.Store.Put(ctx, publisherID, collection, payload); err != nil {
		log.WithError(err).Warn("cache write failed")
	}
	return payload, nil
}

func (c *CachedFetcher) logger() logrus.FieldLogger {
	if c.Logger == nil {
		return logrus.StandardLogger()
	}
	return c.Logger
}
