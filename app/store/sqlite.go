package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	log "github.com/go-pkgz/lgr"
	"github.com/go-pkgz/repeater"
	"github.com/go-pkgz/repeater/strategy"
	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite" // sqlite driver

	"github.com/umputun/kanban/app/board"
)

// SQLiteStore keeps the board document in a single-row SQLite table
type SQLiteStore struct {
	db   *sqlx.DB
	seed board.Board
	rptr *repeater.Repeater
}

// NewSQLiteStore opens the database and makes sure the board table exists
func NewSQLiteStore(dbPath string, seed board.Board) (*SQLiteStore, error) {
	db, err := sqlx.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	queries := []string{
		"PRAGMA journal_mode=WAL", // enable WAL mode for better concurrency
		"PRAGMA busy_timeout=5000",
		`CREATE TABLE IF NOT EXISTS board (
			id INTEGER PRIMARY KEY CHECK (id = 1),
			document TEXT NOT NULL,
			updated_at INTEGER
		)`,
	}
	for _, q := range queries {
		if _, err := db.Exec(q); err != nil {
			if closeErr := db.Close(); closeErr != nil {
				return nil, fmt.Errorf("failed to initialize database: %w (also failed to close db: %v)", err, closeErr)
			}
			return nil, fmt.Errorf("failed to initialize database: %w", err)
		}
	}

	rptr := repeater.New(&strategy.Backoff{Repeats: 3, Duration: 50 * time.Millisecond, Factor: 2, Jitter: true})
	return &SQLiteStore{db: db, seed: seed.Clone(), rptr: rptr}, nil
}

// Load reads the board document. Missing row or undecodable document gives the seed board.
func (s *SQLiteStore) Load(ctx context.Context) (board.Board, error) {
	var doc string
	err := s.db.GetContext(ctx, &doc, "SELECT document FROM board WHERE id = 1")
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			log.Printf("[DEBUG] no board stored, use default board")
			return s.seed.Clone(), nil
		}
		return board.Board{}, fmt.Errorf("failed to query board: %w", err)
	}

	b, err := decode([]byte(doc))
	if err != nil {
		log.Printf("[WARN] stored board is broken, reset to default board: %v", err)
		return s.seed.Clone(), nil
	}
	return b, nil
}

// Save replaces the stored document, retried with backoff if the database is busy
func (s *SQLiteStore) Save(ctx context.Context, b board.Board) error {
	data, err := encode(b)
	if err != nil {
		return err
	}

	err = s.rptr.Do(ctx, func() error {
		_, e := s.db.ExecContext(ctx, "INSERT OR REPLACE INTO board (id, document, updated_at) VALUES (1, ?, ?)",
			string(data), time.Now().Unix())
		return e
	})
	if err != nil {
		return fmt.Errorf("failed to save board: %w", err)
	}
	return nil
}

// Close closes the database connection
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) String() string {
	return "sqlite"
}
