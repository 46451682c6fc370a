package store

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	log "github.com/go-pkgz/lgr"

	"github.com/umputun/kanban/app/board"
)

// JSONStore keeps the board in a single JSON file
type JSONStore struct {
	path string
	seed board.Board
}

// NewJSONStore makes a file store. Seed is returned by Load while the file is missing or broken.
func NewJSONStore(path string, seed board.Board) *JSONStore {
	return &JSONStore{path: path, seed: seed.Clone()}
}

// Load reads the board from file. Missing or undecodable file gives the seed board.
func (s *JSONStore) Load(ctx context.Context) (board.Board, error) {
	if err := ctx.Err(); err != nil {
		return board.Board{}, err
	}

	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			log.Printf("[DEBUG] board file %s not found, use default board", s.path)
			return s.seed.Clone(), nil
		}
		return board.Board{}, fmt.Errorf("read board file %s: %w", s.path, err)
	}

	b, err := decode(data)
	if err != nil {
		log.Printf("[WARN] board file %s is broken, reset to default board: %v", s.path, err)
		return s.seed.Clone(), nil
	}
	return b, nil
}

// Save replaces the file with the board. The document is written to a temp file first
// and renamed over the old one, readers never see a partial document.
func (s *JSONStore) Save(ctx context.Context, b board.Board) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	data, err := encode(b)
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(filepath.Dir(s.path), "."+filepath.Base(s.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file for %s: %w", s.path, err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName) //nolint:errcheck // no-op after successful rename

	// keep permissions of the replaced file, temp files are created as 0600
	mode := os.FileMode(0o644)
	if fi, statErr := os.Stat(s.path); statErr == nil {
		mode = fi.Mode().Perm()
	}
	if err := tmp.Chmod(mode); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("chmod %s: %w", tmpName, err)
	}

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("write %s: %w", tmpName, err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("sync %s: %w", tmpName, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close %s: %w", tmpName, err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		return fmt.Errorf("replace board file %s: %w", s.path, err)
	}
	return nil
}

func (s *JSONStore) String() string {
	return "json:" + s.path
}
