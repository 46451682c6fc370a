// Package seed loads the layout of a fresh board from a YAML file, i.e.
//
//	columns:
//	  - title: Backlog
//	  - title: In Progress
//	  - title: Done
//
// Column ids are assigned from 1 in the file order.
package seed

import (
	"fmt"
	"os"
	"strings"

	log "github.com/go-pkgz/lgr"
	"gopkg.in/yaml.v3"

	"github.com/umputun/kanban/app/board"
)

// Config is the seed file structure
type Config struct {
	Columns []ColumnConfig `yaml:"columns"`
}

// ColumnConfig defines a single seeded column
type ColumnConfig struct {
	Title string `yaml:"title"`
}

// Load reads the seed file and makes a board from it. Empty path gives the default board.
func Load(path string) (board.Board, error) {
	if path == "" {
		return board.Default(), nil
	}

	data, err := os.ReadFile(path) //nolint:gosec // path comes from cli options
	if err != nil {
		return board.Board{}, fmt.Errorf("failed to read seed file %s: %w", path, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return board.Board{}, fmt.Errorf("failed to parse seed file %s: %w", path, err)
	}
	if err := cfg.validate(); err != nil {
		return board.Board{}, fmt.Errorf("invalid seed file %s: %w", path, err)
	}

	titles := make([]string, 0, len(cfg.Columns))
	for _, c := range cfg.Columns {
		titles = append(titles, c.Title)
	}
	log.Printf("[INFO] seed board from %s, columns: %s", path, strings.Join(titles, ", "))
	return board.New(titles...), nil
}

func (c Config) validate() error {
	if len(c.Columns) == 0 {
		return fmt.Errorf("at least one column is required")
	}
	for i, col := range c.Columns {
		if strings.TrimSpace(col.Title) == "" {
			return fmt.Errorf("column %d: title is required", i+1)
		}
	}
	return nil
}
