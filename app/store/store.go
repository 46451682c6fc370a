// Package store provides persistence for the board document.
// The whole board is kept as a single JSON document, either in a plain file or in a
// one-row SQLite table. Both stores fall back to the seed board when the document is
// missing or can't be decoded.
package store

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	log "github.com/go-pkgz/lgr"

	"github.com/umputun/kanban/app/board"
	"github.com/umputun/kanban/app/board/enums"
)

// errNoColumns returned by decode for a JSON document without "columns" array
var errNoColumns = errors.New("no columns in document")

// encode serializes the board the same way the document was always written, 4-space indent
func encode(b board.Board) ([]byte, error) {
	b.Normalize()
	buf := &bytes.Buffer{}
	enc := json.NewEncoder(buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "    ")
	if err := enc.Encode(b); err != nil {
		return nil, fmt.Errorf("encode board: %w", err)
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

// docColumn and docTask mirror the stored document, status kept raw so a single
// unknown value doesn't fail the whole board
type docColumn struct {
	ID    int       `json:"id"`
	Title string    `json:"title"`
	Tasks []docTask `json:"tasks"`
}

type docTask struct {
	ID     int    `json:"id"`
	Text   string `json:"text"`
	Status string `json:"status"`
}

// decode parses the document and checks it has the board shape.
// Only syntax and shape errors fail, unknown task statuses are resolved by taskStatus.
func decode(data []byte) (board.Board, error) {
	var doc struct {
		Columns *[]docColumn `json:"columns"`
	}
	if err := json.Unmarshal(data, &doc); err != nil {
		return board.Board{}, fmt.Errorf("decode board: %w", err)
	}
	if doc.Columns == nil {
		return board.Board{}, errNoColumns
	}

	res := board.Board{Columns: make([]board.Column, 0, len(*doc.Columns))}
	for _, dc := range *doc.Columns {
		col := board.Column{ID: dc.ID, Title: dc.Title, Tasks: make([]board.Task, 0, len(dc.Tasks))}
		for _, dt := range dc.Tasks {
			col.Tasks = append(col.Tasks, board.Task{ID: dt.ID, Text: dt.Text, Status: taskStatus(dt)})
		}
		res.Columns = append(res.Columns, col)
	}
	return res, nil
}

// taskStatus maps a stored status to the enum. Case variants resolve to their status,
// unknown or missing values become active.
func taskStatus(t docTask) enums.TaskStatus {
	for _, st := range enums.TaskStatusValues {
		if st.String() == t.Status {
			return st
		}
	}
	if st, err := enums.ParseTaskStatus(t.Status); err == nil {
		log.Printf("[WARN] task %d has status %q, stored as %q", t.ID, t.Status, st)
		return st
	}
	log.Printf("[WARN] task %d has unknown status %q, reset to %q", t.ID, t.Status, enums.TaskStatusActive)
	return enums.TaskStatusActive
}
