// Package board implements the kanban board model and the service mutating it.
// The board is a single aggregate of ordered columns, each holding ordered tasks.
// Every service operation loads the whole board from the store, changes it and writes it back.
package board

//go:generate go run ./internal/schema schema.json

import (
	"github.com/invopop/jsonschema"

	"github.com/umputun/kanban/app/board/enums"
)

const (
	// taskIDBase is the id a task counter starts from, the first created task gets taskIDBase+1
	taskIDBase = 100
	// doneTitle is the column title treated as the "done" column
	doneTitle = "Done"
	// legacyDoneColumnID is the column id marking a moved task as done in legacy mode
	legacyDoneColumnID = 3
)

// DefaultTitles are the column titles of a fresh board
var DefaultTitles = []string{"To Do", "Doing", "Done"}

// Board is the root aggregate, columns order is the display order
type Board struct {
	Columns []Column `json:"columns"`
}

// Column is a titled, ordered list of tasks
type Column struct {
	ID    int    `json:"id"`
	Title string `json:"title"`
	Tasks []Task `json:"tasks"`
}

// Task is a unit of work, the id is unique across the whole board
type Task struct {
	ID     int              `json:"id"`
	Text   string           `json:"text"`
	Status enums.TaskStatus `json:"status"`
}

// New makes a board with empty columns for given titles, ids assigned from 1 in order
func New(titles ...string) Board {
	res := Board{Columns: make([]Column, 0, len(titles))}
	for i, t := range titles {
		res.Columns = append(res.Columns, Column{ID: i + 1, Title: t, Tasks: []Task{}})
	}
	return res
}

// Default makes the standard three-column board
func Default() Board {
	return New(DefaultTitles...)
}

// Clone returns a deep copy of the board
func (b Board) Clone() Board {
	res := Board{Columns: make([]Column, 0, len(b.Columns))}
	for _, c := range b.Columns {
		tasks := make([]Task, len(c.Tasks))
		copy(tasks, c.Tasks)
		res.Columns = append(res.Columns, Column{ID: c.ID, Title: c.Title, Tasks: tasks})
	}
	return res
}

// Normalize replaces nil slices with empty ones, so the board always encodes "tasks": []
func (b *Board) Normalize() {
	if b.Columns == nil {
		b.Columns = []Column{}
	}
	for i := range b.Columns {
		if b.Columns[i].Tasks == nil {
			b.Columns[i].Tasks = []Task{}
		}
	}
}

// Column returns a column by id
func (b Board) Column(id int) (Column, bool) {
	if idx := b.columnIndex(id); idx >= 0 {
		return b.Columns[idx], true
	}
	return Column{}, false
}

// Task returns a task by id and the id of the column holding it
func (b Board) Task(id int) (task Task, columnID int, ok bool) {
	ci, ti := b.taskIndex(id)
	if ci < 0 {
		return Task{}, 0, false
	}
	return b.Columns[ci].Tasks[ti], b.Columns[ci].ID, true
}

// TasksCount returns the number of tasks in all columns
func (b Board) TasksCount() int {
	res := 0
	for _, c := range b.Columns {
		res += len(c.Tasks)
	}
	return res
}

// nextColumnID returns max column id + 1, the first column gets 1
func (b Board) nextColumnID() int {
	maxID := 0
	for _, c := range b.Columns {
		maxID = max(maxID, c.ID)
	}
	return maxID + 1
}

// nextTaskID returns max task id across all columns + 1, never less than taskIDBase+1
func (b Board) nextTaskID() int {
	maxID := taskIDBase
	for _, c := range b.Columns {
		for _, t := range c.Tasks {
			maxID = max(maxID, t.ID)
		}
	}
	return maxID + 1
}

// columnIndex returns the position of the first column with given id or -1
func (b Board) columnIndex(id int) int {
	for i, c := range b.Columns {
		if c.ID == id {
			return i
		}
	}
	return -1
}

// taskIndex scans columns in order and returns the position of the first task with given id.
// Returns -1, -1 if not found.
func (b Board) taskIndex(id int) (colIdx, taskIdx int) {
	for ci, c := range b.Columns {
		for ti, t := range c.Tasks {
			if t.ID == id {
				return ci, ti
			}
		}
	}
	return -1, -1
}

// removeTask cuts the task at given position out of its column and returns it
func (b *Board) removeTask(colIdx, taskIdx int) Task {
	tasks := b.Columns[colIdx].Tasks
	t := tasks[taskIdx]
	b.Columns[colIdx].Tasks = append(tasks[:taskIdx:taskIdx], tasks[taskIdx+1:]...)
	return t
}

// Schema returns the JSON schema of the persisted board document
func Schema() *jsonschema.Schema {
	r := jsonschema.Reflector{DoNotReference: true}
	schema := r.Reflect(&Board{})
	schema.Title = "Kanban Board Document"
	schema.Description = "Persisted state of the kanban board"
	return schema
}
