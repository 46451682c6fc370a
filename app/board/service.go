package board

import (
	"context"
	"errors"
	"fmt"
	"sync"

	log "github.com/go-pkgz/lgr"

	"github.com/umputun/kanban/app/board/enums"
)

// ErrTaskNotFound returned when no task matches the requested id
var ErrTaskNotFound = errors.New("task not found")

// ErrColumnNotFound returned when no column matches the requested id
var ErrColumnNotFound = errors.New("column not found")

// Store loads and saves the whole board document
type Store interface {
	Load(ctx context.Context) (Board, error)
	Save(ctx context.Context, b Board) error
}

// Mode controls how tasks are placed when the target column is missing or ambiguous
type Mode int

const (
	// ModeLegacy keeps the original placement rules: a column titled "Done" captures moved tasks,
	// the done status follows column id 3, and tasks without a target column are dropped.
	ModeLegacy Mode = iota
	// ModeStrict places tasks only into the requested column, derives the status from that column
	// and rejects a missing column with ErrColumnNotFound.
	ModeStrict
)

func (m Mode) String() string {
	switch m {
	case ModeLegacy:
		return "legacy"
	case ModeStrict:
		return "strict"
	default:
		return fmt.Sprintf("mode(%d)", int(m))
	}
}

// MoveResult describes where a moved task ended up
type MoveResult struct {
	TaskID   int
	ColumnID int // column actually used, 0 if the task was dropped
	Status   enums.TaskStatus
}

// Service is the board domain service. All operations are serialized,
// each one is a single load-mutate-save over the store.
type Service struct {
	store Store
	mode  Mode
	mu    sync.Mutex
}

// NewService makes a service on top of the store
func NewService(store Store, mode Mode) *Service {
	return &Service{store: store, mode: mode}
}

// Mode returns placement mode of the service
func (s *Service) Mode() Mode { return s.mode }

// GetBoard returns the board as currently persisted
func (s *Service) GetBoard(ctx context.Context) (Board, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.load(ctx)
}

// CreateTask appends a new active task to the bottom of the column.
// In legacy mode a missing column still gets the task id allocated, but the task isn't stored.
func (s *Service) CreateTask(ctx context.Context, columnID int, text string) (Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	b, err := s.load(ctx)
	if err != nil {
		return Task{}, err
	}

	task := Task{ID: b.nextTaskID(), Text: text, Status: enums.TaskStatusActive}
	idx := b.columnIndex(columnID)
	switch {
	case idx >= 0:
		b.Columns[idx].Tasks = append(b.Columns[idx].Tasks, task)
	case s.mode == ModeStrict:
		return Task{}, fmt.Errorf("create task in column %d: %w", columnID, ErrColumnNotFound)
	default:
		log.Printf("[WARN] column %d not found, task %d not placed", columnID, task.ID)
	}

	if err := s.save(ctx, b); err != nil {
		return Task{}, err
	}
	log.Printf("[DEBUG] task %d created in column %d", task.ID, columnID)
	return task, nil
}

// MoveTask moves the task to the bottom of another column and updates its status
func (s *Service) MoveTask(ctx context.Context, taskID, newColumnID int) (MoveResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	b, err := s.load(ctx)
	if err != nil {
		return MoveResult{}, err
	}

	ci, ti := b.taskIndex(taskID)
	if ci < 0 {
		return MoveResult{}, fmt.Errorf("move task %d: %w", taskID, ErrTaskNotFound)
	}

	var res MoveResult
	if s.mode == ModeStrict {
		res, err = s.moveStrict(&b, ci, ti, newColumnID)
	} else {
		res = s.moveLegacy(&b, ci, ti, newColumnID)
	}
	if err != nil {
		return MoveResult{}, err
	}

	if err := s.save(ctx, b); err != nil {
		return MoveResult{}, err
	}
	log.Printf("[DEBUG] task %d moved to column %d (requested %d), status %s",
		taskID, res.ColumnID, newColumnID, res.Status)
	return res, nil
}

// moveLegacy takes the task out of its column and appends it to the first column matching
// either the requested id or the "Done" title. The status depends on the requested id only.
func (s *Service) moveLegacy(b *Board, ci, ti, newColumnID int) MoveResult {
	task := b.removeTask(ci, ti)
	for i, c := range b.Columns {
		if c.ID != newColumnID && c.Title != doneTitle {
			continue
		}
		task.Status = enums.TaskStatusActive
		if newColumnID == legacyDoneColumnID {
			task.Status = enums.TaskStatusDone
		}
		b.Columns[i].Tasks = append(b.Columns[i].Tasks, task)
		return MoveResult{TaskID: task.ID, ColumnID: c.ID, Status: task.Status}
	}
	log.Printf("[WARN] no destination for task %d, requested column %d, task dropped", task.ID, newColumnID)
	return MoveResult{TaskID: task.ID, Status: task.Status}
}

// moveStrict moves the task into the requested column only, status follows the column title
func (s *Service) moveStrict(b *Board, ci, ti, newColumnID int) (MoveResult, error) {
	dst := b.columnIndex(newColumnID)
	if dst < 0 {
		return MoveResult{}, fmt.Errorf("move task to column %d: %w", newColumnID, ErrColumnNotFound)
	}
	task := b.removeTask(ci, ti)
	task.Status = enums.TaskStatusActive
	if b.Columns[dst].Title == doneTitle {
		task.Status = enums.TaskStatusDone
	}
	b.Columns[dst].Tasks = append(b.Columns[dst].Tasks, task)
	return MoveResult{TaskID: task.ID, ColumnID: newColumnID, Status: task.Status}, nil
}

// UpdateTaskText replaces text of the task in place
func (s *Service) UpdateTaskText(ctx context.Context, taskID int, text string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	b, err := s.load(ctx)
	if err != nil {
		return err
	}

	ci, ti := b.taskIndex(taskID)
	if ci < 0 {
		return fmt.Errorf("update task %d: %w", taskID, ErrTaskNotFound)
	}
	b.Columns[ci].Tasks[ti].Text = text
	return s.save(ctx, b)
}

// DeleteTask removes the task from its column
func (s *Service) DeleteTask(ctx context.Context, taskID int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	b, err := s.load(ctx)
	if err != nil {
		return err
	}

	ci, ti := b.taskIndex(taskID)
	if ci < 0 {
		return fmt.Errorf("delete task %d: %w", taskID, ErrTaskNotFound)
	}
	b.removeTask(ci, ti)
	if err := s.save(ctx, b); err != nil {
		return err
	}
	log.Printf("[DEBUG] task %d deleted", taskID)
	return nil
}

// CreateColumn appends an empty column to the end of the board
func (s *Service) CreateColumn(ctx context.Context, title string) (Column, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	b, err := s.load(ctx)
	if err != nil {
		return Column{}, err
	}

	col := Column{ID: b.nextColumnID(), Title: title, Tasks: []Task{}}
	b.Columns = append(b.Columns, col)
	if err := s.save(ctx, b); err != nil {
		return Column{}, err
	}
	log.Printf("[DEBUG] column %d %q created", col.ID, col.Title)
	return col, nil
}

// DeleteColumn removes the column together with all of its tasks
func (s *Service) DeleteColumn(ctx context.Context, columnID int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	b, err := s.load(ctx)
	if err != nil {
		return err
	}

	idx := b.columnIndex(columnID)
	if idx < 0 {
		return fmt.Errorf("delete column %d: %w", columnID, ErrColumnNotFound)
	}
	removed := len(b.Columns[idx].Tasks)
	b.Columns = append(b.Columns[:idx:idx], b.Columns[idx+1:]...)
	if err := s.save(ctx, b); err != nil {
		return err
	}
	log.Printf("[DEBUG] column %d deleted with %d tasks", columnID, removed)
	return nil
}

func (s *Service) load(ctx context.Context) (Board, error) {
	b, err := s.store.Load(ctx)
	if err != nil {
		return Board{}, fmt.Errorf("load board: %w", err)
	}
	b.Normalize()
	return b, nil
}

func (s *Service) save(ctx context.Context, b Board) error {
	if err := s.store.Save(ctx, b); err != nil {
		return fmt.Errorf("save board: %w", err)
	}
	return nil
}
