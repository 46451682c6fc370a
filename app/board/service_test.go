package board

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/go-pkgz/syncs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/umputun/kanban/app/board/enums"
)

// memStore is an in-memory Store counting saves
type memStore struct {
	mu      sync.Mutex
	board   *Board
	saves   int
	loadErr error
	saveErr error
}

func (m *memStore) Load(context.Context) (Board, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.loadErr != nil {
		return Board{}, m.loadErr
	}
	if m.board == nil {
		return Default(), nil
	}
	return m.board.Clone(), nil
}

func (m *memStore) Save(_ context.Context, b Board) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.saveErr != nil {
		return m.saveErr
	}
	c := b.Clone()
	m.board = &c
	m.saves++
	return nil
}

func (m *memStore) snapshot() Board {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.board == nil {
		return Default()
	}
	return m.board.Clone()
}

func TestService_GetBoardDefault(t *testing.T) {
	st := &memStore{}
	svc := NewService(st, ModeLegacy)

	b, err := svc.GetBoard(t.Context())
	require.NoError(t, err)
	require.Len(t, b.Columns, 3)
	assert.Equal(t, Column{ID: 1, Title: "To Do", Tasks: []Task{}}, b.Columns[0])
	assert.Equal(t, Column{ID: 2, Title: "Doing", Tasks: []Task{}}, b.Columns[1])
	assert.Equal(t, Column{ID: 3, Title: "Done", Tasks: []Task{}}, b.Columns[2])
	assert.Equal(t, 0, st.saves, "get board never saves")
}

func TestService_CreateTask(t *testing.T) {
	st := &memStore{}
	svc := NewService(st, ModeLegacy)
	ctx := t.Context()

	task, err := svc.CreateTask(ctx, 1, "write docs")
	require.NoError(t, err)
	assert.Equal(t, Task{ID: 101, Text: "write docs", Status: enums.TaskStatusActive}, task)

	b := st.snapshot()
	assert.Equal(t, []Task{task}, b.Columns[0].Tasks)

	t.Run("ids grow across columns", func(t *testing.T) {
		prev := task.ID
		for i, colID := range []int{2, 3, 1, 2} {
			tsk, err := svc.CreateTask(ctx, colID, "task")
			require.NoError(t, err)
			assert.Greater(t, tsk.ID, prev, "iteration %d", i)
			prev = tsk.ID
		}
		assert.Equal(t, 105, prev)
	})

	t.Run("appended to the bottom", func(t *testing.T) {
		tsk, err := svc.CreateTask(ctx, 1, "last one")
		require.NoError(t, err)
		col, ok := st.snapshot().Column(1)
		require.True(t, ok)
		assert.Equal(t, tsk, col.Tasks[len(col.Tasks)-1])
	})

	t.Run("ids are not reused after delete", func(t *testing.T) {
		tsk, err := svc.CreateTask(ctx, 2, "another")
		require.NoError(t, err)
		// delete a smaller id, max stays the same
		require.NoError(t, svc.DeleteTask(ctx, 101))
		next, err := svc.CreateTask(ctx, 2, "next")
		require.NoError(t, err)
		assert.Equal(t, tsk.ID+1, next.ID)
	})
}

func TestService_CreateTaskMissingColumn(t *testing.T) {
	t.Run("legacy keeps orphan out of board", func(t *testing.T) {
		st := &memStore{}
		svc := NewService(st, ModeLegacy)

		task, err := svc.CreateTask(t.Context(), 42, "orphan")
		require.NoError(t, err)
		assert.Equal(t, 101, task.ID)
		assert.Equal(t, enums.TaskStatusActive, task.Status)
		assert.Equal(t, 1, st.saves)
		assert.Equal(t, 0, st.snapshot().TasksCount())

		// the orphan id is free again since nothing holds it
		next, err := svc.CreateTask(t.Context(), 1, "placed")
		require.NoError(t, err)
		assert.Equal(t, 101, next.ID)
	})

	t.Run("strict rejects", func(t *testing.T) {
		st := &memStore{}
		svc := NewService(st, ModeStrict)

		_, err := svc.CreateTask(t.Context(), 42, "orphan")
		require.ErrorIs(t, err, ErrColumnNotFound)
		assert.Equal(t, 0, st.saves)
	})
}

func TestService_MoveTask(t *testing.T) {
	ctx := t.Context()

	t.Run("move to done column", func(t *testing.T) {
		st := &memStore{}
		svc := NewService(st, ModeLegacy)
		task, err := svc.CreateTask(ctx, 1, "write docs")
		require.NoError(t, err)

		res, err := svc.MoveTask(ctx, task.ID, 3)
		require.NoError(t, err)
		assert.Equal(t, MoveResult{TaskID: 101, ColumnID: 3, Status: enums.TaskStatusDone}, res)

		b := st.snapshot()
		assert.Empty(t, b.Columns[0].Tasks)
		moved, colID, ok := b.Task(101)
		require.True(t, ok)
		assert.Equal(t, 3, colID)
		assert.Equal(t, enums.TaskStatusDone, moved.Status)
		assert.Equal(t, "write docs", moved.Text)
	})

	t.Run("move back makes it active and puts it at the bottom", func(t *testing.T) {
		st := &memStore{}
		svc := NewService(st, ModeLegacy)
		_, err := svc.CreateTask(ctx, 1, "first")
		require.NoError(t, err)
		_, err = svc.CreateTask(ctx, 2, "second")
		require.NoError(t, err)

		res, err := svc.MoveTask(ctx, 101, 2)
		require.NoError(t, err)
		assert.Equal(t, enums.TaskStatusActive, res.Status)
		col, ok := st.snapshot().Column(2)
		require.True(t, ok)
		require.Len(t, col.Tasks, 2)
		assert.Equal(t, 102, col.Tasks[0].ID)
		assert.Equal(t, 101, col.Tasks[1].ID)
	})

	t.Run("done title earlier in order captures the task", func(t *testing.T) {
		b := New("Done", "To Do", "Doing")
		st := &memStore{board: &b}
		svc := NewService(st, ModeLegacy)
		_, err := svc.CreateTask(ctx, 2, "task")
		require.NoError(t, err)

		res, err := svc.MoveTask(ctx, 101, 3)
		require.NoError(t, err)
		assert.Equal(t, 1, res.ColumnID, "task redirected into column titled Done")
		assert.Equal(t, enums.TaskStatusDone, res.Status, "requested id is 3")
	})

	t.Run("task not found", func(t *testing.T) {
		st := &memStore{}
		svc := NewService(st, ModeLegacy)
		_, err := svc.CreateTask(ctx, 1, "task")
		require.NoError(t, err)
		before := st.snapshot()
		saves := st.saves

		_, err = svc.MoveTask(ctx, 9999, 2)
		require.ErrorIs(t, err, ErrTaskNotFound)
		assert.Equal(t, saves, st.saves, "no save on failure")
		assert.Equal(t, before, st.snapshot())
	})

	t.Run("legacy drops task without destination", func(t *testing.T) {
		b := New("To Do", "Doing")
		st := &memStore{board: &b}
		svc := NewService(st, ModeLegacy)
		_, err := svc.CreateTask(ctx, 1, "task")
		require.NoError(t, err)

		res, err := svc.MoveTask(ctx, 101, 7)
		require.NoError(t, err)
		assert.Equal(t, MoveResult{TaskID: 101, ColumnID: 0, Status: enums.TaskStatusActive}, res)
		assert.Equal(t, 0, st.snapshot().TasksCount())
	})

	t.Run("strict rejects missing destination", func(t *testing.T) {
		b := New("To Do", "Doing")
		st := &memStore{board: &b}
		svc := NewService(st, ModeStrict)
		_, err := svc.CreateTask(ctx, 1, "task")
		require.NoError(t, err)

		_, err = svc.MoveTask(ctx, 101, 7)
		require.ErrorIs(t, err, ErrColumnNotFound)
		assert.Equal(t, 1, st.snapshot().TasksCount())
		assert.Equal(t, 1, st.saves)
	})

	t.Run("strict ignores done title of other columns", func(t *testing.T) {
		b := New("Done", "To Do", "Doing")
		st := &memStore{board: &b}
		svc := NewService(st, ModeStrict)
		_, err := svc.CreateTask(ctx, 2, "task")
		require.NoError(t, err)

		res, err := svc.MoveTask(ctx, 101, 3)
		require.NoError(t, err)
		assert.Equal(t, MoveResult{TaskID: 101, ColumnID: 3, Status: enums.TaskStatusActive}, res)

		res, err = svc.MoveTask(ctx, 101, 1)
		require.NoError(t, err)
		assert.Equal(t, MoveResult{TaskID: 101, ColumnID: 1, Status: enums.TaskStatusDone}, res)
	})
}

func TestService_MoveTaskDoneRedirect(t *testing.T) {
	// a board where "Done" column sits before the requested one
	b := New("To Do", "Done", "Doing")
	st := &memStore{board: &b}
	svc := NewService(st, ModeLegacy)
	ctx := t.Context()

	_, err := svc.CreateTask(ctx, 1, "write docs")
	require.NoError(t, err)

	res, err := svc.MoveTask(ctx, 101, 3)
	require.NoError(t, err)
	assert.Equal(t, 2, res.ColumnID, "lands in the Done column, not the requested one")
	assert.Equal(t, enums.TaskStatusDone, res.Status)

	// "Done" column comes before column 2, requested id is not 3 so the status stays active
	b2 := Board{Columns: []Column{{ID: 1, Title: "To Do"}, {ID: 3, Title: "Done"}, {ID: 2, Title: "Doing"}}}
	st2 := &memStore{board: &b2}
	svc2 := NewService(st2, ModeLegacy)
	_, err = svc2.CreateTask(ctx, 1, "write docs")
	require.NoError(t, err)
	res, err = svc2.MoveTask(ctx, 101, 2)
	require.NoError(t, err)
	assert.Equal(t, MoveResult{TaskID: 101, ColumnID: 3, Status: enums.TaskStatusActive}, res)

	snap := st2.snapshot()
	done, ok := snap.Column(3)
	require.True(t, ok)
	require.Len(t, done.Tasks, 1)
	assert.Equal(t, 101, done.Tasks[0].ID)
	assert.Equal(t, enums.TaskStatusActive, done.Tasks[0].Status)
	doing, ok := snap.Column(2)
	require.True(t, ok)
	assert.Empty(t, doing.Tasks)
}

func TestService_UpdateTaskText(t *testing.T) {
	st := &memStore{}
	svc := NewService(st, ModeLegacy)
	ctx := t.Context()

	_, err := svc.CreateTask(ctx, 2, "old text")
	require.NoError(t, err)

	require.NoError(t, svc.UpdateTaskText(ctx, 101, "new text"))
	task, colID, ok := st.snapshot().Task(101)
	require.True(t, ok)
	assert.Equal(t, 2, colID)
	assert.Equal(t, "new text", task.Text)
	assert.Equal(t, enums.TaskStatusActive, task.Status)

	saves := st.saves
	err = svc.UpdateTaskText(ctx, 9999, "nope")
	require.ErrorIs(t, err, ErrTaskNotFound)
	assert.Equal(t, saves, st.saves)
}

func TestService_DeleteTask(t *testing.T) {
	st := &memStore{}
	svc := NewService(st, ModeLegacy)
	ctx := t.Context()

	for _, txt := range []string{"a", "b", "c"} {
		_, err := svc.CreateTask(ctx, 1, txt)
		require.NoError(t, err)
	}

	require.NoError(t, svc.DeleteTask(ctx, 102))
	col, ok := st.snapshot().Column(1)
	require.True(t, ok)
	require.Len(t, col.Tasks, 2)
	assert.Equal(t, 101, col.Tasks[0].ID)
	assert.Equal(t, 103, col.Tasks[1].ID)

	before := st.snapshot()
	saves := st.saves
	err := svc.DeleteTask(ctx, 9999)
	require.ErrorIs(t, err, ErrTaskNotFound)
	assert.Equal(t, saves, st.saves)
	assert.Equal(t, before, st.snapshot())
}

func TestService_CreateColumn(t *testing.T) {
	st := &memStore{}
	svc := NewService(st, ModeLegacy)
	ctx := t.Context()

	col, err := svc.CreateColumn(ctx, "Review")
	require.NoError(t, err)
	assert.Equal(t, Column{ID: 4, Title: "Review", Tasks: []Task{}}, col)

	b := st.snapshot()
	require.Len(t, b.Columns, 4)
	assert.Equal(t, col, b.Columns[3])

	t.Run("ids increase and start from 1 on empty board", func(t *testing.T) {
		empty := Board{Columns: []Column{}}
		st := &memStore{board: &empty}
		svc := NewService(st, ModeLegacy)
		prev := 0
		for range 5 {
			c, err := svc.CreateColumn(ctx, "col")
			require.NoError(t, err)
			assert.Greater(t, c.ID, prev)
			prev = c.ID
		}
		assert.Equal(t, 5, prev)
	})

	t.Run("ids follow the current max", func(t *testing.T) {
		require.NoError(t, svc.DeleteColumn(ctx, 4))
		c, err := svc.CreateColumn(ctx, "Again")
		require.NoError(t, err)
		assert.Equal(t, 4, c.ID, "max id is 3 after removing the last column")

		require.NoError(t, svc.DeleteColumn(ctx, 2))
		c, err = svc.CreateColumn(ctx, "More")
		require.NoError(t, err)
		assert.Equal(t, 5, c.ID)
	})
}

func TestService_DeleteColumn(t *testing.T) {
	st := &memStore{}
	svc := NewService(st, ModeLegacy)
	ctx := t.Context()

	for _, colID := range []int{1, 2, 2, 3} {
		_, err := svc.CreateTask(ctx, colID, "task")
		require.NoError(t, err)
	}

	require.NoError(t, svc.DeleteColumn(ctx, 2))
	b, err := svc.GetBoard(ctx)
	require.NoError(t, err)
	require.Len(t, b.Columns, 2)
	assert.Equal(t, 1, b.Columns[0].ID)
	assert.Equal(t, 3, b.Columns[1].ID)
	assert.Equal(t, 2, b.TasksCount())
	for _, id := range []int{102, 103} {
		_, _, ok := b.Task(id)
		assert.False(t, ok, "task %d removed with its column", id)
	}

	saves := st.saves
	err = svc.DeleteColumn(ctx, 2)
	require.ErrorIs(t, err, ErrColumnNotFound)
	assert.Equal(t, saves, st.saves)
}

func TestService_StoreErrors(t *testing.T) {
	ctx := t.Context()

	t.Run("load error", func(t *testing.T) {
		svc := NewService(&memStore{loadErr: errors.New("disk gone")}, ModeLegacy)
		_, err := svc.GetBoard(ctx)
		require.EqualError(t, err, "load board: disk gone")
		_, err = svc.CreateColumn(ctx, "x")
		require.Error(t, err)
	})

	t.Run("save error", func(t *testing.T) {
		svc := NewService(&memStore{saveErr: errors.New("read-only")}, ModeLegacy)
		_, err := svc.CreateTask(ctx, 1, "x")
		require.EqualError(t, err, "save board: read-only")
	})
}

func TestService_Concurrent(t *testing.T) {
	st := &memStore{}
	svc := NewService(st, ModeLegacy)
	ctx := t.Context()

	const n = 50
	gr := syncs.NewErrSizedGroup(8)
	for i := range n {
		gr.Go(func() error {
			_, err := svc.CreateTask(ctx, i%3+1, "task")
			return err
		})
	}
	require.NoError(t, gr.Wait())

	b := st.snapshot()
	assert.Equal(t, n, b.TasksCount(), "no lost updates")
	seen := map[int]bool{}
	for _, c := range b.Columns {
		for _, tsk := range c.Tasks {
			assert.False(t, seen[tsk.ID], "duplicate id %d", tsk.ID)
			seen[tsk.ID] = true
		}
	}
	for id := 101; id <= 100+n; id++ {
		assert.True(t, seen[id], "id %d missing", id)
	}
}

func TestMode_String(t *testing.T) {
	assert.Equal(t, "legacy", ModeLegacy.String())
	assert.Equal(t, "strict", ModeStrict.String())
	assert.Equal(t, "mode(7)", Mode(7).String())
}
