package engine

import (
	"fmt"
	"testing"
	"time"

	"github.com/Joseda-hg/lazytodo/internal/kv"
	"github.com/Joseda-hg/lazytodo/internal/model"
	"github.com/Joseda-hg/lazytodo/internal/persist"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recorder is an in-memory Persister that counts saves.
type recorder struct {
	tasks     []model.Task
	tags      []string
	taskSaves int
	tagSaves  int
}

func (r *recorder) LoadTasks() []model.Task  { return model.CloneTasks(r.tasks) }
func (r *recorder) LoadDefinedTags() []string { return append([]string(nil), r.tags...) }

func (r *recorder) SaveTasks(tasks []model.Task) {
	r.taskSaves++
	r.tasks = model.CloneTasks(tasks)
}

func (r *recorder) SaveDefinedTags(tags []string) {
	r.tagSaves++
	r.tags = append([]string(nil), tags...)
}

func newTestEngine(t *testing.T, store Persister, opts ...Option) *Engine {
	t.Helper()
	base := time.Date(2025, 1, 1, 9, 0, 0, 0, time.UTC)
	ticks := 0
	ids := 0
	defaults := []Option{
		WithClock(func() time.Time {
			ticks++
			return base.Add(time.Duration(ticks) * time.Minute)
		}),
		WithIDGenerator(func() string {
			ids++
			return fmt.Sprintf("id-%d", ids)
		}),
	}
	return New(store, append(defaults, opts...)...)
}

func sampleTask(title string, tags ...string) model.NewTask {
	return model.NewTask{Title: title, Description: "d", Tags: tags, Priority: model.PriorityMedium}
}

func TestEndToEndToggleUndoRedo(t *testing.T) {
	e := newTestEngine(t, &recorder{})

	task, err := e.AddTask(model.NewTask{Title: "A", Description: "d", Tags: []string{"t"}, Priority: "media"})
	require.NoError(t, err)

	tasks := e.Tasks()
	require.Len(t, tasks, 1)
	assert.Equal(t, model.Status("pendente"), tasks[0].Status)
	assert.Empty(t, tasks[0].Subtasks)
	assert.NotNil(t, tasks[0].Subtasks)

	e.ToggleTaskStatus(task.ID)
	assert.Equal(t, model.Status("concluida"), e.Tasks()[0].Status)

	require.True(t, e.Undo())
	assert.Equal(t, model.Status("pendente"), e.Tasks()[0].Status)

	require.True(t, e.Redo())
	assert.Equal(t, model.Status("concluida"), e.Tasks()[0].Status)
}

func TestAddTaskPrependsAndStampsCreation(t *testing.T) {
	e := newTestEngine(t, &recorder{})
	first, err := e.AddTask(sampleTask("first"))
	require.NoError(t, err)
	second, err := e.AddTask(sampleTask("second"))
	require.NoError(t, err)

	tasks := e.Tasks()
	require.Len(t, tasks, 2)
	assert.Equal(t, second.ID, tasks[0].ID)
	assert.Equal(t, first.ID, tasks[1].ID)
	assert.Equal(t, "2025-01-01T09:01:00.000Z", first.CreatedAt)
	assert.Less(t, first.CreatedAt, second.CreatedAt)
}

func TestAddTaskNormalizesTags(t *testing.T) {
	e := newTestEngine(t, &recorder{})
	task, err := e.AddTask(sampleTask("x", "a", " a", "b", ""))
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, task.Tags)
}

func TestAddTaskRequireTags(t *testing.T) {
	e := newTestEngine(t, &recorder{}, WithRequireTags(true))

	_, err := e.AddTask(sampleTask("untagged"))
	require.ErrorIs(t, err, model.ErrValidation)
	assert.Empty(t, e.Tasks())
	assert.False(t, e.CanUndo())

	_, err = e.AddTask(sampleTask("tagged", "x"))
	require.NoError(t, err)
}

func TestNoOpsLeaveSnapshotAndHistoryAlone(t *testing.T) {
	store := &recorder{}
	e := newTestEngine(t, store)
	task, err := e.AddTask(sampleTask("a"))
	require.NoError(t, err)
	before := e.Tasks()
	saves := store.taskSaves

	e.RemoveTask("unknown")
	e.ToggleTaskStatus("unknown")
	e.UpdateTaskStatus("unknown", model.StatusDone)
	e.UpdateTask("unknown", model.TaskPatch{})
	e.ToggleSubtaskStatus("unknown-parent", "x")
	e.ToggleSubtaskStatus(task.ID, "unknown-subtask")
	e.RemoveSubtask(task.ID, "unknown-subtask")
	e.MoveTask("unknown", 0)
	e.MoveTask(task.ID, 0)
	_, added := e.AddSubtask(task.ID, "   ")
	assert.False(t, added)
	_, added = e.AddSubtask("unknown", "title")
	assert.False(t, added)

	assert.Equal(t, before, e.Tasks())
	assert.Equal(t, saves, store.taskSaves)

	require.True(t, e.Undo())
	assert.Empty(t, e.Tasks())
	assert.False(t, e.CanUndo())
}

func TestUndoRedoInverseLaw(t *testing.T) {
	e := newTestEngine(t, &recorder{})
	snapshots := [][]model.Task{e.Tasks()}

	a, _ := e.AddTask(sampleTask("a", "x"))
	snapshots = append(snapshots, e.Tasks())
	b, _ := e.AddTask(sampleTask("b", "y"))
	snapshots = append(snapshots, e.Tasks())
	e.ToggleTaskStatus(a.ID)
	snapshots = append(snapshots, e.Tasks())
	sub, ok := e.AddSubtask(b.ID, "step")
	require.True(t, ok)
	snapshots = append(snapshots, e.Tasks())
	e.ToggleSubtaskStatus(b.ID, sub.ID)
	snapshots = append(snapshots, e.Tasks())
	title := "renamed"
	e.UpdateTask(a.ID, model.TaskPatch{Title: &title})
	snapshots = append(snapshots, e.Tasks())
	e.MoveTask(a.ID, 0)
	snapshots = append(snapshots, e.Tasks())
	e.RemoveTask(b.ID)
	snapshots = append(snapshots, e.Tasks())

	for i := len(snapshots) - 2; i >= 0; i-- {
		require.True(t, e.Undo())
		require.Equal(t, snapshots[i], e.Tasks(), "after undo to step %d", i)
	}
	assert.False(t, e.Undo())

	for i := 1; i < len(snapshots); i++ {
		require.True(t, e.Redo())
		require.Equal(t, snapshots[i], e.Tasks(), "after redo to step %d", i)
	}
	assert.False(t, e.Redo())
}

func TestNewMutationAfterUndoDropsRedo(t *testing.T) {
	e := newTestEngine(t, &recorder{})
	task, _ := e.AddTask(sampleTask("a"))
	e.ToggleTaskStatus(task.ID)
	e.Undo()
	require.True(t, e.CanRedo())

	e.UpdateTaskStatus(task.ID, model.StatusPending)
	assert.False(t, e.CanRedo())
}

func TestSnapshotsAreNotSharedWithCallers(t *testing.T) {
	e := newTestEngine(t, &recorder{})
	task, _ := e.AddTask(sampleTask("a", "x"))
	e.AddSubtask(task.ID, "sub")

	tasks := e.Tasks()
	tasks[0].Tags[0] = "mutated"
	tasks[0].Subtasks[0].Title = "mutated"
	tasks[0].Title = "mutated"

	fresh, ok := e.Task(task.ID)
	require.True(t, ok)
	assert.Equal(t, "x", fresh.Tags[0])
	assert.Equal(t, "sub", fresh.Subtasks[0].Title)
	assert.Equal(t, "a", fresh.Title)
}

func TestUpdateTaskMergesPatch(t *testing.T) {
	e := newTestEngine(t, &recorder{})
	task, _ := e.AddTask(model.NewTask{Title: "a", Description: "d", Tags: []string{"x"}, Priority: model.PriorityLow, DueDate: "2025-05-01"})

	high := model.PriorityHigh
	empty := ""
	e.UpdateTask(task.ID, model.TaskPatch{Priority: &high, DueDate: &empty, Tags: []string{"y", "y"}})

	updated, ok := e.Task(task.ID)
	require.True(t, ok)
	assert.Equal(t, model.PriorityHigh, updated.Priority)
	assert.False(t, updated.HasDueDate())
	assert.Equal(t, []string{"y"}, updated.Tags)
	assert.Equal(t, "a", updated.Title)
	assert.Equal(t, task.CreatedAt, updated.CreatedAt)
	assert.Equal(t, task.ID, updated.ID)
}

func TestSubtaskLifecycle(t *testing.T) {
	e := newTestEngine(t, &recorder{})
	parent, _ := e.AddTask(sampleTask("parent"))
	first, ok := e.AddSubtask(parent.ID, "first")
	require.True(t, ok)
	second, ok := e.AddSubtask(parent.ID, "second")
	require.True(t, ok)
	assert.NotEqual(t, first.ID, second.ID)

	e.ToggleSubtaskStatus(parent.ID, first.ID)
	task, _ := e.Task(parent.ID)
	require.Len(t, task.Subtasks, 2)
	assert.Equal(t, "first", task.Subtasks[0].Title)
	assert.Equal(t, model.StatusDone, task.Subtasks[0].Status)
	assert.Equal(t, model.StatusPending, task.Subtasks[1].Status)

	e.RemoveSubtask(parent.ID, first.ID)
	task, _ = e.Task(parent.ID)
	require.Len(t, task.Subtasks, 1)
	assert.Equal(t, second.ID, task.Subtasks[0].ID)
}

func TestReorderTasksTrustsCaller(t *testing.T) {
	e := newTestEngine(t, &recorder{})
	a, _ := e.AddTask(sampleTask("a"))
	b, _ := e.AddTask(sampleTask("b"))

	tasks := e.Tasks()
	e.ReorderTasks([]model.Task{tasks[1], tasks[0]})
	assert.Equal(t, []string{a.ID, b.ID}, taskIDs(e.Tasks()))

	e.ReorderTasks([]model.Task{tasks[0]})
	assert.Equal(t, []string{b.ID}, taskIDs(e.Tasks()))
	e.Undo()
	assert.Equal(t, []string{a.ID, b.ID}, taskIDs(e.Tasks()))
}

func TestReorderByIDKeepsUnlistedTasks(t *testing.T) {
	e := newTestEngine(t, &recorder{})
	a, _ := e.AddTask(sampleTask("a"))
	b, _ := e.AddTask(sampleTask("b"))
	c, _ := e.AddTask(sampleTask("c"))
	require.Equal(t, []string{c.ID, b.ID, a.ID}, taskIDs(e.Tasks()))

	e.ReorderByID([]string{a.ID, "ghost", c.ID, a.ID})
	assert.Equal(t, []string{a.ID, c.ID, b.ID}, taskIDs(e.Tasks()))

	steps := 0
	for e.CanUndo() {
		e.Undo()
		steps++
	}
	e.ReorderByID(nil)
	assert.Equal(t, 4, steps)
	assert.False(t, e.CanUndo(), "unchanged order must not add a step")
}

func TestMoveTask(t *testing.T) {
	e := newTestEngine(t, &recorder{})
	a, _ := e.AddTask(sampleTask("a"))
	b, _ := e.AddTask(sampleTask("b"))
	c, _ := e.AddTask(sampleTask("c"))

	e.MoveTask(c.ID, 99)
	assert.Equal(t, []string{b.ID, a.ID, c.ID}, taskIDs(e.Tasks()))
	e.MoveTask(a.ID, -5)
	assert.Equal(t, []string{a.ID, b.ID, c.ID}, taskIDs(e.Tasks()))
}

func TestDefinedTags(t *testing.T) {
	store := &recorder{tags: []string{"zeta", "alpha"}}
	e := newTestEngine(t, store)
	assert.Equal(t, []string{"alpha", "zeta"}, e.DefinedTags())

	assert.True(t, e.AddDefinedTag("  beta "))
	assert.False(t, e.AddDefinedTag("beta"))
	assert.False(t, e.AddDefinedTag("   "))
	assert.True(t, e.AddDefinedTag("Beta"), "names are case-sensitive")
	assert.Equal(t, []string{"Beta", "alpha", "beta", "zeta"}, e.DefinedTags())
	assert.Equal(t, 2, store.tagSaves)
	assert.False(t, e.CanUndo(), "catalog changes are not undoable")
}

func TestRemoveDefinedTagCascades(t *testing.T) {
	store := &recorder{tags: []string{"home"}}
	e := newTestEngine(t, store)
	require.True(t, e.AddDefinedTag("work"))
	task, err := e.AddTask(sampleTask("a", "work", "home"))
	require.NoError(t, err)
	e.SetFilter(model.Filter{Tag: "work"})

	e.RemoveDefinedTag("work")

	updated, _ := e.Task(task.ID)
	assert.Equal(t, []string{"home"}, updated.Tags)
	assert.NotContains(t, e.DefinedTags(), "work")
	assert.Equal(t, model.TagAny, e.Filters().Tag)

	e.Undo()
	restored, _ := e.Task(task.ID)
	assert.Equal(t, []string{"work", "home"}, restored.Tags)
	assert.NotContains(t, e.DefinedTags(), "work", "catalog is outside history")
}

func TestRemoveUnusedDefinedTagAddsNoStep(t *testing.T) {
	e := newTestEngine(t, &recorder{tags: []string{"solo"}})
	e.RemoveDefinedTag("solo")
	assert.Empty(t, e.DefinedTags())
	assert.False(t, e.CanUndo())
}

func TestAllTagNames(t *testing.T) {
	e := newTestEngine(t, &recorder{tags: []string{"b", "d"}})
	_, _ = e.AddTask(sampleTask("x", "c", "b"))
	_, _ = e.AddTask(sampleTask("y", "a"))
	assert.Equal(t, []string{"a", "b", "c", "d"}, e.AllTagNames())
}

func TestViewUsesStoredFilterAndSort(t *testing.T) {
	e := newTestEngine(t, &recorder{})
	low, _ := e.AddTask(model.NewTask{Title: "low", Description: "d", Priority: model.PriorityLow})
	high, _ := e.AddTask(model.NewTask{Title: "high", Description: "d", Priority: model.PriorityHigh})
	done, _ := e.AddTask(model.NewTask{Title: "done", Description: "d", Priority: model.PriorityHigh})
	e.ToggleTaskStatus(done.ID)

	assert.Equal(t, model.SortNewest, e.SortCriterion())
	assert.Equal(t, []string{done.ID, high.ID, low.ID}, taskIDs(e.View()))

	require.NoError(t, e.UpdateFilter("status", string(model.StatusPending)))
	e.SetSort(model.SortOldest)
	assert.Equal(t, []string{low.ID, high.ID}, taskIDs(e.View()))

	require.NoError(t, e.UpdateFilter("search", "HIGH"))
	assert.Equal(t, []string{high.ID}, taskIDs(e.View()))
	assert.Error(t, e.UpdateFilter("color", "red"))

	all := e.VisibleTasks(model.DefaultFilter(), model.SortPriority)
	assert.Equal(t, []string{done.ID, high.ID, low.ID}, taskIDs(all), "ties keep raw order")
}

func TestPersistsEveryCommittedChange(t *testing.T) {
	store := &recorder{}
	e := newTestEngine(t, store)
	task, _ := e.AddTask(sampleTask("a"))
	e.ToggleTaskStatus(task.ID)
	e.Undo()
	e.Redo()
	e.Redo()

	assert.Equal(t, 4, store.taskSaves)
	require.Len(t, store.tasks, 1)
	assert.Equal(t, model.StatusDone, store.tasks[0].Status)
}

func TestPersistenceRoundTripAcrossEngines(t *testing.T) {
	store := kv.NewMemory()
	first := newTestEngine(t, persist.NewAdapter(store, nil))
	task, _ := first.AddTask(model.NewTask{Title: "a", Description: "d", Tags: []string{"t"}, Priority: model.PriorityHigh, DueDate: "2025-03-01"})
	first.AddSubtask(task.ID, "sub")
	first.AddDefinedTag("t")
	want := first.Tasks()

	second := New(persist.NewAdapter(store, nil))
	assert.Equal(t, want, second.Tasks())
	assert.Contains(t, second.DefinedTags(), "t")
	assert.False(t, second.CanUndo(), "loaded state is not an undo step")
}

func TestHistoryLimit(t *testing.T) {
	e := newTestEngine(t, &recorder{}, WithHistoryLimit(3))
	for i := 0; i < 5; i++ {
		_, _ = e.AddTask(sampleTask(fmt.Sprintf("t%d", i)))
	}
	undone := 0
	for e.Undo() {
		undone++
	}
	assert.Equal(t, 2, undone)
	assert.Len(t, e.Tasks(), 3)
}

func TestStorageFailureKeepsSessionState(t *testing.T) {
	store := kv.NewMemory()
	store.FailWrites = fmt.Errorf("quota exceeded")
	e := newTestEngine(t, persist.NewAdapter(store, nil))

	task, err := e.AddTask(sampleTask("a"))
	require.NoError(t, err)
	e.ToggleTaskStatus(task.ID)
	assert.True(t, e.AddDefinedTag("fresh"))

	current, ok := e.Task(task.ID)
	require.True(t, ok)
	assert.Equal(t, model.StatusDone, current.Status)
}

func taskIDs(tasks []model.Task) []string {
	result := make([]string, 0, len(tasks))
	for _, task := range tasks {
		result = append(result, task.ID)
	}
	return result
}
