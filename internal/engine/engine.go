// Package engine owns the task list and tag catalog.
//
// Every task mutation goes through a history.History as one undoable step
// and produces a fresh snapshot; snapshots already recorded are never
// modified. The tag catalog is kept outside history. After each change the
// engine hands the new state to its Persister.
package engine

import (
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/Joseda-hg/lazytodo/internal/history"
	"github.com/Joseda-hg/lazytodo/internal/model"
	"github.com/Joseda-hg/lazytodo/internal/view"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Persister stores the engine state. Implementations handle their own
// failures; the engine never waits on or checks a save.
type Persister interface {
	LoadTasks() []model.Task
	SaveTasks(tasks []model.Task)
	LoadDefinedTags() []string
	SaveDefinedTags(tags []string)
}

type Option func(*Engine)

func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

func WithIDGenerator(newID func() string) Option {
	return func(e *Engine) { e.newID = newID }
}

// WithHistoryLimit bounds the undo log; n <= 0 keeps every step.
func WithHistoryLimit(n int) Option {
	return func(e *Engine) { e.historyLimit = n }
}

// WithRequireTags makes AddTask reject tasks without tags.
func WithRequireTags(required bool) Option {
	return func(e *Engine) { e.requireTags = required }
}

func WithLogger(log *zap.Logger) Option {
	return func(e *Engine) { e.log = log }
}

type Engine struct {
	mu sync.Mutex

	store       Persister
	history     *history.History[[]model.Task]
	definedTags []string

	filter    model.Filter
	criterion model.SortCriterion

	now          func() time.Time
	newID        func() string
	historyLimit int
	requireTags  bool
	log          *zap.Logger
}

// New loads the persisted state; the loaded task list is the first,
// non-undoable snapshot.
func New(store Persister, opts ...Option) *Engine {
	e := &Engine{
		store:     store,
		filter:    model.DefaultFilter(),
		criterion: model.SortNewest,
		now:       time.Now,
		newID:     uuid.NewString,
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.log == nil {
		e.log = zap.NewNop()
	}
	e.log = e.log.Named("engine")

	e.history = history.New(model.CloneTasks(store.LoadTasks()), history.WithLimit(e.historyLimit))
	e.definedTags = normalizeCatalog(store.LoadDefinedTags())
	e.log.Debug("state loaded", zap.Int("tasks", len(e.history.Current())), zap.Int("tags", len(e.definedTags)))
	return e
}

func (e *Engine) AddTask(input model.NewTask) (model.Task, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	tags := model.NormalizeTags(input.Tags)
	if e.requireTags && len(tags) == 0 {
		return model.Task{}, model.ErrTagsRequired
	}
	priority := input.Priority
	if priority == "" {
		priority = model.PriorityMedium
	}

	task := model.Task{
		ID:          e.newID(),
		Title:       input.Title,
		Description: input.Description,
		Status:      model.StatusPending,
		Priority:    priority,
		Tags:        tags,
		CreatedAt:   model.FormatTimestamp(e.now()),
		DueDate:     strings.TrimSpace(input.DueDate),
		Subtasks:    []model.Subtask{},
	}
	e.apply(func(prev []model.Task) []model.Task {
		next := make([]model.Task, 0, len(prev)+1)
		next = append(next, task)
		return append(next, prev...)
	})
	e.log.Debug("task added", zap.String("id", task.ID))
	return task.Clone(), nil
}

func (e *Engine) RemoveTask(id string) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if indexOf(e.history.Current(), id) < 0 {
		return
	}
	e.apply(func(prev []model.Task) []model.Task {
		next := make([]model.Task, 0, len(prev))
		for _, task := range prev {
			if task.ID != id {
				next = append(next, task)
			}
		}
		return next
	})
	e.log.Debug("task removed", zap.String("id", id))
}

func (e *Engine) ToggleTaskStatus(id string) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.change(id, func(task model.Task) model.Task {
		task.Status = task.Status.Toggle()
		return task
	})
}

// UpdateTaskStatus sets the status directly, as a board column move does.
func (e *Engine) UpdateTaskStatus(id string, status model.Status) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.change(id, func(task model.Task) model.Task {
		task.Status = status
		return task
	})
}

func (e *Engine) UpdateTask(id string, patch model.TaskPatch) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.change(id, patch.Apply)
}

// ReorderTasks replaces the whole list with order. The caller is trusted
// to pass a permutation of the current tasks.
func (e *Engine) ReorderTasks(order []model.Task) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.reorder(model.CloneTasks(order))
}

// MoveTask moves one task to position toIndex of the raw order.
func (e *Engine) MoveTask(id string, toIndex int) {
	e.mu.Lock()
	defer e.mu.Unlock()

	current := e.history.Current()
	from := indexOf(current, id)
	if from < 0 {
		return
	}
	toIndex = max(0, min(toIndex, len(current)-1))
	if toIndex == from {
		return
	}

	moved := current[from]
	rest := make([]model.Task, 0, len(current)-1)
	rest = append(rest, current[:from]...)
	rest = append(rest, current[from+1:]...)

	order := make([]model.Task, 0, len(current))
	order = append(order, rest[:toIndex]...)
	order = append(order, moved)
	order = append(order, rest[toIndex:]...)
	e.reorder(order)
}

// ReorderByID puts the listed tasks first, in the given order, followed by
// every unlisted task in its previous relative order. Unknown ids are
// ignored.
func (e *Engine) ReorderByID(ids []string) {
	e.mu.Lock()
	defer e.mu.Unlock()

	current := e.history.Current()
	byID := make(map[string]model.Task, len(current))
	for _, task := range current {
		byID[task.ID] = task
	}

	order := make([]model.Task, 0, len(current))
	placed := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		task, ok := byID[id]
		if !ok {
			continue
		}
		if _, dup := placed[id]; dup {
			continue
		}
		placed[id] = struct{}{}
		order = append(order, task)
	}
	for _, task := range current {
		if _, ok := placed[task.ID]; !ok {
			order = append(order, task)
		}
	}

	if sameOrder(current, order) {
		return
	}
	e.reorder(order)
}

// AddSubtask appends a pending subtask. Blank titles and unknown parents
// are ignored.
func (e *Engine) AddSubtask(parentID, title string) (model.Subtask, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()

	title = strings.TrimSpace(title)
	if title == "" {
		return model.Subtask{}, false
	}
	subtask := model.Subtask{ID: e.newID(), Title: title, Status: model.StatusPending}
	ok := e.change(parentID, func(task model.Task) model.Task {
		subtasks := make([]model.Subtask, 0, len(task.Subtasks)+1)
		subtasks = append(subtasks, task.Subtasks...)
		task.Subtasks = append(subtasks, subtask)
		return task
	})
	return subtask, ok
}

func (e *Engine) RemoveSubtask(parentID, subtaskID string) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.hasSubtask(parentID, subtaskID) {
		return
	}
	e.change(parentID, func(task model.Task) model.Task {
		subtasks := make([]model.Subtask, 0, len(task.Subtasks))
		for _, subtask := range task.Subtasks {
			if subtask.ID != subtaskID {
				subtasks = append(subtasks, subtask)
			}
		}
		task.Subtasks = subtasks
		return task
	})
}

func (e *Engine) ToggleSubtaskStatus(parentID, subtaskID string) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.hasSubtask(parentID, subtaskID) {
		return
	}
	e.change(parentID, func(task model.Task) model.Task {
		subtasks := make([]model.Subtask, 0, len(task.Subtasks))
		for _, subtask := range task.Subtasks {
			if subtask.ID == subtaskID {
				subtask.Status = subtask.Status.Toggle()
			}
			subtasks = append(subtasks, subtask)
		}
		task.Subtasks = subtasks
		return task
	})
}

// AddDefinedTag adds name to the catalog. It reports false for blank or
// already defined names; the comparison is case-sensitive.
func (e *Engine) AddDefinedTag(name string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	name = strings.TrimSpace(name)
	if name == "" || containsString(e.definedTags, name) {
		return false
	}
	tags := append(append(make([]string, 0, len(e.definedTags)+1), e.definedTags...), name)
	sort.Strings(tags)
	e.definedTags = tags
	e.store.SaveDefinedTags(e.definedTags)
	return true
}

// RemoveDefinedTag drops name from the catalog and from every task. The
// task side is one undoable step; the catalog change is not undoable.
func (e *Engine) RemoveDefinedTag(name string) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if containsString(e.definedTags, name) {
		tags := make([]string, 0, len(e.definedTags))
		for _, tag := range e.definedTags {
			if tag != name {
				tags = append(tags, tag)
			}
		}
		e.definedTags = tags
		e.store.SaveDefinedTags(e.definedTags)
	}
	if e.filter.Tag == name {
		e.filter.Tag = model.TagAny
	}

	carried := false
	for _, task := range e.history.Current() {
		if task.HasTag(name) {
			carried = true
			break
		}
	}
	if !carried {
		return
	}
	e.apply(func(prev []model.Task) []model.Task {
		next := make([]model.Task, 0, len(prev))
		for _, task := range prev {
			if task.HasTag(name) {
				tags := make([]string, 0, len(task.Tags))
				for _, tag := range task.Tags {
					if tag != name {
						tags = append(tags, tag)
					}
				}
				task.Tags = tags
			}
			next = append(next, task)
		}
		return next
	})
}

func (e *Engine) Undo() bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.history.Undo() {
		return false
	}
	e.store.SaveTasks(e.history.Current())
	return true
}

func (e *Engine) Redo() bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.history.Redo() {
		return false
	}
	e.store.SaveTasks(e.history.Current())
	return true
}

func (e *Engine) CanUndo() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.history.CanUndo()
}

func (e *Engine) CanRedo() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.history.CanRedo()
}

// Tasks returns the current snapshot in raw order.
func (e *Engine) Tasks() []model.Task {
	e.mu.Lock()
	defer e.mu.Unlock()
	return model.CloneTasks(e.history.Current())
}

func (e *Engine) Task(id string) (model.Task, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()

	current := e.history.Current()
	index := indexOf(current, id)
	if index < 0 {
		return model.Task{}, false
	}
	return current[index].Clone(), true
}

func (e *Engine) VisibleTasks(filter model.Filter, criterion model.SortCriterion) []model.Task {
	e.mu.Lock()
	defer e.mu.Unlock()
	return model.CloneTasks(view.Visible(e.history.Current(), filter, criterion))
}

// View returns the visible tasks for the stored filter and sort.
func (e *Engine) View() []model.Task {
	e.mu.Lock()
	defer e.mu.Unlock()
	return model.CloneTasks(view.Visible(e.history.Current(), e.filter, e.criterion))
}

func (e *Engine) Filters() model.Filter {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.filter
}

func (e *Engine) SetFilter(filter model.Filter) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.filter = filter
}

// UpdateFilter sets one filter field by name: search, status, priority or
// tag.
func (e *Engine) UpdateFilter(key, value string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	switch key {
	case "search":
		e.filter.Search = value
	case "status":
		e.filter.Status = model.Status(value)
	case "priority":
		e.filter.Priority = model.Priority(value)
	case "tag":
		e.filter.Tag = value
	default:
		return fmt.Errorf("unknown filter %q", key)
	}
	return nil
}

func (e *Engine) SortCriterion() model.SortCriterion {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.criterion
}

func (e *Engine) SetSort(criterion model.SortCriterion) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.criterion = criterion
}

// DefinedTags returns the catalog in ascending order.
func (e *Engine) DefinedTags() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]string(nil), e.definedTags...)
}

// AllTagNames merges catalog tags with every tag attached to a task.
func (e *Engine) AllTagNames() []string {
	e.mu.Lock()
	defer e.mu.Unlock()

	seen := make(map[string]struct{})
	for _, task := range e.history.Current() {
		for _, tag := range task.Tags {
			seen[tag] = struct{}{}
		}
	}
	for _, tag := range e.definedTags {
		seen[tag] = struct{}{}
	}
	names := make([]string, 0, len(seen))
	for name := range seen {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (e *Engine) apply(mutate func([]model.Task) []model.Task) {
	e.history.Apply(mutate)
	e.store.SaveTasks(e.history.Current())
}

// change rewrites the task with the given id as one history step. It
// reports false, recording nothing, when the id is unknown.
func (e *Engine) change(id string, update func(model.Task) model.Task) bool {
	if indexOf(e.history.Current(), id) < 0 {
		return false
	}
	e.apply(func(prev []model.Task) []model.Task {
		next := append(make([]model.Task, 0, len(prev)), prev...)
		index := indexOf(next, id)
		next[index] = update(prev[index])
		return next
	})
	return true
}

func (e *Engine) reorder(order []model.Task) {
	e.apply(func([]model.Task) []model.Task {
		return order
	})
}

func (e *Engine) hasSubtask(parentID, subtaskID string) bool {
	current := e.history.Current()
	index := indexOf(current, parentID)
	if index < 0 {
		return false
	}
	for _, subtask := range current[index].Subtasks {
		if subtask.ID == subtaskID {
			return true
		}
	}
	return false
}

func indexOf(tasks []model.Task, id string) int {
	for i, task := range tasks {
		if task.ID == id {
			return i
		}
	}
	return -1
}

func sameOrder(a, b []model.Task) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i].ID != b[i].ID {
			return false
		}
	}
	return true
}

func containsString(values []string, target string) bool {
	for _, value := range values {
		if value == target {
			return true
		}
	}
	return false
}

func normalizeCatalog(tags []string) []string {
	result := model.NormalizeTags(tags)
	sort.Strings(result)
	return result
}
