// Package persist reads and writes the task list and tag catalog records.
//
// Storage problems never reach the caller: they are logged and the caller
// keeps working with its in-memory state.
package persist

import (
	"encoding/json"
	"fmt"

	"github.com/Joseda-hg/lazytodo/internal/kv"
	"github.com/Joseda-hg/lazytodo/internal/model"
	"go.uber.org/zap"
)

const (
	TasksKey       = "my-todo-list:tasks-v1"
	DefinedTagsKey = "my-todo-list:defined-tags-v1"
)

// DefaultTags seeds the catalog when nothing usable is stored.
var DefaultTags = []string{"React", "Python", "Maths", "Trabalho", "Estudo"}

// StorageError describes a failed read, write or decode of a record.
type StorageError struct {
	Op  string
	Key string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Key, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}

type Adapter struct {
	store kv.Store
	log   *zap.Logger
}

func NewAdapter(store kv.Store, log *zap.Logger) *Adapter {
	if log == nil {
		log = zap.NewNop()
	}
	return &Adapter{store: store, log: log.Named("persist")}
}

func (a *Adapter) LoadTasks() []model.Task {
	var tasks []model.Task
	if !a.load(TasksKey, &tasks) {
		return []model.Task{}
	}
	for i := range tasks {
		if tasks[i].Tags == nil {
			tasks[i].Tags = []string{}
		}
		if tasks[i].Subtasks == nil {
			tasks[i].Subtasks = []model.Subtask{}
		}
	}
	return tasks
}

func (a *Adapter) SaveTasks(tasks []model.Task) {
	if tasks == nil {
		tasks = []model.Task{}
	}
	a.save(TasksKey, tasks)
}

func (a *Adapter) LoadDefinedTags() []string {
	var tags []string
	if !a.load(DefinedTagsKey, &tags) || len(tags) == 0 {
		return append([]string(nil), DefaultTags...)
	}
	return tags
}

func (a *Adapter) SaveDefinedTags(tags []string) {
	if tags == nil {
		tags = []string{}
	}
	a.save(DefinedTagsKey, tags)
}

// load reports whether a record was found and decoded into dest.
func (a *Adapter) load(key string, dest any) bool {
	data, ok, err := a.store.Get(key)
	if err != nil {
		a.report(&StorageError{Op: "read", Key: key, Err: err})
		return false
	}
	if !ok || len(data) == 0 {
		return false
	}
	if err := json.Unmarshal(data, dest); err != nil {
		a.report(&StorageError{Op: "decode", Key: key, Err: err})
		return false
	}
	return true
}

func (a *Adapter) save(key string, value any) {
	data, err := json.Marshal(value)
	if err != nil {
		a.report(&StorageError{Op: "encode", Key: key, Err: err})
		return
	}
	if err := a.store.Set(key, data); err != nil {
		a.report(&StorageError{Op: "write", Key: key, Err: err})
	}
}

func (a *Adapter) report(err *StorageError) {
	a.log.Error("storage failure", zap.String("op", err.Op), zap.String("key", err.Key), zap.Error(err.Err))
}
