package web

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/Joseda-hg/lazytodo/internal/engine"
	"github.com/Joseda-hg/lazytodo/internal/kv"
	"github.com/Joseda-hg/lazytodo/internal/model"
	"github.com/Joseda-hg/lazytodo/internal/persist"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newTestServer(t *testing.T) (http.Handler, *engine.Engine) {
	t.Helper()
	base := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	ticks := 0
	ids := 0
	eng := engine.New(persist.NewAdapter(kv.NewMemory(), nil),
		engine.WithClock(func() time.Time {
			ticks++
			return base.Add(time.Duration(ticks) * time.Minute)
		}),
		engine.WithIDGenerator(func() string {
			ids++
			return fmt.Sprintf("id-%d", ids)
		}),
	)
	return NewServer(eng, nil).Handler(), eng
}

func doJSON(t *testing.T, handler http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var payload bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&payload).Encode(body))
	}
	req := httptest.NewRequest(method, path, &payload)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var value T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &value))
	return value
}

func TestHealth(t *testing.T) {
	handler, _ := newTestServer(t)
	rec := doJSON(t, handler, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestCreateAndListTasks(t *testing.T) {
	handler, _ := newTestServer(t)

	rec := doJSON(t, handler, http.MethodPost, "/api/tasks", model.NewTask{
		Title: "Read", Description: "Chapter 1", Tags: []string{"Estudo"}, Priority: model.PriorityHigh,
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	created := decode[model.Task](t, rec)
	assert.Equal(t, "id-1", created.ID)
	assert.Equal(t, model.StatusPending, created.Status)

	rec = doJSON(t, handler, http.MethodPost, "/api/tasks", model.NewTask{Title: "Walk", Description: "Park"})
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = doJSON(t, handler, http.MethodGet, "/api/tasks", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	tasks := decode[[]model.Task](t, rec)
	require.Len(t, tasks, 2)
	assert.Equal(t, "Walk", tasks[0].Title)

	rec = doJSON(t, handler, http.MethodGet, "/api/tasks?tag=Estudo", nil)
	tasks = decode[[]model.Task](t, rec)
	require.Len(t, tasks, 1)
	assert.Equal(t, "Read", tasks[0].Title)

	rec = doJSON(t, handler, http.MethodGet, "/api/tasks?sort=criacao-antiga&q=park", nil)
	tasks = decode[[]model.Task](t, rec)
	require.Len(t, tasks, 1)
	assert.Equal(t, "Walk", tasks[0].Title)
}

func TestCreateTaskValidation(t *testing.T) {
	handler, eng := newTestServer(t)

	rec := doJSON(t, handler, http.MethodPost, "/api/tasks", model.NewTask{Title: "  ", Description: "x"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doJSON(t, handler, http.MethodPost, "/api/tasks", model.NewTask{Title: "a", Description: "b", DueDate: "tomorrow"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	assert.Empty(t, eng.Tasks())
	assert.False(t, eng.CanUndo())
}

func TestTaskLifecycle(t *testing.T) {
	handler, eng := newTestServer(t)
	task, err := eng.AddTask(model.NewTask{Title: "Report", Description: "Q1"})
	require.NoError(t, err)

	rec := doJSON(t, handler, http.MethodGet, "/api/tasks/"+task.ID, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, handler, http.MethodPost, "/api/tasks/"+task.ID+"/toggle", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, model.StatusDone, decode[model.Task](t, rec).Status)

	rec = doJSON(t, handler, http.MethodPut, "/api/tasks/"+task.ID+"/status", map[string]string{"status": "pendente"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, model.StatusPending, decode[model.Task](t, rec).Status)

	rec = doJSON(t, handler, http.MethodPut, "/api/tasks/"+task.ID+"/status", map[string]string{"status": "done"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doJSON(t, handler, http.MethodPatch, "/api/tasks/"+task.ID, map[string]any{"title": "Report v2", "priority": "alta"})
	require.Equal(t, http.StatusOK, rec.Code)
	updated := decode[model.Task](t, rec)
	assert.Equal(t, "Report v2", updated.Title)
	assert.Equal(t, model.PriorityHigh, updated.Priority)
	assert.Equal(t, "Q1", updated.Description)

	rec = doJSON(t, handler, http.MethodPatch, "/api/tasks/"+task.ID, map[string]any{"priority": "urgent"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doJSON(t, handler, http.MethodDelete, "/api/tasks/"+task.ID, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Empty(t, eng.Tasks())

	rec = doJSON(t, handler, http.MethodGet, "/api/tasks/"+task.ID, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestReorder(t *testing.T) {
	handler, eng := newTestServer(t)
	first, _ := eng.AddTask(model.NewTask{Title: "A", Description: "a"})
	second, _ := eng.AddTask(model.NewTask{Title: "B", Description: "b"})

	rec := doJSON(t, handler, http.MethodPut, "/api/tasks/order", map[string]any{"ids": []string{first.ID, second.ID}})
	require.Equal(t, http.StatusOK, rec.Code)
	tasks := decode[[]model.Task](t, rec)
	require.Len(t, tasks, 2)
	assert.Equal(t, first.ID, tasks[0].ID)
	assert.Equal(t, second.ID, tasks[1].ID)
}

func TestSubtasks(t *testing.T) {
	handler, eng := newTestServer(t)
	task, _ := eng.AddTask(model.NewTask{Title: "Trip", Description: "Pack"})

	rec := doJSON(t, handler, http.MethodPost, "/api/tasks/"+task.ID+"/subtasks", map[string]string{"title": "Socks"})
	require.Equal(t, http.StatusCreated, rec.Code)
	subtask := decode[model.Subtask](t, rec)
	assert.Equal(t, model.StatusPending, subtask.Status)

	rec = doJSON(t, handler, http.MethodPost, "/api/tasks/"+task.ID+"/subtasks", map[string]string{"title": " "})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doJSON(t, handler, http.MethodPost, "/api/tasks/"+task.ID+"/subtasks/"+subtask.ID+"/toggle", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, model.StatusDone, decode[model.Task](t, rec).Subtasks[0].Status)

	rec = doJSON(t, handler, http.MethodDelete, "/api/tasks/"+task.ID+"/subtasks/missing", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = doJSON(t, handler, http.MethodDelete, "/api/tasks/"+task.ID+"/subtasks/"+subtask.ID, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	current, _ := eng.Task(task.ID)
	assert.Empty(t, current.Subtasks)
}

func TestTags(t *testing.T) {
	handler, eng := newTestServer(t)
	_, err := eng.AddTask(model.NewTask{Title: "Lab", Description: "Run", Tags: []string{"Python", "Lab"}})
	require.NoError(t, err)

	rec := doJSON(t, handler, http.MethodGet, "/api/tags", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	tags := decode[tagsResponse](t, rec)
	assert.Equal(t, []string{"Estudo", "Maths", "Python", "React", "Trabalho"}, tags.Defined)
	assert.Contains(t, tags.All, "Lab")

	rec = doJSON(t, handler, http.MethodPost, "/api/tags", map[string]string{"name": "Casa"})
	assert.Equal(t, http.StatusCreated, rec.Code)
	rec = doJSON(t, handler, http.MethodPost, "/api/tags", map[string]string{"name": "Casa"})
	assert.Equal(t, http.StatusConflict, rec.Code)
	rec = doJSON(t, handler, http.MethodPost, "/api/tags", map[string]string{"name": ""})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doJSON(t, handler, http.MethodDelete, "/api/tags/Python", nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.NotContains(t, eng.DefinedTags(), "Python")
	assert.Equal(t, []string{"Lab"}, eng.Tasks()[0].Tags)
}

func TestUndoRedo(t *testing.T) {
	handler, eng := newTestServer(t)
	_, err := eng.AddTask(model.NewTask{Title: "One", Description: "1"})
	require.NoError(t, err)

	rec := doJSON(t, handler, http.MethodGet, "/api/history", nil)
	assert.Equal(t, historyResponse{CanUndo: true}, decode[historyResponse](t, rec))

	rec = doJSON(t, handler, http.MethodPost, "/api/undo", nil)
	assert.Equal(t, historyResponse{CanRedo: true}, decode[historyResponse](t, rec))
	assert.Empty(t, eng.Tasks())

	rec = doJSON(t, handler, http.MethodPost, "/api/redo", nil)
	assert.Equal(t, historyResponse{CanUndo: true}, decode[historyResponse](t, rec))
	assert.Len(t, eng.Tasks(), 1)
}
