package web

import (
	"errors"
	"net/http"
	"strings"

	"github.com/Joseda-hg/lazytodo/internal/engine"
	"github.com/Joseda-hg/lazytodo/internal/model"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type Server struct {
	engine *engine.Engine
	log    *zap.Logger
}

type errorResponse struct {
	Error string `json:"error"`
}

type historyResponse struct {
	CanUndo bool `json:"canUndo"`
	CanRedo bool `json:"canRedo"`
}

type tagsResponse struct {
	Defined []string `json:"defined"`
	All     []string `json:"all"`
}

type statusRequest struct {
	Status model.Status `json:"status"`
}

type orderRequest struct {
	IDs []string `json:"ids"`
}

type titleRequest struct {
	Title string `json:"title"`
}

type tagRequest struct {
	Name string `json:"name"`
}

func NewServer(engine *engine.Engine, log *zap.Logger) *Server {
	if log == nil {
		log = zap.NewNop()
	}
	return &Server{engine: engine, log: log.Named("web")}
}

func (s *Server) Handler() http.Handler {
	router := gin.New()
	router.Use(gin.Recovery(), s.requestLogger())

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	api := router.Group("/api")
	{
		api.GET("/tasks", s.listTasks)
		api.POST("/tasks", s.createTask)
		api.PUT("/tasks/order", s.reorderTasks)
		api.GET("/tasks/:id", s.getTask)
		api.PATCH("/tasks/:id", s.updateTask)
		api.DELETE("/tasks/:id", s.deleteTask)
		api.POST("/tasks/:id/toggle", s.toggleTask)
		api.PUT("/tasks/:id/status", s.setStatus)
		api.POST("/tasks/:id/subtasks", s.addSubtask)
		api.DELETE("/tasks/:id/subtasks/:sid", s.removeSubtask)
		api.POST("/tasks/:id/subtasks/:sid/toggle", s.toggleSubtask)
		api.GET("/tags", s.listTags)
		api.POST("/tags", s.addTag)
		api.DELETE("/tags/:name", s.removeTag)
		api.GET("/history", s.history)
		api.POST("/undo", s.undo)
		api.POST("/redo", s.redo)
	}
	return router
}

func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()
		s.log.Debug("request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.FullPath()),
			zap.Int("status", c.Writer.Status()),
		)
	}
}

func (s *Server) listTasks(c *gin.Context) {
	filter := filterFromRequest(c)
	criterion := model.SortCriterion(strings.TrimSpace(c.Query("sort")))
	if criterion == "" {
		criterion = model.SortNewest
	}
	c.JSON(http.StatusOK, s.engine.VisibleTasks(filter, criterion))
}

func (s *Server) createTask(c *gin.Context) {
	var input model.NewTask
	if err := c.ShouldBindJSON(&input); err != nil {
		writeError(c, http.StatusBadRequest, err)
		return
	}
	if err := input.Validate(); err != nil {
		writeError(c, http.StatusBadRequest, err)
		return
	}
	task, err := s.engine.AddTask(input)
	if err != nil {
		if errors.Is(err, model.ErrValidation) {
			writeError(c, http.StatusBadRequest, err)
			return
		}
		s.log.Error("add task failed", zap.Error(err))
		writeError(c, http.StatusInternalServerError, err)
		return
	}
	c.JSON(http.StatusCreated, task)
}

func (s *Server) getTask(c *gin.Context) {
	task, ok := s.requireTask(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, task)
}

func (s *Server) updateTask(c *gin.Context) {
	task, ok := s.requireTask(c)
	if !ok {
		return
	}
	var patch model.TaskPatch
	if err := c.ShouldBindJSON(&patch); err != nil {
		writeError(c, http.StatusBadRequest, err)
		return
	}
	if err := validatePatch(patch); err != nil {
		writeError(c, http.StatusBadRequest, err)
		return
	}
	s.engine.UpdateTask(task.ID, patch)
	s.respondWithTask(c, task.ID)
}

func (s *Server) deleteTask(c *gin.Context) {
	task, ok := s.requireTask(c)
	if !ok {
		return
	}
	s.engine.RemoveTask(task.ID)
	c.Status(http.StatusNoContent)
}

func (s *Server) toggleTask(c *gin.Context) {
	task, ok := s.requireTask(c)
	if !ok {
		return
	}
	s.engine.ToggleTaskStatus(task.ID)
	s.respondWithTask(c, task.ID)
}

func (s *Server) setStatus(c *gin.Context) {
	task, ok := s.requireTask(c)
	if !ok {
		return
	}
	var req statusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, err)
		return
	}
	if !req.Status.Valid() {
		writeError(c, http.StatusBadRequest, &model.ValidationError{Field: "status", Reason: "unknown status"})
		return
	}
	s.engine.UpdateTaskStatus(task.ID, req.Status)
	s.respondWithTask(c, task.ID)
}

func (s *Server) reorderTasks(c *gin.Context) {
	var req orderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, err)
		return
	}
	s.engine.ReorderByID(req.IDs)
	c.JSON(http.StatusOK, s.engine.Tasks())
}

func (s *Server) addSubtask(c *gin.Context) {
	task, ok := s.requireTask(c)
	if !ok {
		return
	}
	var req titleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, err)
		return
	}
	subtask, added := s.engine.AddSubtask(task.ID, req.Title)
	if !added {
		writeError(c, http.StatusBadRequest, &model.ValidationError{Field: "title", Reason: "title required"})
		return
	}
	c.JSON(http.StatusCreated, subtask)
}

func (s *Server) removeSubtask(c *gin.Context) {
	task, ok := s.requireTask(c)
	if !ok {
		return
	}
	if !hasSubtask(task, c.Param("sid")) {
		writeError(c, http.StatusNotFound, errors.New("subtask not found"))
		return
	}
	s.engine.RemoveSubtask(task.ID, c.Param("sid"))
	c.Status(http.StatusNoContent)
}

func (s *Server) toggleSubtask(c *gin.Context) {
	task, ok := s.requireTask(c)
	if !ok {
		return
	}
	if !hasSubtask(task, c.Param("sid")) {
		writeError(c, http.StatusNotFound, errors.New("subtask not found"))
		return
	}
	s.engine.ToggleSubtaskStatus(task.ID, c.Param("sid"))
	s.respondWithTask(c, task.ID)
}

func (s *Server) listTags(c *gin.Context) {
	c.JSON(http.StatusOK, tagsResponse{Defined: s.engine.DefinedTags(), All: s.engine.AllTagNames()})
}

func (s *Server) addTag(c *gin.Context) {
	var req tagRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, err)
		return
	}
	if strings.TrimSpace(req.Name) == "" {
		writeError(c, http.StatusBadRequest, &model.ValidationError{Field: "name", Reason: "tag name required"})
		return
	}
	if !s.engine.AddDefinedTag(req.Name) {
		writeError(c, http.StatusConflict, errors.New("tag already exists"))
		return
	}
	c.JSON(http.StatusCreated, tagsResponse{Defined: s.engine.DefinedTags(), All: s.engine.AllTagNames()})
}

func (s *Server) removeTag(c *gin.Context) {
	s.engine.RemoveDefinedTag(c.Param("name"))
	c.Status(http.StatusNoContent)
}

func (s *Server) history(c *gin.Context) {
	c.JSON(http.StatusOK, s.historyState())
}

func (s *Server) undo(c *gin.Context) {
	s.engine.Undo()
	c.JSON(http.StatusOK, s.historyState())
}

func (s *Server) redo(c *gin.Context) {
	s.engine.Redo()
	c.JSON(http.StatusOK, s.historyState())
}

func (s *Server) historyState() historyResponse {
	return historyResponse{CanUndo: s.engine.CanUndo(), CanRedo: s.engine.CanRedo()}
}

func (s *Server) requireTask(c *gin.Context) (model.Task, bool) {
	task, ok := s.engine.Task(c.Param("id"))
	if !ok {
		writeError(c, http.StatusNotFound, errors.New("task not found"))
		return model.Task{}, false
	}
	return task, true
}

func (s *Server) respondWithTask(c *gin.Context, id string) {
	task, ok := s.engine.Task(id)
	if !ok {
		c.Status(http.StatusNoContent)
		return
	}
	c.JSON(http.StatusOK, task)
}

func filterFromRequest(c *gin.Context) model.Filter {
	filter := model.DefaultFilter()
	filter.Search = strings.TrimSpace(c.Query("q"))
	if value := strings.TrimSpace(c.Query("status")); value != "" {
		filter.Status = model.Status(value)
	}
	if value := strings.TrimSpace(c.Query("priority")); value != "" {
		filter.Priority = model.Priority(value)
	}
	if value := strings.TrimSpace(c.Query("tag")); value != "" {
		filter.Tag = value
	}
	return filter
}

func validatePatch(patch model.TaskPatch) error {
	if patch.Status != nil && !patch.Status.Valid() {
		return &model.ValidationError{Field: "status", Reason: "unknown status"}
	}
	if patch.Priority != nil && !patch.Priority.Valid() {
		return &model.ValidationError{Field: "priority", Reason: "unknown priority"}
	}
	if patch.Title != nil && strings.TrimSpace(*patch.Title) == "" {
		return &model.ValidationError{Field: "title", Reason: "title required"}
	}
	if patch.DueDate != nil {
		return model.ValidateDueDate(strings.TrimSpace(*patch.DueDate))
	}
	return nil
}

func hasSubtask(task model.Task, subtaskID string) bool {
	for _, subtask := range task.Subtasks {
		if subtask.ID == subtaskID {
			return true
		}
	}
	return false
}

func writeError(c *gin.Context, status int, err error) {
	c.JSON(status, errorResponse{Error: err.Error()})
}
