package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/persistorai/tasktrail/internal/models"
)

// TaskHandler serves task CRUD endpoints.
type TaskHandler struct {
	tasks TaskMutator
	reads TaskReader
	log   *logrus.Logger
}

// NewTaskHandler creates a TaskHandler. Mutations go through tasks; reads
// bypass it and use reads.
func NewTaskHandler(tasks TaskMutator, reads TaskReader, log *logrus.Logger) *TaskHandler {
	return &TaskHandler{tasks: tasks, reads: reads, log: log}
}

// List handles GET /api/v1/tasks.
func (h *TaskHandler) List(c *gin.Context) {
	userID := getUserID(c)
	if userID == "" {
		return
	}

	tasks, err := h.reads.ListTasks(c.Request.Context(), userID)
	if err != nil {
		respondServiceError(c, h.log, "list tasks", err)
		return
	}

	if tasks == nil {
		tasks = []models.Task{}
	}

	c.JSON(http.StatusOK, gin.H{"tasks": tasks})
}

// Get handles GET /api/v1/tasks/:id.
func (h *TaskHandler) Get(c *gin.Context) {
	taskID, ok := parseTaskID(c)
	if !ok {
		return
	}

	userID := getUserID(c)
	if userID == "" {
		return
	}

	task, err := h.reads.GetTask(c.Request.Context(), userID, taskID)
	if err != nil {
		respondServiceError(c, h.log, "get task", err)
		return
	}

	c.JSON(http.StatusOK, task)
}

// Create handles POST /api/v1/tasks.
func (h *TaskHandler) Create(c *gin.Context) {
	var req models.CreateTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, ErrCodeInvalidRequest, "invalid request body")
		return
	}

	userID := getUserID(c)
	if userID == "" {
		return
	}

	task, err := h.tasks.CreateTask(c.Request.Context(), userID, req)
	if err != nil {
		respondServiceError(c, h.log, "create task", err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"msg": "Task created", "id": task.ID, "task": task})
}

// Update handles PUT /api/v1/tasks/:id. Only fields present in the body change.
func (h *TaskHandler) Update(c *gin.Context) {
	taskID, ok := parseTaskID(c)
	if !ok {
		return
	}

	var patch models.UpdateTaskRequest
	if err := c.ShouldBindJSON(&patch); err != nil {
		respondError(c, http.StatusBadRequest, ErrCodeInvalidRequest, "invalid request body")
		return
	}

	userID := getUserID(c)
	if userID == "" {
		return
	}

	task, err := h.tasks.UpdateTask(c.Request.Context(), userID, taskID, patch)
	if err != nil {
		respondServiceError(c, h.log, "update task", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"msg": "Task updated", "task": task})
}

// Delete handles DELETE /api/v1/tasks/:id.
func (h *TaskHandler) Delete(c *gin.Context) {
	taskID, ok := parseTaskID(c)
	if !ok {
		return
	}

	userID := getUserID(c)
	if userID == "" {
		return
	}

	if err := h.tasks.DeleteTask(c.Request.Context(), userID, taskID); err != nil {
		respondServiceError(c, h.log, "delete task", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"msg": "Task deleted"})
}
