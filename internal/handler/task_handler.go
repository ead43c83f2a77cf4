package handler

import (
	"context"
	"errors"
	"io"
	"net/http"

	"taskify/internal/model"
	"taskify/internal/service"

	"github.com/gin-gonic/gin"
)

// TaskService is implemented by *service.TaskService.
type TaskService interface {
	CreateTask(ctx context.Context, caller string, in service.CreateTaskInput) (*model.Task, error)
	UpdateTask(ctx context.Context, caller, taskID string, in service.UpdateTaskInput) (*model.Task, error)
	DeleteTask(ctx context.Context, caller, taskID string) error
	MarkComplete(ctx context.Context, caller, taskID string, in service.CompleteInput) (*model.Task, error)
}

// TaskViewer is implemented by *service.Aggregator.
type TaskViewer interface {
	UnifiedView(ctx context.Context, caller string) ([]model.UnifiedTask, error)
}

type TaskHandler struct {
	tasks TaskService
	view  TaskViewer
}

func NewTaskHandler(tasks TaskService, view TaskViewer) *TaskHandler {
	return &TaskHandler{tasks: tasks, view: view}
}

// GetAll godoc
// @Summary      Unified task view
// @Description  Open personal tasks and open group tasks assigned to the caller, by due date, undated last.
// @Tags         Tasks
// @Produce      json
// @Security     BearerAuth
// @Success      200  {array}   UnifiedTaskResponse
// @Failure      401  {object}  ErrorResponse
// @Router       /tasks [get]
func (h *TaskHandler) GetAll(c *gin.Context) {
	username, ok := caller(c)
	if !ok {
		return
	}

	view, err := h.view.UnifiedView(c.Request.Context(), username)
	if err != nil {
		respondError(c, "list tasks", err)
		return
	}

	resp := make([]UnifiedTaskResponse, len(view))
	for i, u := range view {
		resp[i] = newUnifiedTaskResponse(u)
	}
	c.JSON(http.StatusOK, resp)
}

// Create godoc
// @Summary      Create a personal task
// @Tags         Tasks
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        body  body      CreateTaskRequest  true  "Task"
// @Success      201   {object}  TaskResponse
// @Failure      400   {object}  ErrorResponse
// @Router       /tasks [post]
func (h *TaskHandler) Create(c *gin.Context) {
	username, ok := caller(c)
	if !ok {
		return
	}

	var req CreateTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request: "+err.Error())
		return
	}

	task, err := h.tasks.CreateTask(c.Request.Context(), username, req.input())
	if err != nil {
		respondError(c, "create task", err)
		return
	}
	c.JSON(http.StatusCreated, newTaskResponse(task))
}

// Update godoc
// @Summary      Update a personal task
// @Tags         Tasks
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id    path      string             true  "Task ID"
// @Param        body  body      UpdateTaskRequest  true  "Fields to change"
// @Success      200   {object}  TaskResponse
// @Failure      404   {object}  ErrorResponse
// @Router       /tasks/{id} [put]
func (h *TaskHandler) Update(c *gin.Context) {
	username, ok := caller(c)
	if !ok {
		return
	}

	var req UpdateTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request: "+err.Error())
		return
	}

	task, err := h.tasks.UpdateTask(c.Request.Context(), username, c.Param("id"), req.input())
	if err != nil {
		respondError(c, "update task", err)
		return
	}
	c.JSON(http.StatusOK, newTaskResponse(task))
}

// Delete godoc
// @Summary      Delete a personal task
// @Tags         Tasks
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Task ID"
// @Success      200  {object}  MessageResponse
// @Failure      404  {object}  ErrorResponse
// @Router       /tasks/{id} [delete]
func (h *TaskHandler) Delete(c *gin.Context) {
	username, ok := caller(c)
	if !ok {
		return
	}

	if err := h.tasks.DeleteTask(c.Request.Context(), username, c.Param("id")); err != nil {
		respondError(c, "delete task", err)
		return
	}
	c.JSON(http.StatusOK, MessageResponse{Message: "Task deleted successfully"})
}

// Complete godoc
// @Summary      Complete a task or one of its subtasks
// @Description  Without a subtask the task and all its subtasks are completed.
// @Tags         Tasks
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        taskId  path      string               true   "Task ID"
// @Param        body    body      CompleteTaskRequest  false  "Subtask selector"
// @Success      200     {object}  TaskResponse
// @Failure      400     {object}  ErrorResponse
// @Failure      404     {object}  ErrorResponse
// @Router       /tasks/complete/{taskId} [put]
func (h *TaskHandler) Complete(c *gin.Context) {
	username, ok := caller(c)
	if !ok {
		return
	}

	var req CompleteTaskRequest
	if c.Request.Body != nil && c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
			badRequest(c, "Invalid request: "+err.Error())
			return
		}
	}
	h.complete(c, username, service.CompleteInput{SubtaskTitle: req.SubtaskTitle, SubtaskID: req.SubtaskID})
}

// CompleteSubtask godoc
// @Summary      Complete a subtask by id
// @Tags         Tasks
// @Produce      json
// @Security     BearerAuth
// @Param        taskId     path      string  true  "Task ID"
// @Param        subtaskId  path      string  true  "Subtask ID"
// @Success      200        {object}  TaskResponse
// @Failure      400        {object}  ErrorResponse
// @Failure      404        {object}  ErrorResponse
// @Router       /tasks/complete/{taskId}/subtask/{subtaskId} [put]
func (h *TaskHandler) CompleteSubtask(c *gin.Context) {
	username, ok := caller(c)
	if !ok {
		return
	}
	h.complete(c, username, service.CompleteInput{SubtaskID: c.Param("subtaskId")})
}

func (h *TaskHandler) complete(c *gin.Context, username string, in service.CompleteInput) {
	task, err := h.tasks.MarkComplete(c.Request.Context(), username, c.Param("taskId"), in)
	if err != nil {
		respondError(c, "complete task", err)
		return
	}
	c.JSON(http.StatusOK, newTaskResponse(task))
}
