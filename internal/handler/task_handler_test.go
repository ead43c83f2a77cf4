package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"taskify/internal/handler"
	"taskify/internal/middleware"
	"taskify/internal/model"
	"taskify/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockTaskService struct {
	mock.Mock
}

func (m *MockTaskService) CreateTask(ctx context.Context, caller string, in service.CreateTaskInput) (*model.Task, error) {
	args := m.Called(ctx, caller, in)
	task, _ := args.Get(0).(*model.Task)
	return task, args.Error(1)
}

func (m *MockTaskService) UpdateTask(ctx context.Context, caller, taskID string, in service.UpdateTaskInput) (*model.Task, error) {
	args := m.Called(ctx, caller, taskID, in)
	task, _ := args.Get(0).(*model.Task)
	return task, args.Error(1)
}

func (m *MockTaskService) DeleteTask(ctx context.Context, caller, taskID string) error {
	args := m.Called(ctx, caller, taskID)
	return args.Error(0)
}

func (m *MockTaskService) MarkComplete(ctx context.Context, caller, taskID string, in service.CompleteInput) (*model.Task, error) {
	args := m.Called(ctx, caller, taskID, in)
	task, _ := args.Get(0).(*model.Task)
	return task, args.Error(1)
}

type MockTaskViewer struct {
	mock.Mock
}

func (m *MockTaskViewer) UnifiedView(ctx context.Context, caller string) ([]model.UnifiedTask, error) {
	args := m.Called(ctx, caller)
	view, _ := args.Get(0).([]model.UnifiedTask)
	return view, args.Error(1)
}

// asUser stands in for the JWT middleware.
func asUser(username string) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(middleware.UsernameKey, username)
		c.Next()
	}
}

func setupTaskTest() (*gin.Engine, *MockTaskService, *MockTaskViewer) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	tasks := new(MockTaskService)
	view := new(MockTaskViewer)
	h := handler.NewTaskHandler(tasks, view)

	authorized := r.Group("/", asUser("alice"))
	authorized.GET("/tasks", h.GetAll)
	authorized.POST("/tasks", h.Create)
	authorized.PUT("/tasks/:id", h.Update)
	authorized.DELETE("/tasks/:id", h.Delete)
	authorized.PUT("/tasks/complete/:taskId", h.Complete)
	authorized.PUT("/tasks/complete/:taskId/subtask/:subtaskId", h.CompleteSubtask)
	return r, tasks, view
}

func doJSON(router http.Handler, method, path, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req, _ = http.NewRequest(method, path, nil)
	} else {
		req, _ = http.NewRequest(method, path, bytes.NewBufferString(body))
		req.Header.Set("Content-Type", "application/json")
	}
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	return resp
}

func sampleTask() *model.Task {
	return &model.Task{
		ID:            uuid.New(),
		OwnerUsername: "alice",
		Title:         "Buy milk",
		Priority:      model.PriorityMedium,
		GroupRef:      model.PersonalGroup,
	}
}

func TestCreateTask_DefaultsOnTheWire(t *testing.T) {
	router, tasks, _ := setupTaskTest()
	task := sampleTask()
	tasks.On("CreateTask", mock.Anything, "alice", service.CreateTaskInput{Title: "Buy milk"}).Return(task, nil)

	resp := doJSON(router, "POST", "/tasks", `{"title":"Buy milk"}`)

	assert.Equal(t, http.StatusCreated, resp.Code)
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &body))
	assert.Equal(t, "personal", body["group"])
	assert.Equal(t, "medium", body["priority"])
	assert.Equal(t, []interface{}{}, body["subjects"])
	assert.Equal(t, []interface{}{}, body["subtasks"])
	assert.Nil(t, body["dueDate"])
	tasks.AssertExpectations(t)
}

func TestCreateTask_DateOnlyDueDateIsEndOfDay(t *testing.T) {
	router, tasks, _ := setupTaskTest()
	want := time.Date(2030, 1, 15, 23, 59, 59, 0, time.UTC)
	tasks.On("CreateTask", mock.Anything, "alice", mock.MatchedBy(func(in service.CreateTaskInput) bool {
		return in.DueDate != nil && in.DueDate.Equal(want)
	})).Return(sampleTask(), nil)

	resp := doJSON(router, "POST", "/tasks", `{"title":"Buy milk","dueDate":"2030-01-15"}`)

	assert.Equal(t, http.StatusCreated, resp.Code)
	tasks.AssertExpectations(t)
}

func TestCreateTask_BadDueDate(t *testing.T) {
	router, tasks, _ := setupTaskTest()

	resp := doJSON(router, "POST", "/tasks", `{"title":"Buy milk","dueDate":"next tuesday"}`)

	assert.Equal(t, http.StatusBadRequest, resp.Code)
	tasks.AssertNotCalled(t, "CreateTask", mock.Anything, mock.Anything, mock.Anything)
}

func TestCreateTask_PastDueDate(t *testing.T) {
	router, tasks, _ := setupTaskTest()
	tasks.On("CreateTask", mock.Anything, "alice", mock.Anything).Return(nil, service.PastDueDateError())

	resp := doJSON(router, "POST", "/tasks", `{"title":"Buy milk","dueDate":"2001-01-01T00:00:00Z"}`)

	assert.Equal(t, http.StatusBadRequest, resp.Code)
	assert.JSONEq(t, `{"error":"due date cannot be in the past","kind":"validation_error","code":"past_due_date"}`, resp.Body.String())
}

func TestUpdateTask_NotFound(t *testing.T) {
	router, tasks, _ := setupTaskTest()
	tasks.On("UpdateTask", mock.Anything, "alice", "abc", mock.Anything).Return(nil, service.NotFoundError("task not found"))

	resp := doJSON(router, "PUT", "/tasks/abc", `{"title":"x"}`)

	assert.Equal(t, http.StatusNotFound, resp.Code)
	assert.Contains(t, resp.Body.String(), `"kind":"not_found"`)
}

func TestUpdateTask_NullDueDateClears(t *testing.T) {
	router, tasks, _ := setupTaskTest()
	tasks.On("UpdateTask", mock.Anything, "alice", "abc", mock.MatchedBy(func(in service.UpdateTaskInput) bool {
		return in.SetDueDate && in.DueDate == nil && in.Title == nil && in.Subtasks == nil
	})).Return(sampleTask(), nil)

	resp := doJSON(router, "PUT", "/tasks/abc", `{"dueDate":null}`)

	assert.Equal(t, http.StatusOK, resp.Code)
	tasks.AssertExpectations(t)
}

func TestDeleteTask(t *testing.T) {
	router, tasks, _ := setupTaskTest()
	tasks.On("DeleteTask", mock.Anything, "alice", "abc").Return(nil)

	resp := doJSON(router, "DELETE", "/tasks/abc", "")

	assert.Equal(t, http.StatusOK, resp.Code)
	assert.Contains(t, resp.Body.String(), "Task deleted")
}

func TestCompleteTask_BodyIsOptional(t *testing.T) {
	router, tasks, _ := setupTaskTest()
	task := sampleTask()
	task.Completed = true
	tasks.On("MarkComplete", mock.Anything, "alice", task.ID.String(), service.CompleteInput{}).Return(task, nil)

	resp := doJSON(router, "PUT", "/tasks/complete/"+task.ID.String(), "")

	assert.Equal(t, http.StatusOK, resp.Code)
	assert.Contains(t, resp.Body.String(), `"completed":true`)
	tasks.AssertExpectations(t)
}

func TestCompleteTask_SubtaskSelectors(t *testing.T) {
	router, tasks, _ := setupTaskTest()
	tasks.On("MarkComplete", mock.Anything, "alice", "t1", service.CompleteInput{SubtaskTitle: "chop"}).Return(sampleTask(), nil)
	tasks.On("MarkComplete", mock.Anything, "alice", "t1", service.CompleteInput{SubtaskID: "s1"}).Return(sampleTask(), nil)

	resp := doJSON(router, "PUT", "/tasks/complete/t1", `{"subtaskTitle":"chop"}`)
	assert.Equal(t, http.StatusOK, resp.Code)

	resp = doJSON(router, "PUT", "/tasks/complete/t1/subtask/s1", "")
	assert.Equal(t, http.StatusOK, resp.Code)
	tasks.AssertExpectations(t)
}

func TestCompleteTask_AlreadyCompleted(t *testing.T) {
	router, tasks, _ := setupTaskTest()
	tasks.On("MarkComplete", mock.Anything, "alice", "t1", mock.Anything).Return(nil, service.AlreadyCompletedError("task already completed"))

	resp := doJSON(router, "PUT", "/tasks/complete/t1", "")

	assert.Equal(t, http.StatusBadRequest, resp.Code)
	assert.Contains(t, resp.Body.String(), `"kind":"already_completed"`)
}

func TestGetAll_UnifiedView(t *testing.T) {
	router, _, view := setupTaskTest()
	due := time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC)
	groupID := uuid.New()
	view.On("UnifiedView", mock.Anything, "alice").Return([]model.UnifiedTask{
		{Source: model.SourceGroup, Group: &model.AnnotatedGroupTask{
			GroupTask: model.GroupTask{ID: uuid.New(), Title: "notes", DueDate: &due, AssignedTo: "alice", CreatedByUsername: "bob", Priority: model.PriorityHigh},
			GroupName: "Study",
			GroupID:   groupID.String(),
		}},
		{Source: model.SourcePersonal, Personal: sampleTask()},
	}, nil)

	resp := doJSON(router, "GET", "/tasks", "")

	assert.Equal(t, http.StatusOK, resp.Code)
	var body []handler.UnifiedTaskResponse
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &body))
	require.Len(t, body, 2)
	assert.Equal(t, "group", body[0].Type)
	assert.Equal(t, "Study", body[0].GroupName)
	assert.Equal(t, groupID.String(), body[0].GroupID)
	assert.Equal(t, "bob", body[0].CreatedBy)
	assert.Equal(t, "personal", body[1].Type)
	assert.Equal(t, "personal", body[1].Group)
}

func TestInternalErrorsAreNotLeaked(t *testing.T) {
	router, _, view := setupTaskTest()
	view.On("UnifiedView", mock.Anything, "alice").Return(nil, errors.New("pq: password authentication failed"))

	resp := doJSON(router, "GET", "/tasks", "")

	assert.Equal(t, http.StatusInternalServerError, resp.Code)
	assert.NotContains(t, resp.Body.String(), "password")
	assert.Contains(t, resp.Body.String(), `"kind":"internal"`)
}

func TestTaskRoutes_RequireCaller(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	h := handler.NewTaskHandler(new(MockTaskService), new(MockTaskViewer))
	r.GET("/tasks", h.GetAll)

	resp := doJSON(r, "GET", "/tasks", "")
	assert.Equal(t, http.StatusUnauthorized, resp.Code)
}
