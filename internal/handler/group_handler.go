package handler

import (
	"context"
	"net/http"

	"taskify/internal/model"
	"taskify/internal/service"

	"github.com/gin-gonic/gin"
)

// GroupService is implemented by *service.GroupService.
type GroupService interface {
	CreateGroup(ctx context.Context, creator string, in service.CreateGroupInput) (*model.Group, error)
	ListGroupsForUser(ctx context.Context, username string) ([]model.Group, error)
	GetGroup(ctx context.Context, caller, groupID string) (*model.Group, error)
	UpdateGroup(ctx context.Context, caller, groupID string, in service.UpdateGroupInput) (*model.Group, error)
	DeleteGroup(ctx context.Context, caller, groupID string) error
	AddMember(ctx context.Context, caller, groupID, username string) (*model.Group, error)
	CreateGroupTask(ctx context.Context, caller, groupID string, in service.CreateGroupTaskInput) (*model.GroupTask, error)
	ListGroupTasks(ctx context.Context, caller, groupID string) ([]model.GroupTask, error)
	MarkGroupTaskComplete(ctx context.Context, caller, groupID, taskID string) (*model.GroupTask, error)
}

type GroupHandler struct {
	svc GroupService
}

func NewGroupHandler(svc GroupService) *GroupHandler {
	return &GroupHandler{svc: svc}
}

// Create godoc
// @Summary      Create a group
// @Description  The caller becomes the group's admin.
// @Tags         Groups
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        body  body      CreateGroupRequest  true  "Group"
// @Success      201   {object}  GroupResponse
// @Failure      400   {object}  ErrorResponse
// @Failure      409   {object}  ErrorResponse
// @Router       /groups [post]
func (h *GroupHandler) Create(c *gin.Context) {
	username, ok := caller(c)
	if !ok {
		return
	}

	var req CreateGroupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request: "+err.Error())
		return
	}

	group, err := h.svc.CreateGroup(c.Request.Context(), username, service.CreateGroupInput{
		Name:        req.Name,
		Description: req.Description,
		Members:     req.Members,
	})
	if err != nil {
		respondError(c, "create group", err)
		return
	}
	c.JSON(http.StatusCreated, newGroupResponse(group))
}

// GetAll godoc
// @Summary      List the caller's groups
// @Tags         Groups
// @Produce      json
// @Security     BearerAuth
// @Success      200  {array}  GroupResponse
// @Router       /groups [get]
func (h *GroupHandler) GetAll(c *gin.Context) {
	username, ok := caller(c)
	if !ok {
		return
	}

	groups, err := h.svc.ListGroupsForUser(c.Request.Context(), username)
	if err != nil {
		respondError(c, "list groups", err)
		return
	}
	resp := make([]GroupResponse, len(groups))
	for i := range groups {
		resp[i] = newGroupResponse(&groups[i])
	}
	c.JSON(http.StatusOK, resp)
}

// GetByID godoc
// @Summary      Get a group
// @Tags         Groups
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Group ID"
// @Success      200  {object}  GroupResponse
// @Failure      403  {object}  ErrorResponse
// @Failure      404  {object}  ErrorResponse
// @Router       /groups/{id} [get]
func (h *GroupHandler) GetByID(c *gin.Context) {
	username, ok := caller(c)
	if !ok {
		return
	}

	group, err := h.svc.GetGroup(c.Request.Context(), username, c.Param("id"))
	if err != nil {
		respondError(c, "get group", err)
		return
	}
	c.JSON(http.StatusOK, newGroupResponse(group))
}

// Update godoc
// @Summary      Update a group
// @Description  Admins only. A members list replaces every non-admin member.
// @Tags         Groups
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id    path      string              true  "Group ID"
// @Param        body  body      UpdateGroupRequest  true  "Fields to change"
// @Success      200   {object}  GroupResponse
// @Failure      403   {object}  ErrorResponse
// @Failure      404   {object}  ErrorResponse
// @Router       /groups/{id} [put]
func (h *GroupHandler) Update(c *gin.Context) {
	username, ok := caller(c)
	if !ok {
		return
	}

	var req UpdateGroupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request: "+err.Error())
		return
	}

	group, err := h.svc.UpdateGroup(c.Request.Context(), username, c.Param("id"), service.UpdateGroupInput{
		Name:        req.Name,
		Description: req.Description,
		Members:     req.Members,
	})
	if err != nil {
		respondError(c, "update group", err)
		return
	}
	c.JSON(http.StatusOK, newGroupResponse(group))
}

// Delete godoc
// @Summary      Delete a group
// @Description  Admins only. The group is deactivated, not removed.
// @Tags         Groups
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Group ID"
// @Success      200  {object}  MessageResponse
// @Failure      403  {object}  ErrorResponse
// @Failure      404  {object}  ErrorResponse
// @Router       /groups/{id} [delete]
func (h *GroupHandler) Delete(c *gin.Context) {
	username, ok := caller(c)
	if !ok {
		return
	}

	if err := h.svc.DeleteGroup(c.Request.Context(), username, c.Param("id")); err != nil {
		respondError(c, "delete group", err)
		return
	}
	c.JSON(http.StatusOK, MessageResponse{Message: "Group deleted successfully"})
}

// AddMember godoc
// @Summary      Add a member
// @Tags         Groups
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id    path      string            true  "Group ID"
// @Param        body  body      AddMemberRequest  true  "Member"
// @Success      200   {object}  GroupResponse
// @Failure      400   {object}  ErrorResponse
// @Failure      403   {object}  ErrorResponse
// @Router       /groups/{id}/members [post]
func (h *GroupHandler) AddMember(c *gin.Context) {
	username, ok := caller(c)
	if !ok {
		return
	}

	var req AddMemberRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "username is required")
		return
	}

	group, err := h.svc.AddMember(c.Request.Context(), username, c.Param("id"), req.Username)
	if err != nil {
		respondError(c, "add member", err)
		return
	}
	c.JSON(http.StatusOK, newGroupResponse(group))
}

// CreateTask godoc
// @Summary      Create a group task
// @Tags         Groups
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id    path      string                  true  "Group ID"
// @Param        body  body      CreateGroupTaskRequest  true  "Task"
// @Success      201   {object}  GroupTaskResponse
// @Failure      400   {object}  ErrorResponse
// @Failure      403   {object}  ErrorResponse
// @Router       /groups/{id}/tasks [post]
func (h *GroupHandler) CreateTask(c *gin.Context) {
	username, ok := caller(c)
	if !ok {
		return
	}

	var req CreateGroupTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request: "+err.Error())
		return
	}

	task, err := h.svc.CreateGroupTask(c.Request.Context(), username, c.Param("id"), req.input())
	if err != nil {
		respondError(c, "create group task", err)
		return
	}
	c.JSON(http.StatusCreated, newGroupTaskResponse(task))
}

// GetTasks godoc
// @Summary      List a group's tasks
// @Tags         Groups
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Group ID"
// @Success      200  {array}   GroupTaskResponse
// @Failure      403  {object}  ErrorResponse
// @Router       /groups/{id}/tasks [get]
func (h *GroupHandler) GetTasks(c *gin.Context) {
	username, ok := caller(c)
	if !ok {
		return
	}

	tasks, err := h.svc.ListGroupTasks(c.Request.Context(), username, c.Param("id"))
	if err != nil {
		respondError(c, "list group tasks", err)
		return
	}
	c.JSON(http.StatusOK, newGroupTaskResponses(tasks))
}

// CompleteTask godoc
// @Summary      Complete a group task
// @Tags         Groups
// @Produce      json
// @Security     BearerAuth
// @Param        id      path      string  true  "Group ID"
// @Param        taskId  path      string  true  "Task ID"
// @Success      200     {object}  GroupTaskResponse
// @Failure      400     {object}  ErrorResponse
// @Failure      403     {object}  ErrorResponse
// @Router       /groups/{id}/tasks/{taskId}/complete [put]
func (h *GroupHandler) CompleteTask(c *gin.Context) {
	username, ok := caller(c)
	if !ok {
		return
	}

	task, err := h.svc.MarkGroupTaskComplete(c.Request.Context(), username, c.Param("id"), c.Param("taskId"))
	if err != nil {
		respondError(c, "complete group task", err)
		return
	}
	c.JSON(http.StatusOK, newGroupTaskResponse(task))
}
