package handler

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"

	"taskify/internal/model"
	"taskify/internal/service"
)

const dateOnly = "2006-01-02"

// DueDate decodes RFC3339 timestamps or plain dates. A plain date means the end of
// that day in UTC. Set records that the field was present, even as null.
type DueDate struct {
	Set   bool
	Value *time.Time
}

func (d *DueDate) UnmarshalJSON(b []byte) error {
	d.Set = true
	if bytes.Equal(b, []byte("null")) {
		d.Value = nil
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return fmt.Errorf("dueDate must be a string")
	}
	if s == "" {
		d.Value = nil
		return nil
	}
	t, err := ParseDueDate(s)
	if err != nil {
		return err
	}
	d.Value = &t
	return nil
}

// ParseDueDate accepts RFC3339 (with or without fractional seconds) or YYYY-MM-DD.
func ParseDueDate(s string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t.UTC(), nil
	}
	if t, err := time.Parse(dateOnly, s); err == nil {
		return t.Add(24*time.Hour - time.Second).UTC(), nil
	}
	return time.Time{}, fmt.Errorf("dueDate must be RFC3339 or YYYY-MM-DD")
}

type SubtaskRequest struct {
	ID          string   `json:"id"`
	Title       string   `json:"title"`
	Description string   `json:"description"`
	DueDate     DueDate  `json:"dueDate" swaggertype:"string"`
	Priority    string   `json:"priority"`
	Subjects    []string `json:"subjects"`
}

type CreateTaskRequest struct {
	Title       string           `json:"title"`
	Description string           `json:"description"`
	DueDate     DueDate          `json:"dueDate" swaggertype:"string"`
	Priority    string           `json:"priority"`
	Subjects    []string         `json:"subjects"`
	Group       string           `json:"group"`
	Subtasks    []SubtaskRequest `json:"subtasks"`
}

type UpdateTaskRequest struct {
	Title       *string          `json:"title"`
	Description *string          `json:"description"`
	DueDate     DueDate          `json:"dueDate" swaggertype:"string"`
	Priority    *string          `json:"priority"`
	Subjects    []string         `json:"subjects"`
	Group       *string          `json:"group"`
	Subtasks    []SubtaskRequest `json:"subtasks"`
}

type CompleteTaskRequest struct {
	SubtaskTitle string `json:"subtaskTitle"`
	SubtaskID    string `json:"subtaskId"`
}

type CreateGroupRequest struct {
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Members     []string `json:"members"`
}

type UpdateGroupRequest struct {
	Name        *string  `json:"name"`
	Description *string  `json:"description"`
	Members     []string `json:"members"`
}

type AddMemberRequest struct {
	Username string `json:"username" binding:"required"`
}

type CreateGroupTaskRequest struct {
	Title       string  `json:"title"`
	Description string  `json:"description"`
	DueDate     DueDate `json:"dueDate" swaggertype:"string"`
	Priority    string  `json:"priority"`
	AssignedTo  string  `json:"assignedTo"`
}

func (r SubtaskRequest) input() service.SubtaskInput {
	return service.SubtaskInput{
		ID:          r.ID,
		Title:       r.Title,
		Description: r.Description,
		DueDate:     r.DueDate.Value,
		Priority:    model.Priority(r.Priority),
		Subjects:    r.Subjects,
	}
}

func subtaskInputs(in []SubtaskRequest) []service.SubtaskInput {
	if in == nil {
		return nil
	}
	out := make([]service.SubtaskInput, len(in))
	for i, r := range in {
		out[i] = r.input()
	}
	return out
}

func (r CreateTaskRequest) input() service.CreateTaskInput {
	return service.CreateTaskInput{
		Title:       r.Title,
		Description: r.Description,
		DueDate:     r.DueDate.Value,
		Priority:    model.Priority(r.Priority),
		Subjects:    r.Subjects,
		Group:       r.Group,
		Subtasks:    subtaskInputs(r.Subtasks),
	}
}

func (r UpdateTaskRequest) input() service.UpdateTaskInput {
	in := service.UpdateTaskInput{
		Title:       r.Title,
		Description: r.Description,
		SetDueDate:  r.DueDate.Set,
		DueDate:     r.DueDate.Value,
		Subjects:    r.Subjects,
		Group:       r.Group,
		Subtasks:    subtaskInputs(r.Subtasks),
	}
	if r.Priority != nil {
		p := model.Priority(*r.Priority)
		in.Priority = &p
	}
	return in
}

func (r CreateGroupTaskRequest) input() service.CreateGroupTaskInput {
	return service.CreateGroupTaskInput{
		Title:       r.Title,
		Description: r.Description,
		DueDate:     r.DueDate.Value,
		Priority:    model.Priority(r.Priority),
		AssignedTo:  r.AssignedTo,
	}
}

type SubtaskResponse struct {
	ID          string     `json:"id"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Completed   bool       `json:"completed"`
	DueDate     *time.Time `json:"dueDate"`
	Priority    string     `json:"priority"`
	Subjects    []string   `json:"subjects"`
}

type TaskResponse struct {
	ID          string            `json:"id"`
	Owner       string            `json:"owner"`
	Title       string            `json:"title"`
	Description string            `json:"description"`
	Completed   bool              `json:"completed"`
	DueDate     *time.Time        `json:"dueDate"`
	Priority    string            `json:"priority"`
	Subjects    []string          `json:"subjects"`
	Group       string            `json:"group"`
	Subtasks    []SubtaskResponse `json:"subtasks"`
	CreatedAt   time.Time         `json:"createdAt"`
	UpdatedAt   time.Time         `json:"updatedAt"`
}

type MemberResponse struct {
	Username string    `json:"username"`
	Role     string    `json:"role"`
	JoinedAt time.Time `json:"joinedAt"`
}

type GroupTaskResponse struct {
	ID          string     `json:"id"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Completed   bool       `json:"completed"`
	DueDate     *time.Time `json:"dueDate"`
	Priority    string     `json:"priority"`
	AssignedTo  string     `json:"assignedTo"`
	CreatedBy   string     `json:"createdBy"`
	CreatedAt   time.Time  `json:"createdAt"`
}

type GroupResponse struct {
	ID          string              `json:"id"`
	Name        string              `json:"name"`
	Description string              `json:"description"`
	CreatedBy   string              `json:"createdBy"`
	Members     []MemberResponse    `json:"members"`
	Tasks       []GroupTaskResponse `json:"tasks"`
	IsActive    bool                `json:"isActive"`
	CreatedAt   time.Time           `json:"createdAt"`
	UpdatedAt   time.Time           `json:"updatedAt"`
}

// UnifiedTaskResponse is one entry of GET /tasks. Type is "personal" or "group";
// group entries carry groupName and groupId.
type UnifiedTaskResponse struct {
	Type        string            `json:"type"`
	ID          string            `json:"id"`
	Title       string            `json:"title"`
	Description string            `json:"description"`
	Completed   bool              `json:"completed"`
	DueDate     *time.Time        `json:"dueDate"`
	Priority    string            `json:"priority"`
	Subjects    []string          `json:"subjects,omitempty"`
	Subtasks    []SubtaskResponse `json:"subtasks,omitempty"`
	Group       string            `json:"group,omitempty"`
	AssignedTo  string            `json:"assignedTo,omitempty"`
	CreatedBy   string            `json:"createdBy,omitempty"`
	GroupName   string            `json:"groupName,omitempty"`
	GroupID     string            `json:"groupId,omitempty"`
	CreatedAt   time.Time         `json:"createdAt"`
}

func nonNil(in []string) []string {
	if in == nil {
		return []string{}
	}
	return in
}

func newSubtaskResponse(s model.Subtask) SubtaskResponse {
	return SubtaskResponse{
		ID:          s.ID.String(),
		Title:       s.Title,
		Description: s.Description,
		Completed:   s.Completed,
		DueDate:     s.DueDate,
		Priority:    string(s.Priority),
		Subjects:    nonNil(s.Subjects),
	}
}

func newTaskResponse(t *model.Task) TaskResponse {
	subtasks := make([]SubtaskResponse, len(t.Subtasks))
	for i, s := range t.Subtasks {
		subtasks[i] = newSubtaskResponse(s)
	}
	return TaskResponse{
		ID:          t.ID.String(),
		Owner:       t.OwnerUsername,
		Title:       t.Title,
		Description: t.Description,
		Completed:   t.Completed,
		DueDate:     t.DueDate,
		Priority:    string(t.Priority),
		Subjects:    nonNil(t.Subjects),
		Group:       t.GroupRef,
		Subtasks:    subtasks,
		CreatedAt:   t.CreatedAt,
		UpdatedAt:   t.UpdatedAt,
	}
}

func newGroupTaskResponse(t *model.GroupTask) GroupTaskResponse {
	return GroupTaskResponse{
		ID:          t.ID.String(),
		Title:       t.Title,
		Description: t.Description,
		Completed:   t.Completed,
		DueDate:     t.DueDate,
		Priority:    string(t.Priority),
		AssignedTo:  t.AssignedTo,
		CreatedBy:   t.CreatedByUsername,
		CreatedAt:   t.CreatedAt,
	}
}

func newGroupTaskResponses(tasks []model.GroupTask) []GroupTaskResponse {
	out := make([]GroupTaskResponse, len(tasks))
	for i := range tasks {
		out[i] = newGroupTaskResponse(&tasks[i])
	}
	return out
}

func newGroupResponse(g *model.Group) GroupResponse {
	members := make([]MemberResponse, len(g.Members))
	for i, m := range g.Members {
		members[i] = MemberResponse{Username: m.Username, Role: string(m.Role), JoinedAt: m.JoinedAt}
	}
	return GroupResponse{
		ID:          g.ID.String(),
		Name:        g.Name,
		Description: g.Description,
		CreatedBy:   g.CreatorUsername,
		Members:     members,
		Tasks:       newGroupTaskResponses(g.Tasks),
		IsActive:    g.IsActive,
		CreatedAt:   g.CreatedAt,
		UpdatedAt:   g.UpdatedAt,
	}
}

func newUnifiedTaskResponse(u model.UnifiedTask) UnifiedTaskResponse {
	if u.Personal != nil {
		t := newTaskResponse(u.Personal)
		return UnifiedTaskResponse{
			Type:        model.SourcePersonal,
			ID:          t.ID,
			Title:       t.Title,
			Description: t.Description,
			Completed:   t.Completed,
			DueDate:     t.DueDate,
			Priority:    t.Priority,
			Subjects:    t.Subjects,
			Subtasks:    t.Subtasks,
			Group:       t.Group,
			CreatedAt:   t.CreatedAt,
		}
	}
	g := u.Group
	return UnifiedTaskResponse{
		Type:        model.SourceGroup,
		ID:          g.ID.String(),
		Title:       g.Title,
		Description: g.Description,
		Completed:   g.Completed,
		DueDate:     g.DueDate,
		Priority:    string(g.Priority),
		AssignedTo:  g.AssignedTo,
		CreatedBy:   g.CreatedByUsername,
		GroupName:   g.GroupName,
		GroupID:     g.GroupID,
		CreatedAt:   g.CreatedAt,
	}
}
