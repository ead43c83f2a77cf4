package model

import "time"

const (
	EventMemberAdded   = "group.member.added"
	EventTaskAssigned  = "group.task.assigned"
	EventTaskCompleted = "group.task.completed"
)

// Event is a group notification handed to the push delivery service.
// Username is the recipient, Actor the user whose action raised the event.
type Event struct {
	Type      string    `json:"type"`
	GroupID   string    `json:"groupId"`
	GroupName string    `json:"groupName"`
	Username  string    `json:"username"`
	Actor     string    `json:"actor"`
	TaskID    string    `json:"taskId,omitempty"`
	TaskTitle string    `json:"taskTitle,omitempty"`
	At        time.Time `json:"at"`
}
