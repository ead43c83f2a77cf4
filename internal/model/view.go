package model

import "time"

const (
	SourcePersonal = "personal"
	SourceGroup    = "group"
)

// AnnotatedGroupTask is a group task seen from outside its group.
type AnnotatedGroupTask struct {
	GroupTask
	GroupName string
	GroupID   string
}

// UnifiedTask is one entry of a user's merged task view: exactly one of
// Personal and Group is set, matching Source.
type UnifiedTask struct {
	Source   string
	Personal *Task               `json:",omitempty"`
	Group    *AnnotatedGroupTask `json:",omitempty"`
}

func (u UnifiedTask) DueDate() *time.Time {
	if u.Personal != nil {
		return u.Personal.DueDate
	}
	if u.Group != nil {
		return u.Group.DueDate
	}
	return nil
}
