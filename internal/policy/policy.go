// Package policy centralises the role and ownership checks guarding family
// and task operations. Denials are reported as authentication errors (401).
package policy

import (
	"familytasks/internal/apperrors"
	"familytasks/internal/models"
)

// FamilyCapability is an action a user may take on a family
type FamilyCapability int

const (
	ViewFamily FamilyCapability = iota
	InviteMember
	RemoveMember
	CancelInvitation
)

var familyDenials = map[FamilyCapability]string{
	ViewFamily:       "Not authorized to access this family",
	InviteMember:     "Only parents can invite new members",
	RemoveMember:     "Only parents can remove family members",
	CancelInvitation: "Only parents can cancel invitations",
}

// FamilyAllows reports whether userID holds capability on family
func FamilyAllows(family *models.Family, userID string, capability FamilyCapability) bool {
	if family == nil || userID == "" {
		return false
	}
	switch capability {
	case ViewFamily:
		return family.IsMember(userID)
	case InviteMember, RemoveMember, CancelInvitation:
		return family.HasRole(userID, models.RoleParent)
	}
	return false
}

// FamilyCan returns nil if userID holds capability on family, or the
// authentication error describing the denial
func FamilyCan(family *models.Family, userID string, capability FamilyCapability) error {
	if FamilyAllows(family, userID, capability) {
		return nil
	}
	return apperrors.Authentication(familyDenials[capability])
}

// TaskCapability is an action a user may take on a task
type TaskCapability int

const (
	ViewTask TaskCapability = iota
	EditTask
	DeleteTask
)

var taskDenials = map[TaskCapability]string{
	ViewTask:   "Not authorized to view this task",
	EditTask:   "Not authorized to update this task",
	DeleteTask: "Not authorized to delete this task",
}

// TaskAllows reports whether userID holds capability on task. Creators and
// assignees may view and edit; only the creator may delete.
func TaskAllows(task *models.Task, userID string, capability TaskCapability) bool {
	if task == nil || userID == "" {
		return false
	}
	switch capability {
	case ViewTask, EditTask:
		return task.IsCreator(userID) || task.IsAssignee(userID)
	case DeleteTask:
		return task.IsCreator(userID)
	}
	return false
}

// TaskCan returns nil if userID holds capability on task, or the
// authentication error describing the denial
func TaskCan(task *models.Task, userID string, capability TaskCapability) error {
	if TaskAllows(task, userID, capability) {
		return nil
	}
	return apperrors.Authentication(taskDenials[capability])
}
