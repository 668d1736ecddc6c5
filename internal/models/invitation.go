package models

import (
	"errors"
	"time"
)

// InvitationState is a stage in the invitation lifecycle
type InvitationState string

const (
	InvitationPending   InvitationState = "pending"
	InvitationAccepted  InvitationState = "accepted"
	InvitationExpired   InvitationState = "expired"
	InvitationCancelled InvitationState = "cancelled"
)

var (
	ErrInvitationNotFound   = errors.New("invitation not found")
	ErrInvitationNotPending = errors.New("invitation is no longer pending")
)

// Pending is the only state with outgoing edges; nothing returns to it.
var invitationTransitions = map[InvitationState][]InvitationState{
	InvitationPending: {InvitationAccepted, InvitationExpired, InvitationCancelled},
}

// CanTransition reports whether an invitation may move from one state to another
func CanTransition(from, to InvitationState) bool {
	for _, next := range invitationTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// Invitation is a time-boxed offer for an email address to join a family.
// Only pending invitations are stored; accepting or cancelling removes them.
type Invitation struct {
	Email     string    `json:"email"`
	Role      Role      `json:"role"`
	Token     string    `json:"-"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// NewInvitation creates a pending invitation expiring ttl after now
func NewInvitation(email string, role Role, token string, now time.Time, ttl time.Duration) Invitation {
	return Invitation{
		Email:     email,
		Role:      role,
		Token:     token,
		ExpiresAt: now.Add(ttl),
	}
}

// IsExpired reports whether the invitation has passed its expiry time
func (i Invitation) IsExpired(now time.Time) bool {
	return !i.ExpiresAt.After(now)
}

// State reports the state of a stored invitation at time now
func (i Invitation) State(now time.Time) InvitationState {
	if i.IsExpired(now) {
		return InvitationExpired
	}
	return InvitationPending
}

func (i Invitation) transition(to InvitationState, now time.Time) error {
	if !CanTransition(i.State(now), to) {
		return ErrInvitationNotPending
	}
	return nil
}
