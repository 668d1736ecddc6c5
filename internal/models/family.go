package models

import "time"

// FamilyMember is a user's membership in a family
type FamilyMember struct {
	UserID   string    `json:"user"`
	Role     Role      `json:"role"`
	JoinedAt time.Time `json:"joinedAt"`
}

// Family is a named group of users sharing tasks
type Family struct {
	ID                 string         `json:"id"`
	Name               string         `json:"name"`
	Members            []FamilyMember `json:"members"`
	PendingInvitations []Invitation   `json:"pendingInvitations"`
	CreatedBy          string         `json:"createdBy"`
	CreatedAt          time.Time      `json:"createdAt"`
	UpdatedAt          time.Time      `json:"updatedAt"`
}

// NewFamily creates a family whose only member is its creator, as parent
func NewFamily(name, creatorID string, now time.Time) *Family {
	return &Family{
		Name: name,
		Members: []FamilyMember{
			{UserID: creatorID, Role: RoleParent, JoinedAt: now},
		},
		PendingInvitations: []Invitation{},
		CreatedBy:          creatorID,
		CreatedAt:          now,
		UpdatedAt:          now,
	}
}

// Member returns the membership of userID
func (f *Family) Member(userID string) (FamilyMember, bool) {
	for _, m := range f.Members {
		if m.UserID == userID {
			return m, true
		}
	}
	return FamilyMember{}, false
}

// IsMember reports whether userID belongs to the family
func (f *Family) IsMember(userID string) bool {
	_, ok := f.Member(userID)
	return ok
}

// HasRole reports whether userID is a member holding role
func (f *Family) HasRole(userID string, role Role) bool {
	m, ok := f.Member(userID)
	return ok && m.Role == role
}

// ParentCount returns the number of members with the parent role
func (f *Family) ParentCount() int {
	n := 0
	for _, m := range f.Members {
		if m.Role == RoleParent {
			n++
		}
	}
	return n
}

// IsLastParent reports whether userID is the family's only parent
func (f *Family) IsLastParent(userID string) bool {
	return f.ParentCount() == 1 && f.HasRole(userID, RoleParent)
}

// AddMember appends a membership. It returns false if userID is already a member.
func (f *Family) AddMember(userID string, role Role, now time.Time) bool {
	if f.IsMember(userID) {
		return false
	}
	f.Members = append(f.Members, FamilyMember{UserID: userID, Role: role, JoinedAt: now})
	return true
}

// RemoveMember drops userID from the member list. It returns false if userID
// was not a member.
func (f *Family) RemoveMember(userID string) bool {
	kept := f.Members[:0]
	removed := false
	for _, m := range f.Members {
		if m.UserID == userID {
			removed = true
			continue
		}
		kept = append(kept, m)
	}
	f.Members = kept
	return removed
}

// AddInvitation stores a new pending invitation
func (f *Family) AddInvitation(inv Invitation) {
	f.PendingInvitations = append(f.PendingInvitations, inv)
}

// PendingInvitationFor returns the unexpired invitation addressed to email
func (f *Family) PendingInvitationFor(email string, now time.Time) (Invitation, bool) {
	for _, inv := range f.PendingInvitations {
		if inv.Email == email && inv.State(now) == InvitationPending {
			return inv, true
		}
	}
	return Invitation{}, false
}

// InvitationByToken returns the unexpired invitation carrying token
func (f *Family) InvitationByToken(token string, now time.Time) (Invitation, bool) {
	if token == "" {
		return Invitation{}, false
	}
	for _, inv := range f.PendingInvitations {
		if inv.Token == token && inv.State(now) == InvitationPending {
			return inv, true
		}
	}
	return Invitation{}, false
}

// AcceptInvitation moves the invitation carrying token to the accepted state,
// removing it from the pending list.
func (f *Family) AcceptInvitation(token string, now time.Time) (Invitation, error) {
	return f.closeInvitation(func(inv Invitation) bool { return token != "" && inv.Token == token }, InvitationAccepted, now)
}

// CancelInvitation moves the pending invitation for email to the cancelled
// state, removing it from the pending list.
func (f *Family) CancelInvitation(email string, now time.Time) (Invitation, error) {
	return f.closeInvitation(func(inv Invitation) bool { return inv.Email == email }, InvitationCancelled, now)
}

func (f *Family) closeInvitation(match func(Invitation) bool, to InvitationState, now time.Time) (Invitation, error) {
	for i, inv := range f.PendingInvitations {
		if !match(inv) {
			continue
		}
		if err := inv.transition(to, now); err != nil {
			continue
		}
		f.PendingInvitations = append(f.PendingInvitations[:i], f.PendingInvitations[i+1:]...)
		return inv, nil
	}
	return Invitation{}, ErrInvitationNotFound
}

// PurgeExpiredInvitations drops every invitation that has expired and returns
// how many were removed. Stores call it before every save.
func (f *Family) PurgeExpiredInvitations(now time.Time) int {
	kept := make([]Invitation, 0, len(f.PendingInvitations))
	for _, inv := range f.PendingInvitations {
		if inv.State(now) == InvitationExpired {
			continue
		}
		kept = append(kept, inv)
	}
	purged := len(f.PendingInvitations) - len(kept)
	f.PendingInvitations = kept
	return purged
}
