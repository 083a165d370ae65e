package domain

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Membership-specific validation errors
var (
	// ErrMembershipBoardIDEmpty is returned when a membership's board ID is empty or nil.
	ErrMembershipBoardIDEmpty = errors.New("membership board ID cannot be empty")

	// ErrMembershipUserIDEmpty is returned when a membership's user ID is empty or nil.
	ErrMembershipUserIDEmpty = errors.New("membership user ID cannot be empty")

	// ErrRoleInvalid is returned when a role value is not one of the known roles.
	ErrRoleInvalid = errors.New("role is not valid")
)

// Role is a user's access level on a specific board. Roles form a total
// order: Viewer < Member < Admin. An operation requiring role R succeeds only
// if the caller's role is at least R.
type Role int

// Role values in ascending order of privilege.
const (
	RoleViewer Role = iota
	RoleMember
	RoleAdmin
)

// roleNames maps Role values to their wire representation.
var roleNames = map[Role]string{
	RoleViewer: "viewer",
	RoleMember: "member",
	RoleAdmin:  "admin",
}

// String returns the lowercase wire name of the role.
func (r Role) String() string {
	if name, ok := roleNames[r]; ok {
		return name
	}
	return fmt.Sprintf("role(%d)", int(r))
}

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	_, ok := roleNames[r]
	return ok
}

// AtLeast reports whether r grants at least the privileges of required.
func (r Role) AtLeast(required Role) bool {
	return r >= required
}

// ParseRole converts a wire name into a Role.
// Returns ErrRoleInvalid for unknown names.
func ParseRole(name string) (Role, error) {
	for role, n := range roleNames {
		if n == name {
			return role, nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrRoleInvalid, name)
}

// MarshalText implements encoding.TextMarshaler so roles serialize as their
// wire names in JSON.
func (r Role) MarshalText() ([]byte, error) {
	if !r.Valid() {
		return nil, fmt.Errorf("%w: %d", ErrRoleInvalid, int(r))
	}
	return []byte(r.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (r *Role) UnmarshalText(text []byte) error {
	role, err := ParseRole(string(text))
	if err != nil {
		return err
	}
	*r = role
	return nil
}

// Membership grants a user a role on a board. A board always retains at least
// one Admin membership; the guard layer enforces that invariant.
type Membership struct {
	BoardID   uuid.UUID `json:"board_id"`
	UserID    uuid.UUID `json:"user_id"`
	Role      Role      `json:"role"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NewMembership creates a Membership for a user on a board.
// Returns an error if validation fails.
func NewMembership(boardID, userID uuid.UUID, role Role) (*Membership, error) {
	now := time.Now().UTC()
	m := &Membership{
		BoardID:   boardID,
		UserID:    userID,
		Role:      role,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := m.Validate(); err != nil {
		return nil, err
	}

	return m, nil
}

// Validate checks if the Membership has valid data.
func (m *Membership) Validate() error {
	if m.BoardID == uuid.Nil {
		return ErrMembershipBoardIDEmpty
	}

	if m.UserID == uuid.Nil {
		return ErrMembershipUserIDEmpty
	}

	if !m.Role.Valid() {
		return ErrRoleInvalid
	}

	return nil
}
