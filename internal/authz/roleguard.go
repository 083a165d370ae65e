// Package authz evaluates whether a user's board membership permits a given
// mutation. It is a leaf package: pure checks over in-memory memberships,
// no I/O.
package authz

import (
	"errors"
	"fmt"

	"github.com/trellis-kanban/trellis-api/internal/domain"
)

// Guard errors. ErrForbidden means the caller lacks the required role;
// ErrLastAdmin and ErrAssigneeNotMember are rule violations that map to the
// InvalidOperation outcome, not authorization failures.
var (
	// ErrForbidden is returned when the caller's role is below the role an
	// operation requires, or the caller has no membership at all.
	ErrForbidden = errors.New("insufficient role")

	// ErrLastAdmin is returned when removing or demoting a membership would
	// leave the board without any admin.
	ErrLastAdmin = errors.New("board must retain at least one admin")

	// ErrAssigneeNotMember is returned when a task assignee holds no active
	// membership on the task's board.
	ErrAssigneeNotMember = errors.New("assignee is not a member of the board")
)

// Authorize reports whether the membership grants at least the required role.
// A nil membership never authorizes anything.
func Authorize(m *domain.Membership, required domain.Role) bool {
	return m != nil && m.Role.AtLeast(required)
}

// Require returns ErrForbidden unless the membership grants at least the
// required role.
func Require(m *domain.Membership, required domain.Role) error {
	if !Authorize(m, required) {
		return fmt.Errorf("%w: %s required", ErrForbidden, required)
	}
	return nil
}

// CheckRemoveMember decides whether caller may remove target from the board.
// memberships is the board's full active membership set. A member may always
// remove themselves; removing others requires Admin. Either way, removing the
// board's only admin is rejected.
func CheckRemoveMember(caller, target *domain.Membership, memberships []*domain.Membership) error {
	if caller == nil {
		return fmt.Errorf("%w: caller holds no membership", ErrForbidden)
	}

	selfRemoval := caller.UserID == target.UserID
	if !selfRemoval {
		if err := Require(caller, domain.RoleAdmin); err != nil {
			return err
		}
	}

	if target.Role == domain.RoleAdmin && adminCount(memberships) <= 1 {
		return fmt.Errorf("%w: cannot remove the only admin", ErrLastAdmin)
	}

	return nil
}

// CheckUpdateRole decides whether caller may set target's role to newRole.
// Demoting the board's only admin is rejected regardless of the caller's
// role.
func CheckUpdateRole(caller, target *domain.Membership, newRole domain.Role, memberships []*domain.Membership) error {
	if err := Require(caller, domain.RoleAdmin); err != nil {
		return err
	}

	demotion := target.Role == domain.RoleAdmin && newRole != domain.RoleAdmin
	if demotion && adminCount(memberships) <= 1 {
		return fmt.Errorf("%w: cannot demote the only admin", ErrLastAdmin)
	}

	return nil
}

// CheckAssignee verifies that the assignee holds an active membership on the
// board. Any role qualifies, Viewer included.
func CheckAssignee(assignee *domain.Membership) error {
	if assignee == nil {
		return ErrAssigneeNotMember
	}
	return nil
}

func adminCount(memberships []*domain.Membership) int {
	n := 0
	for _, m := range memberships {
		if m.Role == domain.RoleAdmin {
			n++
		}
	}
	return n
}
