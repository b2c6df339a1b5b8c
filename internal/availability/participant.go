package availability

import (
	"fmt"
	"strings"
)

// Role decides whether a participant's availability is a hard constraint.
type Role string

const (
	RoleRegular  Role = "regular"
	RolePriority Role = "priority"
)

// ParseRole maps a user-supplied role name to a Role. An empty name is regular.
func ParseRole(s string) (Role, error) {
	switch Role(strings.ToLower(strings.TrimSpace(s))) {
	case "", RoleRegular:
		return RoleRegular, nil
	case RolePriority:
		return RolePriority, nil
	default:
		return "", fmt.Errorf("unknown participant role %q", s)
	}
}

// Participant is one invitee of a meeting. IDs are unique within a request.
type Participant struct {
	ID   string
	Role Role
}
