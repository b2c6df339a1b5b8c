// Package resolver picks a meeting slot from normalized availability.
//
// Everything here is a pure function of its input: no I/O, no shared state,
// safe for concurrent use. Fetching and normalizing availability happens
// before a Request is built.
package resolver

import (
	"errors"
	"fmt"
	"kanji/internal/availability"
)

var (
	ErrDuplicateParticipant = errors.New("duplicate participant")
	ErrEmptyParticipantID   = errors.New("empty participant id")
)

// Request is everything needed to resolve one meeting.
type Request struct {
	Slots     []availability.Slot
	Matrix    availability.Matrix
	Priority  []string // participants whose availability is a hard constraint
	Regular   []string
	TimeOfDay *availability.TimeOfDay // optional filter on candidate slots
}

// NewRequest validates the parts of a request and splits participants by
// role, keeping their order.
func NewRequest(slots []availability.Slot, m availability.Matrix, participants []availability.Participant, window *availability.TimeOfDay) (Request, error) {
	if err := m.Validate(len(slots)); err != nil {
		return Request{}, err
	}
	if window != nil {
		if err := window.Validate(); err != nil {
			return Request{}, err
		}
	}

	req := Request{Slots: slots, Matrix: m, TimeOfDay: window}
	seen := make(map[string]struct{}, len(participants))
	for _, p := range participants {
		if p.ID == "" {
			return Request{}, ErrEmptyParticipantID
		}
		if _, dup := seen[p.ID]; dup {
			return Request{}, fmt.Errorf("%w: %q", ErrDuplicateParticipant, p.ID)
		}
		seen[p.ID] = struct{}{}

		switch p.Role {
		case availability.RolePriority:
			req.Priority = append(req.Priority, p.ID)
		case availability.RoleRegular, "":
			req.Regular = append(req.Regular, p.ID)
		default:
			return Request{}, fmt.Errorf("participant %q: unknown role %q", p.ID, p.Role)
		}
	}
	return req, nil
}

// SatisfiesHardConstraints reports whether every priority participant is
// free at slot i. An empty priority set is always satisfied.
func (r Request) SatisfiesHardConstraints(i int) bool {
	for _, id := range r.Priority {
		if !r.Matrix.Free(id, i) {
			return false
		}
	}
	return true
}
