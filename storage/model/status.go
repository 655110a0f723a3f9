package model

import (
	"fmt"
)

// RecipientStatus describes where a single ticket recipient stands in the
// acknowledgement workflow. The numeric values are part of the stored schema
// and must not be reordered.
type RecipientStatus int

// Constants for RecipientStatus
const (
	StatusPending  RecipientStatus = 0
	StatusDone     RecipientStatus = 1
	StatusExpired  RecipientStatus = 8
	StatusCanceled RecipientStatus = 9
)

// String returns the canonical string representation for the status.
func (s RecipientStatus) String() string {
	switch s {
	case StatusPending:
		return "pending"
	case StatusDone:
		return "done"
	case StatusExpired:
		return "expired"
	case StatusCanceled:
		return "canceled"
	default:
		return "unknown"
	}
}

// Valid reports whether the status is one of the defined constants.
func (s RecipientStatus) Valid() bool {
	switch s {
	case StatusPending, StatusDone, StatusExpired, StatusCanceled:
		return true
	default:
		return false
	}
}

// CanTransition reports whether a recipient may move from this status to the
// passed one. Pending recipients may be completed, expired, or canceled; a
// completed recipient may be reopened. Expired and canceled are terminal.
func (s RecipientStatus) CanTransition(to RecipientStatus) bool {
	switch s {
	case StatusPending:
		return to == StatusDone || to == StatusExpired || to == StatusCanceled
	case StatusDone:
		return to == StatusPending
	default:
		return false
	}
}

// Terminal reports whether no further transitions are possible from the status.
func (s RecipientStatus) Terminal() bool {
	return s == StatusExpired || s == StatusCanceled
}

// MarshalJSON encodes the status as a JSON string.
func (s RecipientStatus) MarshalJSON() ([]byte, error) {
	// Unknown maps to "unknown" to avoid failing marshaling; consumers should validate.
	return []byte("\"" + s.String() + "\""), nil
}

// UnmarshalJSON decodes the status from a JSON string.
func (s *RecipientStatus) UnmarshalJSON(b []byte) error {
	// Expect a quoted string
	if len(b) < 2 || b[0] != '"' || b[len(b)-1] != '"' {
		return fmt.Errorf("status must be a JSON string")
	}
	val := string(b[1 : len(b)-1])
	ps, err := ParseRecipientStatus(val)
	if err != nil {
		return err
	}
	*s = ps
	return nil
}

// ParseRecipientStatus converts a string to a RecipientStatus, returning an
// error for invalid values.
func ParseRecipientStatus(v string) (RecipientStatus, error) {
	switch v {
	case "pending":
		return StatusPending, nil
	case "done":
		return StatusDone, nil
	case "expired":
		return StatusExpired, nil
	case "canceled":
		return StatusCanceled, nil
	}
	return 0, fmt.Errorf("invalid status: %s", v)
}
