package graph

import "fmt"

type Status uint8

const (
	Absent Status = iota
	Valid
	Invalid
)

func (s Status) String() string {
	switch s {
	case Absent:
		return "absent"
	case Valid:
		return "valid"
	case Invalid:
		return "invalid"
	default:
		return fmt.Sprintf("Status(%d)", s)
	}
}

// Validation is the outcome of checking one field. Err is set only when
// Status is Invalid.
type Validation struct {
	Status Status
	Err    error
}

func validOf(err error) Validation {
	if err != nil {
		return Validation{Status: Invalid, Err: err}
	}
	return Validation{Status: Valid}
}

func (v Validation) String() string {
	if v.Status == Invalid && v.Err != nil {
		return "invalid: " + v.Err.Error()
	}
	return v.Status.String()
}
