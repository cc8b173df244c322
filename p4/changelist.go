package p4

import (
	"fmt"
	"strconv"
)

// Well-known changelist numbers used on the wire
const (
	DefaultChangelistNumber = 0
	UnknownChangelistNumber = -1
)

// ChangelistState says how a ChangelistID must be resolved before use.
type ChangelistState int

const (
	// ChangelistPendingCreation is a changelist the caller wants but the
	// server does not have yet.
	ChangelistPendingCreation ChangelistState = iota
	ChangelistDefault
	ChangelistNumbered
	ChangelistSubmitted
)

func (s ChangelistState) String() string {
	switch s {
	case ChangelistPendingCreation:
		return "pending-creation"
	case ChangelistDefault:
		return "default"
	case ChangelistNumbered:
		return "numbered"
	case ChangelistSubmitted:
		return "submitted"
	default:
		return "unknown"
	}
}

// ChangelistID identifies the changelist an operation targets.
type ChangelistID struct {
	State  ChangelistState
	Number int
}

func DefaultChangelist() ChangelistID {
	return ChangelistID{State: ChangelistDefault, Number: DefaultChangelistNumber}
}

func PendingCreation() ChangelistID {
	return ChangelistID{State: ChangelistPendingCreation, Number: UnknownChangelistNumber}
}

func NumberedChangelist(n int) ChangelistID {
	return ChangelistID{State: ChangelistNumbered, Number: n}
}

func SubmittedChangelist(n int) ChangelistID {
	return ChangelistID{State: ChangelistSubmitted, Number: n}
}

// ChangelistFromNumber maps a wire changelist number to an id.
func ChangelistFromNumber(n int) ChangelistID {
	switch {
	case n == DefaultChangelistNumber:
		return DefaultChangelist()
	case n < 0:
		return PendingCreation()
	default:
		return NumberedChangelist(n)
	}
}

func (c ChangelistID) String() string {
	switch c.State {
	case ChangelistDefault:
		return "default"
	case ChangelistPendingCreation:
		return "new"
	default:
		return strconv.Itoa(c.Number)
	}
}

// ChangelistStatus is the server's view of an existing changelist.
type ChangelistStatus string

const (
	StatusPending   ChangelistStatus = "pending"
	StatusSubmitted ChangelistStatus = "submitted"
	StatusShelved   ChangelistStatus = "shelved"
)

// Changelist is the server record for a numbered changelist.
type Changelist struct {
	Number      int
	Status      ChangelistStatus
	Description string
	Client      string
	User        string
	Files       []FileSpec
	Jobs        []string
}

func (c *Changelist) ID() ChangelistID {
	if c.Status == StatusSubmitted {
		return SubmittedChangelist(c.Number)
	}
	return ChangelistFromNumber(c.Number)
}

func (c *Changelist) String() string {
	return fmt.Sprintf("change %d (%s)", c.Number, c.Status)
}

// JobStatus is the status jobs are moved to when a changelist is submitted.
type JobStatus string

const (
	JobStatusNone   JobStatus = ""
	JobStatusOpen   JobStatus = "open"
	JobStatusClosed JobStatus = "closed"
)
