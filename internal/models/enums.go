package models

import "errors"

var (
	ErrInvalidRole     = errors.New("invalid role")
	ErrInvalidStatus   = errors.New("invalid complaint status")
	ErrInvalidPriority = errors.New("invalid complaint priority")
	ErrNegativeUpvotes = errors.New("upvotes must not be negative")
	ErrMissingOwner    = errors.New("owner is required")
	ErrMissingTitle    = errors.New("title is required")
)

// Role is the app_role enumeration.
type Role string

const (
	RoleStudent Role = "student"
	RoleAdmin   Role = "admin"
)

// Roles lists every app_role value in declaration order.
var Roles = []Role{RoleStudent, RoleAdmin}

func (r Role) Valid() bool {
	switch r {
	case RoleStudent, RoleAdmin:
		return true
	}
	return false
}

// ComplaintStatus is the complaint_status enumeration.
// Any value may follow any other; there is no transition graph.
type ComplaintStatus string

const (
	StatusNew        ComplaintStatus = "new"
	StatusInProgress ComplaintStatus = "in_progress"
	StatusResolved   ComplaintStatus = "resolved"
	StatusClosed     ComplaintStatus = "closed"
)

var Statuses = []ComplaintStatus{StatusNew, StatusInProgress, StatusResolved, StatusClosed}

func (s ComplaintStatus) Valid() bool {
	switch s {
	case StatusNew, StatusInProgress, StatusResolved, StatusClosed:
		return true
	}
	return false
}

// ComplaintPriority is the complaint_priority enumeration.
type ComplaintPriority string

const (
	PriorityLow    ComplaintPriority = "low"
	PriorityMedium ComplaintPriority = "medium"
	PriorityHigh   ComplaintPriority = "high"
	PriorityUrgent ComplaintPriority = "urgent"
)

var Priorities = []ComplaintPriority{PriorityLow, PriorityMedium, PriorityHigh, PriorityUrgent}

func (p ComplaintPriority) Valid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh, PriorityUrgent:
		return true
	}
	return false
}
