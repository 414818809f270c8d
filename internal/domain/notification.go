package domain

import (
	"fmt"
	"strings"
	"time"
)

// IssueType is the threshold tier a notification reports.
type IssueType string

const (
	IssueWarning IssueType = "WARNING"
	IssueLimit   IssueType = "LIMIT"
)

func (t IssueType) String() string { return string(t) }

func (t IssueType) IsValid() bool {
	switch t {
	case IssueWarning, IssueLimit:
		return true
	}
	return false
}

func ParseIssueTypeFromString(s string) (IssueType, error) {
	t := IssueType(strings.ToUpper(strings.TrimSpace(s)))
	if !t.IsValid() {
		return "", fmt.Errorf("%w: invalid issue type %q", ErrValidation, s)
	}
	return t, nil
}

// DeliveryStatus records the outcome of one dispatch attempt.
type DeliveryStatus string

const (
	DeliverySent   DeliveryStatus = "SENT"
	DeliveryFailed DeliveryStatus = "FAILED"
)

func (s DeliveryStatus) String() string { return string(s) }

func (s DeliveryStatus) IsValid() bool {
	switch s {
	case DeliverySent, DeliveryFailed:
		return true
	}
	return false
}

func ParseDeliveryStatusFromString(s string) (DeliveryStatus, error) {
	st := DeliveryStatus(strings.ToUpper(strings.TrimSpace(s)))
	if !st.IsValid() {
		return "", fmt.Errorf("%w: invalid delivery status %q", ErrValidation, s)
	}
	return st, nil
}

// NotificationRecord is one row of the append-only dispatch log. The
// monitor's idempotency and cooldown checks read this log; the record
// itself is never mutated.
type NotificationRecord struct {
	ID          string
	Plant       string
	AdapterCode string
	FixtureType string
	IssueType   IssueType
	Status      DeliveryStatus
	Recipient   string
	CreatedAt   time.Time
}

func (r *NotificationRecord) Validate() error {
	key := FixtureKey{Plant: r.Plant, AdapterCode: r.AdapterCode, FixtureType: r.FixtureType}
	if err := key.Validate(); err != nil {
		return err
	}
	if !r.IssueType.IsValid() {
		return fmt.Errorf("%w: invalid issue type %q", ErrValidation, r.IssueType)
	}
	if !r.Status.IsValid() {
		return fmt.Errorf("%w: invalid delivery status %q", ErrValidation, r.Status)
	}
	return nil
}

// Role names the plant group tiers kept in the recipient directory.
type Role string

const (
	RoleTechnician Role = "technician"
	RoleEngineer   Role = "engineer"
)

func (r Role) String() string { return string(r) }

func (r Role) IsValid() bool {
	switch r {
	case RoleTechnician, RoleEngineer:
		return true
	}
	return false
}

func ParseRoleFromString(s string) (Role, error) {
	r := Role(strings.ToLower(strings.TrimSpace(s)))
	if !r.IsValid() {
		return "", fmt.Errorf("%w: invalid role %q", ErrValidation, s)
	}
	return r, nil
}

// GroupMember is one directory entry: a person belonging to a plant role
// group, CC'd on threshold notifications for that plant.
type GroupMember struct {
	Plant       string
	Role        Role
	Email       string
	DisplayName string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

func (m *GroupMember) Validate() error {
	if strings.TrimSpace(m.Plant) == "" {
		return fmt.Errorf("%w: plant is required", ErrValidation)
	}
	if !m.Role.IsValid() {
		return fmt.Errorf("%w: invalid role %q", ErrValidation, m.Role)
	}
	if !ValidOwnerEmail(m.Email) {
		return fmt.Errorf("%w: member email is required", ErrValidation)
	}
	return nil
}

// PassCounters is the per-tier accounting of one monitor pass.
type PassCounters struct {
	Tier             IssueType
	Sent             int
	Failed           int
	SkippedInvalid   int
	SkippedThrottled int
}

// RunSummary is the outcome of one monitor invocation.
type RunSummary struct {
	EmailsSent      int
	WindowHours     int
	MaxEmailsPerRun int
	Warning         PassCounters
	Limit           PassCounters
}
