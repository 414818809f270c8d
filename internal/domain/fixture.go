package domain

import (
	"fmt"
	"strings"
	"time"
)

// FixtureKey identifies a test fixture within a plant.
type FixtureKey struct {
	Plant       string
	AdapterCode string
	FixtureType string
}

func (k FixtureKey) String() string {
	return fmt.Sprintf("%s/%s/%s", k.Plant, k.AdapterCode, k.FixtureType)
}

func (k FixtureKey) Validate() error {
	if strings.TrimSpace(k.Plant) == "" {
		return fmt.Errorf("%w: plant is required", ErrValidation)
	}
	if strings.TrimSpace(k.AdapterCode) == "" {
		return fmt.Errorf("%w: adapter code is required", ErrValidation)
	}
	if strings.TrimSpace(k.FixtureType) == "" {
		return fmt.Errorf("%w: fixture type is required", ErrValidation)
	}
	return nil
}

// Fixture is a tracked piece of test equipment with a usage counter
// measured against optional warning and limit thresholds.
type Fixture struct {
	Plant         string
	AdapterCode   string
	FixtureType   string
	ProjectName   string
	OwnerEmail    string
	Contacts      int
	WarningAt     *int
	ContactsLimit *int
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

func (f Fixture) Key() FixtureKey {
	return FixtureKey{Plant: f.Plant, AdapterCode: f.AdapterCode, FixtureType: f.FixtureType}
}

func (f *Fixture) Validate() error {
	if err := f.Key().Validate(); err != nil {
		return err
	}
	if f.Contacts < 0 {
		return fmt.Errorf("%w: contacts must be >= 0", ErrValidation)
	}
	if f.WarningAt != nil && *f.WarningAt <= 0 {
		return fmt.Errorf("%w: warning threshold must be positive", ErrValidation)
	}
	if f.ContactsLimit != nil && *f.ContactsLimit <= 0 {
		return fmt.Errorf("%w: contacts limit must be positive", ErrValidation)
	}
	if f.WarningAt != nil && f.ContactsLimit != nil && *f.WarningAt >= *f.ContactsLimit {
		return fmt.Errorf("%w: warning threshold must be below contacts limit", ErrValidation)
	}
	return nil
}

// ValidOwnerEmail reports whether an owner address is usable as a
// notification recipient.
func ValidOwnerEmail(email string) bool {
	trimmed := strings.TrimSpace(email)
	return trimmed != "" && strings.Contains(trimmed, "@")
}

// CriticalOvershoot reports whether the counter has passed the limit by
// enough to escalate: contacts >= ceil(limit * 1.1).
func CriticalOvershoot(contacts, limit int) bool {
	if limit <= 0 {
		return false
	}
	return contacts >= (limit*11+9)/10
}

// ResetEvent marks one counter reset for a fixture. Its timestamp is the
// epoch boundary for notification idempotency.
type ResetEvent struct {
	ID          string
	Plant       string
	AdapterCode string
	FixtureType string
	CreatedAt   time.Time
}

// Probe is a test-probe inventory line associated with a fixture.
type Probe struct {
	PartNumber string
	Qty        int
}

func (p *Probe) Validate() error {
	if strings.TrimSpace(p.PartNumber) == "" {
		return fmt.Errorf("%w: probe part number is required", ErrValidation)
	}
	if p.Qty <= 0 {
		return fmt.Errorf("%w: probe quantity must be positive", ErrValidation)
	}
	return nil
}
