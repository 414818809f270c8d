package repository

import (
	"time"

	"github.com/fixtureops/contact-monitor/internal/domain"
)

// FixtureModel is the persistence model for the fixtures table.
type FixtureModel struct {
	Plant         string `gorm:"type:varchar(64);primaryKey"`
	AdapterCode   string `gorm:"type:varchar(64);primaryKey"`
	FixtureType   string `gorm:"type:varchar(32);primaryKey"`
	ProjectName   string `gorm:"type:varchar(255);not null"`
	OwnerEmail    string `gorm:"type:varchar(255)"`
	Contacts      int    `gorm:"not null;default:0"`
	WarningAt     *int
	ContactsLimit *int
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

func (FixtureModel) TableName() string {
	return "fixtures"
}

// ResetEventModel is the persistence model for fixture counter resets.
type ResetEventModel struct {
	ID          string `gorm:"type:uuid;primaryKey"`
	Plant       string `gorm:"type:varchar(64);not null"`
	AdapterCode string `gorm:"type:varchar(64);not null"`
	FixtureType string `gorm:"type:varchar(32);not null"`
	CreatedAt   time.Time
}

func (ResetEventModel) TableName() string {
	return "fixture_resets"
}

// NotificationRecordModel is the persistence model for the append-only
// notification log.
type NotificationRecordModel struct {
	ID          string                `gorm:"type:uuid;primaryKey"`
	Plant       string                `gorm:"type:varchar(64);not null"`
	AdapterCode string                `gorm:"type:varchar(64);not null"`
	FixtureType string                `gorm:"type:varchar(32);not null"`
	IssueType   domain.IssueType      `gorm:"type:varchar(10);not null"`
	Status      domain.DeliveryStatus `gorm:"type:varchar(10);not null"`
	Recipient   string                `gorm:"type:varchar(255);not null"`
	CreatedAt   time.Time
}

func (NotificationRecordModel) TableName() string {
	return "notification_log"
}

// GroupMemberModel is the persistence model for plant role-group members.
type GroupMemberModel struct {
	Plant       string      `gorm:"type:varchar(64);primaryKey"`
	Role        domain.Role `gorm:"type:varchar(32);primaryKey"`
	Email       string      `gorm:"type:varchar(255);primaryKey"`
	DisplayName string      `gorm:"type:varchar(255)"`
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

func (GroupMemberModel) TableName() string {
	return "group_members"
}

// ProbeModel is the persistence model for fixture test-probe inventory.
type ProbeModel struct {
	Plant       string `gorm:"type:varchar(64);primaryKey"`
	AdapterCode string `gorm:"type:varchar(64);primaryKey"`
	FixtureType string `gorm:"type:varchar(32);primaryKey"`
	PartNumber  string `gorm:"type:varchar(64);primaryKey"`
	Qty         int    `gorm:"not null"`
}

func (ProbeModel) TableName() string {
	return "fixture_probes"
}

func fixtureModelFromDomain(f *domain.Fixture) *FixtureModel {
	if f == nil {
		return nil
	}

	return &FixtureModel{
		Plant:         f.Plant,
		AdapterCode:   f.AdapterCode,
		FixtureType:   f.FixtureType,
		ProjectName:   f.ProjectName,
		OwnerEmail:    f.OwnerEmail,
		Contacts:      f.Contacts,
		WarningAt:     f.WarningAt,
		ContactsLimit: f.ContactsLimit,
		CreatedAt:     f.CreatedAt,
		UpdatedAt:     f.UpdatedAt,
	}
}

func fixtureModelToDomain(m *FixtureModel) *domain.Fixture {
	if m == nil {
		return nil
	}

	return &domain.Fixture{
		Plant:         m.Plant,
		AdapterCode:   m.AdapterCode,
		FixtureType:   m.FixtureType,
		ProjectName:   m.ProjectName,
		OwnerEmail:    m.OwnerEmail,
		Contacts:      m.Contacts,
		WarningAt:     m.WarningAt,
		ContactsLimit: m.ContactsLimit,
		CreatedAt:     m.CreatedAt,
		UpdatedAt:     m.UpdatedAt,
	}
}

func recordModelFromDomain(r *domain.NotificationRecord) *NotificationRecordModel {
	if r == nil {
		return nil
	}

	return &NotificationRecordModel{
		ID:          r.ID,
		Plant:       r.Plant,
		AdapterCode: r.AdapterCode,
		FixtureType: r.FixtureType,
		IssueType:   r.IssueType,
		Status:      r.Status,
		Recipient:   r.Recipient,
		CreatedAt:   r.CreatedAt,
	}
}

func recordModelToDomain(m *NotificationRecordModel) *domain.NotificationRecord {
	if m == nil {
		return nil
	}

	return &domain.NotificationRecord{
		ID:          m.ID,
		Plant:       m.Plant,
		AdapterCode: m.AdapterCode,
		FixtureType: m.FixtureType,
		IssueType:   m.IssueType,
		Status:      m.Status,
		Recipient:   m.Recipient,
		CreatedAt:   m.CreatedAt,
	}
}

func memberModelFromDomain(m *domain.GroupMember) *GroupMemberModel {
	if m == nil {
		return nil
	}

	return &GroupMemberModel{
		Plant:       m.Plant,
		Role:        m.Role,
		Email:       m.Email,
		DisplayName: m.DisplayName,
		CreatedAt:   m.CreatedAt,
		UpdatedAt:   m.UpdatedAt,
	}
}

func memberModelToDomain(m *GroupMemberModel) *domain.GroupMember {
	if m == nil {
		return nil
	}

	return &domain.GroupMember{
		Plant:       m.Plant,
		Role:        m.Role,
		Email:       m.Email,
		DisplayName: m.DisplayName,
		CreatedAt:   m.CreatedAt,
		UpdatedAt:   m.UpdatedAt,
	}
}
