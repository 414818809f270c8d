package repository

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/fixtureops/contact-monitor/internal/domain"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type FixtureListParams struct {
	Plant    *string
	Page     int
	PageSize int
}

// notNotifiedSinceClause excludes fixtures that already have a SENT record
// of the given issue types newer than both the fixture's most recent
// counter reset and the caller's cooldown cutoff. The reset join lives here
// so the policy layer never re-derives epoch boundaries (a zero cutoff
// degenerates the clause to "any SENT record since the last reset").
const notNotifiedSinceClause = `NOT EXISTS (
	SELECT 1 FROM notification_log n
	WHERE n.plant = fixtures.plant
	  AND n.adapter_code = fixtures.adapter_code
	  AND n.fixture_type = fixtures.fixture_type
	  AND n.status = 'SENT'
	  AND n.issue_type IN ?
	  AND n.created_at > GREATEST(
		COALESCE((
			SELECT MAX(r.created_at) FROM fixture_resets r
			WHERE r.plant = fixtures.plant
			  AND r.adapter_code = fixtures.adapter_code
			  AND r.fixture_type = fixtures.fixture_type
		), to_timestamp(0)),
		?)
)`

type FixtureRepository interface {
	Create(ctx context.Context, f *domain.Fixture) error
	GetByKey(ctx context.Context, key domain.FixtureKey) (*domain.Fixture, error)
	List(ctx context.Context, params FixtureListParams) ([]domain.Fixture, int64, error)
	AddContacts(ctx context.Context, key domain.FixtureKey, delta int) (*domain.Fixture, error)
	Reset(ctx context.Context, key domain.FixtureKey) error
	FindWarningCandidates(ctx context.Context, cooldownCutoff time.Time) ([]domain.Fixture, error)
	FindLimitCandidates(ctx context.Context, cooldownCutoff time.Time) ([]domain.Fixture, error)
}

type GormFixtureRepo struct {
	db *gorm.DB
}

func NewGormFixtureRepo(db *gorm.DB) *GormFixtureRepo {
	return &GormFixtureRepo{db: db}
}

func (r *GormFixtureRepo) Create(ctx context.Context, f *domain.Fixture) error {
	model := fixtureModelFromDomain(f)
	if err := r.db.WithContext(ctx).Create(model).Error; err != nil {
		if isUniqueViolationError(err) {
			return domain.ErrConflict
		}
		return err
	}
	if f != nil {
		*f = *fixtureModelToDomain(model)
	}
	return nil
}

func (r *GormFixtureRepo) GetByKey(ctx context.Context, key domain.FixtureKey) (*domain.Fixture, error) {
	var model FixtureModel
	err := r.db.WithContext(ctx).
		First(&model, "plant = ? AND adapter_code = ? AND fixture_type = ?",
			key.Plant, key.AdapterCode, key.FixtureType).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return fixtureModelToDomain(&model), nil
}

func (r *GormFixtureRepo) List(ctx context.Context, params FixtureListParams) ([]domain.Fixture, int64, error) {
	query := r.db.WithContext(ctx).Model(&FixtureModel{})

	if params.Plant != nil {
		query = query.Where("plant = ?", *params.Plant)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	page := max(params.Page, 1)
	pageSize := params.PageSize
	if pageSize < 1 {
		pageSize = 50
	}
	pageSize = min(pageSize, 100)

	var models []FixtureModel
	err := query.
		Order("created_at DESC").
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Find(&models).Error
	if err != nil {
		return nil, 0, err
	}

	fixtures := make([]domain.Fixture, 0, len(models))
	for i := range models {
		fixtures = append(fixtures, *fixtureModelToDomain(&models[i]))
	}

	return fixtures, total, nil
}

func (r *GormFixtureRepo) AddContacts(ctx context.Context, key domain.FixtureKey, delta int) (*domain.Fixture, error) {
	result := r.db.WithContext(ctx).
		Model(&FixtureModel{}).
		Where("plant = ? AND adapter_code = ? AND fixture_type = ?",
			key.Plant, key.AdapterCode, key.FixtureType).
		Update("contacts", gorm.Expr("contacts + ?", delta))
	if result.Error != nil {
		return nil, result.Error
	}
	if result.RowsAffected == 0 {
		return nil, domain.ErrNotFound
	}

	return r.GetByKey(ctx, key)
}

func (r *GormFixtureRepo) Reset(ctx context.Context, key domain.FixtureKey) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.
			Model(&FixtureModel{}).
			Where("plant = ? AND adapter_code = ? AND fixture_type = ?",
				key.Plant, key.AdapterCode, key.FixtureType).
			Update("contacts", 0)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return domain.ErrNotFound
		}

		event := ResetEventModel{
			ID:          uuid.NewString(),
			Plant:       key.Plant,
			AdapterCode: key.AdapterCode,
			FixtureType: key.FixtureType,
		}
		return tx.Create(&event).Error
	})
}

func (r *GormFixtureRepo) FindWarningCandidates(ctx context.Context, cooldownCutoff time.Time) ([]domain.Fixture, error) {
	suppressing := []domain.IssueType{domain.IssueWarning, domain.IssueLimit}

	var models []FixtureModel
	err := r.db.WithContext(ctx).
		Model(&FixtureModel{}).
		Where("warning_at IS NOT NULL AND warning_at > 0 AND contacts >= warning_at").
		Where("contacts_limit IS NULL OR contacts < contacts_limit").
		Where(notNotifiedSinceClause, suppressing, cooldownCutoff).
		Order("created_at ASC").
		Find(&models).Error
	if err != nil {
		return nil, err
	}

	return fixtureModelsToDomain(models), nil
}

func (r *GormFixtureRepo) FindLimitCandidates(ctx context.Context, cooldownCutoff time.Time) ([]domain.Fixture, error) {
	suppressing := []domain.IssueType{domain.IssueLimit}

	var models []FixtureModel
	err := r.db.WithContext(ctx).
		Model(&FixtureModel{}).
		Where("contacts_limit IS NOT NULL AND contacts_limit > 0 AND contacts >= contacts_limit").
		Where(notNotifiedSinceClause, suppressing, cooldownCutoff).
		Order("created_at ASC").
		Find(&models).Error
	if err != nil {
		return nil, err
	}

	return fixtureModelsToDomain(models), nil
}

func fixtureModelsToDomain(models []FixtureModel) []domain.Fixture {
	fixtures := make([]domain.Fixture, 0, len(models))
	for i := range models {
		fixtures = append(fixtures, *fixtureModelToDomain(&models[i]))
	}
	return fixtures
}

func isUniqueViolationError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}

	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "duplicate key") || strings.Contains(msg, "unique constraint")
}
