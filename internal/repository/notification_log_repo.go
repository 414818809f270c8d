package repository

import (
	"context"
	"time"

	"github.com/fixtureops/contact-monitor/internal/domain"
	"gorm.io/gorm"
)

type NotificationListParams struct {
	Plant     *string
	IssueType *domain.IssueType
	Status    *domain.DeliveryStatus
	From      *time.Time
	To        *time.Time
	Page      int
	PageSize  int
}

// TierStatusCount is one row of the grouped dispatch-log summary.
type TierStatusCount struct {
	IssueType domain.IssueType      `gorm:"column:issue_type"`
	Status    domain.DeliveryStatus `gorm:"column:status"`
	Count     int                   `gorm:"column:count"`
}

type NotificationLogRepository interface {
	Append(ctx context.Context, record *domain.NotificationRecord) error
	List(ctx context.Context, params NotificationListParams) ([]domain.NotificationRecord, int64, error)
	StatusSummary(ctx context.Context, plant string) ([]TierStatusCount, error)
}

type GormNotificationLogRepo struct {
	db *gorm.DB
}

func NewGormNotificationLogRepo(db *gorm.DB) *GormNotificationLogRepo {
	return &GormNotificationLogRepo{db: db}
}

func (r *GormNotificationLogRepo) Append(ctx context.Context, record *domain.NotificationRecord) error {
	model := recordModelFromDomain(record)
	if err := r.db.WithContext(ctx).Create(model).Error; err != nil {
		return err
	}
	if record != nil {
		*record = *recordModelToDomain(model)
	}
	return nil
}

func (r *GormNotificationLogRepo) List(ctx context.Context, params NotificationListParams) ([]domain.NotificationRecord, int64, error) {
	query := r.db.WithContext(ctx).Model(&NotificationRecordModel{})

	if params.Plant != nil {
		query = query.Where("plant = ?", *params.Plant)
	}
	if params.IssueType != nil {
		query = query.Where("issue_type = ?", *params.IssueType)
	}
	if params.Status != nil {
		query = query.Where("status = ?", *params.Status)
	}
	if params.From != nil {
		query = query.Where("created_at >= ?", *params.From)
	}
	if params.To != nil {
		query = query.Where("created_at <= ?", *params.To)
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

	var models []NotificationRecordModel
	err := query.
		Order("created_at DESC").
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Find(&models).Error
	if err != nil {
		return nil, 0, err
	}

	records := make([]domain.NotificationRecord, 0, len(models))
	for i := range models {
		records = append(records, *recordModelToDomain(&models[i]))
	}

	return records, total, nil
}

func (r *GormNotificationLogRepo) StatusSummary(ctx context.Context, plant string) ([]TierStatusCount, error) {
	var summaries []TierStatusCount
	err := r.db.WithContext(ctx).
		Model(&NotificationRecordModel{}).
		Select("issue_type, status, COUNT(*) as count").
		Where("plant = ?", plant).
		Group("issue_type, status").
		Scan(&summaries).Error
	if err != nil {
		return nil, err
	}
	return summaries, nil
}
