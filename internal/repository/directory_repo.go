package repository

import (
	"context"
	"errors"

	"github.com/fixtureops/contact-monitor/internal/domain"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type DirectoryRepository interface {
	EmailsForPlantRole(ctx context.Context, plant string, role domain.Role) ([]string, error)
	OwnerDisplayName(ctx context.Context, email string) (string, error)
	UpsertMember(ctx context.Context, member *domain.GroupMember) error
	ListMembers(ctx context.Context, plant string, role domain.Role) ([]domain.GroupMember, error)
}

type GormDirectoryRepo struct {
	db *gorm.DB
}

func NewGormDirectoryRepo(db *gorm.DB) *GormDirectoryRepo {
	return &GormDirectoryRepo{db: db}
}

func (r *GormDirectoryRepo) EmailsForPlantRole(ctx context.Context, plant string, role domain.Role) ([]string, error) {
	var emails []string
	err := r.db.WithContext(ctx).
		Model(&GroupMemberModel{}).
		Where("plant = ? AND role = ?", plant, role).
		Order("email ASC").
		Pluck("email", &emails).Error
	if err != nil {
		return nil, err
	}
	return emails, nil
}

func (r *GormDirectoryRepo) OwnerDisplayName(ctx context.Context, email string) (string, error) {
	var model GroupMemberModel
	err := r.db.WithContext(ctx).
		Where("email = ?", email).
		Order("plant ASC, role ASC").
		First(&model).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", domain.ErrNotFound
	}
	if err != nil {
		return "", err
	}
	return model.DisplayName, nil
}

func (r *GormDirectoryRepo) UpsertMember(ctx context.Context, member *domain.GroupMember) error {
	model := memberModelFromDomain(member)
	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "plant"}, {Name: "role"}, {Name: "email"}},
			DoUpdates: clause.AssignmentColumns([]string{"display_name", "updated_at"}),
		}).
		Create(model).Error
	if err != nil {
		return err
	}
	if member != nil {
		*member = *memberModelToDomain(model)
	}
	return nil
}

func (r *GormDirectoryRepo) ListMembers(ctx context.Context, plant string, role domain.Role) ([]domain.GroupMember, error) {
	var models []GroupMemberModel
	err := r.db.WithContext(ctx).
		Where("plant = ? AND role = ?", plant, role).
		Order("email ASC").
		Find(&models).Error
	if err != nil {
		return nil, err
	}

	members := make([]domain.GroupMember, 0, len(models))
	for i := range models {
		members = append(members, *memberModelToDomain(&models[i]))
	}

	return members, nil
}
