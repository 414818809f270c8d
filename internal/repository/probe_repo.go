package repository

import (
	"context"

	"github.com/fixtureops/contact-monitor/internal/domain"
	"gorm.io/gorm"
)

type ProbeRepository interface {
	ProbesForFixture(ctx context.Context, key domain.FixtureKey) ([]domain.Probe, error)
	ReplaceForFixture(ctx context.Context, key domain.FixtureKey, probes []domain.Probe) error
}

type GormProbeRepo struct {
	db *gorm.DB
}

func NewGormProbeRepo(db *gorm.DB) *GormProbeRepo {
	return &GormProbeRepo{db: db}
}

func (r *GormProbeRepo) ProbesForFixture(ctx context.Context, key domain.FixtureKey) ([]domain.Probe, error) {
	var models []ProbeModel
	err := r.db.WithContext(ctx).
		Where("plant = ? AND adapter_code = ? AND fixture_type = ?",
			key.Plant, key.AdapterCode, key.FixtureType).
		Order("part_number ASC").
		Find(&models).Error
	if err != nil {
		return nil, err
	}

	probes := make([]domain.Probe, 0, len(models))
	for i := range models {
		probes = append(probes, domain.Probe{
			PartNumber: models[i].PartNumber,
			Qty:        models[i].Qty,
		})
	}

	return probes, nil
}

func (r *GormProbeRepo) ReplaceForFixture(ctx context.Context, key domain.FixtureKey, probes []domain.Probe) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.
			Where("plant = ? AND adapter_code = ? AND fixture_type = ?",
				key.Plant, key.AdapterCode, key.FixtureType).
			Delete(&ProbeModel{}).Error
		if err != nil {
			return err
		}

		if len(probes) == 0 {
			return nil
		}

		models := make([]ProbeModel, 0, len(probes))
		for _, probe := range probes {
			models = append(models, ProbeModel{
				Plant:       key.Plant,
				AdapterCode: key.AdapterCode,
				FixtureType: key.FixtureType,
				PartNumber:  probe.PartNumber,
				Qty:         probe.Qty,
			})
		}

		return tx.Create(&models).Error
	})
}
