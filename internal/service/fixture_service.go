package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/fixtureops/contact-monitor/internal/domain"
	"github.com/fixtureops/contact-monitor/internal/repository"
	"go.uber.org/zap"
)

// FixtureService fronts the CRUD surface of the fixture registry and the
// read side of the notification log. The monitor never goes through it;
// both share the repositories instead.
type FixtureService struct {
	fixtures  repository.FixtureRepository
	records   repository.NotificationLogRepository
	directory repository.DirectoryRepository
	probes    repository.ProbeRepository
	logger    *zap.Logger
}

func NewFixtureService(
	fixtures repository.FixtureRepository,
	records repository.NotificationLogRepository,
	directory repository.DirectoryRepository,
	probes repository.ProbeRepository,
	logger *zap.Logger,
) (*FixtureService, error) {
	if fixtures == nil {
		return nil, fmt.Errorf("fixture repository is required")
	}
	if records == nil {
		return nil, fmt.Errorf("notification log repository is required")
	}
	if directory == nil {
		return nil, fmt.Errorf("directory repository is required")
	}
	if probes == nil {
		return nil, fmt.Errorf("probe repository is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &FixtureService{
		fixtures:  fixtures,
		records:   records,
		directory: directory,
		probes:    probes,
		logger:    logger,
	}, nil
}

// Register creates a fixture and, when provided, its probe list in one
// logical operation. The fixture row is the source of truth; a probe
// write failure after a successful create is returned to the caller.
func (s *FixtureService) Register(ctx context.Context, fixture *domain.Fixture, probes []domain.Probe) (*domain.Fixture, error) {
	if fixture == nil {
		return nil, fmt.Errorf("%w: fixture payload is required", domain.ErrValidation)
	}

	fixture.Plant = strings.TrimSpace(fixture.Plant)
	fixture.AdapterCode = strings.TrimSpace(fixture.AdapterCode)
	fixture.FixtureType = strings.TrimSpace(fixture.FixtureType)
	fixture.ProjectName = strings.TrimSpace(fixture.ProjectName)
	fixture.OwnerEmail = strings.TrimSpace(fixture.OwnerEmail)

	if err := fixture.Validate(); err != nil {
		return nil, err
	}
	for i := range probes {
		if err := probes[i].Validate(); err != nil {
			return nil, err
		}
	}

	if err := s.fixtures.Create(ctx, fixture); err != nil {
		return nil, err
	}

	if len(probes) > 0 {
		if err := s.probes.ReplaceForFixture(ctx, fixture.Key(), probes); err != nil {
			return nil, fmt.Errorf("fixture created but probe list write failed: %w", err)
		}
	}

	s.logger.Info("fixture registered",
		zap.String("fixture", fixture.Key().String()),
		zap.String("owner", fixture.OwnerEmail),
	)

	return fixture, nil
}

func (s *FixtureService) GetByKey(ctx context.Context, key domain.FixtureKey) (*domain.Fixture, []domain.Probe, error) {
	if err := key.Validate(); err != nil {
		return nil, nil, err
	}

	fixture, err := s.fixtures.GetByKey(ctx, key)
	if err != nil {
		return nil, nil, err
	}

	probes, err := s.probes.ProbesForFixture(ctx, key)
	if err != nil {
		return nil, nil, err
	}

	return fixture, probes, nil
}

func (s *FixtureService) List(ctx context.Context, params repository.FixtureListParams) ([]domain.Fixture, int64, error) {
	return s.fixtures.List(ctx, params)
}

// AddContacts increments the usage counter. The delta must be positive;
// decrements only happen through Reset.
func (s *FixtureService) AddContacts(ctx context.Context, key domain.FixtureKey, delta int) (*domain.Fixture, error) {
	if err := key.Validate(); err != nil {
		return nil, err
	}
	if delta <= 0 {
		return nil, fmt.Errorf("%w: contact delta must be positive, got %d", domain.ErrValidation, delta)
	}

	return s.fixtures.AddContacts(ctx, key, delta)
}

// Reset zeroes the counter and records the reset event that opens a new
// notification epoch for the fixture.
func (s *FixtureService) Reset(ctx context.Context, key domain.FixtureKey) error {
	if err := key.Validate(); err != nil {
		return err
	}

	if err := s.fixtures.Reset(ctx, key); err != nil {
		return err
	}

	s.logger.Info("fixture counter reset", zap.String("fixture", key.String()))
	return nil
}

func (s *FixtureService) ReplaceProbes(ctx context.Context, key domain.FixtureKey, probes []domain.Probe) error {
	if err := key.Validate(); err != nil {
		return err
	}
	for i := range probes {
		if err := probes[i].Validate(); err != nil {
			return err
		}
	}

	if _, err := s.fixtures.GetByKey(ctx, key); err != nil {
		return err
	}

	return s.probes.ReplaceForFixture(ctx, key, probes)
}

func (s *FixtureService) ListNotifications(ctx context.Context, params repository.NotificationListParams) ([]domain.NotificationRecord, int64, error) {
	return s.records.List(ctx, params)
}

func (s *FixtureService) NotificationSummary(ctx context.Context, plant string) ([]repository.TierStatusCount, error) {
	plant = strings.TrimSpace(plant)
	if plant == "" {
		return nil, fmt.Errorf("%w: plant is required", domain.ErrValidation)
	}

	return s.records.StatusSummary(ctx, plant)
}

func (s *FixtureService) UpsertGroupMember(ctx context.Context, member *domain.GroupMember) error {
	if member == nil {
		return fmt.Errorf("%w: member payload is required", domain.ErrValidation)
	}

	member.Plant = strings.TrimSpace(member.Plant)
	member.Email = strings.TrimSpace(member.Email)
	member.DisplayName = strings.TrimSpace(member.DisplayName)

	if err := member.Validate(); err != nil {
		return err
	}

	return s.directory.UpsertMember(ctx, member)
}

func (s *FixtureService) ListGroupMembers(ctx context.Context, plant string, role domain.Role) ([]domain.GroupMember, error) {
	plant = strings.TrimSpace(plant)
	if plant == "" {
		return nil, fmt.Errorf("%w: plant is required", domain.ErrValidation)
	}
	if !role.IsValid() {
		return nil, fmt.Errorf("%w: unknown role %q", domain.ErrValidation, string(role))
	}

	return s.directory.ListMembers(ctx, plant, role)
}
