package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/fixtureops/contact-monitor/internal/domain"
	"github.com/fixtureops/contact-monitor/internal/mailer"
	"github.com/fixtureops/contact-monitor/internal/observability"
	"github.com/fixtureops/contact-monitor/internal/queue"
	"github.com/fixtureops/contact-monitor/internal/ratelimit"
	"github.com/fixtureops/contact-monitor/internal/repository"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const defaultMaxEmailsPerRun = 1000

// Monitor is the threshold-crossing notification engine. One Run scans
// warning candidates, then limit candidates, and dispatches at most one
// notification per qualifying fixture per tier. All idempotency state
// lives in the notification log; the monitor itself is stateless between
// runs. The deployment must guarantee at most one concurrent Run (the
// trigger handler holds an advisory lock for this).
type Monitor struct {
	fixtures  repository.FixtureRepository
	records   repository.NotificationLogRepository
	directory repository.DirectoryRepository
	probes    repository.ProbeRepository
	notifier  mailer.Notifier
	limiter   ratelimit.RateLimiter
	audit     queue.Publisher
	logger    *zap.Logger
	metrics   *observability.Metrics

	windowHours     int
	maxEmailsPerRun int
	now             func() time.Time
}

func NewMonitor(
	fixtures repository.FixtureRepository,
	records repository.NotificationLogRepository,
	directory repository.DirectoryRepository,
	probes repository.ProbeRepository,
	notifier mailer.Notifier,
	limiter ratelimit.RateLimiter,
	audit queue.Publisher,
	metrics *observability.Metrics,
	windowHours int,
	maxEmailsPerRun int,
	logger *zap.Logger,
) (*Monitor, error) {
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
	if notifier == nil {
		return nil, fmt.Errorf("notifier is required")
	}
	if audit == nil {
		audit = queue.NopPublisher{}
	}
	if maxEmailsPerRun <= 0 {
		maxEmailsPerRun = defaultMaxEmailsPerRun
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Monitor{
		fixtures:        fixtures,
		records:         records,
		directory:       directory,
		probes:          probes,
		notifier:        notifier,
		limiter:         limiter,
		audit:           audit,
		metrics:         metrics,
		logger:          logger,
		windowHours:     windowHours,
		maxEmailsPerRun: maxEmailsPerRun,
		now:             time.Now,
	}, nil
}

// runState carries the per-invocation send budget and lookup caches. It is
// created at the start of Run and discarded with it; nothing here survives
// across runs.
type runState struct {
	attempted   int
	groupEmails map[string][]string
	ownerNames  map[string]string
	probeLists  map[domain.FixtureKey][]domain.Probe
}

func newRunState() *runState {
	return &runState{
		groupEmails: make(map[string][]string),
		ownerNames:  make(map[string]string),
		probeLists:  make(map[domain.FixtureKey][]domain.Probe),
	}
}

// tierPolicy parameterizes one pass so the warning and limit tiers share a
// single scan/dispatch path instead of drifting apart as siblings.
type tierPolicy struct {
	issue      domain.IssueType
	candidates func(ctx context.Context, cooldownCutoff time.Time) ([]domain.Fixture, error)
	threshold  func(f domain.Fixture) int
	ccRoles    func(f domain.Fixture) []domain.Role
	send       func(ctx context.Context, msg mailer.Message) error
}

func (m *Monitor) warningPolicy() tierPolicy {
	return tierPolicy{
		issue:      domain.IssueWarning,
		candidates: m.fixtures.FindWarningCandidates,
		threshold: func(f domain.Fixture) int {
			if f.WarningAt != nil {
				return *f.WarningAt
			}
			return 0
		},
		ccRoles: func(domain.Fixture) []domain.Role {
			return []domain.Role{domain.RoleTechnician}
		},
		send: m.notifier.SendWarning,
	}
}

func (m *Monitor) limitPolicy() tierPolicy {
	return tierPolicy{
		issue:      domain.IssueLimit,
		candidates: m.fixtures.FindLimitCandidates,
		threshold: func(f domain.Fixture) int {
			if f.ContactsLimit != nil {
				return *f.ContactsLimit
			}
			return 0
		},
		ccRoles: func(f domain.Fixture) []domain.Role {
			roles := []domain.Role{domain.RoleTechnician}
			if f.ContactsLimit != nil && domain.CriticalOvershoot(f.Contacts, *f.ContactsLimit) {
				roles = append(roles, domain.RoleEngineer)
			}
			return roles
		},
		send: m.notifier.SendLimit,
	}
}

// Run executes one full monitor invocation: the warning pass, then the
// limit pass, in that fixed order. Only a candidate-query failure aborts
// the run; every per-candidate failure degrades into counters.
func (m *Monitor) Run(ctx context.Context) (domain.RunSummary, error) {
	if ctx == nil {
		ctx = context.Background()
	}

	runID := uuid.NewString()
	ctx = observability.WithRunID(ctx, runID)
	logger := observability.WithContextLogger(m.logger, ctx)

	start := m.now()
	cutoff := m.cooldownCutoff()
	state := newRunState()

	summary := domain.RunSummary{
		WindowHours:     m.windowHours,
		MaxEmailsPerRun: m.maxEmailsPerRun,
	}

	warning, err := m.runPass(ctx, logger, m.warningPolicy(), cutoff, state)
	if err != nil {
		m.metrics.IncMonitorRun("error")
		return domain.RunSummary{}, err
	}
	summary.Warning = warning

	limit, err := m.runPass(ctx, logger, m.limitPolicy(), cutoff, state)
	if err != nil {
		m.metrics.IncMonitorRun("error")
		return domain.RunSummary{}, err
	}
	summary.Limit = limit

	summary.EmailsSent = warning.Sent + limit.Sent

	logger.Info("monitor run finished",
		zap.Int("emailsSent", summary.EmailsSent),
		zap.Int("windowHours", summary.WindowHours),
		zap.Int("maxEmailsPerRun", summary.MaxEmailsPerRun),
		zap.Int("warningSent", warning.Sent),
		zap.Int("warningFailed", warning.Failed),
		zap.Int("warningSkippedInvalid", warning.SkippedInvalid),
		zap.Int("warningSkippedThrottled", warning.SkippedThrottled),
		zap.Int("limitSent", limit.Sent),
		zap.Int("limitFailed", limit.Failed),
		zap.Int("limitSkippedInvalid", limit.SkippedInvalid),
		zap.Int("limitSkippedThrottled", limit.SkippedThrottled),
	)

	m.metrics.IncMonitorRun("ok")
	m.metrics.ObserveRunDuration(m.now().Sub(start))

	return summary, nil
}

// cooldownCutoff converts the window into the repository's cutoff
// timestamp. A non-positive window disables the recency requirement: the
// zero time makes any post-reset SENT record suppressing, however old.
func (m *Monitor) cooldownCutoff() time.Time {
	if m.windowHours <= 0 {
		return time.Time{}
	}
	return m.now().UTC().Add(-time.Duration(m.windowHours) * time.Hour)
}

func (m *Monitor) runPass(
	ctx context.Context,
	logger *zap.Logger,
	tier tierPolicy,
	cooldownCutoff time.Time,
	state *runState,
) (domain.PassCounters, error) {
	counters := domain.PassCounters{Tier: tier.issue}

	candidates, err := tier.candidates(ctx, cooldownCutoff)
	if err != nil {
		return counters, fmt.Errorf("failed to select %s candidates: %w", tierLabel(tier.issue), err)
	}

	for i := range candidates {
		fixture := candidates[i]

		// Once the cap is hit, remaining candidates are not inspected
		// further; they all count as throttled, owner address included.
		if state.attempted >= m.maxEmailsPerRun {
			counters.SkippedThrottled++
			m.metrics.IncCandidateSkipped(tierLabel(tier.issue), "throttled")
			continue
		}

		if !domain.ValidOwnerEmail(fixture.OwnerEmail) {
			counters.SkippedInvalid++
			m.metrics.IncCandidateSkipped(tierLabel(tier.issue), "invalid_email")
			logger.Warn("candidate skipped: no usable owner address",
				zap.String("fixture", fixture.Key().String()),
				zap.String("tier", tier.issue.String()),
			)
			continue
		}

		m.dispatch(ctx, logger, tier, fixture, state, &counters)
	}

	return counters, nil
}

func (m *Monitor) dispatch(
	ctx context.Context,
	logger *zap.Logger,
	tier tierPolicy,
	fixture domain.Fixture,
	state *runState,
	counters *domain.PassCounters,
) {
	owner := strings.TrimSpace(fixture.OwnerEmail)

	msg := mailer.Message{
		To:          owner,
		CC:          m.ccList(ctx, logger, state, fixture, tier.ccRoles(fixture)),
		OwnerName:   m.ownerName(ctx, logger, state, owner),
		Plant:       fixture.Plant,
		AdapterCode: fixture.AdapterCode,
		FixtureType: fixture.FixtureType,
		ProjectName: fixture.ProjectName,
		Contacts:    fixture.Contacts,
		Threshold:   tier.threshold(fixture),
		Probes:      m.probeList(ctx, logger, state, fixture.Key()),
	}

	m.waitForRelaySlot(ctx, logger, fixture.Plant)

	sendStart := m.now()
	sendErr := tier.send(ctx, msg)
	m.metrics.ObserveMailSendDuration(tierLabel(tier.issue), m.now().Sub(sendStart))
	state.attempted++

	status := domain.DeliverySent
	if sendErr != nil {
		status = domain.DeliveryFailed
		counters.Failed++
		reason := "permanent_error"
		if mailer.IsTransient(sendErr) {
			reason = "transient_error"
		}
		m.metrics.IncEmailFailed(tierLabel(tier.issue), reason)
		logger.Error("dispatch failed",
			zap.String("fixture", fixture.Key().String()),
			zap.String("tier", tier.issue.String()),
			zap.Error(sendErr),
		)
	} else {
		counters.Sent++
		m.metrics.IncEmailSent(tierLabel(tier.issue))
	}

	record := &domain.NotificationRecord{
		ID:          uuid.NewString(),
		Plant:       fixture.Plant,
		AdapterCode: fixture.AdapterCode,
		FixtureType: fixture.FixtureType,
		IssueType:   tier.issue,
		Status:      status,
		Recipient:   owner,
		CreatedAt:   m.now().UTC(),
	}

	// The log append is what makes the next run idempotent; a failure here
	// is logged loudly but must not abort the loop.
	if err := m.records.Append(ctx, record); err != nil {
		logger.Error("failed to append notification record",
			zap.String("fixture", fixture.Key().String()),
			zap.String("tier", tier.issue.String()),
			zap.Error(err),
		)
	}

	m.publishAudit(ctx, logger, record, len(msg.CC))
}

// ccList composes the escalation CC set for one candidate: the plant role
// groups of the tier, owner excluded, de-duplicated case-insensitively.
// Directory failures degrade to an empty list and never block dispatch.
func (m *Monitor) ccList(
	ctx context.Context,
	logger *zap.Logger,
	state *runState,
	fixture domain.Fixture,
	roles []domain.Role,
) []string {
	owner := strings.ToLower(strings.TrimSpace(fixture.OwnerEmail))
	seen := make(map[string]struct{})
	cc := make([]string, 0)

	for _, role := range roles {
		for _, email := range m.groupEmails(ctx, logger, state, fixture.Plant, role) {
			normalized := strings.ToLower(strings.TrimSpace(email))
			if normalized == "" || normalized == owner {
				continue
			}
			if _, ok := seen[normalized]; ok {
				continue
			}
			seen[normalized] = struct{}{}
			cc = append(cc, strings.TrimSpace(email))
		}
	}

	return cc
}

func (m *Monitor) groupEmails(
	ctx context.Context,
	logger *zap.Logger,
	state *runState,
	plant string,
	role domain.Role,
) []string {
	cacheKey := plant + "|" + role.String()
	if cached, ok := state.groupEmails[cacheKey]; ok {
		return cached
	}

	emails, err := m.directory.EmailsForPlantRole(ctx, plant, role)
	if err != nil {
		logger.Warn("group lookup failed, continuing with empty cc",
			zap.String("plant", plant),
			zap.String("role", role.String()),
			zap.Error(err),
		)
		emails = nil
	}

	state.groupEmails[cacheKey] = emails
	return emails
}

func (m *Monitor) ownerName(
	ctx context.Context,
	logger *zap.Logger,
	state *runState,
	email string,
) string {
	if cached, ok := state.ownerNames[email]; ok {
		return cached
	}

	name, err := m.directory.OwnerDisplayName(ctx, email)
	if err != nil {
		if !errors.Is(err, domain.ErrNotFound) {
			logger.Warn("owner name lookup failed, using empty greeting",
				zap.String("email", email),
				zap.Error(err),
			)
		}
		name = ""
	}

	state.ownerNames[email] = name
	return name
}

func (m *Monitor) probeList(
	ctx context.Context,
	logger *zap.Logger,
	state *runState,
	key domain.FixtureKey,
) []domain.Probe {
	if cached, ok := state.probeLists[key]; ok {
		return cached
	}

	probes, err := m.probes.ProbesForFixture(ctx, key)
	if err != nil {
		logger.Warn("probe lookup failed, continuing with empty list",
			zap.String("fixture", key.String()),
			zap.Error(err),
		)
		probes = nil
	}

	state.probeLists[key] = probes
	return probes
}

func (m *Monitor) waitForRelaySlot(ctx context.Context, logger *zap.Logger, plant string) {
	if m.limiter == nil {
		return
	}

	if err := m.limiter.Wait(ctx, plant); err != nil {
		logger.Warn("rate limiter unavailable, dispatching without throttle",
			zap.String("plant", plant),
			zap.Error(err),
		)
	}
}

func (m *Monitor) publishAudit(
	ctx context.Context,
	logger *zap.Logger,
	record *domain.NotificationRecord,
	ccCount int,
) {
	runID, _ := observability.RunIDFromContext(ctx)
	event := queue.AuditEvent{
		NotificationID: record.ID,
		RunID:          runID,
		Plant:          record.Plant,
		AdapterCode:    record.AdapterCode,
		FixtureType:    record.FixtureType,
		IssueType:      record.IssueType,
		Status:         record.Status,
		Recipient:      record.Recipient,
		CCCount:        ccCount,
		OccurredAt:     record.CreatedAt,
	}

	if err := m.audit.Publish(ctx, event); err != nil {
		logger.Warn("audit event publish failed",
			zap.String("notificationId", record.ID),
			zap.Error(err),
		)
	}
}

func tierLabel(issue domain.IssueType) string {
	return strings.ToLower(issue.String())
}
