package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/fixtureops/contact-monitor/internal/domain"
	"github.com/fixtureops/contact-monitor/internal/repository"
	"github.com/fixtureops/contact-monitor/internal/service"
	"github.com/fixtureops/contact-monitor/internal/transport"
	"github.com/gofiber/fiber/v2"
)

type stubFixtureRepo struct {
	createFn      func(ctx context.Context, f *domain.Fixture) error
	getByKeyFn    func(ctx context.Context, key domain.FixtureKey) (*domain.Fixture, error)
	listFn        func(ctx context.Context, params repository.FixtureListParams) ([]domain.Fixture, int64, error)
	addContactsFn func(ctx context.Context, key domain.FixtureKey, delta int) (*domain.Fixture, error)
	resetFn       func(ctx context.Context, key domain.FixtureKey) error
}

func (s *stubFixtureRepo) Create(ctx context.Context, f *domain.Fixture) error {
	if s.createFn != nil {
		return s.createFn(ctx, f)
	}
	return nil
}

func (s *stubFixtureRepo) GetByKey(ctx context.Context, key domain.FixtureKey) (*domain.Fixture, error) {
	if s.getByKeyFn != nil {
		return s.getByKeyFn(ctx, key)
	}
	return nil, domain.ErrNotFound
}

func (s *stubFixtureRepo) List(ctx context.Context, params repository.FixtureListParams) ([]domain.Fixture, int64, error) {
	if s.listFn != nil {
		return s.listFn(ctx, params)
	}
	return nil, 0, nil
}

func (s *stubFixtureRepo) AddContacts(ctx context.Context, key domain.FixtureKey, delta int) (*domain.Fixture, error) {
	if s.addContactsFn != nil {
		return s.addContactsFn(ctx, key, delta)
	}
	return nil, domain.ErrNotFound
}

func (s *stubFixtureRepo) Reset(ctx context.Context, key domain.FixtureKey) error {
	if s.resetFn != nil {
		return s.resetFn(ctx, key)
	}
	return nil
}

func (s *stubFixtureRepo) FindWarningCandidates(ctx context.Context, cooldownCutoff time.Time) ([]domain.Fixture, error) {
	return nil, nil
}

func (s *stubFixtureRepo) FindLimitCandidates(ctx context.Context, cooldownCutoff time.Time) ([]domain.Fixture, error) {
	return nil, nil
}

type stubNotificationLogRepo struct {
	listFn func(ctx context.Context, params repository.NotificationListParams) ([]domain.NotificationRecord, int64, error)
}

func (s *stubNotificationLogRepo) Append(ctx context.Context, record *domain.NotificationRecord) error {
	return nil
}

func (s *stubNotificationLogRepo) List(ctx context.Context, params repository.NotificationListParams) ([]domain.NotificationRecord, int64, error) {
	if s.listFn != nil {
		return s.listFn(ctx, params)
	}
	return nil, 0, nil
}

func (s *stubNotificationLogRepo) StatusSummary(ctx context.Context, plant string) ([]repository.TierStatusCount, error) {
	return nil, nil
}

type stubDirectoryRepo struct{}

func (stubDirectoryRepo) EmailsForPlantRole(ctx context.Context, plant string, role domain.Role) ([]string, error) {
	return nil, nil
}

func (stubDirectoryRepo) OwnerDisplayName(ctx context.Context, email string) (string, error) {
	return "", domain.ErrNotFound
}

func (stubDirectoryRepo) UpsertMember(ctx context.Context, member *domain.GroupMember) error {
	return nil
}

func (stubDirectoryRepo) ListMembers(ctx context.Context, plant string, role domain.Role) ([]domain.GroupMember, error) {
	return nil, nil
}

type stubProbeRepo struct {
	probesForFixtureFn func(ctx context.Context, key domain.FixtureKey) ([]domain.Probe, error)
}

func (s *stubProbeRepo) ProbesForFixture(ctx context.Context, key domain.FixtureKey) ([]domain.Probe, error) {
	if s.probesForFixtureFn != nil {
		return s.probesForFixtureFn(ctx, key)
	}
	return nil, nil
}

func (s *stubProbeRepo) ReplaceForFixture(ctx context.Context, key domain.FixtureKey, probes []domain.Probe) error {
	return nil
}

func newFixtureTestApp(t *testing.T, fixtures repository.FixtureRepository, records repository.NotificationLogRepository, probes repository.ProbeRepository) *fiber.App {
	t.Helper()

	svc, err := service.NewFixtureService(fixtures, records, stubDirectoryRepo{}, probes, nil)
	if err != nil {
		t.Fatalf("NewFixtureService() error = %v", err)
	}

	h, err := NewFixtureHandler(svc)
	if err != nil {
		t.Fatalf("NewFixtureHandler() error = %v", err)
	}

	app := fiber.New(fiber.Config{ErrorHandler: transport.ErrorHandler(nil)})
	h.RegisterRoutes(app)
	return app
}

func TestFixtureHandlerCreate(t *testing.T) {
	t.Parallel()

	fixtures := &stubFixtureRepo{}
	app := newFixtureTestApp(t, fixtures, &stubNotificationLogRepo{}, &stubProbeRepo{})

	body, _ := json.Marshal(createFixtureRequest{
		Plant:       "4600",
		AdapterCode: "A-100",
		FixtureType: "ICT",
		OwnerEmail:  "owner@corp.example",
		WarningAt:   intPtr(900),
		Probes:      []probePayload{{PartNumber: "P-1", Qty: 4}},
	})

	req := httptest.NewRequest(fiber.MethodPost, "/v1/fixtures", bytes.NewReader(body))
	req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)

	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test() error = %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != fiber.StatusCreated {
		t.Fatalf("status = %d, want 201", resp.StatusCode)
	}

	var created fixtureResponse
	if err := json.NewDecoder(resp.Body).Decode(&created); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if created.Plant != "4600" || created.AdapterCode != "A-100" {
		t.Errorf("unexpected body: %+v", created)
	}
	if len(created.Probes) != 1 {
		t.Errorf("probes = %v, want 1 entry", created.Probes)
	}
}

func TestFixtureHandlerCreateValidation(t *testing.T) {
	t.Parallel()

	app := newFixtureTestApp(t, &stubFixtureRepo{}, &stubNotificationLogRepo{}, &stubProbeRepo{})

	body, _ := json.Marshal(createFixtureRequest{Plant: "4600"})
	req := httptest.NewRequest(fiber.MethodPost, "/v1/fixtures", bytes.NewReader(body))
	req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)

	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test() error = %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != fiber.StatusBadRequest {
		t.Errorf("status = %d, want 400", resp.StatusCode)
	}
}

func TestFixtureHandlerGet(t *testing.T) {
	t.Parallel()

	fixtures := &stubFixtureRepo{
		getByKeyFn: func(ctx context.Context, key domain.FixtureKey) (*domain.Fixture, error) {
			return &domain.Fixture{
				Plant:       key.Plant,
				AdapterCode: key.AdapterCode,
				FixtureType: key.FixtureType,
				OwnerEmail:  "owner@corp.example",
				Contacts:    950,
				WarningAt:   intPtr(900),
			}, nil
		},
	}
	probes := &stubProbeRepo{
		probesForFixtureFn: func(ctx context.Context, key domain.FixtureKey) ([]domain.Probe, error) {
			return []domain.Probe{{PartNumber: "P-1", Qty: 4}}, nil
		},
	}
	app := newFixtureTestApp(t, fixtures, &stubNotificationLogRepo{}, probes)

	resp, err := app.Test(httptest.NewRequest(fiber.MethodGet, "/v1/fixtures/4600/A-100/ICT", nil))
	if err != nil {
		t.Fatalf("app.Test() error = %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}

	var body fixtureResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if body.Contacts != 950 || len(body.Probes) != 1 {
		t.Errorf("unexpected body: %+v", body)
	}
}

func TestFixtureHandlerGetNotFound(t *testing.T) {
	t.Parallel()

	app := newFixtureTestApp(t, &stubFixtureRepo{}, &stubNotificationLogRepo{}, &stubProbeRepo{})

	resp, err := app.Test(httptest.NewRequest(fiber.MethodGet, "/v1/fixtures/4600/A-100/ICT", nil))
	if err != nil {
		t.Fatalf("app.Test() error = %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != fiber.StatusNotFound {
		t.Errorf("status = %d, want 404", resp.StatusCode)
	}
}

func TestFixtureHandlerAddContacts(t *testing.T) {
	t.Parallel()

	fixtures := &stubFixtureRepo{
		addContactsFn: func(ctx context.Context, key domain.FixtureKey, delta int) (*domain.Fixture, error) {
			return &domain.Fixture{
				Plant:       key.Plant,
				AdapterCode: key.AdapterCode,
				FixtureType: key.FixtureType,
				Contacts:    100 + delta,
			}, nil
		},
	}
	app := newFixtureTestApp(t, fixtures, &stubNotificationLogRepo{}, &stubProbeRepo{})

	body, _ := json.Marshal(addContactsRequest{Delta: 25})
	req := httptest.NewRequest(fiber.MethodPost, "/v1/fixtures/4600/A-100/ICT/contacts", bytes.NewReader(body))
	req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)

	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test() error = %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}

	var updated fixtureResponse
	if err := json.NewDecoder(resp.Body).Decode(&updated); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if updated.Contacts != 125 {
		t.Errorf("contacts = %d, want 125", updated.Contacts)
	}
}

func TestFixtureHandlerAddContactsRejectsNonPositiveDelta(t *testing.T) {
	t.Parallel()

	app := newFixtureTestApp(t, &stubFixtureRepo{}, &stubNotificationLogRepo{}, &stubProbeRepo{})

	body, _ := json.Marshal(addContactsRequest{Delta: 0})
	req := httptest.NewRequest(fiber.MethodPost, "/v1/fixtures/4600/A-100/ICT/contacts", bytes.NewReader(body))
	req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)

	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test() error = %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != fiber.StatusBadRequest {
		t.Errorf("status = %d, want 400", resp.StatusCode)
	}
}

func TestFixtureHandlerReset(t *testing.T) {
	t.Parallel()

	resetCalls := 0
	fixtures := &stubFixtureRepo{
		resetFn: func(ctx context.Context, key domain.FixtureKey) error {
			resetCalls++
			return nil
		},
	}
	app := newFixtureTestApp(t, fixtures, &stubNotificationLogRepo{}, &stubProbeRepo{})

	resp, err := app.Test(httptest.NewRequest(fiber.MethodPost, "/v1/fixtures/4600/A-100/ICT/reset", nil))
	if err != nil {
		t.Fatalf("app.Test() error = %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != fiber.StatusNoContent {
		t.Errorf("status = %d, want 204", resp.StatusCode)
	}
	if resetCalls != 1 {
		t.Errorf("reset calls = %d, want 1", resetCalls)
	}
}

func TestFixtureHandlerListNotifications(t *testing.T) {
	t.Parallel()

	records := &stubNotificationLogRepo{
		listFn: func(ctx context.Context, params repository.NotificationListParams) ([]domain.NotificationRecord, int64, error) {
			if params.IssueType == nil || *params.IssueType != domain.IssueLimit {
				t.Errorf("issueType filter = %v, want LIMIT", params.IssueType)
			}
			return []domain.NotificationRecord{
				{
					ID:          "n-1",
					Plant:       "4600",
					AdapterCode: "A-100",
					FixtureType: "ICT",
					IssueType:   domain.IssueLimit,
					Status:      domain.DeliverySent,
					Recipient:   "owner@corp.example",
					CreatedAt:   time.Date(2026, time.March, 10, 12, 0, 0, 0, time.UTC),
				},
			}, 1, nil
		},
	}
	app := newFixtureTestApp(t, &stubFixtureRepo{}, records, &stubProbeRepo{})

	resp, err := app.Test(httptest.NewRequest(fiber.MethodGet, "/v1/notifications?issueType=limit", nil))
	if err != nil {
		t.Fatalf("app.Test() error = %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}

	var body struct {
		Items []notificationResponse `json:"items"`
		Total int64                  `json:"total"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if body.Total != 1 || len(body.Items) != 1 || body.Items[0].IssueType != "LIMIT" {
		t.Errorf("unexpected body: %+v", body)
	}
}

func TestFixtureHandlerUpsertGroupMember(t *testing.T) {
	t.Parallel()

	app := newFixtureTestApp(t, &stubFixtureRepo{}, &stubNotificationLogRepo{}, &stubProbeRepo{})

	body, _ := json.Marshal(upsertGroupMemberRequest{
		Plant: "4600",
		Role:  "TECHNICIAN",
		Email: "tech@corp.example",
	})
	req := httptest.NewRequest(fiber.MethodPost, "/v1/groups/members", bytes.NewReader(body))
	req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)

	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test() error = %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != fiber.StatusNoContent {
		t.Errorf("status = %d, want 204", resp.StatusCode)
	}

	bad, _ := json.Marshal(upsertGroupMemberRequest{Plant: "4600", Role: "manager", Email: "x@corp.example"})
	badReq := httptest.NewRequest(fiber.MethodPost, "/v1/groups/members", bytes.NewReader(bad))
	badReq.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)

	badResp, err := app.Test(badReq)
	if err != nil {
		t.Fatalf("app.Test() error = %v", err)
	}
	defer badResp.Body.Close()

	if badResp.StatusCode != fiber.StatusBadRequest {
		t.Errorf("status = %d, want 400 for unknown role", badResp.StatusCode)
	}
}

func intPtr(v int) *int { return &v }
