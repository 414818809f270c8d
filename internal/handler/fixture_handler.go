package handler

import (
	"fmt"
	"time"

	"github.com/fixtureops/contact-monitor/internal/domain"
	"github.com/fixtureops/contact-monitor/internal/repository"
	"github.com/fixtureops/contact-monitor/internal/service"
	"github.com/gofiber/fiber/v2"
)

type FixtureHandler struct {
	service *service.FixtureService
}

func NewFixtureHandler(svc *service.FixtureService) (*FixtureHandler, error) {
	if svc == nil {
		return nil, fmt.Errorf("fixture service is required")
	}
	return &FixtureHandler{service: svc}, nil
}

func (h *FixtureHandler) RegisterRoutes(app *fiber.App) {
	v1 := app.Group("/v1")

	v1.Post("/fixtures", h.createFixture)
	v1.Get("/fixtures", h.listFixtures)
	v1.Get("/fixtures/:plant/:adapterCode/:fixtureType", h.getFixture)
	v1.Post("/fixtures/:plant/:adapterCode/:fixtureType/contacts", h.addContacts)
	v1.Post("/fixtures/:plant/:adapterCode/:fixtureType/reset", h.resetFixture)
	v1.Put("/fixtures/:plant/:adapterCode/:fixtureType/probes", h.replaceProbes)

	v1.Get("/notifications", h.listNotifications)
	v1.Get("/notifications/summary", h.notificationSummary)

	v1.Post("/groups/members", h.upsertGroupMember)
	v1.Get("/plants/:plant/groups/:role", h.listGroupMembers)
}

type probePayload struct {
	PartNumber string `json:"partNumber"`
	Qty        int    `json:"qty"`
}

type createFixtureRequest struct {
	Plant         string         `json:"plant"`
	AdapterCode   string         `json:"adapterCode"`
	FixtureType   string         `json:"fixtureType"`
	ProjectName   string         `json:"projectName"`
	OwnerEmail    string         `json:"ownerEmail"`
	WarningAt     *int           `json:"warningAt"`
	ContactsLimit *int           `json:"contactsLimit"`
	Probes        []probePayload `json:"probes"`
}

type fixtureResponse struct {
	Plant         string         `json:"plant"`
	AdapterCode   string         `json:"adapterCode"`
	FixtureType   string         `json:"fixtureType"`
	ProjectName   string         `json:"projectName"`
	OwnerEmail    string         `json:"ownerEmail"`
	Contacts      int            `json:"contacts"`
	WarningAt     *int           `json:"warningAt,omitempty"`
	ContactsLimit *int           `json:"contactsLimit,omitempty"`
	Probes        []probePayload `json:"probes,omitempty"`
}

func toFixtureResponse(f *domain.Fixture, probes []domain.Probe) fixtureResponse {
	resp := fixtureResponse{
		Plant:         f.Plant,
		AdapterCode:   f.AdapterCode,
		FixtureType:   f.FixtureType,
		ProjectName:   f.ProjectName,
		OwnerEmail:    f.OwnerEmail,
		Contacts:      f.Contacts,
		WarningAt:     f.WarningAt,
		ContactsLimit: f.ContactsLimit,
	}
	for _, p := range probes {
		resp.Probes = append(resp.Probes, probePayload{PartNumber: p.PartNumber, Qty: p.Qty})
	}
	return resp
}

func keyFromParams(c *fiber.Ctx) domain.FixtureKey {
	return domain.FixtureKey{
		Plant:       c.Params("plant"),
		AdapterCode: c.Params("adapterCode"),
		FixtureType: c.Params("fixtureType"),
	}
}

func (h *FixtureHandler) createFixture(c *fiber.Ctx) error {
	var req createFixtureRequest
	if err := c.BodyParser(&req); err != nil {
		return fmt.Errorf("%w: %s", domain.ErrValidation, err.Error())
	}

	fixture := &domain.Fixture{
		Plant:         req.Plant,
		AdapterCode:   req.AdapterCode,
		FixtureType:   req.FixtureType,
		ProjectName:   req.ProjectName,
		OwnerEmail:    req.OwnerEmail,
		WarningAt:     req.WarningAt,
		ContactsLimit: req.ContactsLimit,
	}

	probes := make([]domain.Probe, 0, len(req.Probes))
	for _, p := range req.Probes {
		probes = append(probes, domain.Probe{PartNumber: p.PartNumber, Qty: p.Qty})
	}

	created, err := h.service.Register(c.UserContext(), fixture, probes)
	if err != nil {
		return err
	}

	return c.Status(fiber.StatusCreated).JSON(toFixtureResponse(created, probes))
}

func (h *FixtureHandler) getFixture(c *fiber.Ctx) error {
	fixture, probes, err := h.service.GetByKey(c.UserContext(), keyFromParams(c))
	if err != nil {
		return err
	}

	return c.JSON(toFixtureResponse(fixture, probes))
}

func (h *FixtureHandler) listFixtures(c *fiber.Ctx) error {
	params := repository.FixtureListParams{
		Page:     c.QueryInt("page", 1),
		PageSize: c.QueryInt("pageSize", 50),
	}
	if plant := c.Query("plant"); plant != "" {
		params.Plant = &plant
	}

	fixtures, total, err := h.service.List(c.UserContext(), params)
	if err != nil {
		return err
	}

	items := make([]fixtureResponse, 0, len(fixtures))
	for i := range fixtures {
		items = append(items, toFixtureResponse(&fixtures[i], nil))
	}

	return c.JSON(fiber.Map{
		"items":    items,
		"total":    total,
		"page":     params.Page,
		"pageSize": params.PageSize,
	})
}

type addContactsRequest struct {
	Delta int `json:"delta"`
}

func (h *FixtureHandler) addContacts(c *fiber.Ctx) error {
	var req addContactsRequest
	if err := c.BodyParser(&req); err != nil {
		return fmt.Errorf("%w: %s", domain.ErrValidation, err.Error())
	}

	updated, err := h.service.AddContacts(c.UserContext(), keyFromParams(c), req.Delta)
	if err != nil {
		return err
	}

	return c.JSON(toFixtureResponse(updated, nil))
}

func (h *FixtureHandler) resetFixture(c *fiber.Ctx) error {
	if err := h.service.Reset(c.UserContext(), keyFromParams(c)); err != nil {
		return err
	}

	return c.SendStatus(fiber.StatusNoContent)
}

type replaceProbesRequest struct {
	Probes []probePayload `json:"probes"`
}

func (h *FixtureHandler) replaceProbes(c *fiber.Ctx) error {
	var req replaceProbesRequest
	if err := c.BodyParser(&req); err != nil {
		return fmt.Errorf("%w: %s", domain.ErrValidation, err.Error())
	}

	probes := make([]domain.Probe, 0, len(req.Probes))
	for _, p := range req.Probes {
		probes = append(probes, domain.Probe{PartNumber: p.PartNumber, Qty: p.Qty})
	}

	if err := h.service.ReplaceProbes(c.UserContext(), keyFromParams(c), probes); err != nil {
		return err
	}

	return c.SendStatus(fiber.StatusNoContent)
}

type notificationResponse struct {
	ID          string    `json:"id"`
	Plant       string    `json:"plant"`
	AdapterCode string    `json:"adapterCode"`
	FixtureType string    `json:"fixtureType"`
	IssueType   string    `json:"issueType"`
	Status      string    `json:"status"`
	Recipient   string    `json:"recipient"`
	CreatedAt   time.Time `json:"createdAt"`
}

func (h *FixtureHandler) listNotifications(c *fiber.Ctx) error {
	params := repository.NotificationListParams{
		Page:     c.QueryInt("page", 1),
		PageSize: c.QueryInt("pageSize", 50),
	}
	if plant := c.Query("plant"); plant != "" {
		params.Plant = &plant
	}
	if raw := c.Query("issueType"); raw != "" {
		issueType, err := domain.ParseIssueTypeFromString(raw)
		if err != nil {
			return err
		}
		params.IssueType = &issueType
	}
	if raw := c.Query("status"); raw != "" {
		status, err := domain.ParseDeliveryStatusFromString(raw)
		if err != nil {
			return err
		}
		params.Status = &status
	}

	records, total, err := h.service.ListNotifications(c.UserContext(), params)
	if err != nil {
		return err
	}

	items := make([]notificationResponse, 0, len(records))
	for _, r := range records {
		items = append(items, notificationResponse{
			ID:          r.ID,
			Plant:       r.Plant,
			AdapterCode: r.AdapterCode,
			FixtureType: r.FixtureType,
			IssueType:   r.IssueType.String(),
			Status:      r.Status.String(),
			Recipient:   r.Recipient,
			CreatedAt:   r.CreatedAt,
		})
	}

	return c.JSON(fiber.Map{
		"items":    items,
		"total":    total,
		"page":     params.Page,
		"pageSize": params.PageSize,
	})
}

func (h *FixtureHandler) notificationSummary(c *fiber.Ctx) error {
	summary, err := h.service.NotificationSummary(c.UserContext(), c.Query("plant"))
	if err != nil {
		return err
	}

	items := make([]fiber.Map, 0, len(summary))
	for _, row := range summary {
		items = append(items, fiber.Map{
			"issueType": row.IssueType.String(),
			"status":    row.Status.String(),
			"count":     row.Count,
		})
	}

	return c.JSON(fiber.Map{"items": items})
}

type upsertGroupMemberRequest struct {
	Plant       string `json:"plant"`
	Role        string `json:"role"`
	Email       string `json:"email"`
	DisplayName string `json:"displayName"`
}

func (h *FixtureHandler) upsertGroupMember(c *fiber.Ctx) error {
	var req upsertGroupMemberRequest
	if err := c.BodyParser(&req); err != nil {
		return fmt.Errorf("%w: %s", domain.ErrValidation, err.Error())
	}

	role, err := domain.ParseRoleFromString(req.Role)
	if err != nil {
		return err
	}

	member := &domain.GroupMember{
		Plant:       req.Plant,
		Role:        role,
		Email:       req.Email,
		DisplayName: req.DisplayName,
	}
	if err := h.service.UpsertGroupMember(c.UserContext(), member); err != nil {
		return err
	}

	return c.SendStatus(fiber.StatusNoContent)
}

func (h *FixtureHandler) listGroupMembers(c *fiber.Ctx) error {
	role, err := domain.ParseRoleFromString(c.Params("role"))
	if err != nil {
		return err
	}

	members, err := h.service.ListGroupMembers(c.UserContext(), c.Params("plant"), role)
	if err != nil {
		return err
	}

	items := make([]fiber.Map, 0, len(members))
	for _, m := range members {
		items = append(items, fiber.Map{
			"plant":       m.Plant,
			"role":        m.Role.String(),
			"email":       m.Email,
			"displayName": m.DisplayName,
		})
	}

	return c.JSON(fiber.Map{"items": items})
}
