package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/geethasandesh/articket/internal/api/dto"
	"github.com/geethasandesh/articket/internal/auth"
	"github.com/geethasandesh/articket/internal/domain"
	"github.com/geethasandesh/articket/internal/service"
	apperrors "github.com/geethasandesh/articket/pkg/util"
)

// TicketsHandler manages ticket lifecycle endpoints.
type TicketsHandler struct {
	service *service.TicketService
}

// NewTicketsHandler constructs handler.
func NewTicketsHandler(ticketService *service.TicketService) *TicketsHandler {
	return &TicketsHandler{service: ticketService}
}

// CreateTicket POST /tickets.
func (h *TicketsHandler) CreateTicket(c *fiber.Ctx) error {
	caller, ok := auth.CallerFromCtx(c)
	if !ok {
		return apperrors.NewUnauthorized("caller required")
	}
	var req dto.CreateTicketRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}

	attachments := make([]domain.AttachmentMeta, 0, len(req.Attachments))
	for _, att := range req.Attachments {
		attachments = append(attachments, domain.AttachmentMeta{
			Name:      att.Name,
			MimeType:  att.MimeType,
			SizeBytes: att.SizeBytes,
		})
	}

	input := service.CreateTicketInput{
		Subject:      req.Subject,
		Description:  req.Description,
		Category:     req.Category,
		Priority:     req.Priority,
		Project:      req.Project,
		CustomerName: req.CustomerName,
		Attachments:  attachments,
	}
	ticket, err := h.service.CreateTicket(c.UserContext(), caller, input)
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": ticketDetail(ticket)})
}

// ListTickets GET /tickets.
func (h *TicketsHandler) ListTickets(c *fiber.Ctx) error {
	caller, ok := auth.CallerFromCtx(c)
	if !ok {
		return apperrors.NewUnauthorized("caller required")
	}
	filter := parseTicketQuery(c)
	tickets, err := h.service.ListTickets(c.UserContext(), caller, filter)
	if err != nil {
		return err
	}
	items := make([]dto.TicketSummary, 0, len(tickets))
	for i := range tickets {
		items = append(items, ticketSummary(&tickets[i]))
	}
	return c.JSON(fiber.Map{"data": items})
}

// GetTicket GET /tickets/:id.
func (h *TicketsHandler) GetTicket(c *fiber.Ctx) error {
	caller, ok := auth.CallerFromCtx(c)
	if !ok {
		return apperrors.NewUnauthorized("caller required")
	}
	ticket, err := h.service.GetTicket(c.UserContext(), caller, c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": ticketDetail(ticket)})
}

// UpdateStatus PATCH /tickets/:id/status.
func (h *TicketsHandler) UpdateStatus(c *fiber.Ctx) error {
	caller, ok := auth.CallerFromCtx(c)
	if !ok {
		return apperrors.NewUnauthorized("caller required")
	}
	var req dto.UpdateStatusRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	ticket, err := h.service.SetStatus(c.UserContext(), caller, c.Params("id"), req.Status)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": ticketDetail(ticket)})
}

// AddResponse POST /tickets/:id/responses.
func (h *TicketsHandler) AddResponse(c *fiber.Ctx) error {
	caller, ok := auth.CallerFromCtx(c)
	if !ok {
		return apperrors.NewUnauthorized("caller required")
	}
	var req dto.AddResponseRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	ticket, err := h.service.AppendResponse(c.UserContext(), caller, c.Params("id"), req.Message)
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": ticketDetail(ticket)})
}

// AdminUpdate PATCH /admin/tickets/:id.
func (h *TicketsHandler) AdminUpdate(c *fiber.Ctx) error {
	caller, ok := auth.CallerFromCtx(c)
	if !ok {
		return apperrors.NewUnauthorized("caller required")
	}
	var req dto.AdminUpdateRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	input := service.AdminUpdateInput{
		Status:   req.Status,
		Priority: req.Priority,
		Starred:  req.Starred,
	}
	ticket, err := h.service.AdminUpdate(c.UserContext(), caller, c.Params("id"), input)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": ticketDetail(ticket)})
}

// DeleteTicket DELETE /admin/tickets/:id.
func (h *TicketsHandler) DeleteTicket(c *fiber.Ctx) error {
	caller, ok := auth.CallerFromCtx(c)
	if !ok {
		return apperrors.NewUnauthorized("caller required")
	}
	if err := h.service.DeleteTicket(c.UserContext(), caller, c.Params("id")); err != nil {
		return err
	}
	return c.SendStatus(http.StatusNoContent)
}

func parseTicketQuery(c *fiber.Ctx) service.ListFilter {
	filter := service.ListFilter{}
	if statusStr := c.Query("status"); statusStr != "" {
		for _, part := range strings.Split(statusStr, ",") {
			filter.Statuses = append(filter.Statuses, domain.TicketStatus(strings.TrimSpace(part)))
		}
	}
	if priorityStr := c.Query("priority"); priorityStr != "" {
		for _, part := range strings.Split(priorityStr, ",") {
			filter.Priorities = append(filter.Priorities, domain.TicketPriority(strings.TrimSpace(part)))
		}
	}
	if project := c.Query("project"); project != "" {
		filter.Project = &project
	}
	if starredStr := c.Query("starred"); starredStr != "" {
		if starred, err := strconv.ParseBool(starredStr); err == nil {
			filter.Starred = &starred
		}
	}
	if search := strings.TrimSpace(c.Query("search")); search != "" {
		filter.SearchTerm = &search
	}
	page := parseInt(c.Query("page"), 1)
	pageSize := parseInt(c.Query("page_size"), 50)
	filter.Offset = (page - 1) * pageSize
	filter.Limit = pageSize
	return filter
}

func parseInt(val string, def int) int {
	if val == "" {
		return def
	}
	parsed, err := strconv.Atoi(val)
	if err != nil || parsed <= 0 {
		return def
	}
	return parsed
}

func ticketSummary(ticket *domain.Ticket) dto.TicketSummary {
	return dto.TicketSummary{
		ID:           ticket.ID,
		TicketNumber: ticket.TicketNumber,
		Subject:      ticket.Subject,
		Category:     ticket.Category,
		Priority:     ticket.Priority,
		Project:      ticket.Project,
		Status:       ticket.Status,
		CustomerName: ticket.CustomerName,
		Starred:      ticket.Starred,
		AssignedTo:   assigneeResponse(ticket.AssignedTo),
		CreatedAt:    ticket.CreatedAt,
		LastUpdated:  ticket.LastUpdated,
	}
}

func ticketDetail(ticket *domain.Ticket) dto.TicketDetailResponse {
	attachments := make([]dto.AttachmentResponse, 0, len(ticket.Attachments))
	for _, att := range ticket.Attachments {
		attachments = append(attachments, dto.AttachmentResponse{
			Name:      att.Name,
			MimeType:  att.MimeType,
			SizeBytes: att.SizeBytes,
		})
	}
	responses := make([]dto.ResponseEntry, 0, len(ticket.Responses))
	for i := range ticket.Responses {
		responses = append(responses, responseEntry(&ticket.Responses[i]))
	}
	return dto.TicketDetailResponse{
		TicketSummary:   ticketSummary(ticket),
		Description:     ticket.Description,
		CreatedByEmail:  ticket.CreatedByEmail,
		CreatedByRole:   ticket.CreatedByRole,
		AssignedByEmail: ticket.AssignedByEmail,
		Attachments:     attachments,
		Responses:       responses,
	}
}

func assigneeResponse(assignee *domain.Assignee) *dto.AssigneeResponse {
	if assignee == nil {
		return nil
	}
	return &dto.AssigneeResponse{Name: assignee.Name, Email: assignee.Email}
}

func responseEntry(entry *domain.Response) dto.ResponseEntry {
	return dto.ResponseEntry{
		Message:     entry.Message,
		AuthorEmail: entry.AuthorEmail,
		AuthorRole:  entry.AuthorRole,
		CreatedAt:   entry.CreatedAt,
	}
}
