package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/geethasandesh/articket/internal/api/dto"
	"github.com/geethasandesh/articket/internal/auth"
	"github.com/geethasandesh/articket/internal/service"
	apperrors "github.com/geethasandesh/articket/pkg/util"
)

// AssignmentsHandler manages ticket assignment endpoints.
type AssignmentsHandler struct {
	service *service.AssignmentService
}

// NewAssignmentsHandler constructs handler.
func NewAssignmentsHandler(assignmentService *service.AssignmentService) *AssignmentsHandler {
	return &AssignmentsHandler{service: assignmentService}
}

// Assign POST /tickets/:id/assignee.
func (h *AssignmentsHandler) Assign(c *fiber.Ctx) error {
	caller, ok := auth.CallerFromCtx(c)
	if !ok {
		return apperrors.NewUnauthorized("caller required")
	}
	var req dto.AssignRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if req.AssigneeEmail == "" {
		return apperrors.NewValidationError("assignee_email required", nil)
	}
	ticket, err := h.service.Assign(c.UserContext(), caller, c.Params("id"), req.AssigneeEmail)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": ticketDetail(ticket)})
}

// Unassign DELETE /tickets/:id/assignee.
func (h *AssignmentsHandler) Unassign(c *fiber.Ctx) error {
	caller, ok := auth.CallerFromCtx(c)
	if !ok {
		return apperrors.NewUnauthorized("caller required")
	}
	ticket, err := h.service.Unassign(c.UserContext(), caller, c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": ticketDetail(ticket)})
}
