// Package http provides HTTP handlers for tenant invitations.
package http

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/allisson/fieldcrypt/internal/httputil"
	"github.com/allisson/fieldcrypt/internal/invitation/http/dto"
	"github.com/allisson/fieldcrypt/internal/invitation/usecase"
	customValidation "github.com/allisson/fieldcrypt/internal/validation"
)

// InvitationHandler handles invitation HTTP requests.
type InvitationHandler struct {
	invitationUseCase usecase.InvitationUseCase
	logger            *slog.Logger
}

// NewInvitationHandler creates a new InvitationHandler.
func NewInvitationHandler(invitationUseCase usecase.InvitationUseCase, logger *slog.Logger) *InvitationHandler {
	return &InvitationHandler{
		invitationUseCase: invitationUseCase,
		logger:            logger,
	}
}

// CreateHandler issues an invitation.
// POST /v1/invitations - Returns 201 Created with the token.
func (h *InvitationHandler) CreateHandler(c *gin.Context) {
	var req dto.CreateInvitationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.HandleBadRequestGin(c, err, h.logger)
		return
	}

	if err := req.Validate(); err != nil {
		httputil.HandleValidationErrorGin(c, customValidation.WrapValidationError(err), h.logger)
		return
	}

	input, err := dto.ToCreateInvitationInput(req)
	if err != nil {
		httputil.HandleValidationErrorGin(c, err, h.logger)
		return
	}

	inv, token, err := h.invitationUseCase.Create(c.Request.Context(), input)
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.JSON(http.StatusCreated, dto.CreateInvitationResponse{
		InvitationResponse: dto.MapInvitationToResponse(inv),
		Token:              token,
	})
}

// AcceptHandler accepts an invitation by token.
// POST /v1/invitations/accept
func (h *InvitationHandler) AcceptHandler(c *gin.Context) {
	var req dto.AcceptInvitationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.HandleBadRequestGin(c, err, h.logger)
		return
	}

	if err := req.Validate(); err != nil {
		httputil.HandleValidationErrorGin(c, customValidation.WrapValidationError(err), h.logger)
		return
	}

	inv, err := h.invitationUseCase.Accept(c.Request.Context(), req.Token)
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.JSON(http.StatusOK, dto.MapInvitationToResponse(inv))
}

// ListHandler lists the pending invitations of a tenant.
// GET /v1/invitations?tenant_id=...&offset=0&limit=50
func (h *InvitationHandler) ListHandler(c *gin.Context) {
	tenantID, err := uuid.Parse(c.Query("tenant_id"))
	if err != nil {
		httputil.HandleBadRequestGin(c, fmt.Errorf("invalid tenant_id: %w", err), h.logger)
		return
	}

	page, err := httputil.ParsePage(c, httputil.InvitationPageLimits)
	if err != nil {
		httputil.HandleBadRequestGin(c, err, h.logger)
		return
	}

	invitations, err := h.invitationUseCase.ListPending(c.Request.Context(), tenantID, page.Offset, page.Limit)
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.JSON(http.StatusOK, dto.MapInvitationsToListResponse(invitations))
}
