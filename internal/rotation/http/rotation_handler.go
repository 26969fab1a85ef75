// Package http provides the admin HTTP endpoints of key rotation.
package http

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/allisson/fieldcrypt/internal/httputil"
	keysDomain "github.com/allisson/fieldcrypt/internal/keys/domain"
	rotationDomain "github.com/allisson/fieldcrypt/internal/rotation/domain"
	"github.com/allisson/fieldcrypt/internal/rotation/http/dto"
	"github.com/allisson/fieldcrypt/internal/rotation/usecase"
)

// RotationHandler handles the key rotation admin endpoints.
type RotationHandler struct {
	rotationUseCase usecase.RotationUseCase
	logger          *slog.Logger
}

// NewRotationHandler creates a new RotationHandler.
func NewRotationHandler(rotationUseCase usecase.RotationUseCase, logger *slog.Logger) *RotationHandler {
	return &RotationHandler{
		rotationUseCase: rotationUseCase,
		logger:          logger,
	}
}

// TriggerHandler starts a rotation in the background.
// POST /v1/admin/rotate-keys[?purpose=encryption|hashing|signing] - Returns 202 Accepted.
// Without a purpose every purpose is rotated; when only some purposes could be started
// the response is still 202 and lists the errors of the others.
func (h *RotationHandler) TriggerHandler(c *gin.Context) {
	ctx := c.Request.Context()

	var (
		statuses []*rotationDomain.Status
		err      error
	)

	if raw := c.Query("purpose"); raw != "" {
		purpose, parseErr := keysDomain.ParsePurpose(raw)
		if parseErr != nil {
			httputil.HandleErrorGin(c, parseErr, h.logger)
			return
		}

		var status *rotationDomain.Status
		status, err = h.rotationUseCase.Trigger(ctx, purpose)
		if status != nil {
			statuses = append(statuses, status)
		}
	} else {
		statuses, err = h.rotationUseCase.TriggerAll(ctx)
	}

	if err != nil && len(statuses) == 0 {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	response := dto.MapTriggerResponse(statuses)
	if err != nil {
		h.logger.Warn("rotation partially started", slog.Any("error", err))
		response.Errors = strings.Split(err.Error(), "\n")
	}
	c.JSON(http.StatusAccepted, response)
}

// StatusHandler reports the rotation state.
// GET /v1/admin/rotate-keys/status
func (h *RotationHandler) StatusHandler(c *gin.Context) {
	summary := h.rotationUseCase.Status(c.Request.Context())
	c.JSON(http.StatusOK, dto.MapSummaryToResponse(summary))
}
