package handler

import (
	"net/http"
	"time"

	"access-service/internal/apperr"
	"access-service/internal/middleware"
	"access-service/prometheus"

	"github.com/labstack/echo/v4"
)

// GetLimits returns the usage/limits snapshot for the active workspace.
func (h *Handler) GetLimits(c echo.Context) error {
	ctx := middleware.WorkspaceFrom(c)
	if ctx == nil {
		return apperr.JSON(c, apperr.ErrAuthenticationRequired)
	}

	defer prometheus.TrackDBOperation("query")(time.Now())
	snapshot, err := h.billing.Check(ctx.WorkspaceID)
	if err != nil {
		return apperr.JSON(c, err)
	}
	return c.JSON(http.StatusOK, snapshot)
}
