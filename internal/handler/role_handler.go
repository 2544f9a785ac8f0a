package handler

import (
	"net/http"
	"strconv"
	"time"

	"access-service/internal/apperr"
	"access-service/internal/middleware"
	"access-service/internal/permission"
	"access-service/pkg/logger"
	"access-service/prometheus"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// CreateRole creates a workspace custom role.
func (h *Handler) CreateRole(c echo.Context) error {
	log := logger.FromContext(c)

	ctx := middleware.WorkspaceFrom(c)
	if ctx == nil {
		return apperr.JSON(c, apperr.ErrAuthenticationRequired)
	}

	var req struct {
		Name      string `json:"name"`
		IsDefault bool   `json:"is_default"`
	}
	if err := c.Bind(&req); err != nil || req.Name == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "name is required"})
	}

	defer prometheus.TrackDBOperation("insert")(time.Now())
	role, err := h.permissions.CreateRole(ctx.WorkspaceID, req.Name, req.IsDefault)
	if err != nil {
		log.Error("Role creation failed", zap.Error(err))
		return apperr.JSON(c, err)
	}

	return c.JSON(http.StatusCreated, echo.Map{
		"message": "Role created successfully",
		"role":    role,
	})
}

// ListRoles returns the active workspace's custom roles.
func (h *Handler) ListRoles(c echo.Context) error {
	ctx := middleware.WorkspaceFrom(c)
	if ctx == nil {
		return apperr.JSON(c, apperr.ErrAuthenticationRequired)
	}

	defer prometheus.TrackDBOperation("query")(time.Now())
	roles, err := h.permissions.ListRoles(ctx.WorkspaceID)
	if err != nil {
		return apperr.JSON(c, err)
	}
	return c.JSON(http.StatusOK, roles)
}

// SetRolePermissions replaces a role's permission matrix.
func (h *Handler) SetRolePermissions(c echo.Context) error {
	log := logger.FromContext(c)

	ctx := middleware.WorkspaceFrom(c)
	if ctx == nil {
		return apperr.JSON(c, apperr.ErrAuthenticationRequired)
	}

	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid role ID"})
	}

	var req struct {
		Permissions []permission.Grant `json:"permissions"`
	}
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request"})
	}

	defer prometheus.TrackDBOperation("update")(time.Now())
	if err := h.permissions.SetPermissions(ctx.WorkspaceID, uint(id), req.Permissions); err != nil {
		log.Warn("Permission update failed", zap.Uint64("role_id", id), zap.Error(err))
		if apperr.Status(err) == http.StatusInternalServerError {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
		}
		return apperr.JSON(c, err)
	}

	return c.JSON(http.StatusOK, echo.Map{"message": "Permissions updated"})
}

// DeleteRole removes a custom role; its permission rows go first so no
// grants survive role-id reuse.
func (h *Handler) DeleteRole(c echo.Context) error {
	log := logger.FromContext(c)

	ctx := middleware.WorkspaceFrom(c)
	if ctx == nil {
		return apperr.JSON(c, apperr.ErrAuthenticationRequired)
	}

	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid role ID"})
	}

	defer prometheus.TrackDBOperation("delete")(time.Now())
	if err := h.permissions.DeleteRole(ctx.WorkspaceID, uint(id)); err != nil {
		log.Warn("Role deletion failed", zap.Uint64("role_id", id), zap.Error(err))
		return apperr.JSON(c, err)
	}

	return c.JSON(http.StatusOK, echo.Map{"message": "Role deleted"})
}
