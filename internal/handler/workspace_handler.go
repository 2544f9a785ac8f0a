package handler

import (
	"net/http"
	"time"

	"access-service/internal/apperr"
	"access-service/internal/middleware"
	"access-service/pkg/logger"
	"access-service/prometheus"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// ListWorkspaces returns the home tenant plus every membership workspace.
func (h *Handler) ListWorkspaces(c echo.Context) error {
	prometheus.RecordWorkspaceOperation("list")
	principal := middleware.PrincipalFrom(c)
	if principal == nil {
		return apperr.JSON(c, apperr.ErrAuthenticationRequired)
	}

	defer prometheus.TrackDBOperation("query")(time.Now())
	entries, err := h.workspaces.List(principal.User)
	if err != nil {
		return apperr.JSON(c, err)
	}
	return c.JSON(http.StatusOK, entries)
}

// CreateWorkspace creates a workspace with the caller as owner.
func (h *Handler) CreateWorkspace(c echo.Context) error {
	log := logger.FromContext(c)
	prometheus.RecordWorkspaceOperation("create")

	principal := middleware.PrincipalFrom(c)
	if principal == nil {
		return apperr.JSON(c, apperr.ErrAuthenticationRequired)
	}

	var req struct {
		Name string `json:"name"`
	}
	if err := c.Bind(&req); err != nil || req.Name == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "name is required"})
	}

	defer prometheus.TrackDBOperation("insert")(time.Now())
	workspace, err := h.workspaces.Create(principal.User, req.Name)
	if err != nil {
		log.Error("Workspace creation failed", zap.Error(err))
		return apperr.JSON(c, err)
	}

	return c.JSON(http.StatusCreated, echo.Map{
		"message":   "Workspace created successfully",
		"workspace": workspace,
	})
}

// SwitchWorkspace re-validates membership and issues a fresh token pair
// with the new workspace embedded.
func (h *Handler) SwitchWorkspace(c echo.Context) error {
	log := logger.FromContext(c)
	prometheus.RecordWorkspaceOperation("switch")

	principal := middleware.PrincipalFrom(c)
	if principal == nil {
		return apperr.JSON(c, apperr.ErrAuthenticationRequired)
	}

	var req struct {
		WorkspaceID uint `json:"workspace_id"`
	}
	if err := c.Bind(&req); err != nil || req.WorkspaceID == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "workspace_id is required"})
	}

	pair, err := h.workspaces.Switch(principal.User, req.WorkspaceID)
	if err != nil {
		log.Warn("Workspace switch rejected",
			zap.Uint("user_id", principal.User.ID),
			zap.Uint("workspace_id", req.WorkspaceID),
			zap.Error(err))
		return apperr.JSON(c, err)
	}

	prometheus.IncreaseActiveTokens()
	return c.JSON(http.StatusOK, echo.Map{
		"access_token":  pair.AccessToken,
		"refresh_token": pair.RefreshToken,
		"workspace_id":  req.WorkspaceID,
	})
}

// CurrentWorkspace echoes the resolved context so clients can confirm what
// downstream requests will be scoped to.
func (h *Handler) CurrentWorkspace(c echo.Context) error {
	ctx := middleware.WorkspaceFrom(c)
	if ctx == nil {
		return apperr.JSON(c, apperr.ErrAuthenticationRequired)
	}

	response := echo.Map{
		"workspace_id":    ctx.WorkspaceID,
		"home_tenant_id":  ctx.HomeTenantID,
		"multi_workspace": ctx.MultiWorkspace,
		"is_home":         ctx.IsHome(),
	}
	if ctx.Membership != nil {
		response["role"] = ctx.Membership.Role
	}
	return c.JSON(http.StatusOK, response)
}

// RemoveMember deletes a membership and forces the removed user to
// re-authenticate everywhere.
func (h *Handler) RemoveMember(c echo.Context) error {
	log := logger.FromContext(c)
	prometheus.RecordWorkspaceOperation("remove_member")

	ctx := middleware.WorkspaceFrom(c)
	if ctx == nil {
		return apperr.JSON(c, apperr.ErrAuthenticationRequired)
	}

	var req struct {
		UserID uint `json:"user_id"`
	}
	if err := c.Bind(&req); err != nil || req.UserID == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "user_id is required"})
	}

	if err := h.workspaces.RemoveMember(ctx.WorkspaceID, req.UserID); err != nil {
		log.Warn("Member removal failed",
			zap.Uint("workspace_id", ctx.WorkspaceID),
			zap.Uint("user_id", req.UserID),
			zap.Error(err))
		return apperr.JSON(c, err)
	}

	return c.JSON(http.StatusOK, echo.Map{"message": "Member removed"})
}
