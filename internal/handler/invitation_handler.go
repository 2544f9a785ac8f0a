package handler

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"access-service/internal/apperr"
	"access-service/internal/billing"
	"access-service/internal/middleware"
	"access-service/pkg/logger"
	"access-service/prometheus"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// CreateInvitation issues a workspace invitation. Admin-gated by route
// middleware; seat-gated by the billing gate.
func (h *Handler) CreateInvitation(c echo.Context) error {
	log := logger.FromContext(c)
	prometheus.RecordInvitationOperation("create")

	principal := middleware.PrincipalFrom(c)
	ctx := middleware.WorkspaceFrom(c)
	if principal == nil || ctx == nil {
		return apperr.JSON(c, apperr.ErrAuthenticationRequired)
	}

	var req struct {
		Email string `json:"email"`
		Role  string `json:"role"`
	}
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request"})
	}
	if req.Role == "" {
		req.Role = "member"
	}

	defer prometheus.TrackDBOperation("insert")(time.Now())
	invitation, snapshot, err := h.invitations.Create(principal.User, ctx.WorkspaceID, req.Email, req.Role)
	if err != nil {
		if errors.Is(err, apperr.ErrLimitExceeded) {
			prometheus.RecordLimitDenied(billing.DimMembers)
			// The snapshot rides along so callers can render "N of M used"
			return c.JSON(apperr.Status(err), echo.Map{
				"error":  err.Error(),
				"limits": snapshot,
			})
		}
		log.Warn("Invitation creation failed", zap.String("email", req.Email), zap.Error(err))
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	}

	return c.JSON(http.StatusCreated, echo.Map{
		"message":    "Invitation sent",
		"invitation": invitation,
		"limits":     snapshot,
	})
}

// ListInvitations returns the active workspace's invitations.
func (h *Handler) ListInvitations(c echo.Context) error {
	prometheus.RecordInvitationOperation("list")

	ctx := middleware.WorkspaceFrom(c)
	if ctx == nil {
		return apperr.JSON(c, apperr.ErrAuthenticationRequired)
	}

	defer prometheus.TrackDBOperation("query")(time.Now())
	invitations, err := h.invitations.List(ctx.WorkspaceID)
	if err != nil {
		return apperr.JSON(c, err)
	}
	return c.JSON(http.StatusOK, invitations)
}

// AcceptInvitation converts a pending invitation into membership. Public:
// the invitee may not have an account yet, in which case a password is
// required to create one.
func (h *Handler) AcceptInvitation(c echo.Context) error {
	log := logger.FromContext(c)
	prometheus.RecordInvitationOperation("accept")

	var req struct {
		Token    string `json:"token"`
		Password string `json:"password,omitempty"`
	}
	if err := c.Bind(&req); err != nil || req.Token == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "token is required"})
	}

	membership, err := h.invitations.Accept(req.Token, req.Password)
	if err != nil {
		log.Warn("Invitation acceptance failed", zap.Error(err))
		if errors.Is(err, apperr.ErrInvitationInvalid) {
			return apperr.JSON(c, err)
		}
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	}

	return c.JSON(http.StatusOK, echo.Map{
		"message":    "Invitation accepted",
		"membership": membership,
	})
}

// DeclineInvitation marks a pending invitation declined. Invitee-initiated.
func (h *Handler) DeclineInvitation(c echo.Context) error {
	prometheus.RecordInvitationOperation("decline")

	var req struct {
		Token string `json:"token"`
	}
	if err := c.Bind(&req); err != nil || req.Token == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "token is required"})
	}

	if err := h.invitations.Decline(req.Token); err != nil {
		return apperr.JSON(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "Invitation declined"})
}

// RevokeInvitation marks a pending invitation revoked. Admin-gated by route
// middleware.
func (h *Handler) RevokeInvitation(c echo.Context) error {
	log := logger.FromContext(c)
	prometheus.RecordInvitationOperation("revoke")

	principal := middleware.PrincipalFrom(c)
	ctx := middleware.WorkspaceFrom(c)
	if principal == nil || ctx == nil {
		return apperr.JSON(c, apperr.ErrAuthenticationRequired)
	}

	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid invitation ID"})
	}

	if err := h.invitations.Revoke(principal.User, ctx.WorkspaceID, uint(id)); err != nil {
		log.Warn("Invitation revocation failed", zap.Uint64("invitation_id", id), zap.Error(err))
		return apperr.JSON(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "Invitation revoked"})
}
