package middleware

import (
	"net/http"
	"strconv"

	"access-service/internal/apperr"
	"access-service/internal/model"
	"access-service/internal/permission"
	"access-service/internal/workspace"
	"access-service/pkg/logger"
	"access-service/prometheus"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

const workspaceKey = "workspace_context"

// WorkspaceResolver resolves the active workspace for every authenticated
// request and attaches it to the echo context.
type WorkspaceResolver struct {
	resolver *workspace.Resolver
	checker  *permission.Checker
	header   string
}

// NewWorkspaceResolver builds the middleware. header names the per-request
// workspace selector (X-Workspace-ID); workspace_id is the query fallback.
func NewWorkspaceResolver(resolver *workspace.Resolver, checker *permission.Checker, header string) *WorkspaceResolver {
	return &WorkspaceResolver{resolver: resolver, checker: checker, header: header}
}

// Middleware resolves the workspace context. Runs after the auth middleware.
func (w *WorkspaceResolver) Middleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		log := logger.FromContext(c)

		principal := PrincipalFrom(c)
		if principal == nil {
			return apperr.JSON(c, apperr.ErrAuthenticationRequired)
		}

		selected, err := w.selector(c)
		if err != nil {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid workspace selector"})
		}

		ctx, err := w.resolver.Resolve(principal.Claims, selected)
		if err != nil {
			log.Warn("Workspace resolution failed",
				zap.Uint("user_id", principal.User.ID),
				zap.Error(err))
			prometheus.RecordAuthError("workspace_resolution_failed")
			return apperr.JSON(c, err)
		}

		prometheus.RecordWorkspaceOperation("resolve")
		c.Set(workspaceKey, ctx)
		return next(c)
	}
}

// RequirePermission gates a route on the effective permission predicate for
// the resolved workspace.
func (w *WorkspaceResolver) RequirePermission(module, action string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			principal := PrincipalFrom(c)
			ctx := WorkspaceFrom(c)
			if principal == nil || ctx == nil {
				return apperr.JSON(c, apperr.ErrAuthenticationRequired)
			}

			perms, err := w.checker.For(principal.User, ctx)
			if err != nil {
				return apperr.JSON(c, err)
			}
			if !perms.Can(module, action) {
				prometheus.RecordAuthError("access_denied")
				return apperr.JSON(c, apperr.ErrAccessDenied)
			}
			return next(c)
		}
	}
}

// RequireAdminRole gates a route on an owner or admin membership in the
// active workspace, or on home-tenant admin authority. Unlike
// RequirePermission this cannot be granted through a custom role.
func (w *WorkspaceResolver) RequireAdminRole() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			principal := PrincipalFrom(c)
			ctx := WorkspaceFrom(c)
			if principal == nil || ctx == nil {
				return apperr.JSON(c, apperr.ErrAuthenticationRequired)
			}

			if ctx.Membership != nil {
				switch ctx.Membership.Role {
				case model.WorkspaceRoleOwner, model.WorkspaceRoleAdmin:
					return next(c)
				}
			}
			if ctx.IsHome() && principal.User.IsAdmin {
				return next(c)
			}

			prometheus.RecordAuthError("access_denied")
			return apperr.JSON(c, apperr.ErrAccessDenied)
		}
	}
}

func (w *WorkspaceResolver) selector(c echo.Context) (*uint, error) {
	raw := c.Request().Header.Get(w.header)
	if raw == "" {
		raw = c.QueryParam("workspace_id")
	}
	if raw == "" {
		return nil, nil
	}
	id, err := strconv.ParseUint(raw, 10, 32)
	if err != nil {
		return nil, err
	}
	value := uint(id)
	return &value, nil
}

// WorkspaceFrom returns the resolved workspace context, or nil outside the
// workspace middleware.
func WorkspaceFrom(c echo.Context) *workspace.Context {
	ctx, _ := c.Get(workspaceKey).(*workspace.Context)
	return ctx
}
