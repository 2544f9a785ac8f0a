package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"access-service/internal/model"
	"access-service/internal/workspace"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newAdminRoleContext(principal *Principal, ctx *workspace.Context) (echo.Context, *httptest.ResponseRecorder) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/invitations", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	if principal != nil {
		c.Set(principalKey, principal)
	}
	if ctx != nil {
		c.Set(workspaceKey, ctx)
	}
	return c, rec
}

func TestRequireAdminRole(t *testing.T) {
	w := &WorkspaceResolver{}
	handler := w.RequireAdminRole()(func(c echo.Context) error {
		return c.NoContent(http.StatusOK)
	})

	membershipCtx := func(role string) *workspace.Context {
		return &workspace.Context{
			WorkspaceID:    2,
			HomeTenantID:   1,
			MultiWorkspace: true,
			Membership:     &model.WorkspaceMembership{UserID: 1, WorkspaceID: 2, Role: role},
		}
	}
	member := &Principal{User: &model.User{ID: 1, TenantID: 1}}
	homeAdmin := &Principal{User: &model.User{ID: 1, TenantID: 1, IsAdmin: true}}

	cases := []struct {
		name      string
		principal *Principal
		ctx       *workspace.Context
		want      int
	}{
		{"owner membership", member, membershipCtx(model.WorkspaceRoleOwner), http.StatusOK},
		{"admin membership", member, membershipCtx(model.WorkspaceRoleAdmin), http.StatusOK},
		{"member membership", member, membershipCtx(model.WorkspaceRoleMember), http.StatusForbidden},
		{"viewer membership", member, membershipCtx(model.WorkspaceRoleViewer), http.StatusForbidden},
		{"home admin without membership", homeAdmin, &workspace.Context{WorkspaceID: 1, HomeTenantID: 1, MultiWorkspace: true}, http.StatusOK},
		{"home non-admin without membership", member, &workspace.Context{WorkspaceID: 1, HomeTenantID: 1, MultiWorkspace: true}, http.StatusForbidden},
		{"missing principal", nil, membershipCtx(model.WorkspaceRoleOwner), http.StatusUnauthorized},
		{"missing workspace context", member, nil, http.StatusUnauthorized},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			c, rec := newAdminRoleContext(tc.principal, tc.ctx)
			require.NoError(t, handler(c))
			assert.Equal(t, tc.want, rec.Code)
		})
	}
}
