package handler

import (
	"access-service/internal/auth"
	"access-service/internal/billing"
	"access-service/internal/invitation"
	"access-service/internal/permission"
	"access-service/internal/workspace"
)

// Handler groups the HTTP handlers over their injected services.
type Handler struct {
	auth        *auth.Service
	workspaces  *workspace.Resolver
	permissions *permission.Checker
	invitations *invitation.Service
	billing     *billing.Gate
}

// New wires the handler set.
func New(authSvc *auth.Service, workspaces *workspace.Resolver, permissions *permission.Checker, invitations *invitation.Service, gate *billing.Gate) *Handler {
	return &Handler{
		auth:        authSvc,
		workspaces:  workspaces,
		permissions: permissions,
		invitations: invitations,
		billing:     gate,
	}
}
