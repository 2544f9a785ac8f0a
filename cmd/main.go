package main

import (
	"access-service/internal/auth"
	"access-service/internal/billing"
	"access-service/internal/handler"
	"access-service/internal/invitation"
	"access-service/internal/mailer"
	"access-service/internal/middleware"
	"access-service/internal/model"
	"access-service/internal/permission"
	"access-service/internal/workspace"
	"access-service/pkg/config"
	"access-service/pkg/database"
	"access-service/pkg/jwtutil"
	"access-service/pkg/logger"
	"access-service/prometheus"

	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"
)

func main() {
	// Load configuration from .env file and environment variables
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	// Initialize logger with config
	logger.InitLogger(cfg)
	log := logger.GetLogger()
	log.Info("Starting access service...", zap.String("environment", cfg.Server.Env))

	// Initialize database
	db, err := database.Connect(cfg)
	if err != nil {
		log.Fatal("Failed to initialize database", zap.Error(err))
	}
	log.Info("Database connection established")

	// Construct components; everything receives its dependencies explicitly
	jwt := jwtutil.New(&cfg.JWT)
	policy := auth.NewPasswordPolicy(cfg.Auth.BcryptCost)
	throttle := auth.NewThrottle(db, cfg.Auth.LockoutWindow, cfg.Auth.LockoutMax)
	authSvc := auth.NewService(db, jwt, policy, throttle, cfg.JWT.RefreshTTL, log)

	flags := workspace.NewFlags(db)
	resolver := workspace.NewResolver(db, flags, authSvc, log)
	authSvc.SetWorkspaceValidator(resolver)

	checker := permission.NewChecker(db)
	gate := billing.NewGate(db)

	mail, err := mailer.New(cfg, log)
	if err != nil {
		log.Fatal("Failed to initialize mail sender", zap.Error(err))
	}

	invitations := invitation.NewService(db, gate, authSvc, mail, cfg.Auth.InvitationTTL, log)

	// Schedule the invitation expiry sweep
	sweeper, err := invitation.NewSweeper(invitations, cfg.SweepSchedule, log)
	if err != nil {
		log.Fatal("Failed to schedule invitation sweep", zap.Error(err))
	}
	sweeper.Start()
	defer sweeper.Stop()
	log.Info("Invitation sweeper scheduled", zap.String("schedule", cfg.SweepSchedule))

	h := handler.New(authSvc, resolver, checker, invitations, gate)
	authMW := middleware.NewAuth(jwt, db)
	workspaceMW := middleware.NewWorkspaceResolver(resolver, checker, cfg.Auth.WorkspaceHeader)

	// Initialize Echo framework
	e := echo.New()

	// Apply global middleware - order matters
	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.CORS())
	e.Use(middleware.RequestIDMiddleware)
	e.Use(logger.Middleware(log))
	e.Use(prometheus.MetricsMiddleware())

	// Public routes - no authentication required
	e.GET("/health", handler.HealthCheck)
	e.GET("/metrics", handler.MetricsHandler)

	// Authentication routes
	authGroup := e.Group("/auth")
	authGroup.POST("/register", h.Register)
	authGroup.POST("/login", h.Login)
	authGroup.POST("/refresh", h.Refresh)
	authGroup.POST("/logout", h.Logout)
	authGroup.POST("/invitations/accept", h.AcceptInvitation)
	authGroup.POST("/invitations/decline", h.DeclineInvitation)

	// API routes - all require authentication
	api := e.Group("/api")
	api.Use(authMW.Middleware)

	// User management
	api.POST("/users/change-password", h.ChangePassword)

	// Workspace listing, creation and switching need no resolved context
	api.GET("/workspaces", h.ListWorkspaces)
	api.POST("/workspaces", h.CreateWorkspace)
	api.POST("/workspaces/switch", h.SwitchWorkspace)

	// Workspace-scoped operations resolve the active workspace first
	scoped := e.Group("/api")
	scoped.Use(authMW.Middleware)
	scoped.Use(workspaceMW.Middleware)
	scoped.GET("/workspaces/current", h.CurrentWorkspace)
	scoped.GET("/billing/limits", h.GetLimits)

	// Team administration - owner/admin or an explicit team.manage grant
	team := scoped.Group("")
	team.Use(workspaceMW.RequirePermission(model.ModuleTeam, model.ActionManage))
	team.GET("/invitations", h.ListInvitations)
	team.POST("/members/remove", h.RemoveMember)

	// Issuing and revoking invitations stays with owner/admin memberships;
	// a custom-role team.manage grant is not enough
	admins := scoped.Group("")
	admins.Use(workspaceMW.RequireAdminRole())
	admins.POST("/invitations", h.CreateInvitation)
	admins.POST("/invitations/:id/revoke", h.RevokeInvitation)

	// Role administration - settings.manage
	roles := scoped.Group("")
	roles.Use(workspaceMW.RequirePermission(model.ModuleSettings, model.ActionManage))
	roles.POST("/roles", h.CreateRole)
	roles.GET("/roles", h.ListRoles)
	roles.PUT("/roles/:id/permissions", h.SetRolePermissions)
	roles.DELETE("/roles/:id", h.DeleteRole)

	// Start server
	log.Info("Starting server", zap.String("port", cfg.Server.Port))
	if err := e.Start(":" + cfg.Server.Port); err != nil {
		log.Fatal("Failed to start server", zap.Error(err))
	}
}
