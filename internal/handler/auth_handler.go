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

// Register handles tenant registration: the tenant workspace, its default
// admin role and the first admin user are created together.
func (h *Handler) Register(c echo.Context) error {
	log := logger.FromContext(c)
	prometheus.RegisterCounter.Inc()

	// Parse request
	var req struct {
		TenantName string `json:"tenant_name"`
		Email      string `json:"email"`
		Password   string `json:"password"`
	}

	if err := c.Bind(&req); err != nil {
		log.Error("Failed to parse registration request", zap.Error(err))
		prometheus.RecordAuthError("invalid_request")
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request"})
	}

	if req.TenantName == "" || req.Email == "" || req.Password == "" {
		prometheus.RecordAuthError("incomplete_registration")
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "tenant_name, email and password are required"})
	}

	// Report every violated password rule, not just the first
	if violations := h.auth.Policy().Validate(req.Password); len(violations) > 0 {
		prometheus.RecordAuthError("weak_password")
		return c.JSON(http.StatusBadRequest, echo.Map{
			"error":      "password does not meet the policy",
			"violations": violations,
		})
	}

	defer prometheus.TrackDBOperation("insert")(time.Now())
	user, pair, err := h.auth.RegisterTenant(req.TenantName, req.Email, req.Password)
	if err != nil {
		log.Error("Registration failed", zap.String("email", req.Email), zap.Error(err))
		prometheus.RecordAuthError("registration_failed")
		return c.JSON(http.StatusConflict, echo.Map{"error": err.Error()})
	}

	prometheus.IncreaseActiveTokens()
	return c.JSON(http.StatusCreated, echo.Map{
		"message":       "Tenant registered successfully",
		"access_token":  pair.AccessToken,
		"refresh_token": pair.RefreshToken,
		"user": map[string]interface{}{
			"id":        user.ID,
			"email":     user.Email,
			"tenant_id": user.TenantID,
			"user_type": user.UserType,
			"is_admin":  user.IsAdmin,
		},
	})
}

// Login verifies credentials behind the throttle and returns a token pair.
func (h *Handler) Login(c echo.Context) error {
	log := logger.FromContext(c)
	prometheus.LoginCounter.Inc()

	// Parse request
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}

	if err := c.Bind(&req); err != nil {
		log.Error("Failed to parse login request", zap.Error(err))
		prometheus.RecordAuthError("invalid_request")
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request"})
	}

	defer prometheus.TrackDBOperation("query")(time.Now())
	user, pair, err := h.auth.Login(req.Email, req.Password)
	if err != nil {
		if apperr.Status(err) == http.StatusTooManyRequests {
			prometheus.LockoutCounter.Inc()
		} else {
			prometheus.RecordAuthError("login_failed")
		}
		log.Warn("Login rejected", zap.String("email", req.Email), zap.Error(err))
		return apperr.JSON(c, err)
	}

	prometheus.IncreaseActiveTokens()
	return c.JSON(http.StatusOK, echo.Map{
		"access_token":  pair.AccessToken,
		"refresh_token": pair.RefreshToken,
		"user": map[string]interface{}{
			"id":        user.ID,
			"email":     user.Email,
			"tenant_id": user.TenantID,
			"user_type": user.UserType,
			"is_admin":  user.IsAdmin,
		},
	})
}

// Refresh exchanges a stored refresh token for a new access token.
func (h *Handler) Refresh(c echo.Context) error {
	log := logger.FromContext(c)
	prometheus.RefreshCounter.Inc()

	var req struct {
		RefreshToken string `json:"refresh_token"`
	}

	if err := c.Bind(&req); err != nil || req.RefreshToken == "" {
		prometheus.RecordAuthError("invalid_request")
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "refresh_token is required"})
	}

	access, err := h.auth.Refresh(req.RefreshToken)
	if err != nil {
		log.Warn("Token refresh rejected", zap.Error(err))
		prometheus.RecordAuthError("refresh_rejected")
		return apperr.JSON(c, err)
	}

	return c.JSON(http.StatusOK, echo.Map{"access_token": access})
}

// Logout revokes the presented refresh token.
func (h *Handler) Logout(c echo.Context) error {
	var req struct {
		RefreshToken string `json:"refresh_token"`
	}

	if err := c.Bind(&req); err != nil || req.RefreshToken == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "refresh_token is required"})
	}

	if err := h.auth.Logout(req.RefreshToken); err != nil {
		return apperr.JSON(c, err)
	}

	prometheus.DecreaseActiveTokens()
	return c.JSON(http.StatusOK, echo.Map{"message": "Logged out"})
}

// ChangePassword rotates the principal's password and revokes every session.
func (h *Handler) ChangePassword(c echo.Context) error {
	log := logger.FromContext(c)
	principal := middleware.PrincipalFrom(c)
	if principal == nil {
		return apperr.JSON(c, apperr.ErrAuthenticationRequired)
	}

	var req struct {
		CurrentPassword string `json:"current_password"`
		NewPassword     string `json:"new_password"`
	}

	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request"})
	}

	if violations := h.auth.Policy().Validate(req.NewPassword); len(violations) > 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{
			"error":      "password does not meet the policy",
			"violations": violations,
		})
	}

	if err := h.auth.ChangePassword(principal.User.ID, req.CurrentPassword, req.NewPassword); err != nil {
		log.Warn("Password change rejected", zap.Uint("user_id", principal.User.ID), zap.Error(err))
		return apperr.JSON(c, err)
	}

	return c.JSON(http.StatusOK, echo.Map{"message": "Password changed; please log in again"})
}
