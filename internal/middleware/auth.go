package middleware

import (
	"strings"

	"access-service/internal/apperr"
	"access-service/internal/model"
	"access-service/pkg/jwtutil"
	"access-service/pkg/logger"
	"access-service/prometheus"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const principalKey = "principal"

// Principal is the strongly-typed request context produced by the session
// step: the verified token claims plus the loaded user row.
type Principal struct {
	Claims *jwtutil.UserClaims
	User   *model.User
}

// Auth holds the dependencies of the bearer-token middleware.
type Auth struct {
	jwt *jwtutil.JWTUtil
	db  *gorm.DB
}

// NewAuth builds the middleware.
func NewAuth(jwt *jwtutil.JWTUtil, db *gorm.DB) *Auth {
	return &Auth{jwt: jwt, db: db}
}

// Middleware validates the JWT from the Authorization header and attaches
// the Principal. An invalid, expired or unrecognized token never yields a
// partial principal.
func (a *Auth) Middleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		log := logger.FromContext(c)

		authHeader := c.Request().Header.Get("Authorization")
		if authHeader == "" {
			prometheus.RecordAuthError("missing_token")
			return apperr.JSON(c, apperr.ErrAuthenticationRequired)
		}

		// Check if it's a Bearer token
		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
			prometheus.RecordAuthError("invalid_auth_format")
			return apperr.JSON(c, apperr.ErrAuthenticationRequired)
		}

		claims, err := a.jwt.ValidateToken(parts[1], jwtutil.KindAccess)
		if err != nil {
			log.Debug("Invalid JWT token", zap.Error(err))
			prometheus.RecordAuthError("invalid_token")
			return apperr.JSON(c, apperr.ErrAuthenticationRequired)
		}

		var user model.User
		if err := a.db.First(&user, claims.UserID).Error; err != nil || !user.Active {
			prometheus.RecordAuthError("unknown_principal")
			return apperr.JSON(c, apperr.ErrAuthenticationRequired)
		}

		c.Set(principalKey, &Principal{Claims: claims, User: &user})
		return next(c)
	}
}

// PrincipalFrom returns the authenticated principal, or nil outside the
// auth middleware.
func PrincipalFrom(c echo.Context) *Principal {
	p, _ := c.Get(principalKey).(*Principal)
	return p
}
