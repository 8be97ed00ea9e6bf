package middleware

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"firebase.google.com/go/v4/auth"
	"github.com/labstack/echo/v4"

	"practice_app_echo/internal/models"
)

// TokenVerifier is satisfied by *auth.Client
type TokenVerifier interface {
	VerifyIDToken(ctx context.Context, idToken string) (*auth.Token, error)
}

// UserResolver maps an identity onto a therapist account
type UserResolver interface {
	FindByID(ctx context.Context, id uint) (*models.User, error)
	FindOrCreateByFirebaseUID(ctx context.Context, uid, email, name string) (*models.User, error)
}

// Context keys set by RequireAPIAuth
const (
	ContextUserID   = "userID"
	ContextUserUID  = "userUID"
	ContextUserType = "userType"
)

// RequireAPIAuth verifies a Firebase ID token from the Authorization header.
// With a nil verifier and devHeader set, the X-User-ID header is trusted instead.
func RequireAPIAuth(verifier TokenVerifier, users UserResolver, devHeader bool) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			ctx := c.Request().Context()

			if verifier == nil {
				if !devHeader {
					return echo.NewHTTPError(http.StatusUnauthorized, "Authentication is not configured")
				}
				id, err := strconv.ParseUint(c.Request().Header.Get("X-User-ID"), 10, 32)
				if err != nil || id == 0 {
					return echo.NewHTTPError(http.StatusUnauthorized, "Missing X-User-ID header")
				}
				user, err := users.FindByID(ctx, uint(id))
				if err != nil {
					return echo.NewHTTPError(http.StatusUnauthorized, "Unknown user")
				}
				setUser(c, user, "")
				return next(c)
			}

			authHeader := c.Request().Header.Get("Authorization")
			token := strings.TrimPrefix(authHeader, "Bearer ")
			if authHeader == "" || token == authHeader {
				return echo.NewHTTPError(http.StatusUnauthorized, "Missing bearer token")
			}

			decoded, err := verifier.VerifyIDToken(ctx, token)
			if err != nil {
				return echo.NewHTTPError(http.StatusUnauthorized, "Invalid token")
			}

			email, _ := decoded.Claims["email"].(string)
			name, _ := decoded.Claims["name"].(string)
			user, err := users.FindOrCreateByFirebaseUID(ctx, decoded.UID, email, name)
			if err != nil {
				return echo.NewHTTPError(http.StatusInternalServerError, "Failed to resolve user")
			}

			setUser(c, user, decoded.UID)
			return next(c)
		}
	}
}

// RequireAdmin rejects callers that are not administrators
func RequireAdmin(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		if t, _ := c.Get(ContextUserType).(models.UserType); t != models.UserTypeAdmin {
			return echo.NewHTTPError(http.StatusForbidden, "Administrator access required")
		}
		return next(c)
	}
}

func setUser(c echo.Context, user *models.User, uid string) {
	c.Set(ContextUserID, user.ID)
	c.Set(ContextUserUID, uid)
	c.Set(ContextUserType, user.UserType)
}
