package backend

import (
	"net/http"
	"strings"

	"github.com/jo-hoe/recipe-app/internal/backend/database"
	"github.com/jo-hoe/recipe-app/internal/core"
	"github.com/labstack/echo/v4"
)

const (
	userContextKey = "user"
	authKeyword    = "token"
)

// tokenAuth resolves an "Authorization: Token <key>" header to the active user.
func (service *APIService) tokenAuth(next echo.HandlerFunc) echo.HandlerFunc {
	return func(ctx echo.Context) error {
		key, err := parseAuthorization(ctx.Request().Header.Get(echo.HeaderAuthorization))
		if err != nil {
			return service.respondError(ctx, "tokenAuth", err)
		}
		user, err := service.coreService.UserForToken(ctx.Request().Context(), key)
		if err != nil {
			return service.respondError(ctx, "tokenAuth", err)
		}
		ctx.Set(userContextKey, user)
		return next(ctx)
	}
}

func parseAuthorization(header string) (string, error) {
	parts := strings.Fields(header)
	if len(parts) == 0 || !strings.EqualFold(parts[0], authKeyword) {
		return "", core.ErrNotAuthenticated()
	}
	switch len(parts) {
	case 1:
		return "", &core.Error{Status: http.StatusUnauthorized, Code: core.CodeAuthFailed,
			Message: "Invalid token header. No credentials provided."}
	case 2:
		return parts[1], nil
	default:
		return "", &core.Error{Status: http.StatusUnauthorized, Code: core.CodeAuthFailed,
			Message: "Invalid token header. Token string should not contain spaces."}
	}
}

// currentUser returns the user stored by tokenAuth.
func currentUser(ctx echo.Context) *database.User {
	user, _ := ctx.Get(userContextKey).(*database.User)
	return user
}
