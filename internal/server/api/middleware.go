package api

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/dkovalenko/contactbook/internal/server/models"
)

// userContextKey is the echo context key the authenticated user is stored
// under by bearerAuth.
const userContextKey = "user"

const bearerPrefix = "Bearer "

// bearerAuth resolves the Authorization header to an authenticated user and
// stores it in the request context. Missing headers, malformed values and
// tokens that fail verification all yield the same 401.
func (s *Server) bearerAuth(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		header := c.Request().Header.Get(echo.HeaderAuthorization)
		token, ok := strings.CutPrefix(header, bearerPrefix)
		if !ok || token == "" {
			return echo.NewHTTPError(http.StatusUnauthorized, "could not validate credentials")
		}

		user, err := s.users.Authenticate(c.Request().Context(), token)
		if err != nil {
			return echo.NewHTTPError(http.StatusUnauthorized, "could not validate credentials")
		}

		c.Set(userContextKey, user)
		return next(c)
	}
}

// currentUser returns the user stored by bearerAuth, or nil outside of an
// authenticated route.
func currentUser(c echo.Context) *models.User {
	user, _ := c.Get(userContextKey).(*models.User)
	return user
}
