package auth

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
)

// Staff roles.
const (
	RoleAdmin      = "admin"
	RoleDoctor     = "doctor"
	RoleConsultant = "consultant"
	RoleStaff      = "staff"
)

// ValidRole reports whether r is one of the staff roles.
func ValidRole(r string) bool {
	switch r {
	case RoleAdmin, RoleDoctor, RoleConsultant, RoleStaff:
		return true
	}
	return false
}

// RequireRole returns middleware that checks if the user has at least one of the specified roles.
func RequireRole(roles ...string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			userRoles := RolesFromContext(c.Request().Context())
			for _, required := range roles {
				for _, has := range userRoles {
					if has == required || has == RoleAdmin {
						return next(c)
					}
				}
			}
			return echo.NewHTTPError(http.StatusForbidden,
				fmt.Sprintf("required role: %s", strings.Join(roles, " or ")))
		}
	}
}
