package account

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/giantksiclo/new-patient-questionnarire-sub000/internal/platform/auth"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

// RegisterRoutes mounts /auth. The credential middleware (rate limits)
// wraps only the endpoints that accept a password or an email.
func (h *Handler) RegisterRoutes(api *echo.Group, credential ...echo.MiddlewareFunc) {
	g := api.Group("/auth")
	g.POST("/signup", h.SignUp, credential...)
	g.POST("/signin", h.SignIn, credential...)
	g.POST("/password-reset", h.RequestPasswordReset, credential...)
	g.POST("/password-reset/confirm", h.ConfirmPasswordReset, credential...)
	g.POST("/signout", h.SignOut)
	g.GET("/session", h.Session)
}

func toHTTPError(err error) error {
	switch {
	case errors.Is(err, ErrInvalidCredentials):
		return echo.NewHTTPError(http.StatusUnauthorized, err.Error())
	case errors.Is(err, ErrDuplicateEmail):
		return echo.NewHTTPError(http.StatusConflict, err.Error())
	case errors.Is(err, ErrInvalid), errors.Is(err, ErrInvalidResetToken):
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	case errors.Is(err, ErrNotFound):
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	default:
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
}

func (h *Handler) SignUp(c echo.Context) error {
	var in NewAccount
	if err := c.Bind(&in); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	a, err := h.svc.SignUp(c.Request().Context(), in)
	if err != nil {
		return toHTTPError(err)
	}
	return c.JSON(http.StatusCreated, a)
}

type credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (h *Handler) SignIn(c echo.Context) error {
	var in credentials
	if err := c.Bind(&in); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	sess, err := h.svc.SignIn(c.Request().Context(), in.Email, in.Password)
	if err != nil {
		return toHTTPError(err)
	}
	return c.JSON(http.StatusOK, sess)
}

func (h *Handler) SignOut(c echo.Context) error {
	claims := auth.ClaimsFromContext(c.Request().Context())
	if err := h.svc.SignOut(c.Request().Context(), claims); err != nil {
		return echo.NewHTTPError(http.StatusServiceUnavailable, "could not sign out")
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) Session(c echo.Context) error {
	claims := auth.ClaimsFromContext(c.Request().Context())
	if claims == nil {
		return echo.NewHTTPError(http.StatusUnauthorized, "not signed in")
	}
	a, err := h.svc.Current(c.Request().Context(), claims)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			// Dev sessions have no backing account.
			return c.JSON(http.StatusOK, map[string]interface{}{"user_id": claims.Subject, "roles": claims.Roles})
		}
		return toHTTPError(err)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"account":    a,
		"roles":      claims.Roles,
		"expires_at": claims.ExpiresAt,
	})
}

func (h *Handler) RequestPasswordReset(c echo.Context) error {
	var in struct {
		Email string `json:"email"`
	}
	if err := c.Bind(&in); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := h.svc.RequestPasswordReset(c.Request().Context(), in.Email); err != nil {
		return toHTTPError(err)
	}
	return c.NoContent(http.StatusAccepted)
}

func (h *Handler) ConfirmPasswordReset(c echo.Context) error {
	var in struct {
		Token    string `json:"token"`
		Password string `json:"password"`
	}
	if err := c.Bind(&in); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := h.svc.ConfirmPasswordReset(c.Request().Context(), in.Token, in.Password); err != nil {
		return toHTTPError(err)
	}
	return c.NoContent(http.StatusNoContent)
}
