package profile

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/blua/laudos/internal/platform/auth"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	g := api.Group("/profile", auth.RequireSession())
	g.GET("", h.Get)
	g.PUT("", h.Put)
}

func httpError(err error) error {
	if errors.Is(err, auth.ErrNoSession) {
		return echo.NewHTTPError(http.StatusUnauthorized, "you must be logged in")
	}
	return echo.NewHTTPError(http.StatusBadGateway, "store error: "+err.Error())
}

func (h *Handler) Get(c echo.Context) error {
	v, err := h.svc.Get(c.Request().Context())
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, v)
}

func (h *Handler) Put(c echo.Context) error {
	var p Profile
	if err := c.Bind(&p); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := h.svc.Save(c.Request().Context(), &p); err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, p)
}
