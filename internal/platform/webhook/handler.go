package webhook

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/blua/laudos/internal/platform/auth"
	"github.com/blua/laudos/pkg/pagination"
)

// Handler exposes the caller's own delivery attempts.
type Handler struct {
	log DeliveryLog
}

func NewHandler(log DeliveryLog) *Handler {
	return &Handler{log: log}
}

func (h *Handler) RegisterRoutes(g *echo.Group) {
	g.GET("/webhook/deliveries", h.ListDeliveries)
}

func (h *Handler) ListDeliveries(c echo.Context) error {
	s, err := auth.Require(c.Request().Context())
	if err != nil {
		return echo.NewHTTPError(http.StatusUnauthorized, err.Error())
	}
	pg := pagination.FromContext(c)
	items, total, err := h.log.List(c.Request().Context(), s.UserID.String(), pg.Limit, pg.Offset)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg.Limit, pg.Offset))
}
