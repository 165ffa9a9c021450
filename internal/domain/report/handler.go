package report

import (
	"errors"
	"io"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/blua/laudos/internal/domain/patient"
	"github.com/blua/laudos/internal/platform/auth"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	api.POST("/patients/:id/drafts", h.Open, auth.RequireSession())

	g := api.Group("/drafts", auth.RequireSession())
	g.GET("/:sid", h.Get)
	g.PATCH("/:sid", h.Patch)
	g.DELETE("/:sid", h.Close)
	g.POST("/:sid/load", h.Load)
	g.POST("/:sid/save", h.Save)
	g.POST("/:sid/preview", h.Preview)
	g.POST("/:sid/generate", h.Generate)
}

func httpError(err error) error {
	var se *SaveError
	switch {
	case errors.Is(err, auth.ErrNoSession):
		return echo.NewHTTPError(http.StatusUnauthorized, "you must be logged in to edit reports")
	case errors.Is(err, ErrEditorNotFound):
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	case errors.Is(err, ErrNotFound), errors.Is(err, patient.ErrNotFound):
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	case errors.Is(err, ErrInvalidUpdate):
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	case errors.Is(err, ErrIncomplete):
		return echo.NewHTTPError(http.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, ErrBusy):
		return echo.NewHTTPError(http.StatusConflict, err.Error())
	case errors.As(err, &se):
		return echo.NewHTTPError(http.StatusBadGateway, map[string]interface{}{
			"message":   "draft save failed",
			"step":      se.Step,
			"report_id": reportIDOrNil(se.ReportID),
			"error":     se.Err.Error(),
		})
	default:
		return echo.NewHTTPError(http.StatusBadGateway, err.Error())
	}
}

func reportIDOrNil(id uuid.UUID) interface{} {
	if id == uuid.Nil {
		return nil
	}
	return id
}

func uuidParam(c echo.Context, name string) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		return uuid.Nil, echo.NewHTTPError(http.StatusBadRequest, "invalid "+name)
	}
	return id, nil
}

// reportIDQuery reads the optional ?report_id=.
func reportIDQuery(c echo.Context) (*uuid.UUID, error) {
	raw := c.QueryParam("report_id")
	if raw == "" {
		return nil, nil
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return nil, echo.NewHTTPError(http.StatusBadRequest, "invalid report_id")
	}
	return &id, nil
}

func (h *Handler) Open(c echo.Context) error {
	pid, err := uuidParam(c, "id")
	if err != nil {
		return err
	}
	rid, err := reportIDQuery(c)
	if err != nil {
		return err
	}
	v, err := h.svc.Open(c.Request().Context(), pid, rid)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusCreated, v)
}

func (h *Handler) Get(c echo.Context) error {
	sid, err := uuidParam(c, "sid")
	if err != nil {
		return err
	}
	v, err := h.svc.View(c.Request().Context(), sid)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, v)
}

func (h *Handler) Patch(c echo.Context) error {
	sid, err := uuidParam(c, "sid")
	if err != nil {
		return err
	}
	body, err := io.ReadAll(c.Request().Body)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	u, err := DecodeUpdate(body)
	if err != nil {
		return httpError(err)
	}
	applied, v, err := h.svc.Update(c.Request().Context(), sid, u)
	if err != nil {
		return httpError(err)
	}
	resp := map[string]interface{}{"editor": v}
	if add, ok := applied.(AddInstrument); ok {
		resp["instrument_id"] = add.ID
	}
	return c.JSON(http.StatusOK, resp)
}

func (h *Handler) Load(c echo.Context) error {
	sid, err := uuidParam(c, "sid")
	if err != nil {
		return err
	}
	rid, err := reportIDQuery(c)
	if err != nil {
		return err
	}
	v, err := h.svc.Load(c.Request().Context(), sid, rid)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, v)
}

func (h *Handler) Save(c echo.Context) error {
	sid, err := uuidParam(c, "sid")
	if err != nil {
		return err
	}
	v, err := h.svc.Save(c.Request().Context(), sid)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, v)
}

func (h *Handler) Preview(c echo.Context) error {
	sid, err := uuidParam(c, "sid")
	if err != nil {
		return err
	}
	p, err := h.svc.Preview(c.Request().Context(), sid)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, p)
}

func (h *Handler) Generate(c echo.Context) error {
	sid, err := uuidParam(c, "sid")
	if err != nil {
		return err
	}
	out, err := h.svc.Generate(c.Request().Context(), sid)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *Handler) Close(c echo.Context) error {
	sid, err := uuidParam(c, "sid")
	if err != nil {
		return err
	}
	if err := h.svc.Close(c.Request().Context(), sid); err != nil {
		return httpError(err)
	}
	return c.NoContent(http.StatusNoContent)
}
