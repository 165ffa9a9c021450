// Package reporting serves the dashboard: predefined aggregate measures over
// the caller's own patients and reports, evaluated directly in Postgres.
package reporting

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/blua/laudos/internal/platform/auth"
	"github.com/blua/laudos/internal/platform/db"
)

// MeasureDefinition is one dashboard query. $1 is always the owner's id.
type MeasureDefinition struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	SQL         string `json:"-"`
}

type MeasureReport struct {
	MeasureID   string                   `json:"measure_id"`
	MeasureName string                   `json:"measure_name"`
	GeneratedAt time.Time                `json:"generated_at"`
	Results     []map[string]interface{} `json:"results"`
}

var PredefinedMeasures = []MeasureDefinition{
	{
		ID:          "patient-count",
		Name:        "Pacientes cadastrados",
		Description: "Total patients registered by the professional",
		SQL:         `SELECT COUNT(*) AS total FROM patients WHERE created_by = $1`,
	},
	{
		ID:          "patients-by-gender",
		Name:        "Pacientes por gênero",
		Description: "Patients grouped by recorded gender",
		SQL: `SELECT gender, COUNT(*) AS total FROM patients
WHERE created_by = $1 GROUP BY gender ORDER BY total DESC`,
	},
	{
		ID:          "reports-by-status",
		Name:        "Laudos por status",
		Description: "Reports grouped by draft/complete status",
		SQL: `SELECT status, COUNT(*) AS total FROM reports
WHERE professional_id = $1 GROUP BY status ORDER BY status`,
	},
	{
		ID:          "recent-reports",
		Name:        "Laudos recentes",
		Description: "The ten most recently created reports with their patient",
		SQL: `SELECT r.id, r.title, r.status, r.created_at, p.id AS patient_id, p.full_name AS patient_name
FROM reports r JOIN patients p ON p.id = r.patient_id
WHERE r.professional_id = $1 ORDER BY r.created_at DESC LIMIT 10`,
	},
	{
		ID:          "criteria-frequency",
		Name:        "Frequência dos critérios DSM-5",
		Description: "How often each DSM-5 criterion is marked met across the professional's reports",
		SQL: `SELECT dc.criterion_code, COUNT(*) AS total FROM diagnostic_criteria dc
JOIN reports r ON r.id = dc.report_id
WHERE r.professional_id = $1 AND dc.is_met GROUP BY dc.criterion_code ORDER BY dc.criterion_code`,
	},
}

type Handler struct {
	q db.Querier
}

func NewHandler(q db.Querier) *Handler {
	return &Handler{q: q}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	g := api.Group("/dashboard")
	g.GET("/measures", h.ListMeasures)
	g.GET("/measures/:id", h.EvaluateMeasure)
}

func (h *Handler) ListMeasures(c echo.Context) error {
	return c.JSON(http.StatusOK, PredefinedMeasures)
}

func (h *Handler) EvaluateMeasure(c echo.Context) error {
	measure := FindMeasure(c.Param("id"))
	if measure == nil {
		return echo.NewHTTPError(http.StatusNotFound, "measure not found")
	}
	s, err := auth.Require(c.Request().Context())
	if err != nil {
		return echo.NewHTTPError(http.StatusUnauthorized, err.Error())
	}

	results, err := h.executeSQL(c.Request().Context(), measure.SQL, s.UserID)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadGateway, fmt.Sprintf("query failed: %v", err))
	}

	return c.JSON(http.StatusOK, MeasureReport{
		MeasureID:   measure.ID,
		MeasureName: measure.Name,
		GeneratedAt: time.Now().UTC(),
		Results:     results,
	})
}

// executeSQL returns each row as a column-name keyed map.
func (h *Handler) executeSQL(ctx context.Context, sql string, args ...interface{}) ([]map[string]interface{}, error) {
	rows, err := h.q.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	fieldDescs := rows.FieldDescriptions()
	results := []map[string]interface{}{}
	for rows.Next() {
		values, err := rows.Values()
		if err != nil {
			return nil, err
		}
		row := make(map[string]interface{}, len(fieldDescs))
		for i, fd := range fieldDescs {
			row[fd.Name] = values[i]
		}
		results = append(results, row)
	}
	return results, rows.Err()
}

func FindMeasure(id string) *MeasureDefinition {
	for i := range PredefinedMeasures {
		if PredefinedMeasures[i].ID == id {
			return &PredefinedMeasures[i]
		}
	}
	return nil
}
