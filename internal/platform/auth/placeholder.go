package auth

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
)

// SimulatedToken is what the placeholder login hands out for any body.
const SimulatedToken = "jwt.token.simulado"

const Banner = "API do Sistema de Geração de Laudos de Autismo está no ar!"

type RegisterRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	FullName string `json:"fullName"`
	Role     string `json:"role"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// PlaceholderHandler serves the stub registration and login endpoints.
// Real accounts live in the managed auth service; these routes validate,
// hash and persist nothing and accept any credentials.
type PlaceholderHandler struct {
	logger zerolog.Logger
}

func NewPlaceholderHandler(logger zerolog.Logger) *PlaceholderHandler {
	return &PlaceholderHandler{logger: logger.With().Str("component", "auth-placeholder").Logger()}
}

func (h *PlaceholderHandler) RegisterRoutes(g *echo.Group) {
	g.POST("/register", h.Register)
	g.POST("/login", h.Login)
}

// decodeBody accepts an empty body as an empty object.
func decodeBody(c echo.Context, v interface{}) error {
	raw, err := io.ReadAll(c.Request().Body)
	if err != nil {
		return err
	}
	if len(bytes.TrimSpace(raw)) == 0 {
		return nil
	}
	return json.Unmarshal(raw, v)
}

func (h *PlaceholderHandler) Register(c echo.Context) error {
	var req RegisterRequest
	if err := decodeBody(c, &req); err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{
			"message": "Erro ao registrar usuário",
			"error":   err.Error(),
		})
	}

	h.logger.Info().
		Str("email", req.Email).
		Str("full_name", req.FullName).
		Str("role", req.Role).
		Msg("registration received")

	return c.JSON(http.StatusCreated, map[string]string{
		"message": "Usuário registrado com sucesso (simulação)",
	})
}

func (h *PlaceholderHandler) Login(c echo.Context) error {
	var req LoginRequest
	if err := decodeBody(c, &req); err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{
			"message": "Erro ao fazer login",
			"error":   err.Error(),
		})
	}

	h.logger.Info().Str("email", req.Email).Msg("login attempt received")

	return c.JSON(http.StatusOK, map[string]string{
		"message": "Login bem-sucedido (simulação)",
		"token":   SimulatedToken,
	})
}

// BannerHandler answers GET / with a plain-text liveness line.
func BannerHandler(c echo.Context) error {
	return c.String(http.StatusOK, Banner)
}
