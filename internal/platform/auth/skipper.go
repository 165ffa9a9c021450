package auth

import (
	"github.com/labstack/echo/v4"
)

// publicPaths bypass authentication: the banner, infrastructure endpoints
// and the placeholder auth routes.
var publicPaths = map[string]bool{
	"/":                  true,
	"/health":            true,
	"/health/db":         true,
	"/metrics":           true,
	"/api/auth/register": true,
	"/api/auth/login":    true,
}

// AuthSkipper matches on the registered route pattern.
func AuthSkipper(c echo.Context) bool {
	return publicPaths[c.Path()]
}

func IsPublicPath(path string) bool {
	return publicPaths[path]
}
