package handler

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
)

// ctxSubject returns the authenticated subject injected by the Auth
// middleware. A missing role means the middleware did not run.
func ctxSubject(c echo.Context) (username, role string, err error) {
	role, _ = c.Get("role").(string)
	if role == "" {
		return "", "", echo.NewHTTPError(http.StatusUnauthorized, "missing authentication claims")
	}
	username, _ = c.Get("username").(string)
	return username, role, nil
}

// queryValues returns every value of the query parameter name, trimmed.
func queryValues(c echo.Context, name string) []string {
	raw := c.QueryParams()[name]
	out := make([]string, 0, len(raw))
	for _, v := range raw {
		out = append(out, strings.TrimSpace(v))
	}
	return out
}
