package observability

import (
	"strings"

	"github.com/labstack/echo/v4"
	"go.opentelemetry.io/contrib/instrumentation/github.com/labstack/echo/otelecho"
)

// HealthPath is served by the router and never traced.
const HealthPath = "/health"

// EchoMiddleware starts a server span per request. Health probes are skipped.
func EchoMiddleware(service string) echo.MiddlewareFunc {
	return otelecho.Middleware(service, otelecho.WithSkipper(func(c echo.Context) bool {
		return c.Request().URL.Path == HealthPath
	}))
}

// EchoRequestContext copies the request id and matched route into the request
// context so logs and DB spans carry them. The route is only known after the
// router ran, so the context is refreshed once the handler returns.
func EchoRequestContext() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			annotate(c)
			err := next(c)
			annotate(c)
			return err
		}
	}
}

func annotate(c echo.Context) {
	requestID := c.Response().Header().Get(echo.HeaderXRequestID)
	if requestID == "" {
		requestID = c.Request().Header.Get(echo.HeaderXRequestID)
	}
	ctx := WithRequestMetadata(c.Request().Context(), requestID, routeOf(c))
	c.SetRequest(c.Request().WithContext(ctx))
}

func routeOf(c echo.Context) string {
	if route := strings.TrimSpace(c.Path()); route != "" {
		return route
	}
	return c.Request().URL.Path
}
