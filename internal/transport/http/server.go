// Package http wires the echo servers of the agent runtime.
package http

import (
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/baYsed-BuidlAI/luna/internal/events"
	"github.com/baYsed-BuidlAI/luna/internal/service"
	"github.com/baYsed-BuidlAI/luna/internal/transport/http/internalapi"
	v1 "github.com/baYsed-BuidlAI/luna/internal/transport/http/v1"
	"github.com/baYsed-BuidlAI/luna/internal/transport/ws"
)

// NewExternalServer creates the public server: the v1 API, the websocket
// endpoint and /metrics.
func NewExternalServer(svc *service.Service, table *events.Table, wsServer *ws.Server, gatherer prometheus.Gatherer) *echo.Echo {
	e := echo.New()
	e.HideBanner = true

	e.Use(middleware.Logger())
	e.Use(middleware.Recover())
	e.Use(middleware.CORS())

	v1.NewHandler(svc, table).RegisterRoutes(e)
	if wsServer != nil {
		e.GET("/ws", wsServer.HandleWebSocket)
	}
	if gatherer != nil {
		e.GET("/metrics", echo.WrapHandler(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))
	}

	return e
}

// NewInternalServer creates the server used by platform adapters.
func NewInternalServer(table *events.Table) *echo.Echo {
	e := echo.New()
	e.HideBanner = true

	e.Use(middleware.Logger())
	e.Use(middleware.Recover())

	internalapi.NewHandler(table).RegisterRoutes(e)

	return e
}
