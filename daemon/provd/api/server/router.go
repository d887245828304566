// Copyright (C) 2019-2025 Algorand, Inc.
// This file is part of go-provenance
//
// go-provenance is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as
// published by the Free Software Foundation, either version 3 of the
// License, or (at your option) any later version.
//
// go-provenance is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with go-provenance.  If not, see <https://www.gnu.org/licenses/>.

// Package server builds the provd REST API router.
//
// Every route except /health and /metrics requires the X-Prov-API-Token
// header when an API token is configured.
package server

import (
	"net"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/algorand/go-provenance/daemon/provd/api/server/lib/middlewares"
	v1 "github.com/algorand/go-provenance/daemon/provd/api/server/v1"
	"github.com/algorand/go-provenance/logging"
)

const (
	healthPath  = "/health"
	metricsPath = "/metrics"
)

// NewRouter builds and returns a new router with our REST handlers
// registered. An empty apiToken disables authentication; a nil metrics
// handler disables /metrics.
func NewRouter(logger logging.Logger, node v1.NodeInterface, shutdown <-chan struct{}, apiToken string, metrics http.Handler, listener net.Listener) *echo.Echo {
	e := echo.New()

	e.Listener = listener
	e.HideBanner = true
	e.HidePort = true

	e.Pre(middlewares.MakeLogger(logger))
	e.Use(middlewares.MakeCORS(middlewares.TokenHeader))
	if apiToken != "" {
		e.Use(middlewares.MakeAuth(middlewares.TokenHeader, []string{apiToken}, healthPath, metricsPath))
	}

	e.GET(healthPath, func(ctx echo.Context) error {
		return ctx.NoContent(http.StatusOK)
	})
	if metrics != nil {
		e.GET(metricsPath, echo.WrapHandler(metrics))
	}

	v1.RegisterHandlers(e, &v1.Handlers{
		Node:     node,
		Log:      logger,
		Shutdown: shutdown,
	})
	return e
}
