// Copyright (c) 2026 Opsdash. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package api

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/taibuivan/opsdash/internal/access/module"
	"github.com/taibuivan/opsdash/internal/features/orders"
	"github.com/taibuivan/opsdash/internal/platform/ctxutil"
	"github.com/taibuivan/opsdash/internal/platform/respond"
	"github.com/taibuivan/opsdash/internal/users/auth"
)

// OrderOverview supplies the order block of the dashboard. [*orders.Service] implements it.
type OrderOverview interface {
	Overview(ctx context.Context) (*orders.Overview, error)
}

// Dashboard is the landing view of a signed-in user.
type Dashboard struct {
	Profile *auth.Profile    `json:"profile"`
	Modules []module.Module  `json:"modules"`
	Current module.Key       `json:"current_module,omitempty"`
	Orders  *orders.Overview `json:"orders,omitempty"`
}

// DashboardHandler serves GET /api/v1/dashboard.
type DashboardHandler struct {
	orders OrderOverview
}

// NewDashboardHandler constructs the [DashboardHandler].
func NewDashboardHandler(overview OrderOverview) *DashboardHandler {
	return &DashboardHandler{orders: overview}
}

/*
ServeHTTP renders the modules of the session and, for users who may open
the order extractor, the cached order metrics.

Description: The dashboard still renders when the order cache cannot be
read. The failure is logged and the orders block is left out.
*/
func (handler *DashboardHandler) ServeHTTP(writer http.ResponseWriter, request *http.Request) {
	session := auth.SessionFrom(request.Context())

	view := Dashboard{
		Profile: session.Profile,
		Modules: session.Modules,
		Current: session.CurrentModule,
	}
	if view.Modules == nil {
		view.Modules = []module.Module{}
	}

	if session.HasModuleAccess(module.KeyOrderExtractor) {
		overview, err := handler.orders.Overview(request.Context())
		if err != nil {
			ctxutil.GetLogger(request.Context()).Warn("dashboard_orders_unavailable", slog.Any("error", err))
		} else {
			view.Orders = overview
		}
	}

	respond.OK(writer, view)
}
