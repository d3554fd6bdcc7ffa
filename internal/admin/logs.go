// Copyright (c) 2026 Opsdash. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package admin

import (
	"net/http"
	"slices"

	"github.com/go-chi/chi/v5"

	"github.com/taibuivan/opsdash/internal/access/module"
	"github.com/taibuivan/opsdash/internal/activity"
	"github.com/taibuivan/opsdash/internal/platform/constants"
	requestutil "github.com/taibuivan/opsdash/internal/platform/request"
	"github.com/taibuivan/opsdash/internal/platform/respond"
	"github.com/taibuivan/opsdash/internal/platform/validate"
)

// LogsScreen is the admin_logs screen.
type LogsScreen struct {
	console *Console
}

// Key identifies the screen.
func (screen *LogsScreen) Key() module.Key { return module.KeyAdminLogs }

// Routes returns the audit trail endpoints.
//
// # Endpoints
//   - GET /        : Recent entries (limit, user_id, module_key, action_type).
//   - GET /export  : The same listing as a CSV download.
//   - GET /stats   : Totals over the last N days.
func (screen *LogsScreen) Routes() chi.Router {
	router := chi.NewRouter()

	router.Get("/", screen.list)
	router.Get("/export", screen.export)
	router.Get("/stats", screen.stats)

	return router
}

// filterFrom reads and validates the listing filter from the query string.
func filterFrom(request *http.Request) (activity.Filter, error) {
	query := request.URL.Query()
	filter := activity.Filter{
		UserID:     query.Get("user_id"),
		ModuleKey:  query.Get("module_key"),
		ActionType: activity.ActionType(query.Get("action_type")),
		Limit:      requestutil.IntQuery(request, "limit", activity.DefaultLimit),
	}

	validator := &validate.Validator{}
	validator.Range("limit", filter.Limit, 1, activity.MaxLimit)
	if filter.UserID != "" {
		validator.UUID("user_id", filter.UserID)
	}
	if filter.ActionType != "" {
		validator.Custom("action_type", !slices.Contains(activity.ActionTypes(), filter.ActionType), "unknown action type")
	}
	return filter, validator.Err()
}

func (screen *LogsScreen) list(writer http.ResponseWriter, request *http.Request) {
	filter, err := filterFrom(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	entries, err := screen.console.logs.List(request.Context(), filter)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}
	respond.OK(writer, entries)
}

/*
Export downloads the filtered listing.

GET /api/v1/modules/admin_logs/export

Response:
  - 200: text/csv attachment named activity_logs_YYYYMMDD_HHMMSS.csv
*/
func (screen *LogsScreen) export(writer http.ResponseWriter, request *http.Request) {
	filter, err := filterFrom(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	entries, err := screen.console.logs.List(request.Context(), filter)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	body, filename, err := screen.console.logs.ExportCSV(entries)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}
	respond.Attachment(writer, filename, constants.ContentTypeCSV, body)
}

func (screen *LogsScreen) stats(writer http.ResponseWriter, request *http.Request) {
	days := requestutil.IntQuery(request, "days", 7)

	validator := &validate.Validator{}
	validator.Range("days", days, 1, 365)
	if err := validator.Err(); err != nil {
		respond.Error(writer, request, err)
		return
	}

	stats, err := screen.console.logs.Stats(request.Context(), days)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}
	respond.OK(writer, stats)
}
