// Copyright (c) 2026 Opsdash. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package orders

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/taibuivan/opsdash/internal/access/module"
	"github.com/taibuivan/opsdash/internal/platform/constants"
	requestutil "github.com/taibuivan/opsdash/internal/platform/request"
	"github.com/taibuivan/opsdash/internal/platform/respond"
	"github.com/taibuivan/opsdash/internal/platform/validate"
	"github.com/taibuivan/opsdash/internal/users/auth"
	querystr "github.com/taibuivan/opsdash/pkg/query"
)

// Screen serves the order_extractor module.
type Screen struct {
	service *Service
}

// NewScreen constructs the order_extractor [Screen].
func NewScreen(service *Service) *Screen {
	return &Screen{service: service}
}

// Key identifies the screen.
func (screen *Screen) Key() module.Key { return module.KeyOrderExtractor }

// Routes returns the extractor endpoints.
//
// # Endpoints
//   - POST   /fetch      : Rows for a date range.
//   - POST   /export     : The same range as an xlsx download.
//   - POST   /sync       : Copy a range into the order cache.
//   - GET    /metrics    : Cached count and value per status.
//   - GET    /sync/last  : Time of the last cache write.
//   - DELETE /cache      : Drop cached orders older than days_old.
func (screen *Screen) Routes() chi.Router {
	router := chi.NewRouter()

	router.Post("/fetch", screen.fetch)
	router.Post("/export", screen.export)
	router.Post("/sync", screen.sync)
	router.Get("/metrics", screen.metrics)
	router.Get("/sync/last", screen.lastSync)
	router.Delete("/cache", screen.clearCache)

	return router
}

func decodeRange(request *http.Request) (RangeInput, error) {
	var in RangeInput
	err := requestutil.DecodeJSON(request, &in)
	return in, err
}

/*
POST /api/v1/modules/order_extractor/fetch.

Request: {"start_date": "2026-01-01", "end_date": "2026-01-31"}

Response:
  - 200: FetchResult
  - 400: Invalid or too long range
  - 502: WooCommerce failed
*/
func (screen *Screen) fetch(writer http.ResponseWriter, request *http.Request) {
	in, err := decodeRange(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	result, err := screen.service.Fetch(request.Context(), auth.SessionFrom(request.Context()).User.UserID, in)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}
	respond.OK(writer, result)
}

func (screen *Screen) export(writer http.ResponseWriter, request *http.Request) {
	in, err := decodeRange(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	body, filename, err := screen.service.Export(request.Context(), auth.SessionFrom(request.Context()).User.UserID, in)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}
	respond.Attachment(writer, filename, constants.ContentTypeXLSX, body)
}

func (screen *Screen) sync(writer http.ResponseWriter, request *http.Request) {
	in, err := decodeRange(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	result, err := screen.service.Sync(request.Context(), auth.SessionFrom(request.Context()).User.UserID, in)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}
	respond.OK(writer, result)
}

/*
GET /api/v1/modules/order_extractor/metrics?start_date=&end_date=&status=a,b.

Response:
  - 200: []StatusTotal in the requested status order
*/
func (screen *Screen) metrics(writer http.ResponseWriter, request *http.Request) {
	query := request.URL.Query()

	validator := &validate.Validator{}
	start, end := validator.DateRange("start_date", query.Get("start_date"), "end_date", query.Get("end_date"), 0)
	if err := validator.Err(); err != nil {
		respond.Error(writer, request, err)
		return
	}

	totals, err := screen.service.StatusMetrics(request.Context(), start, end, querystr.StringSlice(query.Get("status")))
	if err != nil {
		respond.Error(writer, request, err)
		return
	}
	respond.OK(writer, totals)
}

func (screen *Screen) lastSync(writer http.ResponseWriter, request *http.Request) {
	last, err := screen.service.LastSyncTime(request.Context())
	if err != nil {
		respond.Error(writer, request, err)
		return
	}
	respond.OK(writer, map[string]any{"last_sync": last})
}

func (screen *Screen) clearCache(writer http.ResponseWriter, request *http.Request) {
	days := requestutil.IntQuery(request, "days_old", DefaultRetentionDays)

	validator := &validate.Validator{}
	validator.Range("days_old", days, 1, 3650)
	if err := validator.Err(); err != nil {
		respond.Error(writer, request, err)
		return
	}

	deleted, err := screen.service.ClearCache(request.Context(), auth.SessionFrom(request.Context()).User.UserID, days)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}
	respond.OK(writer, map[string]any{"deleted": deleted})
}
