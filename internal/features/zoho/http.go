// Copyright (c) 2026 Opsdash. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package zoho

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/taibuivan/opsdash/internal/access/module"
	"github.com/taibuivan/opsdash/internal/platform/constants"
	requestutil "github.com/taibuivan/opsdash/internal/platform/request"
	"github.com/taibuivan/opsdash/internal/platform/respond"
	"github.com/taibuivan/opsdash/internal/users/auth"
)

// ItemDatabaseField is the multipart field of an item database file.
const ItemDatabaseField = "item_database"

// Screen serves the woocommerce_zoho_export module.
type Screen struct {
	service *Service
}

// NewScreen constructs the Zoho export [Screen].
func NewScreen(service *Service) *Screen {
	return &Screen{service: service}
}

// Key identifies the screen.
func (screen *Screen) Key() module.Key { return module.KeyWooZohoExport }

// Routes returns the export endpoints.
//
// # Endpoints
//   - POST /preview : Lines, replacements and summary of a range.
//   - POST /export  : The zip bundle of a range.
//   - GET  /items   : The saved item database.
//   - PUT  /items   : Replace the saved item database (field "item_database").
//
// Preview and export take JSON, or a multipart form with the same fields and
// an optional item_database file that overrides the saved one.
func (screen *Screen) Routes() chi.Router {
	router := chi.NewRouter()

	router.Post("/preview", screen.preview)
	router.Post("/export", screen.export)
	router.Get("/items", screen.items)
	router.Put("/items", screen.saveItems)

	return router
}

func actor(request *http.Request) string {
	return auth.SessionFrom(request.Context()).User.UserID
}

// readInput decodes a JSON or multipart export request.
func readInput(writer http.ResponseWriter, request *http.Request) (Input, *requestutil.Upload, error) {
	var in Input
	if !strings.HasPrefix(request.Header.Get("Content-Type"), "multipart/") {
		err := requestutil.DecodeJSON(request, &in)
		return in, nil, err
	}

	upload, err := requestutil.OptionalFormFile(writer, request, ItemDatabaseField, constants.MaxUploadSize)
	if err != nil {
		return in, nil, err
	}

	in.StartDate = request.FormValue("start_date")
	in.EndDate = request.FormValue("end_date")
	in.InvoicePrefix = request.FormValue("invoice_prefix")
	// A malformed sequence stays zero and fails the range check.
	in.StartSequence, _ = strconv.Atoi(strings.TrimSpace(request.FormValue("start_sequence")))
	return in, upload, nil
}

func (screen *Screen) preview(writer http.ResponseWriter, request *http.Request) {
	in, upload, err := readInput(writer, request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	preview, err := screen.service.Preview(request.Context(), actor(request), in, upload)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}
	respond.OK(writer, preview)
}

/*
POST /api/v1/modules/woocommerce_zoho_export/export.

Request: {"start_date": "2026-04-01", "end_date": "2026-04-30", "invoice_prefix": "ECHE/2526/", "start_sequence": 101}

Response:
  - 200: orders_export.zip
  - 400: Invalid range, prefix or sequence
  - 422: No completed orders in the range
  - 502: WooCommerce failed
*/
func (screen *Screen) export(writer http.ResponseWriter, request *http.Request) {
	in, upload, err := readInput(writer, request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	bundle, err := screen.service.Export(request.Context(), actor(request), in, upload)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}
	respond.Attachment(writer, ExportFilename, constants.ContentTypeZIP, bundle)
}

func (screen *Screen) items(writer http.ResponseWriter, request *http.Request) {
	items, err := screen.service.SavedItemDatabase(request.Context())
	if err != nil {
		respond.Error(writer, request, err)
		return
	}
	respond.OK(writer, map[string]any{"items": items.Items(), "count": items.Len()})
}

func (screen *Screen) saveItems(writer http.ResponseWriter, request *http.Request) {
	upload, err := requestutil.FormFile(writer, request, ItemDatabaseField, constants.MaxUploadSize)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	items, err := screen.service.SaveItemDatabase(request.Context(), actor(request), upload)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}
	respond.OK(writer, map[string]any{"count": items.Len(), "warnings": items.Warnings})
}
