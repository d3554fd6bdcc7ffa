// Copyright (c) 2026 Opsdash. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package stock

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/taibuivan/opsdash/internal/access/module"
	"github.com/taibuivan/opsdash/internal/features/catalog"
	"github.com/taibuivan/opsdash/internal/platform/constants"
	requestutil "github.com/taibuivan/opsdash/internal/platform/request"
	"github.com/taibuivan/opsdash/internal/platform/respond"
	"github.com/taibuivan/opsdash/internal/platform/validate"
	"github.com/taibuivan/opsdash/internal/users/auth"
)

// TemplateFilename is the name of the downloaded bulk update workbook.
const TemplateFilename = "stock_price_template.xlsx"

// Screen serves the stock_price_updater module.
type Screen struct {
	service *Service
}

// NewScreen constructs the stock and price [Screen].
func NewScreen(service *Service) *Screen {
	return &Screen{service: service}
}

// Key identifies the screen.
func (screen *Screen) Key() module.Key { return module.KeyStockPriceUpdater }

// ChangesInput is the body of a preview or apply.
type ChangesInput struct {
	Changes []Change `json:"changes"`
}

// Routes returns the updater endpoints. List management needs the admin role.
//
// # Endpoints
//   - GET  /products                     : The three lists.
//   - POST /preview                      : Validate changes.
//   - POST /apply                        : Push changes to WooCommerce.
//   - GET  /template                     : Bulk update workbook.
//   - POST /upload                       : Apply a filled workbook (field "file").
//   - POST /sync                         : Pull stock and prices from WooCommerce.
//   - GET  /statistics                   : List sizes.
//   - GET  /history                      : Change log (batch_id, limit).
//   - PUT  /settings/{pid}/{vid}         : Set is_updatable.
//   - POST /settings/{pid}/{vid}/delete  : Move to the deleted list.
//   - POST /settings/{pid}/{vid}/restore : Take off the deleted list.
func (screen *Screen) Routes() chi.Router {
	router := chi.NewRouter()

	router.Get("/products", screen.lists)
	router.Post("/preview", screen.preview)
	router.Post("/apply", screen.apply)
	router.Get("/template", screen.template)
	router.Post("/upload", screen.upload)
	router.Post("/sync", screen.sync)
	router.Get("/statistics", screen.statistics)
	router.Get("/history", screen.history)

	router.Route("/settings/{productID}/{variationID}", func(settings chi.Router) {
		settings.Use(auth.AdminRequired)
		settings.Put("/", screen.setUpdatable)
		settings.Post("/delete", screen.markDeleted)
		settings.Post("/restore", screen.restore)
	})

	return router
}

func actor(request *http.Request) string {
	return auth.SessionFrom(request.Context()).User.UserID
}

func refParam(request *http.Request) (catalog.Ref, error) {
	productID, errProduct := strconv.ParseInt(requestutil.Param(request, "productID"), 10, 64)
	variationID, errVariation := strconv.ParseInt(requestutil.Param(request, "variationID"), 10, 64)

	validator := &validate.Validator{}
	validator.Custom("product_id", errProduct != nil || productID <= 0, "Must be a positive id")
	validator.Custom("variation_id", errVariation != nil || variationID < 0, "Must be 0 or a positive id")
	return catalog.Ref{ProductID: productID, VariationID: variationID}, validator.Err()
}

func (screen *Screen) lists(writer http.ResponseWriter, request *http.Request) {
	lists, err := screen.service.Lists(request.Context())
	if err != nil {
		respond.Error(writer, request, err)
		return
	}
	respond.OK(writer, lists)
}

func (screen *Screen) preview(writer http.ResponseWriter, request *http.Request) {
	var in ChangesInput
	if err := requestutil.DecodeJSON(request, &in); err != nil {
		respond.Error(writer, request, err)
		return
	}

	preview, err := screen.service.Preview(request.Context(), in.Changes)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}
	respond.OK(writer, preview)
}

/*
POST /api/v1/modules/stock_price_updater/apply.

Request: {"changes": [{"product_id": 7, "variation_id": 0, "new_stock": 12}]}

Response:
  - 200: ApplyResult (rows refused by the store are counted, not fatal)
  - 400: No changes
*/
func (screen *Screen) apply(writer http.ResponseWriter, request *http.Request) {
	var in ChangesInput
	if err := requestutil.DecodeJSON(request, &in); err != nil {
		respond.Error(writer, request, err)
		return
	}

	result, err := screen.service.Apply(request.Context(), actor(request), in.Changes, SourceManual)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}
	respond.OK(writer, result)
}

func (screen *Screen) template(writer http.ResponseWriter, request *http.Request) {
	body, err := screen.service.Template(request.Context())
	if err != nil {
		respond.Error(writer, request, err)
		return
	}
	respond.Attachment(writer, TemplateFilename, constants.ContentTypeXLSX, body)
}

func (screen *Screen) upload(writer http.ResponseWriter, request *http.Request) {
	upload, err := requestutil.FormFile(writer, request, "file", constants.MaxUploadSize)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	result, err := screen.service.Upload(request.Context(), actor(request), upload)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}
	respond.OK(writer, result)
}

func (screen *Screen) sync(writer http.ResponseWriter, request *http.Request) {
	result, err := screen.service.SyncFromStore(request.Context(), actor(request))
	if err != nil {
		respond.Error(writer, request, err)
		return
	}
	respond.OK(writer, result)
}

func (screen *Screen) statistics(writer http.ResponseWriter, request *http.Request) {
	stats, err := screen.service.Statistics(request.Context())
	if err != nil {
		respond.Error(writer, request, err)
		return
	}
	respond.OK(writer, stats)
}

func (screen *Screen) history(writer http.ResponseWriter, request *http.Request) {
	entries, err := screen.service.History(request.Context(),
		request.URL.Query().Get("batch_id"), requestutil.IntQuery(request, "limit", DefaultHistoryLimit))
	if err != nil {
		respond.Error(writer, request, err)
		return
	}
	respond.OK(writer, entries)
}

func (screen *Screen) setUpdatable(writer http.ResponseWriter, request *http.Request) {
	ref, err := refParam(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	var in struct {
		IsUpdatable *bool `json:"is_updatable"`
	}
	if err := requestutil.DecodeJSON(request, &in); err != nil {
		respond.Error(writer, request, err)
		return
	}
	if in.IsUpdatable == nil {
		respond.Error(writer, request, validate.RequiredError("is_updatable", "Is required"))
		return
	}

	if err := screen.service.SetUpdatable(request.Context(), actor(request), ref, *in.IsUpdatable); err != nil {
		respond.Error(writer, request, err)
		return
	}
	respond.NoContent(writer)
}

func (screen *Screen) markDeleted(writer http.ResponseWriter, request *http.Request) {
	ref, err := refParam(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}
	if err := screen.service.MarkDeleted(request.Context(), actor(request), ref); err != nil {
		respond.Error(writer, request, err)
		return
	}
	respond.NoContent(writer)
}

func (screen *Screen) restore(writer http.ResponseWriter, request *http.Request) {
	ref, err := refParam(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}
	if err := screen.service.Restore(request.Context(), actor(request), ref); err != nil {
		respond.Error(writer, request, err)
		return
	}
	respond.NoContent(writer)
}
