// Copyright (c) 2026 Opsdash. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package catalog

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/taibuivan/opsdash/internal/access/module"
	requestutil "github.com/taibuivan/opsdash/internal/platform/request"
	"github.com/taibuivan/opsdash/internal/platform/respond"
	"github.com/taibuivan/opsdash/internal/platform/validate"
	"github.com/taibuivan/opsdash/internal/users/auth"
	"github.com/taibuivan/opsdash/pkg/pagination"
)

// Screen serves the product_management module.
type Screen struct {
	service *Service
}

// NewScreen constructs the catalog [Screen].
func NewScreen(service *Service) *Screen {
	return &Screen{service: service}
}

// Key identifies the screen.
func (screen *Screen) Key() module.Key { return module.KeyProductManagement }

// Routes returns the catalog endpoints. Every write needs the admin role.
//
// # Endpoints
//   - GET    /                  : Paginated listing (status, category, search, active_only).
//   - GET    /stats             : Catalog counts.
//   - GET    /statuses          : Statuses in use.
//   - GET    /categories        : Categories in use.
//   - GET    /{pid}/{vid}       : One row.
//   - POST   /                  : Add a row.
//   - PATCH  /{pid}/{vid}       : Update a row.
//   - DELETE /{pid}/{vid}       : Delete a row.
//   - POST   /bulk/update       : Same patch on many rows.
//   - POST   /bulk/delete       : Delete many rows.
//   - POST   /sync              : Pull new products from WooCommerce.
func (screen *Screen) Routes() chi.Router {
	router := chi.NewRouter()

	router.Get("/", screen.list)
	router.Get("/stats", screen.stats)
	router.Get("/statuses", screen.statuses)
	router.Get("/categories", screen.categories)
	router.Get("/{productID}/{variationID}", screen.get)

	router.Group(func(admin chi.Router) {
		admin.Use(auth.AdminRequired)
		admin.Post("/", screen.create)
		admin.Patch("/{productID}/{variationID}", screen.update)
		admin.Delete("/{productID}/{variationID}", screen.delete)
		admin.Post("/bulk/update", screen.bulkUpdate)
		admin.Post("/bulk/delete", screen.bulkDelete)
		admin.Post("/sync", screen.sync)
	})

	return router
}

func actor(request *http.Request) string {
	return auth.SessionFrom(request.Context()).User.UserID
}

// refParam reads the {productID}/{variationID} path segments.
func refParam(request *http.Request) (Ref, error) {
	productID, errProduct := strconv.ParseInt(requestutil.Param(request, "productID"), 10, 64)
	variationID, errVariation := strconv.ParseInt(requestutil.Param(request, "variationID"), 10, 64)

	validator := &validate.Validator{}
	validator.Custom("product_id", errProduct != nil || productID <= 0, "Must be a positive id")
	validator.Custom("variation_id", errVariation != nil || variationID < 0, "Must be 0 or a positive id")
	return Ref{ProductID: productID, VariationID: variationID}, validator.Err()
}

/*
GET /api/v1/modules/product_management?status=&category=&search=&active_only=&page=&limit=.

Response:
  - 200: []Product with pagination meta
  - 400: Unknown status
*/
func (screen *Screen) list(writer http.ResponseWriter, request *http.Request) {
	query := request.URL.Query()
	params := pagination.FromRequest(request)
	activeOnly, _ := strconv.ParseBool(query.Get("active_only"))

	products, total, err := screen.service.List(request.Context(), Filter{
		Status:     query.Get("status"),
		Category:   query.Get("category"),
		Search:     query.Get("search"),
		ActiveOnly: activeOnly,
		Limit:      params.Limit,
		Offset:     params.Offset(),
	})
	if err != nil {
		respond.Error(writer, request, err)
		return
	}
	respond.Paginated(writer, products, pagination.NewMeta(params.Page, params.Limit, total))
}

func (screen *Screen) stats(writer http.ResponseWriter, request *http.Request) {
	stats, err := screen.service.Stats(request.Context())
	if err != nil {
		respond.Error(writer, request, err)
		return
	}
	respond.OK(writer, stats)
}

func (screen *Screen) statuses(writer http.ResponseWriter, request *http.Request) {
	statuses, err := screen.service.Statuses(request.Context())
	if err != nil {
		respond.Error(writer, request, err)
		return
	}
	respond.OK(writer, statuses)
}

func (screen *Screen) categories(writer http.ResponseWriter, request *http.Request) {
	categories, err := screen.service.Categories(request.Context())
	if err != nil {
		respond.Error(writer, request, err)
		return
	}
	respond.OK(writer, categories)
}

func (screen *Screen) get(writer http.ResponseWriter, request *http.Request) {
	ref, err := refParam(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	product, err := screen.service.Get(request.Context(), ref)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}
	respond.OK(writer, product)
}

func (screen *Screen) create(writer http.ResponseWriter, request *http.Request) {
	var in CreateInput
	if err := requestutil.DecodeJSON(request, &in); err != nil {
		respond.Error(writer, request, err)
		return
	}

	product, err := screen.service.Add(request.Context(), actor(request), in)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}
	respond.Created(writer, product)
}

func (screen *Screen) update(writer http.ResponseWriter, request *http.Request) {
	ref, err := refParam(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	var patch Patch
	if err := requestutil.DecodeJSON(request, &patch); err != nil {
		respond.Error(writer, request, err)
		return
	}

	product, err := screen.service.Update(request.Context(), actor(request), ref, patch)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}
	respond.OK(writer, product)
}

func (screen *Screen) delete(writer http.ResponseWriter, request *http.Request) {
	ref, err := refParam(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	if err := screen.service.Delete(request.Context(), actor(request), ref); err != nil {
		respond.Error(writer, request, err)
		return
	}
	respond.NoContent(writer)
}

func (screen *Screen) bulkUpdate(writer http.ResponseWriter, request *http.Request) {
	var in BulkInput
	if err := requestutil.DecodeJSON(request, &in); err != nil {
		respond.Error(writer, request, err)
		return
	}

	updated, err := screen.service.BulkUpdate(request.Context(), actor(request), in)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}
	respond.OK(writer, map[string]int64{"updated": updated})
}

func (screen *Screen) bulkDelete(writer http.ResponseWriter, request *http.Request) {
	var in BulkInput
	if err := requestutil.DecodeJSON(request, &in); err != nil {
		respond.Error(writer, request, err)
		return
	}

	deleted, err := screen.service.BulkDelete(request.Context(), actor(request), in.Refs)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}
	respond.OK(writer, map[string]int64{"deleted": deleted})
}

func (screen *Screen) sync(writer http.ResponseWriter, request *http.Request) {
	result, err := screen.service.Sync(request.Context(), actor(request))
	if err != nil {
		respond.Error(writer, request, err)
		return
	}
	respond.OK(writer, result)
}
