// Copyright (c) 2026 Opsdash. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package admin

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/taibuivan/opsdash/internal/access/module"
	"github.com/taibuivan/opsdash/internal/platform/apperr"
	requestutil "github.com/taibuivan/opsdash/internal/platform/request"
	"github.com/taibuivan/opsdash/internal/platform/respond"
	"github.com/taibuivan/opsdash/internal/platform/validate"
)

// ModulesScreen is the admin_modules screen.
type ModulesScreen struct {
	console *Console
}

// Key identifies the screen.
func (screen *ModulesScreen) Key() module.Key { return module.KeyAdminModules }

// Routes returns the catalog endpoints.
//
// # Endpoints
//   - GET    /            : Lists the whole catalog.
//   - POST   /            : Adds a module.
//   - PATCH  /{key}       : Edits name, icon, description, display order.
//   - PUT    /{key}/active: Activates or deactivates.
//   - DELETE /{key}       : Deletes an unreferenced module.
func (screen *ModulesScreen) Routes() chi.Router {
	router := chi.NewRouter()

	router.Get("/", screen.list)
	router.Post("/", screen.create)
	router.Patch("/{key}", screen.update)
	router.Put("/{key}/active", screen.setActive)
	router.Delete("/{key}", screen.remove)

	return router
}

type setActiveRequest struct {
	IsActive *bool `json:"is_active"`
}

func pathKey(request *http.Request) (module.Key, error) {
	key := module.Key(requestutil.Param(request, "key"))
	if !key.WellFormed() {
		return "", apperr.NotFound("Module")
	}
	return key, nil
}

func (screen *ModulesScreen) list(writer http.ResponseWriter, request *http.Request) {
	modules, err := screen.console.modules.ListAll(request.Context())
	if err != nil {
		respond.Error(writer, request, err)
		return
	}
	respond.OK(writer, modules)
}

/*
Create adds a module to the catalog.

POST /api/v1/modules/admin_modules

Response:
  - 201: Created module
  - 400: Malformed or reserved key
  - 409: Key already exists
*/
func (screen *ModulesScreen) create(writer http.ResponseWriter, request *http.Request) {
	var input module.CreateInput
	if err := requestutil.DecodeJSON(request, &input); err != nil {
		respond.Error(writer, request, validate.ErrInvalidJSON)
		return
	}

	created, err := screen.console.modules.Create(request.Context(), input)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	screen.console.audit(request.Context(), screen.Key(), "Added new module: "+created.Name, map[string]any{
		"module_key": string(created.Key),
	})
	respond.Created(writer, created)
}

func (screen *ModulesScreen) update(writer http.ResponseWriter, request *http.Request) {
	key, err := pathKey(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	var input module.UpdateInput
	if err := requestutil.DecodeJSON(request, &input); err != nil {
		respond.Error(writer, request, validate.ErrInvalidJSON)
		return
	}

	updated, err := screen.console.modules.Update(request.Context(), key, input)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	screen.console.audit(request.Context(), screen.Key(), "Updated module: "+updated.Name, map[string]any{
		"module_key": string(key),
	})
	respond.OK(writer, updated)
}

// setActive toggles a module and refreshes the sessions of everyone holding it.
func (screen *ModulesScreen) setActive(writer http.ResponseWriter, request *http.Request) {
	key, err := pathKey(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	var input setActiveRequest
	if err := requestutil.DecodeJSON(request, &input); err != nil || input.IsActive == nil {
		respond.Error(writer, request, validate.RequiredError("is_active", "is required"))
		return
	}

	if err := screen.console.modules.SetActive(request.Context(), key, *input.IsActive); err != nil {
		respond.Error(writer, request, err)
		return
	}

	description := "Deactivated module: " + string(key)
	if *input.IsActive {
		description = "Activated module: " + string(key)
	}
	screen.console.audit(request.Context(), screen.Key(), description, map[string]any{
		"module_key": string(key),
		"is_active":  *input.IsActive,
	})
	screen.console.refreshModuleHolders(request.Context(), key)
	respond.NoContent(writer)
}

func (screen *ModulesScreen) remove(writer http.ResponseWriter, request *http.Request) {
	key, err := pathKey(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	if err := screen.console.modules.Delete(request.Context(), key); err != nil {
		respond.Error(writer, request, err)
		return
	}

	screen.console.audit(request.Context(), screen.Key(), "Deleted module: "+string(key), map[string]any{
		"module_key": string(key),
	})
	respond.NoContent(writer)
}
