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

// PermissionsScreen is the admin_permissions screen.
type PermissionsScreen struct {
	console *Console
}

// Key identifies the screen.
func (screen *PermissionsScreen) Key() module.Key { return module.KeyAdminPermissions }

// Routes returns the grant management endpoints.
//
// # Endpoints
//   - GET    /{userID}        : Lists the grants of a user.
//   - PUT    /{userID}        : Replaces the grant set of a user.
//   - POST   /{userID}/{key}  : Grants one module.
//   - DELETE /{userID}/{key}  : Revokes one module.
func (screen *PermissionsScreen) Routes() chi.Router {
	router := chi.NewRouter()

	router.Get("/{userID}", screen.list)
	router.Put("/{userID}", screen.replace)
	router.Post("/{userID}/{key}", screen.grant)
	router.Delete("/{userID}/{key}", screen.revoke)

	return router
}

type replaceGrantsRequest struct {
	ModuleKeys []string `json:"module_keys"`
}

func (screen *PermissionsScreen) list(writer http.ResponseWriter, request *http.Request) {
	grants, err := screen.console.modules.ListGrants(request.Context(), requestutil.Param(request, "userID"))
	if err != nil {
		respond.Error(writer, request, err)
		return
	}
	respond.OK(writer, grants)
}

/*
Replace swaps the whole grant set of a user.

PUT /api/v1/modules/admin_permissions/{userID}

Request:
  - Body: replaceGrantsRequest (ModuleKeys)

Response:
  - 200: The stored keys
  - 400: Unknown or inactive module keys
  - 404: Unknown user
*/
func (screen *PermissionsScreen) replace(writer http.ResponseWriter, request *http.Request) {
	var input replaceGrantsRequest
	if err := requestutil.DecodeJSON(request, &input); err != nil {
		respond.Error(writer, request, validate.ErrInvalidJSON)
		return
	}

	ctx := request.Context()
	userID := requestutil.Param(request, "userID")

	profile, err := screen.console.accounts.FindProfile(ctx, userID)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	stored, err := screen.console.modules.ReplaceGrants(ctx, userID, input.ModuleKeys, actorID(ctx))
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	screen.console.audit(ctx, screen.Key(), "Updated permissions for "+profile.Email, map[string]any{
		"target_user": profile.Email,
		"modules":     stored,
	})
	screen.console.refresh(ctx, userID)

	respond.OK(writer, map[string]any{module.FieldModuleKeys: stored})
}

func (screen *PermissionsScreen) grant(writer http.ResponseWriter, request *http.Request) {
	screen.changeOne(writer, request, true)
}

func (screen *PermissionsScreen) revoke(writer http.ResponseWriter, request *http.Request) {
	screen.changeOne(writer, request, false)
}

// changeOne grants or revokes the module named in the path.
func (screen *PermissionsScreen) changeOne(writer http.ResponseWriter, request *http.Request, allow bool) {
	ctx := request.Context()
	userID := requestutil.Param(request, "userID")

	key := module.Key(requestutil.Param(request, "key"))
	if !key.WellFormed() {
		respond.Error(writer, request, apperr.NotFound("Module"))
		return
	}

	if _, err := screen.console.accounts.FindProfile(ctx, userID); err != nil {
		respond.Error(writer, request, err)
		return
	}

	var err error
	description := "Granted " + string(key)
	if allow {
		err = screen.console.modules.Grant(ctx, userID, key, actorID(ctx))
	} else {
		description = "Revoked " + string(key)
		err = screen.console.modules.Revoke(ctx, userID, key)
	}
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	screen.console.audit(ctx, screen.Key(), description, map[string]any{
		"target_user_id": userID,
		"module_key":     string(key),
		"access":         allow,
	})
	screen.console.refresh(ctx, userID)

	respond.NoContent(writer)
}
