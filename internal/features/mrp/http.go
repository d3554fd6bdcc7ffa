// Copyright (c) 2026 Opsdash. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package mrp

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/taibuivan/opsdash/internal/access/module"
	"github.com/taibuivan/opsdash/internal/platform/constants"
	requestutil "github.com/taibuivan/opsdash/internal/platform/request"
	"github.com/taibuivan/opsdash/internal/platform/respond"
	"github.com/taibuivan/opsdash/internal/platform/validate"
	"github.com/taibuivan/opsdash/internal/users/auth"
)

// Response headers summarising a generated download.
const (
	HeaderTotalPages = "X-Label-Pages"
	HeaderMissing    = "X-Label-Missing"
)

// Screen serves the mrp_label_generator module.
type Screen struct {
	service *Service
}

// NewScreen constructs the MRP label [Screen].
func NewScreen(service *Service) *Screen {
	return &Screen{service: service}
}

// Key identifies the screen.
func (screen *Screen) Key() module.Key { return module.KeyMRPLabelGenerator }

// Routes returns the generator and library endpoints. Library mutations need the admin role.
//
// # Endpoints
//   - POST   /check          : Availability of the labels of a sheet.
//   - POST   /generate       : The merged PDF (or zip of chunks).
//   - GET    /library        : Stored label PDFs.
//   - POST   /library        : Upload PDFs (field "files").
//   - DELETE /library/{id}   : Remove one label.
func (screen *Screen) Routes() chi.Router {
	router := chi.NewRouter()

	router.Post("/check", screen.check)
	router.Post("/generate", screen.generate)
	router.Get("/library", screen.listLibrary)

	router.Group(func(admin chi.Router) {
		admin.Use(auth.AdminRequired)
		admin.Post("/library", screen.upload)
		admin.Delete("/library/{id}", screen.delete)
	})

	return router
}

func actor(request *http.Request) string {
	return auth.SessionFrom(request.Context()).User.UserID
}

func (screen *Screen) check(writer http.ResponseWriter, request *http.Request) {
	upload, err := requestutil.FormFile(writer, request, "file", constants.MaxUploadSize)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	check, err := screen.service.Check(request.Context(), actor(request), upload)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}
	respond.OK(writer, check)
}

/*
POST /api/v1/modules/mrp_label_generator/generate (multipart, field "file").

Response:
  - 200: application/pdf or application/zip, with X-Label-Pages and X-Label-Missing
  - 400: Missing columns or sheet
  - 422: Nothing could be merged
*/
func (screen *Screen) generate(writer http.ResponseWriter, request *http.Request) {
	upload, err := requestutil.FormFile(writer, request, "file", constants.MaxUploadSize)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	output, err := screen.service.Generate(request.Context(), actor(request), upload)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	writer.Header().Set(HeaderTotalPages, strconv.Itoa(output.TotalPages))
	writer.Header().Set(HeaderMissing, strconv.Itoa(len(output.Missing)))
	respond.Attachment(writer, output.Filename, output.ContentType, output.Body)
}

func (screen *Screen) listLibrary(writer http.ResponseWriter, request *http.Request) {
	files, err := screen.service.Files(request.Context())
	if err != nil {
		respond.Error(writer, request, err)
		return
	}
	respond.OK(writer, files)
}

func (screen *Screen) upload(writer http.ResponseWriter, request *http.Request) {
	uploads, err := requestutil.FormFiles(writer, request, "files", constants.MaxLibraryUploadSize)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	result, err := screen.service.Upload(request.Context(), actor(request), uploads)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}
	respond.OK(writer, result)
}

func (screen *Screen) delete(writer http.ResponseWriter, request *http.Request) {
	id, err := strconv.ParseInt(requestutil.Param(request, "id"), 10, 64)
	if err != nil || id <= 0 {
		respond.Error(writer, request, validate.RequiredError("id", "Must be a positive label id"))
		return
	}

	if err := screen.service.Delete(request.Context(), actor(request), id); err != nil {
		respond.Error(writer, request, err)
		return
	}
	respond.NoContent(writer)
}
