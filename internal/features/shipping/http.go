// Copyright (c) 2026 Opsdash. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package shipping

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/taibuivan/opsdash/internal/access/module"
	"github.com/taibuivan/opsdash/internal/platform/constants"
	requestutil "github.com/taibuivan/opsdash/internal/platform/request"
	"github.com/taibuivan/opsdash/internal/platform/respond"
	"github.com/taibuivan/opsdash/internal/platform/validate"
	"github.com/taibuivan/opsdash/internal/users/auth"
)

// uploadField is the multipart field holding the sheet.
const uploadField = "file"

// Screen serves the shipping_label_generator module.
type Screen struct {
	service *Service
}

// NewScreen constructs the shipping label [Screen].
func NewScreen(service *Service) *Screen {
	return &Screen{service: service}
}

// Key identifies the screen.
func (screen *Screen) Key() module.Key { return module.KeyShippingLabelGenerator }

// Routes returns the label endpoints.
//
// # Endpoints
//   - GET  /options   : Fonts and default dimensions.
//   - POST /preview   : Cleaning statistics for an upload.
//   - POST /generate  : The rendered PDF (or zip of batches).
func (screen *Screen) Routes() chi.Router {
	router := chi.NewRouter()

	router.Get("/options", screen.options)
	router.Post("/preview", screen.preview)
	router.Post("/generate", screen.generate)

	return router
}

func (screen *Screen) options(writer http.ResponseWriter, _ *http.Request) {
	respond.OK(writer, map[string]any{
		"fonts":             Fonts,
		"defaults":          DefaultOptions(),
		"min_dimension_mm":  MinDimensionMM,
		"max_dimension_mm":  MaxDimensionMM,
		"max_font_override": MaxFontOverride,
		"batch_size":        BatchSize,
	})
}

// optionsFrom reads the layout form values, keeping defaults for absent ones.
func optionsFrom(request *http.Request) (Options, error) {
	opts := DefaultOptions()
	validator := &validate.Validator{}

	readFloat := func(field string, target *float64) {
		raw := strings.TrimSpace(request.FormValue(field))
		if raw == "" {
			return
		}
		value, err := strconv.ParseFloat(raw, 64)
		validator.Custom(field, err != nil, "Must be a number")
		if err == nil {
			*target = value
		}
	}
	readFloat("width_mm", &opts.WidthMM)
	readFloat("height_mm", &opts.HeightMM)

	if font := strings.TrimSpace(request.FormValue("font")); font != "" {
		opts.Font = font
	}
	if raw := strings.TrimSpace(request.FormValue("font_override")); raw != "" {
		value, err := strconv.Atoi(raw)
		validator.Custom("font_override", err != nil, "Must be an integer")
		opts.FontOverride = value
	}

	return opts, validator.Err()
}

func (screen *Screen) preview(writer http.ResponseWriter, request *http.Request) {
	upload, err := requestutil.FormFile(writer, request, uploadField, constants.MaxUploadSize)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	preview, err := screen.service.Preview(request.Context(), auth.SessionFrom(request.Context()).User.UserID, upload)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}
	respond.OK(writer, preview)
}

/*
POST /api/v1/modules/shipping_label_generator/generate (multipart).

Request fields: file, width_mm, height_mm, font, font_override.

Response:
  - 200: application/pdf, or application/zip above the batch size
  - 400: Invalid options or missing columns
  - 422: No usable rows
*/
func (screen *Screen) generate(writer http.ResponseWriter, request *http.Request) {
	upload, err := requestutil.FormFile(writer, request, uploadField, constants.MaxUploadSize)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	opts, err := optionsFrom(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	output, err := screen.service.Generate(request.Context(), auth.SessionFrom(request.Context()).User.UserID, upload, opts)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}
	respond.Attachment(writer, output.Filename, output.ContentType, output.Body)
}
