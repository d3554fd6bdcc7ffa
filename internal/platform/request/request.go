// Copyright (c) 2026 Opsdash. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package requestutil provides utilities for extracting data from HTTP requests.

It abstracts away the underlying router's parameter extraction, JSON body
decoding and multipart uploads, ensuring consistent error handling.
*/
package requestutil

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/taibuivan/opsdash/internal/platform/apperr"
	"github.com/taibuivan/opsdash/internal/platform/validate"
)

/*
DecodeJSON reads the request body and decodes it into the target structure.

Returns:
  - error: validate.ErrInvalidJSON if decoding fails, otherwise nil
*/
func DecodeJSON(request *http.Request, target interface{}) error {
	if err := json.NewDecoder(request.Body).Decode(target); err != nil {
		return validate.ErrInvalidJSON
	}
	return nil
}

/*
Param retrieves a named URL parameter from the request.
*/
func Param(request *http.Request, name string) string {
	return chi.URLParam(request, name)
}

/*
IntQuery parses an integer query parameter, returning fallback when absent or malformed.
*/
func IntQuery(request *http.Request, name string, fallback int) int {
	raw := request.URL.Query().Get(name)
	if raw == "" {
		return fallback
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return value
}

// Upload is one file read from a multipart form.
type Upload struct {
	Filename string
	Size     int64
	Data     []byte
}

func parseMultipart(writer http.ResponseWriter, request *http.Request, field string, maxBytes int64) error {
	request.Body = http.MaxBytesReader(writer, request.Body, maxBytes)
	if err := request.ParseMultipartForm(maxBytes); err != nil {
		return validate.RequiredError(field, fmt.Sprintf("Upload must be a multipart form under %d MB", maxBytes>>20))
	}
	return nil
}

func readUpload(file multipart.File, header *multipart.FileHeader) (*Upload, error) {
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		return nil, apperr.ValidationError("Uploaded file could not be read")
	}
	return &Upload{Filename: header.Filename, Size: header.Size, Data: data}, nil
}

/*
FormFile reads a single multipart file field into memory.

Parameters:
  - request: *http.Request
  - field: form field name
  - maxBytes: upper bound on the whole request body

Returns:
  - *Upload: file name and content
  - error: VALIDATION_ERROR when the field is missing or too large
*/
func FormFile(writer http.ResponseWriter, request *http.Request, field string, maxBytes int64) (*Upload, error) {
	if err := parseMultipart(writer, request, field, maxBytes); err != nil {
		return nil, err
	}

	file, header, err := request.FormFile(field)
	if err != nil {
		return nil, validate.RequiredError(field, "A file is required")
	}
	return readUpload(file, header)
}

/*
OptionalFormFile is [FormFile] for a field that may be left empty.

Returns:
  - *Upload: nil when the field is absent
  - error: VALIDATION_ERROR when the form is malformed or too large
*/
func OptionalFormFile(writer http.ResponseWriter, request *http.Request, field string, maxBytes int64) (*Upload, error) {
	if err := parseMultipart(writer, request, field, maxBytes); err != nil {
		return nil, err
	}

	file, header, err := request.FormFile(field)
	if errors.Is(err, http.ErrMissingFile) {
		return nil, nil
	}
	if err != nil {
		return nil, apperr.ValidationError("Uploaded file could not be read")
	}
	return readUpload(file, header)
}

/*
FormFiles reads every file of a multipart field into memory.
*/
func FormFiles(writer http.ResponseWriter, request *http.Request, field string, maxBytes int64) ([]Upload, error) {
	if err := parseMultipart(writer, request, field, maxBytes); err != nil {
		return nil, err
	}

	headers := request.MultipartForm.File[field]
	if len(headers) == 0 {
		return nil, validate.RequiredError(field, "At least one file is required")
	}

	uploads := make([]Upload, 0, len(headers))
	for _, header := range headers {
		file, err := header.Open()
		if err != nil {
			return nil, apperr.ValidationError("Uploaded file could not be read")
		}
		upload, err := readUpload(file, header)
		if err != nil {
			return nil, err
		}
		uploads = append(uploads, *upload)
	}

	return uploads, nil
}
