// Copyright (c) 2026 Opsdash. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package mrp implements the mrp_label_generator screen.

The label library is a bucket of single-label PDFs named "{id}.pdf", where
the id is a WooCommerce variation id or, for simple products, the product
id. A quantity sheet (normally the Item Summary sheet of an order export)
is turned into one merged document with every label repeated quantity
times. Documents longer than [ChunkPages] pages are split and zipped.
*/
package mrp

import (
	"context"
	"fmt"
	"path"
	"strconv"
	"strings"

	"github.com/taibuivan/opsdash/internal/platform/constants"
	"github.com/taibuivan/opsdash/internal/platform/document"
	"github.com/taibuivan/opsdash/internal/platform/objstore"
	requestutil "github.com/taibuivan/opsdash/internal/platform/request"
)

// MaxLabelSize caps a single library PDF.
const MaxLabelSize = 50 << 20

// Store is the object storage behind the library. [*objstore.Client] implements it.
type Store interface {
	Put(ctx context.Context, key string, data []byte, contentType string) error
	Get(ctx context.Context, key string) ([]byte, error)
	Exists(ctx context.Context, key string) (bool, error)
	List(ctx context.Context, prefix string) ([]objstore.Object, error)
	Delete(ctx context.Context, key string) error
}

// LabelFile is one PDF of the library.
type LabelFile struct {
	objstore.Object
	ID int64 `json:"id"`
}

// UploadResult reports a library upload file by file.
type UploadResult struct {
	Uploaded []string `json:"uploaded"`
	Errors   []string `json:"errors"`
}

// Library manages the label PDFs in a [Store].
type Library struct {
	store Store
}

// NewLibrary binds a [Library] to store.
func NewLibrary(store Store) *Library {
	return &Library{store: store}
}

// labelKey is the object key of id.
func labelKey(id int64) string {
	return strconv.FormatInt(id, 10) + ".pdf"
}

// parseKey returns the id of a "{id}.pdf" key.
func parseKey(key string) (int64, bool) {
	stem, found := strings.CutSuffix(strings.ToLower(path.Base(key)), ".pdf")
	if !found {
		return 0, false
	}
	id, err := strconv.ParseInt(stem, 10, 64)
	return id, err == nil && id > 0
}

// Files lists the library. Objects not named "{id}.pdf" are ignored.
func (library *Library) Files(ctx context.Context) ([]LabelFile, error) {
	objects, err := library.store.List(ctx, "")
	if err != nil {
		return nil, err
	}

	files := make([]LabelFile, 0, len(objects))
	for _, object := range objects {
		if id, ok := parseKey(object.Key); ok {
			files = append(files, LabelFile{Object: object, ID: id})
		}
	}
	return files, nil
}

// Available returns the set of ids with a label in the library.
func (library *Library) Available(ctx context.Context) (map[int64]bool, error) {
	files, err := library.Files(ctx)
	if err != nil {
		return nil, err
	}

	available := make(map[int64]bool, len(files))
	for _, file := range files {
		available[file.ID] = true
	}
	return available, nil
}

// Label downloads the PDF of id.
func (library *Library) Label(ctx context.Context, id int64) ([]byte, error) {
	return library.store.Get(ctx, labelKey(id))
}

/*
Upload stores PDFs under their own "{id}.pdf" names.

Description: Every file is checked on its own. Files that are not named by
a numeric id, exceed [MaxLabelSize], do not parse as PDF or already exist
are reported in Errors and skipped.
*/
func (library *Library) Upload(ctx context.Context, uploads []requestutil.Upload) (*UploadResult, error) {
	result := &UploadResult{Uploaded: []string{}, Errors: []string{}}

	for _, upload := range uploads {
		reject := func(reason string) {
			result.Errors = append(result.Errors, fmt.Sprintf("%s: %s", upload.Filename, reason))
		}

		id, ok := parseKey(upload.Filename)
		switch {
		case !ok:
			reject("Name must be {id}.pdf")
			continue
		case len(upload.Data) > MaxLabelSize:
			reject(fmt.Sprintf("File too large (max %d MB)", MaxLabelSize>>20))
			continue
		}
		if err := document.ValidatePDF(upload.Data); err != nil {
			reject("Not a valid PDF")
			continue
		}

		key := labelKey(id)
		exists, err := library.store.Exists(ctx, key)
		if err != nil {
			return nil, err
		}
		if exists {
			reject("Already exists (delete it first)")
			continue
		}

		if err := library.store.Put(ctx, key, upload.Data, constants.ContentTypePDF); err != nil {
			return nil, err
		}
		result.Uploaded = append(result.Uploaded, key)
	}
	return result, nil
}

// Delete removes the label of id.
func (library *Library) Delete(ctx context.Context, id int64) error {
	return library.store.Delete(ctx, labelKey(id))
}
