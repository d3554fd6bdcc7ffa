// Copyright (c) 2026 Opsdash. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package document

import (
	"bytes"
	"fmt"
	"io"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
)

func init() {
	// pdfcpu would otherwise create a config directory under $HOME.
	api.DisableConfigDir()
}

func pdfConfig() *model.Configuration {
	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed
	return conf
}

// ValidatePDF reports whether data parses as a PDF document.
func ValidatePDF(data []byte) error {
	if err := api.Validate(bytes.NewReader(data), pdfConfig()); err != nil {
		return fmt.Errorf("document_pdf_invalid: %w", err)
	}
	return nil
}

// PageCount returns the number of pages of a PDF document.
func PageCount(data []byte) (int, error) {
	count, err := api.PageCount(bytes.NewReader(data), pdfConfig())
	if err != nil {
		return 0, fmt.Errorf("document_pdf_page_count_failed: %w", err)
	}
	return count, nil
}

/*
MergePDF concatenates documents in order into one PDF.

Description: A single document is returned unchanged. The same slice may
appear several times to repeat a document.
*/
func MergePDF(documents ...[]byte) ([]byte, error) {
	switch len(documents) {
	case 0:
		return nil, fmt.Errorf("document_pdf_merge_failed: nothing to merge")
	case 1:
		return documents[0], nil
	}

	readers := make([]io.ReadSeeker, 0, len(documents))
	for _, doc := range documents {
		readers = append(readers, bytes.NewReader(doc))
	}

	var out bytes.Buffer
	if err := api.MergeRaw(readers, &out, false, pdfConfig()); err != nil {
		return nil, fmt.Errorf("document_pdf_merge_failed: %w", err)
	}
	return out.Bytes(), nil
}

// SplitPDF cuts a document into consecutive chunks of at most pages pages.
func SplitPDF(data []byte, pages int) ([][]byte, error) {
	total, err := PageCount(data)
	if err != nil {
		return nil, err
	}
	if total <= pages {
		return [][]byte{data}, nil
	}

	var chunks [][]byte
	for first := 1; first <= total; first += pages {
		last := min(first+pages-1, total)

		var out bytes.Buffer
		selection := []string{fmt.Sprintf("%d-%d", first, last)}
		if err := api.Trim(bytes.NewReader(data), &out, selection, pdfConfig()); err != nil {
			return nil, fmt.Errorf("document_pdf_split_failed: %w", err)
		}
		chunks = append(chunks, out.Bytes())
	}
	return chunks, nil
}
