// Copyright (c) 2026 Opsdash. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package document

import (
	"archive/zip"
	"bytes"
	"fmt"
)

// File is one entry of a zip bundle.
type File struct {
	Name string
	Data []byte
}

// Zip bundles files in order with deflate compression.
func Zip(files ...File) ([]byte, error) {
	var buffer bytes.Buffer
	writer := zip.NewWriter(&buffer)

	for _, file := range files {
		entry, err := writer.CreateHeader(&zip.FileHeader{Name: file.Name, Method: zip.Deflate})
		if err != nil {
			return nil, fmt.Errorf("document_zip_entry_failed: %w", err)
		}
		if _, err := entry.Write(file.Data); err != nil {
			return nil, fmt.Errorf("document_zip_write_failed: %w", err)
		}
	}

	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("document_zip_close_failed: %w", err)
	}
	return buffer.Bytes(), nil
}
