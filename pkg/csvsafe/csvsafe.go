// Copyright (c) 2026 Opsdash. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package csvsafe writes CSV that spreadsheet applications will not evaluate.

A cell beginning with =, +, -, @, tab or carriage return is treated as a
formula by Excel and LibreOffice. Such cells are prefixed with a single
quote so they render as text.
*/
package csvsafe

import (
	"bytes"
	"encoding/csv"
	"io"
	"strings"
)

// Sanitize trims value and neutralizes a leading formula trigger.
func Sanitize(value string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return value
	}
	switch value[0] {
	case '=', '+', '-', '@', '\t', '\r':
		return "'" + value
	}
	return value
}

// Writer sanitizes every cell before handing the record to [csv.Writer].
type Writer struct {
	w *csv.Writer
}

// NewWriter wraps out.
func NewWriter(out io.Writer) *Writer {
	return &Writer{w: csv.NewWriter(out)}
}

// Write sanitizes and writes one record.
func (w *Writer) Write(record []string) error {
	clean := make([]string, len(record))
	for i, cell := range record {
		clean[i] = Sanitize(cell)
	}
	return w.w.Write(clean)
}

// Flush flushes buffered records and returns any write error.
func (w *Writer) Flush() error {
	w.w.Flush()
	return w.w.Error()
}

// Encode renders header and rows into a byte slice.
func Encode(header []string, rows [][]string) ([]byte, error) {
	var buf bytes.Buffer
	w := NewWriter(&buf)
	if header != nil {
		if err := w.Write(header); err != nil {
			return nil, err
		}
	}
	for _, row := range rows {
		if err := w.Write(row); err != nil {
			return nil, err
		}
	}
	if err := w.Flush(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
