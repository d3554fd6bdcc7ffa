// Copyright (c) 2026 Opsdash. All rights reserved.
// Author: tai.buivan.jp@gmail.com

// Package pointer builds pointers to literals for optional patch fields.
package pointer

// To returns a pointer to the provided value.
//
// Patch types use nil for "leave unchanged", so callers write
// Patch{StockQuantity: pointer.To(5)}.
func To[T any](v T) *T {
	return &v
}
