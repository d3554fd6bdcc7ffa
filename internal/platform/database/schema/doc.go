// Copyright (c) 2026 Opsdash. All rights reserved.
// Author: tai.buivan.jp@gmail.com

// Package schema names every table and column the repositories touch, so SQL
// built with fmt.Sprintf never drifts from data/migrations.
package schema
