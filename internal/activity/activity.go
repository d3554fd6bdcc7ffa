// Copyright (c) 2026 Opsdash. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package activity is the append-only audit trail of the dashboard.

Writes are best-effort: a failed insert is logged and swallowed so that no
user action (least of all logout) is ever blocked by the audit table.
*/
package activity

import (
	"context"
	"time"
)

// ActionType classifies an activity entry.
type ActionType string

const (
	ActionLogin         ActionType = "login"
	ActionLogout        ActionType = "logout"
	ActionAdmin         ActionType = "admin_action"
	ActionModuleAccess  ActionType = "module_access"
	ActionModuleError   ActionType = "module_error"
	ActionFileUpload    ActionType = "file_upload"
	ActionPDFGeneration ActionType = "pdf_generation"
	ActionSync          ActionType = "sync"
	ActionOrderFetch    ActionType = "order_fetch"
	ActionOrderDownload ActionType = "order_download"
	ActionModuleUse     ActionType = "module_use"
)

// ActionTypes lists every known action type.
func ActionTypes() []ActionType {
	return []ActionType{
		ActionLogin, ActionLogout, ActionAdmin, ActionModuleAccess, ActionModuleError,
		ActionFileUpload, ActionPDFGeneration, ActionSync, ActionOrderFetch,
		ActionOrderDownload, ActionModuleUse,
	}
}

// Entry is one audit row.
type Entry struct {
	ID          string         `json:"id"`
	UserID      string         `json:"user_id,omitempty"`
	UserEmail   string         `json:"user_email,omitempty"`
	ActionType  ActionType     `json:"action_type"`
	ModuleKey   string         `json:"module_key,omitempty"`
	Description string         `json:"description"`
	Metadata    map[string]any `json:"metadata,omitempty"`
	Success     bool           `json:"success"`
	CreatedAt   time.Time      `json:"created_at"`
}

// Recorder appends entries without reporting failures. [*Logger] implements it.
type Recorder interface {
	Record(ctx context.Context, entry Entry)
}

// Filter narrows a listing. Zero values mean "any".
type Filter struct {
	UserID     string
	ModuleKey  string
	ActionType ActionType
	Limit      int
}

// Listing bounds.
const (
	DefaultLimit = 100
	MaxLimit     = 1000
)

// ActionCount is one bucket of [Stats].
type ActionCount struct {
	ActionType ActionType `json:"action_type"`
	Total      int        `json:"total"`
	Failed     int        `json:"failed"`
}

// Stats summarizes activity since a point in time.
type Stats struct {
	Since       time.Time     `json:"since"`
	Total       int           `json:"total"`
	Failed      int           `json:"failed"`
	ActiveUsers int           `json:"active_users"`
	ByAction    []ActionCount `json:"by_action"`
}
