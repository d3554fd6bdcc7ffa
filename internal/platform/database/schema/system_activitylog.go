// Copyright (c) 2026 Opsdash. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package schema

// SystemActivityLogTable represents the append-only 'system.activitylog' table.
type SystemActivityLogTable struct {
	Table       string
	ID          string
	UserID      string
	ActionType  string
	ModuleKey   string
	Description string
	Metadata    string
	Success     string
	CreatedAt   string
}

// SystemActivityLog is the schema definition for system.activitylog
var SystemActivityLog = SystemActivityLogTable{
	Table:       "system.activitylog",
	ID:          "id",
	UserID:      "userid",
	ActionType:  "actiontype",
	ModuleKey:   "modulekey",
	Description: "description",
	Metadata:    "metadata",
	Success:     "success",
	CreatedAt:   "createdat",
}

// Columns returns all standard column names
func (t SystemActivityLogTable) Columns() []string {
	return []string{t.ID, t.UserID, t.ActionType, t.ModuleKey, t.Description, t.Metadata, t.Success, t.CreatedAt}
}
