// Copyright (c) 2026 Opsdash. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package schema

// AccessModuleTable represents the 'access.module' catalog.
type AccessModuleTable struct {
	Table        string
	Key          string
	Name         string
	Icon         string
	Description  string
	IsActive     string
	DisplayOrder string
	CreatedAt    string
	UpdatedAt    string
}

// AccessModule is the schema definition for access.module
var AccessModule = AccessModuleTable{
	Table:        "access.module",
	Key:          "modulekey",
	Name:         "name",
	Icon:         "icon",
	Description:  "description",
	IsActive:     "isactive",
	DisplayOrder: "displayorder",
	CreatedAt:    "createdat",
	UpdatedAt:    "updatedat",
}

// Columns returns all standard column names
func (t AccessModuleTable) Columns() []string {
	return []string{t.Key, t.Name, t.Icon, t.Description, t.IsActive, t.DisplayOrder, t.CreatedAt, t.UpdatedAt}
}
