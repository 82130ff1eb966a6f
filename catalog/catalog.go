// Package catalog declares the fixed set of task-management operations
// offered to the language model. Definitions are pure data: a name, a
// description and a parameter schema. The catalogue is built once at
// startup and never mutated afterwards.
package catalog

import (
	"taskwing/errors"
)

// Primitive parameter types understood by every provider adapter.
const (
	TypeString  = "string"
	TypeInteger = "integer"
	TypeBoolean = "boolean"
)

// Property describes a single named parameter of a tool.
type Property struct {
	Type        string `json:"type"`
	Description string `json:"description"`
}

// Schema is a JSON-schema-like declaration of a tool's parameters.
type Schema struct {
	Properties map[string]Property `json:"properties"`
	Required   []string            `json:"required"`
}

// Definition declares one operation the model may invoke.
type Definition struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Parameters  Schema `json:"parameters"`
}

// Catalog is the immutable set of tool definitions.
type Catalog struct {
	defs  []Definition
	names []string
}

// New builds the catalogue of the seven task-management tools. It
// returns an error if two definitions share a name, so a bad catalogue
// is caught at process start rather than at dispatch time.
func New() (*Catalog, error) {
	defs := []Definition{
		{
			Name:        "create_task",
			Description: "Create a new task for the user. Use this when the user wants to add a new todo item.",
			Parameters: Schema{
				Properties: map[string]Property{
					"user_id":     {Type: TypeString, Description: "The user's ID (automatically provided)"},
					"title":       {Type: TypeString, Description: "The task title (required, max 200 characters)"},
					"description": {Type: TypeString, Description: "Optional task description with more details"},
				},
				Required: []string{"user_id", "title"},
			},
		},
		{
			Name:        "list_tasks",
			Description: "Get all tasks for the user. Use this when the user asks what is on their list.",
			Parameters: Schema{
				Properties: map[string]Property{
					"user_id": {Type: TypeString, Description: "The user's ID (automatically provided)"},
				},
				Required: []string{"user_id"},
			},
		},
		{
			Name:        "get_task",
			Description: "Get details of a specific task by its ID.",
			Parameters: Schema{
				Properties: map[string]Property{
					"user_id": {Type: TypeString, Description: "The user's ID (automatically provided)"},
					"task_id": {Type: TypeInteger, Description: "The ID of the task to retrieve"},
				},
				Required: []string{"user_id", "task_id"},
			},
		},
		{
			Name:        "update_task",
			Description: "Update a task's title or description. Use this when the user wants to modify an existing task's content.",
			Parameters: Schema{
				Properties: map[string]Property{
					"user_id":     {Type: TypeString, Description: "The user's ID (automatically provided)"},
					"task_id":     {Type: TypeInteger, Description: "The ID of the task to update"},
					"title":       {Type: TypeString, Description: "New title for the task (optional, max 200 characters)"},
					"description": {Type: TypeString, Description: "New description for the task (optional)"},
				},
				Required: []string{"user_id", "task_id"},
			},
		},
		{
			Name:        "complete_task",
			Description: "Toggle a task's completion status. Marks incomplete tasks as complete, and vice versa.",
			Parameters: Schema{
				Properties: map[string]Property{
					"user_id": {Type: TypeString, Description: "The user's ID (automatically provided)"},
					"task_id": {Type: TypeInteger, Description: "The ID of the task to toggle"},
				},
				Required: []string{"user_id", "task_id"},
			},
		},
		{
			Name:        "delete_task",
			Description: "Permanently delete a task. Use this when the user no longer needs a task.",
			Parameters: Schema{
				Properties: map[string]Property{
					"user_id": {Type: TypeString, Description: "The user's ID (automatically provided)"},
					"task_id": {Type: TypeInteger, Description: "The ID of the task to delete"},
				},
				Required: []string{"user_id", "task_id"},
			},
		},
		{
			Name:        "search_tasks",
			Description: "Search tasks by keyword in title or description. Use this when the user wants to find specific tasks.",
			Parameters: Schema{
				Properties: map[string]Property{
					"user_id":        {Type: TypeString, Description: "The user's ID (automatically provided)"},
					"keyword":        {Type: TypeString, Description: "The keyword to search for in task titles and descriptions"},
					"completed_only": {Type: TypeBoolean, Description: "If true, only return completed tasks. If false, only incomplete. If not provided, return all."},
				},
				Required: []string{"user_id", "keyword"},
			},
		},
	}

	seen := make(map[string]bool, len(defs))
	names := make([]string, 0, len(defs))
	for _, d := range defs {
		if seen[d.Name] {
			return nil, errors.New("duplicate tool definition: %s", d.Name)
		}
		seen[d.Name] = true
		names = append(names, d.Name)
	}

	return &Catalog{defs: defs, names: names}, nil
}

// All returns every definition in registration order, for presentation
// to the model.
func (c *Catalog) All() []Definition {
	out := make([]Definition, len(c.defs))
	copy(out, c.defs)
	return out
}

// Names returns the tool names in registration order, for validation
// and error messages.
func (c *Catalog) Names() []string {
	out := make([]string, len(c.names))
	copy(out, c.names)
	return out
}

// Has reports whether a definition with the given name exists.
func (c *Catalog) Has(name string) bool {
	for _, n := range c.names {
		if n == name {
			return true
		}
	}
	return false
}
