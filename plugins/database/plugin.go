// Package database provides SQL and DynamoDB components. SQL connections are
// opened lazily on the first Run and owned by the instance until Close.
package database

import (
	"github.com/GoCodeAlone/workflow-components/component"
	"github.com/GoCodeAlone/workflow-components/plugin"
)

// Plugin registers the database.* components.
type Plugin struct {
	plugin.BasePlugin
}

// New creates the database plugin.
func New() *Plugin {
	return &Plugin{
		BasePlugin: plugin.BasePlugin{
			PluginName:        "database",
			PluginVersion:     "1.0.0",
			PluginDescription: "SQL queries (SQLite, PostgreSQL) and DynamoDB item reads",
		},
	}
}

// Components returns the database.* registrations.
func (p *Plugin) Components() []component.Registration {
	return []component.Registration{
		{Descriptor: queryDescriptor, Factory: newSQL(queryDescriptor, true)},
		{Descriptor: execDescriptor, Factory: newSQL(execDescriptor, false)},
		{Descriptor: dynamoGetDescriptor, Factory: newDynamoGet},
	}
}
