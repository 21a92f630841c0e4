// Package messaging provides publish components for NATS, Kafka and SQS.
// Each component owns its producer connection, opened on first use.
package messaging

import (
	"github.com/GoCodeAlone/workflow-components/component"
	"github.com/GoCodeAlone/workflow-components/plugin"
)

// Plugin registers the messaging.* components.
type Plugin struct {
	plugin.BasePlugin
}

// New creates the messaging plugin.
func New() *Plugin {
	return &Plugin{
		BasePlugin: plugin.BasePlugin{
			PluginName:        "messaging",
			PluginVersion:     "1.0.0",
			PluginDescription: "Message publishing to NATS subjects, Kafka topics and SQS queues",
		},
	}
}

// Components returns the messaging.* registrations.
func (p *Plugin) Components() []component.Registration {
	return []component.Registration{
		{Descriptor: natsDescriptor, Factory: newNATSPublish},
		{Descriptor: kafkaDescriptor, Factory: newKafkaPublish},
		{Descriptor: sqsDescriptor, Factory: newSQSSend},
	}
}
