// Package codec provides base64 converters between local media files and
// their text encoding.
package codec

import (
	"github.com/GoCodeAlone/workflow-components/component"
	"github.com/GoCodeAlone/workflow-components/plugin"
)

const (
	formatDataURI   = "data_uri"
	formatRawBase64 = "raw_base64"
)

// Plugin registers the codec.* components.
type Plugin struct {
	plugin.BasePlugin
}

// New creates the codec plugin.
func New() *Plugin {
	return &Plugin{
		BasePlugin: plugin.BasePlugin{
			PluginName:        "codec",
			PluginVersion:     "1.0.0",
			PluginDescription: "Base64 encoders and decoders for image and audio files",
		},
	}
}

// Components returns the codec.* registrations.
func (p *Plugin) Components() []component.Registration {
	return []component.Registration{
		encoder("image", component.TypeImage),
		encoder("audio", component.TypeFile),
		decoder("image", component.TypeImage),
		decoder("audio", component.TypeFile),
	}
}
