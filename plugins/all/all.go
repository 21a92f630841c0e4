// Package all provides a single import point for every built-in component
// plugin. Hosts call [LoadAll] to register the whole catalogue in one step
// instead of importing and wiring each plugin package individually.
//
// Example:
//
//	reg := registry.New(registry.WithExpander(resolver))
//	if err := all.LoadAll(reg); err != nil {
//	    log.Fatalf("failed to load plugins: %v", err)
//	}
//
// For finer control (skip a plugin or add your own), start from
// [DefaultPlugins] and pass the result to [plugin.Load].
package all

import (
	"github.com/GoCodeAlone/workflow-components/plugin"
	plugincache "github.com/GoCodeAlone/workflow-components/plugins/cache"
	plugincodec "github.com/GoCodeAlone/workflow-components/plugins/codec"
	plugincontainer "github.com/GoCodeAlone/workflow-components/plugins/container"
	pluginconvert "github.com/GoCodeAlone/workflow-components/plugins/convert"
	plugindatabase "github.com/GoCodeAlone/workflow-components/plugins/database"
	plugininput "github.com/GoCodeAlone/workflow-components/plugins/input"
	pluginllm "github.com/GoCodeAlone/workflow-components/plugins/llm"
	pluginmessaging "github.com/GoCodeAlone/workflow-components/plugins/messaging"
	pluginnotify "github.com/GoCodeAlone/workflow-components/plugins/notify"
	pluginsearch "github.com/GoCodeAlone/workflow-components/plugins/search"
	pluginsequence "github.com/GoCodeAlone/workflow-components/plugins/sequence"
	pluginstorage "github.com/GoCodeAlone/workflow-components/plugins/storage"
	plugintransform "github.com/GoCodeAlone/workflow-components/plugins/transform"
	pluginweb "github.com/GoCodeAlone/workflow-components/plugins/web"
)

// DefaultPlugins returns the standard set of built-in plugins.
// The slice is freshly allocated on each call so callers may safely append
// custom plugins without affecting other callers.
func DefaultPlugins() []plugin.Plugin {
	return []plugin.Plugin{
		plugininput.New(),
		plugincodec.New(),
		pluginsequence.New(),
		pluginweb.New(),
		pluginsearch.New(),
		pluginllm.New(),
		plugindatabase.New(),
		plugincache.New(),
		pluginmessaging.New(),
		pluginstorage.New(),
		plugincontainer.New(),
		plugintransform.New(),
		pluginconvert.New(),
		pluginnotify.New(),
	}
}

// LoadAll registers every component of [DefaultPlugins] with r. The first
// error encountered is returned immediately.
func LoadAll(r plugin.Registrar) error {
	return plugin.Load(r, DefaultPlugins()...)
}
