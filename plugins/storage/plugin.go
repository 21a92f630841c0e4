// Package storage provides object storage components for Amazon S3, Google
// Cloud Storage and Azure Blob Storage.
package storage

import (
	"path"
	"strings"

	"github.com/GoCodeAlone/workflow-components/component"
	"github.com/GoCodeAlone/workflow-components/plugin"
)

// Plugin registers the storage.* components.
type Plugin struct {
	plugin.BasePlugin
}

// New creates the storage plugin.
func New() *Plugin {
	return &Plugin{
		BasePlugin: plugin.BasePlugin{
			PluginName:        "storage",
			PluginVersion:     "1.0.0",
			PluginDescription: "Object uploads and downloads for S3, GCS and Azure Blob Storage",
		},
	}
}

// Components returns the storage.* registrations.
func (p *Plugin) Components() []component.Registration {
	return []component.Registration{
		{Descriptor: s3UploadDescriptor, Factory: newS3Upload},
		{Descriptor: s3DownloadDescriptor, Factory: newS3Download},
		{Descriptor: gcsUploadDescriptor, Factory: newGCSUpload},
		{Descriptor: azureUploadDescriptor, Factory: newAzureUpload},
	}
}

var uploadInputs = []component.InputDef{
	{Name: "file", Type: component.TypeFile},
	{Name: "key", Type: component.TypeText, Optional: true, Description: "Object key; defaults to the file name"},
}

// upload is a local file ready to be sent to a bucket.
type upload struct {
	key       string
	mediaType string
	data      []byte
}

// readUpload loads the file input and derives the object key under prefix.
func readUpload(b component.Base, in component.Inputs) (upload, error) {
	f, err := in.File("file")
	if err != nil {
		return upload{}, b.InvalidInput("file", "%v", err)
	}
	if err := f.Exists(); err != nil {
		return upload{}, b.InvalidInput("file", "%v", err)
	}
	data, err := f.ReadAll()
	if err != nil {
		return upload{}, b.InvalidInput("file", "%v", err)
	}
	key := strings.TrimPrefix(strings.TrimSpace(in.Text("key")), "/")
	if key == "" {
		key = f.DisplayName()
	}
	if prefix := strings.Trim(b.Config().String("prefix"), "/"); prefix != "" {
		key = path.Join(prefix, key)
	}
	return upload{key: key, mediaType: f.ResolveMediaType(data), data: data}, nil
}

func (u upload) result(bucket, etag string) map[string]any {
	return map[string]any{
		"bucket":     bucket,
		"key":        u.key,
		"size":       int64(len(u.data)),
		"media_type": u.mediaType,
		"etag":       strings.Trim(etag, `"`),
	}
}
