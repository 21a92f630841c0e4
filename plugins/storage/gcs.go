package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"

	"cloud.google.com/go/storage"
	"github.com/GoCodeAlone/workflow-components/component"
	"google.golang.org/api/option"
)

// gcsUploader writes one object. realGCS adapts *storage.Client to it.
type gcsUploader interface {
	Upload(ctx context.Context, bucket, object, contentType string, r io.Reader) (*storage.ObjectAttrs, error)
	Close() error
}

type realGCS struct{ client *storage.Client }

func (g realGCS) Upload(ctx context.Context, bucket, object, contentType string, r io.Reader) (*storage.ObjectAttrs, error) {
	w := g.client.Bucket(bucket).Object(object).NewWriter(ctx)
	w.ContentType = contentType
	if _, err := io.Copy(w, r); err != nil {
		_ = w.Close()
		return nil, fmt.Errorf("write object %q: %w", object, err)
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("finalize object %q: %w", object, err)
	}
	return w.Attrs(), nil
}

func (g realGCS) Close() error { return g.client.Close() }

var gcsUploadDescriptor = component.Descriptor{
	Name:        "storage.gcs_upload",
	Description: "Uploads a local file to a Google Cloud Storage bucket",
	Group:       "storage",
	Inputs:      uploadInputs,
	Output:      component.TypeJSON,
	Config: []component.ConfigField{
		{Key: "bucket", Required: true, Env: "GCS_BUCKET"},
		{Key: "prefix"},
		{Key: "project", Env: "GOOGLE_CLOUD_PROJECT"},
		{Key: "credentials_file", Env: "GOOGLE_APPLICATION_CREDENTIALS", Description: "Service account key; application default credentials when empty"},
		{Key: "endpoint", Description: "Emulator endpoint; disables authentication"},
	},
	SideEffects: "writes an object to GCS",
}

type gcsUpload struct {
	component.Base
	client *component.Lazy[gcsUploader]
}

// gcsOptions translates configuration into client options.
func gcsOptions(cfg component.Config) []option.ClientOption {
	var opts []option.ClientOption
	if ep := cfg.String("endpoint"); ep != "" {
		return append(opts, option.WithEndpoint(ep), option.WithoutAuthentication())
	}
	if file := cfg.String("credentials_file"); file != "" {
		opts = append(opts, option.WithAuthCredentialsFile(option.ServiceAccount, file))
	}
	if project := cfg.String("project"); project != "" {
		opts = append(opts, option.WithQuotaProject(project))
	}
	return opts
}

func newGCSUpload(cfg component.Config) (component.Component, error) {
	return &gcsUpload{
		Base: component.NewBase(gcsUploadDescriptor, cfg),
		client: component.NewLazy(func(ctx context.Context) (gcsUploader, error) {
			c, err := storage.NewClient(ctx, gcsOptions(cfg)...)
			if err != nil {
				return nil, err
			}
			return realGCS{c}, nil
		}),
	}, nil
}

// Close releases the GCS client.
func (g *gcsUpload) Close() error { return g.client.Close() }

func (g *gcsUpload) Run(ctx context.Context, in component.Inputs) (any, error) {
	if err := g.Require("bucket"); err != nil {
		return nil, err
	}
	up, err := readUpload(g.Base, in)
	if err != nil {
		return nil, err
	}
	client, err := g.client.Get(ctx)
	if err != nil {
		return nil, g.External("client", err)
	}
	bucket := g.Config().String("bucket")
	attrs, err := client.Upload(ctx, bucket, up.key, up.mediaType, bytes.NewReader(up.data))
	if err != nil {
		return nil, g.External("upload", err)
	}
	var etag string
	if attrs != nil {
		etag = attrs.Etag
	}
	return up.result(bucket, etag), nil
}
