package storage

import (
	"context"
	"fmt"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/policy"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/to"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/blob"
	"github.com/GoCodeAlone/workflow-components/component"
)

// azureUploader is the subset of *azblob.Client used here.
type azureUploader interface {
	UploadBuffer(ctx context.Context, containerName, blobName string, buffer []byte, o *azblob.UploadBufferOptions) (azblob.UploadBufferResponse, error)
}

var azureUploadDescriptor = component.Descriptor{
	Name:        "storage.azure_blob_upload",
	Description: "Uploads a local file to an Azure Blob Storage container",
	Group:       "storage",
	Inputs:      uploadInputs,
	Output:      component.TypeJSON,
	Config: []component.ConfigField{
		{Key: "container", Required: true},
		{Key: "prefix"},
		{Key: "connection_string", Secret: true, Env: "AZURE_STORAGE_CONNECTION_STRING"},
		{Key: "account_name", Env: "AZURE_STORAGE_ACCOUNT"},
		{Key: "account_key", Secret: true, Env: "AZURE_STORAGE_KEY"},
		{Key: "service_url", Description: "Defaults to https://<account_name>.blob.core.windows.net/"},
		{Key: "max_retries", Default: 3},
	},
	SideEffects: "writes a blob to Azure Storage",
}

type azureUpload struct {
	component.Base
	client *component.Lazy[azureUploader]
}

func newAzureUpload(cfg component.Config) (component.Component, error) {
	return &azureUpload{
		Base: component.NewBase(azureUploadDescriptor, cfg),
		client: component.NewLazy(func(context.Context) (azureUploader, error) {
			return newAzureClient(cfg)
		}),
	}, nil
}

// newAzureClient prefers a connection string and falls back to a shared key.
func newAzureClient(cfg component.Config) (*azblob.Client, error) {
	opts := &azblob.ClientOptions{ClientOptions: azcore.ClientOptions{
		Retry: policy.RetryOptions{MaxRetries: int32(cfg.Int("max_retries", 3))},
	}}
	if cs := cfg.String("connection_string"); cs != "" {
		return azblob.NewClientFromConnectionString(cs, opts)
	}
	account := cfg.String("account_name")
	cred, err := azblob.NewSharedKeyCredential(account, cfg.String("account_key"))
	if err != nil {
		return nil, err
	}
	url := cfg.String("service_url")
	if url == "" {
		url = fmt.Sprintf("https://%s.blob.core.windows.net/", account)
	}
	return azblob.NewClientWithSharedKeyCredential(url, cred, opts)
}

func (a *azureUpload) Run(ctx context.Context, in component.Inputs) (any, error) {
	if err := a.Require("container"); err != nil {
		return nil, err
	}
	if a.Config().String("connection_string") == "" {
		if err := a.Require("account_name", "account_key"); err != nil {
			return nil, err
		}
	}
	up, err := readUpload(a.Base, in)
	if err != nil {
		return nil, err
	}
	client, err := a.client.Get(ctx)
	if err != nil {
		return nil, a.External("client", err)
	}
	container := a.Config().String("container")
	resp, err := client.UploadBuffer(ctx, container, up.key, up.data, &azblob.UploadBufferOptions{
		HTTPHeaders: &blob.HTTPHeaders{BlobContentType: to.Ptr(up.mediaType)},
	})
	if err != nil {
		return nil, a.External("UploadBuffer", err)
	}
	var etag string
	if resp.ETag != nil {
		etag = string(*resp.ETag)
	}
	return up.result(container, etag), nil
}
