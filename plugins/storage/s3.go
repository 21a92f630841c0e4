package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/GoCodeAlone/workflow-components/component"
	"github.com/GoCodeAlone/workflow-components/internal/awsconfig"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"
)

// s3API is the subset of the S3 client used by the storage components.
type s3API interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

func s3Config(extra ...component.ConfigField) []component.ConfigField {
	fields := append([]component.ConfigField{
		{Key: "bucket", Required: true, Env: "S3_BUCKET"},
		{Key: "prefix"},
	}, extra...)
	return append(fields, awsconfig.Fields()...)
}

var s3UploadDescriptor = component.Descriptor{
	Name:        "storage.s3_upload",
	Description: "Uploads a local file to an S3 bucket",
	Group:       "storage",
	Inputs:      uploadInputs,
	Output:      component.TypeJSON,
	Config:      s3Config(),
	SideEffects: "writes an object to S3",
}

var s3DownloadDescriptor = component.Descriptor{
	Name:        "storage.s3_download",
	Description: "Downloads an S3 object to a local file",
	Group:       "storage",
	Inputs:      []component.InputDef{{Name: "key", Type: component.TypeText}},
	Output:      component.TypeFile,
	Config: s3Config(
		component.ConfigField{Key: "output_dir", Description: "Defaults to the system temp directory"},
		component.ConfigField{Key: "max_size_bytes", Default: 100 << 20},
	),
	SideEffects: "writes the downloaded file under output_dir",
}

// newS3Client builds the lazy client shared by both S3 components. A custom
// endpoint switches to path-style addressing for MinIO and LocalStack.
func newS3Client(cfg component.Config) *component.Lazy[s3API] {
	return component.NewLazy(func(ctx context.Context) (s3API, error) {
		awsCfg, err := awsconfig.Load(ctx, cfg)
		if err != nil {
			return nil, err
		}
		return s3.NewFromConfig(awsCfg, func(o *s3.Options) {
			if ep := awsconfig.Endpoint(cfg); ep != nil {
				o.BaseEndpoint = ep
				o.UsePathStyle = true
			}
		}), nil
	})
}

type s3Upload struct {
	component.Base
	client *component.Lazy[s3API]
}

func newS3Upload(cfg component.Config) (component.Component, error) {
	return &s3Upload{Base: component.NewBase(s3UploadDescriptor, cfg), client: newS3Client(cfg)}, nil
}

func (s *s3Upload) Run(ctx context.Context, in component.Inputs) (any, error) {
	if err := s.Require("bucket"); err != nil {
		return nil, err
	}
	up, err := readUpload(s.Base, in)
	if err != nil {
		return nil, err
	}
	client, err := s.client.Get(ctx)
	if err != nil {
		return nil, s.External("client", err)
	}
	bucket := s.Config().String("bucket")
	out, err := client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(bucket),
		Key:           aws.String(up.key),
		Body:          bytes.NewReader(up.data),
		ContentType:   aws.String(up.mediaType),
		ContentLength: aws.Int64(int64(len(up.data))),
	})
	if err != nil {
		return nil, s.External("PutObject", err)
	}
	return up.result(bucket, aws.ToString(out.ETag)), nil
}

type s3Download struct {
	component.Base
	client *component.Lazy[s3API]
}

func newS3Download(cfg component.Config) (component.Component, error) {
	return &s3Download{Base: component.NewBase(s3DownloadDescriptor, cfg), client: newS3Client(cfg)}, nil
}

func (s *s3Download) Run(ctx context.Context, in component.Inputs) (any, error) {
	if err := s.Require("bucket"); err != nil {
		return nil, err
	}
	key := strings.TrimPrefix(strings.TrimSpace(in.Text("key")), "/")
	if key == "" || strings.HasSuffix(key, "/") {
		return nil, s.InvalidInput("key", "must name an object")
	}
	if prefix := strings.Trim(s.Config().String("prefix"), "/"); prefix != "" {
		key = path.Join(prefix, key)
	}

	client, err := s.client.Get(ctx)
	if err != nil {
		return nil, s.External("client", err)
	}
	out, err := client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.Config().String("bucket")),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, s.External("GetObject", err)
	}
	defer out.Body.Close()

	limit := int64(s.Config().Int("max_size_bytes", 100<<20))
	data, err := io.ReadAll(io.LimitReader(out.Body, limit+1))
	if err != nil {
		return nil, s.External("read", err)
	}
	if int64(len(data)) > limit {
		return nil, s.External("read", fmt.Errorf("object exceeds max_size_bytes %d", limit))
	}

	f := component.File{Name: path.Base(key), MediaType: aws.ToString(out.ContentType)}
	f.MediaType = component.NormalizeMediaType(f.ResolveMediaType(data))
	dir := s.Config().String("output_dir")
	if dir == "" {
		dir = os.TempDir()
	}
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, s.External("write", err)
	}
	ext := filepath.Ext(f.Name)
	if ext == "" {
		ext = component.ExtensionForMediaType(f.MediaType)
	}
	f.Path = filepath.Join(dir, uuid.NewString()+ext)
	if err := os.WriteFile(f.Path, data, 0o600); err != nil {
		return nil, s.External("write", err)
	}
	return f, nil
}
