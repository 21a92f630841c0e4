package codec

import (
	"context"
	"encoding/base64"
	"fmt"

	"github.com/GoCodeAlone/workflow-components/component"
)

type encode struct {
	component.Base
	category string
	format   string
}

func encoder(category string, fileType component.ValueType) component.Registration {
	d := component.Descriptor{
		Name:        "codec.base64_encode_" + category,
		Description: fmt.Sprintf("Reads a local %s file and returns its base64 encoding", category),
		Group:       "codec",
		Inputs: []component.InputDef{
			{Name: "file", Type: fileType, Description: "File reference (map or typed form)"},
		},
		Output: component.TypeText,
		Config: []component.ConfigField{
			{Key: "format", Default: formatRawBase64, Description: "raw_base64 or data_uri"},
		},
	}
	return component.Registration{
		Descriptor: d,
		Factory: func(cfg component.Config) (component.Component, error) {
			return &encode{
				Base:     component.NewBase(d, cfg),
				category: category,
				format:   cfg.String("format"),
			}, nil
		},
	}
}

func (e *encode) Run(_ context.Context, in component.Inputs) (any, error) {
	if e.format != formatRawBase64 && e.format != formatDataURI {
		return nil, component.Configuration(e.Name(), "format", "must be %q or %q, got %q", formatRawBase64, formatDataURI, e.format)
	}
	f, err := in.File("file")
	if err != nil {
		return nil, e.InvalidInput("file", "%v", err)
	}
	if err := f.Exists(); err != nil {
		return nil, e.InvalidInput("file", "%v", err)
	}
	data, err := f.ReadAll()
	if err != nil {
		return nil, e.InvalidInput("file", "%v", err)
	}

	mediaType := f.ResolveMediaType(data)
	if cat := component.MediaCategory(mediaType); mediaType != "application/octet-stream" && cat != e.category {
		return nil, e.InvalidInput("file", "%s is %s, not %s", f.DisplayName(), mediaType, e.category)
	}

	encoded := base64.StdEncoding.EncodeToString(data)
	if e.format == formatDataURI {
		return "data:" + mediaType + ";base64," + encoded, nil
	}
	return encoded, nil
}
