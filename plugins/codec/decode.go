package codec

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/GoCodeAlone/workflow-components/component"
	"github.com/google/uuid"
)

type decode struct {
	component.Base
	category string
}

func decoder(category string, out component.ValueType) component.Registration {
	d := component.Descriptor{
		Name:        "codec.base64_decode_" + category,
		Description: fmt.Sprintf("Decodes base64 (raw or data URI) %s content into a local file", category),
		Group:       "codec",
		Inputs: []component.InputDef{
			{Name: "data", Type: component.TypeText, Description: "Raw base64 or data:<type>;base64,<payload>"},
			{Name: "name", Type: component.TypeText, Optional: true, Description: "Original file name; its extension overrides detection"},
		},
		Output: out,
		Config: []component.ConfigField{
			{Key: "output_dir", Description: "Directory decoded files are written to (default: OS temp dir)"},
			{Key: "allowed_types", Description: "Comma-separated media type allow list"},
			{Key: "max_size_bytes", Default: 0, Description: "Reject payloads that decode to more bytes (0 = unlimited)"},
			{Key: "validate_magic_bytes", Default: false, Description: "Require sniffed content to match a data URI's declared type"},
		},
		SideEffects: "writes the decoded file under output_dir",
	}
	return component.Registration{
		Descriptor: d,
		Factory: func(cfg component.Config) (component.Component, error) {
			return &decode{Base: component.NewBase(d, cfg), category: category}, nil
		},
	}
}

func (c *decode) Run(_ context.Context, in component.Inputs) (any, error) {
	encoded := strings.TrimSpace(in.Text("data"))
	if encoded == "" {
		return nil, c.InvalidInput("data", "empty payload")
	}

	var claimed string
	payload := encoded
	if strings.HasPrefix(encoded, "data:") {
		var err error
		claimed, payload, err = parseDataURI(encoded)
		if err != nil {
			return nil, c.InvalidInput("data", "invalid data URI: %v", err)
		}
	}

	maxSize := c.Config().Int("max_size_bytes", 0)
	if maxSize > 0 && len(payload) > (maxSize/3+1)*4 {
		return nil, c.InvalidInput("data", "decoded size would exceed max_size_bytes %d", maxSize)
	}
	decoded, err := decodeBase64(payload)
	if err != nil {
		return nil, c.InvalidInput("data", "%v", err)
	}
	if maxSize > 0 && len(decoded) > maxSize {
		return nil, c.InvalidInput("data", "decoded size %d exceeds max_size_bytes %d", len(decoded), maxSize)
	}

	name := in.Text("name")
	mediaType := resolveType(name, claimed, decoded)
	if c.Config().Bool("validate_magic_bytes", false) && claimed != "" {
		if sniffed := component.SniffMediaType(decoded); sniffed != component.NormalizeMediaType(claimed) {
			return nil, c.InvalidInput("data", "content looks like %s but data URI claims %s", sniffed, claimed)
		}
	}
	if cat := component.MediaCategory(mediaType); cat != c.category && mediaType != "application/octet-stream" {
		return nil, c.InvalidInput("data", "decoded content is %s, not %s", mediaType, c.category)
	}
	if allowed := c.Config().StringSlice("allowed_types"); len(allowed) > 0 {
		if !slices.ContainsFunc(allowed, func(a string) bool { return component.NormalizeMediaType(a) == mediaType }) {
			return nil, c.InvalidInput("data", "media type %s is not in allowed_types", mediaType)
		}
	}

	dir := c.Config().String("output_dir")
	if dir == "" {
		dir = os.TempDir()
	}
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, c.External("mkdir", err)
	}
	path := filepath.Join(dir, uuid.NewString()+component.ExtensionForMediaType(mediaType))
	if err := os.WriteFile(path, decoded, 0o600); err != nil {
		return nil, c.External("write", err)
	}
	if name == "" {
		name = filepath.Base(path)
	}
	return component.File{Path: path, MediaType: mediaType, Name: name}, nil
}

// resolveType prefers the name's extension, then the data URI's declared
// type, then content sniffing.
func resolveType(name, claimed string, content []byte) string {
	if t := component.MediaTypeByExtension(name); t != "" {
		return t
	}
	if claimed != "" {
		return component.NormalizeMediaType(claimed)
	}
	return component.SniffMediaType(content)
}

// decodeBase64 accepts standard and URL-safe alphabets, padded or not.
func decodeBase64(s string) ([]byte, error) {
	for _, enc := range []*base64.Encoding{
		base64.StdEncoding,
		base64.RawStdEncoding,
		base64.URLEncoding,
		base64.RawURLEncoding,
	} {
		if b, err := enc.DecodeString(s); err == nil {
			return b, nil
		}
	}
	return nil, errors.New("not valid base64")
}

// parseDataURI splits data:<type>[;params];base64,<payload>.
func parseDataURI(s string) (mediaType, payload string, err error) {
	s = strings.TrimPrefix(s, "data:")
	comma := strings.IndexByte(s, ',')
	if comma < 0 {
		return "", "", errors.New("missing ',' separator")
	}
	parts := strings.Split(s[:comma], ";")
	mediaType = strings.ToLower(strings.TrimSpace(parts[0]))
	if mediaType == "" {
		mediaType = "text/plain"
	}
	if !slices.ContainsFunc(parts[1:], func(p string) bool { return strings.TrimSpace(p) == "base64" }) {
		return "", "", errors.New("only base64 data URIs are supported")
	}
	return mediaType, s[comma+1:], nil
}
