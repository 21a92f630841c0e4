package component

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// File references a file on storage reachable by the component.
type File struct {
	Path      string `json:"path" yaml:"path"`
	MediaType string `json:"media_type,omitempty" yaml:"media_type,omitempty"`
	Name      string `json:"name,omitempty" yaml:"name,omitempty"`
}

// FileFrom accepts a File, *File, generic mapping or bare path string.
func FileFrom(v any) (File, error) {
	switch f := v.(type) {
	case File:
		return f.validate()
	case *File:
		if f == nil {
			return File{}, errors.New("nil file reference")
		}
		return f.validate()
	case map[string]any:
		out := File{}
		for key, dst := range map[string]*string{"path": &out.Path, "media_type": &out.MediaType, "name": &out.Name} {
			raw, ok := f[key]
			if !ok || raw == nil {
				continue
			}
			s, ok := raw.(string)
			if !ok {
				return File{}, fmt.Errorf("file field %q must be a string, got %T", key, raw)
			}
			*dst = s
		}
		return out.validate()
	case map[string]string:
		return File{Path: f["path"], MediaType: f["media_type"], Name: f["name"]}.validate()
	case string:
		return File{Path: f}.validate()
	default:
		return File{}, fmt.Errorf("expected a file reference, got %T", v)
	}
}

func (f File) validate() (File, error) {
	if f.Path == "" {
		return File{}, errors.New("file reference has no path")
	}
	f.MediaType = NormalizeMediaType(f.MediaType)
	return f, nil
}

// ToMap returns the generic mapping form of f.
func (f File) ToMap() map[string]any {
	m := map[string]any{"path": f.Path}
	if f.MediaType != "" {
		m["media_type"] = f.MediaType
	}
	if f.Name != "" {
		m["name"] = f.Name
	}
	return m
}

// DisplayName returns the original name, falling back to the path's base.
func (f File) DisplayName() string {
	if f.Name != "" {
		return f.Name
	}
	return filepath.Base(f.Path)
}

// Exists reports whether the referenced path is an existing regular file.
func (f File) Exists() error {
	info, err := os.Stat(f.Path)
	if err != nil {
		return err
	}
	if info.IsDir() {
		return fmt.Errorf("%s is a directory", f.Path)
	}
	return nil
}

// ReadAll reads the referenced file.
func (f File) ReadAll() ([]byte, error) {
	return os.ReadFile(f.Path)
}

// Open opens the referenced file for reading.
func (f File) Open() (io.ReadCloser, error) {
	return os.Open(f.Path)
}

// ResolveMediaType returns the declared media type, else one derived from the
// name or path extension, else one sniffed from content.
func (f File) ResolveMediaType(content []byte) string {
	if f.MediaType != "" {
		return f.MediaType
	}
	if t := MediaTypeByExtension(f.DisplayName()); t != "" {
		return t
	}
	if t := MediaTypeByExtension(f.Path); t != "" {
		return t
	}
	if len(content) > 0 {
		return SniffMediaType(content)
	}
	return "application/octet-stream"
}
