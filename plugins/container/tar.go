package container

import (
	"archive/tar"
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/GoCodeAlone/workflow-components/component"
)

// tarFiles packs files into a flat archive keyed by display name.
func tarFiles(files []component.File) (io.Reader, error) {
	var buf bytes.Buffer
	tw := tar.NewWriter(&buf)
	seen := make(map[string]bool, len(files))
	for _, f := range files {
		name := filepath.Base(f.DisplayName())
		if seen[name] {
			return nil, fmt.Errorf("duplicate file name %q", name)
		}
		seen[name] = true
		if err := addFile(tw, f.Path, name); err != nil {
			return nil, err
		}
	}
	if err := tw.Close(); err != nil {
		return nil, err
	}
	return &buf, nil
}

func addFile(tw *tar.Writer, path, name string) error {
	fh, err := os.Open(path)
	if err != nil {
		return err
	}
	defer fh.Close()
	stat, err := fh.Stat()
	if err != nil {
		return err
	}
	if err := tw.WriteHeader(&tar.Header{Name: name, Size: stat.Size(), Mode: int64(stat.Mode().Perm())}); err != nil {
		return err
	}
	_, err = io.Copy(tw, fh)
	return err
}
