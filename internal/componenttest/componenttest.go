// Package componenttest holds helpers shared by component plugin tests.
package componenttest

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/GoCodeAlone/workflow-components/component"
)

// Find returns the registration named name from regs, failing the test when
// it is absent.
func Find(t testing.TB, regs []component.Registration, name string) component.Registration {
	t.Helper()
	for _, r := range regs {
		if r.Descriptor.Name == name {
			return r
		}
	}
	t.Fatalf("component %q not registered", name)
	return component.Registration{}
}

// Build merges cfg into the registration's defaults (without secret
// expansion) and calls the factory. Construction must never fail for a
// well-formed config, so any error fails the test.
func Build(t testing.TB, reg component.Registration, cfg map[string]any) component.Component {
	t.Helper()
	if err := reg.Descriptor.Validate(); err != nil {
		t.Fatalf("descriptor: %v", err)
	}
	merged, err := component.MergeConfig(context.Background(), reg.Descriptor, cfg, nil)
	if err != nil {
		t.Fatalf("merge config: %v", err)
	}
	c, err := reg.Factory(merged)
	if err != nil {
		t.Fatalf("factory %s: %v", reg.Descriptor.Name, err)
	}
	return c
}

// Run coerces raw against the component's descriptor and runs it.
func Run(ctx context.Context, c component.Component, raw map[string]any) (any, error) {
	in, err := component.Coerce(c.Descriptor(), raw)
	if err != nil {
		return nil, err
	}
	return c.Run(ctx, in)
}

// WriteFile writes data to name inside a fresh temp dir and returns the path.
func WriteFile(t testing.TB, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, data, 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

// PNG is a valid 1x1 transparent PNG image.
var PNG = []byte{
	0x89, 0x50, 0x4e, 0x47, 0x0d, 0x0a, 0x1a, 0x0a, 0x00, 0x00, 0x00, 0x0d,
	0x49, 0x48, 0x44, 0x52, 0x00, 0x00, 0x00, 0x01, 0x00, 0x00, 0x00, 0x01,
	0x08, 0x06, 0x00, 0x00, 0x00, 0x1f, 0x15, 0xc4, 0x89, 0x00, 0x00, 0x00,
	0x0d, 0x49, 0x44, 0x41, 0x54, 0x78, 0x9c, 0x63, 0x00, 0x01, 0x00, 0x00,
	0x05, 0x00, 0x01, 0x0d, 0x0a, 0x2d, 0xb4, 0x00, 0x00, 0x00, 0x00, 0x49,
	0x45, 0x4e, 0x44, 0xae, 0x42, 0x60, 0x82,
}

// WAV is a minimal PCM WAV file with four silent samples.
var WAV = []byte{
	'R', 'I', 'F', 'F', 0x2c, 0x00, 0x00, 0x00, 'W', 'A', 'V', 'E',
	'f', 'm', 't', ' ', 0x10, 0x00, 0x00, 0x00, 0x01, 0x00, 0x01, 0x00,
	0x40, 0x1f, 0x00, 0x00, 0x80, 0x3e, 0x00, 0x00, 0x02, 0x00, 0x10, 0x00,
	'd', 'a', 't', 'a', 0x08, 0x00, 0x00, 0x00,
	0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00,
}
