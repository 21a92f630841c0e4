package all

import (
	"strings"
	"testing"

	"github.com/GoCodeAlone/workflow-components/component"
	"github.com/GoCodeAlone/workflow-components/registry"
)

func TestDefaultPlugins_NotEmpty(t *testing.T) {
	if len(DefaultPlugins()) == 0 {
		t.Fatal("DefaultPlugins() returned empty slice")
	}
}

func TestDefaultPlugins_UniqueNames(t *testing.T) {
	seen := make(map[string]bool)
	for _, p := range DefaultPlugins() {
		if p == nil {
			t.Fatal("nil plugin")
		}
		if seen[p.Name()] {
			t.Errorf("duplicate plugin name %q in DefaultPlugins()", p.Name())
		}
		seen[p.Name()] = true
	}
}

func TestDefaultPlugins_IndependentSlices(t *testing.T) {
	a := DefaultPlugins()
	b := DefaultPlugins()
	a[0] = nil
	if b[0] == nil {
		t.Error("modifying slice returned by DefaultPlugins() affected a separate call")
	}
}

// stubRegistrar records registrations and fails on a chosen component.
type stubRegistrar struct {
	names []string
	errOn string
}

func (s *stubRegistrar) Register(reg component.Registration) error {
	if reg.Descriptor.Name == s.errOn {
		return &testError{reg.Descriptor.Name}
	}
	s.names = append(s.names, reg.Descriptor.Name)
	return nil
}

type testError struct{ name string }

func (e *testError) Error() string { return "test error for " + e.name }

func TestLoadAll_ReturnsFirstError(t *testing.T) {
	first := DefaultPlugins()[0].Components()
	if len(first) < 2 {
		t.Skip("first plugin has a single component")
	}
	stub := &stubRegistrar{errOn: first[1].Descriptor.Name}
	if err := LoadAll(stub); err == nil {
		t.Fatal("LoadAll() expected error, got nil")
	}
	if len(stub.names) != 1 {
		t.Errorf("LoadAll() registered %d components before error, want 1", len(stub.names))
	}
}

// TestLoadAll_WithRegistry verifies every default component registers
// without conflicts and that each can be constructed without network access.
func TestLoadAll_WithRegistry(t *testing.T) {
	reg := registry.New()
	if err := LoadAll(reg); err != nil {
		t.Fatalf("LoadAll: %v", err)
	}

	total := 0
	for _, p := range DefaultPlugins() {
		total += len(p.Components())
	}
	if reg.Len() != total {
		t.Errorf("registry has %d components, want %d", reg.Len(), total)
	}

	for _, d := range reg.Descriptors() {
		if !strings.HasPrefix(d.Name, d.Group+".") {
			t.Errorf("%s: name does not start with group %q", d.Name, d.Group)
		}
		c, err := reg.New(t.Context(), d.Name, nil)
		if err != nil {
			t.Errorf("New(%s): %v", d.Name, err)
			continue
		}
		if c.Descriptor().Name != d.Name {
			t.Errorf("New(%s) returned %s", d.Name, c.Descriptor().Name)
		}
	}
}

func TestCoreCatalogue(t *testing.T) {
	reg := registry.New()
	if err := LoadAll(reg); err != nil {
		t.Fatal(err)
	}
	for _, name := range []string{
		"input.text", "input.int", "input.json", "input.file",
		"codec.base64_encode_image", "codec.base64_encode_audio",
		"codec.base64_decode_image", "codec.base64_decode_audio",
		"sequence.range", "web.http_fetch", "search.bing",
	} {
		if _, ok := reg.Lookup(name); !ok {
			t.Errorf("%s not registered", name)
		}
	}
}

// A component that returns a file without receiving one has written it
// locally, so the write must be declared.
func TestFileProducersDeclareSideEffects(t *testing.T) {
	reg := registry.New()
	if err := LoadAll(reg); err != nil {
		t.Fatal(err)
	}
	for _, d := range reg.Descriptors() {
		if !d.Output.IsFile() || d.SideEffects != "" {
			continue
		}
		passthrough := false
		for _, in := range d.Inputs {
			passthrough = passthrough || in.Type.IsFile()
		}
		if !passthrough {
			t.Errorf("%s creates a local file but declares no side effects", d.Name)
		}
	}
}
