package registry

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/GoCodeAlone/workflow-components/component"
)

type echo struct {
	component.Base
}

func (e *echo) Run(_ context.Context, in component.Inputs) (any, error) {
	return e.Config().String("prefix") + in.Text("value"), nil
}

func echoRegistration(name, group string) component.Registration {
	d := component.Descriptor{
		Name:   name,
		Group:  group,
		Inputs: []component.InputDef{{Name: "value", Type: component.TypeText}},
		Output: component.TypeText,
		Config: []component.ConfigField{
			{Key: "prefix", Default: "> "},
			{Key: "api_key", Secret: true, Env: "ECHO_TEST_API_KEY"},
		},
	}
	return component.Registration{
		Descriptor: d,
		Factory: func(cfg component.Config) (component.Component, error) {
			return &echo{Base: component.NewBase(d, cfg)}, nil
		},
	}
}

type mapExpander map[string]string

func (m mapExpander) Expand(_ context.Context, s string) (string, error) {
	for k, v := range m {
		s = strings.ReplaceAll(s, "${"+k+"}", v)
	}
	if strings.Contains(s, "${") {
		return "", errors.New("unresolved")
	}
	return s, nil
}

func TestRegisterAndLookup(t *testing.T) {
	r := New()
	if err := r.Register(echoRegistration("test.echo", "test")); err != nil {
		t.Fatalf("Register: %v", err)
	}
	if err := r.Register(echoRegistration("test.echo", "test")); !errors.Is(err, ErrDuplicate) {
		t.Errorf("expected ErrDuplicate, got %v", err)
	}
	d, ok := r.Lookup("test.echo")
	if !ok || d.Group != "test" {
		t.Fatalf("Lookup = %+v, %v", d, ok)
	}
	if _, ok := r.Lookup("nope"); ok {
		t.Error("Lookup of unknown name succeeded")
	}
	if r.Len() != 1 {
		t.Errorf("Len = %d", r.Len())
	}
}

func TestRegisterRejectsInvalid(t *testing.T) {
	r := New()
	bad := echoRegistration("Bad Name", "test")
	if err := r.Register(bad); !errors.Is(err, component.ErrInvalidDescriptor) {
		t.Errorf("expected ErrInvalidDescriptor, got %v", err)
	}
	noFactory := echoRegistration("test.nofactory", "test")
	noFactory.Factory = nil
	if err := r.Register(noFactory); !errors.Is(err, component.ErrInvalidDescriptor) {
		t.Errorf("expected ErrInvalidDescriptor for nil factory, got %v", err)
	}
}

func TestDiscovery(t *testing.T) {
	r := New()
	r.MustRegister(
		echoRegistration("b.two", "b"),
		echoRegistration("a.one", "a"),
		echoRegistration("b.one", "b"),
	)
	var names []string
	for _, d := range r.Descriptors() {
		names = append(names, d.Name)
	}
	if strings.Join(names, ",") != "a.one,b.one,b.two" {
		t.Errorf("Descriptors order = %v", names)
	}
	if g := r.Groups(); len(g) != 2 || g[0] != "a" || g[1] != "b" {
		t.Errorf("Groups = %v", g)
	}
	if got := r.ByGroup("b"); len(got) != 2 || got[0].Name != "b.one" {
		t.Errorf("ByGroup = %v", got)
	}
}

func TestNewMergesConfig(t *testing.T) {
	r := New(WithExpander(mapExpander{"P": "* "}))
	r.MustRegister(echoRegistration("test.echo", "test"))

	c, err := r.New(context.Background(), "test.echo", nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	out, err := c.Run(context.Background(), component.Inputs{"value": "hi"})
	if err != nil || out != "> hi" {
		t.Errorf("default prefix: %v, %v", out, err)
	}

	c, err = r.New(context.Background(), "test.echo", map[string]any{"prefix": "${P}"})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	out, _ = c.Run(context.Background(), component.Inputs{"value": "hi"})
	if out != "${P}hi" {
		t.Errorf("literal override prefix = %v", out)
	}

	c, err = r.New(context.Background(), "test.echo", map[string]any{"prefix": "${P}"}, component.ExpandOverrides())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	out, _ = c.Run(context.Background(), component.Inputs{"value": "hi"})
	if out != "* hi" {
		t.Errorf("expanded override prefix = %v", out)
	}
}

func TestNewErrors(t *testing.T) {
	r := New()
	r.MustRegister(echoRegistration("test.echo", "test"))
	if _, err := r.New(context.Background(), "missing", nil); !errors.Is(err, ErrUnknownComponent) {
		t.Errorf("expected ErrUnknownComponent, got %v", err)
	}
	_, err := r.New(context.Background(), "test.echo", map[string]any{"bogus": 1})
	if !errors.Is(err, component.ErrConfiguration) {
		t.Errorf("expected configuration error for unknown key, got %v", err)
	}
}

func TestMustRegisterPanicsOnDuplicate(t *testing.T) {
	r := New()
	r.MustRegister(echoRegistration("test.echo", "test"))
	defer func() {
		if recover() == nil {
			t.Error("expected panic")
		}
	}()
	r.MustRegister(echoRegistration("test.echo", "test"))
}
