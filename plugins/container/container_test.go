package container

import (
	"archive/tar"
	"bytes"
	"context"
	"errors"
	"io"
	"reflect"
	"testing"
	"time"

	"github.com/GoCodeAlone/workflow-components/component"
	"github.com/GoCodeAlone/workflow-components/internal/componenttest"
	"github.com/docker/docker/pkg/stdcopy"
)

type fakeRunner struct {
	spec   runSpec
	result runResult
	err    error
	closed bool
}

func (f *fakeRunner) Run(_ context.Context, spec runSpec) (runResult, error) {
	f.spec = spec
	return f.result, f.err
}

func (f *fakeRunner) Close() error {
	f.closed = true
	return nil
}

func build(t *testing.T, cfg map[string]any, fake *fakeRunner) component.Component {
	t.Helper()
	c := componenttest.Build(t, componenttest.Find(t, New().Components(), "container.docker_run"), cfg)
	c.(*dockerRun).engine.Set(fake)
	return c
}

func TestDockerRunSpec(t *testing.T) {
	fake := &fakeRunner{result: runResult{Stdout: "hello"}}
	c := build(t, map[string]any{
		"env":          map[string]any{"MODE": "test"},
		"memory_limit": 64 << 20,
		"cpu_limit":    0.5,
		"timeout":      "30s",
	}, fake)
	script := componenttest.WriteFile(t, "run.sh", []byte("echo hello"))

	out, err := componenttest.Run(context.Background(), c, map[string]any{
		"command": []any{"sh", "run.sh"},
		"env":     `{"EXTRA": 1}`,
		"files":   []any{map[string]any{"path": script}},
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	want := map[string]any{"exit_code": int64(0), "stdout": "hello", "stderr": ""}
	if !reflect.DeepEqual(out, want) {
		t.Errorf("out = %v", out)
	}

	s := fake.spec
	if s.Image != "alpine:3.20" || s.WorkDir != "/workspace" || s.NetworkMode != "none" || s.Timeout != 30*time.Second {
		t.Errorf("spec = %+v", s)
	}
	if !reflect.DeepEqual(s.Cmd, []string{"sh", "run.sh"}) {
		t.Errorf("cmd = %v", s.Cmd)
	}
	if !reflect.DeepEqual(s.Env, map[string]string{"MODE": "test", "EXTRA": "1"}) {
		t.Errorf("env = %v", s.Env)
	}
	if s.MemoryLimit != 64<<20 || s.CPULimit != 0.5 || len(s.Files) != 1 {
		t.Errorf("limits/files = %d %v %d", s.MemoryLimit, s.CPULimit, len(s.Files))
	}
}

func TestDockerRunImageOverride(t *testing.T) {
	fake := &fakeRunner{}
	c := build(t, nil, fake)
	if _, err := componenttest.Run(context.Background(), c, map[string]any{"command": `["true"]`, "image": "busybox"}); err != nil {
		t.Fatal(err)
	}
	if fake.spec.Image != "busybox" {
		t.Errorf("image = %s", fake.spec.Image)
	}
}

func TestDockerRunExitCode(t *testing.T) {
	fake := &fakeRunner{result: runResult{ExitCode: 42, Stderr: "boom"}}
	c := build(t, nil, fake)
	_, err := componenttest.Run(context.Background(), c, map[string]any{"command": []any{"false"}})
	if !errors.Is(err, component.ErrExternalFailure) {
		t.Errorf("expected ExternalFailure for exit 42, got %v", err)
	}

	c = build(t, map[string]any{"allow_nonzero_exit": true}, fake)
	out, err := componenttest.Run(context.Background(), c, map[string]any{"command": []any{"false"}})
	if err != nil {
		t.Fatal(err)
	}
	if out.(map[string]any)["exit_code"] != int64(42) {
		t.Errorf("out = %v", out)
	}
}

func TestDockerRunValidation(t *testing.T) {
	ctx := context.Background()
	cases := []struct {
		name string
		cfg  map[string]any
		in   map[string]any
		want error
	}{
		{"empty command", nil, map[string]any{"command": []any{}}, component.ErrInvalidInput},
		{"non-string arg", nil, map[string]any{"command": []any{"echo", 1}}, component.ErrInvalidInput},
		{"missing file", nil, map[string]any{"command": []any{"ls"}, "files": []any{"/no/such/file"}}, component.ErrInvalidInput},
		{"env not object", nil, map[string]any{"command": []any{"ls"}, "env": `[1]`}, component.ErrInvalidInput},
		{"no image", map[string]any{"image": ""}, map[string]any{"command": []any{"ls"}}, component.ErrConfiguration},
		{"negative memory", map[string]any{"memory_limit": -1}, map[string]any{"command": []any{"ls"}}, component.ErrConfiguration},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			fake := &fakeRunner{}
			c := build(t, tc.cfg, fake)
			if _, err := componenttest.Run(ctx, c, tc.in); !errors.Is(err, tc.want) {
				t.Errorf("got %v, want %v", err, tc.want)
			}
			if fake.spec.Image != "" {
				t.Error("runner invoked for invalid request")
			}
		})
	}
}

func TestDockerRunEngineFailure(t *testing.T) {
	fake := &fakeRunner{err: errTimeout}
	c := build(t, nil, fake)
	_, err := componenttest.Run(context.Background(), c, map[string]any{"command": []any{"sleep", "100"}})
	if !errors.Is(err, component.ErrExternalFailure) || !errors.Is(err, errTimeout) {
		t.Errorf("expected wrapped timeout, got %v", err)
	}
	if err := c.(*dockerRun).Close(); err != nil || !fake.closed {
		t.Errorf("Close: %v closed=%v", err, fake.closed)
	}
}

func TestBuildHostConfig(t *testing.T) {
	hc := buildHostConfig(runSpec{MemoryLimit: 512 << 20, CPULimit: 1.5, NetworkMode: "none"})
	if hc.Resources.Memory != 512<<20 || hc.Resources.NanoCPUs != 1_500_000_000 || string(hc.NetworkMode) != "none" {
		t.Errorf("host config = %+v", hc)
	}
	if hc := buildHostConfig(runSpec{}); hc.Resources.Memory != 0 || hc.NetworkMode != "" {
		t.Errorf("empty host config = %+v", hc)
	}
}

func TestBuildEnv(t *testing.T) {
	if env := buildEnv(nil); env != nil {
		t.Errorf("nil env = %v", env)
	}
	got := buildEnv(map[string]string{"B": "2", "A": "1"})
	if !reflect.DeepEqual(got, []string{"A=1", "B=2"}) {
		t.Errorf("env = %v", got)
	}
}

func TestDemuxLogs(t *testing.T) {
	var stream bytes.Buffer
	_, _ = stdcopy.NewStdWriter(&stream, stdcopy.Stdout).Write([]byte("out line\n"))
	_, _ = stdcopy.NewStdWriter(&stream, stdcopy.Stderr).Write([]byte("err line\n"))
	stdout, stderr, err := demuxLogs(&stream)
	if err != nil {
		t.Fatal(err)
	}
	if stdout != "out line" || stderr != "err line" {
		t.Errorf("stdout=%q stderr=%q", stdout, stderr)
	}
}

func TestTarFiles(t *testing.T) {
	a := componenttest.WriteFile(t, "a.txt", []byte("alpha"))
	b := componenttest.WriteFile(t, "b.bin", []byte{1, 2, 3})
	r, err := tarFiles([]component.File{{Path: a}, {Path: b, Name: "renamed.bin"}})
	if err != nil {
		t.Fatal(err)
	}
	tr := tar.NewReader(r)
	got := map[string]string{}
	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			t.Fatal(err)
		}
		data, _ := io.ReadAll(tr)
		got[hdr.Name] = string(data)
	}
	want := map[string]string{"a.txt": "alpha", "renamed.bin": "\x01\x02\x03"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("archive = %v", got)
	}

	if _, err := tarFiles([]component.File{{Path: a}, {Path: a}}); err == nil {
		t.Error("expected duplicate name error")
	}
}
