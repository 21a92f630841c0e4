//go:build integration

package container

import (
	"context"
	"testing"
	"time"
)

func TestEngineEcho(t *testing.T) {
	eng, err := newEngine()
	if err != nil {
		t.Fatalf("docker: %v", err)
	}
	defer eng.Close()

	res, err := eng.Run(context.Background(), runSpec{
		Image:   "alpine:3.20",
		Cmd:     []string{"sh", "-c", "echo hello; echo oops >&2; exit 3"},
		Timeout: time.Minute,
	})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if res.ExitCode != 3 || res.Stdout != "hello" || res.Stderr != "oops" {
		t.Errorf("result = %+v", res)
	}
}
