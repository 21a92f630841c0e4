package container

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/GoCodeAlone/workflow-components/component"
	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/image"
	"github.com/docker/docker/client"
	"github.com/docker/docker/pkg/stdcopy"
)

// runSpec describes one container execution.
type runSpec struct {
	Image       string
	Cmd         []string
	WorkDir     string
	Env         map[string]string
	Files       []component.File
	MemoryLimit int64
	CPULimit    float64
	NetworkMode string
	Timeout     time.Duration
}

type runResult struct {
	ExitCode int
	Stdout   string
	Stderr   string
}

// runner executes a runSpec. engine is the Docker implementation.
type runner interface {
	Run(ctx context.Context, spec runSpec) (runResult, error)
	Close() error
}

var errTimeout = errors.New("container execution timed out")

type engine struct {
	cli *client.Client
}

// newEngine connects using DOCKER_HOST and related environment variables.
func newEngine() (*engine, error) {
	cli, err := client.NewClientWithOpts(client.FromEnv, client.WithAPIVersionNegotiation())
	if err != nil {
		return nil, fmt.Errorf("create Docker client: %w", err)
	}
	return &engine{cli: cli}, nil
}

func (e *engine) Close() error { return e.cli.Close() }

// Run creates the container, copies files in, starts it, waits for exit and
// collects the logs. The container is always force-removed.
func (e *engine) Run(ctx context.Context, spec runSpec) (runResult, error) {
	if spec.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, spec.Timeout)
		defer cancel()
	}

	if err := e.ensureImage(ctx, spec.Image); err != nil {
		return runResult{}, fmt.Errorf("pull %s: %w", spec.Image, err)
	}

	resp, err := e.cli.ContainerCreate(ctx, &container.Config{
		Image:      spec.Image,
		Cmd:        spec.Cmd,
		Env:        buildEnv(spec.Env),
		WorkingDir: spec.WorkDir,
	}, buildHostConfig(spec), nil, nil, "")
	if err != nil {
		return runResult{}, fmt.Errorf("create container: %w", err)
	}
	id := resp.ID
	defer func() {
		rmCtx, rmCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer rmCancel()
		_ = e.cli.ContainerRemove(rmCtx, id, container.RemoveOptions{Force: true})
	}()

	if len(spec.Files) > 0 {
		archive, err := tarFiles(spec.Files)
		if err != nil {
			return runResult{}, fmt.Errorf("archive files: %w", err)
		}
		if err := e.cli.CopyToContainer(ctx, id, spec.WorkDir, archive, container.CopyToContainerOptions{}); err != nil {
			return runResult{}, fmt.Errorf("copy files: %w", err)
		}
	}

	if err := e.cli.ContainerStart(ctx, id, container.StartOptions{}); err != nil {
		return runResult{}, fmt.Errorf("start container: %w", err)
	}

	statusCh, errCh := e.cli.ContainerWait(ctx, id, container.WaitConditionNotRunning)
	var exitCode int
	select {
	case err := <-errCh:
		if err != nil {
			if ctx.Err() != nil {
				e.stop(id)
				return runResult{}, fmt.Errorf("%w after %s", errTimeout, spec.Timeout)
			}
			return runResult{}, fmt.Errorf("wait for container: %w", err)
		}
	case status := <-statusCh:
		exitCode = int(status.StatusCode)
	case <-ctx.Done():
		e.stop(id)
		return runResult{}, fmt.Errorf("%w after %s", errTimeout, spec.Timeout)
	}

	logs, err := e.cli.ContainerLogs(ctx, id, container.LogsOptions{ShowStdout: true, ShowStderr: true})
	if err != nil {
		return runResult{}, fmt.Errorf("read logs: %w", err)
	}
	defer logs.Close()
	stdout, stderr, err := demuxLogs(logs)
	if err != nil {
		return runResult{}, fmt.Errorf("read logs: %w", err)
	}
	return runResult{ExitCode: exitCode, Stdout: stdout, Stderr: stderr}, nil
}

func (e *engine) stop(id string) {
	stopCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = e.cli.ContainerStop(stopCtx, id, container.StopOptions{})
}

// ensureImage pulls ref unless it is already present locally.
func (e *engine) ensureImage(ctx context.Context, ref string) error {
	if _, _, err := e.cli.ImageInspectWithRaw(ctx, ref); err == nil {
		return nil
	}
	rc, err := e.cli.ImagePull(ctx, ref, image.PullOptions{})
	if err != nil {
		return err
	}
	defer rc.Close()
	_, err = io.Copy(io.Discard, rc)
	return err
}

// buildEnv renders env as sorted KEY=VALUE pairs.
func buildEnv(env map[string]string) []string {
	if len(env) == 0 {
		return nil
	}
	out := make([]string, 0, len(env))
	for k, v := range env {
		out = append(out, k+"="+v)
	}
	sort.Strings(out)
	return out
}

func buildHostConfig(spec runSpec) *container.HostConfig {
	hc := &container.HostConfig{}
	if spec.MemoryLimit > 0 {
		hc.Resources.Memory = spec.MemoryLimit
	}
	if spec.CPULimit > 0 {
		// 1 CPU = 1e9 NanoCPUs
		hc.Resources.NanoCPUs = int64(spec.CPULimit * 1e9)
	}
	if spec.NetworkMode != "" {
		hc.NetworkMode = container.NetworkMode(spec.NetworkMode)
	}
	return hc
}

// demuxLogs splits a multiplexed log stream into trimmed stdout and stderr.
func demuxLogs(r io.Reader) (string, string, error) {
	var stdout, stderr bytes.Buffer
	if _, err := stdcopy.StdCopy(&stdout, &stderr, r); err != nil {
		return "", "", err
	}
	return strings.TrimSpace(stdout.String()), strings.TrimSpace(stderr.String()), nil
}
