package docker

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/docker/docker/api/types"
	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/pkg/stdcopy"
	"github.com/docker/go-connections/nat"
	"github.com/gofiber/fiber/v2"
)

const (
	defaultPollInterval = 250 * time.Millisecond
	stopTimeout         = 10 * time.Second
	probeTimeout        = time.Second
	logTail             = "50"
)

var (
	// ErrContainerExited is returned when a smoke-run container stops before its port answers.
	ErrContainerExited = errors.New("container exited before serving")
	// ErrNotServing is returned when the port does not answer within the smoke timeout.
	ErrNotServing = errors.New("container did not serve in time")
)

// SmokeError carries the container's last log lines alongside the failure.
type SmokeError struct {
	Err      error
	ExitCode int
	Logs     string
}

func (e *SmokeError) Error() string {
	msg := e.Err.Error()
	if errors.Is(e.Err, ErrContainerExited) {
		msg = fmt.Sprintf("%s (exit code %d)", msg, e.ExitCode)
	}
	if logs := strings.TrimSpace(e.Logs); logs != "" {
		msg += "\n" + logs
	}
	return msg
}

func (e *SmokeError) Unwrap() error { return e.Err }

// SmokeResult describes a successful smoke run.
type SmokeResult struct {
	ContainerID string
	HostAddr    string
	Elapsed     time.Duration
}

// StartContainer creates and starts a container from image with port published on loopback.
func (a *Adapter) StartContainer(ctx context.Context, image string, port nat.Port) (string, error) {
	resp, err := a.cli.ContainerCreate(ctx, &container.Config{
		Image:        image,
		ExposedPorts: nat.PortSet{port: struct{}{}},
	}, &container.HostConfig{
		PortBindings: nat.PortMap{port: {{HostIP: "127.0.0.1"}}},
	}, nil, nil, "")
	if err != nil {
		return "", fmt.Errorf("failed to create container: %w", err)
	}

	if err := a.cli.ContainerStart(ctx, resp.ID, container.StartOptions{}); err != nil {
		_ = a.RemoveContainer(context.WithoutCancel(ctx), resp.ID)
		return "", fmt.Errorf("failed to start container: %w", err)
	}
	return resp.ID, nil
}

// StopContainer stops a running container
func (a *Adapter) StopContainer(ctx context.Context, id string) error {
	ctx, cancel := context.WithTimeout(ctx, stopTimeout)
	defer cancel()
	timeout := int(stopTimeout.Seconds())
	return a.cli.ContainerStop(ctx, id, container.StopOptions{Timeout: &timeout})
}

// RemoveContainer force-removes a container and its anonymous volumes.
func (a *Adapter) RemoveContainer(ctx context.Context, id string) error {
	return a.cli.ContainerRemove(ctx, id, container.RemoveOptions{Force: true, RemoveVolumes: true})
}

// GetContainerLogs returns the last lines of stdout and stderr.
func (a *Adapter) GetContainerLogs(ctx context.Context, id string) (string, error) {
	rc, err := a.cli.ContainerLogs(ctx, id, container.LogsOptions{
		ShowStdout: true,
		ShowStderr: true,
		Tail:       logTail,
	})
	if err != nil {
		return "", fmt.Errorf("failed to read container logs: %w", err)
	}
	defer rc.Close()

	var buf bytes.Buffer
	if _, err := stdcopy.StdCopy(&buf, &buf, rc); err != nil {
		return buf.String(), fmt.Errorf("failed to read container logs: %w", err)
	}
	return buf.String(), nil
}

// SmokeRun starts image without argument overrides and waits until port answers HTTP.
// The container is always stopped and removed afterwards. An early exit or a timeout
// returns a *SmokeError carrying the container logs.
func (a *Adapter) SmokeRun(ctx context.Context, image string, port nat.Port, timeout time.Duration) (SmokeResult, error) {
	start := time.Now()
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	id, err := a.StartContainer(ctx, image, port)
	if err != nil {
		return SmokeResult{}, err
	}
	cleanupCtx := context.WithoutCancel(ctx)
	defer func() {
		_ = a.StopContainer(cleanupCtx, id)
		_ = a.RemoveContainer(cleanupCtx, id)
	}()

	ticker := time.NewTicker(a.pollInterval)
	defer ticker.Stop()
	for {
		info, err := a.cli.ContainerInspect(ctx, id)
		if err != nil && ctx.Err() == nil {
			return SmokeResult{}, fmt.Errorf("failed to inspect container: %w", err)
		}
		if err == nil {
			if state := containerState(info); state != nil && !state.Running && state.Status != "created" {
				logs, _ := a.GetContainerLogs(cleanupCtx, id)
				return SmokeResult{}, &SmokeError{Err: ErrContainerExited, ExitCode: state.ExitCode, Logs: logs}
			}
			if hostPort := publishedPort(info, port); hostPort != "" {
				addr := net.JoinHostPort("127.0.0.1", hostPort)
				if a.probe(addr) == nil {
					return SmokeResult{ContainerID: id, HostAddr: addr, Elapsed: time.Since(start)}, nil
				}
			}
		}

		select {
		case <-ctx.Done():
			logs, _ := a.GetContainerLogs(cleanupCtx, id)
			return SmokeResult{}, &SmokeError{Err: fmt.Errorf("%w: %s within %s", ErrNotServing, port, timeout), Logs: logs}
		case <-ticker.C:
		}
	}
}

func containerState(info types.ContainerJSON) *types.ContainerState {
	if info.ContainerJSONBase == nil {
		return nil
	}
	return info.State
}

func publishedPort(info types.ContainerJSON, port nat.Port) string {
	if info.NetworkSettings == nil {
		return ""
	}
	for _, b := range info.NetworkSettings.Ports[port] {
		if b.HostPort != "" {
			return b.HostPort
		}
	}
	return ""
}

// httpProbe succeeds on any HTTP response. The daemon's port proxy accepts TCP connections
// even when nothing listens inside the container, so a bare dial proves nothing.
func httpProbe(addr string) error {
	_, _, errs := fiber.Get("http://" + addr + "/").Timeout(probeTimeout).Bytes()
	if len(errs) > 0 {
		return errs[0]
	}
	return nil
}
