package docker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/docker/docker/api/types"
	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/network"
	"github.com/docker/docker/client"
	"github.com/docker/docker/pkg/jsonmessage"
	ocispec "github.com/opencontainers/image-spec/specs-go/v1"

	"github.com/melih/requirement-validator/internal/core/domain"
)

// ErrBuildFailed is returned when the daemon reports an error in the build output stream.
var ErrBuildFailed = errors.New("image build failed")

// API is the subset of the Docker SDK client used here.
type API interface {
	ImageBuild(ctx context.Context, buildContext io.Reader, options types.ImageBuildOptions) (types.ImageBuildResponse, error)
	ImageInspectWithRaw(ctx context.Context, imageID string) (types.ImageInspect, []byte, error)
	ContainerCreate(ctx context.Context, config *container.Config, hostConfig *container.HostConfig, networkingConfig *network.NetworkingConfig, platform *ocispec.Platform, containerName string) (container.CreateResponse, error)
	ContainerStart(ctx context.Context, containerID string, options container.StartOptions) error
	ContainerInspect(ctx context.Context, containerID string) (types.ContainerJSON, error)
	ContainerLogs(ctx context.Context, containerID string, options container.LogsOptions) (io.ReadCloser, error)
	ContainerStop(ctx context.Context, containerID string, options container.StopOptions) error
	ContainerRemove(ctx context.Context, containerID string, options container.RemoveOptions) error
	Close() error
}

// Adapter talks to the Docker daemon to build, inspect and smoke-run images.
type Adapter struct {
	cli          API
	probe        func(addr string) error
	pollInterval time.Duration
}

// NewAdapter creates a new Docker adapter instance
func NewAdapter() (*Adapter, error) {
	cli, err := client.NewClientWithOpts(client.FromEnv, client.WithAPIVersionNegotiation())
	if err != nil {
		return nil, fmt.Errorf("failed to create docker client: %w", err)
	}
	return NewAdapterWithClient(cli), nil
}

// NewAdapterWithClient wraps an existing client.
func NewAdapterWithClient(cli API) *Adapter {
	return &Adapter{cli: cli, probe: httpProbe, pollInterval: defaultPollInterval}
}

// Build sends the tarred build context to the daemon and waits for the build to finish.
// Progress is written to out. It returns the image ID reported by the daemon, which may be
// empty on daemons that do not send one.
func (a *Adapter) Build(ctx context.Context, buildContext io.Reader, opts types.ImageBuildOptions, out io.Writer) (string, error) {
	resp, err := a.cli.ImageBuild(ctx, buildContext, opts)
	if err != nil {
		return "", fmt.Errorf("failed to build image: %w", err)
	}
	defer resp.Body.Close()

	if out == nil {
		out = io.Discard
	}

	var imageID string
	aux := func(msg jsonmessage.JSONMessage) {
		if msg.Aux == nil {
			return
		}
		var result types.BuildResult
		if err := json.Unmarshal(*msg.Aux, &result); err == nil && result.ID != "" {
			imageID = result.ID
		}
	}

	// The stream must be read to the end, otherwise the build is cancelled.
	if err := jsonmessage.DisplayJSONMessagesStream(resp.Body, out, 0, false, aux); err != nil {
		var jerr *jsonmessage.JSONError
		if errors.As(err, &jerr) {
			return "", fmt.Errorf("%w: %s", ErrBuildFailed, jerr.Message)
		}
		return "", fmt.Errorf("failed to read build output: %w", err)
	}
	return imageID, nil
}

// InspectImage returns the runtime configuration of an image.
func (a *Adapter) InspectImage(ctx context.Context, ref string) (domain.Image, error) {
	info, _, err := a.cli.ImageInspectWithRaw(ctx, ref)
	if err != nil {
		return domain.Image{}, fmt.Errorf("failed to inspect image %s: %w", ref, err)
	}

	img := domain.Image{
		ID:   info.ID,
		Tags: info.RepoTags,
	}
	if cfg := info.Config; cfg != nil {
		img.WorkingDir = cfg.WorkingDir
		for port := range cfg.ExposedPorts {
			img.ExposedPorts = append(img.ExposedPorts, string(port))
		}
		sort.Strings(img.ExposedPorts)
		img.Cmd = append(append([]string{}, cfg.Entrypoint...), cfg.Cmd...)
	}
	return img, nil
}

// Close releases the underlying client.
func (a *Adapter) Close() error {
	return a.cli.Close()
}
