package builder

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"slices"
	"strconv"
	"strings"

	"github.com/docker/docker/api/types"
	"github.com/docker/go-connections/nat"
	"github.com/go-git/go-git/v5"
	"github.com/rs/zerolog"

	"github.com/melih/requirement-validator/internal/core/domain"
	"github.com/melih/requirement-validator/internal/core/ports"
	"github.com/melih/requirement-validator/internal/core/recipe"
	"github.com/melih/requirement-validator/internal/metrics"
)

var (
	ErrInvalidRequest = errors.New("invalid build request")
	ErrImageMismatch  = errors.New("image does not match recipe")
)

// Engine builds and inspects images. docker.Adapter implements it.
type Engine interface {
	Build(ctx context.Context, buildContext io.Reader, opts types.ImageBuildOptions, out io.Writer) (string, error)
	InspectImage(ctx context.Context, ref string) (domain.Image, error)
}

// Adapter implements ports.BuilderService on top of an Engine.
type Adapter struct {
	engine Engine
	log    zerolog.Logger
}

var _ ports.BuilderService = (*Adapter)(nil)

func NewBuilderAdapter(engine Engine, log zerolog.Logger) *Adapter {
	return &Adapter{engine: engine, log: log.With().Str("component", "builder").Logger()}
}

// BuildImage checks the build context against the recipe, builds it and inspects the result.
// Any failure leaves no reported image behind.
func (a *Adapter) BuildImage(ctx context.Context, req ports.BuildRequest) (domain.Image, error) {
	img, err := a.build(ctx, req)
	if err != nil {
		metrics.IncImageBuild(metrics.StatusFailure)
		return domain.Image{}, err
	}
	metrics.IncImageBuild(metrics.StatusSuccess)
	return img, nil
}

func (a *Adapter) build(ctx context.Context, req ports.BuildRequest) (domain.Image, error) {
	if req.Recipe == nil {
		return domain.Image{}, fmt.Errorf("%w: recipe is required", ErrInvalidRequest)
	}
	if req.Tag == "" {
		return domain.Image{}, fmt.Errorf("%w: tag is required", ErrInvalidRequest)
	}
	if (req.ContextDir == "") == (req.RepoURL == "") {
		return domain.Image{}, fmt.Errorf("%w: exactly one of context dir or repo url is required", ErrInvalidRequest)
	}
	if err := req.Recipe.Validate(); err != nil {
		return domain.Image{}, err
	}

	contextDir := req.ContextDir
	if req.RepoURL != "" {
		tmpDir, err := os.MkdirTemp("", "reqval-build-*")
		if err != nil {
			return domain.Image{}, fmt.Errorf("failed to create temp dir: %w", err)
		}
		defer os.RemoveAll(tmpDir)

		if err := a.clone(ctx, req.RepoURL, tmpDir); err != nil {
			return domain.Image{}, err
		}
		contextDir = tmpDir
	}

	if err := req.Recipe.Preflight(contextDir); err != nil {
		return domain.Image{}, err
	}

	bc, err := LoadContext(contextDir)
	if err != nil {
		return domain.Image{}, err
	}
	digest, err := bc.Digest()
	if err != nil {
		return domain.Image{}, fmt.Errorf("failed to hash build context: %w", err)
	}

	// A Dockerfile shipped in the context wins over the rendered recipe.
	var dockerfile string
	if !bc.HasFile(dockerfileName) {
		if dockerfile, err = req.Recipe.Dockerfile(); err != nil {
			return domain.Image{}, err
		}
	}
	tar, err := bc.Tar(dockerfile)
	if err != nil {
		return domain.Image{}, err
	}
	defer tar.Close()

	a.log.Info().
		Str("tag", req.Tag).
		Str("recipe", req.Recipe.Name).
		Str("context_digest", digest).
		Int("files", len(bc.Files)).
		Msg("building image")

	id, err := a.engine.Build(ctx, tar, types.ImageBuildOptions{
		Tags:        []string{req.Tag},
		Dockerfile:  dockerfileName,
		Remove:      true, // Remove intermediate containers
		ForceRemove: true,
		PullParent:  req.Pull,
		Labels:      map[string]string{"reqval.context-digest": digest},
	}, a.log)
	if err != nil {
		return domain.Image{}, err
	}

	ref := id
	if ref == "" {
		ref = req.Tag
	}
	img, err := a.engine.InspectImage(ctx, ref)
	if err != nil {
		return domain.Image{}, err
	}
	img.ContextDigest = digest

	a.log.Info().Str("tag", req.Tag).Str("id", img.ID).Msg("image built")
	return img, nil
}

func (a *Adapter) clone(ctx context.Context, repoURL, dir string) error {
	a.log.Info().Str("repo", repoURL).Str("dir", dir).Msg("cloning repository")
	_, err := git.PlainCloneContext(ctx, dir, false, &git.CloneOptions{
		URL:      repoURL,
		Progress: a.log,
		Depth:    1, // Shallow clone for speed
	})
	if err != nil {
		return fmt.Errorf("failed to clone repo: %w", err)
	}
	return nil
}

// VerifyImage checks that a built image carries the workdir, port and start command of r.
func VerifyImage(img domain.Image, r *recipe.Recipe) error {
	var errs []error
	if img.WorkingDir != r.WorkDir {
		errs = append(errs, fmt.Errorf("working dir is %q, want %q", img.WorkingDir, r.WorkDir))
	}
	port, err := nat.NewPort("tcp", strconv.Itoa(r.Port))
	if err != nil {
		errs = append(errs, err)
	} else if !slices.Contains(img.ExposedPorts, string(port)) {
		errs = append(errs, fmt.Errorf("port %s is not exposed (have %s)", port, strings.Join(img.ExposedPorts, ",")))
	}
	if !slices.Equal(img.Cmd, r.Entrypoint) {
		errs = append(errs, fmt.Errorf("command is %q, want %q", img.Cmd, r.Entrypoint))
	}
	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", ErrImageMismatch, errors.Join(errs...))
	}
	return nil
}
