// Package recipe describes how a container image for an application is assembled:
// base runtime, working directory, source copy, dependency installation, exposed
// port and start command. A Recipe renders to a Dockerfile and can check a build
// context before any build is attempted.
package recipe

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"path"
	"sort"
	"strings"
)

const (
	DefaultWorkDir = "/app"
	DefaultPort    = 8000
)

var (
	ErrUnknownPreset    = errors.New("unknown recipe preset")
	ErrInvalidRecipe    = errors.New("invalid recipe")
	ErrMissingBuildFile = errors.New("missing build file")
)

// Artifact is a path copied out of the builder stage into the runtime image.
type Artifact struct {
	From string
	To   string
}

// BuildStage is an optional compile stage that runs before the runtime image.
type BuildStage struct {
	Image     string
	WorkDir   string
	Steps     []string
	Artifacts []Artifact
}

// Recipe is the declarative description of an application image.
type Recipe struct {
	Name      string
	BaseImage string
	Builder   *BuildStage
	WorkDir   string
	// DependencyManifest must be present in the build context, e.g. requirements.txt.
	DependencyManifest string
	InstallCommand     string
	// AppModule is the file that defines the served application.
	AppModule  string
	Port       int
	Entrypoint []string
	Labels     map[string]string
}

// Validate reports structural problems that would make the rendered Dockerfile unusable.
func (r *Recipe) Validate() error {
	var problems []string
	if r.BaseImage == "" {
		problems = append(problems, "base image is required")
	}
	if !path.IsAbs(r.WorkDir) {
		problems = append(problems, fmt.Sprintf("workdir %q must be absolute", r.WorkDir))
	}
	if r.Port < 1 || r.Port > 65535 {
		problems = append(problems, fmt.Sprintf("port %d out of range", r.Port))
	}
	if len(r.Entrypoint) == 0 {
		problems = append(problems, "entrypoint is required")
	}
	if r.Builder != nil && r.Builder.Image == "" {
		problems = append(problems, "builder stage needs an image")
	}
	if len(problems) > 0 {
		return fmt.Errorf("%w: %s", ErrInvalidRecipe, strings.Join(problems, "; "))
	}
	return nil
}

// Render writes the recipe as a Dockerfile. Output is deterministic for a given recipe.
func (r *Recipe) Render(w io.Writer) error {
	if err := r.Validate(); err != nil {
		return err
	}
	var b strings.Builder

	if r.Builder != nil {
		bs := r.Builder
		workdir := bs.WorkDir
		if workdir == "" {
			workdir = "/src"
		}
		fmt.Fprintf(&b, "FROM %s AS builder\n", bs.Image)
		fmt.Fprintf(&b, "WORKDIR %s\n", workdir)
		b.WriteString("COPY . .\n")
		if r.InstallCommand != "" {
			fmt.Fprintf(&b, "RUN %s\n", r.InstallCommand)
		}
		for _, step := range bs.Steps {
			fmt.Fprintf(&b, "RUN %s\n", step)
		}
		b.WriteString("\n")
		fmt.Fprintf(&b, "FROM %s\n", r.BaseImage)
		fmt.Fprintf(&b, "WORKDIR %s\n", r.WorkDir)
		fmt.Fprintf(&b, "COPY --from=builder %s %s\n", workdir, r.WorkDir)
		for _, a := range bs.Artifacts {
			fmt.Fprintf(&b, "COPY --from=builder %s %s\n", a.From, a.To)
		}
	} else {
		fmt.Fprintf(&b, "FROM %s\n", r.BaseImage)
		fmt.Fprintf(&b, "WORKDIR %s\n", r.WorkDir)
		fmt.Fprintf(&b, "COPY . %s\n", r.WorkDir)
		if r.InstallCommand != "" {
			fmt.Fprintf(&b, "RUN %s\n", r.InstallCommand)
		}
	}

	if len(r.Labels) > 0 {
		keys := make([]string, 0, len(r.Labels))
		for k := range r.Labels {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			fmt.Fprintf(&b, "LABEL %s=%q\n", k, r.Labels[k])
		}
	}

	fmt.Fprintf(&b, "EXPOSE %d\n", r.Port)

	// exec form is a JSON array
	cmd, err := json.Marshal(r.Entrypoint)
	if err != nil {
		return fmt.Errorf("failed to encode entrypoint: %w", err)
	}
	fmt.Fprintf(&b, "CMD %s\n", cmd)

	_, err = io.WriteString(w, b.String())
	return err
}

// Dockerfile returns the rendered recipe as a string.
func (r *Recipe) Dockerfile() (string, error) {
	var b strings.Builder
	if err := r.Render(&b); err != nil {
		return "", err
	}
	return b.String(), nil
}
