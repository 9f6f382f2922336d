package recipe

import (
	"fmt"
	"sort"
	"strconv"
)

const (
	PresetPythonASGI = "python-asgi"
	PresetGoService  = "go-service"
)

// DefaultLocator is the application the launcher serves when none is given.
const DefaultLocator = "main:app"

var presets = map[string]func() *Recipe{
	PresetPythonASGI: pythonASGI,
	PresetGoService:  goService,
}

// Preset returns a fresh copy of the named recipe.
func Preset(name string) (*Recipe, error) {
	fn, ok := presets[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownPreset, name)
	}
	return fn(), nil
}

// Presets lists the registered preset names in sorted order.
func Presets() []string {
	names := make([]string, 0, len(presets))
	for name := range presets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func pythonASGI() *Recipe {
	return &Recipe{
		Name:               PresetPythonASGI,
		BaseImage:          "python:3.10-slim",
		WorkDir:            DefaultWorkDir,
		DependencyManifest: "requirements.txt",
		InstallCommand:     "pip install --no-cache-dir -r requirements.txt",
		AppModule:          "main.py",
		Port:               DefaultPort,
		Entrypoint: []string{
			"uvicorn", DefaultLocator,
			"--host", "0.0.0.0",
			"--port", strconv.Itoa(DefaultPort),
		},
	}
}

func goService() *Recipe {
	return &Recipe{
		Name:      PresetGoService,
		BaseImage: "alpine:3.20",
		Builder: &BuildStage{
			Image:   "golang:1.24-alpine",
			WorkDir: "/src",
			Steps: []string{
				"CGO_ENABLED=0 GOOS=linux go build -ldflags=\"-w -s\" -o /out/reqval ./cmd/api",
			},
			Artifacts: []Artifact{
				{From: "/out/reqval", To: "/usr/local/bin/reqval"},
			},
		},
		WorkDir:            DefaultWorkDir,
		DependencyManifest: "go.mod",
		InstallCommand:     "go mod download",
		AppModule:          "cmd/api/main.go",
		Port:               DefaultPort,
		Entrypoint: []string{
			"reqval", "serve",
			"--app", DefaultLocator,
			"--host", "0.0.0.0",
			"--port", strconv.Itoa(DefaultPort),
		},
		Labels: map[string]string{
			"org.opencontainers.image.title": "requirement-validator",
		},
	}
}
