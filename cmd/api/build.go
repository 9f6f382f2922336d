package main

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/docker/go-connections/nat"
	"github.com/spf13/cobra"

	"github.com/melih/requirement-validator/internal/adapters/builder"
	"github.com/melih/requirement-validator/internal/adapters/docker"
	"github.com/melih/requirement-validator/internal/core/ports"
	"github.com/melih/requirement-validator/internal/core/recipe"
	"github.com/melih/requirement-validator/internal/logging"
)

func newBuildCmd() *cobra.Command {
	var (
		contextDir string
		repoURL    string
		tag        string
		preset     string
		pull       bool
		verify     bool
	)
	cmd := &cobra.Command{
		Use:   "build",
		Short: "Build a container image from a local context or a git repository",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("tag") {
				cfg.BuildTag = tag
			}
			if cmd.Flags().Changed("preset") {
				cfg.BuildPreset = preset
			}
			if contextDir == "" && repoURL == "" {
				contextDir = "."
			}

			cleanup, err := logging.Init(cfg.LogFile, cfg.LogLevel)
			if err != nil {
				return fmt.Errorf("failed to initialize logging: %w", err)
			}
			defer cleanup()

			r, err := recipe.Preset(cfg.BuildPreset)
			if err != nil {
				return err
			}

			dockerAdapter, err := docker.NewAdapter()
			if err != nil {
				return err
			}
			defer dockerAdapter.Close()

			b := builder.NewBuilderAdapter(dockerAdapter, *logging.Get())
			img, err := b.BuildImage(cmd.Context(), ports.BuildRequest{
				ContextDir: contextDir,
				RepoURL:    repoURL,
				Tag:        cfg.BuildTag,
				Recipe:     r,
				Pull:       pull,
			})
			if err != nil {
				return err
			}
			if verify {
				if err := builder.VerifyImage(img, r); err != nil {
					return err
				}
			}

			if smoke {
				port := nat.Port(fmt.Sprintf("%d/tcp", r.Port))
				res, err := dockerAdapter.SmokeRun(cmd.Context(), img.ID, port, smokeWait)
				if err != nil {
					return fmt.Errorf("smoke run failed: %w", err)
				}
				logging.Get().Info().
					Str("image", img.ID).
					Str("addr", res.HostAddr).
					Dur("elapsed", res.Elapsed).
					Msg("image serves on its exposed port")
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(img)
		},
	}
	cmd.Flags().StringVar(&contextDir, "context", "", "build context directory (default \".\")")
	cmd.Flags().StringVar(&repoURL, "repo", "", "git repository URL to clone and build")
	cmd.Flags().StringVar(&tag, "tag", "", "image tag")
	cmd.Flags().StringVar(&preset, "preset", "", fmt.Sprintf("recipe preset %v", recipe.Presets()))
	cmd.Flags().BoolVar(&pull, "pull", false, "always pull the base image")
	cmd.Flags().BoolVar(&verify, "verify", true, "check workdir, port and command of the built image")
	cmd.Flags().BoolVar(&smoke, "smoke", false, "run the built image and wait for its port to answer HTTP")
	cmd.Flags().DurationVar(&smokeWait, "smoke-timeout", 60*time.Second, "how long --smoke waits for the port")
	cmd.MarkFlagsMutuallyExclusive("context", "repo")
	return cmd
}
