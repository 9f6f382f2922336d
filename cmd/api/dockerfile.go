package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/melih/requirement-validator/internal/core/recipe"
)

func newDockerfileCmd() *cobra.Command {
	var (
		preset     string
		contextDir string
	)
	cmd := &cobra.Command{
		Use:   "dockerfile",
		Short: "Print the Dockerfile rendered from a recipe preset",
		RunE: func(cmd *cobra.Command, _ []string) error {
			r, err := recipe.Preset(preset)
			if err != nil {
				return err
			}
			if contextDir != "" {
				if err := r.Preflight(contextDir); err != nil {
					return err
				}
			}
			return r.Render(cmd.OutOrStdout())
		},
	}
	cmd.Flags().StringVar(&preset, "preset", recipe.PresetGoService, fmt.Sprintf("recipe preset %v", recipe.Presets()))
	cmd.Flags().StringVar(&contextDir, "check", "", "also check that this build context satisfies the recipe")
	return cmd
}
