package main

import (
	"encoding/json"
	"errors"
	"strings"

	"github.com/spf13/cobra"

	"github.com/melih/requirement-validator/internal/adapters/nlp"
	"github.com/melih/requirement-validator/internal/core/validator"
)

var errInvalidRequirement = errors.New("requirement is not valid")

func newValidateCmd() *cobra.Command {
	var (
		functional bool
		noNLP      bool
		strict     bool
	)
	cmd := &cobra.Command{
		Use:   "validate [requirement text]",
		Short: "Validate one requirement and print the result as JSON",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			v := validator.New(nlp.NewTagger())
			if noNLP {
				v = validator.New(nil)
			}
			res := v.Validate(strings.Join(args, " "), functional)

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			if err := enc.Encode(res); err != nil {
				return err
			}
			if strict && !res.IsValid {
				return errInvalidRequirement
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&functional, "functional", true, "treat the requirement as functional")
	cmd.Flags().BoolVar(&noNLP, "no-nlp", false, "skip the grammatical specificity check")
	cmd.Flags().BoolVar(&strict, "strict", false, "exit non-zero when the requirement is invalid")
	return cmd
}
