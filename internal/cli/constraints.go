package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Shivanand-hulikatti/training-registration/internal/capacity"
)

// ConstraintsResult is the outcome of checking one constraint text.
type ConstraintsResult struct {
	Input       string `json:"input"`
	Valid       bool   `json:"valid"`
	Normalized  string `json:"normalized,omitempty"`
	Description string `json:"description,omitempty"`
	Error       string `json:"error,omitempty"`
}

// NewConstraintsCommand creates the constraints command group.
func NewConstraintsCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "constraints",
		Short: "Inspect capacity constraint text",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "check <text>...",
		Short: "Validate constraint text such as max_18,min_12,even",
		Long: `Validate one or more constraint texts as they would be stored on a session.

Exits non-zero if any text does not decode.`,
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runConstraints(rootOpts, cmd, args)
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:           "describe <text>",
		Short:         "Print the readable form of a constraint text",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			res := checkConstraints(args[0])
			if !res.Valid {
				return fmt.Errorf("%s", res.Error)
			}
			if rootOpts.Format == "json" {
				return json.NewEncoder(cmd.OutOrStdout()).Encode(res)
			}
			fmt.Fprintln(cmd.OutOrStdout(), res.Description)
			return nil
		},
	})

	return cmd
}

func runConstraints(opts *RootOptions, cmd *cobra.Command, texts []string) error {
	results := make([]ConstraintsResult, 0, len(texts))
	failed := 0
	for _, text := range texts {
		results = append(results, checkConstraints(text))
		if !results[len(results)-1].Valid {
			failed++
		}
	}

	out := cmd.OutOrStdout()
	if opts.Format == "json" {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		if err := enc.Encode(results); err != nil {
			return err
		}
	} else {
		for _, r := range results {
			if r.Valid {
				fmt.Fprintf(out, "ok    %s\n      %s\n", r.Normalized, r.Description)
			} else {
				fmt.Fprintf(out, "error %s\n      %s\n", r.Input, r.Error)
			}
		}
	}

	if failed > 0 {
		return fmt.Errorf("%d of %d constraint texts are invalid", failed, len(texts))
	}
	return nil
}

func checkConstraints(text string) ConstraintsResult {
	res := ConstraintsResult{Input: text}
	spec, err := capacity.Decode(text)
	if err != nil {
		res.Error = err.Error()
		return res
	}
	normalized, err := capacity.Encode(spec)
	if err != nil {
		res.Error = err.Error()
		return res
	}
	res.Valid = true
	res.Normalized = normalized
	res.Description = capacity.Describe(spec)
	return res
}
