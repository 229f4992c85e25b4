package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ahdg6/TypeWriter/internal/graph"
	"github.com/ahdg6/TypeWriter/internal/loader"
)

// ValidateOptions holds flags for the validate command.
type ValidateOptions struct {
	*RootOptions
	Strict bool // treat warnings as failures
}

// ValidationResult is the validate command's payload.
type ValidationResult struct {
	Valid    bool          `json:"valid"`
	Files    int           `json:"files"`
	Entries  int           `json:"entries"`
	Hash     string        `json:"hash,omitempty"`
	Errors   []graph.Issue `json:"errors,omitempty"`
	Warnings []graph.Issue `json:"warnings,omitempty"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ValidateOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "validate <entries-dir>",
		Short: "Check entry files and the entry graph",
		Long: `Load every YAML and CUE entry file under a directory and check the
resulting entry graph.

Errors (missing or duplicate ids, malformed entries) fail validation.
Warnings (dangling trigger references, forwarding cycles, unknown system
triggers) are reported; with --strict they fail validation too.

Examples:
  typewriter validate ./entries
  typewriter validate ./entries --strict --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(opts, args[0], cmd)
		},
	}

	cmd.Flags().BoolVar(&opts.Strict, "strict", false, "fail on warnings")

	return cmd
}

func runValidate(opts *ValidateOptions, dir string, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	loaded, err := loader.LoadDir(dir)
	if err != nil {
		code, msg := loadErrorCode(err)
		_ = formatter.Error(code, msg, nil)
		return NewExitError(ExitCommandError, fmt.Sprintf("%s: %s", code, msg))
	}
	for _, f := range loaded.Files {
		formatter.VerboseLog("loaded %s", f)
	}

	result := ValidationResult{Files: len(loaded.Files), Entries: len(loaded.Entries)}
	g, issues, buildErr := graph.New(loaded.Entries)
	result.Errors = graph.Errors(issues)
	result.Warnings = graph.Warnings(issues)
	if buildErr == nil {
		result.Hash = g.Hash()
	} else if len(result.Errors) == 0 {
		return WrapExitError(ExitCommandError, "failed to build entry graph", buildErr)
	}
	result.Valid = len(result.Errors) == 0 && (!opts.Strict || len(result.Warnings) == 0)

	if formatter.IsJSON() {
		resp := CLIResponse{Status: "ok", Data: result}
		if !result.Valid {
			resp.Status = "error"
			first := firstIssue(result)
			resp.Error = &CLIError{Code: first.Code, Message: first.Error()}
		}
		if err := formatter.Respond(resp); err != nil {
			return err
		}
	} else {
		outputValidateText(formatter, result)
	}

	if !result.Valid {
		return NewExitError(ExitFailure, fmt.Sprintf("validation failed with %d error(s) and %d warning(s)",
			len(result.Errors), len(result.Warnings)))
	}
	return nil
}

// loadErrorCode extracts the loader's error code, if any.
func loadErrorCode(err error) (string, string) {
	var loadErr *loader.LoadError
	if errors.As(err, &loadErr) {
		return loadErr.Code, loadErr.Error()
	}
	return loader.ErrCodeGeneric, err.Error()
}

func firstIssue(r ValidationResult) graph.Issue {
	if len(r.Errors) > 0 {
		return r.Errors[0]
	}
	return r.Warnings[0]
}

func outputValidateText(f *OutputFormatter, r ValidationResult) {
	w := f.Writer
	for _, i := range r.Errors {
		fmt.Fprintf(w, "error   %s\n", i.Error())
	}
	for _, i := range r.Warnings {
		fmt.Fprintf(w, "warning %s\n", i.Error())
	}
	if r.Valid {
		fmt.Fprintf(w, "✓ %d entries in %d file(s) valid (hash %s)\n", r.Entries, r.Files, shortHash(r.Hash))
		return
	}
	fmt.Fprintf(w, "✗ Validation failed: %d error(s), %d warning(s)\n", len(r.Errors), len(r.Warnings))
}

func shortHash(h string) string {
	if len(h) > 12 {
		return h[:12]
	}
	return h
}
