package cli

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/roach88/hlsgen/internal/backend"
	"github.com/roach88/hlsgen/internal/manifest"
)

// ValidateOptions holds flags for the validate command.
type ValidateOptions struct {
	*RootOptions
	Backend string
	All     bool
}

// ValidationIssue is one problem found by validate.
type ValidationIssue struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Backend string `json:"backend,omitempty"`
	File    string `json:"file,omitempty"`
	Line    int    `json:"line,omitempty"`
	Column  int    `json:"column,omitempty"`
}

// ValidationResult holds validation results.
type ValidationResult struct {
	Valid    bool              `json:"valid"`
	Backends []string          `json:"backends,omitempty"`
	Warnings int               `json:"warnings"`
	Errors   []ValidationIssue `json:"errors,omitempty"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ValidateOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "validate <manifest>",
		Short: "Check that a manifest converts without writing anything",
		Long: `Load a model manifest and run the full conversion for the target backend,
or for every registered backend with --all. Every manifest and conversion
error is reported. Exits with code 2 if any error is found.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVarP(&opts.Backend, "backend", "b", "", "target backend (default: the manifest backend)")
	cmd.Flags().BoolVar(&opts.All, "all", false, "validate against every registered backend")

	return cmd
}

func runValidate(opts *ValidateOptions, path string, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}
	logger := newLogger(opts.RootOptions, cmd.ErrOrStderr())

	result := ValidationResult{}

	m, errs := manifest.Load(path)
	if len(errs) > 0 {
		for _, li := range toLoadIssues(errs) {
			result.Errors = append(result.Errors, ValidationIssue{
				Code: li.Code, Message: li.Message, File: li.File, Line: li.Line, Column: li.Column,
			})
		}
		return outputValidation(formatter, result)
	}

	targets := []string{opts.Backend}
	if opts.Backend == "" {
		targets = []string{m.Resolved.Backend}
	}
	if opts.All {
		targets = backend.Names()
	}

	for _, name := range targets {
		formatter.VerboseLog("Validating %s for %s", m.Resolved.Name, name)
		gen, err := generate(m, name, logger)
		if err != nil {
			result.Errors = append(result.Errors, ValidationIssue{
				Code:    errorCode(err),
				Message: err.Error(),
				Backend: name,
			})
			continue
		}
		result.Backends = append(result.Backends, gen.Backend.Name)
		result.Warnings += len(gen.Warnings)
	}

	return outputValidation(formatter, result)
}

func outputValidation(formatter *OutputFormatter, result ValidationResult) error {
	result.Valid = len(result.Errors) == 0

	if result.Valid {
		if formatter.Format == "json" {
			return formatter.Success(result)
		}
		fmt.Fprintf(formatter.Writer, "✓ Manifest valid for %v (%d warning(s))\n", result.Backends, result.Warnings)
		return nil
	}

	if formatter.Format == "json" {
		if err := writeValidationJSON(formatter.Writer, result); err != nil {
			return err
		}
	} else {
		fmt.Fprintln(formatter.Writer, "✗ Validation failed")
		fmt.Fprintln(formatter.Writer)
		for _, issue := range result.Errors {
			if issue.Line > 0 {
				fmt.Fprintf(formatter.Writer, "%s:%d:%d\n", issue.File, issue.Line, issue.Column)
			}
			if issue.Backend != "" {
				fmt.Fprintf(formatter.Writer, "  [%s] %s: %s\n\n", issue.Backend, issue.Code, issue.Message)
			} else {
				fmt.Fprintf(formatter.Writer, "  %s: %s\n\n", issue.Code, issue.Message)
			}
		}
	}

	return NewExitError(ExitCommandError, fmt.Sprintf("validation failed with %d error(s)", len(result.Errors)))
}

func writeValidationJSON(w io.Writer, result ValidationResult) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(CLIResponse{
		Status: "error",
		Data:   result,
		Error: &CLIError{
			Code:    result.Errors[0].Code,
			Message: result.Errors[0].Message,
		},
	})
}
