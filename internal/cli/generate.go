package cli

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/hlsgen/internal/backend"
	"github.com/roach88/hlsgen/internal/diag"
	"github.com/roach88/hlsgen/internal/manifest"
	"github.com/roach88/hlsgen/internal/store"
)

// GenerateOptions holds flags for the generate command.
type GenerateOptions struct {
	*RootOptions
	Backend   string // overrides the manifest backend
	Output    string // defines header path
	ConfigOut string // resolved manifest YAML path
	Database  string // run ledger path

	// IDGenerator overrides run ids (for testing). Nil means UUIDv7.
	IDGenerator store.IDGenerator
}

// GenerateResult is the JSON payload of a successful generate.
type GenerateResult struct {
	Model        string   `json:"model"`
	Backend      string   `json:"backend"`
	Family       string   `json:"family"`
	ManifestHash string   `json:"manifest_hash"`
	Types        []string `json:"types"`
	Defines      string   `json:"defines"`
	Declarations []string `json:"declarations"`
	Output       string   `json:"output,omitempty"`
	ConfigOut    string   `json:"config_out,omitempty"`
	RunID        string   `json:"run_id,omitempty"`
	Seq          int64    `json:"seq,omitempty"`
}

// NewGenerateCommand creates the generate command.
func NewGenerateCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &GenerateOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "generate <manifest>",
		Short: "Lower a model manifest to HLS type definitions",
		Long: `Load a model manifest (a CUE directory or file, or a YAML file), convert every
precision, type and variable for the target backend, and print the defines
header and the variable declarations.

Example:
  hlsgen generate model.yaml
  hlsgen generate --backend catapult --output defines.h ./model
  hlsgen generate --db runs.db --config-out resolved.yaml model.yaml`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runGenerate(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVarP(&opts.Backend, "backend", "b", "", "target backend (default: the manifest backend)")
	cmd.Flags().StringVarP(&opts.Output, "output", "o", "", "write the defines header to this file")
	cmd.Flags().StringVar(&opts.ConfigOut, "config-out", "", "write the resolved manifest as YAML to this file")
	cmd.Flags().StringVar(&opts.Database, "db", "", "record the run in this SQLite database")

	return cmd
}

func runGenerate(opts *GenerateOptions, path string, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}
	logger := newLogger(opts.RootOptions, cmd.ErrOrStderr())

	m, errs := manifest.Load(path)
	if len(errs) > 0 {
		return outputLoadErrors(formatter, path, errs)
	}
	formatter.VerboseLog("Loaded %s manifest %s", m.Format, m.Path)

	hash, err := m.Hash()
	if err != nil {
		return outputCommandError(formatter, manifest.ErrCodeGeneric, err)
	}

	gen, err := generate(m, opts.Backend, logger)
	if err != nil {
		code := errorCode(err)
		_ = formatter.Error(code, err.Error(), nil)
		if backend.CodeOf(err) == backend.ErrCodeUnknownBackend {
			return WrapExitError(ExitCommandError, code, err)
		}
		return WrapExitError(ExitFailure, code, err)
	}

	result := &GenerateResult{
		Model:        gen.Model.Name,
		Backend:      gen.Backend.Name,
		Family:       gen.Backend.Family,
		ManifestHash: hash,
		Types:        make([]string, len(gen.Types)),
		Defines:      gen.Defines,
		Declarations: gen.Declarations,
		Output:       opts.Output,
		ConfigOut:    opts.ConfigOut,
	}
	for i, t := range gen.Types {
		result.Types[i] = t.TypeName()
	}

	if opts.Output != "" {
		if err := os.WriteFile(opts.Output, []byte(gen.Defines), 0644); err != nil {
			return outputCommandError(formatter, manifest.ErrCodeWriteFailed, fmt.Errorf("writing defines: %w", err))
		}
		formatter.VerboseLog("Wrote defines to %s", opts.Output)
	}

	if opts.ConfigOut != "" {
		if err := manifest.WriteYAMLFile(opts.ConfigOut, m); err != nil {
			return outputCommandError(formatter, manifest.ErrCodeWriteFailed, fmt.Errorf("writing config: %w", err))
		}
		formatter.VerboseLog("Wrote resolved manifest to %s", opts.ConfigOut)
	}

	if opts.Database != "" {
		run, err := recordRun(cmd.Context(), opts, hash, gen)
		if err != nil {
			return outputCommandError(formatter, ErrCodeDatabase, err)
		}
		result.RunID = run.ID
		result.Seq = run.Seq
		formatter.VerboseLog("Recorded run %s (seq %d)", run.ID, run.Seq)
	}

	return outputGenerateSuccess(formatter, result, gen.Warnings)
}

func recordRun(ctx context.Context, opts *GenerateOptions, hash string, gen *Generation) (store.Run, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	var storeOpts []store.Option
	if opts.IDGenerator != nil {
		storeOpts = append(storeOpts, store.WithIDGenerator(opts.IDGenerator))
	}
	st, err := store.Open(opts.Database, storeOpts...)
	if err != nil {
		return store.Run{}, err
	}
	defer st.Close()

	types := make([]store.TypeRecord, len(gen.Types))
	for i, t := range gen.Types {
		types[i] = store.TypeRecord{Name: t.TypeName(), Kind: t.Kind().String()}
	}
	return st.RecordRun(ctx, store.Run{
		ManifestHash: hash,
		Model:        gen.Model.Name,
		Backend:      gen.Backend.Name,
		IOType:       string(gen.Model.IOType),
		Defines:      gen.Defines,
		Declarations: gen.Declarations,
		Warnings:     len(gen.Warnings),
		Types:        types,
	})
}

func outputGenerateSuccess(formatter *OutputFormatter, result *GenerateResult, warnings []diag.Diagnostic) error {
	if formatter.Format == "json" {
		return formatter.SuccessWithWarnings(result, warnings)
	}

	w := formatter.Writer
	fmt.Fprintf(w, "✓ Generated %s for %s (%d type(s), %d warning(s))\n",
		result.Model, result.Backend, len(result.Types), len(warnings))
	if result.RunID != "" {
		fmt.Fprintf(w, "  run %s (seq %d)\n", result.RunID, result.Seq)
	}
	if result.Output != "" {
		fmt.Fprintf(w, "  defines written to %s\n", result.Output)
		return nil
	}

	fmt.Fprintln(w)
	fmt.Fprint(w, result.Defines)
	fmt.Fprintln(w)
	fmt.Fprintln(w, strings.Join(result.Declarations, "\n"))
	return nil
}

// outputCommandError reports err under code and returns exit code 2.
func outputCommandError(formatter *OutputFormatter, code string, err error) error {
	_ = formatter.Error(code, err.Error(), nil)
	return WrapExitError(ExitCommandError, code, err)
}
