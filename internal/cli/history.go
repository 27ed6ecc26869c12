package cli

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/roach88/hlsgen/internal/store"
)

// HistoryOptions holds flags for the history command.
type HistoryOptions struct {
	*RootOptions
	Database string
	Run      string // show one run in full
	Manifest string // only runs of this manifest hash
}

// RunSummary is one line of history output.
type RunSummary struct {
	ID           string `json:"id"`
	Seq          int64  `json:"seq"`
	Model        string `json:"model"`
	Backend      string `json:"backend"`
	IOType       string `json:"io_type"`
	ManifestHash string `json:"manifest_hash"`
	Warnings     int    `json:"warnings"`
}

// RunDetail is a full recorded run.
type RunDetail struct {
	RunSummary
	Types        []store.TypeRecord `json:"types"`
	Defines      string             `json:"defines"`
	Declarations []string           `json:"declarations"`
}

// NewHistoryCommand creates the history command.
func NewHistoryCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &HistoryOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List generation runs recorded with generate --db",
		Long: `List the generation runs recorded in a run database, oldest first.

Example:
  hlsgen history --db runs.db
  hlsgen history --db runs.db --run 01890a5d-ac96-774b-bcce-b302099a8057`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runHistory(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (required)")
	cmd.Flags().StringVar(&opts.Run, "run", "", "show one run with its defines and declarations")
	cmd.Flags().StringVar(&opts.Manifest, "manifest", "", "only list runs of this manifest hash")
	_ = cmd.MarkFlagRequired("db")

	return cmd
}

func runHistory(opts *HistoryOptions, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	// Open would create an empty database; history only reads existing ones.
	if _, err := os.Stat(opts.Database); err != nil {
		return outputCommandError(formatter, ErrCodeDatabase, fmt.Errorf("database not found: %s", opts.Database))
	}

	st, err := store.Open(opts.Database)
	if err != nil {
		return outputCommandError(formatter, ErrCodeDatabase, err)
	}
	defer st.Close()

	ctx := cmd.Context()
	if opts.Run != "" {
		run, err := st.GetRun(ctx, opts.Run)
		if errors.Is(err, store.ErrRunNotFound) {
			return outputCommandError(formatter, ErrCodeRunMissing, err)
		}
		if err != nil {
			return outputCommandError(formatter, ErrCodeDatabase, err)
		}
		return outputRunDetail(formatter, run)
	}

	var runs []store.Run
	if opts.Manifest != "" {
		runs, err = st.RunsForManifest(ctx, opts.Manifest)
	} else {
		runs, err = st.ListRuns(ctx)
	}
	if err != nil {
		return outputCommandError(formatter, ErrCodeDatabase, err)
	}
	return outputRunList(formatter, runs)
}

func summarize(r store.Run) RunSummary {
	return RunSummary{
		ID:           r.ID,
		Seq:          r.Seq,
		Model:        r.Model,
		Backend:      r.Backend,
		IOType:       r.IOType,
		ManifestHash: r.ManifestHash,
		Warnings:     r.Warnings,
	}
}

func outputRunList(formatter *OutputFormatter, runs []store.Run) error {
	summaries := make([]RunSummary, len(runs))
	for i, r := range runs {
		summaries[i] = summarize(r)
	}
	if formatter.Format == "json" {
		return formatter.Success(summaries)
	}

	if len(runs) == 0 {
		fmt.Fprintln(formatter.Writer, "No runs recorded")
		return nil
	}
	tw := tabwriter.NewWriter(formatter.Writer, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "SEQ\tID\tMODEL\tBACKEND\tWARNINGS\tMANIFEST")
	for _, s := range summaries {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%d\t%s\n", s.Seq, s.ID, s.Model, s.Backend, s.Warnings, shortHash(s.ManifestHash))
	}
	return tw.Flush()
}

func outputRunDetail(formatter *OutputFormatter, r store.Run) error {
	detail := RunDetail{
		RunSummary:   summarize(r),
		Types:        r.Types,
		Defines:      r.Defines,
		Declarations: r.Declarations,
	}
	if formatter.Format == "json" {
		return formatter.Success(detail)
	}

	w := formatter.Writer
	fmt.Fprintf(w, "Run %s (seq %d)\n", r.ID, r.Seq)
	fmt.Fprintf(w, "  model:    %s\n", r.Model)
	fmt.Fprintf(w, "  backend:  %s\n", r.Backend)
	fmt.Fprintf(w, "  io type:  %s\n", r.IOType)
	fmt.Fprintf(w, "  manifest: %s\n", r.ManifestHash)
	fmt.Fprintf(w, "  warnings: %d\n", r.Warnings)
	if len(r.Types) > 0 {
		names := make([]string, len(r.Types))
		for i, t := range r.Types {
			names[i] = fmt.Sprintf("%s (%s)", t.Name, t.Kind)
		}
		fmt.Fprintf(w, "  types:    %s\n", strings.Join(names, ", "))
	}
	fmt.Fprintln(w)
	fmt.Fprint(w, r.Defines)
	fmt.Fprintln(w)
	fmt.Fprintln(w, strings.Join(r.Declarations, "\n"))
	return nil
}

func shortHash(h string) string {
	if len(h) > 12 {
		return h[:12]
	}
	return h
}
