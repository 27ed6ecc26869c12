package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/hlsgen/internal/backend"
)

// BackendInfo describes one registered backend.
type BackendInfo struct {
	Name      string `json:"name"`
	Family    string `json:"family"`
	Stream    string `json:"stream"`
	Commented bool   `json:"commented_pragmas"`
}

// NewBackendsCommand creates the backends command.
func NewBackendsCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "backends",
		Short:         "List the registered backends",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			formatter := &OutputFormatter{
				Format:  rootOpts.Format,
				Writer:  cmd.OutOrStdout(),
				Verbose: rootOpts.Verbose,
			}

			var infos []BackendInfo
			for _, name := range backend.Names() {
				b, err := backend.Lookup(name, nil)
				if err != nil {
					return WrapExitError(ExitFailure, "backend registry", err)
				}
				infos = append(infos, BackendInfo{
					Name:      b.Name,
					Family:    b.Family,
					Stream:    b.Stream.Template,
					Commented: b.Commented,
				})
			}

			if formatter.Format == "json" {
				return formatter.Success(infos)
			}
			for _, info := range infos {
				fmt.Fprintf(formatter.Writer, "%-10s %s  %s\n", info.Name, info.Family, info.Stream)
			}
			return nil
		},
	}
}
