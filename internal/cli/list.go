package cli

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/enginecrane/enginecrane/internal/logging"
	"github.com/enginecrane/enginecrane/internal/sandbox"
)

// NewListCommand creates the list command over the sandbox engine index.
func NewListCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:          "list",
		Short:        "List engines the design sandbox has exported",
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			path := viper.GetString("sandbox.indexPath")
			if path == "" {
				return fmt.Errorf("list requires sandbox.indexPath in the configuration")
			}
			ix, err := sandbox.Open(path, logging.NewComponentLogger("sandbox", viper.GetString("logLevel"), rootOpts.LogSink()))
			if err != nil {
				return err
			}
			defer ix.Close()

			rows, err := ix.List()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			for _, row := range rows {
				fmt.Fprintf(out, "%s  %-24s %s v%d  %s\n",
					row.UUID, row.Name, row.Family, row.Version,
					row.ExportedAt.Format("2006-01-02"))
			}
			return nil
		},
	}
}
