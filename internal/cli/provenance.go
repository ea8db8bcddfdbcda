package cli

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/enginecrane/enginecrane/internal/datafolder"
	"github.com/enginecrane/enginecrane/internal/provenance"
)

// NewProvenanceCommand creates the provenance command.
func NewProvenanceCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:          "provenance <car-dir>",
		Short:        "Show which donor a car's engine came from",
		Args:         cobra.ExactArgs(1),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			gw, err := openCarData(args[0])
			if err != nil {
				return err
			}
			desc, err := provenance.Read(gw)
			if errors.Is(err, provenance.ErrUnsupportedVersion) {
				fmt.Fprintf(cmd.ErrOrStderr(), "warning: descriptor version %d is newer than this tool\n", desc.Version)
			} else if err != nil {
				return err
			}
			b, err := desc.Marshal()
			if err != nil {
				return err
			}
			cmd.OutOrStdout().Write(b)
			return nil
		},
	}
}

// openCarData mirrors the transplant engine's resolution: an unpacked data
// directory wins over a packed data.acd.
func openCarData(carDir string) (datafolder.Gateway, error) {
	dataDir := filepath.Join(carDir, "data")
	if fi, err := os.Stat(dataDir); err == nil && fi.IsDir() {
		return datafolder.NewDir(dataDir), nil
	}
	return datafolder.OpenAcd(filepath.Join(carDir, "data.acd"))
}
