package cli

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/enginecrane/enginecrane/internal/crate"
	"github.com/enginecrane/enginecrane/internal/logging"
	"github.com/enginecrane/enginecrane/internal/sandbox"
	"github.com/enginecrane/enginecrane/internal/transplant"
)

// TransplantOptions holds the transplant command's flags.
type TransplantOptions struct {
	Kind      string
	Policy    string
	Headroom  float64
	Cap       int
	FromIndex bool
}

// NewTransplantCommand creates the transplant command.
func NewTransplantCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &TransplantOptions{}

	cmd := &cobra.Command{
		Use:   "transplant <donor> <car-dir>",
		Short: "Install a donor engine into a car",
		Long: `Install a donor engine into the car rooted at <car-dir>.

<donor> is a path to a direct export or a mod bundle, or, with
--from-index, the UUID of an engine the design sandbox has indexed.`,
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTransplant(rootOpts, opts, args[0], args[1], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Kind, "kind", "auto", "donor kind (bundle|export|auto)")
	cmd.Flags().StringVar(&opts.Policy, "policy", "", "curve resampling policy (adopt-donor|preserve-car)")
	cmd.Flags().Float64Var(&opts.Headroom, "clutch-headroom", 0, "clutch torque headroom multiplier")
	cmd.Flags().IntVar(&opts.Cap, "limiter-cap", 0, "absolute limiter safety cap in RPM")
	cmd.Flags().BoolVar(&opts.FromIndex, "from-index", false, "treat <donor> as a sandbox index UUID")

	return cmd
}

func runTransplant(rootOpts *RootOptions, opts *TransplantOptions, donorArg, carDir string, cmd *cobra.Command) error {
	log := rootOpts.Logger()

	donorPath := donorArg
	if opts.FromIndex {
		resolved, err := resolveFromIndex(rootOpts, donorArg)
		if err != nil {
			return err
		}
		donorPath = resolved
	}

	kind, err := donorKind(opts.Kind, donorPath)
	if err != nil {
		return err
	}

	topts := transplantOptions(opts)

	log.Info("Starting transplant",
		"donor", donorPath, "kind", string(kind), "car", carDir,
		"policy", string(topts.ResamplingPolicy))

	report, err := transplant.Transplant(donorPath, kind, carDir, topts)
	if err != nil {
		log.Error("Transplant failed", "error", err)
		return err
	}

	log.Info("Transplant committed",
		"donor_uuid", report.DonorUUID, "changes", len(report.Changes),
		"files", len(report.FilesWritten))
	printReport(cmd, report)
	return nil
}

// transplantOptions layers flag overrides over the configured defaults.
func transplantOptions(opts *TransplantOptions) transplant.Options {
	topts := transplant.DefaultOptions()
	topts.ResamplingPolicy = transplant.Policy(viper.GetString("transplant.resamplingPolicy"))
	topts.ClutchHeadroom = viper.GetFloat64("transplant.clutchHeadroom")
	topts.LimiterSafetyCap = viper.GetInt("transplant.limiterSafetyCap")

	if opts.Policy != "" {
		topts.ResamplingPolicy = transplant.Policy(opts.Policy)
	}
	if opts.Headroom != 0 {
		topts.ClutchHeadroom = opts.Headroom
	}
	if opts.Cap != 0 {
		topts.LimiterSafetyCap = opts.Cap
	}
	return topts
}

// donorKind resolves the --kind flag, sniffing by extension on auto.
func donorKind(flag, path string) (crate.DonorKind, error) {
	switch flag {
	case "bundle":
		return crate.KindBundle, nil
	case "export":
		return crate.KindExport, nil
	case "auto":
		if strings.EqualFold(filepath.Ext(path), ".zip") {
			return crate.KindBundle, nil
		}
		return crate.KindExport, nil
	}
	return "", fmt.Errorf("unknown donor kind %q: must be bundle, export or auto", flag)
}

func resolveFromIndex(rootOpts *RootOptions, uuid string) (string, error) {
	path := viper.GetString("sandbox.indexPath")
	if path == "" {
		return "", fmt.Errorf("--from-index requires sandbox.indexPath in the configuration")
	}
	ix, err := sandbox.Open(path, logging.NewComponentLogger("sandbox", viper.GetString("logLevel"), rootOpts.LogSink()))
	if err != nil {
		return "", err
	}
	defer ix.Close()
	return ix.Resolve(uuid)
}

func printReport(cmd *cobra.Command, report *transplant.Report) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "transplanted %s (%s)\n", report.DonorName, report.DonorUUID)
	for _, c := range report.Changes {
		old := c.Old
		if old == "" {
			old = "(unset)"
		}
		fmt.Fprintf(out, "  %s [%s] %s: %s -> %s\n", c.File, c.Section, c.Key, old, c.New)
	}
	fmt.Fprintf(out, "files committed: %s\n", strings.Join(report.FilesWritten, ", "))
}
