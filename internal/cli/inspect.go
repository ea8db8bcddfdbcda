package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/enginecrane/enginecrane/internal/crate"
	"github.com/enginecrane/enginecrane/internal/donor"
)

// NewInspectCommand creates the inspect command.
func NewInspectCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &TransplantOptions{}

	cmd := &cobra.Command{
		Use:          "inspect <donor>",
		Short:        "Decode a donor and print the crate-engine record",
		Args:         cobra.ExactArgs(1),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			kind, err := donorKind(opts.Kind, args[0])
			if err != nil {
				return err
			}
			eng, err := donor.Decode(args[0], kind)
			if err != nil {
				return err
			}
			printEngine(cmd, eng)
			return nil
		},
	}

	cmd.Flags().StringVar(&opts.Kind, "kind", "auto", "donor kind (bundle|export|auto)")

	return cmd
}

func printEngine(cmd *cobra.Command, eng *crate.Engine) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "%s (%s)\n", eng.Name, eng.UUID)
	fmt.Fprintf(out, "  family %s v%d, %s source\n", eng.Family, eng.Version, eng.Kind)
	fmt.Fprintf(out, "  %.0f cc, %d cylinders, %.1f:1 compression, %s\n",
		eng.DisplacementCC, eng.Cylinders, eng.CompressionRatio, eng.Aspiration)
	if p := eng.AspirationParams; p != nil {
		fmt.Fprintf(out, "  boost %.2f bar, wastegate %.2f bar at %d RPM\n",
			p.MaxBoostBar, p.WastegateBar, p.ReferenceRPM)
	}

	peakT := eng.PeakTorque()
	peakP := eng.Power.Peak()
	fmt.Fprintf(out, "  %.0f Nm at %d RPM, %.1f kW at %d RPM\n", peakT.Y, peakT.X, peakP.Y, peakP.X)
	fmt.Fprintf(out, "  idle %d, limiter %d RPM\n", eng.IdleRPM, eng.LimiterRPM)
	fmt.Fprintf(out, "  torque curve %d samples, power curve %d samples\n",
		eng.Torque.Len(), eng.Power.Len())
	if eng.Thermal != nil {
		fmt.Fprintf(out, "  coolant %.1f l, oil %.1f l\n",
			eng.Thermal.CoolantCapacityL, eng.Thermal.OilCapacityL)
	}
	fmt.Fprintf(out, "  fuel %s, consumption %.4f, dry mass %.0f kg\n",
		eng.Fuel.Kind, eng.Fuel.ConsumptionCoeff, eng.DryMassKG)
}
