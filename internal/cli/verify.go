package cli

import (
	"fmt"
	"math"

	"github.com/spf13/cobra"

	"maurerdist/pkg/distance"
	"maurerdist/pkg/volumeio"
)

func (c *CLI) newVerifyCmd() *cobra.Command {
	var (
		input     string
		tolerance float64
		samples   int
		flags     engineFlags
	)

	cmd := &cobra.Command{
		Use:   "verify",
		Short: "Check the distance engine against an exact KD-tree reference",
		Long: `verify computes the distance map of a label volume and compares it voxel
by voxel with a nearest-seed search over a KD-tree of all boundary voxels.
Use --samples to check an evenly spaced subset on large volumes.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			opts, err := c.options(cmd, &flags)
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			logger := loggerFromContext(ctx)

			vol, err := volumeio.ReadLabels(input)
			if err != nil {
				return err
			}

			res, err := distance.Transform(ctx, vol, opts)
			if err != nil {
				return fmt.Errorf("distance transform of %s: %w", input, err)
			}

			sw := newStopwatch(logger)
			ref, err := distance.NewReference(ctx, vol, opts)
			if err != nil {
				return err
			}

			n := vol.Len()
			step := 1
			if samples > 0 && samples < n {
				step = n / samples
			}

			var worst float64
			checked := 0
			for i := 0; i < n; i += step {
				x, y, z := vol.Coords(i)
				d := math.Abs(float64(ref.At(x, y, z)) - float64(res.Volume.Data[i]))
				worst = math.Max(worst, d)
				checked++
			}
			sw.lap("Checked reference", "voxels", checked, "seeds", ref.Seeds())

			fmt.Fprintf(c.stdout, "Time (ms):%d\n", res.Elapsed.Milliseconds())
			fmt.Fprintf(c.stdout, "Max abs error: %g (%d voxels)\n", worst, checked)

			if worst > tolerance {
				return fmt.Errorf("max abs error %g exceeds tolerance %g", worst, tolerance)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&input, "input", "i", "", "input label volume (.mha or .mhd)")
	cmd.Flags().Float64Var(&tolerance, "tolerance", 1e-4, "maximum allowed absolute difference")
	cmd.Flags().IntVar(&samples, "samples", 0, "number of voxels to check (0: all)")
	flags.register(cmd.Flags())
	_ = cmd.MarkFlagRequired("input")

	return cmd
}
