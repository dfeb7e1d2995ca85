package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"maurerdist/pkg/distance"
	"maurerdist/pkg/volumeio"
)

// engineFlags are the command-line overrides for the transform section of the config
type engineFlags struct {
	background       uint32
	foreground       []uint
	fullyConnected   bool
	borderForeground bool
	labelEdges       bool
	insidePositive   bool
	squared          bool
	noSpacing        bool
	degenerate       string
	workers          int
	compress         bool
}

func (f *engineFlags) register(fs *pflag.FlagSet) {
	fs.Uint32Var(&f.background, "background", 0, "background label (all other labels are inside)")
	fs.UintSliceVar(&f.foreground, "foreground", nil, "labels treated as inside (overrides --background)")
	fs.BoolVar(&f.fullyConnected, "fully-connected", false, "use 26-neighbour boundary detection")
	fs.BoolVar(&f.borderForeground, "border-foreground", false, "do not treat voxels outside the volume as background")
	fs.BoolVar(&f.labelEdges, "label-edges", false, "also seed boundaries between different foreground labels")
	fs.BoolVar(&f.insidePositive, "inside-positive", false, "report positive distances inside the foreground")
	fs.BoolVar(&f.squared, "squared", false, "write signed squared distances")
	fs.BoolVar(&f.noSpacing, "no-spacing", false, "ignore voxel spacing and measure in voxels")
	fs.StringVar(&f.degenerate, "degenerate", "", "handling of volumes without a boundary: fill or error")
	fs.IntVar(&f.workers, "workers", 0, "goroutines per transform pass (default: config or all CPUs)")
}

// options merges the loaded config with any flags set on cmd
func (c *CLI) options(cmd *cobra.Command, f *engineFlags) (distance.Options, error) {
	opts, err := c.cfg.Options()
	if err != nil {
		return opts, err
	}

	changed := cmd.Flags().Changed
	if changed("background") {
		opts.BackgroundLabel = f.background
	}
	if changed("foreground") {
		opts.ForegroundLabels = make([]uint32, len(f.foreground))
		for i, l := range f.foreground {
			opts.ForegroundLabels[i] = uint32(l)
		}
	}
	if changed("fully-connected") {
		opts.FullyConnected = f.fullyConnected
	}
	if changed("border-foreground") {
		opts.BorderIsBackground = !f.borderForeground
	}
	if changed("label-edges") {
		opts.LabelEdges = f.labelEdges
	}
	if changed("inside-positive") {
		opts.InsideIsPositive = f.insidePositive
	}
	if changed("squared") {
		opts.SquaredDistance = f.squared
	}
	if changed("no-spacing") {
		opts.UseImageSpacing = !f.noSpacing
	}
	if changed("degenerate") {
		policy, err := distance.ParseDegeneratePolicy(f.degenerate)
		if err != nil {
			return opts, err
		}
		opts.Degenerate = policy
	}
	if changed("workers") {
		opts.Workers = f.workers
	}
	return opts, nil
}

// bindTransform turns cmd into the read/transform/write command
func (c *CLI) bindTransform(cmd *cobra.Command) {
	var input, output string
	var flags engineFlags

	cmd.Flags().StringVarP(&input, "input", "i", "", "input label volume (.mha or .mhd)")
	cmd.Flags().StringVarP(&output, "output", "o", "", "output distance volume (.mha or .mhd)")
	cmd.Flags().BoolVar(&flags.compress, "compress", false, "zlib-compress the output voxel data")
	flags.register(cmd.Flags())

	_ = cmd.MarkFlagRequired("input")
	_ = cmd.MarkFlagRequired("output")

	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		opts, err := c.options(cmd, &flags)
		if err != nil {
			return err
		}
		compress := c.cfg.Output.Compress
		if cmd.Flags().Changed("compress") {
			compress = flags.compress
		}
		return c.runTransform(cmd.Context(), input, output, opts, compress)
	}
}

func (c *CLI) newRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Compute the signed distance map of a label volume",
		Example: `  maurerdist run -i labels.mha -o distance.mha
  maurerdist run -i seg.mhd -o dist.mhd --foreground 3 --fully-connected`,
		Args: cobra.NoArgs,
	}
	c.bindTransform(cmd)
	return cmd
}

// runTransform reads input, computes the distance map and writes output.
// The elapsed transform time is printed to stdout in milliseconds.
func (c *CLI) runTransform(ctx context.Context, input, output string, opts distance.Options, compress bool) error {
	logger := loggerFromContext(ctx)

	sw := newStopwatch(logger)
	vol, err := volumeio.ReadLabels(input)
	if err != nil {
		return err
	}
	sw.lap("Read label volume",
		"path", input,
		"size", fmt.Sprintf("%dx%dx%d", vol.Size[0], vol.Size[1], vol.Size[2]),
		"spacing", fmt.Sprintf("%g,%g,%g", vol.Spacing[0], vol.Spacing[1], vol.Spacing[2]))

	logger.Debug("Transform options",
		"background", opts.BackgroundLabel,
		"foreground", opts.ForegroundLabels,
		"fullyConnected", opts.FullyConnected,
		"insideIsPositive", opts.InsideIsPositive,
		"squared", opts.SquaredDistance,
		"workers", opts.Workers)

	res, err := distance.Transform(ctx, vol, opts)
	if err != nil {
		return fmt.Errorf("distance transform of %s: %w", input, err)
	}

	sw.lap("Computed distance map", "seeds", res.Seeds)
	fmt.Fprintf(c.stdout, "Time (ms):%d\n", res.Elapsed.Milliseconds())

	if res.Degenerate {
		logger.Warn("Volume has no boundary, wrote sentinel distances", "sentinel", distance.Sentinel)
	}
	s := distance.Summarize(res.Volume)
	logger.Debug("Distance summary",
		"min", s.Min, "max", s.Max,
		"mean", s.Mean, "stddev", s.StdDev,
		"inside", s.Negative, "outside", s.Positive)

	if err := volumeio.WriteDistance(output, res.Volume, volumeio.WriteOptions{Compress: compress}); err != nil {
		return err
	}
	sw.lap("Wrote distance volume", "path", output)
	return nil
}
