package cli

import (
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"maurerdist/pkg/visualization"
	"maurerdist/pkg/volumeio"
)

func (c *CLI) newSlicesCmd() *cobra.Command {
	var (
		input     string
		outputDir string
		axis      string
		format    string
		rangeMM   float64
	)

	cmd := &cobra.Command{
		Use:   "slices",
		Short: "Export cross-sections of a distance map as images",
		Example: `  maurerdist slices -i distance.mha -o slices --axis all --format png
  maurerdist slices -i distance.mha -o slices --axis z --range 10`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := loggerFromContext(cmd.Context())

			vol, err := volumeio.ReadDistance(input)
			if err != nil {
				return err
			}

			viewer := visualization.NewViewer(vol, rangeMM)

			axes := []string{axis}
			if strings.EqualFold(axis, "all") {
				axes = []string{"x", "y", "z"}
			}

			sw := newStopwatch(logger)
			for _, a := range axes {
				dir := filepath.Join(outputDir, strings.ToLower(a))
				n, err := viewer.SaveSliceSequence(a, dir, format)
				if err != nil {
					return err
				}
				sw.lap("Saved slices", "axis", a, "count", n, "dir", dir)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&input, "input", "i", "", "distance volume (.mha or .mhd)")
	cmd.Flags().StringVarP(&outputDir, "output", "o", "slices", "output directory")
	cmd.Flags().StringVar(&axis, "axis", "z", "slice axis: x, y, z or all")
	cmd.Flags().StringVar(&format, "format", "png", "image format: jpg, png or tif")
	cmd.Flags().Float64Var(&rangeMM, "range", 0, "distance at full colour saturation (0: largest magnitude)")
	_ = cmd.MarkFlagRequired("input")

	return cmd
}
