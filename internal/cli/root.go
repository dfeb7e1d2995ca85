// Package cli implements the maurerdist command-line interface.
//
// The root command reads a label volume, computes its signed distance map and
// writes the result, matching the classic "-i input -o output" invocation.
// Subcommands cover checking the engine against an exact reference, exporting
// slices of a distance map and writing a default configuration file.
//
// All commands support --verbose (-v) for debug-level logging and --config to
// load engine defaults from a YAML or TOML file. Flags override the file.
package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"maurerdist/pkg/config"
)

// CLI holds the output streams and the state shared by all commands
type CLI struct {
	stdout io.Writer
	stderr io.Writer

	verbose    bool
	configPath string
	cfg        *config.Config
}

// New creates a CLI writing results to stdout and diagnostics to stderr
func New(stdout, stderr io.Writer) *CLI {
	return &CLI{stdout: stdout, stderr: stderr, cfg: config.DefaultConfig()}
}

// RootCommand builds the command tree
func (c *CLI) RootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:   "maurerdist",
		Short: "Signed Euclidean distance map of a 3D label volume",
		Long: `maurerdist computes an exact signed Euclidean distance map over a 3D label
volume. Distances are in physical units, negative inside the foreground and
positive outside. Input and output are MetaImage files (.mha or .mhd).`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if c.configPath != "" {
				// LoadConfig treats a missing file as defaults; a named one must exist
				if _, err := os.Stat(c.configPath); err != nil {
					return fmt.Errorf("config file: %w", err)
				}
				cfg, err := config.LoadConfig(c.configPath)
				if err != nil {
					return err
				}
				c.cfg = cfg
			}

			logger := newLogger(c.stderr, c.verbose || c.cfg.Output.Verbose)
			cmd.SetContext(withLogger(cmd.Context(), logger))
			return nil
		},
	}
	root.SetOut(c.stdout)
	root.SetErr(c.stderr)

	root.PersistentFlags().BoolVarP(&c.verbose, "verbose", "v", false, "enable verbose logging")
	root.PersistentFlags().StringVarP(&c.configPath, "config", "c", "", "configuration file (.yaml or .toml)")

	c.bindTransform(root)

	root.AddCommand(c.newRunCmd())
	root.AddCommand(c.newVerifyCmd())
	root.AddCommand(c.newSlicesCmd())
	root.AddCommand(c.newConfigCmd())

	return root
}
