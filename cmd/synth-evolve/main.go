package main

import (
	"errors"
	"fmt"
	"os"
	"runtime/debug"

	"github.com/spf13/cobra"

	"github.com/lixenwraith/synth-evolve/config"
	"github.com/lixenwraith/synth-evolve/search"
)

// globalFlags are shared by every subcommand
type globalFlags struct {
	configPath string
	debug      bool
	logDir     string
}

func newRootCmd() *cobra.Command {
	flags := &globalFlags{}

	root := &cobra.Command{
		Use:   "synth-evolve",
		Short: "Interactive evolutionary search for synthesizer presets",
		Long: `synth-evolve breeds synthesizer patches and learns which ones you like.
Proposals are auditioned one at a time; like/dislike feedback trains a
preference model that steers the search.`,
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVarP(&flags.configPath, "config", "c", "", "config file (default ./"+config.DefaultFileName+")")
	root.PersistentFlags().BoolVar(&flags.debug, "debug", false, "write JSON debug logs")
	root.PersistentFlags().StringVar(&flags.logDir, "log-dir", "logs", "directory for debug logs")

	root.AddCommand(
		newRunCmd(flags),
		newBootstrapCmd(flags),
		newRenderCmd(flags),
		newConfigCmd(flags),
	)
	return root
}

func main() {
	// Terminal state is restored by the host; a crash still needs a readable trace
	defer func() {
		if r := recover(); r != nil {
			fmt.Fprintf(os.Stderr, "\nsynth-evolve crashed: %v\nStack Trace:\n%s\n", r, debug.Stack())
			os.Exit(1)
		}
	}()

	if err := newRootCmd().Execute(); err != nil {
		if errors.Is(err, search.ErrStopTimeout) {
			fmt.Fprintln(os.Stderr, "fatal: worker did not shut down")
		}
		os.Exit(1)
	}
}
