package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/lixenwraith/synth-evolve/config"
)

type configFlags struct {
	defaults bool
	write    string
}

func newConfigCmd(global *globalFlags) *cobra.Command {
	flags := &configFlags{}
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Print the effective configuration as TOML",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runConfig(cmd.OutOrStdout(), global, flags)
		},
	}
	cmd.Flags().BoolVar(&flags.defaults, "defaults", false, "print built-in defaults instead of the loaded file")
	cmd.Flags().StringVarP(&flags.write, "write", "w", "", "also write the configuration to this path")
	return cmd
}

func runConfig(out io.Writer, global *globalFlags, flags *configFlags) error {
	cfg := config.Default()
	var fixes []string
	if !flags.defaults {
		path := global.configPath
		if path == "" {
			path = config.DefaultFileName
		}
		var err error
		if cfg, fixes, err = config.Load(path); err != nil {
			return err
		}
	}

	data, err := config.Marshal(cfg)
	if err != nil {
		return err
	}
	for _, f := range fixes {
		fmt.Fprintf(out, "# corrected %s\n", f)
	}
	fmt.Fprintf(out, "# tag: %s\n", cfg.Tag())
	if _, err := out.Write(data); err != nil {
		return err
	}

	if flags.write != "" {
		return config.Save(flags.write, cfg)
	}
	return nil
}
