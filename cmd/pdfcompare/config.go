package main

import (
	"fmt"

	"github.com/dusk-indust/pdfcompare/internal/config"
	"github.com/spf13/cobra"
)

func (a *app) configCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Print the effective configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(a.configDir, a.configFile, cmd.Flags())
			if err != nil {
				return err
			}
			if err := cfg.Validate(); err != nil {
				return err
			}
			data, err := cfg.YAML()
			if err != nil {
				return err
			}

			source := cfg.File
			if source == "" {
				source = "defaults and environment"
			}
			fmt.Fprintf(a.stdout, "# source: %s\n", source)
			_, err = a.stdout.Write(data)
			return err
		},
	}
}
