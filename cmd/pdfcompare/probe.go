package main

import (
	"fmt"

	"github.com/dusk-indust/pdfcompare/internal/export"
	"github.com/dusk-indust/pdfcompare/internal/status"
	"github.com/spf13/cobra"
)

func (a *app) probeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "probe",
		Short: "Check whether the comparison engine is usable",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			_, pipeline, logger, err := a.setup(cmd)
			if err != nil {
				return err
			}
			defer logger.Sync() //nolint:errcheck
			defer pipeline.Close()

			st := pipeline.Probe(cmd.Context())
			if a.jsonOut {
				if err := export.WriteJSON(a.stdout, export.ExportEngine(st)); err != nil {
					return err
				}
			} else {
				fmt.Fprintln(a.stdout, status.DescribeEngine(st))
				if hint := st.Remediation(); hint != "" {
					fmt.Fprintln(a.stdout, "  Fix: "+hint)
				}
			}

			if !st.Available() {
				return &exitError{code: status.ExitProviderUnavailable}
			}
			return nil
		},
	}
}
