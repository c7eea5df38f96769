package cli

import (
	"fmt"
	"text/tabwriter"

	"bakery/app"
	"bakery/device"

	"github.com/spf13/cobra"
)

func newDevicesCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "devices",
		Short: "List removable disk adapters and whether they hold media",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := opts.load()
			if err != nil {
				return err
			}
			logger := opts.logger(cfg, cmd.ErrOrStderr())

			attached, err := device.BlockEnumerator{Majors: cfg.Device.Majors}.Enumerate(cmd.Context())
			if err != nil {
				return err
			}

			prober := app.NewProber(cfg, logger)

			out := cmd.OutOrStdout()
			if len(attached) == 0 {
				fmt.Fprintln(out, yellow("No removable disks found"))
				return nil
			}

			tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, bold("DEVICE\tMODEL\tMEDIA"))
			for _, a := range attached {
				media := yellow("empty")
				if prober.Probe(cmd.Context(), a.Path) {
					media = green("present")
				}
				fmt.Fprintf(tw, "%s\t%s\t%s\n", a.Path, a.Model, media)
			}
			return tw.Flush()
		},
	}
}
