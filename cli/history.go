package cli

import (
	"fmt"
	"text/tabwriter"
	"time"

	"bakery/db"
	"bakery/flash"
	"bakery/testdata"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
)

func newHistoryCommand(opts *rootOptions) *cobra.Command {
	data := &testdata.Config{}
	var limit int

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List past writes",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := opts.load()
			if err != nil {
				return err
			}
			logger := opts.logger(cfg, cmd.ErrOrStderr())

			database, err := db.NewBoltDB(cfg)
			if err != nil {
				return err
			}
			defer database.Close()
			history := flash.NewHistoryRepository(database, cfg.DB.Bucket, logger)

			if err := testdata.HandleDataOperations(data, history, logger); err != nil {
				return err
			}

			records, err := history.GetAll(cmd.Context())
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if len(records) == 0 {
				fmt.Fprintln(out, yellow("No writes recorded"))
				return nil
			}
			if limit > 0 && len(records) > limit {
				records = records[:limit]
			}

			tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, bold("STARTED\tDEVICE\tIMAGE\tSIZE\tTOOK\tSTATUS\tID"))
			for _, r := range records {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
					humanize.Time(r.StartedAt), r.Device, r.Image, recordSize(r),
					r.Duration().Round(time.Second), statusText(r), shortID(r.ID))
			}
			return tw.Flush()
		},
	}
	cmd.Flags().BoolVar(&data.MockData, "mock-data", false, "populate the history with sample records")
	cmd.Flags().BoolVar(&data.ClearData, "clear-data", false, "delete every history record")
	cmd.Flags().IntVarP(&limit, "limit", "n", 0, "show at most n records")
	return cmd
}

func recordSize(r *flash.WriteRecord) string {
	if r.Size <= 0 {
		return "-"
	}
	return humanize.IBytes(uint64(r.Size))
}

func statusText(r *flash.WriteRecord) string {
	switch r.Status {
	case flash.StatusCompleted:
		return green(string(r.Status))
	case flash.StatusFailed:
		return red(string(r.Status)) + " (" + r.Error + ")"
	default:
		return yellow(fmt.Sprintf("%s %d%%", r.Status, r.Progress))
	}
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
