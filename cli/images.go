package cli

import (
	"fmt"
	"text/tabwriter"

	"bakery/catalog"
	"bakery/flash"

	"github.com/dustin/go-humanize"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
)

func newImagesCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "images",
		Short: "List the image catalog",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := opts.load()
			if err != nil {
				return err
			}
			opts.logger(cfg, cmd.ErrOrStderr())

			list, err := catalog.Scan(afero.NewOsFs(), cfg.Images.Sources...)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if list.Len() == 0 {
				fmt.Fprintln(out, yellow("No images found in"), cfg.Images.Sources)
				return nil
			}

			tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, bold("NAME\tFORMAT\tSIZE\tSCRIPTS\tVARIABLES\tDIRECTORY"))
			for _, img := range list.Items() {
				var size string
				if n, err := flash.ImageSize(img.Path(), img.Format); err == nil {
					size = humanize.IBytes(uint64(n))
				} else {
					size = red("unreadable")
				}
				fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%d\t%s\n",
					green(img.Name), img.Format, size, len(img.PostScripts), len(img.Variables), img.Directory)
			}
			return tw.Flush()
		},
	}
}
