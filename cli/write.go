package cli

import (
	"bufio"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"bakery/catalog"
	"bakery/config"
	"bakery/db"
	"bakery/display"
	"bakery/flash"
	"bakery/internal/validation"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
)

type writeOptions struct {
	device string
	image  string
	yes    bool
}

func newWriteCommand(opts *rootOptions) *cobra.Command {
	wo := &writeOptions{}

	cmd := &cobra.Command{
		Use:   "write",
		Short: "Write an image to a device without the panel",
		Example: `  bakery write --device /dev/sdb --image raspios
  bakery write -d /dev/mmcblk0 -i /srv/bakery/images/alpine/alpine.img.gz --yes`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := opts.load()
			if err != nil {
				return err
			}
			return wo.run(cmd, cfg, opts.logger(cfg, cmd.ErrOrStderr()))
		},
	}
	cmd.Flags().StringVarP(&wo.device, "device", "d", "", "target block device")
	cmd.Flags().StringVarP(&wo.image, "image", "i", "", "image name or path")
	cmd.Flags().BoolVarP(&wo.yes, "yes", "y", false, "do not ask for confirmation")
	cmd.MarkFlagRequired("device")
	cmd.MarkFlagRequired("image")
	return cmd
}

func (o *writeOptions) run(cmd *cobra.Command, cfg *config.Config, logger *slog.Logger) error {
	if err := validation.ValidateDevicePath(o.device); err != nil {
		return err
	}

	images := catalog.New(afero.NewOsFs(), cfg.Images.Sources, logger)
	if err := images.Rescan(); err != nil {
		return err
	}
	img, ok := images.Find(o.image)
	if !ok {
		return fmt.Errorf("image %q not found in %s", o.image, strings.Join(cfg.Images.Sources, ", "))
	}

	if _, err := os.Stat(o.device); err != nil {
		return fmt.Errorf("device %s: %w", o.device, err)
	}

	out := cmd.OutOrStdout()
	in := bufio.NewReader(cmd.InOrStdin())

	if !o.yes {
		fmt.Fprintf(out, "Write %s to %s? Everything on the device is lost [y/N]: ", bold(img.Name), bold(o.device))
		answer, _ := in.ReadString('\n')
		if a := strings.ToLower(strings.TrimSpace(answer)); a != "y" && a != "yes" {
			fmt.Fprintln(out, yellow("Aborted"))
			return nil
		}
	}

	var history flash.HistoryRepository
	if database, err := db.NewBoltDB(cfg); err != nil {
		logger.Warn("Write history unavailable", slog.String("error", err.Error()))
	} else {
		defer database.Close()
		history = flash.NewHistoryRepository(database, cfg.DB.Bucket, logger)
	}

	writer := flash.NewWriter(flash.NewOptions(cfg), history, logger)
	sink := &progressSink{out: out, in: in, title: img.Name + " -> " + o.device}
	ok = writer.Write(cmd.Context(), o.device, img, sink)
	sink.finish()

	if !ok {
		return fmt.Errorf("writing %s to %s failed", img.Name, o.device)
	}
	fmt.Fprintln(out, green("Finished"), img.Name, "->", o.device)
	return nil
}

// progressSink shows a write on the command line.
type progressSink struct {
	out   io.Writer
	in    *bufio.Reader
	title string
	bar   *progressbar.ProgressBar
}

func (s *progressSink) ProgressTitle() {
	s.bar = progressbar.NewOptions(1000,
		progressbar.OptionSetWriter(s.out),
		progressbar.OptionSetDescription(s.title),
		progressbar.OptionSetWidth(30),
		progressbar.OptionSetPredictTime(true),
		progressbar.OptionShowElapsedTimeOnFinish(),
		progressbar.OptionOnCompletion(func() { fmt.Fprintln(s.out) }),
	)
}

// Progress takes a percentage, the bar counts tenths of a percent.
func (s *progressSink) Progress(percent float64) {
	if s.bar == nil {
		return
	}
	s.bar.Set(int(percent * 10))
}

func (s *progressSink) Question(name, format string) string {
	fmt.Fprint(s.out, display.PromptText(format, ""))
	answer, _ := s.in.ReadString('\n')
	return strings.TrimRight(answer, "\r\n")
}

func (s *progressSink) Message(row int, text string) {
	text = strings.TrimSpace(text)
	if text == "" {
		return
	}
	s.finish()
	fmt.Fprintln(s.out, text)
}

func (s *progressSink) finish() {
	if s.bar != nil && !s.bar.IsFinished() {
		s.bar.Exit()
		fmt.Fprintln(s.out)
	}
	s.bar = nil
}
