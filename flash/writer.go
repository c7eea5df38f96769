package flash

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"strings"
	"sync"
	"time"

	"bakery/catalog"
	"bakery/config"
	apperrors "bakery/internal/errors"

	"github.com/google/uuid"
)

var (
	// ErrBusy is returned when a write is requested while another runs.
	ErrBusy = errors.New("a write is already running")
	// ErrUnknownSize is returned for images whose output size cannot be known.
	ErrUnknownSize = errors.New("image size is zero")
)

type Options struct {
	CopyCommand       []string
	DecompressCommand []string
	BlockSize         string
	StatusInterval    time.Duration
	ProducerGrace     time.Duration
	NodeTimeout       time.Duration
	Refresher         Refresher
	Partitions        PartitionLister
}

// NewOptions derives writer options from the configuration.
func NewOptions(cfg *config.Config) Options {
	opts := Options{
		CopyCommand:       strings.Fields(cfg.Writer.CopyCommand),
		DecompressCommand: strings.Fields(cfg.Writer.DecompressCommand),
		BlockSize:         cfg.Writer.BlockSize,
		StatusInterval:    cfg.Writer.StatusInterval,
		ProducerGrace:     cfg.Writer.ProducerGrace,
	}
	if cfg.Writer.RefreshCommand != "" {
		opts.Refresher = CommandRefresher{Command: strings.Fields(cfg.Writer.RefreshCommand)}
	}
	return opts
}

// Writer streams images onto block devices.
type Writer struct {
	opts    Options
	history HistoryRepository
	logger  *slog.Logger

	running sync.Mutex

	mu     sync.RWMutex
	active *WriteRecord
}

// NewWriter creates a writer. history may be nil.
func NewWriter(opts Options, history HistoryRepository, logger *slog.Logger) *Writer {
	if logger == nil {
		logger = slog.Default()
	}
	if len(opts.CopyCommand) == 0 {
		opts.CopyCommand = []string{"dd"}
	}
	if len(opts.DecompressCommand) == 0 {
		opts.DecompressCommand = []string{"zcat"}
	}
	if opts.BlockSize == "" {
		opts.BlockSize = "1M"
	}
	if opts.StatusInterval <= 0 {
		opts.StatusInterval = 3 * time.Second
	}
	if opts.ProducerGrace <= 0 {
		opts.ProducerGrace = 2 * time.Second
	}
	if opts.NodeTimeout <= 0 {
		opts.NodeTimeout = 5 * time.Second
	}
	if opts.Refresher == nil {
		opts.Refresher = IoctlRefresher{}
	}
	if opts.Partitions == nil {
		opts.Partitions = BlockPartitions{}
	}
	return &Writer{
		opts:    opts,
		history: history,
		logger:  logger,
	}
}

// Active returns the record of the write in progress.
func (w *Writer) Active() (WriteRecord, bool) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	if w.active == nil {
		return WriteRecord{}, false
	}
	return *w.active, true
}

// Write puts img onto device and runs its post-install scripts. It reports
// whether the image was written; post-install failures do not count.
// Once the stages are started the write runs to completion regardless of ctx.
func (w *Writer) Write(ctx context.Context, device string, img catalog.Image, sink Sink) bool {
	if !w.running.TryLock() {
		w.logger.Warn("Write rejected", slog.String("device", device), slog.String("error", ErrBusy.Error()))
		return false
	}
	defer w.running.Unlock()

	logger := w.logger.With(slog.String("device", device), slog.String("image", img.Path()))
	record := &WriteRecord{
		ID:        uuid.New().String(),
		Device:    device,
		Image:     img.Name,
		Directory: img.Directory,
		Format:    string(img.Format),
		Status:    StatusRunning,
		StartedAt: time.Now(),
	}

	err := w.write(ctx, logger, device, img, sink, record)

	w.mu.Lock()
	w.active = nil
	w.mu.Unlock()

	now := time.Now()
	record.CompletedAt = &now
	if err != nil {
		record.Status = StatusFailed
		record.Error = err.Error()
		var appErr *apperrors.AppError
		if !apperrors.IsAppError(err, &appErr) {
			appErr = apperrors.NewWriteError("write image", err)
		}
		apperrors.LogError(logger, appErr.WithContext("device", device).WithContext("image", img.Name))
	} else {
		record.Status = StatusCompleted
		record.Progress = 100
		logger.Info("Write completed", slog.Duration("elapsed", record.Duration()))
	}
	w.save(ctx, record)

	return err == nil
}

func (w *Writer) write(ctx context.Context, logger *slog.Logger, device string, img catalog.Image, sink Sink, record *WriteRecord) error {
	size, err := ImageSize(img.Path(), img.Format)
	if err == nil && size == 0 {
		err = ErrUnknownSize
	}
	if err != nil {
		return apperrors.NewConfigurationError("image size", err).WithContext("path", img.Path())
	}
	record.Size = size

	w.mu.Lock()
	w.active = record
	w.mu.Unlock()
	w.save(ctx, record)

	vars := make(map[string]string, len(img.Variables))
	for _, v := range img.Variables {
		vars[v.Name] = sink.Question(v.Name, v.Format)
	}

	sink.ProgressTitle()
	logger.Info("Write started", slog.Int64("bytes", size), slog.String("format", string(img.Format)))

	if err := w.stream(ctx, logger, device, img, size, sink, record); err != nil {
		return err
	}

	if len(img.PostScripts) > 0 {
		w.postInstall(ctx, device, img, vars, sink)
	}
	return nil
}

func (w *Writer) copyCommand(device string, img catalog.Image) *exec.Cmd {
	args := append([]string(nil), w.opts.CopyCommand[1:]...)
	if img.Format != catalog.FormatGzip {
		args = append(args, "if="+img.Path())
	}
	args = append(args, "of="+device, "bs="+w.opts.BlockSize)
	return exec.Command(w.opts.CopyCommand[0], args...)
}

// stream runs the copy stage, fed by the decompression stage for gzip images,
// and forwards status reports until both have exited.
func (w *Writer) stream(ctx context.Context, logger *slog.Logger, device string, img catalog.Image, size int64, sink Sink, record *WriteRecord) error {
	copyCmd := w.copyCommand(device, img)
	stderr, err := copyCmd.StderrPipe()
	if err != nil {
		return apperrors.NewWriteError("copy stage", err)
	}

	var producer *exec.Cmd
	if img.Format == catalog.FormatGzip {
		pr, pw, err := os.Pipe()
		if err != nil {
			return apperrors.NewWriteError("pipe", err)
		}
		args := append(append([]string(nil), w.opts.DecompressCommand[1:]...), img.Path())
		producer = exec.Command(w.opts.DecompressCommand[0], args...)
		producer.Stdout = pw
		copyCmd.Stdin = pr

		err = producer.Start()
		if err == nil {
			err = copyCmd.Start()
			if err != nil {
				_ = producer.Process.Kill()
				_ = producer.Wait()
			}
		}
		pr.Close()
		pw.Close()
		if err != nil {
			return apperrors.NewWriteError("start stages", err)
		}
	} else if err := copyCmd.Start(); err != nil {
		return apperrors.NewWriteError("start copy stage", err)
	}

	lines := make(chan string, 64)
	abort := make(chan struct{})
	readerDone := make(chan struct{})
	go readStatus(stderr, lines, abort, readerDone)
	stopReading := sync.OnceFunc(func() { close(abort) })
	defer stopReading()

	copyDone := make(chan error, 1)
	go func() {
		<-readerDone
		copyDone <- copyCmd.Wait()
	}()

	var producerDone chan error
	if producer != nil {
		producerDone = make(chan error, 1)
		go func() { producerDone <- producer.Wait() }()
		logger.Debug("Stages started", slog.Int("producer_pid", producer.Process.Pid), slog.Int("copy_pid", copyCmd.Process.Pid))
	}

	statusTick := time.NewTicker(w.opts.StatusInterval)
	defer statusTick.Stop()

	report := progressReporter{size: size, sink: sink, advance: func(step int) {
		w.mu.Lock()
		record.Progress = step
		w.mu.Unlock()
		w.save(ctx, record)
	}}

	copyExited := false
	producerExited := producer == nil
	var copyErr error
	var grace <-chan time.Time

	killProducer := func() {
		_ = producer.Process.Kill()
		<-producerDone
		producerExited = true
	}
	killCopy := func() {
		stopReading()
		_ = copyCmd.Process.Kill()
		<-copyDone
		copyExited = true
	}

	for !copyExited || !producerExited {
		select {
		case line, ok := <-lines:
			if !ok {
				lines = nil
				continue
			}
			report.line(line)

		case <-statusTick.C:
			if !copyExited {
				_ = copyCmd.Process.Signal(statusSignal)
			}

		case copyErr = <-copyDone:
			copyExited = true
			if producerExited {
				continue
			}
			if copyErr != nil {
				killProducer()
				return apperrors.NewWriteError("copy stage", copyErr)
			}
			grace = time.After(w.opts.ProducerGrace)

		case err := <-producerDone:
			producerExited = true
			if err != nil {
				if !copyExited {
					killCopy()
				}
				return apperrors.NewWriteError("decompression stage", err)
			}

		case <-grace:
			killProducer()
			return apperrors.NewWriteError("decompression stage",
				fmt.Errorf("still running %s after the copy stage finished", w.opts.ProducerGrace))
		}
	}

	if lines != nil {
		for line := range lines {
			report.line(line)
		}
	}

	if copyErr != nil {
		return apperrors.NewWriteError("copy stage", copyErr)
	}
	return nil
}

// progressReporter turns status lines into sink updates and periodic
// history saves.
type progressReporter struct {
	size    int64
	sink    Sink
	saved   int
	advance func(step int)
}

func (p *progressReporter) line(line string) {
	n, ok := ParseBytes(line)
	if !ok {
		return
	}
	percent := 100 * float64(n) / float64(p.size)
	p.sink.Progress(percent)

	step := int(percent) / 10 * 10
	if step > 100 {
		step = 100
	}
	if step > p.saved {
		p.saved = step
		p.advance(step)
	}
}

func (w *Writer) save(ctx context.Context, record *WriteRecord) {
	if w.history == nil {
		return
	}
	if err := w.history.Save(ctx, record); err != nil {
		apperrors.LogError(w.logger, apperrors.NewDatabaseError("save write record", err).WithContext("id", record.ID))
	}
}
