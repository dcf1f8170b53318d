package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"mangamark/internal/config"
	"mangamark/internal/convert"
	"mangamark/internal/logging"
	"mangamark/internal/processor"
	"mangamark/internal/tui"
)

var (
	stampConfigPath string
	stampWatermark  string
	stampFrequency  int
	stampSearchStep int
	stampThreshold  int
	stampMaxSteps   int
	stampZip        bool
	stampArchiveExt string
	stampSource     string
	stampConverter  string
	stampAutoOrient bool
	stampPlain      bool
	stampLogFile    string
	stampDebug      bool
)

var stampCmd = &cobra.Command{
	Use:   "stamp [flags] [root]",
	Short: "Watermark every chapter under a folder",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		_ = godotenv.Load()

		cfg, err := config.Load(stampConfigPath)
		if err != nil {
			return err
		}
		cfg.ApplyEnv()
		if len(args) == 1 {
			cfg.MainFolder = args[0]
		}
		applyStampFlags(cmd, cfg)

		opts, err := cfg.Snapshot()
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		if opts.Source == processor.SourceLayered {
			if _, err := convert.Probe(ctx, opts.Converter); err != nil {
				return fmt.Errorf("layered sources need a working converter: %w", err)
			}
		}

		var logOut io.Writer = os.Stderr
		logPath := stampLogFile
		if logPath == "" && !stampPlain {
			logPath = logging.DefaultFile()
		}
		if logPath != "" {
			f, err := logging.OpenFile(logPath)
			if err != nil {
				return fmt.Errorf("open log file: %w", err)
			}
			defer f.Close()
			logOut = f
		}
		logger := logging.New(logOut, stampDebug, logPath == "")

		var summary processor.Summary
		if stampPlain {
			sink := tui.PlainSink{W: os.Stdout}
			summary, err = processor.Run(ctx, opts, processor.Sinks{Status: sink, Progress: sink}, logger)
		} else {
			summary, err = runWithUI(ctx, opts, logger)
		}
		if err != nil {
			return err
		}

		fmt.Fprintln(os.Stdout, tui.RenderSummary(tui.SummaryRows(summary)))
		root := opts.Root
		if abs, absErr := filepath.Abs(root); absErr == nil {
			root = abs
		}
		outPath := processor.OutputRoot(root)
		fmt.Fprintf(os.Stdout, "Output written to: %s\n", outPath)
		if logPath != "" {
			fmt.Fprintf(os.Stdout, "Diagnostics: %s\n", logPath)
		}
		return nil
	},
}

func runWithUI(ctx context.Context, opts processor.Options, logger zerolog.Logger) (processor.Summary, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	updates := make(chan processor.ProgressUpdate, 256)
	program := tea.NewProgram(tui.NewModel(updates, cancel))

	uiDone := make(chan struct{})
	go func() {
		defer close(uiDone)
		if _, err := program.Run(); err != nil {
			logger.Warn().Err(err).Msg("interactive view stopped")
		}
		// Keep the run unblocked if the view exits early.
		for range updates {
		}
	}()

	sink := processor.ChanSink(updates)
	summary, err := processor.Run(ctx, opts, processor.Sinks{Status: sink, Progress: sink}, logger)

	close(updates)
	<-uiDone
	return summary, err
}

func applyStampFlags(cmd *cobra.Command, cfg *config.Config) {
	flags := cmd.Flags()
	if flags.Changed("watermark") {
		cfg.WatermarkFile = stampWatermark
	}
	if flags.Changed("frequency") {
		cfg.Frequency = stampFrequency
	}
	if flags.Changed("search-step") {
		cfg.SearchStep = stampSearchStep
	}
	if flags.Changed("threshold") {
		cfg.Threshold = stampThreshold
	}
	if flags.Changed("max-steps") {
		cfg.MaxSteps = stampMaxSteps
	}
	if flags.Changed("zip") {
		cfg.CreateZip = stampZip
	}
	if flags.Changed("archive-ext") {
		cfg.ArchiveExt = stampArchiveExt
	}
	if flags.Changed("source") {
		cfg.ProcessType = stampSource
	}
	if flags.Changed("converter") {
		cfg.MagickPath = stampConverter
	}
	if flags.Changed("auto-orient") {
		cfg.AutoOrient = stampAutoOrient
	}
}

func init() {
	defaults := config.Defaults()
	flags := stampCmd.Flags()
	flags.StringVar(&stampConfigPath, "config", "", "settings file (default "+config.DefaultPath()+")")
	flags.StringVarP(&stampWatermark, "watermark", "w", "", "watermark image (.png, .jpg, .jpeg)")
	flags.IntVar(&stampFrequency, "frequency", defaults.Frequency, "vertical distance between watermark bands (px)")
	flags.IntVar(&stampSearchStep, "search-step", defaults.SearchStep, "offset tried when a band start is busy (px)")
	flags.IntVar(&stampThreshold, "threshold", defaults.Threshold, "max luminance spread of a uniform spot")
	flags.IntVar(&stampMaxSteps, "max-steps", defaults.MaxSteps, "extra offsets tried per band")
	flags.BoolVarP(&stampZip, "zip", "z", defaults.CreateZip, "write one archive per chapter")
	flags.StringVar(&stampArchiveExt, "archive-ext", defaults.ArchiveExt, "archive extension (zip, cbz)")
	flags.StringVar(&stampSource, "source", defaults.ProcessType, "files to process: raster (png/jpg/webp) or layered (psd/psb)")
	flags.StringVar(&stampConverter, "converter", defaults.MagickPath, "ImageMagick executable for layered sources")
	flags.BoolVar(&stampAutoOrient, "auto-orient", defaults.AutoOrient, "rotate JPEG pages upright using their EXIF orientation")
	flags.BoolVar(&stampPlain, "plain", false, "print status lines instead of the interactive view")
	flags.StringVar(&stampLogFile, "log-file", "", "diagnostics log file (default stderr with --plain, else "+logging.DefaultFile()+")")
	flags.BoolVar(&stampDebug, "debug", false, "verbose diagnostics")

	rootCmd.AddCommand(stampCmd)
}
