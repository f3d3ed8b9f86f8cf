package main

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/quidome/mfdf/pkg/classify"
	"github.com/quidome/mfdf/pkg/config"
	"github.com/quidome/mfdf/pkg/engine"
	"github.com/quidome/mfdf/pkg/resolve"
)

const version = "0.1.0"

type options struct {
	verbose    bool
	configFile string
}

func main() {
	cmd := newRootCmd()
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	opts := &options{}

	rootCmd := &cobra.Command{
		Use:   "mfdf",
		Short: "Restore file dates from embedded media metadata",
		Long: `mfdf walks a directory of photos and videos, reads the capture date stored
inside each file and sets the filesystem created and modified times to match.`,
		Version:      version,
		SilenceUsage: true,
		Run: func(cmd *cobra.Command, args []string) {
			_ = cmd.Help()
		},
	}

	rootCmd.SetOut(os.Stdout)
	rootCmd.SetErr(os.Stderr)

	rootCmd.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "enable verbose logging")
	rootCmd.PersistentFlags().StringVar(&opts.configFile, "config", "", "YAML config file")

	rootCmd.AddCommand(newFixCmd(opts))
	rootCmd.AddCommand(newInspectCmd(opts))
	rootCmd.AddCommand(newFormatsCmd())

	return rootCmd
}

// newLogger builds a development logger in verbose mode and an error-only
// JSON logger on stderr otherwise.
func newLogger(verbose bool) (*zap.Logger, error) {
	if verbose {
		return zap.NewDevelopment()
	}
	cfg := zap.Config{
		Level:            zap.NewAtomicLevelAt(zapcore.ErrorLevel),
		Encoding:         "json",
		OutputPaths:      []string{"stderr"},
		ErrorOutputPaths: []string{"stderr"},
		EncoderConfig:    zap.NewProductionEncoderConfig(),
	}
	return cfg.Build()
}

// addRunFlags registers the flags shared by fix and inspect. Their defaults
// mirror the config defaults; only flags set on the command line override
// the environment or the config file.
func addRunFlags(fs *pflag.FlagSet) {
	fs.Duration("tolerance", resolve.DefaultTolerance, "largest difference treated as already correct")
	fs.Bool("filename-dates", false, "use dates found in file names when no embedded date exists")
	fs.String("timezone", "Local", "zone for embedded times that carry none")
}

func loadEngine(cmd *cobra.Command, opts *options) (*engine.Engine, *config.Config, *zap.Logger, error) {
	cfg, err := config.Load(cmd.Flags(), opts.configFile)
	if err != nil {
		return nil, nil, nil, err
	}
	logger, err := newLogger(opts.verbose)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("initialize logger: %w", err)
	}
	engineOpts, err := cfg.EngineOptions(logger)
	if err != nil {
		_ = logger.Sync()
		return nil, nil, nil, err
	}
	return engine.New(engineOpts), cfg, logger, nil
}

func newFixCmd(opts *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "fix [directory]",
		Short: "Set file dates from embedded metadata",
		Long:  "Walk a directory, read embedded capture dates and write them to the filesystem created and modified attributes.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			eng, cfg, logger, err := loadEngine(cmd, opts)
			if err != nil {
				return err
			}
			defer logger.Sync()

			r, err := eng.Run(args[0])
			if err != nil {
				logger.Error("run failed", zap.String("root", args[0]), zap.Error(err))
				return err
			}

			if cfg.Format == "json" {
				return r.WriteJSON(cmd.OutOrStdout())
			}
			return r.WriteText(cmd.OutOrStdout())
		},
	}

	fs := cmd.Flags()
	addRunFlags(fs)
	fs.Int("workers", 0, "files processed in parallel (0 = one per CPU)")
	fs.BoolP("dry-run", "n", false, "report what would change without writing")
	fs.Int("max-depth", -1, "maximum recursion depth (0 = no recursion)")
	fs.Bool("include-hidden", false, "also process dot files and dot directories")
	fs.String("format", "text", "report format: text or json")

	return cmd
}

func newInspectCmd(opts *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "inspect [file]...",
		Short: "Show the dates found in files without changing them",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			eng, _, logger, err := loadEngine(cmd, opts)
			if err != nil {
				return err
			}
			defer logger.Sync()

			var failed int
			for _, path := range args {
				insp, err := eng.Inspect(path)
				if err != nil {
					failed++
					cmd.PrintErrf("%s: %v\n", path, err)
					continue
				}
				writeInspection(cmd.OutOrStdout(), insp)
			}
			if failed > 0 {
				return fmt.Errorf("%d of %d files could not be inspected", failed, len(args))
			}
			return nil
		},
	}

	addRunFlags(cmd.Flags())
	return cmd
}

func writeInspection(w io.Writer, insp engine.Inspection) {
	fmt.Fprintf(w, "%s\n", insp.Path)
	fmt.Fprintf(w, "  kind: %s\n", insp.Kind)
	if !insp.Kind.Supported() {
		fmt.Fprintln(w)
		return
	}
	if len(insp.Candidates) == 0 {
		fmt.Fprintf(w, "  candidates: none\n")
	} else {
		fmt.Fprintf(w, "  candidates:\n")
		for _, c := range insp.Candidates {
			fmt.Fprintf(w, "    %-8s %-20s %s\n", c.Attr, c.Field, formatTime(c.Time))
		}
	}
	writeDecision(w, "created", insp.Dates.Created)
	writeDecision(w, "modified", insp.Dates.Modified)
	fmt.Fprintln(w)
}

func writeDecision(w io.Writer, name string, d resolve.Decision) {
	line := fmt.Sprintf("  %-9s %s (current %s)", name+":", d.Action, formatTime(d.Current))
	if d.Action != resolve.ActionNotRecoverable {
		line += fmt.Sprintf(" -> %s from %s", formatTime(d.Value), d.Field)
	}
	fmt.Fprintln(w, line)
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return "unknown"
	}
	return t.Format(time.RFC3339)
}

func newFormatsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "formats",
		Short: "List the supported file extensions",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			for _, c := range []classify.Class{classify.Image, classify.Video} {
				cmd.Printf("%s: %s\n", c, strings.Join(classify.Extensions(c), " "))
			}
		},
	}
}
