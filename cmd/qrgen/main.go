package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"runtime"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/itsChris/qrgen/internal/config"
	apperr "github.com/itsChris/qrgen/internal/errors"
	"github.com/itsChris/qrgen/internal/generator"
	"github.com/itsChris/qrgen/internal/history"
	"github.com/itsChris/qrgen/internal/logging"
	"github.com/itsChris/qrgen/internal/qr"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	root := newRootCmd()
	if err := root.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "qrgen [content]",
		Short: "Encode text as a QR code image",
		Long: "qrgen encodes the given text (default " + config.DefaultContent + ") as a QR code\n" +
			"and writes the image to the output path, replacing any existing file.\n\n" +
			"Content that starts with \"-\" or matches a subcommand name must follow \"--\",\n" +
			"after any flags:\n\n" +
			"  qrgen -o code.png -- --not-a-flag\n" +
			"  qrgen -- history",
		Args:          cobra.ArbitraryArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          runGenerate,
	}

	pf := root.PersistentFlags()
	pf.String("config", "", "path to YAML config file")
	pf.StringP("output", "o", config.DefaultOutputPath, "output image path")
	pf.StringP("format", "f", "", "image format: png, bmp or tiff (default: from output extension)")
	pf.String("level", "medium", "error correction level: low, medium, quartile, high")
	pf.Int("scale", qr.DefaultScale, "pixels per QR module")
	pf.String("encoder", qr.EncoderSkip2, "QR encoder backend: skip2, rsc, boombuler")
	pf.Bool("terminal", false, "also print the QR code to the terminal")
	pf.Bool("verify", false, "decode the written image and check its content")
	pf.String("history", "", "path to SQLite history database (empty disables history)")
	pf.String("log-level", "warn", "log level (debug, info, warn, error)")
	pf.Bool("dev-mode", false, "enable development mode logging")

	root.AddCommand(
		newVerifyCmd(),
		newHistoryCmd(),
		newConfigCmd(),
		newVersionCmd(),
	)

	return root
}

// loadConfig reads and validates configuration for cmd. Failures are
// logged with a bootstrap logger since the configured one is unavailable.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	configPath, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(configPath, cmd.Flags())
	if err == nil {
		err = cfg.Validate()
	}
	if err != nil {
		bootstrap := logging.New(logging.Config{Level: slog.LevelError, Format: "text", Output: cmd.ErrOrStderr()})
		bootstrap.Error("config_invalid",
			"config_file", configPath,
			"error", err,
			"error_code", apperr.ErrInvalidConfig,
			"component", "main",
		)
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

func newLogger(cfg *config.Config, w io.Writer) *slog.Logger {
	level := logging.ParseLevel(cfg.Logging.Level)
	// Dev mode forces debug logging.
	if cfg.Logging.Dev {
		level = slog.LevelDebug
	}
	return logging.New(logging.Config{
		Level:   level,
		Format:  cfg.Logging.Format,
		DevMode: cfg.Logging.Dev,
		Output:  w,
	})
}

func runGenerate(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	// The first positional argument is used verbatim; the rest are ignored.
	content := cfg.Content
	if len(args) > 0 {
		content = args[0]
	}

	logger := newLogger(cfg, cmd.ErrOrStderr())
	ctx := logging.WithRunID(context.Background(), logging.GenerateRunID())

	logger.Debug("qrgen_starting",
		"version", version,
		"go_version", runtime.Version(),
		"run_id", logging.RunID(ctx),
		"output", cfg.Output.Path,
		"encoder", cfg.QR.Encoder,
		"history", cfg.History.Path,
		"component", "main",
	)

	level, err := qr.ParseLevel(cfg.QR.Level)
	if err != nil {
		return err
	}
	format, err := cfg.OutputFormat()
	if err != nil {
		return err
	}
	enc, err := qr.NewEncoder(cfg.QR.Encoder, qr.Options{Level: level, Scale: cfg.QR.Scale})
	if err != nil {
		// Validate has already accepted the encoder name and scale.
		logger.Error("encoder_init_failed",
			"encoder", cfg.QR.Encoder,
			"error", err,
			"error_code", apperr.ErrInternal,
			"component", "main",
		)
		return err
	}

	genCfg := generator.Config{
		Encoder:     enc,
		EncoderName: cfg.QR.Encoder,
		Level:       level,
		Logger:      logger,
		Verify:      cfg.Output.Verify,
	}
	if cfg.Output.Terminal {
		genCfg.Terminal = cmd.OutOrStdout()
	}

	if cfg.History.Path != "" {
		store, err := openHistory(ctx, cfg, logger)
		if err != nil {
			// History is optional; the image is still generated.
			logger.Warn("history_unavailable",
				"path", cfg.History.Path,
				"error", err,
				"error_code", apperr.ErrHistoryFailed,
				"component", "main",
			)
		} else {
			defer store.Close()
			genCfg.History = store
		}
	}

	gen, err := generator.New(genCfg)
	if err != nil {
		logger.Error("generator_init_failed",
			"error", err,
			"error_code", apperr.ErrInternal,
			"component", "main",
		)
		return err
	}

	res, err := gen.Generate(ctx, generator.Request{
		Content:    content,
		OutputPath: cfg.Output.Path,
		Format:     format,
	})
	if err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "QR code saved to %s\n", res.OutputPath)
	return nil
}

func openHistory(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*history.Store, error) {
	store, err := history.Open(ctx, cfg.History.Path, logger, cfg.Logging.Dev)
	if err != nil {
		return nil, err
	}
	if err := history.Migrate(ctx, store, logger); err != nil {
		store.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	return store, nil
}

func newVerifyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "verify <image> [expected]",
		Short: "Decode a QR code image and print its content",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			content, err := qr.DecodeFile(args[0])
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), content)

			if len(args) == 2 && content != args[1] {
				return fmt.Errorf("%w: decoded %q, expected %q", generator.ErrVerify, content, args[1])
			}
			return nil
		},
	}
}

func newHistoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recently generated QR codes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			logger := newLogger(cfg, cmd.ErrOrStderr())
			if cfg.History.Path == "" {
				logger.Error("history_disabled",
					"error_code", apperr.ErrHistoryDisabled,
					"component", "main",
				)
				return errors.New("history is disabled: set --history or QRGEN_HISTORY_PATH")
			}

			ctx := context.Background()

			store, err := openHistory(ctx, cfg, logger)
			if err != nil {
				logger.Error("history_open_failed",
					"path", cfg.History.Path,
					"error", err,
					"error_code", apperr.ErrHistoryFailed,
					"component", "main",
				)
				return fmt.Errorf("open history: %w", err)
			}
			defer store.Close()

			limit, _ := cmd.Flags().GetInt("limit")
			entries, err := store.Recent(ctx, limit)
			if err != nil {
				return err
			}
			total, err := store.Count(ctx)
			if err != nil {
				return err
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tCREATED\tFORMAT\tENCODER\tSIZE\tOUTPUT\tCONTENT")
			for _, e := range entries {
				fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%dx%d\t%s\t%s\n",
					e.ID,
					e.CreatedAt.Format("2006-01-02 15:04:05"),
					e.Format,
					e.Encoder,
					e.Width, e.Height,
					e.OutputPath,
					e.Content,
				)
			}
			if err := tw.Flush(); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%d of %d entries\n", len(entries), total)
			return nil
		},
	}
	cmd.Flags().Int("limit", 20, "maximum number of entries to show")
	return cmd
}

func newConfigCmd() *cobra.Command {
	configCmd := &cobra.Command{
		Use:   "config",
		Short: "Configuration management",
	}

	configCmd.AddCommand(&cobra.Command{
		Use:   "check",
		Short: "Validate configuration and print effective values",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			format, err := cfg.OutputFormat()
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "content:         %s\n", cfg.Content)
			fmt.Fprintf(out, "output.path:     %s\n", cfg.Output.Path)
			fmt.Fprintf(out, "output.format:   %s\n", format)
			fmt.Fprintf(out, "output.terminal: %t\n", cfg.Output.Terminal)
			fmt.Fprintf(out, "output.verify:   %t\n", cfg.Output.Verify)
			fmt.Fprintf(out, "qr.encoder:      %s\n", cfg.QR.Encoder)
			fmt.Fprintf(out, "qr.level:        %s\n", cfg.QR.Level)
			fmt.Fprintf(out, "qr.scale:        %d\n", cfg.QR.Scale)
			fmt.Fprintf(out, "history.path:    %s\n", cfg.History.Path)
			fmt.Fprintf(out, "logging.level:   %s\n", cfg.Logging.Level)
			fmt.Fprintf(out, "logging.format:  %s\n", cfg.Logging.Format)
			fmt.Fprintln(out, "configuration OK")
			return nil
		},
	})

	return configCmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "qrgen %s\n", version)
			fmt.Fprintf(out, "  commit: %s\n", commit)
			fmt.Fprintf(out, "  built:  %s\n", date)
		},
	}
}
