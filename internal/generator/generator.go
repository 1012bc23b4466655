// Package generator runs one encode request: encode the content as a QR
// image, save it, and optionally verify and record the result.
package generator

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"

	apperr "github.com/itsChris/qrgen/internal/errors"
	"github.com/itsChris/qrgen/internal/history"
	"github.com/itsChris/qrgen/internal/logging"
	"github.com/itsChris/qrgen/internal/output"
	"github.com/itsChris/qrgen/internal/qr"
)

var (
	ErrEncode           = errors.New("encode failed")
	ErrOutputDirMissing = errors.New("output directory does not exist")
	ErrWrite            = errors.New("write failed")
	ErrVerify           = errors.New("verification failed")
)

// Recorder persists generation history. *history.Store implements it.
type Recorder interface {
	Record(ctx context.Context, e *history.Entry) (int64, error)
}

// Request is a single encode request.
type Request struct {
	Content    string
	OutputPath string
	Format     output.Format
}

// Result describes the image written for a Request.
type Result struct {
	Content    string
	OutputPath string
	Format     output.Format
	Width      int
	Height     int
	Bytes      int64
	Verified   bool
}

// Config wires a Generator.
type Config struct {
	Encoder     qr.Encoder
	EncoderName string
	Level       qr.Level
	Logger      *slog.Logger

	// Terminal, when set, receives a text rendering of every symbol.
	Terminal io.Writer

	// Verify decodes the written file and compares it with the content.
	Verify bool

	// History is optional.
	History Recorder
}

// Generator encodes requests into image files.
type Generator struct {
	encoder     qr.Encoder
	encoderName string
	level       qr.Level
	logger      *slog.Logger
	terminal    io.Writer
	verify      bool
	history     Recorder
}

// New creates a Generator.
func New(cfg Config) (*Generator, error) {
	if cfg.Encoder == nil {
		return nil, fmt.Errorf("generator: encoder is required")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Generator{
		encoder:     cfg.Encoder,
		encoderName: cfg.EncoderName,
		level:       cfg.Level,
		logger:      logger,
		terminal:    cfg.Terminal,
		verify:      cfg.Verify,
		history:     cfg.History,
	}, nil
}

// Generate encodes req.Content and writes the image to req.OutputPath,
// replacing any existing file. The content is used verbatim.
func (g *Generator) Generate(ctx context.Context, req Request) (*Result, error) {
	runID := logging.RunID(ctx)
	format := req.Format
	if format == "" {
		format = output.FormatFromPath(req.OutputPath)
	}

	g.logger.Debug("qr_encode_started",
		"run_id", runID,
		"content_len", len(req.Content),
		"encoder", g.encoderName,
		"level", g.level.String(),
		"component", "generator",
	)

	img, err := g.encoder.Encode(req.Content)
	if err != nil {
		g.fail(runID, apperr.ErrEncodeFailed, err)
		return nil, fmt.Errorf("%w: %w", ErrEncode, err)
	}

	n, err := output.Save(ctx, img, req.OutputPath, format)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			g.fail(runID, apperr.ErrOutputDirMissing, err)
			return nil, fmt.Errorf("%w: %w", ErrOutputDirMissing, err)
		}
		g.fail(runID, apperr.ErrWriteFailed, err)
		return nil, fmt.Errorf("%w: %w", ErrWrite, err)
	}

	bounds := img.Bounds()
	res := &Result{
		Content:    req.Content,
		OutputPath: req.OutputPath,
		Format:     format,
		Width:      bounds.Dx(),
		Height:     bounds.Dy(),
		Bytes:      n,
	}

	if g.verify {
		decoded, err := qr.DecodeFile(req.OutputPath)
		if err != nil {
			g.fail(runID, apperr.ErrVerifyFailed, err)
			return nil, fmt.Errorf("%w: %w", ErrVerify, err)
		}
		if decoded != req.Content {
			err := fmt.Errorf("decoded %q, expected %q", decoded, req.Content)
			g.fail(runID, apperr.ErrVerifyFailed, err)
			return nil, fmt.Errorf("%w: %w", ErrVerify, err)
		}
		res.Verified = true
	}

	if g.terminal != nil {
		qr.RenderTerminal(g.terminal, req.Content, g.level)
	}

	g.logger.Info("qr_saved",
		"run_id", runID,
		"path", res.OutputPath,
		"format", string(res.Format),
		"width", res.Width,
		"height", res.Height,
		"bytes", res.Bytes,
		"verified", res.Verified,
		"component", "generator",
	)

	if g.history != nil {
		g.record(ctx, res)
	}

	return res, nil
}

// record stores res in the history. The image is already on disk, so a
// failure here is only logged.
func (g *Generator) record(ctx context.Context, res *Result) {
	id, err := g.history.Record(ctx, &history.Entry{
		Content:    res.Content,
		OutputPath: res.OutputPath,
		Format:     string(res.Format),
		Encoder:    g.encoderName,
		Level:      g.level.String(),
		Width:      res.Width,
		Height:     res.Height,
		Bytes:      res.Bytes,
	})
	if err != nil {
		g.logger.Warn("history_record_failed",
			"run_id", logging.RunID(ctx),
			"error", err,
			"error_code", apperr.ErrHistoryFailed,
			"component", "generator",
		)
		return
	}
	g.logger.Debug("history_recorded",
		"run_id", logging.RunID(ctx),
		"id", id,
		"component", "generator",
	)
}

func (g *Generator) fail(runID, code string, err error) {
	g.logger.Error("qr_generate_failed",
		"run_id", runID,
		"error", err,
		"error_code", code,
		"component", "generator",
	)
}
