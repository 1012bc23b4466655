package generator

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/itsChris/qrgen/internal/history"
	"github.com/itsChris/qrgen/internal/output"
	"github.com/itsChris/qrgen/internal/qr"
	"github.com/itsChris/qrgen/internal/testutil"
)

const defaultContent = "exp://192.168.100.242:8081"

func newTestGenerator(t *testing.T, cfg Config) *Generator {
	t.Helper()
	if cfg.Encoder == nil {
		enc, err := qr.NewEncoder(qr.EncoderSkip2, qr.Options{Level: qr.LevelMedium, Scale: 4})
		if err != nil {
			t.Fatalf("new encoder: %v", err)
		}
		cfg.Encoder = enc
		cfg.EncoderName = qr.EncoderSkip2
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	g, err := New(cfg)
	if err != nil {
		t.Fatalf("new generator: %v", err)
	}
	return g
}

func decodeOutput(t *testing.T, path string) string {
	t.Helper()
	got, err := qr.DecodeFile(path)
	if err != nil {
		t.Fatalf("decode %s: %v", path, err)
	}
	return got
}

func TestGenerate_DefaultContent(t *testing.T) {
	g := newTestGenerator(t, Config{})
	path := filepath.Join(t.TempDir(), "expo_qr.png")

	res, err := g.Generate(context.Background(), Request{Content: defaultContent, OutputPath: path})
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if res.Format != output.FormatPNG {
		t.Errorf("expected png format, got %q", res.Format)
	}
	if got := decodeOutput(t, path); got != defaultContent {
		t.Errorf("expected %q, got %q", defaultContent, got)
	}
}

func TestGenerate_ContentVerbatim(t *testing.T) {
	g := newTestGenerator(t, Config{})
	dir := t.TempDir()

	for i, content := range []string{"https://example.com", "  padded  ", "a\tb"} {
		path := filepath.Join(dir, fmt.Sprintf("out%d.png", i))
		if _, err := g.Generate(context.Background(), Request{Content: content, OutputPath: path}); err != nil {
			t.Fatalf("generate %q: %v", content, err)
		}
		if got := decodeOutput(t, path); got != content {
			t.Errorf("expected %q, got %q", content, got)
		}
	}
}

func TestGenerate_NonASCII(t *testing.T) {
	g := newTestGenerator(t, Config{})
	path := filepath.Join(t.TempDir(), "utf8.png")
	content := "exp://café.example/ścieżka?q=日本語"

	if _, err := g.Generate(context.Background(), Request{Content: content, OutputPath: path}); err != nil {
		t.Fatalf("generate: %v", err)
	}
	if got := decodeOutput(t, path); got != content {
		t.Errorf("expected %q, got %q", content, got)
	}
}

func TestGenerate_ValidPNG(t *testing.T) {
	g := newTestGenerator(t, Config{})
	path := filepath.Join(t.TempDir(), "expo_qr.png")

	res, err := g.Generate(context.Background(), Request{Content: defaultContent, OutputPath: path})
	if err != nil {
		t.Fatalf("generate: %v", err)
	}

	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer f.Close()

	cfg, name, err := image.DecodeConfig(f)
	if err != nil {
		t.Fatalf("decode config: %v", err)
	}
	if name != "png" {
		t.Errorf("expected png, got %q", name)
	}
	if cfg.Width != res.Width || cfg.Height != res.Height {
		t.Errorf("expected %dx%d, got %dx%d", res.Width, res.Height, cfg.Width, cfg.Height)
	}
}

func TestGenerate_Overwrites(t *testing.T) {
	g := newTestGenerator(t, Config{})
	path := filepath.Join(t.TempDir(), "expo_qr.png")

	if _, err := g.Generate(context.Background(), Request{Content: "first", OutputPath: path}); err != nil {
		t.Fatalf("first generate: %v", err)
	}
	if _, err := g.Generate(context.Background(), Request{Content: "second", OutputPath: path}); err != nil {
		t.Fatalf("second generate: %v", err)
	}
	if got := decodeOutput(t, path); got != "second" {
		t.Errorf("expected overwritten content %q, got %q", "second", got)
	}
}

func TestGenerate_MissingDirectory(t *testing.T) {
	g := newTestGenerator(t, Config{})
	path := filepath.Join(t.TempDir(), "missing", "expo_qr.png")

	_, err := g.Generate(context.Background(), Request{Content: defaultContent, OutputPath: path})
	if !errors.Is(err, ErrOutputDirMissing) {
		t.Fatalf("expected ErrOutputDirMissing, got %v", err)
	}
	if !errors.Is(err, fs.ErrNotExist) {
		t.Errorf("expected wrapped fs.ErrNotExist, got %v", err)
	}
	if _, statErr := os.Stat(path); !errors.Is(statErr, fs.ErrNotExist) {
		t.Errorf("expected no output file, stat returned %v", statErr)
	}
}

func TestGenerate_MissingDirectoryLogsErrorCode(t *testing.T) {
	var logs bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&logs, &slog.HandlerOptions{Level: slog.LevelWarn}))
	g := newTestGenerator(t, Config{Logger: logger})
	path := filepath.Join(t.TempDir(), "missing", "expo_qr.png")

	if _, err := g.Generate(context.Background(), Request{Content: defaultContent, OutputPath: path}); err == nil {
		t.Fatal("expected error for missing directory")
	}
	if !strings.Contains(logs.String(), "msg=qr_generate_failed") {
		t.Errorf("expected failure log line, got %q", logs.String())
	}
	if !strings.Contains(logs.String(), "error_code=OUTPUT_DIR_MISSING") {
		t.Errorf("expected error_code=OUTPUT_DIR_MISSING, got %q", logs.String())
	}
}

func TestGenerate_NoTerminalOutputOnFailure(t *testing.T) {
	var buf bytes.Buffer
	g := newTestGenerator(t, Config{Terminal: &buf})
	path := filepath.Join(t.TempDir(), "missing", "t.png")

	if _, err := g.Generate(context.Background(), Request{Content: defaultContent, OutputPath: path}); err == nil {
		t.Fatal("expected error for missing directory")
	}
	if buf.Len() != 0 {
		t.Errorf("expected no terminal rendering, got %d bytes", buf.Len())
	}
}

func TestGenerate_EmptyContent(t *testing.T) {
	g := newTestGenerator(t, Config{Verify: true})
	path := filepath.Join(t.TempDir(), "empty.png")

	res, err := g.Generate(context.Background(), Request{Content: "", OutputPath: path})
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if !res.Verified {
		t.Error("expected empty payload to verify")
	}
}

func TestGenerate_EncodeFailure(t *testing.T) {
	enc := &testutil.MockEncoder{
		EncodeFn: func(string) (image.Image, error) {
			return nil, errors.New("data too long")
		},
	}
	rec := &testutil.MockRecorder{}
	g := newTestGenerator(t, Config{Encoder: enc, History: rec})
	path := filepath.Join(t.TempDir(), "out.png")

	_, err := g.Generate(context.Background(), Request{Content: "x", OutputPath: path})
	if !errors.Is(err, ErrEncode) {
		t.Fatalf("expected ErrEncode, got %v", err)
	}
	if _, statErr := os.Stat(path); statErr == nil {
		t.Error("expected no output file after encode failure")
	}
	if len(rec.Entries) != 0 {
		t.Errorf("expected no history entries, got %d", len(rec.Entries))
	}
}

func TestGenerate_UsesEncoderOnce(t *testing.T) {
	enc := &testutil.MockEncoder{}
	g := newTestGenerator(t, Config{Encoder: enc})

	res, err := g.Generate(context.Background(), Request{Content: "abc", OutputPath: filepath.Join(t.TempDir(), "a.bmp")})
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if n := enc.CallCount("Encode"); n != 1 {
		t.Errorf("expected 1 Encode call, got %d", n)
	}
	if enc.Calls[0].Args[0] != "abc" {
		t.Errorf("expected content abc, got %v", enc.Calls[0].Args[0])
	}
	if res.Format != output.FormatBMP {
		t.Errorf("expected format inferred from extension, got %q", res.Format)
	}
}

func TestGenerate_ExplicitFormat(t *testing.T) {
	g := newTestGenerator(t, Config{})
	path := filepath.Join(t.TempDir(), "code.img")

	res, err := g.Generate(context.Background(), Request{Content: "tiff please", OutputPath: path, Format: output.FormatTIFF})
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if res.Format != output.FormatTIFF {
		t.Errorf("expected tiff, got %q", res.Format)
	}
	if got := decodeOutput(t, path); got != "tiff please" {
		t.Errorf("expected round trip through tiff, got %q", got)
	}
}

func TestGenerate_Verify(t *testing.T) {
	g := newTestGenerator(t, Config{Verify: true})
	path := filepath.Join(t.TempDir(), "expo_qr.png")

	res, err := g.Generate(context.Background(), Request{Content: defaultContent, OutputPath: path})
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if !res.Verified {
		t.Error("expected result to be verified")
	}
}

func TestGenerate_VerifyFailure(t *testing.T) {
	// A blank image decodes to nothing, so verification must fail.
	enc := &testutil.MockEncoder{}
	g := newTestGenerator(t, Config{Encoder: enc, Verify: true})
	path := filepath.Join(t.TempDir(), "blank.png")

	_, err := g.Generate(context.Background(), Request{Content: "abc", OutputPath: path})
	if !errors.Is(err, ErrVerify) {
		t.Fatalf("expected ErrVerify, got %v", err)
	}
}

func TestGenerate_Terminal(t *testing.T) {
	var buf bytes.Buffer
	g := newTestGenerator(t, Config{Terminal: &buf})

	if _, err := g.Generate(context.Background(), Request{Content: defaultContent, OutputPath: filepath.Join(t.TempDir(), "t.png")}); err != nil {
		t.Fatalf("generate: %v", err)
	}
	if buf.Len() == 0 {
		t.Error("expected terminal rendering")
	}
}

func TestGenerate_RecordsHistory(t *testing.T) {
	rec := &testutil.MockRecorder{}
	g := newTestGenerator(t, Config{History: rec, Level: qr.LevelMedium})
	path := filepath.Join(t.TempDir(), "expo_qr.png")

	res, err := g.Generate(context.Background(), Request{Content: defaultContent, OutputPath: path})
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if len(rec.Entries) != 1 {
		t.Fatalf("expected 1 history entry, got %d", len(rec.Entries))
	}
	e := rec.Entries[0]
	if e.Content != defaultContent || e.OutputPath != path {
		t.Errorf("unexpected entry: %+v", e)
	}
	if e.Encoder != qr.EncoderSkip2 || e.Level != "medium" || e.Format != "png" {
		t.Errorf("unexpected encoder fields: %+v", e)
	}
	if e.Bytes != res.Bytes || e.Width != res.Width {
		t.Errorf("entry does not match result: %+v vs %+v", e, res)
	}
}

func TestGenerate_HistoryFailureIsNotFatal(t *testing.T) {
	rec := &testutil.MockRecorder{
		RecordFn: func(context.Context, *history.Entry) (int64, error) {
			return 0, errors.New("database is locked")
		},
	}
	g := newTestGenerator(t, Config{History: rec})
	path := filepath.Join(t.TempDir(), "expo_qr.png")

	if _, err := g.Generate(context.Background(), Request{Content: defaultContent, OutputPath: path}); err != nil {
		t.Fatalf("expected success despite history failure, got %v", err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Errorf("expected output file: %v", err)
	}
}

func TestGenerate_WithHistoryStore(t *testing.T) {
	ctx := context.Background()
	logger := slog.Default()
	store, err := history.Open(ctx, ":memory:", logger, false)
	if err != nil {
		t.Fatalf("open history: %v", err)
	}
	defer store.Close()
	if err := history.Migrate(ctx, store, logger); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	g := newTestGenerator(t, Config{History: store})
	if _, err := g.Generate(ctx, Request{Content: "https://example.com", OutputPath: filepath.Join(t.TempDir(), "a.png")}); err != nil {
		t.Fatalf("generate: %v", err)
	}

	entries, err := store.Recent(ctx, 5)
	if err != nil {
		t.Fatalf("recent: %v", err)
	}
	if len(entries) != 1 || entries[0].Content != "https://example.com" {
		t.Fatalf("unexpected history: %+v", entries)
	}
}

func TestNew_RequiresEncoder(t *testing.T) {
	if _, err := New(Config{}); err == nil {
		t.Fatal("expected error without encoder")
	}
}
