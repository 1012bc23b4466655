package qr

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"

	"github.com/boombuler/barcode"
	boombulerqr "github.com/boombuler/barcode/qr"
	skip2 "github.com/skip2/go-qrcode"
	rscqr "rsc.io/qr"
)

// skip2Encoder uses github.com/skip2/go-qrcode. Its quiet zone is already
// 4 modules wide, and a negative size asks for a fixed pixels-per-module.
// skip2 refuses empty payloads, so those go through rsc.io/qr, which draws
// the same geometry.
type skip2Encoder struct {
	opts Options
}

func (e *skip2Encoder) Encode(content string) (image.Image, error) {
	if content == "" {
		return (&rscEncoder{opts: e.opts}).Encode(content)
	}
	code, err := skip2.New(content, skip2Level(e.opts.Level))
	if err != nil {
		return nil, fmt.Errorf("skip2: %w", err)
	}
	return code.Image(-e.opts.scale()), nil
}

func skip2Level(l Level) skip2.RecoveryLevel {
	switch l {
	case LevelLow:
		return skip2.Low
	case LevelQuartile:
		return skip2.High
	case LevelHigh:
		return skip2.Highest
	default:
		return skip2.Medium
	}
}

// rscEncoder uses rsc.io/qr, whose Image also draws a 4-module border.
type rscEncoder struct {
	opts Options
}

func (e *rscEncoder) Encode(content string) (image.Image, error) {
	code, err := rscqr.Encode(content, rscLevel(e.opts.Level))
	if err != nil {
		return nil, fmt.Errorf("rsc: %w", err)
	}
	code.Scale = e.opts.scale()
	return code.Image(), nil
}

func rscLevel(l Level) rscqr.Level {
	switch l {
	case LevelLow:
		return rscqr.L
	case LevelQuartile:
		return rscqr.Q
	case LevelHigh:
		return rscqr.H
	default:
		return rscqr.M
	}
}

// boombulerEncoder uses github.com/boombuler/barcode. That library renders
// the bare symbol, so the quiet zone is added here.
type boombulerEncoder struct {
	opts Options
}

func (e *boombulerEncoder) Encode(content string) (image.Image, error) {
	code, err := boombulerqr.Encode(content, boombulerLevel(e.opts.Level), boombulerqr.Auto)
	if err != nil {
		return nil, fmt.Errorf("boombuler: %w", err)
	}

	scale := e.opts.scale()
	modules := code.Bounds().Dx()
	scaled, err := barcode.Scale(code, modules*scale, modules*scale)
	if err != nil {
		return nil, fmt.Errorf("boombuler: scale: %w", err)
	}

	border := QuietZone * scale
	side := modules*scale + 2*border
	img := image.NewGray(image.Rect(0, 0, side, side))
	draw.Draw(img, img.Bounds(), image.NewUniform(color.White), image.Point{}, draw.Src)
	draw.Draw(img, scaled.Bounds().Add(image.Pt(border, border)), scaled, scaled.Bounds().Min, draw.Src)
	return img, nil
}

func boombulerLevel(l Level) boombulerqr.ErrorCorrectionLevel {
	switch l {
	case LevelLow:
		return boombulerqr.L
	case LevelQuartile:
		return boombulerqr.Q
	case LevelHigh:
		return boombulerqr.H
	default:
		return boombulerqr.M
	}
}
