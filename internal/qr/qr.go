// Package qr turns text into QR code raster images and reads them back.
//
// Symbol encoding is delegated to third-party backends; this package only
// normalizes their options so every backend produces the same geometry:
// Scale pixels per module and a 4-module quiet zone on each side.
package qr

import (
	"fmt"
	"image"
	"sort"
	"strings"
)

const (
	// DefaultScale is the number of pixels per module.
	DefaultScale = 10
	// MaxScale bounds the image size for very large symbols.
	MaxScale = 100
	// QuietZone is the blank border, in modules, around the symbol.
	QuietZone = 4
)

// Level is the QR error correction level.
type Level int

const (
	LevelLow Level = iota
	LevelMedium
	LevelQuartile
	LevelHigh
)

var levelNames = map[Level]string{
	LevelLow:      "low",
	LevelMedium:   "medium",
	LevelQuartile: "quartile",
	LevelHigh:     "high",
}

func (l Level) String() string {
	if name, ok := levelNames[l]; ok {
		return name
	}
	return fmt.Sprintf("Level(%d)", int(l))
}

// ParseLevel accepts the level names case-insensitively, plus the
// single-letter forms L, M, Q and H.
func ParseLevel(s string) (Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "low", "l":
		return LevelLow, nil
	case "medium", "m":
		return LevelMedium, nil
	case "quartile", "q":
		return LevelQuartile, nil
	case "high", "h":
		return LevelHigh, nil
	}
	return 0, fmt.Errorf("unknown error correction level %q", s)
}

// Options controls symbol rendering.
type Options struct {
	Level Level
	Scale int
}

func (o Options) scale() int {
	if o.Scale <= 0 {
		return DefaultScale
	}
	return o.Scale
}

// Encoder encodes text into a QR code raster image.
type Encoder interface {
	Encode(content string) (image.Image, error)
}

const (
	EncoderSkip2     = "skip2"
	EncoderRSC       = "rsc"
	EncoderBoombuler = "boombuler"
)

var encoders = map[string]func(Options) Encoder{
	EncoderSkip2:     func(o Options) Encoder { return &skip2Encoder{opts: o} },
	EncoderRSC:       func(o Options) Encoder { return &rscEncoder{opts: o} },
	EncoderBoombuler: func(o Options) Encoder { return &boombulerEncoder{opts: o} },
}

// NewEncoder returns the named backend configured with opts.
func NewEncoder(name string, opts Options) (Encoder, error) {
	ctor, ok := encoders[strings.ToLower(name)]
	if !ok {
		return nil, fmt.Errorf("qr: unknown encoder %q", name)
	}
	if opts.Scale > MaxScale {
		return nil, fmt.Errorf("qr: scale %d exceeds maximum %d", opts.Scale, MaxScale)
	}
	return ctor(opts), nil
}

// KnownEncoder reports whether name is a registered backend.
func KnownEncoder(name string) bool {
	_, ok := encoders[strings.ToLower(name)]
	return ok
}

// EncoderNames lists the registered backends in sorted order.
func EncoderNames() []string {
	names := make([]string, 0, len(encoders))
	for name := range encoders {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
