// Package qrcode renders a connect URL as a QR code PNG (C10). Pure
// function: no I/O beyond returning bytes. See spec.md §4.8.
package qrcode

import (
	"bytes"
	"image"
	"image/color"
	"image/png"

	"github.com/creasty/defaults"
	goqrcode "github.com/skip2/go-qrcode"
	"github.com/pkg/errors"
	"golang.org/x/image/draw"
)

// Level is one of the four QR error-correction levels (spec.md §4.8).
type Level int

const (
	LevelL Level = iota
	LevelM
	LevelQ
	LevelH
)

// Options configures Generate. PixelSize defaults to 256. Level gets no
// default in Generate: its zero value is LevelL, and DefaultOptions sets
// LevelM. Foreground/Background default to black-on-white
// when left as the zero color.RGBA (fully transparent), since a QR
// code with a transparent foreground and background would be useless.
type Options struct {
	PixelSize  int `default:"256"`
	Level      Level
	Foreground color.RGBA
	Background color.RGBA
}

var (
	defaultForeground = color.RGBA{R: 0, G: 0, B: 0, A: 255}
	defaultBackground = color.RGBA{R: 255, G: 255, B: 255, A: 255}
)

// DefaultOptions returns the spec's default rendering: 256px, level M,
// black-on-white.
func DefaultOptions() Options {
	opts := Options{Level: LevelM, Foreground: defaultForeground, Background: defaultBackground}
	_ = defaults.Set(&opts)
	return opts
}

// Generate encodes content into a QR code and returns PNG bytes
// rendered at opts.PixelSize using opts.Foreground/Background.
func Generate(content string, opts Options) ([]byte, error) {
	if err := defaults.Set(&opts); err != nil {
		return nil, errors.Wrap(err, "applying default options")
	}
	if opts.Foreground == (color.RGBA{}) {
		opts.Foreground = defaultForeground
	}
	if opts.Background == (color.RGBA{}) {
		opts.Background = defaultBackground
	}

	qr, err := goqrcode.New(content, toRecoveryLevel(opts.Level))
	if err != nil {
		return nil, errors.Wrap(err, "encoding QR content")
	}

	base := moduleImage(qr.Bitmap(), opts.Foreground, opts.Background)

	// Scale with NearestNeighbor, not bilinear: a QR code's modules
	// must stay hard-edged at any pixel size or scanners misread them.
	scaled := image.NewNRGBA(image.Rect(0, 0, opts.PixelSize, opts.PixelSize))
	draw.NearestNeighbor.Scale(scaled, scaled.Bounds(), base, base.Bounds(), draw.Over, nil)

	var buf bytes.Buffer
	if err := png.Encode(&buf, scaled); err != nil {
		return nil, errors.Wrap(err, "encoding PNG")
	}
	return buf.Bytes(), nil
}

func toRecoveryLevel(l Level) goqrcode.RecoveryLevel {
	switch l {
	case LevelL:
		return goqrcode.Low
	case LevelQ:
		return goqrcode.High
	case LevelH:
		return goqrcode.Highest
	default:
		return goqrcode.Medium
	}
}

// moduleImage renders the raw module grid at one pixel per module,
// using fg/bg in place of go-qrcode's fixed black/white palette.
func moduleImage(modules [][]bool, fg, bg color.RGBA) *image.Paletted {
	h := len(modules)
	w := 0
	if h > 0 {
		w = len(modules[0])
	}

	img := image.NewPaletted(image.Rect(0, 0, w, h), color.Palette{bg, fg})
	for y, row := range modules {
		for x, dark := range row {
			if dark {
				img.SetColorIndex(x, y, 1)
			}
		}
	}
	return img
}
