// Command folio-qrcode renders a connect URL to a QR code PNG file, for
// scripting or headless use of the QRCodeGenerator (C10) outside the
// catalog page that embeds it inline.
package main

import (
	"fmt"
	"os"

	"github.com/jessevdk/go-flags"
	"github.com/robinjoseph08/golib/logger"

	"github.com/foliobooks/folio/pkg/qrcode"
)

func main() {
	log := logger.New()

	var opts struct {
		Output    string `short:"o" long:"output" description:"Path to write the PNG to" default:"qrcode.png"`
		PixelSize int    `long:"pixel-size" description:"Output image size in pixels" default:"256"`
		Level     string `long:"level" description:"Error-correction level: L, M, Q, or H" default:"M"`
	}

	args, err := flags.Parse(&opts)
	if err != nil {
		log.Err(err).Fatal("flags parse error")
	}

	if len(args) != 1 {
		fmt.Println("go run ./cmd/folio-qrcode -o qrcode.png <connect-url>")
		os.Exit(1)
	}

	level, err := parseLevel(opts.Level)
	if err != nil {
		log.Err(err).Fatal("invalid error-correction level")
	}

	genOpts := qrcode.DefaultOptions()
	genOpts.PixelSize = opts.PixelSize
	genOpts.Level = level

	png, err := qrcode.Generate(args[0], genOpts)
	if err != nil {
		log.Err(err).Fatal("qrcode generation error")
	}

	if err := os.WriteFile(opts.Output, png, 0o644); err != nil {
		log.Err(err).Fatal("file write error")
	}

	log.Info("wrote qr code", logger.Data{"path": opts.Output, "bytes": len(png)})
}

func parseLevel(s string) (qrcode.Level, error) {
	switch s {
	case "L", "l":
		return qrcode.LevelL, nil
	case "M", "m":
		return qrcode.LevelM, nil
	case "Q", "q":
		return qrcode.LevelQ, nil
	case "H", "h":
		return qrcode.LevelH, nil
	default:
		return 0, fmt.Errorf("unknown level %q (want L, M, Q, or H)", s)
	}
}
