package main

import (
	"errors"
	"fmt"
	"image"
	"image/png"
	"os"
	"strings"

	_ "image/gif"
	_ "image/jpeg"

	"github.com/nfnt/resize"
	"github.com/pixfmt/qoi"
	"github.com/spf13/pflag"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

var param struct {
	input     string
	output    string
	lossiness int
	width     uint
	height    uint
}

func init() {
	pflag.StringVarP(&param.input, "input", "i", "", "Input image (png, jpeg, gif, bmp, tiff, webp or qoi)")
	pflag.StringVarP(&param.output, "output", "o", "", "Output file (.qoi or .png)")
	pflag.IntVarP(&param.lossiness, "lossiness", "l", 0, "Per-channel run tolerance, 0 = lossless")
	pflag.UintVar(&param.width, "width", 0, "Scale to this width before encoding, 0 = keep")
	pflag.UintVar(&param.height, "height", 0, "Scale to this height before encoding, 0 = keep")
}

func evaluate() (err error) {
	if len(param.input) == 0 || len(param.output) == 0 {
		return errors.New("-input and -output are required")
	}
	if param.lossiness < 0 {
		return errors.New("-lossiness must be non-negative")
	}
	isQOI := strings.HasSuffix(param.output, ".qoi")
	if !isQOI && !strings.HasSuffix(param.output, ".png") {
		return fmt.Errorf("output '%s' not a recognized format", param.output)
	}

	reader, err := os.Open(param.input)
	if err != nil {
		return fmt.Errorf("opening input: %w", err)
	}
	defer func() { reader.Close() }()

	img, _, err := image.Decode(reader)
	if err != nil {
		return fmt.Errorf("decoding %s: %w", param.input, err)
	}

	if param.width > 0 || param.height > 0 {
		img = resize.Resize(param.width, param.height, img, resize.Lanczos3)
	}

	// The input is fully decoded before the output is created, so a bad
	// input never leaves a truncated output file behind.
	writer, err := os.Create(param.output)
	if err != nil {
		return fmt.Errorf("creating output: %w", err)
	}
	defer func() { writer.Close() }()

	if isQOI {
		err = qoi.EncodeLossy(writer, img, param.lossiness)
	} else {
		err = png.Encode(writer, img)
	}
	if err != nil {
		return fmt.Errorf("encoding %s: %w", param.output, err)
	}

	return nil
}

func main() {
	pflag.Parse()
	if err := evaluate(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
