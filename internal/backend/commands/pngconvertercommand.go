package commands

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"log/slog"
	"regexp"
	"strconv"

	"github.com/jo-hoe/recipe-app/internal/backend/commandstructure"

	_ "image/gif"
	_ "image/jpeg"

	"github.com/srwiley/oksvg"
	"github.com/srwiley/rasterx"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// ErrUnsupportedImage is returned when uploaded bytes cannot be decoded as an image.
var ErrUnsupportedImage = errors.New("upload a valid image; the file you uploaded was either not an image or a corrupted image")

const (
	defaultSVGSize = 512
	svgSniffLimit  = 4096
)

var (
	pngSignature   = []byte{0x89, 'P', 'N', 'G', 0x0D, 0x0A, 0x1A, 0x0A}
	svgTagPattern  = regexp.MustCompile(`(?is)<svg\b[^>]*>`)
	svgSizePattern = regexp.MustCompile(`(?i)\b(width|height)\s*=\s*["']\s*([0-9]+(?:\.[0-9]+)?)`)
)

func hasCorrectPngSignature(data []byte) bool {
	return len(data) >= len(pngSignature) && bytes.Equal(data[:len(pngSignature)], pngSignature)
}

// PngConverterCommand normalises any supported upload (png, jpeg, gif, bmp, tiff,
// webp, svg) into PNG.
type PngConverterCommand struct {
	name              string
	svgFallbackWidth  int
	svgFallbackHeight int
	maxPixels         int
}

func NewPngConverterCommand(params map[string]any) (commandstructure.Command, error) {
	w := commandstructure.GetIntParam(params, "svgFallbackWidth", defaultSVGSize)
	h := commandstructure.GetIntParam(params, "svgFallbackHeight", defaultSVGSize)
	if w <= 0 || h <= 0 {
		return nil, fmt.Errorf("svg fallback size must be positive, got %dx%d", w, h)
	}
	maxPixels, err := maxPixelsParam(params)
	if err != nil {
		return nil, err
	}

	return &PngConverterCommand{
		name:              "PngConverterCommand",
		svgFallbackWidth:  w,
		svgFallbackHeight: h,
		maxPixels:         maxPixels,
	}, nil
}

func (c *PngConverterCommand) Name() string {
	return c.name
}

func (c *PngConverterCommand) Execute(imageData []byte) ([]byte, error) {
	if len(imageData) == 0 {
		return nil, ErrUnsupportedImage
	}

	if hasCorrectPngSignature(imageData) {
		// Verify the payload instead of trusting the signature alone.
		cfg, err := png.DecodeConfig(bytes.NewReader(imageData))
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrUnsupportedImage, err)
		}
		if err := checkPixelLimit(cfg.Width, cfg.Height, c.maxPixels); err != nil {
			return nil, err
		}
		return imageData, nil
	}

	if isSVGData(imageData) {
		return c.convertSVG(imageData)
	}

	img, format, err := decodeBounded(imageData, c.maxPixels)
	if err != nil {
		return nil, err
	}
	slog.Debug("PngConverterCommand: decoded raster image",
		"format", format,
		"width", img.Bounds().Dx(),
		"height", img.Bounds().Dy())

	return encodePNG(img)
}

func (c *PngConverterCommand) convertSVG(svgData []byte) ([]byte, error) {
	w, h, ok := parseSvgExplicitSize(svgData, c.maxPixels)
	if !ok {
		w, h = c.svgFallbackWidth, c.svgFallbackHeight
	}
	if err := checkPixelLimit(w, h, c.maxPixels); err != nil {
		return nil, err
	}

	icon, err := oksvg.ReadIconStream(bytes.NewReader(svgData))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnsupportedImage, err)
	}
	icon.SetTarget(0, 0, float64(w), float64(h))

	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.Draw(dst, dst.Bounds(), &image.Uniform{C: color.White}, image.Point{}, draw.Src)

	scanner := rasterx.NewScannerGV(w, h, dst, dst.Bounds())
	dasher := rasterx.NewDasher(w, h, scanner)
	icon.Draw(dasher, 1.0)

	return encodePNG(dst)
}

// parseSvgExplicitSize reads integer pixel width/height from the root <svg> tag.
// viewBox is not treated as a pixel size. Values above limit are clamped to
// limit+1 so the caller's pixel check rejects them without int overflow.
func parseSvgExplicitSize(data []byte, limit int) (int, int, bool) {
	tag := svgTagPattern.Find(data)
	if tag == nil {
		return 0, 0, false
	}
	var w, h int
	for _, m := range svgSizePattern.FindAllSubmatch(tag, -1) {
		v, err := strconv.ParseFloat(string(m[2]), 64)
		if err != nil || v <= 0 {
			continue
		}
		v = min(v, float64(limit)+1)
		switch string(bytes.ToLower(m[1])) {
		case "width":
			w = int(v)
		case "height":
			h = int(v)
		}
	}
	return w, h, w > 0 && h > 0
}

func isSVGData(data []byte) bool {
	n := min(len(data), svgSniffLimit)
	header := bytes.ToLower(bytes.TrimSpace(data[:n]))
	return bytes.Contains(header, []byte("<svg"))
}

func encodePNG(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("failed to encode image to PNG: %w", err)
	}
	return buf.Bytes(), nil
}

func init() {
	if err := commandstructure.DefaultRegistry.Register("PngConverterCommand", NewPngConverterCommand); err != nil {
		panic(fmt.Sprintf("failed to register PngConverterCommand: %v", err))
	}
}
