package commands

import (
	"bytes"
	"fmt"
	"image"

	"github.com/jo-hoe/recipe-app/internal/backend/commandstructure"
)

// defaultMaxPixels caps width*height of any image a command decodes or rasterizes.
const defaultMaxPixels = 50_000_000

func maxPixelsParam(params map[string]any) (int, error) {
	maxPixels := commandstructure.GetIntParam(params, "maxPixels", defaultMaxPixels)
	if maxPixels <= 0 {
		return 0, fmt.Errorf("maxPixels must be positive, got %d", maxPixels)
	}
	return maxPixels, nil
}

func checkPixelLimit(width, height, maxPixels int) error {
	if width <= 0 || height <= 0 {
		return fmt.Errorf("%w: invalid dimensions %dx%d", ErrUnsupportedImage, width, height)
	}
	if int64(width)*int64(height) > int64(maxPixels) {
		return fmt.Errorf("%w: %dx%d exceeds the limit of %d pixels", ErrUnsupportedImage, width, height, maxPixels)
	}
	return nil
}

// decodeBounded reads the image header first so oversized images are rejected
// before any pixel buffer is allocated.
func decodeBounded(data []byte, maxPixels int) (image.Image, string, error) {
	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, "", fmt.Errorf("%w: %v", ErrUnsupportedImage, err)
	}
	if err := checkPixelLimit(cfg.Width, cfg.Height, maxPixels); err != nil {
		return nil, "", err
	}
	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, "", fmt.Errorf("%w: %v", ErrUnsupportedImage, err)
	}
	return img, format, nil
}
