package commands

import (
	"fmt"
	"image"
	"log/slog"

	"github.com/jo-hoe/recipe-app/internal/backend/commandstructure"
	"golang.org/x/image/draw"
)

// ScaleParams bounds the output size. A zero value leaves that axis unbounded.
type ScaleParams struct {
	MaxWidth  int
	MaxHeight int
	// MaxPixels bounds width*height of the decoded input.
	MaxPixels int
}

func NewScaleParamsFromMap(params map[string]any) (*ScaleParams, error) {
	_, hasWidth := params["maxWidth"]
	_, hasHeight := params["maxHeight"]
	if !hasWidth && !hasHeight {
		return nil, fmt.Errorf("at least one of 'maxWidth' or 'maxHeight' must be specified")
	}

	maxPixels, err := maxPixelsParam(params)
	if err != nil {
		return nil, err
	}
	result := &ScaleParams{MaxPixels: maxPixels}
	if hasWidth {
		result.MaxWidth = commandstructure.GetIntParam(params, "maxWidth", 0)
		if result.MaxWidth <= 0 {
			return nil, fmt.Errorf("maxWidth must be positive, got %d", result.MaxWidth)
		}
	}
	if hasHeight {
		result.MaxHeight = commandstructure.GetIntParam(params, "maxHeight", 0)
		if result.MaxHeight <= 0 {
			return nil, fmt.Errorf("maxHeight must be positive, got %d", result.MaxHeight)
		}
	}
	return result, nil
}

// ScaleCommand shrinks images that exceed the configured bounds, preserving aspect
// ratio. Images already within bounds are returned unchanged.
type ScaleCommand struct {
	name   string
	params *ScaleParams
}

func NewScaleCommand(params map[string]any) (commandstructure.Command, error) {
	typedParams, err := NewScaleParamsFromMap(params)
	if err != nil {
		return nil, err
	}
	return &ScaleCommand{
		name:   "ScaleCommand",
		params: typedParams,
	}, nil
}

func (c *ScaleCommand) Name() string {
	return c.name
}

func (c *ScaleCommand) GetParams() *ScaleParams {
	return c.params
}

func (c *ScaleCommand) Execute(imageData []byte) ([]byte, error) {
	src, _, err := decodeBounded(imageData, c.params.MaxPixels)
	if err != nil {
		return nil, err
	}

	b := src.Bounds()
	w, h := computeScaledDimensions(b.Dx(), b.Dy(), c.params.MaxWidth, c.params.MaxHeight)
	if w == b.Dx() && h == b.Dy() {
		slog.Debug("ScaleCommand: image within bounds, skipping", "width", w, "height", h)
		return imageData, nil
	}

	slog.Debug("ScaleCommand: scaling image",
		"original_width", b.Dx(),
		"original_height", b.Dy(),
		"target_width", w,
		"target_height", h)

	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.CatmullRom.Scale(dst, dst.Bounds(), src, b, draw.Over, nil)
	return encodePNG(dst)
}

// computeScaledDimensions fits (width, height) inside (maxWidth, maxHeight) without
// upscaling. Zero bounds are ignored. Results are at least 1px.
func computeScaledDimensions(width, height, maxWidth, maxHeight int) (int, int) {
	if width <= 0 || height <= 0 {
		return width, height
	}
	scale := 1.0
	if maxWidth > 0 && width > maxWidth {
		scale = min(scale, float64(maxWidth)/float64(width))
	}
	if maxHeight > 0 && height > maxHeight {
		scale = min(scale, float64(maxHeight)/float64(height))
	}
	if scale == 1.0 {
		return width, height
	}
	return max(1, int(float64(width)*scale+0.5)), max(1, int(float64(height)*scale+0.5))
}

func init() {
	if err := commandstructure.DefaultRegistry.Register("ScaleCommand", NewScaleCommand); err != nil {
		panic(fmt.Sprintf("failed to register ScaleCommand: %v", err))
	}
}
