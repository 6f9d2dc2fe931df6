package commands

import (
	"bytes"
	"errors"
	"testing"

	"github.com/jo-hoe/recipe-app/internal/backend/commandstructure"
)

func newTestPngConverter(t *testing.T) commandstructure.Command {
	t.Helper()
	cmd, err := NewPngConverterCommand(map[string]any{})
	if err != nil {
		t.Fatalf("failed to create PngConverterCommand: %v", err)
	}
	return cmd
}

func TestPngConverterCommand_Name(t *testing.T) {
	if got := newTestPngConverter(t).Name(); got != "PngConverterCommand" {
		t.Errorf("expected name 'PngConverterCommand', got %q", got)
	}
}

func TestPngConverterCommand_PngPassThrough(t *testing.T) {
	input := encodeTestPNG(t, createTestImage(10, 8))

	out, err := newTestPngConverter(t).Execute(input)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !bytes.Equal(out, input) {
		t.Error("expected png input to be returned unchanged")
	}
}

func TestPngConverterCommand_JpegToPng(t *testing.T) {
	input := encodeTestJPEG(t, createTestImage(20, 12))

	out, err := newTestPngConverter(t).Execute(input)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !hasCorrectPngSignature(out) {
		t.Fatal("expected png signature on output")
	}
	cfg := decodePNGConfig(t, out)
	if cfg.Width != 20 || cfg.Height != 12 {
		t.Errorf("expected 20x12, got %dx%d", cfg.Width, cfg.Height)
	}
}

func TestPngConverterCommand_SvgWithExplicitSize(t *testing.T) {
	svg := []byte(`<svg xmlns="http://www.w3.org/2000/svg" width="64" height="32" viewBox="0 0 64 32"><rect x="0" y="0" width="64" height="32" fill="#ff0000"/></svg>`)

	out, err := newTestPngConverter(t).Execute(svg)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	cfg := decodePNGConfig(t, out)
	if cfg.Width != 64 || cfg.Height != 32 {
		t.Errorf("expected 64x32, got %dx%d", cfg.Width, cfg.Height)
	}
}

func TestPngConverterCommand_SvgFallbackSize(t *testing.T) {
	cmd, err := NewPngConverterCommand(map[string]any{"svgFallbackWidth": 40, "svgFallbackHeight": 30})
	if err != nil {
		t.Fatalf("failed to create command: %v", err)
	}
	svg := []byte(`<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 10 10"><circle cx="5" cy="5" r="4" fill="blue"/></svg>`)

	out, err := cmd.Execute(svg)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	cfg := decodePNGConfig(t, out)
	if cfg.Width != 40 || cfg.Height != 30 {
		t.Errorf("expected 40x30, got %dx%d", cfg.Width, cfg.Height)
	}
}

func TestPngConverterCommand_RejectsNonImage(t *testing.T) {
	cases := map[string][]byte{
		"empty":     {},
		"text":      []byte("this is not an image"),
		"truncated": append([]byte{}, pngSignature...),
	}
	for name, input := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := newTestPngConverter(t).Execute(input)
			if !errors.Is(err, ErrUnsupportedImage) {
				t.Errorf("expected ErrUnsupportedImage, got %v", err)
			}
		})
	}
}

func TestNewPngConverterCommand_InvalidFallback(t *testing.T) {
	if _, err := NewPngConverterCommand(map[string]any{"svgFallbackWidth": 0}); err == nil {
		t.Error("expected error for zero fallback width")
	}
	if _, err := NewPngConverterCommand(map[string]any{"maxPixels": -5}); err == nil {
		t.Error("expected error for negative maxPixels")
	}
}

func TestPngConverterCommand_RejectsOversizedSvg(t *testing.T) {
	svg := []byte(`<svg xmlns="http://www.w3.org/2000/svg" width="40000" height="40000"><rect width="1" height="1"/></svg>`)

	_, err := newTestPngConverter(t).Execute(svg)
	if !errors.Is(err, ErrUnsupportedImage) {
		t.Errorf("expected ErrUnsupportedImage, got %v", err)
	}
}

func TestPngConverterCommand_RejectsOversizedSvgFallback(t *testing.T) {
	cmd, err := NewPngConverterCommand(map[string]any{"svgFallbackWidth": 100, "svgFallbackHeight": 100, "maxPixels": 50})
	if err != nil {
		t.Fatalf("failed to create command: %v", err)
	}
	svg := []byte(`<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 10 10"/>`)
	if _, err := cmd.Execute(svg); !errors.Is(err, ErrUnsupportedImage) {
		t.Errorf("expected ErrUnsupportedImage, got %v", err)
	}
}

func TestPngConverterCommand_RejectsOversizedPngHeader(t *testing.T) {
	_, err := newTestPngConverter(t).Execute(pngHeaderOnly(t, 40000, 40000))
	if !errors.Is(err, ErrUnsupportedImage) {
		t.Errorf("expected ErrUnsupportedImage, got %v", err)
	}
}

func TestPngConverterCommand_RejectsOversizedJpeg(t *testing.T) {
	cmd, err := NewPngConverterCommand(map[string]any{"maxPixels": 100})
	if err != nil {
		t.Fatalf("failed to create command: %v", err)
	}
	if _, err := cmd.Execute(encodeTestJPEG(t, createTestImage(20, 20))); !errors.Is(err, ErrUnsupportedImage) {
		t.Errorf("expected ErrUnsupportedImage, got %v", err)
	}
}

func Test_parseSvgExplicitSize(t *testing.T) {
	tests := []struct {
		name   string
		input  string
		w, h   int
		wantOK bool
	}{
		{"both set", `<svg width="100" height="50">`, 100, 50, true},
		{"decimal", `<svg width='12.7' height='3'>`, 12, 3, true},
		{"width only", `<svg width="100">`, 0, 0, false},
		{"viewBox only", `<svg viewBox="0 0 10 10">`, 0, 0, false},
		{"no svg", `<html></html>`, 0, 0, false},
		{"clamped", `<svg width="99999999999999999999999" height="5">`, 1001, 5, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, h, ok := parseSvgExplicitSize([]byte(tt.input), 1000)
			if ok != tt.wantOK {
				t.Fatalf("expected ok=%v, got %v", tt.wantOK, ok)
			}
			if ok && (w != tt.w || h != tt.h) {
				t.Errorf("expected %dx%d, got %dx%d", tt.w, tt.h, w, h)
			}
		})
	}
}

func TestPngConverterCommand_RegisteredInDefaultRegistry(t *testing.T) {
	if !commandstructure.DefaultRegistry.IsRegistered("PngConverterCommand") {
		t.Error("PngConverterCommand is not registered")
	}
}
