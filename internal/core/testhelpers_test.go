package core

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/jpeg"
	"testing"

	"github.com/jo-hoe/recipe-app/internal/backend/cache"
	"github.com/jo-hoe/recipe-app/internal/backend/database"
)

func newTestService(t *testing.T, tokenCache cache.TokenCache) *CoreService {
	t.Helper()
	config := DefaultConfig()
	config.Database.Type = database.DialectSQLite
	config.Database.ConnectionString = ":memory:"
	config.Media.Root = t.TempDir()

	db, err := database.NewDatabase(context.Background(), config.Database.Type, config.Database.DSN(), 0)
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	service := NewCoreService(config, db, tokenCache)
	t.Cleanup(func() { _ = service.Close() })
	return service
}

func mustCreateUser(t *testing.T, service *CoreService, email string) *database.User {
	t.Helper()
	user, err := service.CreateUser(context.Background(), email, "testpass123", "Test Name")
	if err != nil {
		t.Fatalf("failed to create user %s: %v", email, err)
	}
	return user
}

func ptr[T any](v T) *T {
	return &v
}

func requireCoreError(t *testing.T, err error, status int) *Error {
	t.Helper()
	var coreErr *Error
	if !errors.As(err, &coreErr) {
		t.Fatalf("expected *core.Error with status %d, got %v", status, err)
	}
	if coreErr.Status != status {
		t.Fatalf("expected status %d, got %d (%v)", status, coreErr.Status, coreErr)
	}
	return coreErr
}

func testJPEG(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{R: 200, G: uint8(x), B: uint8(y), A: 255})
		}
	}
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, nil); err != nil {
		t.Fatalf("failed to encode jpeg: %v", err)
	}
	return buf.Bytes()
}
