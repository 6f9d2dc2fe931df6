package core

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/jo-hoe/recipe-app/internal/backend/commands"
	"github.com/jo-hoe/recipe-app/internal/backend/commandstructure"
	"github.com/jo-hoe/recipe-app/internal/backend/database"
)

const recipeImageDir = "uploads/recipe"

// UploadRecipeImage runs the image pipeline on data, stores the result below the
// media root and points the recipe at it. A previous image file is removed.
func (service *CoreService) UploadRecipeImage(ctx context.Context, user *database.User, id int64, data []byte) (*database.Recipe, error) {
	recipe, err := service.GetRecipe(ctx, user, id)
	if err != nil {
		return nil, err
	}
	if len(data) == 0 {
		return nil, fieldError("image", "The submitted file is empty.")
	}

	processed, err := commandstructure.ExecuteCommands(data, service.config.PipelineConfigs())
	if errors.Is(err, commands.ErrUnsupportedImage) {
		return nil, fieldError("image", msgInvalidImage)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to process image: %w", err)
	}

	relPath := path.Join(recipeImageDir, uuid.NewString()+".png")
	if err := service.writeMediaFile(relPath, processed); err != nil {
		return nil, err
	}

	if err := service.databaseService.SetRecipeImage(ctx, user.ID, id, relPath); err != nil {
		service.removeMediaFile(relPath)
		return nil, notFoundOr(err)
	}
	service.removeMediaFile(recipe.Image)

	slog.Info("recipe image stored", "recipe_id", id, "path", relPath, "size_bytes", len(processed))
	recipe.Image = relPath
	return recipe, nil
}

// MediaURL returns the public URL path of a stored media file, or "" when unset.
func (service *CoreService) MediaURL(relPath string) string {
	if relPath == "" {
		return ""
	}
	return strings.TrimSuffix(service.config.Media.URL, "/") + "/" + relPath
}

func (service *CoreService) mediaFilePath(relPath string) string {
	return filepath.Join(service.config.Media.Root, filepath.FromSlash(relPath))
}

func (service *CoreService) writeMediaFile(relPath string, data []byte) error {
	full := service.mediaFilePath(relPath)
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return fmt.Errorf("failed to create media directory: %w", err)
	}
	if err := os.WriteFile(full, data, 0o644); err != nil {
		return fmt.Errorf("failed to write media file %s: %w", relPath, err)
	}
	return nil
}

func (service *CoreService) removeMediaFile(relPath string) {
	if relPath == "" {
		return
	}
	if err := os.Remove(service.mediaFilePath(relPath)); err != nil && !errors.Is(err, os.ErrNotExist) {
		slog.Warn("failed to remove media file", "path", relPath, "error", err)
	}
}
