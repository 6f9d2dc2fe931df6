package backend

import (
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/jo-hoe/recipe-app/internal/backend/database"
	"github.com/jo-hoe/recipe-app/internal/core"
	"github.com/labstack/echo/v4"
)

// maxImageUploadBytes bounds the multipart image part read into memory.
const maxImageUploadBytes = 20 << 20

func (service *APIService) listRecipesHandler(ctx echo.Context) error {
	tagIDs, err := parseIDList(ctx.QueryParam("tags"), "tags")
	if err != nil {
		return service.respondError(ctx, "listRecipesHandler", err)
	}
	ingredientIDs, err := parseIDList(ctx.QueryParam("ingredients"), "ingredients")
	if err != nil {
		return service.respondError(ctx, "listRecipesHandler", err)
	}

	recipes, err := service.coreService.ListRecipes(ctx.Request().Context(), currentUser(ctx), database.RecipeFilter{
		TagIDs:        tagIDs,
		IngredientIDs: ingredientIDs,
	})
	if err != nil {
		return service.respondError(ctx, "listRecipesHandler", err)
	}

	out := make([]recipeResponse, 0, len(recipes))
	for _, r := range recipes {
		out = append(out, toRecipeResponse(r))
	}
	return ctx.JSON(http.StatusOK, out)
}

func (service *APIService) createRecipeHandler(ctx echo.Context) error {
	var req recipeRequest
	if err := ctx.Bind(&req); err != nil {
		return service.respondError(ctx, "createRecipeHandler", err)
	}

	recipe, err := service.coreService.CreateRecipe(ctx.Request().Context(), currentUser(ctx), req.toInput())
	if err != nil {
		return service.respondError(ctx, "createRecipeHandler", err)
	}
	return ctx.JSON(http.StatusCreated, service.toRecipeDetail(ctx, recipe))
}

func (service *APIService) getRecipeHandler(ctx echo.Context) error {
	id, err := pathID(ctx)
	if err != nil {
		return service.respondError(ctx, "getRecipeHandler", err)
	}
	recipe, err := service.coreService.GetRecipe(ctx.Request().Context(), currentUser(ctx), id)
	if err != nil {
		return service.respondError(ctx, "getRecipeHandler", err)
	}
	return ctx.JSON(http.StatusOK, service.toRecipeDetail(ctx, recipe))
}

// updateRecipeHandler serves PUT (full) and PATCH (partial).
func (service *APIService) updateRecipeHandler(ctx echo.Context) error {
	id, err := pathID(ctx)
	if err != nil {
		return service.respondError(ctx, "updateRecipeHandler", err)
	}
	var req recipeRequest
	if err := ctx.Bind(&req); err != nil {
		return service.respondError(ctx, "updateRecipeHandler", err)
	}

	partial := ctx.Request().Method == http.MethodPatch
	recipe, err := service.coreService.UpdateRecipe(ctx.Request().Context(), currentUser(ctx), id, req.toInput(), partial)
	if err != nil {
		return service.respondError(ctx, "updateRecipeHandler", err)
	}
	return ctx.JSON(http.StatusOK, service.toRecipeDetail(ctx, recipe))
}

func (service *APIService) deleteRecipeHandler(ctx echo.Context) error {
	id, err := pathID(ctx)
	if err != nil {
		return service.respondError(ctx, "deleteRecipeHandler", err)
	}
	if err := service.coreService.DeleteRecipe(ctx.Request().Context(), currentUser(ctx), id); err != nil {
		return service.respondError(ctx, "deleteRecipeHandler", err)
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (service *APIService) uploadRecipeImageHandler(ctx echo.Context) error {
	id, err := pathID(ctx)
	if err != nil {
		return service.respondError(ctx, "uploadRecipeImageHandler", err)
	}
	// a foreign or missing recipe answers 404 whatever the body holds
	if _, err := service.coreService.GetRecipe(ctx.Request().Context(), currentUser(ctx), id); err != nil {
		return service.respondError(ctx, "uploadRecipeImageHandler", err)
	}

	file, err := ctx.FormFile("image")
	if err != nil {
		slog.Debug("uploadRecipeImageHandler: no image part", "status", http.StatusBadRequest, "error", err)
		return service.respondError(ctx, "uploadRecipeImageHandler", fieldError("image", "No file was submitted."))
	}
	src, err := file.Open()
	if err != nil {
		return service.respondError(ctx, "uploadRecipeImageHandler", err)
	}
	defer func() {
		if cerr := src.Close(); cerr != nil {
			slog.Error("uploadRecipeImageHandler: failed to close uploaded file reader", "error", cerr, "filename", file.Filename)
		}
	}()

	data, err := io.ReadAll(io.LimitReader(src, maxImageUploadBytes+1))
	if err != nil {
		return service.respondError(ctx, "uploadRecipeImageHandler", err)
	}
	if len(data) > maxImageUploadBytes {
		return service.respondError(ctx, "uploadRecipeImageHandler", fieldError("image", "The submitted file is too large."))
	}

	recipe, err := service.coreService.UploadRecipeImage(ctx.Request().Context(), currentUser(ctx), id, data)
	if err != nil {
		return service.respondError(ctx, "uploadRecipeImageHandler", err)
	}
	return ctx.JSON(http.StatusOK, recipeImageResponse{ID: recipe.ID, Image: service.absoluteMediaURL(ctx, recipe.Image)})
}

func (service *APIService) toRecipeDetail(ctx echo.Context, recipe *database.Recipe) recipeDetailResponse {
	return recipeDetailResponse{
		recipeResponse: toRecipeResponse(recipe),
		Description:    recipe.Description,
		Image:          service.absoluteMediaURL(ctx, recipe.Image),
	}
}

func (req recipeRequest) toInput() core.RecipeInput {
	return core.RecipeInput{
		Title:       req.Title,
		Description: req.Description,
		TimeMinutes: req.TimeMinutes,
		Price:       req.Price,
		Link:        req.Link,
		Tags:        attributeNames(req.Tags),
		Ingredients: attributeNames(req.Ingredients),
	}
}

func fieldError(field, message string) *core.Error {
	return (&core.Error{Status: http.StatusBadRequest, Code: core.CodeInvalid, Message: message}).
		WithDetails(map[string]any{field: []string{message}})
}

// parseIDList parses a comma separated list of IDs such as "1,2".
func parseIDList(raw, field string) ([]int64, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, nil
	}
	var ids []int64
	for _, part := range strings.Split(raw, ",") {
		id, err := strconv.ParseInt(strings.TrimSpace(part), 10, 64)
		if err != nil {
			return nil, fieldError(field, "Enter a comma separated list of ids.")
		}
		ids = append(ids, id)
	}
	return ids, nil
}
