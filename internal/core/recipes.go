package core

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"unicode/utf8"

	"github.com/jo-hoe/recipe-app/internal/backend/database"
	"github.com/shopspring/decimal"
)

const (
	maxTitleLength     = 255
	maxLinkLength      = 255
	priceDecimalPlaces = 2
	priceMaxDigits     = 5
)

var maxPrice = decimal.New(1, priceMaxDigits-priceDecimalPlaces)

// RecipeInput is a create or update request. Nil fields were absent from the
// request; Tags and Ingredients hold attribute names.
type RecipeInput struct {
	Title       *string
	Description *string
	TimeMinutes *int
	Price       *decimal.Decimal
	Link        *string
	Tags        *[]string
	Ingredients *[]string
}

func (service *CoreService) CreateRecipe(ctx context.Context, user *database.User, input RecipeInput) (*database.Recipe, error) {
	if err := input.requireComplete(); err != nil {
		return nil, err
	}

	recipe := &database.Recipe{UserID: user.ID}
	if err := input.applyTo(recipe); err != nil {
		return nil, err
	}
	if err := service.resolveAttributes(ctx, user.ID, input, recipe); err != nil {
		return nil, err
	}
	return service.databaseService.CreateRecipe(ctx, recipe)
}

func (service *CoreService) GetRecipe(ctx context.Context, user *database.User, id int64) (*database.Recipe, error) {
	recipe, err := service.databaseService.GetRecipe(ctx, user.ID, id)
	if err != nil {
		return nil, notFoundOr(err)
	}
	return recipe, nil
}

func (service *CoreService) ListRecipes(ctx context.Context, user *database.User, filter database.RecipeFilter) ([]*database.Recipe, error) {
	return service.databaseService.ListRecipes(ctx, user.ID, filter)
}

// UpdateRecipe applies input to the user's recipe. A full update (partial=false)
// requires the same fields as create. Tags and ingredients are only replaced when
// present in input. Ownership is checked before the input is validated.
func (service *CoreService) UpdateRecipe(ctx context.Context, user *database.User, id int64, input RecipeInput, partial bool) (*database.Recipe, error) {
	recipe, err := service.GetRecipe(ctx, user, id)
	if err != nil {
		return nil, err
	}
	if !partial {
		if err := input.requireComplete(); err != nil {
			return nil, err
		}
	}
	if err := input.applyTo(recipe); err != nil {
		return nil, err
	}
	if err := service.resolveAttributes(ctx, user.ID, input, recipe); err != nil {
		return nil, err
	}

	updated, err := service.databaseService.UpdateRecipe(ctx, recipe, database.RecipeUpdate{
		ReplaceTags:        input.Tags != nil,
		ReplaceIngredients: input.Ingredients != nil,
	})
	if err != nil {
		return nil, notFoundOr(err)
	}
	return updated, nil
}

func (service *CoreService) DeleteRecipe(ctx context.Context, user *database.User, id int64) error {
	recipe, err := service.GetRecipe(ctx, user, id)
	if err != nil {
		return err
	}
	if err := service.databaseService.DeleteRecipe(ctx, user.ID, id); err != nil {
		return notFoundOr(err)
	}
	service.removeMediaFile(recipe.Image)
	return nil
}

// resolveAttributes replaces the recipe's tags and ingredients with the user's
// attributes of the given names, creating missing ones.
func (service *CoreService) resolveAttributes(ctx context.Context, userID int64, input RecipeInput, recipe *database.Recipe) error {
	if input.Tags != nil {
		tags, err := service.getOrCreateAttributes(ctx, database.KindTag, userID, *input.Tags)
		if err != nil {
			return err
		}
		recipe.Tags = tags
	}
	if input.Ingredients != nil {
		ingredients, err := service.getOrCreateAttributes(ctx, database.KindIngredient, userID, *input.Ingredients)
		if err != nil {
			return err
		}
		recipe.Ingredients = ingredients
	}
	return nil
}

func (service *CoreService) getOrCreateAttributes(ctx context.Context, kind database.AttributeKind, userID int64, names []string) ([]database.Attribute, error) {
	out := make([]database.Attribute, 0, len(names))
	seen := make(map[int64]bool, len(names))
	for _, name := range names {
		name = strings.TrimSpace(name)
		if err := validateAttributeName(string(kind), name); err != nil {
			return nil, err
		}
		attr, err := service.databaseService.GetOrCreateAttribute(ctx, kind, userID, name)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve %s %q: %w", kind, name, err)
		}
		if seen[attr.ID] {
			continue
		}
		seen[attr.ID] = true
		out = append(out, *attr)
	}
	return out, nil
}

func (input RecipeInput) requireComplete() error {
	missing := map[string]any{}
	if input.Title == nil {
		missing["title"] = []string{msgFieldRequired}
	}
	if input.TimeMinutes == nil {
		missing["time_minutes"] = []string{msgFieldRequired}
	}
	if input.Price == nil {
		missing["price"] = []string{msgFieldRequired}
	}
	if len(missing) == 0 {
		return nil
	}
	return (&Error{Status: http.StatusBadRequest, Code: CodeInvalid, Message: "missing required fields"}).WithDetails(missing)
}

func (input RecipeInput) applyTo(recipe *database.Recipe) error {
	if input.Title != nil {
		title := strings.TrimSpace(*input.Title)
		if title == "" {
			return fieldError("title", msgFieldBlank)
		}
		if utf8.RuneCountInString(title) > maxTitleLength {
			return fieldError("title", "Ensure this field has no more than 255 characters.")
		}
		recipe.Title = title
	}
	if input.Description != nil {
		recipe.Description = *input.Description
	}
	if input.TimeMinutes != nil {
		recipe.TimeMinutes = *input.TimeMinutes
	}
	if input.Price != nil {
		if err := validatePrice(*input.Price); err != nil {
			return err
		}
		recipe.Price = *input.Price
	}
	if input.Link != nil {
		if utf8.RuneCountInString(*input.Link) > maxLinkLength {
			return fieldError("link", "Ensure this field has no more than 255 characters.")
		}
		recipe.Link = *input.Link
	}
	return nil
}

// validatePrice enforces the NUMERIC(5,2) column bounds. The scale is checked as
// written, so "5.250" has three decimal places.
func validatePrice(price decimal.Decimal) error {
	if price.Exponent() < -priceDecimalPlaces {
		return fieldError("price", "Ensure that there are no more than 2 decimal places.")
	}
	if price.Abs().GreaterThanOrEqual(maxPrice) {
		return fieldError("price", "Ensure that there are no more than 3 digits before the decimal point.")
	}
	return nil
}
