package core

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/jo-hoe/recipe-app/internal/backend/database"
)

const maxAttributeNameLength = 255

func (service *CoreService) ListAttributes(ctx context.Context, user *database.User, kind database.AttributeKind, assignedOnly bool) ([]*database.Attribute, error) {
	return service.databaseService.ListAttributes(ctx, kind, user.ID, assignedOnly)
}

// UpdateAttribute renames one of the user's tags or ingredients. A nil name is
// only allowed for partial updates and leaves the attribute unchanged.
func (service *CoreService) UpdateAttribute(ctx context.Context, user *database.User, kind database.AttributeKind, id int64, name *string, partial bool) (*database.Attribute, error) {
	attr, err := service.databaseService.GetAttribute(ctx, kind, user.ID, id)
	if err != nil {
		return nil, notFoundOr(err)
	}
	if name == nil {
		if !partial {
			return nil, fieldError("name", msgFieldRequired)
		}
		return attr, nil
	}

	if err := validateAttributeName("name", *name); err != nil {
		return nil, err
	}
	attr, err = service.databaseService.RenameAttribute(ctx, kind, user.ID, id, strings.TrimSpace(*name))
	if errors.Is(err, database.ErrAlreadyExists) {
		return nil, fieldError("name", fmt.Sprintf("%s with this name already exists.", kindLabel(kind)))
	}
	if err != nil {
		return nil, notFoundOr(err)
	}
	return attr, nil
}

func (service *CoreService) DeleteAttribute(ctx context.Context, user *database.User, kind database.AttributeKind, id int64) error {
	return notFoundOr(service.databaseService.DeleteAttribute(ctx, kind, user.ID, id))
}

func validateAttributeName(field, name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return fieldError(field, msgFieldBlank)
	}
	if utf8.RuneCountInString(name) > maxAttributeNameLength {
		return fieldError(field, "Ensure this field has no more than 255 characters.")
	}
	return nil
}

func kindLabel(kind database.AttributeKind) string {
	if kind == database.KindIngredient {
		return "ingredient"
	}
	return "tag"
}
