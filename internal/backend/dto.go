package backend

import (
	"github.com/jo-hoe/recipe-app/internal/backend/database"
	"github.com/shopspring/decimal"
)

type detailResponse struct {
	Detail string `json:"detail"`
}

type createUserRequest struct {
	Email    string `json:"email" validate:"required,max=255"`
	Password string `json:"password" validate:"required,min=5"`
	Name     string `json:"name" validate:"max=255"`
}

type updateUserRequest struct {
	Email    *string `json:"email"`
	Password *string `json:"password"`
	Name     *string `json:"name"`
}

type userResponse struct {
	Email string `json:"email"`
	Name  string `json:"name"`
}

type tokenRequest struct {
	Email    string `json:"email" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type tokenResponse struct {
	Token string `json:"token"`
}

type attributeRef struct {
	Name string `json:"name"`
}

type attributeRequest struct {
	Name *string `json:"name"`
}

type attributeResponse struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

type recipeRequest struct {
	Title       *string          `json:"title"`
	Description *string          `json:"description"`
	TimeMinutes *int             `json:"time_minutes"`
	Price       *decimal.Decimal `json:"price"`
	Link        *string          `json:"link"`
	Tags        *[]attributeRef  `json:"tags"`
	Ingredients *[]attributeRef  `json:"ingredients"`
}

type recipeResponse struct {
	ID          int64               `json:"id"`
	Title       string              `json:"title"`
	TimeMinutes int                 `json:"time_minutes"`
	Price       string              `json:"price"`
	Link        string              `json:"link"`
	Tags        []attributeResponse `json:"tags"`
	Ingredients []attributeResponse `json:"ingredients"`
}

type recipeDetailResponse struct {
	recipeResponse
	Description string  `json:"description"`
	Image       *string `json:"image"`
}

type recipeImageResponse struct {
	ID    int64   `json:"id"`
	Image *string `json:"image"`
}

func toUserResponse(user *database.User) userResponse {
	return userResponse{Email: user.Email, Name: user.Name}
}

func toAttributeResponses(attrs []database.Attribute) []attributeResponse {
	out := make([]attributeResponse, 0, len(attrs))
	for _, a := range attrs {
		out = append(out, attributeResponse{ID: a.ID, Name: a.Name})
	}
	return out
}

func toRecipeResponse(recipe *database.Recipe) recipeResponse {
	return recipeResponse{
		ID:          recipe.ID,
		Title:       recipe.Title,
		TimeMinutes: recipe.TimeMinutes,
		Price:       recipe.Price.StringFixed(2),
		Link:        recipe.Link,
		Tags:        toAttributeResponses(recipe.Tags),
		Ingredients: toAttributeResponses(recipe.Ingredients),
	}
}

func attributeNames(refs *[]attributeRef) *[]string {
	if refs == nil {
		return nil
	}
	names := make([]string, 0, len(*refs))
	for _, r := range *refs {
		names = append(names, r.Name)
	}
	return &names
}
