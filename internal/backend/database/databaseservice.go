package database

import (
	"context"
	"errors"
)

var (
	ErrNotFound      = errors.New("record not found")
	ErrAlreadyExists = errors.New("record already exists")
)

type DatabaseService interface {
	Ping(ctx context.Context) error
	Close() error
	Dialect() string
	// Migrate applies the embedded schema migrations for the active dialect.
	Migrate(ctx context.Context) error

	CreateUser(ctx context.Context, user *User) (*User, error)
	GetUserByID(ctx context.Context, id int64) (*User, error)
	GetUserByEmail(ctx context.Context, email string) (*User, error)
	UpdateUser(ctx context.Context, user *User) error

	GetOrCreateToken(ctx context.Context, userID int64) (string, error)
	GetUserIDByToken(ctx context.Context, key string) (int64, error)

	// CreateRecipe inserts the recipe and links the attribute IDs already present on
	// recipe.Tags and recipe.Ingredients within a single transaction.
	CreateRecipe(ctx context.Context, recipe *Recipe) (*Recipe, error)
	GetRecipe(ctx context.Context, userID, id int64) (*Recipe, error)
	ListRecipes(ctx context.Context, userID int64, filter RecipeFilter) ([]*Recipe, error)
	UpdateRecipe(ctx context.Context, recipe *Recipe, update RecipeUpdate) (*Recipe, error)
	DeleteRecipe(ctx context.Context, userID, id int64) error
	SetRecipeImage(ctx context.Context, userID, id int64, imagePath string) error

	GetOrCreateAttribute(ctx context.Context, kind AttributeKind, userID int64, name string) (*Attribute, error)
	ListAttributes(ctx context.Context, kind AttributeKind, userID int64, assignedOnly bool) ([]*Attribute, error)
	GetAttribute(ctx context.Context, kind AttributeKind, userID, id int64) (*Attribute, error)
	RenameAttribute(ctx context.Context, kind AttributeKind, userID, id int64, name string) (*Attribute, error)
	DeleteAttribute(ctx context.Context, kind AttributeKind, userID, id int64) error
}
