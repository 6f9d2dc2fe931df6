package database

import "github.com/shopspring/decimal"

type User struct {
	ID           int64  `db:"id"`
	Email        string `db:"email"`
	Name         string `db:"name"`
	PasswordHash string `db:"password_hash"`
	IsActive     bool   `db:"is_active"`
	IsStaff      bool   `db:"is_staff"`
	IsSuperuser  bool   `db:"is_superuser"`
}

// Attribute is a named, user-owned label attached to recipes (a tag or an ingredient).
type Attribute struct {
	ID   int64  `db:"id"`
	Name string `db:"name"`
}

type Recipe struct {
	ID          int64           `db:"id"`
	UserID      int64           `db:"user_id"`
	Title       string          `db:"title"`
	Description string          `db:"description"`
	TimeMinutes int             `db:"time_minutes"`
	Price       decimal.Decimal `db:"price"`
	Link        string          `db:"link"`
	Image       string          `db:"image"` // path relative to the media root, empty when unset
	Tags        []Attribute
	Ingredients []Attribute
}

// AttributeKind selects the table an attribute lives in.
type AttributeKind string

const (
	KindTag        AttributeKind = "tags"
	KindIngredient AttributeKind = "ingredients"
)

func (k AttributeKind) Valid() bool {
	return k == KindTag || k == KindIngredient
}

// joinTable returns the recipe link table and its foreign key column for the kind.
func (k AttributeKind) joinTable() (table string, column string) {
	switch k {
	case KindIngredient:
		return "recipe_ingredients", "ingredient_id"
	default:
		return "recipe_tags", "tag_id"
	}
}

// RecipeFilter narrows ListRecipes to recipes carrying any of the given attributes.
type RecipeFilter struct {
	TagIDs        []int64
	IngredientIDs []int64
}

// RecipeUpdate controls which association lists UpdateRecipe rewrites.
type RecipeUpdate struct {
	ReplaceTags        bool
	ReplaceIngredients bool
}
