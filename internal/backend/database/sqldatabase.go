package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
)

const (
	DialectSQLite   = "sqlite"
	DialectPostgres = "postgres"
)

// querier is satisfied by both *sql.DB and *sql.Tx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// SQLDatabase implements DatabaseService on top of database/sql. Queries are written
// with '?' placeholders and rebound for the active dialect.
type SQLDatabase struct {
	db                *sql.DB
	dialect           string
	isUniqueViolation func(error) bool
}

func (s *SQLDatabase) Dialect() string {
	return s.dialect
}

func (s *SQLDatabase) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *SQLDatabase) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// rebind rewrites '?' placeholders into '$n' for postgres.
func (s *SQLDatabase) rebind(query string) string {
	if s.dialect != DialectPostgres {
		return query
	}
	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	for i := 0; i < len(query); i++ {
		if query[i] == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteByte(query[i])
	}
	return b.String()
}

func (s *SQLDatabase) mapError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	if s.isUniqueViolation != nil && s.isUniqueViolation(err) {
		return fmt.Errorf("%w: %v", ErrAlreadyExists, err)
	}
	return err
}

func (s *SQLDatabase) withTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// placeholders returns "?, ?, ?" for n arguments.
func placeholders(n int) string {
	if n <= 0 {
		return ""
	}
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}

func int64Args(ids []int64) []any {
	out := make([]any, len(ids))
	for i, id := range ids {
		out[i] = id
	}
	return out
}

// ---- users ----

const userColumns = "id, email, name, password_hash, is_active, is_staff, is_superuser"

func scanUser(row interface{ Scan(...any) error }) (*User, error) {
	var u User
	if err := row.Scan(&u.ID, &u.Email, &u.Name, &u.PasswordHash, &u.IsActive, &u.IsStaff, &u.IsSuperuser); err != nil {
		return nil, err
	}
	return &u, nil
}

func (s *SQLDatabase) CreateUser(ctx context.Context, user *User) (*User, error) {
	q := s.rebind(`INSERT INTO users (email, name, password_hash, is_active, is_staff, is_superuser)
		VALUES (?, ?, ?, ?, ?, ?) RETURNING id`)
	var id int64
	err := s.db.QueryRowContext(ctx, q, user.Email, user.Name, user.PasswordHash, user.IsActive, user.IsStaff, user.IsSuperuser).Scan(&id)
	if err != nil {
		return nil, s.mapError(err)
	}
	out := *user
	out.ID = id
	return &out, nil
}

func (s *SQLDatabase) GetUserByID(ctx context.Context, id int64) (*User, error) {
	row := s.db.QueryRowContext(ctx, s.rebind("SELECT "+userColumns+" FROM users WHERE id = ?"), id)
	u, err := scanUser(row)
	if err != nil {
		return nil, s.mapError(err)
	}
	return u, nil
}

func (s *SQLDatabase) GetUserByEmail(ctx context.Context, email string) (*User, error) {
	row := s.db.QueryRowContext(ctx, s.rebind("SELECT "+userColumns+" FROM users WHERE email = ?"), email)
	u, err := scanUser(row)
	if err != nil {
		return nil, s.mapError(err)
	}
	return u, nil
}

func (s *SQLDatabase) UpdateUser(ctx context.Context, user *User) error {
	q := s.rebind(`UPDATE users SET email = ?, name = ?, password_hash = ?, is_active = ?, is_staff = ?, is_superuser = ?
		WHERE id = ?`)
	res, err := s.db.ExecContext(ctx, q, user.Email, user.Name, user.PasswordHash, user.IsActive, user.IsStaff, user.IsSuperuser, user.ID)
	if err != nil {
		return s.mapError(err)
	}
	return requireAffected(res)
}

func requireAffected(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// ---- tokens ----

func (s *SQLDatabase) GetOrCreateToken(ctx context.Context, userID int64) (string, error) {
	var key string
	err := s.db.QueryRowContext(ctx, s.rebind("SELECT token_key FROM auth_tokens WHERE user_id = ?"), userID).Scan(&key)
	if err == nil {
		return key, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return "", err
	}

	key, err = generateTokenKey()
	if err != nil {
		return "", fmt.Errorf("generate token key: %w", err)
	}
	_, err = s.db.ExecContext(ctx, s.rebind("INSERT INTO auth_tokens (token_key, user_id) VALUES (?, ?)"), key, userID)
	if err != nil {
		err = s.mapError(err)
		if errors.Is(err, ErrAlreadyExists) {
			// Lost a race with a concurrent login for the same user.
			var existing string
			if qerr := s.db.QueryRowContext(ctx, s.rebind("SELECT token_key FROM auth_tokens WHERE user_id = ?"), userID).Scan(&existing); qerr == nil {
				return existing, nil
			}
		}
		return "", err
	}
	return key, nil
}

func (s *SQLDatabase) GetUserIDByToken(ctx context.Context, key string) (int64, error) {
	var userID int64
	err := s.db.QueryRowContext(ctx, s.rebind("SELECT user_id FROM auth_tokens WHERE token_key = ?"), key).Scan(&userID)
	if err != nil {
		return 0, s.mapError(err)
	}
	return userID, nil
}

// ---- recipes ----

const recipeColumns = "id, user_id, title, description, time_minutes, price, link, image"

func scanRecipe(row interface{ Scan(...any) error }) (*Recipe, error) {
	var r Recipe
	if err := row.Scan(&r.ID, &r.UserID, &r.Title, &r.Description, &r.TimeMinutes, &r.Price, &r.Link, &r.Image); err != nil {
		return nil, err
	}
	r.Tags = []Attribute{}
	r.Ingredients = []Attribute{}
	return &r, nil
}

func (s *SQLDatabase) CreateRecipe(ctx context.Context, recipe *Recipe) (*Recipe, error) {
	var id int64
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		q := s.rebind(`INSERT INTO recipes (user_id, title, description, time_minutes, price, link, image)
			VALUES (?, ?, ?, ?, ?, ?, ?) RETURNING id`)
		if err := tx.QueryRowContext(ctx, q, recipe.UserID, recipe.Title, recipe.Description, recipe.TimeMinutes,
			recipe.Price.StringFixed(2), recipe.Link, recipe.Image).Scan(&id); err != nil {
			return s.mapError(err)
		}
		if err := s.linkAttributes(ctx, tx, KindTag, id, recipe.Tags); err != nil {
			return err
		}
		return s.linkAttributes(ctx, tx, KindIngredient, id, recipe.Ingredients)
	})
	if err != nil {
		return nil, err
	}
	return s.GetRecipe(ctx, recipe.UserID, id)
}

func (s *SQLDatabase) linkAttributes(ctx context.Context, q querier, kind AttributeKind, recipeID int64, attrs []Attribute) error {
	table, column := kind.joinTable()
	seen := make(map[int64]bool, len(attrs))
	for _, a := range attrs {
		if seen[a.ID] {
			continue
		}
		seen[a.ID] = true
		stmt := s.rebind(fmt.Sprintf("INSERT INTO %s (recipe_id, %s) VALUES (?, ?)", table, column))
		if _, err := q.ExecContext(ctx, stmt, recipeID, a.ID); err != nil {
			return fmt.Errorf("link %s %d to recipe %d: %w", kind, a.ID, recipeID, s.mapError(err))
		}
	}
	return nil
}

func (s *SQLDatabase) GetRecipe(ctx context.Context, userID, id int64) (*Recipe, error) {
	row := s.db.QueryRowContext(ctx, s.rebind("SELECT "+recipeColumns+" FROM recipes WHERE id = ? AND user_id = ?"), id, userID)
	r, err := scanRecipe(row)
	if err != nil {
		return nil, s.mapError(err)
	}
	if err := s.loadAttributes(ctx, []*Recipe{r}); err != nil {
		return nil, err
	}
	return r, nil
}

func (s *SQLDatabase) ListRecipes(ctx context.Context, userID int64, filter RecipeFilter) ([]*Recipe, error) {
	query := "SELECT " + recipeColumns + " FROM recipes WHERE user_id = ?"
	args := []any{userID}
	if len(filter.TagIDs) > 0 {
		query += " AND id IN (SELECT recipe_id FROM recipe_tags WHERE tag_id IN (" + placeholders(len(filter.TagIDs)) + "))"
		args = append(args, int64Args(filter.TagIDs)...)
	}
	if len(filter.IngredientIDs) > 0 {
		query += " AND id IN (SELECT recipe_id FROM recipe_ingredients WHERE ingredient_id IN (" + placeholders(len(filter.IngredientIDs)) + "))"
		args = append(args, int64Args(filter.IngredientIDs)...)
	}
	query += " ORDER BY id DESC"

	rows, err := s.db.QueryContext(ctx, s.rebind(query), args...)
	if err != nil {
		return nil, err
	}
	recipes := make([]*Recipe, 0)
	for rows.Next() {
		r, err := scanRecipe(rows)
		if err != nil {
			_ = rows.Close()
			return nil, err
		}
		recipes = append(recipes, r)
	}
	if err := rows.Err(); err != nil {
		_ = rows.Close()
		return nil, err
	}
	_ = rows.Close()

	if err := s.loadAttributes(ctx, recipes); err != nil {
		return nil, err
	}
	return recipes, nil
}

// loadAttributes fills Tags and Ingredients for the given recipes with one query per kind.
func (s *SQLDatabase) loadAttributes(ctx context.Context, recipes []*Recipe) error {
	if len(recipes) == 0 {
		return nil
	}
	byID := make(map[int64]*Recipe, len(recipes))
	ids := make([]int64, 0, len(recipes))
	for _, r := range recipes {
		byID[r.ID] = r
		ids = append(ids, r.ID)
	}

	for _, kind := range []AttributeKind{KindTag, KindIngredient} {
		table, column := kind.joinTable()
		query := fmt.Sprintf(`SELECT j.recipe_id, a.id, a.name FROM %s j JOIN %s a ON a.id = j.%s
			WHERE j.recipe_id IN (%s) ORDER BY a.id`, table, kind, column, placeholders(len(ids)))
		rows, err := s.db.QueryContext(ctx, s.rebind(query), int64Args(ids)...)
		if err != nil {
			return fmt.Errorf("load %s: %w", kind, err)
		}
		for rows.Next() {
			var recipeID int64
			var a Attribute
			if err := rows.Scan(&recipeID, &a.ID, &a.Name); err != nil {
				_ = rows.Close()
				return err
			}
			r := byID[recipeID]
			if kind == KindTag {
				r.Tags = append(r.Tags, a)
			} else {
				r.Ingredients = append(r.Ingredients, a)
			}
		}
		err = rows.Err()
		_ = rows.Close()
		if err != nil {
			return err
		}
	}
	return nil
}

func (s *SQLDatabase) UpdateRecipe(ctx context.Context, recipe *Recipe, update RecipeUpdate) (*Recipe, error) {
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		q := s.rebind(`UPDATE recipes SET title = ?, description = ?, time_minutes = ?, price = ?, link = ?
			WHERE id = ? AND user_id = ?`)
		res, err := tx.ExecContext(ctx, q, recipe.Title, recipe.Description, recipe.TimeMinutes,
			recipe.Price.StringFixed(2), recipe.Link, recipe.ID, recipe.UserID)
		if err != nil {
			return s.mapError(err)
		}
		if err := requireAffected(res); err != nil {
			return err
		}
		if update.ReplaceTags {
			if _, err := tx.ExecContext(ctx, s.rebind("DELETE FROM recipe_tags WHERE recipe_id = ?"), recipe.ID); err != nil {
				return err
			}
			if err := s.linkAttributes(ctx, tx, KindTag, recipe.ID, recipe.Tags); err != nil {
				return err
			}
		}
		if update.ReplaceIngredients {
			if _, err := tx.ExecContext(ctx, s.rebind("DELETE FROM recipe_ingredients WHERE recipe_id = ?"), recipe.ID); err != nil {
				return err
			}
			if err := s.linkAttributes(ctx, tx, KindIngredient, recipe.ID, recipe.Ingredients); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.GetRecipe(ctx, recipe.UserID, recipe.ID)
}

func (s *SQLDatabase) DeleteRecipe(ctx context.Context, userID, id int64) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, s.rebind("DELETE FROM recipes WHERE id = ? AND user_id = ?"), id, userID)
		if err != nil {
			return err
		}
		if err := requireAffected(res); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, s.rebind("DELETE FROM recipe_tags WHERE recipe_id = ?"), id); err != nil {
			return err
		}
		_, err = tx.ExecContext(ctx, s.rebind("DELETE FROM recipe_ingredients WHERE recipe_id = ?"), id)
		return err
	})
}

func (s *SQLDatabase) SetRecipeImage(ctx context.Context, userID, id int64, imagePath string) error {
	res, err := s.db.ExecContext(ctx, s.rebind("UPDATE recipes SET image = ? WHERE id = ? AND user_id = ?"), imagePath, id, userID)
	if err != nil {
		return err
	}
	return requireAffected(res)
}

// ---- attributes ----

func (s *SQLDatabase) GetOrCreateAttribute(ctx context.Context, kind AttributeKind, userID int64, name string) (*Attribute, error) {
	if !kind.Valid() {
		return nil, fmt.Errorf("unknown attribute kind: %s", kind)
	}
	selectQ := s.rebind(fmt.Sprintf("SELECT id, name FROM %s WHERE user_id = ? AND name = ?", kind))

	var a Attribute
	err := s.db.QueryRowContext(ctx, selectQ, userID, name).Scan(&a.ID, &a.Name)
	if err == nil {
		return &a, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}

	insertQ := s.rebind(fmt.Sprintf("INSERT INTO %s (user_id, name) VALUES (?, ?) RETURNING id", kind))
	if err := s.db.QueryRowContext(ctx, insertQ, userID, name).Scan(&a.ID); err != nil {
		err = s.mapError(err)
		if errors.Is(err, ErrAlreadyExists) {
			if qerr := s.db.QueryRowContext(ctx, selectQ, userID, name).Scan(&a.ID, &a.Name); qerr == nil {
				return &a, nil
			}
		}
		return nil, err
	}
	a.Name = name
	return &a, nil
}

func (s *SQLDatabase) ListAttributes(ctx context.Context, kind AttributeKind, userID int64, assignedOnly bool) ([]*Attribute, error) {
	if !kind.Valid() {
		return nil, fmt.Errorf("unknown attribute kind: %s", kind)
	}
	query := fmt.Sprintf("SELECT id, name FROM %s WHERE user_id = ?", kind)
	if assignedOnly {
		table, column := kind.joinTable()
		query += fmt.Sprintf(" AND id IN (SELECT %s FROM %s)", column, table)
	}
	query += " ORDER BY name DESC"

	rows, err := s.db.QueryContext(ctx, s.rebind(query), userID)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = rows.Close()
	}()

	out := make([]*Attribute, 0)
	for rows.Next() {
		var a Attribute
		if err := rows.Scan(&a.ID, &a.Name); err != nil {
			return nil, err
		}
		out = append(out, &a)
	}
	return out, rows.Err()
}

func (s *SQLDatabase) GetAttribute(ctx context.Context, kind AttributeKind, userID, id int64) (*Attribute, error) {
	if !kind.Valid() {
		return nil, fmt.Errorf("unknown attribute kind: %s", kind)
	}
	var a Attribute
	q := s.rebind(fmt.Sprintf("SELECT id, name FROM %s WHERE id = ? AND user_id = ?", kind))
	if err := s.db.QueryRowContext(ctx, q, id, userID).Scan(&a.ID, &a.Name); err != nil {
		return nil, s.mapError(err)
	}
	return &a, nil
}

func (s *SQLDatabase) RenameAttribute(ctx context.Context, kind AttributeKind, userID, id int64, name string) (*Attribute, error) {
	if !kind.Valid() {
		return nil, fmt.Errorf("unknown attribute kind: %s", kind)
	}
	q := s.rebind(fmt.Sprintf("UPDATE %s SET name = ? WHERE id = ? AND user_id = ?", kind))
	res, err := s.db.ExecContext(ctx, q, name, id, userID)
	if err != nil {
		return nil, s.mapError(err)
	}
	if err := requireAffected(res); err != nil {
		return nil, err
	}
	return &Attribute{ID: id, Name: name}, nil
}

func (s *SQLDatabase) DeleteAttribute(ctx context.Context, kind AttributeKind, userID, id int64) error {
	if !kind.Valid() {
		return fmt.Errorf("unknown attribute kind: %s", kind)
	}
	table, column := kind.joinTable()
	return s.withTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, s.rebind(fmt.Sprintf("DELETE FROM %s WHERE id = ? AND user_id = ?", kind)), id, userID)
		if err != nil {
			return err
		}
		if err := requireAffected(res); err != nil {
			return err
		}
		_, err = tx.ExecContext(ctx, s.rebind(fmt.Sprintf("DELETE FROM %s WHERE %s = ?", table, column)), id)
		return err
	})
}
