package backend

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateUser(t *testing.T) {
	api := newTestAPI(t)

	rec := api.do(t, http.MethodPost, "/api/user/create", "", map[string]any{
		"email": "test@EXAMPLE.com", "password": "testpass123", "name": "Test Name",
	})

	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	body := decodeJSON[map[string]any](t, rec)
	assert.Equal(t, "test@example.com", body["email"])
	assert.Equal(t, "Test Name", body["name"])
	assert.NotContains(t, body, "password")
}

func TestCreateUser_Errors(t *testing.T) {
	api := newTestAPI(t)
	api.login(t, "exists@example.com")

	tests := []struct {
		name    string
		payload map[string]any
		field   string
	}{
		{"duplicate email", map[string]any{"email": "exists@example.com", "password": "testpass123"}, "email"},
		{"short password", map[string]any{"email": "short@example.com", "password": "pw"}, "password"},
		{"missing email", map[string]any{"password": "testpass123"}, "email"},
		{"invalid email", map[string]any{"email": "nope", "password": "testpass123"}, "email"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := api.do(t, http.MethodPost, "/api/user/create", "", tt.payload)

			require.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())
			assert.Contains(t, decodeJSON[map[string]any](t, rec), tt.field)
		})
	}
}

func TestCreateToken_InvalidCredentials(t *testing.T) {
	api := newTestAPI(t)
	api.login(t, "user@example.com")

	for name, payload := range map[string]map[string]any{
		"wrong password": {"email": "user@example.com", "password": "badpass"},
		"unknown user":   {"email": "nobody@example.com", "password": "testpass123"},
		"blank password": {"email": "user@example.com", "password": ""},
	} {
		t.Run(name, func(t *testing.T) {
			rec := api.do(t, http.MethodPost, "/api/user/token", "", payload)

			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.NotContains(t, rec.Body.String(), `"token"`)
		})
	}
}

func TestMe(t *testing.T) {
	api := newTestAPI(t)
	token := api.login(t, "me@example.com")

	rec := api.do(t, http.MethodGet, "/api/user/me", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, userResponse{Email: "me@example.com", Name: "Test Name"}, decodeJSON[userResponse](t, rec))

	rec = api.do(t, http.MethodPost, "/api/user/me", token, map[string]any{})
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)

	rec = api.do(t, http.MethodPatch, "/api/user/me", token, map[string]any{"name": "Updated", "password": "newpassword123"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "Updated", decodeJSON[userResponse](t, rec).Name)

	rec = api.do(t, http.MethodPost, "/api/user/token", "", map[string]any{"email": "me@example.com", "password": "newpassword123"})
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = api.do(t, http.MethodPut, "/api/user/me", token, map[string]any{"name": "Only name"})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	body := decodeJSON[map[string]any](t, rec)
	assert.Contains(t, body, "email")
	assert.Contains(t, body, "password")
}

func TestMe_Unauthorized(t *testing.T) {
	api := newTestAPI(t)

	rec := api.do(t, http.MethodGet, "/api/user/me", "", nil)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
