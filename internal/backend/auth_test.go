package backend

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenAuth(t *testing.T) {
	api := newTestAPI(t)
	token := api.login(t, "auth@example.com")

	tests := []struct {
		name   string
		header string
		status int
		detail string
	}{
		{"missing header", "", http.StatusUnauthorized, "Authentication credentials were not provided."},
		{"other scheme", "Bearer " + token, http.StatusUnauthorized, "Authentication credentials were not provided."},
		{"keyword only", "Token", http.StatusUnauthorized, "Invalid token header. No credentials provided."},
		{"spaces", "Token a b", http.StatusUnauthorized, "Invalid token header. Token string should not contain spaces."},
		{"unknown token", "Token 0123456789012345678901234567890123456789", http.StatusUnauthorized, "Invalid token."},
		{"valid", "Token " + token, http.StatusOK, ""},
		{"lower-case keyword", "token " + token, http.StatusOK, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := newRequest(t, http.MethodGet, "/api/user/me", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := serve(api, req)

			require.Equal(t, tt.status, rec.Code, rec.Body.String())
			if tt.detail != "" {
				assert.Equal(t, tt.detail, decodeJSON[detailResponse](t, rec).Detail)
				assert.Equal(t, "Token", rec.Header().Get("WWW-Authenticate"))
			}
		})
	}
}

func Test_parseAuthorization(t *testing.T) {
	key, err := parseAuthorization("Token abc")
	require.NoError(t, err)
	assert.Equal(t, "abc", key)

	_, err = parseAuthorization("")
	assert.Error(t, err)
}
