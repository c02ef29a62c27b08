package http

import (
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func registerUser(t *testing.T, env *testEnv, name, email, password string) map[string]interface{} {
	t.Helper()
	body := `{"name":"` + name + `","email":"` + email + `","password":"` + password + `"}`
	rec := env.do(t, http.MethodPost, "/api/auth/register", body)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	return decodeBody(t, rec)
}

func TestRegister(t *testing.T) {
	env := newTestEnv(t)

	body := registerUser(t, env, "Ellen Ripley", "Ripley@Nostromo.io", "xenomorph")

	assert.Equal(t, "success", body["status"])
	assert.NotEmpty(t, body["token"])
	user, ok := body["user"].(map[string]interface{})
	require.True(t, ok)
	assert.NotEmpty(t, user["id"])
	assert.Equal(t, "Ellen Ripley", user["name"])
	assert.Equal(t, "ripley@nostromo.io", user["email"])
	assert.NotContains(t, user, "password")
}

func TestRegister_DuplicateEmail(t *testing.T) {
	env := newTestEnv(t)
	registerUser(t, env, "Ellen Ripley", "ripley@nostromo.io", "xenomorph")

	rec := env.do(t, http.MethodPost, "/api/auth/register",
		`{"name":"Other","email":"RIPLEY@nostromo.io","password":"another1"}`)

	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.JSONEq(t, `{"status":"error","message":"User already exists"}`, rec.Body.String())
}

func TestRegister_Validation(t *testing.T) {
	env := newTestEnv(t)

	tests := []struct {
		name    string
		body    string
		message string
	}{
		{"malformed json", `{"name":`, "Invalid request body"},
		{"missing name", `{"email":"a@b.io","password":"secret1"}`, "name is required"},
		{"blank name", `{"name":"   ","email":"a@b.io","password":"secret1"}`, "name is required"},
		{"bad email", `{"name":"A","email":"nope","password":"secret1"}`, "email must be a valid email address"},
		{"short password", `{"name":"A","email":"a@b.io","password":"123"}`, "password must be at least 6 characters"},
		{"long password", `{"name":"A","email":"a@b.io","password":"` + strings.Repeat("p", 80) + `"}`, "password must be at most 72 characters"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := env.do(t, http.MethodPost, "/api/auth/register", tt.body)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			body := decodeBody(t, rec)
			assert.Equal(t, "error", body["status"])
			assert.Equal(t, tt.message, body["message"])
		})
	}
}

func TestRegister_BodyTooLarge(t *testing.T) {
	env := newTestEnv(t)
	huge := `{"name":"` + strings.Repeat("a", maxBodyBytes+1) + `"}`

	rec := env.do(t, http.MethodPost, "/api/auth/register", huge)

	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
}

func TestRegister_StoreFailure(t *testing.T) {
	env := newTestEnv(t)
	env.store.Err = assert.AnError

	rec := env.do(t, http.MethodPost, "/api/auth/register",
		`{"name":"A","email":"a@b.io","password":"secret1"}`)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NotContains(t, rec.Body.String(), assert.AnError.Error())
}

func TestLogin(t *testing.T) {
	env := newTestEnv(t)
	registered := registerUser(t, env, "Ellen Ripley", "ripley@nostromo.io", "xenomorph")

	rec := env.do(t, http.MethodPost, "/api/auth/login", `{"email":"ripley@nostromo.io","password":"xenomorph"}`)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	body := decodeBody(t, rec)
	assert.Equal(t, "success", body["status"])
	assert.NotEmpty(t, body["token"])
	assert.Equal(t, registered["user"], body["user"])
}

func TestLogin_InvalidCredentials(t *testing.T) {
	env := newTestEnv(t)
	registerUser(t, env, "Ellen Ripley", "ripley@nostromo.io", "xenomorph")

	for _, body := range []string{
		`{"email":"ripley@nostromo.io","password":"wrong-password"}`,
		`{"email":"nobody@nostromo.io","password":"xenomorph"}`,
	} {
		rec := env.do(t, http.MethodPost, "/api/auth/login", body)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.JSONEq(t, `{"status":"error","message":"Invalid credentials"}`, rec.Body.String())
	}
}

func TestLogin_Validation(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPost, "/api/auth/login", `{"email":"ripley@nostromo.io"}`)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "password is required", decodeBody(t, rec)["message"])
}

func TestMe(t *testing.T) {
	env := newTestEnv(t)
	registered := registerUser(t, env, "Ellen Ripley", "ripley@nostromo.io", "xenomorph")
	token, _ := registered["token"].(string)

	rec := env.do(t, http.MethodGet, "/api/auth/me", "", "Authorization", "Bearer "+token)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	body := decodeBody(t, rec)
	assert.Equal(t, "success", body["status"])
	assert.Equal(t, registered["user"], body["user"])
}

func TestMe_Unauthorized(t *testing.T) {
	env := newTestEnv(t)

	tests := []struct {
		name   string
		header string
	}{
		{"no header", ""},
		{"wrong scheme", "Basic dXNlcjpwYXNz"},
		{"empty bearer", "Bearer "},
		{"garbage token", "Bearer not-a-jwt"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var rec = env.do(t, http.MethodGet, "/api/auth/me", "")
			if tt.header != "" {
				rec = env.do(t, http.MethodGet, "/api/auth/me", "", "Authorization", tt.header)
			}
			assert.Equal(t, http.StatusUnauthorized, rec.Code)
			assert.Equal(t, "error", decodeBody(t, rec)["status"])
		})
	}
}

func TestMe_DeletedUser(t *testing.T) {
	env := newTestEnv(t)
	registered := registerUser(t, env, "Ellen Ripley", "ripley@nostromo.io", "xenomorph")
	token, _ := registered["token"].(string)
	user, _ := registered["user"].(map[string]interface{})
	id, _ := user["id"].(string)
	env.store.Delete(id)

	rec := env.do(t, http.MethodGet, "/api/auth/me", "", "Authorization", "Bearer "+token)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestBearerToken(t *testing.T) {
	tests := []struct {
		header string
		token  string
		ok     bool
	}{
		{"Bearer abc", "abc", true},
		{"bearer abc", "abc", true},
		{"Bearer   abc  ", "abc", true},
		{"Token abc", "", false},
		{"Bearer", "", false},
		{"", "", false},
	}
	for _, tt := range tests {
		req, _ := http.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", tt.header)
		token, ok := bearerToken(req)
		assert.Equal(t, tt.ok, ok, tt.header)
		assert.Equal(t, tt.token, token, tt.header)
	}
}
