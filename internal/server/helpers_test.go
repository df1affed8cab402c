package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"fieldcase/internal/config"
	"fieldcase/internal/middleware"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHumanizeParam(t *testing.T) {
	tests := map[string]string{
		"id":             "ID",
		"userId":         "user ID",
		"entryId":        "entry ID",
		"invitationId":   "invitation ID",
		"projectEntryId": "project entry ID",
		"token":          "token",
	}
	for in, want := range tests {
		assert.Equal(t, want, humanizeParam(in), in)
	}
}

func TestParseIDRejectsNonPositive(t *testing.T) {
	s := &Server{}
	app := fiber.New()
	app.Get("/things/:entryId", func(c *fiber.Ctx) error {
		id, err := s.parseID(c, "entryId")
		if err != nil {
			return nil
		}
		return c.JSON(fiber.Map{"id": id})
	})

	for _, raw := range []string{"0", "-4", "abc"} {
		resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/things/"+raw, nil))
		require.NoError(t, err)
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode, raw)

		var body errorBody
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
		_ = resp.Body.Close()
		assert.Equal(t, "Invalid entry ID", body.Error)
	}

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/things/12", nil))
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestCoordinateUnmarshal(t *testing.T) {
	var req entryRequest
	require.NoError(t, json.Unmarshal([]byte(`{"latitude":51.50740000,"longitude":"-0.12780"}`), &req))
	require.NotNil(t, req.Latitude.ptr())
	assert.Equal(t, "51.50740000", *req.Latitude.ptr())
	assert.Equal(t, "-0.12780", *req.Longitude.ptr())

	req = entryRequest{}
	require.NoError(t, json.Unmarshal([]byte(`{"latitude":null}`), &req))
	assert.Nil(t, req.Latitude.ptr())
	assert.Nil(t, req.Longitude.ptr())

	assert.Error(t, json.Unmarshal([]byte(`{"latitude":true}`), &req))
}

func TestInviteURL(t *testing.T) {
	s := &Server{config: &config.Config{PublicBaseURL: "https://app.example.com//"}}
	assert.Equal(t, "https://app.example.com/invite/abc", s.inviteURL("abc"))
}

func signTestToken(t *testing.T, claims jwt.MapClaims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSecret))
	require.NoError(t, err)
	return token
}

func TestAuthRequired(t *testing.T) {
	rdb := newMiniRedis(t)
	s := &Server{config: &config.Config{JWTSecret: testSecret}, redis: rdb}
	app := fiber.New()
	app.Get("/whoami", s.AuthRequired(), func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"user_id": currentUserID(c)})
	})

	valid, err := s.generateToken(42, "alice")
	require.NoError(t, err)

	now := time.Now()
	base := func() jwt.MapClaims {
		return jwt.MapClaims{
			"sub": "42",
			"iss": middleware.TokenIssuer,
			"aud": middleware.TokenAudience,
			"exp": now.Add(time.Hour).Unix(),
			"jti": "revoked-jti",
		}
	}
	wrongIssuer := base()
	wrongIssuer["iss"] = "someone-else"
	expired := base()
	expired["exp"] = now.Add(-time.Minute).Unix()
	noSubject := base()
	delete(noSubject, "sub")

	require.NoError(t, rdb.Set(t.Context(), middleware.RevokedTokenKey("revoked-jti"), "1", time.Hour).Err())

	tests := []struct {
		name   string
		header string
		want   int
	}{
		{"valid", "Bearer " + valid, http.StatusOK},
		{"missing", "", http.StatusUnauthorized},
		{"not bearer", "Token " + valid, http.StatusUnauthorized},
		{"wrong issuer", "Bearer " + signTestToken(t, wrongIssuer), http.StatusUnauthorized},
		{"expired", "Bearer " + signTestToken(t, expired), http.StatusUnauthorized},
		{"no subject", "Bearer " + signTestToken(t, noSubject), http.StatusUnauthorized},
		{"revoked", "Bearer " + signTestToken(t, base()), http.StatusUnauthorized},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			resp, err := app.Test(req)
			require.NoError(t, err)
			defer func() { _ = resp.Body.Close() }()
			assert.Equal(t, tt.want, resp.StatusCode)
		})
	}
}

func TestGenerateTokenRequiresSecret(t *testing.T) {
	s := &Server{config: &config.Config{JWTSecret: "  "}}
	_, err := s.generateToken(1, "alice")
	assert.ErrorIs(t, err, errNoJWTSecret)
}

func TestCORSPreflight(t *testing.T) {
	env := newTestEnv(t, nil)

	req := httptest.NewRequest(http.MethodOptions, "/api/projects", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	resp, err := env.app.Test(req)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()

	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	assert.Equal(t, "http://localhost:5173", resp.Header.Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "true", resp.Header.Get("Access-Control-Allow-Credentials"))
}

func TestSecurityHeaders(t *testing.T) {
	env := newTestEnv(t, nil)
	resp, err := env.app.Test(httptest.NewRequest(http.MethodGet, "/health/live", nil))
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()

	assert.Equal(t, "nosniff", resp.Header.Get("X-Content-Type-Options"))
	assert.NotEmpty(t, resp.Header.Get("X-Frame-Options"))
	assert.NotEmpty(t, resp.Header.Get("X-Request-Id"))
}

func TestGlobalLimiterKeepsCORSHeaders(t *testing.T) {
	env := newTestEnv(t, nil)

	var last *http.Response
	for i := 0; i < 101; i++ {
		req := httptest.NewRequest(http.MethodGet, "/health/live", nil)
		req.Header.Set("Origin", "http://localhost:5173")
		resp, err := env.app.Test(req)
		require.NoError(t, err)
		if last != nil {
			_ = last.Body.Close()
		}
		last = resp
	}
	defer func() { _ = last.Body.Close() }()

	assert.Equal(t, http.StatusTooManyRequests, last.StatusCode)
	assert.Equal(t, "http://localhost:5173", last.Header.Get("Access-Control-Allow-Origin"))
}
