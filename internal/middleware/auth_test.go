package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"alumnihub/internal/models"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJWTAuth(t *testing.T) {
	app := fiber.New()
	secret := "test-secret-key-12345678901234567890123456789012"

	app.Get("/test", JWTAuth(secret), func(c *fiber.Ctx) error {
		return c.Status(fiber.StatusOK).JSON(fiber.Map{
			"userID":   c.Locals("userID"),
			"tenantID": c.Locals("tenantID"),
			"role":     c.Locals("role"),
		})
	})

	user := &models.User{ID: 123, TenantID: 4, Role: models.RoleCollegeAdmin}
	valid, err := IssueToken(secret, user, time.Hour)
	require.NoError(t, err)
	expired, err := IssueToken(secret, user, -time.Hour)
	require.NoError(t, err)
	otherSecret, err := IssueToken("another-secret-key-1234567890123456789012", user, time.Hour)
	require.NoError(t, err)

	foreign := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": strconv.FormatUint(123, 10),
		"iss": "someone-else",
		"aud": TokenAudience,
		"exp": time.Now().Add(time.Hour).Unix(),
	})
	foreignToken, err := foreign.SignedString([]byte(secret))
	require.NoError(t, err)

	tests := []struct {
		name           string
		authHeader     string
		query          string
		expectedStatus int
	}{
		{"Happy Path", "Bearer " + valid, "", http.StatusOK},
		{"Query Token", "", "?token=" + valid, http.StatusOK},
		{"Missing Header", "", "", http.StatusUnauthorized},
		{"Invalid Format", "Basic dXNlcjpwYXNz", "", http.StatusUnauthorized},
		{"Malformed Token", "Bearer malformed.token.here", "", http.StatusUnauthorized},
		{"Expired Token", "Bearer " + expired, "", http.StatusUnauthorized},
		{"Wrong Secret", "Bearer " + otherSecret, "", http.StatusUnauthorized},
		{"Wrong Issuer", "Bearer " + foreignToken, "", http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/test"+tt.query, nil)
			if tt.authHeader != "" {
				req.Header.Set("Authorization", tt.authHeader)
			}

			resp, err := app.Test(req)
			require.NoError(t, err)
			defer func() { _ = resp.Body.Close() }()
			assert.Equal(t, tt.expectedStatus, resp.StatusCode)

			if tt.expectedStatus == http.StatusOK {
				var body map[string]any
				require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
				assert.Equal(t, float64(123), body["userID"])
				assert.Equal(t, float64(4), body["tenantID"])
				assert.Equal(t, string(models.RoleCollegeAdmin), body["role"])
			}
		})
	}
}

func TestBearerToken(t *testing.T) {
	tok, ok := BearerToken("Bearer abc")
	assert.True(t, ok)
	assert.Equal(t, "abc", tok)

	_, ok = BearerToken("Bearer")
	assert.False(t, ok)
	_, ok = BearerToken("Token abc")
	assert.False(t, ok)
}
