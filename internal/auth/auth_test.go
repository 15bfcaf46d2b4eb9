package auth

import (
	"net/http/httptest"
	"testing"
	"time"

	"labstock-backend/internal/config"
	"labstock-backend/internal/models"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const secret = "0123456789abcdef0123456789abcdef"

func TestTokenRoundTrip(t *testing.T) {
	token, err := GenerateToken(secret, &models.User{ID: 4, Name: "Aoi", Email: "aoi@lab.example", Role: models.RoleMember})
	require.NoError(t, err)

	claims, err := ParseToken(secret, token)
	require.NoError(t, err)
	assert.Equal(t, uint(4), claims.UserID)
	assert.Equal(t, "Aoi", claims.Name)
	assert.Equal(t, models.RoleMember, claims.Role)
	assert.WithinDuration(t, time.Now().Add(tokenTTL), claims.ExpiresAt.Time, time.Minute)

	_, err = ParseToken("another-secret-another-secret-xx", token)
	assert.Error(t, err)
}

func TestParseTokenRejectsExpiredAndForeignAlgorithms(t *testing.T) {
	expired := jwt.NewWithClaims(jwt.SigningMethodHS256, &JWTCustomClaims{
		UserID: 1,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Hour)),
		},
	})
	s, err := expired.SignedString([]byte(secret))
	require.NoError(t, err)
	_, err = ParseToken(secret, s)
	assert.ErrorIs(t, err, jwt.ErrTokenExpired)

	hs512 := jwt.NewWithClaims(jwt.SigningMethodHS512, &JWTCustomClaims{UserID: 1})
	s, err = hs512.SignedString([]byte(secret))
	require.NoError(t, err)
	_, err = ParseToken(secret, s)
	assert.Error(t, err)
}

func TestMiddlewareAndRoles(t *testing.T) {
	cfg := &config.Config{JWTSecret: secret}
	app := fiber.New()
	app.Use(JWTMiddleware(cfg))
	app.Get("/me", func(c *fiber.Ctx) error {
		return c.JSON(CurrentUser(c))
	})
	app.Get("/admin", RequireRole(models.RoleAdmin), func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusNoContent)
	})

	member, err := GenerateToken(secret, &models.User{ID: 1, Name: "Aoi", Role: models.RoleMember})
	require.NoError(t, err)
	admin, err := GenerateToken(secret, &models.User{ID: 2, Name: "Ren", Role: models.RoleAdmin})
	require.NoError(t, err)

	tests := []struct {
		path   string
		header string
		want   int
	}{
		{"/me", "", fiber.StatusUnauthorized},
		{"/me", "Token " + member, fiber.StatusUnauthorized},
		{"/me", "Bearer " + member, fiber.StatusOK},
		{"/admin", "Bearer " + member, fiber.StatusForbidden},
		{"/admin", "Bearer " + admin, fiber.StatusNoContent},
	}
	for _, tt := range tests {
		req := httptest.NewRequest("GET", tt.path, nil)
		if tt.header != "" {
			req.Header.Set("Authorization", tt.header)
		}
		resp, err := app.Test(req)
		require.NoError(t, err)
		assert.Equal(t, tt.want, resp.StatusCode, "%s %s", tt.path, tt.header)
	}
}
