package serverutils

import (
	"encoding/json"
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"qnagen-be/pkg/qgen"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "secret"

func signed(t *testing.T, claims jwt.MapClaims, secret string) string {
	t.Helper()
	s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	require.NoError(t, err)
	return s
}

func TestParseToken(t *testing.T) {
	id := uuid.New()
	good := signed(t, jwt.MapClaims{"user_id": id.String(), "email": "a@b.c", "exp": time.Now().Add(time.Hour).Unix()}, testSecret)

	gotID, email, err := ParseToken(good, testSecret)
	require.NoError(t, err)
	assert.Equal(t, id, gotID)
	assert.Equal(t, "a@b.c", email)

	_, _, err = ParseToken(good, "other")
	assert.Error(t, err)

	expired := signed(t, jwt.MapClaims{"user_id": id.String(), "exp": time.Now().Add(-time.Hour).Unix()}, testSecret)
	_, _, err = ParseToken(expired, testSecret)
	assert.Error(t, err)

	noUser := signed(t, jwt.MapClaims{"email": "a@b.c"}, testSecret)
	_, _, err = ParseToken(noUser, testSecret)
	assert.Error(t, err)
}

func TestMiddlewares(t *testing.T) {
	app := fiber.New()
	whoami := func(ctx *fiber.Ctx) error {
		id, _, ok := UserFromLocals(ctx)
		if !ok {
			return ctx.SendString("anonymous")
		}
		return ctx.SendString(id.String())
	}
	app.Get("/required", JwtMiddleware(testSecret), whoami)
	app.Get("/optional", OptionalJwtMiddleware(testSecret), whoami)

	id := uuid.New()
	token := signed(t, jwt.MapClaims{"user_id": id.String()}, testSecret)

	cases := []struct {
		path, auth string
		status     int
		body       string
	}{
		{"/required", "", fiber.StatusUnauthorized, ""},
		{"/required", "Bearer nope", fiber.StatusUnauthorized, ""},
		{"/required", "Bearer " + token, fiber.StatusOK, id.String()},
		{"/optional", "", fiber.StatusOK, "anonymous"},
		{"/optional", "Bearer nope", fiber.StatusOK, "anonymous"},
		{"/optional", "Bearer " + token, fiber.StatusOK, id.String()},
	}
	for _, tc := range cases {
		req := httptest.NewRequest("GET", tc.path, nil)
		if tc.auth != "" {
			req.Header.Set("Authorization", tc.auth)
		}
		resp, err := app.Test(req)
		require.NoError(t, err)
		assert.Equal(t, tc.status, resp.StatusCode, tc.path+" "+tc.auth)
		if tc.body != "" {
			b, _ := io.ReadAll(resp.Body)
			assert.Equal(t, tc.body, string(b))
		}
	}
}

func TestErrorHandler(t *testing.T) {
	app := fiber.New(fiber.Config{ErrorHandler: ErrorHandler})
	app.Get("/quota", func(*fiber.Ctx) error { return qgen.QuotaExhausted() })
	app.Get("/topic", func(*fiber.Ctx) error { return qgen.PartialGenerationFailed("Genetics", nil) })
	app.Get("/fiber", func(*fiber.Ctx) error { return fiber.NewError(fiber.StatusTeapot, "tea") })

	resp, err := app.Test(httptest.NewRequest("GET", "/quota", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusPaymentRequired, resp.StatusCode)
	var body KindErrorResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "quota_exhausted", body.Kind)
	assert.False(t, body.Success)

	resp, err = app.Test(httptest.NewRequest("GET", "/topic", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusBadGateway, resp.StatusCode)
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "Generation failed for Genetics", body.Message)
	assert.Equal(t, "Genetics", body.Topic)

	resp, err = app.Test(httptest.NewRequest("GET", "/fiber", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusTeapot, resp.StatusCode)
}

func TestValidateRequest(t *testing.T) {
	type req struct {
		Mode  string `validate:"required,oneof=a b"`
		Count int    `validate:"min=1"`
	}
	assert.NoError(t, ValidateRequest(req{Mode: "a", Count: 1}))
	err := ValidateRequest(req{Mode: "c"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Mode must satisfy oneof=a b")
	assert.Contains(t, err.Error(), "Count must satisfy min=1")
}
