package serverutils

import (
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const (
	LocalUserID = "user_id"
	LocalEmail  = "email"
)

var errInvalidToken = errors.New("invalid token")

// ParseToken validates an HS256 bearer token and returns its user id and
// email claims.
func ParseToken(tokenStr, secret string) (uuid.UUID, string, error) {
	token, err := jwt.Parse(tokenStr, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errInvalidToken
		}
		return []byte(secret), nil
	})
	if err != nil || !token.Valid {
		return uuid.Nil, "", errInvalidToken
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return uuid.Nil, "", errInvalidToken
	}
	raw, _ := claims["user_id"].(string)
	userID, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, "", errInvalidToken
	}
	email, _ := claims["email"].(string)
	return userID, email, nil
}

func bearer(ctx *fiber.Ctx) (string, bool) {
	authHeader := ctx.Get("Authorization")
	if len(authHeader) < 7 || !strings.EqualFold(authHeader[:7], "Bearer ") {
		return "", false
	}
	return authHeader[7:], true
}

// JwtMiddleware rejects requests without a valid bearer token.
func JwtMiddleware(secret string) fiber.Handler {
	return func(ctx *fiber.Ctx) error {
		tokenStr, ok := bearer(ctx)
		if !ok {
			return ctx.Status(fiber.StatusUnauthorized).JSON(ErrorResponse(fiber.StatusUnauthorized, "Missing token"))
		}
		userID, email, err := ParseToken(tokenStr, secret)
		if err != nil {
			return ctx.Status(fiber.StatusUnauthorized).JSON(ErrorResponse(fiber.StatusUnauthorized, "Invalid token"))
		}
		ctx.Locals(LocalUserID, userID)
		ctx.Locals(LocalEmail, email)
		return ctx.Next()
	}
}

// OptionalJwtMiddleware records the caller's identity when a valid token is
// present and lets anonymous requests through. An invalid token counts as
// signed out.
func OptionalJwtMiddleware(secret string) fiber.Handler {
	return func(ctx *fiber.Ctx) error {
		if tokenStr, ok := bearer(ctx); ok {
			if userID, email, err := ParseToken(tokenStr, secret); err == nil {
				ctx.Locals(LocalUserID, userID)
				ctx.Locals(LocalEmail, email)
			}
		}
		return ctx.Next()
	}
}

// UserFromLocals returns the identity set by one of the middlewares.
func UserFromLocals(ctx *fiber.Ctx) (uuid.UUID, string, bool) {
	userID, ok := ctx.Locals(LocalUserID).(uuid.UUID)
	if !ok {
		return uuid.Nil, "", false
	}
	email, _ := ctx.Locals(LocalEmail).(string)
	return userID, email, true
}
