// Package middleware provides authentication and request-scoped middleware for the application.
package middleware

import (
	"context"
	"errors"
	"strconv"
	"strings"

	"fieldcase/internal/models"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/redis/go-redis/v9"
)

const (
	// TokenIssuer is the "iss" claim on every access token.
	TokenIssuer = "fieldcase-api"
	// TokenAudience is the "aud" claim on every access token.
	TokenAudience = "fieldcase-client"

	revokedTokenPrefix = "blacklist:"
)

var (
	errMissingToken  = errors.New("authorization required")
	errInvalidToken  = errors.New("invalid or expired token")
	errInvalidClaims = errors.New("invalid token claims")
)

// TokenClaims is the subset of access token claims the API relies on.
type TokenClaims struct {
	UserID uint
	JTI    string
}

// ParseToken validates an HS256 access token and extracts the user ID.
func ParseToken(secret, tokenString string) (*TokenClaims, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errInvalidToken
		}
		return []byte(secret), nil
	},
		jwt.WithIssuer(TokenIssuer),
		jwt.WithAudience(TokenAudience),
		jwt.WithExpirationRequired(),
	)
	if err != nil || !token.Valid {
		return nil, errInvalidToken
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, errInvalidClaims
	}

	// "sub" carries the user ID as a decimal string (RFC 7519 subject).
	sub, ok := claims["sub"].(string)
	if !ok {
		return nil, errInvalidClaims
	}
	userID, err := strconv.ParseUint(sub, 10, 32)
	if err != nil || userID == 0 {
		return nil, errInvalidClaims
	}

	jti, _ := claims["jti"].(string)
	return &TokenClaims{UserID: uint(userID), JTI: jti}, nil
}

// BearerToken extracts the token from an "Authorization: Bearer <token>" header.
func BearerToken(c *fiber.Ctx) string {
	parts := strings.Split(c.Get("Authorization"), " ")
	if len(parts) != 2 || parts[0] != "Bearer" {
		return ""
	}
	return parts[1]
}

// RevokedTokenKey is the Redis key marking a token ID as revoked.
func RevokedTokenKey(jti string) string {
	return revokedTokenPrefix + jti
}

// AuthRequired enforces a valid bearer token. Revocation is checked against
// Redis when a client is available; without Redis, revocation is not enforced.
func AuthRequired(secret string, rdb *redis.Client) fiber.Handler {
	return func(c *fiber.Ctx) error {
		tokenString := BearerToken(c)
		if tokenString == "" {
			return models.RespondWithError(c, fiber.StatusUnauthorized,
				models.NewUnauthorizedError(errMissingToken.Error()))
		}

		claims, err := ParseToken(secret, tokenString)
		if err != nil {
			return models.RespondWithError(c, fiber.StatusUnauthorized,
				models.NewUnauthorizedError(err.Error()))
		}

		if claims.JTI != "" && rdb != nil {
			revoked, rerr := rdb.Exists(c.Context(), RevokedTokenKey(claims.JTI)).Result()
			if rerr == nil && revoked > 0 {
				return models.RespondWithError(c, fiber.StatusUnauthorized,
					models.NewUnauthorizedError("token has been revoked"))
			}
		}

		c.Locals("userID", claims.UserID)
		c.Locals("tokenID", claims.JTI)
		// Sync to UserContext for logging and downstream services
		ctx := context.WithValue(c.UserContext(), UserIDKey, claims.UserID)
		c.SetUserContext(ctx)

		return c.Next()
	}
}
