// Package handlers provides the HTTP handlers of the engine bridge.
package handlers

import (
	"fmt"
	"net/http"
	"slices"
	"time"

	"github.com/golang-jwt/jwt/v5"
	echojwt "github.com/labstack/echo-jwt/v4"
	"github.com/labstack/echo/v4"
)

const (
	// ScopeEngine grants access to the engine websocket.
	ScopeEngine = "engine"
	// TokenIssuer is the iss claim of bridge tokens.
	TokenIssuer = "keybridge"

	contextKeyToken = "user"
)

// Claims are the JWT claims of a bridge client.
type Claims struct {
	ClientID string   `json:"client_id"`
	Scopes   []string `json:"scopes"`
	jwt.RegisteredClaims
}

// IssueToken signs an engine-scoped token for clientID.
func IssueToken(secret []byte, clientID string, ttl time.Duration) (string, error) {
	if len(secret) == 0 {
		return "", fmt.Errorf("jwt secret is required")
	}
	now := time.Now()
	claims := &Claims{
		ClientID: clientID,
		Scopes:   []string{ScopeEngine},
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			Issuer:    TokenIssuer,
			Subject:   clientID,
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
}

// JWTMiddleware rejects requests without a valid bearer token signed with
// secret.
func JWTMiddleware(secret []byte) echo.MiddlewareFunc {
	return echojwt.WithConfig(echojwt.Config{
		SigningKey:    secret,
		SigningMethod: "HS256",
		ContextKey:    contextKeyToken,
		NewClaimsFunc: func(echo.Context) jwt.Claims { return new(Claims) },
		ErrorHandler: func(c echo.Context, err error) error {
			return c.JSON(http.StatusUnauthorized, map[string]string{"error": ErrInvalidToken.Error()})
		},
	})
}

// RequireScope rejects tokens that do not carry scope. It must run after
// JWTMiddleware.
func RequireScope(scope string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			token, ok := c.Get(contextKeyToken).(*jwt.Token)
			if !ok {
				return c.JSON(http.StatusUnauthorized, map[string]string{"error": ErrUnauthorized.Error()})
			}
			claims, ok := token.Claims.(*Claims)
			if !ok || !slices.Contains(claims.Scopes, scope) {
				return c.JSON(http.StatusForbidden, map[string]string{"error": ErrMissingScope.Error()})
			}
			return next(c)
		}
	}
}
