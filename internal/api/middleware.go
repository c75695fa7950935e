package api

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
)

// Identity is the authenticated caller extracted from the bearer token. The
// identity provider vouches for it; the core only performs ownership checks.
type Identity struct {
	ID   int64
	Role string
}

// Roles issued by the identity provider.
const (
	RolePatient    = "patient"
	RoleConsultant = "consultant"
)

const identityKey = "identity"

type identityClaims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// JWTAuth verifies the Authorization bearer token and stores the caller's
// identity on the request context.
func JWTAuth(secret string) echo.MiddlewareFunc {
	key := []byte(secret)

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			header := c.Request().Header.Get(echo.HeaderAuthorization)
			token, ok := strings.CutPrefix(header, "Bearer ")
			if !ok || token == "" {
				return echo.NewHTTPError(http.StatusUnauthorized, "missing bearer token")
			}

			identity, err := parseIdentity(token, key)
			if err != nil {
				return echo.NewHTTPError(http.StatusUnauthorized, "invalid token")
			}

			c.Set(identityKey, identity)
			return next(c)
		}
	}
}

func parseIdentity(token string, key []byte) (Identity, error) {
	claims := &identityClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return key, nil
	})
	if err != nil || !parsed.Valid {
		return Identity{}, errors.New("invalid token")
	}

	id, err := strconv.ParseInt(claims.Subject, 10, 64)
	if err != nil || id <= 0 {
		return Identity{}, errors.New("invalid subject")
	}
	if claims.Role != RolePatient && claims.Role != RoleConsultant {
		return Identity{}, errors.New("invalid role")
	}

	return Identity{ID: id, Role: claims.Role}, nil
}

// callerIdentity returns the identity stored by JWTAuth.
func callerIdentity(c echo.Context) Identity {
	identity, _ := c.Get(identityKey).(Identity)
	return identity
}
