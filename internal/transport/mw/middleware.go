package mw

import (
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog/log"
)

const requesterIDKey = "requesterID"

// JWTAuth validates the HS256 Bearer token issued by the platform gateway.
// The "sub" claim identifies the requester and is stored in echo.Context.
func JWTAuth(secret string) echo.MiddlewareFunc {
	key := []byte(secret)
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
	)

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			authHeader := c.Request().Header.Get("Authorization")
			if !strings.HasPrefix(authHeader, "Bearer ") {
				return echo.NewHTTPError(http.StatusUnauthorized, "missing bearer token")
			}
			tokenStr := strings.TrimPrefix(authHeader, "Bearer ")

			var claims jwt.RegisteredClaims
			_, err := parser.ParseWithClaims(tokenStr, &claims, func(*jwt.Token) (any, error) {
				return key, nil
			})
			if err != nil {
				log.Warn().Err(err).Msg("JWT verification failed")
				return echo.NewHTTPError(http.StatusUnauthorized, "invalid token")
			}
			if claims.Subject == "" {
				return echo.NewHTTPError(http.StatusUnauthorized, "token has no subject")
			}

			c.Set(requesterIDKey, claims.Subject)
			return next(c)
		}
	}
}

// RequesterID returns the authenticated subject, or "" outside JWTAuth.
func RequesterID(c echo.Context) string {
	id, _ := c.Get(requesterIDKey).(string)
	return id
}
