// Package identity issues and verifies the admin tokens that guard
// destructive endpoints. Tokens are HS256 JWTs keyed by the configured admin
// secret and are handed out only in exchange for that secret.
package identity

import (
	"crypto/subtle"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const ctxAdminClaims = "admin_claims"

// ErrBadSecret is returned by Exchange when the presented secret is wrong.
var ErrBadSecret = errors.New("invalid admin secret")

// AdminClaims are the JWT claims of an admin token.
type AdminClaims struct {
	jwt.RegisteredClaims
	Role string `json:"role"`
}

// AdminTokenIssuer issues and verifies admin tokens.
type AdminTokenIssuer struct {
	secret []byte
	issuer string
	ttl    time.Duration
}

// NewAdminTokenIssuer creates an AdminTokenIssuer.
//
//	secret: the shared admin secret; also the HMAC key.
//	issuer: the "iss" claim value.
//	ttl:    token lifetime (default: 8 hours).
func NewAdminTokenIssuer(secret, issuer string, ttl time.Duration) *AdminTokenIssuer {
	if ttl == 0 {
		ttl = 8 * time.Hour
	}
	return &AdminTokenIssuer{secret: []byte(secret), issuer: issuer, ttl: ttl}
}

// TTL returns the lifetime of issued tokens.
func (a *AdminTokenIssuer) TTL() time.Duration { return a.ttl }

// Exchange returns a fresh admin token if presented matches the secret.
func (a *AdminTokenIssuer) Exchange(presented string) (string, error) {
	if subtle.ConstantTimeCompare([]byte(presented), a.secret) != 1 {
		return "", ErrBadSecret
	}
	return a.Issue()
}

// Issue creates a signed admin token.
func (a *AdminTokenIssuer) Issue() (string, error) {
	now := time.Now().UTC()
	claims := AdminClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    a.issuer,
			Subject:   "admin",
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(a.ttl)),
			ID:        uuid.New().String(),
		},
		Role: "admin",
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(a.secret)
	if err != nil {
		return "", fmt.Errorf("sign admin token: %w", err)
	}
	return signed, nil
}

// Verify parses and validates an admin token.
func (a *AdminTokenIssuer) Verify(tokenStr string) (*AdminClaims, error) {
	token, err := jwt.ParseWithClaims(
		tokenStr,
		&AdminClaims{},
		func(tok *jwt.Token) (any, error) {
			if _, ok := tok.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method: %v", tok.Header["alg"])
			}
			return a.secret, nil
		},
		jwt.WithIssuer(a.issuer),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return nil, fmt.Errorf("verify admin token: %w", err)
	}
	claims, ok := token.Claims.(*AdminClaims)
	if !ok || !token.Valid {
		return nil, errors.New("invalid admin token claims")
	}
	if claims.Role != "admin" {
		return nil, errors.New("not an admin token")
	}
	return claims, nil
}

// RequireAdmin returns a Gin middleware that enforces a valid admin Bearer
// token. A nil issuer disables the check.
func RequireAdmin(a *AdminTokenIssuer) gin.HandlerFunc {
	if a == nil {
		return func(c *gin.Context) { c.Next() }
	}
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if !strings.HasPrefix(authHeader, "Bearer ") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": "admin Bearer token required",
			})
			return
		}

		claims, err := a.Verify(strings.TrimPrefix(authHeader, "Bearer "))
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": "invalid admin token",
			})
			return
		}

		c.Set(ctxAdminClaims, claims)
		c.Next()
	}
}

// AdminClaimsFromCtx returns the admin claims set by RequireAdmin, or nil.
func AdminClaimsFromCtx(c *gin.Context) *AdminClaims {
	v, ok := c.Get(ctxAdminClaims)
	if !ok {
		return nil
	}
	claims, _ := v.(*AdminClaims)
	return claims
}
