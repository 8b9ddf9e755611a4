package server

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/pkg/errors"

	"crewdesk/internal/model"
)

// Claims identify the caller of the HTTP API.
type Claims struct {
	Role model.MemberRole `json:"role"`
	jwt.RegisteredClaims
}

// MemberID returns the member the token was issued to.
func (c Claims) MemberID() uint {
	id, err := strconv.ParseUint(c.Subject, 10, 64)
	if err != nil {
		return 0
	}
	return uint(id)
}

// Auth verifies HS256 bearer tokens. With an empty secret every caller is an admin.
type Auth struct {
	secret []byte
}

func NewAuth(secret string) *Auth {
	return &Auth{secret: []byte(secret)}
}

func (a *Auth) Enabled() bool {
	return len(a.secret) > 0
}

// Issue signs a token for a member.
func (a *Auth) Issue(member model.Member, ttl time.Duration) (string, error) {
	if !a.Enabled() {
		return "", errors.New("jwt secret is not configured")
	}
	now := time.Now()
	claims := Claims{
		Role: member.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatUint(uint64(member.ID), 10),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			Issuer:    "crewdesk",
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(a.secret)
}

func (a *Auth) parse(raw string) (*Claims, error) {
	claims := &Claims{}
	_, err := jwt.ParseWithClaims(raw, claims, func(token *jwt.Token) (any, error) {
		return a.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithIssuer("crewdesk"))
	if err != nil {
		return nil, err
	}
	return claims, nil
}

const claimsKey = "claims"

// Authenticate stores the caller's claims in the context or aborts with 401.
func (a *Auth) Authenticate() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !a.Enabled() {
			c.Set(claimsKey, &Claims{Role: model.RoleAdmin})
			c.Next()
			return
		}
		header := c.GetHeader("Authorization")
		raw, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || strings.TrimSpace(raw) == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing bearer token"})
			return
		}
		claims, err := a.parse(strings.TrimSpace(raw))
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}
		c.Set(claimsKey, claims)
		c.Next()
	}
}

func requireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !caller(c).isAdmin() {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "admin role required"})
			return
		}
		c.Next()
	}
}

func caller(c *gin.Context) *Claims {
	if value, ok := c.Get(claimsKey); ok {
		if claims, ok := value.(*Claims); ok {
			return claims
		}
	}
	return &Claims{}
}

func (c Claims) isAdmin() bool {
	return c.Role == model.RoleAdmin
}
