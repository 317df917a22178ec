package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

// ContextTrainerID is the gin context key the authenticated trainer is
// stored under.
const ContextTrainerID = "trainerID"

var errInvalidToken = errors.New("invalid token")

// Verifier validates signed trainer tokens.
type Verifier struct {
	secret []byte
}

// NewVerifier constructs a Verifier for the given HMAC secret.
func NewVerifier(secret string) *Verifier {
	return &Verifier{secret: []byte(secret)}
}

// Verify parses a bearer token and returns the trainer ID from the
// subject claim.
func (v *Verifier) Verify(tokenString string) (string, error) {
	claims := jwt.RegisteredClaims{}
	token, err := jwt.ParseWithClaims(tokenString, &claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errInvalidToken
		}
		return v.secret, nil
	})
	if err != nil || !token.Valid || claims.Subject == "" {
		return "", errInvalidToken
	}
	return claims.Subject, nil
}

// RequireAuth rejects requests without a valid bearer token and stores
// the trainer ID in the gin context.
func (v *Verifier) RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if !strings.HasPrefix(header, "Bearer ") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing bearer token"})
			return
		}
		trainerID, err := v.Verify(strings.TrimPrefix(header, "Bearer "))
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}
		c.Set(ContextTrainerID, trainerID)
		c.Next()
	}
}

// TrainerID returns the authenticated trainer ID from the gin context.
func TrainerID(c *gin.Context) string {
	return c.GetString(ContextTrainerID)
}
