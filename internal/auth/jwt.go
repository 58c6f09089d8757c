package auth

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var jwtSecret []byte

// TokenTTL is how long an issued token stays valid.
const TokenTTL = 24 * time.Hour

// Claims carried in every token.
type Claims struct {
	UserID  string `json:"user_id"`
	Email   string `json:"email"`
	VenueID string `json:"venue_id"`
	Role    string `json:"role"`
	jwt.RegisteredClaims
}

// Init loads the signing secret from JWT_SECRET. Without one configured, a
// random per-process secret is generated: tokens then survive only until
// restart, which is fine for development and wrong for production.
func Init() error {
	secret := os.Getenv("JWT_SECRET")
	if secret == "" {
		buf := make([]byte, 32)
		if _, err := rand.Read(buf); err != nil {
			return fmt.Errorf("generate ephemeral JWT secret: %w", err)
		}
		secret = hex.EncodeToString(buf)
		log.Println("Warning: JWT_SECRET not set, using ephemeral secret")
	}
	jwtSecret = []byte(secret)
	return nil
}

// GenerateToken issues a signed token for a user.
func GenerateToken(userID, email, venueID, role string) (string, error) {
	now := time.Now()
	claims := Claims{
		UserID:  userID,
		Email:   email,
		VenueID: venueID,
		Role:    role,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(TokenTTL)),
			Issuer:    "menu-ingest-service",
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(jwtSecret)
}

// ParseToken validates a token string and returns its claims.
func ParseToken(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return jwtSecret, nil
	})
	if err != nil {
		return nil, fmt.Errorf("parse token: %w", err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, errors.New("invalid token")
	}
	return claims, nil
}

type contextKey string

const claimsKey contextKey = "claims"

// WithClaims stores claims on a request context.
func WithClaims(ctx context.Context, claims *Claims) context.Context {
	return context.WithValue(ctx, claimsKey, claims)
}

// GetClaimsFromContext returns the claims the auth guard attached.
func GetClaimsFromContext(ctx context.Context) (*Claims, error) {
	claims, ok := ctx.Value(claimsKey).(*Claims)
	if !ok || claims == nil {
		return nil, errors.New("no claims in context")
	}
	return claims, nil
}

// CheckVenueAccess verifies the caller may act on the venue. Admins may act
// on any venue; everyone else only on their own.
func CheckVenueAccess(claims *Claims, venueID string) error {
	if claims.Role == "admin" {
		return nil
	}
	if claims.VenueID != venueID {
		return errors.New("no access to venue")
	}
	return nil
}
