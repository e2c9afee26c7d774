// Package auth issues and verifies the bearer tokens that identify players,
// and hashes account passwords.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/jason-s-yu/showtime/internal/models"
	"golang.org/x/crypto/bcrypt"
)

// ErrInvalidToken covers malformed, expired and wrongly signed tokens.
var ErrInvalidToken = errors.New("auth: invalid token")

// Claims is the token payload. The subject is the player id.
type Claims struct {
	Name  string `json:"name"`
	Guest bool   `json:"guest,omitempty"`
	Admin bool   `json:"admin,omitempty"`
	jwt.RegisteredClaims
}

// Issuer signs and verifies HS256 tokens.
type Issuer struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

func NewIssuer(secret string, ttl time.Duration) *Issuer {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &Issuer{secret: []byte(secret), ttl: ttl, now: time.Now}
}

// Issue returns a signed token for who.
func (i *Issuer) Issue(who models.Identity) (string, error) {
	now := i.now()
	claims := Claims{
		Name:  who.DisplayName,
		Guest: who.Guest,
		Admin: who.Admin,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   who.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(i.ttl)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(i.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// Parse verifies token and returns the identity it carries.
func (i *Issuer) Parse(token string) (models.Identity, error) {
	var claims Claims
	_, err := jwt.ParseWithClaims(token, &claims, func(*jwt.Token) (any, error) {
		return i.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithTimeFunc(i.now))
	if err != nil {
		return models.Identity{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if claims.Subject == "" {
		return models.Identity{}, fmt.Errorf("%w: missing subject", ErrInvalidToken)
	}
	return models.Identity{
		ID:          claims.Subject,
		DisplayName: claims.Name,
		Guest:       claims.Guest,
		Admin:       claims.Admin,
	}, nil
}

// NewGuest mints a guest identity. An empty name becomes "Guest-xxxx".
func NewGuest(name string) models.Identity {
	id := uuid.NewString()
	if name == "" {
		name = "Guest-" + id[:4]
	}
	return models.Identity{ID: id, DisplayName: name, Guest: true}
}

func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// CheckPassword reports whether password matches hash.
func CheckPassword(hash, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}
