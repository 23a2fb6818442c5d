package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"
)

// Token errors
var (
	ErrTokenMalformed = errors.New("token is malformed")
	ErrTokenExpired   = errors.New("token is expired")
	ErrTokenInvalid   = errors.New("token is invalid")
)

const audience = "survey-dashboard"

// Claims are the custom fields of an owner access token
type Claims struct {
	OwnerID uuid.UUID `json:"owner_id"`
	Email   string    `json:"email,omitempty"`
	jwt.RegisteredClaims
}

// TokenID returns the jti claim
func (c *Claims) TokenID() string {
	return c.ID
}

// ExpiresIn returns how long the token stays valid after now
func (c *Claims) ExpiresIn(now time.Time) time.Duration {
	if c.ExpiresAt == nil {
		return 0
	}
	if d := c.ExpiresAt.Time.Sub(now); d > 0 {
		return d
	}
	return 0
}

// JWTService issues and verifies HS256 owner tokens
type JWTService struct {
	secret []byte
	issuer string
	ttl    time.Duration
	now    func() time.Time
}

// NewJWTService creates a JWT service
func NewJWTService(secret, issuer string, expirationHrs int) (*JWTService, error) {
	if secret == "" {
		return nil, errors.New("jwt secret is required")
	}
	if expirationHrs <= 0 {
		expirationHrs = 24
	}
	if issuer == "" {
		issuer = "survey-api"
	}
	return &JWTService{
		secret: []byte(secret),
		issuer: issuer,
		ttl:    time.Duration(expirationHrs) * time.Hour,
		now:    time.Now,
	}, nil
}

// GenerateToken signs a new access token for an owner
func (s *JWTService) GenerateToken(ownerID uuid.UUID, email string) (string, *Claims, error) {
	if ownerID == uuid.Nil {
		return "", nil, errors.New("owner id is required")
	}
	now := s.now()
	claims := &Claims{
		OwnerID: ownerID,
		Email:   email,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   ownerID.String(),
			Issuer:    s.issuer,
			Audience:  jwt.ClaimStrings{audience},
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", nil, fmt.Errorf("sign token: %w", err)
	}
	return signed, claims, nil
}

// ParseToken verifies the signature, expiry, issuer and audience
func (s *JWTService) ParseToken(tokenString string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return s.secret, nil
	})
	if err != nil {
		var ve *jwt.ValidationError
		if errors.As(err, &ve) {
			switch {
			case ve.Errors&jwt.ValidationErrorMalformed != 0:
				return nil, ErrTokenMalformed
			case ve.Errors&jwt.ValidationErrorExpired != 0:
				return nil, ErrTokenExpired
			}
		}
		return nil, fmt.Errorf("%w: %v", ErrTokenInvalid, err)
	}
	if !token.Valid {
		return nil, ErrTokenInvalid
	}
	if claims.Issuer != s.issuer || !claims.VerifyAudience(audience, true) {
		return nil, fmt.Errorf("%w: wrong issuer or audience", ErrTokenInvalid)
	}
	if claims.OwnerID == uuid.Nil || claims.ID == "" {
		return nil, fmt.Errorf("%w: missing owner or token id", ErrTokenInvalid)
	}
	return claims, nil
}
