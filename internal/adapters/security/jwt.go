package security

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/playnatela/volante-express/internal/domain"
	"github.com/playnatela/volante-express/internal/ports"
)

// JWTVerifier validates HS256 bearer tokens issued with the shared secret.
type JWTVerifier struct {
	secret []byte
	issuer string
}

func NewJWTVerifier(secret, issuer string) (*JWTVerifier, error) {
	if len(secret) < 16 {
		return nil, errors.New("jwt secret must be at least 16 bytes")
	}
	return &JWTVerifier{secret: []byte(secret), issuer: issuer}, nil
}

type volanteClaims struct {
	UserID   string `json:"user_id"`
	Role     string `json:"role"`
	RegionID string `json:"region_id"`
	jwt.RegisteredClaims
}

// Sign issues a token for claims. Used by operator tooling and tests.
func (v *JWTVerifier) Sign(claims ports.AuthClaims) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, volanteClaims{
		UserID:   claims.UserID.String(),
		Role:     claims.Role,
		RegionID: claims.RegionID,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    v.issuer,
			Subject:   claims.UserID.String(),
			IssuedAt:  jwt.NewNumericDate(time.Now().UTC()),
			ExpiresAt: jwt.NewNumericDate(claims.ExpiresAt),
		},
	})
	return token.SignedString(v.secret)
}

func (v *JWTVerifier) ParseAndValidate(raw string) (ports.AuthClaims, error) {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithLeeway(30 * time.Second),
		jwt.WithExpirationRequired(),
	}
	if v.issuer != "" {
		opts = append(opts, jwt.WithIssuer(v.issuer))
	}
	parsed, err := jwt.ParseWithClaims(raw, &volanteClaims{}, func(token *jwt.Token) (any, error) {
		return v.secret, nil
	}, opts...)
	if err != nil {
		return ports.AuthClaims{}, fmt.Errorf("%w: %v", domain.ErrUnauthorized, err)
	}
	claims, ok := parsed.Claims.(*volanteClaims)
	if !ok || !parsed.Valid {
		return ports.AuthClaims{}, fmt.Errorf("%w: invalid token claims", domain.ErrUnauthorized)
	}

	userID, err := uuid.Parse(claims.UserID)
	if err != nil {
		return ports.AuthClaims{}, fmt.Errorf("%w: parse user_id: %v", domain.ErrUnauthorized, err)
	}
	role := strings.ToLower(strings.TrimSpace(claims.Role))
	if role != domain.RoleAdmin && role != domain.RoleInstaller {
		return ports.AuthClaims{}, fmt.Errorf("%w: unknown role %q", domain.ErrUnauthorized, claims.Role)
	}
	if role == domain.RoleInstaller && strings.TrimSpace(claims.RegionID) == "" {
		return ports.AuthClaims{}, fmt.Errorf("%w: installer token without region", domain.ErrUnauthorized)
	}

	return ports.AuthClaims{
		UserID:    userID,
		Role:      role,
		RegionID:  strings.ToLower(strings.TrimSpace(claims.RegionID)),
		ExpiresAt: claims.ExpiresAt.Time.UTC(),
	}, nil
}
