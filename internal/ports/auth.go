package ports

import (
	"time"

	"github.com/google/uuid"
)

type AuthClaims struct {
	UserID    uuid.UUID
	Role      string
	RegionID  string
	ExpiresAt time.Time
}

type TokenVerifier interface {
	ParseAndValidate(raw string) (AuthClaims, error)
}
