package auth

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Verification failure reasons, distinguished so the transport can map them
// to the right authentication_failed code.
var (
	ErrTokenExpired   = errors.New("token expired")
	ErrTokenMalformed = errors.New("token malformed")
	ErrTokenRevoked   = errors.New("token revoked")
	ErrUnknownSubject = errors.New("unknown subject")
)

// Identity is the verified subject of a bearer token.
type Identity struct {
	UserID      string
	Email       string
	DisplayName string
	Banned      bool
}

// RefreshStore looks up refresh tokens by salted hash. The storage itself is
// external; only the lookup contract lives here.
type RefreshStore interface {
	// LookupRefresh returns the owning user id for a token hash, or
	// ErrTokenRevoked / ErrUnknownSubject.
	LookupRefresh(ctx context.Context, tokenHash string) (userID string, err error)
}

// accessClaims is the expected access token payload.
type accessClaims struct {
	UserID string `json:"user_id"`
	Email  string `json:"email"`
	Banned bool   `json:"banned,omitempty"`
	jwt.RegisteredClaims
}

// Verifier validates bearer tokens. It is the sole holder of the signing
// secret; the secret is immutable after construction.
type Verifier struct {
	secret  []byte
	salt    string
	refresh RefreshStore
	parser  *jwt.Parser
}

// ClockSkewLeeway bounds tolerated clock drift between the identity provider
// and this instance.
const ClockSkewLeeway = 60 * time.Second

// NewVerifier creates a verifier for access tokens signed with secret.
// refresh may be nil when refresh tokens are not accepted on this surface.
func NewVerifier(secret []byte, refreshSalt string, refresh RefreshStore) *Verifier {
	return &Verifier{
		secret:  secret,
		salt:    refreshSalt,
		refresh: refresh,
		parser: jwt.NewParser(
			jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
			jwt.WithLeeway(ClockSkewLeeway),
			jwt.WithExpirationRequired(),
		),
	}
}

// VerifyAccess validates an access token and extracts the subject.
func (v *Verifier) VerifyAccess(token string) (Identity, error) {
	var claims accessClaims
	_, err := v.parser.ParseWithClaims(token, &claims, func(t *jwt.Token) (interface{}, error) {
		return v.secret, nil
	})
	switch {
	case err == nil:
	case errors.Is(err, jwt.ErrTokenExpired):
		return Identity{}, ErrTokenExpired
	default:
		return Identity{}, fmt.Errorf("%w: %v", ErrTokenMalformed, err)
	}
	if claims.UserID == "" {
		return Identity{}, ErrUnknownSubject
	}
	return Identity{
		UserID: claims.UserID,
		Email:  claims.Email,
		// Display name falls back to the subject until the profile
		// lookup fills it in.
		DisplayName: claims.UserID,
		Banned:      claims.Banned,
	}, nil
}

// VerifyRefresh validates a refresh token by salted-hash lookup in the
// external store.
func (v *Verifier) VerifyRefresh(ctx context.Context, token string) (Identity, error) {
	if v.refresh == nil {
		return Identity{}, ErrTokenMalformed
	}
	userID, err := v.refresh.LookupRefresh(ctx, v.HashRefresh(token))
	if err != nil {
		return Identity{}, err
	}
	return Identity{UserID: userID, DisplayName: userID}, nil
}

// HashRefresh computes the salted hash under which refresh tokens are
// stored.
func (v *Verifier) HashRefresh(token string) string {
	sum := sha256.Sum256([]byte(v.salt + token))
	return hex.EncodeToString(sum[:])
}
