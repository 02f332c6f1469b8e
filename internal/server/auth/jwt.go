// Package auth issues and verifies the signed bearer tokens that identify
// users on the solve socket and the HTTP endpoints.
package auth

import (
	"errors"
	"time"

	"github.com/dmitrijs2005/mathsolver/internal/common"
	"github.com/golang-jwt/jwt/v5"
)

// Claims are the registered claims plus the role and token type carried by every
// token we mint. The subject ("sub") holds the user id.
type Claims struct {
	jwt.RegisteredClaims
	Role string `json:"role,omitempty"`
	Type string `json:"type,omitempty"`
}

// Identity is what a verified token tells us about its bearer. It lives only
// for the duration of request or session validation.
type Identity struct {
	SubjectID string
	Role      string
	TokenType string
	ExpiresAt time.Time
}

// IsRefresh reports whether the token was minted as a refresh token.
func (i *Identity) IsRefresh() bool {
	return i.TokenType == common.TokenTypeRefresh
}

var signingMethod = jwt.SigningMethodHS256

func GenerateToken(subject, role, tokenType string, secretKey []byte, validityDuration time.Duration) (string, error) {
	now := time.Now()
	token := jwt.NewWithClaims(signingMethod, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(validityDuration)),
		},
		Role: role,
		Type: tokenType,
	})

	tokenString, err := token.SignedString(secretKey)
	if err != nil {
		return "", err
	}

	return tokenString, nil
}

// Verifier validates bearer tokens against a fixed algorithm and shared
// secret. It holds no mutable state and is safe for concurrent use.
type Verifier struct {
	secretKey []byte
}

func NewVerifier(secretKey []byte) *Verifier {
	return &Verifier{secretKey: secretKey}
}

// Verify decodes tokenString and returns the bearer's identity.
//
// Failures are reported as sentinels, never as panics:
//   - common.ErrTokenExpired when the signature is fine but exp has passed;
//   - common.ErrInvalidToken for everything else (empty, malformed, wrong
//     signature or algorithm, missing subject).
func (v *Verifier) Verify(tokenString string) (*Identity, error) {
	if tokenString == "" {
		return nil, common.ErrInvalidToken
	}

	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		return v.secretKey, nil
	}, jwt.WithValidMethods([]string{signingMethod.Alg()}), jwt.WithExpirationRequired())
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, common.ErrTokenExpired
		}
		return nil, common.ErrInvalidToken
	}

	if !token.Valid || claims.Subject == "" {
		return nil, common.ErrInvalidToken
	}

	identity := &Identity{
		SubjectID: claims.Subject,
		Role:      claims.Role,
		TokenType: claims.Type,
	}
	if claims.ExpiresAt != nil {
		identity.ExpiresAt = claims.ExpiresAt.Time
	}
	if identity.Role == "" {
		identity.Role = common.RoleUser
	}

	return identity, nil
}

// TokenPair is an access token with the refresh token that renews it.
type TokenPair struct {
	AccessToken  string
	RefreshToken string
}

// Issuer mints access and refresh tokens with configured lifetimes.
type Issuer struct {
	secretKey                    []byte
	accessTokenValidityDuration  time.Duration
	refreshTokenValidityDuration time.Duration
}

func NewIssuer(secretKey []byte, accessValidity, refreshValidity time.Duration) *Issuer {
	return &Issuer{
		secretKey:                    secretKey,
		accessTokenValidityDuration:  accessValidity,
		refreshTokenValidityDuration: refreshValidity,
	}
}

func (i *Issuer) AccessToken(subject, role string) (string, error) {
	return GenerateToken(subject, role, "", i.secretKey, i.accessTokenValidityDuration)
}

func (i *Issuer) Pair(subject, role string) (*TokenPair, error) {
	access, err := i.AccessToken(subject, role)
	if err != nil {
		return nil, err
	}
	refresh, err := GenerateToken(subject, role, common.TokenTypeRefresh, i.secretKey, i.refreshTokenValidityDuration)
	if err != nil {
		return nil, err
	}
	return &TokenPair{AccessToken: access, RefreshToken: refresh}, nil
}
