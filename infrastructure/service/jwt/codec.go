package jwt

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/fixora/flowauth/application/port/outbound"
	apperr "github.com/fixora/flowauth/domain/error"
	"github.com/fixora/flowauth/infrastructure/config"
)

// Codec signs and verifies HS256 tokens. It does not check expiry; callers
// compare TokenClaims.ExpiresAt themselves.
type Codec struct {
	secret []byte
	issuer string
	parser *jwt.Parser
	now    func() time.Time
}

func NewCodec(secret, issuer string) (*Codec, error) {
	if len(secret) < config.MinJWTSecretLength {
		return nil, config.ErrWeakJWTSecret
	}
	return &Codec{
		secret: []byte(secret),
		issuer: issuer,
		parser: jwt.NewParser(
			jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
			jwt.WithoutClaimsValidation(),
		),
		now: time.Now,
	}, nil
}

// wireClaims is the JSON layout of a token payload.
type wireClaims struct {
	jwt.RegisteredClaims
	UserID      *userID  `json:"user_id,omitempty"`
	Authorities []string `json:"authorities,omitempty"`
	TokenType   string   `json:"token_type"`
	TenantID    string   `json:"tenant_id,omitempty"`
	DeviceID    string   `json:"device_id,omitempty"`
	ClientType  string   `json:"client_type,omitempty"`
}

// userID widens any integral JSON number, or a quoted one, to int64.
type userID int64

func (u *userID) UnmarshalJSON(b []byte) error {
	s := strings.Trim(string(b), `"`)
	if s == "" || s == "null" {
		return errors.New("user_id is empty")
	}
	if i, err := strconv.ParseInt(s, 10, 64); err == nil {
		*u = userID(i)
		return nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return fmt.Errorf("user_id %q is not a number", s)
	}
	if f != math.Trunc(f) || f >= math.MaxInt64 || f < math.MinInt64 {
		return fmt.Errorf("user_id %q is not an integer", s)
	}
	*u = userID(int64(f))
	return nil
}

// Issue signs claims with a lifetime of ttl starting now. ID, Subject and
// Kind must be set.
func (c *Codec) Issue(claims outbound.TokenClaims, ttl time.Duration) (string, error) {
	if claims.ID == "" || claims.Subject == "" || claims.Kind == "" {
		return "", fmt.Errorf("token id, subject and kind are required")
	}

	now := c.now()
	uid := userID(claims.UserID)
	wc := wireClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        claims.ID,
			Subject:   claims.Subject,
			Issuer:    c.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
		UserID:     &uid,
		TokenType:  string(claims.Kind),
		TenantID:   claims.TenantID,
		DeviceID:   claims.DeviceID,
		ClientType: claims.ClientType,
	}
	if claims.Kind == outbound.TokenKindAccess {
		wc.Authorities = claims.Authorities
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, wc).SignedString(c.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign %s token: %w", claims.Kind, err)
	}
	return signed, nil
}

// Parse verifies the signature and decodes the payload.
func (c *Codec) Parse(tokenString string) (*outbound.TokenClaims, error) {
	var wc wireClaims
	_, err := c.parser.ParseWithClaims(tokenString, &wc, func(token *jwt.Token) (interface{}, error) {
		return c.secret, nil
	})
	if err != nil {
		return nil, c.handleValidationError(err)
	}

	kind := outbound.TokenKind(wc.TokenType)
	switch {
	case kind != outbound.TokenKindAccess && kind != outbound.TokenKindRefresh:
		return nil, apperr.ErrTokenMalformed(fmt.Errorf("unknown token_type %q", wc.TokenType))
	case wc.ID == "" || wc.Subject == "":
		return nil, apperr.ErrTokenMalformed(errors.New("jti and sub are required"))
	case wc.UserID == nil:
		return nil, apperr.ErrTokenMalformed(errors.New("user_id is required"))
	case wc.ExpiresAt == nil:
		return nil, apperr.ErrTokenMalformed(errors.New("exp is required"))
	case wc.Issuer != c.issuer:
		return nil, apperr.ErrTokenMalformed(fmt.Errorf("unexpected issuer %q", wc.Issuer))
	}

	claims := &outbound.TokenClaims{
		ID:          wc.ID,
		Subject:     wc.Subject,
		UserID:      int64(*wc.UserID),
		Issuer:      wc.Issuer,
		Kind:        kind,
		Authorities: wc.Authorities,
		TenantID:    wc.TenantID,
		DeviceID:    wc.DeviceID,
		ClientType:  wc.ClientType,
		ExpiresAt:   wc.ExpiresAt.Time,
	}
	if wc.IssuedAt != nil {
		claims.IssuedAt = wc.IssuedAt.Time
	}
	if claims.Authorities == nil {
		claims.Authorities = []string{}
	}
	return claims, nil
}

func (c *Codec) handleValidationError(err error) error {
	if errors.Is(err, jwt.ErrTokenSignatureInvalid) {
		return apperr.ErrTokenSignatureInvalid(err)
	}
	return apperr.ErrTokenMalformed(err)
}
