package service

import (
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/Hdiignna-DEV/mpt-warrior-sub003/internal/core/domain"
)

// DefaultTokenTTL is the lifetime of an issued bearer token.
const DefaultTokenTTL = 7 * 24 * time.Hour

// TokenIssuer is the iss claim written on issue and required on verify.
const TokenIssuer = "mpt-access"

// TokenService issues and verifies stateless HS256 bearer tokens.
type TokenService struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

func NewTokenService(secret string, ttl time.Duration) *TokenService {
	if ttl <= 0 {
		ttl = DefaultTokenTTL
	}
	return &TokenService{secret: []byte(secret), ttl: ttl, now: time.Now}
}

// TTL reports the configured token lifetime.
func (s *TokenService) TTL() time.Duration {
	return s.ttl
}

func (s *TokenService) Issue(account *domain.Account) (string, error) {
	now := s.now()
	claims := jwt.MapClaims{
		"id":     account.ID,
		"email":  account.Email,
		"role":   string(account.Role),
		"status": string(account.Status),
		"iss":    TokenIssuer,
		"iat":    now.Unix(),
		"exp":    now.Add(s.ttl).Unix(),
	}

	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return t.SignedString(s.secret)
}

// Verify checks signature, issuer and expiry and returns the claims as issued.
func (s *TokenService) Verify(token string) (*domain.Claims, error) {
	claims := jwt.MapClaims{}
	tkn, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		if t.Method.Alg() != jwt.SigningMethodHS256.Alg() {
			return nil, jwt.ErrTokenSignatureInvalid
		}
		return s.secret, nil
	}, jwt.WithTimeFunc(s.now), jwt.WithExpirationRequired(), jwt.WithIssuer(TokenIssuer))
	if err != nil || !tkn.Valid {
		return nil, domain.ErrInvalidToken
	}

	id, _ := claims["id"].(string)
	if id == "" {
		return nil, domain.ErrInvalidToken
	}
	email, _ := claims["email"].(string)
	role, _ := claims["role"].(string)
	status, _ := claims["status"].(string)

	out := &domain.Claims{
		AccountID: id,
		Email:     email,
		Role:      domain.Role(role),
		Status:    domain.AccountStatus(status),
	}
	if iat, err := claims.GetIssuedAt(); err == nil && iat != nil {
		out.IssuedAt = iat.Time
	}
	if exp, err := claims.GetExpirationTime(); err == nil && exp != nil {
		out.ExpiresAt = exp.Time
	}
	return out, nil
}
