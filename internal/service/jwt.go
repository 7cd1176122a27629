package service

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/timehacker/api/config"
	"github.com/timehacker/api/internal/constants"
)

// ErrInvalidToken covers every access token rejection. The wrapped cause
// is for logs only.
var ErrInvalidToken = errors.New("invalid access token")

// AccessClaims is the JWT payload. Type guards against a refresh or reset
// credential being replayed as an access token.
type AccessClaims struct {
	Email string `json:"email"`
	Type  string `json:"type"`
	jwt.RegisteredClaims
}

// AccessToken is a decoded, verified access token
type AccessToken struct {
	UserID    uuid.UUID
	Email     string
	ExpiresAt time.Time
}

// IssuedSecret is an opaque refresh or reset credential. Raw goes to the
// client exactly once; only Hash and LookupID are persisted.
type IssuedSecret struct {
	Raw       string
	LookupID  string
	Hash      string
	ExpiresAt time.Time
}

type JWTService struct {
	secret     []byte
	method     jwt.SigningMethod
	accessTTL  time.Duration
	refreshTTL time.Duration
	resetTTL   time.Duration
	hasher     Hasher
	now        func() time.Time
}

type JWTOption func(*JWTService)

// WithClock replaces time.Now for issuing and validating tokens
func WithClock(now func() time.Time) JWTOption {
	return func(s *JWTService) { s.now = now }
}

func NewJWTService(cfg config.JWTConfig, hasher Hasher, opts ...JWTOption) (*JWTService, error) {
	method, ok := jwt.GetSigningMethod(cfg.SigningAlgorithm).(*jwt.SigningMethodHMAC)
	if !ok {
		return nil, fmt.Errorf("unsupported signing algorithm %q", cfg.SigningAlgorithm)
	}
	if cfg.Secret == "" {
		return nil, errors.New("jwt secret is empty")
	}

	s := &JWTService{
		secret:     []byte(cfg.Secret),
		method:     method,
		accessTTL:  cfg.AccessTTL,
		refreshTTL: cfg.RefreshTTL,
		resetTTL:   cfg.ResetTTL,
		hasher:     hasher,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

func (s *JWTService) Now() time.Time {
	return s.now()
}

func (s *JWTService) AccessTTL() time.Duration {
	return s.accessTTL
}

func (s *JWTService) IssueAccessToken(userID uuid.UUID, email string) (string, error) {
	now := s.now()
	claims := AccessClaims{
		Email: email,
		Type:  constants.TokenTypeAccess,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.accessTTL)),
		},
	}

	signed, err := jwt.NewWithClaims(s.method, claims).SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("sign access token: %w", err)
	}
	return signed, nil
}

func (s *JWTService) DecodeAccessToken(tokenString string) (*AccessToken, error) {
	claims := &AccessClaims{}
	_, err := jwt.ParseWithClaims(tokenString, claims,
		func(token *jwt.Token) (interface{}, error) {
			return s.secret, nil
		},
		jwt.WithValidMethods([]string{s.method.Alg()}),
		jwt.WithTimeFunc(s.now),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	if claims.Type != constants.TokenTypeAccess {
		return nil, fmt.Errorf("%w: unexpected type %q", ErrInvalidToken, claims.Type)
	}
	if claims.Email == "" || claims.Subject == "" {
		return nil, fmt.Errorf("%w: missing subject or email", ErrInvalidToken)
	}
	userID, err := uuid.Parse(claims.Subject)
	if err != nil {
		return nil, fmt.Errorf("%w: subject: %v", ErrInvalidToken, err)
	}

	return &AccessToken{
		UserID:    userID,
		Email:     claims.Email,
		ExpiresAt: claims.ExpiresAt.Time,
	}, nil
}

func (s *JWTService) IssueRefreshSecret(ctx context.Context) (IssuedSecret, error) {
	return s.issueSecret(ctx, s.refreshTTL)
}

func (s *JWTService) IssueResetSecret(ctx context.Context) (IssuedSecret, error) {
	return s.issueSecret(ctx, s.resetTTL)
}

func (s *JWTService) issueSecret(ctx context.Context, ttl time.Duration) (IssuedSecret, error) {
	lookupID, err := randomString(constants.TokenLookupBytes)
	if err != nil {
		return IssuedSecret{}, err
	}
	secret, err := randomString(constants.TokenSecretBytes)
	if err != nil {
		return IssuedSecret{}, err
	}

	hash, err := s.hasher.Hash(ctx, secret)
	if err != nil {
		return IssuedSecret{}, err
	}

	return IssuedSecret{
		Raw:       lookupID + "." + secret,
		LookupID:  lookupID,
		Hash:      hash,
		ExpiresAt: s.now().Add(ttl),
	}, nil
}

// SplitToken separates the lookup id from the secret. Every issued token
// has both halves; ok is false for anything else and the caller must not
// look it up.
func SplitToken(raw string) (lookupID, secret string, ok bool) {
	idx := strings.IndexByte(raw, '.')
	if idx <= 0 || idx == len(raw)-1 {
		return "", "", false
	}
	return raw[:idx], raw[idx+1:], true
}

func randomString(n int) (string, error) {
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate random token: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}
