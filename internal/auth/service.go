package auth

import (
	"context"
	"errors"
	"time"

	"github.com/intime-labs/intime/internal/config"
	"github.com/intime-labs/intime/internal/identity"
)

var (
	ErrInvalidToken     = errors.New("invalid token")
	ErrTokenExpired     = errors.New("token expired")
	ErrTokenInvalidated = errors.New("token version invalidated")
)

type Service struct {
	cfg    config.Config
	idRepo identity.Repository
	now    func() time.Time
}

func NewService(cfg config.Config, idRepo identity.Repository) *Service {
	return &Service{cfg: cfg, idRepo: idRepo, now: time.Now}
}

type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int64  `json:"expires_in"`
}

// Claims are the verified contents of an access or refresh token.
type Claims struct {
	UserID  string
	Account string
	Version int
}

// Login issues a token pair for an already authenticated user.
func (s *Service) Login(user identity.User) (TokenPair, error) {
	access, err := s.sign(user.ID, user.Account, user.TokenVersion, s.cfg.JWTSecret, s.cfg.AccessTokenTTL)
	if err != nil {
		return TokenPair{}, err
	}
	refresh, err := s.sign(user.ID, user.Account, user.TokenVersion, s.cfg.RefreshSecret, s.cfg.RefreshTokenTTL)
	if err != nil {
		return TokenPair{}, err
	}
	return TokenPair{AccessToken: access, RefreshToken: refresh, ExpiresIn: int64(s.cfg.AccessTokenTTL.Seconds())}, nil
}

func (s *Service) sign(userID, account string, version int, secret string, ttl time.Duration) (string, error) {
	now := s.now()
	claims := map[string]any{
		"sub":  userID,
		"acct": account,
		"ver":  version,
		"iat":  now.Unix(),
		"exp":  now.Add(ttl).Unix(),
	}
	return SignHS256(claims, []byte(secret))
}

// VerifyAccess checks an access token's signature, expiry and version.
func (s *Service) VerifyAccess(ctx context.Context, token string) (Claims, error) {
	return s.verify(ctx, token, s.cfg.JWTSecret)
}

func (s *Service) verify(ctx context.Context, token, secret string) (Claims, error) {
	raw, err := ParseAndVerifyHS256(token, []byte(secret))
	if err != nil {
		return Claims{}, ErrInvalidToken
	}
	exp, _ := raw["exp"].(float64)
	if int64(exp) <= s.now().Unix() {
		return Claims{}, ErrTokenExpired
	}
	sub, _ := raw["sub"].(string)
	verFloat, _ := raw["ver"].(float64)
	claims := Claims{UserID: sub, Version: int(verFloat)}

	user, err := s.idRepo.FindByID(ctx, sub)
	if err != nil {
		return Claims{}, ErrInvalidToken
	}
	if user.TokenVersion != claims.Version {
		return Claims{}, ErrTokenInvalidated
	}
	claims.Account = user.Account
	return claims, nil
}

// Refresh verifies the refresh token and returns a new access token if valid.
func (s *Service) Refresh(ctx context.Context, refreshToken string) (string, int64, error) {
	claims, err := s.verify(ctx, refreshToken, s.cfg.RefreshSecret)
	if err != nil {
		return "", 0, err
	}
	signed, err := s.sign(claims.UserID, claims.Account, claims.Version, s.cfg.JWTSecret, s.cfg.AccessTokenTTL)
	if err != nil {
		return "", 0, err
	}
	return signed, int64(s.cfg.AccessTokenTTL.Seconds()), nil
}

// Logout increments token version so older tokens become invalid.
func (s *Service) Logout(ctx context.Context, refreshToken string) error {
	claims, err := s.verify(ctx, refreshToken, s.cfg.RefreshSecret)
	if err != nil {
		return err
	}
	return s.idRepo.UpdateTokenVersion(ctx, claims.UserID, claims.Version+1)
}
