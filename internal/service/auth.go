package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/timehacker/api/internal/constants"
	"github.com/timehacker/api/internal/dto"
	apperrors "github.com/timehacker/api/internal/errors"
	"github.com/timehacker/api/internal/model"
	"github.com/timehacker/api/internal/repository"
	ctxutil "github.com/timehacker/api/pkg/context"
	"github.com/timehacker/api/pkg/logger"
	"go.uber.org/zap"
)

var validate = validator.New()

type AuthOptions struct {
	// RefreshRotation replaces the presented refresh token on every use
	RefreshRotation bool
	// SiteURL is the default base for reset links
	SiteURL string
	// AllowedSiteURLs lists the client supplied site_url values that may
	// override SiteURL
	AllowedSiteURLs []string
}

type AuthService struct {
	store    repository.Store
	hasher   Hasher
	tokens   *JWTService
	notifier ResetNotifier
	opts     AuthOptions

	dummyOnce sync.Once
	dummyHash string
}

func NewAuthService(store repository.Store, hasher Hasher, tokens *JWTService, notifier ResetNotifier, opts AuthOptions) *AuthService {
	if notifier == nil {
		notifier = LogNotifier{}
	}
	return &AuthService{
		store:    store,
		hasher:   hasher,
		tokens:   tokens,
		notifier: notifier,
		opts:     opts,
	}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func validatePassword(password string) error {
	if n := len([]rune(password)); n < constants.MinPasswordLength || n > constants.MaxPasswordLength {
		return apperrors.WrapError(apperrors.ErrValidation,
			fmt.Errorf("password must be between %d and %d characters", constants.MinPasswordLength, constants.MaxPasswordLength))
	}
	return nil
}

func validateEmail(email string) error {
	if err := validate.Var(email, "required,email,max=255"); err != nil {
		return apperrors.WrapError(apperrors.ErrValidation, errors.New("email is not valid"))
	}
	return nil
}

// cancelled reports a request that ended while waiting on the hash pool
// or the store. It is not a server fault.
func cancelled(ctx context.Context, err error) error {
	logger.InfoWithContext(ctx, "Request cancelled").Err(err).Log()
	return apperrors.WrapError(apperrors.ErrServiceUnavailable, err)
}

func internalError(ctx context.Context, message string, err error) error {
	logger.ErrorWithContext(ctx, message).Err(err).Log()
	return apperrors.WrapError(apperrors.ErrInternal, err)
}

// Register creates an active, unverified user together with an empty
// profile. The unique index on email decides races between two
// registrations of the same address.
func (s *AuthService) Register(ctx context.Context, req dto.RegisterRequest) (*dto.UserPublicInfo, error) {
	ctx = ctxutil.WithFunction(ctx, "service", "Register")

	email := normalizeEmail(req.Email)
	if err := validateEmail(email); err != nil {
		return nil, err
	}
	if err := validatePassword(req.Password); err != nil {
		return nil, err
	}

	_, err := s.store.Users().GetByEmail(ctx, email)
	switch {
	case err == nil:
		logger.InfoWithContext(ctx, "Registration rejected, email taken").Log()
		return nil, apperrors.ErrEmailAlreadyRegistered
	case !errors.Is(err, repository.ErrNotFound):
		return nil, internalError(ctx, "Failed to check existing email", err)
	}

	passwordHash, err := s.hasher.Hash(ctx, req.Password)
	if err != nil {
		return nil, internalError(ctx, "Failed to hash password", err)
	}

	user := &model.User{
		ID:           uuid.New(),
		Email:        email,
		PasswordHash: passwordHash,
		IsVerified:   false,
		IsActive:     true,
	}

	err = s.store.WithinTransaction(ctx, func(tx repository.Store) error {
		if err := tx.Users().Create(ctx, user); err != nil {
			return err
		}
		return tx.Profiles().Create(ctx, &model.Profile{ID: user.ID})
	})
	if err != nil {
		if errors.Is(err, repository.ErrDuplicateEmail) {
			logger.InfoWithContext(ctx, "Registration lost race on unique email").Log()
			return nil, apperrors.ErrEmailAlreadyRegistered
		}
		return nil, internalError(ctx, "Failed to register user", err)
	}

	logger.InfoWithContext(ctx, "User registered").
		String("user_id", user.ID.String()).
		Log()

	return &dto.UserPublicInfo{
		ID:         user.ID,
		Email:      user.Email,
		IsVerified: user.IsVerified,
		IsActive:   user.IsActive,
		CreatedAt:  user.CreatedAt,
	}, nil
}

// Login returns the same error for an unknown email and a wrong password.
// A disabled account is reported only after its password verifies.
func (s *AuthService) Login(ctx context.Context, req dto.LoginRequest) (*dto.TokenPairResponse, error) {
	ctx = ctxutil.WithFunction(ctx, "service", "Login")

	email := normalizeEmail(req.Email)

	user, err := s.store.Users().GetByEmail(ctx, email)
	if err != nil {
		if !errors.Is(err, repository.ErrNotFound) {
			return nil, internalError(ctx, "Failed to load user for login", err)
		}
		s.hasher.Verify(ctx, req.Password, s.getDummyHash(ctx))
		logger.LogAuth("", "login", false, zap.String("reason", "unknown_email"))
		return nil, apperrors.ErrInvalidCredentials
	}

	if !s.hasher.Verify(ctx, req.Password, user.PasswordHash) {
		if err := ctx.Err(); err != nil {
			return nil, cancelled(ctx, err)
		}
		logger.LogAuth(user.ID.String(), "login", false, zap.String("reason", "bad_password"))
		return nil, apperrors.ErrInvalidCredentials
	}

	if !user.IsActive {
		logger.LogAuth(user.ID.String(), "login", false, zap.String("reason", "disabled"))
		return nil, apperrors.ErrAccountDisabled
	}

	accessToken, err := s.tokens.IssueAccessToken(user.ID, user.Email)
	if err != nil {
		return nil, internalError(ctx, "Failed to issue access token", err)
	}

	refresh, err := s.tokens.IssueRefreshSecret(ctx)
	if err != nil {
		return nil, internalError(ctx, "Failed to issue refresh token", err)
	}

	err = s.store.RefreshTokens().Create(ctx, &model.RefreshToken{
		UserID:    user.ID,
		LookupID:  refresh.LookupID,
		TokenHash: refresh.Hash,
		ExpiresAt: refresh.ExpiresAt,
	})
	if err != nil {
		return nil, internalError(ctx, "Failed to persist refresh token", err)
	}

	logger.LogAuth(user.ID.String(), "login", true)

	return &dto.TokenPairResponse{
		AccessToken:  accessToken,
		RefreshToken: refresh.Raw,
		TokenType:    constants.TokenTypeBearer,
	}, nil
}

// RefreshAccessToken exchanges a live refresh token for a new access
// token. With rotation on, the presented token is consumed and replaced.
func (s *AuthService) RefreshAccessToken(ctx context.Context, rawRefreshToken string) (*dto.AccessTokenResponse, error) {
	ctx = ctxutil.WithFunction(ctx, "service", "RefreshAccessToken")

	match, err := s.matchRefreshToken(ctx, s.store.RefreshTokens(), rawRefreshToken, nil)
	if err != nil {
		return nil, err
	}
	if match == nil {
		logger.InfoWithContext(ctx, "Refresh token not recognised").Log()
		return nil, apperrors.ErrInvalidOrExpiredToken
	}

	user, err := s.store.Users().GetByID(ctx, match.UserID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperrors.ErrInvalidOrExpiredToken
		}
		return nil, internalError(ctx, "Failed to load refresh token owner", err)
	}
	if !user.IsActive {
		logger.LogAuth(user.ID.String(), "refresh", false, zap.String("reason", "disabled"))
		return nil, apperrors.ErrInvalidOrExpiredToken
	}

	accessToken, err := s.tokens.IssueAccessToken(user.ID, user.Email)
	if err != nil {
		return nil, internalError(ctx, "Failed to issue access token", err)
	}

	response := &dto.AccessTokenResponse{
		AccessToken: accessToken,
		TokenType:   constants.TokenTypeBearer,
	}

	if s.opts.RefreshRotation {
		next, err := s.tokens.IssueRefreshSecret(ctx)
		if err != nil {
			return nil, internalError(ctx, "Failed to issue refresh token", err)
		}

		err = s.store.WithinTransaction(ctx, func(tx repository.Store) error {
			if err := tx.RefreshTokens().Delete(ctx, match.ID); err != nil {
				return err
			}
			return tx.RefreshTokens().Create(ctx, &model.RefreshToken{
				UserID:    user.ID,
				LookupID:  next.LookupID,
				TokenHash: next.Hash,
				ExpiresAt: next.ExpiresAt,
			})
		})
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				// another request rotated this token first
				return nil, apperrors.ErrInvalidOrExpiredToken
			}
			return nil, internalError(ctx, "Failed to rotate refresh token", err)
		}
		response.RefreshToken = next.Raw
	}

	logger.LogAuth(user.ID.String(), "refresh", true, zap.Bool("rotated", s.opts.RefreshRotation))
	return response, nil
}

// Logout revokes refresh tokens. With a token only the matching row goes;
// without one every token of userID goes. An unknown token is a silent
// success. userID may be nil when the caller did not authenticate, in
// which case the token itself identifies the owner.
func (s *AuthService) Logout(ctx context.Context, userID *uuid.UUID, rawRefreshToken string) error {
	ctx = ctxutil.WithFunction(ctx, "service", "Logout")

	repo := s.store.RefreshTokens()

	if rawRefreshToken == "" {
		if userID == nil {
			return apperrors.WrapError(apperrors.ErrValidation, errors.New("refresh_token is required"))
		}
		count, err := repo.DeleteAllForUser(ctx, *userID)
		if err != nil {
			return internalError(ctx, "Failed to revoke refresh tokens", err)
		}
		logger.InfoWithContext(ctx, "Logged out of all sessions").
			String("user_id", userID.String()).
			Int64("revoked", count).
			Log()
		return nil
	}

	match, err := s.matchRefreshToken(ctx, repo, rawRefreshToken, userID)
	if err != nil {
		return err
	}
	if match == nil {
		logger.DebugWithContext(ctx, "Logout with unknown refresh token").Log()
		return nil
	}

	if err := repo.Delete(ctx, match.ID); err != nil && !errors.Is(err, repository.ErrNotFound) {
		return internalError(ctx, "Failed to revoke refresh token", err)
	}

	logger.InfoWithContext(ctx, "Refresh token revoked").
		String("user_id", match.UserID.String()).
		Log()
	return nil
}

// RequestPasswordReset always answers with the same message. Only an
// existing active account gets a token, delivered by the notifier.
func (s *AuthService) RequestPasswordReset(ctx context.Context, email, siteURL string) *dto.MessageResponse {
	ctx = ctxutil.WithFunction(ctx, "service", "RequestPasswordReset")
	response := &dto.MessageResponse{Message: constants.MsgResetRequested}

	user, err := s.store.Users().GetByEmail(ctx, normalizeEmail(email))
	if err != nil {
		if !errors.Is(err, repository.ErrNotFound) {
			logger.ErrorWithContext(ctx, "Failed to look up reset email").Err(err).Log()
		}
		// match the bcrypt work of the found path
		s.hasher.Verify(ctx, email, s.getDummyHash(ctx))
		return response
	}

	if !user.IsActive {
		logger.InfoWithContext(ctx, "Reset requested for disabled account").
			String("user_id", user.ID.String()).
			Log()
		return response
	}

	secret, err := s.tokens.IssueResetSecret(ctx)
	if err != nil {
		logger.ErrorWithContext(ctx, "Failed to issue reset token").Err(err).Log()
		return response
	}

	err = s.store.ResetTokens().Create(ctx, &model.PasswordResetToken{
		UserID:    user.ID,
		LookupID:  secret.LookupID,
		TokenHash: secret.Hash,
		ExpiresAt: secret.ExpiresAt,
	})
	if err != nil {
		logger.ErrorWithContext(ctx, "Failed to persist reset token").Err(err).Log()
		return response
	}

	if err := s.notifier.NotifyPasswordReset(ctx, user.Email, secret.Raw, s.resolveSiteURL(ctx, siteURL)); err != nil {
		logger.ErrorWithContext(ctx, "Failed to deliver reset token").
			String("user_id", user.ID.String()).
			Err(err).
			Log()
	}

	logger.InfoWithContext(ctx, "Password reset token issued").
		String("user_id", user.ID.String()).
		Log()
	return response
}

// ConfirmPasswordReset sets a new password, consumes the token and revokes
// every refresh token of the user in one transaction.
func (s *AuthService) ConfirmPasswordReset(ctx context.Context, rawToken, newPassword string) (*dto.MessageResponse, error) {
	ctx = ctxutil.WithFunction(ctx, "service", "ConfirmPasswordReset")

	if err := validatePassword(newPassword); err != nil {
		return nil, err
	}

	lookupID, secret, ok := SplitToken(rawToken)
	if !ok {
		logger.InfoWithContext(ctx, "Malformed reset token").Log()
		return nil, apperrors.ErrInvalidOrExpiredResetToken
	}

	candidates, err := s.store.ResetTokens().ListUsable(ctx, lookupID, s.tokens.Now())
	if err != nil {
		return nil, internalError(ctx, "Failed to load reset tokens", err)
	}

	var match *model.PasswordResetToken
	for i := range candidates {
		if s.hasher.Verify(ctx, secret, candidates[i].TokenHash) {
			match = &candidates[i]
			break
		}
	}
	if err := ctx.Err(); err != nil {
		return nil, cancelled(ctx, err)
	}
	if match == nil {
		logger.InfoWithContext(ctx, "Reset token not recognised").
			Int("candidates", len(candidates)).
			Log()
		return nil, apperrors.ErrInvalidOrExpiredResetToken
	}

	passwordHash, err := s.hasher.Hash(ctx, newPassword)
	if err != nil {
		return nil, internalError(ctx, "Failed to hash password", err)
	}

	var revoked int64
	err = s.store.WithinTransaction(ctx, func(tx repository.Store) error {
		if err := tx.Users().UpdatePassword(ctx, match.UserID, passwordHash); err != nil {
			return err
		}
		if err := tx.ResetTokens().MarkUsed(ctx, match.ID); err != nil {
			return err
		}
		var err error
		revoked, err = tx.RefreshTokens().DeleteAllForUser(ctx, match.UserID)
		return err
	})
	if err != nil {
		if errors.Is(err, repository.ErrTokenAlreadyUsed) || errors.Is(err, repository.ErrNotFound) {
			return nil, apperrors.ErrInvalidOrExpiredResetToken
		}
		return nil, internalError(ctx, "Failed to reset password", err)
	}

	logger.InfoWithContext(ctx, "Password reset completed").
		String("user_id", match.UserID.String()).
		Int64("revoked_sessions", revoked).
		Log()

	return &dto.MessageResponse{Message: constants.MsgPasswordResetSuccess}, nil
}

// ResolveIdentity backs the identity middleware: decode, load, check active.
func (s *AuthService) ResolveIdentity(ctx context.Context, accessToken string) (*model.User, error) {
	ctx = ctxutil.WithFunction(ctx, "service", "ResolveIdentity")

	claims, err := s.tokens.DecodeAccessToken(accessToken)
	if err != nil {
		logger.DebugWithContext(ctx, "Access token rejected").Err(err).Log()
		return nil, apperrors.ErrUnauthenticated
	}

	user, err := s.store.Users().GetByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperrors.ErrUnauthenticated
		}
		return nil, internalError(ctx, "Failed to load token subject", err)
	}
	if !user.IsActive {
		return nil, apperrors.ErrAccountDisabled
	}
	return user, nil
}

// PurgeExpiredTokens deletes expired refresh tokens and spent or expired
// reset tokens.
func (s *AuthService) PurgeExpiredTokens(ctx context.Context) (int64, error) {
	ctx = ctxutil.WithFunction(ctx, "service", "PurgeExpiredTokens")
	now := s.tokens.Now()

	refresh, err := s.store.RefreshTokens().DeleteExpired(ctx, now)
	if err != nil {
		return 0, internalError(ctx, "Failed to purge refresh tokens", err)
	}
	reset, err := s.store.ResetTokens().DeleteExpired(ctx, now)
	if err != nil {
		return refresh, internalError(ctx, "Failed to purge reset tokens", err)
	}

	if refresh+reset > 0 {
		logger.InfoWithContext(ctx, "Expired tokens purged").
			Int64("refresh", refresh).
			Int64("reset", reset).
			Log()
	}
	return refresh + reset, nil
}

// matchRefreshToken returns the stored row raw verifies against, or nil.
// Only rows sharing the token's lookup id are verified, so a malformed
// token costs no bcrypt work at all.
func (s *AuthService) matchRefreshToken(ctx context.Context, repo repository.RefreshTokens, raw string, userID *uuid.UUID) (*model.RefreshToken, error) {
	lookupID, secret, ok := SplitToken(raw)
	if !ok {
		return nil, nil
	}

	now := s.tokens.Now()

	var (
		candidates []model.RefreshToken
		err        error
	)
	if userID != nil {
		candidates, err = repo.ListActiveByUser(ctx, *userID, now)
	} else {
		candidates, err = repo.ListActive(ctx, lookupID, now)
	}
	if err != nil {
		return nil, internalError(ctx, "Failed to load refresh tokens", err)
	}

	start := time.Now()
	for i := range candidates {
		if candidates[i].LookupID != lookupID {
			continue
		}
		if s.hasher.Verify(ctx, secret, candidates[i].TokenHash) {
			logger.DebugWithContext(ctx, "Refresh token matched").
				Int("candidates", len(candidates)).
				Duration(time.Since(start)).
				Log()
			return &candidates[i], nil
		}
	}
	if err := ctx.Err(); err != nil {
		return nil, cancelled(ctx, err)
	}
	return nil, nil
}

func (s *AuthService) resolveSiteURL(ctx context.Context, requested string) string {
	requested = strings.TrimSuffix(strings.TrimSpace(requested), "/")
	if requested == "" {
		return s.opts.SiteURL
	}
	for _, allowed := range s.opts.AllowedSiteURLs {
		if strings.TrimSuffix(allowed, "/") == requested {
			return requested
		}
	}
	logger.WarnWithContext(ctx, "Ignoring site_url outside allowed origins").
		String("site_url", requested).
		Log()
	return s.opts.SiteURL
}

func (s *AuthService) getDummyHash(ctx context.Context) string {
	s.dummyOnce.Do(func() {
		h, err := s.hasher.Hash(context.WithoutCancel(ctx), "timehacker-login-timing-equaliser")
		if err != nil {
			logger.WarnWithContext(ctx, "Failed to build dummy hash").Err(err).Log()
			return
		}
		s.dummyHash = h
	})
	return s.dummyHash
}
