package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"videotube-accounts/internal/account"
	"videotube-accounts/internal/apperr"
	"videotube-accounts/internal/observability"
)

const (
	msgInvalidCredentials = "invalid credentials"
	msgRefreshMissing     = "refresh token is missing"
	msgRefreshInvalid     = "invalid refresh token"
	msgRefreshRevoked     = "refresh token is invalid or expired"
	msgUserNotFound       = "user not found"
)

type Config struct {
	AccessSecret  string
	RefreshSecret string
	AccessTTL     time.Duration
	RefreshTTL    time.Duration
}

func (c Config) validate() error {
	switch {
	case c.AccessSecret == "":
		return errors.New("access token secret is required")
	case c.RefreshSecret == "":
		return errors.New("refresh token secret is required")
	case c.AccessSecret == c.RefreshSecret:
		return errors.New("access and refresh token secrets must differ")
	case c.AccessTTL <= 0:
		return errors.New("access token expiry must be positive")
	case c.RefreshTTL <= 0:
		return errors.New("refresh token expiry must be positive")
	}
	return nil
}

type LoginInput struct {
	Identifier string `json:"identifier"`
	Username   string `json:"username"`
	Email      string `json:"email"`
	Password   string `json:"password"`
}

// login returns the first non-empty of Identifier, Username and Email.
func (in LoginInput) login() string {
	for _, candidate := range []string{in.Identifier, in.Username, in.Email} {
		if key := account.NormalizeHandle(candidate); key != "" {
			return key
		}
	}
	return ""
}

type Tokens struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

type Session struct {
	AccessToken  string          `json:"accessToken"`
	RefreshToken string          `json:"refreshToken"`
	User         account.Profile `json:"user"`
}

type Service struct {
	store   account.Store
	hasher  Hasher
	access  *Codec
	refresh *Codec
	logger  *observability.Logger
}

func NewService(store account.Store, hasher Hasher, cfg Config, logger *observability.Logger) (*Service, error) {
	if store == nil {
		return nil, errors.New("credential store is required")
	}
	if hasher == nil {
		return nil, errors.New("password hasher is required")
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = observability.Nop()
	}

	return &Service{
		store:   store,
		hasher:  hasher,
		access:  NewCodec(AccessToken, cfg.AccessSecret, cfg.AccessTTL, logger),
		refresh: NewCodec(RefreshToken, cfg.RefreshSecret, cfg.RefreshTTL, logger),
		logger:  logger,
	}, nil
}

func (s *Service) AccessTTL() time.Duration {
	return s.access.TTL()
}

func (s *Service) RefreshTTL() time.Duration {
	return s.refresh.TTL()
}

func (s *Service) Login(ctx context.Context, input LoginInput) (Session, error) {
	login := input.login()
	if login == "" || input.Password == "" {
		loginTotal.WithLabelValues("bad_request").Inc()
		return Session{}, apperr.BadRequest("username or email and password are required")
	}

	user, err := s.store.FindByLogin(ctx, login)
	if err != nil {
		if errors.Is(err, account.ErrNotFound) {
			loginTotal.WithLabelValues("invalid_credentials").Inc()
			return Session{}, apperr.Unauthorized(msgInvalidCredentials)
		}
		loginTotal.WithLabelValues("error").Inc()
		return Session{}, apperr.Internal("load user for login", err)
	}

	ok, err := s.hasher.Verify(user.PasswordHash, input.Password)
	if err != nil {
		loginTotal.WithLabelValues("error").Inc()
		return Session{}, apperr.Internal("verify password", err)
	}
	if !ok {
		loginTotal.WithLabelValues("invalid_credentials").Inc()
		s.logger.Info("login_failed", map[string]any{"user_id": user.ID})
		return Session{}, apperr.Unauthorized(msgInvalidCredentials)
	}

	pair, refreshExp, err := s.mint(user)
	if err != nil {
		loginTotal.WithLabelValues("error").Inc()
		return Session{}, err
	}
	if err := s.store.SetRefreshToken(ctx, user.ID, pair.RefreshToken, refreshExp); err != nil {
		loginTotal.WithLabelValues("error").Inc()
		return Session{}, apperr.Internal("persist refresh token", err)
	}

	loginTotal.WithLabelValues("success").Inc()
	s.logger.Info("login_succeeded", map[string]any{"user_id": user.ID})

	return Session{
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
		User:         account.Sanitize(user),
	}, nil
}

// Logout revokes the user's refresh token. Calling it again is a no-op.
func (s *Service) Logout(ctx context.Context, userID string) error {
	if err := s.store.ClearRefreshToken(ctx, userID); err != nil {
		return apperr.Internal("clear refresh token", err)
	}
	s.logger.Info("logout", map[string]any{"user_id": userID})
	return nil
}

// Refresh exchanges a live refresh token for a new pair. The presented token
// is consumed: the store swaps it for the new one only if it is still current.
func (s *Service) Refresh(ctx context.Context, presented string) (Tokens, error) {
	presented = strings.TrimSpace(presented)
	if presented == "" {
		refreshTotal.WithLabelValues("missing").Inc()
		return Tokens{}, apperr.Unauthorized(msgRefreshMissing)
	}

	payload, err := s.refresh.Verify(presented)
	if err != nil {
		refreshTotal.WithLabelValues("invalid").Inc()
		return Tokens{}, apperr.Unauthorized(msgRefreshInvalid)
	}

	user, err := s.store.FindByID(ctx, payload.UserID)
	if err != nil {
		if errors.Is(err, account.ErrNotFound) {
			refreshTotal.WithLabelValues("revoked").Inc()
			return Tokens{}, apperr.Unauthorized(msgRefreshRevoked)
		}
		refreshTotal.WithLabelValues("error").Inc()
		return Tokens{}, apperr.Internal("load user for refresh", err)
	}
	if user.RefreshToken == nil || *user.RefreshToken != presented {
		refreshTotal.WithLabelValues("revoked").Inc()
		s.logger.Warn("refresh_token_reuse", map[string]any{"user_id": user.ID})
		return Tokens{}, apperr.Unauthorized(msgRefreshRevoked)
	}

	pair, refreshExp, err := s.mint(user)
	if err != nil {
		refreshTotal.WithLabelValues("error").Inc()
		return Tokens{}, err
	}

	err = s.store.RotateRefreshToken(ctx, user.ID, presented, pair.RefreshToken, refreshExp)
	if err != nil {
		if errors.Is(err, account.ErrStaleRefreshToken) {
			refreshTotal.WithLabelValues("revoked").Inc()
			s.logger.Warn("refresh_token_reuse", map[string]any{"user_id": user.ID})
			return Tokens{}, apperr.Unauthorized(msgRefreshRevoked)
		}
		refreshTotal.WithLabelValues("error").Inc()
		return Tokens{}, apperr.Internal("rotate refresh token", err)
	}

	refreshTotal.WithLabelValues("success").Inc()
	return pair, nil
}

func (s *Service) ChangePassword(ctx context.Context, userID, oldPassword, newPassword string) error {
	if oldPassword == "" || newPassword == "" {
		return apperr.BadRequest("old and new password are required")
	}
	if err := CheckPassword(newPassword); err != nil {
		return err
	}

	user, err := s.store.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, account.ErrNotFound) {
			return apperr.NotFound(msgUserNotFound)
		}
		return apperr.Internal("load user for password change", err)
	}

	ok, err := s.hasher.Verify(user.PasswordHash, oldPassword)
	if err != nil {
		return apperr.Internal("verify password", err)
	}
	if !ok {
		return apperr.Unauthorized("old password is incorrect")
	}

	hash, err := s.hasher.Hash(newPassword)
	if errors.Is(err, ErrPasswordTooLong) {
		return CheckPassword(newPassword)
	}
	if err != nil {
		return apperr.Internal("hash new password", err)
	}
	if err := s.store.UpdatePassword(ctx, user.ID, hash); err != nil {
		if errors.Is(err, account.ErrNotFound) {
			return apperr.NotFound(msgUserNotFound)
		}
		return apperr.Internal("persist password", err)
	}

	s.logger.Info("password_changed", map[string]any{"user_id": user.ID})
	return nil
}

// Authenticate resolves an access token to the sanitized record of its user.
func (s *Service) Authenticate(ctx context.Context, accessToken string) (account.Profile, error) {
	payload, err := s.access.Verify(accessToken)
	if err != nil {
		return account.Profile{}, apperr.Unauthorized("invalid access token")
	}

	user, err := s.store.FindByID(ctx, payload.UserID)
	if err != nil {
		if errors.Is(err, account.ErrNotFound) {
			return account.Profile{}, apperr.Unauthorized(msgUserNotFound)
		}
		return account.Profile{}, apperr.Internal("load user for access token", err)
	}

	return account.Sanitize(user), nil
}

// mint signs an access token then a refresh token for user.
func (s *Service) mint(user account.User) (Tokens, time.Time, error) {
	payload := Payload{UserID: user.ID, Username: user.Username, Email: user.Email}

	access, _, err := s.access.Issue(payload)
	if err != nil {
		return Tokens{}, time.Time{}, apperr.Internal("issue access token", err)
	}
	tokensIssued.WithLabelValues(string(AccessToken)).Inc()

	refresh, refreshExp, err := s.refresh.Issue(Payload{UserID: user.ID})
	if err != nil {
		return Tokens{}, time.Time{}, apperr.Internal("issue refresh token", fmt.Errorf("user %s: %w", user.ID, err))
	}
	tokensIssued.WithLabelValues(string(RefreshToken)).Inc()

	return Tokens{AccessToken: access, RefreshToken: refresh}, refreshExp, nil
}
