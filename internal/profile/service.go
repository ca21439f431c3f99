package profile

import (
	"context"
	"errors"
	"net/mail"
	"regexp"
	"strings"

	"videotube-accounts/internal/account"
	"videotube-accounts/internal/apperr"
	"videotube-accounts/internal/auth"
	"videotube-accounts/internal/media"
	"videotube-accounts/internal/observability"
)

var usernameRegex = regexp.MustCompile(`^[a-z0-9_.-]{3,32}$`)

// Store is the slice of persistence the profile endpoints need.
type Store interface {
	account.Store
	account.ChannelReader
}

type RegisterInput struct {
	Username string
	Email    string
	Password string
	FullName string
	// Avatar and CoverImage are upload sources: a URL or a data URI.
	Avatar     string
	CoverImage string
}

type DetailsInput struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	FullName string `json:"fullname"`
}

type Service struct {
	store    Store
	hasher   auth.Hasher
	uploader media.Uploader
	logger   *observability.Logger
}

func NewService(store Store, hasher auth.Hasher, uploader media.Uploader, logger *observability.Logger) *Service {
	if logger == nil {
		logger = observability.Nop()
	}
	return &Service{store: store, hasher: hasher, uploader: uploader, logger: logger}
}

func (s *Service) Register(ctx context.Context, input RegisterInput) (account.Profile, error) {
	input.Username = account.NormalizeHandle(input.Username)
	input.Email = account.NormalizeHandle(input.Email)
	input.FullName = strings.TrimSpace(input.FullName)

	if input.Username == "" || input.Email == "" || input.FullName == "" || strings.TrimSpace(input.Password) == "" {
		return account.Profile{}, apperr.BadRequest("all fields are required")
	}
	if err := validateHandles(input.Username, input.Email); err != nil {
		return account.Profile{}, err
	}
	if err := auth.CheckPassword(input.Password); err != nil {
		return account.Profile{}, err
	}
	if strings.TrimSpace(input.Avatar) == "" {
		return account.Profile{}, apperr.BadRequest("avatar image is required")
	}

	for _, login := range []string{input.Username, input.Email} {
		_, err := s.store.FindByLogin(ctx, login)
		if err == nil {
			return account.Profile{}, apperr.Conflict("user with email or username already exists")
		}
		if !errors.Is(err, account.ErrNotFound) {
			return account.Profile{}, apperr.Internal("check existing user", err)
		}
	}

	hash, err := s.hasher.Hash(input.Password)
	if err != nil {
		if errors.Is(err, auth.ErrPasswordTooLong) {
			return account.Profile{}, auth.CheckPassword(input.Password)
		}
		return account.Profile{}, apperr.Internal("hash password", err)
	}

	avatarURL, err := s.uploader.Upload(ctx, input.Avatar)
	if err != nil {
		return account.Profile{}, apperr.Internal("upload avatar", err)
	}
	coverURL := ""
	if strings.TrimSpace(input.CoverImage) != "" {
		if coverURL, err = s.uploader.Upload(ctx, input.CoverImage); err != nil {
			return account.Profile{}, apperr.Internal("upload cover image", err)
		}
	}

	user, err := s.store.Create(ctx, account.NewUser{
		Username:     input.Username,
		Email:        input.Email,
		FullName:     input.FullName,
		PasswordHash: hash,
		Avatar:       avatarURL,
		CoverImage:   coverURL,
	})
	if err != nil {
		if errors.Is(err, account.ErrDuplicate) {
			return account.Profile{}, apperr.Conflict("user with email or username already exists")
		}
		return account.Profile{}, apperr.Internal("create user", err)
	}

	s.logger.Info("user_registered", map[string]any{"user_id": user.ID})
	return account.Sanitize(user), nil
}

func (s *Service) UpdateDetails(ctx context.Context, userID string, input DetailsInput) (account.Profile, error) {
	update := account.DetailsUpdate{
		Username: account.NormalizeHandle(input.Username),
		Email:    account.NormalizeHandle(input.Email),
		FullName: strings.TrimSpace(input.FullName),
	}
	if update.Empty() {
		return account.Profile{}, apperr.BadRequest("at least one of username, email or fullname is required")
	}
	if err := validateHandles(update.Username, update.Email); err != nil {
		return account.Profile{}, err
	}

	user, err := s.store.UpdateDetails(ctx, userID, update)
	if err != nil {
		return account.Profile{}, mapWriteError(err, "update account details")
	}
	return account.Sanitize(user), nil
}

func (s *Service) UpdateAvatar(ctx context.Context, userID, source string) (account.Profile, error) {
	if strings.TrimSpace(source) == "" {
		return account.Profile{}, apperr.BadRequest("avatar image is required")
	}
	url, err := s.uploader.Upload(ctx, source)
	if err != nil {
		return account.Profile{}, apperr.Internal("upload avatar", err)
	}

	user, err := s.store.UpdateAvatar(ctx, userID, url)
	if err != nil {
		return account.Profile{}, mapWriteError(err, "update avatar")
	}
	return account.Sanitize(user), nil
}

func (s *Service) UpdateCoverImage(ctx context.Context, userID, source string) (account.Profile, error) {
	if strings.TrimSpace(source) == "" {
		return account.Profile{}, apperr.BadRequest("cover image is required")
	}
	url, err := s.uploader.Upload(ctx, source)
	if err != nil {
		return account.Profile{}, apperr.Internal("upload cover image", err)
	}

	user, err := s.store.UpdateCoverImage(ctx, userID, url)
	if err != nil {
		return account.Profile{}, mapWriteError(err, "update cover image")
	}
	return account.Sanitize(user), nil
}

// ChannelProfile returns username's public channel as seen by viewerID.
func (s *Service) ChannelProfile(ctx context.Context, username, viewerID string) (account.ChannelProfile, error) {
	username = account.NormalizeHandle(username)
	if username == "" {
		return account.ChannelProfile{}, apperr.BadRequest("username is required")
	}

	channel, err := s.store.ChannelProfile(ctx, username, viewerID)
	if err != nil {
		if errors.Is(err, account.ErrNotFound) {
			return account.ChannelProfile{}, apperr.NotFound("channel not found")
		}
		return account.ChannelProfile{}, apperr.Internal("load channel profile", err)
	}
	return channel, nil
}

func (s *Service) WatchHistory(ctx context.Context, userID string) ([]account.WatchedVideo, error) {
	videos, err := s.store.WatchHistory(ctx, userID)
	if err != nil {
		if errors.Is(err, account.ErrNotFound) {
			return nil, apperr.NotFound("user not found")
		}
		return nil, apperr.Internal("load watch history", err)
	}
	if videos == nil {
		videos = []account.WatchedVideo{}
	}
	return videos, nil
}

func validateHandles(username, email string) error {
	if username != "" && !usernameRegex.MatchString(username) {
		return apperr.BadRequest("username format is invalid")
	}
	if email != "" {
		if _, err := mail.ParseAddress(email); err != nil {
			return apperr.BadRequest("email format is invalid")
		}
	}
	return nil
}

func mapWriteError(err error, action string) error {
	switch {
	case errors.Is(err, account.ErrNotFound):
		return apperr.NotFound("user not found")
	case errors.Is(err, account.ErrDuplicate):
		return apperr.Conflict("username or email already taken")
	default:
		return apperr.Internal(action, err)
	}
}
