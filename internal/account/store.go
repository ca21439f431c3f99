package account

import (
	"context"
	"errors"
	"time"
)

var (
	ErrNotFound          = errors.New("account not found")
	ErrDuplicate         = errors.New("username or email already exists")
	ErrStaleRefreshToken = errors.New("stored refresh token does not match")
)

// Store is the credential store. Implementations must make each method
// atomic per record; RotateRefreshToken in particular is a compare-and-swap.
type Store interface {
	Create(ctx context.Context, user NewUser) (User, error)
	FindByID(ctx context.Context, id string) (User, error)
	// FindByLogin matches login against username or email.
	FindByLogin(ctx context.Context, login string) (User, error)
	SetRefreshToken(ctx context.Context, id, token string, expiresAt time.Time) error
	// RotateRefreshToken replaces the stored token only if it still equals
	// current; otherwise it returns ErrStaleRefreshToken.
	RotateRefreshToken(ctx context.Context, id, current, next string, expiresAt time.Time) error
	ClearRefreshToken(ctx context.Context, id string) error
	UpdatePassword(ctx context.Context, id, passwordHash string) error
	UpdateDetails(ctx context.Context, id string, update DetailsUpdate) (User, error)
	UpdateAvatar(ctx context.Context, id, url string) (User, error)
	UpdateCoverImage(ctx context.Context, id, url string) (User, error)
}

// ChannelReader serves the two read-only aggregation queries.
type ChannelReader interface {
	ChannelProfile(ctx context.Context, username, viewerID string) (ChannelProfile, error)
	WatchHistory(ctx context.Context, userID string) ([]WatchedVideo, error)
}
