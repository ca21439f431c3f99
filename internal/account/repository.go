package account

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
)

const uniqueViolation = "23505"

const userColumns = `id, username, email, fullname, password_hash, refresh_token,
		refresh_token_expires_at, avatar, cover_image, created_at, updated_at`

type Repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (User, error) {
	var (
		user         User
		refreshToken sql.NullString
		refreshExp   sql.NullTime
		coverImage   sql.NullString
	)
	err := row.Scan(
		&user.ID, &user.Username, &user.Email, &user.FullName, &user.PasswordHash,
		&refreshToken, &refreshExp, &user.Avatar, &coverImage, &user.CreatedAt, &user.UpdatedAt,
	)
	if err != nil {
		return User{}, err
	}
	if refreshToken.Valid {
		value := refreshToken.String
		user.RefreshToken = &value
	}
	if refreshExp.Valid {
		value := refreshExp.Time.UTC()
		user.RefreshTokenExpiresAt = &value
	}
	user.CoverImage = coverImage.String
	return user, nil
}

func (r *Repository) Create(ctx context.Context, input NewUser) (User, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return User{}, fmt.Errorf("generate uuid v7: %w", err)
	}

	now := time.Now().UTC()
	user, err := scanUser(r.db.QueryRowContext(ctx, `
		INSERT INTO users (id, username, email, fullname, password_hash, avatar, cover_image, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, NULLIF($7, ''), $8, $8)
		RETURNING `+userColumns,
		id.String(), input.Username, input.Email, input.FullName, input.PasswordHash, input.Avatar, input.CoverImage, now,
	))
	if err != nil {
		if isUniqueViolation(err) {
			return User{}, ErrDuplicate
		}
		return User{}, fmt.Errorf("insert user: %w", err)
	}

	return user, nil
}

func (r *Repository) FindByID(ctx context.Context, id string) (User, error) {
	if _, err := uuid.Parse(id); err != nil {
		return User{}, ErrNotFound
	}

	user, err := scanUser(r.db.QueryRowContext(ctx, `
		SELECT `+userColumns+`
		FROM users
		WHERE id = $1
	`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return User{}, ErrNotFound
		}
		return User{}, fmt.Errorf("query user by id: %w", err)
	}

	return user, nil
}

func (r *Repository) FindByLogin(ctx context.Context, login string) (User, error) {
	user, err := scanUser(r.db.QueryRowContext(ctx, `
		SELECT `+userColumns+`
		FROM users
		WHERE username = $1 OR email = $1
		LIMIT 1
	`, login))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return User{}, ErrNotFound
		}
		return User{}, fmt.Errorf("query user by login: %w", err)
	}

	return user, nil
}

func (r *Repository) SetRefreshToken(ctx context.Context, id, token string, expiresAt time.Time) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE users
		SET refresh_token = $2, refresh_token_expires_at = $3, updated_at = $4
		WHERE id = $1
	`, id, token, expiresAt.UTC(), time.Now().UTC())
	if err != nil {
		return fmt.Errorf("store refresh token: %w", err)
	}

	return expectOneRow(res, ErrNotFound)
}

func (r *Repository) RotateRefreshToken(ctx context.Context, id, current, next string, expiresAt time.Time) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE users
		SET refresh_token = $3, refresh_token_expires_at = $4, updated_at = $5
		WHERE id = $1 AND refresh_token = $2
	`, id, current, next, expiresAt.UTC(), time.Now().UTC())
	if err != nil {
		return fmt.Errorf("rotate refresh token: %w", err)
	}

	return expectOneRow(res, ErrStaleRefreshToken)
}

func (r *Repository) ClearRefreshToken(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE users
		SET refresh_token = NULL, refresh_token_expires_at = NULL, updated_at = $2
		WHERE id = $1 AND refresh_token IS NOT NULL
	`, id, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("clear refresh token: %w", err)
	}

	return nil
}

func (r *Repository) UpdatePassword(ctx context.Context, id, passwordHash string) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE users
		SET password_hash = $2, updated_at = $3
		WHERE id = $1
	`, id, passwordHash, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("update password: %w", err)
	}

	return expectOneRow(res, ErrNotFound)
}

func (r *Repository) UpdateDetails(ctx context.Context, id string, update DetailsUpdate) (User, error) {
	user, err := scanUser(r.db.QueryRowContext(ctx, `
		UPDATE users
		SET username = COALESCE(NULLIF($2, ''), username),
			email = COALESCE(NULLIF($3, ''), email),
			fullname = COALESCE(NULLIF($4, ''), fullname),
			updated_at = $5
		WHERE id = $1
		RETURNING `+userColumns,
		id, update.Username, update.Email, update.FullName, time.Now().UTC(),
	))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return User{}, ErrNotFound
		}
		if isUniqueViolation(err) {
			return User{}, ErrDuplicate
		}
		return User{}, fmt.Errorf("update user details: %w", err)
	}

	return user, nil
}

func (r *Repository) UpdateAvatar(ctx context.Context, id, url string) (User, error) {
	return r.updateImage(ctx, "avatar", id, url)
}

func (r *Repository) UpdateCoverImage(ctx context.Context, id, url string) (User, error) {
	return r.updateImage(ctx, "cover_image", id, url)
}

// updateImage only ever receives a column name from the two callers above.
func (r *Repository) updateImage(ctx context.Context, column, id, url string) (User, error) {
	user, err := scanUser(r.db.QueryRowContext(ctx, `
		UPDATE users
		SET `+column+` = $2, updated_at = $3
		WHERE id = $1
		RETURNING `+userColumns,
		id, url, time.Now().UTC(),
	))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return User{}, ErrNotFound
		}
		return User{}, fmt.Errorf("update user %s: %w", column, err)
	}

	return user, nil
}

func (r *Repository) ChannelProfile(ctx context.Context, username, viewerID string) (ChannelProfile, error) {
	var (
		channel    ChannelProfile
		coverImage sql.NullString
	)
	err := r.db.QueryRowContext(ctx, `
		SELECT u.id, u.username, u.fullname, u.avatar, u.cover_image, u.created_at,
			(SELECT COUNT(*) FROM subscriptions s WHERE s.channel_id = u.id),
			(SELECT COUNT(*) FROM subscriptions s WHERE s.subscriber_id = u.id),
			EXISTS (
				SELECT 1 FROM subscriptions s
				WHERE s.channel_id = u.id AND s.subscriber_id::text = $2
			)
		FROM users u
		WHERE u.username = $1
	`, username, viewerID).Scan(
		&channel.ID, &channel.Username, &channel.FullName, &channel.Avatar, &coverImage, &channel.CreatedAt,
		&channel.SubscriberCount, &channel.SubscribedChannelCount, &channel.IsSubscribed,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ChannelProfile{}, ErrNotFound
		}
		return ChannelProfile{}, fmt.Errorf("query channel profile: %w", err)
	}
	channel.CoverImage = coverImage.String

	return channel, nil
}

func (r *Repository) WatchHistory(ctx context.Context, userID string) ([]WatchedVideo, error) {
	if _, err := r.FindByID(ctx, userID); err != nil {
		return nil, err
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT v.id, v.video_file, v.thumbnail, v.title, v.description, v.duration, v.views, v.is_public,
			v.created_at, wh.watched_at, o.id, o.username, o.fullname, o.avatar
		FROM watch_history wh
		JOIN videos v ON v.id = wh.video_id
		JOIN users o ON o.id = v.uploaded_by
		WHERE wh.user_id = $1
		ORDER BY wh.watched_at DESC
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("query watch history: %w", err)
	}
	defer rows.Close()

	videos := make([]WatchedVideo, 0)
	for rows.Next() {
		var v WatchedVideo
		if err := rows.Scan(
			&v.ID, &v.VideoFile, &v.Thumbnail, &v.Title, &v.Description, &v.Duration, &v.Views, &v.IsPublic,
			&v.CreatedAt, &v.WatchedAt, &v.Uploader.ID, &v.Uploader.Username, &v.Uploader.FullName, &v.Uploader.Avatar,
		); err != nil {
			return nil, fmt.Errorf("scan watched video: %w", err)
		}
		videos = append(videos, v)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate watch history: %w", err)
	}

	return videos, nil
}

const defaultCleanupBatch = 500

// ClearExpiredRefreshTokens nulls out refresh tokens whose expiry has passed,
// at most batchSize rows per call.
func (r *Repository) ClearExpiredRefreshTokens(ctx context.Context, now time.Time, batchSize int) (int64, error) {
	if batchSize <= 0 {
		batchSize = defaultCleanupBatch
	}

	res, err := r.db.ExecContext(ctx, `
		WITH stale AS (
			SELECT id
			FROM users
			WHERE refresh_token IS NOT NULL AND refresh_token_expires_at < $1
			ORDER BY refresh_token_expires_at ASC
			LIMIT $2
		)
		UPDATE users u
		SET refresh_token = NULL, refresh_token_expires_at = NULL
		FROM stale
		WHERE u.id = stale.id
	`, now.UTC(), batchSize)
	if err != nil {
		return 0, fmt.Errorf("clear expired refresh tokens: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("expired refresh tokens rows affected: %w", err)
	}

	return affected, nil
}

func expectOneRow(res sql.Result, notMatched error) error {
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return notMatched
	}
	return nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}
