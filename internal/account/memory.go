package account

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryStore is an in-process Store and ChannelReader. All methods hold a
// single mutex, which gives the same per-record atomicity as the SQL
// repository.
type MemoryStore struct {
	mu            sync.Mutex
	users         map[string]User
	subscriptions map[string]map[string]struct{} // channel id -> subscriber ids
	history       map[string][]WatchedVideo
	now           func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		users:         make(map[string]User),
		subscriptions: make(map[string]map[string]struct{}),
		history:       make(map[string][]WatchedVideo),
		now:           func() time.Time { return time.Now().UTC() },
	}
}

func (s *MemoryStore) Create(_ context.Context, input NewUser) (User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.taken(input.Username, input.Email, "") {
		return User{}, ErrDuplicate
	}

	id, err := uuid.NewV7()
	if err != nil {
		return User{}, fmt.Errorf("generate uuid v7: %w", err)
	}

	now := s.now()
	user := User{
		ID:           id.String(),
		Username:     input.Username,
		Email:        input.Email,
		FullName:     input.FullName,
		PasswordHash: input.PasswordHash,
		Avatar:       input.Avatar,
		CoverImage:   input.CoverImage,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	s.users[user.ID] = user
	return user, nil
}

func (s *MemoryStore) FindByID(_ context.Context, id string) (User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	user, ok := s.users[id]
	if !ok {
		return User{}, ErrNotFound
	}
	return user, nil
}

func (s *MemoryStore) FindByLogin(_ context.Context, login string) (User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, user := range s.users {
		if user.Username == login || user.Email == login {
			return user, nil
		}
	}
	return User{}, ErrNotFound
}

func (s *MemoryStore) SetRefreshToken(_ context.Context, id, token string, expiresAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	user, ok := s.users[id]
	if !ok {
		return ErrNotFound
	}
	s.storeRefresh(&user, &token, &expiresAt)
	return nil
}

func (s *MemoryStore) RotateRefreshToken(_ context.Context, id, current, next string, expiresAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	user, ok := s.users[id]
	if !ok || user.RefreshToken == nil || *user.RefreshToken != current {
		return ErrStaleRefreshToken
	}
	s.storeRefresh(&user, &next, &expiresAt)
	return nil
}

func (s *MemoryStore) ClearRefreshToken(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	user, ok := s.users[id]
	if !ok || user.RefreshToken == nil {
		return nil
	}
	s.storeRefresh(&user, nil, nil)
	return nil
}

func (s *MemoryStore) UpdatePassword(_ context.Context, id, passwordHash string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	user, ok := s.users[id]
	if !ok {
		return ErrNotFound
	}
	user.PasswordHash = passwordHash
	user.UpdatedAt = s.now()
	s.users[id] = user
	return nil
}

func (s *MemoryStore) UpdateDetails(_ context.Context, id string, update DetailsUpdate) (User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	user, ok := s.users[id]
	if !ok {
		return User{}, ErrNotFound
	}
	if s.taken(update.Username, update.Email, id) {
		return User{}, ErrDuplicate
	}
	if update.Username != "" {
		user.Username = update.Username
	}
	if update.Email != "" {
		user.Email = update.Email
	}
	if update.FullName != "" {
		user.FullName = update.FullName
	}
	user.UpdatedAt = s.now()
	s.users[id] = user
	return user, nil
}

func (s *MemoryStore) UpdateAvatar(_ context.Context, id, url string) (User, error) {
	return s.mutate(id, func(u *User) { u.Avatar = url })
}

func (s *MemoryStore) UpdateCoverImage(_ context.Context, id, url string) (User, error) {
	return s.mutate(id, func(u *User) { u.CoverImage = url })
}

func (s *MemoryStore) ClearExpiredRefreshTokens(_ context.Context, now time.Time, batchSize int) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if batchSize <= 0 {
		batchSize = defaultCleanupBatch
	}

	var cleared int64
	for _, user := range s.users {
		if cleared >= int64(batchSize) {
			break
		}
		if user.RefreshToken == nil || user.RefreshTokenExpiresAt == nil || !user.RefreshTokenExpiresAt.Before(now) {
			continue
		}
		s.storeRefresh(&user, nil, nil)
		cleared++
	}
	return cleared, nil
}

// Subscribe records subscriberID as a subscriber of channelID.
func (s *MemoryStore) Subscribe(subscriberID, channelID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	subs, ok := s.subscriptions[channelID]
	if !ok {
		subs = make(map[string]struct{})
		s.subscriptions[channelID] = subs
	}
	subs[subscriberID] = struct{}{}
}

// RecordWatch appends a watched video to userID's history.
func (s *MemoryStore) RecordWatch(userID string, video WatchedVideo) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.history[userID] = append(s.history[userID], video)
}

func (s *MemoryStore) ChannelProfile(_ context.Context, username, viewerID string) (ChannelProfile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, user := range s.users {
		if user.Username != username {
			continue
		}
		subs := s.subscriptions[user.ID]
		_, subscribed := subs[viewerID]

		var following int64
		for _, channelSubs := range s.subscriptions {
			if _, ok := channelSubs[user.ID]; ok {
				following++
			}
		}

		return ChannelProfile{
			ID:                     user.ID,
			Username:               user.Username,
			FullName:               user.FullName,
			Avatar:                 user.Avatar,
			CoverImage:             user.CoverImage,
			SubscriberCount:        int64(len(subs)),
			SubscribedChannelCount: following,
			IsSubscribed:           subscribed,
			CreatedAt:              user.CreatedAt,
		}, nil
	}
	return ChannelProfile{}, ErrNotFound
}

func (s *MemoryStore) WatchHistory(_ context.Context, userID string) ([]WatchedVideo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.users[userID]; !ok {
		return nil, ErrNotFound
	}

	videos := append([]WatchedVideo{}, s.history[userID]...)
	sort.SliceStable(videos, func(i, j int) bool {
		return videos[i].WatchedAt.After(videos[j].WatchedAt)
	})
	return videos, nil
}

func (s *MemoryStore) mutate(id string, apply func(*User)) (User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	user, ok := s.users[id]
	if !ok {
		return User{}, ErrNotFound
	}
	apply(&user)
	user.UpdatedAt = s.now()
	s.users[id] = user
	return user, nil
}

func (s *MemoryStore) storeRefresh(user *User, token *string, expiresAt *time.Time) {
	user.RefreshToken = token
	user.RefreshTokenExpiresAt = expiresAt
	user.UpdatedAt = s.now()
	s.users[user.ID] = *user
}

// taken reports whether username or email belongs to a user other than self.
// Callers hold s.mu.
func (s *MemoryStore) taken(username, email, self string) bool {
	for id, user := range s.users {
		if id == self {
			continue
		}
		if (username != "" && user.Username == username) || (email != "" && user.Email == email) {
			return true
		}
	}
	return false
}
