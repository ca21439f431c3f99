package account

import (
	"strings"
	"time"
)

// User is the stored record. It is never written to a response directly;
// use Sanitize.
type User struct {
	ID                    string
	Username              string
	Email                 string
	FullName              string
	PasswordHash          string
	RefreshToken          *string
	RefreshTokenExpiresAt *time.Time
	Avatar                string
	CoverImage            string
	CreatedAt             time.Time
	UpdatedAt             time.Time
}

// Profile is a user record with the password hash and refresh token removed.
type Profile struct {
	ID         string    `json:"id"`
	Username   string    `json:"username"`
	Email      string    `json:"email"`
	FullName   string    `json:"fullname"`
	Avatar     string    `json:"avatar"`
	CoverImage string    `json:"coverImage,omitempty"`
	CreatedAt  time.Time `json:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

func Sanitize(u User) Profile {
	return Profile{
		ID:         u.ID,
		Username:   u.Username,
		Email:      u.Email,
		FullName:   u.FullName,
		Avatar:     u.Avatar,
		CoverImage: u.CoverImage,
		CreatedAt:  u.CreatedAt,
		UpdatedAt:  u.UpdatedAt,
	}
}

type NewUser struct {
	Username     string
	Email        string
	FullName     string
	PasswordHash string
	Avatar       string
	CoverImage   string
}

// DetailsUpdate carries profile fields to change; empty means unchanged.
type DetailsUpdate struct {
	Username string
	Email    string
	FullName string
}

func (d DetailsUpdate) Empty() bool {
	return d.Username == "" && d.Email == "" && d.FullName == ""
}

type ChannelProfile struct {
	ID                     string    `json:"id"`
	Username               string    `json:"username"`
	FullName               string    `json:"fullname"`
	Avatar                 string    `json:"avatar"`
	CoverImage             string    `json:"coverImage,omitempty"`
	SubscriberCount        int64     `json:"subscriberCount"`
	SubscribedChannelCount int64     `json:"subscribedChannelCount"`
	IsSubscribed           bool      `json:"isSubscribed"`
	CreatedAt              time.Time `json:"createdAt"`
}

type Uploader struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	FullName string `json:"fullname"`
	Avatar   string `json:"avatar"`
}

type WatchedVideo struct {
	ID          string    `json:"id"`
	VideoFile   string    `json:"videoFile"`
	Thumbnail   string    `json:"thumbnail"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Duration    float64   `json:"duration"`
	Views       int64     `json:"views"`
	IsPublic    bool      `json:"isPublic"`
	CreatedAt   time.Time `json:"createdAt"`
	WatchedAt   time.Time `json:"watchedAt"`
	Uploader    Uploader  `json:"uploaderDetails"`
}

// NormalizeHandle trims and lowercases a username or email.
func NormalizeHandle(value string) string {
	return strings.ToLower(strings.TrimSpace(value))
}
