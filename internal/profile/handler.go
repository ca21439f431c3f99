package profile

import (
	"encoding/json"
	"errors"
	"net/http"

	"videotube-accounts/internal/account"
	"videotube-accounts/internal/apperr"
	"videotube-accounts/internal/media"
	"videotube-accounts/internal/response"
)

const (
	maxJSONBodyBytes      = 1 << 20
	maxRegisterBodyBytes  = 2*media.MaxImageBytes + 1<<20
	maxSingleImageBodyLen = media.MaxImageBytes + 1<<20
)

type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// Register accepts a multipart form with text fields and the avatar and
// optional coverImage files.
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxRegisterBodyBytes)
	if err := r.ParseMultipartForm(maxRegisterBodyBytes); err != nil {
		response.Error(w, apperr.BadRequest("invalid multipart form"))
		return
	}

	avatar, err := optionalImage(r, "avatar")
	if err != nil {
		response.Error(w, err)
		return
	}
	cover, err := optionalImage(r, "coverImage")
	if err != nil {
		response.Error(w, err)
		return
	}

	profile, err := h.service.Register(r.Context(), RegisterInput{
		Username:   r.FormValue("username"),
		Email:      r.FormValue("email"),
		Password:   r.FormValue("password"),
		FullName:   r.FormValue("fullname"),
		Avatar:     avatar,
		CoverImage: cover,
	})
	if err != nil {
		response.Error(w, err)
		return
	}

	response.Success(w, http.StatusCreated, "user registered successfully", profile)
}

func (h *Handler) UpdateDetails(w http.ResponseWriter, r *http.Request, user account.Profile) {
	r.Body = http.MaxBytesReader(w, r.Body, maxJSONBodyBytes)

	var body DetailsInput
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&body); err != nil {
		response.Error(w, apperr.BadRequest("invalid json body"))
		return
	}

	updated, err := h.service.UpdateDetails(r.Context(), user.ID, body)
	if err != nil {
		response.Error(w, err)
		return
	}

	response.Success(w, http.StatusOK, "account details updated successfully", updated)
}

func (h *Handler) UpdateAvatar(w http.ResponseWriter, r *http.Request, user account.Profile) {
	h.updateImage(w, r, "avatar", func(source string) (account.Profile, error) {
		return h.service.UpdateAvatar(r.Context(), user.ID, source)
	}, "avatar updated successfully")
}

func (h *Handler) UpdateCoverImage(w http.ResponseWriter, r *http.Request, user account.Profile) {
	h.updateImage(w, r, "coverImage", func(source string) (account.Profile, error) {
		return h.service.UpdateCoverImage(r.Context(), user.ID, source)
	}, "cover image updated successfully")
}

func (h *Handler) Channel(w http.ResponseWriter, r *http.Request, user account.Profile) {
	channel, err := h.service.ChannelProfile(r.Context(), r.PathValue("username"), user.ID)
	if err != nil {
		response.Error(w, err)
		return
	}

	response.Success(w, http.StatusOK, "channel profile fetched successfully", channel)
}

func (h *Handler) History(w http.ResponseWriter, r *http.Request, user account.Profile) {
	videos, err := h.service.WatchHistory(r.Context(), user.ID)
	if err != nil {
		response.Error(w, err)
		return
	}

	response.Success(w, http.StatusOK, "watch history fetched successfully", videos)
}

func (h *Handler) updateImage(
	w http.ResponseWriter,
	r *http.Request,
	field string,
	apply func(source string) (account.Profile, error),
	message string,
) {
	r.Body = http.MaxBytesReader(w, r.Body, maxSingleImageBodyLen)

	source, err := optionalImage(r, field)
	if err != nil {
		response.Error(w, err)
		return
	}

	updated, err := apply(source)
	if err != nil {
		response.Error(w, err)
		return
	}

	response.Success(w, http.StatusOK, message, updated)
}

// optionalImage reads field as an upload source, returning "" when the form
// has no such file.
func optionalImage(r *http.Request, field string) (string, error) {
	source, err := media.ReadImage(r, field)
	if errors.Is(err, media.ErrNoFile) {
		return "", nil
	}
	return source, err
}
