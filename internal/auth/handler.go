package auth

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"videotube-accounts/internal/account"
	"videotube-accounts/internal/apperr"
	"videotube-accounts/internal/response"
)

const maxJSONBodyBytes = 1 << 20

type Handler struct {
	service *Service
	cookies cookieJar
}

// NewHandler serves the session endpoints. secureCookies marks the token
// cookies Secure and should be set outside local development.
func NewHandler(service *Service, secureCookies bool) *Handler {
	return &Handler{service: service, cookies: cookieJar{secure: secureCookies}}
}

type refreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

type changePasswordRequest struct {
	OldPassword string `json:"oldPassword"`
	NewPassword string `json:"newPassword"`
}

func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var body LoginInput
	if err := decodeJSON(w, r, &body); err != nil {
		response.Error(w, err)
		return
	}

	session, err := h.service.Login(r.Context(), body)
	if err != nil {
		response.Error(w, err)
		return
	}

	h.cookies.setPair(w, session.AccessToken, session.RefreshToken, h.service.AccessTTL(), h.service.RefreshTTL())
	response.Success(w, http.StatusOK, "user logged in successfully", session)
}

func (h *Handler) Logout(w http.ResponseWriter, r *http.Request, user account.Profile) {
	if err := h.service.Logout(r.Context(), user.ID); err != nil {
		response.Error(w, err)
		return
	}

	h.cookies.clear(w)
	response.Success(w, http.StatusOK, "user logged out", struct{}{})
}

// Refresh reads the refresh token from its cookie, falling back to the body.
func (h *Handler) Refresh(w http.ResponseWriter, r *http.Request) {
	presented := ""
	if cookie, err := r.Cookie(RefreshCookie); err == nil {
		presented = strings.TrimSpace(cookie.Value)
	}
	if presented == "" {
		var body refreshRequest
		if err := decodeJSON(w, r, &body); err != nil && !errors.Is(err, io.EOF) {
			response.Error(w, err)
			return
		}
		presented = body.RefreshToken
	}

	tokens, err := h.service.Refresh(r.Context(), presented)
	if err != nil {
		response.Error(w, err)
		return
	}

	h.cookies.setPair(w, tokens.AccessToken, tokens.RefreshToken, h.service.AccessTTL(), h.service.RefreshTTL())
	response.Success(w, http.StatusOK, "access token refreshed", tokens)
}

func (h *Handler) Me(w http.ResponseWriter, _ *http.Request, user account.Profile) {
	response.Success(w, http.StatusOK, "current user fetched successfully", user)
}

func (h *Handler) ChangePassword(w http.ResponseWriter, r *http.Request, user account.Profile) {
	var body changePasswordRequest
	if err := decodeJSON(w, r, &body); err != nil {
		response.Error(w, err)
		return
	}

	if err := h.service.ChangePassword(r.Context(), user.ID, body.OldPassword, body.NewPassword); err != nil {
		response.Error(w, err)
		return
	}

	response.Success(w, http.StatusOK, "password changed successfully", struct{}{})
}

// decodeJSON returns io.EOF unchanged for an empty body so callers with
// optional bodies can tell it apart from malformed input.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxJSONBodyBytes)

	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return err
		}
		return apperr.BadRequest("invalid json body")
	}
	return nil
}
