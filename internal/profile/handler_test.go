package profile

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"videotube-accounts/internal/account"
)

var pngBytes = []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n', 0, 0, 0, 0}

type formFile struct {
	field       string
	contentType string
	data        []byte
}

func multipartBody(t *testing.T, fields map[string]string, files ...formFile) (*bytes.Buffer, string) {
	t.Helper()
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	for key, value := range fields {
		require.NoError(t, writer.WriteField(key, value))
	}
	for _, file := range files {
		header := textproto.MIMEHeader{}
		header.Set("Content-Disposition", `form-data; name="`+file.field+`"; filename="`+file.field+`.png"`)
		header.Set("Content-Type", file.contentType)
		part, err := writer.CreatePart(header)
		require.NoError(t, err)
		_, err = part.Write(file.data)
		require.NoError(t, err)
	}
	require.NoError(t, writer.Close())
	return &body, writer.FormDataContentType()
}

type envelope struct {
	StatusCode int             `json:"statusCode"`
	Data       json.RawMessage `json:"data"`
	Message    string          `json:"message"`
	Success    bool            `json:"success"`
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) envelope {
	t.Helper()
	var out envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

func TestRegisterHandler(t *testing.T) {
	service, _, uploader := newService(t)
	h := NewHandler(service)

	fields := map[string]string{
		"username": "alice",
		"email":    "alice@example.com",
		"password": "correct",
		"fullname": "Alice Liddell",
	}
	body, contentType := multipartBody(t, fields, formFile{field: "avatar", contentType: "image/png", data: pngBytes})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/users/register", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()

	h.Register(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code)
	out := decode(t, rec)
	assert.True(t, out.Success)
	assert.Equal(t, 201, out.StatusCode)

	var user map[string]any
	require.NoError(t, json.Unmarshal(out.Data, &user))
	assert.Equal(t, "alice", user["username"])
	assert.NotContains(t, user, "password")
	assert.NotContains(t, user, "refreshToken")
	require.Len(t, uploader.sources, 1)
	assert.True(t, strings.HasPrefix(uploader.sources[0], "data:image/png;base64,"))

	body, contentType = multipartBody(t, fields, formFile{field: "avatar", contentType: "image/png", data: pngBytes})
	req = httptest.NewRequest(http.MethodPost, "/api/v1/users/register", body)
	req.Header.Set("Content-Type", contentType)
	rec = httptest.NewRecorder()
	h.Register(rec, req)
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestRegisterHandler_MissingAvatar(t *testing.T) {
	service, _, _ := newService(t)
	h := NewHandler(service)

	body, contentType := multipartBody(t, map[string]string{
		"username": "alice",
		"email":    "alice@example.com",
		"password": "correct",
		"fullname": "Alice Liddell",
	})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/users/register", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()

	h.Register(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "avatar image is required", decode(t, rec).Message)
}

func TestUpdateHandlers(t *testing.T) {
	service, _, _ := newService(t)
	h := NewHandler(service)
	alice, err := service.Register(t.Context(), validRegistration())
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/users/update-details", strings.NewReader(`{"fullname":"Alice L."}`))
	rec := httptest.NewRecorder()
	h.UpdateDetails(rec, req, alice)
	require.Equal(t, http.StatusOK, rec.Code)
	var updated account.Profile
	require.NoError(t, json.Unmarshal(decode(t, rec).Data, &updated))
	assert.Equal(t, "Alice L.", updated.FullName)

	req = httptest.NewRequest(http.MethodPost, "/api/v1/users/update-details", strings.NewReader(`{"password":"x"}`))
	rec = httptest.NewRecorder()
	h.UpdateDetails(rec, req, alice)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	body, contentType := multipartBody(t, nil, formFile{field: "coverImage", contentType: "image/png", data: pngBytes})
	req = httptest.NewRequest(http.MethodPost, "/api/v1/users/update-cover-image", body)
	req.Header.Set("Content-Type", contentType)
	rec = httptest.NewRecorder()
	h.UpdateCoverImage(rec, req, alice)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(decode(t, rec).Data, &updated))
	assert.NotEmpty(t, updated.CoverImage)

	body, contentType = multipartBody(t, nil, formFile{field: "avatar", contentType: "text/plain", data: []byte("hi")})
	req = httptest.NewRequest(http.MethodPost, "/api/v1/users/update-avatar", body)
	req.Header.Set("Content-Type", contentType)
	rec = httptest.NewRecorder()
	h.UpdateAvatar(rec, req, alice)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestChannelHandler(t *testing.T) {
	service, _, _ := newService(t)
	h := NewHandler(service)
	alice, err := service.Register(t.Context(), validRegistration())
	require.NoError(t, err)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /c/{username}", func(w http.ResponseWriter, r *http.Request) {
		h.Channel(w, r, alice)
	})

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/c/alice", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var channel map[string]any
	require.NoError(t, json.Unmarshal(decode(t, rec).Data, &channel))
	assert.Equal(t, "alice", channel["username"])
	assert.NotContains(t, channel, "email")

	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/c/ghost", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "channel not found", decode(t, rec).Message)
}
