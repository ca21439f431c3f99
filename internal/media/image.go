package media

import (
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"videotube-accounts/internal/apperr"
)

const MaxImageBytes = 10 << 20

// ErrNoFile means the form has no part under the requested field.
var ErrNoFile = errors.New("no file in form field")

// ReadImage reads one image part of a multipart request and returns it as a
// data URI suitable for Uploader.Upload. Invalid parts yield a BadRequest.
func ReadImage(r *http.Request, field string) (string, error) {
	file, header, err := r.FormFile(field)
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) || errors.Is(err, http.ErrNotMultipart) {
			return "", ErrNoFile
		}
		return "", apperr.BadRequest("invalid multipart form")
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, MaxImageBytes+1))
	if err != nil {
		return "", apperr.BadRequest(fmt.Sprintf("failed to read %s", field))
	}
	if len(data) == 0 {
		return "", apperr.BadRequest(fmt.Sprintf("%s is empty", field))
	}
	if len(data) > MaxImageBytes {
		return "", apperr.BadRequest(fmt.Sprintf("%s is too large", field))
	}

	contentType := strings.TrimSpace(header.Header.Get("Content-Type"))
	if contentType == "" || contentType == "application/octet-stream" {
		contentType = http.DetectContentType(data)
	}
	if !strings.HasPrefix(strings.ToLower(contentType), "image/") {
		return "", apperr.BadRequest(fmt.Sprintf("%s must be an image", field))
	}

	return fmt.Sprintf("data:%s;base64,%s", contentType, base64.StdEncoding.EncodeToString(data)), nil
}
