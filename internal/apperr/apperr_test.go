package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKindOf_UnwrapsChain(t *testing.T) {
	base := Unauthorized("invalid credentials")
	wrapped := fmt.Errorf("login: %w", base)

	assert.Equal(t, KindUnauthorized, KindOf(wrapped))
	assert.True(t, Is(wrapped, KindUnauthorized))
	assert.True(t, errors.Is(wrapped, base))
}

func TestKindOf_DefaultsToInternal(t *testing.T) {
	assert.Equal(t, KindInternal, KindOf(errors.New("boom")))
	assert.False(t, Is(nil, KindInternal))
}

func TestKind_Status(t *testing.T) {
	cases := map[Kind]int{
		KindBadRequest:      http.StatusBadRequest,
		KindUnauthorized:    http.StatusUnauthorized,
		KindNotFound:        http.StatusNotFound,
		KindConflict:        http.StatusConflict,
		KindTooManyRequests: http.StatusTooManyRequests,
		KindInternal:        http.StatusInternalServerError,
	}
	for kind, status := range cases {
		assert.Equal(t, status, kind.Status(), kind.String())
	}
}

func TestInternal_KeepsCause(t *testing.T) {
	cause := errors.New("connection reset")
	err := Internal("failed to persist refresh token", cause)

	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "failed to persist refresh token: connection reset", err.Error())
}
