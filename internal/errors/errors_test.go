package errors

import (
	stderrors "errors"
	"fmt"
	"io/fs"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKindsMatchSentinels(t *testing.T) {
	err := fmt.Errorf("register: %w", DuplicateID("store", 3))
	assert.True(t, stderrors.Is(err, ErrDuplicateID))
	assert.False(t, stderrors.Is(err, ErrNotFound))
	assert.Equal(t, KindDuplicateID, KindOf(err))
	assert.Equal(t, "register: store id 3 already exists", err.Error())
}

func TestHTTPStatusOf(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{nil, http.StatusOK},
		{DuplicateID("category", 1), http.StatusBadRequest},
		{NotFound("store", 9), http.StatusNotFound},
		{DivisionByZero(2), http.StatusInternalServerError},
		{MalformedInput("width must be positive"), http.StatusBadRequest},
		{IOFailure(fs.ErrNotExist, "open %s", "a.json"), http.StatusInternalServerError},
		{RateLimitExceeded(5, "1s"), http.StatusTooManyRequests},
		{stderrors.New("boom"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, HTTPStatusOf(tc.err), "%v", tc.err)
	}
}

func TestIOFailureUnwraps(t *testing.T) {
	err := IOFailure(fs.ErrNotExist, "open %s", "layout.json")
	assert.True(t, stderrors.Is(err, fs.ErrNotExist))
	assert.True(t, stderrors.Is(err, ErrIOFailure))
	assert.Contains(t, err.Error(), "open layout.json")
}
