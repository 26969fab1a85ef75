package errors

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type customError struct {
	Msg string
}

func (e customError) Error() string { return e.Msg }

func TestWrap(t *testing.T) {
	baseErr := errors.New("base error")

	t.Run("wrap non-nil error", func(t *testing.T) {
		wrapped := Wrap(baseErr, "wrapped")
		require.Error(t, wrapped)
		assert.Equal(t, "wrapped: base error", wrapped.Error())
		assert.True(t, Is(wrapped, baseErr))
	})

	t.Run("wrap nil error", func(t *testing.T) {
		assert.NoError(t, Wrap(nil, "wrapped"))
	})

	t.Run("wrapped sentinel keeps identity", func(t *testing.T) {
		storeErr := Wrap(ErrUnavailable, "secret store unavailable")
		wrapped := Wrap(storeErr, "failed to load current secret")
		assert.True(t, Is(wrapped, ErrUnavailable))
		assert.True(t, Is(wrapped, storeErr))
		assert.False(t, Is(wrapped, ErrNotFound))
	})
}

func TestAs(t *testing.T) {
	err := Wrap(customError{Msg: "boom"}, "context")

	var target customError
	require.True(t, As(err, &target))
	assert.Equal(t, "boom", target.Msg)
}

func TestJoin(t *testing.T) {
	joined := Join(nil, ErrNotFound, nil, ErrConflict)
	assert.True(t, Is(joined, ErrNotFound))
	assert.True(t, Is(joined, ErrConflict))
	assert.NoError(t, Join(nil, nil))
}
