package usecase

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	keysDomain "github.com/allisson/fieldcrypt/internal/keys/domain"
	rotationDomain "github.com/allisson/fieldcrypt/internal/rotation/domain"
)

type countingRotation struct {
	RotationUseCase
	calls int
	err   error
}

func (c *countingRotation) TriggerAll(context.Context) ([]*rotationDomain.Status, error) {
	c.calls++
	if c.err != nil {
		return nil, c.err
	}
	return []*rotationDomain.Status{{Purpose: keysDomain.PurposeEncryption, IsOngoing: true}}, nil
}

func TestNewScheduler(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	t.Run("valid schedule", func(t *testing.T) {
		s, err := NewScheduler("0 3 * * 0", &countingRotation{}, logger)
		require.NoError(t, err)

		s.Start()
		<-s.Stop().Done()
	})

	t.Run("descriptor", func(t *testing.T) {
		_, err := NewScheduler("@weekly", &countingRotation{}, logger)
		assert.NoError(t, err)
	})

	t.Run("invalid schedule", func(t *testing.T) {
		_, err := NewScheduler("every sunday", &countingRotation{}, logger)
		assert.ErrorContains(t, err, "invalid key rotation schedule")
	})
}

func TestScheduler_run(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	rotation := &countingRotation{}
	s, err := NewScheduler("@daily", rotation, logger)
	require.NoError(t, err)

	s.run()
	assert.Equal(t, 1, rotation.calls)

	rotation.err = errors.New("lease backend down")
	s.run()
	assert.Equal(t, 2, rotation.calls)
}
