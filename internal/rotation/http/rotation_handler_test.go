package http

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	keysDomain "github.com/allisson/fieldcrypt/internal/keys/domain"
	rotationDomain "github.com/allisson/fieldcrypt/internal/rotation/domain"
	"github.com/allisson/fieldcrypt/internal/rotation/http/dto"
	"github.com/allisson/fieldcrypt/internal/rotation/usecase/mocks"
)

func setupTestHandler(t *testing.T) (*RotationHandler, *mocks.MockRotationUseCase) {
	t.Helper()

	gin.SetMode(gin.TestMode)

	mockUseCase := &mocks.MockRotationUseCase{}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	return NewRotationHandler(mockUseCase, logger), mockUseCase
}

func createTestContext(method, url string) (*gin.Context, *httptest.ResponseRecorder) {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(method, url, nil)
	return c, w
}

func TestRotationHandler_TriggerHandler(t *testing.T) {
	t.Run("Success_AllPurposes", func(t *testing.T) {
		handler, mockUseCase := setupTestHandler(t)
		now := time.Now().UTC()

		statuses := []*rotationDomain.Status{
			{Purpose: keysDomain.PurposeEncryption, IsOngoing: true, StartedAt: &now},
			{Purpose: keysDomain.PurposeHashing, IsOngoing: true, StartedAt: &now},
			{Purpose: keysDomain.PurposeSigning, IsOngoing: true, StartedAt: &now},
		}
		mockUseCase.On("TriggerAll", mock.Anything).Return(statuses, nil).Once()

		c, w := createTestContext(http.MethodPost, "/v1/admin/rotate-keys")
		handler.TriggerHandler(c)

		assert.Equal(t, http.StatusAccepted, w.Code)
		var response dto.TriggerResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
		assert.Equal(t, "rotation started", response.Message)
		require.Len(t, response.Purposes, 3)
		assert.True(t, response.Purposes[0].IsOngoing)
		mockUseCase.AssertExpectations(t)
	})

	t.Run("Success_SomePurposesStarted", func(t *testing.T) {
		handler, mockUseCase := setupTestHandler(t)

		statuses := []*rotationDomain.Status{
			{Purpose: keysDomain.PurposeEncryption, IsOngoing: true},
			{Purpose: keysDomain.PurposeSigning, IsOngoing: true},
		}
		triggerErr := fmt.Errorf("failed to trigger hashing rotation: %w", rotationDomain.ErrRotationInProgress)
		mockUseCase.On("TriggerAll", mock.Anything).Return(statuses, triggerErr).Once()

		c, w := createTestContext(http.MethodPost, "/v1/admin/rotate-keys")
		handler.TriggerHandler(c)

		assert.Equal(t, http.StatusAccepted, w.Code)
		var response dto.TriggerResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
		require.Len(t, response.Purposes, 2)
		assert.Equal(t, "signing", response.Purposes[1].Purpose)
		require.Len(t, response.Errors, 1)
		assert.Contains(t, response.Errors[0], "hashing")
	})

	t.Run("Error_NoPurposeStarted", func(t *testing.T) {
		handler, mockUseCase := setupTestHandler(t)

		mockUseCase.On("TriggerAll", mock.Anything).
			Return([]*rotationDomain.Status{}, rotationDomain.ErrRotationInProgress).
			Once()

		c, w := createTestContext(http.MethodPost, "/v1/admin/rotate-keys")
		handler.TriggerHandler(c)

		assert.Equal(t, http.StatusConflict, w.Code)
	})

	t.Run("Success_SinglePurpose", func(t *testing.T) {
		handler, mockUseCase := setupTestHandler(t)

		mockUseCase.On("Trigger", mock.Anything, keysDomain.PurposeHashing).
			Return(&rotationDomain.Status{Purpose: keysDomain.PurposeHashing, IsOngoing: true}, nil).
			Once()

		c, w := createTestContext(http.MethodPost, "/v1/admin/rotate-keys?purpose=hashing")
		handler.TriggerHandler(c)

		assert.Equal(t, http.StatusAccepted, w.Code)
		var response dto.TriggerResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
		require.Len(t, response.Purposes, 1)
		assert.Equal(t, "hashing", response.Purposes[0].Purpose)
	})

	t.Run("Error_InvalidPurpose", func(t *testing.T) {
		handler, mockUseCase := setupTestHandler(t)

		c, w := createTestContext(http.MethodPost, "/v1/admin/rotate-keys?purpose=backup")
		handler.TriggerHandler(c)

		assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
		mockUseCase.AssertNotCalled(t, "Trigger", mock.Anything, mock.Anything)
	})

	t.Run("Error_LeaseHeldElsewhere", func(t *testing.T) {
		handler, mockUseCase := setupTestHandler(t)

		mockUseCase.On("Trigger", mock.Anything, keysDomain.PurposeSigning).
			Return(nil, rotationDomain.ErrRotationInProgress).
			Once()

		c, w := createTestContext(http.MethodPost, "/v1/admin/rotate-keys?purpose=signing")
		handler.TriggerHandler(c)

		assert.Equal(t, http.StatusConflict, w.Code)
	})
}

func TestRotationHandler_StatusHandler(t *testing.T) {
	handler, mockUseCase := setupTestHandler(t)
	last := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	summary := rotationDomain.Summarize([]*rotationDomain.Status{
		{Purpose: keysDomain.PurposeEncryption, LastRotation: &last, Processed: 40, Failed: 2},
		{Purpose: keysDomain.PurposeHashing},
		{Purpose: keysDomain.PurposeSigning},
	})
	mockUseCase.On("Status", mock.Anything).Return(summary).Once()

	c, w := createTestContext(http.MethodGet, "/v1/admin/rotate-keys/status")
	handler.StatusHandler(c)

	assert.Equal(t, http.StatusOK, w.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, false, body["isOngoing"])
	assert.Equal(t, "2026-03-01T12:00:00Z", body["lastRotation"])
	assert.Equal(t, float64(2), body["failed"])
	assert.Len(t, body["purposes"], 3)
}
