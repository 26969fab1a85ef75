package dto

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	keysDomain "github.com/allisson/fieldcrypt/internal/keys/domain"
	rotationDomain "github.com/allisson/fieldcrypt/internal/rotation/domain"
)

func TestMapStatusToResponse(t *testing.T) {
	t.Run("idle purpose", func(t *testing.T) {
		response := MapStatusToResponse(&rotationDomain.Status{Purpose: keysDomain.PurposeSigning})

		assert.Equal(t, "signing", response.Purpose)
		assert.Empty(t, response.CurrentSecretID)
		assert.NotNil(t, response.EligibleForRetirement)

		body, err := json.Marshal(response)
		require.NoError(t, err)
		assert.JSONEq(t, `{
			"purpose": "signing",
			"isOngoing": false,
			"startedAt": null,
			"lastRotation": null,
			"processed": 0,
			"failed": 0,
			"eligibleForRetirement": [],
			"pendingRetirement": []
		}`, string(body))
	})

	t.Run("finished rotation", func(t *testing.T) {
		now := time.Now().UTC()
		current := uuid.Must(uuid.NewV7())
		retired := uuid.Must(uuid.NewV7())
		pending := uuid.Must(uuid.NewV7())

		response := MapStatusToResponse(&rotationDomain.Status{
			Purpose:               keysDomain.PurposeEncryption,
			StartedAt:             &now,
			LastRotation:          &now,
			Processed:             12,
			CurrentSecretID:       current,
			EligibleForRetirement: []uuid.UUID{retired},
			PendingRetirement:     []uuid.UUID{pending},
		})

		assert.Equal(t, current.String(), response.CurrentSecretID)
		assert.Equal(t, []string{retired.String()}, response.EligibleForRetirement)
		assert.Equal(t, []string{pending.String()}, response.PendingRetirement)
		assert.Equal(t, int64(12), response.Processed)
	})
}

func TestMapSummaryToResponse(t *testing.T) {
	now := time.Now().UTC()
	summary := rotationDomain.Summarize([]*rotationDomain.Status{
		{Purpose: keysDomain.PurposeEncryption, LastRotation: &now, Failed: 1},
		{Purpose: keysDomain.PurposeHashing, IsOngoing: true},
	})

	response := MapSummaryToResponse(summary)
	assert.True(t, response.IsOngoing)
	assert.Equal(t, &now, response.LastRotation)
	assert.Equal(t, int64(1), response.Failed)
	assert.Len(t, response.Purposes, 2)
}

func TestMapTriggerResponse(t *testing.T) {
	response := MapTriggerResponse([]*rotationDomain.Status{{Purpose: keysDomain.PurposeHashing, IsOngoing: true}})
	assert.Equal(t, "rotation started", response.Message)
	require.Len(t, response.Purposes, 1)
	assert.True(t, response.Purposes[0].IsOngoing)
}
