// Package dto provides data transfer objects for the key rotation admin endpoints.
package dto

import (
	"time"

	"github.com/google/uuid"

	rotationDomain "github.com/allisson/fieldcrypt/internal/rotation/domain"
)

// PurposeStatusResponse is the rotation state of one purpose.
type PurposeStatusResponse struct {
	Purpose               string     `json:"purpose"`
	IsOngoing             bool       `json:"isOngoing"`
	StartedAt             *time.Time `json:"startedAt"`
	LastRotation          *time.Time `json:"lastRotation"`
	Processed             int64      `json:"processed"`
	Failed                int64      `json:"failed"`
	CurrentSecretID       string     `json:"currentSecretId,omitempty"`
	EligibleForRetirement []string   `json:"eligibleForRetirement"`
	PendingRetirement     []string   `json:"pendingRetirement"`
	Error                 string     `json:"error,omitempty"`
}

// TriggerResponse acknowledges a rotation trigger.
type TriggerResponse struct {
	Message  string                  `json:"message"`
	Purposes []PurposeStatusResponse `json:"purposes"`
	Errors   []string                `json:"errors,omitempty"`
}

// StatusResponse is the body of GET /v1/admin/rotate-keys/status.
type StatusResponse struct {
	IsOngoing    bool                    `json:"isOngoing"`
	LastRotation *time.Time              `json:"lastRotation"`
	Failed       int64                   `json:"failed"`
	Purposes     []PurposeStatusResponse `json:"purposes"`
}

// MapStatusToResponse converts a purpose status.
func MapStatusToResponse(status *rotationDomain.Status) PurposeStatusResponse {
	response := PurposeStatusResponse{
		Purpose:               string(status.Purpose),
		IsOngoing:             status.IsOngoing,
		StartedAt:             status.StartedAt,
		LastRotation:          status.LastRotation,
		Processed:             status.Processed,
		Failed:                status.Failed,
		EligibleForRetirement: make([]string, 0, len(status.EligibleForRetirement)),
		PendingRetirement:     make([]string, 0, len(status.PendingRetirement)),
		Error:                 status.Error,
	}
	if status.CurrentSecretID != uuid.Nil {
		response.CurrentSecretID = status.CurrentSecretID.String()
	}
	for _, id := range status.EligibleForRetirement {
		response.EligibleForRetirement = append(response.EligibleForRetirement, id.String())
	}
	for _, id := range status.PendingRetirement {
		response.PendingRetirement = append(response.PendingRetirement, id.String())
	}
	return response
}

// MapTriggerResponse converts the statuses returned by a trigger.
func MapTriggerResponse(statuses []*rotationDomain.Status) TriggerResponse {
	purposes := make([]PurposeStatusResponse, 0, len(statuses))
	for _, s := range statuses {
		purposes = append(purposes, MapStatusToResponse(s))
	}
	return TriggerResponse{Message: "rotation started", Purposes: purposes}
}

// MapSummaryToResponse converts the aggregated status.
func MapSummaryToResponse(summary rotationDomain.Summary) StatusResponse {
	purposes := make([]PurposeStatusResponse, 0, len(summary.Purposes))
	for _, s := range summary.Purposes {
		purposes = append(purposes, MapStatusToResponse(s))
	}
	return StatusResponse{
		IsOngoing:    summary.IsOngoing,
		LastRotation: summary.LastRotation,
		Failed:       summary.Failed,
		Purposes:     purposes,
	}
}
