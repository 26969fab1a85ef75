// Package domain defines the key rotation state reported to operators.
package domain

import (
	"time"

	"github.com/google/uuid"

	keysDomain "github.com/allisson/fieldcrypt/internal/keys/domain"
)

// Status is the rotation state of one purpose.
//
// A purpose moves Idle -> Rotating -> Idle. Processed and Failed count documents of the
// latest rotation; they are reset when a new rotation starts. PendingRetirement lists
// unreferenced secrets whose successor is still too young to retire them; a later
// rotation retires them.
type Status struct {
	Purpose               keysDomain.Purpose
	IsOngoing             bool
	StartedAt             *time.Time
	LastRotation          *time.Time
	Processed             int64
	Failed                int64
	CurrentSecretID       uuid.UUID
	EligibleForRetirement []uuid.UUID
	PendingRetirement     []uuid.UUID
	Error                 string
}

// Clone returns a copy safe to hand out while the rotation keeps running.
func (s *Status) Clone() *Status {
	c := *s
	if s.StartedAt != nil {
		t := *s.StartedAt
		c.StartedAt = &t
	}
	if s.LastRotation != nil {
		t := *s.LastRotation
		c.LastRotation = &t
	}
	if s.EligibleForRetirement != nil {
		c.EligibleForRetirement = append([]uuid.UUID(nil), s.EligibleForRetirement...)
	}
	if s.PendingRetirement != nil {
		c.PendingRetirement = append([]uuid.UUID(nil), s.PendingRetirement...)
	}
	return &c
}

// Summary aggregates the status of every purpose.
type Summary struct {
	IsOngoing    bool
	LastRotation *time.Time
	Failed       int64
	Purposes     []*Status
}

// Summarize folds per purpose statuses into a Summary.
func Summarize(statuses []*Status) Summary {
	summary := Summary{Purposes: statuses}
	for _, s := range statuses {
		if s.IsOngoing {
			summary.IsOngoing = true
		}
		summary.Failed += s.Failed
		if s.LastRotation != nil && (summary.LastRotation == nil || s.LastRotation.After(*summary.LastRotation)) {
			t := *s.LastRotation
			summary.LastRotation = &t
		}
	}
	return summary
}
