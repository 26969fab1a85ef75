package service

import (
	"fmt"

	keysDomain "github.com/allisson/fieldcrypt/internal/keys/domain"
)

// Registry maps each purpose to its SecretService. It is built once at startup and
// injected where secrets are needed.
type Registry struct {
	services map[keysDomain.Purpose]SecretService
}

// NewRegistry creates a Registry from the given services.
func NewRegistry(services ...SecretService) *Registry {
	r := &Registry{services: make(map[keysDomain.Purpose]SecretService, len(services))}
	for _, s := range services {
		r.services[s.Purpose()] = s
	}
	return r
}

// Get returns the service of a purpose.
func (r *Registry) Get(purpose keysDomain.Purpose) (SecretService, error) {
	s, ok := r.services[purpose]
	if !ok {
		return nil, fmt.Errorf("%w: %q", keysDomain.ErrInvalidPurpose, purpose)
	}
	return s, nil
}

// Purposes returns the registered purposes in rotation order.
func (r *Registry) Purposes() []keysDomain.Purpose {
	purposes := make([]keysDomain.Purpose, 0, len(r.services))
	for _, p := range keysDomain.Purposes {
		if _, ok := r.services[p]; ok {
			purposes = append(purposes, p)
		}
	}
	return purposes
}
