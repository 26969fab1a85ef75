package service

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/juju/clock"
	"golang.org/x/sync/singleflight"

	cryptoDomain "github.com/allisson/fieldcrypt/internal/crypto/domain"
	"github.com/allisson/fieldcrypt/internal/keys/cache"
	keysDomain "github.com/allisson/fieldcrypt/internal/keys/domain"
	"github.com/allisson/fieldcrypt/internal/keys/store"
)

// Options tunes a SecretService.
type Options struct {
	// AutoCreate allows creating the first secret of the purpose on demand.
	AutoCreate bool
	// LookupTTL bounds how long the lookup window is reused.
	LookupTTL time.Duration
	// RetireGrace is how long the successor of a secret must have been current before
	// the secret may be retired. Zero uses the cache TTL plus LookupTTL, the longest a
	// process may keep writing with, or looking up by, the previous secret.
	RetireGrace time.Duration
	// Clock is the time source, the wall clock when nil.
	Clock clock.Clock
}

type lookupWindow struct {
	secrets    []*keysDomain.Secret
	generation uint64
	expiresAt  time.Time
}

type secretService struct {
	purpose     keysDomain.Purpose
	store       store.SecretStore
	cache       *cache.SecretCache
	autoCreate  bool
	lookupTTL   time.Duration
	retireGrace time.Duration
	clock       clock.Clock
	logger      *slog.Logger

	group singleflight.Group
	byID  sync.Map

	lookupMu sync.Mutex
	lookup   *lookupWindow
}

// NewSecretService creates the SecretService of a purpose.
func NewSecretService(
	purpose keysDomain.Purpose,
	secretStore store.SecretStore,
	secretCache *cache.SecretCache,
	opts Options,
	logger *slog.Logger,
) SecretService {
	clk := opts.Clock
	if clk == nil {
		clk = clock.WallClock
	}
	grace := opts.RetireGrace
	if grace <= 0 {
		grace = secretCache.TTL() + opts.LookupTTL
	}
	return &secretService{
		purpose:     purpose,
		store:       secretStore,
		cache:       secretCache,
		autoCreate:  opts.AutoCreate,
		lookupTTL:   opts.LookupTTL,
		retireGrace: grace,
		clock:       clk,
		logger:      logger,
	}
}

func (s *secretService) Purpose() keysDomain.Purpose {
	return s.purpose
}

func (s *secretService) CurrentSecret(ctx context.Context) (*keysDomain.Secret, error) {
	if entry, ok := s.cache.Get(s.purpose); ok {
		return entry.Secret, nil
	}

	v, err, _ := s.group.Do("current", func() (any, error) {
		gen := s.cache.Generation(s.purpose)

		secret, err := s.store.GetOrNull(ctx, s.purpose)
		if err != nil {
			return nil, err
		}
		if secret != nil {
			s.cache.PutIfGeneration(s.purpose, secret, gen)
			s.byID.Store(secret.ID, secret)
			return secret, nil
		}

		if !s.autoCreate {
			return nil, fmt.Errorf("%w: purpose %s", keysDomain.ErrNoCurrentKey, s.purpose)
		}

		secret, err = s.create(ctx, "created on first use")
		if err != nil {
			return nil, err
		}
		s.logger.Info("secret created",
			slog.String("purpose", string(s.purpose)),
			slog.String("secret_id", secret.ID.String()),
		)
		if !s.cache.PutIfGeneration(s.purpose, secret, gen) {
			// A rotation committed while the first secret was being created.
			if entry, ok := s.cache.Get(s.purpose); ok {
				return entry.Secret, nil
			}
		}
		return secret, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*keysDomain.Secret), nil
}

func (s *secretService) SecretByID(ctx context.Context, id uuid.UUID) (*keysDomain.Secret, error) {
	if v, ok := s.byID.Load(id); ok {
		return v.(*keysDomain.Secret), nil
	}

	secret, err := s.store.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if secret == nil || secret.Key != s.purpose {
		return nil, fmt.Errorf("%w: %s secret %s", keysDomain.ErrSecretKeyNotFound, s.purpose, id)
	}

	s.byID.Store(id, secret)
	return secret, nil
}

func (s *secretService) Rotate(ctx context.Context) (*keysDomain.Secret, error) {
	secret, err := s.create(ctx, "rotation")
	if err != nil {
		return nil, err
	}

	s.cache.Put(s.purpose, secret)
	s.resetLookup()

	s.logger.Info("secret rotated",
		slog.String("purpose", string(s.purpose)),
		slog.String("secret_id", secret.ID.String()),
	)
	return secret, nil
}

func (s *secretService) LookupSecrets(ctx context.Context) ([]*keysDomain.Secret, error) {
	current, err := s.CurrentSecret(ctx)
	if err != nil {
		return nil, err
	}

	gen := s.cache.Generation(s.purpose)
	now := s.clock.Now()

	s.lookupMu.Lock()
	window := s.lookup
	s.lookupMu.Unlock()

	if window != nil && window.generation == gen && now.Before(window.expiresAt) &&
		window.secrets[0].ID == current.ID {
		return window.secrets, nil
	}

	active, err := s.store.ListActive(ctx, s.purpose)
	if err != nil {
		return nil, err
	}

	secrets := make([]*keysDomain.Secret, 0, len(active)+1)
	secrets = append(secrets, current)
	for _, secret := range active {
		if secret.ID != current.ID {
			secrets = append(secrets, secret)
			s.byID.Store(secret.ID, secret)
		}
	}

	s.lookupMu.Lock()
	s.lookup = &lookupWindow{secrets: secrets, generation: gen, expiresAt: now.Add(s.lookupTTL)}
	s.lookupMu.Unlock()

	return secrets, nil
}

func (s *secretService) Refresh(ctx context.Context) error {
	gen := s.cache.Generation(s.purpose)

	secret, err := s.store.GetOrNull(ctx, s.purpose)
	if err != nil {
		return err
	}
	if secret != nil {
		s.byID.Store(secret.ID, secret)
		if entry, ok := s.cache.Get(s.purpose); !ok || entry.Secret.ID != secret.ID {
			s.cache.PutIfGeneration(s.purpose, secret, gen)
		}
	}
	s.resetLookup()
	return nil
}

func (s *secretService) Retire(ctx context.Context, id uuid.UUID) error {
	current, err := s.store.GetOrNull(ctx, s.purpose)
	if err != nil {
		return err
	}
	if current == nil || current.ID == id {
		return keysDomain.ErrCannotRetireCurrent
	}

	active, err := s.store.ListActive(ctx, s.purpose)
	if err != nil {
		return err
	}
	if successor, found := successorOf(active, id); found {
		if successor == nil || s.clock.Now().Sub(successor.CreatedAt) < s.retireGrace {
			return fmt.Errorf("%w: %s secret %s", keysDomain.ErrRetirementPending, s.purpose, id)
		}
	}

	if err := s.store.Retire(ctx, id); err != nil {
		return err
	}
	s.resetLookup()

	s.logger.Info("secret retired",
		slog.String("purpose", string(s.purpose)),
		slog.String("secret_id", id.String()),
	)
	return nil
}

// create generates fresh key material and persists it as the new current secret.
func (s *secretService) create(ctx context.Context, note string) (*keysDomain.Secret, error) {
	raw := make([]byte, s.purpose.KeySize())
	defer cryptoDomain.Zero(raw)

	if _, err := rand.Read(raw); err != nil {
		return nil, fmt.Errorf("failed to generate key material: %w", err)
	}

	secret, err := s.store.Put(ctx, s.purpose, base64.StdEncoding.EncodeToString(raw), note)
	if err != nil {
		return nil, err
	}
	s.byID.Store(secret.ID, secret)
	return secret, nil
}

// successorOf returns the active secret created right after id. active is newest first.
// found is false when id is not active.
func successorOf(active []*keysDomain.Secret, id uuid.UUID) (successor *keysDomain.Secret, found bool) {
	for _, secret := range active {
		if secret.ID == id {
			return successor, true
		}
		successor = secret
	}
	return nil, false
}

func (s *secretService) resetLookup() {
	s.lookupMu.Lock()
	defer s.lookupMu.Unlock()

	s.lookup = nil
}
