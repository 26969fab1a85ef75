package store

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/hashicorp/vault/api"

	keysDomain "github.com/allisson/fieldcrypt/internal/keys/domain"
)

// maxCASAttempts bounds the optimistic retries when two writers race on an index.
const maxCASAttempts = 5

// kvClient is the subset of *api.KVv2 used by VaultStore.
type kvClient interface {
	Get(ctx context.Context, secretPath string) (*api.KVSecret, error)
	Put(ctx context.Context, secretPath string, data map[string]interface{}, opts ...api.KVOption) (*api.KVSecret, error)
}

// VaultStore keeps secrets in a HashiCorp Vault KV v2 mount.
//
// Layout under the path prefix:
//
//	versions/<id>        one record per secret, never overwritten except to retire
//	<purpose>/active     comma separated ids of non-retired secrets, newest first
//	<purpose>/current    pointer to the current secret, written last by Put
type VaultStore struct {
	kv     kvClient
	prefix string
}

// NewVaultClient creates an authenticated Vault API client.
func NewVaultClient(address, token string) (*api.Client, error) {
	cfg := api.DefaultConfig()
	cfg.Address = address

	client, err := api.NewClient(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create vault client: %w", err)
	}
	client.SetToken(token)
	return client, nil
}

// NewVaultStore creates a VaultStore on the given KV v2 mount and path prefix.
func NewVaultStore(client *api.Client, mountPath, prefix string) *VaultStore {
	return &VaultStore{kv: client.KVv2(mountPath), prefix: strings.Trim(prefix, "/")}
}

// GetOrNull resolves the current pointer of the purpose.
func (v *VaultStore) GetOrNull(ctx context.Context, key keysDomain.Purpose) (*keysDomain.Secret, error) {
	kvSecret, err := v.kv.Get(ctx, v.currentPath(key))
	if isNotFound(err) {
		return nil, nil
	}
	if err != nil {
		return nil, storeError("failed to read current pointer", err)
	}

	id, err := uuid.Parse(stringField(kvSecret.Data, "id"))
	if err != nil {
		return nil, storeError("invalid current pointer", err)
	}
	return v.GetByID(ctx, id)
}

// GetByID reads the versioned record of a secret.
func (v *VaultStore) GetByID(ctx context.Context, id uuid.UUID) (*keysDomain.Secret, error) {
	kvSecret, err := v.kv.Get(ctx, v.versionPath(id))
	if isNotFound(err) {
		return nil, nil
	}
	if err != nil {
		return nil, storeError("failed to read secret", err)
	}

	secret, err := secretFromData(kvSecret.Data)
	if err != nil {
		return nil, storeError("failed to decode secret", err)
	}
	return secret, nil
}

// Put writes the versioned record, indexes it and finally moves the current pointer.
// A failure before the last write leaves the previous secret current.
func (v *VaultStore) Put(
	ctx context.Context,
	key keysDomain.Purpose,
	value, note string,
) (*keysDomain.Secret, error) {
	secret := newSecret(key, value, note)

	if _, err := v.kv.Put(ctx, v.versionPath(secret.ID), secretToData(secret)); err != nil {
		return nil, storeError("failed to write secret", err)
	}

	err := v.updateActive(ctx, key, func(ids []string) []string {
		return append([]string{secret.ID.String()}, ids...)
	})
	if err != nil {
		return nil, storeError("failed to index secret", err)
	}

	current := map[string]interface{}{"id": secret.ID.String()}
	if _, err := v.kv.Put(ctx, v.currentPath(key), current); err != nil {
		return nil, storeError("failed to write current pointer", err)
	}
	return secret, nil
}

// ListActive returns the indexed non-retired secrets, newest first.
func (v *VaultStore) ListActive(ctx context.Context, key keysDomain.Purpose) ([]*keysDomain.Secret, error) {
	ids, _, err := v.readActive(ctx, key)
	if err != nil {
		return nil, storeError("failed to read active index", err)
	}

	secrets := make([]*keysDomain.Secret, 0, len(ids))
	for _, raw := range ids {
		id, err := uuid.Parse(raw)
		if err != nil {
			return nil, storeError("invalid active index", err)
		}
		secret, err := v.GetByID(ctx, id)
		if err != nil {
			return nil, err
		}
		if secret == nil || secret.IsRetired() {
			continue
		}
		secrets = append(secrets, secret)
	}
	sortNewestFirst(secrets)
	return secrets, nil
}

// Retire stamps the versioned record and drops it from the active index.
func (v *VaultStore) Retire(ctx context.Context, id uuid.UUID) error {
	secret, err := v.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if secret == nil || secret.IsRetired() {
		return nil
	}

	current, err := v.GetOrNull(ctx, secret.Key)
	if err != nil {
		return err
	}
	if current != nil && current.ID == id {
		return nil
	}

	now := time.Now().UTC()
	secret.RetiredAt = &now
	if _, err := v.kv.Put(ctx, v.versionPath(id), secretToData(secret)); err != nil {
		return storeError("failed to retire secret", err)
	}

	err = v.updateActive(ctx, secret.Key, func(ids []string) []string {
		kept := ids[:0]
		for _, existing := range ids {
			if existing != id.String() {
				kept = append(kept, existing)
			}
		}
		return kept
	})
	if err != nil {
		return storeError("failed to update active index", err)
	}
	return nil
}

// updateActive applies fn to the active index with check-and-set, retrying on conflicts.
func (v *VaultStore) updateActive(ctx context.Context, key keysDomain.Purpose, fn func([]string) []string) error {
	var err error
	for range maxCASAttempts {
		var ids []string
		var version int
		ids, version, err = v.readActive(ctx, key)
		if err != nil {
			return err
		}

		data := map[string]interface{}{"ids": strings.Join(fn(ids), ",")}
		_, err = v.kv.Put(ctx, v.activePath(key), data, api.WithCheckAndSet(version))
		if err == nil || !isCASMismatch(err) {
			return err
		}
	}
	return err
}

// readActive returns the index and its KV version (0 when it does not exist yet).
func (v *VaultStore) readActive(ctx context.Context, key keysDomain.Purpose) ([]string, int, error) {
	kvSecret, err := v.kv.Get(ctx, v.activePath(key))
	if isNotFound(err) {
		return nil, 0, nil
	}
	if err != nil {
		return nil, 0, err
	}

	version := 0
	if kvSecret.VersionMetadata != nil {
		version = kvSecret.VersionMetadata.Version
	}

	raw := stringField(kvSecret.Data, "ids")
	if raw == "" {
		return nil, version, nil
	}
	return strings.Split(raw, ","), version, nil
}

func (v *VaultStore) versionPath(id uuid.UUID) string {
	return path.Join(v.prefix, "versions", id.String())
}

func (v *VaultStore) activePath(key keysDomain.Purpose) string {
	return path.Join(v.prefix, string(key), "active")
}

func (v *VaultStore) currentPath(key keysDomain.Purpose) string {
	return path.Join(v.prefix, string(key), "current")
}

func secretToData(s *keysDomain.Secret) map[string]interface{} {
	retiredAt := ""
	if s.RetiredAt != nil {
		retiredAt = s.RetiredAt.Format(time.RFC3339Nano)
	}
	return map[string]interface{}{
		"id":         s.ID.String(),
		"purpose":    string(s.Key),
		"value":      s.Value,
		"note":       s.Note,
		"created_at": s.CreatedAt.Format(time.RFC3339Nano),
		"retired_at": retiredAt,
	}
}

func secretFromData(data map[string]interface{}) (*keysDomain.Secret, error) {
	id, err := uuid.Parse(stringField(data, "id"))
	if err != nil {
		return nil, err
	}
	createdAt, err := time.Parse(time.RFC3339Nano, stringField(data, "created_at"))
	if err != nil {
		return nil, err
	}

	secret := &keysDomain.Secret{
		ID:        id,
		Key:       keysDomain.Purpose(stringField(data, "purpose")),
		Value:     stringField(data, "value"),
		Note:      stringField(data, "note"),
		CreatedAt: createdAt,
	}
	if raw := stringField(data, "retired_at"); raw != "" {
		retiredAt, err := time.Parse(time.RFC3339Nano, raw)
		if err != nil {
			return nil, err
		}
		secret.RetiredAt = &retiredAt
	}
	return secret, nil
}

func stringField(data map[string]interface{}, key string) string {
	s, _ := data[key].(string)
	return s
}

func isNotFound(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, api.ErrSecretNotFound) {
		return true
	}
	var apiErr *api.ResponseError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode == http.StatusNotFound
	}
	return false
}

func isCASMismatch(err error) bool {
	var apiErr *api.ResponseError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode == http.StatusBadRequest &&
			strings.Contains(strings.Join(apiErr.Errors, ","), "check-and-set")
	}
	return false
}
