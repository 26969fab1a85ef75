package app

import (
	"context"
	"fmt"

	"github.com/allisson/fieldcrypt/internal/config"
	cryptoDomain "github.com/allisson/fieldcrypt/internal/crypto/domain"
	cryptoService "github.com/allisson/fieldcrypt/internal/crypto/service"
	keysDomain "github.com/allisson/fieldcrypt/internal/keys/domain"
	"github.com/allisson/fieldcrypt/internal/keys/cache"
	keysService "github.com/allisson/fieldcrypt/internal/keys/service"
	"github.com/allisson/fieldcrypt/internal/keys/store"
)

// KMSKeeper returns the keeper sealing secrets at rest. It is nil unless KEY_MANAGER=local.
func (c *Container) KMSKeeper() (cryptoDomain.KMSKeeper, error) {
	var err error
	c.kmsKeeperInit.Do(func() {
		c.kmsKeeper, err = c.initKMSKeeper()
		if err != nil {
			c.setInitError("kmsKeeper", err)
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr := c.initError("kmsKeeper"); storedErr != nil {
		return nil, storedErr
	}
	return c.kmsKeeper, nil
}

// SecretStore returns the versioned secret store selected by KEY_MANAGER.
func (c *Container) SecretStore() (store.SecretStore, error) {
	var err error
	c.secretStoreInit.Do(func() {
		c.secretStore, err = c.initSecretStore()
		if err != nil {
			c.setInitError("secretStore", err)
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr := c.initError("secretStore"); storedErr != nil {
		return nil, storedErr
	}
	return c.secretStore, nil
}

// SecretCache returns the process-wide cache of current secrets.
func (c *Container) SecretCache() *cache.SecretCache {
	c.secretCacheInit.Do(func() {
		c.secretCache = cache.New(c.config.CacheExpiration, nil)
	})
	return c.secretCache
}

// SecretRegistry returns the secret services of every purpose.
func (c *Container) SecretRegistry() (*keysService.Registry, error) {
	var err error
	c.secretRegistryInit.Do(func() {
		c.secretRegistry, err = c.initSecretRegistry()
		if err != nil {
			c.setInitError("secretRegistry", err)
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr := c.initError("secretRegistry"); storedErr != nil {
		return nil, storedErr
	}
	return c.secretRegistry, nil
}

// SecretService returns the secret service of purpose.
func (c *Container) SecretService(purpose keysDomain.Purpose) (keysService.SecretService, error) {
	registry, err := c.SecretRegistry()
	if err != nil {
		return nil, err
	}
	return registry.Get(purpose)
}

// EncryptionService returns the service sealing sensitive payloads.
func (c *Container) EncryptionService() (cryptoService.EncryptionService, error) {
	var err error
	c.encryptionServiceInit.Do(func() {
		c.encryptionService, err = c.initEncryptionService()
		if err != nil {
			c.setInitError("encryptionService", err)
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr := c.initError("encryptionService"); storedErr != nil {
		return nil, storedErr
	}
	return c.encryptionService, nil
}

// HashService returns the service producing searchable hashes.
func (c *Container) HashService() (cryptoService.HashService, error) {
	var err error
	c.hashServiceInit.Do(func() {
		c.hashService, err = c.initHashService()
		if err != nil {
			c.setInitError("hashService", err)
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr := c.initError("hashService"); storedErr != nil {
		return nil, storedErr
	}
	return c.hashService, nil
}

// initKMSKeeper opens the keeper of KMS_KEY_URI.
func (c *Container) initKMSKeeper() (cryptoDomain.KMSKeeper, error) {
	if c.config.KeyManager != config.KeyManagerLocal {
		return nil, nil
	}
	keeper, err := cryptoService.NewKMSService().OpenKeeper(context.Background(), c.config.KMSKeyURI)
	if err != nil {
		return nil, fmt.Errorf("failed to open kms keeper: %w", err)
	}
	return keeper, nil
}

// initSecretStore creates the secret store of the configured key manager.
func (c *Container) initSecretStore() (store.SecretStore, error) {
	switch c.config.KeyManager {
	case config.KeyManagerMemory:
		return store.NewMemoryStore(), nil
	case config.KeyManagerVault:
		client, err := store.NewVaultClient(c.config.VaultAddress, c.config.VaultToken)
		if err != nil {
			return nil, fmt.Errorf("failed to create vault client: %w", err)
		}
		return store.NewVaultStore(client, c.config.VaultMountPath, c.config.VaultPathPrefix), nil
	case config.KeyManagerLocal:
	default:
		return nil, fmt.Errorf("unsupported key manager: %q", c.config.KeyManager)
	}

	db, err := c.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database for secret store: %w", err)
	}
	txManager, err := c.TxManager()
	if err != nil {
		return nil, fmt.Errorf("failed to get tx manager for secret store: %w", err)
	}
	keeper, err := c.KMSKeeper()
	if err != nil {
		return nil, fmt.Errorf("failed to get kms keeper for secret store: %w", err)
	}

	switch c.config.DBDriver {
	case "postgres":
		return store.NewPostgreSQLStore(db, txManager, keeper), nil
	case "mysql":
		return store.NewMySQLStore(db, txManager, keeper), nil
	default:
		return nil, fmt.Errorf("unsupported database driver: %s", c.config.DBDriver)
	}
}

// initSecretRegistry creates one secret service per purpose over the shared store and cache.
func (c *Container) initSecretRegistry() (*keysService.Registry, error) {
	secretStore, err := c.SecretStore()
	if err != nil {
		return nil, fmt.Errorf("failed to get secret store for secret registry: %w", err)
	}

	opts := keysService.Options{
		AutoCreate:  c.config.KeyAutoCreate,
		LookupTTL:   c.config.CacheExpiration,
		RetireGrace: c.config.KeyRetireGrace,
	}
	secretCache := c.SecretCache()

	services := make([]keysService.SecretService, 0, len(keysDomain.Purposes))
	for _, purpose := range keysDomain.Purposes {
		services = append(services, keysService.NewSecretService(purpose, secretStore, secretCache, opts, c.Logger()))
	}
	return keysService.NewRegistry(services...), nil
}

func (c *Container) initEncryptionService() (cryptoService.EncryptionService, error) {
	secrets, err := c.SecretService(keysDomain.PurposeEncryption)
	if err != nil {
		return nil, fmt.Errorf("failed to get encryption secrets: %w", err)
	}

	algorithm, err := cryptoDomain.ParseAlgorithm(c.config.EncryptionAlgorithm)
	if err != nil {
		return nil, err
	}

	svc := cryptoService.NewEncryptionService(secrets, cryptoService.NewAEADManager(), algorithm)
	if !c.config.MetricsEnabled {
		return svc, nil
	}

	businessMetrics, err := c.BusinessMetrics()
	if err != nil {
		return nil, fmt.Errorf("failed to get business metrics for encryption service: %w", err)
	}
	return cryptoService.NewEncryptionServiceWithMetrics(svc, businessMetrics), nil
}

func (c *Container) initHashService() (cryptoService.HashService, error) {
	secrets, err := c.SecretService(keysDomain.PurposeHashing)
	if err != nil {
		return nil, fmt.Errorf("failed to get hashing secrets: %w", err)
	}
	return cryptoService.NewHashService(secrets), nil
}
