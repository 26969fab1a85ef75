package app

import (
	"fmt"

	rotationHTTP "github.com/allisson/fieldcrypt/internal/rotation/http"
	rotationRepository "github.com/allisson/fieldcrypt/internal/rotation/repository"
	rotationUseCase "github.com/allisson/fieldcrypt/internal/rotation/usecase"
)

// RotationUseCase returns the key rotation orchestrator.
func (c *Container) RotationUseCase() (rotationUseCase.RotationUseCase, error) {
	var err error
	c.rotationUseCaseInit.Do(func() {
		c.rotationUseCase, err = c.initRotationUseCase()
		if err != nil {
			c.setInitError("rotationUseCase", err)
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr := c.initError("rotationUseCase"); storedErr != nil {
		return nil, storedErr
	}
	return c.rotationUseCase, nil
}

// RotationScheduler returns the cron scheduler of key rotations, or nil when
// KEY_ROTATION_CRON is empty.
func (c *Container) RotationScheduler() (*rotationUseCase.Scheduler, error) {
	var err error
	c.rotationSchedulerInit.Do(func() {
		c.rotationScheduler, err = c.initRotationScheduler()
		if err != nil {
			c.setInitError("rotationScheduler", err)
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr := c.initError("rotationScheduler"); storedErr != nil {
		return nil, storedErr
	}
	return c.rotationScheduler, nil
}

// RotationHandler returns the HTTP handler for the admin rotation endpoints.
func (c *Container) RotationHandler() (*rotationHTTP.RotationHandler, error) {
	var err error
	c.rotationHandlerInit.Do(func() {
		var uc rotationUseCase.RotationUseCase
		uc, err = c.RotationUseCase()
		if err != nil {
			err = fmt.Errorf("failed to get rotation use case for rotation handler: %w", err)
			c.setInitError("rotationHandler", err)
			return
		}
		c.rotationHandler = rotationHTTP.NewRotationHandler(uc, c.Logger())
	})
	if err != nil {
		return nil, err
	}
	if storedErr := c.initError("rotationHandler"); storedErr != nil {
		return nil, storedErr
	}
	return c.rotationHandler, nil
}

func (c *Container) initRotationUseCase() (rotationUseCase.RotationUseCase, error) {
	registry, err := c.SecretRegistry()
	if err != nil {
		return nil, fmt.Errorf("failed to get secret registry for rotation use case: %w", err)
	}
	collections, err := c.Collections()
	if err != nil {
		return nil, err
	}
	businessMetrics, err := c.BusinessMetrics()
	if err != nil {
		return nil, fmt.Errorf("failed to get business metrics for rotation use case: %w", err)
	}
	lease, err := c.initRotationLease()
	if err != nil {
		return nil, err
	}

	orchestrator := rotationUseCase.NewOrchestrator(
		registry,
		collections,
		rotationUseCase.Options{
			BatchSize: c.config.RotationBatchSize,
			RateLimit: c.config.RotationRateLimit,
			Lease:     lease,
			LeaseTTL:  c.config.RotationLeaseTTL,
		},
		businessMetrics,
		c.Logger(),
	)

	if !c.config.MetricsEnabled {
		return orchestrator, nil
	}
	return rotationUseCase.NewRotationUseCaseWithMetrics(orchestrator, businessMetrics), nil
}

// initRotationLease creates the SQL lease when ROTATION_LEASE_ENABLED is set.
func (c *Container) initRotationLease() (rotationUseCase.Lease, error) {
	if !c.config.RotationLeaseEnabled {
		return nil, nil
	}

	db, err := c.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database for rotation lease: %w", err)
	}

	switch c.config.DBDriver {
	case "postgres":
		return rotationRepository.NewPostgreSQLLeaseRepository(db), nil
	case "mysql":
		return rotationRepository.NewMySQLLeaseRepository(db), nil
	default:
		return nil, fmt.Errorf("unsupported database driver: %s", c.config.DBDriver)
	}
}

func (c *Container) initRotationScheduler() (*rotationUseCase.Scheduler, error) {
	if c.config.KeyRotationCron == "" {
		return nil, nil
	}

	uc, err := c.RotationUseCase()
	if err != nil {
		return nil, fmt.Errorf("failed to get rotation use case for scheduler: %w", err)
	}
	return rotationUseCase.NewScheduler(c.config.KeyRotationCron, uc, c.Logger())
}
