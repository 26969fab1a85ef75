package app

import (
	"fmt"

	invitationHTTP "github.com/allisson/fieldcrypt/internal/invitation/http"
	invitationRepository "github.com/allisson/fieldcrypt/internal/invitation/repository"
	invitationUseCase "github.com/allisson/fieldcrypt/internal/invitation/usecase"
	keysDomain "github.com/allisson/fieldcrypt/internal/keys/domain"
	rotationUseCase "github.com/allisson/fieldcrypt/internal/rotation/usecase"
	userHTTP "github.com/allisson/fieldcrypt/internal/user/http"
	userRepository "github.com/allisson/fieldcrypt/internal/user/repository"
	userUseCase "github.com/allisson/fieldcrypt/internal/user/usecase"
)

// UserRepository returns the user repository instance.
func (c *Container) UserRepository() (userUseCase.UserRepository, error) {
	var err error
	c.userRepositoryInit.Do(func() {
		c.userRepository, err = c.initUserRepository()
		if err != nil {
			c.setInitError("userRepository", err)
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr := c.initError("userRepository"); storedErr != nil {
		return nil, storedErr
	}
	return c.userRepository, nil
}

// UserUseCase returns the user use case instance.
func (c *Container) UserUseCase() (userUseCase.UserUseCase, error) {
	var err error
	c.userUseCaseInit.Do(func() {
		c.userUseCase, err = c.initUserUseCase()
		if err != nil {
			c.setInitError("userUseCase", err)
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr := c.initError("userUseCase"); storedErr != nil {
		return nil, storedErr
	}
	return c.userUseCase, nil
}

// UserHandler returns the HTTP handler for user operations.
func (c *Container) UserHandler() (*userHTTP.UserHandler, error) {
	var err error
	c.userHandlerInit.Do(func() {
		var uc userUseCase.UserUseCase
		uc, err = c.UserUseCase()
		if err != nil {
			err = fmt.Errorf("failed to get user use case for user handler: %w", err)
			c.setInitError("userHandler", err)
			return
		}
		c.userHandler = userHTTP.NewUserHandler(uc, c.Logger())
	})
	if err != nil {
		return nil, err
	}
	if storedErr := c.initError("userHandler"); storedErr != nil {
		return nil, storedErr
	}
	return c.userHandler, nil
}

// InvitationRepository returns the invitation repository instance.
func (c *Container) InvitationRepository() (invitationUseCase.InvitationRepository, error) {
	var err error
	c.invitationRepositoryInit.Do(func() {
		c.invitationRepository, err = c.initInvitationRepository()
		if err != nil {
			c.setInitError("invitationRepository", err)
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr := c.initError("invitationRepository"); storedErr != nil {
		return nil, storedErr
	}
	return c.invitationRepository, nil
}

// InvitationUseCase returns the invitation use case instance.
func (c *Container) InvitationUseCase() (invitationUseCase.InvitationUseCase, error) {
	var err error
	c.invitationUseCaseInit.Do(func() {
		c.invitationUseCase, err = c.initInvitationUseCase()
		if err != nil {
			c.setInitError("invitationUseCase", err)
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr := c.initError("invitationUseCase"); storedErr != nil {
		return nil, storedErr
	}
	return c.invitationUseCase, nil
}

// InvitationHandler returns the HTTP handler for invitation operations.
func (c *Container) InvitationHandler() (*invitationHTTP.InvitationHandler, error) {
	var err error
	c.invitationHandlerInit.Do(func() {
		var uc invitationUseCase.InvitationUseCase
		uc, err = c.InvitationUseCase()
		if err != nil {
			err = fmt.Errorf("failed to get invitation use case for invitation handler: %w", err)
			c.setInitError("invitationHandler", err)
			return
		}
		c.invitationHandler = invitationHTTP.NewInvitationHandler(uc, c.Logger())
	})
	if err != nil {
		return nil, err
	}
	if storedErr := c.initError("invitationHandler"); storedErr != nil {
		return nil, storedErr
	}
	return c.invitationHandler, nil
}

// Collections returns the document collections resealed by key rotation.
func (c *Container) Collections() ([]rotationUseCase.Collection, error) {
	txManager, err := c.TxManager()
	if err != nil {
		return nil, fmt.Errorf("failed to get tx manager for collections: %w", err)
	}
	encryption, err := c.EncryptionService()
	if err != nil {
		return nil, fmt.Errorf("failed to get encryption service for collections: %w", err)
	}
	hash, err := c.HashService()
	if err != nil {
		return nil, fmt.Errorf("failed to get hash service for collections: %w", err)
	}
	users, err := c.UserRepository()
	if err != nil {
		return nil, fmt.Errorf("failed to get user repository for collections: %w", err)
	}
	invitations, err := c.InvitationRepository()
	if err != nil {
		return nil, fmt.Errorf("failed to get invitation repository for collections: %w", err)
	}

	return []rotationUseCase.Collection{
		userUseCase.NewUserCollection(users, txManager, encryption, hash),
		invitationUseCase.NewInvitationCollection(invitations, txManager, encryption, hash),
	}, nil
}

// initUserRepository creates the user repository based on the database driver.
func (c *Container) initUserRepository() (userUseCase.UserRepository, error) {
	db, err := c.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database for user repository: %w", err)
	}

	switch c.config.DBDriver {
	case "postgres":
		return userRepository.NewPostgreSQLUserRepository(db), nil
	case "mysql":
		return userRepository.NewMySQLUserRepository(db), nil
	default:
		return nil, fmt.Errorf("unsupported database driver: %s", c.config.DBDriver)
	}
}

func (c *Container) initUserUseCase() (userUseCase.UserUseCase, error) {
	repo, err := c.UserRepository()
	if err != nil {
		return nil, fmt.Errorf("failed to get user repository for user use case: %w", err)
	}
	encryption, err := c.EncryptionService()
	if err != nil {
		return nil, fmt.Errorf("failed to get encryption service for user use case: %w", err)
	}
	hash, err := c.HashService()
	if err != nil {
		return nil, fmt.Errorf("failed to get hash service for user use case: %w", err)
	}
	return userUseCase.NewUserUseCase(repo, encryption, hash)
}

// initInvitationRepository creates the invitation repository based on the database driver.
func (c *Container) initInvitationRepository() (invitationUseCase.InvitationRepository, error) {
	db, err := c.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database for invitation repository: %w", err)
	}

	switch c.config.DBDriver {
	case "postgres":
		return invitationRepository.NewPostgreSQLInvitationRepository(db), nil
	case "mysql":
		return invitationRepository.NewMySQLInvitationRepository(db), nil
	default:
		return nil, fmt.Errorf("unsupported database driver: %s", c.config.DBDriver)
	}
}

func (c *Container) initInvitationUseCase() (invitationUseCase.InvitationUseCase, error) {
	repo, err := c.InvitationRepository()
	if err != nil {
		return nil, fmt.Errorf("failed to get invitation repository for invitation use case: %w", err)
	}
	txManager, err := c.TxManager()
	if err != nil {
		return nil, fmt.Errorf("failed to get tx manager for invitation use case: %w", err)
	}
	encryption, err := c.EncryptionService()
	if err != nil {
		return nil, fmt.Errorf("failed to get encryption service for invitation use case: %w", err)
	}
	hash, err := c.HashService()
	if err != nil {
		return nil, fmt.Errorf("failed to get hash service for invitation use case: %w", err)
	}
	signing, err := c.SecretService(keysDomain.PurposeSigning)
	if err != nil {
		return nil, fmt.Errorf("failed to get signing secrets for invitation use case: %w", err)
	}

	return invitationUseCase.NewInvitationUseCase(
		repo,
		txManager,
		encryption,
		hash,
		signing,
		c.config.InvitationExpiration,
	), nil
}
