package dto

import (
	"github.com/google/uuid"

	"github.com/allisson/fieldcrypt/internal/user/usecase"
)

// ToRegisterUserInput converts a validated request to the use case input.
func ToRegisterUserInput(req RegisterUserRequest) (usecase.RegisterUserInput, error) {
	tenantID, err := uuid.Parse(req.TenantID)
	if err != nil {
		return usecase.RegisterUserInput{}, err
	}

	return usecase.RegisterUserInput{
		TenantID:  tenantID,
		Name:      req.Name,
		Email:     req.Email,
		Password:  req.Password,
		Providers: req.Providers,
	}, nil
}
