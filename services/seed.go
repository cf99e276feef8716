package services

import (
	"context"
	"errors"

	"github.com/LovationAdmin/gastos-api/utils"
)

// EnsureDemoUser registers the demo account unless it already exists.
func EnsureDemoUser(ctx context.Context, provider IdentityProvider, name, email, password string) error {
	utils.SafeInfo("Checking if demo user exists...")

	_, err := provider.SignUp(ctx, SignUpInput{Name: name, Email: email, Password: password})
	if errors.Is(err, ErrEmailTaken) {
		utils.SafeInfo("Demo user already exists")
		return nil
	}
	if err != nil {
		return err
	}

	utils.SafeInfo("✅ Demo user created: %s", email)
	return nil
}
