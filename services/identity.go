package services

import (
	"context"

	"github.com/LovationAdmin/gastos-api/models"
)

type SignUpInput struct {
	Name     string
	Email    string
	Password string
}

type SignInInput struct {
	Email    string
	Password string
	TOTPCode string
}

// Session is the result of a successful sign-in.
type Session struct {
	AccessToken string
	User        models.User
}

// IdentityProvider owns registration, credential checks and token validation.
//
// SignIn returns ErrInvalidCredentials for both unknown emails and wrong
// passwords. VerifyToken returns ErrInvalidToken for any token it rejects;
// other errors mean the provider itself failed.
type IdentityProvider interface {
	SignUp(ctx context.Context, in SignUpInput) (*models.User, error)
	SignIn(ctx context.Context, in SignInInput) (*Session, error)
	VerifyToken(ctx context.Context, token string) (*models.Principal, error)
}

// TOTPManager is implemented by providers that manage 2FA themselves.
type TOTPManager interface {
	SetupTOTP(ctx context.Context, userID string) (secret string, otpURL string, err error)
	EnableTOTP(ctx context.Context, userID, code string) error
	DisableTOTP(ctx context.Context, userID, password, code string) error
}
