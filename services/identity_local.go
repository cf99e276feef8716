package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/LovationAdmin/gastos-api/models"
	"github.com/LovationAdmin/gastos-api/store"
	"github.com/LovationAdmin/gastos-api/utils"

	"github.com/google/uuid"
)

const minPasswordLength = 6

// LocalIdentityProvider keeps accounts in the key-value store, hashes
// passwords with bcrypt and issues HS256 access tokens.
type LocalIdentityProvider struct {
	kv            store.KV
	jwtSecret     string
	tokenTTL      time.Duration
	checkPassword func(password, hash string) bool
}

func NewLocalIdentityProvider(kv store.KV, jwtSecret string, tokenTTL time.Duration) *LocalIdentityProvider {
	return &LocalIdentityProvider{
		kv:            kv,
		jwtSecret:     jwtSecret,
		tokenTTL:      tokenTTL,
		checkPassword: utils.CheckPassword,
	}
}

// WithPasswordCheck replaces the bcrypt comparison used by SignIn and DisableTOTP.
func (p *LocalIdentityProvider) WithPasswordCheck(check func(password, hash string) bool) *LocalIdentityProvider {
	p.checkPassword = check
	return p
}

var (
	dummyHashOnce sync.Once
	dummyHash     string
)

// unknownUserHash is compared against when the email has no account, so that
// sign-in costs one bcrypt comparison either way.
func unknownUserHash() string {
	dummyHashOnce.Do(func() {
		hash, err := utils.HashPassword("gastos-unknown-user")
		if err != nil {
			utils.SafeError("[Auth] failed to build placeholder hash: %v", err)
			return
		}
		dummyHash = hash
	})
	return dummyHash
}

type storedUser struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	Name         string    `json:"name"`
	PasswordHash string    `json:"password_hash"`
	TOTPSecret   string    `json:"totp_secret,omitempty"`
	TOTPEnabled  bool      `json:"totp_enabled"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

type emailIndex struct {
	UserID string `json:"user_id"`
}

func userKey(id string) string {
	return "user:" + id
}

func userEmailKey(email string) string {
	return "user_email:" + normalizeEmail(email)
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (p *LocalIdentityProvider) SignUp(ctx context.Context, in SignUpInput) (*models.User, error) {
	if len(in.Password) < minPasswordLength {
		return nil, &ProviderError{Message: fmt.Sprintf("Password should be at least %d characters", minPasswordLength)}
	}

	email := normalizeEmail(in.Email)
	_, err := p.kv.Get(ctx, userEmailKey(email))
	if err == nil {
		return nil, &ProviderError{
			Message: "A user with this email address has already been registered",
			Err:     ErrEmailTaken,
		}
	}
	if !errors.Is(err, store.ErrNotFound) {
		return nil, fmt.Errorf("check email: %w", err)
	}

	hash, err := utils.HashPassword(in.Password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	now := time.Now().UTC()
	user := &storedUser{
		ID:           uuid.New().String(),
		Email:        email,
		Name:         strings.TrimSpace(in.Name),
		PasswordHash: hash,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	// The index goes first so a user record is never left unreachable.
	index, err := json.Marshal(emailIndex{UserID: user.ID})
	if err != nil {
		return nil, err
	}
	if err := p.kv.Set(ctx, userEmailKey(email), index); err != nil {
		return nil, fmt.Errorf("save email index: %w", err)
	}

	if err := p.saveUser(ctx, user); err != nil {
		if delErr := p.kv.Delete(ctx, userEmailKey(email)); delErr != nil && !errors.Is(delErr, store.ErrNotFound) {
			utils.SafeWarn("[Auth] failed to roll back email index: %v", delErr)
		}
		return nil, err
	}

	return &models.User{ID: user.ID, Email: user.Email, Name: user.Name}, nil
}

func (p *LocalIdentityProvider) SignIn(ctx context.Context, in SignInInput) (*Session, error) {
	user, err := p.findByEmail(ctx, in.Email)
	if errors.Is(err, store.ErrNotFound) {
		p.checkPassword(in.Password, unknownUserHash())
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, err
	}

	if !p.checkPassword(in.Password, user.PasswordHash) {
		return nil, ErrInvalidCredentials
	}

	if user.TOTPEnabled {
		if in.TOTPCode == "" {
			return nil, ErrTOTPRequired
		}
		if !utils.VerifyTOTP(user.TOTPSecret, in.TOTPCode) {
			return nil, ErrInvalidTOTP
		}
	}

	token, err := utils.GenerateAccessToken(p.jwtSecret, user.ID, user.Email, p.tokenTTL)
	if err != nil {
		return nil, fmt.Errorf("generate token: %w", err)
	}

	return &Session{
		AccessToken: token,
		User:        models.User{ID: user.ID, Email: user.Email, Name: user.Name},
	}, nil
}

// VerifyToken reloads the account so that name and email are always current
// and tokens of deleted accounts stop working.
func (p *LocalIdentityProvider) VerifyToken(ctx context.Context, token string) (*models.Principal, error) {
	claims, err := utils.ParseAccessToken(p.jwtSecret, token)
	if err != nil {
		return nil, ErrInvalidToken
	}

	user, err := p.loadUser(ctx, claims.Subject)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrInvalidToken
	}
	if err != nil {
		return nil, err
	}

	return &models.Principal{UserID: user.ID, Email: user.Email, Name: user.Name}, nil
}

// ============================================================================
// 2FA MANAGEMENT
// ============================================================================

func (p *LocalIdentityProvider) SetupTOTP(ctx context.Context, userID string) (string, string, error) {
	user, err := p.loadUser(ctx, userID)
	if err != nil {
		return "", "", err
	}

	secret, otpURL, err := utils.GenerateTOTPSecret(user.Email)
	if err != nil {
		return "", "", fmt.Errorf("generate totp: %w", err)
	}

	user.TOTPSecret = secret
	user.TOTPEnabled = false
	if err := p.saveUser(ctx, user); err != nil {
		return "", "", err
	}

	return secret, otpURL, nil
}

func (p *LocalIdentityProvider) EnableTOTP(ctx context.Context, userID, code string) error {
	user, err := p.loadUser(ctx, userID)
	if err != nil {
		return err
	}
	if user.TOTPSecret == "" {
		return ErrTOTPNotSetUp
	}
	if !utils.VerifyTOTP(user.TOTPSecret, code) {
		return ErrInvalidTOTP
	}

	user.TOTPEnabled = true
	return p.saveUser(ctx, user)
}

func (p *LocalIdentityProvider) DisableTOTP(ctx context.Context, userID, password, code string) error {
	user, err := p.loadUser(ctx, userID)
	if err != nil {
		return err
	}
	if !p.checkPassword(password, user.PasswordHash) {
		return ErrInvalidCredentials
	}
	if user.TOTPSecret != "" && !utils.VerifyTOTP(user.TOTPSecret, code) {
		return ErrInvalidTOTP
	}

	user.TOTPSecret = ""
	user.TOTPEnabled = false
	return p.saveUser(ctx, user)
}

// ============================================================================
// STORAGE HELPERS
// ============================================================================

func (p *LocalIdentityProvider) findByEmail(ctx context.Context, email string) (*storedUser, error) {
	raw, err := p.kv.Get(ctx, userEmailKey(email))
	if err != nil {
		return nil, err
	}

	var index emailIndex
	if err := json.Unmarshal(raw, &index); err != nil {
		return nil, fmt.Errorf("decode email index: %w", err)
	}
	return p.loadUser(ctx, index.UserID)
}

func (p *LocalIdentityProvider) loadUser(ctx context.Context, id string) (*storedUser, error) {
	raw, err := p.kv.Get(ctx, userKey(id))
	if err != nil {
		return nil, err
	}

	var user storedUser
	if err := json.Unmarshal(raw, &user); err != nil {
		return nil, fmt.Errorf("decode user: %w", err)
	}
	return &user, nil
}

func (p *LocalIdentityProvider) saveUser(ctx context.Context, user *storedUser) error {
	user.UpdatedAt = time.Now().UTC()
	raw, err := json.Marshal(user)
	if err != nil {
		return err
	}
	if err := p.kv.Set(ctx, userKey(user.ID), raw); err != nil {
		return fmt.Errorf("save user: %w", err)
	}
	return nil
}
