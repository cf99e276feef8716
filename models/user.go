package models

// ============================================================================
// USER MODEL
// ============================================================================

// User is the minimal projection of an identity-provider account.
type User struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name"`
}

// Principal is the identity resolved from a bearer token.
type Principal struct {
	UserID string
	Email  string
	Name   string
}

func (p Principal) User() User {
	return User{ID: p.UserID, Email: p.Email, Name: p.Name}
}

// ============================================================================
// AUTHENTICATION REQUESTS
// ============================================================================

type RegisterRequest struct {
	Name     string `json:"name" binding:"required"`
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type LoginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
	TOTPCode string `json:"totp_code,omitempty"`
}

type RegisterResponse struct {
	Message string `json:"message"`
	User    User   `json:"user"`
}

type AuthResponse struct {
	Message     string `json:"message"`
	AccessToken string `json:"access_token"`
	User        User   `json:"user"`
}

// ============================================================================
// 2FA
// ============================================================================

type TOTPSetupResponse struct {
	Secret string `json:"secret"`
	QRCode string `json:"qr_code"`
}

type VerifyTOTPRequest struct {
	Code string `json:"code" binding:"required"`
}

type DisableTOTPRequest struct {
	Password string `json:"password" binding:"required"`
	Code     string `json:"code" binding:"required"`
}
