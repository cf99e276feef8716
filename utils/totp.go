package utils

import (
	"github.com/pquerna/otp/totp"
)

const totpIssuer = "Gastos App"

// GenerateTOTPSecret returns the secret and the otpauth:// URL for a new enrollment.
func GenerateTOTPSecret(email string) (string, string, error) {
	key, err := totp.Generate(totp.GenerateOpts{
		Issuer:      totpIssuer,
		AccountName: email,
	})
	if err != nil {
		return "", "", err
	}

	return key.Secret(), key.URL(), nil
}

func VerifyTOTP(secret, code string) bool {
	return totp.Validate(code, secret)
}
