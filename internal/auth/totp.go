package auth

import (
	"encoding/base64"
	"fmt"

	"github.com/pquerna/otp"
	"github.com/pquerna/otp/totp"
	qrcode "github.com/skip2/go-qrcode"
)

// TOTPManager handles TOTP enrollment and code validation for optional
// two-factor authentication.
type TOTPManager struct {
	issuer string
}

// NewTOTPManager creates a TOTP manager. issuer appears in authenticator apps.
func NewTOTPManager(issuer string) *TOTPManager {
	return &TOTPManager{issuer: issuer}
}

// Enrollment is everything a client needs to finish TOTP setup
type Enrollment struct {
	Secret    string // Base32 secret, stored against the user after confirmation
	QRDataURL string // data: URL of the provisioning QR code PNG
}

// GenerateEnrollment creates a fresh secret and its provisioning QR code
func (tm *TOTPManager) GenerateEnrollment(accountEmail string) (*Enrollment, error) {
	key, err := totp.Generate(totp.GenerateOpts{
		Issuer:      tm.issuer,
		AccountName: accountEmail,
		SecretSize:  32,
		Period:      30,
		Algorithm:   otp.AlgorithmSHA1,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to generate TOTP key: %w", err)
	}

	png, err := qrcode.Encode(key.URL(), qrcode.Medium, 256)
	if err != nil {
		return nil, fmt.Errorf("failed to encode provisioning QR code: %w", err)
	}

	return &Enrollment{
		Secret:    key.Secret(),
		QRDataURL: "data:image/png;base64," + base64.StdEncoding.EncodeToString(png),
	}, nil
}

// ValidateCode checks a 6-digit code against the stored secret
func (tm *TOTPManager) ValidateCode(code, secret string) bool {
	return totp.Validate(code, secret)
}
