package services

import (
	"time"

	"github.com/xtdb/xtdocs/internal/infrastructure/observability/logging"
	"github.com/xtdb/xtdocs/internal/infrastructure/security"
)

// AuthService handles admin authentication and JWT operations
type AuthService struct {
	passwordHash string
	jwtSecret    string
	tokenTTL     time.Duration
	logger       *logging.ChanneledLogger
}

// sessionSecretBytes is the size of the signing key generated when an admin
// password is configured without a JWT secret.
const sessionSecretBytes = 32

// NewAuthService creates a new authentication service. With a password but no
// secret it signs with a random per-process key, so issued tokens do not
// survive a restart.
func NewAuthService(passwordHash, jwtSecret string, tokenTTL time.Duration, logger *logging.ChanneledLogger) *AuthService {
	if passwordHash != "" && jwtSecret == "" {
		secret, err := security.GenerateSecureToken(sessionSecretBytes)
		if err != nil {
			logger.Auth().Error("Failed to generate JWT secret, admin login disabled", "error", err.Error())
		} else {
			logger.Auth().Warn("JWT_SECRET not set, using a generated secret; admin tokens will not survive a restart")
			jwtSecret = secret
		}
	}
	return &AuthService{
		passwordHash: passwordHash,
		jwtSecret:    jwtSecret,
		tokenTTL:     tokenTTL,
		logger:       logger,
	}
}

// AuthResult holds authentication result data
type AuthResult struct {
	Token   string `json:"token,omitempty"`
	Role    string `json:"role,omitempty"`
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}

// Enabled reports whether admin login is configured.
func (a *AuthService) Enabled() bool {
	return a.passwordHash != "" && a.jwtSecret != ""
}

// AuthenticateAdmin validates the admin password and issues a token.
func (a *AuthService) AuthenticateAdmin(password string) *AuthResult {
	if !a.Enabled() {
		a.logger.Auth().Warn("Admin login attempted but admin auth is not configured")
		return &AuthResult{Success: false, Error: "Admin login is disabled"}
	}
	if !security.CheckPassword(a.passwordHash, password) {
		a.logger.Auth().Warn("Admin login failed")
		return &AuthResult{Success: false, Error: "Invalid credentials"}
	}

	token, err := security.GenerateAdminToken(a.jwtSecret, a.tokenTTL)
	if err != nil {
		a.logger.Auth().Error("Token generation failed", "error", err.Error())
		return &AuthResult{Success: false, Error: "Token generation failed"}
	}
	a.logger.Auth().Info("Admin login succeeded")
	return &AuthResult{Token: token, Role: security.RoleAdmin, Success: true}
}

// ValidateAdminToken reports whether token is a valid admin token.
func (a *AuthService) ValidateAdminToken(token string) bool {
	claims, err := security.ValidateJWT(token, a.jwtSecret)
	if err != nil {
		a.logger.Auth().Debug("Token rejected", "error", err.Error())
		return false
	}
	return security.RoleFromClaims(claims) == security.RoleAdmin
}
