package services

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
)

// EnrollmentClaims are the claims carried by a device enrollment token
// issued by the management server.
type EnrollmentClaims struct {
	DeviceID string `json:"deviceId"`
	jwt.RegisteredClaims
}

// AuthService checks enrollment tokens on the device side. The signing
// secret lives on the management server, so the device parses claims
// without signature verification and enforces expiry and device binding;
// the server re-verifies the signature on join.
type AuthService struct {
	logger *zap.SugaredLogger
}

func NewAuthService(logger *zap.SugaredLogger) *AuthService {
	return &AuthService{logger: logger}
}

// ValidateToken parses the enrollment token and rejects expired tokens and
// tokens bound to a different device.
func (s *AuthService) ValidateToken(token, deviceID string) (*EnrollmentClaims, error) {
	if token == "" {
		return nil, fmt.Errorf("enrollment token is empty")
	}

	claims := &EnrollmentClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return nil, fmt.Errorf("malformed enrollment token: %w", err)
	}

	if claims.ExpiresAt != nil && claims.ExpiresAt.Before(time.Now()) {
		return nil, fmt.Errorf("enrollment token expired at %s", claims.ExpiresAt.Format(time.RFC3339))
	}

	if claims.DeviceID != "" && claims.DeviceID != deviceID {
		return nil, fmt.Errorf("enrollment token is bound to device %q, not %q", claims.DeviceID, deviceID)
	}

	s.logger.Debugw("enrollment token accepted", "device_id", deviceID, "subject", claims.Subject)
	return claims, nil
}
