package services

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func enrollmentToken(t *testing.T, deviceID string, expiresAt time.Time) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, EnrollmentClaims{
		DeviceID: deviceID,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "enrollment",
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	})
	signed, err := token.SignedString([]byte("server-side-secret"))
	require.NoError(t, err)
	return signed
}

func TestAuthService_AcceptsValidToken(t *testing.T) {
	svc := NewAuthService(zap.NewNop().Sugar())
	token := enrollmentToken(t, "device-1", time.Now().Add(time.Hour))

	claims, err := svc.ValidateToken(token, "device-1")
	require.NoError(t, err)
	assert.Equal(t, "device-1", claims.DeviceID)
}

func TestAuthService_RejectsExpiredToken(t *testing.T) {
	svc := NewAuthService(zap.NewNop().Sugar())
	token := enrollmentToken(t, "device-1", time.Now().Add(-time.Minute))

	_, err := svc.ValidateToken(token, "device-1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "expired")
}

func TestAuthService_RejectsWrongDeviceBinding(t *testing.T) {
	svc := NewAuthService(zap.NewNop().Sugar())
	token := enrollmentToken(t, "device-1", time.Now().Add(time.Hour))

	_, err := svc.ValidateToken(token, "device-2")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bound to device")
}

func TestAuthService_AcceptsUnboundToken(t *testing.T) {
	svc := NewAuthService(zap.NewNop().Sugar())
	token := enrollmentToken(t, "", time.Now().Add(time.Hour))

	_, err := svc.ValidateToken(token, "device-1")
	assert.NoError(t, err)
}

func TestAuthService_RejectsGarbage(t *testing.T) {
	svc := NewAuthService(zap.NewNop().Sugar())

	_, err := svc.ValidateToken("", "device-1")
	assert.Error(t, err)

	_, err = svc.ValidateToken("not.a.jwt", "device-1")
	assert.Error(t, err)
}
