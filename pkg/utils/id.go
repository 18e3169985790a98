package utils

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// GenerateCommandID returns the correlation id for one command envelope.
// UUIDs guarantee process-lifetime uniqueness across sessions.
func GenerateCommandID() string {
	return uuid.NewString()
}

// GenerateSessionID returns a unique session identifier.
func GenerateSessionID() string {
	return generateID("session")
}

// GenerateRequestID returns a unique request identifier for log correlation.
func GenerateRequestID() string {
	timestamp := time.Now().UnixNano()
	b := make([]byte, 4)
	rand.Read(b)
	return fmt.Sprintf("req_%d_%s", timestamp, hex.EncodeToString(b))
}

func generateID(prefix string) string {
	b := make([]byte, 8)
	rand.Read(b)
	return fmt.Sprintf("%s_%s", prefix, hex.EncodeToString(b))
}
