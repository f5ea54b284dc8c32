package lockmgr

import (
	"crypto/rand"
	"encoding/hex"
)

const (
	handleIDBytes = 16
)

// generateHandleID creates a new unique handle ID.
// The handle ID is a hex encoded random value of 128 bit.
func generateHandleID() (string, error) {
	randomBytes := make([]byte, handleIDBytes)
	if _, err := rand.Read(randomBytes); err != nil {
		return "", err
	}
	return hex.EncodeToString(randomBytes), nil
}
