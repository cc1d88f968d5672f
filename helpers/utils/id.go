// Package utils holds small shared helpers.
package utils

import (
	"crypto/rand"
	"encoding/hex"
)

// NewID returns a random 32-character hex identifier, used for job IDs.
func NewID() string {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		// crypto/rand never fails on supported platforms.
		panic(err)
	}
	return hex.EncodeToString(buf)
}
