package database

import (
	"crypto/rand"
	"encoding/hex"
)

// tokenKeyLength is the length of an auth token key in hex characters.
const tokenKeyLength = 40

func generateTokenKey() (string, error) {
	var key [tokenKeyLength / 2]byte
	if _, err := rand.Read(key[:]); err != nil {
		return "", err
	}
	return hex.EncodeToString(key[:]), nil
}
