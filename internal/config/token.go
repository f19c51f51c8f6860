package config

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"os"

	"github.com/zalando/go-keyring"
)

const (
	keyringService = "tend"
	keyringAccount = "api_token"
	tokenEnv       = "TEND_API_TOKEN"
)

// GetAPIToken returns the bearer token that protects the HTTP API. The
// TEND_API_TOKEN environment variable wins; otherwise the token is read
// from the OS keyring, generated and stored there on first run.
func GetAPIToken() (string, error) {
	if t := os.Getenv(tokenEnv); t != "" {
		return t, nil
	}

	t, err := keyring.Get(keyringService, keyringAccount)
	if err == nil && t != "" {
		return t, nil
	}
	if err != nil && !errors.Is(err, keyring.ErrNotFound) {
		return "", fmt.Errorf("reading API token from keyring: %w", err)
	}

	t, err = generateToken()
	if err != nil {
		return "", err
	}
	if err := keyring.Set(keyringService, keyringAccount, t); err != nil {
		return "", fmt.Errorf("storing API token in keyring (set %s to bypass): %w", tokenEnv, err)
	}
	return t, nil
}

func generateToken() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generating API token: %w", err)
	}
	return hex.EncodeToString(buf), nil
}
