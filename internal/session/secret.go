package session

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"

	"github.com/erazemk/knjiznica/internal/kv"
)

// SecretKey is the backend key holding the cookie signing secret.
const SecretKey = "settings/session_secret"

// LoadSecret retrieves the signing secret from the backend.
// If no secret exists, it generates one, stores it, and returns it.
func LoadSecret(ctx context.Context, backend kv.Backend) (string, error) {
	raw, err := backend.Get(ctx, SecretKey)
	if err == nil && len(raw) > 0 {
		return string(raw), nil
	}
	if err != nil && !errors.Is(err, kv.ErrNotFound) {
		return "", fmt.Errorf("querying session secret: %w", err)
	}

	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generating session secret: %w", err)
	}
	secret := hex.EncodeToString(buf)

	if err := backend.Put(ctx, SecretKey, []byte(secret)); err != nil {
		return "", fmt.Errorf("storing session secret: %w", err)
	}
	return secret, nil
}
