package security

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/crypto/nacl/secretbox"

	"github.com/JumajiCa/ChatDVC/internal/logger"
)

const (
	keySize   = 32
	nonceSize = 24
)

var ErrDecrypt = errors.New("credential could not be decrypted")

// CredentialCipher seals third-party passwords at rest with NaCl secretbox.
// Ciphertexts are base64url(nonce || box).
type CredentialCipher struct {
	key [keySize]byte
}

func NewCredentialCipher(key []byte) (*CredentialCipher, error) {
	if len(key) != keySize {
		return nil, fmt.Errorf("credential key must be %d bytes, got %d", keySize, len(key))
	}
	c := &CredentialCipher{}
	copy(c.key[:], key)
	return c, nil
}

// LoadCredentialCipher uses encodedKey (base64) when set. Otherwise the key
// is read from keyFile, which is generated on first run.
func LoadCredentialCipher(encodedKey, keyFile string) (*CredentialCipher, error) {
	if encodedKey != "" {
		key, err := decodeKey(encodedKey)
		if err != nil {
			return nil, fmt.Errorf("invalid CREDENTIALS_KEY: %w", err)
		}
		return NewCredentialCipher(key)
	}

	data, err := os.ReadFile(keyFile)
	if err == nil {
		key, err := decodeKey(strings.TrimSpace(string(data)))
		if err != nil {
			return nil, fmt.Errorf("invalid key file %s: %w", keyFile, err)
		}
		return NewCredentialCipher(key)
	}
	if !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to read key file: %w", err)
	}

	key := make([]byte, keySize)
	if _, err := io.ReadFull(rand.Reader, key); err != nil {
		return nil, fmt.Errorf("failed to generate credential key: %w", err)
	}
	logger.Logger.WithField("key_file", keyFile).Warn("CREDENTIALS_KEY not set, generated a new key file")
	if err := os.WriteFile(keyFile, []byte(base64.StdEncoding.EncodeToString(key)), 0o600); err != nil {
		logger.Logger.WithError(err).Error("failed to save credential key; stored passwords will not survive a restart")
	}
	return NewCredentialCipher(key)
}

func decodeKey(s string) ([]byte, error) {
	if key, err := base64.StdEncoding.DecodeString(s); err == nil {
		return key, nil
	}
	return base64.URLEncoding.DecodeString(s)
}

func (c *CredentialCipher) Encrypt(plaintext string) (string, error) {
	if plaintext == "" {
		return "", nil
	}
	var nonce [nonceSize]byte
	if _, err := io.ReadFull(rand.Reader, nonce[:]); err != nil {
		return "", fmt.Errorf("failed to generate nonce: %w", err)
	}
	sealed := secretbox.Seal(nonce[:], []byte(plaintext), &nonce, &c.key)
	return base64.URLEncoding.EncodeToString(sealed), nil
}

func (c *CredentialCipher) Decrypt(ciphertext string) (string, error) {
	if ciphertext == "" {
		return "", nil
	}
	raw, err := base64.URLEncoding.DecodeString(ciphertext)
	if err != nil || len(raw) < nonceSize+secretbox.Overhead {
		return "", ErrDecrypt
	}
	var nonce [nonceSize]byte
	copy(nonce[:], raw[:nonceSize])
	plain, ok := secretbox.Open(nil, raw[nonceSize:], &nonce, &c.key)
	if !ok {
		return "", ErrDecrypt
	}
	return string(plain), nil
}
