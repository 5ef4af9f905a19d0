// Package secret handles reversible encryption of stored bot credentials.
package secret

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"io"

	"golang.org/x/crypto/pbkdf2"
)

const (
	keyIterations = 4096
	keyLength     = 32
)

// keySalt is fixed: credentials are only ever decrypted by this process,
// key rotation happens by re-encrypting with a new passphrase.
var keySalt = []byte("botpanel-token-v1")

// Cipher encrypts and decrypts bot credentials with AES-256-GCM, deriving
// the key from an operator-supplied passphrase.
type Cipher struct {
	key []byte
}

// NewCipher derives the AES key from the given passphrase.
func NewCipher(passphrase string) *Cipher {
	return &Cipher{
		key: pbkdf2.Key([]byte(passphrase), keySalt, keyIterations, keyLength, sha256.New),
	}
}

// Encrypt seals plaintext and returns base64(nonce || ciphertext).
func (c *Cipher) Encrypt(plaintext string) (string, error) {
	block, err := aes.NewCipher(c.key)
	if err != nil {
		return "", err
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return "", err
	}
	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", err
	}
	sealed := gcm.Seal(nonce, nonce, []byte(plaintext), nil)
	return base64.StdEncoding.EncodeToString(sealed), nil
}

// Decrypt reverses Encrypt. Any failure returns the input unchanged rather
// than an error: callers validate the result with ValidBotToken instead of
// trusting the decrypt boundary.
func (c *Cipher) Decrypt(ciphertext string) string {
	raw, err := base64.StdEncoding.DecodeString(ciphertext)
	if err != nil {
		return ciphertext
	}
	block, err := aes.NewCipher(c.key)
	if err != nil {
		return ciphertext
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return ciphertext
	}
	if len(raw) < gcm.NonceSize() {
		return ciphertext
	}
	nonce, sealed := raw[:gcm.NonceSize()], raw[gcm.NonceSize():]
	plaintext, err := gcm.Open(nil, nonce, sealed, nil)
	if err != nil {
		return ciphertext
	}
	return string(plaintext)
}
