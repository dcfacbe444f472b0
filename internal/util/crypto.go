package util

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"sync"

	"golang.org/x/crypto/pbkdf2"
)

const (
	kdfRounds = 100_000
	keyLength = 32
)

// kdfSalt is fixed so the key is derived once per secret; uniqueness of
// every ciphertext comes from the random nonce.
var kdfSalt = []byte("finora/aes-gcm/v1")

var ErrCipherTooShort = errors.New("ciphertext too short")

// aeads caches one AEAD per secret, keyed by the secret's SHA-256.
var aeads sync.Map

// deriveKey stretches the configured secret into an AES-256 key.
func deriveKey(secret string) []byte {
	return pbkdf2.Key([]byte(secret), kdfSalt, kdfRounds, keyLength, sha256.New)
}

func cipherFor(secret string) (cipher.AEAD, error) {
	id := sha256.Sum256([]byte(secret))
	if v, ok := aeads.Load(id); ok {
		return v.(cipher.AEAD), nil
	}

	block, err := aes.NewCipher(deriveKey(secret))
	if err != nil {
		return nil, fmt.Errorf("new cipher: %w", err)
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("new gcm: %w", err)
	}
	v, _ := aeads.LoadOrStore(id, aead)
	return v.(cipher.AEAD), nil
}

// EncryptAES seals plaintext with AES-256-GCM. The output layout is
// nonce || ciphertext with a random nonce per call.
func EncryptAES(secret string, plaintext []byte) ([]byte, error) {
	aead, err := cipherFor(secret)
	if err != nil {
		return nil, err
	}

	nonce := make([]byte, aead.NonceSize(), aead.NonceSize()+len(plaintext)+aead.Overhead())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, fmt.Errorf("nonce: %w", err)
	}
	return aead.Seal(nonce, nonce, plaintext, nil), nil
}

// DecryptAES reverses EncryptAES.
func DecryptAES(secret string, data []byte) ([]byte, error) {
	aead, err := cipherFor(secret)
	if err != nil {
		return nil, err
	}
	ns := aead.NonceSize()
	if len(data) < ns+aead.Overhead() {
		return nil, ErrCipherTooShort
	}
	nonce, ciphertext := data[:ns], data[ns:]

	plaintext, err := aead.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, fmt.Errorf("decrypt: %w", err)
	}
	return plaintext, nil
}

// EncryptString is EncryptAES for short text columns, base64 encoded.
func EncryptString(secret, s string) (string, error) {
	enc, err := EncryptAES(secret, []byte(s))
	if err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(enc), nil
}

// DecryptString reverses EncryptString.
func DecryptString(secret, s string) (string, error) {
	raw, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return "", fmt.Errorf("decode: %w", err)
	}
	plain, err := DecryptAES(secret, raw)
	if err != nil {
		return "", err
	}
	return string(plain), nil
}
