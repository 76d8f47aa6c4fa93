// Package secrets implements the deterministic authenticated encryption
// used for secret storage and export.
//
// Scheme aes-gcm-hkdf-det/v1: the passphrase is expanded with HKDF-SHA256
// into an AES-256 key and a nonce key; the GCM nonce is synthesized as
// HMAC-SHA256(nonceKey, plaintext)[:12]. Same key and plaintext always
// produce the same ciphertext, which keeps export CIDs stable, and the
// nonce never repeats across distinct plaintexts.
package secrets

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"io"

	"golang.org/x/crypto/hkdf"
)

// Scheme is the encryption scheme identifier recorded in export payloads.
const Scheme = "aes-gcm-hkdf-det/v1"

const nonceSize = 12

// ErrDecrypt is returned for any decryption failure: wrong key, truncated
// or tampered ciphertext. Callers must not distinguish the cases.
var ErrDecrypt = errors.New("invalid decryption key for secrets")

// hkdf salt, fixed for the scheme. Changing it is a scheme version bump.
var salt = []byte("cidhub/secrets/v1")

func deriveKeys(passphrase string) (encKey, nonceKey []byte, err error) {
	r := hkdf.New(sha256.New, []byte(passphrase), salt, nil)
	buf := make([]byte, 64)
	if _, err := io.ReadFull(r, buf); err != nil {
		return nil, nil, err
	}
	return buf[:32], buf[32:], nil
}

// Encrypt seals plaintext with the passphrase-derived key and returns a
// base64 token.
func Encrypt(plaintext, passphrase string) (string, error) {
	encKey, nonceKey, err := deriveKeys(passphrase)
	if err != nil {
		return "", err
	}

	block, err := aes.NewCipher(encKey)
	if err != nil {
		return "", err
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return "", err
	}

	mac := hmac.New(sha256.New, nonceKey)
	mac.Write([]byte(plaintext))
	nonce := mac.Sum(nil)[:nonceSize]

	sealed := gcm.Seal(nil, nonce, []byte(plaintext), nil)
	return base64.StdEncoding.EncodeToString(append(nonce, sealed...)), nil
}

// Decrypt opens a token produced by Encrypt.
func Decrypt(token, passphrase string) (string, error) {
	raw, err := base64.StdEncoding.DecodeString(token)
	if err != nil {
		return "", ErrDecrypt
	}
	if len(raw) < nonceSize {
		return "", ErrDecrypt
	}

	encKey, _, err := deriveKeys(passphrase)
	if err != nil {
		return "", err
	}
	block, err := aes.NewCipher(encKey)
	if err != nil {
		return "", err
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return "", err
	}

	plaintext, err := gcm.Open(nil, raw[:nonceSize], raw[nonceSize:], nil)
	if err != nil {
		return "", ErrDecrypt
	}
	return string(plaintext), nil
}
