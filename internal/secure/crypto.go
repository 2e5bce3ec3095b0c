// Package secure holds the crypto used around the merchant API: symmetric
// protection of the cached access token and RSA verification of legacy
// callback signatures.
package secure

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"io"
	"strings"
)

// DecryptError marks a corrupt or incompatible token blob.
type DecryptError struct {
	Reason string
}

func (e *DecryptError) Error() string {
	return "token blob decrypt failed: " + e.Reason
}

// DeriveKey hashes a platform-wide secret into a 256-bit symmetric key. The
// raw secret itself is never used as the key.
func DeriveKey(secret string) []byte {
	sum := sha256.Sum256([]byte(secret))
	return sum[:]
}

// EncryptToken encrypts plaintext with AES-256-CBC under key and serializes
// the result as base64(base64(ciphertext) + "::" + iv). A fresh random IV is
// generated on every call.
func EncryptToken(plaintext string, key []byte) (string, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return "", err
	}
	iv := make([]byte, aes.BlockSize)
	if _, err := io.ReadFull(rand.Reader, iv); err != nil {
		return "", fmt.Errorf("generate iv: %w", err)
	}
	padded := pkcs7Pad([]byte(plaintext), aes.BlockSize)
	ct := make([]byte, len(padded))
	cipher.NewCBCEncrypter(block, iv).CryptBlocks(ct, padded)

	inner := base64.StdEncoding.EncodeToString(ct)
	blob := append([]byte(inner), []byte("::")...)
	blob = append(blob, iv...)
	return base64.StdEncoding.EncodeToString(blob), nil
}

// DecryptToken is the inverse of EncryptToken.
func DecryptToken(blob string, key []byte) (string, error) {
	raw, err := base64.StdEncoding.DecodeString(blob)
	if err != nil {
		return "", &DecryptError{Reason: "not base64"}
	}
	parts := strings.SplitN(string(raw), "::", 2)
	if len(parts) != 2 {
		return "", &DecryptError{Reason: "missing iv separator"}
	}
	ct, err := base64.StdEncoding.DecodeString(parts[0])
	if err != nil {
		return "", &DecryptError{Reason: "ciphertext not base64"}
	}
	iv := []byte(parts[1])
	if len(iv) != aes.BlockSize {
		return "", &DecryptError{Reason: "bad iv length"}
	}
	if len(ct) == 0 || len(ct)%aes.BlockSize != 0 {
		return "", &DecryptError{Reason: "bad ciphertext length"}
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return "", err
	}
	pt := make([]byte, len(ct))
	cipher.NewCBCDecrypter(block, iv).CryptBlocks(pt, ct)
	pt, err = pkcs7Unpad(pt, aes.BlockSize)
	if err != nil {
		return "", &DecryptError{Reason: err.Error()}
	}
	return string(pt), nil
}

func pkcs7Pad(b []byte, size int) []byte {
	n := size - len(b)%size
	pad := make([]byte, n)
	for i := range pad {
		pad[i] = byte(n)
	}
	return append(b, pad...)
}

func pkcs7Unpad(b []byte, size int) ([]byte, error) {
	if len(b) == 0 || len(b)%size != 0 {
		return nil, fmt.Errorf("bad padded length")
	}
	n := int(b[len(b)-1])
	if n == 0 || n > size || n > len(b) {
		return nil, fmt.Errorf("bad padding")
	}
	for _, c := range b[len(b)-n:] {
		if int(c) != n {
			return nil, fmt.Errorf("bad padding")
		}
	}
	return b[:len(b)-n], nil
}
