package secure

import (
	"crypto"
	"crypto/rsa"
	"crypto/sha1"
	"crypto/x509"
	"encoding/base64"
	"encoding/pem"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"
)

// KeySource fetches the gateway's public signing key from a pinned URL and
// caches the parsed key for a TTL, refetching on expiry.
type KeySource struct {
	URL string

	http      *http.Client
	mu        sync.RWMutex
	key       *rsa.PublicKey
	lastFetch time.Time
	cacheTTL  time.Duration
}

func NewKeySource(url string) *KeySource {
	return &KeySource{
		URL:      url,
		http:     &http.Client{Timeout: 5 * time.Second},
		cacheTTL: 10 * time.Minute,
	}
}

// NewStaticKeySource wraps an already-parsed key; used by tests and pinned
// deployments.
func NewStaticKeySource(key *rsa.PublicKey) *KeySource {
	return &KeySource{key: key, cacheTTL: time.Duration(1<<62 - 1)}
}

// Verify checks a base64 RSA-SHA1 signature over payload. The boolean is the
// whole contract: any failure, including a transport failure fetching the
// key, yields false. The error carries the loggable detail.
func (k *KeySource) Verify(payload, b64sig string) (bool, error) {
	sig, err := base64.StdEncoding.DecodeString(b64sig)
	if err != nil {
		return false, fmt.Errorf("signature not base64: %w", err)
	}
	pub, err := k.publicKey()
	if err != nil {
		return false, fmt.Errorf("public key unavailable: %w", err)
	}
	if err := VerifySHA1(payload, sig, pub); err != nil {
		return false, err
	}
	return true, nil
}

// VerifySHA1 verifies an RSA PKCS#1 v1.5 signature with a SHA-1 digest.
func VerifySHA1(payload string, sig []byte, pub *rsa.PublicKey) error {
	h := sha1.Sum([]byte(payload))
	if err := rsa.VerifyPKCS1v15(pub, crypto.SHA1, h[:], sig); err != nil {
		return errors.New("bad signature")
	}
	return nil
}

func (k *KeySource) publicKey() (*rsa.PublicKey, error) {
	k.mu.RLock()
	cached := k.key
	stale := time.Since(k.lastFetch) > k.cacheTTL
	k.mu.RUnlock()
	if cached != nil && !stale {
		return cached, nil
	}
	if err := k.fetch(); err != nil {
		if cached != nil {
			// keep serving the last known key when refetch fails
			return cached, nil
		}
		return nil, err
	}
	k.mu.RLock()
	defer k.mu.RUnlock()
	return k.key, nil
}

func (k *KeySource) fetch() error {
	if k.URL == "" {
		return errors.New("public key URL not set")
	}
	req, _ := http.NewRequest(http.MethodGet, k.URL, nil)
	resp, err := k.http.Do(req)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("public key fetch: status %d", resp.StatusCode)
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return err
	}
	pub, err := ParsePublicKeyPEM(body)
	if err != nil {
		return err
	}
	k.mu.Lock()
	k.key = pub
	k.lastFetch = time.Now()
	k.mu.Unlock()
	return nil
}

// ParsePublicKeyPEM parses a PEM-encoded RSA public key in either PKIX or
// PKCS#1 form.
func ParsePublicKeyPEM(data []byte) (*rsa.PublicKey, error) {
	block, _ := pem.Decode(data)
	if block == nil {
		return nil, errors.New("no PEM block in public key")
	}
	if pub, err := x509.ParsePKIXPublicKey(block.Bytes); err == nil {
		rsaPub, ok := pub.(*rsa.PublicKey)
		if !ok {
			return nil, errors.New("public key is not RSA")
		}
		return rsaPub, nil
	}
	return x509.ParsePKCS1PublicKey(block.Bytes)
}
