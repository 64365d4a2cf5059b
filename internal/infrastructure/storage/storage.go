// Package storage provides the attachment object store: disk-backed
// buckets with time-limited HMAC-signed download URLs. The durable
// reference persisted on a task is always the public URL; signed URLs are
// derived on demand and expire.
package storage

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/weekplan/core/internal/infrastructure/config"
)

var (
	ErrInvalidSignature = errors.New("invalid or expired signature")
	ErrInvalidPath      = errors.New("invalid object path")
)

// Store is a disk-backed object store.
type Store struct {
	root    string
	baseURL string
	secret  []byte
	now     func() time.Time
}

// New creates a store rooted at cfg.Root.
func New(cfg config.StorageConfig) (*Store, error) {
	if err := os.MkdirAll(cfg.Root, 0o755); err != nil {
		return nil, fmt.Errorf("create storage root: %w", err)
	}
	return &Store{
		root:    cfg.Root,
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		secret:  []byte(cfg.SigningSecret),
		now:     time.Now,
	}, nil
}

// Upload writes the object and returns its public URL, the durable
// reference callers persist.
func (s *Store) Upload(ctx context.Context, bucket, path string, data []byte) (string, error) {
	full, err := s.objectPath(bucket, path)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return "", fmt.Errorf("create object dir: %w", err)
	}
	if err := os.WriteFile(full, data, 0o644); err != nil {
		return "", fmt.Errorf("write object: %w", err)
	}
	return s.PublicURL(bucket, path), nil
}

// PublicURL returns the durable reference for an object. It is not
// directly fetchable; downloads go through a signed URL.
func (s *Store) PublicURL(bucket, path string) string {
	return fmt.Sprintf("%s/%s/%s", s.baseURL, bucket, path)
}

// SignedURL derives a time-limited download link for an object. The token
// covers bucket, path and expiry, so neither can be swapped after signing.
func (s *Store) SignedURL(bucket, path string, ttl time.Duration) (string, error) {
	if _, err := s.objectPath(bucket, path); err != nil {
		return "", err
	}
	expires := s.now().Add(ttl).Unix()
	sig := s.sign(bucket, path, expires)
	return fmt.Sprintf("%s/%s/%s?expires=%d&signature=%s",
		s.baseURL, bucket, path, expires, url.QueryEscape(sig)), nil
}

// Verify checks a signed download request. Returns ErrInvalidSignature
// for a bad token or a past expiry.
func (s *Store) Verify(bucket, path string, expires int64, signature string) error {
	if s.now().Unix() > expires {
		return ErrInvalidSignature
	}
	expected := s.sign(bucket, path, expires)
	if !hmac.Equal([]byte(expected), []byte(signature)) {
		return ErrInvalidSignature
	}
	return nil
}

// Open reads an object for a verified download.
func (s *Store) Open(bucket, path string) ([]byte, error) {
	full, err := s.objectPath(bucket, path)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(full)
	if err != nil {
		return nil, fmt.Errorf("read object: %w", err)
	}
	return data, nil
}

// Remove deletes objects. Missing objects are not an error.
func (s *Store) Remove(ctx context.Context, bucket string, paths []string) error {
	for _, p := range paths {
		full, err := s.objectPath(bucket, p)
		if err != nil {
			return err
		}
		if err := os.Remove(full); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("remove object: %w", err)
		}
	}
	return nil
}

// StripBase extracts the bucket-relative object path from a durable
// reference, mirroring how the client peels the bucket prefix off a
// stored URL before requesting a signed link.
func (s *Store) StripBase(reference, bucket string) (string, bool) {
	marker := bucket + "/"
	idx := strings.LastIndex(reference, marker)
	if idx < 0 {
		return "", false
	}
	rest := reference[idx+len(marker):]
	if rest == "" {
		return "", false
	}
	return rest, true
}

func (s *Store) sign(bucket, path string, expires int64) string {
	mac := hmac.New(sha256.New, s.secret)
	mac.Write([]byte(bucket + "\x00" + path + "\x00" + strconv.FormatInt(expires, 10)))
	return base64.RawURLEncoding.EncodeToString(mac.Sum(nil))
}

func (s *Store) objectPath(bucket, path string) (string, error) {
	if bucket == "" || path == "" {
		return "", ErrInvalidPath
	}
	// Checked on the raw path; Clean would silently swallow leading ..
	// segments against the anchored root.
	for _, seg := range strings.Split(path, "/") {
		if seg == ".." {
			return "", ErrInvalidPath
		}
	}
	return filepath.Join(s.root, bucket, filepath.Clean("/"+path)), nil
}
