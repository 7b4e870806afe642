package object

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"io"
	"path"
	"strings"
)

var (
	ErrNotFound   = errors.New("object not found")
	ErrInvalidKey = errors.New("invalid storage key")
)

// Store saves and retrieves binary objects by key.
type Store interface {
	Put(ctx context.Context, key string, contentType string, r io.Reader) (sizeBytes int64, err error)
	Open(ctx context.Context, key string) (io.ReadCloser, error)
}

// ResumeKey is the storage key of the original resume file behind an
// analysis. Candidate ids are hashed so keys never carry raw identities.
func ResumeKey(candidateID, analysisID, fileName string) string {
	name := strings.TrimSpace(fileName)
	if name == "" {
		name = "resume"
	}
	sum := sha256.Sum256([]byte(candidateID))
	return path.Join("resumes", hex.EncodeToString(sum[:]), analysisID, name)
}

// CleanKey normalizes key and rejects absolute or escaping paths.
func CleanKey(key string) (string, error) {
	clean := path.Clean(strings.ReplaceAll(strings.TrimSpace(key), "\\", "/"))
	if clean == "." || clean == ".." || strings.HasPrefix(clean, "../") || path.IsAbs(clean) {
		return "", ErrInvalidKey
	}
	return clean, nil
}
