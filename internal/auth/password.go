package auth

import (
	"errors"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

var (
	ErrInvalidEditorKey  = errors.New("invalid editor key")
	ErrEditorKeyTooShort = errors.New("editor key must be at least 12 characters")
)

const (
	minEditorKeyLength = 12
	bcryptCost         = 12
)

// HashEditorKey creates the bcrypt hash stored in EDITOR_KEY_HASH.
func HashEditorKey(key string) (string, error) {
	if len(key) < minEditorKeyLength {
		return "", ErrEditorKeyTooShort
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(key), bcryptCost)
	if err != nil {
		return "", err
	}

	return string(hash), nil
}

// EditorKeyVerifier checks question submissions against a bcrypt hash.
type EditorKeyVerifier struct {
	hash []byte
}

// NewEditorKeyVerifier returns nil when hash is empty, which leaves
// submissions open.
func NewEditorKeyVerifier(hash string) *EditorKeyVerifier {
	hash = strings.TrimSpace(hash)
	if hash == "" {
		return nil
	}
	return &EditorKeyVerifier{hash: []byte(hash)}
}

// VerifyEditorKey reports ErrInvalidEditorKey unless key matches the hash.
func (v *EditorKeyVerifier) VerifyEditorKey(key string) error {
	if key == "" {
		return ErrInvalidEditorKey
	}
	if err := bcrypt.CompareHashAndPassword(v.hash, []byte(key)); err != nil {
		return ErrInvalidEditorKey
	}
	return nil
}
