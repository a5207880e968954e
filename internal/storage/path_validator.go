package storage

import (
	"fmt"
	"net/http"
	"path/filepath"
	"strings"
	"unicode"

	"forum-backend/pkg/apierror"
)

// PathValidator maps object keys onto files below a root directory.
type PathValidator struct {
	rootAbs string
}

func NewPathValidator(root string) (*PathValidator, error) {
	if strings.TrimSpace(root) == "" {
		return nil, fmt.Errorf("root path cannot be empty")
	}

	rootAbs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolve storage root: %w", err)
	}

	return &PathValidator{rootAbs: rootAbs}, nil
}

func (v *PathValidator) RootAbs() string {
	return v.rootAbs
}

// ValidateKey rejects keys that are empty, absolute, or able to escape the root.
func ValidateKey(key string) error {
	if strings.TrimSpace(key) == "" {
		return apierror.New("INVALID_KEY", "object key cannot be empty", key, http.StatusBadRequest)
	}

	if strings.ContainsRune(key, 0) || hasControlCharacters(key) || strings.Contains(key, `\`) {
		return apierror.New("INVALID_KEY", "object key contains invalid characters", key, http.StatusBadRequest)
	}

	if strings.HasPrefix(key, "/") {
		return apierror.New("INVALID_KEY", "object key must be relative", key, http.StatusBadRequest)
	}

	for _, segment := range strings.Split(key, "/") {
		if segment == "" || segment == "." || segment == ".." {
			return apierror.New("PATH_TRAVERSAL", "object key has an invalid segment", key, http.StatusForbidden)
		}
	}

	return nil
}

// ResolveKey returns the absolute file path for key.
func (v *PathValidator) ResolveKey(key string) (string, error) {
	if err := ValidateKey(key); err != nil {
		return "", err
	}

	resolvedAbs, err := filepath.Abs(filepath.Join(v.rootAbs, filepath.FromSlash(key)))
	if err != nil {
		return "", fmt.Errorf("resolve absolute path: %w", err)
	}

	if !isWithinRoot(v.rootAbs, resolvedAbs) || resolvedAbs == v.rootAbs {
		return "", apierror.New("PATH_TRAVERSAL", "resolved path is outside storage root", key, http.StatusForbidden)
	}

	return resolvedAbs, nil
}

func hasControlCharacters(value string) bool {
	for _, char := range value {
		if unicode.IsControl(char) {
			return true
		}
	}

	return false
}

func isWithinRoot(rootAbs string, candidateAbs string) bool {
	if candidateAbs == rootAbs {
		return true
	}

	rootWithSeparator := rootAbs + string(filepath.Separator)
	return strings.HasPrefix(candidateAbs, rootWithSeparator)
}
