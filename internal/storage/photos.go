package storage

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"portraitlab/internal/domain"
)

// PhotoStore serves customer pet photos and style reference images from a
// read-only directory. Photo IDs are relative file keys.
type PhotoStore struct {
	basePath string
}

// NewPhotoStore initializes a PhotoStore rooted at basePath.
func NewPhotoStore(basePath string) (*PhotoStore, error) {
	basePath = strings.TrimSpace(basePath)
	if basePath == "" {
		return nil, errors.New("storage: photo path is required")
	}
	return &PhotoStore{basePath: basePath}, nil
}

// FetchPhoto loads the photo bytes and MIME type for the given ID.
func (s *PhotoStore) FetchPhoto(ctx context.Context, photoID string) ([]byte, string, error) {
	if s == nil {
		return nil, "", errors.New("storage: no photo store configured")
	}
	if err := ctx.Err(); err != nil {
		return nil, "", err
	}
	cleanKey, err := sanitizeKey(photoID)
	if err != nil {
		return nil, "", err
	}
	data, err := os.ReadFile(filepath.Join(s.basePath, filepath.FromSlash(cleanKey)))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, "", fmt.Errorf("photo %q: %w", photoID, domain.ErrNotFound)
		}
		return nil, "", fmt.Errorf("storage: read photo: %w", err)
	}
	return data, photoMIME(cleanKey), nil
}

func photoMIME(key string) string {
	switch strings.ToLower(filepath.Ext(key)) {
	case ".jpg", ".jpeg":
		return "image/jpeg"
	case ".webp":
		return "image/webp"
	default:
		return "image/png"
	}
}

var _ domain.PhotoStore = (*PhotoStore)(nil)
