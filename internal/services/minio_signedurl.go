package services

import (
	"context"
	"net/url"
	"time"
)

// SignedURL génère une URL de lecture temporaire pour une image du bucket
func (s *ImageStore) SignedURL(ctx context.Context, objectURL string, duration time.Duration) (string, error) {
	if !s.Enabled() {
		return "", ErrStorageUnavailable
	}
	key, err := s.KeyFromURL(objectURL)
	if err != nil {
		return "", err
	}

	presignedURL, err := s.client.PresignedGetObject(ctx, s.bucket, key, duration, make(url.Values))
	if err != nil {
		return "", err
	}
	return presignedURL.String(), nil
}
