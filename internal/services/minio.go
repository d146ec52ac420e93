package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"path"
	"strings"

	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"
)

// MaxImageSize borne la taille d'une image produit (5 Mo)
const MaxImageSize = 5 << 20

var (
	ErrStorageUnavailable = errors.New("MinIO non initialisé")
	ErrUnsupportedImage   = errors.New("format d'image non supporté")
	ErrImageTooLarge      = errors.New("image trop volumineuse")
	ErrForeignImage       = errors.New("image hors du bucket")
)

var imageExtensions = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/webp": ".webp",
}

// ImageStore range les images produit dans un bucket MinIO
type ImageStore struct {
	client  *minio.Client
	bucket  string
	baseURL string
}

func NewImageStore(client *minio.Client, bucket string, useSSL bool) *ImageStore {
	s := &ImageStore{client: client, bucket: bucket}
	if client != nil {
		scheme := "http"
		if useSSL {
			scheme = "https"
		}
		s.baseURL = fmt.Sprintf("%s://%s/%s/", scheme, client.EndpointURL().Host, bucket)
	}
	return s
}

func (s *ImageStore) Enabled() bool {
	return s != nil && s.client != nil
}

// ObjectName génère une clé unique products/<uuid><ext> selon le type MIME
func ObjectName(contentType string) (string, error) {
	ext, ok := imageExtensions[strings.ToLower(strings.TrimSpace(contentType))]
	if !ok {
		return "", ErrUnsupportedImage
	}
	return path.Join("products", uuid.NewString()+ext), nil
}

// Upload envoie l'image et retourne son URL publique
func (s *ImageStore) Upload(ctx context.Context, r io.Reader, size int64, contentType string) (string, error) {
	if !s.Enabled() {
		return "", ErrStorageUnavailable
	}
	if size > MaxImageSize {
		return "", ErrImageTooLarge
	}
	key, err := ObjectName(contentType)
	if err != nil {
		return "", err
	}

	_, err = s.client.PutObject(ctx, s.bucket, key, r, size,
		minio.PutObjectOptions{ContentType: contentType})
	if err != nil {
		return "", fmt.Errorf("upload MinIO: %w", err)
	}
	log.Printf("🖼️ Image envoyée : %s", key)
	return s.baseURL + key, nil
}

// Delete supprime l'objet désigné par une URL produite par Upload
func (s *ImageStore) Delete(ctx context.Context, objectURL string) error {
	if !s.Enabled() {
		return ErrStorageUnavailable
	}
	key, err := s.KeyFromURL(objectURL)
	if err != nil {
		return err
	}
	if err := s.client.RemoveObject(ctx, s.bucket, key, minio.RemoveObjectOptions{}); err != nil {
		return fmt.Errorf("suppression MinIO: %w", err)
	}
	return nil
}

// KeyFromURL retrouve la clé d'objet à partir de l'URL publique
func (s *ImageStore) KeyFromURL(objectURL string) (string, error) {
	if s.baseURL == "" || !strings.HasPrefix(objectURL, s.baseURL) {
		return "", ErrForeignImage
	}
	key := strings.TrimPrefix(objectURL, s.baseURL)
	if key == "" {
		return "", ErrForeignImage
	}
	return key, nil
}
