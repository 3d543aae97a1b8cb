package services

import (
	"fmt"
	"mime/multipart"
	"strings"

	"github.com/hastdu/hastdu-api/config"
	"github.com/hastdu/hastdu-api/utils"
)

// ImageService handles ad and avatar image upload, URL resolution and deletion
type ImageService interface {
	// UploadImage validates and uploads an image file, returns the storage key
	UploadImage(fileHeader *multipart.FileHeader) (string, error)

	// GetImageURL generates a URL for accessing an uploaded image
	GetImageURL(imageKey string) (string, error)

	// DeleteImage removes an image from storage
	DeleteImage(imageKey string) error
}

// S3ImageService implements ImageService on top of the object store.
// With PUBLIC_IMAGE_URL set (public-read bucket), URLs are plain and
// permanent; otherwise presigned URLs are generated.
type S3ImageService struct {
	s3Service      S3Interface
	publicImageURL string
}

var imageServiceInstance ImageService

// InitImageService initializes the image service with the S3 backend
func InitImageService(s3Service S3Interface) ImageService {
	publicURL := ""
	if cfg := config.GetConfig(); cfg != nil {
		publicURL = cfg.PublicImageURL
	}
	imageServiceInstance = &S3ImageService{
		s3Service:      s3Service,
		publicImageURL: publicURL,
	}
	return imageServiceInstance
}

// GetImageService returns the initialized image service instance
func GetImageService() ImageService {
	return imageServiceInstance
}

// SetImageService sets the image service instance (primarily for testing)
func SetImageService(service ImageService) {
	imageServiceInstance = service
}

// UploadImage validates and uploads an image file
func (s *S3ImageService) UploadImage(fileHeader *multipart.FileHeader) (string, error) {
	// Validate the image file
	if err := utils.ValidateImageFile(fileHeader); err != nil {
		return "", err
	}

	key, err := s.s3Service.UploadFile(fileHeader)
	if err != nil {
		return "", fmt.Errorf("failed to upload image: %w", err)
	}

	return key, nil
}

// GetImageURL resolves the URL for an uploaded image
func (s *S3ImageService) GetImageURL(imageKey string) (string, error) {
	if imageKey == "" {
		return "", nil
	}

	if s.publicImageURL != "" {
		return strings.TrimRight(s.publicImageURL, "/") + "/" + imageKey, nil
	}

	url, err := s.s3Service.GetPresignedURL(imageKey)
	if err != nil {
		return "", fmt.Errorf("failed to generate image URL: %w", err)
	}

	return url, nil
}

// DeleteImage deletes an image from storage
func (s *S3ImageService) DeleteImage(imageKey string) error {
	if imageKey == "" {
		return nil
	}

	if err := s.s3Service.DeleteFile(imageKey); err != nil {
		return fmt.Errorf("failed to delete image: %w", err)
	}

	return nil
}
