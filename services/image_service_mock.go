package services

import (
	"fmt"
	"mime/multipart"
	"sync"

	"github.com/hastdu/hastdu-api/utils"
)

// MockImageService is a mock implementation of ImageService for testing
type MockImageService struct {
	uploadedKeys []string
	deletedKeys  []string
	mu           sync.Mutex

	// UploadError, when set, is returned by UploadImage
	UploadError error
}

// NewMockImageService creates a new mock image service
func NewMockImageService() *MockImageService {
	return &MockImageService{}
}

// SetAsMockForTesting sets this mock as the global image service instance
func (m *MockImageService) SetAsMockForTesting() {
	SetImageService(m)
}

// UploadImage simulates validating and uploading an image
func (m *MockImageService) UploadImage(fileHeader *multipart.FileHeader) (string, error) {
	if m.UploadError != nil {
		return "", m.UploadError
	}

	// Run the real validation so tests cover it
	if err := utils.ValidateImageFile(fileHeader); err != nil {
		return "", err
	}

	key := fmt.Sprintf("uploads/mock_%s", fileHeader.Filename)

	m.mu.Lock()
	m.uploadedKeys = append(m.uploadedKeys, key)
	m.mu.Unlock()

	return key, nil
}

// GetImageURL returns a stable mock URL
func (m *MockImageService) GetImageURL(imageKey string) (string, error) {
	if imageKey == "" {
		return "", nil
	}
	return fmt.Sprintf("https://images.test/%s", imageKey), nil
}

// DeleteImage records the deletion
func (m *MockImageService) DeleteImage(imageKey string) error {
	m.mu.Lock()
	m.deletedKeys = append(m.deletedKeys, imageKey)
	m.mu.Unlock()
	return nil
}

// UploadedKeys returns the keys uploaded so far (for assertions)
func (m *MockImageService) UploadedKeys() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	keys := make([]string, len(m.uploadedKeys))
	copy(keys, m.uploadedKeys)
	return keys
}

// DeletedKeys returns the keys deleted so far (for assertions)
func (m *MockImageService) DeletedKeys() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	keys := make([]string, len(m.deletedKeys))
	copy(keys, m.deletedKeys)
	return keys
}
