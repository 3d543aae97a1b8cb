package integration

import (
	"bytes"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/hastdu/hastdu-api/config"
	"github.com/hastdu/hastdu-api/controllers"
	"github.com/hastdu/hastdu-api/models"
	"github.com/hastdu/hastdu-api/services"
	"github.com/hastdu/hastdu-api/tests/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/suite"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// ImagePipelineIntegrationTestSuite exercises the real S3ImageService
// composed over the mock object store: upload through the avatar endpoint,
// URL resolution in both presigned and public-bucket mode, and deletion.
type ImagePipelineIntegrationTestSuite struct {
	suite.Suite
	router *gin.Engine
	db     *gorm.DB
	mockS3 *services.MockS3Service
	user   *models.User
}

// SetupSuite runs once before all tests
func (suite *ImagePipelineIntegrationTestSuite) SetupSuite() {
	gin.SetMode(gin.TestMode)
	testutil.RequireTestEnvironment(suite.T())
}

// SetupTest runs before each test with a fresh database and object store
func (suite *ImagePipelineIntegrationTestSuite) SetupTest() {
	config.SetConfig(testutil.TestJWTConfig())

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	suite.NoError(err)
	suite.NoError(db.AutoMigrate(&models.User{}))
	suite.db = db
	config.SetDB(db)

	// Real image service over the mock store
	suite.mockS3 = services.NewMockS3Service()
	suite.mockS3.SetAsMockForTesting()
	services.InitImageService(suite.mockS3)

	user := &models.User{Email: "avatar@example.com", PasswordHash: "x", Name: "Avatar User"}
	suite.NoError(db.Create(user).Error)
	suite.user = user

	router := gin.New()
	v1 := router.Group("/api/v1")
	{
		v1.POST("/users/me/avatar", suite.mockAuthMiddleware(user.ID.String(), "user"), controllers.UploadAvatar)
	}
	suite.router = router
}

// TearDownTest runs after each test
func (suite *ImagePipelineIntegrationTestSuite) TearDownTest() {
	suite.mockS3.Clear()
}

// mockAuthMiddleware simulates authentication for testing
func (suite *ImagePipelineIntegrationTestSuite) mockAuthMiddleware(userID, role string) gin.HandlerFunc {
	return func(c *gin.Context) {
		testutil.SetMockAuthContext(c, userID, "https://hastdu.at/", role)
		c.Next()
	}
}

// uploadAvatar posts a multipart avatar upload and returns the recorder
func (suite *ImagePipelineIntegrationTestSuite) uploadAvatar(filename string, content []byte) *httptest.ResponseRecorder {
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	part, err := writer.CreateFormFile("avatar", filename)
	suite.NoError(err)
	_, err = part.Write(content)
	suite.NoError(err)
	suite.NoError(writer.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/users/me/avatar", body)
	req.Header.Set("Content-Type", writer.FormDataContentType())

	w := httptest.NewRecorder()
	suite.router.ServeHTTP(w, req)
	return w
}

func (suite *ImagePipelineIntegrationTestSuite) parse(w *httptest.ResponseRecorder) map[string]interface{} {
	var response map[string]interface{}
	suite.NoError(json.Unmarshal(w.Body.Bytes(), &response))
	return response
}

// TestAvatarUploadThroughObjectStore uploads through the endpoint and
// verifies the file landed in the store with a presigned URL
func (suite *ImagePipelineIntegrationTestSuite) TestAvatarUploadThroughObjectStore() {
	t := suite.T()

	content := []byte("fake PNG file content")
	w := suite.uploadAvatar("me.png", content)
	assert.Equal(t, http.StatusOK, w.Code)

	response := suite.parse(w)
	assert.True(t, response["success"].(bool))
	avatarURL := response["data"].(map[string]interface{})["avatar_url"].(string)
	assert.Contains(t, avatarURL, "uploads/mock_me.png")
	assert.Contains(t, avatarURL, "mock=true")

	// The store holds exactly the uploaded bytes
	assert.True(t, suite.mockS3.FileExists("uploads/mock_me.png"))
	files := suite.mockS3.GetUploadedFiles()
	assert.Len(t, files, 1)
	assert.Equal(t, content, files["uploads/mock_me.png"])

	// The user row records both the key and the resolved URL
	var updated models.User
	suite.NoError(suite.db.First(&updated, "id = ?", suite.user.ID).Error)
	assert.Equal(t, "uploads/mock_me.png", updated.AvatarKey)
	assert.Equal(t, avatarURL, updated.AvatarURL)
}

// TestAvatarReplacementDeletesOldObject verifies the previous avatar is
// removed from the store when a new one is uploaded
func (suite *ImagePipelineIntegrationTestSuite) TestAvatarReplacementDeletesOldObject() {
	t := suite.T()

	w := suite.uploadAvatar("one.png", []byte("first"))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.True(t, suite.mockS3.FileExists("uploads/mock_one.png"))

	w = suite.uploadAvatar("two.png", []byte("second"))
	assert.Equal(t, http.StatusOK, w.Code)

	assert.True(t, suite.mockS3.FileExists("uploads/mock_two.png"))
	assert.False(t, suite.mockS3.FileExists("uploads/mock_one.png"), "replaced avatar should be deleted from the store")
}

// TestPublicBucketURLMode verifies that with PUBLIC_IMAGE_URL configured the
// service builds plain URLs instead of presigning
func (suite *ImagePipelineIntegrationTestSuite) TestPublicBucketURLMode() {
	t := suite.T()

	cfg := config.GetConfig()
	cfg.PublicImageURL = "https://images.hastdu.at/"
	services.InitImageService(suite.mockS3)

	w := suite.uploadAvatar("pub.png", []byte("public content"))
	assert.Equal(t, http.StatusOK, w.Code)

	response := suite.parse(w)
	avatarURL := response["data"].(map[string]interface{})["avatar_url"].(string)
	assert.Equal(t, "https://images.hastdu.at/uploads/mock_pub.png", avatarURL)
}

// TestRejectedFileNeverReachesStore verifies validation runs before upload
func (suite *ImagePipelineIntegrationTestSuite) TestRejectedFileNeverReachesStore() {
	t := suite.T()

	w := suite.uploadAvatar("animation.gif", []byte("GIF89a"))
	assert.Equal(t, http.StatusBadRequest, w.Code)

	response := suite.parse(w)
	assert.False(t, response["success"].(bool))
	errorData := response["error"].(map[string]interface{})
	assert.Equal(t, "UPLOAD_FAILED", errorData["code"])

	assert.Empty(t, suite.mockS3.GetUploadedFiles())
}

// TestPresignedURLRequiresStoredObject verifies the presign path surfaces an
// error for keys the store does not hold
func (suite *ImagePipelineIntegrationTestSuite) TestPresignedURLRequiresStoredObject() {
	t := suite.T()

	imageService := services.GetImageService()

	url, err := imageService.GetImageURL("")
	assert.NoError(t, err)
	assert.Empty(t, url)

	_, err = imageService.GetImageURL("uploads/mock_gone.png")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), fmt.Sprintf("file not found in mock S3: %s", "uploads/mock_gone.png"))
}

// TestImagePipelineIntegrationTestSuite runs the test suite
func TestImagePipelineIntegrationTestSuite(t *testing.T) {
	suite.Run(t, new(ImagePipelineIntegrationTestSuite))
}
