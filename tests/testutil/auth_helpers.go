package testutil

import (
	"github.com/auth0/go-jwt-middleware/v2/validator"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/hastdu/hastdu-api/config"
	"github.com/hastdu/hastdu-api/middleware"
	"github.com/hastdu/hastdu-api/services"
)

// TestJWTConfig returns the token configuration used across the test suites.
// The same values must go into config.SetConfig so issued tokens validate.
func TestJWTConfig() *config.Config {
	return &config.Config{
		GoEnv:            "test",
		JWTSecret:        "test-secret-key-for-signing",
		JWTIssuer:        "https://hastdu.at/",
		JWTAudience:      "hastdu-api",
		MaxMessageLength: 2000,
	}
}

// IssueTestToken creates a real signed token for the given user, valid
// against middleware.EnsureValidToken configured with TestJWTConfig
func IssueTestToken(userID uuid.UUID, role string) (string, error) {
	return services.NewTokenService(TestJWTConfig()).IssueToken(userID, role)
}

// MockValidatedClaims creates a mock ValidatedClaims for testing
func MockValidatedClaims(subject, issuer, role string) *validator.ValidatedClaims {
	return &validator.ValidatedClaims{
		RegisteredClaims: validator.RegisteredClaims{
			Issuer:  issuer,
			Subject: subject,
		},
		CustomClaims: &middleware.CustomClaims{
			Role: role,
		},
	}
}

// SetMockAuthContext sets up a mock authenticated context for testing
func SetMockAuthContext(c *gin.Context, userID, issuer, role string) {
	claims := MockValidatedClaims(userID, issuer, role)
	c.Set("user_id", userID)
	c.Set("validated_claims", claims)
}

// CreateTestContext creates a test Gin context
func CreateTestContext() (*gin.Context, *gin.Engine) {
	gin.SetMode(gin.TestMode)
	c, engine := gin.CreateTestContext(nil)
	return c, engine
}
