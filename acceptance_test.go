package main

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

// TestServerStartup verifies the full router can be built
func TestServerStartup(t *testing.T) {
	router := newTestApp(t)
	assert.NotNil(t, router, "Router should be initialized")
}

// TestAPIHealthEndpointAcceptance runs the health check against a live test
// server, the way a real client would
func TestAPIHealthEndpointAcceptance(t *testing.T) {
	router := newTestApp(t)

	server := httptest.NewServer(router)
	defer server.Close()

	resp, err := http.Get(server.URL + "/api/v1/health")
	assert.NoError(t, err, "Should be able to reach the server")
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode, "Health endpoint should return 200 OK")

	body, err := io.ReadAll(resp.Body)
	assert.NoError(t, err)

	var response struct {
		Success bool   `json:"success"`
		Message string `json:"message"`
	}
	err = json.Unmarshal(body, &response)
	assert.NoError(t, err, "Response should be valid JSON")
	assert.True(t, response.Success)
	assert.Equal(t, "hastdu API is running", response.Message)
}
