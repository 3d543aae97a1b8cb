package testutil

import (
	"fmt"
	"os"
	"testing"
)

// RequireTestEnvironment fails the test immediately unless GO_ENV=test.
// It backs up the package-level gate for suites that touch the database,
// so a misconfigured run stops before any data is written.
func RequireTestEnvironment(t *testing.T) {
	t.Helper()

	env := os.Getenv("GO_ENV")
	if env != "test" {
		t.Fatalf("SAFETY CHECK FAILED: Tests must run with GO_ENV=test to prevent data loss. Current GO_ENV=%q. Set GO_ENV=test before running tests.", env)
	}
}

// GateTestEnvironment is the TestMain body for test packages. It refuses to
// run the package at all unless GO_ENV=test, then runs the tests and exits
// with their result.
func GateTestEnvironment(m *testing.M) {
	env := os.Getenv("GO_ENV")
	if env != "test" {
		fmt.Fprintf(os.Stderr, "\nSAFETY CHECK FAILED: tests must run with GO_ENV=test to prevent data loss.\nCurrent GO_ENV: %q\nRun them as: GO_ENV=test go test ./...\n\n", env)
		os.Exit(1)
	}

	os.Exit(m.Run())
}
