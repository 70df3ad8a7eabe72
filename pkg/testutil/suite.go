package testutil

import (
	"context"
	"os"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
)

// WorkspaceSuite gives a test suite one temporary directory and one
// context shared by all of its tests
type WorkspaceSuite struct {
	suite.Suite
	ctx     context.Context
	cancel  context.CancelFunc
	tempDir string
}

// SetupSuite runs before all tests in the suite
func (s *WorkspaceSuite) SetupSuite() {
	s.ctx, s.cancel = context.WithTimeout(context.Background(), 5*time.Minute)

	tempDir, err := os.MkdirTemp("", "jsonc-test-*")
	require.NoError(s.T(), err)
	s.tempDir = tempDir
}

// TearDownSuite runs after all tests in the suite
func (s *WorkspaceSuite) TearDownSuite() {
	s.cancel()
	if s.tempDir != "" {
		os.RemoveAll(s.tempDir)
	}
}

// Context returns the suite context
func (s *WorkspaceSuite) Context() context.Context {
	return s.ctx
}

// TempDir returns the suite's temporary directory
func (s *WorkspaceSuite) TempDir() string {
	return s.tempDir
}

// WriteNDJSON writes records into the suite directory
func (s *WorkspaceSuite) WriteNDJSON(name string, records ...interface{}) string {
	return WriteNDJSON(s.T(), s.tempDir, name, records...)
}
