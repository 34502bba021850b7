package logging

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"
)

func TestNew_Levels(t *testing.T) {
	require.Equal(t, logrus.InfoLevel, New(false, "").GetLevel())
	require.Equal(t, logrus.DebugLevel, New(true, "").GetLevel())
}

func TestNew_WritesToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "server.log")
	log := New(false, path)
	log.WithField("endpoint", "/detect").Info("Model loaded successfully")

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Contains(t, string(data), "Model loaded successfully")
	require.Contains(t, string(data), "endpoint=/detect")
}

func TestNew_UnwritableFileFallsBackToStdout(t *testing.T) {
	log := New(false, filepath.Join(t.TempDir(), "missing", "server.log"))
	require.Equal(t, os.Stdout, log.Out)
}
