package config

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	for _, key := range []string{"PORT", "DEBUG", "MODEL_PATH", "MODEL_SESSIONS", "MAX_UPLOAD_BYTES", "MAX_IMAGE_PIXELS", "HISTORY_DB"} {
		t.Setenv(key, "")
	}

	cfg := Load()
	require.Equal(t, 5000, cfg.Port)
	require.False(t, cfg.Debug)
	require.Equal(t, "best_yolo_for_mask_detection.onnx", cfg.ModelPath)
	require.Equal(t, 2, cfg.ModelSessions)
	require.Equal(t, int64(16<<20), cfg.MaxUploadBytes)
	require.Equal(t, int64(178956970), cfg.MaxImagePixels)
	require.Empty(t, cfg.HistoryDB)
	require.NotEmpty(t, cfg.OnnxRuntimeLib)
}

func TestLoad_FromEnv(t *testing.T) {
	t.Setenv("PORT", "8081")
	t.Setenv("DEBUG", "TRUE")
	t.Setenv("CONF_THRESHOLD", "0.4")
	t.Setenv("MODEL_SESSIONS", "not-a-number")
	t.Setenv("MAX_IMAGE_PIXELS", "1000000")

	cfg := Load()
	require.Equal(t, 8081, cfg.Port)
	require.True(t, cfg.Debug)
	require.InDelta(t, 0.4, cfg.ConfThreshold, 1e-6)
	require.Equal(t, 2, cfg.ModelSessions)
	require.Equal(t, int64(1000000), cfg.MaxImagePixels)
}

func TestGetEnvAsBool(t *testing.T) {
	t.Setenv("FLAG", "yes")
	require.False(t, getEnvAsBool("FLAG", true))
	t.Setenv("FLAG", "")
	require.True(t, getEnvAsBool("FLAG", true))
}
