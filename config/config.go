package config

import (
	"os"
	"runtime"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

const (
	DefaultMaxUploadBytes = 16 << 20
	// DefaultMaxImagePixels is Pillow's decompression bomb limit.
	DefaultMaxImagePixels = 178956970
)

type Config struct {
	Port              int
	Debug             bool
	ModelPath         string
	FallbackModelPath string
	ClassNamesFile    string
	OnnxRuntimeLib    string
	ModelSessions     int
	ConfThreshold     float32
	IouThreshold      float32
	MaxUploadBytes    int64
	MaxImagePixels    int64
	HistoryDB         string // empty disables the detection history
	LogFile           string
}

// Load reads the configuration from the environment, after applying a .env
// file if one exists in the working directory.
func Load() *Config {
	_ = godotenv.Load()

	return &Config{
		Port:              getEnvAsInt("PORT", 5000),
		Debug:             getEnvAsBool("DEBUG", false),
		ModelPath:         getEnv("MODEL_PATH", "best_yolo_for_mask_detection.onnx"),
		FallbackModelPath: getEnv("FALLBACK_MODEL_PATH", "yolov8n.onnx"),
		ClassNamesFile:    getEnv("CLASS_NAMES_FILE", ""),
		OnnxRuntimeLib:    getEnv("ONNXRUNTIME_LIB", defaultSharedLibPath()),
		ModelSessions:     getEnvAsInt("MODEL_SESSIONS", 2),
		ConfThreshold:     getEnvAsFloat32("CONF_THRESHOLD", 0.25),
		IouThreshold:      getEnvAsFloat32("IOU_THRESHOLD", 0.7),
		MaxUploadBytes:    getEnvAsInt64("MAX_UPLOAD_BYTES", DefaultMaxUploadBytes),
		MaxImagePixels:    getEnvAsInt64("MAX_IMAGE_PIXELS", DefaultMaxImagePixels),
		HistoryDB:         getEnv("HISTORY_DB", ""),
		LogFile:           getEnv("LOG_FILE", ""),
	}
}

func defaultSharedLibPath() string {
	switch runtime.GOOS {
	case "windows":
		return "./third_party/onnxruntime.dll"
	case "darwin":
		if runtime.GOARCH == "arm64" {
			return "./third_party/onnxruntime_arm64.dylib"
		}
		return "./third_party/onnxruntime.dylib"
	default:
		if runtime.GOARCH == "arm64" {
			return "./third_party/onnxruntime_arm64.so"
		}
		return "./third_party/onnxruntime.so"
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvAsInt64(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.ParseInt(value, 10, 64); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvAsFloat32(key string, defaultValue float32) float32 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 32); err == nil {
			return float32(f)
		}
	}
	return defaultValue
}

// getEnvAsBool only treats "true" (any case) as true, like the Flask service did.
func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		return strings.EqualFold(value, "true")
	}
	return defaultValue
}
