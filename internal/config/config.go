package config

import (
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

type Config struct {
	Port        int
	CORSOrigins []string

	CameraSource  string // "device" or "udp"
	CameraDevice  string
	CameraUDPPort int
	CameraName    string

	ModelBackend        string // "gocv" or "onnx"
	ModelPath           string
	LabelsPath          string
	ClassNames          []string
	ModelInputSize      int
	InferenceConfidence float64 // cutoff passed to the model itself
	NMSThreshold        float64
	ONNXLibraryPath     string

	TargetLabel      string
	ReportConfidence float64 // cutoff for the reported flag

	ShowWindow     bool
	StreamInterval int // send every Nth frame to viewers

	ImageDirectory        string
	SnapshotBufferLimit   int
	SnapshotFlushInterval int
	DatabasePath          string

	LogDirectory string
	LogLevel     string
}

func Load() *Config {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Printf("Warning: could not load .env file: %v", err)
	}

	return &Config{
		Port:        getEnvAsInt("PORT", 5000),
		CORSOrigins: getEnvAsList("CORS_ORIGINS", []string{"http://localhost:3000"}),

		CameraSource:  getEnv("CAMERA_SOURCE", "device"),
		CameraDevice:  getEnv("CAMERA_DEVICE", "0"),
		CameraUDPPort: getEnvAsInt("CAMERA_UDP_PORT", 9000),
		CameraName:    getEnv("CAMERA_NAME", "webcam"),

		ModelBackend:        getEnv("MODEL_BACKEND", "gocv"),
		ModelPath:           getEnv("MODEL_PATH", filepath.Join(".", "models", "crosswalk.onnx")),
		LabelsPath:          getEnv("LABELS_PATH", ""),
		ClassNames:          getEnvAsList("CLASS_NAMES", []string{"crosswalk"}),
		ModelInputSize:      getEnvAsInt("MODEL_INPUT_SIZE", 640),
		InferenceConfidence: getEnvAsFloat("INFERENCE_CONFIDENCE", 0.90),
		NMSThreshold:        getEnvAsFloat("NMS_THRESHOLD", 0.45),
		ONNXLibraryPath:     getEnv("ONNX_LIBRARY_PATH", ""),

		TargetLabel:      getEnv("TARGET_LABEL", "crosswalk"),
		ReportConfidence: getEnvAsFloat("REPORT_CONFIDENCE", 0.80),

		ShowWindow:     getEnvAsBool("SHOW_WINDOW", false),
		StreamInterval: getEnvAsInt("STREAM_INTERVAL", 3),

		ImageDirectory:        getEnv("IMAGE_DIR", filepath.Join(".", "images")),
		SnapshotBufferLimit:   getEnvAsInt("SNAPSHOT_BUFFER_LIMIT", 10),
		SnapshotFlushInterval: getEnvAsInt("SNAPSHOT_FLUSH_INTERVAL", 30),
		DatabasePath:          getEnv("DATABASE_PATH", filepath.Join(".", "safestep.db")),

		LogDirectory: getEnv("LOG_DIR", filepath.Join(".", "logs")),
		LogLevel:     getEnv("LOG_LEVEL", "info"),
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

func getEnvAsFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

// getEnvAsList splits a comma separated value, dropping empty entries.
func getEnvAsList(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	var items []string
	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			items = append(items, item)
		}
	}
	if len(items) == 0 {
		return defaultValue
	}
	return items
}
