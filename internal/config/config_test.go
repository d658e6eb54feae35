package config

import (
	"reflect"
	"testing"
)

func TestLoad_Defaults(t *testing.T) {
	cfg := Load()

	if cfg.Port != 5000 {
		t.Errorf("Expected default port 5000, got %d", cfg.Port)
	}
	if cfg.TargetLabel != "crosswalk" {
		t.Errorf("Expected target label crosswalk, got %s", cfg.TargetLabel)
	}
	if cfg.ReportConfidence != 0.80 {
		t.Errorf("Expected report confidence 0.80, got %v", cfg.ReportConfidence)
	}
	if cfg.InferenceConfidence != 0.90 {
		t.Errorf("Expected inference confidence 0.90, got %v", cfg.InferenceConfidence)
	}
	if !reflect.DeepEqual(cfg.CORSOrigins, []string{"http://localhost:3000"}) {
		t.Errorf("Unexpected CORS origins: %v", cfg.CORSOrigins)
	}
	if cfg.CameraSource != "device" || cfg.CameraDevice != "0" {
		t.Errorf("Expected default camera device 0, got %s/%s", cfg.CameraSource, cfg.CameraDevice)
	}
}

func TestLoad_FromEnvironment(t *testing.T) {
	t.Setenv("PORT", "8081")
	t.Setenv("REPORT_CONFIDENCE", "0.7")
	t.Setenv("SHOW_WINDOW", "true")
	t.Setenv("CLASS_NAMES", "crosswalk, traffic_light ,,stop_sign")
	t.Setenv("MODEL_BACKEND", "onnx")

	cfg := Load()

	if cfg.Port != 8081 {
		t.Errorf("Expected port 8081, got %d", cfg.Port)
	}
	if cfg.ReportConfidence != 0.7 {
		t.Errorf("Expected report confidence 0.7, got %v", cfg.ReportConfidence)
	}
	if !cfg.ShowWindow {
		t.Error("Expected ShowWindow to be true")
	}
	if cfg.ModelBackend != "onnx" {
		t.Errorf("Expected onnx backend, got %s", cfg.ModelBackend)
	}
	expected := []string{"crosswalk", "traffic_light", "stop_sign"}
	if !reflect.DeepEqual(cfg.ClassNames, expected) {
		t.Errorf("Expected class names %v, got %v", expected, cfg.ClassNames)
	}
}

func TestGetEnvHelpers_InvalidValues(t *testing.T) {
	t.Setenv("TEST_INT", "abc")
	t.Setenv("TEST_FLOAT", "1.2.3")
	t.Setenv("TEST_BOOL", "maybe")
	t.Setenv("TEST_LIST", " , ,")

	if got := getEnvAsInt("TEST_INT", 3); got != 3 {
		t.Errorf("getEnvAsInt = %d, expected 3", got)
	}
	if got := getEnvAsFloat("TEST_FLOAT", 0.5); got != 0.5 {
		t.Errorf("getEnvAsFloat = %v, expected 0.5", got)
	}
	if got := getEnvAsBool("TEST_BOOL", true); !got {
		t.Error("getEnvAsBool should fall back to default")
	}
	if got := getEnvAsList("TEST_LIST", []string{"x"}); !reflect.DeepEqual(got, []string{"x"}) {
		t.Errorf("getEnvAsList = %v, expected [x]", got)
	}
}
