package yolo

import (
	"image"
	"image/color"
	"math"
	"testing"
)

func TestAnchorCount(t *testing.T) {
	tests := []struct {
		size     int
		expected int
	}{
		{640, 8400},
		{320, 2100},
		{32, 21},
	}

	for _, tt := range tests {
		if got := AnchorCount(tt.size); got != tt.expected {
			t.Errorf("AnchorCount(%d) = %d, expected %d", tt.size, got, tt.expected)
		}
	}
}

func TestFillCHW(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 8, 4))
	for y := 0; y < 4; y++ {
		for x := 0; x < 8; x++ {
			img.Set(x, y, color.RGBA{R: 255, G: 0, B: 51, A: 255})
		}
	}

	size := 4
	dst := make([]float32, 3*size*size)
	scaleX, scaleY, err := FillCHW(img, dst, size)
	if err != nil {
		t.Fatalf("FillCHW failed: %v", err)
	}

	if scaleX != 2 || scaleY != 1 {
		t.Errorf("Expected scales 2/1, got %v/%v", scaleX, scaleY)
	}

	plane := size * size
	checks := []struct {
		name     string
		got      float32
		expected float64
	}{
		{"red", dst[0], 1},
		{"green", dst[plane], 0},
		{"blue", dst[2*plane], 0.2},
	}
	for _, c := range checks {
		if math.Abs(float64(c.got)-c.expected) > 0.01 {
			t.Errorf("Expected %s plane value %v, got %v", c.name, c.expected, c.got)
		}
	}
}

func TestFillCHW_Errors(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 4, 4))
	if _, _, err := FillCHW(img, make([]float32, 10), 4); err == nil {
		t.Error("Expected error for short buffer")
	}

	empty := image.NewRGBA(image.Rect(0, 0, 0, 0))
	if _, _, err := FillCHW(empty, make([]float32, 48), 4); err == nil {
		t.Error("Expected error for empty image")
	}
}
