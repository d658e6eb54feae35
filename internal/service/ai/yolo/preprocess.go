package yolo

import (
	"fmt"
	"image"

	"github.com/nfnt/resize"
)

// strides of the three YOLOv8 detection heads.
var strides = []int{8, 16, 32}

// AnchorCount returns the number of predictions a YOLOv8 head emits for a
// square input of the given size (8400 for 640).
func AnchorCount(inputSize int) int {
	total := 0
	for _, s := range strides {
		n := inputSize / s
		total += n * n
	}
	return total
}

// FillCHW resizes img to size x size and writes it into dst as planar RGB
// scaled to [0, 1]. It returns the scale factors that map model input pixels
// back to img pixels.
func FillCHW(img image.Image, dst []float32, size int) (float32, float32, error) {
	if len(dst) < 3*size*size {
		return 0, 0, fmt.Errorf("input buffer too small: %d < %d", len(dst), 3*size*size)
	}

	bounds := img.Bounds()
	if bounds.Empty() {
		return 0, 0, fmt.Errorf("empty image")
	}

	resized := resize.Resize(uint(size), uint(size), img, resize.Bilinear)
	plane := size * size
	rb := resized.Bounds()

	idx := 0
	for y := 0; y < size; y++ {
		for x := 0; x < size; x++ {
			r, g, b, _ := resized.At(rb.Min.X+x, rb.Min.Y+y).RGBA()
			dst[idx] = float32(r>>8) / 255.0
			dst[idx+plane] = float32(g>>8) / 255.0
			dst[idx+2*plane] = float32(b>>8) / 255.0
			idx++
		}
	}

	scaleX := float32(bounds.Dx()) / float32(size)
	scaleY := float32(bounds.Dy()) / float32(size)
	return scaleX, scaleY, nil
}
