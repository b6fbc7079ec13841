// Package vision classifies product photos into scene categories using an
// OpenAI-compatible multimodal model, with a keyword fallback when no model
// is configured.
package vision

import (
	"errors"
	"fmt"

	"restager/imaging"
)

var (
	ErrEmptyImage = errors.New("vision: empty image data")
)

// maxVisionEdge bounds the longest side of images sent to the model.
// Full-resolution product photos waste tokens without improving the
// category answer.
const maxVisionEdge = 768

// visionJPEGQuality is plenty for classification.
const visionJPEGQuality = 85

// PrepareImage downscales and re-encodes an image for a vision request.
// Images already within bounds are only re-encoded.
func PrepareImage(data []byte) ([]byte, error) {
	if len(data) == 0 {
		return nil, ErrEmptyImage
	}
	img, err := imaging.Decode(data)
	if err != nil {
		return nil, fmt.Errorf("vision: decode image: %w", err)
	}

	bounds := img.Bounds()
	width, height := bounds.Dx(), bounds.Dy()
	longest := width
	if height > longest {
		longest = height
	}
	if longest > maxVisionEdge {
		scale := float64(maxVisionEdge) / float64(longest)
		width = int(float64(width)*scale + 0.5)
		height = int(float64(height)*scale + 0.5)
		if width < 1 {
			width = 1
		}
		if height < 1 {
			height = 1
		}
		img = imaging.Resize(imaging.ToRGBA(img), width, height)
	}

	return imaging.EncodeJPEG(img, visionJPEGQuality)
}
