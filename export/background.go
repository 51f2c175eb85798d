package export

import (
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"os"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/webp"
)

// LoadBackground decodes a background image. PNG, JPEG, GIF, BMP and WebP
// are supported.
func LoadBackground(path string) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	img, format, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("failed to decode background %s: %w", path, err)
	}
	tracer().Debugf("background %s: %s %v", path, format, img.Bounds())
	return img, nil
}
