package collage

import (
	"context"
	"image"
	"io"

	"github.com/disintegration/imaging"
	"go.uber.org/zap"
)

// OpenFunc opens a stored image by its media path.
type OpenFunc func(ctx context.Context, path string) (io.ReadCloser, error)

// Load decodes every path in order. Images that cannot be opened or decoded
// are logged and skipped.
func Load(ctx context.Context, open OpenFunc, paths []string, log *zap.Logger) []image.Image {
	images := make([]image.Image, 0, len(paths))
	for _, p := range paths {
		img, err := decode(ctx, open, p)
		if err != nil {
			log.Warn("skipping collage source", zap.String("path", p), zap.Error(err))
			continue
		}
		images = append(images, img)
	}
	return images
}

func decode(ctx context.Context, open OpenFunc, path string) (image.Image, error) {
	rc, err := open(ctx, path)
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return imaging.Decode(rc, imaging.AutoOrientation(true))
}
