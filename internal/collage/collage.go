// Package collage tiles album photos into a near-square grid image.
package collage

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/disintegration/imaging"

	"photoalbum/internal/models"
)

var (
	ErrNoPhotos = errors.New("no photos in album to generate collage")
	ErrNoImages = errors.New("no decodable images")
)

type Options struct {
	CellSize   int
	Background color.Color
	Format     imaging.Format
	Watermark  string
}

func DefaultOptions() Options {
	return Options{
		CellSize:   300,
		Background: color.White,
		Format:     imaging.JPEG,
	}
}

// OptionsFromConfig translates collage settings from the service config.
func OptionsFromConfig(cfg *models.Config) (Options, error) {
	const op = "collage.OptionsFromConfig"

	bg, err := ParseColor(cfg.CollageBackground)
	if err != nil {
		return Options{}, fmt.Errorf("%s: %w", op, err)
	}
	format, err := ParseFormat(cfg.CollageFormat)
	if err != nil {
		return Options{}, fmt.Errorf("%s: %w", op, err)
	}
	return Options{
		CellSize:   cfg.CollageCellSize,
		Background: bg,
		Format:     format,
		Watermark:  cfg.WatermarkText,
	}, nil
}

// Grid returns the column and row count for n cells.
func Grid(n int) (cols, rows int) {
	if n <= 0 {
		return 0, 0
	}
	cols = int(math.Ceil(math.Sqrt(float64(n))))
	rows = (n + cols - 1) / cols
	return cols, rows
}

// Select prefers favorited photos and falls back to the whole album.
func Select(photos []models.Photo) ([]models.Photo, error) {
	if len(photos) == 0 {
		return nil, ErrNoPhotos
	}
	var favorites []models.Photo
	for _, p := range photos {
		if p.IsFavorite {
			favorites = append(favorites, p)
		}
	}
	if len(favorites) > 0 {
		return favorites, nil
	}
	return photos, nil
}

// Build pastes every image, resized to a CellSize square, onto a blank
// canvas left-to-right, top-to-bottom.
func Build(images []image.Image, opts Options) (*image.NRGBA, error) {
	const op = "collage.Build"

	if len(images) == 0 {
		return nil, fmt.Errorf("%s: %w", op, ErrNoImages)
	}
	if opts.CellSize <= 0 {
		return nil, fmt.Errorf("%s: invalid cell size %d", op, opts.CellSize)
	}
	bg := opts.Background
	if bg == nil {
		bg = color.White
	}

	cell := opts.CellSize
	cols, rows := Grid(len(images))
	canvas := imaging.New(cols*cell, rows*cell, bg)

	for i, src := range images {
		thumb := imaging.Resize(src, cell, cell, imaging.Lanczos)
		pt := image.Pt((i%cols)*cell, (i/cols)*cell)
		canvas = imaging.Paste(canvas, thumb, pt)
	}

	if opts.Watermark != "" {
		if err := drawWatermark(canvas, opts.Watermark); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
	}
	return canvas, nil
}

func Encode(w io.Writer, img image.Image, format imaging.Format) error {
	const op = "collage.Encode"
	if err := imaging.Encode(w, img, format, imaging.JPEGQuality(90)); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// Extension returns the file extension, without a dot, for format.
func Extension(format imaging.Format) string {
	if format == imaging.PNG {
		return "png"
	}
	return "jpg"
}

func ContentType(format imaging.Format) string {
	if format == imaging.PNG {
		return "image/png"
	}
	return "image/jpeg"
}

func ParseFormat(s string) (imaging.Format, error) {
	switch strings.ToLower(s) {
	case "", "jpeg", "jpg":
		return imaging.JPEG, nil
	case "png":
		return imaging.PNG, nil
	}
	return 0, fmt.Errorf("unsupported collage format %q", s)
}

// ParseColor accepts "white", "black" or a #rrggbb hex value.
func ParseColor(s string) (color.Color, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "white":
		return color.White, nil
	case "black":
		return color.Black, nil
	}

	hex := strings.TrimPrefix(strings.TrimSpace(s), "#")
	if len(hex) != 6 {
		return nil, fmt.Errorf("invalid color %q", s)
	}
	v, err := strconv.ParseUint(hex, 16, 32)
	if err != nil {
		return nil, fmt.Errorf("invalid color %q", s)
	}
	return color.NRGBA{R: uint8(v >> 16), G: uint8(v >> 8), B: uint8(v), A: 0xff}, nil
}
