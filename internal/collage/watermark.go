package collage

import (
	"fmt"
	"image"
	"image/color"
	"sync"

	"github.com/golang/freetype"
	"github.com/golang/freetype/truetype"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/goregular"
)

var (
	fontOnce sync.Once
	goFont   *truetype.Font
	fontErr  error
)

func watermarkFont() (*truetype.Font, error) {
	fontOnce.Do(func() {
		goFont, fontErr = truetype.Parse(goregular.TTF)
	})
	return goFont, fontErr
}

// drawWatermark stamps text in the lower-left corner, scaled to the canvas.
func drawWatermark(dst *image.NRGBA, text string) error {
	f, err := watermarkFont()
	if err != nil {
		return fmt.Errorf("parse font: %w", err)
	}

	b := dst.Bounds()
	size := float64(b.Dy()) / 20
	if size < 10 {
		size = 10
	}
	margin := int(size / 2)

	ctx := freetype.NewContext()
	ctx.SetDPI(72)
	ctx.SetFont(f)
	ctx.SetFontSize(size)
	ctx.SetClip(b)
	ctx.SetDst(dst)
	ctx.SetSrc(image.NewUniform(color.NRGBA{A: 0x80}))
	ctx.SetHinting(font.HintingNone)

	pt := freetype.Pt(b.Min.X+margin, b.Max.Y-margin)
	if _, err := ctx.DrawString(text, pt); err != nil {
		return fmt.Errorf("draw watermark: %w", err)
	}
	return nil
}
