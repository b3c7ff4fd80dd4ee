package report

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	_ "image/gif"
	"image/jpeg"
	_ "image/png"
	"math"
	"os"

	_ "golang.org/x/image/bmp"
	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp"
)

const (
	// Largest embedded picture, in points: 4in x 3in.
	maxImageWidthPt  = 4 * 72
	maxImageHeightPt = 3 * 72
	jpegQuality      = 85
	mmPerPoint       = 25.4 / 72
)

type preparedImage struct {
	jpeg   []byte
	width  float64 // points
	height float64 // points
}

func (p preparedImage) widthMM() float64  { return p.width * mmPerPoint }
func (p preparedImage) heightMM() float64 { return p.height * mmPerPoint }

// prepareImage decodes the file at p, flattens it onto white, scales it down
// to the embed box without enlarging, and re-encodes it as JPEG.
func prepareImage(p string) (preparedImage, error) {
	f, err := os.Open(p)
	if err != nil {
		return preparedImage{}, fmt.Errorf("open image: %w", err)
	}
	defer f.Close()

	src, _, err := image.Decode(f)
	if err != nil {
		return preparedImage{}, fmt.Errorf("decode image %s: %w", p, err)
	}
	return encodeImage(src)
}

func encodeImage(src image.Image) (preparedImage, error) {
	b := src.Bounds()
	w, h := float64(b.Dx()), float64(b.Dy())
	if w == 0 || h == 0 {
		return preparedImage{}, fmt.Errorf("empty image")
	}

	ratio := math.Min(1, math.Min(maxImageWidthPt/w, maxImageHeightPt/h))
	nw := int(math.Max(1, math.Round(w*ratio)))
	nh := int(math.Max(1, math.Round(h*ratio)))

	dst := image.NewRGBA(image.Rect(0, 0, nw, nh))
	draw.Draw(dst, dst.Bounds(), image.NewUniform(color.White), image.Point{}, draw.Src)
	if ratio < 1 {
		draw.CatmullRom.Scale(dst, dst.Bounds(), src, b, draw.Over, nil)
	} else {
		draw.Draw(dst, dst.Bounds(), src, b.Min, draw.Over)
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, dst, &jpeg.Options{Quality: jpegQuality}); err != nil {
		return preparedImage{}, fmt.Errorf("encode jpeg: %w", err)
	}
	return preparedImage{jpeg: buf.Bytes(), width: float64(nw), height: float64(nh)}, nil
}
