// Package imaging composes printable PNG labels for signs.
package imaging

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/png"

	"golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"

	"github.com/erazemk/sinalizacao/internal/model"
)

// Label dimensions in pixels.
const (
	LabelWidth  = 600
	LabelHeight = 820
	QRBox       = 360
)

const (
	borderWidth = 16
	frameWidth  = 10
	margin      = 40
)

// Footer is printed at the bottom of every label.
const Footer = "GRUPO NEWCOM - SISTEMAS DE SINALIZAÇÃO TÉCNICA"

var (
	brandGreen = color.RGBA{0x37, 0x56, 0x23, 0xff}
	ink        = color.RGBA{0x11, 0x11, 0x11, 0xff}
	muted      = color.RGBA{0x66, 0x66, 0x66, 0xff}
)

// Filename is the download name of an item's label.
func Filename(it model.Item) string {
	return "ETIQUETA_" + it.Code + ".png"
}

// Label renders a sign label as PNG: description, the framed QR code, code,
// size and shape. code may be any size; it is scaled down to fit QRBox.
func Label(it model.Item, code image.Image) ([]byte, error) {
	if code == nil {
		return nil, fmt.Errorf("rendering label for %s: no qr image", it.Code)
	}
	code = downscale(code, QRBox)

	dst := image.NewRGBA(image.Rect(0, 0, LabelWidth, LabelHeight))
	draw.Draw(dst, dst.Bounds(), image.White, image.Point{}, draw.Src)
	strokeRect(dst, dst.Bounds(), borderWidth, brandGreen)

	cx := LabelWidth / 2
	y := margin + borderWidth
	y += drawText(dst, it.Description, cx, y, 3, brandGreen) + 20

	cb := code.Bounds()
	frame := image.Rect(cx-cb.Dx()/2-frameWidth-10, y, cx+cb.Dx()/2+frameWidth+10, y+cb.Dy()+2*(frameWidth+10))
	strokeRect(dst, frame, frameWidth, brandGreen)
	at := image.Pt(cx-cb.Dx()/2, y+frameWidth+10)
	draw.Draw(dst, image.Rectangle{Min: at, Max: at.Add(cb.Size())}, code, cb.Min, draw.Over)
	y = frame.Max.Y + 24

	y += drawText(dst, "CÓDIGO: "+it.Code, cx, y, 3, ink) + 12
	drawText(dst, "TAMANHO: "+it.Size+" | FORMATO: "+it.Shape, cx, y, 2, ink)
	drawText(dst, Footer, cx, LabelHeight-borderWidth-margin, 1, muted)

	var buf bytes.Buffer
	if err := png.Encode(&buf, dst); err != nil {
		return nil, fmt.Errorf("encoding PNG: %w", err)
	}
	return buf.Bytes(), nil
}

// drawText renders s centered on cx with its top at y, magnified by up to
// scale and shrunk to fit the label. It returns the rendered height.
func drawText(dst *image.RGBA, s string, cx, y, scale int, col color.Color) int {
	face := basicfont.Face7x13
	w := font.MeasureString(face, s).Ceil()
	h := face.Metrics().Height.Ceil()
	if w == 0 {
		return 0
	}
	for scale > 1 && w*scale > LabelWidth-2*(margin+borderWidth) {
		scale--
	}

	src := image.NewRGBA(image.Rect(0, 0, w, h))
	d := font.Drawer{
		Dst:  src,
		Src:  image.NewUniform(col),
		Face: face,
		Dot:  fixed.P(0, face.Metrics().Ascent.Ceil()),
	}
	d.DrawString(s)

	r := image.Rect(cx-w*scale/2, y, cx-w*scale/2+w*scale, y+h*scale)
	draw.NearestNeighbor.Scale(dst, r, src, src.Bounds(), draw.Over, nil)
	return h * scale
}

func strokeRect(dst *image.RGBA, r image.Rectangle, width int, col color.Color) {
	u := image.NewUniform(col)
	draw.Draw(dst, image.Rect(r.Min.X, r.Min.Y, r.Max.X, r.Min.Y+width), u, image.Point{}, draw.Src)
	draw.Draw(dst, image.Rect(r.Min.X, r.Max.Y-width, r.Max.X, r.Max.Y), u, image.Point{}, draw.Src)
	draw.Draw(dst, image.Rect(r.Min.X, r.Min.Y, r.Min.X+width, r.Max.Y), u, image.Point{}, draw.Src)
	draw.Draw(dst, image.Rect(r.Max.X-width, r.Min.Y, r.Max.X, r.Max.Y), u, image.Point{}, draw.Src)
}

// downscale resizes the image so neither dimension exceeds maxDim.
// Uses high-quality Catmull-Rom interpolation.
// Returns the original image if already within bounds.
func downscale(img image.Image, maxDim int) image.Image {
	bounds := img.Bounds()
	w := bounds.Dx()
	h := bounds.Dy()

	if w <= maxDim && h <= maxDim {
		return img
	}

	// Calculate new dimensions preserving aspect ratio.
	newW, newH := w, h
	if w > h {
		newW = maxDim
		newH = int(float64(h) * float64(maxDim) / float64(w))
	} else {
		newH = maxDim
		newW = int(float64(w) * float64(maxDim) / float64(h))
	}

	if newW < 1 {
		newW = 1
	}
	if newH < 1 {
		newH = 1
	}

	dst := image.NewRGBA(image.Rect(0, 0, newW, newH))
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, bounds, draw.Over, nil)
	return dst
}
