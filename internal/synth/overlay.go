package synth

import (
	"image"
	"image/color"

	"github.com/suyashkumar/dicom/pkg/frame"
	"golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

// drawLabel burns text into the centre of a 16-bit frame, white on a black
// outline, scaled to about half the frame width.
func drawLabel(nativeFrame *frame.NativeFrame[uint16], width, height int, text string) {
	face := basicfont.Face7x13
	baseWidth := font.MeasureString(face, text).Ceil()
	baseHeight := 13
	if baseWidth == 0 {
		return
	}

	textImg := image.NewGray(image.Rect(0, 0, baseWidth, baseHeight))
	drawer := &font.Drawer{
		Dst:  textImg,
		Src:  image.NewUniform(color.Gray{Y: 255}),
		Face: face,
		Dot:  fixed.Point26_6{Y: fixed.I(11)},
	}
	drawer.DrawString(text)

	scale := float64(width) * 0.5 / float64(baseWidth)
	if scale < 1 {
		scale = 1
	}
	scaledWidth := int(float64(baseWidth) * scale)
	scaledHeight := int(float64(baseHeight) * scale)
	scaled := image.NewGray(image.Rect(0, 0, scaledWidth, scaledHeight))
	draw.NearestNeighbor.Scale(scaled, scaled.Bounds(), textImg, textImg.Bounds(), draw.Src, nil)

	x0 := (width - scaledWidth) / 2
	y0 := (height - scaledHeight) / 2
	outline := max(1, scaledHeight/12)

	set := func(x, y int, v uint16) {
		if x >= 0 && x < width && y >= 0 && y < height {
			nativeFrame.RawData[y*width+x] = v
		}
	}

	for sy := 0; sy < scaledHeight; sy++ {
		for sx := 0; sx < scaledWidth; sx++ {
			if scaled.GrayAt(sx, sy).Y == 0 {
				continue
			}
			for dy := -outline; dy <= outline; dy++ {
				for dx := -outline; dx <= outline; dx++ {
					set(x0+sx+dx, y0+sy+dy, 0)
				}
			}
		}
	}
	for sy := 0; sy < scaledHeight; sy++ {
		for sx := 0; sx < scaledWidth; sx++ {
			if v := scaled.GrayAt(sx, sy).Y; v > 0 {
				set(x0+sx, y0+sy, uint16(v)<<8|uint16(v))
			}
		}
	}
}
