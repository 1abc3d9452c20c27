package video

import (
	"image"

	"golang.org/x/image/draw"
)

func (o options) scaled(size image.Point) image.Point {
	if o.scaleNum == o.scaleDen {
		return size
	}
	return image.Pt(
		max(1, size.X*o.scaleNum/o.scaleDen),
		max(1, size.Y*o.scaleNum/o.scaleDen),
	)
}

func (o options) scale(img image.Image) image.Image {
	if o.scaleNum == o.scaleDen {
		return img
	}
	dst := image.NewRGBA(image.Rectangle{Max: o.scaled(img.Bounds().Size())})
	draw.ApproxBiLinear.Scale(dst, dst.Bounds(), img, img.Bounds(), draw.Src, nil)
	return dst
}
