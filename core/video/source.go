// Package video turns a looping avatar clip into frames for the display.
//
// A [Source] decodes frames on demand from an animated GIF or a directory of
// still images. A [Decoder] keeps a bounded [FrameBuffer] topped up in the
// background so that a frame is ready the moment the avatar starts talking.
package video

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/image/draw"
)

const DefaultFrameRate = 25.0

var (
	// ErrEndOfMedia is returned by NextFrame after the last frame. Rewind
	// starts over.
	ErrEndOfMedia = errors.New("end of media")
	// ErrMediaUnavailable means the clip is missing or cannot be decoded.
	ErrMediaUnavailable = errors.New("media unavailable")
)

// Source is a seekable, decodable frame stream.
type Source interface {
	// Size is the frame size after scaling.
	Size() image.Point
	// FPS is the native frame rate of the clip.
	FPS() float64
	NextFrame() (image.Image, error)
	Rewind() error
	Close() error
}

type options struct {
	scaleNum, scaleDen int
	frameRate          float64
}

type Option func(*options)

// WithScale resizes every frame by num/den, e.g. WithScale(1, 3) for a third
// of the original size.
func WithScale(num, den int) Option {
	return func(o *options) {
		if num > 0 && den > 0 {
			o.scaleNum, o.scaleDen = num, den
		}
	}
}

// WithFrameRate overrides the frame rate. Image sequences have no native
// rate and use [DefaultFrameRate] unless this is set.
func WithFrameRate(fps float64) Option {
	return func(o *options) {
		if fps > 0 {
			o.frameRate = fps
		}
	}
}

func newOptions(opts []Option) options {
	o := options{scaleNum: 1, scaleDen: 1}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// Open picks a Source implementation for path: a directory is read as an
// image sequence, a .gif file as an animated GIF and any other image file as
// a single-frame clip.
func Open(path string, opts ...Option) (Source, error) {
	o := newOptions(opts)

	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMediaUnavailable, err)
	}

	var source Source
	switch {
	case info.IsDir():
		source, err = openSequence(path, o)
	case strings.EqualFold(filepath.Ext(path), ".gif"):
		source, err = openGIF(path, o)
	default:
		source, err = openSequenceFiles([]string{path}, o)
	}
	if err != nil {
		return nil, err
	}
	return source, nil
}

// FirstFrame returns the first frame of the clip, used as the still image
// while the avatar is silent.
func FirstFrame(path string, opts ...Option) (image.Image, error) {
	source, err := Open(path, opts...)
	if err != nil {
		return nil, err
	}
	defer source.Close()

	frame, err := source.NextFrame()
	if err != nil {
		if errors.Is(err, ErrEndOfMedia) {
			return nil, fmt.Errorf("%w: %s has no frames", ErrMediaUnavailable, path)
		}
		return nil, err
	}
	return frame, nil
}

var placeholderColor = color.RGBA{R: 0x2b, G: 0x2b, B: 0x2b, A: 0xff}

// Placeholder is shown instead of the avatar when the clip is unavailable.
func Placeholder(size image.Point) image.Image {
	if size.X <= 0 || size.Y <= 0 {
		size = image.Pt(320, 240)
	}
	img := image.NewRGBA(image.Rectangle{Max: size})
	draw.Draw(img, img.Bounds(), image.NewUniform(placeholderColor), image.Point{}, draw.Src)
	return img
}
