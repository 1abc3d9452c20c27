package video

import (
	"fmt"
	"image"
	"image/gif"
	"os"

	"golang.org/x/image/draw"
)

// gifSource holds a fully composited GIF in memory. Talking-head loops are
// short, and compositing needs every previous frame anyway.
type gifSource struct {
	frames []image.Image
	size   image.Point
	fps    float64
	next   int
}

func openGIF(path string, o options) (*gifSource, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMediaUnavailable, err)
	}
	defer f.Close()

	anim, err := gif.DecodeAll(f)
	if err != nil {
		return nil, fmt.Errorf("%w: decoding %s: %w", ErrMediaUnavailable, path, err)
	}
	if len(anim.Image) == 0 {
		return nil, fmt.Errorf("%w: %s has no frames", ErrMediaUnavailable, path)
	}

	frames := compositeGIF(anim)
	for i, frame := range frames {
		frames[i] = o.scale(frame)
	}

	fps := o.frameRate
	if fps == 0 {
		fps = gifFrameRate(anim.Delay)
	}

	return &gifSource{
		frames: frames,
		size:   frames[0].Bounds().Size(),
		fps:    fps,
	}, nil
}

// compositeGIF renders every frame onto the logical screen, honouring each
// frame's disposal method.
func compositeGIF(anim *gif.GIF) []image.Image {
	bounds := image.Rect(0, 0, anim.Config.Width, anim.Config.Height)
	if bounds.Empty() {
		bounds = anim.Image[0].Bounds()
		for _, frame := range anim.Image[1:] {
			bounds = bounds.Union(frame.Bounds())
		}
	}

	canvas := image.NewRGBA(bounds)
	frames := make([]image.Image, 0, len(anim.Image))
	for i, frame := range anim.Image {
		var previous *image.RGBA
		disposal := byte(gif.DisposalNone)
		if i < len(anim.Disposal) {
			disposal = anim.Disposal[i]
		}
		if disposal == gif.DisposalPrevious {
			previous = cloneRGBA(canvas)
		}

		draw.Draw(canvas, frame.Bounds(), frame, frame.Bounds().Min, draw.Over)
		frames = append(frames, cloneRGBA(canvas))

		switch disposal {
		case gif.DisposalBackground:
			draw.Draw(canvas, frame.Bounds(), image.Transparent, image.Point{}, draw.Src)
		case gif.DisposalPrevious:
			canvas = previous
		}
	}
	return frames
}

func cloneRGBA(src *image.RGBA) *image.RGBA {
	dst := image.NewRGBA(src.Bounds())
	copy(dst.Pix, src.Pix)
	return dst
}

// gifFrameRate derives the frame rate from the mean frame delay, given in
// hundredths of a second.
func gifFrameRate(delays []int) float64 {
	total := 0
	for _, delay := range delays {
		total += delay
	}
	if total == 0 {
		return DefaultFrameRate
	}
	return 100 * float64(len(delays)) / float64(total)
}

func (s *gifSource) Size() image.Point { return s.size }
func (s *gifSource) FPS() float64      { return s.fps }

func (s *gifSource) NextFrame() (image.Image, error) {
	if s.next >= len(s.frames) {
		return nil, ErrEndOfMedia
	}
	frame := s.frames[s.next]
	s.next++
	return frame, nil
}

func (s *gifSource) Rewind() error {
	s.next = 0
	return nil
}

func (s *gifSource) Close() error {
	s.frames = nil
	return nil
}
