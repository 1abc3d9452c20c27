package video

import (
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"os"
	"path/filepath"
	"slices"
	"strings"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

var sequenceExtensions = []string{".png", ".jpg", ".jpeg", ".gif", ".bmp", ".webp", ".tif", ".tiff"}

// sequenceSource plays a list of still images in name order, decoding each
// one on demand.
type sequenceSource struct {
	paths   []string
	options options
	size    image.Point
	fps     float64
	next    int
}

func openSequence(dir string, o options) (*sequenceSource, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMediaUnavailable, err)
	}

	var paths []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if slices.Contains(sequenceExtensions, strings.ToLower(filepath.Ext(entry.Name()))) {
			paths = append(paths, filepath.Join(dir, entry.Name()))
		}
	}
	slices.Sort(paths)

	return openSequenceFiles(paths, o)
}

func openSequenceFiles(paths []string, o options) (*sequenceSource, error) {
	if len(paths) == 0 {
		return nil, fmt.Errorf("%w: no image frames found", ErrMediaUnavailable)
	}

	config, err := decodeConfig(paths[0])
	if err != nil {
		return nil, err
	}

	fps := o.frameRate
	if fps == 0 {
		fps = DefaultFrameRate
	}

	return &sequenceSource{
		paths:   paths,
		options: o,
		size:    o.scaled(image.Pt(config.Width, config.Height)),
		fps:     fps,
	}, nil
}

func decodeConfig(path string) (image.Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return image.Config{}, fmt.Errorf("%w: %w", ErrMediaUnavailable, err)
	}
	defer f.Close()

	config, _, err := image.DecodeConfig(f)
	if err != nil {
		return image.Config{}, fmt.Errorf("%w: decoding %s: %w", ErrMediaUnavailable, path, err)
	}
	return config, nil
}

func (s *sequenceSource) Size() image.Point { return s.size }
func (s *sequenceSource) FPS() float64      { return s.fps }

func (s *sequenceSource) NextFrame() (image.Image, error) {
	if s.next >= len(s.paths) {
		return nil, ErrEndOfMedia
	}
	path := s.paths[s.next]
	s.next++

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMediaUnavailable, err)
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("%w: decoding %s: %w", ErrMediaUnavailable, path, err)
	}
	return s.options.scale(img), nil
}

func (s *sequenceSource) Rewind() error {
	s.next = 0
	return nil
}

func (s *sequenceSource) Close() error { return nil }
