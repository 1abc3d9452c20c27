// Package reasoning removes reasoning spans from streamed model output.
//
// Models served through LM Studio (and DeepSeek-style reasoners) interleave
// their chain of thought with the answer, delimited by `<think>` and
// `</think>`. The filter in this package strips those spans from a stream of
// arbitrarily fragmented chunks so that only the answer reaches the display
// and the speech path.
package reasoning

import "strings"

const (
	DefaultStartMarker = "<think>"
	DefaultEndMarker   = "</think>"
)

// State is the visibility state of a [ThinkTagFilter].
type State int

const (
	// Visible means incoming text is passed through.
	Visible State = iota
	// Suppressed means incoming text belongs to a reasoning span and is
	// discarded.
	Suppressed
)

func (s State) String() string {
	switch s {
	case Visible:
		return "visible"
	case Suppressed:
		return "suppressed"
	}
	return "unknown"
}

type Option func(*ThinkTagFilter)

// WithMarkers replaces the default `<think>`/`</think>` delimiters. Empty
// markers are ignored.
func WithMarkers(start, end string) Option {
	return func(f *ThinkTagFilter) {
		if start != "" {
			f.startMarker = start
		}
		if end != "" {
			f.endMarker = end
		}
	}
}

// ThinkTagFilter is a two-state streaming filter. It must be driven by a
// single goroutine, one Process call after the other.
//
// A chunk that ends with a proper prefix of the marker the filter is looking
// for keeps that tail back and re-examines it together with the next chunk,
// so markers split across chunks are always recognised. Call [Flush] at the
// end of the stream to release a held tail that never became a marker.
type ThinkTagFilter struct {
	startMarker string
	endMarker   string

	state      State
	held       string
	suppressed int
}

func NewThinkTagFilter(opts ...Option) *ThinkTagFilter {
	f := &ThinkTagFilter{
		startMarker: DefaultStartMarker,
		endMarker:   DefaultEndMarker,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Process consumes the next chunk and returns its visible part.
func (f *ThinkTagFilter) Process(chunk string) string {
	if chunk == "" {
		return ""
	}

	text := f.held + chunk
	f.held = ""

	var visible strings.Builder
	for len(text) > 0 {
		switch f.state {
		case Visible:
			if i := strings.Index(text, f.startMarker); i >= 0 {
				visible.WriteString(text[:i])
				f.suppressed += len(f.startMarker)
				text = text[i+len(f.startMarker):]
				f.state = Suppressed
				continue
			}

			keep := partialMarkerSuffix(text, f.startMarker)
			visible.WriteString(text[:len(text)-keep])
			f.held = text[len(text)-keep:]
			text = ""

		case Suppressed:
			if i := strings.Index(text, f.endMarker); i >= 0 {
				f.suppressed += i + len(f.endMarker)
				text = text[i+len(f.endMarker):]
				f.state = Visible
				continue
			}

			keep := partialMarkerSuffix(text, f.endMarker)
			f.suppressed += len(text) - keep
			f.held = text[len(text)-keep:]
			text = ""
		}
	}

	return visible.String()
}

// Flush ends the stream. A held tail is returned when the filter is visible
// and discarded when it is inside an unclosed span.
func (f *ThinkTagFilter) Flush() string {
	held := f.held
	f.held = ""
	if f.state == Suppressed {
		f.suppressed += len(held)
		return ""
	}
	return held
}

func (f *ThinkTagFilter) State() State { return f.state }

// Suppressed returns the number of bytes discarded so far, markers included.
func (f *ThinkTagFilter) Suppressed() int { return f.suppressed }

// Reset returns the filter to its initial visible state.
func (f *ThinkTagFilter) Reset() {
	f.state = Visible
	f.held = ""
	f.suppressed = 0
}

// partialMarkerSuffix returns the length of the longest suffix of text that
// is a proper prefix of marker.
func partialMarkerSuffix(text, marker string) int {
	longest := min(len(marker)-1, len(text))
	for k := longest; k > 0; k-- {
		if strings.HasSuffix(text, marker[:k]) {
			return k
		}
	}
	return 0
}
