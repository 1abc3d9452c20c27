package deepgram

import (
	"fmt"
	"slices"
	"time"

	"github.com/koscakluka/ema-avatar/core/audio"
)

// chunkDuration is how much captured audio goes into one websocket frame.
// Deepgram recommends frames between 20 and 250 ms.
const chunkDuration = 100 * time.Millisecond

var listenSampleRates = []int{8000, 16000, 24000, 32000, 48000}

// listenEncoding checks that live transcription accepts info. A zero info
// falls back to [audio.DefaultEncodingInfo].
func listenEncoding(info audio.EncodingInfo) (audio.EncodingInfo, error) {
	if info.IsZero() {
		info = audio.DefaultEncodingInfo()
	}
	if !slices.Contains(listenSampleRates, info.SampleRate) {
		return audio.EncodingInfo{}, fmt.Errorf("unsupported sample rate %d", info.SampleRate)
	}

	switch info.Format {
	case audio.FormatLinear16:
	case audio.FormatMulaw, audio.FormatALaw:
		if info.SampleRate != 8000 {
			return audio.EncodingInfo{}, fmt.Errorf("%s audio must be sampled at 8000 Hz, got %d", info.Format, info.SampleRate)
		}
	default:
		return audio.EncodingInfo{}, fmt.Errorf("unsupported encoding %q", info.Format)
	}
	return info, nil
}

// audioChunker regroups device callbacks, which come in periods of a few
// milliseconds, into frames of a fixed size.
type audioChunker struct {
	size    int
	pending []byte
	sent    int
}

func newAudioChunker(info audio.EncodingInfo) *audioChunker {
	return &audioChunker{size: max(info.Bytes(chunkDuration), 1)}
}

// Add buffers captured audio and returns every complete frame.
func (c *audioChunker) Add(captured []byte) [][]byte {
	c.pending = append(c.pending, captured...)
	var frames [][]byte
	for len(c.pending) >= c.size {
		frame := make([]byte, c.size)
		copy(frame, c.pending)
		c.pending = c.pending[c.size:]
		frames = append(frames, frame)
	}
	c.sent += len(frames) * c.size
	return frames
}

// Flush returns the partial frame left over, if any.
func (c *audioChunker) Flush() []byte {
	frame := c.pending
	c.pending = nil
	c.sent += len(frame)
	return frame
}
