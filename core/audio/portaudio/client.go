package portaudio

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"sync"

	"github.com/gordonklaus/portaudio"
	"github.com/koscakluka/ema-avatar/core/audio"
)

// Client plays mono 16 bit PCM through PortAudio's default output device
// using a blocking stream.
type Client struct {
	bufferSize    int
	stream        *portaudio.Stream
	leftoverAudio []byte

	out []int16

	mu sync.Mutex
}

var _ audio.Output = (*Client)(nil)

func NewClient(bufferSize int) (*Client, error) {
	if err := portaudio.Initialize(); err != nil {
		return nil, fmt.Errorf("failed to initialize PortAudio: %w", err)
	}

	out := make([]int16, bufferSize)
	stream, err := portaudio.OpenDefaultStream(0, 1, audio.DefaultSampleRate, bufferSize, out)
	if err != nil {
		portaudio.Terminate()
		return nil, fmt.Errorf("failed to open PortAudio stream: %w", err)
	}
	if err := stream.Start(); err != nil {
		stream.Close()
		portaudio.Terminate()
		return nil, fmt.Errorf("failed to start PortAudio stream: %w", err)
	}

	return &Client{
		bufferSize: bufferSize,
		stream:     stream,
		out:        out,
	}, nil
}

func (c *Client) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	_ = c.stream.Stop()
	_ = c.stream.Close()
	portaudio.Terminate()
}

// SendAudio writes every complete buffer to the device and keeps the rest
// until more audio arrives or AwaitMark flushes it.
func (c *Client) SendAudio(audio []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.leftoverAudio = append(c.leftoverAudio, audio...)
	return c.writeBuffers(false)
}

// AwaitMark pads the remaining audio with silence to a whole buffer and
// writes it. The blocking stream returns once the device has taken it.
func (c *Client) AwaitMark() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.writeBuffers(true)
}

func (c *Client) writeBuffers(flush bool) error {
	info := c.EncodingInfo()
	bufferBytes := c.bufferSize * info.Format.SampleSize()
	if flush {
		c.leftoverAudio = info.Pad(c.leftoverAudio, bufferBytes)
	}
	for len(c.leftoverAudio) >= bufferBytes {
		chunk := c.leftoverAudio[:bufferBytes]
		c.leftoverAudio = c.leftoverAudio[bufferBytes:]

		if err := binary.Read(bytes.NewReader(chunk), binary.LittleEndian, c.out); err != nil {
			return fmt.Errorf("failed to decode audio: %w", err)
		}
		if err := c.stream.Write(); err != nil {
			return fmt.Errorf("failed to write to PortAudio stream: %w", err)
		}
	}
	return nil
}

func (c *Client) ClearBuffer() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.leftoverAudio = nil
}

func (c *Client) EncodingInfo() audio.EncodingInfo {
	return audio.DefaultEncodingInfo()
}
