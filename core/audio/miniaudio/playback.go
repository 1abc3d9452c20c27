package miniaudio

import (
	"fmt"
	"sync"
	"time"

	"github.com/gen2brain/malgo"
	"github.com/koscakluka/ema-avatar/core/audio"
)

// playbackPeriod is the amount of audio the device asks for per callback.
const playbackPeriod = 100 * time.Millisecond

type playbackClient struct {
	device *malgo.Device
	info   audio.EncodingInfo

	leftoverAudio []byte
	marks         []playbackMark

	mu      sync.Mutex
	audioMu sync.Mutex
	marksMu sync.Mutex
}

func (c *playbackClient) Init(audioContext *malgo.AllocatedContext, info audio.EncodingInfo) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if info.Format != audio.FormatLinear16 {
		return fmt.Errorf("unsupported playback format %q", info.Format)
	}
	c.info = info

	config := malgo.DefaultDeviceConfig(malgo.Playback)
	config.SampleRate = uint32(info.SampleRate)
	config.Playback.Format = malgo.FormatS16
	config.Playback.Channels = 1
	config.Alsa.NoMMap = 1
	config.PeriodSizeInFrames = uint32(info.Samples(playbackPeriod))
	config.Periods = 4

	device, err := malgo.InitDevice(audioContext.Context, config, malgo.DeviceCallbacks{Data: c.processAudio})
	if err != nil {
		return fmt.Errorf("failed to initialize playback device: %w", err)
	}
	c.device = device
	return nil
}

func (c *playbackClient) Start() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.device == nil {
		return fmt.Errorf("device not initialized")
	}

	if err := c.device.Start(); err != nil {
		return fmt.Errorf("failed to start playback device: %w", err)
	}

	return nil
}

func (c *playbackClient) SendAudio(audio []byte) error {
	if c.device == nil {
		return fmt.Errorf("device not initialized")
	} else if !c.device.IsStarted() {
		return fmt.Errorf("device not started")
	}

	c.audioMu.Lock()
	defer c.audioMu.Unlock()
	c.leftoverAudio = append(c.leftoverAudio, audio...)
	return nil
}

func (c *playbackClient) ClearBuffer() {
	c.audioMu.Lock()
	c.marksMu.Lock()
	defer c.audioMu.Unlock()
	defer c.marksMu.Unlock()
	c.leftoverAudio = c.leftoverAudio[:0]
	for _, mark := range c.marks {
		go mark.reached()
	}
	c.marks = nil
}

// AwaitMark blocks until everything sent so far has been handed to the
// device.
func (c *playbackClient) AwaitMark() error {
	if c.device == nil {
		return fmt.Errorf("device not initialized")
	} else if !c.device.IsStarted() {
		return fmt.Errorf("device not started")
	}

	played := make(chan struct{})
	c.mark(func() { close(played) })
	<-played
	return nil
}

// mark calls reached once the audio queued so far has been played.
func (c *playbackClient) mark(reached func()) {
	c.audioMu.Lock()
	position := len(c.leftoverAudio)
	c.audioMu.Unlock()

	c.marksMu.Lock()
	defer c.marksMu.Unlock()
	c.marks = append(c.marks, playbackMark{position: position, reached: reached})
}

func (c *playbackClient) Uninit() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.device != nil {
		c.device.Uninit()
		c.device = nil
	}
}

type playbackMark struct {
	position int
	reached  func()
}

// processAudio hands queued audio to the device and pads the rest of the
// period with silence.
func (c *playbackClient) processAudio(output, _ []byte, frameCount uint32) {
	need := min(int(frameCount)*c.info.Format.SampleSize(), len(output))

	c.audioMu.Lock()
	n := copy(output[:need], c.leftoverAudio)
	c.leftoverAudio = c.leftoverAudio[n:]
	c.audioMu.Unlock()

	c.info.FillSilence(output[n:need])
	c.processMarks(n)
}

// processMarks moves marks forward by the number of bytes just played and
// fires the ones that were reached.
func (c *playbackClient) processMarks(played int) {
	c.marksMu.Lock()
	passedMarks := 0
	for i := range c.marks {
		if c.marks[i].position > played {
			c.marks[i].position -= played
		} else {
			c.marks[i].position = 0
			passedMarks++
		}
	}
	toCall := c.marks[:passedMarks:passedMarks]
	c.marks = c.marks[passedMarks:]
	c.marksMu.Unlock()

	if len(toCall) > 0 {
		go func() {
			for _, mark := range toCall {
				mark.reached()
			}
		}()
	}
}
