package miniaudio

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gen2brain/malgo"
	"github.com/koscakluka/ema-avatar/core/audio"
)

// capturePeriod keeps microphone latency low. The listener regroups the
// periods into larger frames before sending them anywhere.
const capturePeriod = 30 * time.Millisecond

// captureClient records from the default microphone. Only one recording
// runs at a time and its callback receives every period in order.
type captureClient struct {
	device *malgo.Device

	// onAudio is read by the device thread without taking mu.
	onAudio atomic.Pointer[func([]byte)]

	mu sync.Mutex
}

func (c *captureClient) Init(audioContext *malgo.AllocatedContext, info audio.EncodingInfo) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if info.Format != audio.FormatLinear16 {
		return fmt.Errorf("unsupported capture format %q", info.Format)
	}

	config := malgo.DefaultDeviceConfig(malgo.Capture)
	config.SampleRate = uint32(info.SampleRate)
	config.Capture.Format = malgo.FormatS16
	config.Capture.Channels = 1
	config.Alsa.NoMMap = 1
	config.PerformanceProfile = malgo.LowLatency
	config.PeriodSizeInFrames = uint32(info.Samples(capturePeriod))
	config.Periods = 3

	sampleSize := info.Format.SampleSize()
	device, err := malgo.InitDevice(audioContext.Context, config, malgo.DeviceCallbacks{
		Data: func(_, input []byte, frameCount uint32) {
			n := int(frameCount) * sampleSize
			if n == 0 || len(input) < n {
				return
			}
			if onAudio := c.onAudio.Load(); onAudio != nil {
				(*onAudio)(input[:n])
			}
		},
	})
	if err != nil {
		return fmt.Errorf("failed to initialize capture device: %w", err)
	}
	c.device = device
	return nil
}

// Start begins recording. onAudio must copy the buffer if it keeps it.
func (c *captureClient) Start(onAudio func(captured []byte)) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.device == nil {
		return errors.New("capture device not initialized")
	}
	if c.device.IsStarted() {
		return errors.New("capture already running")
	}

	c.onAudio.Store(&onAudio)
	if err := c.device.Start(); err != nil {
		c.onAudio.Store(nil)
		return fmt.Errorf("failed to start capture device: %w", err)
	}
	return nil
}

func (c *captureClient) Stop() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.device == nil {
		return errors.New("capture device not initialized")
	}
	defer c.onAudio.Store(nil)
	if !c.device.IsStarted() {
		return nil
	}

	if err := c.device.Stop(); err != nil {
		return fmt.Errorf("failed to stop capture device: %w", err)
	}
	return nil
}

func (c *captureClient) Uninit() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.device != nil {
		c.device.Uninit()
		c.device = nil
	}
	c.onAudio.Store(nil)
}
