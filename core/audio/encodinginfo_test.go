package audio

import (
	"bytes"
	"testing"
	"time"
)

func TestFormatSampleSizeAndSilence(t *testing.T) {
	testCases := []struct {
		format     Format
		silence    byte
		sampleSize int
	}{
		{format: FormatLinear16, silence: 0, sampleSize: 2},
		{format: FormatMulaw, silence: 0xFF, sampleSize: 1},
		{format: FormatALaw, silence: 0x55, sampleSize: 1},
		{format: Format("opus"), silence: 0, sampleSize: 0},
	}

	for _, testCase := range testCases {
		t.Run(testCase.format.Name(), func(t *testing.T) {
			if got := testCase.format.Silence(); got != testCase.silence {
				t.Fatalf("expected silence 0x%02x, got 0x%02x", testCase.silence, got)
			}
			if got := testCase.format.SampleSize(); got != testCase.sampleSize {
				t.Fatalf("expected sample size %d, got %d", testCase.sampleSize, got)
			}
		})
	}
}

func TestDefaultEncodingInfo(t *testing.T) {
	info := DefaultEncodingInfo()
	if info.IsZero() {
		t.Fatalf("expected default encoding to be set")
	}
	if info.SampleRate != DefaultSampleRate || info.Format != FormatLinear16 {
		t.Fatalf("unexpected default encoding: %+v", info)
	}
	if !(EncodingInfo{}).IsZero() || !(EncodingInfo{SampleRate: 16000, Format: "opus"}).IsZero() {
		t.Fatalf("expected incomplete encodings to be zero")
	}
}

func TestEncodingInfoSizesDurations(t *testing.T) {
	info := DefaultEncodingInfo()

	if got := info.Samples(30 * time.Millisecond); got != 480 {
		t.Fatalf("expected 480 samples in 30ms, got %d", got)
	}
	if got := info.Bytes(100 * time.Millisecond); got != 3200 {
		t.Fatalf("expected 3200 bytes in 100ms, got %d", got)
	}
	if got := info.Duration(32001); got != time.Second {
		t.Fatalf("expected a partial sample to be ignored, got %s", got)
	}
	if got := (EncodingInfo{}).Duration(100); got != 0 {
		t.Fatalf("expected zero duration for an unknown encoding, got %s", got)
	}
}

func TestEncodingInfoPadsWithSilence(t *testing.T) {
	mulaw := EncodingInfo{SampleRate: 8000, Format: FormatMulaw}

	got := mulaw.Pad([]byte{1, 2, 3}, 4)
	if !bytes.Equal(got, []byte{1, 2, 3, 0xFF}) {
		t.Fatalf("unexpected padding: %v", got)
	}
	if got := mulaw.Pad([]byte{1, 2}, 2); len(got) != 2 {
		t.Fatalf("expected whole buffers to be left alone, got %v", got)
	}

	buf := []byte{1, 2, 3}
	mulaw.FillSilence(buf)
	if !bytes.Equal(buf, []byte{0xFF, 0xFF, 0xFF}) {
		t.Fatalf("expected silence, got %v", buf)
	}
}
