package audio

import "time"

// DefaultSampleRate is the rate the local devices are opened at. Deepgram
// accepts it for both speech directions.
const DefaultSampleRate = 16000

// Format names a mono sample encoding the way the speech APIs spell it.
type Format string

const (
	FormatLinear16 Format = "linear16"
	FormatMulaw    Format = "mulaw"
	FormatALaw     Format = "alaw"
)

func (f Format) Name() string { return string(f) }

// SampleSize is the number of bytes in one sample, or 0 for an unknown
// format.
func (f Format) SampleSize() int {
	switch f {
	case FormatLinear16:
		return 2
	case FormatMulaw, FormatALaw:
		return 1
	}
	return 0
}

// Silence is the byte that every byte of a silent sample holds.
func (f Format) Silence() byte {
	switch f {
	case FormatMulaw:
		return 0xFF
	case FormatALaw:
		return 0x55
	}
	return 0
}

// EncodingInfo describes mono PCM audio.
type EncodingInfo struct {
	SampleRate int
	Format     Format
}

// DefaultEncodingInfo is 16 bit linear PCM at [DefaultSampleRate].
func DefaultEncodingInfo() EncodingInfo {
	return EncodingInfo{SampleRate: DefaultSampleRate, Format: FormatLinear16}
}

func (e EncodingInfo) IsZero() bool {
	return e.SampleRate == 0 || e.Format.SampleSize() == 0
}

// Samples is the number of samples that play for d.
func (e EncodingInfo) Samples(d time.Duration) int {
	return int(int64(e.SampleRate) * int64(d) / int64(time.Second))
}

// Bytes is the size of d of audio in whole samples.
func (e EncodingInfo) Bytes(d time.Duration) int {
	return e.Samples(d) * e.Format.SampleSize()
}

// Duration is how long n bytes play. A trailing partial sample is ignored.
func (e EncodingInfo) Duration(n int) time.Duration {
	size := e.Format.SampleSize()
	if size == 0 || e.SampleRate == 0 {
		return 0
	}
	return time.Duration(n/size) * time.Second / time.Duration(e.SampleRate)
}

// Pad appends silence to audio until its length is a multiple of size.
func (e EncodingInfo) Pad(audio []byte, size int) []byte {
	if size <= 0 || len(audio)%size == 0 {
		return audio
	}
	missing := size - len(audio)%size
	silence := e.Format.Silence()
	for range missing {
		audio = append(audio, silence)
	}
	return audio
}

// FillSilence overwrites buf with silence.
func (e EncodingInfo) FillSilence(buf []byte) {
	silence := e.Format.Silence()
	for i := range buf {
		buf[i] = silence
	}
}
