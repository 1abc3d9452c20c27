// Package audio describes raw PCM audio and the devices that play and
// capture it.
package audio

// Output plays raw audio in the encoding it reports.
type Output interface {
	// SendAudio queues audio for playback. It does not wait for it to play.
	SendAudio(audio []byte) error
	// AwaitMark blocks until all audio queued so far has been played.
	AwaitMark() error
	// ClearBuffer drops audio that has not been played yet.
	ClearBuffer()
	EncodingInfo() EncodingInfo
}

// Input captures raw audio and hands it to onAudio until StopCapture.
type Input interface {
	StartCapture(onAudio func(audio []byte)) error
	StopCapture() error
	EncodingInfo() EncodingInfo
}
