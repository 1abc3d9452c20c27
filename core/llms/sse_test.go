package llms

import (
	"errors"
	"io"
	"strings"
	"testing"
)

func collectDeltas(r io.Reader) ([]string, []error) {
	var deltas []string
	var errs []error
	for delta, err := range ReadDeltaEvents(r) {
		if err != nil {
			errs = append(errs, err)
			continue
		}
		deltas = append(deltas, delta.Content)
	}
	return deltas, errs
}

func TestReadDeltaEventsYieldsContentInOrder(t *testing.T) {
	stream := strings.Join([]string{
		`data: {"choices":[{"delta":{"role":"assistant"}}]}`,
		`data: {"choices":[{"delta":{"content":"<th"}}]}`,
		``,
		`data: {"choices":[{"delta":{"content":"ink>hidden</think>Hello, "}}]}`,
		`data: {"choices":[{"delta":{"content":"world!"}}]}`,
		`data: [DONE]`,
		`data: {"choices":[{"delta":{"content":"after done"}}]}`,
	}, "\n")

	deltas, errs := collectDeltas(strings.NewReader(stream))
	if len(errs) != 0 {
		t.Fatalf("expected no errors, got %v", errs)
	}
	expected := []string{"<th", "ink>hidden</think>Hello, ", "world!"}
	if strings.Join(deltas, "|") != strings.Join(expected, "|") {
		t.Fatalf("expected %q, got %q", expected, deltas)
	}
}

func TestReadDeltaEventsIgnoresLinesWithoutPrefix(t *testing.T) {
	stream := strings.Join([]string{
		`: keep-alive`,
		`event: message`,
		`{"choices":[{"delta":{"content":"no prefix"}}]}`,
		`data:{"choices":[{"delta":{"content":"ok"}}]}`,
		`data: {"choices":[]}`,
	}, "\n")

	deltas, errs := collectDeltas(strings.NewReader(stream))
	if len(errs) != 0 {
		t.Fatalf("expected no errors, got %v", errs)
	}
	if len(deltas) != 1 || deltas[0] != "ok" {
		t.Fatalf("expected [ok], got %q", deltas)
	}
}

func TestReadDeltaEventsSkipsMalformedLines(t *testing.T) {
	stream := strings.Join([]string{
		`data: {"choices":[{"delta":{"content":"one "}}]}`,
		`data: {"choices":[{"delta":`,
		`data: {"choices":[{"delta":{"content":"two"}}]}`,
		`data: [DONE]`,
	}, "\n")

	deltas, errs := collectDeltas(strings.NewReader(stream))
	if len(errs) != 1 {
		t.Fatalf("expected 1 error, got %d", len(errs))
	}
	if !errors.Is(errs[0], ErrMalformedEvent) {
		t.Fatalf("expected ErrMalformedEvent, got %v", errs[0])
	}
	if strings.Join(deltas, "") != "one two" {
		t.Fatalf("expected stream to continue after malformed line, got %q", deltas)
	}
}

func TestReadDeltaEventsSkipsOverlongLines(t *testing.T) {
	overlong := `data: {"choices":[{"delta":{"content":"` + strings.Repeat("x", maxLineSize) + `"}}]}`
	stream := strings.Join([]string{
		`data: {"choices":[{"delta":{"content":"one "}}]}`,
		overlong,
		`: ` + strings.Repeat("y", maxLineSize),
		`data: {"choices":[{"delta":{"content":"two"}}]}`,
	}, "\r\n")

	deltas, errs := collectDeltas(strings.NewReader(stream))
	if len(errs) != 1 {
		t.Fatalf("expected 1 error for the overlong event, got %v", errs)
	}
	if !errors.Is(errs[0], ErrMalformedEvent) {
		t.Fatalf("expected ErrMalformedEvent, got %v", errs[0])
	}
	var transportErr *TransportError
	if errors.As(errs[0], &transportErr) {
		t.Fatalf("expected the stream to go on, got %v", errs[0])
	}
	if strings.Join(deltas, "") != "one two" {
		t.Fatalf("expected deltas around the overlong line, got %q", deltas)
	}
}

type failingReader struct {
	data io.Reader
	err  error
}

func (r *failingReader) Read(p []byte) (int, error) {
	n, err := r.data.Read(p)
	if err == io.EOF {
		return n, r.err
	}
	return n, err
}

func TestReadDeltaEventsReportsTransportError(t *testing.T) {
	cause := errors.New("connection reset")
	r := &failingReader{
		data: strings.NewReader(`data: {"choices":[{"delta":{"content":"partial"}}]}` + "\n"),
		err:  cause,
	}

	deltas, errs := collectDeltas(r)
	if len(deltas) != 1 || deltas[0] != "partial" {
		t.Fatalf("expected deltas before the failure, got %q", deltas)
	}
	if len(errs) != 1 {
		t.Fatalf("expected 1 error, got %d", len(errs))
	}
	var transportErr *TransportError
	if !errors.As(errs[0], &transportErr) {
		t.Fatalf("expected TransportError, got %T", errs[0])
	}
	if !errors.Is(errs[0], cause) {
		t.Fatalf("expected error to wrap cause, got %v", errs[0])
	}
}

func TestReadDeltaEventsStopsWhenConsumerStops(t *testing.T) {
	stream := strings.Join([]string{
		`data: {"choices":[{"delta":{"content":"a"}}]}`,
		`data: {"choices":[{"delta":{"content":"b"}}]}`,
	}, "\n")

	count := 0
	for range ReadDeltaEvents(strings.NewReader(stream)) {
		count++
		break
	}
	if count != 1 {
		t.Fatalf("expected iteration to stop after 1 delta, got %d", count)
	}
}
