package llms

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
)

const (
	chunkPrefix = "data:"
	endMessage  = "[DONE]"

	// maxLineSize bounds one event line. Longer lines are skipped as
	// malformed rather than ending the stream.
	maxLineSize = 1024 * 1024
)

type streamingResponseBody struct {
	Choices []struct {
		Delta struct {
			Content string `json:"content"`
		} `json:"delta"`
	} `json:"choices"`
}

// ReadDeltaEvents parses a chat-completions event stream.
//
// Only lines starting with "data:" are considered and "[DONE]" ends the
// stream. Each line yields at most one delta, taken from
// choices[0].delta.content; empty deltas are dropped. A line that does not
// decode, or is longer than 1 MiB, yields an error wrapping
// [ErrMalformedEvent] and reading continues. A read failure yields a final [*TransportError].
func ReadDeltaEvents(r io.Reader) func(func(DeltaEvent, error) bool) {
	return func(yield func(DeltaEvent, error) bool) {
		reader := bufio.NewReaderSize(r, 64*1024)
		for {
			raw, tooLong, err := readLine(reader, maxLineSize)
			if err != nil {
				if !errors.Is(err, io.EOF) {
					yield(DeltaEvent{}, &TransportError{Op: "read streamed response", Err: err})
				}
				return
			}

			line := string(raw)
			if !strings.HasPrefix(line, chunkPrefix) {
				continue
			}
			if tooLong {
				if !yield(DeltaEvent{}, fmt.Errorf("%w: line longer than %d bytes", ErrMalformedEvent, maxLineSize)) {
					return
				}
				continue
			}

			chunk := strings.TrimSpace(strings.TrimPrefix(line, chunkPrefix))
			if len(chunk) == 0 {
				continue
			}
			if chunk == endMessage {
				return
			}

			var responseBody streamingResponseBody
			if err := json.Unmarshal([]byte(chunk), &responseBody); err != nil {
				if !yield(DeltaEvent{}, fmt.Errorf("%w: %w", ErrMalformedEvent, err)) {
					return
				}
				continue
			}
			if len(responseBody.Choices) == 0 {
				continue
			}

			content := responseBody.Choices[0].Delta.Content
			if content == "" {
				continue
			}
			if !yield(DeltaEvent{Content: content}, nil) {
				return
			}
		}
	}
}

// readLine returns the next line without its line ending. A line longer than
// limit is consumed whole but only its first bytes are returned, with tooLong
// set. A last line cut short by a read error is dropped and the error
// returned.
func readLine(r *bufio.Reader, limit int) (line []byte, tooLong bool, err error) {
	for {
		fragment, err := r.ReadSlice('\n')
		if !tooLong {
			line = append(line, fragment...)
			if len(line) > limit {
				line, tooLong = line[:len(chunkPrefix)], true
			}
		}

		switch {
		case err == nil:
			return trimLineEnd(line), tooLong, nil
		case errors.Is(err, bufio.ErrBufferFull):
			continue
		case errors.Is(err, io.EOF) && len(line) > 0:
			return trimLineEnd(line), tooLong, nil
		default:
			return nil, false, err
		}
	}
}

func trimLineEnd(line []byte) []byte {
	line = bytes.TrimSuffix(line, []byte("\n"))
	return bytes.TrimSuffix(line, []byte("\r"))
}
