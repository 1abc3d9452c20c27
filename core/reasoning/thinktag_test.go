package reasoning

import (
	"regexp"
	"strings"
	"testing"
)

var thinkSpanPattern = regexp.MustCompile(`(?s)<think>.*?</think>`)

func runChunked(f *ThinkTagFilter, input string, size int) string {
	var out strings.Builder
	for start := 0; start < len(input); start += size {
		end := min(start+size, len(input))
		out.WriteString(f.Process(input[start:end]))
	}
	out.WriteString(f.Flush())
	return out.String()
}

func TestThinkTagFilterRemovesBalancedSpansForEveryChunkSize(t *testing.T) {
	inputs := []string{
		"<think>plan the answer</think>Hello there.",
		"Before <think>one</think> middle <think>two</think> after",
		"<think></think>empty span",
		"no reasoning at all",
		"<think>multi\nline\nreasoning</think>\nAnswer: 42 < 43 and </thin is text",
		"tail <think>x</think>",
	}

	for _, input := range inputs {
		expected := thinkSpanPattern.ReplaceAllString(input, "")
		for size := 1; size <= len(input); size++ {
			got := runChunked(NewThinkTagFilter(), input, size)
			if got != expected {
				t.Fatalf("input %q chunk size %d: expected %q, got %q", input, size, expected, got)
			}
		}
	}
}

func TestThinkTagFilterSuppressesUntilEndWhenSpanIsNotClosed(t *testing.T) {
	f := NewThinkTagFilter()

	got := f.Process("Visible <think>never closed")
	got += f.Process(" more hidden text.")
	got += f.Process(" </thi")
	got += f.Flush()

	if got != "Visible " {
		t.Fatalf("expected only text before the open span, got %q", got)
	}
	if f.State() != Suppressed {
		t.Fatalf("expected filter to stay suppressed, got %s", f.State())
	}
}

func TestThinkTagFilterResumesWithinSameChunk(t *testing.T) {
	f := NewThinkTagFilter()

	if got := f.Process("a<think>b</think>c<think>d</think>e"); got != "ace" {
		t.Fatalf("expected %q, got %q", "ace", got)
	}
	if f.State() != Visible {
		t.Fatalf("expected visible state, got %s", f.State())
	}
}

func TestThinkTagFilterHoldsPartialStartMarkerAcrossChunks(t *testing.T) {
	f := NewThinkTagFilter()

	if got := f.Process("<th"); got != "" {
		t.Fatalf("expected partial marker to be held, got %q", got)
	}
	if got := f.Process("ink>hidden</think>Hello, "); got != "Hello, " {
		t.Fatalf("expected %q, got %q", "Hello, ", got)
	}
	if got := f.Process("world!"); got != "world!" {
		t.Fatalf("expected %q, got %q", "world!", got)
	}
}

func TestThinkTagFilterReleasesHeldTextThatIsNotAMarker(t *testing.T) {
	f := NewThinkTagFilter()

	if got := f.Process("a <thi"); got != "a " {
		t.Fatalf("expected %q, got %q", "a ", got)
	}
	if got := f.Process("s is fine"); got != "<this is fine" {
		t.Fatalf("expected %q, got %q", "<this is fine", got)
	}
	if got := f.Process(" until <"); got != " until " {
		t.Fatalf("expected %q, got %q", " until ", got)
	}
	if got := f.Flush(); got != "<" {
		t.Fatalf("expected flush to release %q, got %q", "<", got)
	}
}

func TestThinkTagFilterCountsSuppressedBytes(t *testing.T) {
	f := NewThinkTagFilter()
	runChunked(f, "x<think>abc</think>y", 2)

	expected := len("<think>abc</think>")
	if got := f.Suppressed(); got != expected {
		t.Fatalf("expected %d suppressed bytes, got %d", expected, got)
	}
}

func TestThinkTagFilterCustomMarkers(t *testing.T) {
	f := NewThinkTagFilter(WithMarkers("[[", "]]"))

	if got := runChunked(f, "keep [[drop]] this", 3); got != "keep  this" {
		t.Fatalf("expected %q, got %q", "keep  this", got)
	}
}

func TestThinkTagFilterReset(t *testing.T) {
	f := NewThinkTagFilter()
	f.Process("<think>open")
	f.Reset()

	if f.State() != Visible || f.Suppressed() != 0 {
		t.Fatalf("expected reset filter, got state %s with %d suppressed", f.State(), f.Suppressed())
	}
	if got := f.Process("text"); got != "text" {
		t.Fatalf("expected %q, got %q", "text", got)
	}
}
