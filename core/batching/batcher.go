// Package batching re-segments streamed visible text into speakable batches.
package batching

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// DefaultTerminators are the sentence boundaries used by [SentencePolicy].
const DefaultTerminators = ".!?\n:"

// Batch is a trimmed, non-empty run of text dispatched as one speech call.
type Batch string

func (b Batch) String() string { return string(b) }

// Policy decides when buffered text becomes a batch.
type Policy struct {
	// Terminators is the set of sentence boundary characters. Empty disables
	// boundary batching.
	Terminators string
	// SentencesPerBatch groups that many sentences into one batch. Values
	// below one are treated as one.
	SentencesPerBatch int
	// MaxWords cuts a batch once the buffer holds more words than this. Zero
	// disables the ceiling.
	MaxWords int
}

// SentencePolicy emits one batch per complete sentence.
func SentencePolicy() Policy {
	return Policy{Terminators: DefaultTerminators, SentencesPerBatch: 1}
}

// WordCapPolicy ignores sentence boundaries and emits a batch whenever the
// buffer holds more than maxWords words.
func WordCapPolicy(maxWords int) Policy {
	return Policy{MaxWords: maxWords}
}

// SentenceCapPolicy groups sentences and falls back to a word ceiling for
// long runs without a boundary.
func SentenceCapPolicy(sentences, maxWords int) Policy {
	return Policy{Terminators: DefaultTerminators, SentencesPerBatch: sentences, MaxWords: maxWords}
}

// Batcher accumulates text and cuts it into batches according to a Policy.
// It is not safe for concurrent use.
type Batcher struct {
	policy Policy
	buffer strings.Builder
}

func New(policy Policy) *Batcher {
	if policy.SentencesPerBatch < 1 {
		policy.SentencesPerBatch = 1
	}
	return &Batcher{policy: policy}
}

func (b *Batcher) Policy() Policy { return b.policy }

// Offer appends visible text to the buffer.
func (b *Batcher) Offer(text string) {
	b.buffer.WriteString(text)
}

// DrainReady returns every batch completed by the text offered so far. It
// never blocks and returns nil when nothing is ready.
func (b *Batcher) DrainReady() []Batch {
	text := b.buffer.String()
	var batches []Batch

	if b.policy.Terminators != "" {
		sentences, rest := splitSentences(text, b.policy.Terminators)
		complete := len(sentences) - len(sentences)%b.policy.SentencesPerBatch
		for i := 0; i < complete; i += b.policy.SentencesPerBatch {
			batches = appendBatch(batches, strings.Join(sentences[i:i+b.policy.SentencesPerBatch], ""))
		}
		text = strings.Join(sentences[complete:], "") + rest
	}

	if b.policy.MaxWords > 0 {
		for {
			head, rest, ok := cutWords(text, b.policy.MaxWords)
			if !ok {
				break
			}
			batches = appendBatch(batches, head)
			text = rest
		}
	}

	b.buffer.Reset()
	b.buffer.WriteString(text)
	return batches
}

// Flush returns the buffered remainder as a final batch. It reports false if
// the remainder is blank.
func (b *Batcher) Flush() (Batch, bool) {
	text := strings.TrimSpace(b.buffer.String())
	b.buffer.Reset()
	if text == "" {
		return "", false
	}
	return Batch(text), true
}

// Reset drops buffered text.
func (b *Batcher) Reset() {
	b.buffer.Reset()
}

// Buffered returns the text not yet part of a batch.
func (b *Batcher) Buffered() string {
	return b.buffer.String()
}

func appendBatch(batches []Batch, text string) []Batch {
	if text = strings.TrimSpace(text); text != "" {
		batches = append(batches, Batch(text))
	}
	return batches
}

// splitSentences cuts text after every confirmed sentence boundary and
// returns the unconfirmed tail separately. A terminator is a boundary when it
// is whitespace itself or is followed by whitespace. A terminator that ends
// text is not confirmed yet, since the next chunk may continue a number
// such as "3.14".
func splitSentences(text, terminators string) (sentences []string, rest string) {
	start := 0
	for i, r := range text {
		if !strings.ContainsRune(terminators, r) {
			continue
		}
		next := i + utf8.RuneLen(r)
		if !unicode.IsSpace(r) {
			if next == len(text) {
				break
			}
			following, _ := utf8.DecodeRuneInString(text[next:])
			if !unicode.IsSpace(following) {
				continue
			}
		}
		sentences = append(sentences, text[start:next])
		start = next
	}
	return sentences, text[start:]
}

// cutWords splits text after its first n words when it holds more than n.
func cutWords(text string, n int) (head, rest string, ok bool) {
	words := 0
	inWord := false
	for i, r := range text {
		if unicode.IsSpace(r) {
			inWord = false
			continue
		}
		if inWord {
			continue
		}
		inWord = true
		words++
		if words == n+1 {
			return text[:i], text[i:], true
		}
	}
	return "", text, false
}
