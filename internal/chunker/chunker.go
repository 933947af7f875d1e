package chunker

import (
	"crypto/sha256"
	"encoding/hex"
	"regexp"
	"strings"
)

const (
	// DefaultSize is the target maximum chunk length in characters.
	DefaultSize = 1000
	// DefaultOverlap controls the overlap tail carried between consecutive
	// chunks: the last Overlap/10 words of a closed chunk seed the next one.
	DefaultOverlap = 200
)

// Chunk is a bounded, sentence-aligned segment of normalized document text.
// Its ID is a pure function of the trimmed text, so re-chunking identical
// content yields identical IDs and re-indexing overwrites rather than
// duplicates.
type Chunk struct {
	ID       string
	Text     string
	Length   int
	Metadata map[string]string
}

// Chunker splits normalized text into overlapping, sentence-aligned chunks.
// It carries no state between calls.
type Chunker struct {
	size    int
	overlap int
}

// New creates a Chunker. Non-positive size or negative overlap fall back to
// the defaults.
func New(size, overlap int) *Chunker {
	if size <= 0 {
		size = DefaultSize
	}
	if overlap < 0 {
		overlap = DefaultOverlap
	}
	return &Chunker{size: size, overlap: overlap}
}

var (
	whitespaceRe = regexp.MustCompile(`\s+`)
	// Everything outside letters, digits, whitespace and sentence punctuation
	// is replaced with a space before chunking. Letters and digits from any
	// script survive, not just ASCII.
	unsafeRe   = regexp.MustCompile(`[^\p{L}\p{N}_\s.,!?;:\-()]`)
	sentenceRe = regexp.MustCompile(`[.!?]+`)
)

// Chunk splits text into chunks of at most the configured size, never
// breaking inside a sentence. A single sentence longer than the size still
// becomes one chunk. Empty or whitespace-only input yields no chunks.
func (c *Chunker) Chunk(text string, metadata map[string]string) []Chunk {
	if strings.TrimSpace(text) == "" {
		return nil
	}

	text = normalize(text)
	sentences := splitSentences(text)

	var chunks []Chunk
	var current strings.Builder
	currentLength := 0

	for _, sentence := range sentences {
		// Each sentence costs its text plus the terminal punctuation and
		// separator the splitter consumed.
		cost := len(sentence) + 2

		if currentLength+cost > c.size && current.Len() > 0 {
			chunks = append(chunks, c.newChunk(current.String(), metadata))

			// Seed the next buffer with the closed chunk's tail words to
			// preserve cross-boundary context.
			tail := overlapTail(current.String(), c.overlap/10)
			current.Reset()
			if tail != "" {
				current.WriteString(tail)
				current.WriteString(" ")
			}
			current.WriteString(sentence)
			currentLength = current.Len() + 2
			continue
		}

		if current.Len() > 0 {
			current.WriteString(" ")
		}
		current.WriteString(sentence)
		currentLength += cost
	}

	if strings.TrimSpace(current.String()) != "" {
		chunks = append(chunks, c.newChunk(current.String(), metadata))
	}

	return chunks
}

func (c *Chunker) newChunk(text string, metadata map[string]string) Chunk {
	trimmed := strings.TrimSpace(text)
	return Chunk{
		ID:       ChunkID(trimmed),
		Text:     trimmed,
		Length:   len(trimmed),
		Metadata: metadata,
	}
}

// ChunkID returns the deterministic identifier for a chunk with the given
// trimmed text: a sha256 digest truncated to 16 hex characters.
func ChunkID(text string) string {
	sum := sha256.Sum256([]byte(text))
	return hex.EncodeToString(sum[:])[:16]
}

// normalize collapses whitespace and strips characters outside the safe
// alphanumeric/punctuation set.
func normalize(text string) string {
	text = whitespaceRe.ReplaceAllString(text, " ")
	text = unsafeRe.ReplaceAllString(text, " ")
	text = whitespaceRe.ReplaceAllString(text, " ")
	return strings.TrimSpace(text)
}

// splitSentences splits on terminal punctuation, discarding empty fragments.
func splitSentences(text string) []string {
	parts := sentenceRe.Split(text, -1)
	sentences := make([]string, 0, len(parts))
	for _, p := range parts {
		if s := strings.TrimSpace(p); s != "" {
			sentences = append(sentences, s)
		}
	}
	return sentences
}

// overlapTail returns the last n words of text. When the text has fewer than
// n words the whole text is returned; n <= 0 yields "".
func overlapTail(text string, n int) string {
	if n <= 0 {
		return ""
	}
	words := strings.Fields(text)
	if len(words) > n {
		words = words[len(words)-n:]
	}
	return strings.Join(words, " ")
}
