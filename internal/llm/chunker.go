package llm

import (
	"regexp"
	"strings"
	"unicode"
)

// DefaultChunkTokens is the extraction window used when none is configured.
// Analysis and summarization always send whole chapters.
const DefaultChunkTokens = 6000

var paragraphBreak = regexp.MustCompile(`\n\s*\n`)

// Chunker splits chapter text into pieces small enough for one extraction call.
// Pieces follow paragraph boundaries, then sentence boundaries, and only cut
// inside a sentence when a single sentence exceeds the window.
type Chunker struct {
	MaxTokens int
}

// Split returns the pieces of content in order. Content that fits the window
// is returned whole; blank content yields no pieces.
func (c Chunker) Split(content string) []string {
	if strings.TrimSpace(content) == "" {
		return nil
	}
	limit := c.MaxTokens
	if limit <= 0 {
		limit = DefaultChunkTokens
	}
	if EstimateTokens(content) <= limit {
		return []string{content}
	}

	var units []string
	for _, para := range paragraphBreak.Split(content, -1) {
		if strings.TrimSpace(para) == "" {
			continue
		}
		if EstimateTokens(para) <= limit {
			units = append(units, para)
			continue
		}
		for _, sentence := range splitSentences(para) {
			units = append(units, hardSplit(sentence, limit)...)
		}
	}

	var chunks []string
	var current strings.Builder
	tokens := 0
	for _, u := range units {
		t := EstimateTokens(u)
		if tokens > 0 && tokens+t > limit {
			chunks = append(chunks, current.String())
			current.Reset()
			tokens = 0
		}
		if current.Len() > 0 {
			current.WriteString("\n\n")
		}
		current.WriteString(u)
		tokens += t
	}
	if current.Len() > 0 {
		chunks = append(chunks, current.String())
	}
	return chunks
}

// EstimateTokens approximates the token count at four bytes per token, which
// is close enough for English prose with GPT-style tokenizers.
func EstimateTokens(text string) int {
	return (len(text) + 3) / 4
}

// splitSentences breaks text after '.', '!' or '?' when followed by space and
// an uppercase letter. Terminators stay with their sentence.
func splitSentences(text string) []string {
	var sentences []string
	runes := []rune(text)
	start := 0
	for i := 0; i < len(runes)-2; i++ {
		switch runes[i] {
		case '.', '!', '?':
			if unicode.IsSpace(runes[i+1]) && unicode.IsUpper(runes[i+2]) {
				sentences = append(sentences, string(runes[start:i+1]))
				start = i + 2
			}
		}
	}
	if rest := strings.TrimSpace(string(runes[start:])); rest != "" {
		sentences = append(sentences, string(runes[start:]))
	}
	return sentences
}

// hardSplit cuts s into rune-aligned pieces of at most limit tokens.
func hardSplit(s string, limit int) []string {
	maxBytes := limit * 4
	var pieces []string
	for len(s) > maxBytes {
		cut := maxBytes
		for cut > 0 && !isRuneStart(s[cut]) {
			cut--
		}
		if sp := strings.LastIndexByte(s[:cut], ' '); sp > cut/2 {
			cut = sp
		}
		pieces = append(pieces, s[:cut])
		s = strings.TrimLeft(s[cut:], " ")
	}
	if s != "" {
		pieces = append(pieces, s)
	}
	return pieces
}

func isRuneStart(b byte) bool { return b&0xC0 != 0x80 }
