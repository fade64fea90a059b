package rag

import (
	"fmt"
	"strings"
	"sync"
	"unicode"

	"github.com/pkoukk/tiktoken-go"
)

const encodingName = "cl100k_base"

var (
	tk     *tiktoken.Tiktoken
	tkErr  error
	tkOnce sync.Once
)

type Chunk struct {
	Text      string
	TokenSize int
	Index     int
}

type ChunkerConfig struct {
	MaxTokens     int
	OverlapTokens int
}

// DefaultChunkerConfig suits small hosted embedding models.
func DefaultChunkerConfig() ChunkerConfig {
	return ChunkerConfig{
		MaxTokens:     256,
		OverlapTokens: 50,
	}
}

// Chunker splits documents on sentence boundaries into token-bounded,
// overlapping chunks.
type Chunker struct {
	cfg ChunkerConfig
	enc *tiktoken.Tiktoken
}

func NewChunker(cfg ChunkerConfig) (*Chunker, error) {
	if cfg.MaxTokens <= 0 {
		return nil, fmt.Errorf("chunk size must be positive, got %d", cfg.MaxTokens)
	}
	if cfg.OverlapTokens < 0 || cfg.OverlapTokens >= cfg.MaxTokens {
		return nil, fmt.Errorf("chunk overlap must be in [0, %d), got %d", cfg.MaxTokens, cfg.OverlapTokens)
	}

	enc, err := getTokenizer()
	if err != nil {
		return nil, err
	}
	return &Chunker{cfg: cfg, enc: enc}, nil
}

func (c *Chunker) Split(text string) []Chunk {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}

	sentences := splitSentences(text)

	var chunks []Chunk
	var buf strings.Builder
	bufTokens := 0

	flush := func() {
		if s := strings.TrimSpace(buf.String()); s != "" {
			chunks = append(chunks, Chunk{Text: s, TokenSize: bufTokens, Index: len(chunks)})
		}
		buf.Reset()
		bufTokens = 0
	}

	for i, sentence := range sentences {
		sentenceTokens := c.countTokens(sentence)

		// A sentence that can never fit is sliced by tokens on its own.
		if sentenceTokens > c.cfg.MaxTokens {
			flush()
			for _, part := range c.splitByTokens(sentence) {
				if s := strings.TrimSpace(part.Text); s != "" {
					chunks = append(chunks, Chunk{Text: s, TokenSize: part.TokenSize, Index: len(chunks)})
				}
			}
			continue
		}

		if bufTokens+sentenceTokens > c.cfg.MaxTokens && buf.Len() > 0 {
			flush()

			overlap := c.overlapBefore(sentences, i)
			if c.countTokens(overlap)+sentenceTokens <= c.cfg.MaxTokens {
				buf.WriteString(overlap)
				bufTokens = c.countTokens(overlap)
			}
		}

		if buf.Len() > 0 {
			buf.WriteString(" ")
		}
		buf.WriteString(sentence)
		bufTokens += sentenceTokens
	}
	flush()

	return chunks
}

// splitByTokens slices text into windows of MaxTokens that share OverlapTokens.
func (c *Chunker) splitByTokens(text string) []Chunk {
	tokens := c.enc.Encode(text, nil, nil)
	step := c.cfg.MaxTokens - c.cfg.OverlapTokens

	var parts []Chunk
	for start := 0; start < len(tokens); start += step {
		end := start + c.cfg.MaxTokens
		if end > len(tokens) {
			end = len(tokens)
		}
		parts = append(parts, Chunk{
			Text:      c.enc.Decode(tokens[start:end]),
			TokenSize: end - start,
		})
		if end == len(tokens) {
			break
		}
	}
	return parts
}

// overlapBefore collects whole sentences preceding idx until OverlapTokens is reached.
func (c *Chunker) overlapBefore(sentences []string, idx int) string {
	if idx == 0 || c.cfg.OverlapTokens == 0 {
		return ""
	}

	var overlap []string
	tokens := 0
	for i := idx - 1; i >= 0 && tokens < c.cfg.OverlapTokens; i-- {
		overlap = append([]string{sentences[i]}, overlap...)
		tokens += c.countTokens(sentences[i])
	}
	return strings.Join(overlap, " ")
}

func (c *Chunker) countTokens(text string) int {
	if text == "" {
		return 0
	}
	return len(c.enc.Encode(text, nil, nil))
}

var sentenceEnders = map[rune]bool{
	'.': true, '!': true, '?': true,
	'。': true, '！': true, '？': true, '．': true, '…': true,
}

// splitSentences breaks paragraphs into sentences. An ender only closes a
// sentence when followed by whitespace, CJK text, or the end of the paragraph.
func splitSentences(text string) []string {
	var sentences []string

	for _, para := range splitParagraphs(text) {
		var current strings.Builder
		runes := []rune(para)

		for i, r := range runes {
			current.WriteRune(r)
			if !sentenceEnders[r] {
				continue
			}
			if i+1 >= len(runes) || unicode.IsSpace(runes[i+1]) || isCJK(runes[i+1]) {
				if s := strings.TrimSpace(current.String()); s != "" {
					sentences = append(sentences, s)
				}
				current.Reset()
			}
		}

		if s := strings.TrimSpace(current.String()); s != "" {
			sentences = append(sentences, s)
		}
	}

	if len(sentences) == 0 && text != "" {
		return []string{text}
	}
	return sentences
}

// splitParagraphs splits on blank lines and unwraps soft line breaks.
func splitParagraphs(text string) []string {
	text = strings.ReplaceAll(text, "\r\n", "\n")

	var result []string
	for _, p := range strings.Split(text, "\n\n") {
		p = strings.TrimSpace(strings.ReplaceAll(p, "\n", " "))
		if p != "" {
			result = append(result, p)
		}
	}
	return result
}

func getTokenizer() (*tiktoken.Tiktoken, error) {
	tkOnce.Do(func() {
		tk, tkErr = tiktoken.GetEncoding(encodingName)
		if tkErr != nil {
			tkErr = fmt.Errorf("failed to load tiktoken %s: %w", encodingName, tkErr)
		}
	})
	return tk, tkErr
}

func isCJK(r rune) bool {
	return unicode.Is(unicode.Han, r) ||
		unicode.Is(unicode.Hiragana, r) ||
		unicode.Is(unicode.Katakana, r) ||
		unicode.Is(unicode.Hangul, r)
}
