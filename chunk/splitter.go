// Package chunk splits documents into bounded-size text segments for
// embedding. Splitting prefers the coarsest separator that keeps a
// segment under the size limit: paragraph breaks, then line breaks,
// then sentence punctuation, then spaces, recursing to the next
// separator only when a piece is still too large.
package chunk

import (
	"strings"

	"go.uber.org/zap"

	"github.com/siftlabs/ragcore/core"
)

// DefaultSeparators is the split priority, coarsest first.
var DefaultSeparators = []string{"\n\n", "\n", ".", " "}

// Config controls the splitter.
type Config struct {
	// ChunkSize is the maximum chunk length in characters.
	ChunkSize int

	// ChunkOverlap prepends up to this many characters of the previous
	// chunk to each chunk. The overlap is budgeted inside ChunkSize, so
	// overlapped chunks still respect the maximum. Zero disables
	// overlap.
	ChunkOverlap int

	// Separators overrides DefaultSeparators when non-nil.
	Separators []string
}

// DefaultConfig matches the production ingestion settings.
func DefaultConfig() Config {
	return Config{ChunkSize: 1000, ChunkOverlap: 0}
}

// Splitter implements recursive character splitting.
type Splitter struct {
	cfg    Config
	seps   []string
	target int
	logger *zap.Logger
}

// NewSplitter creates a Splitter. A nil logger falls back to zap.NewNop.
func NewSplitter(cfg Config, logger *zap.Logger) *Splitter {
	if cfg.ChunkSize <= 0 {
		cfg.ChunkSize = DefaultConfig().ChunkSize
	}
	if cfg.ChunkOverlap < 0 {
		cfg.ChunkOverlap = 0
	}
	seps := cfg.Separators
	if seps == nil {
		seps = DefaultSeparators
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	// Pieces are packed to target so that after the overlap prefix and
	// its joining space every chunk stays within ChunkSize.
	target := cfg.ChunkSize
	if cfg.ChunkOverlap > 0 {
		target = cfg.ChunkSize - cfg.ChunkOverlap - 1
		if target <= 0 {
			logger.Warn("chunk overlap leaves no room for content; disabling overlap",
				zap.Int("chunk_size", cfg.ChunkSize),
				zap.Int("chunk_overlap", cfg.ChunkOverlap))
			cfg.ChunkOverlap = 0
			target = cfg.ChunkSize
		}
	}
	return &Splitter{cfg: cfg, seps: seps, target: target, logger: logger}
}

// Split chunks every document in order, preserving source order and
// provenance. An empty document list yields an empty chunk list.
func (s *Splitter) Split(docs []core.Document) []core.Chunk {
	var chunks []core.Chunk
	for _, doc := range docs {
		pieces := s.splitText(doc.Content, s.seps)
		if s.cfg.ChunkOverlap > 0 {
			pieces = addOverlap(pieces, s.cfg.ChunkOverlap)
		}
		for i, p := range pieces {
			chunks = append(chunks, core.Chunk{
				Source:  doc.Source,
				Seq:     i,
				Content: p,
			})
		}
	}
	s.logger.Debug("split documents",
		zap.Int("documents", len(docs)),
		zap.Int("chunks", len(chunks)),
		zap.Int("chunk_size", s.cfg.ChunkSize))
	return chunks
}

// splitText splits text on the first separator, merges the parts back
// into runs no longer than the packing target, and recurses with the
// next separator for any part that alone exceeds the limit.
func (s *Splitter) splitText(text string, seps []string) []string {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}
	if len(text) <= s.target {
		return []string{text}
	}
	if len(seps) == 0 {
		// Indivisible run: hard split by characters.
		return hardSplit(text, s.target)
	}

	sep := seps[0]
	parts := strings.Split(text, sep)

	var out []string
	var current strings.Builder
	flush := func() {
		piece := strings.TrimSpace(current.String())
		if piece != "" {
			out = append(out, piece)
		}
		current.Reset()
	}

	for i, part := range parts {
		// Keep the separator with the preceding part so the chunks
		// concatenate back to roughly the original text.
		if i < len(parts)-1 {
			part += sep
		}

		if len(part) > s.target {
			flush()
			out = append(out, s.splitText(part, seps[1:])...)
			continue
		}
		if current.Len()+len(part) > s.target {
			flush()
		}
		current.WriteString(part)
	}
	flush()
	return out
}

func hardSplit(text string, size int) []string {
	runes := []rune(text)
	var out []string
	for start := 0; start < len(runes); start += size {
		end := start + size
		if end > len(runes) {
			end = len(runes)
		}
		out = append(out, string(runes[start:end]))
	}
	return out
}

// addOverlap prefixes each chunk with the tail of its predecessor.
func addOverlap(pieces []string, overlap int) []string {
	if len(pieces) <= 1 {
		return pieces
	}
	out := make([]string, len(pieces))
	out[0] = pieces[0]
	for i := 1; i < len(pieces); i++ {
		prev := pieces[i-1]
		tail := prev
		if len(prev) > overlap {
			tail = prev[len(prev)-overlap:]
		}
		out[i] = tail + " " + pieces[i]
	}
	return out
}
