package chunk

import (
	"strings"
	"time"
)

// FallbackOptions configures the character-window fallback splitter.
type FallbackOptions struct {
	ChunkSize    int // nominal window size in characters
	ChunkOverlap int // overlap between consecutive windows, in characters
	MinChunkSize int // chunks shorter than this are discarded
}

// DefaultFallbackOptions mirrors DefaultMaxChunkTokens*TokensPerChar sizing
// so the fallback splitter and the syntax-aware splitter produce similarly
// sized chunks.
func DefaultFallbackOptions() FallbackOptions {
	return FallbackOptions{
		ChunkSize:    DefaultMaxChunkTokens * TokensPerChar,
		ChunkOverlap: DefaultOverlapTokens * TokensPerChar,
		MinChunkSize: 32,
	}
}

// splitChars splits content into a sliding character window with overlap.
// Before emitting a window, it searches backward from the nominal end for a
// "good" break point in order of preference: blank line, line terminator,
// sentence terminator, word boundary — bounded to a look-back of 20% of
// ChunkSize. Discards windows shorter than MinChunkSize.
func splitChars(content string, opts FallbackOptions) []charWindow {
	if opts.ChunkSize <= 0 {
		opts = DefaultFallbackOptions()
	}
	lookback := opts.ChunkSize / 5
	if lookback < 1 {
		lookback = 1
	}

	var windows []charWindow
	n := len(content)
	start := 0

	for start < n {
		nominalEnd := start + opts.ChunkSize
		if nominalEnd >= n {
			nominalEnd = n
		} else {
			nominalEnd = goodBreakPoint(content, start, nominalEnd, lookback)
		}

		piece := content[start:nominalEnd]
		if len(strings.TrimSpace(piece)) >= opts.MinChunkSize {
			windows = append(windows, charWindow{
				content:    piece,
				startByte:  start,
				endByte:    nominalEnd,
			})
		}

		if nominalEnd >= n {
			break
		}

		next := nominalEnd - opts.ChunkOverlap
		if next <= start {
			next = nominalEnd
		}
		start = next
	}

	return windows
}

type charWindow struct {
	content   string
	startByte int
	endByte   int
}

// goodBreakPoint searches backward from nominalEnd (bounded by lookback)
// for, in preference order: a blank line, a line terminator, a sentence
// terminator, then a word boundary. Falls back to nominalEnd itself.
func goodBreakPoint(content string, start, nominalEnd, lookback int) int {
	floor := nominalEnd - lookback
	if floor < start {
		floor = start
	}

	// Blank line (two consecutive newlines).
	if idx := lastIndexInRange(content, "\n\n", floor, nominalEnd); idx >= 0 {
		return idx + 2
	}
	// Line terminator.
	if idx := lastIndexInRange(content, "\n", floor, nominalEnd); idx >= 0 {
		return idx + 1
	}
	// Sentence terminator.
	for _, term := range []string{". ", "! ", "? "} {
		if idx := lastIndexInRange(content, term, floor, nominalEnd); idx >= 0 {
			return idx + len(term)
		}
	}
	// Word boundary (whitespace).
	for i := nominalEnd; i > floor; i-- {
		if i <= len(content) && i > 0 && (content[i-1] == ' ' || content[i-1] == '\t') {
			return i
		}
	}

	return nominalEnd
}

// lastIndexInRange returns the byte offset of the last occurrence of sep
// within content[floor:ceil], or -1.
func lastIndexInRange(content, sep string, floor, ceil int) int {
	if ceil > len(content) {
		ceil = len(content)
	}
	if floor < 0 || floor >= ceil {
		return -1
	}
	window := content[floor:ceil]
	idx := strings.LastIndex(window, sep)
	if idx < 0 {
		return -1
	}
	return floor + idx
}

// byteOffsetToLine recomputes a 1-indexed line number from a byte offset.
func byteOffsetToLine(content string, offset int) int {
	if offset > len(content) {
		offset = len(content)
	}
	return strings.Count(content[:offset], "\n") + 1
}

// chunkWholeFile runs the character-window fallback over an entire file and
// returns Kind-block chunks. Used when the language is unsupported or
// parsing fails (spec: "Parse failures fall back to the character strategy
// for the whole file").
func chunkWholeFile(file *FileInput, opts FallbackOptions) []*Chunk {
	content := string(file.Content)
	if strings.TrimSpace(content) == "" {
		return nil
	}

	now := time.Now()
	windows := splitChars(content, opts)
	chunks := make([]*Chunk, 0, len(windows))
	for _, w := range windows {
		startLine := byteOffsetToLine(content, w.startByte)
		endLine := byteOffsetToLine(content, w.endByte)
		if endLine < startLine {
			endLine = startLine
		}
		chunks = append(chunks, &Chunk{
			ID:          generateChunkID(file.Path, w.content),
			FilePath:    file.Path,
			Kind:        KindBlock,
			Content:     w.content,
			RawContent:  w.content,
			ContentType: ContentTypeText,
			Language:    file.Language,
			StartLine:   startLine,
			EndLine:     endLine,
			Metadata:    make(map[string]string),
			CreatedAt:   now,
			UpdatedAt:   now,
		})
	}
	return chunks
}
